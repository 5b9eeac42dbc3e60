package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/simple-dashboard/pkg/audit"
)

// Handle handles HTTP requests for the audit report screen
type Handle struct {
	auditService *audit.Service
}

// NewHandle creates a new audit report handler
func NewHandle(auditService *audit.Service) *Handle {
	return &Handle{
		auditService: auditService,
	}
}

// RegisterRoutes registers the audit report routes
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Get("/export", h.ExportEntries)
	})
}

// ListEntries handles GET /audit with structured filters and free-text search
func (h *Handle) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.auditService.Search(r.Context(), filter, r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("Failed to query audit entries", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	response := struct {
		Entries []audit.Entry `json:"entries"`
		Total   int           `json:"total"`
	}{
		Entries: entries,
		Total:   len(entries),
	}
	render.JSON(w, r, response)
}

// ExportEntries handles GET /audit/export, streaming the fixed-column CSV
func (h *Handle) ExportEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.auditService.Search(r.Context(), filter, r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("Failed to query audit entries for export", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filename := audit.ExportFilename(time.Now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := audit.WriteCSV(w, entries); err != nil {
		slog.Error("Failed to write audit export", "err", err)
	}
}

func filterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		AdminID:      q.Get("admin_id"),
		TargetUserID: q.Get("target_user_id"),
		Type:         audit.EntryType(q.Get("type")),
	}

	if sessionID := q.Get("session_id"); sessionID != "" {
		id, err := uuid.Parse(sessionID)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid session_id")
		}
		filter.SessionID = id
	}
	if startDate := q.Get("start_date"); startDate != "" {
		t, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid start_date, expected RFC3339")
		}
		filter.StartDate = t
	}
	if endDate := q.Get("end_date"); endDate != "" {
		t, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			return audit.Filter{}, fmt.Errorf("invalid end_date, expected RFC3339")
		}
		filter.EndDate = t
	}
	return filter, nil
}
