package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/simple-dashboard/pkg/clientinfo"
	"github.com/tendant/simple-dashboard/pkg/directory"
	"github.com/tendant/simple-dashboard/pkg/impersonate"
)

// Handle handles HTTP requests for impersonation session control
type Handle struct {
	service    *impersonate.Service
	directory  *directory.DirectoryService
	startGuard func(http.Handler) http.Handler
}

// HandleOption is a function that configures a Handle
type HandleOption func(*Handle)

// WithStartGuard wraps the session-start endpoint with the given middleware,
// typically a per-admin rate limiter. Only the start route is guarded;
// ending a session must never be throttled.
func WithStartGuard(mw func(http.Handler) http.Handler) HandleOption {
	return func(h *Handle) {
		h.startGuard = mw
	}
}

// NewHandle creates a new impersonation handler
func NewHandle(service *impersonate.Service, dir *directory.DirectoryService, opts ...HandleOption) *Handle {
	h := &Handle{
		service:   service,
		directory: dir,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the impersonation routes
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/impersonate", func(r chi.Router) {
		if h.startGuard != nil {
			r.With(h.startGuard).Post("/", h.CreateImpersonate)
		} else {
			r.Post("/", h.CreateImpersonate)
		}
		r.Delete("/", h.EndImpersonate)
		r.Post("/actions", h.LogAction)
		r.Get("/context", h.GetContext)
	})
}

// CreateImpersonate handles POST /impersonate
func (h *Handle) CreateImpersonate(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	data := CreateImpersonateRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		http.Error(w, "unable to parse body", http.StatusBadRequest)
		return
	}

	targetID, err := uuid.Parse(data.TargetUserID)
	if err != nil {
		http.Error(w, "invalid target user ID", http.StatusBadRequest)
		return
	}

	user, err := h.directory.GetUser(r.Context(), targetID)
	if err != nil {
		var notFound directory.ErrUserNotFound
		if errors.As(err, &notFound) {
			http.Error(w, "target user not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to resolve target user", "targetId", targetID, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meta := clientinfo.ExtractFromRequest(r)
	session, err := h.service.Start(r.Context(), impersonate.StartRequest{
		Admin: admin,
		Target: impersonate.Target{
			ID:        user.ID.String(),
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		},
		Reason:    data.Reason,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		var already impersonate.ErrAlreadyImpersonating
		if errors.As(err, &already) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ErrorResponse{Error: already.Error()})
			return
		}
		slog.Error("Failed to start impersonation", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sessionResponse(session))
}

// EndImpersonate handles DELETE /impersonate
func (h *Handle) EndImpersonate(w http.ResponseWriter, r *http.Request) {
	summary := h.service.End(r.Context())
	render.JSON(w, r, summary)
}

// LogAction handles POST /impersonate/actions
func (h *Handle) LogAction(w http.ResponseWriter, r *http.Request) {
	data := LogActionRequest{}
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		http.Error(w, "unable to parse body", http.StatusBadRequest)
		return
	}
	if data.ActionType == "" {
		http.Error(w, "action_type is required", http.StatusBadRequest)
		return
	}

	h.service.LogAction(r.Context(), data.ActionType, data.Details, data.Payload)
	w.WriteHeader(http.StatusNoContent)
}

// GetContext handles GET /impersonate/context
func (h *Handle) GetContext(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	response := ContextResponse{
		EffectiveUser: h.service.EffectiveUser(admin),
	}
	if session := h.service.CurrentSession(); session != nil {
		response.Session = sessionResponse(session)
	}
	render.JSON(w, r, response)
}

func sessionResponse(session *impersonate.Session) *SessionResponse {
	return &SessionResponse{
		SessionID:   session.ID.String(),
		AdminEmail:  session.Admin.Email,
		TargetEmail: session.Target.Email,
		TargetName:  session.Target.FirstName + " " + session.Target.LastName,
		StartedAt:   session.StartedAt.Format(time.RFC3339),
		Reason:      session.Reason,
	}
}
