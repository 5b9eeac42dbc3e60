package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/simple-dashboard/pkg/impersonate"
	"github.com/tendant/simple-dashboard/pkg/impersonate/api"
)

func TestStartGuard(t *testing.T) {
	guard := StartGuard(StartGuardConfig{
		Capacity:   2,
		RefillRate: 0.01,
		BucketTTL:  time.Hour,
	})

	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	doAs := func(adminID string) int {
		req := httptest.NewRequest(http.MethodPost, "/impersonate", nil)
		if adminID != "" {
			admin := impersonate.Admin{ID: adminID, Email: adminID + "@example.com"}
			req = req.WithContext(context.WithValue(req.Context(), api.AdminUserKey, admin))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("AllowsWithinLimit", func(t *testing.T) {
		assert.Equal(t, http.StatusCreated, doAs("admin-1"))
		assert.Equal(t, http.StatusCreated, doAs("admin-1"))
	})

	t.Run("RejectsBeyondLimit", func(t *testing.T) {
		assert.Equal(t, http.StatusTooManyRequests, doAs("admin-1"))
	})

	t.Run("PerAdminBuckets", func(t *testing.T) {
		assert.Equal(t, http.StatusCreated, doAs("admin-2"))
	})

	t.Run("NoAdminPassesThrough", func(t *testing.T) {
		// Unauthenticated requests are the auth layer's problem
		assert.Equal(t, http.StatusCreated, doAs(""))
	})
}
