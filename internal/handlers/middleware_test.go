package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebudget/internal/models"
	"timebudget/internal/utils"
)

func TestAuthMiddleware(t *testing.T) {
	auth := utils.NewAuthManager("test-secret", time.Hour)
	h := &Handler{Auth: auth}

	var gotOwner int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner = ownerID(r)
		w.WriteHeader(http.StatusOK)
	})
	protected := h.AuthMiddleware(next)

	t.Run("no header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.GenerateToken(&models.User{ID: 42, Name: "sasha"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), gotOwner)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := utils.NewAuthManager("other-secret", time.Hour)
		token, err := other.GenerateToken(&models.User{ID: 42, Name: "sasha"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
