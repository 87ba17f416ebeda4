package handlers

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/middleware"
)

// LogoutFunc ends the backend session.
type LogoutFunc func(ctx context.Context) error

// AuthHandler exposes the operator's session to the map page
type AuthHandler struct {
	logout LogoutFunc
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(logout LogoutFunc) *AuthHandler {
	return &AuthHandler{logout: logout}
}

// GetProfile returns the logged-in user
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "User not found in context"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout ends the session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.logout(r.Context()); err != nil {
		// the local session is gone either way
		log.WithError(err).Warn("Backend logout failed")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
