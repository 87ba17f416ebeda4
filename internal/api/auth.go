package api

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/models"
)

// ErrUnexpectedRole is wrapped into a KindClient error when the backend logs
// in an account whose role the console does not know.
var ErrUnexpectedRole = errors.New("unexpected account role")

// AuthAPI wraps the backend login endpoints.
type AuthAPI struct {
	client *Client
}

// NewAuthAPI creates the auth resource module.
func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{client: c}
}

// AdminLogin authenticates an administrator. On success the backend sets the
// session cookie and the client's session is begun with the returned user.
func (a *AuthAPI) AdminLogin(ctx context.Context, email, password string) (*models.User, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := a.client.Post(ctx, "/auth/admin/login", req, &resp); err != nil {
		return nil, err
	}

	user := resp.User
	if user.Role == "" {
		user.Role = models.RoleAdmin
	}
	if user.Email == "" {
		user.Email = email
	}
	if !models.IsValidRole(user.Role) {
		a.client.endSession()
		err := fmt.Errorf("%w: %q", ErrUnexpectedRole, user.Role)
		return nil, a.client.fail(&Error{Kind: KindClient, Message: err.Error(), Err: err})
	}
	if err := a.client.session.Begin(user, a.client.SessionToken()); err != nil {
		return nil, fmt.Errorf("login succeeded but session could not be stored: %w", err)
	}

	log.WithFields(log.Fields{"email": user.Email, "role": user.Role}).Info("Logged in")
	return &user, nil
}

// Logout ends the backend session and tears down the local one. The local
// session is cleared even when the backend call fails.
func (a *AuthAPI) Logout(ctx context.Context) error {
	err := a.client.Post(ctx, "/auth/logout", nil, nil)
	a.client.endSession()
	return err
}
