package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/fleet-console/internal/models"
	"github.com/ukydev/fleet-console/internal/store"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSession    = errors.New("not logged in")
)

// Redirect targets used when a session ends on an auth failure.
const (
	AdminLoginPath  = "/"
	DriverLoginPath = "/login/driver"
)

// Session is the console's explicit login state. It is created empty, begun on
// login success and ended on logout or when the backend rejects the session.
type Session struct {
	mu     sync.RWMutex
	store  store.SessionStore
	record *models.SessionRecord
}

// NewSession creates a session backed by st and restores any saved record.
func NewSession(st store.SessionStore) (*Session, error) {
	s := &Session{store: st}
	record, err := st.Load()
	switch {
	case err == nil:
		s.record = record
	case errors.Is(err, store.ErrNoSession):
	default:
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return s, nil
}

// Begin records user as logged in. token is the backend session cookie value;
// when it is a JWT its expiry is kept alongside the user.
func (s *Session) Begin(user models.User, token string) error {
	record := models.SessionRecord{User: user, Token: token}
	if token != "" {
		if claims, err := ParseClaims(token); err == nil && claims.Exp > 0 {
			record.ExpiresAt = time.Unix(claims.Exp, 0).UTC()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(record); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.record = &record
	return nil
}

// End tears the session down and removes the persisted record.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// User returns the logged-in user.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return models.User{}, false
	}
	return s.record.User, true
}

// Token returns the session cookie value, or "" without a session.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return ""
	}
	return s.record.Token
}

// Record returns a copy of the current session record.
func (s *Session) Record() (models.SessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return models.SessionRecord{}, false
	}
	return *s.record, true
}

// Require returns the current user, or ErrNoSession when nobody is logged in
// or the stored cookie has expired.
func (s *Session) Require(now time.Time) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil || s.record.IsExpired(now) {
		return models.User{}, ErrNoSession
	}
	return s.record.User, nil
}

// RedirectPath returns where a user is sent after their session ends.
func RedirectPath(user *models.User) string {
	if user == nil {
		return AdminLoginPath
	}
	switch user.Role {
	case models.RoleDriver:
		return DriverLoginPath
	default:
		return AdminLoginPath
	}
}

// ParseClaims decodes the claims of a backend session token. The signature is
// not checked here; the backend verifies it on every request.
func ParseClaims(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}

	out := &models.Claims{}
	for _, key := range []string{"user_id", "id", "_id"} {
		if v, ok := claims[key].(string); ok {
			out.UserID = v
			break
		}
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = models.Role(role)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Exp = exp.Unix()
	}

	if out.UserID == "" && out.Exp == 0 {
		return nil, ErrInvalidToken
	}
	return out, nil
}
