package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-console/internal/models"
)

func TestFileSessionStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileSessionStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	record := models.SessionRecord{
		User:      models.User{ID: "u1", Email: "admin@example.com", Role: models.RoleAdmin},
		Token:     "cookie-value",
		ExpiresAt: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(record))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, record.User, loaded.User)
	assert.Equal(t, record.Token, loaded.Token)
	assert.True(t, record.ExpiresAt.Equal(loaded.ExpiresAt))

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	// clearing twice is fine
	assert.NoError(t, s.Clear())
}

func TestFileSessionStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileSessionStore(path).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestMemorySessionStore(t *testing.T) {
	s := &MemorySessionStore{}
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Save(models.SessionRecord{User: models.User{ID: "u1"}}))
	r, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", r.User.ID)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}
