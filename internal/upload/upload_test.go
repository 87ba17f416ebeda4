package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	bytes.Buffer
	name        string
	contentType string
	metadata    map[string]string
	closed      bool
	closeErr    error
}

func (w *memWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func fakeStore(w *memWriter) *FirebaseStore {
	s := newFirebaseStore("fleet-demo.appspot.com", "", func(_ context.Context, name, ct string, md map[string]string) io.WriteCloser {
		w.name, w.contentType, w.metadata = name, ct, md
		return w
	})
	s.newToken = func() string { return "tok-123" }
	return s
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(5, 0))
	assert.Equal(t, 50.0, Percent(5, 10))
	assert.Equal(t, 100.0, Percent(15, 10))
	assert.Equal(t, 0.0, Percent(-1, 10))
}

func TestFirebaseStore_Upload(t *testing.T) {
	w := &memWriter{}
	store := fakeStore(w)
	data := bytes.Repeat([]byte("x"), 64*1024)

	var progress []float64
	url, err := store.Upload(context.Background(), BytesFile("truck.jpg", data), func(p float64) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.True(t, w.closed)
	assert.Equal(t, data, w.Bytes())
	assert.Equal(t, "image/jpeg", w.contentType)
	assert.Equal(t, "tok-123", w.metadata[downloadTokenKey])
	assert.True(t, strings.HasPrefix(w.name, DefaultPrefix+"/"))
	assert.True(t, strings.HasSuffix(w.name, "-truck.jpg"))

	assert.True(t, strings.HasPrefix(url, "https://firebasestorage.googleapis.com/v0/b/fleet-demo.appspot.com/o/item_images%2F"))
	assert.True(t, strings.HasSuffix(url, "?alt=media&token=tok-123"))

	require.NotEmpty(t, progress)
	assert.Equal(t, 0.0, progress[0])
	assert.Equal(t, 100.0, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
		assert.LessOrEqual(t, progress[i], 100.0)
	}
}

func TestFirebaseStore_UploadFinalizeError(t *testing.T) {
	w := &memWriter{closeErr: errors.New("permission denied")}
	_, err := fakeStore(w).Upload(context.Background(), BytesFile("a.png", []byte("png")), nil)
	assert.ErrorContains(t, err, "permission denied")
}

func TestFirebaseStore_UploadCancelled(t *testing.T) {
	w := &memWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fakeStore(w).Upload(ctx, BytesFile("a.png", []byte("png")), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, w.closed)
}

func TestUpload_EmptyFile(t *testing.T) {
	_, err := NewMemoryStore("mem://photos").Upload(context.Background(), BytesFile("a.png", nil), nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("mem://photos")
	url, err := store.Upload(context.Background(), BytesFile("van.png", []byte("img")), nil)
	require.NoError(t, err)

	name := strings.TrimPrefix(url, "mem://photos/")
	data, ok := store.Object(name)
	require.True(t, ok)
	assert.Equal(t, []byte("img"), data)
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bike.png")
	require.NoError(t, os.WriteFile(path, []byte("bike"), 0o600))

	f, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bike.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, int64(4), f.Size)

	_, err = OpenFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
	_, err = OpenFile(dir)
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	a := ObjectName("item_images", "C:\\photos\\car.jpg")
	b := ObjectName("item_images", "C:\\photos\\car.jpg")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "item_images/"))
	assert.True(t, strings.HasSuffix(a, "-car.jpg"))
}
