// Package upload streams vehicle photos to object storage and returns their
// download URLs.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"
)

// ErrEmptyFile is returned when a file has no content to upload.
var ErrEmptyFile = errors.New("file is empty")

// File is a photo selected by the operator.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// OpenFile describes the file at path.
func OpenFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{
		Name:        filepath.Base(path),
		ContentType: contentTypeFor(path),
		Size:        info.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// BytesFile wraps in-memory content as a File.
func BytesFile(name string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentTypeFor(name),
		Size:        int64(len(data)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Store uploads files and returns a URL the backend can store.
type Store interface {
	// Upload streams f, calling progress with a percentage between 0 and 100
	// as bytes are sent. progress may be nil.
	Upload(ctx context.Context, f File, progress func(float64)) (string, error)
}

// progressReader reports the share of total read so far.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(Percent(p.read, p.total))
	}
	return n, err
}

func (p *progressReader) report(pct float64) {
	if p.progress != nil {
		p.progress(pct)
	}
}

// Percent returns done/total as a percentage clamped to [0, 100].
func Percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(done) / float64(total) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// MemoryStore keeps uploads in process memory. Tests use it in place of
// object storage.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty store serving URLs under baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, objects: make(map[string][]byte)}
}

// Upload copies f into memory.
func (m *MemoryStore) Upload(ctx context.Context, f File, progress func(float64)) (string, error) {
	name := ObjectName("", f.Name)
	var buf bytes.Buffer
	if err := copyWithProgress(ctx, &buf, f, progress); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = buf.Bytes()
	return m.BaseURL + "/" + name, nil
}

// Object returns the stored bytes for name.
func (m *MemoryStore) Object(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[name]
	return data, ok
}

// copyWithProgress streams f into dst, honoring ctx between reads.
func copyWithProgress(ctx context.Context, dst io.Writer, f File, progress func(float64)) error {
	if f.Open == nil {
		return fmt.Errorf("no content for %q", f.Name)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	pr := &progressReader{r: &ctxReader{ctx: ctx, r: src}, total: f.Size, progress: progress}
	pr.report(0)
	n, err := io.Copy(dst, pr)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", f.Name, err)
	}
	if n == 0 {
		return ErrEmptyFile
	}
	pr.report(100)
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}
