package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// downloadTokenKey is the object metadata key Firebase Storage reads download
// tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// DefaultPrefix is the folder vehicle photos are stored under.
const DefaultPrefix = "item_images"

// FirebaseConfig holds the Firebase Storage settings.
type FirebaseConfig struct {
	ProjectID       string
	Bucket          string
	CredentialsPath string
	Prefix          string
}

// objectWriterFunc opens a writer for a new object.
type objectWriterFunc func(ctx context.Context, name, contentType string, metadata map[string]string) io.WriteCloser

// FirebaseStore uploads photos to the project's Firebase Storage bucket and
// returns tokenized download URLs.
type FirebaseStore struct {
	bucket    string
	prefix    string
	newWriter objectWriterFunc
	newToken  func() string
}

// NewFirebaseStore connects to Firebase Storage.
func NewFirebaseStore(ctx context.Context, cfg FirebaseConfig) (*FirebaseStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.Bucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error opening storage bucket: %w", err)
	}

	log.WithFields(log.Fields{"project": cfg.ProjectID, "bucket": cfg.Bucket}).Info("Connected to Firebase Storage")
	return newFirebaseStore(cfg.Bucket, cfg.Prefix, bucketWriter(bucket)), nil
}

func newFirebaseStore(bucket, prefix string, w objectWriterFunc) *FirebaseStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &FirebaseStore{bucket: bucket, prefix: prefix, newWriter: w, newToken: uuid.NewString}
}

func bucketWriter(bucket *gcs.BucketHandle) objectWriterFunc {
	return func(ctx context.Context, name, contentType string, metadata map[string]string) io.WriteCloser {
		w := bucket.Object(name).NewWriter(ctx)
		w.ContentType = contentType
		w.Metadata = metadata
		return w
	}
}

// Upload streams f to <prefix>/<uuid>-<name> and returns its download URL.
func (s *FirebaseStore) Upload(ctx context.Context, f File, progress func(float64)) (string, error) {
	name := ObjectName(s.prefix, f.Name)
	token := s.newToken()

	// a cancelled context aborts the object write
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.newWriter(ctx, name, f.ContentType, map[string]string{downloadTokenKey: token})
	if err := copyWithProgress(ctx, w, f, progress); err != nil {
		cancel()
		w.Close()
		log.WithError(err).WithField("object", name).Error("Photo upload failed")
		return "", err
	}
	if err := w.Close(); err != nil {
		log.WithError(err).WithField("object", name).Error("Photo upload failed")
		return "", fmt.Errorf("failed to finalize %s: %w", name, err)
	}

	log.WithFields(log.Fields{"object": name, "bytes": f.Size}).Info("Photo uploaded")
	return DownloadURL(s.bucket, name, token), nil
}

// ObjectName returns a collision-free object name for a file called name.
func ObjectName(prefix, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	object := uuid.NewString() + "-" + base
	if prefix == "" {
		return object
	}
	return strings.TrimRight(prefix, "/") + "/" + object
}

// DownloadURL builds the public Firebase Storage URL for an object.
func DownloadURL(bucket, object, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(object), url.QueryEscape(token))
}
