package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"blog-cms/internal/cms/domain/repository"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/logger"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorage stores objects in a Google Cloud Storage bucket.
type GCSStorage struct {
	client        *gcs.Client
	bucket        *gcs.BucketHandle
	bucketName    string
	publicBaseURL string
	log           logger.Logger
}

var _ repository.ObjectStorage = (*GCSStorage)(nil)

// NewGCSStorage connects to bucket. credentialsFile may be empty to use
// application default credentials.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile, publicBaseURL string, log logger.Logger) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStorage{
		client:        client,
		bucket:        client.Bucket(bucket),
		bucketName:    bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log.WithComponent("gcs_storage"),
	}, nil
}

func (s *GCSStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if path == "" {
		return apperrors.NewValidationError("object path cannot be empty")
	}
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", path, err)
	}
	return nil
}

func (s *GCSStorage) Download(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, apperrors.NewNotFoundError("object").WithCause(err)
		}
		return nil, fmt.Errorf("open object %s: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSStorage) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (s *GCSStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, apperrors.NewValidationError("refusing to delete an empty prefix")
	}
	names, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, name := range names {
		if err := s.bucket.Object(name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			return deleted, fmt.Errorf("delete object %s: %w", name, err)
		}
		deleted++
	}
	s.log.WithFields(map[string]interface{}{"prefix": prefix, "deleted": deleted}).Debug("Deleted objects")
	return deleted, nil
}

func (s *GCSStorage) PublicURL(path string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(path, "/")
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
