package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore serves gs:// locations using application default credentials.
type GCSStore struct {
	client *storage.Client
}

var _ Store = (*GCSStore)(nil)

func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	reader, err := s.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", loc, err)
	}
	return reader, nil
}

func (s *GCSStore) Put(ctx context.Context, loc Location, r io.Reader, size int64, contentType string) error {
	writer := s.client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write object %s: %w", loc, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", loc, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
