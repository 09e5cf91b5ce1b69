package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore serves file:// locations.
type LocalStore struct{}

var _ Store = (*LocalStore)(nil)

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func (s *LocalStore) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(loc.Key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("failed to open %s: %w", loc, err)
	}
	return f, nil
}

// Put writes through a temporary file in the target directory and renames it
// into place.
func (s *LocalStore) Put(ctx context.Context, loc Location, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(loc.Key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", loc, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", loc, err)
	}

	if err := os.Rename(tmp.Name(), loc.Key); err != nil {
		return fmt.Errorf("failed to move report into %s: %w", loc, err)
	}
	return nil
}
