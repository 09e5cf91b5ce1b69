package blob

import (
	"context"
	"fmt"
	"io"
	"os"
)

// SpoolFile is a local copy of a fetched object. Closing it removes the file.
type SpoolFile struct {
	*os.File
	Size int64
}

func (f *SpoolFile) Close() error {
	err := f.File.Close()
	if rmErr := os.Remove(f.Name()); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// Spool downloads loc into a temporary file under dir and returns it
// positioned at the start.
func Spool(ctx context.Context, store Store, loc Location, dir string) (*SpoolFile, error) {
	src, err := store.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "feed-*.spool")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	spool := &SpoolFile{File: tmp}

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: src})
	if err != nil {
		_ = spool.Close()
		return nil, fmt.Errorf("failed to download %s: %w", loc, err)
	}
	spool.Size = n

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = spool.Close()
		return nil, fmt.Errorf("failed to rewind spool file: %w", err)
	}

	return spool, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
