package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	ErrNotFound          = errors.New("object not found")
	ErrUnsupportedScheme = errors.New("unsupported location scheme")
)

// Store fetches and writes whole objects by location.
type Store interface {
	Open(ctx context.Context, loc Location) (io.ReadCloser, error)
	Put(ctx context.Context, loc Location, r io.Reader, size int64, contentType string) error
}

var _ Store = (*Router)(nil)

type StoreFactory func(ctx context.Context) (Store, error)

// Router dispatches to a store by location scheme. Stores registered through
// a factory are created on first use.
type Router struct {
	mu        sync.Mutex
	stores    map[string]Store
	factories map[string]StoreFactory
}

func NewRouter() *Router {
	return &Router{
		stores:    make(map[string]Store),
		factories: make(map[string]StoreFactory),
	}
}

func (r *Router) Register(scheme string, store Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[scheme] = store
}

func (r *Router) RegisterFactory(scheme string, factory StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[scheme] = factory
}

func (r *Router) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	store, err := r.storeFor(ctx, loc.Scheme)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, loc)
}

func (r *Router) Put(ctx context.Context, loc Location, src io.Reader, size int64, contentType string) error {
	store, err := r.storeFor(ctx, loc.Scheme)
	if err != nil {
		return err
	}
	return store.Put(ctx, loc, src, size, contentType)
}

// Close releases stores that hold clients.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for scheme, store := range r.stores {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close %s store: %w", scheme, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Router) storeFor(ctx context.Context, scheme string) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[scheme]; ok {
		return store, nil
	}

	factory, ok := r.factories[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	store, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", scheme, err)
	}
	r.stores[scheme] = store
	return store, nil
}
