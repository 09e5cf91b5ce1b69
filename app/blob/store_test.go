package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type closingStore struct {
	*LocalStore
	closed bool
}

func (s *closingStore) Close() error {
	s.closed = true
	return nil
}

func TestLocalStorePutAndOpen(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()
	loc := Location{Scheme: SchemeFile, Key: filepath.Join(t.TempDir(), "nested", "report.txt")}

	if err := store.Put(ctx, loc, strings.NewReader("Total rows: 3\n"), 14, "text/plain"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r, err := store.Open(ctx, loc)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Total rows: 3\n" {
		t.Errorf("Unexpected content %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(loc.Key))
	if len(entries) != 1 {
		t.Errorf("Expected only the report in the directory, got %d entries", len(entries))
	}
}

func TestLocalStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()
	loc := Location{Scheme: SchemeFile, Key: filepath.Join(t.TempDir(), "report.txt")}

	for _, content := range []string{"first run\n", "second\n"} {
		if err := store.Put(ctx, loc, strings.NewReader(content), int64(len(content)), "text/plain"); err != nil {
			t.Fatal(err)
		}
	}

	data, _ := os.ReadFile(loc.Key)
	if string(data) != "second\n" {
		t.Errorf("Expected overwritten content, got %q", data)
	}
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store := NewLocalStore()
	_, err := store.Open(context.Background(), Location{Scheme: SchemeFile, Key: filepath.Join(t.TempDir(), "missing.xml")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLocalStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewLocalStore()
	loc := Location{Scheme: SchemeFile, Key: filepath.Join(t.TempDir(), "report.txt")}
	if err := store.Put(ctx, loc, strings.NewReader("x"), 1, "text/plain"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context canceled on Put, got %v", err)
	}
	if _, err := store.Open(ctx, loc); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context canceled on Open, got %v", err)
	}
}

func TestRouterDispatch(t *testing.T) {
	ctx := context.Background()
	router := NewRouter()
	router.Register(SchemeFile, NewLocalStore())

	loc := Location{Scheme: SchemeFile, Key: filepath.Join(t.TempDir(), "report.txt")}
	if err := router.Put(ctx, loc, strings.NewReader("ok"), 2, "text/plain"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	r, err := router.Open(ctx, loc)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	r.Close()

	_, err = router.Open(ctx, Location{Scheme: SchemeS3, Bucket: "b", Key: "k"})
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Expected unsupported scheme for unregistered store, got %v", err)
	}
}

func TestRouterFactoryIsLazy(t *testing.T) {
	ctx := context.Background()
	router := NewRouter()

	calls := 0
	store := &closingStore{LocalStore: NewLocalStore()}
	router.RegisterFactory(SchemeFile, func(ctx context.Context) (Store, error) {
		calls++
		return store, nil
	})

	if calls != 0 {
		t.Fatal("Factory should not run before first use")
	}

	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		loc := Location{Scheme: SchemeFile, Key: filepath.Join(dir, name)}
		if err := router.Put(ctx, loc, strings.NewReader("x"), 1, "text/plain"); err != nil {
			t.Fatal(err)
		}
	}

	if calls != 1 {
		t.Errorf("Expected factory to run once, ran %d times", calls)
	}

	if err := router.Close(); err != nil {
		t.Fatal(err)
	}
	if !store.closed {
		t.Error("Router should close stores that implement io.Closer")
	}
}

func TestRouterFactoryError(t *testing.T) {
	router := NewRouter()
	boom := errors.New("no credentials")
	router.RegisterFactory(SchemeGCS, func(ctx context.Context) (Store, error) {
		return nil, boom
	})

	_, err := router.Open(context.Background(), Location{Scheme: SchemeGCS, Bucket: "b", Key: "k"})
	if !errors.Is(err, boom) {
		t.Errorf("Expected factory error, got %v", err)
	}
}

func TestSpool(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := Location{Scheme: SchemeFile, Key: filepath.Join(dir, "feed.xml")}
	if err := os.WriteFile(source.Key, []byte("<products></products>"), 0644); err != nil {
		t.Fatal(err)
	}

	spoolDir := filepath.Join(dir, "spool")
	spool, err := Spool(ctx, NewLocalStore(), source, spoolDir)
	if err != nil {
		t.Fatalf("Spool failed: %v", err)
	}

	if spool.Size != int64(len("<products></products>")) {
		t.Errorf("Unexpected spool size %d", spool.Size)
	}
	data, err := io.ReadAll(spool)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<products></products>" {
		t.Errorf("Unexpected spool content %q", data)
	}

	name := spool.Name()
	if err := spool.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Error("Closing the spool file should remove it")
	}
}

func TestSpoolMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := Spool(context.Background(), NewLocalStore(), Location{Scheme: SchemeFile, Key: filepath.Join(dir, "missing")}, dir)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
