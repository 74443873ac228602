package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/library"
	"clipforge/internal/logging"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddClip inserts an uploaded clip for tests using the provided store.
func AddClip(t testing.TB, store *library.Store, name, hash, path string) *library.Item {
	t.Helper()

	item, err := store.Insert(context.Background(), &library.Item{
		OriginalName:   name,
		DisplayName:    name,
		StoredFilename: name,
		Path:           path,
		ContentHash:    hash,
	})
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return item
}
