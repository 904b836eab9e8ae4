package testsupport

import (
	"context"
	"testing"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/media"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddItems upserts items into store for tests.
func AddItems(t testing.TB, store *catalog.Store, items ...media.Item) {
	t.Helper()

	if _, err := store.Upsert(context.Background(), items, "test"); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
}
