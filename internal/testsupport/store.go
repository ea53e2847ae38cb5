package testsupport

import (
	"context"
	"testing"

	"bbdrop/internal/config"
	"bbdrop/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewGallery creates a pending gallery item for tests using the provided store.
func NewGallery(t testing.TB, store *queue.Store, folderPath, name string) *queue.Item {
	t.Helper()

	item, err := store.NewGallery(context.Background(), folderPath, name, "imx", "")
	if err != nil {
		t.Fatalf("store.NewGallery: %v", err)
	}
	return item
}
