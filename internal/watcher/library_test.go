package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/mulefind/internal/query"
	"github.com/hyperjump/mulefind/internal/storage"
)

func TestLibrary_IndexAndRemove(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "known.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	lib := NewLibrary(store, nil)

	path := filepath.Join(t.TempDir(), "abc.txt")
	if err := os.WriteFile(path, []byte("abc"), 0600); err != nil {
		t.Fatal(err)
	}
	lib.Index(ctx, path)

	hits, err := store.Search(ctx, query.Compile("abc"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits: got %d", len(hits))
	}
	h := hits[0]
	if h.Hash != "a448017aaf21d8525fc10ae87aa6729d" || h.Size != 3 || h.Name != "abc.txt" {
		t.Errorf("hit: %+v", h)
	}
	if h.Network != NetworkLibrary || h.Extra[storage.PathKey] != path {
		t.Errorf("library metadata: %q %v", h.Network, h.Extra)
	}

	// Rewriting the file replaces the old entry.
	if err := os.WriteFile(path, []byte("abcd"), 0600); err != nil {
		t.Fatal(err)
	}
	lib.Index(ctx, path)
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("count after rewrite: got %d, want 1", n)
	}

	lib.Remove(ctx, path)
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("count after remove: got %d", n)
	}

	// Missing files are logged and skipped.
	lib.Index(ctx, filepath.Join(t.TempDir(), "gone.iso"))
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("missing file should not be tracked, count %d", n)
	}
}
