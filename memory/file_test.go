package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oppositecube/jarvis/core"
)

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*FileStore)(nil)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jarvis_memory.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store, path
}

func TestFileStore_MissingFileLoadsEmpty(t *testing.T) {
	store, _ := newTestFileStore(t)
	prefs, err := store.Get("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prefs) != 0 {
		t.Fatalf("expected empty preferences, got %#v", prefs)
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	store, path := newTestFileStore(t)

	if err := store.Put("s1", map[string]any{"favorite_music": "jazz"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Store("s1", "user: open youtube / assistant: opening youtube", nil); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Store("s1", "opened https://youtube.com", map[string]any{"kind": KindSystemInteraction}); err != nil {
		t.Fatalf("store system interaction failed: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	prefs, _ := reopened.Get("s1")
	if prefs["favorite_music"] != "jazz" {
		t.Fatalf("expected persisted preference, got %#v", prefs)
	}

	res, _ := reopened.Search("s1", "youtube", 10)
	if len(res) != 2 {
		t.Fatalf("expected 2 matches across sections, got %d", len(res))
	}
}

func TestFileStore_SearchNewestFirstAndScoped(t *testing.T) {
	store, _ := newTestFileStore(t)

	_ = store.Store("s1", "first note", nil)
	_ = store.Store("s1", "second note", nil)
	_ = store.Store("s2", "other session note", nil)

	res, err := store.Search("s1", "note", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 session-scoped matches, got %d", len(res))
	}
	if res[0].Content != "second note" {
		t.Fatalf("expected newest-first ordering, got %#v", res)
	}
}

func TestFileStore_Delete(t *testing.T) {
	store, _ := newTestFileStore(t)

	_ = store.Store("s1", "to be removed", nil)
	res, _ := store.Search("s1", "", 10)
	if len(res) != 1 {
		t.Fatalf("expected 1 stored memory, got %d", len(res))
	}

	if err := store.Delete("s1", res[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Delete("s1", res[0].ID); err == nil {
		t.Fatalf("expected error deleting missing memory")
	}
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jarvis_memory.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatalf("expected error for corrupt memory file")
	}
}
