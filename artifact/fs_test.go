package artifact

import (
	"errors"
	"testing"

	"github.com/oppositecube/jarvis/core"
)

// Interface compliance (compile-time assertion)
var _ core.ArtifactStore = (*FSStore)(nil)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func TestFSStore_SaveGetRoundTrip(t *testing.T) {
	svc := newTestFSStore(t)
	if err := svc.Save("s1", "page.html", []byte("<html></html>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := svc.Get("s1", "page.html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(out) != "<html></html>" {
		t.Fatalf("unexpected content: %q", string(out))
	}
}

func TestFSStore_GetMissing(t *testing.T) {
	svc := newTestFSStore(t)
	if _, err := svc.Get("s1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStore_HandlesPathologicalIDs(t *testing.T) {
	svc := newTestFSStore(t)
	// ids containing separators must not escape the root
	id := "../escape/../../etc"
	if err := svc.Save("s/1", id, []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := svc.Get("s/1", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(out) != "x" {
		t.Fatalf("unexpected content: %q", string(out))
	}
	ids, err := svc.List("s/1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected decoded id round-trip, got %#v", ids)
	}
}

func TestFSStore_ListAndDelete(t *testing.T) {
	svc := newTestFSStore(t)
	_ = svc.Save("s1", "a1", []byte("1"))
	_ = svc.Save("s1", "a2", []byte("2"))

	ids, err := svc.List("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}

	if err := svc.Delete("s1", "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete("s1", "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
