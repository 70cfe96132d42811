package pkgctx_test

import (
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/pkgctx"
)

func TestNewAppliesOptions(t *testing.T) {
	c, err := pkgctx.New(
		pkgctx.WithOffline(true),
		pkgctx.WithConcurrency(4),
		pkgctx.WithDepotDirs([]string{"/tmp/depot-a", "/tmp/depot-b"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Offline {
		t.Fatal("expected offline to be set")
	}
	if c.Concurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", c.Concurrency)
	}
	if c.PrimaryDepot() != "/tmp/depot-a" {
		t.Fatalf("expected primary depot /tmp/depot-a, got %s", c.PrimaryDepot())
	}
}

func TestNewDefaultsDepotDirs(t *testing.T) {
	// With no WithDepotDirs option, New falls back to the
	// environment/home default; this checks that default is non-empty.
	c, err := pkgctx.New()
	if err != nil {
		t.Fatal(err)
	}
	if len(c.DepotDirs) == 0 {
		t.Fatal("expected a default depot directory to be configured")
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	c, err := pkgctx.New()
	if err != nil {
		t.Fatal(err)
	}
	h := c.History()

	h.Push(pkgctx.Snapshot{Label: "before-add", Project: []byte("p1")})
	h.Push(pkgctx.Snapshot{Label: "before-rm", Project: []byte("p2")})

	s, ok := h.Undo()
	if !ok || s.Label != "before-rm" {
		t.Fatalf("expected most recent snapshot on undo, got %+v, ok=%v", s, ok)
	}

	r, ok := h.Redo()
	if !ok || r.Label != "before-rm" {
		t.Fatalf("expected redo to restore the undone snapshot, got %+v, ok=%v", r, ok)
	}

	if h.Len() != 2 {
		t.Fatalf("expected 2 undoable snapshots after redo, got %d", h.Len())
	}
}

func TestUndoDepthBound(t *testing.T) {
	c, err := pkgctx.New()
	if err != nil {
		t.Fatal(err)
	}
	h := c.History()
	for i := 0; i < pkgctx.DefaultUndoDepth+10; i++ {
		h.Push(pkgctx.Snapshot{Label: "x"})
	}
	if h.Len() != pkgctx.DefaultUndoDepth {
		t.Fatalf("expected history bounded to %d, got %d", pkgctx.DefaultUndoDepth, h.Len())
	}
}
