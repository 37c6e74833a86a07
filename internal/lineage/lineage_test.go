package lineage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/store"
)

// graph is an in-memory Store; deleted ids behave like soft-deleted rows.
type graph struct {
	docs    map[uuid.UUID]*models.Document
	order   []uuid.UUID
	deleted map[uuid.UUID]bool
}

func newGraph() *graph {
	return &graph{docs: map[uuid.UUID]*models.Document{}, deleted: map[uuid.UUID]bool{}}
}

func (g *graph) add(source *uuid.UUID) uuid.UUID {
	id := uuid.New()
	g.docs[id] = &models.Document{ID: id, Type: models.TypeQuote, SourceDocumentID: source}
	g.order = append(g.order, id)
	return id
}

func (g *graph) link(child, source uuid.UUID) {
	s := source
	g.docs[child].SourceDocumentID = &s
}

func (g *graph) Get(_ context.Context, id uuid.UUID) (*models.Document, error) {
	d, ok := g.docs[id]
	if !ok || g.deleted[id] {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (g *graph) ListChildren(_ context.Context, sourceID uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	for _, id := range g.order {
		d := g.docs[id]
		if g.deleted[id] || d.SourceDocumentID == nil || *d.SourceDocumentID != sourceID {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestAncestorChain(t *testing.T) {
	ctx := context.Background()

	t.Run("no source", func(t *testing.T) {
		g := newGraph()
		root := g.add(nil)
		got, err := NewTracker(g, logger.Nop()).AncestorChain(ctx, root)
		if err != nil || len(got) != 0 {
			t.Fatalf("got %d ancestors, err %v; want none", len(got), err)
		}
	})

	t.Run("three hops oldest first", func(t *testing.T) {
		g := newGraph()
		a := g.add(nil)
		b := g.add(ptr(a))
		c := g.add(ptr(b))
		d := g.add(ptr(c))
		got, err := NewTracker(g, logger.Nop()).AncestorChain(ctx, d)
		if err != nil {
			t.Fatal(err)
		}
		want := []uuid.UUID{a, b, c}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Errorf("ancestor %d = %s, want %s", i, got[i].ID, want[i])
			}
		}
	})

	t.Run("stops at deleted parent", func(t *testing.T) {
		g := newGraph()
		a := g.add(nil)
		b := g.add(ptr(a))
		c := g.add(ptr(b))
		g.deleted[b] = true
		got, err := NewTracker(g, logger.Nop()).AncestorChain(ctx, c)
		if err != nil || len(got) != 0 {
			t.Fatalf("got %d ancestors, err %v; want none", len(got), err)
		}
	})

	t.Run("cycle stops at first revisit", func(t *testing.T) {
		g := newGraph()
		a := g.add(nil)
		b := g.add(ptr(a))
		g.link(a, b)
		got, err := NewTracker(g, logger.Nop()).AncestorChain(ctx, a)
		if !errors.Is(err, ErrTraversalLimitExceeded) {
			t.Fatalf("err = %v, want ErrTraversalLimitExceeded", err)
		}
		if len(got) != 1 || got[0].ID != b {
			t.Fatalf("partial chain = %d docs, want only %s", len(got), b)
		}
	})

	t.Run("long chain capped", func(t *testing.T) {
		g := newGraph()
		prev := g.add(nil)
		for i := 0; i < MaxAncestorHops+1; i++ {
			prev = g.add(ptr(prev))
		}
		leaf := g.add(ptr(prev))
		got, err := NewTracker(g, logger.Nop()).AncestorChain(ctx, leaf)
		if !errors.Is(err, ErrTraversalLimitExceeded) {
			t.Fatalf("err = %v, want ErrTraversalLimitExceeded", err)
		}
		if len(got) != MaxAncestorHops {
			t.Errorf("partial chain len = %d, want %d", len(got), MaxAncestorHops)
		}
		if got[len(got)-1].ID != prev {
			t.Errorf("chain should end with the immediate parent")
		}
	})

	t.Run("exactly max ancestors then deleted", func(t *testing.T) {
		g := newGraph()
		gone := g.add(nil)
		prev := gone
		for i := 0; i < MaxAncestorHops; i++ {
			prev = g.add(ptr(prev))
		}
		leaf := g.add(ptr(prev))
		g.deleted[gone] = true
		tr := NewTracker(g, logger.Nop())
		got, err := tr.AncestorChain(ctx, leaf)
		if err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if len(got) != MaxAncestorHops {
			t.Errorf("chain len = %d, want %d", len(got), MaxAncestorHops)
		}
		view, err := tr.Chain(ctx, leaf)
		if err != nil {
			t.Fatal(err)
		}
		if view.Truncated {
			t.Error("chain ending at a deleted document is not truncated")
		}
	})

	t.Run("missing document", func(t *testing.T) {
		got, err := NewTracker(newGraph(), logger.Nop()).AncestorChain(ctx, uuid.New())
		if err != nil || got != nil {
			t.Fatalf("got %v, %v; want nil, nil", got, err)
		}
	})
}

func TestDescendantSubtree(t *testing.T) {
	ctx := context.Background()

	t.Run("no children", func(t *testing.T) {
		g := newGraph()
		root := g.add(nil)
		got, err := NewTracker(g, logger.Nop()).DescendantSubtree(ctx, root)
		if err != nil || len(got) != 0 {
			t.Fatalf("got %d, err %v; want none", len(got), err)
		}
	})

	t.Run("fan out with grandchildren", func(t *testing.T) {
		g := newGraph()
		root := g.add(nil)
		want := map[uuid.UUID]bool{}
		var children []uuid.UUID
		for i := 0; i < 5; i++ {
			c := g.add(ptr(root))
			children = append(children, c)
			want[c] = true
		}
		want[g.add(ptr(children[0]))] = true
		want[g.add(ptr(children[3]))] = true

		got, err := NewTracker(g, logger.Nop()).DescendantSubtree(ctx, root)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 7 {
			t.Fatalf("len = %d, want 7", len(got))
		}
		seen := map[uuid.UUID]bool{}
		for _, d := range got {
			if seen[d.ID] {
				t.Errorf("duplicate %s", d.ID)
			}
			seen[d.ID] = true
			if !want[d.ID] {
				t.Errorf("unexpected descendant %s", d.ID)
			}
		}
	})

	t.Run("skips deleted branch", func(t *testing.T) {
		g := newGraph()
		root := g.add(nil)
		child := g.add(ptr(root))
		g.add(ptr(child))
		g.deleted[child] = true
		got, err := NewTracker(g, logger.Nop()).DescendantSubtree(ctx, root)
		if err != nil || len(got) != 0 {
			t.Fatalf("got %d, err %v; want none", len(got), err)
		}
	})

	t.Run("cycle returns without duplicates", func(t *testing.T) {
		g := newGraph()
		a := g.add(nil)
		b := g.add(ptr(a))
		g.link(a, b)
		got, err := NewTracker(g, logger.Nop()).DescendantSubtree(ctx, a)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != b {
			t.Errorf("got %v, want only b", got)
		}
	})

	t.Run("node cap", func(t *testing.T) {
		g := newGraph()
		root := g.add(nil)
		prev := root
		for i := 0; i < MaxDescendants+10; i++ {
			prev = g.add(ptr(prev))
		}
		// close the loop back to the root
		g.link(root, prev)
		got, err := NewTracker(g, logger.Nop()).DescendantSubtree(ctx, root)
		if !errors.Is(err, ErrTraversalLimitExceeded) {
			t.Fatalf("err = %v, want ErrTraversalLimitExceeded", err)
		}
		if len(got) != MaxDescendants {
			t.Fatalf("len = %d, want %d", len(got), MaxDescendants)
		}
		seen := map[uuid.UUID]bool{}
		for _, d := range got {
			if seen[d.ID] {
				t.Fatalf("duplicate %s", d.ID)
			}
			seen[d.ID] = true
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	g := newGraph()
	a := g.add(nil)
	b := g.add(ptr(a))
	c := g.add(ptr(b))
	tr := NewTracker(g, logger.Nop())

	view, err := tr.Chain(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if view.Current == nil || view.Current.ID != b {
		t.Fatalf("current = %v, want b", view.Current)
	}
	if len(view.Ancestors) != 1 || view.Ancestors[0].ID != a {
		t.Errorf("ancestors = %v", view.Ancestors)
	}
	if len(view.Descendants) != 1 || view.Descendants[0].ID != c {
		t.Errorf("descendants = %v", view.Descendants)
	}
	if view.Truncated {
		t.Error("unexpected truncation")
	}

	g.deleted[b] = true
	view, err = tr.Chain(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if view.Current != nil || len(view.Ancestors) != 0 || len(view.Descendants) != 0 {
		t.Errorf("deleted document should give an empty view, got %+v", view)
	}
}

func TestChainReportsTruncation(t *testing.T) {
	g := newGraph()
	a := g.add(nil)
	b := g.add(ptr(a))
	g.link(a, b)
	view, err := NewTracker(g, logger.Nop()).Chain(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if !view.Truncated {
		t.Error("cyclic chain should be reported as truncated")
	}
}

func TestCheckLink(t *testing.T) {
	ctx := context.Background()
	g := newGraph()
	a := g.add(nil)
	b := g.add(ptr(a))
	c := g.add(ptr(b))
	other := g.add(nil)
	tr := NewTracker(g, logger.Nop())

	tests := []struct {
		name          string
		child, source uuid.UUID
		wantCycle     bool
	}{
		{"self", a, a, true},
		{"ancestor below descendant", a, c, true},
		{"parent under child", b, c, true},
		{"unrelated", other, c, false},
		{"new leaf", uuid.New(), c, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.CheckLink(ctx, tt.child, tt.source)
			if tt.wantCycle != errors.Is(err, ErrLineageCycle) {
				t.Errorf("CheckLink err = %v, wantCycle %v", err, tt.wantCycle)
			}
		})
	}
}
