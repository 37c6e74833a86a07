// Package lineage walks the derivation graph formed by Document.SourceDocumentID.
// The graph may contain cycles from corrupted data, so every traversal is bounded.
package lineage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/platform/tracing"
	"github.com/diewo77/go-docflow/internal/store"
)

const (
	MaxAncestorHops  = 10
	MaxDescendants   = 50
	maxCheckLinkHops = 4 * MaxAncestorHops
)

var (
	// ErrTraversalLimitExceeded is informational: the partial result is returned alongside it.
	ErrTraversalLimitExceeded = errors.New("lineage traversal limit exceeded")
	ErrLineageCycle           = errors.New("lineage cycle")
)

// Store is what the tracker needs from the document repository. Both calls must hide soft-deleted rows.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListChildren(ctx context.Context, sourceID uuid.UUID) ([]models.Document, error)
}

// Chain is the presentation view of a document's lineage.
type Chain struct {
	Ancestors   []models.Document `json:"ancestors"`
	Current     *models.Document  `json:"current"`
	Descendants []models.Document `json:"descendants"`
	Truncated   bool              `json:"truncated"`
}

type Tracker struct {
	docs Store
	log  *logger.Logger
}

func NewTracker(docs Store, log *logger.Logger) *Tracker {
	return &Tracker{docs: docs, log: log.With("service", "LineageTracker")}
}

// get returns (nil, nil) for a missing or soft-deleted document.
func (t *Tracker) get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := t.docs.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// AncestorChain returns the ancestors of id ordered oldest first, ending with the immediate parent.
func (t *Tracker) AncestorChain(ctx context.Context, id uuid.UUID) ([]models.Document, error) {
	ctx, span := tracing.Tracer().Start(ctx, "lineage.AncestorChain")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id.String()))

	doc, err := t.get(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}

	var chain []models.Document
	seen := map[uuid.UUID]bool{id: true}
	next := doc.SourceDocumentID
	for next != nil {
		if seen[*next] {
			reverse(chain)
			return chain, fmt.Errorf("%w: ancestors of %s loop back to %s", ErrTraversalLimitExceeded, id, *next)
		}
		parent, err := t.get(ctx, *next)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		// the cap applies only once a further live ancestor exists
		if len(chain) == MaxAncestorHops {
			reverse(chain)
			return chain, fmt.Errorf("%w: more than %d ancestors of %s", ErrTraversalLimitExceeded, MaxAncestorHops, id)
		}
		seen[parent.ID] = true
		chain = append(chain, *parent)
		next = parent.SourceDocumentID
	}
	reverse(chain)
	return chain, nil
}

// DescendantSubtree returns every non-deleted document reachable through child links, in BFS discovery order.
func (t *Tracker) DescendantSubtree(ctx context.Context, id uuid.UUID) ([]models.Document, error) {
	ctx, span := tracing.Tracer().Start(ctx, "lineage.DescendantSubtree")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id.String()))

	visited := map[uuid.UUID]bool{id: true}
	queue := []uuid.UUID{id}
	var out []models.Document

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := t.docs.ListChildren(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			if len(out) == MaxDescendants {
				return out, fmt.Errorf("%w: more than %d descendants of %s", ErrTraversalLimitExceeded, MaxDescendants, id)
			}
			visited[child.ID] = true
			out = append(out, child)
			queue = append(queue, child.ID)
		}
	}
	return out, nil
}

// Chain combines both traversals. Limit conditions are logged and reported through Truncated.
func (t *Tracker) Chain(ctx context.Context, id uuid.UUID) (Chain, error) {
	current, err := t.get(ctx, id)
	if err != nil {
		return Chain{}, err
	}
	view := Chain{Current: current, Ancestors: []models.Document{}, Descendants: []models.Document{}}
	if current == nil {
		return view, nil
	}

	ancestors, err := t.AncestorChain(ctx, id)
	if err != nil && !errors.Is(err, ErrTraversalLimitExceeded) {
		return Chain{}, err
	}
	if err != nil {
		view.Truncated = true
		t.log.Warn("ancestor chain truncated", "document_id", id, "error", err)
	}
	if ancestors != nil {
		view.Ancestors = ancestors
	}

	descendants, err := t.DescendantSubtree(ctx, id)
	if err != nil && !errors.Is(err, ErrTraversalLimitExceeded) {
		return Chain{}, err
	}
	if err != nil {
		view.Truncated = true
		t.log.Warn("descendant subtree truncated", "document_id", id, "error", err)
	}
	if descendants != nil {
		view.Descendants = descendants
	}
	return view, nil
}

// CheckLink fails with ErrLineageCycle when making sourceID the parent of childID would close a loop.
func (t *Tracker) CheckLink(ctx context.Context, childID, sourceID uuid.UUID) error {
	if childID == sourceID {
		return fmt.Errorf("%w: %s cannot derive from itself", ErrLineageCycle, childID)
	}
	seen := map[uuid.UUID]bool{}
	next := &sourceID
	for hops := 0; next != nil && hops < maxCheckLinkHops; hops++ {
		if *next == childID {
			return fmt.Errorf("%w: %s is an ancestor of %s", ErrLineageCycle, childID, sourceID)
		}
		if seen[*next] {
			// pre-existing loop above the source; it does not involve childID
			return nil
		}
		seen[*next] = true
		doc, err := t.get(ctx, *next)
		if err != nil {
			return err
		}
		if doc == nil {
			return nil
		}
		next = doc.SourceDocumentID
	}
	return nil
}

func reverse(docs []models.Document) {
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
}
