// Package workflow drives document status changes. Quote-like documents follow
// draft → sent → {accepted | rejected}; every other type accepts any legal status.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/diewo77/go-docflow/internal/activity"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/platform/tracing"
	"github.com/diewo77/go-docflow/internal/status"
)

var ErrInvalidTransition = errors.New("invalid transition")

// DocumentStore is the slice of the document repository the machine needs.
type DocumentStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Document, error)
	Update(ctx context.Context, id uuid.UUID, patch map[string]interface{}) error
}

// edges of the quote flow; a state absent from the map is terminal.
var quoteFlow = map[string][]string{
	status.Draft: {status.Sent},
	status.Sent:  {status.Accepted, status.Rejected},
}

// IsFlowGoverned reports whether t has an ordered approval flow.
func IsFlowGoverned(t models.DocumentType) bool {
	return t == models.TypeQuote || t == models.TypeSpecialQuote
}

// CheckTransition validates moving a document of type t from current to target without side effects.
func CheckTransition(t models.DocumentType, current, target string) error {
	if err := status.Validate(t, target); err != nil {
		return err
	}
	if isLegacy, _ := status.IsLegacy(target); isLegacy {
		return fmt.Errorf("%w: %q is a legacy status", ErrInvalidTransition, target)
	}
	if !IsFlowGoverned(t) {
		return nil
	}
	from, err := status.Canonical(current)
	if err != nil {
		return err
	}
	for _, next := range quoteFlow[from] {
		if next == target {
			return nil
		}
	}
	if len(quoteFlow[from]) == 0 {
		return fmt.Errorf("%w: %q is terminal", ErrInvalidTransition, current)
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current, target)
}

// AllowedTargets lists the statuses doc may move to next.
func AllowedTargets(doc *models.Document) []string {
	if IsFlowGoverned(doc.Type) {
		from, err := status.Canonical(doc.Status)
		if err != nil {
			return nil
		}
		return append([]string(nil), quoteFlow[from]...)
	}
	visible, err := status.VisibleStatuses(doc.Type)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(visible))
	for _, s := range visible {
		if s != doc.Status {
			out = append(out, s)
		}
	}
	return out
}

type Machine struct {
	docs     DocumentStore
	recorder activity.Recorder
	log      *logger.Logger
	now      func() time.Time
}

func NewMachine(docs DocumentStore, recorder activity.Recorder, log *logger.Logger) *Machine {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &Machine{docs: docs, recorder: recorder, log: log.With("service", "WorkflowMachine"), now: time.Now}
}

// RequestTransition moves document id to target. Nothing is written when validation fails.
func (m *Machine) RequestTransition(ctx context.Context, id uuid.UUID, target string) (*models.Document, error) {
	ctx, span := tracing.Tracer().Start(ctx, "workflow.RequestTransition")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id.String()), attribute.String("status.target", target))

	doc, err := m.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(doc.Type, doc.Status, target); err != nil {
		return nil, err
	}
	previous := doc.Status
	if previous == target {
		return doc, nil
	}
	if err := m.docs.Update(ctx, id, map[string]interface{}{"status": target}); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	doc.Status = target

	m.recorder.Record(ctx, activity.Event{
		Kind:       activity.KindStatusChanged,
		EntityType: string(doc.Type),
		EntityID:   doc.ID.String(),
		Field:      "status",
		OldValue:   previous,
		NewValue:   target,
		At:         m.now(),
	})
	m.log.Info("document status changed", "document_id", id, "from", previous, "to", target)
	return doc, nil
}
