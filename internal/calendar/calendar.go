// Package calendar derives follow-up reminders from a document's delivery fields.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
)

type Store interface {
	Upsert(ctx context.Context, m *models.ReminderMarker) (*models.ReminderMarker, error)
}

type Input struct {
	DocumentID   uuid.UUID
	DocumentType models.DocumentType
	Number       string
	DeliveryDays *int
	Date         time.Time
}

// EventKindFor maps a document type to the reminder it produces.
func EventKindFor(t models.DocumentType) string {
	switch t {
	case models.TypeInstallationOrder:
		return models.EventInstallation
	case models.TypeDeliveryNote:
		return models.EventDelivery
	default:
		return models.EventDeadline
	}
}

type Emitter struct {
	reminders Store
	log       *logger.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewEmitter builds an emitter computing "today" in loc (UTC when nil).
func NewEmitter(reminders Store, loc *time.Location, log *logger.Logger) *Emitter {
	if loc == nil {
		loc = time.UTC
	}
	return &Emitter{reminders: reminders, log: log.With("service", "CalendarEmitter"), loc: loc, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	e.now = now
	return e
}

// Emit upserts the reminder of in. Nothing is produced when DeliveryDays is absent or not positive.
func (e *Emitter) Emit(ctx context.Context, in Input) (*models.ReminderMarker, error) {
	if in.DeliveryDays == nil || *in.DeliveryDays <= 0 {
		return nil, nil
	}
	days := *in.DeliveryDays
	y, m, d := e.now().In(e.loc).Date()
	due := time.Date(y, m, d+days, 0, 0, 0, 0, e.loc)

	kind := EventKindFor(in.DocumentType)
	marker := &models.ReminderMarker{
		RelatedEntityType: string(in.DocumentType),
		RelatedEntityID:   in.DocumentID,
		EventKind:         kind,
		Title:             title(kind, in.Number),
		DueDate:           due,
		DocumentDate:      in.Date,
		DeliveryDays:      days,
	}
	stored, err := e.reminders.Upsert(ctx, marker)
	if err != nil {
		return nil, fmt.Errorf("upsert reminder: %w", err)
	}
	e.log.Debug("reminder upserted", "document_id", in.DocumentID, "kind", kind, "due", due.Format("2006-01-02"))
	return stored, nil
}

func title(kind, number string) string {
	label := strings.ToUpper(kind[:1]) + kind[1:]
	if number == "" {
		return label
	}
	return label + " " + number
}
