// Package activity provides the fire-and-forget audit and notification sinks fed by document
// mutations. Recorders never return errors to the caller; failures are logged.
package activity

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
)

// Event kinds.
const (
	KindStatusChanged   = "status_changed"
	KindCreated         = "created"
	KindDerived         = "derived"
	KindDeleted         = "deleted"
	KindDefaultTemplate = "default_template_set"
)

// Event describes a mutation worth auditing or broadcasting.
type Event struct {
	Kind       string    `json:"kind"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Field      string    `json:"field,omitempty"`
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	At         time.Time `json:"at"`
}

type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

// Fanout forwards each event to every recorder in order.
type Fanout []Recorder

func (f Fanout) Record(ctx context.Context, ev Event) {
	for _, r := range f {
		if r != nil {
			r.Record(ctx, ev)
		}
	}
}

// DBRecorder appends events to the activity_entries table.
type DBRecorder struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDBRecorder(db *gorm.DB, log *logger.Logger) *DBRecorder {
	return &DBRecorder{db: db, log: log.With("recorder", "db")}
}

func (r *DBRecorder) Record(ctx context.Context, ev Event) {
	entry := models.ActivityEntry{
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Action:     ev.Kind,
		Field:      ev.Field,
		OldValue:   ev.OldValue,
		NewValue:   ev.NewValue,
		CreatedAt:  ev.At,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.log.Warn("activity entry not recorded", "kind", ev.Kind, "entity_id", ev.EntityID, "error", err)
	}
}
