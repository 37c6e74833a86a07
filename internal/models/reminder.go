package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder event kinds derived from the document type.
const (
	EventInstallation = "installation"
	EventDelivery     = "delivery"
	EventDeadline     = "deadline"
)

// ReminderMarker is a derived calendar entry, unique per (entity type, entity id, event kind).
type ReminderMarker struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RelatedEntityType string    `gorm:"size:40;not null;uniqueIndex:idx_reminder_key,priority:1" json:"related_entity_type"`
	RelatedEntityID   uuid.UUID `gorm:"not null;uniqueIndex:idx_reminder_key,priority:2" json:"related_entity_id"`
	EventKind         string    `gorm:"size:20;not null;uniqueIndex:idx_reminder_key,priority:3" json:"event_kind"`

	Title        string    `gorm:"size:255" json:"title"`
	DueDate      time.Time `gorm:"not null;index" json:"due_date"`
	DocumentDate time.Time `json:"document_date"`
	DeliveryDays int       `json:"delivery_days"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (m *ReminderMarker) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
