package models

import "time"

// ActivityEntry is an audit row appended on document mutations.
type ActivityEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"size:40;index:idx_activity_entity,priority:1" json:"entity_type"`
	EntityID   string    `gorm:"size:36;index:idx_activity_entity,priority:2" json:"entity_id"`
	Action     string    `gorm:"size:40;not null" json:"action"` // ex: "status_changed", "created", "deleted"
	Field      string    `gorm:"size:60" json:"field,omitempty"`
	OldValue   string    `gorm:"size:255" json:"old_value,omitempty"`
	NewValue   string    `gorm:"size:255" json:"new_value,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
