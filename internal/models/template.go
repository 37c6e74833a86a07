package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Template is a named bundle of rendering directives scoped to one document type.
// Documents reference templates by ID, so edits apply retroactively to every referencing document.
type Template struct {
	ID        uuid.UUID      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name         string       `gorm:"size:150;not null" json:"name"`
	DocumentType DocumentType `gorm:"size:40;index;not null" json:"document_type"`
	IsDefault    bool         `gorm:"not null;default:false" json:"is_default"`

	ShowHeader       bool `gorm:"not null" json:"show_header"`
	ShowFooter       bool `gorm:"not null" json:"show_footer"`
	ShowSignatures   bool `gorm:"not null" json:"show_signatures"`
	ShowStamp        bool `gorm:"not null" json:"show_stamp"`
	ShowCertificates bool `gorm:"not null" json:"show_certificates"`

	// Columns is the ordered list of table column keys.
	Columns datatypes.JSONSlice[string] `json:"columns"`

	FontSize       float64 `gorm:"not null;default:10" json:"font_size"`
	HeaderFontSize float64 `gorm:"not null;default:14" json:"header_font_size"`
	PrimaryColor   string  `gorm:"size:7" json:"primary_color"`
	AccentColor    string  `gorm:"size:7" json:"accent_color"`

	// StampOffsetMM shifts the delivery-note stamp vertically. Signed, not clamped.
	StampOffsetMM float64 `gorm:"not null;default:0" json:"stamp_offset_mm"`

	// RawHTML, when set, replaces structured rendering entirely.
	RawHTML string `gorm:"type:text" json:"raw_html,omitempty"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsRawOverride reports whether the template bypasses structured rendering.
func (t *Template) IsRawOverride() bool {
	return t.RawHTML != ""
}
