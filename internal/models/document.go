package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentType is the closed set of business document categories.
// TypeSpecialQuote is the specialty quote printed as an overlay contract on preprinted pages.
type DocumentType string

const (
	TypeQuote             DocumentType = "quote"
	TypeContract          DocumentType = "contract"
	TypeDeliveryNote      DocumentType = "delivery_note"
	TypeInstallationOrder DocumentType = "installation_order"
	TypeInvoice           DocumentType = "invoice"
	TypeComplaint         DocumentType = "complaint"
	TypeSpecialQuote      DocumentType = "special_quote"
)

// DocumentTypes lists every known type in a stable order.
var DocumentTypes = []DocumentType{
	TypeQuote,
	TypeContract,
	TypeDeliveryNote,
	TypeInstallationOrder,
	TypeInvoice,
	TypeComplaint,
	TypeSpecialQuote,
}

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsMonetary is false for documents that never show prices (delivery notes, installation orders).
func (t DocumentType) IsMonetary() bool {
	return t != TypeDeliveryNote && t != TypeInstallationOrder
}

// Document is a quote, contract, delivery note, installation order, invoice or complaint record.
type Document struct {
	ID        uuid.UUID      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Type   DocumentType `gorm:"size:40;index;not null" json:"type"`
	Status string       `gorm:"size:40;not null" json:"status"`

	// SourceDocumentID is the document this one was derived from (weak reference).
	SourceDocumentID *uuid.UUID `gorm:"index" json:"source_document_id,omitempty"`

	// TemplateID selects a template explicitly; nil means the type default.
	TemplateID *uuid.UUID `gorm:"index" json:"template_id,omitempty"`

	Number          string    `gorm:"size:50" json:"number"`
	Title           string    `gorm:"size:255" json:"title,omitempty"`
	CustomerName    string    `gorm:"size:255" json:"customer_name,omitempty"`
	CustomerAddress string    `gorm:"type:text" json:"customer_address,omitempty"`
	Date            time.Time `json:"date"`
	DeliveryDays    *int      `json:"delivery_days,omitempty"`

	// Fields carries free-form values, e.g. the entries placed on overlay pages.
	Fields datatypes.JSONMap             `json:"fields,omitempty"`
	Lines  datatypes.JSONSlice[LineItem] `json:"lines,omitempty"`
}

// LineItem is a table row of a structured layout.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount,omitempty"` // percent, 0..100
	VATRate     float64 `json:"vat_rate"`          // 0..1
}

// DiscountedPrice is the unit price after the line discount.
func (l LineItem) DiscountedPrice() float64 {
	if l.Discount <= 0 || l.Discount > 100 {
		return l.UnitPrice
	}
	return l.UnitPrice * (1 - l.Discount/100)
}

// TotalHT calculates the line total excluding VAT.
func (l LineItem) TotalHT() float64 {
	return l.Quantity * l.DiscountedPrice()
}

// VATAmount calculates the VAT amount for this line.
func (l LineItem) VATAmount() float64 {
	return l.TotalHT() * l.VATRate
}

// Total calculates the line total including VAT.
func (l LineItem) Total() float64 {
	return l.TotalHT() + l.VATAmount()
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Field returns the string form of a free-form field, or "" when absent.
func (d *Document) Field(key string) string {
	if d.Fields == nil {
		return ""
	}
	v, ok := d.Fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return toString(t)
	}
}
