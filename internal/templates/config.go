package templates

import (
	"github.com/diewo77/go-docflow/internal/models"
)

// Column keys understood by the renderer.
const (
	ColDescription     = "description"
	ColQuantity        = "quantity"
	ColUnit            = "unit"
	ColPrice           = "price"
	ColDiscount        = "discount"
	ColDiscountedPrice = "discountedPrice"
	ColVAT             = "vat"
	ColVATAmount       = "vatAmount"
	ColTotal           = "total"
)

// KnownColumns lists every column key in display order.
var KnownColumns = []string{
	ColDescription, ColQuantity, ColUnit, ColPrice, ColDiscount,
	ColDiscountedPrice, ColVAT, ColVATAmount, ColTotal,
}

// Config is the effective rendering configuration: either Structured or RawOverride.
type Config interface {
	isConfig()
}

type Sections struct {
	Header       bool `json:"header"`
	Footer       bool `json:"footer"`
	Signatures   bool `json:"signatures"`
	Stamp        bool `json:"stamp"`
	Certificates bool `json:"certificates"`
}

type Style struct {
	FontSize       float64 `json:"font_size"`
	HeaderFontSize float64 `json:"header_font_size"`
	PrimaryColor   string  `json:"primary_color"`
	AccentColor    string  `json:"accent_color"`
}

// Structured drives the generated layout.
type Structured struct {
	Name          string              `json:"name"`
	DocumentType  models.DocumentType `json:"document_type"`
	Columns       []string            `json:"columns"`
	Sections      Sections            `json:"sections"`
	Style         Style               `json:"style"`
	StampOffsetMM float64             `json:"stamp_offset_mm"`
}

// RawOverride replaces the generated layout with operator-supplied HTML.
type RawOverride struct {
	Name         string              `json:"name"`
	DocumentType models.DocumentType `json:"document_type"`
	HTML         string              `json:"html"`
}

func (Structured) isConfig() {}

func (RawOverride) isConfig() {}

// FromTemplate converts a stored template into its config variant.
func FromTemplate(tpl *models.Template) Config {
	if tpl.IsRawOverride() {
		return RawOverride{Name: tpl.Name, DocumentType: tpl.DocumentType, HTML: tpl.RawHTML}
	}
	return Structured{
		Name:         tpl.Name,
		DocumentType: tpl.DocumentType,
		Columns:      append([]string(nil), tpl.Columns...),
		Sections: Sections{
			Header:       tpl.ShowHeader,
			Footer:       tpl.ShowFooter,
			Signatures:   tpl.ShowSignatures,
			Stamp:        tpl.ShowStamp,
			Certificates: tpl.ShowCertificates,
		},
		Style: Style{
			FontSize:       orDefault(tpl.FontSize, defaultStyle.FontSize),
			HeaderFontSize: orDefault(tpl.HeaderFontSize, defaultStyle.HeaderFontSize),
			PrimaryColor:   orDefaultString(tpl.PrimaryColor, defaultStyle.PrimaryColor),
			AccentColor:    orDefaultString(tpl.AccentColor, defaultStyle.AccentColor),
		},
		StampOffsetMM: tpl.StampOffsetMM,
	}
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
