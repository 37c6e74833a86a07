// Package render turns a resolved template configuration and a document into a layout
// (columns, rows, sections, stamp position) or, for special quotes, into absolutely
// positioned text over fixed page backgrounds.
package render

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/templates"
)

var ErrMissingLayoutAsset = errors.New("missing layout asset")

// Base position of the delivery-note stamp, in millimetres from the top-left corner.
const (
	StampBaseXMM = 140.0
	StampBaseYMM = 250.0
)

var columnLabels = map[string]string{
	templates.ColDescription:     "Description",
	templates.ColQuantity:        "Qty",
	templates.ColUnit:            "Unit",
	templates.ColPrice:           "Unit price",
	templates.ColDiscount:        "Discount",
	templates.ColDiscountedPrice: "Net price",
	templates.ColVAT:             "VAT",
	templates.ColVATAmount:       "VAT amount",
	templates.ColTotal:           "Total",
}

var monetaryColumns = map[string]bool{
	templates.ColPrice:           true,
	templates.ColDiscount:        true,
	templates.ColDiscountedPrice: true,
	templates.ColVAT:             true,
	templates.ColVATAmount:       true,
	templates.ColTotal:           true,
}

// FilterColumns drops price, discount and VAT columns for document types that never show
// amounts. Template settings cannot override this.
func FilterColumns(t models.DocumentType, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !t.IsMonetary() && monetaryColumns[c] {
			continue
		}
		out = append(out, c)
	}
	return out
}

type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Position struct {
	XMM float64 `json:"x_mm"`
	YMM float64 `json:"y_mm"`
}

type Header struct {
	Number          string `json:"number"`
	Title           string `json:"title,omitempty"`
	Date            string `json:"date,omitempty"`
	CustomerName    string `json:"customer_name,omitempty"`
	CustomerAddress string `json:"customer_address,omitempty"`
}

type Totals struct {
	TotalHT   float64 `json:"total_ht"`
	VATAmount float64 `json:"vat_amount"`
	Total     float64 `json:"total"`
}

// Layout is the page description handed to the HTML renderer or to API clients.
// A raw override carries only RawHTML; every structured field stays empty.
type Layout struct {
	DocumentType models.DocumentType `json:"document_type"`
	Source       templates.Source    `json:"source"`
	TemplateName string              `json:"template_name"`
	Raw          bool                `json:"raw"`
	RawHTML      string              `json:"raw_html,omitempty"`

	Header   Header             `json:"header"`
	Columns  []Column           `json:"columns,omitempty"`
	Rows     [][]string         `json:"rows,omitempty"`
	Totals   *Totals            `json:"totals,omitempty"`
	Sections templates.Sections `json:"sections"`
	Style    templates.Style    `json:"style"`
	Stamp    *Position          `json:"stamp,omitempty"`
	Overlay  bool               `json:"overlay"`
}

// Renderer builds layouts and overlay artifacts.
type Renderer struct {
	sanitizer Sanitizer
	overlay   *OverlayTable
	assets    AssetSource
	log       *logger.Logger
}

func NewRenderer(sanitizer Sanitizer, overlay *OverlayTable, assets AssetSource, log *logger.Logger) *Renderer {
	if sanitizer == nil {
		sanitizer = NewSanitizer()
	}
	return &Renderer{sanitizer: sanitizer, overlay: overlay, assets: assets, log: log.With("service", "Renderer")}
}

// Layout lays out doc with the resolved configuration.
func (r *Renderer) Layout(res templates.Resolution, doc *models.Document) (*Layout, error) {
	out := &Layout{
		DocumentType: doc.Type,
		Source:       res.Source,
		Overlay:      IsOverlay(doc.Type),
	}
	switch cfg := res.Config.(type) {
	case templates.RawOverride:
		out.TemplateName = cfg.Name
		out.Raw = true
		out.RawHTML = r.sanitizer.Sanitize(cfg.HTML)
		return out, nil
	case templates.Structured:
		out.TemplateName = cfg.Name
		out.Header = headerFor(doc)
		out.Sections = cfg.Sections
		out.Style = cfg.Style
		for _, key := range FilterColumns(doc.Type, cfg.Columns) {
			label, ok := columnLabels[key]
			if !ok {
				r.log.Debug("unknown column skipped", "column", key, "template", cfg.Name)
				continue
			}
			out.Columns = append(out.Columns, Column{Key: key, Label: label})
		}
		out.Rows = rowsFor(doc.Lines, out.Columns)
		if doc.Type.IsMonetary() {
			out.Totals = totalsFor(doc.Lines)
		}
		if cfg.Sections.Stamp {
			out.Stamp = stampPosition(doc.Type, cfg.StampOffsetMM)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("render: unsupported configuration %T", res.Config)
	}
}

// stampPosition applies the signed offset to delivery notes only. The offset is not clamped.
func stampPosition(t models.DocumentType, offsetMM float64) *Position {
	p := &Position{XMM: StampBaseXMM, YMM: StampBaseYMM}
	if t == models.TypeDeliveryNote {
		p.YMM += offsetMM
	}
	return p
}

func headerFor(doc *models.Document) Header {
	h := Header{
		Number:          doc.Number,
		Title:           doc.Title,
		CustomerName:    doc.CustomerName,
		CustomerAddress: doc.CustomerAddress,
	}
	if !doc.Date.IsZero() {
		h.Date = doc.Date.Format(dateLayout)
	}
	return h
}

func rowsFor(lines []models.LineItem, cols []Column) [][]string {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(l, c.Key)
		}
		rows = append(rows, row)
	}
	return rows
}

func cell(l models.LineItem, key string) string {
	switch key {
	case templates.ColDescription:
		return l.Description
	case templates.ColQuantity:
		return strconv.FormatFloat(l.Quantity, 'f', -1, 64)
	case templates.ColUnit:
		return l.Unit
	case templates.ColPrice:
		return money(l.UnitPrice)
	case templates.ColDiscount:
		return percent(l.Discount)
	case templates.ColDiscountedPrice:
		return money(l.DiscountedPrice())
	case templates.ColVAT:
		return percent(l.VATRate * 100)
	case templates.ColVATAmount:
		return money(l.VATAmount())
	case templates.ColTotal:
		return money(l.Total())
	}
	return ""
}

func totalsFor(lines []models.LineItem) *Totals {
	t := &Totals{}
	for _, l := range lines {
		t.TotalHT += l.TotalHT()
		t.VATAmount += l.VATAmount()
	}
	t.Total = t.TotalHT + t.VATAmount
	return t
}

const dateLayout = "02/01/2006"

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func percent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "%"
}
