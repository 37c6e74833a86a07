package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/tracing"
	"github.com/diewo77/go-docflow/internal/render/engine"
)

// OverlayPageCount is the number of preprinted pages of the special quote contract.
const OverlayPageCount = 3

//go:embed overlay_layout.yaml
var defaultOverlayYAML []byte

// AssetSource loads page backgrounds. A missing asset must be reported as ErrMissingLayoutAsset.
type AssetSource interface {
	Image(ctx context.Context, name string) (image.Image, error)
}

type OverlayPage struct {
	Background string `yaml:"background"`
}

type OverlayField struct {
	Key      string  `yaml:"key"`
	Page     int     `yaml:"page"`
	XMM      float64 `yaml:"x_mm"`
	YMM      float64 `yaml:"y_mm"`
	FontSize float64 `yaml:"font_size"`
	WidthMM  float64 `yaml:"width_mm"`
}

// OverlayTable is the static placement table: field key to page and millimetre position.
type OverlayTable struct {
	PageWidthMM  float64        `yaml:"page_width_mm"`
	PageHeightMM float64        `yaml:"page_height_mm"`
	Pages        []OverlayPage  `yaml:"pages"`
	Fields       []OverlayField `yaml:"fields"`
}

// IsOverlay reports whether documents of type t are printed over preprinted pages.
func IsOverlay(t models.DocumentType) bool {
	return t == models.TypeSpecialQuote
}

// ParseOverlayTable decodes and validates a YAML placement table.
func ParseOverlayTable(data []byte) (*OverlayTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("overlay: table is empty")
	}
	var t OverlayTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("overlay: decode table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadOverlayTable reads the table at path, or the embedded default when path is empty.
func LoadOverlayTable(path string) (*OverlayTable, error) {
	if strings.TrimSpace(path) == "" {
		return ParseOverlayTable(defaultOverlayYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("overlay: read %s: %w", path, err)
	}
	t, err := ParseOverlayTable(data)
	if err != nil {
		return nil, fmt.Errorf("overlay: %s: %w", path, err)
	}
	return t, nil
}

func (t *OverlayTable) Validate() error {
	if t.PageWidthMM <= 0 || t.PageHeightMM <= 0 {
		return fmt.Errorf("overlay: page size must be positive")
	}
	if len(t.Pages) != OverlayPageCount {
		return fmt.Errorf("overlay: want %d pages, got %d", OverlayPageCount, len(t.Pages))
	}
	backgrounds := map[string]bool{}
	for i, p := range t.Pages {
		if strings.TrimSpace(p.Background) == "" {
			return fmt.Errorf("overlay: page %d has no background", i+1)
		}
		if backgrounds[p.Background] {
			return fmt.Errorf("overlay: background %q used twice", p.Background)
		}
		backgrounds[p.Background] = true
	}
	keys := map[string]bool{}
	for _, f := range t.Fields {
		if f.Key == "" {
			return fmt.Errorf("overlay: field without key")
		}
		if keys[f.Key] {
			return fmt.Errorf("overlay: field %q declared twice", f.Key)
		}
		keys[f.Key] = true
		if f.Page < 1 || f.Page > len(t.Pages) {
			return fmt.Errorf("overlay: field %q on page %d out of range", f.Key, f.Page)
		}
		if f.FontSize <= 0 {
			return fmt.Errorf("overlay: field %q needs a positive font size", f.Key)
		}
		if f.WidthMM < 0 {
			return fmt.Errorf("overlay: field %q has a negative width", f.Key)
		}
	}
	return nil
}

// Overlay prints doc over the preprinted pages with eng. All backgrounds are loaded before
// anything is drawn, so a missing asset aborts the render without partial output.
func (r *Renderer) Overlay(ctx context.Context, doc *models.Document, eng engine.Engine) (*engine.Artifact, error) {
	ctx, span := tracing.Tracer().Start(ctx, "render.Overlay")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", doc.ID.String()))

	if !IsOverlay(doc.Type) {
		return nil, fmt.Errorf("render: %s documents have no overlay layout", doc.Type)
	}
	if r.overlay == nil {
		return nil, fmt.Errorf("render: no overlay table configured")
	}
	if r.assets == nil {
		return nil, fmt.Errorf("%w: no asset source configured", ErrMissingLayoutAsset)
	}

	backgrounds := make([]image.Image, len(r.overlay.Pages))
	for i, p := range r.overlay.Pages {
		img, err := r.assets.Image(ctx, p.Background)
		if err != nil {
			return nil, fmt.Errorf("page %d background %q: %w", i+1, p.Background, err)
		}
		backgrounds[i] = img
	}

	upm := eng.UnitsPerMM()
	placed := 0
	for i, bg := range backgrounds {
		if err := eng.AddPage(bg, r.overlay.PageWidthMM*upm, r.overlay.PageHeightMM*upm); err != nil {
			return nil, fmt.Errorf("add page %d: %w", i+1, err)
		}
		for _, f := range r.overlay.Fields {
			if f.Page != i+1 {
				continue
			}
			value := strings.TrimSpace(overlayValue(doc, f.Key))
			if value == "" {
				continue
			}
			if err := eng.PlaceText(value, f.XMM*upm, f.YMM*upm, f.WidthMM*upm, f.FontSize); err != nil {
				return nil, fmt.Errorf("place %q: %w", f.Key, err)
			}
			placed++
		}
	}
	span.SetAttributes(attribute.Int("overlay.fields_placed", placed))
	r.log.Debug("overlay rendered", "document_id", doc.ID, "fields", placed)
	return eng.Finish()
}

// overlayValue prefers free-form fields and falls back to the document's own columns.
func overlayValue(doc *models.Document, key string) string {
	if v := doc.Field(key); v != "" {
		return v
	}
	switch key {
	case "number":
		return doc.Number
	case "title":
		return doc.Title
	case "customer_name":
		return doc.CustomerName
	case "customer_address":
		return doc.CustomerAddress
	case "date":
		if doc.Date.IsZero() {
			return ""
		}
		return doc.Date.Format(dateLayout)
	case "delivery_days":
		if doc.DeliveryDays == nil || *doc.DeliveryDays <= 0 {
			return ""
		}
		return strconv.Itoa(*doc.DeliveryDays)
	}
	return ""
}
