package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/diewo77/go-docflow/internal/activity"
	"github.com/diewo77/go-docflow/internal/calendar"
	"github.com/diewo77/go-docflow/internal/export"
	"github.com/diewo77/go-docflow/internal/lineage"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
	"github.com/diewo77/go-docflow/internal/render/engine"
	"github.com/diewo77/go-docflow/internal/status"
	"github.com/diewo77/go-docflow/internal/store"
	"github.com/diewo77/go-docflow/internal/templates"
	"github.com/diewo77/go-docflow/internal/validation"
	"github.com/diewo77/go-docflow/internal/workflow"
)

var ErrUnsupportedFormat = errors.New("unsupported render format")

// Render formats.
const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
	FormatPNG  = "png"
)

// PDFExporter prints HTML to PDF.
type PDFExporter interface {
	Export(ctx context.Context, html, title string) (*export.Result, error)
}

// Deps are the collaborators of DocumentService. Exporter may be nil.
type Deps struct {
	Documents store.DocumentRepo
	Reminders store.ReminderRepo
	Machine   *workflow.Machine
	Tracker   *lineage.Tracker
	Resolver  *templates.Resolver
	Renderer  *render.Renderer
	Calendar  *calendar.Emitter
	Exporter  PDFExporter
	Recorder  activity.Recorder

	RasterDPI float64
	FontPath  string
}

// DocumentService orchestrates document lifecycle, lineage and rendering for the HTTP layer.
type DocumentService struct {
	Deps
	log *logger.Logger
}

func NewDocumentService(deps Deps, log *logger.Logger) *DocumentService {
	if deps.Recorder == nil {
		deps.Recorder = activity.Nop{}
	}
	if deps.RasterDPI <= 0 {
		deps.RasterDPI = 150
	}
	return &DocumentService{Deps: deps, log: log.With("service", "DocumentService")}
}

type CreateInput struct {
	Type             models.DocumentType `json:"type"`
	Status           string              `json:"status"`
	SourceDocumentID *uuid.UUID          `json:"source_document_id"`
	TemplateID       *uuid.UUID          `json:"template_id"`
	Number           string              `json:"number"`
	Title            string              `json:"title"`
	CustomerName     string              `json:"customer_name"`
	CustomerAddress  string              `json:"customer_address"`
	Date             time.Time           `json:"date"`
	DeliveryDays     *int                `json:"delivery_days"`
	Fields           map[string]any      `json:"fields"`
	Lines            []models.LineItem   `json:"lines"`
}

// Create stores a new document. A document created from another one is checked against the
// lineage graph first, and delivery fields schedule a reminder.
func (s *DocumentService) Create(ctx context.Context, in CreateInput) (*models.Document, error) {
	v := validation.Violations{}
	validation.Required("number", in.Number, v)
	if !in.Type.Valid() {
		v["type"] = "unknown"
		return nil, v.Err()
	}
	if in.Status == "" {
		visible, _ := status.VisibleStatuses(in.Type)
		in.Status = visible[0]
	}
	if err := status.Validate(in.Type, in.Status); err != nil {
		v["status"] = "unknown"
	} else if legacy, _ := status.IsLegacy(in.Status); legacy {
		v["status"] = "legacy"
	}
	if in.DeliveryDays != nil && *in.DeliveryDays < 0 {
		v["delivery_days"] = "must_not_be_negative"
	}
	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		validation.PositiveFloat(field+".quantity", l.Quantity, v)
		validation.RangeFloat(field+".discount", l.Discount, 0, 100, v)
		validation.RangeFloat(field+".vat_rate", l.VATRate, 0, 1, v)
	}

	doc := &models.Document{
		ID:               uuid.New(),
		Type:             in.Type,
		Status:           in.Status,
		SourceDocumentID: in.SourceDocumentID,
		TemplateID:       in.TemplateID,
		Number:           strings.TrimSpace(in.Number),
		Title:            in.Title,
		CustomerName:     in.CustomerName,
		CustomerAddress:  in.CustomerAddress,
		Date:             in.Date,
		DeliveryDays:     in.DeliveryDays,
		Fields:           datatypes.JSONMap(in.Fields),
		Lines:            datatypes.JSONSlice[models.LineItem](in.Lines),
	}
	if doc.Date.IsZero() {
		doc.Date = time.Now()
	}
	if in.SourceDocumentID != nil {
		if err := s.checkSource(ctx, doc.ID, *in.SourceDocumentID, v); err != nil {
			return nil, err
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.Documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	ev := activity.Event{Kind: activity.KindCreated, EntityType: string(doc.Type), EntityID: doc.ID.String(), NewValue: doc.Status, At: time.Now()}
	if doc.SourceDocumentID != nil {
		ev.Kind = activity.KindDerived
		ev.Field = "source_document_id"
		ev.NewValue = doc.SourceDocumentID.String()
	}
	s.Recorder.Record(ctx, ev)
	s.emitReminder(ctx, doc)

	s.log.Info("document created", "document_id", doc.ID, "type", doc.Type, "source", doc.SourceDocumentID)
	return doc, nil
}

// checkSource adds a violation when the source is missing, and returns lineage.ErrLineageCycle
// when linking would close a loop.
func (s *DocumentService) checkSource(ctx context.Context, id, sourceID uuid.UUID, v validation.Violations) error {
	if _, err := s.Documents.Get(ctx, sourceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			v["source_document_id"] = "not_found"
			return nil
		}
		return err
	}
	return s.Tracker.CheckLink(ctx, id, sourceID)
}

func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return s.Documents.Get(ctx, id)
}

func (s *DocumentService) List(ctx context.Context, docType models.DocumentType, limit, offset int) ([]models.Document, int64, error) {
	if docType != "" && !docType.Valid() {
		return nil, 0, validation.Violations{"type": "unknown"}.Err()
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Documents.List(ctx, docType, limit, offset)
}

// SetSource re-links id under sourceID, or detaches it when sourceID is nil.
func (s *DocumentService) SetSource(ctx context.Context, id uuid.UUID, sourceID *uuid.UUID) (*models.Document, error) {
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sourceID != nil {
		v := validation.Violations{}
		if err := s.checkSource(ctx, id, *sourceID, v); err != nil {
			return nil, err
		}
		if err := v.Err(); err != nil {
			return nil, err
		}
	}
	if err := s.Documents.Update(ctx, id, map[string]interface{}{"source_document_id": sourceID}); err != nil {
		return nil, err
	}
	previous := ""
	if doc.SourceDocumentID != nil {
		previous = doc.SourceDocumentID.String()
	}
	next := ""
	if sourceID != nil {
		next = sourceID.String()
	}
	doc.SourceDocumentID = sourceID
	s.Recorder.Record(ctx, activity.Event{
		Kind:       activity.KindDerived,
		EntityType: string(doc.Type),
		EntityID:   id.String(),
		Field:      "source_document_id",
		OldValue:   previous,
		NewValue:   next,
		At:         time.Now(),
	})
	return doc, nil
}

func (s *DocumentService) ChangeStatus(ctx context.Context, id uuid.UUID, target string) (*models.Document, error) {
	return s.Machine.RequestTransition(ctx, id, target)
}

type DeliveryInput struct {
	DeliveryDays *int      `json:"delivery_days"`
	Date         time.Time `json:"date"`
}

// UpdateDelivery changes the delivery fields and refreshes the reminder. The marker is nil when
// no delivery delay is set or the reminder could not be stored.
func (s *DocumentService) UpdateDelivery(ctx context.Context, id uuid.UUID, in DeliveryInput) (*models.Document, *models.ReminderMarker, error) {
	if in.DeliveryDays != nil && *in.DeliveryDays < 0 {
		return nil, nil, validation.Violations{"delivery_days": "must_not_be_negative"}.Err()
	}
	patch := map[string]interface{}{"delivery_days": in.DeliveryDays}
	if !in.Date.IsZero() {
		patch["date"] = in.Date
	}
	if err := s.Documents.Update(ctx, id, patch); err != nil {
		return nil, nil, err
	}
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, s.emitReminder(ctx, doc), nil
}

func (s *DocumentService) ListReminders(ctx context.Context, id uuid.UUID) ([]models.ReminderMarker, error) {
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Reminders.ListForEntity(ctx, string(doc.Type), doc.ID)
}

// Delete soft-deletes id; it disappears from lineage views and cascades.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Documents.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.Recorder.Record(ctx, activity.Event{Kind: activity.KindDeleted, EntityType: string(doc.Type), EntityID: id.String(), At: time.Now()})
	s.log.Info("document deleted", "document_id", id)
	return nil
}

func (s *DocumentService) Chain(ctx context.Context, id uuid.UUID) (lineage.Chain, error) {
	return s.Tracker.Chain(ctx, id)
}

// ResolveTemplate reports which configuration document id renders with.
func (s *DocumentService) ResolveTemplate(ctx context.Context, id uuid.UUID) (templates.Resolution, error) {
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return templates.Resolution{}, err
	}
	return s.Resolver.Resolve(ctx, doc.TemplateID, doc.Type)
}

func (s *DocumentService) Layout(ctx context.Context, id uuid.UUID) (*render.Layout, error) {
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.layout(ctx, doc)
}

func (s *DocumentService) layout(ctx context.Context, doc *models.Document) (*render.Layout, error) {
	res, err := s.Resolver.Resolve(ctx, doc.TemplateID, doc.Type)
	if err != nil {
		return nil, err
	}
	return s.Renderer.Layout(res, doc)
}

// Output is a rendered document ready to be served.
type Output struct {
	Data     []byte
	MimeType string
	Filename string
}

// Render produces document id in format. Special quotes print PDF and PNG through the overlay
// table; page selects the PNG page (1-based).
func (s *DocumentService) Render(ctx context.Context, id uuid.UUID, format string, page int) (*Output, error) {
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := export.SanitizeFilename(string(doc.Type) + " " + doc.Number)

	switch {
	case format == FormatHTML || format == "":
		l, err := s.layout(ctx, doc)
		if err != nil {
			return nil, err
		}
		html, err := s.Renderer.HTML(l)
		if err != nil {
			return nil, err
		}
		return &Output{Data: html, MimeType: "text/html; charset=utf-8", Filename: name + ".html"}, nil

	case render.IsOverlay(doc.Type) && (format == FormatPDF || format == FormatPNG):
		var eng engine.Engine
		if format == FormatPDF {
			eng = engine.NewPDF()
		} else {
			raster, err := engine.NewRaster(s.RasterDPI, s.FontPath)
			if err != nil {
				return nil, err
			}
			eng = raster
		}
		art, err := s.Renderer.Overlay(ctx, doc, eng)
		if err != nil {
			return nil, err
		}
		if format == FormatPDF {
			return &Output{Data: art.Parts[0], MimeType: art.MimeType, Filename: name + ".pdf"}, nil
		}
		if page < 1 || page > len(art.Parts) {
			return nil, validation.Violations{"page": "out_of_range"}.Err()
		}
		return &Output{Data: art.Parts[page-1], MimeType: art.MimeType, Filename: fmt.Sprintf("%s-p%d.png", name, page)}, nil

	case format == FormatPDF:
		if s.Exporter == nil {
			return nil, fmt.Errorf("%w: no exporter configured", export.ErrPDFDependencyMissing)
		}
		l, err := s.layout(ctx, doc)
		if err != nil {
			return nil, err
		}
		html, err := s.Renderer.HTML(l)
		if err != nil {
			return nil, err
		}
		res, err := s.Exporter.Export(ctx, string(html), name)
		if err != nil {
			return nil, err
		}
		return &Output{Data: res.Data, MimeType: res.MimeType, Filename: res.Filename}, nil
	}
	return nil, fmt.Errorf("%w: %q for %s", ErrUnsupportedFormat, format, doc.Type)
}

// emitReminder never fails the caller: the document change stands and the error is logged.
func (s *DocumentService) emitReminder(ctx context.Context, doc *models.Document) *models.ReminderMarker {
	if s.Calendar == nil {
		return nil
	}
	marker, err := s.Calendar.Emit(ctx, reminderInput(doc))
	if err != nil {
		s.log.Error("reminder not scheduled", "document_id", doc.ID, "error", err)
		return nil
	}
	return marker
}

func reminderInput(doc *models.Document) calendar.Input {
	return calendar.Input{
		DocumentID:   doc.ID,
		DocumentType: doc.Type,
		Number:       doc.Number,
		DeliveryDays: doc.DeliveryDays,
		Date:         doc.Date,
	}
}
