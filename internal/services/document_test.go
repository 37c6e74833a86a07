package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-docflow/internal/calendar"
	"github.com/diewo77/go-docflow/internal/export"
	"github.com/diewo77/go-docflow/internal/lineage"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
	"github.com/diewo77/go-docflow/internal/status"
	"github.com/diewo77/go-docflow/internal/store"
	"github.com/diewo77/go-docflow/internal/templates"
	"github.com/diewo77/go-docflow/internal/validation"
	"github.com/diewo77/go-docflow/internal/workflow"
)

type memAssets map[string]image.Image

func (m memAssets) Image(_ context.Context, name string) (image.Image, error) {
	img, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", render.ErrMissingLayoutAsset, name)
	}
	return img, nil
}

type fakeExporter struct{ html string }

func (f *fakeExporter) Export(_ context.Context, html, title string) (*export.Result, error) {
	f.html = html
	return &export.Result{Data: []byte("%PDF-fake"), Filename: title + ".pdf", MimeType: "application/pdf"}, nil
}

func setupService(t *testing.T, exporter PDFExporter) *DocumentService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Document{}, &models.Template{}, &models.ReminderMarker{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logger.Nop()
	docs := store.NewDocumentRepo(db, log)
	reminders := store.NewReminderRepo(db, log)

	table, err := render.LoadOverlayTable("")
	if err != nil {
		t.Fatal(err)
	}
	assets := memAssets{}
	for _, p := range table.Pages {
		assets[p.Background] = image.NewRGBA(image.Rect(0, 0, 10, 14))
	}
	clock := func() time.Time { return time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC) }

	return NewDocumentService(Deps{
		Documents: docs,
		Reminders: reminders,
		Machine:   workflow.NewMachine(docs, nil, log),
		Tracker:   lineage.NewTracker(docs, log),
		Resolver:  templates.NewResolver(store.NewTemplateRepo(db, log), log),
		Renderer:  render.NewRenderer(nil, table, assets, log),
		Calendar:  calendar.NewEmitter(reminders, time.UTC, log).WithClock(clock),
		Exporter:  exporter,
		RasterDPI: 20,
	}, log)
}

func intPtr(v int) *int { return &v }

func TestCreateDefaultsToFirstVisibleStatus(t *testing.T) {
	svc := setupService(t, nil)
	doc, err := svc.Create(context.Background(), CreateInput{Type: models.TypeComplaint, Number: "C-1"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != status.Open {
		t.Errorf("status = %q, want %q", doc.Status, status.Open)
	}
	if doc.Date.IsZero() {
		t.Error("date not defaulted")
	}
}

func TestCreateValidation(t *testing.T) {
	svc := setupService(t, nil)
	missing := uuid.New()
	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"unknown type", CreateInput{Type: "memo", Number: "M-1"}, "type"},
		{"no number", CreateInput{Type: models.TypeQuote}, "number"},
		{"illegal status", CreateInput{Type: models.TypeQuote, Number: "Q-1", Status: status.Paid}, "status"},
		{"legacy status", CreateInput{Type: models.TypeQuote, Number: "Q-1", Status: status.LegacyDeclined}, "status"},
		{"negative delivery", CreateInput{Type: models.TypeDeliveryNote, Number: "D-1", DeliveryDays: intPtr(-1)}, "delivery_days"},
		{"missing source", CreateInput{Type: models.TypeContract, Number: "K-1", SourceDocumentID: &missing}, "source_document_id"},
		{"zero quantity", CreateInput{Type: models.TypeInvoice, Number: "F-1", Lines: []models.LineItem{{Description: "Door", Quantity: 0}}}, "lines[0].quantity"},
		{"vat rate as percent", CreateInput{Type: models.TypeInvoice, Number: "F-1", Lines: []models.LineItem{{Description: "Door", Quantity: 1, VATRate: 20}}}, "lines[0].vat_rate"},
	}
	for _, tt := range tests {
		_, err := svc.Create(context.Background(), tt.in)
		var verr *validation.Error
		if !errors.As(err, &verr) || verr.Violations[tt.field] == "" {
			t.Errorf("%s: err = %v, want violation on %s", tt.name, err, tt.field)
		}
	}
}

func TestCreateDerivedAndChain(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)

	quote, err := svc.Create(ctx, CreateInput{Type: models.TypeQuote, Number: "Q-1"})
	if err != nil {
		t.Fatal(err)
	}
	contract, err := svc.Create(ctx, CreateInput{Type: models.TypeContract, Number: "K-1", SourceDocumentID: &quote.ID})
	if err != nil {
		t.Fatal(err)
	}
	invoice, err := svc.Create(ctx, CreateInput{Type: models.TypeInvoice, Number: "F-1", SourceDocumentID: &contract.ID})
	if err != nil {
		t.Fatal(err)
	}

	chain, err := svc.Chain(ctx, contract.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain.Ancestors) != 1 || chain.Ancestors[0].ID != quote.ID {
		t.Errorf("ancestors = %+v", chain.Ancestors)
	}
	if len(chain.Descendants) != 1 || chain.Descendants[0].ID != invoice.ID {
		t.Errorf("descendants = %+v", chain.Descendants)
	}

	if _, err := svc.SetSource(ctx, quote.ID, &invoice.ID); !errors.Is(err, lineage.ErrLineageCycle) {
		t.Errorf("closing the loop: err = %v, want ErrLineageCycle", err)
	}
	if _, err := svc.SetSource(ctx, invoice.ID, nil); err != nil {
		t.Fatal(err)
	}
	chain, err = svc.Chain(ctx, contract.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain.Descendants) != 0 {
		t.Errorf("detached invoice still listed: %+v", chain.Descendants)
	}
}

func TestDeleteHidesFromChain(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)
	quote, _ := svc.Create(ctx, CreateInput{Type: models.TypeQuote, Number: "Q-1"})
	contract, err := svc.Create(ctx, CreateInput{Type: models.TypeContract, Number: "K-1", SourceDocumentID: &quote.ID})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, quote.ID); err != nil {
		t.Fatal(err)
	}
	chain, err := svc.Chain(ctx, contract.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain.Ancestors) != 0 {
		t.Errorf("deleted quote still an ancestor: %+v", chain.Ancestors)
	}
	if err := svc.Delete(ctx, quote.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestChangeStatusFollowsQuoteFlow(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)
	quote, _ := svc.Create(ctx, CreateInput{Type: models.TypeQuote, Number: "Q-1"})

	if _, err := svc.ChangeStatus(ctx, quote.ID, status.Accepted); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("draft -> accepted: err = %v", err)
	}
	doc, err := svc.ChangeStatus(ctx, quote.ID, status.Sent)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != status.Sent {
		t.Errorf("status = %q", doc.Status)
	}
}

func TestRemindersFromDeliveryFields(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)

	doc, err := svc.Create(ctx, CreateInput{Type: models.TypeInstallationOrder, Number: "IO-7", DeliveryDays: intPtr(5)})
	if err != nil {
		t.Fatal(err)
	}
	list, err := svc.ListReminders(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].EventKind != models.EventInstallation {
		t.Fatalf("reminders = %+v", list)
	}
	if want := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC); !list[0].DueDate.Equal(want) {
		t.Errorf("due = %v, want %v", list[0].DueDate, want)
	}

	_, marker, err := svc.UpdateDelivery(ctx, doc.ID, DeliveryInput{DeliveryDays: intPtr(30)})
	if err != nil {
		t.Fatal(err)
	}
	if marker == nil || marker.ID != list[0].ID {
		t.Fatalf("marker = %+v, want update of %s", marker, list[0].ID)
	}
	if want := time.Date(2026, 6, 9, 0, 0, 0, 0, time.UTC); !marker.DueDate.Equal(want) {
		t.Errorf("due = %v, want %v", marker.DueDate, want)
	}

	_, marker, err = svc.UpdateDelivery(ctx, doc.ID, DeliveryInput{})
	if err != nil || marker != nil {
		t.Errorf("cleared delay: marker = %+v err = %v", marker, err)
	}
}

type downReminders struct{}

func (downReminders) Upsert(context.Context, *models.ReminderMarker) (*models.ReminderMarker, error) {
	return nil, errors.New("reminder store down")
}

func TestUpdateDeliveryKeepsChangeWhenReminderFails(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)
	doc, err := svc.Create(ctx, CreateInput{Type: models.TypeDeliveryNote, Number: "DN-9"})
	if err != nil {
		t.Fatal(err)
	}

	svc.Calendar = calendar.NewEmitter(downReminders{}, time.UTC, logger.Nop())
	got, marker, err := svc.UpdateDelivery(ctx, doc.ID, DeliveryInput{DeliveryDays: intPtr(7)})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if marker != nil {
		t.Errorf("marker = %+v, want nil", marker)
	}
	if got.DeliveryDays == nil || *got.DeliveryDays != 7 {
		t.Errorf("returned delivery_days = %v, want 7", got.DeliveryDays)
	}
	stored, err := svc.Get(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.DeliveryDays == nil || *stored.DeliveryDays != 7 {
		t.Errorf("stored delivery_days = %v, want 7", stored.DeliveryDays)
	}

	svc.Calendar = nil
	if _, marker, err := svc.UpdateDelivery(ctx, doc.ID, DeliveryInput{DeliveryDays: intPtr(3)}); err != nil || marker != nil {
		t.Errorf("without calendar: marker = %+v err = %v", marker, err)
	}
}

func TestRenderFormats(t *testing.T) {
	ctx := context.Background()
	exp := &fakeExporter{}
	svc := setupService(t, exp)

	invoice, err := svc.Create(ctx, CreateInput{
		Type:         models.TypeInvoice,
		Number:       "F 2026/01",
		CustomerName: "Dupont & Fils",
		Lines:        []models.LineItem{{Description: "Window", Quantity: 2, UnitPrice: 90, VATRate: 0.2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := svc.Render(ctx, invoice.ID, FormatHTML, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out.Data), "Dupont &amp; Fils") || out.Filename != "invoice-F-202601.html" {
		t.Errorf("html output: %s %q", out.MimeType, out.Filename)
	}

	out, err = svc.Render(ctx, invoice.ID, FormatPDF, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.MimeType != "application/pdf" || !strings.Contains(exp.html, "Window") {
		t.Errorf("pdf export did not receive the layout: %q", exp.html)
	}

	if _, err := svc.Render(ctx, invoice.ID, FormatPNG, 1); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("png of a structured document: err = %v", err)
	}
	if _, err := svc.Render(ctx, invoice.ID, "docx", 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("docx: err = %v", err)
	}
}

func TestRenderPDFWithoutExporter(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)
	doc, _ := svc.Create(ctx, CreateInput{Type: models.TypeQuote, Number: "Q-1"})
	if _, err := svc.Render(ctx, doc.ID, FormatPDF, 0); !errors.Is(err, export.ErrPDFDependencyMissing) {
		t.Errorf("err = %v, want ErrPDFDependencyMissing", err)
	}
}

func TestRenderOverlay(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)
	doc, err := svc.Create(ctx, CreateInput{
		Type:   models.TypeSpecialQuote,
		Number: "SQ-1",
		Fields: map[string]any{"product": "Oak door"},
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := svc.Render(ctx, doc.ID, FormatPDF, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out.Data), "%PDF") {
		t.Error("overlay pdf is not a PDF")
	}

	out, err = svc.Render(ctx, doc.ID, FormatPNG, 3)
	if err != nil {
		t.Fatal(err)
	}
	if out.MimeType != "image/png" || !strings.HasSuffix(out.Filename, "-p3.png") {
		t.Errorf("png output: %s %q", out.MimeType, out.Filename)
	}

	_, err = svc.Render(ctx, doc.ID, FormatPNG, 4)
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Errorf("page 4: err = %v, want validation error", err)
	}
}

func TestResolveTemplateForDocument(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t, nil)
	ghost := uuid.New()
	doc, err := svc.Create(ctx, CreateInput{Type: models.TypeDeliveryNote, Number: "D-1", TemplateID: &ghost})
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.ResolveTemplate(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != templates.SourceBuiltin {
		t.Errorf("source = %q, want builtin", res.Source)
	}
	l, err := svc.Layout(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if l.Totals != nil {
		t.Error("delivery note layout carries totals")
	}
}
