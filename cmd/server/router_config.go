package main

import (
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-docflow/internal/activity"
	"github.com/diewo77/go-docflow/internal/calendar"
	"github.com/diewo77/go-docflow/internal/config"
	"github.com/diewo77/go-docflow/internal/export"
	"github.com/diewo77/go-docflow/internal/handlers"
	"github.com/diewo77/go-docflow/internal/lineage"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
	"github.com/diewo77/go-docflow/internal/services"
	"github.com/diewo77/go-docflow/internal/store"
	"github.com/diewo77/go-docflow/internal/templates"
	"github.com/diewo77/go-docflow/internal/workflow"
)

// RouterConfig holds the configured handlers of the application.
type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	TemplateHandler *handlers.TemplateHandler

	DocumentService *services.DocumentService
}

// Deps are the infrastructure pieces built in main from the configuration.
type Deps struct {
	DB       *gorm.DB
	Recorder activity.Recorder
	Overlay  *render.OverlayTable
	Assets   render.AssetSource
	Exporter services.PDFExporter
	Location *time.Location
}

// NewRouterConfig wires stores, core services and handlers together.
func NewRouterConfig(cfg *config.Config, deps Deps, log *logger.Logger) *RouterConfig {
	docs := store.NewDocumentRepo(deps.DB, log)
	tpls := store.NewTemplateRepo(deps.DB, log)
	reminders := store.NewReminderRepo(deps.DB, log)

	docService := services.NewDocumentService(services.Deps{
		Documents: docs,
		Reminders: reminders,
		Machine:   workflow.NewMachine(docs, deps.Recorder, log),
		Tracker:   lineage.NewTracker(docs, log),
		Resolver:  templates.NewResolver(tpls, log),
		Renderer:  render.NewRenderer(nil, deps.Overlay, deps.Assets, log),
		Calendar:  calendar.NewEmitter(reminders, deps.Location, log),
		Exporter:  deps.Exporter,
		Recorder:  deps.Recorder,
		RasterDPI: cfg.Render.RasterDPI,
		FontPath:  cfg.Render.FontPath,
	}, log)

	return &RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(docService, log),
		TemplateHandler: handlers.NewTemplateHandler(templates.NewService(tpls, deps.Recorder, log), log),
		DocumentService: docService,
	}
}

// pdfExporter returns the chromedp exporter, or nil when no browser is installed so that
// structured PDF requests fail fast with 503.
func pdfExporter(log *logger.Logger) services.PDFExporter {
	e := export.NewPDFExporter()
	if !e.Available() {
		log.Warn("no chromium binary found, structured PDF export disabled")
		return nil
	}
	return e
}
