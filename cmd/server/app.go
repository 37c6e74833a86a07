package main

import (
	"net/http"
	"time"

	"github.com/diewo77/go-docflow/internal/handlers"
	"github.com/diewo77/go-docflow/internal/httpx"
	"github.com/diewo77/go-docflow/internal/platform/logger"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	routerCfg *RouterConfig
	log       *logger.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(routerCfg *RouterConfig, log *logger.Logger) *App {
	app := &App{
		mux:       http.NewServeMux(),
		routerCfg: routerCfg,
		log:       log.With("component", "http"),
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.withRecover(a.withLogging(a.mux)).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /healthz", handlers.Healthz)
	a.mux.HandleFunc("GET /statuses/{type}", handlers.Statuses(a.log))

	// ─────────────────────────────────────────────────────────────────────────
	// Documents
	// ─────────────────────────────────────────────────────────────────────────
	dh := a.routerCfg.DocumentHandler

	a.mux.HandleFunc("GET /documents", dh.List)
	a.mux.HandleFunc("POST /documents", dh.Create)
	a.mux.HandleFunc("GET /documents/{id}", dh.Get)
	a.mux.HandleFunc("DELETE /documents/{id}", dh.Delete)
	a.mux.HandleFunc("POST /documents/{id}/status", dh.ChangeStatus)
	a.mux.HandleFunc("POST /documents/{id}/source", dh.SetSource)
	a.mux.HandleFunc("POST /documents/{id}/delivery", dh.UpdateDelivery)
	a.mux.HandleFunc("GET /documents/{id}/reminders", dh.Reminders)
	a.mux.HandleFunc("GET /documents/{id}/chain", dh.Chain)
	a.mux.HandleFunc("GET /documents/{id}/template", dh.Template)
	a.mux.HandleFunc("GET /documents/{id}/layout", dh.Layout)
	a.mux.HandleFunc("GET /documents/{id}/render", dh.Render)

	// ─────────────────────────────────────────────────────────────────────────
	// Templates
	// ─────────────────────────────────────────────────────────────────────────
	th := a.routerCfg.TemplateHandler

	a.mux.HandleFunc("GET /templates", th.List)
	a.mux.HandleFunc("POST /templates", th.Save)
	a.mux.HandleFunc("POST /templates/{id}/default", th.SetDefault)
	a.mux.HandleFunc("DELETE /templates/{id}", th.Delete)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging middleware.
func (a *App) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// withRecover turns a panic into a 500 JSON response.
func (a *App) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				a.log.Error("panic serving request", "path", r.URL.Path, "panic", v)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
