package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/diewo77/go-docflow/internal/export"
	"github.com/diewo77/go-docflow/internal/httpx"
	"github.com/diewo77/go-docflow/internal/lineage"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
	"github.com/diewo77/go-docflow/internal/services"
	"github.com/diewo77/go-docflow/internal/status"
	"github.com/diewo77/go-docflow/internal/store"
	"github.com/diewo77/go-docflow/internal/templates"
	"github.com/diewo77/go-docflow/internal/validation"
	"github.com/diewo77/go-docflow/internal/workflow"
)

// httpError maps domain errors to their HTTP form.
func httpError(err error) *httpx.Error {
	var he *httpx.Error
	if errors.As(err, &he) {
		return he
	}
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return &httpx.Error{Status: http.StatusUnprocessableEntity, Code: "validation_failed", Details: verr.Violations, Err: err}
	case errors.Is(err, store.ErrNotFound):
		return httpx.NewError(http.StatusNotFound, "not_found", err)
	case errors.Is(err, workflow.ErrInvalidTransition):
		return httpx.NewError(http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, lineage.ErrLineageCycle):
		return httpx.NewError(http.StatusConflict, "lineage_cycle", err)
	case errors.Is(err, status.ErrUnknownStatus):
		return httpx.NewError(http.StatusUnprocessableEntity, "unknown_status", err)
	case errors.Is(err, status.ErrUnknownType):
		return httpx.NewError(http.StatusUnprocessableEntity, "unknown_type", err)
	case errors.Is(err, services.ErrUnsupportedFormat):
		return httpx.NewError(http.StatusUnprocessableEntity, "unsupported_format", err)
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return httpx.NewError(http.StatusServiceUnavailable, "pdf_unavailable", err)
	case errors.Is(err, render.ErrMissingLayoutAsset):
		return httpx.NewError(http.StatusInternalServerError, "missing_layout_asset", err)
	case errors.Is(err, templates.ErrTemplateResolutionExhausted):
		return httpx.NewError(http.StatusInternalServerError, "template_resolution_exhausted", err)
	}
	return httpx.NewError(http.StatusInternalServerError, "internal_error", err)
}

func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	he := httpError(err)
	if he.Status >= http.StatusInternalServerError {
		log.Error("request failed", "code", he.Code, "error", err)
	}
	httpx.WriteError(w, he)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, httpx.NewError(http.StatusBadRequest, "invalid_id", err)
	}
	return id, nil
}

func badJSON(err error) error {
	return httpx.NewError(http.StatusBadRequest, "invalid_json", err)
}
