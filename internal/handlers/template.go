package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/go-docflow/internal/httpx"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/templates"
	"github.com/diewo77/go-docflow/internal/validation"
)

type TemplateHandler struct {
	svc *templates.Service
	log *logger.Logger
}

func NewTemplateHandler(svc *templates.Service, log *logger.Logger) *TemplateHandler {
	return &TemplateHandler{svc: svc, log: log.With("handler", "templates")}
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	docType := models.DocumentType(r.URL.Query().Get("type"))
	if docType != "" && !docType.Valid() {
		writeError(w, h.log, validation.Violations{"type": "unknown"}.Err())
		return
	}
	list, err := h.svc.List(r.Context(), docType)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.Template{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// Save creates a template, or replaces it when the body carries an existing id.
func (h *TemplateHandler) Save(w http.ResponseWriter, r *http.Request) {
	var tpl models.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeError(w, h.log, badJSON(err))
		return
	}
	tpl.DeletedAt = gorm.DeletedAt{}
	code := http.StatusOK
	if tpl.ID == uuid.Nil {
		code = http.StatusCreated
	}
	if err := h.svc.Save(r.Context(), &tpl); err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, code, tpl)
}

func (h *TemplateHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	tpl, err := h.svc.SetDefault(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
