package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/diewo77/go-docflow/internal/httpx"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/services"
	"github.com/diewo77/go-docflow/internal/workflow"
)

type DocumentHandler struct {
	svc *services.DocumentService
	log *logger.Logger
}

func NewDocumentHandler(svc *services.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, log: log.With("handler", "documents")}
}

// documentView adds the transitions a client may offer next.
type documentView struct {
	*models.Document
	AllowedStatuses []string `json:"allowed_statuses"`
}

func present(doc *models.Document) documentView {
	return documentView{Document: doc, AllowedStatuses: workflow.AllowedTargets(doc)}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	docs, total, err := h.svc.List(r.Context(), models.DocumentType(q.Get("type")), limit, offset)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  docs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, h.log, badJSON(err))
		return
	}
	doc, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, present(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, present(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *DocumentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.log, badJSON(err))
		return
	}
	doc, err := h.svc.ChangeStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, present(doc))
}

func (h *DocumentHandler) SetSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var body struct {
		SourceDocumentID *uuid.UUID `json:"source_document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.log, badJSON(err))
		return
	}
	doc, err := h.svc.SetSource(r.Context(), id, body.SourceDocumentID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, present(doc))
}

func (h *DocumentHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var in services.DeliveryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, h.log, badJSON(err))
		return
	}
	doc, marker, err := h.svc.UpdateDelivery(r.Context(), id, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"document": present(doc), "reminder": marker})
}

func (h *DocumentHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	list, err := h.svc.ListReminders(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.ReminderMarker{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *DocumentHandler) Chain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	chain, err := h.svc.Chain(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if chain.Current == nil {
		writeError(w, h.log, httpx.NewError(http.StatusNotFound, "not_found", nil))
		return
	}
	httpx.JSON(w, http.StatusOK, chain)
}

func (h *DocumentHandler) Template(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.svc.ResolveTemplate(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *DocumentHandler) Layout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	l, err := h.svc.Layout(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

// Render serves the document as html, pdf or png (?format=, ?page= for png).
func (h *DocumentHandler) Render(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	out, err := h.svc.Render(r.Context(), id, r.URL.Query().Get("format"), page)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", out.MimeType)
	if out.MimeType != "text/html; charset=utf-8" {
		w.Header().Set("Content-Disposition", `inline; filename="`+out.Filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		h.log.Warn("render response not written", "document_id", id, "error", err)
	}
}
