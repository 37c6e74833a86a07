package handlers

import (
	"net/http"

	"github.com/diewo77/go-docflow/internal/httpx"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/status"
)

type statusOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Statuses lists the selectable statuses of a type. ?legacy=1 adds the deprecated values.
func Statuses(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docType := models.DocumentType(r.PathValue("type"))
		list := status.VisibleStatuses
		if r.URL.Query().Get("legacy") == "1" {
			list = status.LegalStatuses
		}
		values, err := list(docType)
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]statusOption, 0, len(values))
		for _, v := range values {
			label, err := status.DisplayLabel(v)
			if err != nil {
				writeError(w, log, err)
				return
			}
			out = append(out, statusOption{Value: v, Label: label})
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
