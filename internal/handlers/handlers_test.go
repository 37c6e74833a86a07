package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-docflow/internal/calendar"
	"github.com/diewo77/go-docflow/internal/lineage"
	"github.com/diewo77/go-docflow/internal/models"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
	"github.com/diewo77/go-docflow/internal/services"
	"github.com/diewo77/go-docflow/internal/store"
	"github.com/diewo77/go-docflow/internal/templates"
	"github.com/diewo77/go-docflow/internal/workflow"
)

type testEnv struct {
	docs *DocumentHandler
	tpls *TemplateHandler
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Document{}, &models.Template{}, &models.ReminderMarker{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logger.Nop()
	docs := store.NewDocumentRepo(db, log)
	tplRepo := store.NewTemplateRepo(db, log)
	reminders := store.NewReminderRepo(db, log)
	table, err := render.LoadOverlayTable("")
	if err != nil {
		t.Fatal(err)
	}

	svc := services.NewDocumentService(services.Deps{
		Documents: docs,
		Reminders: reminders,
		Machine:   workflow.NewMachine(docs, nil, log),
		Tracker:   lineage.NewTracker(docs, log),
		Resolver:  templates.NewResolver(tplRepo, log),
		Renderer:  render.NewRenderer(nil, table, nil, log),
		Calendar:  calendar.NewEmitter(reminders, time.UTC, log),
	}, log)
	return testEnv{
		docs: NewDocumentHandler(svc, log),
		tpls: NewTemplateHandler(templates.NewService(tplRepo, nil, log), log),
	}
}

func do(h http.HandlerFunc, method, target, body string, pathValues ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func createDoc(t *testing.T, env testEnv, body string) map[string]any {
	t.Helper()
	w := do(env.docs.Create, http.MethodPost, "/documents", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return payload.Error
}

func TestDocumentCreateAndGet(t *testing.T) {
	env := setupTestEnv(t)
	doc := createDoc(t, env, `{"type":"quote","number":"Q-1","customer_name":"Dupont"}`)
	if doc["status"] != "draft" {
		t.Errorf("status = %v", doc["status"])
	}
	allowed, _ := doc["allowed_statuses"].([]any)
	if len(allowed) != 1 || allowed[0] != "sent" {
		t.Errorf("allowed_statuses = %v", doc["allowed_statuses"])
	}

	id := doc["id"].(string)
	w := do(env.docs.Get, http.MethodGet, "/documents/"+id, "", "id", id)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200 got %d", w.Code)
	}

	w = do(env.docs.List, http.MethodGet, "/documents?type=quote", "")
	var list struct {
		Items []models.Document `json:"items"`
		Total int64             `json:"total"`
		Limit int               `json:"limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 || list.Limit != 50 {
		t.Errorf("list = %+v", list)
	}
}

func TestDocumentErrors(t *testing.T) {
	env := setupTestEnv(t)
	doc := createDoc(t, env, `{"type":"quote","number":"Q-1"}`)
	id := doc["id"].(string)
	missing := "00000000-0000-4000-8000-000000000001"

	tests := []struct {
		name   string
		h      http.HandlerFunc
		method string
		body   string
		id     string
		code   int
		errKey string
	}{
		{"bad json", env.docs.Create, http.MethodPost, `{`, "", http.StatusBadRequest, "invalid_json"},
		{"unknown type", env.docs.Create, http.MethodPost, `{"type":"memo","number":"1"}`, "", http.StatusUnprocessableEntity, "validation_failed"},
		{"bad id", env.docs.Get, http.MethodGet, "", "nope", http.StatusBadRequest, "invalid_id"},
		{"missing", env.docs.Get, http.MethodGet, "", missing, http.StatusNotFound, "not_found"},
		{"skip sent", env.docs.ChangeStatus, http.MethodPost, `{"status":"accepted"}`, id, http.StatusConflict, "invalid_transition"},
		{"illegal status", env.docs.ChangeStatus, http.MethodPost, `{"status":"paid"}`, id, http.StatusUnprocessableEntity, "unknown_status"},
		{"self source", env.docs.SetSource, http.MethodPost, `{"source_document_id":"` + id + `"}`, id, http.StatusConflict, "lineage_cycle"},
		{"missing chain", env.docs.Chain, http.MethodGet, "", missing, http.StatusNotFound, "not_found"},
		{"bad format", env.docs.Render, http.MethodGet, "", id, http.StatusUnprocessableEntity, "unsupported_format"},
		{"pdf without browser", env.docs.Render, http.MethodGet, "", id, http.StatusServiceUnavailable, "pdf_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/documents"
			switch tt.name {
			case "bad format":
				target += "?format=docx"
			case "pdf without browser":
				target += "?format=pdf"
			}
			var w *httptest.ResponseRecorder
			if tt.id == "" {
				w = do(tt.h, tt.method, target, tt.body)
			} else {
				w = do(tt.h, tt.method, target, tt.body, "id", tt.id)
			}
			if w.Code != tt.code {
				t.Fatalf("expected %d got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if got := errorCode(t, w); got != tt.errKey {
				t.Errorf("error = %q, want %q", got, tt.errKey)
			}
		})
	}
}

func TestDocumentStatusAndChain(t *testing.T) {
	env := setupTestEnv(t)
	quote := createDoc(t, env, `{"type":"quote","number":"Q-1"}`)
	qid := quote["id"].(string)
	contract := createDoc(t, env, fmt.Sprintf(`{"type":"contract","number":"K-1","source_document_id":%q}`, qid))
	cid := contract["id"].(string)

	w := do(env.docs.ChangeStatus, http.MethodPost, "/documents/"+qid+"/status", `{"status":"sent"}`, "id", qid)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200 got %d: %s", w.Code, w.Body.String())
	}

	w = do(env.docs.Chain, http.MethodGet, "/documents/"+cid+"/chain", "", "id", cid)
	if w.Code != http.StatusOK {
		t.Fatalf("chain: expected 200 got %d", w.Code)
	}
	var chain lineage.Chain
	if err := json.Unmarshal(w.Body.Bytes(), &chain); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(chain.Ancestors) != 1 || chain.Ancestors[0].ID.String() != qid || chain.Ancestors[0].Status != "sent" {
		t.Errorf("ancestors = %+v", chain.Ancestors)
	}
	if chain.Descendants == nil || len(chain.Descendants) != 0 {
		t.Errorf("descendants = %#v, want empty", chain.Descendants)
	}

	w = do(env.docs.Delete, http.MethodDelete, "/documents/"+qid, "", "id", qid)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204 got %d", w.Code)
	}
	w = do(env.docs.Get, http.MethodGet, "/documents/"+qid, "", "id", qid)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted document: expected 404 got %d", w.Code)
	}
}

func TestDocumentDeliveryAndReminders(t *testing.T) {
	env := setupTestEnv(t)
	doc := createDoc(t, env, `{"type":"delivery_note","number":"DN-1"}`)
	id := doc["id"].(string)

	w := do(env.docs.UpdateDelivery, http.MethodPost, "/documents/"+id+"/delivery", `{"delivery_days":3}`, "id", id)
	if w.Code != http.StatusOK {
		t.Fatalf("delivery: expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var payload struct {
		Reminder *models.ReminderMarker `json:"reminder"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Reminder == nil || payload.Reminder.EventKind != models.EventDelivery || payload.Reminder.Title != "Delivery DN-1" {
		t.Errorf("reminder = %+v", payload.Reminder)
	}

	w = do(env.docs.Reminders, http.MethodGet, "/documents/"+id+"/reminders", "", "id", id)
	var list []models.ReminderMarker
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("reminders = %d, want 1", len(list))
	}

	w = do(env.docs.UpdateDelivery, http.MethodPost, "/documents/"+id+"/delivery", `{"delivery_days":-2}`, "id", id)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative delay: expected 422 got %d", w.Code)
	}
}

func TestDocumentTemplateLayoutRender(t *testing.T) {
	env := setupTestEnv(t)
	w := do(env.tpls.Save, http.MethodPost, "/templates",
		`{"name":"Plain","document_type":"delivery_note","is_default":true,"show_header":true,"show_stamp":true,"columns":["description","price","quantity"],"stamp_offset_mm":-10}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save template: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var tpl models.Template
	if err := json.Unmarshal(w.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("decode: %v", err)
	}

	doc := createDoc(t, env, `{"type":"delivery_note","number":"DN-1","lines":[{"description":"Door","quantity":1,"unit_price":300}]}`)
	id := doc["id"].(string)

	w = do(env.docs.Template, http.MethodGet, "/documents/"+id+"/template", "", "id", id)
	var res struct {
		Source     string `json:"source"`
		TemplateID string `json:"template_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Source != string(templates.SourceTypeDefault) || res.TemplateID != tpl.ID.String() {
		t.Errorf("resolution = %+v", res)
	}

	w = do(env.docs.Layout, http.MethodGet, "/documents/"+id+"/layout", "", "id", id)
	var l render.Layout
	if err := json.Unmarshal(w.Body.Bytes(), &l); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(l.Columns) != 2 {
		t.Errorf("columns = %+v, price must be filtered", l.Columns)
	}
	if l.Stamp == nil || l.Stamp.YMM != render.StampBaseYMM-10 {
		t.Errorf("stamp = %+v", l.Stamp)
	}

	w = do(env.docs.Render, http.MethodGet, "/documents/"+id+"/render?format=html", "", "id", id)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("render: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "Door") {
		t.Error("rendered html misses the line")
	}

	w = do(env.tpls.Delete, http.MethodDelete, "/templates/"+tpl.ID.String(), "", "id", tpl.ID.String())
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete template: expected 204 got %d", w.Code)
	}
	w = do(env.docs.Template, http.MethodGet, "/documents/"+id+"/template", "", "id", id)
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Source != string(templates.SourceBuiltin) {
		t.Errorf("after delete source = %q, want builtin", res.Source)
	}
}

func TestTemplateValidationAndDefault(t *testing.T) {
	env := setupTestEnv(t)
	w := do(env.tpls.Save, http.MethodPost, "/templates", `{"name":"","document_type":"quote","columns":["weight"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", w.Code)
	}
	var payload struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Details["name"] == "" || payload.Details["columns"] == "" {
		t.Errorf("details = %v", payload.Details)
	}

	w = do(env.tpls.Save, http.MethodPost, "/templates", `{"name":"A","document_type":"quote"}`)
	var a models.Template
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	w = do(env.tpls.SetDefault, http.MethodPost, "/templates/"+a.ID.String()+"/default", "", "id", a.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("set default: expected 200 got %d", w.Code)
	}

	w = do(env.tpls.List, http.MethodGet, "/templates?type=quote", "")
	var list []models.Template
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || !list[0].IsDefault {
		t.Errorf("list = %+v", list)
	}

	w = do(env.tpls.List, http.MethodGet, "/templates?type=memo", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown type filter: expected 422 got %d", w.Code)
	}
}

func TestStatuses(t *testing.T) {
	h := Statuses(logger.Nop())
	tests := []struct {
		target string
		typ    string
		code   int
		values int
	}{
		{"/statuses/quote", "quote", http.StatusOK, 4},
		{"/statuses/quote?legacy=1", "quote", http.StatusOK, 5},
		{"/statuses/installation_order", "installation_order", http.StatusOK, 5},
		{"/statuses/memo", "memo", http.StatusUnprocessableEntity, 0},
	}
	for _, tt := range tests {
		w := do(h, http.MethodGet, tt.target, "", "type", tt.typ)
		if w.Code != tt.code {
			t.Errorf("%s: expected %d got %d", tt.target, tt.code, w.Code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var out []statusOption
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(out) != tt.values {
			t.Errorf("%s: %d values, want %d", tt.target, len(out), tt.values)
		}
	}

	w := do(h, http.MethodGet, "/statuses/quote?legacy=1", "", "type", "quote")
	if !strings.Contains(w.Body.String(), `{"value":"declined","label":"Rejected"}`) {
		t.Errorf("legacy label not mapped: %s", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	w := do(Healthz, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}
