package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/deckfill/internal/config"
	"github.com/hyperjump/deckfill/internal/pipeline"
	"github.com/hyperjump/deckfill/internal/preprocess"
	"github.com/hyperjump/deckfill/internal/storage"
	"github.com/hyperjump/deckfill/internal/workspace"
	"github.com/hyperjump/deckfill/test/fixtures"
)

type mockInbox struct {
	dirs []string
}

func (m *mockInbox) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func newTestServer(t *testing.T, inbox InboxService) http.Handler {
	t.Helper()
	dir := t.TempDir()
	ws, err := workspace.New(filepath.Join(dir, "workspace"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	svc := pipeline.New(ws, store, preprocess.NewNative())
	srv := NewServer(svc, &config.ServerConfig{Port: 5000, MaxUploadBytes: 1 << 20}, zap.NewNop(), inbox)
	return srv.Router()
}

func do(t *testing.T, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func multipartRequest(t *testing.T, path, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()
	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func jsonRequest(t *testing.T, path string, v interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestHandlers_workflow(t *testing.T) {
	h := newTestServer(t, nil)

	w := do(t, h, multipartRequest(t, "/upload-pptx", "pptx", "deck.pptx", fixtures.Template()))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: got %d, body: %s", w.Code, w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodPost, "/process-pptx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("process: got %d, body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"slide_1":["{{TITLE_SLIDE_1}}","{{SUBTITLE_SLIDE_1}}"]`) {
		t.Errorf("process body: %s", w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/get-ai-prompt", nil))
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("prompt: got %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	content := "Slide 1:\nAcme\nReview\nSlide 2:\nHighlights\n- Up\n- Down"
	w = do(t, h, jsonRequest(t, "/save-user-content", map[string]string{"bulkContent": content}))
	if w.Code != http.StatusOK {
		t.Fatalf("save content: got %d, body: %s", w.Code, w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/mapping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("mapping: got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Index(body, `"slide_1"`) > strings.Index(body, `"slide_2"`) {
		t.Errorf("mapping keys out of order: %s", body)
	}
	var mapping map[string]map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &mapping); err != nil {
		t.Fatal(err)
	}
	if mapping["slide_2"]["{{CONTENT_SLIDE_2}}"] != "Up" {
		t.Errorf("mapping: %v", mapping)
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/check-file", nil))
	if !strings.Contains(w.Body.String(), `"exists":false`) {
		t.Errorf("check-file before generating: %s", w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodPost, "/generate-pptx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("generate: got %d, body: %s", w.Code, w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/check-file", nil))
	if !strings.Contains(w.Body.String(), `"exists":true`) {
		t.Errorf("check-file after generating: %s", w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/download-pptx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download: got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("download disposition: %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("download is not a zip archive")
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/preview-pptx", nil))
	if cd := w.Header().Get("Content-Disposition"); w.Code != http.StatusOK || !strings.HasPrefix(cd, "inline") {
		t.Errorf("preview: got %d %q", w.Code, cd)
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/generations", nil))
	var gens struct {
		Generations []map[string]interface{} `json:"generations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &gens); err != nil {
		t.Fatal(err)
	}
	if len(gens.Generations) != 1 {
		t.Errorf("generations: %s", w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	var st pipeline.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if !st.HasOutput || st.Generations != 1 || st.Templates != 1 {
		t.Errorf("status: %+v", st)
	}
}

func TestHandlers_errors(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"process without template", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/process-pptx", nil)
		}, http.StatusNotFound},
		{"prompt before processing", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/get-ai-prompt", nil)
		}, http.StatusNotFound},
		{"generate before processing", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/generate-pptx", nil)
		}, http.StatusConflict},
		{"download before generating", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/download-pptx", nil)
		}, http.StatusNotFound},
		{"empty content", func() *http.Request {
			return jsonRequest(t, "/save-user-content", map[string]string{"bulkContent": ""})
		}, http.StatusBadRequest},
		{"malformed content body", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/save-user-content", strings.NewReader("{"))
			r.Header.Set("Content-Type", "application/json")
			return r
		}, http.StatusBadRequest},
		{"unsupported content file", func() *http.Request {
			return multipartRequest(t, "/save-user-content", "file", "photo.png", []byte{1, 2, 3})
		}, http.StatusBadRequest},
		{"upload missing field", func() *http.Request {
			return multipartRequest(t, "/upload-pptx", "other", "deck.pptx", fixtures.Template())
		}, http.StatusBadRequest},
		{"upload wrong extension", func() *http.Request {
			return multipartRequest(t, "/upload-pptx", "pptx", "deck.key", fixtures.Template())
		}, http.StatusBadRequest},
		{"upload not a presentation", func() *http.Request {
			return multipartRequest(t, "/upload-pptx", "pptx", "deck.pptx", []byte("nope"))
		}, http.StatusBadRequest},
		{"bad generations limit", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/generations?limit=abc", nil)
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.req())
			if w.Code != tt.want {
				t.Errorf("got %d, want %d, body: %s", w.Code, tt.want, w.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("expected JSON error body, got %s", w.Body.String())
			}
		})
	}
}

func TestHandleSaveContent_file(t *testing.T) {
	h := newTestServer(t, nil)
	data := fixtures.Xlsx([][]string{
		{"title", "subtitle", "bullets", "paragraph"},
		{"Welcome", "Kickoff", "", ""},
	})
	w := do(t, h, multipartRequest(t, "/save-user-content", "file", "content.xlsx", data))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, body: %s", w.Code, w.Body.String())
	}
	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))
	if !strings.Contains(w.Body.String(), `"title":"Welcome"`) {
		t.Errorf("content: %s", w.Body.String())
	}
}

func TestHandleSaveContent_whitespaceSavesEmptyDeck(t *testing.T) {
	h := newTestServer(t, nil)
	w := do(t, h, jsonRequest(t, "/save-user-content", map[string]string{"bulkContent": "  \n"}))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"slides":0`) {
		t.Fatalf("got %d, body: %s", w.Code, w.Body.String())
	}
	w = do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "{}" {
		t.Errorf("content: %d %s", w.Code, w.Body.String())
	}
}

func TestHandleInbox(t *testing.T) {
	w := do(t, newTestServer(t, &mockInbox{dirs: []string{"/tmp/inbox"}}),
		httptest.NewRequest(http.MethodGet, "/api/v1/inbox", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/tmp/inbox") {
		t.Errorf("got %d, body: %s", w.Code, w.Body.String())
	}

	w = do(t, newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/inbox", nil))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("disabled inbox: got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	w := do(t, newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("got %d, body: %s", w.Code, w.Body.String())
	}
}
