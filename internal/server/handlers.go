package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/deckfill/internal/extract"
	"github.com/hyperjump/deckfill/internal/models"
	"github.com/hyperjump/deckfill/internal/pipeline"
	"github.com/hyperjump/deckfill/internal/slides"
	"github.com/hyperjump/deckfill/internal/workspace"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

func (s *Server) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	name, data, ok := s.readUpload(w, r, "pptx")
	if !ok {
		return
	}
	if !strings.EqualFold(filepath.Ext(name), ".pptx") {
		s.respondError(w, http.StatusBadRequest, "only .pptx templates are accepted")
		return
	}
	s.logger.Debug("upload template request", zap.String("name", name), zap.Int("bytes", len(data)))
	tpl, err := s.svc.UploadTemplate(r.Context(), name, data, models.SourceUpload)
	if err != nil {
		s.respondServiceError(w, "upload template", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Template uploaded successfully",
		"template": tpl,
	})
}

func (s *Server) handleProcessTemplate(w http.ResponseWriter, r *http.Request) {
	placeholders, err := s.svc.Process(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrNoTemplate) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.respondServiceError(w, "process template", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Template processed successfully",
		"placeholders": placeholders,
	})
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	text, err := s.svc.Prompt(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrNotProcessed) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.respondServiceError(w, "read prompt", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

type saveContentRequest struct {
	BulkContent string `json:"bulkContent"`
}

func (s *Server) handleSaveContent(w http.ResponseWriter, r *http.Request) {
	var (
		deck slides.Deck
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		name, data, ok := s.readUpload(w, r, "file")
		if !ok {
			return
		}
		s.logger.Debug("import content request", zap.String("name", name), zap.Int("bytes", len(data)))
		deck, err = s.svc.ImportContent(r.Context(), name, data)
	} else {
		var req saveContentRequest
		if decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxUpload())).Decode(&req); decodeErr != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		deck, err = s.svc.SaveContent(r.Context(), req.BulkContent)
	}
	if err != nil {
		s.respondServiceError(w, "save content", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Content saved successfully",
		"slides":  len(deck),
		"content": deck,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	gen, err := s.svc.Generate(r.Context())
	if err != nil {
		s.respondServiceError(w, "generate presentation", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Presentation generated successfully",
		"generation": gen,
	})
}

func (s *Server) handleCheckFile(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.OutputPath()
	s.respondJSON(w, http.StatusOK, map[string]bool{"exists": err == nil})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.servePresentation(w, r, "inline")
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.servePresentation(w, r, "attachment")
}

func (s *Server) servePresentation(w http.ResponseWriter, r *http.Request, disposition string) {
	path, err := s.svc.OutputPath()
	if err != nil {
		s.respondServiceError(w, "serve presentation", err)
		return
	}
	w.Header().Set("Content-Type", pptxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, workspace.FinalFile))
	http.ServeFile(w, r, path)
}

func (s *Server) handlePlaceholders(w http.ResponseWriter, r *http.Request) {
	placeholders, err := s.svc.Placeholders(r.Context())
	if err != nil {
		s.respondServiceError(w, "read placeholders", err)
		return
	}
	s.respondJSON(w, http.StatusOK, placeholders)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	deck, err := s.svc.Content(r.Context())
	if err != nil {
		s.respondServiceError(w, "read content", err)
		return
	}
	s.respondJSON(w, http.StatusOK, deck)
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.svc.Mapping(r.Context())
	if err != nil {
		s.respondServiceError(w, "map content", err)
		return
	}
	s.respondJSON(w, http.StatusOK, orderedMapping(resolved))
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	gens, err := s.svc.Generations(r.Context(), offset, limit)
	if err != nil {
		s.respondServiceError(w, "list generations", err)
		return
	}
	if gens == nil {
		gens = []*models.Generation{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"generations": gens})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.respondServiceError(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.inbox.Directories()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readUpload reads a multipart file field. On failure it writes the error response.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload())
	file, header, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return "", nil, false
		}
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("missing %q file", field))
		return "", nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "could not read upload")
		return "", nil, false
	}
	return header.Filename, data, true
}

func (s *Server) maxUpload() int64 {
	if s.config != nil && s.config.MaxUploadBytes > 0 {
		return s.config.MaxUploadBytes
	}
	return 50 << 20
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

// orderedMapping renders a resolved mapping with slide_N keys in slide order.
type orderedMapping slides.Resolved

func (m orderedMapping) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range slides.Resolved(m).Numbers() {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(slides.Key(n))
		values, err := json.Marshal(m[n])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(values)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var keyErr *slides.KeyError
	switch {
	case errors.Is(err, pipeline.ErrNoTemplate), errors.Is(err, pipeline.ErrNoPresentation):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNotProcessed), errors.Is(err, pipeline.ErrNoContent):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrInvalidTemplate), errors.Is(err, pipeline.ErrEmptyContent),
		errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.As(err, &keyErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
