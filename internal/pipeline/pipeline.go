// Package pipeline runs the template workflow over a workspace: upload a template, preprocess
// it into placeholder tokens, save slide content, and fill the template with that content.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/deckfill/internal/extract"
	"github.com/hyperjump/deckfill/internal/fileid"
	"github.com/hyperjump/deckfill/internal/mapper"
	"github.com/hyperjump/deckfill/internal/models"
	"github.com/hyperjump/deckfill/internal/parser"
	"github.com/hyperjump/deckfill/internal/pptx"
	"github.com/hyperjump/deckfill/internal/preprocess"
	"github.com/hyperjump/deckfill/internal/prompt"
	"github.com/hyperjump/deckfill/internal/slides"
	"github.com/hyperjump/deckfill/internal/storage"
	"github.com/hyperjump/deckfill/internal/workspace"
)

var (
	// ErrNoTemplate means no template has been uploaded.
	ErrNoTemplate = errors.New("no template uploaded")
	// ErrNotProcessed means the template has not been preprocessed yet.
	ErrNotProcessed = errors.New("template not processed")
	// ErrNoContent means no slide content has been saved.
	ErrNoContent = errors.New("no slide content saved")
	// ErrNoPresentation means nothing has been generated yet.
	ErrNoPresentation = errors.New("no generated presentation")
	// ErrInvalidTemplate means the uploaded file is not a readable .pptx.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrEmptyContent means no slide content was submitted.
	ErrEmptyContent = errors.New("slide content is empty")
)

// Service runs the workflow. Operations that touch the workspace are serialised.
type Service struct {
	ws        *workspace.Workspace
	store     storage.Storage
	pre       preprocess.Preprocessor
	extractor *extract.Extractor
	logger    *zap.Logger
	mu        sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service over a workspace.
func New(ws *workspace.Workspace, store storage.Storage, pre preprocess.Preprocessor, opts ...Option) *Service {
	s := &Service{
		ws:        ws,
		store:     store,
		pre:       pre,
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workspace returns the workspace the service operates on.
func (s *Service) Workspace() *workspace.Workspace {
	return s.ws
}

// UploadTemplate stores content as the current template. Artifacts derived from the previous
// template are removed; saved slide content is kept.
func (s *Service) UploadTemplate(ctx context.Context, name string, content []byte, source string) (*models.Template, error) {
	count, err := pptx.SlideCount(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: presentation has no slides", ErrInvalidTemplate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ws.WriteFile(s.ws.TemplatePath(), content); err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}
	if err := s.ws.RemoveDerived(); err != nil {
		return nil, fmt.Errorf("clear previous template artifacts: %w", err)
	}
	tpl := &models.Template{
		ID:        fileid.TemplateID(content),
		Name:      filepath.Base(name),
		Source:    source,
		SizeBytes: int64(len(content)),
		Slides:    count,
	}
	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		return nil, fmt.Errorf("record template: %w", err)
	}
	s.logger.Info("template uploaded",
		zap.String("id", tpl.ID),
		zap.String("name", tpl.Name),
		zap.String("source", source),
		zap.Int("slides", count))
	return tpl, nil
}

// ImportTemplate uploads the template at path and preprocesses it.
func (s *Service) ImportTemplate(ctx context.Context, path string, source string) (*models.Template, slides.PlaceholderMap, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read template: %w", err)
	}
	tpl, err := s.UploadTemplate(ctx, path, content, source)
	if err != nil {
		return nil, nil, err
	}
	placeholders, err := s.Process(ctx)
	if err != nil {
		return tpl, nil, err
	}
	return tpl, placeholders, nil
}

// Process preprocesses the current template and writes the placeholder map, the template
// text map and the AI prompt.
func (s *Service) Process(ctx context.Context) (slides.PlaceholderMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ws.Exists(s.ws.TemplatePath()) {
		return nil, ErrNoTemplate
	}
	res, err := s.pre.Preprocess(ctx, s.ws.TemplatePath(), s.ws.PreprocessedPath())
	if err != nil {
		return nil, fmt.Errorf("preprocess template: %w", err)
	}
	originals := res.Originals
	if originals == nil {
		originals = map[string]string{}
	}
	text, err := prompt.Build(res.Placeholders, originals)
	if err != nil {
		return nil, err
	}
	mapped, err := encodeJSON(s.ws.MappedContentPath(), res.Placeholders)
	if err != nil {
		return nil, err
	}
	templateText, err := encodeJSON(s.ws.TemplateTextPath(), originals)
	if err != nil {
		return nil, err
	}
	tpl, err := s.currentTemplate(ctx)
	if err != nil {
		return nil, err
	}

	// The placeholder map marks the template as processed, so it is written last.
	if err := s.ws.WriteFile(s.ws.TemplateTextPath(), templateText); err != nil {
		return nil, err
	}
	if err := s.ws.WriteFile(s.ws.PromptPath(), []byte(text)); err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}
	if err := s.ws.WriteFile(s.ws.MappedContentPath(), mapped); err != nil {
		return nil, err
	}
	if err := s.store.MarkTemplateProcessed(ctx, tpl.ID, res.Placeholders.Count()); err != nil {
		return nil, fmt.Errorf("record template: %w", err)
	}
	s.logger.Info("template processed",
		zap.String("id", tpl.ID),
		zap.Int("slides", len(res.Placeholders)),
		zap.Int("placeholders", res.Placeholders.Count()))
	return res.Placeholders, nil
}

// currentTemplate returns the history record of the workspace template, creating one when the
// workspace was populated without going through UploadTemplate.
func (s *Service) currentTemplate(ctx context.Context) (*models.Template, error) {
	content, err := os.ReadFile(s.ws.TemplatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoTemplate
		}
		return nil, fmt.Errorf("read template: %w", err)
	}
	id := fileid.TemplateID(content)
	tpl, err := s.store.GetTemplate(ctx, id)
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	count, _ := pptx.SlideCount(content)
	tpl = &models.Template{
		ID:        id,
		Name:      workspace.TemplateFile,
		Source:    models.SourceUpload,
		SizeBytes: int64(len(content)),
		Slides:    count,
	}
	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		return nil, fmt.Errorf("record template: %w", err)
	}
	return tpl, nil
}

// Placeholders returns the placeholder map of the processed template.
func (s *Service) Placeholders(ctx context.Context) (slides.PlaceholderMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ws.Exists(s.ws.MappedContentPath()) {
		return nil, ErrNotProcessed
	}
	return mapper.LoadPlaceholderMap(s.ws.MappedContentPath())
}

// Prompt returns the AI prompt written by Process.
func (s *Service) Prompt(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.ws.PromptPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotProcessed
		}
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return string(data), nil
}

// SaveContent parses raw slide text and stores the result as the user-content artifact.
// Only an empty submission is rejected; text without any slides saves an empty deck.
func (s *Service) SaveContent(ctx context.Context, raw string) (slides.Deck, error) {
	if raw == "" {
		return nil, ErrEmptyContent
	}
	return s.saveDeck(parser.Parse(raw))
}

// ImportContent extracts slide content from an uploaded file and saves it like SaveContent.
func (s *Service) ImportContent(ctx context.Context, name string, data []byte) (slides.Deck, error) {
	if len(data) == 0 {
		return nil, ErrEmptyContent
	}
	deck, err := s.extractor.ExtractDeck(data, filepath.Ext(name))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("content extracted", zap.String("name", name), zap.Int("slides", len(deck)))
	return s.saveDeck(deck)
}

func (s *Service) saveDeck(deck slides.Deck) (slides.Deck, error) {
	if deck == nil {
		deck = slides.Deck{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeJSON(s.ws.UserContentPath(), deck); err != nil {
		return nil, err
	}
	s.logger.Info("slide content saved", zap.Int("slides", len(deck)))
	return deck, nil
}

// Content returns the saved slide content.
func (s *Service) Content(ctx context.Context) (slides.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ws.Exists(s.ws.UserContentPath()) {
		return nil, ErrNoContent
	}
	return mapper.LoadDeck(s.ws.UserContentPath())
}

// Mapping resolves the placeholder map against the saved content.
func (s *Service) Mapping(ctx context.Context) (slides.Resolved, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolved, _, err := s.mapLocked()
	return resolved, err
}

func (s *Service) mapLocked() (slides.Resolved, slides.Deck, error) {
	if !s.ws.Exists(s.ws.MappedContentPath()) || !s.ws.Exists(s.ws.PreprocessedPath()) {
		return nil, nil, ErrNotProcessed
	}
	if !s.ws.Exists(s.ws.UserContentPath()) {
		return nil, nil, ErrNoContent
	}
	placeholders, err := mapper.LoadPlaceholderMap(s.ws.MappedContentPath())
	if err != nil {
		return nil, nil, err
	}
	deck, err := mapper.LoadDeck(s.ws.UserContentPath())
	if err != nil {
		return nil, nil, err
	}
	resolved, err := mapper.Map(placeholders, deck)
	if err != nil {
		return nil, nil, err
	}
	return resolved, deck, nil
}

// Generate maps the saved content onto the preprocessed template and writes the final
// presentation.
func (s *Service) Generate(ctx context.Context) (*models.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resolved, deck, err := s.mapLocked()
	if err != nil {
		return nil, err
	}
	template, err := os.ReadFile(s.ws.PreprocessedPath())
	if err != nil {
		return nil, fmt.Errorf("read preprocessed template: %w", err)
	}
	out, stats, err := pptx.Fill(template, resolved)
	if err != nil {
		return nil, fmt.Errorf("generate presentation: %w", err)
	}
	if err := s.ws.WriteFile(s.ws.OutputPath(), out); err != nil {
		return nil, fmt.Errorf("write presentation: %w", err)
	}

	tpl, err := s.currentTemplate(ctx)
	if err != nil {
		return nil, err
	}
	gen := &models.Generation{
		ID:             uuid.New().String(),
		TemplateID:     tpl.ID,
		ContentSlides:  len(deck),
		ResolvedSlides: len(resolved),
		Replaced:       stats.Replaced,
		Unused:         stats.Unused,
		OutputPath:     s.ws.OutputPath(),
	}
	if err := s.store.CreateGeneration(ctx, gen); err != nil {
		return nil, fmt.Errorf("record generation: %w", err)
	}
	if len(stats.Unused) > 0 {
		s.logger.Warn("resolved values not written", zap.Strings("tokens", stats.Unused))
	}
	s.logger.Info("presentation generated",
		zap.String("id", gen.ID),
		zap.String("template_id", tpl.ID),
		zap.Int("replaced", stats.Replaced),
		zap.String("output", gen.OutputPath))
	return gen, nil
}

// OutputPath returns the path of the generated presentation, or ErrNoPresentation.
func (s *Service) OutputPath() (string, error) {
	if !s.ws.Exists(s.ws.OutputPath()) {
		return "", ErrNoPresentation
	}
	return s.ws.OutputPath(), nil
}

// Generations lists generation history, newest first.
func (s *Service) Generations(ctx context.Context, offset, limit int) ([]*models.Generation, error) {
	return s.store.ListGenerations(ctx, offset, limit)
}

// Status summarises the workspace.
type Status struct {
	Workspace      string           `json:"workspace"`
	Template       *models.Template `json:"template,omitempty"`
	HasTemplate    bool             `json:"has_template"`
	Processed      bool             `json:"processed"`
	HasContent     bool             `json:"has_content"`
	HasOutput      bool             `json:"has_output"`
	Templates      int64            `json:"templates"`
	Generations    int64            `json:"generations"`
	DiskUsageBytes int64            `json:"disk_usage_bytes"`
}

// Status reports what the workspace currently holds.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &Status{
		Workspace:   s.ws.Root(),
		HasTemplate: s.ws.Exists(s.ws.TemplatePath()),
		Processed:   s.ws.Exists(s.ws.MappedContentPath()) && s.ws.Exists(s.ws.PreprocessedPath()),
		HasContent:  s.ws.Exists(s.ws.UserContentPath()),
		HasOutput:   s.ws.Exists(s.ws.OutputPath()),
	}
	if st.HasTemplate {
		tpl, err := s.currentTemplate(ctx)
		if err != nil {
			return nil, err
		}
		st.Template = tpl
	}
	var err error
	if st.Templates, err = s.store.CountTemplates(ctx); err != nil {
		return nil, err
	}
	if st.Generations, err = s.store.CountGenerations(ctx); err != nil {
		return nil, err
	}
	if st.DiskUsageBytes, err = s.ws.DiskUsage(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) writeJSON(path string, v interface{}) error {
	data, err := encodeJSON(path, v)
	if err != nil {
		return err
	}
	return s.ws.WriteFile(path, data)
}

func encodeJSON(path string, v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return append(data, '\n'), nil
}
