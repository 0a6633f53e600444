// Package workspace owns the on-disk layout shared by the HTTP server, the CLI and the
// inbox: the uploaded template, its preprocessed copy, the JSON artifacts and the output.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Directory and file names inside a workspace.
const (
	TemplatesDir = "templates"
	DataDir      = "data"
	OutputDir    = "output"

	TemplateFile      = "template.pptx"
	PreprocessedFile  = "preprocessed.pptx"
	MappedContentFile = "mapped-content.json"
	UserContentFile   = "user-content.json"
	TemplateTextFile  = "template-text.json"
	PromptFile        = "ai-prompt.txt"
	FinalFile         = "final-presentation.pptx"
)

// Workspace is a directory holding one template and the artifacts derived from it.
type Workspace struct {
	root string
}

// New creates the workspace directories under root.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	for _, dir := range []string{TemplatesDir, DataDir, OutputDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0755); err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	return &Workspace{root: abs}, nil
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) TemplatePath() string {
	return filepath.Join(w.root, TemplatesDir, TemplateFile)
}

func (w *Workspace) PreprocessedPath() string {
	return filepath.Join(w.root, TemplatesDir, PreprocessedFile)
}

// MappedContentPath is the placeholder map written by preprocessing.
func (w *Workspace) MappedContentPath() string {
	return filepath.Join(w.root, DataDir, MappedContentFile)
}

// UserContentPath is the parsed slide content.
func (w *Workspace) UserContentPath() string {
	return filepath.Join(w.root, DataDir, UserContentFile)
}

// TemplateTextPath maps each token to the text it replaced in the template.
func (w *Workspace) TemplateTextPath() string {
	return filepath.Join(w.root, DataDir, TemplateTextFile)
}

func (w *Workspace) PromptPath() string {
	return filepath.Join(w.root, DataDir, PromptFile)
}

func (w *Workspace) OutputPath() string {
	return filepath.Join(w.root, OutputDir, FinalFile)
}

// WriteFile replaces path with data. The data is written to a temporary file in the same
// directory first, so readers never see a partial file.
func (w *Workspace) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Exists reports whether path exists as a regular file.
func (w *Workspace) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// RemoveDerived deletes everything derived from the current template. User content and the
// last output are kept.
func (w *Workspace) RemoveDerived() error {
	var errs []error
	for _, p := range []string{w.PreprocessedPath(), w.MappedContentPath(), w.TemplateTextPath(), w.PromptPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DiskUsage returns the total size of the workspace in bytes.
func (w *Workspace) DiskUsage() (int64, error) {
	return DiskUsageBytes(w.root)
}
