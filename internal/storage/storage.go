// Package storage defines the persistence interface for template and generation history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/deckfill/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines template and generation persistence operations.
type Storage interface {
	// Template operations
	SaveTemplate(ctx context.Context, tpl *models.Template) error
	MarkTemplateProcessed(ctx context.Context, id string, placeholders int) error
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	ListTemplates(ctx context.Context, offset, limit int) ([]*models.Template, error)

	// Generation operations
	CreateGeneration(ctx context.Context, gen *models.Generation) error
	GetGeneration(ctx context.Context, id string) (*models.Generation, error)
	ListGenerations(ctx context.Context, offset, limit int) ([]*models.Generation, error)

	// Stats
	CountTemplates(ctx context.Context) (int64, error)
	CountGenerations(ctx context.Context) (int64, error)

	Close() error
}
