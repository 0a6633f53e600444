package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/deckfill/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		slides INTEGER NOT NULL DEFAULT 0,
		placeholders INTEGER NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_templates_uploaded_at ON templates(uploaded_at);

	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		content_slides INTEGER NOT NULL,
		resolved_slides INTEGER NOT NULL,
		replaced INTEGER NOT NULL,
		unused TEXT,
		output_path TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (template_id) REFERENCES templates(id)
	);

	CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
	CREATE INDEX IF NOT EXISTS idx_generations_template_id ON generations(template_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveTemplate inserts a template or, when the same content was uploaded before, refreshes
// its name, source and upload time and clears the processed state.
func (s *SQLiteStorage) SaveTemplate(ctx context.Context, tpl *models.Template) error {
	if tpl.UploadedAt.IsZero() {
		tpl.UploadedAt = time.Now()
	}
	tpl.ProcessedAt = nil
	tpl.Placeholders = 0
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, source, size_bytes, slides, placeholders, uploaded_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, NULL)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   source = excluded.source,
		   size_bytes = excluded.size_bytes,
		   slides = excluded.slides,
		   placeholders = 0,
		   uploaded_at = excluded.uploaded_at,
		   processed_at = NULL`,
		tpl.ID, tpl.Name, tpl.Source, tpl.SizeBytes, tpl.Slides, tpl.UploadedAt,
	)
	return err
}

// MarkTemplateProcessed records a successful preprocessing run.
func (s *SQLiteStorage) MarkTemplateProcessed(ctx context.Context, id string, placeholders int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE templates SET placeholders = ?, processed_at = ? WHERE id = ?`,
		placeholders, time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

const templateColumns = `id, name, source, size_bytes, slides, placeholders, uploaded_at, processed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row scanner) (*models.Template, error) {
	var tpl models.Template
	var processedAt sql.NullTime
	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Source, &tpl.SizeBytes, &tpl.Slides, &tpl.Placeholders, &tpl.UploadedAt, &processedAt); err != nil {
		return nil, err
	}
	if processedAt.Valid {
		t := processedAt.Time
		tpl.ProcessedAt = &t
	}
	return &tpl, nil
}

// GetTemplate returns a template by ID.
func (s *SQLiteStorage) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	tpl, err := scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return tpl, err
}

// ListTemplates returns templates, most recently uploaded first.
func (s *SQLiteStorage) ListTemplates(ctx context.Context, offset, limit int) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM templates ORDER BY uploaded_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// CreateGeneration inserts a generation record.
func (s *SQLiteStorage) CreateGeneration(ctx context.Context, gen *models.Generation) error {
	if gen.Unused == nil {
		gen.Unused = []string{}
	}
	unusedJSON, err := json.Marshal(gen.Unused)
	if err != nil {
		return fmt.Errorf("failed to marshal unused tokens: %w", err)
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generations (id, template_id, content_slides, resolved_slides, replaced, unused, output_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		gen.ID, gen.TemplateID, gen.ContentSlides, gen.ResolvedSlides, gen.Replaced, string(unusedJSON), gen.OutputPath, gen.CreatedAt,
	)
	return err
}

const generationColumns = `id, template_id, content_slides, resolved_slides, replaced, unused, output_path, created_at`

func scanGeneration(row scanner) (*models.Generation, error) {
	var gen models.Generation
	var unusedJSON sql.NullString
	if err := row.Scan(&gen.ID, &gen.TemplateID, &gen.ContentSlides, &gen.ResolvedSlides, &gen.Replaced, &unusedJSON, &gen.OutputPath, &gen.CreatedAt); err != nil {
		return nil, err
	}
	gen.Unused = []string{}
	if unusedJSON.Valid && unusedJSON.String != "" {
		if err := json.Unmarshal([]byte(unusedJSON.String), &gen.Unused); err != nil {
			return nil, fmt.Errorf("failed to unmarshal unused tokens: %w", err)
		}
	}
	return &gen, nil
}

// GetGeneration returns a generation by ID.
func (s *SQLiteStorage) GetGeneration(ctx context.Context, id string) (*models.Generation, error) {
	gen, err := scanGeneration(s.db.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM generations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("generation %s: %w", id, ErrNotFound)
	}
	return gen, err
}

// ListGenerations returns generations, newest first.
func (s *SQLiteStorage) ListGenerations(ctx context.Context, offset, limit int) ([]*models.Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+generationColumns+` FROM generations ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gens []*models.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

// CountTemplates returns the total number of templates.
func (s *SQLiteStorage) CountTemplates(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&count)
	return count, err
}

// CountGenerations returns the total number of generations.
func (s *SQLiteStorage) CountGenerations(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
