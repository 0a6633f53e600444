// Package models defines the records kept about templates and generated presentations.
package models

import "time"

// Template sources.
const (
	SourceUpload = "upload"
	SourceInbox  = "inbox"
)

// Template is an uploaded presentation template.
type Template struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Source       string     `json:"source" db:"source"`
	SizeBytes    int64      `json:"size_bytes" db:"size_bytes"`
	Slides       int        `json:"slides" db:"slides"`
	Placeholders int        `json:"placeholders" db:"placeholders"`
	UploadedAt   time.Time  `json:"uploaded_at" db:"uploaded_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// Processed reports whether the template has been preprocessed.
func (t *Template) Processed() bool {
	return t.ProcessedAt != nil
}
