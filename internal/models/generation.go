package models

import "time"

// Generation records one filled presentation.
type Generation struct {
	ID             string    `json:"id" db:"id"`
	TemplateID     string    `json:"template_id" db:"template_id"`
	ContentSlides  int       `json:"content_slides" db:"content_slides"`
	ResolvedSlides int       `json:"resolved_slides" db:"resolved_slides"`
	Replaced       int       `json:"replaced" db:"replaced"`
	Unused         []string  `json:"unused" db:"unused"`
	OutputPath     string    `json:"output_path" db:"output_path"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
