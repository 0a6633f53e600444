// Package slides defines the per-slide data shared by the parser, the mapper and the
// presentation filler: slide content records, placeholder lists, and resolved mappings.
package slides

import (
	"encoding/json"
)

// Content is the structured content of one slide.
// Every field is Optional: a field is present only when some input line was classified into it.
type Content struct {
	Title     Optional[string]
	Subtitle  Optional[string]
	Bullets   Optional[[]string]
	Paragraph Optional[string]
	// Image is never produced by the parser; it is accepted from externally written artifacts.
	Image Optional[string]
}

// Fields flattens c in fixed order: title, subtitle, each bullet, paragraph, image.
// Absent fields contribute nothing.
func (c Content) Fields() []string {
	var fields []string
	if v, ok := c.Title.Get(); ok {
		fields = append(fields, v)
	}
	if v, ok := c.Subtitle.Get(); ok {
		fields = append(fields, v)
	}
	if v, ok := c.Bullets.Get(); ok {
		fields = append(fields, v...)
	}
	if v, ok := c.Paragraph.Get(); ok {
		fields = append(fields, v)
	}
	if v, ok := c.Image.Get(); ok {
		fields = append(fields, v)
	}
	return fields
}

type contentJSON struct {
	Title     *string  `json:"title,omitempty"`
	Subtitle  *string  `json:"subtitle,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
	Paragraph *string  `json:"paragraph,omitempty"`
	Image     *string  `json:"image,omitempty"`
}

// MarshalJSON writes present fields only.
func (c Content) MarshalJSON() ([]byte, error) {
	aux := contentJSON{
		Title:     c.Title.ptr(),
		Subtitle:  c.Subtitle.ptr(),
		Paragraph: c.Paragraph.ptr(),
		Image:     c.Image.ptr(),
	}
	if b, ok := c.Bullets.Get(); ok {
		aux.Bullets = b
	}
	return json.Marshal(aux)
}

// UnmarshalJSON reads a content record. Missing, null, empty-string and empty-list fields
// all decode as absent.
func (c *Content) UnmarshalJSON(data []byte) error {
	var aux contentJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Content{
		Title:     optionalString(aux.Title),
		Subtitle:  optionalString(aux.Subtitle),
		Paragraph: optionalString(aux.Paragraph),
		Image:     optionalString(aux.Image),
	}
	if len(aux.Bullets) > 0 {
		c.Bullets = Some(aux.Bullets)
	}
	return nil
}

func optionalString(s *string) Optional[string] {
	if s == nil || *s == "" {
		return None[string]()
	}
	return Some(*s)
}
