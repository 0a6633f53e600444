// Package prompt renders the instructions handed to an AI assistant so that it writes slide
// content in the "Slide N:" text format for a preprocessed template.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/hyperjump/deckfill/internal/slides"
)

var kindRe = regexp.MustCompile(`^\{\{([A-Z]+)_SLIDE_\d+(?:_\d+)?\}\}$`)

// Kind returns the placeholder kind encoded in a preprocessed token, or "" for other tokens.
func Kind(token string) string {
	if m := kindRe.FindStringSubmatch(token); m != nil {
		return m[1]
	}
	return ""
}

var hintByKind = map[string]string{
	"TITLE":    "slide title",
	"SUBTITLE": "subtitle",
	"HEADER":   "section header",
	"CONTENT":  "main content",
	"CUSTOM":   "text box",
	"IMAGE":    "image reference",
}

type slot struct {
	Token    string
	Field    string
	Hint     string
	Original string
}

type slideView struct {
	Number int
	Slots  []slot
}

const promptText = `You are writing the text for a PowerPoint presentation built from a template.
The template has {{len .Slides}} slide(s). Write the content for every slide in this exact format:

Slide 1:
<title line>
<subtitle line>
- <bullet>
- <bullet>
<paragraph text>

Rules:
- Start each slide with "Slide N:" on its own line, numbering from 1 with no gaps.
- The first plain line of a slide is its title and the second plain line is its subtitle.
- Lines starting with "-" or "•" are bullets. Keep them in order.
- Any further plain lines are joined into one paragraph.
- Content fills the placeholders in this order: title, subtitle, bullets, paragraph, image.
- Write plain text only. No markdown headings, numbering or bold.
{{range .Slides}}
Slide {{.Number}}:{{if not .Slots}} (no placeholders, content for this slide is not used){{end}}
{{- range $i, $s := .Slots}}
  {{inc $i}}. {{$s.Token}} ({{$s.Hint}}) <- {{$s.Field}}{{if $s.Original}}; template text: "{{$s.Original}}"{{end}}
{{- end}}
{{end}}
Reply with the slide content only.
`

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(promptText))

// Build renders the prompt for placeholders. originals maps a token to the text it replaced in
// the template and may be nil.
func Build(placeholders slides.PlaceholderMap, originals map[string]string) (string, error) {
	views := make([]slideView, 0, len(placeholders))
	for i, sp := range placeholders {
		n, err := slides.Number(sp.Key)
		if err != nil {
			n = i + 1
		}
		v := slideView{Number: n}
		for j, token := range sp.Tokens {
			hint := hintByKind[Kind(token)]
			if hint == "" {
				hint = "placeholder"
			}
			v.Slots = append(v.Slots, slot{
				Token:    token,
				Field:    fieldName(j),
				Hint:     hint,
				Original: oneLine(originals[token]),
			})
		}
		views = append(views, v)
	}
	var b strings.Builder
	if err := promptTemplate.Execute(&b, struct{ Slides []slideView }{views}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// fieldName describes which content field lands in position i when a slide has a title,
// a subtitle and as many bullets as needed.
func fieldName(i int) string {
	switch i {
	case 0:
		return "title"
	case 1:
		return "subtitle"
	default:
		return fmt.Sprintf("bullet %d, or paragraph", i-1)
	}
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 80 {
		s = string(r[:77]) + "..."
	}
	return s
}
