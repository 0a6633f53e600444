// Package cli provides output helpers for the deckfill command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/deckfill/internal/models"
	"github.com/hyperjump/deckfill/internal/pipeline"
	"github.com/hyperjump/deckfill/internal/slides"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a -format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteDeck writes parsed slide content.
func WriteDeck(w io.Writer, deck slides.Deck, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, deck)
	}
	fmt.Fprintf(w, "%d slide(s)\n", len(deck))
	for _, s := range deck {
		fmt.Fprintf(w, "\n[%s]\n", s.Key)
		c := s.Content
		if v, ok := c.Title.Get(); ok {
			fmt.Fprintf(w, "  title:     %s\n", Truncate(v, 100))
		}
		if v, ok := c.Subtitle.Get(); ok {
			fmt.Fprintf(w, "  subtitle:  %s\n", Truncate(v, 100))
		}
		if v, ok := c.Bullets.Get(); ok {
			for _, b := range v {
				fmt.Fprintf(w, "  bullet:    %s\n", Truncate(b, 100))
			}
		}
		if v, ok := c.Paragraph.Get(); ok {
			fmt.Fprintf(w, "  paragraph: %s\n", TruncateWords(v, 20))
		}
		if v, ok := c.Image.Get(); ok {
			fmt.Fprintf(w, "  image:     %s\n", v)
		}
	}
	return nil
}

// WritePlaceholders writes a placeholder map.
func WritePlaceholders(w io.Writer, m slides.PlaceholderMap, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, m)
	}
	fmt.Fprintf(w, "%d placeholder(s) on %d slide(s)\n", m.Count(), len(m))
	for _, sp := range m {
		fmt.Fprintf(w, "  %s: %s\n", sp.Key, strings.Join(sp.Tokens, ", "))
	}
	return nil
}

// WriteMapping writes a resolved mapping, slides in order and tokens sorted.
func WriteMapping(w io.Writer, resolved slides.Resolved, format OutputFormat) error {
	if format == OutputJSON {
		out := make(map[string]map[string]string, len(resolved))
		for n, values := range resolved {
			out[slides.Key(n)] = values
		}
		return writeJSON(w, out)
	}
	for _, n := range resolved.Numbers() {
		fmt.Fprintf(w, "%s\n", slides.Key(n))
		values := resolved[n]
		tokens := make([]string, 0, len(values))
		for tok := range values {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)
		for _, tok := range tokens {
			fmt.Fprintf(w, "  %s = %q\n", tok, Truncate(values[tok], 80))
		}
	}
	return nil
}

// WriteGeneration writes the record of a generated presentation.
func WriteGeneration(w io.Writer, gen *models.Generation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, gen)
	}
	fmt.Fprintf(w, "Generated %s\n", gen.OutputPath)
	fmt.Fprintf(w, "  id:         %s\n", gen.ID)
	fmt.Fprintf(w, "  template:   %s\n", gen.TemplateID)
	fmt.Fprintf(w, "  slides:     %d content, %d resolved\n", gen.ContentSlides, gen.ResolvedSlides)
	fmt.Fprintf(w, "  replaced:   %d shape(s)\n", gen.Replaced)
	if len(gen.Unused) > 0 {
		fmt.Fprintf(w, "  unused:     %s\n", strings.Join(gen.Unused, ", "))
	}
	return nil
}

// WriteStatus writes a workspace summary.
func WriteStatus(w io.Writer, st *pipeline.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Workspace:   %s\n", st.Workspace)
	if st.Template != nil {
		state := "not processed"
		if st.Template.Processed() {
			state = fmt.Sprintf("%d placeholder(s)", st.Template.Placeholders)
		}
		fmt.Fprintf(w, "Template:    %s (%s, %d slide(s), %s)\n", st.Template.Name, st.Template.ID, st.Template.Slides, state)
	} else {
		fmt.Fprintln(w, "Template:    none")
	}
	fmt.Fprintf(w, "Content:     %s\n", yesNo(st.HasContent))
	fmt.Fprintf(w, "Output:      %s\n", yesNo(st.HasOutput))
	fmt.Fprintf(w, "History:     %d template(s), %d generation(s)\n", st.Templates, st.Generations)
	fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(st.DiskUsageBytes))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
