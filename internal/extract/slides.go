package extract

import (
	"fmt"
	"strings"

	"github.com/hyperjump/deckfill/internal/parser"
	"github.com/hyperjump/deckfill/internal/slides"
)

// renderSlides writes slides in the "Slide N:" format, one line per entry. Slides without
// any lines are skipped and do not take a number.
func renderSlides(slides [][]string) string {
	var b strings.Builder
	n := 0
	for _, lines := range slides {
		if len(lines) == 0 {
			continue
		}
		n++
		if n > 1 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Slide %d:\n", n)
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// rowToContent maps a table row to slide content by column: title, subtitle, bullets (one
// per line in the cell) and paragraph. Empty cells leave their field absent.
func rowToContent(row []string) slides.Content {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	var c slides.Content
	if v := cell(0); v != "" {
		c.Title = slides.Some(v)
	}
	if v := cell(1); v != "" {
		c.Subtitle = slides.Some(v)
	}
	var bullets []string
	for _, b := range strings.Split(cell(2), "\n") {
		if b = parser.StripBullet(strings.TrimSpace(b)); b != "" {
			bullets = append(bullets, b)
		}
	}
	if len(bullets) > 0 {
		c.Bullets = slides.Some(bullets)
	}
	if v := strings.Join(strings.Fields(cell(3)), " "); v != "" {
		c.Paragraph = slides.Some(v)
	}
	return c
}

// rowsToDeck turns table rows into slides, skipping a header row whose first cell is "title"
// and rows with no content.
func rowsToDeck(rows [][]string) slides.Deck {
	if len(rows) > 0 && len(rows[0]) > 0 && strings.EqualFold(strings.TrimSpace(rows[0][0]), "title") {
		rows = rows[1:]
	}
	deck := slides.Deck{}
	for _, row := range rows {
		c := rowToContent(row)
		if len(c.Fields()) == 0 {
			continue
		}
		deck = append(deck, slides.Slide{Key: slides.Key(len(deck) + 1), Content: c})
	}
	return deck
}

// deckLines renders each slide's fields as text lines, bullets prefixed with "- ".
func deckLines(deck slides.Deck) [][]string {
	out := make([][]string, len(deck))
	for i, s := range deck {
		c := s.Content
		var lines []string
		if v, ok := c.Title.Get(); ok {
			lines = append(lines, v)
		}
		if v, ok := c.Subtitle.Get(); ok {
			lines = append(lines, v)
		}
		if v, ok := c.Bullets.Get(); ok {
			for _, b := range v {
				lines = append(lines, "- "+b)
			}
		}
		if v, ok := c.Paragraph.Get(); ok {
			lines = append(lines, v)
		}
		out[i] = lines
	}
	return out
}
