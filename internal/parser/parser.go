// Package parser turns pasted free-form slide text into structured per-slide content.
package parser

import (
	"regexp"
	"strings"

	"github.com/hyperjump/deckfill/internal/slides"
)

// slideDelimiter matches a "Slide <n>:" marker at the start of the text or of a line.
// The gap may hold Unicode spaces such as NBSP.
var slideDelimiter = regexp.MustCompile(`(?i)(?:^|\n)Slide[\s\p{Zs}]+\d+:`)

// bulletMarker matches a leading "-" or "•" and the whitespace after it.
var bulletMarker = regexp.MustCompile(`^[-•][\s\p{Zs}]*`)

// Parse splits raw into slide blocks and classifies each block's lines.
//
// Blocks are keyed by their position (slide_1, slide_2, ...); the number written in a
// "Slide N:" marker is discarded, so text before the first marker becomes slide_1 and
// out-of-order markers are renumbered. Within a block the first line is the title, the next
// non-bullet line the subtitle, lines starting with "-" or "•" are bullets and everything
// else is joined into the paragraph.
//
// Parse never fails; empty or whitespace-only input yields an empty Deck.
func Parse(raw string) slides.Deck {
	deck := slides.Deck{}
	for _, block := range slideDelimiter.Split(raw, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		deck = append(deck, slides.Slide{
			Key:     slides.Key(len(deck) + 1),
			Content: parseBlock(block),
		})
	}
	return deck
}

func parseBlock(block string) slides.Content {
	var (
		content   slides.Content
		bullets   []string
		paragraph []string
	)
	for _, line := range splitLines(block) {
		switch {
		case !content.Title.IsPresent():
			content.Title = slides.Some(line)
		case IsBullet(line):
			bullets = append(bullets, StripBullet(line))
		case !content.Subtitle.IsPresent():
			content.Subtitle = slides.Some(line)
		default:
			paragraph = append(paragraph, line)
		}
	}
	if len(bullets) > 0 {
		content.Bullets = slides.Some(bullets)
	}
	if len(paragraph) > 0 {
		content.Paragraph = slides.Some(strings.Join(paragraph, " "))
	}
	return content
}

// splitLines returns the trimmed, non-empty lines of s.
func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// IsBullet reports whether line starts with a bullet marker.
func IsBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•")
}

// StripBullet removes a leading bullet marker and the whitespace following it.
func StripBullet(line string) string {
	return bulletMarker.ReplaceAllString(line, "")
}
