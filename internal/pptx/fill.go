package pptx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/deckfill/internal/slides"
)

// FillStats summarises a Fill run.
type FillStats struct {
	Slides   int      // slides in the presentation
	Replaced int      // shapes whose text was replaced
	Unused   []string // tokens whose value was not written, sorted
}

// Fill writes resolved values into a template. For slide N, every text shape whose text
// contains one of slide N's tokens has its whole text replaced by that token's value. When a
// shape holds several tokens, the one occurring first wins. Slides without an entry in
// resolved are left untouched. Image placeholders, named after their token, are never
// text-filled; a non-empty value resolved for one is reported in Unused.
func Fill(template []byte, resolved slides.Resolved) ([]byte, *FillStats, error) {
	p, err := openPackage(template)
	if err != nil {
		return nil, nil, fmt.Errorf("fill PPTX: %w", err)
	}
	parts := p.slideParts()
	stats := &FillStats{Slides: len(parts)}
	replaced := map[string][]byte{}
	for i, part := range parts {
		values, ok := resolved[i+1]
		if !ok || len(values) == 0 {
			continue
		}
		data, err := p.read(part)
		if err != nil {
			return nil, nil, fmt.Errorf("fill PPTX: %w", err)
		}
		tokens := sortedTokens(values)
		used := map[string]bool{}
		out, changed := rewriteShapes(string(data), func(sh shape) (string, bool) {
			if v, named := values[sh.name()]; named {
				used[sh.name()] = v == ""
				return "", false
			}
			if !sh.hasTextBody() {
				return "", false
			}
			token, ok := firstToken(sh.text(), tokens)
			if !ok {
				return "", false
			}
			used[token] = true
			stats.Replaced++
			return sh.withText(values[token]), true
		})
		if changed {
			replaced[part] = []byte(out)
		}
		for _, t := range tokens {
			if !used[t] {
				stats.Unused = append(stats.Unused, t)
			}
		}
	}
	out, err := p.write(replaced)
	if err != nil {
		return nil, nil, fmt.Errorf("fill PPTX: %w", err)
	}
	sort.Strings(stats.Unused)
	return out, stats, nil
}

func sortedTokens(values map[string]string) []string {
	tokens := make([]string, 0, len(values))
	for t := range values {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// firstToken returns the token occurring earliest in text; ties go to the longer token.
func firstToken(text string, tokens []string) (string, bool) {
	best, bestAt := "", -1
	for _, t := range tokens {
		at := strings.Index(text, t)
		if at < 0 {
			continue
		}
		if bestAt < 0 || at < bestAt || (at == bestAt && len(t) > len(best)) {
			best, bestAt = t, at
		}
	}
	return best, bestAt >= 0
}
