package pptx

import (
	"fmt"
	"regexp"

	"github.com/hyperjump/deckfill/internal/slides"
)

// tokenRe matches a {{NAME}} placeholder token.
var tokenRe = regexp.MustCompile(`\{\{[^{}]+\}\}`)

// Placeholders lists the tokens already present in a template, per slide in presentation
// order. Tokens found in shape text come first in shape order, followed by tokens used as
// shape names (image placeholders). A token repeated on one slide is listed once.
func Placeholders(content []byte) (slides.PlaceholderMap, error) {
	p, err := openPackage(content)
	if err != nil {
		return nil, fmt.Errorf("scan PPTX: %w", err)
	}
	result := slides.PlaceholderMap{}
	for i, part := range p.slideParts() {
		data, err := p.read(part)
		if err != nil {
			return nil, fmt.Errorf("scan PPTX: %w", err)
		}
		seen := map[string]bool{}
		tokens := []string{}
		add := func(t string) {
			if !seen[t] {
				seen[t] = true
				tokens = append(tokens, t)
			}
		}
		var named []string
		for _, sh := range findShapes(string(data)) {
			if name := sh.name(); name != "" && tokenRe.FindString(name) == name {
				named = append(named, name)
			}
			for _, t := range tokenRe.FindAllString(sh.text(), -1) {
				add(t)
			}
		}
		for _, t := range named {
			add(t)
		}
		result = append(result, slides.SlidePlaceholders{Key: slides.Key(i + 1), Tokens: tokens})
	}
	return result, nil
}

// SlideCount returns the number of slides in a presentation.
func SlideCount(content []byte) (int, error) {
	p, err := openPackage(content)
	if err != nil {
		return 0, fmt.Errorf("count slides: %w", err)
	}
	return len(p.slideParts()), nil
}
