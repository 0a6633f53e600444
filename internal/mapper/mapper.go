// Package mapper resolves template placeholder tokens to slide content values.
package mapper

import (
	"fmt"
	"os"

	"github.com/hyperjump/deckfill/internal/slides"
)

// Artifact names used in errors.
const (
	ArtifactMappedContent = "mapped-content"
	ArtifactUserContent   = "user-content"
)

// ArtifactError reports an artifact that could not be read or is not well-formed JSON.
type ArtifactError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// Map pairs each slide's placeholder tokens with that slide's flattened content fields by
// position. The placeholder map is authoritative: slides missing from content resolve every
// token to "", tokens past the last field resolve to "", fields past the last token are
// dropped, and slides present only in content are ignored.
//
// A placeholder key that is not of the form slide_<n> fails the whole call with a
// *slides.KeyError.
func Map(placeholders slides.PlaceholderMap, content slides.Deck) (slides.Resolved, error) {
	result := make(slides.Resolved, len(placeholders))
	for _, sp := range placeholders {
		num, err := slides.Number(sp.Key)
		if err != nil {
			return nil, err
		}
		c, _ := content.Lookup(sp.Key)
		result[num] = resolveSlide(sp.Tokens, c.Fields())
	}
	return result, nil
}

func resolveSlide(tokens, fields []string) map[string]string {
	values := make(map[string]string, len(tokens))
	for i, token := range tokens {
		if i < len(fields) {
			values[token] = fields[i]
		} else {
			values[token] = ""
		}
	}
	return values
}

// MapFiles reads the mapped-content artifact at mappedPath and the user-content artifact at
// userPath and maps them. Read and decode failures are returned as *ArtifactError.
func MapFiles(mappedPath, userPath string) (slides.Resolved, error) {
	placeholders, err := LoadPlaceholderMap(mappedPath)
	if err != nil {
		return nil, err
	}
	content, err := LoadDeck(userPath)
	if err != nil {
		return nil, err
	}
	return Map(placeholders, content)
}

// LoadPlaceholderMap reads a mapped-content artifact.
func LoadPlaceholderMap(path string) (slides.PlaceholderMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactError{Artifact: ArtifactMappedContent, Path: path, Err: err}
	}
	m, err := slides.DecodePlaceholderMap(data)
	if err != nil {
		return nil, &ArtifactError{Artifact: ArtifactMappedContent, Path: path, Err: err}
	}
	return m, nil
}

// LoadDeck reads a user-content artifact.
func LoadDeck(path string) (slides.Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactError{Artifact: ArtifactUserContent, Path: path, Err: err}
	}
	d, err := slides.DecodeDeck(data)
	if err != nil {
		return nil, &ArtifactError{Artifact: ArtifactUserContent, Path: path, Err: err}
	}
	return d, nil
}
