// Package extract turns uploaded content files into text in the "Slide N:" format read by
// the content parser. Flowing documents (plain text, DOCX, PDF, RTF, ODT) are passed through
// line by line; presentations and spreadsheets are rendered slide by slide. ExtractDeck goes
// one step further and returns slide content, reading spreadsheet columns as fields.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/deckfill/internal/parser"
	"github.com/hyperjump/deckfill/internal/slides"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported content format")

// SupportedExtensions lists the content file extensions ExtractBytes accepts.
var SupportedExtensions = []string{
	".txt", ".md", ".text",
	".docx", ".pdf", ".rtf", ".odt",
	".pptx", ".odp",
	".xlsx", ".ods",
}

// Extractor extracts slide text from content files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot, any case) can be extracted.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"); an empty ext is read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".text", "":
		return extractPlain(content)
	case ".docx":
		return extractDOCX(content)
	case ".pdf":
		return extractPDF(content)
	case ".rtf", ".odt":
		return extractWithCat(content, ext)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return extractODP(content)
	case ".xlsx", ".ods":
		deck, err := spreadsheetDeck(content, ext)
		if err != nil {
			return "", err
		}
		return renderSlides(deckLines(deck)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ExtractDeck returns the slide content of a content file. Spreadsheet columns map straight
// to fields, so empty cells stay empty instead of shifting later columns; every other format
// is extracted as text and parsed.
func (e *Extractor) ExtractDeck(content []byte, ext string) (slides.Deck, error) {
	switch strings.ToLower(ext) {
	case ".xlsx", ".ods":
		return spreadsheetDeck(content, ext)
	}
	text, err := e.ExtractBytes(content, ext)
	if err != nil {
		return nil, err
	}
	return parser.Parse(text), nil
}

func spreadsheetDeck(content []byte, ext string) (slides.Deck, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(ext, ".ods") {
		rows, err = odsRows(content)
	} else {
		rows, err = excelRows(content)
	}
	if err != nil {
		return nil, err
	}
	return rowsToDeck(rows), nil
}
