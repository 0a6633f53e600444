package extract

import (
	"fmt"

	"github.com/hyperjump/deckfill/internal/pptx"
)

// extractPPTX renders an existing presentation as slide text so its content can be reused
// with another template. Each paragraph becomes one line.
func extractPPTX(content []byte) (string, error) {
	slides, err := pptx.SlideText(content)
	if err != nil {
		return "", fmt.Errorf("extract PPTX: %w", err)
	}
	return renderSlides(slides), nil
}
