package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// odfContentPath is the path to the main content inside OpenDocument packages.
const odfContentPath = "content.xml"

var (
	odpPage = regexp.MustCompile(`(?s)<draw:page\b[^>]*>.*?</draw:page>`)
	// odfParagraph matches text:p and text:h elements with their nested spans.
	odfParagraph = regexp.MustCompile(`(?s)<text:(?:p|h)\b[^>]*>(.*?)</text:(?:p|h)>`)
	odfEmpty     = regexp.MustCompile(`<text:(?:p|h)\b[^>]*/>`)
	odfTag       = regexp.MustCompile(`<[^>]+>`)
	odfSpace     = regexp.MustCompile(`<text:(?:s|tab|line-break)\b[^>]*/>`)
	odpNotes     = regexp.MustCompile(`(?s)<presentation:notes\b.*?</presentation:notes>`)
)

func readODFContent(content []byte, format string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	data, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	return string(data), nil
}

// odfParagraphs returns the non-empty paragraph texts of an OpenDocument fragment.
func odfParagraphs(fragment string) []string {
	var lines []string
	fragment = odfEmpty.ReplaceAllString(fragment, "")
	for _, m := range odfParagraph.FindAllStringSubmatch(fragment, -1) {
		text := odfSpace.ReplaceAllString(m[1], " ")
		text = strings.TrimSpace(html.UnescapeString(odfTag.ReplaceAllString(text, "")))
		if text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

// extractODP renders an OpenDocument presentation slide by slide. Speaker notes are dropped.
func extractODP(content []byte) (string, error) {
	contentXML, err := readODFContent(content, "ODP")
	if err != nil {
		return "", err
	}
	var slides [][]string
	for _, page := range odpPage.FindAllString(contentXML, -1) {
		slides = append(slides, odfParagraphs(odpNotes.ReplaceAllString(page, "")))
	}
	return renderSlides(slides), nil
}
