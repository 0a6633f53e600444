package pptx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/deckfill/internal/slides"
)

// Placeholder kinds assigned by Preprocess.
const (
	KindTitle    = "TITLE"
	KindSubtitle = "SUBTITLE"
	KindHeader   = "HEADER"
	KindContent  = "CONTENT"
	KindCustom   = "CUSTOM"
	KindImage    = "IMAGE"
)

// headerOffsetEMU is the top offset below which an otherwise unclassified shape is a header.
const headerOffsetEMU = 100

// defaultTextPatterns match the prompt text PowerPoint puts in empty placeholders.
var defaultTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)click\s+to\s+add`),
	regexp.MustCompile(`(?i)insert\s+your\s+text`),
	regexp.MustCompile(`(?i)type\s+here`),
	regexp.MustCompile(`(?i)your\s+text\s+here`),
}

var (
	headingTextRe = regexp.MustCompile(`(?i)\b(title|heading)\b`)
	contentTextRe = regexp.MustCompile(`(?i)\b(content|body)\b`)
)

// Token returns the placeholder token for kind on slide n.
func Token(kind string, slide int) string {
	return fmt.Sprintf("{{%s_SLIDE_%d}}", kind, slide)
}

// PreprocessResult is the outcome of Preprocess.
type PreprocessResult struct {
	// Content is the rewritten presentation.
	Content []byte
	// Placeholders lists every slide in presentation order with its text tokens in shape
	// order followed by its image tokens.
	Placeholders slides.PlaceholderMap
	// Renamed maps each token to the text the shape held before it was replaced.
	Renamed map[string]string
}

// Preprocess standardises a template's placeholders. Every text shape with real text
// (not PowerPoint's "Click to add ..." prompts) has its text replaced by a token
// {{KIND_SLIDE_N}}, and every empty picture placeholder is renamed to {{IMAGE_SLIDE_N}}.
// A kind that repeats on one slide gets a numeric suffix so tokens stay unique per slide.
// Image tokens are listed after the text tokens of their slide so that content fields are
// never mapped onto a picture.
func Preprocess(content []byte) (*PreprocessResult, error) {
	p, err := openPackage(content)
	if err != nil {
		return nil, fmt.Errorf("preprocess PPTX: %w", err)
	}
	res := &PreprocessResult{
		Placeholders: slides.PlaceholderMap{},
		Renamed:      map[string]string{},
	}
	replaced := map[string][]byte{}
	for i, part := range p.slideParts() {
		num := i + 1
		data, err := p.read(part)
		if err != nil {
			return nil, fmt.Errorf("preprocess PPTX: %w", err)
		}
		counts := map[string]int{}
		tokens := []string{}
		var images []string
		next := func(kind string) string {
			counts[kind]++
			if counts[kind] == 1 {
				return Token(kind, num)
			}
			return fmt.Sprintf("{{%s_SLIDE_%d_%d}}", kind, num, counts[kind])
		}
		out, changed := rewriteShapes(string(data), func(sh shape) (string, bool) {
			text := strings.TrimSpace(sh.text())
			if isImagePlaceholder(sh, text) {
				token := next(KindImage)
				images = append(images, token)
				res.Renamed[token] = sh.name()
				return sh.withName(token), true
			}
			if !sh.hasTextBody() || text == "" || isDefaultText(text) {
				return "", false
			}
			token := next(detectKind(sh, text))
			tokens = append(tokens, token)
			res.Renamed[token] = text
			return sh.withText(token), true
		})
		if changed {
			replaced[part] = []byte(out)
		}
		res.Placeholders = append(res.Placeholders, slides.SlidePlaceholders{
			Key:    slides.Key(num),
			Tokens: append(tokens, images...),
		})
	}
	res.Content, err = p.write(replaced)
	if err != nil {
		return nil, fmt.Errorf("preprocess PPTX: %w", err)
	}
	return res, nil
}

func isImagePlaceholder(sh shape, text string) bool {
	if sh.placeholderType() != "pic" {
		return false
	}
	return sh.isPicture() || text == ""
}

func isDefaultText(text string) bool {
	for _, re := range defaultTextPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func detectKind(sh shape, text string) string {
	name := strings.ToLower(sh.name())
	switch {
	case strings.Contains(name, "subtitle"):
		return KindSubtitle
	case strings.Contains(name, "title"):
		return KindTitle
	case headingTextRe.MatchString(text):
		return KindHeader
	case contentTextRe.MatchString(text):
		return KindContent
	}
	if y, ok := sh.offsetY(); ok && y < headerOffsetEMU {
		return KindHeader
	}
	return KindCustom
}
