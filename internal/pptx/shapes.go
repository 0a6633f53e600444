package pptx

import (
	"bytes"
	"encoding/xml"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	// shapeRe matches a whole <p:sp> or <p:pic> element. Neither element nests inside the other.
	shapeRe = regexp.MustCompile(`(?s)<p:(?:sp|pic)(?:\s[^>]*)?>.*?</p:(?:sp|pic)>`)

	cNvPrNameRe = regexp.MustCompile(`<p:cNvPr\b[^>]*?\sname="([^"]*)"`)
	phTypeRe    = regexp.MustCompile(`<p:ph\b[^>]*?\stype="([^"]*)"`)
	offYRe      = regexp.MustCompile(`<a:off\b[^>]*?\sy="(-?\d+)"`)
	txBodyRe    = regexp.MustCompile(`(?s)<p:txBody(?:\s[^>]*)?>(.*?)</p:txBody>`)
	paragraphRe = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>.*?</a:p>|<a:p(?:\s[^>]*)?/>`)
	pPrRe       = regexp.MustCompile(`(?s)<a:pPr(?:\s[^>]*)?/>|<a:pPr(?:\s[^>]*)?>.*?</a:pPr>`)
	runRe       = regexp.MustCompile(`(?s)<a:r(?:\s[^>]*)?>.*?</a:r>`)
	rPrRe       = regexp.MustCompile(`(?s)<a:rPr(?:\s[^>]*)?/>|<a:rPr(?:\s[^>]*)?>.*?</a:rPr>`)

	// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t>.
	atTag = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
)

// shape is one <p:sp> or <p:pic> element located in a slide's XML.
type shape struct {
	start, end int
	xml        string
}

func findShapes(slideXML string) []shape {
	locs := shapeRe.FindAllStringIndex(slideXML, -1)
	shapes := make([]shape, len(locs))
	for i, loc := range locs {
		shapes[i] = shape{start: loc[0], end: loc[1], xml: slideXML[loc[0]:loc[1]]}
	}
	return shapes
}

func (s shape) isPicture() bool {
	return strings.HasPrefix(s.xml, "<p:pic")
}

func (s shape) name() string {
	if m := cNvPrNameRe.FindStringSubmatch(s.xml); m != nil {
		return html.UnescapeString(m[1])
	}
	return ""
}

func (s shape) placeholderType() string {
	if m := phTypeRe.FindStringSubmatch(s.xml); m != nil {
		return m[1]
	}
	return ""
}

// offsetY returns the shape's top offset in EMU when the shape sets one explicitly.
func (s shape) offsetY() (int64, bool) {
	m := offYRe.FindStringSubmatch(s.xml)
	if m == nil {
		return 0, false
	}
	y, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return y, true
}

func (s shape) hasTextBody() bool {
	return txBodyRe.MatchString(s.xml)
}

// text returns the shape text: runs concatenated, paragraphs joined with "\n".
func (s shape) text() string {
	m := txBodyRe.FindStringSubmatch(s.xml)
	if m == nil {
		return ""
	}
	paras := paragraphRe.FindAllString(m[1], -1)
	lines := make([]string, len(paras))
	for i, p := range paras {
		var b strings.Builder
		for _, t := range atTag.FindAllStringSubmatch(p, -1) {
			b.WriteString(html.UnescapeString(t[1]))
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// withText returns the shape XML with its text body reduced to one paragraph holding text.
// Body properties, the first paragraph's properties and the first run's properties are kept.
func (s shape) withText(text string) string {
	loc := txBodyRe.FindStringSubmatchIndex(s.xml)
	if loc == nil {
		return s.xml
	}
	inner := s.xml[loc[2]:loc[3]]
	prefix, para := inner, ""
	if p := paragraphRe.FindStringIndex(inner); p != nil {
		prefix, para = inner[:p[0]], inner[p[0]:p[1]]
	}
	rPr := ""
	if run := runRe.FindString(para); run != "" {
		rPr = rPrRe.FindString(run)
	}
	var b strings.Builder
	b.WriteString(s.xml[:loc[2]])
	b.WriteString(prefix)
	b.WriteString("<a:p>")
	b.WriteString(pPrRe.FindString(para))
	b.WriteString("<a:r>")
	b.WriteString(rPr)
	b.WriteString("<a:t>")
	b.WriteString(escapeText(text))
	b.WriteString("</a:t></a:r></a:p>")
	b.WriteString(s.xml[loc[3]:])
	return b.String()
}

// withName returns the shape XML with its non-visual name attribute set to name.
func (s shape) withName(name string) string {
	loc := cNvPrNameRe.FindStringSubmatchIndex(s.xml)
	if loc == nil {
		return s.xml
	}
	return s.xml[:loc[2]] + escapeText(name) + s.xml[loc[3]:]
}

func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// rewriteShapes rebuilds slideXML, replacing each shape for which fn returns ok.
func rewriteShapes(slideXML string, fn func(sh shape) (string, bool)) (string, bool) {
	var b strings.Builder
	last, changed := 0, false
	for _, sh := range findShapes(slideXML) {
		replacement, ok := fn(sh)
		if !ok {
			continue
		}
		b.WriteString(slideXML[last:sh.start])
		b.WriteString(replacement)
		last = sh.end
		changed = true
	}
	if !changed {
		return slideXML, false
	}
	b.WriteString(slideXML[last:])
	return b.String(), true
}
