// Package fixtures builds minimal presentation and content files for tests.
package fixtures

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Shape describes one shape on a fixture slide.
type Shape struct {
	Name       string
	Y          int // top offset in EMU; negative omits the offset
	Paragraphs []string
	Picture    bool // picture placeholder (<p:pic> with <p:ph type="pic">)
}

// Text returns a text shape.
func Text(name string, y int, paragraphs ...string) Shape {
	return Shape{Name: name, Y: y, Paragraphs: paragraphs}
}

// Picture returns an empty picture placeholder.
func Picture(name string) Shape {
	return Shape{Name: name, Picture: true}
}

func (s Shape) xml(id int) string {
	if s.Picture {
		return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr><p:ph type="pic" idx="1"/></p:nvPr></p:nvPicPr><p:blipFill/><p:spPr/></p:pic>`, id, s.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`, id, s.Name)
	if s.Y >= 0 {
		fmt.Fprintf(&b, `<p:spPr><a:xfrm><a:off x="457200" y="%d"/><a:ext cx="8229600" cy="1143000"/></a:xfrm></p:spPr>`, s.Y)
	} else {
		b.WriteString(`<p:spPr/>`)
	}
	b.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, p := range s.Paragraphs {
		fmt.Fprintf(&b, `<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>%s</a:t></a:r></a:p>`, p)
	}
	b.WriteString(`</p:txBody></p:sp>`)
	return b.String()
}

// Pptx returns a presentation with one slide per argument, listed in order by
// ppt/presentation.xml.
func Pptx(slideShapes ...[]Shape) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	write := func(name, content string) {
		fw, _ := w.Create(name)
		_, _ = fw.Write([]byte(content))
	}
	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`)
	var ids, rels strings.Builder
	for i, shapes := range slideShapes {
		var tree strings.Builder
		for j, sh := range shapes {
			tree.WriteString(sh.xml(j + 2))
		}
		write(fmt.Sprintf("ppt/slides/slide%d.xml", i+1),
			`<?xml version="1.0" encoding="UTF-8"?><p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>`+
				tree.String()+`</p:spTree></p:cSld></p:sld>`)
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+2, i+1)
	}
	write("ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8"?><p:presentation xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst>`+ids.String()+`</p:sldIdLst></p:presentation>`)
	write("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+rels.String()+`</Relationships>`)
	_ = w.Close()
	return buf.Bytes()
}

// Template returns a two-slide template. Preprocessing it yields
//
//	slide_1: {{TITLE_SLIDE_1}}, {{SUBTITLE_SLIDE_1}}
//	slide_2: {{TITLE_SLIDE_2}}, {{CONTENT_SLIDE_2}}, {{CUSTOM_SLIDE_2}}, {{IMAGE_SLIDE_2}}
func Template() []byte {
	return Pptx(
		[]Shape{
			Text("Title 1", 2130425, "Company Overview"),
			Text("Subtitle 2", 3886200, "Presented by the team"),
		},
		[]Shape{
			Text("Title 1", 274638, "Agenda"),
			Text("Content Placeholder 2", 1600200, "Body text goes here"),
			Text("TextBox 3", 5500000, "Footnote"),
			Picture("Picture Placeholder 4"),
			Text("TextBox 5", 6000000, "Click to add notes"),
		},
	)
}

// Docx returns a document with one paragraph per line.
func Docx(lines ...string) []byte {
	var body strings.Builder
	for _, l := range lines {
		body.WriteString(`<w:p><w:r><w:t>` + l + `</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

// Xlsx returns a workbook whose first sheet holds rows.
func Xlsx(rows [][]string) []byte {
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue("Sheet1", cell, v)
		}
	}
	var buf bytes.Buffer
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}
