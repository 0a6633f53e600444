// Package pptx reads and rewrites PowerPoint (.pptx) packages. A .pptx is a ZIP of Office
// Open XML parts; slides live in ppt/slides/slideN.xml and their presentation order is
// given by ppt/presentation.xml. Shapes are located and rewritten on the raw slide XML so
// that everything this package does not touch is preserved byte for byte.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	presentationPath     = "ppt/presentation.xml"
	presentationRelsPath = "ppt/_rels/presentation.xml.rels"
	slideRelType         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
)

// slideFileRe matches slide part names and captures the file number.
var slideFileRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type pkg struct {
	zr    *zip.Reader
	files map[string]*zip.File
}

func openPackage(content []byte) (*pkg, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return &pkg{zr: zr, files: files}, nil
}

func (p *pkg) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// slideParts returns the slide part names in presentation order. When the presentation
// part or its relationships cannot be resolved, slides are ordered by file number.
func (p *pkg) slideParts() []string {
	if parts := p.presentationOrder(); len(parts) > 0 {
		return parts
	}
	type numbered struct {
		name string
		num  int
	}
	var found []numbered
	for _, f := range p.zr.File {
		m := slideFileRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, numbered{name: f.Name, num: n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })
	parts := make([]string, len(found))
	for i, f := range found {
		parts[i] = f.name
	}
	return parts
}

func (p *pkg) presentationOrder() []string {
	presXML, err := p.read(presentationPath)
	if err != nil {
		return nil
	}
	relsXML, err := p.read(presentationRelsPath)
	if err != nil {
		return nil
	}
	targets := map[string]string{}
	dec := xml.NewDecoder(bytes.NewReader(relsXML))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "Relationship" {
			continue
		}
		var id, typ, target string
		for _, a := range el.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Type":
				typ = a.Value
			case "Target":
				target = a.Value
			}
		}
		if typ != slideRelType {
			continue
		}
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join("ppt", target)
		}
		targets[id] = target
	}

	var parts []string
	dec = xml.NewDecoder(bytes.NewReader(presXML))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "sldId" {
			continue
		}
		for _, a := range el.Attr {
			// sldId carries a numeric id and a relationship r:id; only the latter is namespaced.
			if a.Name.Local != "id" || a.Name.Space == "" {
				continue
			}
			if target, ok := targets[a.Value]; ok {
				if _, exists := p.files[target]; exists {
					parts = append(parts, target)
				}
			}
		}
	}
	return parts
}

// write returns a copy of the package with the named parts replaced. Untouched entries are
// copied without recompression.
func (p *pkg) write(replaced map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range p.zr.File {
		data, ok := replaced[f.Name]
		if !ok {
			if err := w.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
