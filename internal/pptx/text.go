package pptx

import (
	"fmt"
	"strings"
)

// SlideText returns the text of every slide in presentation order, one entry per non-empty
// paragraph in shape order.
func SlideText(content []byte) ([][]string, error) {
	p, err := openPackage(content)
	if err != nil {
		return nil, fmt.Errorf("read PPTX text: %w", err)
	}
	parts := p.slideParts()
	result := make([][]string, len(parts))
	for i, part := range parts {
		data, err := p.read(part)
		if err != nil {
			return nil, fmt.Errorf("read PPTX text: %w", err)
		}
		lines := []string{}
		for _, sh := range findShapes(string(data)) {
			for _, line := range strings.Split(sh.text(), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		}
		result[i] = lines
	}
	return result, nil
}
