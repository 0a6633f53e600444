package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/deckfill/internal/models"
	"github.com/hyperjump/deckfill/internal/parser"
	"github.com/hyperjump/deckfill/internal/pipeline"
	"github.com/hyperjump/deckfill/internal/slides"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestWriteDeck(t *testing.T) {
	deck := parser.Parse("Slide 1:\nHello\nWorld\n- one\nSlide 2:\nBye")

	var buf bytes.Buffer
	if err := WriteDeck(&buf, deck, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2 slide(s)", "[slide_1]", "title:     Hello", "bullet:    one", "[slide_2]"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteDeck(&buf, deck, OutputJSON); err != nil {
		t.Fatal(err)
	}
	decoded, err := slides.DecodeDeck(buf.Bytes())
	if err != nil {
		t.Fatalf("output is not a deck: %v\n%s", err, buf.String())
	}
	if len(decoded) != 2 || decoded[0].Content.Title.OrElse("") != "Hello" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteMapping(t *testing.T) {
	resolved := slides.Resolved{
		2: {"{{TITLE_SLIDE_2}}": "Second"},
		1: {"{{TITLE_SLIDE_1}}": "First", "{{SUBTITLE_SLIDE_1}}": ""},
	}
	var buf bytes.Buffer
	if err := WriteMapping(&buf, resolved, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, "slide_1") > strings.Index(out, "slide_2") {
		t.Errorf("slides out of order:\n%s", out)
	}
	if !strings.Contains(out, `{{TITLE_SLIDE_1}} = "First"`) {
		t.Errorf("text output:\n%s", out)
	}

	buf.Reset()
	if err := WriteMapping(&buf, resolved, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["slide_2"]["{{TITLE_SLIDE_2}}"] != "Second" {
		t.Errorf("decoded: %v", decoded)
	}
}

func TestWritePlaceholders(t *testing.T) {
	m := slides.PlaceholderMap{{Key: "slide_1", Tokens: []string{"{{TITLE_SLIDE_1}}", "{{CONTENT_SLIDE_1}}"}}}
	var buf bytes.Buffer
	if err := WritePlaceholders(&buf, m, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "2 placeholder(s) on 1 slide(s)") {
		t.Errorf("got:\n%s", buf.String())
	}
}

func TestWriteGenerationAndStatus(t *testing.T) {
	gen := &models.Generation{ID: "g1", TemplateID: "tpl_1", Replaced: 3, Unused: []string{"{{X_SLIDE_1}}"}, OutputPath: "/out.pptx"}
	var buf bytes.Buffer
	if err := WriteGeneration(&buf, gen, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "unused:     {{X_SLIDE_1}}") {
		t.Errorf("generation:\n%s", buf.String())
	}

	buf.Reset()
	st := &pipeline.Status{Workspace: "/ws", HasContent: true, Generations: 2, DiskUsageBytes: 2048}
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Template:    none", "Content:     yes", "2 generation(s)", "2.0 KiB"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("status missing %q:\n%s", want, buf.String())
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 7, "this is..."},
		{"héllo wörld", 5, "héllo..."},
		{"any", 0, "any"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
	}
	if got := TruncateWords("a b c d", 2); got != "a b..." {
		t.Errorf("TruncateWords: got %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 5 << 20: "5.0 MiB"}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
