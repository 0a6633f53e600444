package mapper

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/deckfill/internal/slides"
)

func TestMap_unmatchedPlaceholdersAreEmpty(t *testing.T) {
	ph := slides.PlaceholderMap{{Key: "slide_1", Tokens: []string{"{{A}}", "{{B}}", "{{C}}"}}}
	deck := slides.Deck{{Key: "slide_1", Content: slides.Content{Title: slides.Some("T")}}}
	got, err := Map(ph, deck)
	if err != nil {
		t.Fatal(err)
	}
	want := slides.Resolved{1: {"{{A}}": "T", "{{B}}": "", "{{C}}": ""}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMap_extraContentDropped(t *testing.T) {
	ph := slides.PlaceholderMap{{Key: "slide_1", Tokens: []string{"{{A}}"}}}
	deck := slides.Deck{{Key: "slide_1", Content: slides.Content{
		Title:    slides.Some("T"),
		Subtitle: slides.Some("S"),
	}}}
	got, err := Map(ph, deck)
	if err != nil {
		t.Fatal(err)
	}
	want := slides.Resolved{1: {"{{A}}": "T"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMap_fieldOrder(t *testing.T) {
	ph := slides.PlaceholderMap{{Key: "slide_2", Tokens: []string{"t", "s", "b1", "b2", "p", "i"}}}
	deck := slides.Deck{{Key: "slide_2", Content: slides.Content{
		Title:     slides.Some("Title"),
		Subtitle:  slides.Some("Sub"),
		Bullets:   slides.Some([]string{"one", "two"}),
		Paragraph: slides.Some("Para"),
		Image:     slides.Some("pic.png"),
	}}}
	got, err := Map(ph, deck)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"t": "Title", "s": "Sub", "b1": "one", "b2": "two", "p": "Para", "i": "pic.png"}
	if !reflect.DeepEqual(got[2], want) {
		t.Errorf("got %v, want %v", got[2], want)
	}
}

func TestMap_absentFieldsShiftPositions(t *testing.T) {
	ph := slides.PlaceholderMap{{Key: "slide_1", Tokens: []string{"x", "y"}}}
	deck := slides.Deck{{Key: "slide_1", Content: slides.Content{
		Title:     slides.Some("T"),
		Paragraph: slides.Some("P"),
	}}}
	got, _ := Map(ph, deck)
	if got[1]["y"] != "P" {
		t.Errorf("y: got %q, want P", got[1]["y"])
	}
}

func TestMap_missingSlideContent(t *testing.T) {
	ph := slides.PlaceholderMap{
		{Key: "slide_1", Tokens: []string{"{{A}}"}},
		{Key: "slide_2", Tokens: []string{"{{B}}", "{{C}}"}},
	}
	deck := slides.Deck{{Key: "slide_1", Content: slides.Content{Title: slides.Some("T")}}}
	got, err := Map(ph, deck)
	if err != nil {
		t.Fatal(err)
	}
	want := slides.Resolved{1: {"{{A}}": "T"}, 2: {"{{B}}": "", "{{C}}": ""}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMap_contentOnlySlidesIgnored(t *testing.T) {
	ph := slides.PlaceholderMap{{Key: "slide_1", Tokens: []string{"{{A}}"}}}
	deck := slides.Deck{
		{Key: "slide_1", Content: slides.Content{Title: slides.Some("T")}},
		{Key: "slide_3", Content: slides.Content{Title: slides.Some("ignored")}},
	}
	got, _ := Map(ph, deck)
	if len(got) != 1 {
		t.Errorf("got %d slides, want 1", len(got))
	}
	if _, ok := got[3]; ok {
		t.Error("slide 3 should not appear")
	}
}

func TestMap_emptyTokenList(t *testing.T) {
	ph := slides.PlaceholderMap{{Key: "slide_4", Tokens: nil}}
	got, err := Map(ph, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m, ok := got[4]; !ok || len(m) != 0 {
		t.Errorf("slide 4: got %v, present %v", m, ok)
	}
}

func TestMap_repeatedTokenLaterWins(t *testing.T) {
	ph := slides.PlaceholderMap{{Key: "slide_1", Tokens: []string{"{{X}}", "{{X}}"}}}
	deck := slides.Deck{{Key: "slide_1", Content: slides.Content{
		Title:    slides.Some("first"),
		Subtitle: slides.Some("second"),
	}}}
	got, _ := Map(ph, deck)
	if got[1]["{{X}}"] != "second" {
		t.Errorf("got %q", got[1]["{{X}}"])
	}
}

func TestMap_invalidKey(t *testing.T) {
	for _, key := range []string{"slide", "slide_", "page_1", "slide_1a", "slide_-1", "Slide_1", " slide_1"} {
		ph := slides.PlaceholderMap{{Key: key, Tokens: []string{"{{A}}"}}}
		_, err := Map(ph, nil)
		var keyErr *slides.KeyError
		if !errors.As(err, &keyErr) {
			t.Errorf("key %q: expected KeyError, got %v", key, err)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMapFiles(t *testing.T) {
	dir := t.TempDir()
	mapped := writeFile(t, dir, "mapped-content.json",
		`{"slide_2": ["{{TITLE_SLIDE_2}}"], "slide_1": ["{{TITLE_SLIDE_1}}", "{{CUSTOM_SLIDE_1}}"]}`)
	user := writeFile(t, dir, "user-content.json",
		`{"slide_1": {"title": "Hello", "bullets": ["a"]}, "slide_2": {"title": "Bye"}}`)
	got, err := MapFiles(mapped, user)
	if err != nil {
		t.Fatal(err)
	}
	want := slides.Resolved{
		1: {"{{TITLE_SLIDE_1}}": "Hello", "{{CUSTOM_SLIDE_1}}": "a"},
		2: {"{{TITLE_SLIDE_2}}": "Bye"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMapFiles_emptyStringsAreAbsent(t *testing.T) {
	dir := t.TempDir()
	mapped := writeFile(t, dir, "m.json", `{"slide_1": ["a", "b"]}`)
	user := writeFile(t, dir, "u.json", `{"slide_1": {"title": "", "subtitle": "S", "bullets": []}}`)
	got, err := MapFiles(mapped, user)
	if err != nil {
		t.Fatal(err)
	}
	if got[1]["a"] != "S" || got[1]["b"] != "" {
		t.Errorf("got %v", got[1])
	}
}

func TestMapFiles_artifactErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{"slide_1": ["{{A}}"]}`)
	goodUser := writeFile(t, dir, "good-user.json", `{}`)
	bad := writeFile(t, dir, "bad.json", `{"slide_1": [`)
	null := writeFile(t, dir, "null.json", `null`)
	array := writeFile(t, dir, "array.json", `["slide_1"]`)
	missing := filepath.Join(dir, "missing.json")

	tests := []struct {
		name     string
		mapped   string
		user     string
		artifact string
	}{
		{"missing mapped", missing, goodUser, ArtifactMappedContent},
		{"malformed mapped", bad, goodUser, ArtifactMappedContent},
		{"null mapped", null, goodUser, ArtifactMappedContent},
		{"array mapped", array, goodUser, ArtifactMappedContent},
		{"missing user", good, missing, ArtifactUserContent},
		{"malformed user", good, bad, ArtifactUserContent},
		{"null user", good, null, ArtifactUserContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapFiles(tt.mapped, tt.user)
			var artErr *ArtifactError
			if !errors.As(err, &artErr) {
				t.Fatalf("expected ArtifactError, got %v", err)
			}
			if artErr.Artifact != tt.artifact {
				t.Errorf("artifact: got %q, want %q", artErr.Artifact, tt.artifact)
			}
		})
	}
}

func TestMapFiles_invalidKeyFailsFast(t *testing.T) {
	dir := t.TempDir()
	mapped := writeFile(t, dir, "m.json", `{"slide_1": ["a"], "intro": ["b"]}`)
	user := writeFile(t, dir, "u.json", `{}`)
	_, err := MapFiles(mapped, user)
	var keyErr *slides.KeyError
	if !errors.As(err, &keyErr) || keyErr.Key != "intro" {
		t.Errorf("expected KeyError for intro, got %v", err)
	}
}
