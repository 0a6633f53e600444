package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/deckfill/internal/pptx"
	"github.com/hyperjump/deckfill/test/fixtures"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after file are moved first",
			args:     []string{"notes.txt", "-format", "json"},
			expected: []string{"-format", "json", "notes.txt"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-format", "json", "notes.txt"},
			expected: []string{"-format", "json", "notes.txt"},
		},
		{
			name:     "stdin dash is not a flag",
			args:     []string{"-"},
			expected: []string{"-"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "two files then flags",
			args:     []string{"a.json", "b.json", "-format", "json"},
			expected: []string{"-format", "json", "a.json", "b.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 5050
storage:
  database_path: "./test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug || cfg.Server.Port != 5050 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func TestRunParse_stdin(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("Slide 1:\nHello\n- one\nSlide 2:\nBye")
	outPath := filepath.Join(t.TempDir(), "user-content.json")
	if err := runParse([]string{"-format", "json", "-out", outPath}, in, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"slide_2"`) {
		t.Errorf("output:\n%s", out.String())
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"bullets": [`) {
		t.Errorf("artifact:\n%s", data)
	}
}

func TestRunParse_spreadsheetKeepsColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.xlsx")
	if err := os.WriteFile(path, fixtures.Xlsx([][]string{{"", "Sub only"}}), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := runParse([]string{path, "-format", "json"}, strings.NewReader(""), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"subtitle": "Sub only"`) || strings.Contains(out.String(), `"title"`) {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestRunMap_files(t *testing.T) {
	dir := t.TempDir()
	mapped := filepath.Join(dir, "mapped-content.json")
	user := filepath.Join(dir, "user-content.json")
	os.WriteFile(mapped, []byte(`{"slide_1":["{{TITLE_SLIDE_1}}","{{SUBTITLE_SLIDE_1}}"]}`), 0644)
	os.WriteFile(user, []byte(`{"slide_1":{"title":"Hello"}}`), 0644)

	var out bytes.Buffer
	if err := runMap([]string{mapped, user}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `{{TITLE_SLIDE_1}} = "Hello"`) || !strings.Contains(out.String(), `{{SUBTITLE_SLIDE_1}} = ""`) {
		t.Errorf("output:\n%s", out.String())
	}

	if err := runMap([]string{mapped}, &out); err == nil {
		t.Error("expected usage error for a single argument")
	}
}

func TestWorkspaceCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./deckfill.db"
  workspace_dir: "./workspace"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	templatePath := filepath.Join(dir, "template.pptx")
	if err := os.WriteFile(templatePath, fixtures.Template(), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runPreprocess([]string{templatePath, "-config", configPath}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "6 placeholder(s) on 2 slide(s)") {
		t.Errorf("preprocess output:\n%s", out.String())
	}

	out.Reset()
	in := strings.NewReader("Slide 1:\nAcme\nReview\nSlide 2:\nAgenda items\n- First\n- Second")
	if err := runContent([]string{"-config", configPath, "-"}, in, &out); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := runMap([]string{"-config", configPath}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `{{CONTENT_SLIDE_2}} = "First"`) {
		t.Errorf("map output:\n%s", out.String())
	}

	out.Reset()
	final := filepath.Join(dir, "deck.pptx")
	if err := runGenerate([]string{"-config", configPath, "-out", final}, &out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatal(err)
	}
	text, err := pptx.SlideText(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(text) != 2 || text[0][0] != "Acme" {
		t.Errorf("generated text: %v", text)
	}

	out.Reset()
	if err := runStatus([]string{"-config", configPath}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "1 generation(s)") {
		t.Errorf("status output:\n%s", out.String())
	}
}
