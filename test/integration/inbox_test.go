package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/deckfill/internal/inbox"
	"github.com/hyperjump/deckfill/internal/models"
	"github.com/hyperjump/deckfill/internal/pipeline"
	"github.com/hyperjump/deckfill/internal/preprocess"
	"github.com/hyperjump/deckfill/internal/storage"
	"github.com/hyperjump/deckfill/internal/workspace"
	"github.com/hyperjump/deckfill/test/fixtures"
)

// A template dropped into the inbox is imported and preprocessed without any other call.
func TestInbox_importsDroppedTemplate(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(filepath.Join(dir, "workspace"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "deckfill.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	svc := pipeline.New(ws, store, preprocess.NewNative())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 4)
	inboxDir := filepath.Join(dir, "inbox")
	in := inbox.New([]string{inboxDir}, false, func(path string) {
		_, _, err := svc.ImportTemplate(ctx, path, models.SourceInbox)
		errs <- err
	}, inbox.WithDebounce(50*time.Millisecond))
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()

	if err := os.WriteFile(filepath.Join(inboxDir, "dropped.pptx"), fixtures.Template(), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("import: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("template was not imported")
	}

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Processed || st.Template == nil || st.Template.Source != models.SourceInbox || st.Template.Name != "dropped.pptx" {
		t.Errorf("status: %+v, template: %+v", st, st.Template)
	}
	placeholders, err := svc.Placeholders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if placeholders.Count() != 6 {
		t.Errorf("placeholders: %v", placeholders)
	}
}
