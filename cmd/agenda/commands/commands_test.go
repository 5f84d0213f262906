// ABOUTME: End-to-end tests for the ask, list, search, export and index commands
// ABOUTME: Runs the root command against a temp database with stub model clients

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/app"
	"github.com/harper/agenda/internal/config"
	"github.com/harper/agenda/internal/models"
	"github.com/harper/agenda/internal/storage/sqlite"
)

// stubModel files every request as a note and answers replies with "sure"
type stubModel struct{}

func (stubModel) Complete(ctx context.Context, system, user string, history []models.Message) (string, error) {
	switch {
	case strings.Contains(system, "note or a schedule"):
		return "note", nil
	case strings.Contains(system, "which operation"):
		return "create", nil
	case strings.Contains(system, "JSON object"):
		return `{"content": "` + user + `"}`, nil
	}
	return "sure", nil
}

func (stubModel) Embed(ctx context.Context, text string) ([]float64, error) {
	v := []float64{0.01, 0.01}
	if strings.Contains(text, "milk") {
		v[0] = 1
	} else {
		v[1] = 1
	}
	return v, nil
}

func setupAgenda(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGENDA_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("AGENDA_DB_PATH", filepath.Join(dir, "agenda.db"))
	t.Setenv("AGENDA_INDEX_BACKEND", config.BackendSQLite)

	orig := newApp
	newApp = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error) {
		return app.New(ctx, cfg, logger, app.WithCompleter(stubModel{}), app.WithEmbedder(stubModel{}))
	}
	t.Cleanup(func() { newApp = orig })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return output.String(), err
}

func TestAsk_PrintsReply(t *testing.T) {
	setupAgenda(t)

	out, err := run(t, "--quiet", "ask", "buy", "milk")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(out) != "sure" {
		t.Errorf("ask output = %q, want %q", out, "sure")
	}
}

func TestAsk_JSONOutcome(t *testing.T) {
	setupAgenda(t)

	out, err := run(t, "--quiet", "--format", "json", "ask", "buy milk")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	var outcome models.Outcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("outcome is not JSON: %v\n%s", err, out)
	}
	if outcome.Status != models.OutcomeOK || outcome.Message != "created note 1" {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestListSearchAndIndexCommands(t *testing.T) {
	setupAgenda(t)
	for _, u := range []string{"buy milk", "renew passport"} {
		if _, err := run(t, "--quiet", "ask", "--no-reply", u); err != nil {
			t.Fatalf("ask %q: %v", u, err)
		}
	}

	out, err := run(t, "--quiet", "--format", "json", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var rows []models.ItemRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 2 {
		t.Errorf("list returned %d rows, want 2", len(rows))
	}

	out, err = run(t, "--quiet", "--format", "json", "search", "--limit", "1", "milk")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	rows = nil
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("search output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].Content != "buy milk" {
		t.Errorf("search rows = %+v", rows)
	}

	out, err = run(t, "--quiet", "reindex")
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if !strings.Contains(out, "Indexed 2 item(s)") {
		t.Errorf("reindex output = %q", out)
	}

	out, err = run(t, "--quiet", "reconcile")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "Index is in sync") {
		t.Errorf("reconcile output = %q", out)
	}
}

func TestList_RejectsUnknownType(t *testing.T) {
	setupAgenda(t)
	if _, err := run(t, "list", "--type", "task"); err == nil {
		t.Error("expected error for unknown item type")
	}
}

func TestSearch_RejectsBadLimit(t *testing.T) {
	setupAgenda(t)
	if _, err := run(t, "search", "--limit", "0", "milk"); err == nil {
		t.Error("expected error for non-positive limit")
	}
}

func TestExport_StdoutAndFile(t *testing.T) {
	setupAgenda(t)
	if _, err := run(t, "--quiet", "ask", "--no-reply", "buy milk"); err != nil {
		t.Fatalf("ask: %v", err)
	}

	out, err := run(t, "--quiet", "export", "--as", "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var data sqlite.ExportData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("export output is not JSON: %v\n%s", err, out)
	}
	if len(data.Items) != 1 || data.Items[0].Content != "buy milk" {
		t.Errorf("exported items = %+v", data.Items)
	}

	path := filepath.Join(t.TempDir(), "agenda.csv")
	out, err = run(t, "export", "-o", path)
	if err != nil {
		t.Fatalf("export to file: %v", err)
	}
	if !strings.Contains(out, "(csv)") {
		t.Errorf("format should follow the file extension, got %q", out)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(content), "item_id,title,content") {
		t.Errorf("csv export = %q", content)
	}
}

func TestExport_RejectsUnknownFormat(t *testing.T) {
	setupAgenda(t)
	if _, err := run(t, "export", "--as", "xml"); err == nil {
		t.Error("expected error for unknown export format")
	}
	if _, err := run(t, "export", "--status", "pending"); err == nil {
		t.Error("expected error for unknown item status")
	}
}
