package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/dbtest"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/migrate"
)

const shippedDir = "../../pkg/migrate/migrations"

func execute(t *testing.T, open dbOpener, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(open)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func noDatabase(t *testing.T) dbOpener {
	return func(context.Context) (*db.Client, *logger.Logger, error) {
		t.Fatal("command must not open the database")
		return nil, nil, nil
	}
}

func sqliteDatabase(t *testing.T) dbOpener {
	client := dbtest.Open(t)
	return func(context.Context) (*db.Client, *logger.Logger, error) {
		return client, logger.Nop(), nil
	}
}

func TestValidateShippedAndEmbedded(t *testing.T) {
	out, _, err := execute(t, noDatabase(t), "validate", "--dir", shippedDir)
	if err != nil || !strings.Contains(out, "passed") {
		t.Fatalf("validate dir: %v %q", err, out)
	}
	out, _, err = execute(t, noDatabase(t), "validate", "--embedded")
	if err != nil || !strings.Contains(out, "passed") {
		t.Fatalf("validate embedded: %v %q", err, out)
	}
}

func TestValidateListsProblems(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"1_bad.sql":                       "-- +goose Up\n-- +goose Down\n",
		"20260301120000_missing_down.sql": "-- +goose Up\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	_, errOut, err := execute(t, noDatabase(t), "validate", "--dir", dir)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	problems := 0
	for _, line := range strings.Split(errOut, "\n") {
		if strings.HasPrefix(line, "- ") {
			problems++
		}
	}
	if problems != 2 {
		t.Fatalf("expected one line per problem, got %q", errOut)
	}
}

func TestCreateWritesMigration(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, noDatabase(t), "create", "add gift wrap", "--dir", dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "_add_gift_wrap.sql") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, _, err := execute(t, noDatabase(t), "validate", "--dir", dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateRequiresName(t *testing.T) {
	if _, _, err := execute(t, noDatabase(t), "create"); err == nil {
		t.Fatal("expected missing name to fail")
	}
}

func TestUpOnSQLiteUsesModels(t *testing.T) {
	out, _, err := execute(t, sqliteDatabase(t), "up")
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if !strings.Contains(out, "migrated from models") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDownOnSQLiteIsRejected(t *testing.T) {
	if _, _, err := execute(t, sqliteDatabase(t), "down"); err == nil || !strings.Contains(err.Error(), "sqlite") {
		t.Fatalf("expected sqlite rejection, got %v", err)
	}
}

func TestPrintOutcomes(t *testing.T) {
	applied := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printOutcomes(&out, []migrate.Outcome{
		{Version: 20260301120000, Path: "20260301120000_init.sql", Direction: "up", Duration: 12 * time.Millisecond},
		{Version: 20260301120000, Path: "20260301120000_init.sql", Applied: true, AppliedAt: applied},
		{Version: 20260302080000, Path: "20260302080000_orders.sql"},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", out.String())
	}
	if lines[0] != "up   20260301120000 20260301120000_init.sql (12ms)" {
		t.Fatalf("unexpected result line %q", lines[0])
	}
	if lines[1] != "applied 20260301120000 20260301120000_init.sql 2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected status line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "pending 20260302080000") {
		t.Fatalf("unexpected pending line %q", lines[2])
	}
}
