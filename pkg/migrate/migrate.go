package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Embedded carries the SQL migrations inside the binary.
//
//go:embed migrations/*.sql
var Embedded embed.FS

const embeddedDir = "migrations"

// Outcome describes one migration touched or inspected by a command.
type Outcome struct {
	Version   int64
	Path      string
	Direction string // "up" or "down"; empty for status rows
	Duration  time.Duration
	Applied   bool
	AppliedAt time.Time
}

// DirSource reads migrations from a directory on disk.
func DirSource(dir string) (fs.FS, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

// EmbeddedSource reads the migrations compiled into the binary.
func EmbeddedSource() (fs.FS, error) {
	return fs.Sub(Embedded, embeddedDir)
}

// Apply runs command (up, down or status) against the Postgres database.
func Apply(ctx context.Context, db *sql.DB, source fs.FS, command string) ([]Outcome, error) {
	provider, err := newProvider(db, source)
	if err != nil {
		return nil, err
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		return fromResults(results), wrapGoose(command, err)
	case "down":
		result, err := provider.Down(ctx)
		if result == nil {
			return nil, wrapGoose(command, err)
		}
		return fromResults([]*goose.MigrationResult{result}), wrapGoose(command, err)
	case "status":
		rows, err := provider.Status(ctx)
		if err != nil {
			return nil, wrapGoose(command, err)
		}
		out := make([]Outcome, 0, len(rows))
		for _, row := range rows {
			out = append(out, Outcome{
				Version:   row.Source.Version,
				Path:      row.Source.Path,
				Applied:   row.State == goose.StateApplied,
				AppliedAt: row.AppliedAt,
			})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported migrate command %q", command)
	}
}

// RunEmbedded applies command using the embedded migrations.
func RunEmbedded(ctx context.Context, db *sql.DB, command string) error {
	source, err := EmbeddedSource()
	if err != nil {
		return err
	}
	_, err = Apply(ctx, db, source, command)
	return err
}

// MigrateTo moves the schema up or down to targetVersion (YYYYMMDDHHMMSS).
func MigrateTo(ctx context.Context, db *sql.DB, source fs.FS, targetVersion string) ([]Outcome, error) {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	provider, err := newProvider(db, source)
	if err != nil {
		return nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := provider.UpTo(ctx, target)
		return fromResults(results), wrapGoose(fmt.Sprintf("up-to %d", target), err)
	default:
		results, err := provider.DownTo(ctx, target)
		return fromResults(results), wrapGoose(fmt.Sprintf("down-to %d", target), err)
	}
}

func newProvider(db *sql.DB, source fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if source == nil {
		return nil, fmt.Errorf("migration source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

func fromResults(results []*goose.MigrationResult) []Outcome {
	out := make([]Outcome, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Outcome{
			Version:   r.Source.Version,
			Path:      r.Source.Path,
			Direction: r.Direction,
			Duration:  r.Duration,
			Applied:   r.Direction == "up",
		})
	}
	return out
}

func wrapGoose(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
