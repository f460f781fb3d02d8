// Package sqlite implements storage.Repository on modernc.org/sqlite.
//
// Key design points vs Postgres:
//   - SQLite has no real BOOLEAN or TIMESTAMPTZ affinity. Booleans are
//     stored as INTEGER 0/1 and run timestamps as RFC3339Nano TEXT for
//     reliable round-trip behavior with modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tabsynth/internal/schema"
	"tabsynth/internal/storage"
	"tabsynth/internal/table"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable creates the destination table from the schema plus the
// synth_runs metadata table. Both use create-if-not-exists semantics so
// repeated runs against the same database are idempotent.
func (r *Repo) EnsureTable(ctx context.Context, name string, sch schema.Schema) error {
	ddl, err := buildCreateSQL(name, sch)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	if _, err := r.db.ExecContext(ctx, buildRunsSQL()); err != nil {
		return fmt.Errorf("create table %s: %w", storage.RunsTable, err)
	}
	return nil
}

// InsertRows bulk-inserts in batches of storage.InsertBatchSize.
func (r *Repo) InsertRows(ctx context.Context, name string, sch schema.Schema, t *table.Table) (int64, error) {
	if t.NumRows() == 0 {
		return 0, nil
	}

	var total int64
	for start := 0; start < t.NumRows(); start += storage.InsertBatchSize {
		end := start + storage.InsertBatchSize
		if end > t.NumRows() {
			end = t.NumRows()
		}
		batch := t.Rows[start:end]

		q := buildInsertSQL(name, t.Columns, len(batch))
		args := make([]any, 0, len(batch)*len(t.Columns))
		for _, row := range batch {
			for c, cell := range row {
				args = append(args, cellArg(sch.Columns[c], cell))
			}
		}

		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *Repo) RecordRun(ctx context.Context, rec storage.RunRecord) error {
	q := fmt.Sprintf(
		`INSERT INTO %s (job, dest_table, row_count, seed, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		storage.RunsTable,
	)
	_, err := r.db.ExecContext(ctx, q,
		rec.Job, rec.Table, rec.Rows, rec.Seed,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
	)
	return err
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// columnType maps a schema kind onto SQLite storage classes.
func columnType(k schema.Kind) (string, error) {
	switch k {
	case schema.Continuous:
		return "REAL", nil
	case schema.Discrete:
		return "INTEGER", nil
	case schema.Categorical:
		return "TEXT", nil
	case schema.Boolean:
		return "INTEGER", nil
	default:
		return "", fmt.Errorf("sqlite: unsupported column kind %v", k)
	}
}

// buildCreateSQL generates create-if-not-exists DDL for a schema.
//
// It is pure (no database handle) so the exact DDL is unit-testable.
func buildCreateSQL(name string, sch schema.Schema) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("sqlite: table name is empty")
	}
	parts := make([]string, 0, len(sch.Columns))
	for _, c := range sch.Columns {
		typ, err := columnType(c.Kind)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s %s", sqlIdent(c.Name), typ))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(name), strings.Join(parts, ",\n  ")), nil
}

func buildRunsSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  job TEXT NOT NULL,
  dest_table TEXT NOT NULL,
  row_count INTEGER NOT NULL,
  seed INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  duration_ms INTEGER NOT NULL
);`, storage.RunsTable)
}

// buildInsertSQL generates a multi-row insert with ? placeholders.
func buildInsertSQL(name string, columns []string, nrows int) string {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(name))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")
	for i := 0; i < nrows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
	}
	return b.String()
}

// cellArg converts a generated cell to its driver argument. Booleans
// become INTEGER 0/1; everything else passes through, with text cells
// canonicalized by table.Format.
func cellArg(col schema.Column, cell any) any {
	if cell == nil {
		return nil
	}
	switch col.Kind {
	case schema.Boolean:
		if b, ok := cell.(bool); ok {
			if b {
				return int64(1)
			}
			return int64(0)
		}
		if v, ok := schema.ParseBool(table.Format(cell)); ok {
			if v {
				return int64(1)
			}
			return int64(0)
		}
		return nil
	case schema.Continuous, schema.Discrete:
		return cell
	default:
		return table.Format(cell)
	}
}
