// Package postgres implements storage.Repository on jackc/pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"tabsynth/internal/schema"
	"tabsynth/internal/storage"
	"tabsynth/internal/table"
)

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a Postgres-backed repository using a pgx pool.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureTable(ctx context.Context, name string, sch schema.Schema) error {
	ddl, err := buildCreateSQL(name, sch)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	if _, err := r.pool.Exec(ctx, buildRunsSQL()); err != nil {
		return fmt.Errorf("create table %s: %w", storage.RunsTable, err)
	}
	return nil
}

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

		cmd, err := r.pool.Exec(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", name, err)
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

func (r *Repo) RecordRun(ctx context.Context, rec storage.RunRecord) error {
	q := fmt.Sprintf(
		`INSERT INTO %s (job, dest_table, row_count, seed, started_at, duration_ms) VALUES ($1, $2, $3, $4, $5, $6)`,
		storage.RunsTable,
	)
	_, err := r.pool.Exec(ctx, q,
		rec.Job, rec.Table, rec.Rows, rec.Seed, rec.StartedAt.UTC(), rec.Duration.Milliseconds(),
	)
	return err
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func columnType(k schema.Kind) (string, error) {
	switch k {
	case schema.Continuous:
		return "DOUBLE PRECISION", nil
	case schema.Discrete:
		return "BIGINT", nil
	case schema.Categorical:
		return "TEXT", nil
	case schema.Boolean:
		return "BOOLEAN", nil
	default:
		return "", fmt.Errorf("postgres: unsupported column kind %v", k)
	}
}

// buildCreateSQL constructs create-if-not-exists DDL for a schema.
//
// It is pure and deterministic, so DDL correctness is unit-testable
// without a database.
func buildCreateSQL(name string, sch schema.Schema) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("postgres: table name is empty")
	}
	parts := make([]string, 0, len(sch.Columns))
	for _, c := range sch.Columns {
		typ, err := columnType(c.Kind)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s %s", pgIdent(c.Name), typ))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", pgIdent(name), strings.Join(parts, ",\n  ")), nil
}

func buildRunsSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  job TEXT NOT NULL,
  dest_table TEXT NOT NULL,
  row_count BIGINT NOT NULL,
  seed BIGINT NOT NULL,
  started_at TIMESTAMPTZ NOT NULL,
  duration_ms BIGINT NOT NULL
);`, storage.RunsTable)
}

// buildInsertSQL constructs a multi-row INSERT with $n placeholder
// numbering.
func buildInsertSQL(name string, columns []string, nrows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(name))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < nrows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteString(")")
	}
	return b.String()
}

// cellArg passes typed cells through to pgx; text cells are
// canonicalized by table.Format.
func cellArg(col schema.Column, cell any) any {
	if cell == nil {
		return nil
	}
	switch col.Kind {
	case schema.Boolean:
		if b, ok := cell.(bool); ok {
			return b
		}
		if v, ok := schema.ParseBool(table.Format(cell)); ok {
			return v
		}
		return nil
	case schema.Continuous, schema.Discrete:
		return cell
	default:
		return table.Format(cell)
	}
}
