// Package mssql implements storage.Repository for Microsoft SQL Server
// via database/sql.
//
// Note on driver registration:
//   - This package intentionally does NOT blank-import a SQL Server
//     driver. The application must register the "sqlserver" driver
//     elsewhere (storage/all does this with microsoft/go-mssqldb).
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tabsynth/internal/schema"
	"tabsynth/internal/storage"
	"tabsynth/internal/table"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New constructs a Repo using database/sql and the "sqlserver" driver.
// Connectivity is validated via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
		`INSERT INTO %s (job, dest_table, row_count, seed, started_at, duration_ms) VALUES (@p1, @p2, @p3, @p4, @p5, @p6)`,
		storage.RunsTable,
	)
	_, err := r.db.ExecContext(ctx, q,
		rec.Job, rec.Table, rec.Rows, rec.Seed, rec.StartedAt.UTC(), rec.Duration.Milliseconds(),
	)
	return err
}

func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func columnType(k schema.Kind) (string, error) {
	switch k {
	case schema.Continuous:
		return "FLOAT", nil
	case schema.Discrete:
		return "BIGINT", nil
	case schema.Categorical:
		return "NVARCHAR(400)", nil
	case schema.Boolean:
		return "BIT", nil
	default:
		return "", fmt.Errorf("mssql: unsupported column kind %v", k)
	}
}

// buildCreateSQL generates guarded DDL. SQL Server has no
// CREATE TABLE IF NOT EXISTS; the standard pattern checks sys.objects.
func buildCreateSQL(name string, sch schema.Schema) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("mssql: table name is empty")
	}
	parts := make([]string, 0, len(sch.Columns))
	for _, c := range sch.Columns {
		typ, err := columnType(c.Kind)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s %s", msIdent(c.Name), typ))
	}
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n);",
		name, msIdent(name), strings.Join(parts, ",\n  "),
	), nil
}

func buildRunsSQL() string {
	return fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (
  job NVARCHAR(200) NOT NULL,
  dest_table NVARCHAR(200) NOT NULL,
  row_count BIGINT NOT NULL,
  seed BIGINT NOT NULL,
  started_at DATETIMEOFFSET NOT NULL,
  duration_ms BIGINT NOT NULL
);`, storage.RunsTable, msIdent(storage.RunsTable))
}

// buildInsertSQL constructs a multi-row INSERT with @pN placeholder
// numbering.
func buildInsertSQL(name string, columns []string, nrows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(name))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
	}
	b.WriteString(") VALUES ")

	p := 1
	for r := 0; r < nrows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			p++
		}
		b.WriteString(")")
	}
	return b.String()
}

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
