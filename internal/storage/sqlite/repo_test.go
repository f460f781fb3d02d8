package sqlite

import (
	"strings"
	"testing"

	"tabsynth/internal/schema"
)

func demoSchema() schema.Schema {
	return schema.Schema{Columns: []schema.Column{
		{Name: "income", Kind: schema.Continuous},
		{Name: "age", Kind: schema.Discrete},
		{Name: "city", Kind: schema.Categorical},
		{Name: "active", Kind: schema.Boolean},
	}}
}

func TestBuildCreateSQL_MapsKindsToStorageClasses(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateSQL("synthetic", demoSchema())
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	if !strings.Contains(ddl, `CREATE TABLE IF NOT EXISTS "synthetic"`) {
		t.Fatalf("missing CREATE TABLE: %q", ddl)
	}
	if !strings.Contains(ddl, `"income" REAL`) {
		t.Fatalf("continuous column not REAL: %q", ddl)
	}
	if !strings.Contains(ddl, `"age" INTEGER`) {
		t.Fatalf("discrete column not INTEGER: %q", ddl)
	}
	if !strings.Contains(ddl, `"city" TEXT`) {
		t.Fatalf("categorical column not TEXT: %q", ddl)
	}
	if !strings.Contains(ddl, `"active" INTEGER`) {
		t.Fatalf("boolean column not INTEGER: %q", ddl)
	}
}

func TestBuildCreateSQL_RejectsEmptyName(t *testing.T) {
	t.Parallel()

	if _, err := buildCreateSQL("  ", demoSchema()); err == nil {
		t.Fatalf("expected error for empty table name")
	}
}

func TestBuildInsertSQL_MultiRowPlaceholders(t *testing.T) {
	t.Parallel()

	q := buildInsertSQL("synthetic", []string{"a", "b"}, 2)
	want := `INSERT INTO "synthetic" ("a", "b") VALUES (?,?), (?,?)`
	if q != want {
		t.Fatalf("insert SQL mismatch:\n got %q\nwant %q", q, want)
	}
}

func TestBuildRunsSQL_HasAllMetadataColumns(t *testing.T) {
	t.Parallel()

	ddl := buildRunsSQL()
	for _, col := range []string{"job", "dest_table", "row_count", "seed", "started_at", "duration_ms"} {
		if !strings.Contains(ddl, col) {
			t.Fatalf("runs DDL missing %q: %q", col, ddl)
		}
	}
	if !strings.Contains(ddl, "synth_runs") {
		t.Fatalf("runs DDL missing table name: %q", ddl)
	}
}

func TestSQLIdent_EscapesEmbeddedQuotes(t *testing.T) {
	t.Parallel()

	if got := sqlIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("sqlIdent = %q", got)
	}
}

func TestCellArg_BooleanToInteger(t *testing.T) {
	t.Parallel()

	boolCol := schema.Column{Name: "active", Kind: schema.Boolean}
	if got := cellArg(boolCol, true); got != int64(1) {
		t.Fatalf("true -> %v, want int64(1)", got)
	}
	if got := cellArg(boolCol, "no"); got != int64(0) {
		t.Fatalf("\"no\" -> %v, want int64(0)", got)
	}
	if got := cellArg(boolCol, "banana"); got != nil {
		t.Fatalf("unparseable boolean -> %v, want nil", got)
	}

	numCol := schema.Column{Name: "income", Kind: schema.Continuous}
	if got := cellArg(numCol, 12.5); got != 12.5 {
		t.Fatalf("numeric passthrough broken: %v", got)
	}
	catCol := schema.Column{Name: "city", Kind: schema.Categorical}
	if got := cellArg(catCol, "Brno"); got != "Brno" {
		t.Fatalf("categorical -> %v", got)
	}
	if got := cellArg(catCol, nil); got != nil {
		t.Fatalf("nil cell -> %v, want nil", got)
	}
}
