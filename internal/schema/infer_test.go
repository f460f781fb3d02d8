package schema

import (
	"errors"
	"testing"

	"tabsynth/internal/table"
)

func makeTable(t *testing.T, columns []string, rows [][]any) *table.Table {
	t.Helper()
	tbl := table.New(columns)
	for _, r := range rows {
		if err := tbl.AppendRow(r); err != nil {
			t.Fatalf("append row: %v", err)
		}
	}
	return tbl
}

func TestInfer_ClassifiesKinds(t *testing.T) {
	tbl := makeTable(t,
		[]string{"age", "income", "city", "active"},
		[][]any{
			{"34", "51000.5", "Praha", "yes"},
			{"41", "62000.0", "Brno", "no"},
			{"29", "48750.25", "Praha", "yes"},
			{"34", "51000.5", "Ostrava", "no"},
		},
	)

	sch, err := Infer(tbl, InferOptions{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	want := []Kind{Discrete, Continuous, Categorical, Boolean}
	for i, k := range want {
		if sch.Columns[i].Kind != k {
			t.Errorf("column %q: kind = %v, want %v", sch.Columns[i].Name, sch.Columns[i].Kind, k)
		}
	}
}

func TestInfer_RecordsNumericBounds(t *testing.T) {
	tbl := makeTable(t,
		[]string{"x", "pad"},
		[][]any{
			{"-1.5", "a"},
			{"7.25", "b"},
			{"3.0", "a"},
		},
	)

	sch, err := Infer(tbl, InferOptions{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if sch.Columns[0].Min != -1.5 || sch.Columns[0].Max != 7.25 {
		t.Fatalf("bounds = [%v, %v], want [-1.5, 7.25]", sch.Columns[0].Min, sch.Columns[0].Max)
	}
}

func TestInfer_CategoriesKeepFirstSeenOrder(t *testing.T) {
	tbl := makeTable(t,
		[]string{"city", "pad"},
		[][]any{
			{"Praha", "1"},
			{"Brno", "2"},
			{"Praha", "3"},
			{"Ostrava", "4"},
		},
	)

	sch, err := Infer(tbl, InferOptions{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	got := sch.Columns[0].Categories
	want := []string{"Praha", "Brno", "Ostrava"}
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("categories = %v, want %v", got, want)
		}
	}
}

// An integer column with more distinct values than the cardinality
// threshold is modeled as continuous, not discrete.
func TestInfer_CardinalityThresholdFlipsIntegersToContinuous(t *testing.T) {
	rows := make([][]any, 0, 10)
	for i := 0; i < 10; i++ {
		pad := "x"
		if i%2 == 0 {
			pad = "y"
		}
		rows = append(rows, []any{table.Format(int64(i)), pad})
	}
	tbl := makeTable(t, []string{"n", "pad"}, rows)

	sch, err := Infer(tbl, InferOptions{CardinalityThreshold: 5})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if sch.Columns[0].Kind != Continuous {
		t.Fatalf("kind = %v, want continuous (10 distinct > threshold 5)", sch.Columns[0].Kind)
	}
}

func TestInfer_RejectsUnmodelableColumns(t *testing.T) {
	cases := []struct {
		name string
		rows [][]any
	}{
		{"all null", [][]any{{nil, "a"}, {nil, "b"}}},
		{"constant", [][]any{{"same", "a"}, {"same", "b"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := makeTable(t, []string{"bad", "pad"}, tc.rows)
			_, err := Infer(tbl, InferOptions{})
			if err == nil {
				t.Fatalf("expected error for %s column", tc.name)
			}
			var serr *Error
			if !errors.As(err, &serr) {
				t.Fatalf("expected *schema.Error, got %T (%v)", err, err)
			}
			if serr.Column != "bad" {
				t.Fatalf("error names column %q, want %q", serr.Column, "bad")
			}
		})
	}
}

// Two-label columns become boolean only when the labels form a
// truthy/falsy pair; otherwise they stay categorical.
func TestInfer_BooleanNeedsPolarityPair(t *testing.T) {
	tbl := makeTable(t,
		[]string{"pair", "nonpair"},
		[][]any{
			{"t", "red"},
			{"f", "blue"},
			{"t", "red"},
		},
	)

	sch, err := Infer(tbl, InferOptions{})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if sch.Columns[0].Kind != Boolean {
		t.Errorf("pair column: kind = %v, want boolean", sch.Columns[0].Kind)
	}
	if sch.Columns[1].Kind != Categorical {
		t.Errorf("nonpair column: kind = %v, want categorical", sch.Columns[1].Kind)
	}
}

func TestParseBool_AcceptsLooseSpellings(t *testing.T) {
	truthy := []string{"1", "t", "TRUE", "Yes", "y"}
	falsy := []string{"0", "f", "False", "NO", "n"}

	for _, s := range truthy {
		if v, ok := ParseBool(s); !ok || !v {
			t.Errorf("ParseBool(%q) = (%v, %v), want (true, true)", s, v, ok)
		}
	}
	for _, s := range falsy {
		if v, ok := ParseBool(s); !ok || v {
			t.Errorf("ParseBool(%q) = (%v, %v), want (false, true)", s, v, ok)
		}
	}
	if _, ok := ParseBool("maybe"); ok {
		t.Errorf("ParseBool(maybe) accepted, want rejection")
	}
}
