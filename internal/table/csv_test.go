package table

import (
	"bytes"
	"strings"
	"testing"

	"tabsynth/internal/config"
)

func TestReadCSV_NormalizesHeaderAndStripsBOM(t *testing.T) {
	in := "\uFEFFFull Name,Annual-Income,Is Active?\nanna,42000,yes\n"
	tbl, err := ReadCSV(strings.NewReader(in), nil, nil)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	want := []string{"full_name", "annual_income", "is_active"}
	for i, c := range want {
		if tbl.Columns[i] != c {
			t.Fatalf("column %d = %q, want %q", i, tbl.Columns[i], c)
		}
	}
	if tbl.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", tbl.NumRows())
	}
}

func TestReadCSV_EmptyCellsBecomeNil(t *testing.T) {
	in := "a,b,c\n1,,3\n,  ,x\n"
	tbl, err := ReadCSV(strings.NewReader(in), nil, nil)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if tbl.Rows[0][1] != nil {
		t.Fatalf("row 0 col b = %v, want nil", tbl.Rows[0][1])
	}
	if tbl.Rows[1][0] != nil || tbl.Rows[1][1] != nil {
		t.Fatalf("row 1 = %v, want leading nils", tbl.Rows[1])
	}
	if tbl.Rows[1][2] != "x" {
		t.Fatalf("row 1 col c = %v, want x", tbl.Rows[1][2])
	}
}

func TestReadCSV_SkipsBadRowsViaCallback(t *testing.T) {
	in := "a,b\n1,2\nonly_one_field\n3,4\n"

	var badLines []int
	tbl, err := ReadCSV(strings.NewReader(in), nil, func(line int, err error) {
		badLines = append(badLines, line)
	})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if tbl.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2 (bad row skipped)", tbl.NumRows())
	}
	if len(badLines) != 1 || badLines[0] != 3 {
		t.Fatalf("bad lines = %v, want [3]", badLines)
	}
}

func TestReadCSV_CustomDelimiter(t *testing.T) {
	in := "a;b\n1;2\n"
	tbl, err := ReadCSV(strings.NewReader(in), config.Options{"comma": ";"}, nil)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Rows[0][1] != "2" {
		t.Fatalf("semicolon parse failed: %v / %v", tbl.Columns, tbl.Rows)
	}
}

func TestReadCSV_TranscodesLatin1(t *testing.T) {
	// "město" in ISO 8859-2 would differ; latin1 covers e-acute (0xE9).
	in := []byte("city\ncaf\xe9\n")
	tbl, err := ReadCSV(bytes.NewReader(in), config.Options{"charset": "latin1"}, nil)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := tbl.Rows[0][0]; got != "café" {
		t.Fatalf("cell = %q, want café", got)
	}
}

func TestWriteCSV_RoundTripsTypedCells(t *testing.T) {
	tbl := New([]string{"n", "s", "b", "missing"})
	if err := tbl.AppendRow([]any{float64(1.5), "hello", true, nil}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tbl.AppendRow([]any{int64(7), "x,y", false, nil}); err != nil {
		t.Fatalf("append: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	back, err := ReadCSV(&buf, nil, nil)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if back.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", back.NumRows())
	}
	if back.Rows[0][0] != "1.5" || back.Rows[0][2] != "true" {
		t.Fatalf("row 0 = %v", back.Rows[0])
	}
	if back.Rows[1][1] != "x,y" {
		t.Fatalf("quoted field lost: %v", back.Rows[1])
	}
	if back.Rows[0][3] != nil {
		t.Fatalf("nil cell did not survive: %v", back.Rows[0][3])
	}
}

func TestNormalizeName_CollapsesSeparators(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Full Name", "full_name"},
		{"  spaced  out  ", "spaced_out"},
		{"a.b/c:d", "a_b_c_d"},
		{"Weird!!Chars##", "weirdchars"},
		{"__already__", "already"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncateName_KeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("ab", 40)
	if got := TruncateName(long); len(got) != 63 {
		t.Fatalf("len = %d, want 63", len(got))
	}
	short := "fine"
	if got := TruncateName(short); got != short {
		t.Fatalf("short name modified: %q", got)
	}
}
