package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"tabsynth/internal/config"
)

// ReadCSV parses a CSV stream into a Table.
//
// Options:
//   - "comma":       delimiter (single rune, default ',')
//   - "trim_space":  trim cell whitespace (default true)
//   - "lazy_quotes": tolerate bare quotes (default false)
//   - "charset":     input encoding ("", "utf-8", "latin1", "windows-1250",
//     "windows-1252"); non-UTF-8 input is transcoded
//
// Header names are normalized (lowercased identifiers); the first header
// cell is stripped of a UTF-8 BOM. Rows with a mismatched field count are
// skipped via onErr rather than failing the read. Empty cells become nil.
func ReadCSV(r io.Reader, opt config.Options, onErr func(line int, err error)) (*Table, error) {
	if enc := decoderFor(opt.String("charset", "")); enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	trim := opt.Bool("trim_space", true)

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.FieldsPerRecord = -1 // validated manually so bad rows can be skipped
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.ReuseRecord = true

	line := 1
	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		columns[i] = TruncateName(NormalizeName(h))
	}

	t := New(columns)
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		if len(rec) != len(columns) {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %d fields, want %d", len(rec), len(columns)))
			}
			continue
		}

		row := make([]any, len(columns))
		for i, v := range rec {
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				row[i] = nil
			} else {
				row[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
}

// WriteCSV serializes a table in the input column order. Cells are
// formatted with Format, so nil renders as an empty field.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = Format(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func decoderFor(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1
	case "windows-1250", "cp1250":
		return charmap.Windows1250
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	default:
		// "", "utf-8" and unknown names pass through untouched.
		return nil
	}
}
