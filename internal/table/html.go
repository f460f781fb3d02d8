package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tabsynth/internal/config"
)

// ReadHTML extracts a <table> element from an HTML document into a Table,
// so scraped pages can be synthesized without an intermediate export.
//
// Options:
//   - "table_selector": CSS selector for the table element (default "table",
//     i.e. the first table in the document)
//   - "trim_space":     trim cell whitespace (default true)
//
// The header row is taken from <th> cells when present, otherwise from the
// first row's <td> cells. Rows with a mismatched cell count are skipped via
// onErr. Missing selectors are an error: unlike row-level damage, a page
// without the requested table cannot produce anything useful.
func ReadHTML(r io.Reader, opt config.Options, onErr func(line int, err error)) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	sel := opt.String("table_selector", "table")
	trim := opt.Bool("trim_space", true)

	node := doc.Find(sel).First()
	if node.Length() == 0 {
		return nil, fmt.Errorf("html: no table matches selector %q", sel)
	}

	cellText := func(s *goquery.Selection) string {
		v := s.Text()
		if trim {
			v = strings.TrimSpace(v)
		}
		return v
	}

	var columns []string
	headerFromTH := false
	node.Find("tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		columns = append(columns, TruncateName(NormalizeName(cellText(th))))
		headerFromTH = true
	})

	var t *Table
	rowIdx := 0
	node.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		rowIdx++

		cells := tr.Find("td")
		if cells.Length() == 0 {
			return // header row or decoration
		}

		if t == nil {
			if !headerFromTH {
				// First data row doubles as the header.
				cells.Each(func(_ int, td *goquery.Selection) {
					columns = append(columns, TruncateName(NormalizeName(cellText(td))))
				})
				t = New(columns)
				return
			}
			t = New(columns)
		}

		if cells.Length() != len(columns) {
			if onErr != nil {
				onErr(rowIdx, fmt.Errorf("html row: %d cells, want %d", cells.Length(), len(columns)))
			}
			return
		}

		row := make([]any, 0, len(columns))
		cells.Each(func(_ int, td *goquery.Selection) {
			v := cellText(td)
			if v == "" {
				row = append(row, nil)
			} else {
				row = append(row, v)
			}
		})
		t.Rows = append(t.Rows, row)
	})

	if t == nil {
		return nil, fmt.Errorf("html: table %q has no data rows", sel)
	}
	return t, nil
}
