// Package aggregate merges plat retrieval outcomes into the permit records
// and exports them as a table.
package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"rrcpermits-backend/internal/components/assert"
	"rrcpermits-backend/internal/scrapers/rrc"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table is the final uniform tabular result of a scrape.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Attach sets the PlatFilePath of every record from `outcomes`, which must
// hold exactly one entry per record in the same order.
func Attach(results rrc.Results, outcomes []string) Table {
	assert.Equal(len(results.Records), len(outcomes), "plat outcome count")

	columns := slices.Clone(results.Columns)
	if !slices.Contains(columns, rrc.FieldPlatFilePath) {
		columns = append(columns, rrc.FieldPlatFilePath)
	}

	rows := make([][]string, len(results.Records))
	for i, rec := range results.Records {
		rec[rrc.FieldPlatFilePath] = outcomes[i]
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	return Table{
		Columns: columns,
		Rows:    rows,
	}
}

func (t Table) Len() int {
	return len(t.Rows)
}

// WriteCSV writes the header followed by every row.
func (t Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	err := writer.Write(t.Columns)
	if err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	err = writer.WriteAll(t.Rows)
	if err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// Render prints up to `limit` rows as a human readable table, every row
// when limit <= 0. Only the given columns are shown, or all of them when
// none are given.
func (t Table) Render(w io.Writer, limit int, columns ...string) {
	if len(columns) == 0 {
		columns = t.Columns
	}
	indexes := make([]int, 0, len(columns))
	header := table.Row{}
	for _, c := range columns {
		idx := slices.Index(t.Columns, c)
		if idx < 0 {
			continue
		}
		indexes = append(indexes, idx)
		header = append(header, c)
	}

	out := table.NewWriter()
	out.SetOutputMirror(w)
	out.SetStyle(table.StyleLight)
	out.AppendHeader(header)

	shown := len(t.Rows)
	if limit > 0 && limit < shown {
		shown = limit
	}
	for _, row := range t.Rows[:shown] {
		values := make(table.Row, len(indexes))
		for i, idx := range indexes {
			values[i] = row[idx]
		}
		out.AppendRow(values)
	}
	if shown < len(t.Rows) {
		out.AppendFooter(table.Row{fmt.Sprintf("... %d more", len(t.Rows)-shown)})
	}
	out.Render()
}
