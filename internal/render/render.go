// Package render formats query result batches for inspection.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
)

const nullText = "NULL"

// Table writes batches as an aligned text table with a header row and a
// trailing row count. Batches must share one schema.
func Table(w io.Writer, batches []arrow.RecordBatch) error {
	if len(batches) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	schema := batches[0].Schema()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))

	var rows int64
	cells := make([]string, len(names))
	for _, b := range batches {
		if !b.Schema().Equal(schema) {
			return fmt.Errorf("batch schema %s differs from %s", b.Schema(), schema)
		}
		for r := 0; r < int(b.NumRows()); r++ {
			for c := range cells {
				cells[c] = cellText(b.Column(c), r)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		rows += b.NumRows()
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "(%d rows)\n", rows)
	return err
}

func cellText(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return nullText
	}
	return col.ValueStr(i)
}

// JSONRows converts batches to one map per row, keyed by column name.
// Nulls become nil; dates become "YYYY-MM-DD" strings. String values are
// copied, so the rows stay valid after the batches are released.
func JSONRows(batches []arrow.RecordBatch) []map[string]any {
	var rows []map[string]any
	for _, b := range batches {
		schema := b.Schema()
		for r := 0; r < int(b.NumRows()); r++ {
			row := make(map[string]any, schema.NumFields())
			for c, f := range schema.Fields() {
				v := b.Column(c).GetOneForMarshal(r)
				if s, ok := v.(string); ok {
					v = strings.Clone(s)
				}
				row[f.Name] = v
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// JSON writes batches as a JSON array of row objects followed by a newline.
func JSON(w io.Writer, batches []arrow.RecordBatch) error {
	rows := JSONRows(batches)
	if rows == nil {
		rows = []map[string]any{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
