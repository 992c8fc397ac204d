package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WindowStartHeader is the first CSV column name.
const WindowStartHeader = "window_start"

// WriteCSV writes the table as comma-separated values: a header row of
// window_start plus every keyword, then one row per window. A table without
// rows produces just the header.
func WriteCSV(w io.Writer, t Table, pattern string) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(t.Keywords)+1)
	header = append(header, WindowStartHeader)
	header = append(header, t.Keywords...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(header))
	for _, row := range t.Rows {
		rec[0] = FormatTime(row.WindowStart, pattern)
		for i, c := range row.Counts {
			rec[i+1] = strconv.Itoa(c)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
