// Package export writes parsed rows and tracking snapshots as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"oddscrawler/src/domain"
	"oddscrawler/src/tracker"
)

// Row is anything that can be written as one CSV record.
type Row interface {
	Header() []string
	Record() []string
}

func WriteCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteRows writes rows to path, creating parent directories. The header
// comes from the zero value, so an empty file still has one.
func WriteRows[T Row](path string, rows []T) error {
	var zero T

	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	return writeFile(path, zero.Header(), records)
}

func writeFile(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteCSV(f, header, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

const (
	OptaSnapshot       = "opta_database.csv"
	OddsportalSnapshot = "oddsportal_database.csv"
)

// TrackingSnapshot dumps a tracking table to path. With hashIDs the id
// column holds the scrape id of each link instead of the link itself,
// which is how the saved pages are named.
func TrackingSnapshot(ctx context.Context, table tracker.Table, layout domain.Layout, path string, hashIDs bool) (int, error) {
	values, err := table.Values(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s table: %w", layout.Name, err)
	}

	var rows [][]string
	if len(values) > 1 {
		rows = values[1:]
	}

	width := len(layout.Header)
	for _, row := range values {
		width = max(width, len(row))
	}

	// sheets started by older collectors only carry the first header cells
	header := make([]string, width)
	if len(values) > 0 {
		copy(header, values[0])
	}
	for i := range header {
		switch {
		case header[i] != "":
		case i < len(layout.Header):
			header[i] = layout.Header[i]
		default:
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	if hashIDs && layout.IDCol > 0 && layout.IDCol <= width {
		header[layout.IDCol-1] = "scrape_id"
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, width)
		copy(record, row)
		if hashIDs && layout.IDCol > 0 && layout.IDCol <= width {
			record[layout.IDCol-1] = domain.ScrapeID(record[layout.IDCol-1])
		}
		records = append(records, record)
	}

	if err := writeFile(path, header, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
