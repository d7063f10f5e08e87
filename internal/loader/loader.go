// Package loader reads literature records from spreadsheet exports.
package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jask/papertriage/internal/triage"
)

var (
	ErrUnsupportedFormat = errors.New("loader: unsupported file format")
	ErrEmptySheet        = errors.New("loader: sheet has no header row")
)

// Source is one collection file.
type Source struct {
	ID   string
	Path string
}

// Supported reports whether path has a readable extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// List returns the collections under dir. When files is non-empty it fixes the order
// and membership; otherwise every supported file in dir is listed by name.
func List(dir string, files []string) ([]Source, error) {
	if len(files) > 0 {
		out := make([]Source, 0, len(files))
		for _, f := range files {
			out = append(out, Source{ID: filepath.Base(f), Path: filepath.Join(dir, f)})
		}
		return out, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read collections dir: %w", err)
	}
	var out []Source
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		out = append(out, Source{ID: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load reads the records of one file in row order.
func Load(ctx context.Context, path string) ([]*triage.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(f)
	case ".csv":
		rows, err = readCSV(f)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Parse(ctx, rows)
}

// Parse turns a header row plus data rows into records. Column A carries the row id
// when it is numeric.
func Parse(ctx context.Context, rows [][]string) ([]*triage.Record, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols := Resolve(header)

	out := make([]*triage.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blank(row) {
			continue
		}
		rec := &triage.Record{
			Title:    cols.Value("title", row),
			Abstract: CleanAbstract(cols.Value("abstract", row)),
			Journal:  cols.Value("journal", row),
		}
		if len(row) > 0 {
			if id, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64); err == nil {
				rec.ID = &id
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readXLSX(r io.Reader) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	return wb.GetRows(sheets[0])
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}
