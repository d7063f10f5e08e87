package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

var (
	historyHeader = []string{"index", "title", "label"}
	listsHeader   = []string{"index", "title", "keep", "drop"}
)

func header(kind Kind) []string {
	if kind == Lists {
		return listsHeader
	}
	return historyHeader
}

func cells(kind Kind, r Row) []string {
	idx := strconv.FormatInt(r.Index, 10)
	if kind == Lists {
		return []string{idx, r.Title, strconv.Itoa(r.Label), strconv.Itoa(1 - r.Label)}
	}
	return []string{idx, r.Title, strconv.Itoa(r.Label)}
}

// WriteHistoryCSV writes rows under the header index,title,label.
func WriteHistoryCSV(w io.Writer, rows []Row) error {
	return writeCSV(w, History, rows)
}

// WriteListsCSV writes rows as a keep/drop table under index,title,keep,drop.
func WriteListsCSV(w io.Writer, rows []Row) error {
	return writeCSV(w, Lists, rows)
}

func writeCSV(w io.Writer, kind Kind, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(kind)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(cells(kind, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteListsXLSX writes the keep/drop table as a single-sheet workbook.
func WriteListsXLSX(w io.Writer, rows []Row) error {
	return writeXLSX(w, Lists, rows)
}

// WriteHistoryXLSX writes the history table as a single-sheet workbook.
func WriteHistoryXLSX(w io.Writer, rows []Row) error {
	return writeXLSX(w, History, rows)
}

func writeXLSX(w io.Writer, kind Kind, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	head := header(kind)
	hdr := make([]interface{}, len(head))
	for i, h := range head {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := []interface{}{r.Index, r.Title, r.Label}
		if kind == Lists {
			vals = []interface{}{r.Index, r.Title, r.Label, 1 - r.Label}
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// Write emits rows of kind in format.
func Write(w io.Writer, kind Kind, format Format, rows []Row) error {
	switch {
	case format == XLSX && kind == Lists:
		return WriteListsXLSX(w, rows)
	case format == XLSX:
		return WriteHistoryXLSX(w, rows)
	case format == CSV && kind == Lists:
		return WriteListsCSV(w, rows)
	case format == CSV:
		return WriteHistoryCSV(w, rows)
	}
	return fmt.Errorf("export: unknown format %q", format)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// EncodeWriter wraps w so text is written in the named encoding. "utf-8" (or empty)
// passes through; "cp949" and "euc-kr" use the Korean code page, replacing runes it
// cannot represent. Close flushes the encoder and does not close w.
func EncodeWriter(w io.Writer, name string) (io.WriteCloser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nopCloser{w}, nil
	case "cp949", "euc-kr", "euckr":
		return transform.NewWriter(w, encoding.ReplaceUnsupported(korean.EUCKR.NewEncoder())), nil
	}
	return nil, fmt.Errorf("export: unsupported encoding %q", name)
}

// FileName returns the output name for a collection file: <base>_result.<format> for
// the history export and <base>_lists.<format> for the lists export. Neither can equal
// the collection file's own name.
func FileName(collection string, kind Kind, format Format) string {
	base := strings.TrimSuffix(filepath.Base(collection), filepath.Ext(collection))
	if kind == History {
		return base + "_result." + string(format)
	}
	return base + "_lists." + string(format)
}
