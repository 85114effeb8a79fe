package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor Excel.
var ErrUnsupportedFormat = errors.New("unsupported table format")

var (
	excelExt = map[string]bool{".xlsx": true, ".xlsm": true, ".xltx": true, ".xltm": true}
	csvExt   = map[string]bool{".csv": true, ".txt": true}
)

// Table is a raw table with lowercase, trimmed column names.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable loads a CSV or Excel file. Excel files are read from their
// first sheet.
func ReadTable(path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case excelExt[ext]:
		return readExcel(path)
	case csvExt[ext]:
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ParseCSV(b)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

func readExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: no sheet", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return newTable(rows), nil
}

// ParseCSV decodes CSV content. The delimiter is sniffed from the header
// line, a UTF-8 BOM is dropped and non UTF-8 content is decoded as
// Windows-1252.
func ParseCSV(b []byte) (*Table, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(b) {
		dec, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return nil, fmt.Errorf("decode cp1252: %w", err)
		}
		b = dec
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = sniffDelimiter(b)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return newTable(rows), nil
}

func sniffDelimiter(b []byte) rune {
	line := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line = b[:i]
	}
	best, count := ',', 0
	for _, d := range []rune{';', ',', '|', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > count {
			best, count = d, n
		}
	}
	return best
}

func newTable(rows [][]string) *Table {
	t := &Table{}
	if len(rows) == 0 {
		return t
	}
	t.Header = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		t.Header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Field names a target column and the header aliases that may carry it, in
// priority order.
type Field struct {
	Name    string
	Aliases []string
}

// Schema is the set of columns extracted from a table.
type Schema []Field

// Record is one row keyed by target column name. Missing columns read as "".
type Record map[string]string

// Has reports whether the record carries a non-empty value for name.
func (r Record) Has(name string) bool { return strings.TrimSpace(r[name]) != "" }

// Records extracts the schema columns from every row, picking for each
// field the first alias present in the header.
func (t *Table) Records(s Schema) []Record {
	if t == nil {
		return nil
	}
	cols := make(map[string]int, len(s))
	for _, f := range s {
		cols[f.Name] = -1
		for _, a := range f.Aliases {
			if i := t.column(a); i >= 0 {
				cols[f.Name] = i
				break
			}
		}
	}
	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Record, len(s))
		for name, i := range cols {
			if i >= 0 && i < len(row) {
				rec[name] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, rec)
	}
	return out
}

// HasAny reports whether one of the field aliases is a column of the table.
func (t *Table) HasAny(f Field) bool {
	if t == nil {
		return false
	}
	for _, a := range f.Aliases {
		if t.column(a) >= 0 {
			return true
		}
	}
	return false
}

func (t *Table) column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}
