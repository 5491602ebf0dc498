package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoHeader indicates no record carried a Code column.
	ErrNoHeader = errors.New("catalog: no header row with a Code column")
	// ErrMissingColumn indicates the header lacks a required column.
	ErrMissingColumn = errors.New("catalog: missing required column")
	// ErrEmptyCatalog indicates every data row was dropped.
	ErrEmptyCatalog = errors.New("catalog: no usable course rows")
)

const (
	DefaultDelimiter     = ';'
	DefaultListSeparator = ","
)

// DefaultIgnoreCodes are placeholder tokens stripped from incompatibility cells.
var DefaultIgnoreCodes = []string{"200F"}

// Options controls how a catalog file is read.
type Options struct {
	// Delimiter separates fields. Zero means DefaultDelimiter.
	Delimiter rune
	// ListSeparator splits the incompatibility cell. Empty means DefaultListSeparator.
	ListSeparator string
	// IgnoreCodes are dropped from incompatibility cells. Nil means DefaultIgnoreCodes.
	IgnoreCodes []string
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.ListSeparator == "" {
		o.ListSeparator = DefaultListSeparator
	}
	if o.IgnoreCodes == nil {
		o.IgnoreCodes = DefaultIgnoreCodes
	}
	return o
}

// DropReason says why a data row was not loaded.
type DropReason string

const (
	DropBadCode   DropReason = "non-numeric code"
	DropNoName    DropReason = "missing name"
	DropDuplicate DropReason = "duplicate code"
	DropShortRow  DropReason = "too few fields"
)

// DroppedRow records one rejected data row. Line is 1-based in the source.
type DroppedRow struct {
	Line   int
	Reason DropReason
	Code   string
}

// LoadReport summarises an ingestion run.
type LoadReport struct {
	HeaderLine int
	Accepted   int
	Dropped    []DroppedRow
}

// Load opens path and parses it as a catalog.
func Load(path string, opts Options) (*Catalog, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	cat, report, err := Parse(f, opts)
	if err != nil {
		return nil, report, fmt.Errorf("%w (%s)", err, path)
	}
	return cat, report, nil
}

type columns struct {
	code, name, incompat, professor, sessions int
}

// Parse reads a catalog from r. Lines before the header row are skipped; the
// header row is the first record with a cell equal to "Code".
func Parse(r io.Reader, opts Options) (*Catalog, LoadReport, error) {
	opts = opts.withDefaults()
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		report LoadReport
		cols   *columns
		rows   []Course
		seen   = map[string]bool{}
		ignore = make(map[string]bool, len(opts.IgnoreCodes))
	)
	for _, code := range opts.IgnoreCodes {
		ignore[strings.ToUpper(strings.TrimSpace(code))] = true
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, report, fmt.Errorf("catalog: read: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if cols == nil {
			found, err := locateColumns(record)
			if err != nil {
				return nil, report, err
			}
			if found != nil {
				cols = found
				report.HeaderLine = line
			}
			continue
		}
		if blankRecord(record) {
			continue
		}
		if len(record) <= max(cols.code, cols.name) {
			report.Dropped = append(report.Dropped, DroppedRow{Line: line, Reason: DropShortRow})
			continue
		}
		code, ok := NormalizeCode(record[cols.code])
		if !ok {
			report.Dropped = append(report.Dropped, DroppedRow{Line: line, Reason: DropBadCode, Code: strings.TrimSpace(record[cols.code])})
			continue
		}
		name := cleanText(record[cols.name])
		if name == "" {
			report.Dropped = append(report.Dropped, DroppedRow{Line: line, Reason: DropNoName, Code: code})
			continue
		}
		if seen[code] {
			report.Dropped = append(report.Dropped, DroppedRow{Line: line, Reason: DropDuplicate, Code: code})
			continue
		}
		seen[code] = true
		rows = append(rows, Course{
			Code:         code,
			Name:         name,
			Professor:    cleanText(field(record, cols.professor)),
			Sessions:     cleanText(field(record, cols.sessions)),
			Incompatible: splitIncompatible(field(record, cols.incompat), code, opts.ListSeparator, ignore),
		})
	}

	if cols == nil {
		return nil, report, ErrNoHeader
	}
	if len(rows) == 0 {
		return nil, report, ErrEmptyCatalog
	}
	report.Accepted = len(rows)
	return New(rows), report, nil
}

// locateColumns returns nil, nil when record is not the header.
func locateColumns(record []string) (*columns, error) {
	cols := columns{code: -1, name: -1, incompat: -1, professor: -1, sessions: -1}
	for i, cell := range record {
		switch strings.ToLower(cleanText(cell)) {
		case "code":
			if cols.code < 0 {
				cols.code = i
			}
		case "course name":
			cols.name = i
		case "course":
			if cols.name < 0 {
				cols.name = i
			}
		case "incompatibilities":
			cols.incompat = i
		case "professor":
			cols.professor = i
		case "sessions":
			cols.sessions = i
		}
	}
	if cols.code < 0 {
		return nil, nil
	}
	if cols.name < 0 {
		return nil, fmt.Errorf("%w: Course Name", ErrMissingColumn)
	}
	return &cols, nil
}

// NormalizeCode trims s and returns the canonical decimal form of the code:
// leading zeros ("007") and spreadsheet float coercions ("101.0") both
// collapse to the plain integer. It reports false for anything non-numeric.
func NormalizeCode(s string) (string, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	if s == "" {
		return "", false
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return strconv.FormatUint(v, 10), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(int64(f)) {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

func splitIncompatible(cell, self, sep string, ignore map[string]bool) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, token := range strings.Split(cell, sep) {
		token = strings.TrimSpace(token)
		if token == "" || ignore[strings.ToUpper(token)] {
			continue
		}
		code, ok := NormalizeCode(token)
		if !ok || code == self || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func cleanText(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return norm.NFC.String(strings.TrimSpace(s))
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
