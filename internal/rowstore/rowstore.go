// Package rowstore defines the contract of a remote worksheet used as a
// database: an ordered list of rows of scalar cells, addressed by A1-style
// row numbers, with row 1 reserved for the header.
package rowstore

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FirstDataRow is the row number of the first record. Row 1 holds headers.
const FirstDataRow = 2

// CellUpdate writes one value into one cell, e.g. Column "R", Row 7.
type CellUpdate struct {
	Column string
	Row    int
	Value  any
}

// A1 returns the cell address without a sheet prefix.
func (c CellUpdate) A1() string {
	return c.Column + strconv.Itoa(c.Row)
}

// AppendResult describes where an appended row landed.
type AppendResult struct {
	// UpdatedRange is the A1 range written, e.g. "Jobs!A12:W12". May be empty
	// when the backend cannot report it.
	UpdatedRange string
}

// Row returns the row number parsed from UpdatedRange.
func (r AppendResult) Row() (int, bool) {
	return ParseRow(r.UpdatedRange)
}

// Store is a worksheet holding one record per row.
type Store interface {
	// Get returns every data row; element i is row FirstDataRow+i. Trailing
	// empty cells may be omitted and cleared rows come back empty.
	Get(ctx context.Context) ([][]any, error)
	Append(ctx context.Context, row []any) (AppendResult, error)
	Update(ctx context.Context, rowNumber int, row []any) error
	Clear(ctx context.Context, rowNumber int) error
	BatchUpdate(ctx context.Context, updates []CellUpdate) error
}

// HeaderWriter is implemented by stores whose row 1 holds column names.
type HeaderWriter interface {
	WriteHeader(ctx context.Context, header []any) error
}

var a1Row = regexp.MustCompile(`^[A-Za-z]+(\d+)$`)

// ParseRow extracts the starting row number from an A1 range such as
// "Jobs!A12:W12" or "'My Sheet'!A3". It reports false for anything else.
func ParseRow(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	m := a1Row.FindStringSubmatch(rng)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ColumnLetter converts a zero-based column index to its letter, 0 -> "A".
func ColumnLetter(idx int) string {
	var b []byte
	for idx >= 0 {
		b = append([]byte{byte('A' + idx%26)}, b...)
		idx = idx/26 - 1
	}
	return string(b)
}

// ColumnIndex converts a column letter to its zero-based index, "A" -> 0.
func ColumnIndex(col string) (int, error) {
	if col == "" {
		return 0, fmt.Errorf("empty column")
	}
	n := 0
	for _, c := range strings.ToUpper(col) {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column %q", col)
		}
		n = n*26 + int(c-'A'+1)
	}
	return n - 1, nil
}

// RowRange returns the A1 range covering one full row of width columns.
func RowRange(sheet string, rowNumber, width int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), rowNumber, ColumnLetter(width-1), rowNumber)
}

// DataRange returns the A1 range covering every data row of width columns.
func DataRange(sheet string, width int) string {
	return fmt.Sprintf("%s!A%d:%s", quoteSheet(sheet), FirstDataRow, ColumnLetter(width-1))
}

// CellRange returns the A1 address of one cell on sheet.
func CellRange(sheet string, c CellUpdate) string {
	return quoteSheet(sheet) + "!" + c.A1()
}

func quoteSheet(sheet string) string {
	if strings.ContainsAny(sheet, " '!") {
		return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet
}
