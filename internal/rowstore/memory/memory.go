// Package memory implements rowstore.Store in process memory. It backs the
// "memory" store backend and serves as the remote stub in tests: every
// operation is counted and any of them can be made to fail.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JonMunkholm/jobtrack/internal/rowstore"
)

// Operation names accepted by FailOn and Calls.
const (
	OpGet         = "get"
	OpAppend      = "append"
	OpUpdate      = "update"
	OpClear       = "clear"
	OpBatchUpdate = "batchUpdate"
	OpHeader      = "header"
)

// AppendMode selects where Append places a row.
type AppendMode int

const (
	// AppendAtEnd adds the row after the last data row.
	AppendAtEnd AppendMode = iota
	// AppendFillGap writes into the first blank row after the leading
	// table, the way Sheets appends with OVERWRITE.
	AppendFillGap
	// AppendInsertAtGap inserts a row at that blank and shifts every later
	// row down, the way Sheets appends with INSERT_ROWS.
	AppendInsertAtGap
)

// Store is an in-memory worksheet. The zero value is not usable; call New.
type Store struct {
	sheet string
	width int

	mu     sync.Mutex
	header []any
	rows   [][]any
	calls  map[string]int
	fail   map[string]error

	// Mode controls row placement on Append.
	Mode AppendMode
	// OmitRange makes Append report no UpdatedRange.
	OmitRange bool
	// BeforeGet, when set, runs at the start of every Get outside the lock.
	BeforeGet func()
}

var (
	_ rowstore.Store        = (*Store)(nil)
	_ rowstore.HeaderWriter = (*Store)(nil)
)

// New returns an empty worksheet named sheet with rows of width cells.
func New(sheet string, width int) *Store {
	return &Store{
		sheet: sheet,
		width: width,
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

// Seed replaces the data rows.
func (s *Store) Seed(rows ...[]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make([][]any, len(rows))
	for i, r := range rows {
		s.rows[i] = slices.Clone(r)
	}
}

// Rows returns a copy of the data rows.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Row returns a copy of one row by row number, or nil when out of range.
func (s *Store) Row(rowNumber int) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := rowNumber - rowstore.FirstDataRow
	if i < 0 || i >= len(s.rows) {
		return nil
	}
	return slices.Clone(s.rows[i])
}

// Header returns a copy of row 1, or nil when it was never written.
func (s *Store) Header() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.header)
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) begin(op string) error {
	s.calls[op]++
	return s.fail[op]
}

func (s *Store) Get(ctx context.Context) ([][]any, error) {
	if s.BeforeGet != nil {
		s.BeforeGet()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpGet); err != nil {
		return nil, err
	}
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, row []any) (rowstore.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpAppend); err != nil {
		return rowstore.AppendResult{}, err
	}
	i := s.place(s.fit(row))
	n := rowstore.FirstDataRow + i

	if s.OmitRange {
		return rowstore.AppendResult{}, nil
	}
	return rowstore.AppendResult{UpdatedRange: rowstore.RowRange(s.sheet, n, s.width)}, nil
}

func (s *Store) Update(ctx context.Context, rowNumber int, row []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpUpdate); err != nil {
		return err
	}
	i, err := s.index(rowNumber)
	if err != nil {
		return err
	}
	s.rows[i] = s.fit(row)
	return nil
}

func (s *Store) Clear(ctx context.Context, rowNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpClear); err != nil {
		return err
	}
	i, err := s.index(rowNumber)
	if err != nil {
		return err
	}
	s.rows[i] = []any{}
	return nil
}

func (s *Store) BatchUpdate(ctx context.Context, updates []rowstore.CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpBatchUpdate); err != nil {
		return err
	}
	for _, u := range updates {
		i, err := s.index(u.Row)
		if err != nil {
			return err
		}
		col, err := rowstore.ColumnIndex(u.Column)
		if err != nil {
			return err
		}
		if col >= s.width {
			return fmt.Errorf("column %s outside row width %d", u.Column, s.width)
		}
		row := s.fit(s.rows[i])
		row[col] = u.Value
		s.rows[i] = row
	}
	return nil
}

func (s *Store) WriteHeader(ctx context.Context, header []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpHeader); err != nil {
		return err
	}
	s.header = s.fit(header)
	return nil
}

// place stores row according to Mode and returns its data index.
func (s *Store) place(row []any) int {
	gap := s.tableEnd()
	switch {
	case s.Mode == AppendFillGap && gap < len(s.rows):
		s.rows[gap] = row
		return gap
	case s.Mode == AppendInsertAtGap && gap < len(s.rows):
		s.rows = slices.Insert(s.rows, gap, row)
		return gap
	}
	s.rows = append(s.rows, row)
	return len(s.rows) - 1
}

// tableEnd returns the index of the first blank row after the leading run
// of non-blank rows, or len(rows) when there is none.
func (s *Store) tableEnd() int {
	start := 0
	for start < len(s.rows) && blank(s.rows[start]) {
		start++
	}
	if start == len(s.rows) {
		// An all-blank range is filled from the top.
		return 0
	}
	for i := start; i < len(s.rows); i++ {
		if blank(s.rows[i]) {
			return i
		}
	}
	return len(s.rows)
}

func blank(row []any) bool {
	for _, c := range row {
		if c != nil && c != "" {
			return false
		}
	}
	return true
}

func (s *Store) index(rowNumber int) (int, error) {
	i := rowNumber - rowstore.FirstDataRow
	if i < 0 || i >= len(s.rows) {
		return 0, fmt.Errorf("row %d out of range", rowNumber)
	}
	return i, nil
}

// fit copies row padded with empty strings to the full width.
func (s *Store) fit(row []any) []any {
	out := make([]any, s.width)
	for i := range out {
		out[i] = ""
	}
	copy(out, row)
	return out
}
