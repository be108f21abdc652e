// Package postgres implements rowstore.Store on a PostgreSQL table that
// emulates a worksheet: one row per (sheet, row_number) with the cells kept
// as a JSON array.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/jobtrack/internal/rowstore"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS sheet_rows (
	sheet      TEXT    NOT NULL,
	row_number INTEGER NOT NULL,
	cells      JSONB   NOT NULL DEFAULT '[]'::jsonb,
	PRIMARY KEY (sheet, row_number)
)`

// appendRowSQL picks the next row number in the same statement. Two writers
// appending to one sheet at once can pick the same number; the loser gets a
// unique violation and Append retries.
const (
	selectRowsSQL = `SELECT row_number, cells FROM sheet_rows WHERE sheet = $1 ORDER BY row_number`

	appendRowSQL = `INSERT INTO sheet_rows (sheet, row_number, cells)
SELECT $1::text, COALESCE(MAX(row_number) + 1, $2::integer), $3::jsonb FROM sheet_rows WHERE sheet = $1
RETURNING row_number`

	updateRowSQL = `UPDATE sheet_rows SET cells = $3 WHERE sheet = $1 AND row_number = $2`

	lockRowSQL = `SELECT cells FROM sheet_rows WHERE sheet = $1 AND row_number = $2 FOR UPDATE`
)

const (
	appendAttempts  = 3
	uniqueViolation = "23505"
)

// Store keeps one logical worksheet in the sheet_rows table.
type Store struct {
	db    DB
	sheet string
	width int
}

var _ rowstore.Store = (*Store)(nil)

// New returns a Store for sheet. Call Migrate once before use.
func New(db DB, sheet string, width int) *Store {
	return &Store{db: db, sheet: sheet, width: width}
}

// Migrate creates the backing table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate sheet_rows: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context) ([][]any, error) {
	rows, err := s.db.Query(ctx, selectRowsSQL, s.sheet)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		var (
			n   int
			raw []byte
		)
		if err := rows.Scan(&n, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		idx := n - rowstore.FirstDataRow
		if idx < 0 {
			continue
		}
		for len(out) < idx {
			out = append(out, []any{})
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, row []any) (rowstore.AppendResult, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return rowstore.AppendResult{}, fmt.Errorf("encode row: %w", err)
	}

	var n int
	for attempt := 1; ; attempt++ {
		err = s.db.QueryRow(ctx, appendRowSQL, s.sheet, rowstore.FirstDataRow, raw).Scan(&n)
		if err == nil {
			break
		}
		if !isUniqueViolation(err) || attempt == appendAttempts {
			return rowstore.AppendResult{}, fmt.Errorf("append row: %w", err)
		}
	}
	return rowstore.AppendResult{UpdatedRange: rowstore.RowRange(s.sheet, n, s.width)}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Store) Update(ctx context.Context, rowNumber int, row []any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return s.write(ctx, s.db, rowNumber, raw)
}

func (s *Store) Clear(ctx context.Context, rowNumber int) error {
	return s.write(ctx, s.db, rowNumber, []byte("[]"))
}

// BatchUpdate applies every cell write in one transaction, locking each
// touched row. Rows are visited in ascending order.
func (s *Store) BatchUpdate(ctx context.Context, updates []rowstore.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	byRow := make(map[int][]rowstore.CellUpdate)
	for _, u := range updates {
		byRow[u.Row] = append(byRow[u.Row], u)
	}
	rowNumbers := make([]int, 0, len(byRow))
	for n := range byRow {
		rowNumbers = append(rowNumbers, n)
	}
	sort.Ints(rowNumbers)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, n := range rowNumbers {
		var raw []byte
		if err := tx.QueryRow(ctx, lockRowSQL, s.sheet, n).Scan(&raw); err != nil {
			return fmt.Errorf("lock row %d: %w", n, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return fmt.Errorf("row %d: %w", n, err)
		}
		for len(cells) < s.width {
			cells = append(cells, "")
		}
		for _, u := range byRow[n] {
			col, err := rowstore.ColumnIndex(u.Column)
			if err != nil {
				return err
			}
			if col >= len(cells) {
				return fmt.Errorf("column %s outside row width %d", u.Column, s.width)
			}
			cells[col] = u.Value
		}
		encoded, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		if err := s.write(ctx, tx, n, encoded); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) write(ctx context.Context, db execer, rowNumber int, raw []byte) error {
	tag, err := db.Exec(ctx, updateRowSQL, s.sheet, rowNumber, raw)
	if err != nil {
		return fmt.Errorf("write row %d: %w", rowNumber, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("write row %d: row does not exist", rowNumber)
	}
	return nil
}

func decodeCells(raw []byte) ([]any, error) {
	if len(raw) == 0 {
		return []any{}, nil
	}
	var cells []any
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	if cells == nil {
		cells = []any{}
	}
	return cells, nil
}
