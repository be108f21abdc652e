// Package sheets implements rowstore.Store on a Google Sheets worksheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/JonMunkholm/jobtrack/internal/rowstore"
)

// Values are written RAW so text such as "2025-01-10" stays text, and read
// UNFORMATTED so booleans and numbers come back as native JSON scalars.
// Appends OVERWRITE: a cleared row ends the table Sheets appends to, and
// inserting there would shift the rows below it.
const (
	valueInputOption  = "RAW"
	valueRenderOption = "UNFORMATTED_VALUE"
	insertDataOption  = "OVERWRITE"
)

// Options configures a Store.
type Options struct {
	// CredentialsFile is a service-account JSON key. Ignored when
	// CredentialsJSON is set.
	CredentialsFile string
	CredentialsJSON []byte
	SpreadsheetID   string
	Sheet           string
	// Width is the number of columns in a row.
	Width int
}

// Store reads and writes one worksheet of one spreadsheet. The spreadsheet
// can be retargeted at runtime.
type Store struct {
	values *gsheets.SpreadsheetsValuesService
	sheet  string
	width  int

	mu            sync.RWMutex
	spreadsheetID string
}

var (
	_ rowstore.Store        = (*Store)(nil)
	_ rowstore.HeaderWriter = (*Store)(nil)
)

// New authenticates with a service account and returns a Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	creds := opts.CredentialsJSON
	if len(creds) == 0 {
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		creds = b
	}

	conf, err := google.JWTConfigFromJSON(creds, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return NewWithClient(ctx, conf.Client(ctx), opts)
}

// NewWithClient builds a Store over an already-authenticated HTTP client.
// Extra client options, such as a test endpoint, are applied last.
func NewWithClient(ctx context.Context, client *http.Client, opts Options, extra ...option.ClientOption) (*Store, error) {
	if opts.Sheet == "" {
		return nil, errors.New("sheet name is required")
	}
	if opts.Width <= 0 {
		return nil, errors.New("row width must be positive")
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(client)}, extra...)
	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Store{
		values:        svc.Spreadsheets.Values,
		sheet:         opts.Sheet,
		width:         opts.Width,
		spreadsheetID: opts.SpreadsheetID,
	}, nil
}

// SpreadsheetID returns the spreadsheet currently targeted.
func (s *Store) SpreadsheetID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spreadsheetID
}

// SetSpreadsheetID retargets subsequent calls at another spreadsheet.
func (s *Store) SetSpreadsheetID(id string) {
	s.mu.Lock()
	s.spreadsheetID = id
	s.mu.Unlock()
}

func (s *Store) Get(ctx context.Context) ([][]any, error) {
	resp, err := s.values.Get(s.SpreadsheetID(), rowstore.DataRange(s.sheet, s.width)).
		ValueRenderOption(valueRenderOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrap("get", err)
	}
	return resp.Values, nil
}

func (s *Store) Append(ctx context.Context, row []any) (rowstore.AppendResult, error) {
	vr := &gsheets.ValueRange{Values: [][]any{row}}
	resp, err := s.values.Append(s.SpreadsheetID(), rowstore.DataRange(s.sheet, s.width), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return rowstore.AppendResult{}, wrap("append", err)
	}

	var res rowstore.AppendResult
	if resp.Updates != nil {
		res.UpdatedRange = resp.Updates.UpdatedRange
	}
	return res, nil
}

func (s *Store) Update(ctx context.Context, rowNumber int, row []any) error {
	vr := &gsheets.ValueRange{Values: [][]any{row}}
	_, err := s.values.Update(s.SpreadsheetID(), rowstore.RowRange(s.sheet, rowNumber, s.width), vr).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return wrap("update", err)
}

func (s *Store) Clear(ctx context.Context, rowNumber int) error {
	_, err := s.values.Clear(s.SpreadsheetID(), rowstore.RowRange(s.sheet, rowNumber, s.width), &gsheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return wrap("clear", err)
}

// WriteHeader writes header into row 1.
func (s *Store) WriteHeader(ctx context.Context, header []any) error {
	vr := &gsheets.ValueRange{Values: [][]any{header}}
	_, err := s.values.Update(s.SpreadsheetID(), rowstore.RowRange(s.sheet, 1, s.width), vr).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return wrap("write header", err)
}

func (s *Store) BatchUpdate(ctx context.Context, updates []rowstore.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             make([]*gsheets.ValueRange, 0, len(updates)),
	}
	for _, u := range updates {
		req.Data = append(req.Data, &gsheets.ValueRange{
			Range:  rowstore.CellRange(s.sheet, u),
			Values: [][]any{{u.Value}},
		})
	}
	_, err := s.values.BatchUpdate(s.SpreadsheetID(), req).Context(ctx).Do()
	return wrap("batch update", err)
}

// wrap annotates err with the operation and, for API errors, the HTTP status
// so callers can classify quota and permission failures.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("sheets %s: spreadsheet or worksheet not found: %w", op, err)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return fmt.Errorf("sheets %s: status %d: %w", op, gErr.Code, err)
	}
	return fmt.Errorf("sheets %s: %w", op, err)
}

func isNotFound(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}
