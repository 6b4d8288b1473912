// Package sheets adapts a Google Sheets spreadsheet to the engine's
// RowStore contract: one active sheet holding reserved rows and one
// history sheet receiving cancelled copies.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/moritahq/clinic-reserve-bot/internal/reservations"
	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

// dataRange covers the nine reservation columns, below the header row.
const dataRange = "A2:I"

// Config controls how the sheet store connects.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	ActiveSheet     string
	HistorySheet    string
	Logger          *logging.Logger
}

// Store implements reservations.RowStore over the Sheets values API.
type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	activeSheet   string
	historySheet  string
	logger        *logging.Logger
}

// New creates a Store authenticated with a service-account key file.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id required")
	}
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wires an already-built API service, used by tests to
// point at a fake endpoint.
func NewWithService(svc *sheetsapi.Service, cfg Config) *Store {
	if svc == nil {
		panic("sheets: API service required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	activeSheet := cfg.ActiveSheet
	if activeSheet == "" {
		activeSheet = "Reservations"
	}
	historySheet := cfg.HistorySheet
	if historySheet == "" {
		historySheet = "History"
	}
	return &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		activeSheet:   activeSheet,
		historySheet:  historySheet,
		logger:        logger,
	}
}

// ReadAll returns every decodable row from the active sheet. Rows the
// codec cannot make sense of are logged and skipped rather than surfaced
// as phantom reservations.
func (s *Store) ReadAll(ctx context.Context) ([]reservations.Reservation, error) {
	rng := s.activeSheet + "!" + dataRange
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", reservations.ErrStoreRead, rng, err)
	}

	records := make([]reservations.Reservation, 0, len(resp.Values))
	for i, row := range resp.Values {
		record, ok := decodeRow(row)
		if !ok {
			s.logger.Warn("skipping undecodable sheet row", "sheet", s.activeSheet, "row", i+2)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Append adds rows to the bottom of the active sheet without touching
// existing data.
func (s *Store) Append(ctx context.Context, records ...reservations.Reservation) error {
	if len(records) == 0 {
		return nil
	}
	values := make([][]interface{}, 0, len(records))
	for _, r := range records {
		values = append(values, encodeRow(r))
	}
	return s.append(ctx, s.activeSheet, values)
}

// ReplaceAll clears the active data range and rewrites it with the given
// rows. This is the one operation exposed to lost-update risk under
// concurrent writers; callers keep it to cancellation only.
func (s *Store) ReplaceAll(ctx context.Context, records []reservations.Reservation) error {
	rng := s.activeSheet + "!" + dataRange
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: clear %s: %v", reservations.ErrStoreWrite, rng, err)
	}
	if len(records) == 0 {
		return nil
	}
	values := make([][]interface{}, 0, len(records))
	for _, r := range records {
		values = append(values, encodeRow(r))
	}
	vr := &sheetsapi.ValueRange{Values: values}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.activeSheet+"!A2", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: update %s: %v", reservations.ErrStoreWrite, rng, err)
	}
	return nil
}

// AppendHistory adds one cancelled copy to the history sheet.
func (s *Store) AppendHistory(ctx context.Context, record reservations.Reservation) error {
	return s.append(ctx, s.historySheet, [][]interface{}{encodeRow(record)})
}

func (s *Store) append(ctx context.Context, sheet string, values [][]interface{}) error {
	vr := &sheetsapi.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sheet+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: append to %s: %v", reservations.ErrStoreWrite, sheet, err)
	}
	return nil
}
