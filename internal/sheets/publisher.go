// Package sheets pushes the merged snapshot to a Google Sheets document.
// The push is a full replace of the target sheet, never an incremental diff,
// and the run treats any failure here as a logged warning.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/clipindex/harvester/internal/catalog"
)

// Config identifies the target sheet and the service-account credentials.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
}

// Publisher replaces the contents of one sheet with the current snapshot.
type Publisher struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewPublisher authenticates against the Sheets API with a service-account
// credentials file.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("sheets.credentials_file is required")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets.spreadsheet_id is required")
	}
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Publisher{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Publish clears the target sheet and writes the header plus every record.
func (p *Publisher) Publish(ctx context.Context, records []catalog.Record) error {
	if _, err := p.svc.Spreadsheets.Values.
		Clear(p.spreadsheetID, p.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", p.sheetName, err)
	}

	body := &sheets.ValueRange{Values: Rows(records)}
	if _, err := p.svc.Spreadsheets.Values.
		Update(p.spreadsheetID, p.sheetName, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("update sheet %s: %w", p.sheetName, err)
	}
	return nil
}

// Rows renders the header row followed by one row per record, matching the
// CSV export's column order. Counts stay numeric so the sheet can sort and
// chart them.
func Rows(records []catalog.Record) [][]any {
	rows := make([][]any, 0, len(records)+1)

	header := make([]any, len(catalog.Columns))
	for i, col := range catalog.Columns {
		header[i] = col
	}
	rows = append(rows, header)

	for _, rec := range records {
		rows = append(rows, []any{
			rec.Page,
			rec.ID,
			rec.Title,
			rec.Link,
			rec.Thumbnail,
			rec.Views,
			rec.Comments,
			rec.Likes,
			rec.Date,
			rec.Author,
			rec.Summary,
		})
	}
	return rows
}
