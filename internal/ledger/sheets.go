package ledger

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets implements Ledger against a Google Sheets spreadsheet.
type Sheets struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheets creates a Sheets ledger. Pass option.WithCredentialsFile for
// service-account auth; default credentials apply otherwise.
func NewSheets(ctx context.Context, spreadsheetID, writeRange string, opts ...option.ClientOption) (*Sheets, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if writeRange == "" {
		writeRange = "Comprovantes!A:H"
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &Sheets{
		service:       service,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
	}, nil
}

// Append adds one row to the spreadsheet.
func (s *Sheets) Append(ctx context.Context, entry Entry) error {
	row := []interface{}{
		entry.Date,
		entry.UserID,
		entry.UserName,
		float64(entry.AmountCents) / 100,
		entry.SenderKey,
		entry.ReceiverKey,
		entry.EndToEnd,
		entry.ContentHash,
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, s.writeRange, &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending to spreadsheet: %w", err)
	}
	return nil
}
