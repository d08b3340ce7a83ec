package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valuesAPI is the slice of the Sheets API the store uses. Ranges are A1
// notation; rows are 1-based sheet rows.
type valuesAPI interface {
	get(ctx context.Context, rng string) ([][]any, error)
	update(ctx context.Context, rng string, rows [][]any) error
	append(ctx context.Context, rng string, rows [][]any) error
	deleteRow(ctx context.Context, sheet string, row int) error
	// ensureSheet adds a sheet named title unless it exists and reports
	// whether it was created.
	ensureSheet(ctx context.Context, title string) (bool, error)
}

type sheetsAPI struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over the file path; GOOGLE_APPLICATION_CREDENTIALS is the
// last resort.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	credentialsFile = strings.TrimSpace(credentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials", "json_length", len(credentialsJSON))
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (a *sheetsAPI) get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(a.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// update and append write RAW so dates stay the strings we wrote instead of
// being reinterpreted with the spreadsheet locale.
func (a *sheetsAPI) update(ctx context.Context, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Update(a.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (a *sheetsAPI) append(ctx context.Context, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Append(a.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

func (a *sheetsAPI) deleteRow(ctx context.Context, sheet string, row int) error {
	sheetID, ok, err := a.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
			// the first sheet usually has id 0, which omitempty would drop
			ForceSendFields: []string{"SheetId", "StartIndex"},
		}},
	}}}
	if _, err := a.svc.Spreadsheets.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func (a *sheetsAPI) ensureSheet(ctx context.Context, title string) (bool, error) {
	_, ok, err := a.sheetID(ctx, title)
	if err != nil || ok {
		return false, err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := a.svc.Spreadsheets.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("add sheet %s: %w", title, err)
	}
	return true, nil
}

func (a *sheetsAPI) sheetID(ctx context.Context, title string) (int64, bool, error) {
	ss, err := a.svc.Spreadsheets.Get(a.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}
