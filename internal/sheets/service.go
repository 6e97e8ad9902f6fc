// Package sheets uploads scrape results to a new Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// SheetService is the subset of the Sheets and Drive APIs the uploader needs.
type SheetService interface {
	// Create makes an empty spreadsheet and returns its ID and URL.
	Create(ctx context.Context, title string) (id, url string, err error)
	// Share grants email writer access to the spreadsheet.
	Share(ctx context.Context, spreadsheetID, email string) error
	// UpdateValues writes values starting at the A1 range, unparsed.
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	// BatchUpdate applies structural requests.
	BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) error
	// SheetID returns the numeric ID of the tab with the given title.
	SheetID(ctx context.Context, spreadsheetID, title string) (int64, error)
}

// GoogleService talks to the real APIs with service-account credentials.
type GoogleService struct {
	sheets *gsheets.Service
	drive  *drive.Service
}

// NewGoogleService authenticates with the service-account JSON at credentialsFile.
// Extra options are appended, which lets tests point both clients at a local endpoint.
func NewGoogleService(ctx context.Context, credentialsFile string, extra ...option.ClientOption) (*GoogleService, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope, drive.DriveFileScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, extra...)

	s, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	d, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &GoogleService{sheets: s, drive: d}, nil
}

// Create implements SheetService.
func (g *GoogleService) Create(ctx context.Context, title string) (string, string, error) {
	ss, err := g.sheets.Spreadsheets.Create(&gsheets.Spreadsheet{
		Properties: &gsheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return "", "", err
	}
	return ss.SpreadsheetId, ss.SpreadsheetUrl, nil
}

// Share implements SheetService.
func (g *GoogleService) Share(ctx context.Context, spreadsheetID, email string) error {
	_, err := g.drive.Permissions.Create(spreadsheetID, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}).Context(ctx).Do()
	return err
}

// UpdateValues implements SheetService.
func (g *GoogleService) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := g.sheets.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// BatchUpdate implements SheetService.
func (g *GoogleService) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) error {
	_, err := g.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// SheetID implements SheetService.
func (g *GoogleService) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	ss, err := g.sheets.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrSheetNotFound, title)
}
