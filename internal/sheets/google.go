package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

const (
	mimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	mimeFolder      = "application/vnd.google-apps.folder"
)

// Scopes are the OAuth scopes the Google backend needs.
var Scopes = []string{
	drive.DriveReadonlyScope,
	gsheets.SpreadsheetsScope,
}

// GoogleClient implements Client on top of the Google Sheets v4 and Drive v3 APIs.
type GoogleClient struct {
	sheets  *gsheets.Service
	drive   *drive.Service
	driveID string
}

// Compile-time check that GoogleClient implements Client.
var _ Client = (*GoogleClient)(nil)

// NewGoogleClient creates a client authenticated with a service-account JSON
// key. driveID restricts listing to a shared drive; empty lists the caller's
// own files.
func NewGoogleClient(ctx context.Context, credentialsJSON []byte, driveID string) (*GoogleClient, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("google credentials are empty")
	}
	opts := []option.ClientOption{
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(Scopes...),
	}
	ss, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	ds, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &GoogleClient{sheets: ss, drive: ds, driveID: driveID}, nil
}

// ListFiles lists spreadsheets under folder and, recursively, its sub-folders.
func (c *GoogleClient) ListFiles(ctx context.Context, folder string) ([]model.SourceDocument, error) {
	files, err := c.list(ctx, folder, mimeSpreadsheet, "nextPageToken, files(id, name, modifiedTime, createdTime)")
	if err != nil {
		return nil, err
	}
	docs := make([]model.SourceDocument, 0, len(files))
	for _, f := range files {
		docs = append(docs, model.SourceDocument{
			ID:           f.Id,
			Name:         f.Name,
			CreatedTime:  parseTime(f.CreatedTime),
			ModifiedTime: parseTime(f.ModifiedTime),
		})
	}

	folders, err := c.list(ctx, folder, mimeFolder, "nextPageToken, files(id, name)")
	if err != nil {
		return nil, err
	}
	for _, child := range folders {
		sub, err := c.ListFiles(ctx, child.Id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, sub...)
	}
	return docs, nil
}

func (c *GoogleClient) list(ctx context.Context, folder, mimeType, fields string) ([]*drive.File, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", folder, mimeType)
	call := c.drive.Files.List().
		Q(q).
		Fields(googleapi.Field(fields)).
		PageSize(1000).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)
	if c.driveID != "" {
		call = call.Corpora("drive").DriveId(c.driveID)
	}

	var out []*drive.File
	err := call.Pages(ctx, func(page *drive.FileList) error {
		out = append(out, page.Files...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folder, err)
	}
	return out, nil
}

// Sheets returns the tabs of the spreadsheet with their grid sizes.
func (c *GoogleClient) Sheets(ctx context.Context, spreadsheetID string) ([]model.SheetInfo, error) {
	resp, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(title,sheetId,gridProperties.rowCount,gridProperties.columnCount)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	infos := make([]model.SheetInfo, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		p := s.Properties
		if p == nil || p.Title == "" {
			continue
		}
		info := model.SheetInfo{ID: p.SheetId, Title: p.Title}
		if p.GridProperties != nil {
			info.RowCount = int(p.GridProperties.RowCount)
			info.ColumnCount = int(p.GridProperties.ColumnCount)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Read fetches r with the requested render option.
func (c *GoogleClient) Read(ctx context.Context, spreadsheetID string, r model.Range, render Render) (model.Grid, error) {
	vr, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, r.A1()).
		ValueRenderOption(renderOption(render)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(fmt.Errorf("read %s: %w", r.A1(), err), r.Sheet)
	}
	grid := make(model.Grid, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		grid[i] = cells
	}
	return grid, nil
}

// Clear empties r.
func (c *GoogleClient) Clear(ctx context.Context, spreadsheetID string, r model.Range) error {
	_, err := c.sheets.Spreadsheets.Values.Clear(spreadsheetID, r.A1(), &gsheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return classify(fmt.Errorf("clear %s: %w", r.A1(), err), r.Sheet)
	}
	return nil
}

// Write stores values at r.
func (c *GoogleClient) Write(ctx context.Context, spreadsheetID string, r model.Range, values model.Grid, input Input) error {
	_, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, r.A1(), &gsheets.ValueRange{Values: toInterfaces(values)}).
		ValueInputOption(inputOption(input)).
		Context(ctx).
		Do()
	if err != nil {
		return classify(fmt.Errorf("write %s: %w", r.A1(), err), r.Sheet)
	}
	return nil
}

// BatchWrite applies updates in a single values:batchUpdate call.
func (c *GoogleClient) BatchWrite(ctx context.Context, spreadsheetID string, updates []Update, input Input) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]*gsheets.ValueRange, len(updates))
	for i, u := range updates {
		data[i] = &gsheets.ValueRange{Range: u.Range.A1(), Values: toInterfaces(u.Values)}
	}
	_, err := c.sheets.Spreadsheets.Values.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: inputOption(input),
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("batch write %d ranges: %w", len(updates), err), updates[0].Range.Sheet)
	}
	return nil
}

// CopyValues pastes r onto itself as values, replacing formulas with results.
func (c *GoogleClient) CopyValues(ctx context.Context, spreadsheetID string, r GridRange) error {
	gr := &gsheets.GridRange{
		SheetId:          r.SheetID,
		StartRowIndex:    int64(r.StartRow),
		EndRowIndex:      int64(r.EndRow),
		StartColumnIndex: int64(r.StartColumn),
		EndColumnIndex:   int64(r.EndColumn),
		ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
	}
	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			CopyPaste: &gsheets.CopyPasteRequest{
				Source:           gr,
				Destination:      gr,
				PasteType:        "PASTE_VALUES",
				PasteOrientation: "NORMAL",
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("copy values on sheet %d rows %d-%d: %w", r.SheetID, r.StartRow+1, r.EndRow, err)
	}
	return nil
}

// EnsureColumns widens the tab when it has fewer than n columns.
func (c *GoogleClient) EnsureColumns(ctx context.Context, spreadsheetID string, sheet model.SheetInfo, n int) error {
	if sheet.ColumnCount >= n {
		return nil
	}
	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			UpdateSheetProperties: &gsheets.UpdateSheetPropertiesRequest{
				Properties: &gsheets.SheetProperties{
					SheetId:         sheet.ID,
					GridProperties:  &gsheets.GridProperties{ColumnCount: int64(n)},
					ForceSendFields: []string{"SheetId"},
				},
				Fields: "gridProperties.columnCount",
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("expand %s to %d columns: %w", sheet.Title, n, err)
	}
	return nil
}

// classify maps the API's range-parse failure for an unknown tab to ErrTabNotFound.
func classify(err error, tab string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %w", &TabError{Tab: tab}, err)
	}
	return err
}

func renderOption(r Render) string {
	switch r {
	case RenderFormula:
		return "FORMULA"
	case RenderUnformatted:
		return "UNFORMATTED_VALUE"
	default:
		return "FORMATTED_VALUE"
	}
}

func inputOption(i Input) string {
	if i == InputUserEntered {
		return "USER_ENTERED"
	}
	return "RAW"
}

func toInterfaces(g model.Grid) [][]interface{} {
	out := make([][]interface{}, len(g))
	for i, row := range g {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
