// Package sheets stores tracking tables in a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const valueInput = "RAW"

// Client talks to one spreadsheet. All calls share a rate limiter to stay
// under the per-user quota.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
}

func New(ctx context.Context, credentialsFile, spreadsheetID string, perSecond float64, burst int) (*Client, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(perSecond), burst),
	}, nil
}

// Worksheet opens the index-th worksheet of the spreadsheet.
func (c *Client) Worksheet(ctx context.Context, index int) (*Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	if index < 0 || index >= len(ss.Sheets) {
		return nil, fmt.Errorf("spreadsheet has no worksheet %d", index)
	}

	props := ss.Sheets[index].Properties
	return &Table{client: c, title: props.Title, sheetID: props.SheetId}, nil
}

// Table is one worksheet. It implements tracker.Table.
type Table struct {
	client  *Client
	title   string
	sheetID int64
}

func (t *Table) Title() string { return t.title }

func (t *Table) wait(ctx context.Context) error {
	return t.client.limiter.Wait(ctx)
}

func (t *Table) values() *sheets.SpreadsheetsValuesService {
	return t.client.svc.Spreadsheets.Values
}

func (t *Table) Values(ctx context.Context) ([][]string, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := t.values().Get(t.client.spreadsheetID, quoteTitle(t.title)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.title, err)
	}
	return toStrings(resp.Values), nil
}

func (t *Table) Cell(ctx context.Context, row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", fmt.Errorf("invalid cell %d:%d", row, col)
	}
	if err := t.wait(ctx); err != nil {
		return "", err
	}

	resp, err := t.values().Get(t.client.spreadsheetID, cellRange(t.title, row, col)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", cellRange(t.title, row, col), err)
	}

	values := toStrings(resp.Values)
	if len(values) == 0 || len(values[0]) == 0 {
		return "", nil
	}
	return values[0][0], nil
}

func (t *Table) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %d:%d", row, col)
	}
	return t.update(ctx, cellRange(t.title, row, col), []string{value})
}

func (t *Table) SetHeader(ctx context.Context, cells []string) error {
	return t.update(ctx, cellRange(t.title, 1, 1), cells)
}

func (t *Table) update(ctx context.Context, rng string, cells []string) error {
	if err := t.wait(ctx); err != nil {
		return err
	}

	vr := &sheets.ValueRange{Values: [][]any{toRow(cells)}}
	_, err := t.values().Update(t.client.spreadsheetID, rng, vr).
		ValueInputOption(valueInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

func (t *Table) AppendRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := t.wait(ctx); err != nil {
		return err
	}

	vr := &sheets.ValueRange{}
	for _, r := range rows {
		vr.Values = append(vr.Values, toRow(r))
	}

	_, err := t.values().Append(t.client.spreadsheetID, quoteTitle(t.title), vr).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", t.title, err)
	}
	return nil
}

// DeleteRows removes whole rows in one batch request. Requests run in
// order, so rows are deleted bottom up.
func (t *Table) DeleteRows(ctx context.Context, rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	if err := t.wait(ctx); err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: deleteRequests(t.sheetID, rows),
	}
	_, err := t.client.svc.Spreadsheets.BatchUpdate(t.client.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete rows from %s: %w", t.title, err)
	}
	return nil
}

func deleteRequests(sheetID int64, rows []int) []*sheets.Request {
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	reqs := make([]*sheets.Request, 0, len(sorted))
	for _, r := range sorted {
		reqs = append(reqs, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(r - 1),
					EndIndex:        int64(r),
					ForceSendFields: []string{"StartIndex"},
				},
			},
		})
	}
	return reqs
}

// ColumnLetter converts a 1-based column number to its A1 name.
func ColumnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellRange(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), ColumnLetter(col), row)
}

func toRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func toStrings(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out
}
