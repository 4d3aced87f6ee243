package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/harrisonrobin/sheetsync/pkg/cellref"
	"github.com/harrisonrobin/sheetsync/pkg/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

const notesFields = "sheets.data.rowData.values.note,sheets.data.startRow,sheets.data.startColumn"

// SheetsClient reads values and notes from one spreadsheet. It satisfies
// table.Source.
type SheetsClient struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewSheetsClient wraps an existing service.
func NewSheetsClient(srv *sheets.Service, spreadsheetID string) *SheetsClient {
	return &SheetsClient{srv: srv, spreadsheetID: spreadsheetID}
}

// Values returns the formatted cell values of rangeSpec, row by row.
// Trailing empty cells are omitted by the API, so rows may be ragged.
func (c *SheetsClient) Values(ctx context.Context, rangeSpec string) ([][]string, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, remoteError("get values", rangeSpec, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty values response for %s", model.ErrMalformedResponse, rangeSpec)
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// Notes returns every non-empty cell note in rangeSpec keyed by its A1
// reference relative to the sheet origin.
func (c *SheetsClient) Notes(ctx context.Context, rangeSpec string) (model.AnnotationMap, error) {
	resp, err := c.srv.Spreadsheets.Get(c.spreadsheetID).
		Ranges(rangeSpec).
		IncludeGridData(true).
		Fields(notesFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, remoteError("get notes", rangeSpec, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty notes response for %s", model.ErrMalformedResponse, rangeSpec)
	}

	notes := model.AnnotationMap{}
	if len(resp.Sheets) == 0 || resp.Sheets[0] == nil || len(resp.Sheets[0].Data) == 0 {
		return notes, nil
	}
	grid := resp.Sheets[0].Data[0]
	if grid == nil {
		return notes, nil
	}
	for r, row := range grid.RowData {
		if row == nil {
			continue
		}
		for col, cell := range row.Values {
			if cell == nil || cell.Note == "" {
				continue
			}
			ref := cellref.Encode(int(grid.StartRow)+r, int(grid.StartColumn)+col)
			notes[ref] = cell.Note
		}
	}
	return notes, nil
}

// Ping reads the first rows of sheet and reports how many came back.
func (c *SheetsClient) Ping(ctx context.Context, sheet string) (int, error) {
	rows, err := c.Values(ctx, sheet+"!A1:E10")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func remoteError(op, rangeSpec string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s %s: %w: status %d: %w", op, rangeSpec, model.ErrRemoteUnavailable, apiErr.Code, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, rangeSpec, model.ErrRemoteUnavailable, err)
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
