package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/sheetsync/pkg/auth"
)

// NewClient creates a Sheets client for spreadsheetID. A non-empty apiKey
// skips the OAuth flow.
func NewClient(ctx context.Context, spreadsheetID, apiKey string) (*SheetsClient, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is not configured")
	}

	srv, err := auth.GetSheetsService(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	return NewSheetsClient(srv, spreadsheetID), nil
}
