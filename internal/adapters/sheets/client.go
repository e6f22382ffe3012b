// Package sheets reads and writes spreadsheet ranges through the Google Sheets v4 API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"campingcare/internal/adapters/observability"
	"campingcare/internal/domain"
)

// valueInputOption RAW stores "pending" verbatim instead of parsing it.
const valueInputOption = "RAW"

type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
}

// TokenSource prefers the refresh-token flow and falls back to a static
// access token.
func TokenSource(ctx context.Context, c Credentials) (oauth2.TokenSource, error) {
	switch {
	case c.RefreshToken != "":
		cfg := &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gsheets.SpreadsheetsScope},
		}
		return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken}), nil
	case c.AccessToken != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.AccessToken, TokenType: "Bearer"}), nil
	default:
		return nil, errors.New("sheets: no OAuth2 credentials configured")
	}
}

type Client struct {
	svc *gsheets.Service
}

var _ domain.SheetsClient = (*Client)(nil)

func New(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// NewWithCredentials wires the OAuth2 token source; endpoint overrides the
// API base URL when non-empty.
func NewWithCredentials(ctx context.Context, c Credentials, endpoint string) (*Client, error) {
	ts, err := TokenSource(ctx, c)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return New(ctx, opts...)
}

func (c *Client) GetValues(ctx context.Context, spreadsheetID, a1Range string) (domain.Grid, error) {
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, a1Range).Context(ctx).Do()
	observability.ObserveExternal("sheets", "values.get", statusOf(err), time.Since(start))
	if err != nil {
		return nil, wrap("values.get", err)
	}
	grid := make(domain.Grid, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok {
				cells[j] = s
				continue
			}
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return grid, nil
}

func (c *Client) BatchUpdateValues(ctx context.Context, spreadsheetID string, updates []domain.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             make([]*gsheets.ValueRange, 0, len(updates)),
	}
	for _, u := range updates {
		req.Data = append(req.Data, &gsheets.ValueRange{
			Range:  u.Range,
			Values: [][]interface{}{{u.Value}},
		})
	}
	start := time.Now()
	_, err := c.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	observability.ObserveExternal("sheets", "values.batchUpdate", statusOf(err), time.Since(start))
	if err != nil {
		return wrap("values.batchUpdate", err)
	}
	return nil
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

func wrap(call string, err error) error {
	switch statusOf(err) {
	case http.StatusNotFound:
		return fmt.Errorf("sheets %s: %w: %v", call, domain.ErrNotFound, err)
	case http.StatusUnauthorized:
		return fmt.Errorf("sheets %s: %w: %v", call, domain.ErrUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("sheets %s: %w: %v", call, domain.ErrForbidden, err)
	}
	return fmt.Errorf("sheets %s: %w", call, err)
}
