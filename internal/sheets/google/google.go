// Package google mirrors transactions into a Google Sheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

const lastColumn = "I"

type Config struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials, inline JSON first, then a file path.
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger

	mu      sync.Mutex
	sheetID *int64
}

var _ ports.Mirror = (*Client)(nil)

// New authenticates with a service account and returns a mirror client.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing service, for tests and custom transports.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *applog.Logger) *Client {
	if sheetName == "" {
		sheetName = "Transactions"
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
}

func credentialsJSON(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	raw, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	creds, err := goauth.CredentialsFromJSON(ctx, raw, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	client := newHTTPClientWithPooling(oauth2.ReuseTokenSource(nil, creds.TokenSource))
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsScope)
	return svc, nil
}

// newHTTPClientWithPooling returns an authorized client with connection
// pooling and bounded timeouts.
func newHTTPClientWithPooling(src oauth2.TokenSource) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: transport},
		Timeout:   60 * time.Second,
	}
}

// a1 quotes the sheet name so names with spaces or apostrophes work.
func (c *Client) a1(cells string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + cells
}

func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := c.a1("A1:" + lastColumn + "1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}
	c.logger.InfoContext(ctx, "Wrote header row", "sheet", c.sheetName)
	return nil
}

// Upsert writes RAW values so user text is never evaluated as a formula.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) error {
	row, err := c.findRow(ctx, t.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.RowValues(t)}}

	if row > 0 {
		rng := c.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update row %d in %s: %w", row, c.sheetName, err)
		}
		c.logger.DebugContext(ctx, "Updated mirrored row", applog.FieldTransactionID, t.ID, "row", row)
		return nil
	}

	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:"+lastColumn), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	c.logger.DebugContext(ctx, "Appended mirrored row", applog.FieldTransactionID, t.ID)
	return nil
}

func (c *Client) DeleteByID(ctx context.Context, id int64) error {
	row, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		c.logger.DebugContext(ctx, "No mirrored row to delete", applog.FieldTransactionID, id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(row - 1),
					EndIndex:        int64(row),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row, c.sheetName, err)
	}
	c.logger.DebugContext(ctx, "Deleted mirrored row", applog.FieldTransactionID, id, "row", row)
	return nil
}

// findRow returns the 1-based row holding id in column A, or 0.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column of %s: %w", c.sheetName, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if v, ok := cellID(row[0]); ok && v == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties(sheetId,title)").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

// cellID reads an id cell, which the API returns as a string or a number
// depending on the render option.
func cellID(cell any) (int64, bool) {
	switch v := cell.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
