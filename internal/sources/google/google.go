package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/sources"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config names the spreadsheet and its two tabs.
type Config struct {
	SpreadsheetID     string
	CustomersSheet    string
	TransactionsSheet string

	// Service account credentials, inline or as a file path. When both are
	// empty the environment is consulted.
	CredentialsJSON string
	CredentialsFile string
}

// Client reads customers and transactions from a Google spreadsheet.
type Client struct {
	svc    *gsheet.Service
	cfg    Config
	logger *applog.Logger
}

// Ensure interface conformance
var _ sources.SnapshotFetcher = (*Client)(nil)

// New creates a Sheets client authenticated with service account credentials.
// Falls back to GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS when cfg carries none.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *applog.Logger) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	cfg.SpreadsheetID = strings.TrimSpace(cfg.SpreadsheetID)
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.CustomersSheet == "" {
		cfg.CustomersSheet = "Customers"
	}
	if cfg.TransactionsSheet == "" {
		cfg.TransactionsSheet = "Transactions"
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Client{svc: svc, cfg: cfg, logger: logger.WithComponent(applog.ComponentSource)}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	if inline == "" {
		inline = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	}
	if inline != "" {
		return []byte(inline), nil
	}
	file := strings.TrimSpace(cfg.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	}
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// FetchSnapshot implements sources.SnapshotFetcher. Both tabs are read
// concurrently; either failing fails the fetch.
func (c *Client) FetchSnapshot(ctx context.Context) (*core.Snapshot, error) {
	var customerRows, txRows [][]interface{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := c.readRange(gctx, c.cfg.CustomersSheet+"!A:B")
		customerRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := c.readRange(gctx, c.cfg.TransactionsSheet+"!A:D")
		txRows = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	customers, skippedCustomers := parseCustomers(customerRows)
	txs, skippedTxs := parseTransactions(txRows)
	if skippedCustomers > 0 || skippedTxs > 0 {
		c.logger.WarnContext(ctx, "Skipped malformed sheet rows",
			"customers_skipped", skippedCustomers,
			"transactions_skipped", skippedTxs)
	}

	return core.NewSnapshot(customers, txs), nil
}

func (c *Client) readRange(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", rng, err)
	}
	return resp.Values, nil
}
