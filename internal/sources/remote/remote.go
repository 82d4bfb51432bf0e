package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/sources"
)

// maxBodyBytes bounds each collection response.
const maxBodyBytes = 16 << 20

// Client fetches customers and transactions from a json-server style API
// exposing GET /customers and GET /transactions.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *applog.Logger
}

var _ sources.SnapshotFetcher = (*Client)(nil)

// New creates a client for baseURL. httpClient may be nil.
func New(baseURL string, httpClient *http.Client, logger *applog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Client{baseURL: u, http: httpClient, logger: logger.WithComponent(applog.ComponentSource)}, nil
}

// newHTTPClient returns a client with pooled connections and bounded timeouts.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
		},
		Timeout: 30 * time.Second,
	}
}

// FetchSnapshot implements sources.SnapshotFetcher. Both collections are
// requested concurrently.
func (c *Client) FetchSnapshot(ctx context.Context) (*core.Snapshot, error) {
	var customers []core.Customer
	var txs []core.Transaction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "customers", &customers)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "transactions", &txs)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "Remote snapshot fetched",
		applog.FieldCustomers, len(customers),
		applog.FieldTransactions, len(txs))
	return core.NewSnapshot(customers, txs), nil
}

func (c *Client) getJSON(ctx context.Context, collection string, dst any) error {
	endpoint := c.baseURL.JoinPath(collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", collection, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Collection: collection, StatusCode: resp.StatusCode}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// StatusError reports a non-200 response for a collection.
type StatusError struct {
	Collection string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: unexpected status %d", e.Collection, e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
