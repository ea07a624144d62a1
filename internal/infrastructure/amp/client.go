package amp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// maxLineBytes bounds a single JSONL response line.
const maxLineBytes = 1 << 20

// Table is the decoded tabular result of one query: ordered rows with named
// columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is one result row keyed by column name.
type Row map[string]interface{}

// ClientInterface defines the operations of the remote query client
type ClientInterface interface {
	// Execute runs a SQL query against the endpoint and decodes the response
	Execute(ctx context.Context, query string) (*Table, error)

	// Ping checks endpoint reachability with a trivial query
	Ping(ctx context.Context) error
}

// Client executes SQL over HTTP against an Amp query endpoint. Transient
// failures are retried with increasing backoff; parse failures surface
// immediately because they indicate a response contract mismatch.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	logger      *logger.Logger
}

// NewClient creates a new Amp query client
func NewClient(cfg *config.AmpConfig, log *logger.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.EndpointURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.QueryTimeout,
			Transport: transport,
		},
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      log.WithComponent("amp-client"),
	}
}

var _ ClientInterface = (*Client)(nil)

// Execute runs a SQL query against the endpoint and decodes the response
func (c *Client) Execute(ctx context.Context, query string) (*Table, error) {
	var lastErr *entity.QueryError
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		table, qerr := c.executeOnce(ctx, query)
		if qerr == nil {
			return table, nil
		}
		if !qerr.Retryable() {
			return nil, qerr
		}
		lastErr = qerr

		c.logger.Warn("Query attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.String("kind", string(qerr.Kind)),
			zap.Error(qerr))

		if attempt < c.maxAttempts {
			if err := sleepContext(ctx, c.backoff(attempt)); err != nil {
				return nil, lastErr
			}
		}
	}
	return nil, lastErr
}

// Ping checks endpoint reachability with a trivial query
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "SELECT 1 AS test")
	return err
}

// backoff returns the delay before the next attempt: base, then doubling.
func (c *Client) backoff(attempt int) time.Duration {
	return c.baseDelay << (attempt - 1)
}

func (c *Client) executeOnce(ctx context.Context, query string) (*Table, *entity.QueryError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, entity.NewQueryError(entity.ErrKindConnection, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
		return nil, entity.NewQueryError(entity.ErrKindServer, msg, nil)
	}

	return parseTable(body)
}

// classifyTransportError separates deadline failures from unreachable
// endpoints.
func classifyTransportError(err error) *entity.QueryError {
	if errors.Is(err, context.DeadlineExceeded) {
		return entity.NewQueryError(entity.ErrKindTimeout, "query timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return entity.NewQueryError(entity.ErrKindTimeout, "query timed out", err)
	}
	return entity.NewQueryError(entity.ErrKindConnection, "endpoint unreachable", err)
}

// parseTable decodes the response encodings the endpoint produces: a
// {columns, rows} object, a JSON array of row objects, or JSONL with one
// row object per line.
func parseTable(body []byte) (*Table, *entity.QueryError) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Table{}, nil
	}

	switch trimmed[0] {
	case '[':
		return parseArray(trimmed)
	case '{':
		if isColumnar(trimmed) {
			return parseColumnar(trimmed)
		}
		return parseLines(trimmed)
	default:
		return nil, entity.NewQueryError(entity.ErrKindParse,
			fmt.Sprintf("response is not tabular JSON: %s", truncate(string(trimmed), 80)), nil)
	}
}

// isColumnar reports whether the body is a single {columns, rows} object
// rather than JSONL row objects.
func isColumnar(body []byte) bool {
	var probe struct {
		Columns json.RawMessage `json:"columns"`
		Rows    json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return len(probe.Columns) > 0 && len(probe.Rows) > 0
}

func parseColumnar(body []byte) (*Table, *entity.QueryError) {
	var cr struct {
		Columns []string        `json:"columns"`
		Rows    [][]interface{} `json:"rows"`
	}
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, entity.NewQueryError(entity.ErrKindParse, "malformed columnar response", err)
	}

	table := &Table{Columns: cr.Columns, Rows: make([]Row, 0, len(cr.Rows))}
	for i, values := range cr.Rows {
		if len(values) != len(cr.Columns) {
			return nil, entity.NewQueryError(entity.ErrKindParse,
				fmt.Sprintf("row %d has %d values for %d columns", i, len(values), len(cr.Columns)), nil)
		}
		row := make(Row, len(cr.Columns))
		for j, col := range cr.Columns {
			row[col] = values[j]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func parseArray(body []byte) (*Table, *entity.QueryError) {
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, entity.NewQueryError(entity.ErrKindParse, "malformed row array response", err)
	}
	return tableFromRows(rows), nil
}

func parseLines(body []byte) (*Table, *entity.QueryError) {
	rows := make([]Row, 0, 64)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(text, &row); err != nil {
			return nil, entity.NewQueryError(entity.ErrKindParse,
				fmt.Sprintf("line %d is not a JSON row object", line), err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, entity.NewQueryError(entity.ErrKindParse, "failed to scan response lines", err)
	}
	return tableFromRows(rows), nil
}

// tableFromRows derives the column list from the first row. JSON objects do
// not preserve order, so names are sorted for determinism.
func tableFromRows(rows []Row) *Table {
	table := &Table{Rows: rows}
	if len(rows) > 0 {
		table.Columns = make([]string, 0, len(rows[0]))
		for col := range rows[0] {
			table.Columns = append(table.Columns, col)
		}
		sort.Strings(table.Columns)
	}
	return table
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
