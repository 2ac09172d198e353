package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-gateway/internal/domain"
	"github.com/helixir/paper-search-gateway/internal/observability"
)

const (
	// DefaultBaseURL is the default base URL for the retrieval API.
	DefaultBaseURL = "http://localhost:25620/api/api"

	// DefaultTopK is the default number of results requested per plain search.
	DefaultTopK = 50

	// DefaultSearchTimeout is the wall-clock timeout for plain retrieval calls.
	DefaultSearchTimeout = 120 * time.Second

	// DefaultDeepSearchTimeout is the wall-clock timeout for deep search calls.
	DefaultDeepSearchTimeout = 180 * time.Second

	// DefaultStatsTimeout is the timeout for database statistics calls.
	DefaultStatsTimeout = 30 * time.Second

	// statusSuccess is the success marker in retrieval response envelopes.
	statusSuccess = "success"

	// maxResponseBytes caps decoded response bodies.
	maxResponseBytes = 32 << 20

	// Metric operation labels.
	opRetrieve   = "retrieve"
	opDeepSearch = "deep_search"
	opStats      = "stats"
)

// Config contains configuration options for the retrieval client.
type Config struct {
	// BaseURL is the base URL of the retrieval API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// TopK is the number of results requested per plain search.
	// Defaults to DefaultTopK if zero.
	TopK int

	// SearchTimeout bounds plain retrieval calls.
	// Defaults to DefaultSearchTimeout if zero.
	SearchTimeout time.Duration

	// DeepSearchTimeout bounds deep search calls.
	// Defaults to DefaultDeepSearchTimeout if zero.
	DeepSearchTimeout time.Duration

	// RateLimit is the maximum outbound requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of outbound requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts on 429/5xx responses.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// StatsURL is the full URL of the database statistics endpoint.
	// Stats calls fail with a transport error when empty.
	StatsURL string

	// StatsTimeout bounds statistics calls.
	// Defaults to DefaultStatsTimeout if zero.
	StatsTimeout time.Duration
}

// Client calls the remote retrieval service. It is safe for concurrent use.
type Client struct {
	httpClient *HTTPClient
	config     Config
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a retrieval client. If httpClient is nil, one is created
// from the configuration. Metrics may be nil.
func NewClient(cfg Config, httpClient *HTTPClient, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	if cfg.DeepSearchTimeout == 0 {
		cfg.DeepSearchTimeout = DefaultDeepSearchTimeout
	}
	if cfg.StatsTimeout == 0 {
		cfg.StatsTimeout = DefaultStatsTimeout
	}

	if httpClient == nil {
		// The HTTP client timeout must cover the slowest call it serves.
		httpClient = NewHTTPClient(HTTPClientConfig{
			Timeout:    cfg.DeepSearchTimeout,
			RateLimit:  cfg.RateLimit,
			BurstSize:  cfg.BurstSize,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger.With().Str("component", "retrieval_client").Logger(),
		metrics:    metrics,
	}
}

// Retrieve runs a plain top-k retrieval call for a single query. A response
// with a non-success status yields an empty result list, not an error.
func (c *Client) Retrieve(ctx context.Context, query string) ([]RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.SearchTimeout)
	defer cancel()

	payload := retrieveRequest{
		Queries: []string{query},
		TopK:    c.config.TopK,
	}

	body, err := c.postJSON(ctx, opRetrieve, c.config.BaseURL+"/retrieval/retrieve", payload)
	if err != nil {
		return nil, err
	}

	var resp retrieveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.recordFailure(opRetrieve, "decode")
		return nil, &domain.ExternalAPIError{
			Service: "retrieval",
			Message: "malformed retrieve response",
			Cause:   err,
		}
	}

	if resp.Status != statusSuccess {
		c.logger.Warn().
			Str("status", resp.Status).
			Str("query", query).
			Msg("retrieval answered with non-success status")
		return nil, nil
	}

	return resp.Result, nil
}

// DeepSearch runs a full multi-stage retrieval call for a single query.
func (c *Client) DeepSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.DeepSearchTimeout)
	defer cancel()

	funcs := make([]string, 0, len(opts.IndexingFields))
	for _, f := range opts.IndexingFields {
		funcs = append(funcs, string(f))
	}

	payload := deepSearchRequest{
		Queries:               []string{query},
		UseQueryDecomposition: opts.QueryUnderstanding,
		UseCoarseRerank:       opts.SmartRerank,
		UseFineRerank:         opts.SmartRerank,
		SearchFuncs:           funcs,
	}

	body, err := c.postJSON(ctx, opDeepSearch, c.config.BaseURL+"/retrieval_for_test/search", payload)
	if err != nil {
		return nil, err
	}

	// Deep search answers with one envelope per query; we always send one.
	var envelopes []retrieveResponse
	if err := json.Unmarshal(body, &envelopes); err != nil {
		c.recordFailure(opDeepSearch, "decode")
		return nil, &domain.ExternalAPIError{
			Service: "retrieval",
			Message: "malformed deep search response",
			Cause:   err,
		}
	}
	if len(envelopes) == 0 {
		c.recordFailure(opDeepSearch, "empty")
		return nil, &domain.ExternalAPIError{
			Service: "retrieval",
			Message: "deep search response contained no envelopes",
		}
	}

	resp := envelopes[0]
	if resp.Status != statusSuccess {
		c.logger.Warn().
			Str("status", resp.Status).
			Str("query", query).
			Msg("deep search answered with non-success status")
		return nil, nil
	}

	return resp.Result, nil
}

// Stats fetches the database statistics document. Transport failures are
// reported as domain.TransportError so the handler can answer 503.
func (c *Client) Stats(ctx context.Context) (*DatabaseStats, error) {
	if c.config.StatsURL == "" {
		return nil, &domain.TransportError{
			Service: "stats",
			Cause:   fmt.Errorf("stats URL not configured"),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.StatsTimeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.StatsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating stats request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(opStats, "transport")
		return nil, &domain.TransportError{Service: "stats", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(opStats, "status")
		return nil, &domain.ExternalAPIError{
			Service:    "stats",
			StatusCode: resp.StatusCode,
			Message:    "unexpected status",
		}
	}

	var envelope statsEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&envelope); err != nil {
		c.recordFailure(opStats, "decode")
		return nil, &domain.ExternalAPIError{
			Service: "stats",
			Message: "malformed stats response",
			Cause:   err,
		}
	}
	if !envelope.Success {
		c.recordFailure(opStats, "failure")
		return nil, &domain.ExternalAPIError{
			Service: "stats",
			Message: "statistics service reported failure",
		}
	}

	c.recordSuccess(opStats, start)

	// The latest update time arrives as "YYYY-MM-DD HH:MM:SS"; only the
	// date part is returned to clients.
	latest := envelope.Data.LatestUpdateTime
	if i := strings.IndexByte(latest, ' '); i >= 0 {
		latest = latest[:i]
	}

	return &DatabaseStats{
		TotalPapers:  envelope.Data.TotalCount,
		LatestUpdate: latest,
	}, nil
}

// postJSON sends a JSON payload and returns the raw response body. Network
// failures map to domain.TransportError and non-2xx statuses to
// domain.ExternalAPIError.
func (c *Client) postJSON(ctx context.Context, operation, url string, payload any) ([]byte, error) {
	start := time.Now()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(operation, "transport")
		return nil, &domain.TransportError{Service: "retrieval", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure(operation, "read")
		return nil, &domain.TransportError{Service: "retrieval", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(operation, "status")
		return nil, &domain.ExternalAPIError{
			Service:    "retrieval",
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s returned unexpected status", operation),
		}
	}

	c.recordSuccess(operation, start)
	return body, nil
}

func (c *Client) recordSuccess(operation string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordRetrievalRequest(operation, time.Since(start).Seconds())
	}
}

func (c *Client) recordFailure(operation, errorType string) {
	if c.metrics != nil {
		c.metrics.RecordRetrievalFailure(operation, errorType)
	}
}
