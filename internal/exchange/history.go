package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/signal"
)

const (
	defaultHistoryBatchSize   = 1000
	defaultMaxHistoryRequests = 100
)

// HistoryClient fetches historical bid/ask ticks from the broker gateway's
// HTTP endpoint. The gateway serves at most one batch per request, so longer
// periods are paged: each follow-up request starts one second after the last
// tick received, until the target end time or the request cap is hit.
type HistoryClient struct {
	baseURL     string
	client      *http.Client
	log         zerolog.Logger
	batchSize   int
	maxRequests int
}

// HistoryOption configures a HistoryClient.
type HistoryOption func(*HistoryClient)

// WithMaxRequests caps the number of paged requests per fetch.
func WithMaxRequests(n int) HistoryOption {
	return func(c *HistoryClient) {
		if n > 0 {
			c.maxRequests = n
		}
	}
}

// WithBatchSize overrides the per-request tick limit.
func WithBatchSize(n int) HistoryOption {
	return func(c *HistoryClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) HistoryOption {
	return func(c *HistoryClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewHistoryClient builds a client against the gateway base URL.
func NewHistoryClient(baseURL string, log zerolog.Logger, opts ...HistoryOption) *HistoryClient {
	c := &HistoryClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client:      &http.Client{Timeout: 15 * time.Second},
		log:         log,
		batchSize:   defaultHistoryBatchSize,
		maxRequests: defaultMaxHistoryRequests,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type historyTick struct {
	TimeMs int64   `json:"time_ms"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

type historyResponse struct {
	Ticks []historyTick `json:"ticks"`
}

// FetchTicks pages through the gateway until end (inclusive) and returns
// midpoint ticks in arrival order.
func (c *HistoryClient) FetchTicks(ctx context.Context, symbol string, start, end time.Time) ([]signal.Tick, error) {
	if symbol == "" {
		return nil, fmt.Errorf("history fetch requires a symbol")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("history fetch requires end after start")
	}

	var out []signal.Tick
	cursor := start
	for requests := 0; requests < c.maxRequests; requests++ {
		batch, err := c.fetchBatch(ctx, symbol, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, ht := range batch {
			ts := time.UnixMilli(ht.TimeMs)
			if ts.After(end) {
				break
			}
			out = append(out, signal.Tick{
				Symbol: symbol,
				Price:  0.5 * (ht.Bid + ht.Ask),
				Bid:    ht.Bid,
				Ask:    ht.Ask,
				Ts:     ts,
			})
		}

		last := time.UnixMilli(batch[len(batch)-1].TimeMs)
		c.log.Debug().
			Int("batch", requests+1).
			Int("ticks", len(batch)).
			Time("through", last).
			Msg("history batch received")

		if len(batch) < c.batchSize || !last.Before(end) {
			break
		}
		// Next page starts a second past the last tick we saw.
		cursor = last.Add(time.Second)
	}
	return out, nil
}

func (c *HistoryClient) fetchBatch(ctx context.Context, symbol string, start, end time.Time) ([]historyTick, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start_ms", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end_ms", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(c.batchSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/ticks?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload.Ticks, nil
}
