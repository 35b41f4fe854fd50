// Package exchange hosts the market data collaborators: a live quote feed
// and a paginated historical tick client.
package exchange

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/metrics"
	"github.com/jackrehmann/fade-scalps/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderWS streams bid/ask quotes from a broker gateway websocket.
	ProviderWS = "ws"
)

// Feed represents a pluggable market data stream implementation. Quotes are
// folded into midpoint ticks before they reach the engine.
type Feed struct {
	provider string
	symbols  []string
	log      zerolog.Logger
	wsURL    string

	mu       sync.RWMutex
	lastBid  map[string]float64
	lastAsk  map[string]float64
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithWSURL points the websocket provider at a broker gateway.
func WithWSURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.wsURL = url
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		log:      log,
		lastBid:  make(map[string]float64),
		lastAsk:  make(map[string]float64),
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted for determinism).
func (f *Feed) SetSymbols(symbols []string) {
	f.setSymbols(symbols)
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *Feed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderWS:
		return f.runWS(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// midTick folds one side of a quote into a midpoint tick once both sides of
// the book have been seen for the symbol. Returns nil until then.
func (f *Feed) midTick(symbol string, bid, ask float64, ts time.Time) *signal.Tick {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bid > 0 {
		f.lastBid[symbol] = bid
	}
	if ask > 0 {
		f.lastAsk[symbol] = ask
	}
	b, a := f.lastBid[symbol], f.lastAsk[symbol]
	if b <= 0 || a <= 0 {
		return nil
	}
	return &signal.Tick{Symbol: symbol, Price: 0.5 * (b + a), Bid: b, Ask: a, Ts: ts}
}

// runStub generates a slow sinusoid around $100 so downstream consumers see
// both fade entries and decays without a live gateway.
func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			i++
			px := 100.0 + 4.0*math.Sin(float64(i)/8.0)
			symbols := f.snapshotSymbols()
			for _, s := range symbols {
				tick := signal.Tick{Symbol: s, Price: px, Bid: px - 0.01, Ask: px + 0.01, Ts: ts}
				select {
				case out <- tick:
					metrics.TicksTotal.WithLabelValues(s).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
