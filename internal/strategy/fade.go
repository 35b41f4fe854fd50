// Package strategy contains the fade engine: a deterministic state machine
// that turns a stream of timestamped prices into position-adjustment signals.
package strategy

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/signal"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultSharesPerDollar   = 100.0
	DefaultMinMoveThreshold  = 2.50
	DefaultTimeWindowMinutes = 2.0
	DefaultMaxPosition       = 5000
)

// minTradeSize is the smallest tradable increment; smaller adjustments are
// suppressed and residual goal positions under it snap to flat.
const minTradeSize = 10

// Config carries the four engine knobs. Zero values take the documented
// defaults; negative values are rejected at construction.
type Config struct {
	SharesPerDollar   float64 `yaml:"shares_per_dollar"`
	MinMoveThreshold  float64 `yaml:"min_move_threshold"`
	TimeWindowMinutes float64 `yaml:"time_window_minutes"`
	MaxPosition       int     `yaml:"max_position"`
}

// WithDefaults returns a copy with zero fields replaced by the defaults.
func (c Config) WithDefaults() Config {
	if c.SharesPerDollar == 0 {
		c.SharesPerDollar = DefaultSharesPerDollar
	}
	if c.MinMoveThreshold == 0 {
		c.MinMoveThreshold = DefaultMinMoveThreshold
	}
	if c.TimeWindowMinutes == 0 {
		c.TimeWindowMinutes = DefaultTimeWindowMinutes
	}
	if c.MaxPosition == 0 {
		c.MaxPosition = DefaultMaxPosition
	}
	return c
}

func (c Config) validate() error {
	if c.SharesPerDollar < 0 {
		return fmt.Errorf("shares_per_dollar must not be negative, got %v", c.SharesPerDollar)
	}
	if c.MinMoveThreshold < 0 {
		return fmt.Errorf("min_move_threshold must not be negative, got %v", c.MinMoveThreshold)
	}
	if c.TimeWindowMinutes < 0 {
		return fmt.Errorf("time_window_minutes must not be negative, got %v", c.TimeWindowMinutes)
	}
	if c.MaxPosition < 0 {
		return fmt.Errorf("max_position must not be negative, got %d", c.MaxPosition)
	}
	return nil
}

type symbolState struct {
	history  *PriceHistory
	position int
	peak     int
}

// FadeEngine owns per-symbol rolling price windows and position state, and
// applies the fade/ratchet/decay rule on every price update. The same
// instance drives both backtest replay and live ticks.
type FadeEngine struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	symbols map[string]*symbolState
}

// NewFadeEngine validates the config (after filling defaults) and returns a
// ready engine.
func NewFadeEngine(cfg Config, log zerolog.Logger) (*FadeEngine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Float64("shares_per_dollar", cfg.SharesPerDollar).
		Float64("min_move_threshold", cfg.MinMoveThreshold).
		Float64("time_window_minutes", cfg.TimeWindowMinutes).
		Int("max_position", cfg.MaxPosition).
		Msg("fade engine initialized")
	return &FadeEngine{
		cfg:     cfg,
		log:     log,
		symbols: make(map[string]*symbolState),
	}, nil
}

// Config returns the effective (defaulted) configuration.
func (e *FadeEngine) Config() Config { return e.cfg }

// UpdatePrice feeds one observation into the engine and returns the position
// adjustment it calls for, or nil. A zero ts means "now" (live mode); replay
// callers pass the tick's own timestamp. Ticks outside regular market hours
// are dropped entirely, before any state mutation.
func (e *FadeEngine) UpdatePrice(symbol string, price float64, ts time.Time) *signal.Signal {
	now := ts
	if now.IsZero() {
		now = time.Now()
	}
	if !withinMarketHours(now) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.symbols[symbol]
	if st == nil {
		st = &symbolState{history: NewPriceHistory(e.cfg.TimeWindowMinutes)}
		e.symbols[symbol] = st
	}

	st.history.Add(price, now)
	priceMove, current, high, low := st.history.PriceMove()

	currentPos := st.position

	// The move that matters depends on which side we are already on. A held
	// position is measured against the window extreme on its own side; when
	// flat the raw window excursion decides.
	var move float64
	switch {
	case currentPos == 0:
		move = priceMove
	case currentPos > 0:
		move = current - high
	default:
		move = current - low
	}

	var goal int
	switch {
	case math.Abs(move) >= e.cfg.MinMoveThreshold:
		// EXPAND: size off the excess beyond the threshold, fading the raw
		// window move. The ratchet only ever grows the position; the peak is
		// the decay reference for the later contraction.
		excess := math.Abs(move) - e.cfg.MinMoveThreshold
		size := int(excess * e.cfg.SharesPerDollar)
		newGoal := size
		if priceMove > 0 {
			newGoal = -size
		}
		if absInt(newGoal) > absInt(currentPos) {
			goal = newGoal
			st.peak = newGoal
		} else {
			goal = currentPos
		}

	case currentPos != 0:
		// CONTRACT: scale the peak by the fraction of the threshold still in
		// play. Contraction never re-expands, and residue under the minimum
		// trade size snaps to flat.
		pct := 0.0
		if e.cfg.MinMoveThreshold > 0 {
			pct = math.Max(0, math.Abs(move)/e.cfg.MinMoveThreshold)
		}
		goal = int(float64(st.peak) * pct)
		if absInt(goal) > absInt(currentPos) {
			goal = currentPos
		}
		if absInt(goal) < minTradeSize {
			goal = 0
		}
		if goal == 0 {
			st.peak = 0
		}

	default:
		return nil // flat, no threshold breach
	}

	excess := 0.0
	if math.Abs(move) >= e.cfg.MinMoveThreshold {
		excess = math.Abs(move) - e.cfg.MinMoveThreshold
	}

	tradeQty := goal - currentPos
	if absInt(tradeQty) < minTradeSize {
		return nil
	}

	if absInt(goal) > e.cfg.MaxPosition {
		e.log.Warn().
			Str("symbol", symbol).
			Int("goal_position", goal).
			Int("max_position", e.cfg.MaxPosition).
			Msg("goal position exceeds limit, skipping trade")
		return nil
	}

	st.position = goal

	verb := "Reduce"
	if absInt(goal) > absInt(currentPos) {
		verb = "Fade"
	}
	action, qty := signal.Buy, tradeQty
	if tradeQty < 0 {
		action, qty = signal.Sell, -tradeQty
	}

	sig := &signal.Signal{
		Symbol:       symbol,
		Action:       action,
		Quantity:     qty,
		Reason:       fmt.Sprintf("%s $%.2f move (excess: $%.2f)", verb, priceMove, excess),
		PriceMove:    priceMove,
		WindowHigh:   high,
		WindowLow:    low,
		CurrentPrice: current,
	}
	e.log.Info().
		Str("symbol", sig.Symbol).
		Str("action", string(sig.Action)).
		Int("qty", sig.Quantity).
		Str("reason", sig.Reason).
		Msg("fade signal")
	return sig
}

// Flatten force-closes any open position for symbol at the supplied price,
// returning the closing signal, or nil if already flat. Used at session end.
func (e *FadeEngine) Flatten(symbol string, price float64) *signal.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.symbols[symbol]
	if st == nil || st.position == 0 {
		return nil
	}

	pos := st.position
	st.position = 0
	st.peak = 0

	action, qty := signal.Sell, pos
	if pos < 0 {
		action, qty = signal.Buy, -pos
	}
	return &signal.Signal{
		Symbol:       symbol,
		Action:       action,
		Quantity:     qty,
		Reason:       "End of session - flatten position",
		CurrentPrice: price,
	}
}

// Position returns the committed position for symbol (0 when unseen).
func (e *FadeEngine) Position(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st := e.symbols[symbol]; st != nil {
		return st.position
	}
	return 0
}

// Positions returns a copy of all non-zero positions keyed by symbol.
func (e *FadeEngine) Positions() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int)
	for sym, st := range e.symbols {
		if st.position != 0 {
			out[sym] = st.position
		}
	}
	return out
}

// LatestPrice exposes the last observed price for symbol, for flattening.
func (e *FadeEngine) LatestPrice(symbol string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st := e.symbols[symbol]; st != nil {
		return st.history.LatestPrice()
	}
	return 0, false
}

// Regular session bounds, inclusive on both edges.
const (
	marketOpenSecs  = 9*3600 + 30*60
	marketCloseSecs = 16 * 3600
)

func withinMarketHours(t time.Time) bool {
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return secs >= marketOpenSecs && secs <= marketCloseSecs
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
