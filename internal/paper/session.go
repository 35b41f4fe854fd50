package paper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

// SessionInfo is the header written alongside a live dry-run trade log.
type SessionInfo struct {
	SessionID         string    `json:"session_id"`
	Symbols           []string  `json:"symbols"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	DurationMinutes   float64   `json:"duration_minutes"`
	SharesPerDollar   float64   `json:"shares_per_dollar"`
	MinMoveThreshold  float64   `json:"min_move_threshold"`
	TimeWindowMinutes float64   `json:"time_window_minutes"`
	MaxPosition       int       `json:"max_position"`
	TotalTrades       int       `json:"total_trades"`
}

type sessionLog struct {
	SessionInfo SessionInfo    `json:"session_info"`
	Trades      []signal.Trade `json:"trades"`
}

// SessionRecorder accumulates the trades of one live session and writes them
// as a single JSON document on Close, in the same shape the CSV converter
// reads.
type SessionRecorder struct {
	mu      sync.Mutex
	info    SessionInfo
	trades  []signal.Trade
	started time.Time
}

// NewSessionRecorder starts a session over the given symbols and engine config.
func NewSessionRecorder(symbols []string, cfg strategy.Config) *SessionRecorder {
	now := time.Now()
	return &SessionRecorder{
		info: SessionInfo{
			SessionID:         uuid.NewString(),
			Symbols:           symbols,
			StartTime:         now,
			SharesPerDollar:   cfg.SharesPerDollar,
			MinMoveThreshold:  cfg.MinMoveThreshold,
			TimeWindowMinutes: cfg.TimeWindowMinutes,
			MaxPosition:       cfg.MaxPosition,
		},
		started: now,
	}
}

// Add records one executed trade.
func (r *SessionRecorder) Add(trade signal.Trade) {
	r.mu.Lock()
	r.trades = append(r.trades, trade)
	r.mu.Unlock()
}

// Count returns the number of trades recorded so far.
func (r *SessionRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

// WriteFile finalizes the session and writes the trade log to path.
func (r *SessionRecorder) WriteFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.info.EndTime = now
	r.info.DurationMinutes = now.Sub(r.started).Minutes()
	r.info.TotalTrades = len(r.trades)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sessionLog{SessionInfo: r.info, Trades: r.trades}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FileName derives the conventional output name for the session, e.g.
// live_TSLA_20250915_0936.json. Multi-symbol sessions use MULTI.
func (r *SessionRecorder) FileName() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	label := "MULTI"
	if len(r.info.Symbols) == 1 {
		label = r.info.Symbols[0]
	}
	return fmt.Sprintf("live_%s_%s_%s.json",
		label,
		r.started.Format("20060102"),
		r.started.Format("1504"))
}
