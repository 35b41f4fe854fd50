package backtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

func tickTape(symbol string, prices []float64, start time.Time, step time.Duration) []signal.Tick {
	ticks := make([]signal.Tick, len(prices))
	for i, px := range prices {
		ticks[i] = signal.Tick{Symbol: symbol, Price: px, Ts: start.Add(time.Duration(i) * step)}
	}
	return ticks
}

func TestRunFadesAndFlattens(t *testing.T) {
	start := time.Date(2025, 9, 15, 9, 30, 0, 0, time.Local)
	// $3 drop triggers a 50-share fade; the tape ends before recovery so the
	// replay flattens the long at the final price.
	ticks := tickTape("TSLA", []float64{100, 100, 97}, start, 30*time.Second)

	result, err := Run(strategy.Config{}, "TSLA", ticks, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TotalTrades != 2 {
		t.Fatalf("expected entry + flatten, got %d trades", result.TotalTrades)
	}

	entry := result.Trades[0]
	if entry.Action != signal.Buy || entry.Quantity != 50 || entry.Price != 97 {
		t.Fatalf("unexpected entry trade: %+v", entry)
	}
	flatten := result.Trades[1]
	if flatten.Action != signal.Sell || flatten.Quantity != 50 {
		t.Fatalf("unexpected flatten trade: %+v", flatten)
	}
	if !strings.Contains(flatten.Reason, "flatten") {
		t.Fatalf("expected flatten reason, got %q", flatten.Reason)
	}
	if result.FinalPosition != 0 {
		t.Fatalf("expected flat final position, got %d", result.FinalPosition)
	}
	if result.MaxPosition != 50 {
		t.Fatalf("expected max position 50, got %d", result.MaxPosition)
	}
	// Entry and flatten both execute at the final price: PnL nets to zero.
	if result.TotalPnL != 0 {
		t.Fatalf("expected zero PnL, got %.2f", result.TotalPnL)
	}
}

func TestRunScoresPnLAgainstFinalPrice(t *testing.T) {
	start := time.Date(2025, 9, 15, 9, 30, 0, 0, time.Local)
	// Drop to 97 (BUY 50) then recover to 98.50 (SELL 20), flatten 30 at 98.50.
	ticks := tickTape("TSLA", []float64{100, 100, 97, 98.5}, start, 30*time.Second)

	result, err := Run(strategy.Config{}, "TSLA", ticks, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TotalTrades != 3 {
		t.Fatalf("expected 3 trades, got %d", result.TotalTrades)
	}
	// BUY 50 @97 vs final 98.50 = +75; the two sells execute at the final
	// price and contribute nothing.
	if result.TotalPnL != 75 {
		t.Fatalf("expected PnL 75, got %.2f", result.TotalPnL)
	}
	if result.WinRate <= 0 {
		t.Fatalf("expected positive win rate, got %v", result.WinRate)
	}
}

func TestRunEmptyTape(t *testing.T) {
	result, err := Run(strategy.Config{}, "TSLA", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.TotalTrades != 0 || result.TotalPnL != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	if _, err := Run(strategy.Config{MinMoveThreshold: -1}, "TSLA", nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestWriteJSON(t *testing.T) {
	start := time.Date(2025, 9, 15, 9, 30, 0, 0, time.Local)
	ticks := tickTape("TSLA", []float64{100, 100, 97}, start, 30*time.Second)
	result, err := Run(strategy.Config{}, "TSLA", ticks, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), result.FileName())
	if err := result.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var decoded struct {
		Info   Result         `json:"backtest_info"`
		Trades []signal.Trade `json:"trades"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Info.Symbol != "TSLA" || len(decoded.Trades) != 2 {
		t.Fatalf("unexpected file contents: %+v", decoded.Info)
	}
}

func TestFileName(t *testing.T) {
	r := &Result{
		Symbol: "TSLA",
		Start:  time.Date(2025, 9, 15, 9, 30, 0, 0, time.Local),
		End:    time.Date(2025, 9, 15, 9, 50, 0, 0, time.Local),
	}
	if got := r.FileName(); got != "backtest_TSLA_20250915_0930-0950.json" {
		t.Fatalf("unexpected file name %q", got)
	}
}
