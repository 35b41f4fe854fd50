package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/backtest"
	"github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

func sweepTape() []signal.Tick {
	day := func(h, m, s int) time.Time {
		return time.Date(2025, 9, 15, h, m, s, 0, time.Local)
	}
	return []signal.Tick{
		{Symbol: "TSLA", Price: 100.0, Ts: day(9, 35, 0)},
		{Symbol: "TSLA", Price: 100.0, Ts: day(9, 35, 30)},
		{Symbol: "TSLA", Price: 97.0, Ts: day(9, 36, 0)},
		{Symbol: "TSLA", Price: 98.5, Ts: day(9, 36, 30)},
	}
}

func TestExpandCartesianProduct(t *testing.T) {
	base := strategy.Config{}.WithDefaults()
	grid := Grid{
		MinMoveThreshold:  []float64{1.5, 2.5, 4.0},
		TimeWindowMinutes: []float64{1.0, 2.0},
	}
	configs := grid.Expand(base)
	if len(configs) != 6 {
		t.Fatalf("expected 6 configs, got %d", len(configs))
	}
	for _, cfg := range configs {
		if cfg.SharesPerDollar != base.SharesPerDollar {
			t.Fatalf("empty dimension should keep base value, got %v", cfg.SharesPerDollar)
		}
		if cfg.MaxPosition != base.MaxPosition {
			t.Fatalf("empty dimension should keep base value, got %v", cfg.MaxPosition)
		}
	}
}

func TestExpandEmptyGridUsesBase(t *testing.T) {
	base := strategy.Config{}.WithDefaults()
	configs := Grid{}.Expand(base)
	if len(configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(configs))
	}
	if configs[0] != base {
		t.Fatalf("expected base config, got %+v", configs[0])
	}
}

func TestRunRanksByPnL(t *testing.T) {
	base := strategy.Config{}.WithDefaults()
	grid := Grid{MinMoveThreshold: []float64{2.5, 5.0}}

	results, err := Run(context.Background(), grid, base, "TSLA", sweepTape(), 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Config.MinMoveThreshold != 2.5 {
		t.Fatalf("expected the 2.50 threshold run first, got %v", results[0].Config.MinMoveThreshold)
	}
	if results[0].TotalPnL != 75.0 {
		t.Fatalf("expected PnL 75.0 for best run, got %v", results[0].TotalPnL)
	}
	if results[1].TotalTrades != 0 {
		t.Fatalf("expected no trades for the 5.00 threshold run, got %d", results[1].TotalTrades)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	base := strategy.Config{}.WithDefaults()
	_, err := Run(ctx, Grid{MinMoveThreshold: []float64{2.5, 5.0, 7.5}}, base, "TSLA", sweepTape(), 1, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestBestTargets(t *testing.T) {
	results := []*backtest.Result{
		{TotalPnL: 10, WinRate: 0.9, TotalTrades: 3},
		{TotalPnL: 50, WinRate: 0.2, TotalTrades: 8},
	}
	best, err := Best(results, "pnl")
	if err != nil || best.TotalPnL != 50 {
		t.Fatalf("pnl target: best=%+v err=%v", best, err)
	}
	best, err = Best(results, "win_rate")
	if err != nil || best.WinRate != 0.9 {
		t.Fatalf("win_rate target: best=%+v err=%v", best, err)
	}
	best, err = Best(results, "trades")
	if err != nil || best.TotalTrades != 8 {
		t.Fatalf("trades target: best=%+v err=%v", best, err)
	}
	if _, err := Best(results, "sharpe"); err == nil {
		t.Fatal("expected error for unknown target")
	}
}
