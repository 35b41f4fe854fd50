// Package sweep runs backtests across a grid of strategy parameters and ranks
// the results.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/backtest"
	"github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

// Grid holds the candidate values for each tunable parameter. An empty
// dimension falls back to the base config's value.
type Grid struct {
	SharesPerDollar   []float64
	MinMoveThreshold  []float64
	TimeWindowMinutes []float64
	MaxPosition       []int
}

// Expand returns the cartesian product of the grid applied over base.
func (g Grid) Expand(base strategy.Config) []strategy.Config {
	shares := g.SharesPerDollar
	if len(shares) == 0 {
		shares = []float64{base.SharesPerDollar}
	}
	thresholds := g.MinMoveThreshold
	if len(thresholds) == 0 {
		thresholds = []float64{base.MinMoveThreshold}
	}
	windows := g.TimeWindowMinutes
	if len(windows) == 0 {
		windows = []float64{base.TimeWindowMinutes}
	}
	positions := g.MaxPosition
	if len(positions) == 0 {
		positions = []int{base.MaxPosition}
	}

	var out []strategy.Config
	for _, spd := range shares {
		for _, thresh := range thresholds {
			for _, win := range windows {
				for _, pos := range positions {
					cfg := base
					cfg.SharesPerDollar = spd
					cfg.MinMoveThreshold = thresh
					cfg.TimeWindowMinutes = win
					cfg.MaxPosition = pos
					out = append(out, cfg)
				}
			}
		}
	}
	return out
}

// Run replays the same tick tape through every config in the grid, using up to
// workers goroutines, and returns the results sorted by total PnL descending.
func Run(ctx context.Context, grid Grid, base strategy.Config, symbol string, ticks []signal.Tick, workers int, log zerolog.Logger) ([]*backtest.Result, error) {
	configs := grid.Expand(base)
	if len(configs) == 0 {
		return nil, fmt.Errorf("empty parameter grid")
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > len(configs) {
		workers = len(configs)
	}

	log.Info().
		Str("symbol", symbol).
		Int("configs", len(configs)).
		Int("workers", workers).
		Msg("starting parameter sweep")

	results := make([]*backtest.Result, len(configs))
	errs := make([]error, len(configs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = backtest.Run(configs[i], symbol, ticks, log)
			}
		}()
	}

	for i := range configs {
		if err := ctx.Err(); err != nil {
			close(jobs)
			wg.Wait()
			return nil, err
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out []*backtest.Result
	for i, res := range results {
		if errs[i] != nil {
			return nil, fmt.Errorf("config %d: %w", i, errs[i])
		}
		out = append(out, res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalPnL > out[j].TotalPnL
	})
	return out, nil
}

// Best returns the result that ranks highest for the given target, one of
// "pnl", "win_rate", or "trades".
func Best(results []*backtest.Result, target string) (*backtest.Result, error) {
	switch target {
	case "pnl", "win_rate", "trades":
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results")
	}
	best := results[0]
	for _, r := range results[1:] {
		switch target {
		case "pnl":
			if r.TotalPnL > best.TotalPnL {
				best = r
			}
		case "win_rate":
			if r.WinRate > best.WinRate {
				best = r
			}
		case "trades":
			if r.TotalTrades > best.TotalTrades {
				best = r
			}
		}
	}
	return best, nil
}
