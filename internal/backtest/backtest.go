// Package backtest replays historical ticks through the same fade engine the
// live loop uses and scores the resulting trades.
package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

// Result holds the scored outcome of one replay.
type Result struct {
	Symbol        string          `json:"symbol"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	Config        strategy.Config `json:"config"`
	TotalTrades   int             `json:"total_trades"`
	TotalPnL      float64         `json:"total_pnl"`
	WinRate       float64         `json:"win_rate"`
	MaxPosition   int             `json:"max_position"`
	FinalPosition int             `json:"final_position"`
	PriceTicks    int             `json:"price_ticks"`
	Trades        []signal.Trade  `json:"-"`
}

// Run replays ticks (in the order given) through a fresh engine, flattens any
// residual position at the last price, and scores the trades.
func Run(cfg strategy.Config, symbol string, ticks []signal.Tick, log zerolog.Logger) (*Result, error) {
	engine, err := strategy.NewFadeEngine(cfg, log)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Symbol:     symbol,
		Config:     engine.Config(),
		PriceTicks: len(ticks),
	}
	if len(ticks) > 0 {
		result.Start = ticks[0].Ts
		result.End = ticks[len(ticks)-1].Ts
	}

	for _, tk := range ticks {
		sig := engine.UpdatePrice(symbol, tk.Price, tk.Ts)
		if sig == nil {
			continue
		}
		result.Trades = append(result.Trades, tradeFromSignal(sig, tk.Price, tk.Ts))
	}

	// Close out at the last known price so the run scores fully realized.
	if len(ticks) > 0 {
		last := ticks[len(ticks)-1]
		if sig := engine.Flatten(symbol, last.Price); sig != nil {
			result.Trades = append(result.Trades, tradeFromSignal(sig, last.Price, last.Ts))
			log.Info().
				Str("symbol", symbol).
				Str("action", string(sig.Action)).
				Int("qty", sig.Quantity).
				Float64("px", last.Price).
				Msg("flatten position at end of replay")
		}
	}

	score(result, ticks)
	return result, nil
}

func tradeFromSignal(sig *signal.Signal, price float64, ts time.Time) signal.Trade {
	return signal.Trade{
		Ts:           ts,
		Symbol:       sig.Symbol,
		Action:       sig.Action,
		Quantity:     sig.Quantity,
		Price:        price,
		Reason:       sig.Reason,
		PriceMove:    sig.PriceMove,
		WindowHigh:   sig.WindowHigh,
		WindowLow:    sig.WindowLow,
		CurrentPrice: sig.CurrentPrice,
	}
}

// score marks every trade against the final price and derives the summary
// statistics: total PnL, win rate (next-trade price improvement), and the
// largest absolute position reached.
func score(result *Result, ticks []signal.Tick) {
	result.TotalTrades = len(result.Trades)
	if len(result.Trades) == 0 || len(ticks) == 0 {
		return
	}

	lastPrice := ticks[len(ticks)-1].Price
	position := 0
	for _, trade := range result.Trades {
		if trade.Action == signal.Buy {
			position += trade.Quantity
			result.TotalPnL += float64(trade.Quantity) * (lastPrice - trade.Price)
		} else {
			position -= trade.Quantity
			result.TotalPnL += float64(trade.Quantity) * (trade.Price - lastPrice)
		}
		if abs := position; abs < 0 {
			if -abs > result.MaxPosition {
				result.MaxPosition = -abs
			}
		} else if abs > result.MaxPosition {
			result.MaxPosition = abs
		}
	}
	result.FinalPosition = position

	profitable := 0
	for i := 0; i < len(result.Trades)-1; i++ {
		cur, next := result.Trades[i], result.Trades[i+1]
		if cur.Action == signal.Buy && next.Price > cur.Price {
			profitable++
		} else if cur.Action == signal.Sell && next.Price < cur.Price {
			profitable++
		}
	}
	result.WinRate = float64(profitable) / float64(len(result.Trades))
}

type resultFile struct {
	Info   Result         `json:"backtest_info"`
	Trades []signal.Trade `json:"trades"`
}

// WriteJSON persists the run with its trades in the shape the CSV converter reads.
func (r *Result) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(resultFile{Info: *r, Trades: r.Trades}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// FileName derives the conventional output name for a run, e.g.
// backtest_TSLA_20250915_0930-0950.json.
func (r *Result) FileName() string {
	return fmt.Sprintf("backtest_%s_%s_%s-%s.json",
		r.Symbol,
		r.Start.Format("20060102"),
		r.Start.Format("1504"),
		r.End.Format("1504"))
}
