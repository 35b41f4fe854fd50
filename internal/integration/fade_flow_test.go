package integration

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/execution"
	"github.com/jackrehmann/fade-scalps/internal/paper"
	"github.com/jackrehmann/fade-scalps/internal/report"
	"github.com/jackrehmann/fade-scalps/internal/risk"
	"github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

// Replays a short session end to end: engine signals flow through risk checks
// and the dry-run executor into the paper account, and the recorded session
// converts cleanly to CSV.
func TestFadeFlowRoundTrip(t *testing.T) {
	day := func(h, m, s int) time.Time {
		return time.Date(2025, 9, 15, h, m, s, 0, time.Local)
	}
	ticks := []signal.Tick{
		{Symbol: "TSLA", Price: 100.0, Ts: day(9, 35, 0)},
		{Symbol: "TSLA", Price: 100.0, Ts: day(9, 35, 30)},
		{Symbol: "TSLA", Price: 97.0, Ts: day(9, 36, 0)},
		{Symbol: "TSLA", Price: 98.5, Ts: day(9, 36, 30)},
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	engine, err := strategy.NewFadeEngine(strategy.Config{}, logger)
	if err != nil {
		t.Fatalf("NewFadeEngine: %v", err)
	}
	limits := risk.Limits{MaxNotionalPerTrade: 10000}
	exec := execution.NewExecutor(logger)
	account := paper.NewAccount(10000)
	recorder := paper.NewSessionRecorder([]string{"TSLA"}, engine.Config())

	fill := func(sig *signal.Signal, price float64, ts time.Time) {
		t.Helper()
		order := execution.Order{
			Symbol: sig.Symbol,
			Side:   execution.SideFromAction(sig.Action),
			Qty:    sig.Quantity,
			Price:  price,
		}
		if !limits.Allow(float64(order.Qty) * order.Price) {
			t.Fatalf("expected notional under limit to pass: %+v", order)
		}
		if _, err := exec.Submit(order); err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		if err := account.MarketFill(order.Symbol, order.Side, order.Qty, order.Price); err != nil {
			t.Fatalf("MarketFill returned error: %v", err)
		}
		recorder.Add(signal.Trade{
			Ts:        ts,
			Symbol:    sig.Symbol,
			Action:    sig.Action,
			Quantity:  sig.Quantity,
			Price:     price,
			Reason:    sig.Reason,
			PriceMove: sig.PriceMove,
		})
	}

	for _, tk := range ticks {
		if sig := engine.UpdatePrice(tk.Symbol, tk.Price, tk.Ts); sig != nil {
			fill(sig, tk.Price, tk.Ts)
		}
	}
	last := ticks[len(ticks)-1]
	if sig := engine.Flatten("TSLA", last.Price); sig != nil {
		fill(sig, last.Price, last.Ts)
	}

	if got := engine.Position("TSLA"); got != 0 {
		t.Fatalf("expected flat engine position, got %d", got)
	}
	if got := account.Position("TSLA"); got != 0 {
		t.Fatalf("expected flat account position, got %d", got)
	}
	if got := account.RealizedPnL(); got != 75.0 {
		t.Fatalf("expected realized PnL 75.0, got %v", got)
	}
	if recorder.Count() != 3 {
		t.Fatalf("expected 3 recorded trades, got %d", recorder.Count())
	}
	if !strings.Contains(buf.String(), "submit order") {
		t.Fatalf("expected log output to include submit order, got %s", buf.String())
	}

	sessionPath := filepath.Join(t.TempDir(), "session.json")
	if err := recorder.WriteFile(sessionPath); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sum, err := report.Convert(sessionPath, "")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if sum.SessionType != "live_trading" || sum.Symbol != "TSLA" {
		t.Fatalf("unexpected report header: %+v", sum)
	}
	if sum.Fades != 1 || sum.Reduces != 1 || sum.Flattens != 1 {
		t.Fatalf("unexpected trade mix: %+v", sum)
	}
	if sum.FinalPosition != 0 {
		t.Fatalf("expected flat final position in report, got %d", sum.FinalPosition)
	}
}
