package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/signal"
)

func TestFeedRunEmitsTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(ProviderStub, []string{"TSLA"}, zerolog.Nop())
	ticks := make(chan signal.Tick, 1)

	go func() {
		_ = feed.Run(ctx, ticks)
	}()

	select {
	case tk := <-ticks:
		if tk.Symbol != "TSLA" {
			t.Fatalf("unexpected symbol %s", tk.Symbol)
		}
		if tk.Price <= 0 {
			t.Fatalf("expected positive price")
		}
		cancel()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
	}
}

func TestSetSymbolsNormalizes(t *testing.T) {
	feed := NewFeed(ProviderStub, []string{" tsla ", "AAPL", "tsla", ""}, zerolog.Nop())
	syms := feed.snapshotSymbols()
	if len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "TSLA" {
		t.Fatalf("unexpected symbols: %+v", syms)
	}
}

func TestMidTickRequiresBothSides(t *testing.T) {
	feed := NewFeed(ProviderWS, []string{"TSLA"}, zerolog.Nop())
	now := time.Now()

	if tick := feed.midTick("TSLA", 100.0, 0, now); tick != nil {
		t.Fatalf("expected nil before both sides seen, got %+v", tick)
	}
	tick := feed.midTick("TSLA", 0, 100.5, now)
	if tick == nil {
		t.Fatalf("expected midpoint tick once ask arrives")
	}
	if tick.Price != 100.25 {
		t.Fatalf("expected midpoint 100.25, got %v", tick.Price)
	}
	if tick.Bid != 100.0 || tick.Ask != 100.5 {
		t.Fatalf("unexpected quote context: %+v", tick)
	}

	// A later bid update reuses the remembered ask.
	tick = feed.midTick("TSLA", 100.2, 0, now)
	if tick == nil || tick.Price != 100.35 {
		t.Fatalf("expected updated midpoint 100.35, got %+v", tick)
	}
}

func TestRunWSRequiresURL(t *testing.T) {
	feed := NewFeed(ProviderWS, []string{"TSLA"}, zerolog.Nop())
	if err := feed.Run(context.Background(), make(chan signal.Tick)); err == nil {
		t.Fatalf("expected error without gateway url")
	}
}
