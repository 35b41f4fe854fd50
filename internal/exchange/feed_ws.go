package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jackrehmann/fade-scalps/internal/metrics"
	"github.com/jackrehmann/fade-scalps/internal/signal"
)

// quoteMessage is the gateway's wire format: one side or both sides of the
// book for a symbol, timestamped in epoch milliseconds.
type quoteMessage struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	TimeMs int64   `json:"time_ms"`
}

type subscribeRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

func (f *Feed) runWS(ctx context.Context, out chan<- signal.Tick) error {
	if f.wsURL == "" {
		return fmt.Errorf("ws feed requires a gateway url")
	}
	if len(f.snapshotSymbols()) == 0 {
		return fmt.Errorf("ws feed requires at least one symbol")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeQuoteStream(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("quote stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeQuoteStream(ctx context.Context, out chan<- signal.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	symbols := f.snapshotSymbols()
	if err := conn.WriteJSON(subscribeRequest{Op: "subscribe", Symbols: symbols}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.log.Info().Str("provider", ProviderWS).Strs("symbols", symbols).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("quote stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var quote quoteMessage
		if err := json.Unmarshal(message, &quote); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode quote message")
			continue
		}
		if quote.Symbol == "" {
			continue
		}

		ts := time.Now()
		if quote.TimeMs > 0 {
			ts = time.UnixMilli(quote.TimeMs)
		}
		tick := f.midTick(quote.Symbol, quote.Bid, quote.Ask, ts)
		if tick == nil {
			continue // waiting for the other side of the book
		}

		select {
		case out <- *tick:
			metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
