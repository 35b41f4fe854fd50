// Package execution handles order lifecycle and interaction with the broker.
package execution

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jackrehmann/fade-scalps/internal/metrics"
	"github.com/jackrehmann/fade-scalps/internal/signal"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// SideFromAction maps an engine signal action onto an order side.
func SideFromAction(a signal.Action) Side {
	if a == signal.Sell {
		return Sell
	}
	return Buy
}

// Order represents a placement request the executor can process.
type Order struct {
	ID     string
	Symbol string
	Side   Side
	Qty    int
	Price  float64 // 0 for market
}

// Fill records an executed (or simulated) order.
type Fill struct {
	ID     string    `json:"id"`
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    int       `json:"qty"`
	Price  float64   `json:"price"`
	Ts     time.Time `json:"ts"`
}

// Executor implements a logger-backed submitter for orders.
type Executor struct{ log zerolog.Logger }

// NewExecutor wraps a zerolog logger for future order submissions.
func NewExecutor(log zerolog.Logger) *Executor { return &Executor{log: log} }

// Submit assigns an order ID and logs the request; real broker placement
// stays behind this seam.
func (executor *Executor) Submit(order Order) (Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	executor.log.Info().
		Str("order_id", order.ID).
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Int("qty", order.Qty).
		Float64("px", order.Price).
		Msg("submit order (dry run)")
	return order, nil
}
