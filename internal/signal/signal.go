// Package signal standardizes payloads shared between data ingestion, strategy, and reporting layers.
package signal

import "time"

// Action enumerates trade directions carried by a Signal.
type Action string

const (
	// Buy adds shares (opens/extends a long or covers a short).
	Buy Action = "BUY"
	// Sell removes shares (opens/extends a short or unwinds a long).
	Sell Action = "SELL"
)

// Tick models a single market data observation consumed by the engine.
// Bid/Ask carry optional quote context; Price is what the engine trades off.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Bid    float64   `json:"bid,omitempty"`
	Ask    float64   `json:"ask,omitempty"`
	Ts     time.Time `json:"ts"`
}

// Signal expresses a concrete position adjustment produced by the fade engine.
// Quantity is always positive; Action carries the direction.
type Signal struct {
	Symbol       string  `json:"symbol"`
	Action       Action  `json:"action"`
	Quantity     int     `json:"quantity"`
	Reason       string  `json:"reason"`
	PriceMove    float64 `json:"price_move"`
	WindowHigh   float64 `json:"window_high"`
	WindowLow    float64 `json:"window_low"`
	CurrentPrice float64 `json:"current_price"`
}

// Trade is an executed (real or simulated) signal stamped with the fill price and time.
type Trade struct {
	Ts           time.Time `json:"timestamp"`
	Symbol       string    `json:"symbol"`
	Action       Action    `json:"action"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
	Reason       string    `json:"reason"`
	PriceMove    float64   `json:"price_move"`
	WindowHigh   float64   `json:"window_high"`
	WindowLow    float64   `json:"window_low"`
	CurrentPrice float64   `json:"current_price"`
}
