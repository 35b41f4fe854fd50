package risk

// Limits holds session-level guard-rails applied by the trading loop before
// an order goes out. The engine's own position cap lives inside the engine.
type Limits struct {
	MaxNotionalPerTrade float64
	MaxDailyLoss        float64
}

// Allow reports whether a single trade of the given notional is permitted.
// A zero cap means unlimited.
func (l Limits) Allow(notional float64) bool {
	return l.MaxNotionalPerTrade <= 0 || notional <= l.MaxNotionalPerTrade
}

// AllowAfterLoss reports whether trading may continue given realized PnL for
// the session. A zero limit means no daily stop.
func (l Limits) AllowAfterLoss(realizedPnL float64) bool {
	return l.MaxDailyLoss <= 0 || realizedPnL > -l.MaxDailyLoss
}
