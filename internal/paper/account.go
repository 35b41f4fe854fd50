package paper

import (
	"errors"
	"sync"

	"github.com/jackrehmann/fade-scalps/internal/execution"
)

// FillRecorder captures paper fills for later inspection.
type FillRecorder interface {
	Record(execution.Fill)
}

const epsilon = 1e-9

type positionState struct {
	Qty     int // signed: positive long, negative short
	AvgCost float64
}

// Account tracks virtual cash, realized PnL, and signed per-symbol positions
// while trading in paper mode. Shorts are allowed; selling through zero
// closes the long and opens the short remainder at the fill price.
type Account struct {
	mu           sync.Mutex
	startingCash float64
	cash         float64
	realizedPnL  float64
	positions    map[string]positionState
}

// PositionSnapshot exposes a read-only view of a single symbol position.
type PositionSnapshot struct {
	Qty         int
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
}

// Snapshot represents a thread-safe view of the account state, optionally marked to market using provided prices.
type Snapshot struct {
	Cash        float64
	RealizedPnL float64
	Equity      float64
	Positions   map[string]PositionSnapshot
}

// NewAccount constructs an account populated with starting cash.
func NewAccount(startingCash float64) *Account {
	return &Account{
		startingCash: startingCash,
		cash:         startingCash,
		positions:    make(map[string]positionState),
	}
}

// StartingCash returns the initial bankroll used to compute drawdown.
func (a *Account) StartingCash() float64 { return a.startingCash }

// MarketFill executes a market order at the provided price, mutating balances.
// Reductions realize PnL against the average cost; the portion of a fill
// crossing through zero opens the new side at the fill price.
func (a *Account) MarketFill(symbol string, side execution.Side, qty int, price float64) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}

	delta := qty
	if side == execution.Sell {
		delta = -qty
	} else if side != execution.Buy {
		return errors.New("unknown order side")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.positions[symbol]

	// Cash moves by the full notional regardless of direction: buys spend,
	// sells (including short sales) receive.
	notional := float64(qty) * price
	if side == execution.Buy && notional > a.cash+epsilon {
		return errors.New("insufficient cash for buy")
	}

	closed := 0
	if state.Qty > 0 && delta < 0 {
		closed = min(state.Qty, -delta)
		a.realizedPnL += (price - state.AvgCost) * float64(closed)
	} else if state.Qty < 0 && delta > 0 {
		closed = min(-state.Qty, delta)
		a.realizedPnL += (state.AvgCost - price) * float64(closed)
	}

	newQty := state.Qty + delta
	switch {
	case newQty == 0:
		delete(a.positions, symbol)
	case (state.Qty >= 0) == (newQty >= 0) && closed == 0:
		// Extending the existing side: blend the average cost.
		held := absRaw(state.Qty)
		added := absRaw(delta)
		avg := (state.AvgCost*float64(held) + price*float64(added)) / float64(held+added)
		a.positions[symbol] = positionState{Qty: newQty, AvgCost: avg}
	default:
		// Reduced, or flipped through zero: remainder carries the fill price
		// as its cost basis (pure reduction keeps the old basis).
		avg := state.AvgCost
		if (state.Qty >= 0) != (newQty >= 0) {
			avg = price
		}
		a.positions[symbol] = positionState{Qty: newQty, AvgCost: avg}
	}

	if side == execution.Buy {
		a.cash -= notional
	} else {
		a.cash += notional
	}
	return nil
}

// Snapshot returns a copy of balances, optionally marked using the supplied prices map.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	equity := a.cash
	for sym, pos := range a.positions {
		mark := prices[sym]
		marketValue := float64(pos.Qty) * mark
		unrealized := (mark - pos.AvgCost) * float64(pos.Qty)
		if mark == 0 {
			marketValue = 0
			unrealized = 0
		}
		positions[sym] = PositionSnapshot{
			Qty:         pos.Qty,
			AvgCost:     pos.AvgCost,
			MarketValue: marketValue,
			Unrealized:  unrealized,
		}
		equity += marketValue
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Positions:   positions,
	}
}

// AvailableCash reports free cash that can be deployed into new longs.
func (a *Account) AvailableCash() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

// Position returns the current signed position for the supplied symbol.
func (a *Account) Position(symbol string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol].Qty
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

func absRaw(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
