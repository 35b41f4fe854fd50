package paper

import (
	"sync"

	"github.com/jackrehmann/fade-scalps/internal/execution"
)

// Ledger accumulates the dry-run fills of one session in memory so the live
// loop can report on them at close without re-reading the fill log.
type Ledger struct {
	mu    sync.Mutex
	fills []execution.Fill
}

// NewLedger creates an empty ledger, pre-sizing storage when capacity > 0.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{fills: make([]execution.Fill, 0, capacity)}
}

// Record appends a fill to the ledger.
func (l *Ledger) Record(fill execution.Fill) {
	l.mu.Lock()
	l.fills = append(l.fills, fill)
	l.mu.Unlock()
}

// Len reports the number of fills recorded so far.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fills)
}

// Snapshot returns a copy of the recorded fills in arrival order.
func (l *Ledger) Snapshot() []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]execution.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// ForSymbol returns the recorded fills for one symbol, in arrival order.
func (l *Ledger) ForSymbol(symbol string) []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []execution.Fill
	for _, f := range l.fills {
		if f.Symbol == symbol {
			out = append(out, f)
		}
	}
	return out
}

// SharesTraded sums the quantity across all fills, both sides counted.
func (l *Ledger) SharesTraded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, f := range l.fills {
		total += f.Qty
	}
	return total
}

// Reset clears all stored fills.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.fills = l.fills[:0]
	l.mu.Unlock()
}
