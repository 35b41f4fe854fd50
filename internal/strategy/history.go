package strategy

import "time"

// PricePoint is a single timestamped price observation.
type PricePoint struct {
	Ts    time.Time
	Price float64
}

// PriceHistory keeps the price observations for one symbol inside a trailing
// time window and reports the directional excess move against the window's
// high or low.
type PriceHistory struct {
	window time.Duration
	points []PricePoint
}

// NewPriceHistory builds a history with the given rolling window length.
func NewPriceHistory(windowMinutes float64) *PriceHistory {
	return &PriceHistory{window: time.Duration(windowMinutes * float64(time.Minute))}
}

// Add evicts points older than the incoming timestamp's window, then appends
// the new observation. Eviction runs against the incoming timestamp before
// the append, and only ever pops from the front, so out-of-order delivery
// keeps the arrival-order semantics callers rely on.
func (h *PriceHistory) Add(price float64, ts time.Time) {
	cutoff := ts.Add(-h.window)
	idx := 0
	for idx < len(h.points) && h.points[idx].Ts.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		h.points = h.points[idx:]
	}
	h.points = append(h.points, PricePoint{Ts: ts, Price: price})
}

// PriceMove reports the signed excursion of the last-appended price against
// the window extremes: negative when the price sits further below the window
// high, positive when it sits further above the window low. Ties go to the
// negative branch. Fewer than two points yields all zeros.
func (h *PriceHistory) PriceMove() (move, current, high, low float64) {
	if len(h.points) < 2 {
		return 0, 0, 0, 0
	}

	current = h.points[len(h.points)-1].Price
	high, low = h.points[0].Price, h.points[0].Price
	for _, p := range h.points[1:] {
		if p.Price > high {
			high = p.Price
		}
		if p.Price < low {
			low = p.Price
		}
	}

	moveFromHigh := high - current
	moveFromLow := current - low
	if moveFromHigh >= moveFromLow {
		return -moveFromHigh, current, high, low
	}
	return moveFromLow, current, high, low
}

// LatestPrice returns the last-appended price, or false when empty.
func (h *PriceHistory) LatestPrice() (float64, bool) {
	if len(h.points) == 0 {
		return 0, false
	}
	return h.points[len(h.points)-1].Price, true
}

// Len reports the number of points currently held.
func (h *PriceHistory) Len() int { return len(h.points) }
