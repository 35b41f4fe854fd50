// Package report converts recorded trade logs into CSV files for analysis.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackrehmann/fade-scalps/internal/signal"
)

var (
	excessRe = regexp.MustCompile(`excess: \$([0-9.-]+)`)
	moveRe   = regexp.MustCompile(`(?:Fade|Reduce) \$([0-9.-]+)`)
)

// tradeLog is the loose shape shared by backtest results and live session logs.
type tradeLog struct {
	BacktestInfo map[string]any `json:"backtest_info"`
	SessionInfo  map[string]any `json:"session_info"`
	Trades       []signal.Trade `json:"trades"`
}

// Summary describes one converted trade log.
type Summary struct {
	SessionType   string
	Symbol        string
	Trades        int
	Buys          int
	Sells         int
	Fades         int
	Reduces       int
	Flattens      int
	FinalPosition int
	SharesTraded  int
}

// Convert reads a JSON trade log (backtest or live session) and writes it as
// CSV to csvPath. When csvPath is empty the output lands next to the input
// with a _trades.csv suffix.
func Convert(jsonPath, csvPath string) (*Summary, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read trade log: %w", err)
	}
	var doc tradeLog
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse trade log: %w", err)
	}

	sum := &Summary{}
	switch {
	case doc.BacktestInfo != nil:
		sum.SessionType = "backtest"
		sum.Symbol, _ = doc.BacktestInfo["symbol"].(string)
	case doc.SessionInfo != nil:
		sum.SessionType = "live_trading"
		if symbols, ok := doc.SessionInfo["symbols"].([]any); ok && len(symbols) > 0 {
			sum.Symbol, _ = symbols[0].(string)
		}
	default:
		return nil, fmt.Errorf("unrecognized trade log format")
	}
	if len(doc.Trades) == 0 {
		return nil, fmt.Errorf("no trades in log")
	}

	if csvPath == "" {
		csvPath = strings.TrimSuffix(jsonPath, ".json") + "_trades.csv"
	}
	out, err := os.Create(csvPath)
	if err != nil {
		return nil, fmt.Errorf("create csv: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	header := []string{
		"timestamp", "date", "time",
		"session_type", "session_symbol",
		"symbol", "action", "quantity", "price", "trade_value",
		"position_change", "position_after",
		"trade_type", "reason", "price_move", "excess_move",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	position := 0
	for _, tr := range doc.Trades {
		change := tr.Quantity
		if tr.Action == signal.Sell {
			change = -tr.Quantity
		}
		position += change

		kind := tradeType(tr.Reason)
		switch kind {
		case "Fade":
			sum.Fades++
		case "Reduce":
			sum.Reduces++
		case "Flatten":
			sum.Flattens++
		}
		if tr.Action == signal.Buy {
			sum.Buys++
		} else {
			sum.Sells++
		}
		sum.SharesTraded += tr.Quantity

		row := []string{
			tr.Ts.Format("2006-01-02T15:04:05.000-07:00"),
			tr.Ts.Format("2006-01-02"),
			tr.Ts.Format("15:04:05.000"),
			sum.SessionType,
			sum.Symbol,
			tr.Symbol,
			string(tr.Action),
			strconv.Itoa(tr.Quantity),
			formatFloat(tr.Price),
			formatFloat(float64(tr.Quantity) * tr.Price),
			strconv.Itoa(change),
			strconv.Itoa(position),
			kind,
			tr.Reason,
			formatFloat(extractPriceMove(tr)),
			formatFloat(extractExcess(tr.Reason)),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	sum.Trades = len(doc.Trades)
	sum.FinalPosition = position
	return sum, nil
}

func tradeType(reason string) string {
	switch {
	case strings.Contains(reason, "Fade"):
		return "Fade"
	case strings.Contains(reason, "Reduce"):
		return "Reduce"
	case strings.Contains(reason, "flatten"):
		return "Flatten"
	default:
		return "Other"
	}
}

func extractExcess(reason string) float64 {
	m := excessRe.FindStringSubmatch(reason)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// extractPriceMove prefers the recorded move and falls back to parsing the
// reason string for logs written by older builds.
func extractPriceMove(tr signal.Trade) float64 {
	if tr.PriceMove != 0 {
		return tr.PriceMove
	}
	m := moveRe.FindStringSubmatch(tr.Reason)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
