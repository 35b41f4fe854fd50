package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackrehmann/fade-scalps/internal/signal"
)

func writeLog(t *testing.T, doc map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal log: %v", err)
	}
	path := filepath.Join(t.TempDir(), "log.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func sampleTrades() []signal.Trade {
	base := time.Date(2025, 9, 15, 9, 35, 0, 0, time.UTC)
	return []signal.Trade{
		{Ts: base, Symbol: "TSLA", Action: signal.Buy, Quantity: 50, Price: 97.0, Reason: "Fade $-3.00 move (excess: $0.50)", PriceMove: -3.0},
		{Ts: base.Add(time.Minute), Symbol: "TSLA", Action: signal.Sell, Quantity: 20, Price: 98.5, Reason: "Reduce $-1.50 move (excess: $-1.00)", PriceMove: -1.5},
		{Ts: base.Add(2 * time.Minute), Symbol: "TSLA", Action: signal.Sell, Quantity: 30, Price: 98.5, Reason: "End of session - flatten position"},
	}
}

func TestConvertBacktestLog(t *testing.T) {
	jsonPath := writeLog(t, map[string]any{
		"backtest_info": map[string]any{"symbol": "TSLA"},
		"trades":        sampleTrades(),
	})
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	sum, err := Convert(jsonPath, csvPath)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if sum.SessionType != "backtest" || sum.Symbol != "TSLA" {
		t.Fatalf("unexpected summary header: %+v", sum)
	}
	if sum.Trades != 3 || sum.Buys != 1 || sum.Sells != 2 {
		t.Fatalf("unexpected trade counts: %+v", sum)
	}
	if sum.Fades != 1 || sum.Reduces != 1 || sum.Flattens != 1 {
		t.Fatalf("unexpected trade types: %+v", sum)
	}
	if sum.FinalPosition != 0 {
		t.Fatalf("expected flat final position, got %d", sum.FinalPosition)
	}
	if sum.SharesTraded != 100 {
		t.Fatalf("expected 100 shares traded, got %d", sum.SharesTraded)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}

	header := rows[0]
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %q", name)
		return -1
	}
	fade := rows[1]
	if fade[col("action")] != "BUY" || fade[col("quantity")] != "50" {
		t.Fatalf("unexpected fade row: %v", fade)
	}
	if fade[col("trade_type")] != "Fade" || fade[col("excess_move")] != "0.5" {
		t.Fatalf("unexpected fade classification: %v", fade)
	}
	if fade[col("position_after")] != "50" {
		t.Fatalf("unexpected running position: %v", fade)
	}
	if rows[2][col("position_after")] != "30" || rows[3][col("position_after")] != "0" {
		t.Fatalf("running position should drop to flat: %v", rows)
	}
	if rows[3][col("trade_type")] != "Flatten" {
		t.Fatalf("expected flatten classification: %v", rows[3])
	}
}

func TestConvertSessionLog(t *testing.T) {
	jsonPath := writeLog(t, map[string]any{
		"session_info": map[string]any{
			"session_id": "abc",
			"symbols":    []string{"NVDA", "AAPL"},
		},
		"trades": sampleTrades(),
	})

	sum, err := Convert(jsonPath, "")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if sum.SessionType != "live_trading" || sum.Symbol != "NVDA" {
		t.Fatalf("unexpected summary header: %+v", sum)
	}

	derived := filepath.Join(filepath.Dir(jsonPath), "log_trades.csv")
	if _, err := os.Stat(derived); err != nil {
		t.Fatalf("expected derived csv path %s: %v", derived, err)
	}
}

func TestConvertRejectsBadInput(t *testing.T) {
	if _, err := Convert(filepath.Join(t.TempDir(), "missing.json"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}

	jsonPath := writeLog(t, map[string]any{"trades": sampleTrades()})
	if _, err := Convert(jsonPath, ""); err == nil {
		t.Fatal("expected error for log without header section")
	}

	empty := writeLog(t, map[string]any{
		"backtest_info": map[string]any{"symbol": "TSLA"},
		"trades":        []signal.Trade{},
	})
	if _, err := Convert(empty, ""); err == nil {
		t.Fatal("expected error for empty trade list")
	}
}
