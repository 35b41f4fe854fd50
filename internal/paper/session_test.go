package paper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
)

func TestSessionRecorderWritesLog(t *testing.T) {
	recorder := NewSessionRecorder([]string{"TSLA"}, strategy.Config{
		SharesPerDollar:   100,
		MinMoveThreshold:  2.50,
		TimeWindowMinutes: 2.0,
		MaxPosition:       5000,
	})
	recorder.Add(signal.Trade{
		Ts:       time.Now(),
		Symbol:   "TSLA",
		Action:   signal.Buy,
		Quantity: 50,
		Price:    97,
		Reason:   "Fade $-3.00 move (excess: $0.50)",
	})
	if recorder.Count() != 1 {
		t.Fatalf("expected 1 trade recorded, got %d", recorder.Count())
	}

	path := filepath.Join(t.TempDir(), "session.json")
	if err := recorder.WriteFile(path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read session log: %v", err)
	}
	var log sessionLog
	if err := json.Unmarshal(data, &log); err != nil {
		t.Fatalf("decode session log: %v", err)
	}
	if log.SessionInfo.SessionID == "" {
		t.Fatalf("expected session id")
	}
	if log.SessionInfo.TotalTrades != 1 || len(log.Trades) != 1 {
		t.Fatalf("expected one trade in log, got %+v", log.SessionInfo)
	}
	if log.Trades[0].Action != signal.Buy || log.Trades[0].Quantity != 50 {
		t.Fatalf("unexpected trade payload: %+v", log.Trades[0])
	}
}

func TestSessionRecorderFileName(t *testing.T) {
	single := NewSessionRecorder([]string{"TSLA"}, strategy.Config{}.WithDefaults())
	name := single.FileName()
	want := "live_TSLA_" + time.Now().Format("20060102")
	if !strings.HasPrefix(name, want) || !strings.HasSuffix(name, ".json") {
		t.Fatalf("unexpected file name %q", name)
	}

	multi := NewSessionRecorder([]string{"TSLA", "AAPL"}, strategy.Config{}.WithDefaults())
	if !strings.HasPrefix(multi.FileName(), "live_MULTI_") {
		t.Fatalf("unexpected multi-symbol file name %q", multi.FileName())
	}
}
