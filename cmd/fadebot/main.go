package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackrehmann/fade-scalps/internal/backtest"
	"github.com/jackrehmann/fade-scalps/internal/config"
	"github.com/jackrehmann/fade-scalps/internal/exchange"
	"github.com/jackrehmann/fade-scalps/internal/execution"
	"github.com/jackrehmann/fade-scalps/internal/metrics"
	"github.com/jackrehmann/fade-scalps/internal/paper"
	"github.com/jackrehmann/fade-scalps/internal/report"
	"github.com/jackrehmann/fade-scalps/internal/risk"
	sig "github.com/jackrehmann/fade-scalps/internal/signal"
	"github.com/jackrehmann/fade-scalps/internal/store"
	"github.com/jackrehmann/fade-scalps/internal/strategy"
	"github.com/jackrehmann/fade-scalps/internal/sweep"
	"github.com/jackrehmann/fade-scalps/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

var cfgFile string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "fadebot",
		Short: "Threshold-triggered mean reversion trading engine",
		Long:  "Fades outsized short-window price moves with ratcheted entries and proportional exits, in backtest or live dry-run mode.",
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "config file")

	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(liveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(csvCmd())
	rootCmd.AddCommand(bestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// applyOverrides layers non-zero CLI flags over the configured strategy knobs.
func applyOverrides(base strategy.Config, spd, thresh, window float64, maxPos int) strategy.Config {
	if spd > 0 {
		base.SharesPerDollar = spd
	}
	if thresh > 0 {
		base.MinMoveThreshold = thresh
	}
	if window > 0 {
		base.TimeWindowMinutes = window
	}
	if maxPos > 0 {
		base.MaxPosition = maxPos
	}
	return base
}

// parseSessionWindow combines a trading date with start/end clock times, local zone.
func parseSessionWindow(date, startStr, endStr string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	parseClock := func(s string) (time.Time, error) {
		clock, err := time.Parse("15:04", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
	}
	start, err := parseClock(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseClock(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is not before end %s", startStr, endStr)
	}
	return start, end, nil
}

func backtestCmd() *cobra.Command {
	var (
		spd, thresh, window float64
		maxPos, maxRequests int
		noStore             bool
	)
	cmd := &cobra.Command{
		Use:   "backtest SYMBOL DATE START END",
		Short: "Replay historical ticks through the fade engine",
		Long:  "Fetches ticks for SYMBOL on DATE between START and END (HH:MM), replays them through the engine, and writes the scored trade log.",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := util.NewLogger(cfg.App.LogLevel)

			symbol := strings.ToUpper(args[0])
			start, end, err := parseSessionWindow(args[1], args[2], args[3])
			if err != nil {
				return err
			}

			requests := cfg.Feed.MaxHistoryRequests
			if maxRequests > 0 {
				requests = maxRequests
			}
			client := exchange.NewHistoryClient(cfg.Feed.HistoryBaseURL, log, exchange.WithMaxRequests(requests))
			ticks, err := client.FetchTicks(cmd.Context(), symbol, start, end)
			if err != nil {
				return fmt.Errorf("fetch ticks: %w", err)
			}
			if len(ticks) == 0 {
				return fmt.Errorf("no ticks for %s between %s and %s", symbol, start.Format("15:04"), end.Format("15:04"))
			}

			engineCfg := applyOverrides(cfg.Strategy, spd, thresh, window, maxPos)
			result, err := backtest.Run(engineCfg, symbol, ticks, log)
			if err != nil {
				return err
			}

			outPath := filepath.Join(cfg.Paper.TradesDir, result.FileName())
			if err := result.WriteJSON(outPath); err != nil {
				return err
			}

			if !noStore {
				db, err := store.Open(cfg.Store.Path)
				if err != nil {
					return err
				}
				defer db.Close()
				runID, err := db.SaveRun(result)
				if err != nil {
					return err
				}
				log.Info().Str("run_id", runID).Msg("run saved")
			}

			printResult(result, outPath)
			return nil
		},
	}
	cmd.Flags().Float64Var(&spd, "shares-per-dollar", 0, "shares per dollar of excess move")
	cmd.Flags().Float64Var(&thresh, "min-move-thresh", 0, "minimum move to trigger a fade (dollars)")
	cmd.Flags().Float64Var(&window, "time-window", 0, "rolling window length (minutes)")
	cmd.Flags().IntVar(&maxPos, "max-position", 0, "absolute position cap (shares)")
	cmd.Flags().IntVar(&maxRequests, "max-requests", 0, "history request cap for the fetch")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip saving the run to the database")
	return cmd
}

func printResult(result *backtest.Result, path string) {
	fmt.Printf("Backtest %s %s %s-%s\n",
		result.Symbol,
		result.Start.Format("2006-01-02"),
		result.Start.Format("15:04"),
		result.End.Format("15:04"))
	fmt.Printf("  ticks:         %d\n", result.PriceTicks)
	fmt.Printf("  trades:        %d\n", result.TotalTrades)
	fmt.Printf("  total PnL:     $%.2f\n", result.TotalPnL)
	fmt.Printf("  win rate:      %.1f%%\n", result.WinRate*100)
	fmt.Printf("  max position:  %d shares\n", result.MaxPosition)
	fmt.Printf("  trade log:     %s\n", path)
}

func liveCmd() *cobra.Command {
	var sessionMinutes int
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the engine against a live quote feed (dry run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := util.NewLogger(cfg.App.LogLevel)

			_ = metrics.Serve(cfg.App.MetricsAddr)
			log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

			ctx, cancel := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if sessionMinutes > 0 {
				var tcancel context.CancelFunc
				ctx, tcancel = context.WithTimeout(ctx, time.Duration(sessionMinutes)*time.Minute)
				defer tcancel()
			}

			engine, err := strategy.NewFadeEngine(cfg.Strategy, log)
			if err != nil {
				return err
			}
			limits := risk.Limits{
				MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade,
				MaxDailyLoss:        cfg.Risk.MaxDailyLoss,
			}
			exec := execution.NewExecutor(log)
			account := paper.NewAccount(cfg.Paper.StartingCash)
			recorder := paper.NewSessionRecorder(cfg.Feed.Symbols, engine.Config())
			ledger := paper.NewLedger(256)
			fillLog, err := paper.NewJSONLRecorder(filepath.Join(cfg.Paper.TradesDir, "fills.jsonl"))
			if err != nil {
				return fmt.Errorf("open fill log: %w", err)
			}
			defer fillLog.Close()

			feed := exchange.NewFeed(cfg.Feed.Provider, cfg.Feed.Symbols, log, exchange.WithWSURL(cfg.Feed.WSURL))
			ticks := make(chan sig.Tick, 1024)
			go func() {
				if err := feed.Run(ctx, ticks); err != nil {
					log.Error().Err(err).Msg("feed stopped")
					cancel()
				}
			}()

			fill := func(s *sig.Signal, price float64, ts time.Time) {
				order := execution.Order{
					Symbol: s.Symbol,
					Side:   execution.SideFromAction(s.Action),
					Qty:    s.Quantity,
					Price:  price,
				}
				if !limits.Allow(float64(order.Qty) * order.Price) {
					log.Warn().
						Str("symbol", order.Symbol).
						Float64("notional", float64(order.Qty)*order.Price).
						Msg("order exceeds per-trade notional cap, skipping")
					return
				}
				submitted, err := exec.Submit(order)
				if err != nil {
					log.Error().Err(err).Msg("submit order")
					return
				}
				if err := account.MarketFill(order.Symbol, order.Side, order.Qty, order.Price); err != nil {
					log.Error().Err(err).Msg("paper fill")
					return
				}
				f := execution.Fill{
					ID:     submitted.ID,
					Symbol: order.Symbol,
					Side:   order.Side,
					Qty:    order.Qty,
					Price:  order.Price,
					Ts:     ts,
				}
				ledger.Record(f)
				if err := fillLog.Record(f); err != nil {
					log.Error().Err(err).Msg("record fill")
				}
				recorder.Add(sig.Trade{
					Ts:           ts,
					Symbol:       s.Symbol,
					Action:       s.Action,
					Quantity:     s.Quantity,
					Price:        price,
					Reason:       s.Reason,
					PriceMove:    s.PriceMove,
					WindowHigh:   s.WindowHigh,
					WindowLow:    s.WindowLow,
					CurrentPrice: s.CurrentPrice,
				})
			}

			log.Info().
				Strs("symbols", cfg.Feed.Symbols).
				Str("provider", cfg.Feed.Provider).
				Msg("live session started")

		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case tk := <-ticks:
					if !limits.AllowAfterLoss(account.RealizedPnL()) {
						log.Warn().
							Float64("realized_pnl", account.RealizedPnL()).
							Msg("daily loss limit reached, halting session")
						cancel()
						continue
					}
					if s := engine.UpdatePrice(tk.Symbol, tk.Price, tk.Ts); s != nil {
						metrics.SignalsTotal.WithLabelValues(s.Symbol, string(s.Action)).Inc()
						fill(s, tk.Price, tk.Ts)
					}
				}
			}

			// Close out everything at the last seen prices before exiting.
			for symbol := range engine.Positions() {
				price, ok := engine.LatestPrice(symbol)
				if !ok {
					continue
				}
				if s := engine.Flatten(symbol, price); s != nil {
					fill(s, price, time.Now())
				}
			}

			sessionPath := filepath.Join(cfg.Paper.TradesDir, recorder.FileName())
			if err := recorder.WriteFile(sessionPath); err != nil {
				log.Error().Err(err).Msg("write session log")
			} else {
				log.Info().Str("path", sessionPath).Int("trades", recorder.Count()).Msg("session log written")
			}
			log.Info().
				Float64("realized_pnl", account.RealizedPnL()).
				Float64("cash", account.AvailableCash()).
				Int("fills", ledger.Len()).
				Int("shares_traded", ledger.SharesTraded()).
				Msg("session closed")
			return nil
		},
	}
	cmd.Flags().IntVar(&sessionMinutes, "duration", 0, "stop the session after this many minutes (0 = run until interrupted)")
	return cmd
}

func sweepCmd() *cobra.Command {
	var (
		spdList, threshList, windowList, posList string
		workers, topN                            int
		target                                   string
		noStore                                  bool
	)
	cmd := &cobra.Command{
		Use:   "sweep SYMBOL DATE START END",
		Short: "Backtest a grid of parameters over one session",
		Long:  "Fetches ticks once, replays them through every combination of the supplied parameter lists, and ranks the results.",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := util.NewLogger(cfg.App.LogLevel)

			symbol := strings.ToUpper(args[0])
			start, end, err := parseSessionWindow(args[1], args[2], args[3])
			if err != nil {
				return err
			}

			grid := sweep.Grid{}
			if grid.SharesPerDollar, err = parseFloatList(spdList); err != nil {
				return fmt.Errorf("--shares-per-dollar: %w", err)
			}
			if grid.MinMoveThreshold, err = parseFloatList(threshList); err != nil {
				return fmt.Errorf("--min-move-thresh: %w", err)
			}
			if grid.TimeWindowMinutes, err = parseFloatList(windowList); err != nil {
				return fmt.Errorf("--time-window: %w", err)
			}
			if grid.MaxPosition, err = parseIntList(posList); err != nil {
				return fmt.Errorf("--max-position: %w", err)
			}

			client := exchange.NewHistoryClient(cfg.Feed.HistoryBaseURL, log, exchange.WithMaxRequests(cfg.Feed.MaxHistoryRequests))
			ticks, err := client.FetchTicks(cmd.Context(), symbol, start, end)
			if err != nil {
				return fmt.Errorf("fetch ticks: %w", err)
			}
			if len(ticks) == 0 {
				return fmt.Errorf("no ticks for %s between %s and %s", symbol, start.Format("15:04"), end.Format("15:04"))
			}

			results, err := sweep.Run(cmd.Context(), grid, cfg.Strategy, symbol, ticks, workers, log)
			if err != nil {
				return err
			}

			if !noStore {
				db, err := store.Open(cfg.Store.Path)
				if err != nil {
					return err
				}
				defer db.Close()
				for _, r := range results {
					if _, err := db.SaveRun(r); err != nil {
						return err
					}
				}
			}

			if topN <= 0 || topN > len(results) {
				topN = len(results)
			}
			fmt.Printf("Sweep %s %s: %d configs over %d ticks\n", symbol, args[1], len(results), len(ticks))
			fmt.Println("  rank  pnl        win    trades  spd    thresh  window  maxpos")
			for i, r := range results[:topN] {
				fmt.Printf("  %-4d  $%-8.2f  %4.0f%%  %-6d  %-5.0f  %-6.2f  %-6.2f  %d\n",
					i+1, r.TotalPnL, r.WinRate*100, r.TotalTrades,
					r.Config.SharesPerDollar, r.Config.MinMoveThreshold,
					r.Config.TimeWindowMinutes, r.Config.MaxPosition)
			}

			best, err := sweep.Best(results, target)
			if err != nil {
				return err
			}
			fmt.Printf("Best by %s: spd=%.0f thresh=%.2f window=%.2f maxpos=%d (pnl $%.2f, win %.0f%%, %d trades)\n",
				target, best.Config.SharesPerDollar, best.Config.MinMoveThreshold,
				best.Config.TimeWindowMinutes, best.Config.MaxPosition,
				best.TotalPnL, best.WinRate*100, best.TotalTrades)
			return nil
		},
	}
	cmd.Flags().StringVar(&spdList, "shares-per-dollar", "", "comma-separated shares-per-dollar values")
	cmd.Flags().StringVar(&threshList, "min-move-thresh", "", "comma-separated threshold values (dollars)")
	cmd.Flags().StringVar(&windowList, "time-window", "", "comma-separated window lengths (minutes)")
	cmd.Flags().StringVar(&posList, "max-position", "", "comma-separated position caps (shares)")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent backtest workers")
	cmd.Flags().IntVar(&topN, "top", 10, "rows to print")
	cmd.Flags().StringVar(&target, "target", "pnl", "ranking target: pnl, win_rate, or trades")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip saving runs to the database")
	return cmd
}

func csvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "csv FILE [OUTPUT]",
		Short: "Convert a JSON trade log to CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) > 1 {
				out = args[1]
			}
			sum, err := report.Convert(args[0], out)
			if err != nil {
				return err
			}
			fmt.Printf("Converted %d trades (%s, %s)\n", sum.Trades, sum.SessionType, sum.Symbol)
			fmt.Printf("  BUY: %d  SELL: %d\n", sum.Buys, sum.Sells)
			fmt.Printf("  Fade: %d  Reduce: %d  Flatten: %d\n", sum.Fades, sum.Reduces, sum.Flattens)
			fmt.Printf("  shares traded: %d, final position: %d\n", sum.SharesTraded, sum.FinalPosition)
			return nil
		},
	}
}

func bestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "best SYMBOL",
		Short: "Show the best stored runs for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.BestRuns(strings.ToUpper(args[0]), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no stored runs")
				return nil
			}
			fmt.Println("  pnl        win    trades  spd    thresh  window  maxpos  session")
			for _, r := range runs {
				fmt.Printf("  $%-8.2f  %4.0f%%  %-6d  %-5.0f  %-6.2f  %-6.2f  %-6d  %s %s-%s\n",
					r.TotalPnL, r.WinRate*100, r.TotalTrades,
					r.SharesPerDollar, r.MinMoveThreshold, r.TimeWindowMinutes, r.MaxPosition,
					r.Start.Format("2006-01-02"), r.Start.Format("15:04"), r.End.Format("15:04"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	return cmd
}

func parseFloatList(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseIntList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
