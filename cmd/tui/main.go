package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackrehmann/fade-scalps/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== FadeBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit strategy knobs")
		fmt.Println("3) Edit feed and risk settings")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch live session")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editStrategy(reader, cfg)
		case "3":
			editFeedRisk(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchLive(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Shares per dollar: %.0f\n", cfg.Strategy.SharesPerDollar)
	fmt.Printf("Min move threshold: $%.2f\n", cfg.Strategy.MinMoveThreshold)
	fmt.Printf("Time window: %.2f minutes\n", cfg.Strategy.TimeWindowMinutes)
	fmt.Printf("Max position: %d shares\n", cfg.Strategy.MaxPosition)
	fmt.Println("Symbols:", strings.Join(cfg.Feed.Symbols, ", "))
	fmt.Printf("Feed provider: %s (ws: %s)\n", cfg.Feed.Provider, cfg.Feed.WSURL)
	fmt.Printf("Per-trade notional cap: $%.2f\n", cfg.Risk.MaxNotionalPerTrade)
	fmt.Printf("Daily loss limit: $%.2f\n", cfg.Risk.MaxDailyLoss)
	fmt.Printf("Starting cash: $%.2f\n", cfg.Paper.StartingCash)
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy ---")
	cfg.Strategy.SharesPerDollar = promptFloat(reader, "Shares per dollar of excess move", cfg.Strategy.SharesPerDollar)
	cfg.Strategy.MinMoveThreshold = promptFloat(reader, "Min move threshold (USD)", cfg.Strategy.MinMoveThreshold)
	cfg.Strategy.TimeWindowMinutes = promptFloat(reader, "Time window (minutes)", cfg.Strategy.TimeWindowMinutes)
	cfg.Strategy.MaxPosition = int(promptFloat(reader, "Max position (shares)", float64(cfg.Strategy.MaxPosition)))
}

func editFeedRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Feed / Risk ---")
	fmt.Printf("Current symbols: %s\n", strings.Join(cfg.Feed.Symbols, ", "))
	fmt.Print("Enter symbols comma-separated (blank to keep): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		parts := strings.Split(strings.TrimSpace(line), ",")
		cfg.Feed.Symbols = nil
		for _, p := range parts {
			if trimmed := strings.ToUpper(strings.TrimSpace(p)); trimmed != "" {
				cfg.Feed.Symbols = append(cfg.Feed.Symbols, trimmed)
			}
		}
	}
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade (USD)", cfg.Risk.MaxNotionalPerTrade)
	cfg.Risk.MaxDailyLoss = promptFloat(reader, "Max daily loss (USD)", cfg.Risk.MaxDailyLoss)
	cfg.Paper.StartingCash = promptFloat(reader, "Starting cash (USD)", cfg.Paper.StartingCash)
}

func launchLive(reader *bufio.Reader) {
	fmt.Println("Launching live session (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/fadebot", "live")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start session: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the session and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
