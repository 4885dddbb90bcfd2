package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/paper-trader/internal/config"
	"github.com/amirphl/paper-trader/internal/exchange"
	"github.com/amirphl/paper-trader/internal/journal"
	"github.com/amirphl/paper-trader/internal/liquidation"
	"github.com/amirphl/paper-trader/internal/notifier"
	"github.com/amirphl/paper-trader/internal/trader"
)

func main() {
	cfg := config.MustLoadConfig()
	log.Printf("Starting Paper Trader on %s (no real orders are placed)", cfg.Symbol)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A single interrupt finishes the in-flight cycle and dumps the
	// final summaries.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var jrnl journal.Journaler = journal.NewMemory()
	if cfg.DBConnStr != "" {
		pg, err := journal.NewPostgres(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
		if err != nil {
			log.Fatalf("Failed to open journal database: %v", err)
		}
		defer pg.Close()
		jrnl = pg
		log.Println("Journaling events to Postgres")
	}

	var ntf notifier.Notifier = notifier.Nop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		ntf = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		log.Println("Telegram notifications enabled")
	}

	ex := exchange.NewBinanceExchange(cfg.Symbol, cfg.Timeframe)

	coinalyze := liquidation.NewClient(cfg.CoinalyzeAPIKey)
	if err := setSymbolsWithRetry(ctx, coinalyze); err != nil {
		log.Fatalf("Failed to discover liquidation markets: %v", err)
	}
	log.Printf("Markets being scanned: %s", coinalyze.Symbols())

	t := trader.New(cfg, ex, coinalyze, jrnl, ntf, trader.NewRealClock(), os.Stdout)
	if err := t.Run(ctx); err != nil {
		log.Fatalf("Trading loop failed: %v", err)
	}
}

// setSymbolsWithRetry retries market discovery a few times before
// giving up; without a symbol list no liquidation data can be fetched.
func setSymbolsWithRetry(ctx context.Context, c *liquidation.Client) error {
	var err error
	for i := 0; i < 3; i++ {
		if err = c.SetSymbols(ctx); err == nil {
			return nil
		}
		log.Printf("Market discovery attempt %d/3 failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	return err
}
