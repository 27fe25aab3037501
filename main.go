package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"gridx/config"
	"gridx/exchange/standx"
	"gridx/logger"
	"gridx/tradelog"
	"gridx/trader"
)

func main() {
	// Load environment variables from .env file if present (for local/dev
	// runs). In Docker Compose, variables are injected by the runtime and
	// this is harmless.
	_ = godotenv.Load()

	logger.Init(nil)

	accountIndex := flag.String("account", "01", "account index (01, 02, ...); each account runs as its own process")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("❌ %v", err)
	}

	account, err := config.ResolveAccount(*accountIndex)
	if err != nil {
		logger.Fatalf("❌ %v", err)
	}

	logger.Infof("🔑 Account %s selected (symbol=%s, grid %d×2, range $%.2f - $%.2f)",
		account.Index, cfg.Symbol, cfg.GridCount, cfg.LowerPrice, cfg.UpperPrice)

	// Signin + request signing setup; credential problems are fatal here,
	// before any trading call
	client, err := standx.NewClient(account.PrivateKey, cfg.Chain)
	if err != nil {
		logger.Fatalf("❌ StandX client initialization failed: %v", err)
	}

	tick, err := client.GetTickSize(cfg.Symbol)
	if err != nil {
		logger.Warnf("⚠️  Tick size discovery failed: %v (using %.4f)", err, tick)
	}
	logger.Infof("✓ Tick size for %s: %s", cfg.Symbol, strconv.FormatFloat(tick, 'f', -1, 64))

	events, err := tradelog.New("", account.Index)
	if err != nil {
		logger.Fatalf("❌ Failed to open trade log: %v", err)
	}
	defer events.Close()

	// Order stream reports fills into the trade log; the grid loop itself
	// only ever trusts fresh REST queries
	stream := standx.NewStreamClient(client.Auth(), func(u standx.OrderUpdate) {
		if u.Status != "filled" {
			return
		}
		price, _ := strconv.ParseFloat(u.FillAvgPrice, 64)
		qty, _ := strconv.ParseFloat(u.FillQty, 64)
		events.OrderFilled(u.ClOrdID, u.Side, price, qty)
		logger.Infof("💰 Fill: %s %s %s @ %s (ID: %s)", u.Side, u.FillQty, u.Symbol, u.FillAvgPrice, u.ClOrdID)
	})
	stream.Start()

	at := trader.NewAutoTrader(cfg, account, client, tick, events)
	at.Start()

	logger.Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("📛 Shutdown signal received, stopping...")
	at.Stop()
	stream.Stop()
}
