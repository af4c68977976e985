package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/raykavin/pricewatch/pkg/command"
	"github.com/raykavin/pricewatch/pkg/config"
	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/logger"
	"github.com/raykavin/pricewatch/pkg/logger/logrus"
	"github.com/raykavin/pricewatch/pkg/logger/zerolog"
	"github.com/raykavin/pricewatch/pkg/notification"
	"github.com/raykavin/pricewatch/pkg/pricesource"
	"github.com/raykavin/pricewatch/pkg/reconcile"
	"github.com/raykavin/pricewatch/pkg/render"
	"github.com/raykavin/pricewatch/pkg/storage"
	"github.com/raykavin/pricewatch/pkg/tracker"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	source := pricesource.NewMemo(buildSource(cfg.Price))
	printer := render.New(displayCurrency(cfg.Price))
	settings := cfg.Settings()

	service := command.NewService(store, source, settings, log.WithField("component", "command"),
		command.WithLookupTimeout(cfg.Price.Timeout),
		command.WithPrinter(printer),
	)

	var notifier core.NotifierWithStart = notification.NewConsole(log.WithField("component", "console"))
	if cfg.Telegram.Enabled {
		notifier, err = notification.NewTelegram(service, &settings, log.WithField("component", "telegram"))
		if err != nil {
			return err
		}
	}

	engine := reconcile.NewEngine(store, source, notifier, log.WithField("component", "engine"),
		reconcile.WithInterval(cfg.Interval),
		reconcile.WithConcurrency(cfg.Concurrency),
		reconcile.WithPriceTimeout(cfg.Price.Timeout),
		reconcile.WithCoalesce(cfg.Coalesce),
		reconcile.WithPrinter(printer),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start()
	if err := engine.Start(ctx); err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"provider": cfg.Price.Provider,
		"store":    cfg.Store,
		"telegram": cfg.Telegram.Enabled,
	}).Info("pricewatch running")

	<-ctx.Done()
	log.Info("shutting down")

	notifier.Stop()
	select {
	case <-engine.Stop().Done():
	case <-time.After(shutdownTimeout):
		log.Warn("timed out waiting for the reconciliation pass to finish")
	}

	return nil
}

func runPrice(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	assetID := core.NormalizeAsset(args[0])
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Price.Timeout)
	defer cancel()

	price, err := buildSource(cfg.Price).Price(ctx, assetID)
	if err != nil {
		return err
	}

	cmd.Printf("%s: %s\n", assetID, render.New(displayCurrency(cfg.Price)).Money(price))
	return nil
}

func buildLogger(cfg config.LogConfig) (logger.Logger, error) {
	if cfg.Backend == config.BackendLogrus {
		return logrus.New(cfg.Options)
	}
	return zerolog.New(cfg.Options)
}

func buildStore(kind string) (core.Store, func(), error) {
	if kind != config.StoreBuntDB {
		return tracker.NewMemoryStore(), func() {}, nil
	}

	store, err := storage.FromMemory()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open buntdb store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func buildSource(cfg config.PriceConfig) core.PriceSource {
	if cfg.Provider == config.ProviderBinance {
		return pricesource.NewBinance(
			pricesource.WithQuoteAsset(binanceQuote(cfg.Currency)),
			pricesource.WithBinanceURL(cfg.BaseURL),
		)
	}

	return pricesource.NewCoinGecko(
		pricesource.WithBaseURL(cfg.BaseURL),
		pricesource.WithCurrency(cfg.Currency),
		pricesource.WithAPIKey(cfg.APIKey),
	)
}

// binanceQuote maps a fiat currency to the stablecoin Binance lists it against
func binanceQuote(currency string) string {
	quote := strings.ToUpper(currency)
	if quote == "USD" {
		return pricesource.DefaultBinanceQuote
	}
	return quote
}

func displayCurrency(cfg config.PriceConfig) string {
	if cfg.Provider == config.ProviderBinance {
		return binanceQuote(cfg.Currency)
	}
	return cfg.Currency
}
