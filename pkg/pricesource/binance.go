package pricesource

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/raykavin/pricewatch/pkg/core"
)

const DefaultBinanceQuote = "USDT"

// Binance quotes the last spot price of ASSET+QUOTE, e.g. btc -> BTCUSDT
type Binance struct {
	client *binance.Client
	quote  string
}

// BinanceOption configures a Binance price source
type BinanceOption func(*Binance)

// WithQuoteAsset sets the quote asset appended to every asset id
func WithQuoteAsset(quote string) BinanceOption {
	return func(b *Binance) {
		if quote != "" {
			b.quote = strings.ToUpper(quote)
		}
	}
}

// WithBinanceURL points the client at a different REST root
func WithBinanceURL(baseURL string) BinanceOption {
	return func(b *Binance) {
		if baseURL != "" {
			b.client.BaseURL = baseURL
		}
	}
}

// NewBinance creates an unauthenticated Binance price source
func NewBinance(options ...BinanceOption) *Binance {
	b := &Binance{
		client: binance.NewClient("", ""),
		quote:  DefaultBinanceQuote,
	}

	for _, option := range options {
		option(b)
	}

	return b
}

// Symbol returns the exchange symbol used for assetID
func (b *Binance) Symbol(assetID string) string {
	return strings.ToUpper(assetID) + b.quote
}

// Price returns the last traded price of assetID against the quote asset
func (b *Binance) Price(ctx context.Context, assetID string) (float64, error) {
	symbol := b.Symbol(assetID)

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", core.ErrPriceUnavailable, symbol, err)
	}

	for _, price := range prices {
		if price == nil || price.Symbol != symbol {
			continue
		}

		value, err := strconv.ParseFloat(price.Price, 64)
		if err != nil || value <= 0 {
			return 0, fmt.Errorf("%w: %s: invalid price %q", core.ErrPriceUnavailable, symbol, price.Price)
		}
		return value, nil
	}

	return 0, fmt.Errorf("%w: %s: symbol not listed", core.ErrPriceUnavailable, symbol)
}
