// Package exchange
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"github.com/amirphl/paper-trader/internal/candle"
)

type BinanceExchange struct {
	client    *futures.Client
	symbol    string
	timeframe string
}

// NewBinanceExchange creates a Binance USDⓈ-M futures market-data client.
// No API credentials are needed for public kline and ticker endpoints.
func NewBinanceExchange(symbol, timeframe string) *BinanceExchange {
	return &BinanceExchange{
		client:    binance.NewFuturesClient("", ""),
		symbol:    symbol,
		timeframe: timeframe,
	}
}

func (b *BinanceExchange) Name() string {
	return "binance-futures"
}

// retry wraps a function with retry logic for transient errors, using exponential backoff and error logging.
func retry(attempts int, delay time.Duration, fn func() error) error {
	backoff := delay
	for i := 1; i <= attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		log.Printf("Exchange | Binance retry attempt %d/%d failed: %v. Backing off for %v", i, attempts, err, backoff)
		time.Sleep(backoff)
		if backoff < time.Minute {
			backoff *= 2
			if backoff > time.Minute {
				backoff = time.Minute
			}
		}
	}
	return errors.New("all retry attempts failed")
}

// LastCandle fetches the latest closed 5-minute candle. The request is
// anchored to the prior 5-minute boundary so the first returned kline is
// always a completed bar.
func (b *BinanceExchange) LastCandle(ctx context.Context, now time.Time) (*candle.Candle, error) {
	since := now.Truncate(5 * time.Minute).Add(-5 * time.Minute)

	var klines []*futures.Kline
	err := retry(3, 2*time.Second, func() error {
		var err error
		klines, err = b.client.NewKlinesService().
			Symbol(b.symbol).
			Interval(b.timeframe).
			StartTime(since.UnixMilli()).
			Limit(2).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("fetching klines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("LastCandle failed: %w", err)
	}
	if len(klines) == 0 {
		return nil, errors.New("LastCandle: no klines returned")
	}

	k := klines[0]
	open, _ := strconv.ParseFloat(k.Open, 64)
	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	c := &candle.Candle{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Symbol:    b.symbol,
		Timeframe: b.timeframe,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("LastCandle: invalid candle: %w", err)
	}
	return c, nil
}

// LastPrice fetches the last traded price for the configured symbol.
func (b *BinanceExchange) LastPrice(ctx context.Context) (float64, error) {
	var prices []*futures.SymbolPrice
	err := retry(3, 2*time.Second, func() error {
		var err error
		prices, err = b.client.NewListPricesService().Symbol(b.symbol).Do(ctx)
		if err != nil {
			return fmt.Errorf("fetching ticker: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("LastPrice failed: %w", err)
	}
	if len(prices) == 0 {
		return 0, errors.New("LastPrice: empty ticker response")
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("LastPrice: parsing price %q: %w", prices[0].Price, err)
	}
	return price, nil
}
