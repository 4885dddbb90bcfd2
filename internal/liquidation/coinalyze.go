// Package liquidation
package liquidation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	liquidationHistoryURL = "https://api.coinalyze.net/v1/liquidation-history"
	futureMarketsURL      = "https://api.coinalyze.net/v1/future-markets"

	// Coinalyze history bucket interval; matches the 5m trading cycle.
	historyInterval = "5min"
	historyWindow   = 5 * time.Minute
)

// Bucket is one liquidation-history time bucket. L and S are the long
// and short liquidation volumes in native asset units.
type Bucket struct {
	T int64   `json:"t"`
	L float64 `json:"l"`
	S float64 `json:"s"`
}

// SymbolHistory is the per-market liquidation history returned by
// Coinalyze.
type SymbolHistory struct {
	Symbol  string   `json:"symbol"`
	History []Bucket `json:"history"`
}

type futureMarket struct {
	Symbol string `json:"symbol"`
}

// Client fetches liquidation data from the Coinalyze REST API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	symbols    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Symbols returns the comma-joined market list used for history requests.
func (c *Client) Symbols() string { return c.symbols }

// SetSymbols discovers all BTCUSD-prefixed futures markets and stores
// them for subsequent history requests.
func (c *Client) SetSymbols(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, futureMarketsURL, nil)
	if err != nil {
		return fmt.Errorf("building future-markets request: %w", err)
	}
	req.Header.Set("api_key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching future markets: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("future markets request failed: %s", resp.Status)
	}

	var markets []futureMarket
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return fmt.Errorf("decoding future markets: %w", err)
	}

	seen := make(map[string]bool)
	var symbols []string
	if c.symbols != "" {
		for _, s := range strings.Split(c.symbols, ",") {
			if !seen[s] {
				seen[s] = true
				symbols = append(symbols, s)
			}
		}
	}
	for _, m := range markets {
		symbol := strings.ToUpper(m.Symbol)
		if strings.HasPrefix(symbol, "BTCUSD") && !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	c.symbols = strings.Join(symbols, ",")
	return nil
}

// History fetches the liquidation history for the current 5-minute
// window ending at the prior 5-minute boundary of now.
func (c *Client) History(ctx context.Context, now time.Time) ([]SymbolHistory, error) {
	rounded := now.Truncate(time.Minute).Add(-time.Duration(now.Minute()%5) * time.Minute)

	params := url.Values{}
	params.Set("symbols", c.symbols)
	params.Set("from", strconv.FormatInt(rounded.Add(-historyWindow).Unix(), 10))
	params.Set("to", strconv.FormatInt(rounded.Unix(), 10))
	params.Set("interval", historyInterval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, liquidationHistoryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building liquidation-history request: %w", err)
	}
	req.Header.Set("api_key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching liquidation history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("liquidation history request failed: %s", resp.Status)
	}

	var histories []SymbolHistory
	if err := json.NewDecoder(resp.Body).Decode(&histories); err != nil {
		return nil, fmt.Errorf("decoding liquidation history: %w", err)
	}
	return histories, nil
}
