// Package exchange
package exchange

import (
	"context"
	"time"

	"github.com/amirphl/paper-trader/internal/candle"
)

// Exchange is the interface for market-data providers. Only read
// operations exist: paper trading never places real orders.
type Exchange interface {
	Name() string
	// LastCandle returns the latest closed 5-minute candle relative to now.
	LastCandle(ctx context.Context, now time.Time) (*candle.Candle, error)
	// LastPrice returns the last traded price.
	LastPrice(ctx context.Context) (float64, error)
}
