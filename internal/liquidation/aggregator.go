package liquidation

import (
	"fmt"
	"time"

	"github.com/amirphl/paper-trader/internal/candle"
	"github.com/amirphl/paper-trader/internal/schedule"
)

// Aggregator reduces a batch of per-market liquidation histories into at
// most one signal per direction per cycle.
//
// All volumes are compared in quote-currency notional: native volumes
// are multiplied by the cycle candle's close before any threshold check,
// so MinimalLiquidation and NoiseFloor are both USD figures.
type Aggregator struct {
	MinimalLiquidation      float64
	MinimalNrOfLiquidations int
	NoiseFloor              float64
}

// Scan aggregates the batch against the current candle and returns the
// emitted signals. Zero, one or two (one per direction) signals may be
// returned. Signals are only emitted when the account's gate permits
// trading at the candle time.
func (a Aggregator) Scan(batch []SymbolHistory, c candle.Candle, gate schedule.Gate) []Signal {
	var totalLong, totalShort float64
	var lastBucket int64
	nrOfLiquidations := 0

	for _, sh := range batch {
		for _, b := range sh.History {
			lastBucket = b.T
			longNotional := b.L * c.Close
			totalLong += longNotional
			if longNotional > a.NoiseFloor {
				nrOfLiquidations++
			}
			shortNotional := b.S * c.Close
			totalShort += shortNotional
			if shortNotional > a.NoiseFloor {
				nrOfLiquidations++
			}
		}
	}

	if !gate.Allows(c.Timestamp) {
		return nil
	}

	var signals []Signal
	if totalLong > a.MinimalLiquidation && nrOfLiquidations >= a.MinimalNrOfLiquidations {
		signals = append(signals, newSignal(Long, totalLong, nrOfLiquidations, c, lastBucket))
	}
	if totalShort > a.MinimalLiquidation && nrOfLiquidations >= a.MinimalNrOfLiquidations {
		signals = append(signals, newSignal(Short, totalShort, nrOfLiquidations, c, lastBucket))
	}
	return signals
}

func newSignal(dir Direction, amount float64, nr int, c candle.Candle, lastBucket int64) Signal {
	prefix := "l"
	if dir == Short {
		prefix = "s"
	}
	return Signal{
		ID:               fmt.Sprintf("%s-%s", prefix, c.Timestamp.Format("1504")),
		Direction:        dir,
		Amount:           amount,
		NrOfLiquidations: nr,
		Candle:           c,
		Time:             time.Unix(lastBucket, 0).UTC(),
	}
}
