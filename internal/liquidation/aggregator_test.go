package liquidation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/paper-trader/internal/candle"
	"github.com/amirphl/paper-trader/internal/schedule"
)

func testAggregator() Aggregator {
	return Aggregator{
		MinimalLiquidation:      2000,
		MinimalNrOfLiquidations: 1,
		NoiseFloor:              100,
	}
}

func cycleCandle(ts time.Time, close float64) candle.Candle {
	return candle.Candle{
		Timestamp: ts,
		Open:      close,
		High:      close + 100,
		Low:       close - 100,
		Close:     close,
		Symbol:    "BTCUSDT",
		Timeframe: "5m",
	}
}

func TestAggregator_Scan(t *testing.T) {
	// Tuesday 14:35 UTC.
	ts := time.Date(2026, 3, 10, 14, 35, 0, 0, time.UTC)
	gate := schedule.NewAlwaysOn()

	t.Run("Volume below the threshold emits nothing", func(t *testing.T) {
		a := testAggregator()
		// 0.015 BTC at $100k is $1500, below the $2000 minimum.
		batch := []SymbolHistory{{Symbol: "BTCUSDT_PERP.A", History: []Bucket{{T: ts.Unix(), L: 0.015}}}}

		signals := a.Scan(batch, cycleCandle(ts, 100000), gate)

		assert.Empty(t, signals)
	})

	t.Run("Long volume above the threshold emits one long signal", func(t *testing.T) {
		a := testAggregator()
		batch := []SymbolHistory{{Symbol: "BTCUSDT_PERP.A", History: []Bucket{{T: ts.Unix(), L: 0.025}}}}

		signals := a.Scan(batch, cycleCandle(ts, 100000), gate)

		require.Len(t, signals, 1)
		s := signals[0]
		assert.Equal(t, Long, s.Direction)
		assert.Equal(t, "l-1435", s.ID)
		assert.InDelta(t, 2500, s.Amount, 1e-9)
		assert.Equal(t, 1, s.NrOfLiquidations)
		assert.Equal(t, ts.Unix(), s.Time.Unix())
	})

	t.Run("Both directions can fire in the same cycle", func(t *testing.T) {
		a := testAggregator()
		batch := []SymbolHistory{{Symbol: "BTCUSDT_PERP.A", History: []Bucket{{T: ts.Unix(), L: 0.03, S: 0.04}}}}

		signals := a.Scan(batch, cycleCandle(ts, 100000), gate)

		require.Len(t, signals, 2)
		assert.Equal(t, "l-1435", signals[0].ID)
		assert.Equal(t, "s-1435", signals[1].ID)
		assert.InDelta(t, 3000, signals[0].Amount, 1e-9)
		assert.InDelta(t, 4000, signals[1].Amount, 1e-9)
	})

	t.Run("Volumes accumulate across markets", func(t *testing.T) {
		a := testAggregator()
		batch := []SymbolHistory{
			{Symbol: "BTCUSDT_PERP.A", History: []Bucket{{T: ts.Unix(), L: 0.012}}},
			{Symbol: "BTCUSD_PERP.B", History: []Bucket{{T: ts.Unix(), L: 0.013}}},
		}

		signals := a.Scan(batch, cycleCandle(ts, 100000), gate)

		require.Len(t, signals, 1)
		assert.InDelta(t, 2500, signals[0].Amount, 1e-9)
		assert.Equal(t, 2, signals[0].NrOfLiquidations)
	})

	t.Run("Noise-floor buckets do not count as events", func(t *testing.T) {
		a := testAggregator()
		a.MinimalNrOfLiquidations = 2
		// One big event plus dust: total clears the notional threshold
		// but only one bucket clears the noise floor.
		batch := []SymbolHistory{
			{Symbol: "BTCUSDT_PERP.A", History: []Bucket{{T: ts.Unix(), L: 0.025}}},
			{Symbol: "BTCUSD_PERP.B", History: []Bucket{{T: ts.Unix(), L: 0.0005}}},
		}

		signals := a.Scan(batch, cycleCandle(ts, 100000), gate)

		assert.Empty(t, signals)
	})

	t.Run("Gated-out timestamp emits nothing", func(t *testing.T) {
		a := testAggregator()
		offHours := schedule.NewScheduled([]int{2}, []int{3}) // Tuesdays 03:00 only
		batch := []SymbolHistory{{Symbol: "BTCUSDT_PERP.A", History: []Bucket{{T: ts.Unix(), L: 1.0}}}}

		signals := a.Scan(batch, cycleCandle(ts, 100000), offHours)

		assert.Empty(t, signals)
	})

	t.Run("Empty batch emits nothing", func(t *testing.T) {
		a := testAggregator()
		assert.Empty(t, a.Scan(nil, cycleCandle(ts, 100000), gate))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Insert prepends, most recent first", func(t *testing.T) {
		r := NewRegistry()
		r.Insert(Signal{ID: "l-1200"})
		r.Insert(Signal{ID: "s-1205"})

		snap := r.Snapshot()
		require.Len(t, snap, 2)
		assert.Equal(t, "s-1205", snap[0].ID)
		assert.Equal(t, "l-1200", snap[1].ID)
	})

	t.Run("Remove deletes by ID", func(t *testing.T) {
		r := NewRegistry()
		r.Insert(Signal{ID: "l-1200"})
		r.Insert(Signal{ID: "s-1205"})

		assert.True(t, r.Remove("l-1200"))
		assert.False(t, r.Remove("l-1200"))
		assert.Equal(t, 1, r.Len())
	})

	t.Run("Snapshot is unaffected by later mutation", func(t *testing.T) {
		r := NewRegistry()
		r.Insert(Signal{ID: "l-1200"})

		snap := r.Snapshot()
		r.Remove("l-1200")

		require.Len(t, snap, 1)
		assert.Equal(t, 0, r.Len())
	})
}

func TestCloneBatch(t *testing.T) {
	t.Run("Nil stays nil", func(t *testing.T) {
		assert.Nil(t, CloneBatch(nil))
	})

	t.Run("Mutating the clone leaves the original intact", func(t *testing.T) {
		original := []SymbolHistory{{Symbol: "BTCUSDT_PERP.A", History: []Bucket{{T: 1, L: 2.5, S: 0.5}}}}

		clone := CloneBatch(original)
		clone[0].History[0].L = 99

		assert.Equal(t, 2.5, original[0].History[0].L)
	})
}
