package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/paper-trader/internal/algoinput"
	"github.com/amirphl/paper-trader/internal/candle"
	"github.com/amirphl/paper-trader/internal/journal"
	"github.com/amirphl/paper-trader/internal/liquidation"
	"github.com/amirphl/paper-trader/internal/schedule"
)

func testSignal(dir liquidation.Direction, sigTime time.Time) liquidation.Signal {
	prefix := "l"
	if dir == liquidation.Short {
		prefix = "s"
	}
	return liquidation.Signal{
		ID:               fmt.Sprintf("%s-%s", prefix, sigTime.Format("1504")),
		Direction:        dir,
		Amount:           5000,
		NrOfLiquidations: 3,
		Candle: candle.Candle{
			Timestamp: sigTime,
			Open:      99.8,
			High:      100.5,
			Low:       99.5,
			Close:     100.0,
			Symbol:    "BTCUSDT",
			Timeframe: "5m",
		},
		Time: sigTime,
	}
}

func testCandle(ts time.Time, close float64) candle.Candle {
	return candle.Candle{
		Timestamp: ts,
		Open:      close,
		High:      close + 0.5,
		Low:       close - 0.5,
		Close:     close,
		Symbol:    "BTCUSDT",
		Timeframe: "5m",
	}
}

// writeAlgoTable writes a one-row algorithm input CSV for the given day
// and strategy type.
func writeAlgoTable(t *testing.T, dir, strategyType string, date time.Time, hour int, trade bool, tp, sl, weight float64) {
	t.Helper()
	name := fmt.Sprintf("algorithm_input-%s-%s.csv", date.Format("2006-01-02"), strategyType)
	content := fmt.Sprintf("hour,trade,tp,sl,weight\n%d,%t,%v,%v,%v\n", hour, trade, tp, sl, weight)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newTestConfirmer(t *testing.T, gate schedule.Gate) (*Confirmer, string) {
	t.Helper()
	dir := t.TempDir()
	return &Confirmer{
		Account:        gate.Name(),
		Gate:           gate,
		Tables:         algoinput.NewLoader(dir),
		Journal:        journal.Nop{},
		PricePrecision: 1,
	}, dir
}

func TestConfirmer_Evaluate(t *testing.T) {
	ctx := context.Background()
	// Tuesday 12:00 UTC.
	sigTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Expired signal is removed without an entry", func(t *testing.T) {
		c, _ := newTestConfirmer(t, schedule.NewAlwaysOn())
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		now := sigTime.Add(20 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

		assert.Equal(t, 0, reg.Len())
		assert.Equal(t, 0, entries.Len())
	})

	t.Run("Weak reaction leaves the signal registered", func(t *testing.T) {
		c, _ := newTestConfirmer(t, schedule.NewAlwaysOn())
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		// Close 100.4 does not exceed the signal candle high of 100.5.
		now := sigTime.Add(5 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 100.4), reg, entries)

		assert.Equal(t, 1, reg.Len())
		assert.Equal(t, 0, entries.Len())
	})

	t.Run("Confirmed long signal with live table creates long entry", func(t *testing.T) {
		c, dir := newTestConfirmer(t, schedule.NewScheduled([]int{2}, []int{12}))
		writeAlgoTable(t, dir, "live", sigTime, 12, true, 4.0, 1.0, 0.5)
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		now := sigTime.Add(5 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

		require.Equal(t, 1, entries.Len())
		assert.Equal(t, 0, reg.Len())

		e := entries.Snapshot()[0]
		assert.Equal(t, 0, e.CandlesBeforeConfirmation)
		assert.InDelta(t, 101.5, e.LongAbove, 1e-9) // 101 * 1.005 rounded
		assert.InDelta(t, 100.5, e.CancelBelow, 1e-9)
		assert.Zero(t, e.ShortBelow)
		assert.Zero(t, e.CancelAbove)
		assert.Equal(t, 4.0, e.LongTP)
		assert.Equal(t, 1.0, e.LongSL)
		assert.Equal(t, 0.5, e.LongWeight)
	})

	t.Run("Reversed table flips the entry side", func(t *testing.T) {
		c, dir := newTestConfirmer(t, schedule.NewScheduled([]int{2}, []int{12}))
		writeAlgoTable(t, dir, "reversed", sigTime, 12, true, 2.0, 0.5, 1.0)
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		now := sigTime.Add(5 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

		require.Equal(t, 1, entries.Len())
		e := entries.Snapshot()[0]
		assert.InDelta(t, 100.5, e.ShortBelow, 1e-9)
		assert.InDelta(t, 101.5, e.CancelAbove, 1e-9)
		assert.Zero(t, e.LongAbove)
		assert.Zero(t, e.CancelBelow)
		assert.Equal(t, 2.0, e.ShortTP)
		assert.Equal(t, 0.5, e.ShortSL)
	})

	t.Run("Late confirmation cancels the same side", func(t *testing.T) {
		c, dir := newTestConfirmer(t, schedule.NewScheduled([]int{2}, []int{12}))
		writeAlgoTable(t, dir, "live", sigTime, 12, true, 4.0, 1.0, 0.5)
		writeAlgoTable(t, dir, "reversed", sigTime, 12, true, 2.0, 0.5, 1.0)
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		// Three candles later: candles before confirmation is 2, so the
		// same-direction side is cancelled even though live enables it.
		now := sigTime.Add(15 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

		require.Equal(t, 1, entries.Len())
		e := entries.Snapshot()[0]
		assert.Equal(t, 2, e.CandlesBeforeConfirmation)
		assert.Zero(t, e.LongAbove)
		assert.NotZero(t, e.ShortBelow)
		assert.NotZero(t, e.CancelAbove)
	})

	t.Run("No enabled strategy discards the candidate", func(t *testing.T) {
		c, _ := newTestConfirmer(t, schedule.NewScheduled([]int{2}, []int{12}))
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		now := sigTime.Add(5 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

		assert.Equal(t, 0, reg.Len())
		assert.Equal(t, 0, entries.Len())
	})

	t.Run("Always-on account falls back to forced parameters", func(t *testing.T) {
		c, _ := newTestConfirmer(t, schedule.NewAlwaysOn())
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		now := sigTime.Add(5 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

		require.Equal(t, 1, entries.Len())
		e := entries.Snapshot()[0]
		assert.NotZero(t, e.LongAbove)
		assert.Equal(t, fallbackTP, e.LongTP)
		assert.Equal(t, fallbackSL, e.LongSL)
		assert.Equal(t, fallbackWeight, e.LongWeight)
	})

	t.Run("Short signal mirrors the levels", func(t *testing.T) {
		c, dir := newTestConfirmer(t, schedule.NewScheduled([]int{2}, []int{12}))
		writeAlgoTable(t, dir, "live", sigTime, 12, true, 4.0, 1.0, 0.5)
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Short, sigTime))

		// Close below the signal candle low confirms a short.
		now := sigTime.Add(5 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 99.0), reg, entries)

		require.Equal(t, 1, entries.Len())
		e := entries.Snapshot()[0]
		assert.InDelta(t, 98.5, e.ShortBelow, 1e-9) // 99 * 0.995 rounded
		assert.InDelta(t, 99.5, e.CancelAbove, 1e-9)
		assert.Zero(t, e.LongAbove)
		assert.Zero(t, e.CancelBelow)
	})

	t.Run("Entries never carry both cancel levels", func(t *testing.T) {
		// Every combination of table availability and confirmation delay
		// must produce either a viable entry or nothing.
		for _, delay := range []time.Duration{5 * time.Minute, 10 * time.Minute, 15 * time.Minute} {
			for _, withLive := range []bool{true, false} {
				for _, withReversed := range []bool{true, false} {
					c, dir := newTestConfirmer(t, schedule.NewScheduled([]int{2}, []int{12}))
					if withLive {
						writeAlgoTable(t, dir, "live", sigTime, 12, true, 4.0, 1.0, 0.5)
					}
					if withReversed {
						writeAlgoTable(t, dir, "reversed", sigTime, 12, true, 2.0, 0.5, 1.0)
					}
					reg := liquidation.NewRegistry()
					entries := NewEntryRegistry()
					reg.Insert(testSignal(liquidation.Long, sigTime))

					now := sigTime.Add(delay)
					c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

					for _, e := range entries.Snapshot() {
						assert.False(t, e.CancelAbove != 0 && e.CancelBelow != 0,
							"delay=%v live=%t reversed=%t", delay, withLive, withReversed)
					}
				}
			}
		}
	})

	t.Run("Table with trade disabled counts as missing", func(t *testing.T) {
		c, dir := newTestConfirmer(t, schedule.NewScheduled([]int{2}, []int{12}))
		writeAlgoTable(t, dir, "live", sigTime, 12, false, 4.0, 1.0, 0.5)
		reg := liquidation.NewRegistry()
		entries := NewEntryRegistry()
		reg.Insert(testSignal(liquidation.Long, sigTime))

		now := sigTime.Add(5 * time.Minute)
		c.Evaluate(ctx, now, testCandle(now, 101.0), reg, entries)

		assert.Equal(t, 0, entries.Len())
	})
}

func TestReactionIsStrong(t *testing.T) {
	sig := testSignal(liquidation.Long, time.Now())
	assert.True(t, reactionIsStrong(sig, 100.6))
	assert.False(t, reactionIsStrong(sig, 100.5)) // equal to high is not strong
	assert.False(t, reactionIsStrong(sig, 99.0))

	short := testSignal(liquidation.Short, time.Now())
	assert.True(t, reactionIsStrong(short, 99.4))
	assert.False(t, reactionIsStrong(short, 99.5))
}

func TestRoundPrice(t *testing.T) {
	assert.InDelta(t, 101.5, roundPrice(101.46, 1), 1e-9)
	assert.InDelta(t, 101.4, roundPrice(101.44, 1), 1e-9)
	assert.InDelta(t, 101, roundPrice(101.44, 0), 1e-9)
}
