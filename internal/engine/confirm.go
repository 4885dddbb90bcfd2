package engine

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/amirphl/paper-trader/internal/algoinput"
	"github.com/amirphl/paper-trader/internal/candle"
	"github.com/amirphl/paper-trader/internal/journal"
	"github.com/amirphl/paper-trader/internal/liquidation"
	"github.com/amirphl/paper-trader/internal/schedule"
)

// maxSignalAge is how long a liquidation signal may stay unconfirmed
// before it expires.
const maxSignalAge = 15 * time.Minute

// Fallback parameters forced on the always-on account when neither
// algorithm input table enables a trade.
const (
	fallbackTP     = 4.0
	fallbackSL     = 1.0
	fallbackWeight = 0.5
)

const (
	strategyLive     = "live"
	strategyReversed = "reversed"
)

// Confirmer ages out stale liquidation signals, tests reaction strength
// against the latest close and promotes confirmed signals into pending
// entries.
type Confirmer struct {
	Account        string
	Gate           schedule.Gate
	Tables         *algoinput.Loader
	Journal        journal.Journaler
	PricePrecision int
}

// Evaluate runs one confirmation pass over every registered signal.
func (c *Confirmer) Evaluate(ctx context.Context, now time.Time, last candle.Candle, reg *liquidation.Registry, entries *EntryRegistry) {
	scanTime := now.Truncate(time.Minute)

	for _, sig := range reg.Snapshot() {
		sigTime := sig.Candle.Timestamp

		if sigTime.Before(scanTime.Add(-maxSignalAge)) {
			reg.Remove(sig.ID)
			c.logEvent(ctx, now, "signal", "signal_expired", map[string]any{"id": sig.ID, "direction": sig.Direction})
			continue
		}

		if !reactionIsStrong(sig, last.Close) {
			// Not ready yet, check again next cycle.
			continue
		}

		candlesBeforeConfirmation := int(math.Round(scanTime.Sub(sigTime).Minutes()/5)) - 1
		reg.Remove(sig.ID)

		live, liveOK := c.lookup(strategyLive, sigTime)
		reversed, reversedOK := c.lookup(strategyReversed, sigTime)

		// The always-on account trades every confirmed signal: force a
		// same-direction entry when neither table enables one.
		if c.Gate.AlwaysOn() && !liveOK && !reversedOK {
			live = algoinput.Params{Trade: true, TP: fallbackTP, SL: fallbackSL, Weight: fallbackWeight}
			liveOK = true
		}

		entry := c.deriveEntry(sig, last.Close, candlesBeforeConfirmation, live, liveOK, reversed, reversedOK)

		if entry.CancelAbove != 0 && entry.CancelBelow != 0 {
			// No viable side left, skip silently.
			c.logEvent(ctx, now, "entry", "candidate_discarded_no_viable_side", map[string]any{"id": sig.ID})
			continue
		}

		entries.Append(entry)
		c.logEvent(ctx, now, "entry", "entry_created", map[string]any{
			"id":                          entry.ID,
			"long_above":                  entry.LongAbove,
			"short_below":                 entry.ShortBelow,
			"cancel_above":                entry.CancelAbove,
			"cancel_below":                entry.CancelBelow,
			"candles_before_confirmation": candlesBeforeConfirmation,
		})

		direction := "SHORT"
		entryPrice := entry.ShortBelow
		if entry.LongAbove != 0 {
			direction = "LONG"
			entryPrice = entry.LongAbove
		}
		log.Printf("Engine | [%s] Order created: %s entry %.2f on %s liquidation of $%.0f",
			c.Account, direction, entryPrice, sig.Direction, sig.Amount)
	}
}

// reactionIsStrong reports whether price moved beyond the liquidation
// candle's extreme in the signal direction.
func reactionIsStrong(sig liquidation.Signal, price float64) bool {
	if sig.Direction == liquidation.Long {
		return price > sig.Candle.High
	}
	return price < sig.Candle.Low
}

// lookup reads the hour row for the signal's event hour. A missing
// table or missing hour disables the strategy for this lookup.
func (c *Confirmer) lookup(strategyType string, sigTime time.Time) (algoinput.Params, bool) {
	table, err := c.Tables.Load(strategyType, sigTime)
	if err != nil {
		return algoinput.Params{}, false
	}
	p, ok := table.Lookup(sigTime.Hour())
	if !ok || !p.Trade {
		return algoinput.Params{}, false
	}
	return p, true
}

// deriveEntry computes the conditional entry and cancel levels around
// the latest close. The reversed table governs the opposite side; the
// live table governs the same side, but only when confirmation arrived
// within one candle.
func (c *Confirmer) deriveEntry(sig liquidation.Signal, close float64, candlesBeforeConfirmation int, live algoinput.Params, liveOK bool, reversed algoinput.Params, reversedOK bool) PendingEntry {
	entry := PendingEntry{
		ID:                        sig.ID,
		Signal:                    sig,
		CandlesBeforeConfirmation: candlesBeforeConfirmation,
	}

	below := roundPrice(close*0.995, c.PricePrecision)
	above := roundPrice(close*1.005, c.PricePrecision)

	if sig.Direction == liquidation.Long {
		if reversedOK {
			entry.ShortBelow = below
			entry.ShortTP = reversed.TP
			entry.ShortSL = reversed.SL
			entry.ShortWeight = reversed.Weight
		} else {
			entry.CancelBelow = below
		}
		switch {
		case candlesBeforeConfirmation > 1:
			entry.CancelAbove = above
		case liveOK:
			entry.LongAbove = above
			entry.LongTP = live.TP
			entry.LongSL = live.SL
			entry.LongWeight = live.Weight
		default:
			entry.CancelAbove = above
		}
		return entry
	}

	if reversedOK {
		entry.LongAbove = above
		entry.LongTP = reversed.TP
		entry.LongSL = reversed.SL
		entry.LongWeight = reversed.Weight
	} else {
		entry.CancelAbove = above
	}
	switch {
	case candlesBeforeConfirmation > 1:
		entry.CancelBelow = below
	case liveOK:
		entry.ShortBelow = below
		entry.ShortTP = live.TP
		entry.ShortSL = live.SL
		entry.ShortWeight = live.Weight
	default:
		entry.CancelBelow = below
	}
	return entry
}

func (c *Confirmer) logEvent(ctx context.Context, now time.Time, eventType, description string, data map[string]any) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.LogEvent(ctx, journal.Event{
		Time:        now,
		Account:     c.Account,
		Type:        eventType,
		Description: description,
		Data:        data,
	}); err != nil {
		log.Printf("Engine | [%s] Failed to journal %s: %v", c.Account, description, err)
	}
}

// roundPrice rounds a price to the configured number of decimals.
func roundPrice(v float64, precision int) float64 {
	scale := math.Pow10(precision)
	return math.Round(v*scale) / scale
}
