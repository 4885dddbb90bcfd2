// Package engine implements the liquidation-reaction pipeline: the
// confirmation state machine that turns registered liquidation signals
// into conditional entries, and the lifecycle manager that fills,
// triggers and closes paper orders and positions against real candles.
package engine

import (
	"time"

	"github.com/amirphl/paper-trader/internal/liquidation"
)

// PendingEntry is a confirmed-but-not-yet-triggered conditional entry.
// Price levels use 0 as "unset"; at most one of LongAbove/ShortBelow is
// set on creation, and never both cancel levels.
type PendingEntry struct {
	ID                        string             `json:"id"`
	Signal                    liquidation.Signal `json:"signal"`
	CandlesBeforeConfirmation int                `json:"candles_before_confirmation"`

	LongAbove   float64 `json:"long_above"`
	ShortBelow  float64 `json:"short_below"`
	CancelAbove float64 `json:"cancel_above"`
	CancelBelow float64 `json:"cancel_below"`

	LongTP     float64 `json:"long_tp"`
	LongSL     float64 `json:"long_sl"`
	LongWeight float64 `json:"long_weight"`

	ShortTP     float64 `json:"short_tp"`
	ShortSL     float64 `json:"short_sl"`
	ShortWeight float64 `json:"short_weight"`
}

// EntryRegistry is the ordered collection of pending entries owned by
// one account.
type EntryRegistry struct {
	entries []PendingEntry
}

func NewEntryRegistry() *EntryRegistry {
	return &EntryRegistry{entries: make([]PendingEntry, 0, 8)}
}

func (r *EntryRegistry) Append(e PendingEntry) {
	r.entries = append(r.entries, e)
}

// Snapshot returns a copy safe to iterate while the registry mutates.
func (r *EntryRegistry) Snapshot() []PendingEntry {
	out := make([]PendingEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *EntryRegistry) Remove(id string) bool {
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *EntryRegistry) Len() int { return len(r.entries) }

// Order is a pending paper limit order awaiting a fill.
type Order struct {
	ID              string                `json:"id"`
	Direction       liquidation.Direction `json:"direction"`
	Price           float64               `json:"price"`
	Size            float64               `json:"size"`
	StopLossPrice   float64               `json:"stop_loss_price"`
	TakeProfitPrice float64               `json:"take_profit_price"`
	Timestamp       time.Time             `json:"timestamp"`
}

// Position is an open paper position. TakeProfitPrice may be 0 (none).
type Position struct {
	ID              string                `json:"id"`
	Direction       liquidation.Direction `json:"direction"`
	EntryPrice      float64               `json:"entry_price"`
	Size            float64               `json:"size"`
	StopLossPrice   float64               `json:"stop_loss_price"`
	TakeProfitPrice float64               `json:"take_profit_price"`
	EntryTimestamp  time.Time             `json:"entry_timestamp"`
}
