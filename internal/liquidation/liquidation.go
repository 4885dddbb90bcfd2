// Package liquidation fetches forced-liquidation volumes and reduces
// them into directional signals.
package liquidation

import (
	"time"

	"github.com/amirphl/paper-trader/internal/candle"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Sign returns +1 for long, -1 for short.
func (d Direction) Sign() float64 {
	if d == Long {
		return 1
	}
	return -1
}

// Signal is a directional liquidation signal awaiting confirmation.
type Signal struct {
	ID               string        `json:"id"`
	Direction        Direction     `json:"direction"`
	Amount           float64       `json:"amount"` // aggregated notional, USD
	NrOfLiquidations int           `json:"nr_of_liquidations"`
	Candle           candle.Candle `json:"candle"` // the candle the liquidations happened on
	Time             time.Time     `json:"time"`   // last liquidation bucket time
}

// Registry is an ordered collection of pending signals, most recent
// first. Each account owns exactly one; all access happens from that
// account's cycle step, so no locking is needed.
type Registry struct {
	signals []Signal
}

func NewRegistry() *Registry {
	return &Registry{signals: make([]Signal, 0, 8)}
}

// Insert prepends a signal.
func (r *Registry) Insert(s Signal) {
	r.signals = append([]Signal{s}, r.signals...)
}

// Snapshot returns a copy safe to iterate while the registry mutates.
func (r *Registry) Snapshot() []Signal {
	out := make([]Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

// Remove deletes the signal with the given ID. It reports whether a
// signal was removed.
func (r *Registry) Remove(id string) bool {
	for i, s := range r.signals {
		if s.ID == id {
			r.signals = append(r.signals[:i], r.signals[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry) Len() int { return len(r.signals) }

// CloneBatch deep-copies a liquidation batch so each account can
// consume it independently.
func CloneBatch(batch []SymbolHistory) []SymbolHistory {
	if batch == nil {
		return nil
	}
	out := make([]SymbolHistory, len(batch))
	for i, sh := range batch {
		history := make([]Bucket, len(sh.History))
		copy(history, sh.History)
		out[i] = SymbolHistory{Symbol: sh.Symbol, History: history}
	}
	return out
}
