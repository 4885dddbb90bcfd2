// Package trader runs two independent paper accounts against the same
// market data stream: one trading around the clock, one restricted to a
// configured weekday/hour schedule.
package trader

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/paper-trader/internal/algoinput"
	"github.com/amirphl/paper-trader/internal/candle"
	"github.com/amirphl/paper-trader/internal/config"
	"github.com/amirphl/paper-trader/internal/engine"
	"github.com/amirphl/paper-trader/internal/exchange"
	"github.com/amirphl/paper-trader/internal/journal"
	"github.com/amirphl/paper-trader/internal/ledger"
	"github.com/amirphl/paper-trader/internal/liquidation"
	"github.com/amirphl/paper-trader/internal/notifier"
	"github.com/amirphl/paper-trader/internal/report"
	"github.com/amirphl/paper-trader/internal/schedule"
)

// Account is one complete simulated account: its own signal registry,
// pending entries, open positions and ledger. Nothing here is shared
// with the other account.
type Account struct {
	Name       string
	Gate       schedule.Gate
	Registry   *liquidation.Registry
	Entries    *engine.EntryRegistry
	Aggregator liquidation.Aggregator
	Confirmer  *engine.Confirmer
	Lifecycle  *engine.Lifecycle
	Ledger     *ledger.Ledger
	Journal    journal.Journaler
}

func NewAccount(cfg config.Config, gate schedule.Gate, ex exchange.Exchange, jrnl journal.Journaler, ntf notifier.Notifier) *Account {
	led := ledger.New(cfg.StartingBalance)
	tables := algoinput.NewLoader(cfg.AlgoInputDir)

	return &Account{
		Name:     gate.Name(),
		Gate:     gate,
		Registry: liquidation.NewRegistry(),
		Entries:  engine.NewEntryRegistry(),
		Aggregator: liquidation.Aggregator{
			MinimalLiquidation:      cfg.MinimalLiquidation,
			MinimalNrOfLiquidations: cfg.MinimalNrOfLiquidations,
			NoiseFloor:              cfg.LiquidationNoiseFloor,
		},
		Confirmer: &engine.Confirmer{
			Account:        gate.Name(),
			Gate:           gate,
			Tables:         tables,
			Journal:        jrnl,
			PricePrecision: cfg.PricePrecision,
		},
		Lifecycle: engine.NewLifecycle(gate.Name(), cfg, ex, led, jrnl, ntf),
		Ledger:    led,
		Journal:   jrnl,
	}
}

// RunCycle processes one polling cycle for this account: aggregate new
// signals, run the confirmation pass, then resolve orders and
// positions. A gated-out account does nothing, so its registries stay
// empty outside its schedule.
func (a *Account) RunCycle(ctx context.Context, now time.Time, c candle.Candle, batch []liquidation.SymbolHistory) {
	if !a.Gate.Allows(now) {
		return
	}

	for _, sig := range a.Aggregator.Scan(batch, c, a.Gate) {
		a.Registry.Insert(sig)
		a.logSignal(ctx, now, sig)
	}

	a.Confirmer.Evaluate(ctx, now, c, a.Registry, a.Entries)
	a.Lifecycle.Run(ctx, now, c, a.Entries)
}

func (a *Account) logSignal(ctx context.Context, now time.Time, sig liquidation.Signal) {
	log.Printf("Trader | [%s] %s liquidation detected: $%.0f over %d events",
		a.Name, sig.Direction, sig.Amount, sig.NrOfLiquidations)
	if a.Journal == nil {
		return
	}
	if err := a.Journal.LogEvent(ctx, journal.Event{
		Time:        now,
		Account:     a.Name,
		Type:        "signal",
		Description: "liquidation_detected",
		Data: map[string]any{
			"id":                 sig.ID,
			"direction":          sig.Direction,
			"amount":             sig.Amount,
			"nr_of_liquidations": sig.NrOfLiquidations,
		},
	}); err != nil {
		log.Printf("Trader | [%s] Failed to journal signal: %v", a.Name, err)
	}
}

// View packages the account state for the reporter.
func (a *Account) View() report.AccountView {
	return report.AccountView{
		Name:     a.Name,
		Snapshot: a.Ledger.Snapshot(),
		History:  a.Ledger.History(),
	}
}
