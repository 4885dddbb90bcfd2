package trader

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/amirphl/paper-trader/internal/candle"
	"github.com/amirphl/paper-trader/internal/config"
	"github.com/amirphl/paper-trader/internal/exchange"
	"github.com/amirphl/paper-trader/internal/journal"
	"github.com/amirphl/paper-trader/internal/liquidation"
	"github.com/amirphl/paper-trader/internal/notifier"
	"github.com/amirphl/paper-trader/internal/report"
	"github.com/amirphl/paper-trader/internal/schedule"
)

// LiquidationSource provides per-market liquidation histories for the
// current 5-minute window.
type LiquidationSource interface {
	History(ctx context.Context, now time.Time) ([]liquidation.SymbolHistory, error)
}

// Trader drives the fixed 5-minute cycle for both paper accounts,
// sharing one candle fetch and one liquidation fetch per cycle.
type Trader struct {
	cfg   config.Config
	ex    exchange.Exchange
	liq   LiquidationSource
	clock Clock
	out   io.Writer

	AlwaysOn  *Account
	Scheduled *Account

	startTime     time.Time
	lastDashboard time.Time
}

func New(cfg config.Config, ex exchange.Exchange, liq LiquidationSource, jrnl journal.Journaler, ntf notifier.Notifier, clock Clock, out io.Writer) *Trader {
	return &Trader{
		cfg:       cfg,
		ex:        ex,
		liq:       liq,
		clock:     clock,
		out:       out,
		AlwaysOn:  NewAccount(cfg, schedule.NewAlwaysOn(), ex, jrnl, ntf),
		Scheduled: NewAccount(cfg, schedule.NewScheduled(cfg.LiquidationDays, cfg.LiquidationHours), ex, jrnl, ntf),
	}
}

// Run executes the polling loop until the context is cancelled, then
// writes the final reports. The cancellation check sits at the top of
// the loop: an in-flight cycle always runs to completion so settlement
// is never interrupted.
func (t *Trader) Run(ctx context.Context) error {
	t.startTime = t.clock.Now()
	log.Printf("Trader | Paper trading started: $%.2f per account, symbol %s", t.cfg.StartingBalance, t.cfg.Symbol)

	first := true
	for {
		select {
		case <-ctx.Done():
			t.finish()
			return nil
		default:
		}

		now := t.clock.Now()

		// Main evaluation on every 5-minute boundary.
		if first || (now.Minute()%5 == 0 && now.Second() == 0) {
			first = false
			t.Cycle(ctx, now)
			t.clock.Sleep(990 * time.Millisecond)
		}

		// Balance-driven sizing runs on a slower cadence, offset from
		// the main evaluation.
		if now.Minute()%5 == 4 && now.Second() == 0 {
			t.AlwaysOn.Lifecycle.SetPositionSize(ctx)
			t.Scheduled.Lifecycle.SetPositionSize(ctx)
			t.clock.Sleep(990 * time.Millisecond)
		}

		t.clock.Sleep(100 * time.Millisecond)
	}
}

// Cycle fetches the shared inputs once and feeds both accounts. A
// failed candle fetch skips the whole cycle; a failed liquidation fetch
// degrades to an empty batch.
func (t *Trader) Cycle(ctx context.Context, now time.Time) {
	c, err := t.ex.LastCandle(ctx, now)
	if err != nil {
		log.Printf("Trader | No candle this cycle: %v", err)
		return
	}

	batch, err := t.liq.History(ctx, now)
	if err != nil {
		log.Printf("Trader | No liquidation data this cycle: %v", err)
		batch = nil
	}

	t.runAccount(ctx, now, *c, batch, t.AlwaysOn)
	t.runAccount(ctx, now, *c, batch, t.Scheduled)

	if t.out != nil && now.Sub(t.lastDashboard) >= t.cfg.DashboardInterval {
		report.WriteDashboard(t.out, t.AlwaysOn.View(), t.Scheduled.View(), c.Close, now)
		t.lastDashboard = now
	}
}

func (t *Trader) runAccount(ctx context.Context, now time.Time, c candle.Candle, batch []liquidation.SymbolHistory, a *Account) {
	// Candle is passed by value and the batch cloned: one account's
	// pipeline must never observe the other's mutations.
	a.RunCycle(ctx, now, c, liquidation.CloneBatch(batch))
}

// finish writes the final console summary and the per-account result
// files.
func (t *Trader) finish() {
	runtime := t.clock.Now().Sub(t.startTime)

	if t.out != nil {
		report.WriteFinalResults(t.out, t.AlwaysOn.View(), t.Scheduled.View(), runtime)
	}

	for _, a := range []*Account{t.AlwaysOn, t.Scheduled} {
		path, err := report.SaveResults(t.cfg.ReportDir, a.View(), runtime)
		if err != nil {
			log.Printf("Trader | Failed to save results for %s: %v", a.Name, err)
			continue
		}
		log.Printf("Trader | Results saved to %s", path)
	}
}
