package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/amirphl/paper-trader/internal/candle"
	"github.com/amirphl/paper-trader/internal/config"
	"github.com/amirphl/paper-trader/internal/exchange"
	"github.com/amirphl/paper-trader/internal/journal"
	"github.com/amirphl/paper-trader/internal/ledger"
	"github.com/amirphl/paper-trader/internal/liquidation"
	"github.com/amirphl/paper-trader/internal/notifier"
)

// Contract sizes are expressed in thousandths of the base asset.
const sizeScale = 1000.0

// minPositionSize is the smallest order size in contracts.
const minPositionSize = 0.1

// Lifecycle fills pending orders, closes open positions on stop-loss or
// take-profit, and turns triggered pending entries into orders. It is
// the only mutator of the account's ledger.
type Lifecycle struct {
	Account  string
	Cfg      config.Config
	Exchange exchange.Exchange
	Ledger   *ledger.Ledger
	Journal  journal.Journaler
	Notifier notifier.Notifier

	pendingOrders []Order
	positions     []Position
	positionSize  float64
	orderSeq      int
}

func NewLifecycle(account string, cfg config.Config, ex exchange.Exchange, led *ledger.Ledger, jrnl journal.Journaler, ntf notifier.Notifier) *Lifecycle {
	return &Lifecycle{
		Account:      account,
		Cfg:          cfg,
		Exchange:     ex,
		Ledger:       led,
		Journal:      jrnl,
		Notifier:     ntf,
		positionSize: minPositionSize,
	}
}

// Run executes one lifecycle pass against the latest candle: fills,
// then closes, then pending-entry evaluation. Closes run before entry
// evaluation so new entries are sized against the freshest balance.
func (l *Lifecycle) Run(ctx context.Context, now time.Time, c candle.Candle, entries *EntryRegistry) {
	l.resolveFills(ctx, c)
	l.closePositions(ctx, c)
	l.evaluateEntries(ctx, now, c, entries)

	if len(l.pendingOrders) > 0 || entries.Len() > 0 || len(l.positions) > 0 {
		log.Printf("Engine | [%s] Orders: %d pending | %d waiting for entry | %d open positions",
			l.Account, len(l.pendingOrders), entries.Len(), len(l.positions))
	}
}

// resolveFills converts pending limit orders touched by the candle into
// open positions, charging the entry (maker) fee.
func (l *Lifecycle) resolveFills(ctx context.Context, c candle.Candle) {
	orders := make([]Order, len(l.pendingOrders))
	copy(orders, l.pendingOrders)

	for _, o := range orders {
		filled := false
		if o.Direction == liquidation.Long {
			filled = c.Low <= o.Price
		} else {
			filled = c.High >= o.Price
		}
		if !filled {
			continue
		}

		l.removeOrder(o.ID)
		l.positions = append(l.positions, Position{
			ID:              o.ID,
			Direction:       o.Direction,
			EntryPrice:      o.Price,
			Size:            o.Size,
			StopLossPrice:   o.StopLossPrice,
			TakeProfitPrice: o.TakeProfitPrice,
			EntryTimestamp:  c.Timestamp,
		})

		fee := o.Size * o.Price / sizeScale * l.Cfg.MakerFee
		l.Ledger.ApplyFee(fee)

		l.logEvent(ctx, c.Timestamp, "order", "order_filled", map[string]any{
			"id": o.ID, "direction": o.Direction, "price": o.Price, "size": o.Size, "fee": fee,
		})
		log.Printf("Engine | [%s] Order filled: %s @ $%.2f", l.Account, o.Direction, o.Price)
	}
}

// closePositions closes every open position whose take-profit or
// stop-loss was touched by the candle. Take-profit is checked first; at
// most one close per position per cycle.
func (l *Lifecycle) closePositions(ctx context.Context, c candle.Candle) {
	positions := make([]Position, len(l.positions))
	copy(positions, l.positions)

	for _, p := range positions {
		var reason ledger.CloseReason
		var exitPrice float64

		if p.Direction == liquidation.Long {
			switch {
			case p.TakeProfitPrice != 0 && c.High >= p.TakeProfitPrice:
				reason, exitPrice = ledger.CloseTakeProfit, p.TakeProfitPrice
			case c.Low <= p.StopLossPrice:
				reason, exitPrice = ledger.CloseStopLoss, p.StopLossPrice
			}
		} else {
			switch {
			case p.TakeProfitPrice != 0 && c.Low <= p.TakeProfitPrice:
				reason, exitPrice = ledger.CloseTakeProfit, p.TakeProfitPrice
			case c.High >= p.StopLossPrice:
				reason, exitPrice = ledger.CloseStopLoss, p.StopLossPrice
			}
		}
		if reason == "" {
			continue
		}

		notional := p.Size * p.EntryPrice / sizeScale
		pnl := p.Direction.Sign() * (exitPrice - p.EntryPrice) / p.EntryPrice * notional * float64(l.Cfg.Leverage)

		feeRate := l.Cfg.TakerFee
		if reason == ledger.CloseTakeProfit {
			feeRate = l.Cfg.MakerFee
		}
		pnl -= p.Size * exitPrice / sizeScale * feeRate

		l.removePosition(p.ID)
		trade := ledger.TradeRecord{
			Timestamp:  c.Timestamp,
			TradeID:    p.ID,
			Direction:  string(p.Direction),
			EntryPrice: p.EntryPrice,
			ExitPrice:  exitPrice,
			Size:       p.Size,
			PnL:        pnl,
			Reason:     reason,
		}
		l.Ledger.Settle(trade)

		l.logEvent(ctx, c.Timestamp, "trade", "position_closed", map[string]any{
			"id": p.ID, "direction": p.Direction, "entry": p.EntryPrice, "exit": exitPrice,
			"pnl": pnl, "reason": reason,
		})
		log.Printf("Engine | [%s] Position closed: %s P&L: $%+.2f, Balance: $%.2f",
			l.Account, p.Direction, pnl, l.Ledger.Balance())
		if l.Notifier != nil {
			l.Notifier.Send(fmt.Sprintf("[%s] %s closed (%s): entry $%.2f exit $%.2f P&L $%+.2f",
				l.Account, p.Direction, reason, p.EntryPrice, exitPrice, pnl))
		}
	}
}

// evaluateEntries resolves each pending entry against the candle close:
// cancel levels take precedence over triggers, triggered entries pass
// the forbidden-delay filter and become limit orders.
func (l *Lifecycle) evaluateEntries(ctx context.Context, now time.Time, c candle.Candle, entries *EntryRegistry) {
	for _, e := range entries.Snapshot() {
		longTrigger := e.LongAbove != 0 && c.Close > e.LongAbove
		shortTrigger := e.ShortBelow != 0 && c.Close < e.ShortBelow
		cancelAbove := e.CancelAbove != 0 && c.Close > e.CancelAbove
		cancelBelow := e.CancelBelow != 0 && c.Close < e.CancelBelow

		if cancelAbove || cancelBelow {
			entries.Remove(e.ID)
			l.logEvent(ctx, now, "entry", "entry_cancelled", map[string]any{"id": e.ID})
			continue
		}
		if !longTrigger && !shortTrigger {
			continue
		}

		entries.Remove(e.ID)

		if n := candlesBeforeEntry(now, e); intsContain(l.Cfg.ForbiddenCandlesBeforeEntry, n) {
			l.logEvent(ctx, now, "entry", "entry_dropped_forbidden_delay", map[string]any{
				"id": e.ID, "candles_before_entry": n,
			})
			continue
		}

		direction := liquidation.Short
		weight, slPct, tpPct := e.ShortWeight, e.ShortSL, e.ShortTP
		if longTrigger {
			direction = liquidation.Long
			weight, slPct, tpPct = e.LongWeight, e.LongSL, e.LongTP
		}

		amount := max(round1(l.positionSize*weight/slPct), minPositionSize)
		l.placeLimitOrder(ctx, now, direction, amount, slPct, tpPct)
	}
}

// candlesBeforeEntry counts the 5-minute candles elapsed between the
// first candle after confirmation and the trigger.
func candlesBeforeEntry(now time.Time, e PendingEntry) int {
	firstCandleAfterConfirmation := e.Signal.Time.Add(time.Duration(e.CandlesBeforeConfirmation+1) * 5 * time.Minute)
	diff := now.Truncate(time.Minute).Sub(firstCandleAfterConfirmation)
	return int(math.Floor(diff.Minutes() / 5))
}

// placeLimitOrder records a paper limit order slightly inside the
// current price, with stop-loss and take-profit derived from the
// configured percentages. No real order is placed.
func (l *Lifecycle) placeLimitOrder(ctx context.Context, now time.Time, direction liquidation.Direction, amount, slPct, tpPct float64) {
	price, err := l.Exchange.LastPrice(ctx)
	if err != nil {
		// Transient: the entry is already consumed, skip this order.
		log.Printf("Engine | [%s] Skipping order, price unavailable: %v", l.Account, err)
		l.logEvent(ctx, now, "order", "order_skipped_no_price", map[string]any{"direction": direction})
		return
	}

	if direction == liquidation.Long {
		price = roundPrice(price*0.9999, l.Cfg.PricePrecision)
	} else {
		price = roundPrice(price*1.0001, l.Cfg.PricePrecision)
	}
	stopLoss, takeProfit := slAndTPPrice(direction, price, slPct, tpPct, l.Cfg.PricePrecision)

	l.orderSeq++
	o := Order{
		ID:              fmt.Sprintf("paper_%s_%d", l.Account, l.orderSeq),
		Direction:       direction,
		Price:           price,
		Size:            amount,
		StopLossPrice:   stopLoss,
		TakeProfitPrice: takeProfit,
		Timestamp:       now,
	}
	l.pendingOrders = append(l.pendingOrders, o)

	l.logEvent(ctx, now, "order", "order_placed", map[string]any{
		"id": o.ID, "direction": direction, "price": price, "size": amount,
		"stop_loss": stopLoss, "take_profit": takeProfit,
	})
	log.Printf("Engine | [%s] Order placed: %s @ $%.2f (SL $%.2f, TP $%.2f)", l.Account, direction, price, stopLoss, takeProfit)
	if l.Notifier != nil {
		l.Notifier.Send(fmt.Sprintf("[%s] %s order @ $%.2f | SL $%.2f | TP $%.2f", l.Account, direction, price, stopLoss, takeProfit))
	}
}

// slAndTPPrice derives absolute stop-loss and take-profit prices from
// percentages around the entry price.
func slAndTPPrice(direction liquidation.Direction, price, slPct, tpPct float64, precision int) (float64, float64) {
	if direction == liquidation.Long {
		return roundPrice(price*(1-slPct/100), precision), roundPrice(price*(1+tpPct/100), precision)
	}
	return roundPrice(price*(1+slPct/100), precision), roundPrice(price*(1-tpPct/100), precision)
}

// SetPositionSize recalculates the base position size from the current
// balance. It runs on a slower cadence than the main evaluation. On a
// price failure the previous size is kept.
func (l *Lifecycle) SetPositionSize(ctx context.Context) {
	price, err := l.Exchange.LastPrice(ctx)
	if err != nil || price <= 0 {
		log.Printf("Engine | [%s] Keeping position size %.1f, price unavailable: %v", l.Account, l.positionSize, err)
		return
	}

	var usdtSize float64
	if l.Cfg.UseFixedRisk {
		usdtSize = l.Cfg.FixedRiskExFees * (1 / float64(l.Cfg.Leverage) * 100)
	} else {
		usdtSize = l.Ledger.Balance() / float64(l.Cfg.Leverage) * l.Cfg.PositionPercentage
	}
	l.positionSize = max(round1(usdtSize/price*float64(l.Cfg.Leverage)*sizeScale), minPositionSize)
}

// PositionSize returns the current base position size in contracts.
func (l *Lifecycle) PositionSize() float64 { return l.positionSize }

// OpenPositions returns a copy of the open positions.
func (l *Lifecycle) OpenPositions() []Position {
	out := make([]Position, len(l.positions))
	copy(out, l.positions)
	return out
}

// PendingOrders returns a copy of the unfilled orders.
func (l *Lifecycle) PendingOrders() []Order {
	out := make([]Order, len(l.pendingOrders))
	copy(out, l.pendingOrders)
	return out
}

func (l *Lifecycle) removeOrder(id string) {
	for i, o := range l.pendingOrders {
		if o.ID == id {
			l.pendingOrders = append(l.pendingOrders[:i], l.pendingOrders[i+1:]...)
			return
		}
	}
}

func (l *Lifecycle) removePosition(id string) {
	for i, p := range l.positions {
		if p.ID == id {
			l.positions = append(l.positions[:i], l.positions[i+1:]...)
			return
		}
	}
}

func (l *Lifecycle) logEvent(ctx context.Context, t time.Time, eventType, description string, data map[string]any) {
	if l.Journal == nil {
		return
	}
	if err := l.Journal.LogEvent(ctx, journal.Event{
		Time:        t,
		Account:     l.Account,
		Type:        eventType,
		Description: description,
		Data:        data,
	}); err != nil {
		log.Printf("Engine | [%s] Failed to journal %s: %v", l.Account, description, err)
	}
}

func intsContain(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

// round1 rounds to one decimal, the contract size granularity.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
