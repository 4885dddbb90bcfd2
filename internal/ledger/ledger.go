// Package ledger tracks the virtual balance of one paper account.
// It is mutated only by the position lifecycle: fees on fills, full
// settlement on closes.
package ledger

import "time"

type CloseReason string

const (
	CloseTakeProfit CloseReason = "tp"
	CloseStopLoss   CloseReason = "sl"
)

// TradeRecord is one completed round trip. Append-only.
type TradeRecord struct {
	Timestamp  time.Time   `json:"timestamp"`
	TradeID    string      `json:"trade_id"`
	Direction  string      `json:"direction"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	Size       float64     `json:"size"`
	PnL        float64     `json:"pnl"`
	Reason     CloseReason `json:"reason"`
}

// Ledger is a paper account balance with drawdown and win/loss
// accounting.
type Ledger struct {
	balance         float64
	startingBalance float64
	peakBalance     float64
	maxDrawdown     float64
	wins            int
	losses          int
	history         []TradeRecord
}

func New(startingBalance float64) *Ledger {
	return &Ledger{
		balance:         startingBalance,
		startingBalance: startingBalance,
		peakBalance:     startingBalance,
	}
}

// ApplyFee debits an order fee from the balance. Fees on entry are not
// part of any trade record; exit fees are folded into the settled P&L.
func (l *Ledger) ApplyFee(fee float64) {
	l.balance -= fee
}

// Settle applies a completed trade: credits the net P&L, refreshes peak
// and drawdown, updates the win/loss counters and appends the record.
// A trade with zero or negative P&L counts as a loss.
func (l *Ledger) Settle(t TradeRecord) {
	l.balance += t.PnL
	if t.PnL > 0 {
		l.wins++
	} else {
		l.losses++
	}
	if l.balance > l.peakBalance {
		l.peakBalance = l.balance
	}
	if dd := l.peakBalance - l.balance; dd > l.maxDrawdown {
		l.maxDrawdown = dd
	}
	l.history = append(l.history, t)
}

func (l *Ledger) Balance() float64         { return l.balance }
func (l *Ledger) StartingBalance() float64 { return l.startingBalance }
func (l *Ledger) PeakBalance() float64     { return l.peakBalance }
func (l *Ledger) MaxDrawdown() float64     { return l.maxDrawdown }
func (l *Ledger) Wins() int                { return l.wins }
func (l *Ledger) Losses() int              { return l.losses }
func (l *Ledger) Trades() int              { return len(l.history) }

// History returns a copy of the trade history.
func (l *Ledger) History() []TradeRecord {
	out := make([]TradeRecord, len(l.history))
	copy(out, l.history)
	return out
}

// Snapshot is a point-in-time view of the account for reporting.
type Snapshot struct {
	StartingBalance float64
	Balance         float64
	PeakBalance     float64
	MaxDrawdown     float64
	Trades          int
	Wins            int
	Losses          int
}

func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		StartingBalance: l.startingBalance,
		Balance:         l.balance,
		PeakBalance:     l.peakBalance,
		MaxDrawdown:     l.maxDrawdown,
		Trades:          len(l.history),
		Wins:            l.wins,
		Losses:          l.losses,
	}
}

// PnL is the account's total realized profit.
func (s Snapshot) PnL() float64 { return s.Balance - s.StartingBalance }

// PnLPct is the total realized profit as a percentage of the starting
// balance.
func (s Snapshot) PnLPct() float64 {
	if s.StartingBalance == 0 {
		return 0
	}
	return s.PnL() / s.StartingBalance * 100
}

// WinRate is the percentage of settled trades with positive P&L.
func (s Snapshot) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades) * 100
}
