// Package schedule
package schedule

import "time"

// Gate decides whether an account is allowed to act on liquidations at a
// given moment. The two paper accounts differ only in their gate.
type Gate interface {
	Name() string
	Allows(t time.Time) bool
	// AlwaysOn reports whether the gate never restricts trading. The
	// confirmation logic uses this to decide if the forced-entry
	// fallback applies.
	AlwaysOn() bool
}

// alwaysOn permits trading at any time.
type alwaysOn struct{}

func NewAlwaysOn() Gate { return alwaysOn{} }

func (alwaysOn) Name() string            { return "24/7" }
func (alwaysOn) Allows(_ time.Time) bool { return true }
func (alwaysOn) AlwaysOn() bool          { return true }

// scheduled permits trading only on configured weekdays and hours.
type scheduled struct {
	days  map[time.Weekday]bool
	hours map[int]bool
}

// NewScheduled builds a gate from weekday numbers (0=Sunday, matching
// time.Weekday) and hours of day.
func NewScheduled(days, hours []int) Gate {
	g := scheduled{
		days:  make(map[time.Weekday]bool, len(days)),
		hours: make(map[int]bool, len(hours)),
	}
	for _, d := range days {
		g.days[time.Weekday(d)] = true
	}
	for _, h := range hours {
		g.hours[h] = true
	}
	return g
}

func (g scheduled) Name() string { return "Scheduled" }

func (g scheduled) Allows(t time.Time) bool {
	return g.days[t.Weekday()] && g.hours[t.Hour()]
}

func (g scheduled) AlwaysOn() bool { return false }
