package coordinator

import (
	"sync"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

// planLog retains the most recent entry and exit plans, newest first, for
// the operator API. Plans are audit records only; nothing executes from here.
type planLog struct {
	mu      sync.Mutex
	cap     int
	entries []domain.EntryPlan
	exits   []domain.ExitPlan
}

func newPlanLog(capacity int) *planLog {
	return &planLog{cap: capacity}
}

func (l *planLog) recordEntry(p domain.EntryPlan) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]domain.EntryPlan{p}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
}

func (l *planLog) recordExit(p domain.ExitPlan) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exits = append([]domain.ExitPlan{p}, l.exits...)
	if len(l.exits) > l.cap {
		l.exits = l.exits[:l.cap]
	}
}

// RecentEntryPlans returns the retained entry plans, newest first.
func (c *Coordinator) RecentEntryPlans() []domain.EntryPlan {
	c.plans.mu.Lock()
	defer c.plans.mu.Unlock()
	out := make([]domain.EntryPlan, len(c.plans.entries))
	copy(out, c.plans.entries)
	return out
}

// RecentExitPlans returns the retained exit plans, newest first.
func (c *Coordinator) RecentExitPlans() []domain.ExitPlan {
	c.plans.mu.Lock()
	defer c.plans.mu.Unlock()
	out := make([]domain.ExitPlan, len(c.plans.exits))
	copy(out, c.plans.exits)
	return out
}
