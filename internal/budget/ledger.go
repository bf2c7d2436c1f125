// Package budget gates job admission against spending limits and keeps
// the running cost ledger for the current accounting day.
package budget

import (
	"log/slog"
	"sync"

	"github.com/nimishchaudhari/aider-resolver/internal/logging"
)

// Ledger is the running record of budget consumed today. It is owned by
// the caller and passed explicitly through the gate and the resolver;
// all mutation goes through its methods under a single mutex.
type Ledger struct {
	mu                sync.Mutex
	dailyBudget       float64
	usedToday         float64
	lastOperationCost float64
	canProceed        bool

	log *slog.Logger
}

// Snapshot is a point-in-time copy of the ledger state.
type Snapshot struct {
	DailyBudget       float64
	UsedToday         float64
	LastOperationCost float64
	CanProceed        bool
}

// NewLedger creates a ledger for the given daily budget.
func NewLedger(dailyBudget float64) *Ledger {
	return &Ledger{
		dailyBudget: dailyBudget,
		canProceed:  dailyBudget > 0,
		log:         logging.WithComponent("budget"),
	}
}

// Seed records spend that happened earlier in the accounting day, e.g.
// loaded from the usage store when a new process starts.
func (l *Ledger) Seed(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usedToday += amount
	l.canProceed = l.usedToday < l.dailyBudget
}

// Reconcile unconditionally adds the actual cost of a completed job and
// recomputes the proceed flag. Must run exactly once per completed job,
// successful or not; cost is charged even on failure when the subprocess
// ran.
func (l *Ledger) Reconcile(actualCost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.usedToday += actualCost
	l.lastOperationCost = actualCost
	l.canProceed = l.usedToday < l.dailyBudget

	l.log.Info("Ledger reconciled",
		slog.Float64("cost", actualCost),
		slog.Float64("used_today", l.usedToday),
		slog.Float64("daily_budget", l.dailyBudget),
		slog.Bool("can_proceed", l.canProceed),
	)
}

// ResetDaily zeroes the day's consumption. Called by the serve-mode cron
// at the start of each accounting day.
func (l *Ledger) ResetDaily() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usedToday = 0
	l.lastOperationCost = 0
	l.canProceed = l.dailyBudget > 0

	l.log.Info("Daily ledger reset", slog.Float64("daily_budget", l.dailyBudget))
}

// Snapshot returns a copy of the current ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		DailyBudget:       l.dailyBudget,
		UsedToday:         l.usedToday,
		LastOperationCost: l.lastOperationCost,
		CanProceed:        l.canProceed,
	}
}
