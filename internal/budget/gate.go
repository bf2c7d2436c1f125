package budget

import (
	"fmt"

	"github.com/nimishchaudhari/aider-resolver/internal/instruction"
)

// Base cost factors by instruction priority, in USD.
const (
	baseHigh   = 0.50
	baseMedium = 0.25
	baseLow    = 0.10
)

// Multiplier bounds. Both multipliers are clamped to at least 1.0 so the
// estimate is monotonically non-decreasing in instruction length and file
// count, and the hard bound baseHigh × 2.0 × 1.5 = 1.5 holds for any input.
const (
	maxLengthMultiplier = 2.0
	maxFileMultiplier   = 1.5
)

// Estimate computes the pre-flight cost estimate of an instruction. This
// is an advisory figure: actual cost is computed post-hoc from output
// volume, and the two use deliberately unrelated formulas (conservative
// admission vs. approximate billing).
func Estimate(instr *instruction.Instruction) float64 {
	base := baseMedium
	switch instr.Priority {
	case instruction.PriorityHigh:
		base = baseHigh
	case instruction.PriorityLow:
		base = baseLow
	}

	lengthMult := clamp(float64(len(instr.Text))/1000, 1.0, maxLengthMultiplier)

	fileMult := 1.0
	if n := len(instr.Files); n > 0 {
		fileMult = clamp(float64(n)/10, 1.0, maxFileMultiplier)
	}

	return base * lengthMult * fileMult
}

// Admit decides whether a job may start. It rejects when the estimate
// exceeds the per-operation cap or would push today's spend over the
// daily budget. Both checks are advisory pre-flight gates, not hard
// guarantees against actual spend.
func Admit(estimate, perOperationCap float64, ledger *Ledger) (bool, string) {
	if estimate > perOperationCap {
		return false, fmt.Sprintf("estimated cost $%.2f exceeds per-operation cap $%.2f", estimate, perOperationCap)
	}

	snap := ledger.Snapshot()
	if snap.UsedToday+estimate > snap.DailyBudget {
		return false, fmt.Sprintf("estimated cost $%.2f would exceed daily budget ($%.2f of $%.2f used)",
			estimate, snap.UsedToday, snap.DailyBudget)
	}

	return true, ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
