package budget

import (
	"strings"
	"testing"

	"github.com/nimishchaudhari/aider-resolver/internal/instruction"
)

func instrWith(priority instruction.Priority, textLen, files int) *instruction.Instruction {
	fileList := make([]string, files)
	for i := range fileList {
		fileList[i] = "f.go"
	}
	return &instruction.Instruction{
		Text:     strings.Repeat("x", textLen),
		Files:    fileList,
		Priority: priority,
	}
}

func TestEstimatePriorityBase(t *testing.T) {
	tests := []struct {
		priority instruction.Priority
		expected float64
	}{
		{instruction.PriorityHigh, 0.50},
		{instruction.PriorityMedium, 0.25},
		{instruction.PriorityLow, 0.10},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			got := Estimate(instrWith(tt.priority, 10, 0))
			if got != tt.expected {
				t.Errorf("Estimate = %f, want %f (short text, no files)", got, tt.expected)
			}
		})
	}
}

func TestEstimateMonotonicInLength(t *testing.T) {
	prev := 0.0
	for _, length := range []int{0, 100, 500, 1000, 1500, 2000, 5000, 50000} {
		got := Estimate(instrWith(instruction.PriorityMedium, length, 0))
		if got < prev {
			t.Fatalf("estimate decreased: len=%d gave %f < %f", length, got, prev)
		}
		prev = got
	}
}

func TestEstimateMonotonicInFileCount(t *testing.T) {
	prev := 0.0
	for _, files := range []int{0, 1, 5, 10, 12, 15, 100} {
		got := Estimate(instrWith(instruction.PriorityMedium, 200, files))
		if got < prev {
			t.Fatalf("estimate decreased: files=%d gave %f < %f", files, got, prev)
		}
		prev = got
	}
}

func TestEstimateBound(t *testing.T) {
	// Worst case: high priority, huge text, huge file list.
	got := Estimate(instrWith(instruction.PriorityHigh, 1_000_000, 1000))
	if got > 1.5 {
		t.Errorf("Estimate = %f, want <= 1.5 for any input", got)
	}
	if got != 1.5 {
		t.Errorf("Estimate = %f, want exactly 1.5 at full clamp", got)
	}
}

func TestAdmit(t *testing.T) {
	tests := []struct {
		name        string
		estimate    float64
		perOpCap    float64
		dailyBudget float64
		usedToday   float64
		allowed     bool
	}{
		{"within budget", 0.25, 1.0, 10.0, 0, true},
		{"over per-op cap", 1.2, 1.0, 10.0, 0, false},
		{"over daily budget", 0.5, 1.0, 10.0, 9.8, false},
		{"exactly at daily budget", 0.5, 1.0, 10.0, 9.5, true},
		{"daily budget already spent", 0.1, 1.0, 10.0, 10.0, false},
		{"zero budget", 0.1, 1.0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewLedger(tt.dailyBudget)
			ledger.Seed(tt.usedToday)

			allowed, reason := Admit(tt.estimate, tt.perOpCap, ledger)
			if allowed != tt.allowed {
				t.Errorf("Admit = %v (%s), want %v", allowed, reason, tt.allowed)
			}
			if !allowed && reason == "" {
				t.Error("rejection must carry a reason")
			}
		})
	}
}

func TestLedgerReconcile(t *testing.T) {
	ledger := NewLedger(1.0)

	ledger.Reconcile(0.4)
	snap := ledger.Snapshot()
	if snap.UsedToday != 0.4 {
		t.Errorf("UsedToday = %f, want 0.4", snap.UsedToday)
	}
	if snap.LastOperationCost != 0.4 {
		t.Errorf("LastOperationCost = %f, want 0.4", snap.LastOperationCost)
	}
	if !snap.CanProceed {
		t.Error("CanProceed = false, want true under budget")
	}

	// Cost is added unconditionally, even when it overshoots the budget.
	ledger.Reconcile(0.7)
	snap = ledger.Snapshot()
	if snap.UsedToday < 1.1-1e-9 || snap.UsedToday > 1.1+1e-9 {
		t.Errorf("UsedToday = %f, want 1.1", snap.UsedToday)
	}
	if snap.CanProceed {
		t.Error("CanProceed = true, want false over budget")
	}
}

func TestLedgerResetDaily(t *testing.T) {
	ledger := NewLedger(1.0)
	ledger.Reconcile(2.0)

	ledger.ResetDaily()
	snap := ledger.Snapshot()
	if snap.UsedToday != 0 || snap.LastOperationCost != 0 {
		t.Errorf("after reset: used=%f last=%f, want zeros", snap.UsedToday, snap.LastOperationCost)
	}
	if !snap.CanProceed {
		t.Error("CanProceed = false after reset, want true")
	}
}
