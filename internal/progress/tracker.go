// Package progress maintains the evolving status document for a running
// job and pushes renders to a reporting sink.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
)

// canonicalOrder is the fixed rendering order for known step keys.
// Unrecognized keys render after these, in first-seen order.
var canonicalOrder = []string{
	executor.StepSetup,
	executor.StepAnalysis,
	executor.StepChanges,
	executor.StepApply,
	executor.StepCommit,
	executor.StepFinalize,
}

// stepTitles maps step keys to display names. Unknown keys display as-is.
var stepTitles = map[string]string{
	executor.StepSetup:    "Setup",
	executor.StepAnalysis: "Analysis",
	executor.StepChanges:  "Generating changes",
	executor.StepApply:    "Applying changes",
	executor.StepCommit:   "Commit",
	executor.StepFinalize: "Finalize",
}

var statusGlyphs = map[executor.StepStatus]string{
	executor.StatusPending:    "⬜",
	executor.StatusInProgress: "🔄",
	executor.StatusCompleted:  "✅",
	executor.StatusFailed:     "❌",
}

// Tracker holds the latest status per step key. Each incoming event
// replaces the previous status for its key (last write wins; out-of-order
// updates for the same key are applied as received).
type Tracker struct {
	mu    sync.Mutex
	steps map[string]executor.ProgressEvent
	extra []string // unrecognized keys, first-seen order

	now func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		steps: make(map[string]executor.ProgressEvent),
		now:   time.Now,
	}
}

// Apply records one event, replacing any earlier status for its step key.
func (t *Tracker) Apply(ev executor.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, known := stepTitles[ev.Step]; !known {
		if _, seen := t.steps[ev.Step]; !seen {
			t.extra = append(t.extra, ev.Step)
		}
	}
	t.steps[ev.Step] = ev
}

// Render produces the full status document for the current step mapping.
// Renders are deterministic: the same mapping yields the same document,
// byte for byte, apart from the embedded update timestamp.
func (t *Tracker) Render(jobID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "## 🤖 Aider job `%s`\n\n", jobID)

	for _, key := range canonicalOrder {
		ev, ok := t.steps[key]
		if !ok {
			continue
		}
		writeStepLine(&b, stepTitles[key], ev)
	}
	for _, key := range t.extra {
		writeStepLine(&b, key, t.steps[key])
	}

	fmt.Fprintf(&b, "\n_Last updated: %s_\n", t.now().UTC().Format(time.RFC3339))
	return b.String()
}

func writeStepLine(b *strings.Builder, title string, ev executor.ProgressEvent) {
	glyph, ok := statusGlyphs[ev.Status]
	if !ok {
		glyph = "⬜"
	}
	if ev.Message != "" {
		fmt.Fprintf(b, "- %s **%s** — %s\n", glyph, title, ev.Message)
		return
	}
	fmt.Fprintf(b, "- %s **%s**\n", glyph, title)
}
