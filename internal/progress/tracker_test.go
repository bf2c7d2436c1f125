package progress

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nimishchaudhari/aider-resolver/internal/executor"
)

func fixedClock(t *Tracker) {
	t.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
}

func TestTrackerCanonicalOrder(t *testing.T) {
	tr := NewTracker()
	fixedClock(tr)

	// Events arrive out of canonical order.
	tr.Apply(executor.ProgressEvent{Step: executor.StepCommit, Status: executor.StatusCompleted, Message: "changes committed"})
	tr.Apply(executor.ProgressEvent{Step: executor.StepSetup, Status: executor.StatusCompleted, Message: "aider started"})
	tr.Apply(executor.ProgressEvent{Step: executor.StepChanges, Status: executor.StatusInProgress, Message: "generating changes"})

	doc := tr.Render("job-1")

	setupIdx := strings.Index(doc, "Setup")
	changesIdx := strings.Index(doc, "Generating changes")
	commitIdx := strings.Index(doc, "Commit")
	if setupIdx == -1 || changesIdx == -1 || commitIdx == -1 {
		t.Fatalf("missing step lines in document:\n%s", doc)
	}
	if !(setupIdx < changesIdx && changesIdx < commitIdx) {
		t.Errorf("steps not in canonical order:\n%s", doc)
	}
}

func TestTrackerLastWriteWins(t *testing.T) {
	tr := NewTracker()
	fixedClock(tr)

	tr.Apply(executor.ProgressEvent{Step: executor.StepChanges, Status: executor.StatusInProgress, Message: "generating changes"})
	tr.Apply(executor.ProgressEvent{Step: executor.StepChanges, Status: executor.StatusFailed, Message: "backend reported an error"})

	doc := tr.Render("job-1")
	if strings.Contains(doc, "generating changes") {
		t.Errorf("stale status survived replacement:\n%s", doc)
	}
	if !strings.Contains(doc, "backend reported an error") {
		t.Errorf("latest status missing:\n%s", doc)
	}
	if strings.Count(doc, "Generating changes") != 1 {
		t.Errorf("step rendered more than once:\n%s", doc)
	}
}

func TestTrackerUnknownKeysFirstSeenOrder(t *testing.T) {
	tr := NewTracker()
	fixedClock(tr)

	tr.Apply(executor.ProgressEvent{Step: "zz-custom", Status: executor.StatusInProgress})
	tr.Apply(executor.ProgressEvent{Step: "aa-custom", Status: executor.StatusInProgress})
	tr.Apply(executor.ProgressEvent{Step: executor.StepFinalize, Status: executor.StatusCompleted})

	doc := tr.Render("job-1")

	finIdx := strings.Index(doc, "Finalize")
	zzIdx := strings.Index(doc, "zz-custom")
	aaIdx := strings.Index(doc, "aa-custom")
	if !(finIdx < zzIdx && zzIdx < aaIdx) {
		t.Errorf("unknown keys must follow canonical steps in first-seen order:\n%s", doc)
	}
}

func TestTrackerRenderIdempotent(t *testing.T) {
	tr := NewTracker()
	fixedClock(tr)

	tr.Apply(executor.ProgressEvent{Step: executor.StepSetup, Status: executor.StatusCompleted, Message: "aider started"})
	tr.Apply(executor.ProgressEvent{Step: executor.StepAnalysis, Status: executor.StatusInProgress, Message: "analyzing repository"})

	first := tr.Render("job-1")
	second := tr.Render("job-1")
	if first != second {
		t.Errorf("repeated render of unchanged mapping differs:\n%q\nvs\n%q", first, second)
	}
}

type recordingSink struct {
	pushes []string
}

func (r *recordingSink) CreateOrUpdateProgressDocument(_ context.Context, _, text string) error {
	r.pushes = append(r.pushes, text)
	return nil
}

func (r *recordingSink) PublishFinalResult(context.Context, string, *executor.Result, string) error {
	return nil
}

func TestPumpDrainsUntilClose(t *testing.T) {
	tr := NewTracker()
	fixedClock(tr)
	sink := &recordingSink{}

	events := make(chan executor.ProgressEvent, 4)
	events <- executor.ProgressEvent{Step: executor.StepSetup, Status: executor.StatusInProgress, Message: "starting aider"}
	events <- executor.ProgressEvent{Step: executor.StepSetup, Status: executor.StatusCompleted, Message: "aider started"}
	events <- executor.ProgressEvent{Step: executor.StepFinalize, Status: executor.StatusCompleted, Message: "execution finished"}
	close(events)

	Pump(context.Background(), "job-1", events, tr, sink)

	if len(sink.pushes) != 3 {
		t.Fatalf("got %d pushes, want one per event", len(sink.pushes))
	}
	last := sink.pushes[2]
	if !strings.Contains(last, "aider started") || !strings.Contains(last, "execution finished") {
		t.Errorf("final push missing accumulated state:\n%s", last)
	}
}
