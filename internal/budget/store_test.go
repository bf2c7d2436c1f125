package budget

import (
	"testing"
	"time"
)

func TestStoreRoundtrip(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	now := time.Now().Truncate(time.Second)
	records := []JobRecord{
		{JobID: "job-1", ModelUsed: "gpt-4o-mini", Success: true, CostUsed: 0.12, ElapsedSeconds: 30, CreatedAt: now.Add(-2 * time.Hour)},
		{JobID: "job-2", ModelUsed: "gpt-4o", Success: false, CostUsed: 0.40, ElapsedSeconds: 120, CreatedAt: now.Add(-time.Hour)},
		{JobID: "job-3", ModelUsed: "claude-3-5-sonnet", Success: true, CostUsed: 0.55, ElapsedSeconds: 200, CreatedAt: now},
	}
	for _, rec := range records {
		if err := store.RecordJob(rec); err != nil {
			t.Fatalf("RecordJob(%s): %v", rec.JobID, err)
		}
	}

	recent, err := store.RecentJobs(2)
	if err != nil {
		t.Fatalf("RecentJobs: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentJobs returned %d rows, want 2", len(recent))
	}
	if recent[0].JobID != "job-3" || recent[1].JobID != "job-2" {
		t.Errorf("RecentJobs order = %s, %s; want job-3, job-2", recent[0].JobID, recent[1].JobID)
	}
	if recent[0].Success != true || recent[1].Success != false {
		t.Error("success flags not preserved")
	}
	if recent[0].CostUsed != 0.55 {
		t.Errorf("CostUsed = %f, want 0.55", recent[0].CostUsed)
	}
}

func TestStoreUsedSince(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	now := time.Now().Truncate(time.Second)

	// Empty store sums to zero, not an error.
	total, err := store.UsedSince(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("UsedSince on empty store: %v", err)
	}
	if total != 0 {
		t.Errorf("UsedSince on empty store = %f, want 0", total)
	}

	must := func(rec JobRecord) {
		t.Helper()
		if err := store.RecordJob(rec); err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}
	must(JobRecord{JobID: "old", ModelUsed: "gpt-4o", Success: true, CostUsed: 1.00, CreatedAt: now.Add(-48 * time.Hour)})
	must(JobRecord{JobID: "recent-1", ModelUsed: "gpt-4o", Success: true, CostUsed: 0.30, CreatedAt: now.Add(-time.Hour)})
	must(JobRecord{JobID: "recent-2", ModelUsed: "gpt-4o", Success: false, CostUsed: 0.20, CreatedAt: now})

	total, err = store.UsedSince(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("UsedSince: %v", err)
	}
	if total < 0.5-1e-9 || total > 0.5+1e-9 {
		t.Errorf("UsedSince = %f, want 0.50 (old row excluded)", total)
	}
}
