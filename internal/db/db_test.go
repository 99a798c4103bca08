package db

import (
	"testing"
	"time"
)

func TestRecordAndLastRun(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	if run, err := d.LastRun(); err != nil || run != nil {
		t.Fatalf("empty table: run=%v err=%v", run, err)
	}

	start := time.Now().Add(-time.Hour)
	id, err := d.RecordRun(IngestRun{
		StartedAt: start, FinishedAt: start.Add(10 * time.Minute),
		Books: "Likutei_Moharan,Sichot_HaRan", Documents: 4200, FailedRefs: 3,
		ResetIndex: true, EmbeddingModel: "text-embedding-3-small",
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id == "" {
		t.Fatal("no run ID assigned")
	}

	// A later run becomes the last one.
	later := time.Now()
	if _, err := d.RecordRun(IngestRun{StartedAt: later, FinishedAt: later, Documents: 10}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	run, err := d.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run == nil || run.Documents != 10 {
		t.Errorf("last run: %+v", run)
	}
}

func TestReindexRequestLifecycle(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer d.Close()

	if _, err := d.RequestReindex("embedding model changed"); err != nil {
		t.Fatalf("RequestReindex: %v", err)
	}
	if _, err := d.RequestReindex("corpus update"); err != nil {
		t.Fatalf("RequestReindex: %v", err)
	}

	n, err := d.PendingReindexCount()
	if err != nil {
		t.Fatalf("PendingReindexCount: %v", err)
	}
	if n != 2 {
		t.Errorf("pending: got %d, want 2", n)
	}

	runID, err := d.RecordRun(IngestRun{StartedAt: time.Now(), FinishedAt: time.Now()})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := d.FulfillReindexRequests(runID); err != nil {
		t.Fatalf("FulfillReindexRequests: %v", err)
	}

	n, err = d.PendingReindexCount()
	if err != nil {
		t.Fatalf("PendingReindexCount: %v", err)
	}
	if n != 0 {
		t.Errorf("pending after fulfillment: got %d, want 0", n)
	}
}
