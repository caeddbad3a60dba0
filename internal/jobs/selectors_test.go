package jobs

import (
	"testing"

	"pixelstudio/internal/domain"
)

func TestSelectorsPartitionByStatus(t *testing.T) {
	r := NewRegistry(nil)
	statuses := map[string]domain.JobStatus{
		"queued":     domain.JobStatusQueued,
		"processing": domain.JobStatusProcessing,
		"partial":    domain.JobStatusPartial,
		"complete":   domain.JobStatusComplete,
		"failed":     domain.JobStatusFailed,
	}
	for _, id := range []string{"queued", "processing", "partial", "complete", "failed"} {
		mustRegister(t, r, id, domain.JobKindImage)
		status := statuses[id]
		r.Merge(id, domain.JobUpdate{Status: &status})
	}

	if got := ids(ActiveJobs(r)); !equalIDs(got, []string{"queued", "processing"}) {
		t.Fatalf("ActiveJobs = %v", got)
	}
	if got := ids(CompletedJobs(r)); !equalIDs(got, []string{"partial", "complete"}) {
		t.Fatalf("CompletedJobs = %v", got)
	}
	if got := ids(FailedJobs(r)); !equalIDs(got, []string{"failed"}) {
		t.Fatalf("FailedJobs = %v", got)
	}
	if Count(r) != 5 {
		t.Fatalf("Count = %d, want 5", Count(r))
	}
	if ActiveCount(r) != 2 {
		t.Fatalf("ActiveCount = %d, want 2", ActiveCount(r))
	}

	want := Counts{Total: 5, Active: 2, Completed: 2, Failed: 1}
	if got := Summarize(r); got != want {
		t.Fatalf("Summarize = %+v, want %+v", got, want)
	}
}

func TestSelectorsOnEmptyRegistry(t *testing.T) {
	r := NewRegistry(nil)
	if len(ActiveJobs(r)) != 0 || len(CompletedJobs(r)) != 0 || len(FailedJobs(r)) != 0 {
		t.Fatal("expected empty views")
	}
	if got := Summarize(r); got != (Counts{}) {
		t.Fatalf("Summarize = %+v, want zero", got)
	}
}

func ids(jobs []domain.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.RequestID)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
