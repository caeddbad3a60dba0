package jobs

import "pixelstudio/internal/domain"

// ActiveJobs returns queued and processing jobs.
func ActiveJobs(r *Registry) []domain.Job {
	return r.List(func(j domain.Job) bool { return j.Status.Active() })
}

// CompletedJobs returns complete and partial jobs.
func CompletedJobs(r *Registry) []domain.Job {
	return r.List(func(j domain.Job) bool { return j.Status.Succeeded() })
}

// FailedJobs returns failed jobs.
func FailedJobs(r *Registry) []domain.Job {
	return r.List(func(j domain.Job) bool { return j.Status == domain.JobStatusFailed })
}

// Count returns the number of tracked jobs.
func Count(r *Registry) int {
	return r.Len()
}

// ActiveCount returns the number of queued and processing jobs.
func ActiveCount(r *Registry) int {
	return len(ActiveJobs(r))
}

// Counts groups the cardinalities shown on the jobs overview.
type Counts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Summarize computes all counts under a single registry snapshot.
func Summarize(r *Registry) Counts {
	var c Counts
	for _, j := range r.List(nil) {
		c.Total++
		switch {
		case j.Status.Active():
			c.Active++
		case j.Status.Succeeded():
			c.Completed++
		case j.Status == domain.JobStatusFailed:
			c.Failed++
		}
	}
	return c
}
