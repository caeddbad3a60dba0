package handlers

import (
	"net/http"

	"pixelstudio/internal/jobs"
)

type statsResponse struct {
	Counts         jobs.Counts `json:"counts"`
	Polling        int         `json:"polling"`
	PollIntervalMS int64       `json:"pollIntervalMs"`
	Connection     string      `json:"connection"`
}

// Stats reports tracker totals for the dashboard widget.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, statsResponse{
		Counts:         jobs.Summarize(a.Tracker.Registry()),
		Polling:        len(a.Tracker.Poller().Active()),
		PollIntervalMS: a.Tracker.Poller().Interval().Milliseconds(),
		Connection:     string(a.Tracker.ConnectionStatus()),
	})
}
