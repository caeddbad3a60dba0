package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if a.Tracker.IsClosed() {
		status = "closing"
	}
	a.json(w, http.StatusOK, map[string]string{
		"status":     status,
		"connection": string(a.Tracker.ConnectionStatus()),
	})
}

func (a *App) Connection(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":  a.Tracker.ConnectionStatus(),
		"polling": len(a.Tracker.Poller().Active()),
	})
}
