package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"pixelstudio/internal/jobs"
)

// App carries the dependencies shared by the HTTP handlers.
type App struct {
	Tracker *jobs.Tracker
	Logger  zerolog.Logger
}

func NewApp(tracker *jobs.Tracker, logger *zerolog.Logger) *App {
	app := &App{Tracker: tracker}
	if logger != nil {
		app.Logger = *logger
	} else {
		app.Logger = zerolog.New(io.Discard)
	}
	return app
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorBody{Error: errCode, Message: message})
}
