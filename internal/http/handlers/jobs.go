package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pixelstudio/internal/domain"
	"pixelstudio/internal/jobs"
	"pixelstudio/internal/middleware"
)

type trackJobRequest struct {
	RequestID string `json:"requestId"`
	Kind      string `json:"kind"`
}

type jobView struct {
	domain.Job
	Label string `json:"label"`
}

type jobListResponse struct {
	Items  []jobView   `json:"items"`
	Counts jobs.Counts `json:"counts"`
}

func (a *App) TrackJob(w http.ResponseWriter, r *http.Request) {
	var req trackJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	kind := domain.JobKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = domain.JobKindImage
	}
	job, err := a.Tracker.Track(req.RequestID, kind)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateJob):
		a.error(w, http.StatusConflict, "conflict", "job already tracked")
		return
	case errors.Is(err, domain.ErrInvalidJob):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	case errors.Is(err, domain.ErrTrackerClosed):
		a.error(w, http.StatusServiceUnavailable, "unavailable", "tracker is shutting down")
		return
	default:
		a.Logger.Error().Err(err).Str("request_id", req.RequestID).Msg("handlers: track job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to track job")
		return
	}
	a.json(w, http.StatusCreated, a.view(r, job))
}

func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, a.Tracker.Registry().List(nil))
}

func (a *App) ListActiveJobs(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, jobs.ActiveJobs(a.Tracker.Registry()))
}

func (a *App) ListCompletedJobs(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, jobs.CompletedJobs(a.Tracker.Registry()))
}

func (a *App) ListFailedJobs(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, jobs.FailedJobs(a.Tracker.Registry()))
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Tracker.Job(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, a.view(r, job))
}

func (a *App) DismissJob(w http.ResponseWriter, r *http.Request) {
	a.Tracker.Dismiss(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type sweepRequest struct {
	MaxAgeMinutes int `json:"maxAgeMinutes"`
}

func (a *App) SweepJobs(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	if req.MaxAgeMinutes < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "maxAgeMinutes must not be negative")
		return
	}
	removed := a.Tracker.Sweep(time.Duration(req.MaxAgeMinutes) * time.Minute)
	a.json(w, http.StatusOK, map[string]int{"removed": removed})
}

func (a *App) list(w http.ResponseWriter, r *http.Request, items []domain.Job) {
	resp := jobListResponse{
		Items:  make([]jobView, 0, len(items)),
		Counts: jobs.Summarize(a.Tracker.Registry()),
	}
	for _, j := range items {
		resp.Items = append(resp.Items, a.view(r, j))
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) view(r *http.Request, j domain.Job) jobView {
	return jobView{Job: j, Label: statusLabel(middleware.LocaleFromContext(r.Context()), j)}
}
