package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pixelstudio/internal/domain"
	"pixelstudio/internal/http/handlers"
	"pixelstudio/internal/jobs"
)

type queuedFetcher struct{}

func (queuedFetcher) FetchStatus(context.Context, string, domain.JobKind) (*domain.StatusPayload, error) {
	return &domain.StatusPayload{Status: "queued"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *jobs.Tracker) {
	t.Helper()
	tracker, err := jobs.NewTracker(jobs.Options{Fetcher: queuedFetcher{}, PollInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewTracker returned error: %v", err)
	}
	srv := httptest.NewServer(NewRouter(handlers.NewApp(tracker, nil), Options{DefaultLocale: "en"}))
	t.Cleanup(func() {
		srv.Close()
		tracker.Close(context.Background())
	})
	return srv, tracker
}

func do(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTrackAndListJobs(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/v1/jobs", `{"requestId":"r1","kind":"video"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		RequestID string `json:"requestId"`
		Kind      string `json:"kind"`
		Status    string `json:"status"`
		Label     string `json:"label"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.RequestID != "r1" || created.Kind != "video" || created.Status != "queued" || created.Label != "Queued" {
		t.Fatalf("created = %+v", created)
	}

	do(t, http.MethodPost, srv.URL+"/v1/jobs", `{"requestId":"r2"}`, nil)

	resp = do(t, http.MethodGet, srv.URL+"/v1/jobs/active", "", map[string]string{"X-Locale": "id"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET active status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Language") != "id" {
		t.Fatalf("Content-Language = %q", resp.Header.Get("Content-Language"))
	}
	var list struct {
		Items []struct {
			RequestID string `json:"requestId"`
			Kind      string `json:"kind"`
			Label     string `json:"label"`
		} `json:"items"`
		Counts jobs.Counts `json:"counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Items) != 2 || list.Items[0].RequestID != "r1" || list.Items[1].Kind != "image" {
		t.Fatalf("items = %+v", list.Items)
	}
	if list.Items[0].Label != "Dalam antrean" {
		t.Fatalf("label = %q", list.Items[0].Label)
	}
	if list.Counts != (jobs.Counts{Total: 2, Active: 2}) {
		t.Fatalf("counts = %+v", list.Counts)
	}
}

func TestTrackJobErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/v1/jobs", `{"requestId":"dup"}`, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed", body: `{`, want: http.StatusBadRequest},
		{name: "missing id", body: `{"kind":"image"}`, want: http.StatusBadRequest},
		{name: "bad kind", body: `{"requestId":"x","kind":"audio"}`, want: http.StatusBadRequest},
		{name: "duplicate", body: `{"requestId":"dup"}`, want: http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/v1/jobs", tc.body, nil)
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestGetAndDismissJob(t *testing.T) {
	srv, tracker := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/v1/jobs", `{"requestId":"r1"}`, nil)

	if resp := do(t, http.MethodGet, srv.URL+"/v1/jobs/r1", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodDelete, srv.URL+"/v1/jobs/r1", "", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	if tracker.Poller().Polling("r1") {
		t.Fatal("dismissed job still polling")
	}
	if resp := do(t, http.MethodGet, srv.URL+"/v1/jobs/r1", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after dismiss = %d, want 404", resp.StatusCode)
	}
}

func TestSweepEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/v1/jobs", `{"requestId":"r1"}`, nil)

	resp := do(t, http.MethodPost, srv.URL+"/v1/jobs/sweep", `{"maxAgeMinutes":30}`, nil)
	var out map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["removed"] != 0 {
		t.Fatalf("removed = %d, want 0 for a fresh job", out["removed"])
	}

	if resp := do(t, http.MethodPost, srv.URL+"/v1/jobs/sweep", `{"maxAgeMinutes":-1}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative maxAge status = %d", resp.StatusCode)
	}
}

func TestHealthAndConnection(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/v1/healthz", "", nil)
	var health map[string]string
	json.NewDecoder(resp.Body).Decode(&health)
	if health["status"] != "ok" || health["connection"] != "connected" {
		t.Fatalf("health = %v", health)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/connection", "", nil)
	var conn struct {
		Status  string `json:"status"`
		Polling int    `json:"polling"`
	}
	json.NewDecoder(resp.Body).Decode(&conn)
	if conn.Status != "connected" || conn.Polling != 0 {
		t.Fatalf("connection = %+v", conn)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, http.MethodPost, srv.URL+"/v1/jobs", `{"requestId":"r1"}`, nil)

	resp := do(t, http.MethodGet, srv.URL+"/v1/stats", "", nil)
	var stats struct {
		Counts         jobs.Counts `json:"counts"`
		Polling        int         `json:"polling"`
		PollIntervalMS int64       `json:"pollIntervalMs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Counts.Total != 1 || stats.Polling != 1 || stats.PollIntervalMS != time.Hour.Milliseconds() {
		t.Fatalf("stats = %+v", stats)
	}
}
