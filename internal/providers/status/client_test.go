package status

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pixelstudio/internal/domain"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Options{BaseURL: "  "}); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("err = %v, want ErrMissingBaseURL", err)
	}
	c, err := NewClient(Options{BaseURL: "http://localhost:3000/api/generate/status/"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.BaseURL() != "http://localhost:3000/api/generate/status" {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}
}

func TestFetchStatusRequestShape(t *testing.T) {
	tests := []struct {
		name      string
		kind      domain.JobKind
		wantPath  string
		wantQuery string
	}{
		{name: "image", kind: domain.JobKindImage, wantPath: "/status/req%201", wantQuery: ""},
		{name: "video", kind: domain.JobKindVideo, wantPath: "/status/req%201", wantQuery: "type=video"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("method = %s, want GET", r.Method)
				}
				if r.URL.EscapedPath() != tc.wantPath {
					t.Errorf("path = %s, want %s", r.URL.EscapedPath(), tc.wantPath)
				}
				if r.URL.RawQuery != tc.wantQuery {
					t.Errorf("query = %q, want %q", r.URL.RawQuery, tc.wantQuery)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status":"processing","progress":45,"message":"rendering"}`))
			}))
			defer srv.Close()

			c, err := NewClient(Options{BaseURL: srv.URL + "/status", HTTPClient: srv.Client()})
			if err != nil {
				t.Fatalf("NewClient returned error: %v", err)
			}
			payload, err := c.FetchStatus(context.Background(), "req 1", tc.kind)
			if err != nil {
				t.Fatalf("FetchStatus returned error: %v", err)
			}
			if payload.Status != "processing" || payload.Progress == nil || *payload.Progress != 45 {
				t.Fatalf("unexpected payload: %+v", payload)
			}
			if payload.Message == nil || *payload.Message != "rendering" {
				t.Fatalf("message = %v", payload.Message)
			}
		})
	}
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		body       string
		wantGone   bool
		wantSubstr string
	}{
		{name: "not found", code: http.StatusNotFound, body: `{"error":"Request not found"}`, wantGone: true},
		{name: "server error json", code: http.StatusBadGateway, body: `{"error":"upstream down"}`, wantSubstr: "status 502: upstream down"},
		{name: "server error text", code: http.StatusInternalServerError, body: "oops", wantSubstr: "status 500: oops"},
		{name: "malformed body", code: http.StatusOK, body: "{not json", wantSubstr: "decode response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, _ := NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
			_, err := c.FetchStatus(context.Background(), "r1", domain.JobKindImage)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, domain.ErrJobNotFound); got != tc.wantGone {
				t.Fatalf("errors.Is(ErrJobNotFound) = %v, want %v (err=%v)", got, tc.wantGone, err)
			}
			if tc.wantSubstr != "" && !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Fatalf("err = %q, want substring %q", err, tc.wantSubstr)
			}
		})
	}
}

func TestFetchStatusRejectsEmptyID(t *testing.T) {
	c, _ := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	if _, err := c.FetchStatus(context.Background(), " ", domain.JobKindImage); err == nil {
		t.Fatal("expected error for empty request id")
	}
}
