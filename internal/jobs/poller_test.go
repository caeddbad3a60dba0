package jobs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"pixelstudio/internal/domain"
)

func TestNewPollerRequiresFetcher(t *testing.T) {
	if _, err := NewPoller(PollerOptions{}); err == nil {
		t.Fatal("expected error without a fetcher")
	}
	p, err := NewPoller(PollerOptions{Fetcher: newScriptedFetcher()})
	if err != nil {
		t.Fatalf("NewPoller returned error: %v", err)
	}
	if p.Interval() != DefaultPollInterval {
		t.Fatalf("Interval = %s, want %s", p.Interval(), DefaultPollInterval)
	}
}

func TestPollerPollsImmediatelyAndPassesKind(t *testing.T) {
	fetcher := newScriptedFetcher()
	updates := make(chan domain.StatusPayload, 4)
	p, _ := NewPoller(PollerOptions{
		Fetcher:  fetcher,
		Interval: time.Hour,
		OnUpdate: func(_ string, payload domain.StatusPayload) { updates <- payload },
	})

	if !p.Start("v1", domain.JobKindVideo) {
		t.Fatal("Start reported an existing poll")
	}
	select {
	case got := <-updates:
		if got.Status != "queued" {
			t.Fatalf("payload status = %q", got.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no immediate poll")
	}
	if fetcher.Kind("v1") != domain.JobKindVideo {
		t.Fatalf("kind = %q, want video", fetcher.Kind("v1"))
	}
	if p.Start("v1", domain.JobKindVideo) {
		t.Fatal("second Start must not create another poll")
	}

	p.Stop("v1")
	p.Wait()
	if p.Polling("v1") {
		t.Fatal("v1 still polling after Stop")
	}
	if calls := fetcher.Calls("v1"); calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	p, _ := NewPoller(PollerOptions{Fetcher: newScriptedFetcher(), Interval: time.Hour})
	p.Stop("never-started")
	p.Start("r1", domain.JobKindImage)
	p.Stop("r1")
	p.Stop("r1")
	p.Wait()
	if len(p.Active()) != 0 {
		t.Fatalf("Active = %v, want none", p.Active())
	}
}

func TestPollerNotFoundEndsPolling(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.script("gone", fetchResult{err: domain.ErrJobNotFound})
	gone := make(chan string, 1)
	p, _ := NewPoller(PollerOptions{
		Fetcher:  fetcher,
		Interval: 10 * time.Millisecond,
		OnGone:   func(id string) { gone <- id },
	})

	p.Start("gone", domain.JobKindImage)
	select {
	case id := <-gone:
		if id != "gone" {
			t.Fatalf("OnGone(%q)", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnGone not called")
	}
	p.Wait()
	if p.Polling("gone") {
		t.Fatal("poll handle not released")
	}
	if p.ConnectionStatus() != ConnectionConnected {
		t.Fatalf("connection = %s, want connected", p.ConnectionStatus())
	}
	if calls := fetcher.Calls("gone"); calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPollerTransientErrorKeepsPolling(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.script("r1",
		fetchResult{err: errors.New("connection refused")},
		fetchResult{payload: payload("processing", 20)},
	)
	var mu sync.Mutex
	var transitions []ConnectionStatus
	updates := make(chan domain.StatusPayload, 16)
	p, _ := NewPoller(PollerOptions{
		Fetcher:  fetcher,
		Interval: 10 * time.Millisecond,
		OnUpdate: func(_ string, payload domain.StatusPayload) {
			select {
			case updates <- payload:
			default:
			}
		},
		OnConnection: func(status ConnectionStatus) {
			mu.Lock()
			transitions = append(transitions, status)
			mu.Unlock()
		},
	})

	p.Start("r1", domain.JobKindImage)
	select {
	case got := <-updates:
		if got.Status != "processing" {
			t.Fatalf("payload status = %q", got.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not recover after a transient error")
	}
	p.StopAll()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []ConnectionStatus{ConnectionDisconnected, ConnectionConnected}
	if len(transitions) != len(want) || transitions[0] != want[0] || transitions[1] != want[1] {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
}

func TestPollerStopFromUpdateCallback(t *testing.T) {
	fetcher := newScriptedFetcher()
	var p *Poller
	done := make(chan struct{})
	p, _ = NewPoller(PollerOptions{
		Fetcher:  fetcher,
		Interval: 10 * time.Millisecond,
		OnUpdate: func(id string, _ domain.StatusPayload) {
			p.Stop(id)
			close(done)
		},
	})

	p.Start("r1", domain.JobKindImage)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update callback not invoked")
	}
	p.Wait()
	if calls := fetcher.Calls("r1"); calls != 1 {
		t.Fatalf("calls = %d, want 1 after stopping inside the callback", calls)
	}
}
