package jobs

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"pixelstudio/internal/domain"
	"pixelstudio/internal/event"
)

// Stopper cancels polling for a job.
type Stopper interface {
	Stop(requestID string)
}

// Reducer applies status payloads to the registry and stops polling once a
// job reaches a terminal state.
type Reducer struct {
	registry *Registry
	stopper  Stopper
	bus      event.Bus
	logger   *zerolog.Logger
}

// NewReducer wires a reducer. bus and logger may be nil.
func NewReducer(registry *Registry, stopper Stopper, bus event.Bus, logger *zerolog.Logger) *Reducer {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Reducer{registry: registry, stopper: stopper, bus: bus, logger: logger}
}

// Apply merges payload into the record for requestID. Absent records and
// records that are already terminal are left alone; the second return value
// reports whether a merge happened.
func (r *Reducer) Apply(ctx context.Context, requestID string, payload domain.StatusPayload) (domain.Job, bool) {
	current, ok := r.registry.Get(requestID)
	if !ok {
		r.stopper.Stop(requestID)
		return domain.Job{}, false
	}
	if current.Status.Terminal() {
		r.stopper.Stop(requestID)
		return current, false
	}

	merged, ok := r.registry.Merge(requestID, payload.Update())
	if !ok {
		r.stopper.Stop(requestID)
		return domain.Job{}, false
	}
	if !merged.Status.Terminal() {
		return merged, true
	}

	r.stopper.Stop(requestID)
	evt := event.EventJobCompleted
	logEvt := r.logger.Info()
	if merged.Status == domain.JobStatusFailed {
		evt = event.EventJobFailed
		logEvt = r.logger.Warn().Str("error", merged.ErrorDetail)
	}
	logEvt.Str("request_id", requestID).
		Str("status", string(merged.Status)).
		Str("result", merged.ResultReference).
		Msg("reducer: job finished")
	if r.bus != nil {
		r.bus.Publish(ctx, event.Event{Type: evt, Payload: jobEvent(merged, "")})
	}
	return merged, true
}

func jobEvent(j domain.Job, reason string) event.JobEvent {
	return event.JobEvent{
		RequestID: j.RequestID,
		Kind:      string(j.Kind),
		Status:    string(j.Status),
		Progress:  j.Progress,
		Result:    j.ResultReference,
		Error:     j.ErrorDetail,
		Reason:    reason,
	}
}
