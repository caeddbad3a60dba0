package event

import "time"

type EventType string

const (
	// EventAny subscribers receive every published event.
	EventAny EventType = "*"

	// Job lifecycle
	EventJobRegistered EventType = "job.registered"
	EventJobUpdated    EventType = "job.updated"
	EventJobCompleted  EventType = "job.completed"
	EventJobFailed     EventType = "job.failed"
	EventJobRemoved    EventType = "job.removed"

	// Status endpoint reachability
	EventConnectionChanged EventType = "connection.changed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type JobEvent struct {
	RequestID string
	Kind      string
	Status    string
	Progress  int
	Result    string
	Error     string
	Reason    string
}

type ConnectionEvent struct {
	Status string
}
