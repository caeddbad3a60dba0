package domain

import (
	"strings"
	"time"
)

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImage JobKind = "image"
	JobKindVideo JobKind = "video"
)

// Valid reports whether the kind is one the status endpoint understands.
func (k JobKind) Valid() bool {
	return k == JobKindImage || k == JobKindVideo
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
	JobStatusPartial    JobStatus = "partial"
)

// DefaultFailureDetail is recorded when a job fails without any detail from the service.
const DefaultFailureDetail = "generation failed"

// ParseJobStatus normalizes a status string reported by the status endpoint.
// Unknown values map to an empty status.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(strings.ToLower(strings.TrimSpace(s))) {
	case JobStatusQueued, "pending":
		return JobStatusQueued
	case JobStatusProcessing, "running":
		return JobStatusProcessing
	case JobStatusComplete, "completed", "succeeded":
		return JobStatusComplete
	case JobStatusFailed, "error":
		return JobStatusFailed
	case JobStatusPartial:
		return JobStatusPartial
	default:
		return ""
	}
}

// Terminal reports whether polling must stop for the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// Active reports whether the job is still waiting on the generation service.
func (s JobStatus) Active() bool {
	return s == JobStatusQueued || s == JobStatusProcessing
}

// Succeeded reports whether the job produced a result, fully or partially.
func (s JobStatus) Succeeded() bool {
	return s == JobStatusComplete || s == JobStatusPartial
}

func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusPartial:
		return 2
	case JobStatusComplete, JobStatusFailed:
		return 3
	default:
		return -1
	}
}

// ComparisonMetadata tracks multi-model comparison runs.
type ComparisonMetadata struct {
	Models          []string          `json:"models,omitempty"`
	ModelStatuses   map[string]string `json:"modelStatuses,omitempty"`
	TotalModels     int               `json:"totalModels"`
	CompletedModels int               `json:"completedModels"`
}

func (c *ComparisonMetadata) clone() *ComparisonMetadata {
	if c == nil {
		return nil
	}
	out := &ComparisonMetadata{
		TotalModels:     c.TotalModels,
		CompletedModels: c.CompletedModels,
	}
	if c.Models != nil {
		out.Models = append([]string(nil), c.Models...)
	}
	if c.ModelStatuses != nil {
		out.ModelStatuses = make(map[string]string, len(c.ModelStatuses))
		for k, v := range c.ModelStatuses {
			out.ModelStatuses[k] = v
		}
	}
	return out
}

// Job is one tracked generation request and its latest known status.
type Job struct {
	RequestID       string              `json:"requestId"`
	Kind            JobKind             `json:"kind"`
	Status          JobStatus           `json:"status"`
	Progress        int                 `json:"progress"`
	Message         string              `json:"message,omitempty"`
	ResultReference string              `json:"resultReference,omitempty"`
	ErrorDetail     string              `json:"errorDetail,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Comparison      *ComparisonMetadata `json:"comparisonMetadata,omitempty"`
}

// Clone returns a deep copy safe to hand out of a lock.
func (j Job) Clone() Job {
	j.Comparison = j.Comparison.clone()
	return j
}

// JobUpdate is a shallow partial update. Nil fields are left untouched.
type JobUpdate struct {
	Status          *JobStatus
	Progress        *int
	Message         *string
	ResultReference *string
	ErrorDetail     *string
	Comparison      *ComparisonMetadata
}

// Apply merges the update into the job and re-establishes the record invariants:
// the status never moves backwards, a result reference only exists for
// complete/partial jobs and a failed job always carries an error detail.
func (j *Job) Apply(u JobUpdate, now time.Time) {
	if u.Status != nil && *u.Status != "" && !j.Status.Terminal() {
		if u.Status.rank() >= j.Status.rank() {
			j.Status = *u.Status
		}
	}
	if u.Progress != nil {
		j.Progress = clampProgress(*u.Progress)
	}
	if u.Message != nil {
		j.Message = *u.Message
	}
	if u.ResultReference != nil {
		j.ResultReference = *u.ResultReference
	}
	if u.ErrorDetail != nil {
		j.ErrorDetail = *u.ErrorDetail
	}
	if u.Comparison != nil {
		j.Comparison = u.Comparison.clone()
	}
	j.normalize()
	j.UpdatedAt = now
}

func (j *Job) normalize() {
	if j.Status == "" {
		j.Status = JobStatusQueued
	}
	j.Progress = clampProgress(j.Progress)
	if !j.Status.Succeeded() {
		j.ResultReference = ""
	}
	if j.Status != JobStatusFailed {
		j.ErrorDetail = ""
		return
	}
	if strings.TrimSpace(j.ErrorDetail) == "" {
		if msg := strings.TrimSpace(j.Message); msg != "" {
			j.ErrorDetail = msg
		} else {
			j.ErrorDetail = DefaultFailureDetail
		}
	}
}

// Normalize enforces the record invariants on a job built outside of Apply.
func (j *Job) Normalize() {
	j.normalize()
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// StatusPayload is the body returned by the status endpoint.
type StatusPayload struct {
	Status          string            `json:"status"`
	Progress        *int              `json:"progress,omitempty"`
	Message         *string           `json:"message,omitempty"`
	SetID           string            `json:"setId,omitempty"`
	Error           string            `json:"error,omitempty"`
	ComparisonMode  bool              `json:"comparisonMode,omitempty"`
	Models          []string          `json:"models,omitempty"`
	ModelStatuses   map[string]string `json:"modelStatuses,omitempty"`
	TotalModels     int               `json:"totalModels,omitempty"`
	CompletedModels int               `json:"completedModels,omitempty"`
}

// Update converts the payload into a partial job update.
func (p StatusPayload) Update() JobUpdate {
	var u JobUpdate
	if status := ParseJobStatus(p.Status); status != "" {
		u.Status = &status
	}
	if p.Progress != nil {
		progress := *p.Progress
		u.Progress = &progress
	}
	if p.Message != nil {
		msg := *p.Message
		u.Message = &msg
	}
	if p.SetID != "" {
		ref := p.SetID
		u.ResultReference = &ref
	}
	if p.Error != "" {
		detail := p.Error
		u.ErrorDetail = &detail
	}
	if p.ComparisonMode || len(p.Models) > 0 {
		u.Comparison = &ComparisonMetadata{
			Models:          p.Models,
			ModelStatuses:   p.ModelStatuses,
			TotalModels:     p.TotalModels,
			CompletedModels: p.CompletedModels,
		}
		if u.Comparison.TotalModels == 0 {
			u.Comparison.TotalModels = len(p.Models)
		}
	}
	return u
}

// JobEntry is the ordered (requestId, record) pair used for persistence.
type JobEntry struct {
	RequestID string
	Job       Job
}
