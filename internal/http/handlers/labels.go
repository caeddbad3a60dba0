package handlers

import (
	"fmt"

	"pixelstudio/internal/domain"
)

var statusLabels = map[string]map[domain.JobStatus]string{
	"en": {
		domain.JobStatusQueued:     "Queued",
		domain.JobStatusProcessing: "Generating",
		domain.JobStatusComplete:   "Ready",
		domain.JobStatusPartial:    "Partially ready",
		domain.JobStatusFailed:     "Failed",
	},
	"id": {
		domain.JobStatusQueued:     "Dalam antrean",
		domain.JobStatusProcessing: "Sedang dibuat",
		domain.JobStatusComplete:   "Selesai",
		domain.JobStatusPartial:    "Sebagian selesai",
		domain.JobStatusFailed:     "Gagal",
	},
}

// statusLabel renders a short status caption for the UI in locale.
func statusLabel(locale string, j domain.Job) string {
	labels, ok := statusLabels[locale]
	if !ok {
		labels = statusLabels["en"]
	}
	label := labels[j.Status]
	if label == "" {
		label = string(j.Status)
	}
	if j.Status == domain.JobStatusProcessing && j.Progress > 0 {
		return fmt.Sprintf("%s (%d%%)", label, j.Progress)
	}
	return label
}
