package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrJobNotFound   = errors.New("job not found")
	ErrDuplicateJob  = errors.New("job already tracked")
	ErrInvalidJob    = errors.New("invalid job")
	ErrTrackerClosed = errors.New("tracker closed")
)
