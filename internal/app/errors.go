package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrBelowThreshold  = errors.New("personal dataset below min_samples")
	ErrSubjectRequired = errors.New("subject id required")
	ErrNoScope         = errors.New("no training scope selected")
	ErrInvalidWindow   = errors.New("invalid time window")
	ErrInvalidRequest  = errors.New("invalid request")
)
