package model

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidModel       = errors.New("invalid calibration model")
	ErrInvalidProbability = errors.New("invalid probability")
	ErrInvalidScope       = errors.New("invalid scope")
)
