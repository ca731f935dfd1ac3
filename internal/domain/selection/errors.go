package selection

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrInsufficientData = errors.New("insufficient data to train")
	ErrUnknownMethod    = errors.New("unknown calibration method")
)
