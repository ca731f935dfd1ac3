package calibration

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrEmptyDataset           = errors.New("cannot fit on an empty dataset")
	ErrInvalidHyperparameters = errors.New("invalid hyperparameters")
)
