package evaluation

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	// ErrEmptyDataset marks a metric that is undefined because no samples
	// were seen. It is never reported as zero.
	ErrEmptyDataset = errors.New("metric undefined for an empty dataset")
	ErrInvalidBins  = errors.New("bin count must be >= 1")
)
