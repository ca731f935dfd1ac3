package dataset

import (
	"errors"
)

// Reasons a record is dropped. They are counted, never returned from Load.
var (
	ErrNoProbability = errors.New("record has no usable raw probability")
	ErrNoLabel       = errors.New("record has no resolvable label")
)
