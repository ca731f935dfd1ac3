package labelstore

import "errors"

// Sentinel kinds for label store errors.
var (
	ErrStore  = errors.New("label store failure")
	ErrDecode = errors.New("malformed label record")
)
