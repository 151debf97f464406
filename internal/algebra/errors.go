package algebra

import "errors"

// Errors reported by Index.
var (
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidBranchValue = errors.New("invalid branch value")
)
