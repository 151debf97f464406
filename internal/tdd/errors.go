package tdd

import (
	"errors"

	"github.com/born-ml/tdd/internal/algebra"
	"github.com/born-ml/tdd/internal/order"
)

// Facade errors. Every failed operation leaves the unique table and caches
// exactly as they were.
var (
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrShapeOrderMismatch = errors.New("order does not match shape")
	ErrIndexOutOfRange    = algebra.ErrIndexOutOfRange
	ErrInvalidBranchValue = algebra.ErrInvalidBranchValue
	ErrOrderIncompatible  = order.ErrOrderIncompatible
	ErrForeignEngine      = errors.New("diagrams belong to different engines")
)
