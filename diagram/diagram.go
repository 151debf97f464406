// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package diagram

import (
	"github.com/born-ml/tdd/internal/config"
	"github.com/born-ml/tdd/internal/dense"
	"github.com/born-ml/tdd/internal/node"
	"github.com/born-ml/tdd/internal/order"
	"github.com/born-ml/tdd/internal/serialization"
	"github.com/born-ml/tdd/internal/tdd"
)

// Type aliases for public API

// Engine owns a unique table, its caches and the active order coordinator.
type Engine = tdd.Engine

// TDD is an immutable handle to a canonical diagram.
type TDD = tdd.TDD

// Fix pins a logical axis to a value for TDD.Index.
type Fix = tdd.Fix

// Stats describes the engine state.
type Stats = tdd.Stats

// Option configures an Engine.
type Option = tdd.Option

// TensorOption configures Engine.AsTensor.
type TensorOption = tdd.TensorOption

// TensordotOption configures Tensordot.
type TensordotOption = tdd.TensordotOption

// Config holds the engine settings.
type Config = config.Config

// Shape represents the dimensions of a dense array.
type Shape = dense.Shape

// Array is a dense row-major complex array.
type Array = dense.Array

// Node is a read-only view of a diagram node, for renderers.
type Node = node.Node

// NodeID identifies a node within one engine generation.
type NodeID = node.ID

// Terminal is the id of the shared terminal node.
const Terminal = node.Terminal

// OrderInfo is the coordinator-owned order information of a diagram.
type OrderInfo = order.Info

// Snapshot is a self-contained copy of one diagram.
type Snapshot = serialization.Snapshot

// Errors.
var (
	ErrShapeMismatch      = tdd.ErrShapeMismatch
	ErrShapeOrderMismatch = tdd.ErrShapeOrderMismatch
	ErrIndexOutOfRange    = tdd.ErrIndexOutOfRange
	ErrInvalidBranchValue = tdd.ErrInvalidBranchValue
	ErrOrderIncompatible  = tdd.ErrOrderIncompatible
)

// Engine construction

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewEngine creates an engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	return tdd.NewEngine(cfg, opts...)
}

// MustEngine is NewEngine that panics on an invalid config.
func MustEngine(cfg Config, opts ...Option) *Engine {
	return tdd.MustEngine(cfg, opts...)
}

// Options

var (
	// WithLogger sets the engine logger.
	WithLogger = tdd.WithLogger
	// WithRegisterer registers the engine metrics with a Prometheus registerer.
	WithRegisterer = tdd.WithRegisterer
	// WithBatch marks leading input axes as batch axes.
	WithBatch = tdd.WithBatch
	// WithOrder sets the construction order (depth -> logical axis).
	WithOrder = tdd.WithOrder
	// WithLabels seeds the coordinator with per-axis labels.
	WithLabels = tdd.WithLabels
	// WithRearrangement overrides the tensordot interleaving.
	WithRearrangement = tdd.WithRearrangement
)

// Operations

// Sum returns a + b.
func Sum(a, b *TDD) (*TDD, error) {
	return tdd.Sum(a, b)
}

// Equal reports whether a and b denote the same tensor in the same order.
func Equal(a, b *TDD) bool {
	return tdd.Equal(a, b)
}

// Tensordot contracts axesA of a with axesB of b.
//
// Example:
//
//	c, err := diagram.Tensordot(a, b, []int{1}, []int{0}) // matrix product
func Tensordot(a, b *TDD, axesA, axesB []int, opts ...TensordotOption) (*TDD, error) {
	return tdd.Tensordot(a, b, axesA, axesB, opts...)
}

// TensordotN contracts the last n axes of a with the first n axes of b.
func TensordotN(a, b *TDD, n int, opts ...TensordotOption) (*TDD, error) {
	return tdd.TensordotN(a, b, n, opts...)
}

// Dense arrays

// NewArray wraps data as an array of the given shape.
func NewArray(shape Shape, data []complex128) (*Array, error) {
	return dense.New(shape, data)
}

// FromReal builds an array from real values.
func FromReal(shape Shape, values []float64) (*Array, error) {
	return dense.FromReal(shape, values)
}

// LoadArray reads a JSON tensor file and returns the array and its batch rank.
func LoadArray(path string) (*Array, int, error) {
	return dense.LoadJSON(path)
}

// Snapshots

// WriteSnapshot encodes s into the file at path.
func WriteSnapshot(path string, s *Snapshot) error {
	return serialization.WriteFile(path, s)
}

// ReadSnapshot decodes the snapshot stored at path.
func ReadSnapshot(path string) (*Snapshot, error) {
	return serialization.ReadFile(path)
}
