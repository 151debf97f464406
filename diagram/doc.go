// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package diagram provides the public API of the tensor decision diagram engine.
//
// # Overview
//
// A diagram stores a complex tensor as a reduced, weighted DAG in which every
// node branches on one axis and equal subtensors are shared. Identity-like and
// other structured tensors compress to a handful of nodes. The package offers:
//   - Construction from dense arrays (with optional batch axes)
//   - Elementwise sum, fixed-value indexing and axis permutation
//   - Contraction: trace and tensordot
//   - Dense materialization in the caller's axis order
//   - Snapshot export and import
//
// # Basic Usage
//
//	import "github.com/born-ml/tdd/diagram"
//
//	func main() {
//	    engine := diagram.MustEngine(diagram.DefaultConfig())
//
//	    a, _ := diagram.FromReal(diagram.Shape{2, 2}, []float64{1, 0, 0, 1})
//	    x, _ := engine.AsTensor(a)
//	    y, _ := diagram.Tensordot(x, x, []int{1}, []int{0})
//
//	    fmt.Println(y.Materialize())
//	}
//
// # Axis Orders
//
// The storage order of a diagram is chosen at construction, explicitly with
// WithOrder or by the engine's coordinator. It affects size, never values:
// Materialize always returns the logical axis order, and Permute only relabels.
//
// # Memory
//
// Nodes are never freed while diagrams are in use. Engine.Reset compacts the
// unique table to the diagrams passed to it; every other diagram of the engine
// becomes invalid.
package diagram
