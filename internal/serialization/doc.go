// Package serialization provides the .tdd binary format for saving and loading
// decision diagrams.
//
//	Format Structure:
//	  [4 bytes: Magic "TDDX"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [4 bytes: reserved]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [8 bytes: Data Size (uint64 LE)]
//	  [32 bytes: SHA-256 of header and data]
//	  [Header: JSON metadata]
//	  [Data: dangling weight, then node records children first]
//
// A node record is its depth (int32), arity (uint32) and, per branch, the
// successor (int32 record index, -1 for the terminal) followed by the branch
// weight as width pairs of float64 (real, imaginary).
//
// Example usage:
//
//	snap := engine.Export(t)
//	if err := serialization.WriteFile("bell.tdd", snap); err != nil {
//	    log.Fatal(err)
//	}
//	snap, err := serialization.ReadFile("bell.tdd")
package serialization
