package serialization

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bellSnapshot describes (|00> + |11>)/sqrt2 as a 2x2 diagram.
func bellSnapshot() *Snapshot {
	return &Snapshot{
		Header: Header{
			Epsilon:     1e-10,
			Coordinator: "trivial",
			DataShape:   []int{2, 2},
			IndexOrder:  []int{0, 1},
			Width:       1,
			Root:        2,
			NodeCount:   3,
			Metadata:    map[string]string{"name": "bell"},
		},
		Weight: []complex128{0.7071067811865476},
		Nodes: []NodeRecord{
			{Depth: 1, Successors: []int32{TerminalRef, TerminalRef}, Weights: [][]complex128{{1}, {0}}},
			{Depth: 1, Successors: []int32{TerminalRef, TerminalRef}, Weights: [][]complex128{{0}, {1}}},
			{Depth: 0, Successors: []int32{0, 1}, Weights: [][]complex128{{1}, {1}}},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	in := bellSnapshot()
	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(data[:4]))

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in.Weight, out.Weight)
	assert.Equal(t, in.Nodes, out.Nodes)
	assert.Equal(t, in.Header.DataShape, out.Header.DataShape)
	assert.Equal(t, in.Header.IndexOrder, out.Header.IndexOrder)
	assert.Equal(t, in.Header.Root, out.Header.Root)
	assert.Equal(t, "bell", out.Header.Metadata["name"])
	assert.Equal(t, FormatVersion, out.Header.FormatVersion)
	assert.False(t, out.Header.CreatedAt.IsZero())
}

func TestScalarSnapshot(t *testing.T) {
	in := &Snapshot{
		Header: Header{Coordinator: "global", ParallelShape: []int{2}, Width: 2, Root: TerminalRef},
		Weight: []complex128{2 - 1i, 0.5i},
	}
	data, err := Marshal(in)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in.Weight, out.Weight)
	assert.Empty(t, out.Nodes)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bell.tdd")
	require.NoError(t, WriteFile(path, bellSnapshot()))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, out.Nodes, 3)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.tdd"))
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	good, err := Marshal(bellSnapshot())
	require.NoError(t, err)

	t.Run("magic", func(t *testing.T) {
		data := bytes.Clone(good)
		copy(data, "BORN")
		_, err := Unmarshal(data)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		data := bytes.Clone(good)
		binary.LittleEndian.PutUint32(data[4:8], 9)
		_, err := Unmarshal(data)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("checksum", func(t *testing.T) {
		data := bytes.Clone(good)
		data[len(data)-1] ^= 0xff
		_, err := Unmarshal(data)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Unmarshal(good[:len(good)-8])
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("skip checksum", func(t *testing.T) {
		data := bytes.Clone(good)
		data[len(data)-1] ^= 0xff
		_, err := DecodeWithOptions(bytes.NewReader(data), ReaderOptions{SkipChecksumValidation: true})
		assert.NoError(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"index order", func(s *Snapshot) { s.Header.IndexOrder = []int{0, 0} }},
		{"width", func(s *Snapshot) { s.Header.ParallelShape = []int{2} }},
		{"root", func(s *Snapshot) { s.Header.Root = 3 }},
		{"forward reference", func(s *Snapshot) { s.Nodes[0].Successors[0] = 1 }},
		{"depth", func(s *Snapshot) { s.Nodes[2].Depth = 1 }},
		{"arity", func(s *Snapshot) {
			s.Nodes[0].Successors = append(s.Nodes[0].Successors, TerminalRef)
			s.Nodes[0].Weights = append(s.Nodes[0].Weights, []complex128{1})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := bellSnapshot()
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrCorrupt)
			_, err := Marshal(s)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
