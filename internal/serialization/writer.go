package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// Encode writes s to w in .tdd format.
func Encode(w io.Writer, s *Snapshot) error {
	snap := *s
	snap.Header.FormatVersion = FormatVersion
	snap.Header.NodeCount = len(s.Nodes)
	if snap.Header.CreatedAt.IsZero() {
		snap.Header.CreatedAt = time.Now().UTC()
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	headerJSON, err := json.Marshal(snap.Header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	var data bytes.Buffer
	writeWeight(&data, s.Weight)
	for _, n := range s.Nodes {
		_ = binary.Write(&data, binary.LittleEndian, n.Depth)
		_ = binary.Write(&data, binary.LittleEndian, uint32(len(n.Successors)))
		for k, c := range n.Successors {
			_ = binary.Write(&data, binary.LittleEndian, c)
			writeWeight(&data, n.Weights[k])
		}
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(data.Len()))
	sum := ComputeChecksum(headerJSON, data.Bytes())
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], sum[:])

	for _, part := range [][]byte{fixed, headerJSON, data.Bytes()} {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("failed to write diagram: %w", err)
		}
	}
	return nil
}

// Marshal returns the .tdd encoding of s.
func Marshal(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes s into the file at path.
func WriteFile(path string, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	//nolint:gosec // G306: diagram files are not secret
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func writeWeight(buf *bytes.Buffer, w []complex128) {
	var b [16]byte
	for _, c := range w {
		binary.LittleEndian.PutUint64(b[0:8], math.Float64bits(real(c)))
		binary.LittleEndian.PutUint64(b[8:16], math.Float64bits(imag(c)))
		buf.Write(b[:])
	}
}
