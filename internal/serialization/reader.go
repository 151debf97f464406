package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ReaderOptions configures Decode.
type ReaderOptions struct {
	SkipChecksumValidation bool // Skip checksum validation (faster but less safe)
}

// Decode reads one snapshot from r with checksum validation.
func Decode(r io.Reader) (*Snapshot, error) {
	return DecodeWithOptions(r, ReaderOptions{})
}

// DecodeWithOptions reads one snapshot from r.
func DecodeWithOptions(r io.Reader, opts ReaderOptions) (*Snapshot, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if headerSize > maxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	var stored [32]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(dataSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to read node data: %w", err)
	}
	if uint64(len(data)) != dataSize {
		return nil, fmt.Errorf("%w: node data truncated", ErrCorrupt)
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(headerJSON, data), stored); err != nil {
			return nil, err
		}
	}

	s := &Snapshot{}
	if err := json.Unmarshal(headerJSON, &s.Header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if s.Header.Width < 1 || s.Header.NodeCount < 0 {
		return nil, fmt.Errorf("%w: width %d, %d nodes", ErrCorrupt, s.Header.Width, s.Header.NodeCount)
	}

	br := bytes.NewReader(data)
	if s.Weight, err = readWeight(br, s.Header.Width); err != nil {
		return nil, err
	}
	for i := 0; i < s.Header.NodeCount; i++ {
		var n NodeRecord
		var arity uint32
		if err := binary.Read(br, binary.LittleEndian, &n.Depth); err != nil {
			return nil, corrupt(err)
		}
		if err := binary.Read(br, binary.LittleEndian, &arity); err != nil {
			return nil, corrupt(err)
		}
		if int64(arity) > int64(br.Len()) {
			return nil, fmt.Errorf("%w: node %d claims %d branches", ErrCorrupt, i, arity)
		}
		n.Successors = make([]int32, arity)
		n.Weights = make([][]complex128, arity)
		for k := range n.Successors {
			if err := binary.Read(br, binary.LittleEndian, &n.Successors[k]); err != nil {
				return nil, corrupt(err)
			}
			if n.Weights[k], err = readWeight(br, s.Header.Width); err != nil {
				return nil, err
			}
		}
		s.Nodes = append(s.Nodes, n)
	}
	if br.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, br.Len())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Unmarshal decodes a snapshot from data.
func Unmarshal(data []byte) (*Snapshot, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for diagram loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func readWeight(r *bytes.Reader, width int) ([]complex128, error) {
	if r.Len() < 16*width {
		return nil, fmt.Errorf("%w: weight truncated", ErrCorrupt)
	}
	var b [16]byte
	out := make([]complex128, width)
	for i := range out {
		_, _ = r.Read(b[:])
		re := math.Float64frombits(binary.LittleEndian.Uint64(b[0:8]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(b[8:16]))
		out[i] = complex(re, im)
	}
	return out, nil
}

func corrupt(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: node data truncated", ErrCorrupt)
	}
	return err
}
