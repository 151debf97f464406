package dense

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// File is the JSON layout of a tensor file. Imag may be omitted for real data.
type File struct {
	Shape []int     `json:"shape"`
	Batch int       `json:"batch,omitempty"`
	Real  []float64 `json:"real"`
	Imag  []float64 `json:"imag,omitempty"`
}

// ReadJSON decodes a tensor file and returns the array and its batch rank.
func ReadJSON(r io.Reader) (*Array, int, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, 0, fmt.Errorf("failed to decode tensor file: %w", err)
	}
	if f.Imag != nil && len(f.Imag) != len(f.Real) {
		return nil, 0, fmt.Errorf("imag length %d does not match real length %d", len(f.Imag), len(f.Real))
	}
	if f.Batch < 0 || f.Batch > len(f.Shape) {
		return nil, 0, fmt.Errorf("batch rank %d out of range for shape %v", f.Batch, f.Shape)
	}
	data := make([]complex128, len(f.Real))
	for i, re := range f.Real {
		var im float64
		if f.Imag != nil {
			im = f.Imag[i]
		}
		data[i] = complex(re, im)
	}
	a, err := New(Shape(f.Shape), data)
	if err != nil {
		return nil, 0, err
	}
	return a, f.Batch, nil
}

// LoadJSON reads a tensor file from disk.
func LoadJSON(path string) (*Array, int, error) {
	//nolint:gosec // G304: tensor files are user-supplied paths
	fh, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open tensor file: %w", err)
	}
	defer fh.Close()
	return ReadJSON(fh)
}

// WriteJSON encodes a as a tensor file.
func WriteJSON(w io.Writer, a *Array, batch int) error {
	f := File{
		Shape: []int(a.shape.Clone()),
		Batch: batch,
		Real:  make([]float64, len(a.data)),
	}
	hasImag := false
	for _, v := range a.data {
		if imag(v) != 0 {
			hasImag = true
			break
		}
	}
	if hasImag {
		f.Imag = make([]float64, len(a.data))
	}
	for i, v := range a.data {
		f.Real[i] = real(v)
		if hasImag {
			f.Imag[i] = imag(v)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
