// Package weight provides the batched complex scalars carried on diagram edges.
//
// A Vec holds one complex value per element of the parallel (batch) shape, so a
// single diagram can encode a family of tensors evaluated together. Without batch
// axes a Vec has length 1.
package weight

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Vec is a batched complex scalar. All operands of a binary operation must have
// equal length.
type Vec []complex128

// Ones returns a Vec of n ones.
func Ones(n int) Vec {
	v := make(Vec, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// Zeros returns a Vec of n zeros.
func Zeros(n int) Vec {
	return make(Vec, n)
}

// Fill returns a Vec of n copies of c.
func Fill(n int, c complex128) Vec {
	v := make(Vec, n)
	for i := range v {
		v[i] = c
	}
	return v
}

// Clone returns a copy of v.
func (v Vec) Clone() Vec {
	out := make(Vec, len(v))
	copy(out, v)
	return out
}

func mustMatch(op string, a, b Vec) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("weight: %s: length mismatch %d vs %d", op, len(a), len(b)))
	}
}

// Add returns v + o elementwise.
func (v Vec) Add(o Vec) Vec {
	mustMatch("add", v, o)
	out := make(Vec, len(v))
	for i := range v {
		out[i] = v[i] + o[i]
	}
	return out
}

// Mul returns v * o elementwise.
func (v Vec) Mul(o Vec) Vec {
	mustMatch("mul", v, o)
	out := make(Vec, len(v))
	for i := range v {
		out[i] = v[i] * o[i]
	}
	return out
}

// Div returns v / o elementwise. Elements where o is exactly zero yield zero.
func (v Vec) Div(o Vec) Vec {
	mustMatch("div", v, o)
	out := make(Vec, len(v))
	for i := range v {
		if o[i] == 0 {
			continue
		}
		out[i] = v[i] / o[i]
	}
	return out
}

// Scale returns v * c.
func (v Vec) Scale(c complex128) Vec {
	out := make(Vec, len(v))
	for i := range v {
		out[i] = v[i] * c
	}
	return out
}

// Neg returns -v.
func (v Vec) Neg() Vec {
	return v.Scale(-1)
}

// IsZero reports whether every element has magnitude at most eps.
func (v Vec) IsZero(eps float64) bool {
	for _, x := range v {
		if cmplx.Abs(x) > eps {
			return false
		}
	}
	return true
}

// HasZero reports whether any element has magnitude at most eps.
func (v Vec) HasZero(eps float64) bool {
	for _, x := range v {
		if cmplx.Abs(x) <= eps {
			return true
		}
	}
	return false
}

// ApproxEqual reports whether v and o agree elementwise within eps on both the
// real and the imaginary part.
func (v Vec) ApproxEqual(o Vec, eps float64) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if math.Abs(real(v[i])-real(o[i])) > eps || math.Abs(imag(v[i])-imag(o[i])) > eps {
			return false
		}
	}
	return true
}

// Snap returns a copy of v where parts with magnitude at most eps are set to zero.
func (v Vec) Snap(eps float64) Vec {
	out := make(Vec, len(v))
	for i, x := range v {
		re, im := real(x), imag(x)
		if math.Abs(re) <= eps {
			re = 0
		}
		if math.Abs(im) <= eps {
			im = 0
		}
		out[i] = complex(re, im)
	}
	return out
}

// Key returns the integer key of a real number under tolerance eps. Two numbers
// closer than eps usually share a key; numbers farther apart never do.
func Key(x, eps float64) int64 {
	return int64(math.Round(x / eps))
}

// AppendKeys appends the quantized real and imaginary parts of v to dst.
func (v Vec) AppendKeys(dst []int64, eps float64) []int64 {
	for _, x := range v {
		dst = append(dst, Key(real(x), eps), Key(imag(x), eps))
	}
	return dst
}

// String formats v for debugging. A scalar prints as a bare complex number.
func (v Vec) String() string {
	if len(v) == 1 {
		return fmt.Sprint(v[0])
	}
	return fmt.Sprint([]complex128(v))
}
