package tensor

import (
	"math"
)

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// AddScaled computes dst += alpha*src.
func AddScaled(dst []float32, alpha float32, src []float32) {
	for i := range dst {
		dst[i] += alpha * src[i]
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Zero clears x.
func Zero(x []float32) {
	for i := range x {
		x[i] = 0
	}
}

// IsZero reports whether every element of x is exactly zero.
func IsZero(x []float32) bool {
	for _, v := range x {
		if v != 0 {
			return false
		}
	}
	return true
}

// Concat writes a followed by b into dst and returns dst[:len(a)+len(b)].
func Concat(dst, a, b []float32) []float32 {
	n := len(a) + len(b)
	if len(dst) < n {
		panic("concat dst too small")
	}
	copy(dst, a)
	copy(dst[len(a):], b)
	return dst[:n]
}

// Softmax applies the softmax function to x.
func Softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxv {
			maxv = x[i]
		}
	}
	var sum float64
	for i := range x {
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}

// MaskedSoftmax normalises x over the positions where valid is true.  Masked
// positions are set to exactly zero, so no probability mass leaks through
// them.  If no position is valid every entry becomes zero (the weights sum to
// zero rather than NaN).
func MaskedSoftmax(x []float32, valid []bool) {
	if len(valid) != len(x) {
		panic("masked softmax length mismatch")
	}
	maxv := float32(math.Inf(-1))
	found := false
	for i, ok := range valid {
		if ok && (!found || x[i] > maxv) {
			maxv = x[i]
			found = true
		}
	}
	if !found {
		Zero(x)
		return
	}
	var sum float64
	for i, ok := range valid {
		if !ok {
			x[i] = 0
			continue
		}
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}

// Sigmoid computes the logistic sigmoid activation.
func Sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}

// Tanh computes the hyperbolic tangent in float64 precision.
func Tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}
