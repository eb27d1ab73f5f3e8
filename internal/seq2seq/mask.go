package seq2seq

import (
	"github.com/samcharles93/seqqa/internal/embedding"
	"github.com/samcharles93/seqqa/internal/tensor"
)

// Mask holds one validity flag per position for every batch row.
type Mask [][]bool

// TokenMask marks the non-padding positions of each row of ids.
func TokenMask(ids [][]int) Mask {
	m := make(Mask, len(ids))
	for b, row := range ids {
		m[b] = embedding.ComputeMask(row)
	}
	return m
}

// DeriveMask marks a position valid unless its row in values is all zero.
// This cannot tell a padded position apart from a genuine zero output; see
// MaskDerived.
func DeriveMask(values []tensor.Mat) Mask {
	m := make(Mask, len(values))
	for b := range values {
		v := &values[b]
		m[b] = make([]bool, v.R)
		for t := 0; t < v.R; t++ {
			m[b][t] = !v.ZeroRow(t)
		}
	}
	return m
}

// Equal reports whether m and o have the same shape and flags.
func (m Mask) Equal(o Mask) bool {
	if len(m) != len(o) {
		return false
	}
	for b := range m {
		if len(m[b]) != len(o[b]) {
			return false
		}
		for t := range m[b] {
			if m[b][t] != o[b][t] {
				return false
			}
		}
	}
	return true
}

// Valid counts the valid positions of row b.
func (m Mask) Valid(b int) int {
	n := 0
	for _, ok := range m[b] {
		if ok {
			n++
		}
	}
	return n
}
