package seq2seq

import (
	"math"

	"github.com/samcharles93/seqqa/internal/tensor"
)

// AdditiveAttention scores a query against each value row with
//
//	score[t] = Σ_d Scale[d] · tanh(query[d] + value[t][d])
//
// and returns the softmax-weighted sum of the value rows.  Values double as
// keys.  A nil Scale weights every feature by one.
type AdditiveAttention struct {
	Scale []float32
}

// NewAdditiveAttention draws Scale from a Glorot-uniform distribution.
func NewAdditiveAttention(units int, seed uint64) *AdditiveAttention {
	scale := make([]float32, units)
	limit := math.Sqrt(6.0 / float64(2*units))
	tensor.FillUniform(scale, -limit, limit, seed)
	return &AdditiveAttention{Scale: scale}
}

// Attend computes the context vector for one query.
//
// Positions where valid is false get a weight of exactly zero.  If no
// position is valid, or the query itself is masked, both the weights and the
// context are all zero.
func (a *AdditiveAttention) Attend(query []float32, queryValid bool, values *tensor.Mat, valid []bool) (context, weights []float32) {
	context = make([]float32, values.C)
	weights = make([]float32, values.R)
	if !queryValid {
		return context, weights
	}
	for t := 0; t < values.R; t++ {
		if !valid[t] {
			continue
		}
		v := values.Row(t)
		var s float32
		for d, q := range query {
			h := tensor.Tanh(q + v[d])
			if a.Scale != nil {
				h *= a.Scale[d]
			}
			s += h
		}
		weights[t] = s
	}
	tensor.MaskedSoftmax(weights, valid)
	for t := 0; t < values.R; t++ {
		if weights[t] != 0 {
			tensor.AddScaled(context, weights[t], values.Row(t))
		}
	}
	return context, weights
}
