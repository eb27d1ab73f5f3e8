package rnn

import "github.com/samcharles93/seqqa/internal/tensor"

// SimpleRNN is an Elman cell: h' = tanh(W·x + R·h + b).  It has no memory
// vector; State.Cell is carried through unchanged.
type SimpleRNN struct {
	In, U int

	W tensor.Mat // [U x In]
	R tensor.Mat // [U x U]
	B []float32  // [U]
}

func NewSimpleRNN(in, units int, seed uint64) *SimpleRNN {
	c := &SimpleRNN{
		In: in,
		U:  units,
		W:  tensor.NewMat(units, in),
		R:  tensor.NewMat(units, units),
		B:  make([]float32, units),
	}
	tensor.GlorotUniform(&c.W, in, units, seed)
	tensor.GlorotUniform(&c.R, units, units, seed+1)
	return c
}

func (c *SimpleRNN) InputSize() int { return c.In }
func (c *SimpleRNN) Units() int     { return c.U }

func (c *SimpleRNN) Step(x []float32, s State, valid bool) ([]float32, State) {
	if !valid {
		return nil, s.Clone()
	}
	h := make([]float32, c.U)
	rh := make([]float32, c.U)
	tensor.MatVecAdd(h, &c.W, x, c.B)
	tensor.MatVec(rh, &c.R, s.Hidden)
	for j := range h {
		h[j] = tensor.Tanh(h[j] + rh[j])
	}
	next := State{
		Hidden: h,
		Cell:   append([]float32(nil), s.Cell...),
	}
	return append([]float32(nil), h...), next
}

func (c *SimpleRNN) Params() []Param {
	return []Param{
		{Name: "kernel", Mat: &c.W},
		{Name: "recurrent_kernel", Mat: &c.R},
		{Name: "bias", Mat: vecMat(c.B)},
	}
}
