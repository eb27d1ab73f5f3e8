package rnn

import "github.com/samcharles93/seqqa/internal/tensor"

// LSTM is a long short-term memory cell.  Gate blocks in W, R and B are
// laid out in the order input, forget, candidate, output; the recurrent
// activation is the logistic sigmoid and the state activation is tanh.
type LSTM struct {
	In, U int

	W tensor.Mat // [4U x In] input kernel
	R tensor.Mat // [4U x U] recurrent kernel
	B []float32  // [4U] bias
}

// NewLSTM builds a cell with Glorot-uniform kernels and a forget-gate bias
// of one, derived deterministically from seed.
func NewLSTM(in, units int, seed uint64) *LSTM {
	c := &LSTM{
		In: in,
		U:  units,
		W:  tensor.NewMat(4*units, in),
		R:  tensor.NewMat(4*units, units),
		B:  make([]float32, 4*units),
	}
	tensor.GlorotUniform(&c.W, in, 4*units, seed)
	tensor.GlorotUniform(&c.R, units, 4*units, seed+1)
	for i := units; i < 2*units; i++ {
		c.B[i] = 1
	}
	return c
}

func (c *LSTM) InputSize() int { return c.In }
func (c *LSTM) Units() int     { return c.U }

func (c *LSTM) Step(x []float32, s State, valid bool) ([]float32, State) {
	if !valid {
		return nil, s.Clone()
	}
	u := c.U
	z := make([]float32, 4*u)
	rz := make([]float32, 4*u)
	tensor.MatVecAdd(z, &c.W, x, c.B)
	tensor.MatVec(rz, &c.R, s.Hidden)
	tensor.Add(z, rz)

	next := NewState(u)
	for j := 0; j < u; j++ {
		i := tensor.Sigmoid(z[j])
		f := tensor.Sigmoid(z[u+j])
		g := tensor.Tanh(z[2*u+j])
		o := tensor.Sigmoid(z[3*u+j])
		cell := f*s.Cell[j] + i*g
		next.Cell[j] = cell
		next.Hidden[j] = o * tensor.Tanh(cell)
	}
	out := append([]float32(nil), next.Hidden...)
	return out, next
}

func (c *LSTM) Params() []Param {
	return []Param{
		{Name: "kernel", Mat: &c.W},
		{Name: "recurrent_kernel", Mat: &c.R},
		{Name: "bias", Mat: vecMat(c.B)},
	}
}
