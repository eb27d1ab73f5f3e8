package seq2seq

import "github.com/samcharles93/seqqa/internal/tensor"

// Dense is an affine projection y = W·x + B.
type Dense struct {
	W tensor.Mat // [out x in]
	B []float32  // [out]
}

// NewDense returns a layer with a Glorot-uniform kernel and zero bias.
func NewDense(in, out int, seed uint64) *Dense {
	d := &Dense{
		W: tensor.NewMat(out, in),
		B: make([]float32, out),
	}
	tensor.GlorotUniform(&d.W, in, out, seed)
	return d
}

func (d *Dense) In() int  { return d.W.C }
func (d *Dense) Out() int { return d.W.R }

// Apply writes W·x + B into dst.
func (d *Dense) Apply(dst, x []float32) {
	tensor.MatVecAdd(dst, &d.W, x, d.B)
}
