package rnn

import "github.com/samcharles93/seqqa/internal/tensor"

// Layer runs a Cell over a sequence.
//
// At an invalid step the state is carried forward unchanged and the step's
// output repeats the previous output of the sequence (zeros if no valid step
// has run yet).  With ZeroMaskedOutputs set, invalid steps emit zeros
// instead.
type Layer struct {
	Cell              Cell
	ZeroMaskedOutputs bool
}

// Run feeds the rows of xs through the cell starting from init and returns
// one output row per input row together with the final state.  init is not
// modified.
func (l Layer) Run(xs tensor.Mat, valid []bool, init State) (tensor.Mat, State) {
	if len(valid) != xs.R {
		panic("rnn: mask length does not match sequence length")
	}
	outs := tensor.NewMat(xs.R, l.Cell.Units())
	state := init.Clone()
	var prev []float32
	for t := 0; t < xs.R; t++ {
		out, next := l.Cell.Step(xs.Row(t), state, valid[t])
		state = next
		if out != nil {
			copy(outs.Row(t), out)
			prev = outs.Row(t)
			continue
		}
		if !l.ZeroMaskedOutputs && prev != nil {
			copy(outs.Row(t), prev)
		}
	}
	return outs, state
}
