package seq2seq

import (
	"github.com/samcharles93/seqqa/internal/rnn"
	"github.com/samcharles93/seqqa/internal/tensor"
)

// State is the batched recurrent state: one hidden and one cell row per
// batch element, each Units wide.
type State struct {
	Hidden tensor.Mat
	Cell   tensor.Mat
}

// ZeroState returns a zero-filled state of shape batch x units.
func ZeroState(batch, units int) State {
	return State{
		Hidden: tensor.NewMat(batch, units),
		Cell:   tensor.NewMat(batch, units),
	}
}

// Batch returns the number of rows in the state.
func (s State) Batch() int { return s.Hidden.R }

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{
		Hidden: s.Hidden.Clone(),
		Cell:   s.Cell.Clone(),
	}
}

func (s State) check(batch, units int) error {
	if s.Hidden.R != batch {
		return invalidState("hidden rows", s.Hidden.R, batch)
	}
	if s.Cell.R != batch {
		return invalidState("cell rows", s.Cell.R, batch)
	}
	if s.Hidden.C != units {
		return invalidState("hidden units", s.Hidden.C, units)
	}
	if s.Cell.C != units {
		return invalidState("cell units", s.Cell.C, units)
	}
	return nil
}

func (s State) row(b int) rnn.State {
	return rnn.State{
		Hidden: s.Hidden.Row(b),
		Cell:   s.Cell.Row(b),
	}
}

func (s State) setRow(b int, r rnn.State) {
	copy(s.Hidden.Row(b), r.Hidden)
	copy(s.Cell.Row(b), r.Cell)
}
