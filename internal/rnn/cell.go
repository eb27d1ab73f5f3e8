// Package rnn implements recurrent cells that honour a per-step validity
// flag, and a Layer that runs a cell across a masked sequence.
package rnn

import "github.com/samcharles93/seqqa/internal/tensor"

// State is the recurrent state of a single sequence.  Cells without a
// separate memory vector pass Cell through untouched.
type State struct {
	Hidden []float32
	Cell   []float32
}

// NewState returns a zero state for the given unit count.
func NewState(units int) State {
	return State{
		Hidden: make([]float32, units),
		Cell:   make([]float32, units),
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{
		Hidden: append([]float32(nil), s.Hidden...),
		Cell:   append([]float32(nil), s.Cell...),
	}
}

// Cell advances a recurrent state by one timestep.
//
// When valid is false the step is a no-op: out is nil and next holds copies
// of the input state, bit-for-bit.  Implementations hold only read-only
// weights, so one Cell may be stepped from many goroutines at once.
type Cell interface {
	InputSize() int
	Units() int
	Step(x []float32, s State, valid bool) (out []float32, next State)
}

// Param names one weight tensor of a cell.  Mat shares storage with the
// cell, so copying into it replaces the weight in place.
type Param struct {
	Name string
	Mat  *tensor.Mat
}

// Parameterized is implemented by cells whose weights can be persisted.
type Parameterized interface {
	Params() []Param
}

func vecMat(v []float32) *tensor.Mat {
	m := tensor.NewMatFromData(1, len(v), v)
	return &m
}
