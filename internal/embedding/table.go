// Package embedding holds the frozen token embedding table shared by the
// encoder and decoder.
package embedding

import (
	"fmt"

	"github.com/samcharles93/seqqa/internal/tensor"
)

// PadID is the reserved padding token.  Its row is always zero and it is
// never a valid position in a mask.
const PadID = 0

// Table maps token ids to fixed vectors.  It owns a private copy of its
// weights and exposes no way to modify them, so a single Table may be read
// from any number of goroutines without locking.
type Table struct {
	m tensor.Mat
}

// NewTable copies data (rows*dim values, row-major) into a new table.  The
// padding row is forced to zero.
func NewTable(rows, dim int, data []float32) (*Table, error) {
	if rows <= 0 || dim <= 0 {
		return nil, fmt.Errorf("embedding: invalid shape %dx%d", rows, dim)
	}
	m, err := tensor.CheckedMat(rows, dim, append([]float32(nil), data...))
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	tensor.Zero(m.Row(PadID))
	return &Table{m: m}, nil
}

// FromMat copies m into a new table.
func FromMat(m tensor.Mat) (*Table, error) {
	c := m.Clone()
	return NewTable(c.R, c.C, c.Data)
}

// Size is the number of rows (the vocabulary size).
func (t *Table) Size() int { return t.m.R }

// Dim is the embedding width.
func (t *Table) Dim() int { return t.m.C }

// Contains reports whether id has a row in the table.
func (t *Table) Contains(id int) bool {
	return id >= 0 && id < t.m.R
}

// LookupTo copies the vector for id into dst.
func (t *Table) LookupTo(dst []float32, id int) error {
	if !t.Contains(id) {
		return fmt.Errorf("embedding: token id %d out of range [0,%d)", id, t.m.R)
	}
	if len(dst) < t.m.C {
		return fmt.Errorf("embedding: buffer of %d too small for dim %d", len(dst), t.m.C)
	}
	t.m.RowTo(dst, id)
	return nil
}

// Lookup returns a fresh copy of the vector for id.
func (t *Table) Lookup(id int) ([]float32, error) {
	out := make([]float32, t.m.C)
	if err := t.LookupTo(out, id); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot returns a copy of the whole table, for persistence.
func (t *Table) Snapshot() tensor.Mat {
	return t.m.Clone()
}

// ComputeMask marks each position whose id is not the padding id.  It looks
// only at the ids, never at the looked-up vectors, and allocates a new slice
// on every call.
func ComputeMask(ids []int) []bool {
	mask := make([]bool, len(ids))
	for i, id := range ids {
		mask[i] = id != PadID
	}
	return mask
}
