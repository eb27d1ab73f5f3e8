package inference

import (
	"fmt"
	"math"

	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/tensor"
	"github.com/samcharles93/seqqa/internal/vocab"
)

// MaskedCrossEntropy is the mean sparse categorical cross-entropy of logits
// (one batch x vocab matrix per step) against targets (batch x steps),
// counting only positions whose target is not padding.  It is zero when
// every target is padding.
func MaskedCrossEntropy(logits []tensor.Mat, targets [][]int) (float64, error) {
	sum, n, err := crossEntropySum(logits, targets)
	if err != nil || n == 0 {
		return 0, err
	}
	return sum / float64(n), nil
}

func crossEntropySum(logits []tensor.Mat, targets [][]int) (float64, int, error) {
	for t, m := range logits {
		if m.R != len(targets) {
			return 0, 0, fmt.Errorf("%w: step %d logits have %d rows, want %d", seq2seq.ErrShapeMismatch, t, m.R, len(targets))
		}
	}
	for b, row := range targets {
		if len(row) != len(logits) {
			return 0, 0, fmt.Errorf("%w: target row %d has %d ids for %d steps", seq2seq.ErrShapeMismatch, b, len(row), len(logits))
		}
	}

	var sum float64
	n := 0
	for t, m := range logits {
		for b := range targets {
			id := targets[b][t]
			if id == vocab.PadID {
				continue
			}
			if id < 0 || id >= m.C {
				return 0, 0, fmt.Errorf("%w: target %d at row %d step %d, vocabulary %d", seq2seq.ErrTokenOutOfRange, id, b, t, m.C)
			}
			row := m.Row(b)
			sum += logSumExp(row) - float64(row[id])
			n++
		}
	}
	return sum, n, nil
}

func logSumExp(x []float32) float64 {
	maxv := math.Inf(-1)
	for _, v := range x {
		maxv = math.Max(maxv, float64(v))
	}
	var s float64
	for _, v := range x {
		s += math.Exp(float64(v) - maxv)
	}
	return maxv + math.Log(s)
}
