package seq2seq

import (
	"math"
	"testing"

	"github.com/samcharles93/seqqa/internal/tensor"
)

func TestAdditiveAttentionMatchesReference(t *testing.T) {
	t.Parallel()
	a := &AdditiveAttention{Scale: []float32{0.5, -1, 2}}
	values := tensor.NewMatFromData(3, 3, []float32{
		0.1, 0.2, 0.3,
		-0.4, 0.5, 0.0,
		1.0, -1.0, 0.5,
	})
	query := []float32{0.3, -0.2, 0.1}
	valid := []bool{true, true, true}

	ctx, w := a.Attend(query, true, &values, valid)

	scores := make([]float64, 3)
	maxS := math.Inf(-1)
	for i := 0; i < 3; i++ {
		for d := 0; d < 3; d++ {
			scores[i] += float64(a.Scale[d]) * math.Tanh(float64(query[d]+values.Row(i)[d]))
		}
		maxS = math.Max(maxS, scores[i])
	}
	var z float64
	for i := range scores {
		scores[i] = math.Exp(scores[i] - maxS)
		z += scores[i]
	}
	for i := range scores {
		want := scores[i] / z
		if math.Abs(float64(w[i])-want) > 1e-5 {
			t.Fatalf("weight %d: got %g want %g", i, w[i], want)
		}
	}
	for d := 0; d < 3; d++ {
		var want float64
		for i := 0; i < 3; i++ {
			want += scores[i] / z * float64(values.Row(i)[d])
		}
		if math.Abs(float64(ctx[d])-want) > 1e-5 {
			t.Fatalf("context %d: got %g want %g", d, ctx[d], want)
		}
	}
}

func TestAdditiveAttentionMaskedQuery(t *testing.T) {
	t.Parallel()
	a := NewAdditiveAttention(2, 1)
	values := tensor.NewMatFromData(2, 2, []float32{1, 2, 3, 4})
	ctx, w := a.Attend([]float32{1, 1}, false, &values, []bool{true, true})
	if !tensor.IsZero(ctx) || !tensor.IsZero(w) {
		t.Fatalf("masked query should produce zero context and weights, got %v %v", ctx, w)
	}
}

func TestMaskHelpers(t *testing.T) {
	t.Parallel()
	ids := [][]int{{5, 7, 0, 0}, {3, 3, 3, 3}}
	a, b := TokenMask(ids), TokenMask(ids)
	if !a.Equal(b) {
		t.Fatal("mask derivation is not idempotent")
	}
	if a.Valid(0) != 2 || a.Valid(1) != 4 {
		t.Fatalf("valid counts %d/%d", a.Valid(0), a.Valid(1))
	}
	values := []tensor.Mat{tensor.NewMatFromData(2, 2, []float32{0, 0, 1, 0})}
	if !DeriveMask(values).Equal(Mask{{false, true}}) {
		t.Fatalf("derived mask = %v", DeriveMask(values))
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := testConfig()
	bad.Units = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero units")
	}
	bad = testConfig()
	bad.Cell = "gru"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown cell")
	}
	bad = testConfig()
	bad.MaskMode = "guess"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown mask mode")
	}
}
