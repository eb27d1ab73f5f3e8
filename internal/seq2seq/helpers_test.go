package seq2seq

import (
	"testing"

	"github.com/samcharles93/seqqa/internal/embedding"
	"github.com/samcharles93/seqqa/internal/tensor"
)

func testConfig() Config {
	return Config{
		VocabSize:      10,
		EmbeddingDim:   4,
		Units:          3,
		BatchSize:      2,
		MaxQuestionLen: 4,
		MaxAnswerLen:   5,
		Cell:           CellLSTM,
		MaskMode:       MaskPropagated,
	}
}

func testTable(t testing.TB, cfg Config) *embedding.Table {
	t.Helper()
	m := tensor.NewMat(cfg.VocabSize, cfg.EmbeddingDim)
	tensor.FillUniform(m.Data, -1, 1, 99)
	tbl, err := embedding.FromMat(m)
	if err != nil {
		t.Fatalf("embedding table: %v", err)
	}
	return tbl
}

func newTestPair(t testing.TB, cfg Config) (*Encoder, *Decoder) {
	t.Helper()
	tbl := testTable(t, cfg)
	encCell, err := cfg.NewCell(cfg.EmbeddingDim, 1)
	if err != nil {
		t.Fatalf("encoder cell: %v", err)
	}
	enc, err := NewEncoder(cfg, tbl, encCell)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	decCell, err := cfg.NewCell(cfg.DecoderInputSize(), 2)
	if err != nil {
		t.Fatalf("decoder cell: %v", err)
	}
	fc := NewDense(cfg.Units, cfg.VocabSize, 3)
	for i := range fc.B {
		fc.B[i] = float32(i) * 0.01
	}
	dec, err := NewDecoder(cfg, tbl, decCell, NewAdditiveAttention(cfg.Units, 4), fc)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return enc, dec
}

func equalMat(a, b tensor.Mat) bool {
	if a.R != b.R || a.C != b.C {
		return false
	}
	for i := 0; i < a.R; i++ {
		ra, rb := a.Row(i), b.Row(i)
		for j := range ra {
			if ra[j] != rb[j] {
				return false
			}
		}
	}
	return true
}

func sum(x []float32) float64 {
	var s float64
	for _, v := range x {
		s += float64(v)
	}
	return s
}
