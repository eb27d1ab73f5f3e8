// Package model bundles a vocabulary, an embedding table and the encoder and
// decoder built on it, and persists the bundle as a directory.
package model

import (
	"errors"
	"fmt"

	"github.com/samcharles93/seqqa/internal/embedding"
	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/tensor"
	"github.com/samcharles93/seqqa/internal/vocab"
)

// Initial embeddings are drawn from U(-embeddingInit, embeddingInit).
const embeddingInit = 0.05

// Seed offsets keep each component's random stream distinct.
const (
	seedEncoder   = 0
	seedDecoder   = 10
	seedAttention = 20
	seedDense     = 30
	seedEmbedding = 40
)

// Model is a complete question-answering network.  It is read-only after
// construction and safe for concurrent use.
type Model struct {
	Config  seq2seq.Config
	Vocab   *vocab.Vocabulary
	Table   *embedding.Table
	Encoder *seq2seq.Encoder
	Decoder *seq2seq.Decoder
}

// New builds a model with randomly initialised weights.  If table is nil a
// random embedding table is created as well; otherwise the encoder and
// decoder share the supplied (frozen) table.
func New(cfg seq2seq.Config, voc *vocab.Vocabulary, table *embedding.Table, seed uint64) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if voc == nil {
		return nil, errors.New("model: nil vocabulary")
	}
	if voc.Size() > cfg.VocabSize {
		return nil, fmt.Errorf("model: vocabulary has %d tokens, config allows %d", voc.Size(), cfg.VocabSize)
	}
	if table == nil {
		data := make([]float32, cfg.VocabSize*cfg.EmbeddingDim)
		tensor.FillUniform(data, -embeddingInit, embeddingInit, seed+seedEmbedding)
		t, err := embedding.NewTable(cfg.VocabSize, cfg.EmbeddingDim, data)
		if err != nil {
			return nil, err
		}
		table = t
	}

	encCell, err := cfg.NewCell(cfg.EmbeddingDim, seed+seedEncoder)
	if err != nil {
		return nil, err
	}
	enc, err := seq2seq.NewEncoder(cfg, table, encCell)
	if err != nil {
		return nil, fmt.Errorf("model: encoder: %w", err)
	}

	decCell, err := cfg.NewCell(cfg.DecoderInputSize(), seed+seedDecoder)
	if err != nil {
		return nil, err
	}
	attn := seq2seq.NewAdditiveAttention(cfg.Units, seed+seedAttention)
	fc := seq2seq.NewDense(cfg.Units, cfg.VocabSize, seed+seedDense)
	dec, err := seq2seq.NewDecoder(cfg, table, decCell, attn, fc)
	if err != nil {
		return nil, fmt.Errorf("model: decoder: %w", err)
	}

	return &Model{
		Config:  cfg,
		Vocab:   voc,
		Table:   table,
		Encoder: enc,
		Decoder: dec,
	}, nil
}

// ParamCount returns the number of scalar weights, the embedding included.
func (m *Model) ParamCount() (int, error) {
	ps, err := m.params()
	if err != nil {
		return 0, err
	}
	n := m.Table.Size() * m.Table.Dim()
	for _, p := range ps {
		n += p.mat.R * p.mat.C
	}
	return n, nil
}
