// Package seq2seq implements the attention encoder/decoder pair used for
// question answering.
//
// The Encoder reads a padded batch of question token ids once; the Decoder
// is then stepped token by token, attending over the encoder outputs.  Both
// are stateless: recurrent state is passed in and returned explicitly, and
// the only shared data is read-only weights and the frozen embedding table.
package seq2seq

import (
	"fmt"

	"github.com/samcharles93/seqqa/internal/rnn"
)

// MaskMode selects how the decoder obtains the encoder-output mask.
type MaskMode string

const (
	// MaskPropagated uses the mask computed from the question ids, carried in
	// EncoderOutput.Mask.
	MaskPropagated MaskMode = "propagated"
	// MaskDerived re-derives the mask by marking all-zero encoder output rows
	// invalid.  When a propagated mask is also present and the two disagree,
	// the step fails with ErrMaskDerivationAmbiguity.
	MaskDerived MaskMode = "derived"
)

// Cell kinds accepted by Config.Cell.
const (
	CellLSTM   = "lstm"
	CellSimple = "simple"
)

// Config fixes the shapes the Encoder and Decoder are built for.
type Config struct {
	VocabSize      int `yaml:"vocab_size" json:"vocab_size"`
	EmbeddingDim   int `yaml:"embedding_dim" json:"embedding_dim"`
	Units          int `yaml:"units" json:"units"`
	BatchSize      int `yaml:"batch_size" json:"batch_size"`
	MaxQuestionLen int `yaml:"max_question_len" json:"max_question_len"`
	MaxAnswerLen   int `yaml:"max_answer_len" json:"max_answer_len"`

	Cell string `yaml:"cell" json:"cell"`

	// ZeroMaskedOutputs makes padded encoder positions emit zero vectors
	// instead of repeating the last valid output.
	ZeroMaskedOutputs bool     `yaml:"zero_masked_outputs" json:"zero_masked_outputs"`
	MaskMode          MaskMode `yaml:"mask_mode" json:"mask_mode"`
}

// DefaultConfig mirrors the hyperparameters the QA model was trained with.
func DefaultConfig() Config {
	return Config{
		VocabSize:      20000,
		EmbeddingDim:   100,
		Units:          256,
		BatchSize:      64,
		MaxQuestionLen: 30,
		MaxAnswerLen:   50,
		Cell:           CellLSTM,
		MaskMode:       MaskPropagated,
	}
}

// Validate checks that every size is positive and every enum is known.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"vocab_size", c.VocabSize},
		{"embedding_dim", c.EmbeddingDim},
		{"units", c.Units},
		{"batch_size", c.BatchSize},
		{"max_question_len", c.MaxQuestionLen},
		{"max_answer_len", c.MaxAnswerLen},
	} {
		if f.v <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", f.name, f.v)
		}
	}
	switch c.cellKind() {
	case CellLSTM, CellSimple:
	default:
		return fmt.Errorf("config: unknown cell %q", c.Cell)
	}
	switch c.maskMode() {
	case MaskPropagated, MaskDerived:
	default:
		return fmt.Errorf("config: unknown mask_mode %q", c.MaskMode)
	}
	return nil
}

// NewCell builds a randomly initialised cell of the configured kind with
// Units outputs and the given input width.
func (c Config) NewCell(in int, seed uint64) (rnn.Cell, error) {
	switch c.cellKind() {
	case CellLSTM:
		return rnn.NewLSTM(in, c.Units, seed), nil
	case CellSimple:
		return rnn.NewSimpleRNN(in, c.Units, seed), nil
	default:
		return nil, fmt.Errorf("config: unknown cell %q", c.Cell)
	}
}

// DecoderInputSize is the width of the decoder cell input: the attention
// context followed by the token embedding.
func (c Config) DecoderInputSize() int {
	return c.Units + c.EmbeddingDim
}

func (c Config) cellKind() string {
	if c.Cell == "" {
		return CellLSTM
	}
	return c.Cell
}

func (c Config) maskMode() MaskMode {
	if c.MaskMode == "" {
		return MaskPropagated
	}
	return c.MaskMode
}
