package seq2seq

import (
	"fmt"

	"github.com/samcharles93/seqqa/internal/embedding"
	"github.com/samcharles93/seqqa/internal/rnn"
	"github.com/samcharles93/seqqa/internal/tensor"
)

// EncoderOutput is the per-position output of one Encode call together with
// the mask of the question ids that produced it.  The two must stay paired
// for the whole decoding run of that question.
type EncoderOutput struct {
	Values []tensor.Mat // one [seq_len x units] matrix per batch row
	Mask   Mask
}

// Batch returns the number of encoded rows.
func (o EncoderOutput) Batch() int { return len(o.Values) }

// Encoder runs a single recurrent layer over embedded question ids.
type Encoder struct {
	cfg   Config
	emb   *embedding.Table
	layer rnn.Layer
}

// NewEncoder binds a cell to the shared embedding table.  The cell must read
// EmbeddingDim inputs and produce Units outputs.
func NewEncoder(cfg Config, emb *embedding.Table, cell rnn.Cell) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkTable(cfg, emb); err != nil {
		return nil, err
	}
	if cell.InputSize() != cfg.EmbeddingDim {
		return nil, fmt.Errorf("encoder: %w", shapeMismatch("cell input size", cell.InputSize(), cfg.EmbeddingDim))
	}
	if cell.Units() != cfg.Units {
		return nil, fmt.Errorf("encoder: %w", shapeMismatch("cell units", cell.Units(), cfg.Units))
	}
	return &Encoder{
		cfg: cfg,
		emb: emb,
		layer: rnn.Layer{
			Cell:              cell,
			ZeroMaskedOutputs: cfg.ZeroMaskedOutputs,
		},
	}, nil
}

// Config returns the configuration the encoder was built with.
func (e *Encoder) Config() Config { return e.cfg }

// Cell returns the recurrent cell.
func (e *Encoder) Cell() rnn.Cell { return e.layer.Cell }

// InitialState returns a zero state for a full configured batch.
func (e *Encoder) InitialState() State {
	return ZeroState(e.cfg.BatchSize, e.cfg.Units)
}

// Encode embeds ids, runs the recurrent layer across every position and
// returns the outputs, their mask and the final state.  Padding positions
// leave the state untouched.  initial is not modified.
func (e *Encoder) Encode(ids [][]int, initial State) (EncoderOutput, State, error) {
	batch := len(ids)
	if batch == 0 {
		return EncoderOutput{}, State{}, shapeMismatch("batch size", 0, e.cfg.BatchSize)
	}
	for b, row := range ids {
		if len(row) != e.cfg.MaxQuestionLen {
			return EncoderOutput{}, State{}, fmt.Errorf("row %d: %w", b, shapeMismatch("sequence length", len(row), e.cfg.MaxQuestionLen))
		}
		if err := checkIDs(b, row, e.cfg.VocabSize); err != nil {
			return EncoderOutput{}, State{}, err
		}
	}
	if err := initial.check(batch, e.cfg.Units); err != nil {
		return EncoderOutput{}, State{}, err
	}

	mask := TokenMask(ids)
	out := EncoderOutput{
		Values: make([]tensor.Mat, batch),
		Mask:   mask,
	}
	final := ZeroState(batch, e.cfg.Units)
	xs := tensor.NewMat(e.cfg.MaxQuestionLen, e.cfg.EmbeddingDim)
	for b, row := range ids {
		for t, id := range row {
			if err := e.emb.LookupTo(xs.Row(t), id); err != nil {
				return EncoderOutput{}, State{}, err
			}
		}
		values, last := e.layer.Run(xs, mask[b], initial.row(b))
		out.Values[b] = values
		final.setRow(b, last)
	}
	return out, final, nil
}

func checkTable(cfg Config, emb *embedding.Table) error {
	if emb == nil {
		return fmt.Errorf("embedding table is nil")
	}
	if emb.Size() != cfg.VocabSize {
		return shapeMismatch("embedding rows", emb.Size(), cfg.VocabSize)
	}
	if emb.Dim() != cfg.EmbeddingDim {
		return shapeMismatch("embedding dim", emb.Dim(), cfg.EmbeddingDim)
	}
	return nil
}

func checkIDs(row int, ids []int, vocab int) error {
	for pos, id := range ids {
		if id < 0 || id >= vocab {
			return tokenError{row: row, pos: pos, id: id, vocab: vocab}
		}
	}
	return nil
}
