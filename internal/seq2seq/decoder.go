package seq2seq

import (
	"fmt"

	"github.com/samcharles93/seqqa/internal/embedding"
	"github.com/samcharles93/seqqa/internal/rnn"
	"github.com/samcharles93/seqqa/internal/tensor"
)

// StepResult is the outcome of one decoder step.
type StepResult struct {
	Logits    tensor.Mat // [batch x vocab]
	State     State
	Attention tensor.Mat // [batch x seq_len], zero rows where the query was masked
}

// Decoder advances the answer by one token per call, attending over the
// encoder outputs of the question.
type Decoder struct {
	cfg  Config
	emb  *embedding.Table
	cell rnn.Cell
	attn *AdditiveAttention
	fc   *Dense
}

// NewDecoder assembles a decoder.  The cell reads DecoderInputSize inputs and
// produces Units outputs; fc maps Units to VocabSize.
func NewDecoder(cfg Config, emb *embedding.Table, cell rnn.Cell, attn *AdditiveAttention, fc *Dense) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkTable(cfg, emb); err != nil {
		return nil, err
	}
	if cell.InputSize() != cfg.DecoderInputSize() {
		return nil, fmt.Errorf("decoder: %w", shapeMismatch("cell input size", cell.InputSize(), cfg.DecoderInputSize()))
	}
	if cell.Units() != cfg.Units {
		return nil, fmt.Errorf("decoder: %w", shapeMismatch("cell units", cell.Units(), cfg.Units))
	}
	if attn.Scale != nil && len(attn.Scale) != cfg.Units {
		return nil, fmt.Errorf("decoder: %w", shapeMismatch("attention scale", len(attn.Scale), cfg.Units))
	}
	if fc.In() != cfg.Units || fc.Out() != cfg.VocabSize || len(fc.B) != cfg.VocabSize {
		return nil, fmt.Errorf("decoder: %w", shapeMismatch("dense kernel rows", fc.Out(), cfg.VocabSize))
	}
	return &Decoder{cfg: cfg, emb: emb, cell: cell, attn: attn, fc: fc}, nil
}

// Config returns the configuration the decoder was built with.
func (d *Decoder) Config() Config { return d.cfg }

// Cell returns the recurrent cell.
func (d *Decoder) Cell() rnn.Cell { return d.cell }

// Attention returns the attention scorer.
func (d *Decoder) Attention() *AdditiveAttention { return d.attn }

// Dense returns the vocabulary projection.
func (d *Decoder) Dense() *Dense { return d.fc }

// InitialState returns a zero state for a full configured batch.  A decoding
// run normally starts from the encoder's final state instead.
func (d *Decoder) InitialState() State {
	return ZeroState(d.cfg.BatchSize, d.cfg.Units)
}

// Step runs one decoding step for a batch of single token ids.
//
// For each row: the query is the previous hidden state, masked when it is all
// zero; attention over enc yields a context vector, which is concatenated
// with the embedding of ids[b] and fed to the cell.  A padding id leaves that
// row's state exactly unchanged and yields a zero cell output, so its logits
// equal the dense bias.  state and enc are not modified.
func (d *Decoder) Step(ids []int, state State, enc EncoderOutput) (StepResult, error) {
	batch := len(ids)
	if batch == 0 {
		return StepResult{}, shapeMismatch("batch size", 0, d.cfg.BatchSize)
	}
	for b, id := range ids {
		if err := checkIDs(b, []int{id}, d.cfg.VocabSize); err != nil {
			return StepResult{}, err
		}
	}
	if err := state.check(batch, d.cfg.Units); err != nil {
		return StepResult{}, err
	}
	if err := d.checkEncoderOutput(enc, batch); err != nil {
		return StepResult{}, err
	}
	encMask, err := d.encoderMask(enc)
	if err != nil {
		return StepResult{}, err
	}

	seqLen := d.cfg.MaxQuestionLen
	res := StepResult{
		Logits:    tensor.NewMat(batch, d.cfg.VocabSize),
		State:     state.Clone(),
		Attention: tensor.NewMat(batch, seqLen),
	}
	stepMask := embedding.ComputeMask(ids)
	emb := make([]float32, d.cfg.EmbeddingDim)
	x := make([]float32, d.cfg.DecoderInputSize())
	zero := make([]float32, d.cfg.Units)

	for b, id := range ids {
		query := state.Hidden.Row(b)
		ctx, weights := d.attn.Attend(query, !tensor.IsZero(query), &enc.Values[b], encMask[b])
		copy(res.Attention.Row(b), weights)

		if err := d.emb.LookupTo(emb, id); err != nil {
			return StepResult{}, err
		}
		tensor.Concat(x, ctx, emb)

		out, next := d.cell.Step(x, state.row(b), stepMask[b])
		res.State.setRow(b, next)
		if out == nil {
			out = zero
		}
		d.fc.Apply(res.Logits.Row(b), out)
	}
	return res, nil
}

func (d *Decoder) checkEncoderOutput(enc EncoderOutput, batch int) error {
	if len(enc.Values) != batch {
		return shapeMismatch("encoder output batch", len(enc.Values), batch)
	}
	for b := range enc.Values {
		v := &enc.Values[b]
		if v.C != d.cfg.Units {
			return fmt.Errorf("row %d: %w", b, shapeMismatch("encoder output features", v.C, d.cfg.Units))
		}
		if v.R != d.cfg.MaxQuestionLen {
			return fmt.Errorf("row %d: %w", b, shapeMismatch("encoder output length", v.R, d.cfg.MaxQuestionLen))
		}
	}
	if enc.Mask == nil {
		return nil
	}
	if len(enc.Mask) != batch {
		return shapeMismatch("encoder mask batch", len(enc.Mask), batch)
	}
	for b, row := range enc.Mask {
		if len(row) != d.cfg.MaxQuestionLen {
			return fmt.Errorf("row %d: %w", b, shapeMismatch("encoder mask length", len(row), d.cfg.MaxQuestionLen))
		}
	}
	return nil
}

// encoderMask returns the mask attention must respect.  The question mask
// travels with the outputs and is used as is unless the decoder is configured
// to re-derive it, or none was supplied.
func (d *Decoder) encoderMask(enc EncoderOutput) (Mask, error) {
	if enc.Mask != nil && d.cfg.maskMode() == MaskPropagated {
		return enc.Mask, nil
	}
	derived := DeriveMask(enc.Values)
	if enc.Mask == nil {
		return derived, nil
	}
	for b := range derived {
		for t, ok := range derived[b] {
			if ok != enc.Mask[b][t] {
				return nil, ambiguityError{row: b, pos: t, zeroRow: !ok, tokenMask: enc.Mask[b][t]}
			}
		}
	}
	return derived, nil
}
