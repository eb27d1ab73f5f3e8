// Package inference drives the encoder and decoder: free-running answer
// generation, teacher-forced scoring and the masked loss used for
// evaluation.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/logits"
	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/tensor"
	"github.com/samcharles93/seqqa/internal/vocab"
)

// ErrEmptyBatch is returned when no question rows are supplied.
var ErrEmptyBatch = errors.New("empty batch")

// Phase is the decoding phase of one batch row.
type Phase int

const (
	AwaitingFirstToken Phase = iota
	Decoding
	Terminated
)

func (p Phase) String() string {
	switch p {
	case AwaitingFirstToken:
		return "awaiting_first_token"
	case Decoding:
		return "decoding"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Stats struct {
	Steps           int
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

func (s *Stats) finish(start time.Time) {
	s.Duration = time.Since(start)
	if s.Duration.Seconds() > 0 {
		s.TPS = float64(s.TokensGenerated) / s.Duration.Seconds()
	}
}

// Answer is the generated answer for one question row.
type Answer struct {
	// Tokens excludes the start and end markers.
	Tokens []int
	// Attention holds the weights over question positions for each step
	// the row was decoding.
	Attention [][]float32
	// Finished reports whether the row emitted the end token rather than
	// running out of steps.
	Finished bool
}

// TokenFunc is called for every generated token, in step order.
type TokenFunc func(row, id int)

// Generator runs one decoding loop at a time.  It owns its sampler, so a
// Generator must not be shared between goroutines; the Encoder and Decoder
// it wraps may be.
type Generator struct {
	Encoder *seq2seq.Encoder
	Decoder *seq2seq.Decoder
	Sampler *logits.Sampler
	Log     logger.Logger

	StartID  int
	EndID    int
	MaxSteps int

	OnToken TokenFunc
}

// NewGenerator returns a generator using the reserved vocabulary markers and
// at most cfg.MaxAnswerLen steps.  Padding and the start marker are never
// sampled.
func NewGenerator(enc *seq2seq.Encoder, dec *seq2seq.Decoder, sc logits.SamplerConfig, log logger.Logger) *Generator {
	if log == nil {
		log = logger.Discard()
	}
	sc.Suppress = append(append([]int(nil), sc.Suppress...), vocab.PadID, vocab.StartID)
	return &Generator{
		Encoder:  enc,
		Decoder:  dec,
		Sampler:  logits.NewSampler(sc),
		Log:      log,
		StartID:  vocab.StartID,
		EndID:    vocab.EndID,
		MaxSteps: dec.Config().MaxAnswerLen,
	}
}

// Answer generates one answer per question row.  Every row starts in
// AwaitingFirstToken, is fed StartID and the encoder's final state, and
// terminates on EndID or after MaxSteps steps.  Terminated rows are fed the
// padding id, which leaves their state untouched.
func (g *Generator) Answer(ctx context.Context, questions [][]int) ([]Answer, Stats, error) {
	var stats Stats
	start := time.Now()

	enc, state, err := g.encode(questions)
	if err != nil {
		return nil, stats, err
	}

	batch := len(questions)
	phases := make([]Phase, batch)
	answers := make([]Answer, batch)
	ids := make([]int, batch)
	for b := range ids {
		ids[b] = g.StartID
	}

	live := batch
	for step := 0; step < g.MaxSteps && live > 0; step++ {
		if err := ctx.Err(); err != nil {
			return answers, stats, err
		}
		res, err := g.step(ids, state, enc)
		if err != nil {
			return answers, stats, fmt.Errorf("decode step %d: %w", step, err)
		}
		state = res.State
		stats.Steps++

		for b := range batch {
			if phases[b] == Terminated {
				ids[b] = vocab.PadID
				continue
			}
			phases[b] = Decoding
			answers[b].Attention = append(answers[b].Attention, append([]float32(nil), res.Attention.Row(b)...))

			next := g.Sampler.Sample(res.Logits.Row(b), answers[b].Tokens)
			if next == g.EndID {
				phases[b] = Terminated
				answers[b].Finished = true
				ids[b] = vocab.PadID
				live--
				continue
			}
			answers[b].Tokens = append(answers[b].Tokens, next)
			stats.TokensGenerated++
			ids[b] = next
			if g.OnToken != nil {
				g.OnToken(b, next)
			}
		}
	}

	stats.finish(start)
	g.Log.Debug("answer batch decoded",
		"rows", batch,
		"unfinished", live,
		"steps", stats.Steps,
		"tokens", stats.TokensGenerated,
		"elapsed", stats.Duration,
	)
	return answers, stats, nil
}

// TeacherForce scores targets against questions.  The decoder is fed StartID
// and then targets[:, t-1] at step t, so a target length of L produces
// exactly L logits batches, each batch x vocab.
func (g *Generator) TeacherForce(ctx context.Context, questions, targets [][]int) ([]tensor.Mat, error) {
	if len(targets) != len(questions) {
		return nil, fmt.Errorf("%w: %d target rows for %d questions", seq2seq.ErrShapeMismatch, len(targets), len(questions))
	}
	steps, err := targetLen(targets)
	if err != nil {
		return nil, err
	}

	enc, state, err := g.encode(questions)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(questions))
	for b := range ids {
		ids[b] = g.StartID
	}
	out := make([]tensor.Mat, 0, steps)
	for t := 0; t < steps; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := g.step(ids, state, enc)
		if err != nil {
			return nil, fmt.Errorf("decode step %d: %w", t, err)
		}
		state = res.State
		out = append(out, res.Logits)
		for b := range ids {
			ids[b] = targets[b][t]
		}
	}
	return out, nil
}

func (g *Generator) encode(questions [][]int) (seq2seq.EncoderOutput, seq2seq.State, error) {
	if len(questions) == 0 {
		return seq2seq.EncoderOutput{}, seq2seq.State{}, ErrEmptyBatch
	}
	units := g.Encoder.Config().Units
	enc, state, err := safeEncode(g.Encoder, questions, seq2seq.ZeroState(len(questions), units))
	if err != nil {
		return seq2seq.EncoderOutput{}, seq2seq.State{}, fmt.Errorf("encode: %w", err)
	}
	return enc, state, nil
}

func (g *Generator) step(ids []int, state seq2seq.State, enc seq2seq.EncoderOutput) (res seq2seq.StepResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in decoder step: %v", rec)
		}
	}()
	return g.Decoder.Step(ids, state, enc)
}

func safeEncode(e *seq2seq.Encoder, ids [][]int, init seq2seq.State) (out seq2seq.EncoderOutput, st seq2seq.State, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in encoder: %v", rec)
		}
	}()
	return e.Encode(ids, init)
}

func targetLen(targets [][]int) (int, error) {
	if len(targets) == 0 {
		return 0, ErrEmptyBatch
	}
	n := len(targets[0])
	if n == 0 {
		return 0, fmt.Errorf("%w: empty target rows", seq2seq.ErrShapeMismatch)
	}
	for b, row := range targets {
		if len(row) != n {
			return 0, fmt.Errorf("%w: target row %d has %d ids, want %d", seq2seq.ErrShapeMismatch, b, len(row), n)
		}
	}
	return n, nil
}
