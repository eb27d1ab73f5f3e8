package inference

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samcharles93/seqqa/internal/dataset"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/logits"
	"github.com/samcharles93/seqqa/internal/model"
)

// StreamFunc receives each generated word as it is decoded.
type StreamFunc func(word string)

// Result is the answer to a single text question.
type Result struct {
	Question string
	// QuestionTokens are the words the model saw, one per encoder position
	// that was not padding.
	QuestionTokens []string
	Text           string
	Tokens         []int
	Finished       bool
	Attention      [][]float32
	Stats          Stats
}

// Engine answers text questions with a loaded model.  It is safe for
// concurrent use; every call builds its own Generator.
type Engine struct {
	model *model.Model
	log   logger.Logger
}

func NewEngine(m *model.Model, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{model: m, log: log}
}

func (e *Engine) Model() *model.Model { return e.model }

// Answer encodes req.Question with the model vocabulary and decodes one
// answer.
func (e *Engine) Answer(ctx context.Context, req Request, stream StreamFunc) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := e.model.Config
	voc := e.model.Vocab
	ids := voc.Encode(req.Question, cfg.MaxQuestionLen)

	gen := NewGenerator(e.model.Encoder, e.model.Decoder, samplerConfig(req), e.log)
	if req.MaxSteps > 0 {
		gen.MaxSteps = req.MaxSteps
	}
	if stream != nil {
		gen.OnToken = func(_, id int) { stream(voc.Token(id)) }
	}

	answers, stats, err := gen.Answer(ctx, [][]int{ids})
	if err != nil {
		return nil, err
	}
	a := answers[0]

	qt := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			qt = append(qt, voc.Token(id))
		}
	}
	return &Result{
		Question:       req.Question,
		QuestionTokens: qt,
		Text:           voc.Decode(a.Tokens),
		Tokens:         a.Tokens,
		Finished:       a.Finished,
		Attention:      a.Attention,
		Stats:          stats,
	}, nil
}

func samplerConfig(req Request) logits.SamplerConfig {
	return logits.SamplerConfig{
		Seed:          req.Seed,
		Temperature:   float32(req.Temperature),
		TopK:          req.TopK,
		TopP:          float32(req.TopP),
		MinP:          float32(req.MinP),
		RepeatPenalty: float32(req.RepeatPenalty),
		RepeatLastN:   req.RepeatLastN,
	}
}

// EvalResult summarises a teacher-forced pass over a dataset.
type EvalResult struct {
	Pairs      int
	Batches    int
	Tokens     int
	Loss       float64
	Perplexity float64
	Duration   time.Duration
}

// Evaluate teacher-forces every pair and reports the masked cross-entropy
// averaged over all non-padding target tokens.
func (e *Engine) Evaluate(ctx context.Context, pairs []dataset.Pair) (EvalResult, error) {
	start := time.Now()
	res := EvalResult{Pairs: len(pairs)}
	gen := NewGenerator(e.model.Encoder, e.model.Decoder, logits.SamplerConfig{}, e.log)

	var sum float64
	for i, b := range dataset.Batches(pairs, e.model.Vocab, e.model.Config) {
		out, err := gen.TeacherForce(ctx, b.Questions, b.Targets)
		if err != nil {
			return res, fmt.Errorf("batch %d: %w", i, err)
		}
		s, n, err := crossEntropySum(out, b.Targets)
		if err != nil {
			return res, fmt.Errorf("batch %d: %w", i, err)
		}
		sum += s
		res.Tokens += n
		res.Batches++
		e.log.Debug("batch scored", "batch", i, "rows", b.Size, "tokens", n)
	}
	if res.Tokens > 0 {
		res.Loss = sum / float64(res.Tokens)
		res.Perplexity = math.Exp(res.Loss)
	}
	res.Duration = time.Since(start)
	return res, nil
}
