package inference

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/samcharles93/seqqa/internal/dataset"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/logits"
	"github.com/samcharles93/seqqa/internal/model"
	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/tensor"
	"github.com/samcharles93/seqqa/internal/vocab"
)

func testModel(t *testing.T) *model.Model {
	t.Helper()
	cfg := seq2seq.Config{
		VocabSize:      12,
		EmbeddingDim:   4,
		Units:          3,
		BatchSize:      2,
		MaxQuestionLen: 4,
		MaxAnswerLen:   5,
		Cell:           seq2seq.CellLSTM,
		MaskMode:       seq2seq.MaskPropagated,
	}
	voc := vocab.Fit([]string{"is it red", "yes it is red"}, 0)
	m, err := model.New(cfg, voc, nil, 11)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return m
}

// rig makes the output layer ignore its input and always score favourite
// highest.
func rig(m *model.Model, favourite int) {
	fc := m.Decoder.Dense()
	tensor.Zero(fc.W.Data)
	tensor.Zero(fc.B)
	fc.B[favourite] = 10
}

func greedy(m *model.Model) *Generator {
	return NewGenerator(m.Encoder, m.Decoder, logits.SamplerConfig{}, logger.Discard())
}

func TestTeacherForceProducesOneBatchPerTarget(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	g := greedy(m)
	questions := [][]int{{5, 6, 0, 0}, {4, 4, 4, 4}, {0, 0, 0, 0}}
	targets := [][]int{{7, 3, 0}, {5, 6, 3}, {0, 0, 0}}

	out, err := g.TeacherForce(context.Background(), questions, targets)
	if err != nil {
		t.Fatalf("TeacherForce: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 logits batches, got %d", len(out))
	}
	for i, l := range out {
		if l.R != 3 || l.C != m.Config.VocabSize {
			t.Fatalf("batch %d has shape %dx%d", i, l.R, l.C)
		}
	}
}

func TestTeacherForceMatchesManualLoop(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	g := greedy(m)
	questions := [][]int{{5, 6, 0, 0}, {4, 7, 4, 0}}
	targets := [][]int{{7, 3}, {5, 6}}

	out, err := g.TeacherForce(context.Background(), questions, targets)
	if err != nil {
		t.Fatal(err)
	}

	enc, state, err := m.Encoder.Encode(questions, seq2seq.ZeroState(2, m.Config.Units))
	if err != nil {
		t.Fatal(err)
	}
	first, err := m.Decoder.Step([]int{vocab.StartID, vocab.StartID}, state, enc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Decoder.Step([]int{7, 5}, first.State, enc)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first.Logits.Data {
		if out[0].Data[i] != first.Logits.Data[i] || out[1].Data[i] != second.Logits.Data[i] {
			t.Fatalf("teacher-forced logits differ from manual loop at %d", i)
		}
	}
}

func TestTeacherForceShapeErrors(t *testing.T) {
	t.Parallel()
	g := greedy(testModel(t))
	tests := []struct {
		name      string
		questions [][]int
		targets   [][]int
		want      error
	}{
		{"row count", [][]int{{1, 0, 0, 0}}, [][]int{{1}, {2}}, seq2seq.ErrShapeMismatch},
		{"ragged targets", [][]int{{1, 0, 0, 0}, {1, 0, 0, 0}}, [][]int{{1, 2}, {1}}, seq2seq.ErrShapeMismatch},
		{"empty targets", [][]int{{1, 0, 0, 0}}, [][]int{{}}, seq2seq.ErrShapeMismatch},
		{"no rows", nil, nil, ErrEmptyBatch},
		{"bad question length", [][]int{{1, 0}}, [][]int{{1}}, seq2seq.ErrShapeMismatch},
		{"target out of range", [][]int{{1, 0, 0, 0}}, [][]int{{99, 1}}, seq2seq.ErrTokenOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := g.TeacherForce(context.Background(), tt.questions, tt.targets)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAnswerTerminatesOnEndToken(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	rig(m, vocab.EndID)
	answers, stats, err := greedy(m).Answer(context.Background(), [][]int{{5, 6, 0, 0}, {4, 0, 0, 0}})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if stats.Steps != 1 || stats.TokensGenerated != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for b, a := range answers {
		if !a.Finished || len(a.Tokens) != 0 {
			t.Fatalf("row %d: %+v", b, a)
		}
		if len(a.Attention) != 1 {
			t.Fatalf("row %d: %d attention steps, want 1", b, len(a.Attention))
		}
	}
}

func TestAnswerStopsAtMaxSteps(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	rig(m, 5)
	g := greedy(m)
	g.MaxSteps = 3

	var streamed []int
	g.OnToken = func(row, id int) {
		if row == 0 {
			streamed = append(streamed, id)
		}
	}
	answers, stats, err := g.Answer(context.Background(), [][]int{{5, 6, 0, 0}, {4, 0, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Steps != 3 || stats.TokensGenerated != 6 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for b, a := range answers {
		if a.Finished {
			t.Fatalf("row %d should not be finished", b)
		}
		if len(a.Tokens) != 3 || a.Tokens[0] != 5 {
			t.Fatalf("row %d tokens %v", b, a.Tokens)
		}
	}
	if len(streamed) != 3 {
		t.Fatalf("streamed %v", streamed)
	}
}

func TestAnswerAttentionIgnoresPadding(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	rig(m, 5)
	g := greedy(m)
	g.MaxSteps = 2
	answers, _, err := g.Answer(context.Background(), [][]int{{5, 6, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	for step, w := range answers[0].Attention {
		if w[2] != 0 || w[3] != 0 {
			t.Fatalf("step %d: padded positions weighted %v", step, w)
		}
		if s := w[0] + w[1]; math.Abs(float64(s)-1) > 1e-5 {
			t.Fatalf("step %d: weights sum to %g", step, s)
		}
	}
}

func TestAnswerNeverSamplesPadding(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	rig(m, vocab.PadID)
	m.Decoder.Dense().B[vocab.StartID] = 9
	m.Decoder.Dense().B[6] = 8
	g := greedy(m)
	g.MaxSteps = 1
	answers, _, err := g.Answer(context.Background(), [][]int{{5, 0, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if got := answers[0].Tokens; len(got) != 1 || got[0] != 6 {
		t.Fatalf("expected token 6, got %v", got)
	}
}

func TestAnswerHonoursCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := greedy(testModel(t)).Answer(ctx, [][]int{{5, 0, 0, 0}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnswerEmptyBatch(t *testing.T) {
	t.Parallel()
	if _, _, err := greedy(testModel(t)).Answer(context.Background(), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestStepConvertsPanicToError(t *testing.T) {
	t.Parallel()
	g := &Generator{}
	_, err := g.step([]int{1}, seq2seq.State{}, seq2seq.EncoderOutput{})
	if err == nil || !strings.Contains(err.Error(), "panic in decoder step") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMaskedCrossEntropy(t *testing.T) {
	t.Parallel()
	uniform := func(rows int) tensor.Mat { return tensor.NewMat(rows, 4) }

	loss, err := MaskedCrossEntropy([]tensor.Mat{uniform(2), uniform(2)}, [][]int{{1, 0}, {2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-math.Log(4)) > 1e-9 {
		t.Fatalf("loss %g, want ln 4", loss)
	}

	peaked := tensor.NewMatFromData(1, 3, []float32{0, 0, 50})
	loss, err = MaskedCrossEntropy([]tensor.Mat{peaked}, [][]int{{2}})
	if err != nil {
		t.Fatal(err)
	}
	if loss > 1e-9 {
		t.Fatalf("confident correct prediction should have ~zero loss, got %g", loss)
	}

	loss, err = MaskedCrossEntropy([]tensor.Mat{uniform(1)}, [][]int{{0}})
	if err != nil || loss != 0 {
		t.Fatalf("all-padding targets: loss %g err %v", loss, err)
	}

	if _, err := MaskedCrossEntropy([]tensor.Mat{uniform(2)}, [][]int{{1}}); !errors.Is(err, seq2seq.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	if _, err := MaskedCrossEntropy([]tensor.Mat{uniform(1)}, [][]int{{4}}); !errors.Is(err, seq2seq.ErrTokenOutOfRange) {
		t.Fatalf("expected token out of range, got %v", err)
	}
}

func TestEngineAnswer(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	red, _ := m.Vocab.ID("red")
	rig(m, red)
	e := NewEngine(m, logger.Discard())

	var words []string
	req := DefaultRequest()
	req.Question = "Is it red?"
	req.MaxSteps = 2
	res, err := e.Answer(context.Background(), req, func(w string) { words = append(words, w) })
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Text != "red red" || strings.Join(words, " ") != "red red" {
		t.Fatalf("text %q streamed %v", res.Text, words)
	}
	if strings.Join(res.QuestionTokens, " ") != "is it red" {
		t.Fatalf("question tokens %v", res.QuestionTokens)
	}

	req.Question = "   "
	if _, err := e.Answer(context.Background(), req, nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestEngineEvaluateUniformModel(t *testing.T) {
	t.Parallel()
	m := testModel(t)
	fc := m.Decoder.Dense()
	tensor.Zero(fc.W.Data)
	tensor.Zero(fc.B)

	pairs := []dataset.Pair{
		{Question: "is it red", Answer: "yes"},
		{Question: "red", Answer: "it is red"},
		{Question: "is it", Answer: "no"},
	}
	res, err := NewEngine(m, nil).Evaluate(context.Background(), pairs)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Batches != 2 || res.Pairs != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	// yes+end, it is red+end, no(unk)+end
	if res.Tokens != 2+4+2 {
		t.Fatalf("scored %d tokens", res.Tokens)
	}
	if math.Abs(res.Loss-math.Log(12)) > 1e-6 || math.Abs(res.Perplexity-12) > 1e-4 {
		t.Fatalf("loss %g perplexity %g", res.Loss, res.Perplexity)
	}
}

func TestResolveRequest(t *testing.T) {
	t.Parallel()
	temp := 0.7
	steps := 9
	req := ResolveRequest(RequestOptions{Question: "q", Temperature: &temp, MaxSteps: &steps}, DefaultRequest())
	if req.Question != "q" || req.Temperature != 0.7 || req.MaxSteps != 9 || req.TopK != 40 {
		t.Fatalf("unexpected request %+v", req)
	}
	req.TopP = 2
	if err := req.Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestPhaseString(t *testing.T) {
	t.Parallel()
	if Terminated.String() != "terminated" || Phase(9).String() != "phase(9)" {
		t.Fatal("unexpected phase names")
	}
}
