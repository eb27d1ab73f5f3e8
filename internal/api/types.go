package api

import (
	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/version"
)

// AnswerRequest is the body of POST /v1/answers.  Unset sampling fields
// fall back to the server defaults.
type AnswerRequest struct {
	Question      string   `json:"question"`
	MaxSteps      *int     `json:"max_steps,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	MinP          *float64 `json:"min_p,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	Seed          *uint64  `json:"seed,omitempty"`
	Stream        *bool    `json:"stream,omitempty"`
	Attention     bool     `json:"attention,omitempty"`
}

type AnswerResponse struct {
	ID        string        `json:"id"`
	Object    string        `json:"object"`
	CreatedAt int64         `json:"created_at"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Tokens    []string      `json:"tokens"`
	Finished  bool          `json:"finished"`
	Attention *AttentionMap `json:"attention,omitempty"`
	Stats     AnswerStats   `json:"stats"`
}

// AttentionMap has one weight row per generated step, over the question
// words the model saw.
type AttentionMap struct {
	Question []string    `json:"question"`
	Weights  [][]float32 `json:"weights"`
}

type AnswerStats struct {
	Steps           int     `json:"steps"`
	TokensGenerated int     `json:"tokens_generated"`
	DurationMS      float64 `json:"duration_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

type ModelResponse struct {
	Object      string         `json:"object"`
	Config      seq2seq.Config `json:"config"`
	VocabTokens int            `json:"vocab_tokens"`
	Params      int            `json:"params"`
	Version     version.Info   `json:"version"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type errorEnvelope struct {
	Error ResponseError `json:"error"`
}

type streamEvent struct {
	Type           string          `json:"type"`
	Delta          string          `json:"delta,omitempty"`
	Answer         *AnswerResponse `json:"answer,omitempty"`
	Error          *ResponseError  `json:"error,omitempty"`
	SequenceNumber int             `json:"sequence_number"`
}
