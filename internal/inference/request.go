package inference

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks requests rejected before any decoding happens.
var ErrInvalidRequest = errors.New("invalid request")

// Request is a fully resolved answer request.
type Request struct {
	Question string

	// MaxSteps bounds the answer length; zero means the model's
	// max_answer_len.
	MaxSteps int
	Seed     uint64

	Temperature   float64
	TopK          int
	TopP          float64
	MinP          float64
	RepeatPenalty float64
	RepeatLastN   int
}

// RequestOptions carries caller overrides; nil fields keep the default.
type RequestOptions struct {
	Question string

	MaxSteps *int
	Seed     *uint64

	Temperature   *float64
	TopK          *int
	TopP          *float64
	MinP          *float64
	RepeatPenalty *float64
}

// DefaultRequest decodes greedily, like the arg-max loop the model was
// built for.
func DefaultRequest() Request {
	return Request{
		Temperature:   0,
		TopK:          40,
		TopP:          1,
		RepeatPenalty: 1,
		RepeatLastN:   64,
	}
}

// ResolveRequest applies opts on top of defaults.
func ResolveRequest(opts RequestOptions, defaults Request) Request {
	req := defaults
	req.Question = opts.Question
	if opts.MaxSteps != nil {
		req.MaxSteps = *opts.MaxSteps
	}
	if opts.Seed != nil {
		req.Seed = *opts.Seed
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopK != nil {
		req.TopK = *opts.TopK
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}
	if opts.MinP != nil {
		req.MinP = *opts.MinP
	}
	if opts.RepeatPenalty != nil {
		req.RepeatPenalty = *opts.RepeatPenalty
	}
	return req
}

// Validate reports the first problem with r.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Question) == "":
		return fmt.Errorf("%w: question is empty", ErrInvalidRequest)
	case r.MaxSteps < 0:
		return fmt.Errorf("%w: max_steps must not be negative", ErrInvalidRequest)
	case r.Temperature < 0:
		return fmt.Errorf("%w: temperature must not be negative", ErrInvalidRequest)
	case r.TopK < 0:
		return fmt.Errorf("%w: top_k must not be negative", ErrInvalidRequest)
	case r.TopP < 0 || r.TopP > 1:
		return fmt.Errorf("%w: top_p must be within [0, 1]", ErrInvalidRequest)
	case r.MinP < 0 || r.MinP > 1:
		return fmt.Errorf("%w: min_p must be within [0, 1]", ErrInvalidRequest)
	case r.RepeatPenalty < 0:
		return fmt.Errorf("%w: repeat_penalty must not be negative", ErrInvalidRequest)
	}
	return nil
}
