// Package api serves the question-answering model over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/seqqa/internal/inference"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/version"
)

// maxStepsLimit caps max_steps so one request cannot pin a worker.
const maxStepsLimit = 1024

// Answerer produces an answer for one resolved request.
type Answerer interface {
	Answer(ctx context.Context, req inference.Request, stream inference.StreamFunc) (*inference.Result, error)
}

// ModelInfo describes the served model for GET /v1/model.
type ModelInfo struct {
	Config      seq2seq.Config
	VocabTokens int
	Params      int
}

type Options struct {
	// Defaults are applied to fields a request leaves unset.
	Defaults  inference.Request
	StoreSize int
	Log       logger.Logger
}

type Server struct {
	engine   Answerer
	info     ModelInfo
	defaults inference.Request
	store    *AnswerStore
	log      logger.Logger
	clock    func() time.Time
}

func NewServer(engine Answerer, info ModelInfo, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		engine:   engine,
		info:     info,
		defaults: opts.Defaults,
		store:    NewAnswerStore(opts.StoreSize),
		log:      log,
		clock:    time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/answers", s.handleCreateAnswer)
	e.GET("/v1/answers/:id", s.handleGetAnswer)
	e.GET("/v1/model", s.handleModel)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleCreateAnswer(c *echo.Context) error {
	if s.engine == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "answer engine not configured", "", "")
	}
	body, err := decodeJSON[AnswerRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "", err.Error())
	}
	req, err := s.resolve(body)
	if err != nil {
		return writeBadRequest(c, errorParam(err), err.Error())
	}

	var writer *SSEStreamWriter
	var stream inference.StreamFunc
	if body.Stream != nil && *body.Stream {
		w, err := NewSSEStreamWriter(c)
		if err != nil {
			return writeBadRequest(c, "stream", err.Error())
		}
		writer = w
		stream = func(word string) {
			if err := w.Delta(word); err != nil {
				s.log.Debug("stream write failed", "error", err)
			}
		}
	}

	created := s.clock()
	res, err := s.engine.Answer(c.Request().Context(), req, stream)
	if err != nil {
		status, errType := http.StatusInternalServerError, "server_error"
		if errors.Is(err, inference.ErrInvalidRequest) {
			status, errType = http.StatusBadRequest, "invalid_request_error"
		}
		s.log.Warn("answer failed", "error", err, "status", status)
		if writer != nil && writer.Started() {
			return writer.Fail(ResponseError{Message: err.Error(), Type: errType})
		}
		return writeError(c, status, errType, err.Error(), "", "")
	}

	resp := s.response(created, res, body.Attention)
	s.store.Save(resp)
	s.log.Info("answered",
		"id", resp.ID,
		"tokens", resp.Stats.TokensGenerated,
		"finished", resp.Finished,
		"duration_ms", resp.Stats.DurationMS,
	)
	if writer != nil {
		return writer.Complete(resp)
	}
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) resolve(body AnswerRequest) (inference.Request, error) {
	req := inference.ResolveRequest(inference.RequestOptions{
		Question:      body.Question,
		MaxSteps:      body.MaxSteps,
		Seed:          body.Seed,
		Temperature:   body.Temperature,
		TopK:          body.TopK,
		TopP:          body.TopP,
		MinP:          body.MinP,
		RepeatPenalty: body.RepeatPenalty,
	}, s.defaults)
	if req.MaxSteps > maxStepsLimit {
		return req, newInvalidRequest("max_steps", "max_steps exceeds the server limit")
	}
	if err := req.Validate(); err != nil {
		return req, newInvalidRequest("", err.Error())
	}
	return req, nil
}

func (s *Server) response(created time.Time, res *inference.Result, withAttention bool) AnswerResponse {
	words := strings.Fields(res.Text)
	if words == nil {
		words = []string{}
	}
	resp := AnswerResponse{
		ID:        newAnswerID(),
		Object:    "answer",
		CreatedAt: created.Unix(),
		Question:  res.Question,
		Answer:    res.Text,
		Tokens:    words,
		Finished:  res.Finished,
		Stats: AnswerStats{
			Steps:           res.Stats.Steps,
			TokensGenerated: res.Stats.TokensGenerated,
			DurationMS:      float64(res.Stats.Duration.Microseconds()) / 1000,
			TokensPerSecond: res.Stats.TPS,
		},
	}
	if withAttention {
		n := len(res.QuestionTokens)
		weights := make([][]float32, len(res.Attention))
		for i, row := range res.Attention {
			weights[i] = row[:min(n, len(row))]
		}
		resp.Attention = &AttentionMap{Question: res.QuestionTokens, Weights: weights}
	}
	return resp
}

func (s *Server) handleGetAnswer(c *echo.Context) error {
	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "answer not found")
	}
	return writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleModel(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, ModelResponse{
		Object:      "model",
		Config:      s.info.Config,
		VocabTokens: s.info.VocabTokens,
		Params:      s.info.Params,
		Version:     version.Resolve(),
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}
