package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqqa/internal/inference"
)

var (
	modelDir  string
	logLevel  string
	logFormat string
	debug     bool
)

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "model directory (model.yaml, vocab.json, weights.safetensors)",
			Destination: &modelDir,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// samplingOptions backs the decoding flags shared by answer and serve.
type samplingOptions struct {
	temperature   float64
	topK          int64
	topP          float64
	minP          float64
	repeatPenalty float64
	maxSteps      int64
	seed          int64
}

func samplingFlags(s *samplingOptions) []cli.Flag {
	def := inference.DefaultRequest()
	return []cli.Flag{
		&cli.Float64Flag{
			Name:        "temperature",
			Aliases:     []string{"temp", "t"},
			Usage:       "sampling temperature (0 decodes greedily)",
			Value:       def.Temperature,
			Destination: &s.temperature,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "sample from the k most likely words",
			Value:       int64(def.TopK),
			Destination: &s.topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "nucleus sampling threshold",
			Value:       def.TopP,
			Destination: &s.topP,
		},
		&cli.Float64Flag{
			Name:        "min-p",
			Usage:       "drop words below min-p times the best probability",
			Value:       def.MinP,
			Destination: &s.minP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "penalty for recently generated words (1 disables)",
			Value:       def.RepeatPenalty,
			Destination: &s.repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "max-steps",
			Usage:       "maximum answer length (0 uses the model's max_answer_len)",
			Destination: &s.maxSteps,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampler seed",
			Value:       1,
			Destination: &s.seed,
		},
	}
}

// request converts the flag values into a request template.
func (s samplingOptions) request() inference.Request {
	req := inference.DefaultRequest()
	req.Temperature = s.temperature
	req.TopK = int(s.topK)
	req.TopP = s.topP
	req.MinP = s.minP
	req.RepeatPenalty = s.repeatPenalty
	req.MaxSteps = int(s.maxSteps)
	req.Seed = uint64(s.seed)
	return req
}
