package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqqa/internal/dataset"
	"github.com/samcharles93/seqqa/internal/embedding"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/model"
	"github.com/samcharles93/seqqa/internal/seq2seq"
	"github.com/samcharles93/seqqa/internal/vocab"
)

func initCmd() *cli.Command {
	var (
		dataPath  string
		outDir    string
		glovePath string
		seed      int64
		force     bool

		vocabSize, embeddingDim, units    int64
		batchSize, maxQuestion, maxAnswer int64
		cell, maskMode                    string
		zeroMasked                        bool
	)
	def := seq2seq.DefaultConfig()

	return &cli.Command{
		Name:  "init",
		Usage: "Fit a vocabulary on a QA dataset and write a freshly initialised model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "data",
				Aliases:     []string{"d"},
				Usage:       "JSONL file of {\"question\", \"answer\"} pairs",
				Destination: &dataPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output model directory (defaults to the resolved model directory)",
				Destination: &outDir,
			},
			&cli.StringFlag{
				Name:        "glove",
				Usage:       "pretrained word vectors in GloVe text format",
				Destination: &glovePath,
			},
			&cli.Int64Flag{Name: "seed", Usage: "weight initialisation seed", Value: 1, Destination: &seed},
			&cli.BoolFlag{Name: "force", Usage: "overwrite an existing model", Destination: &force},
			&cli.Int64Flag{Name: "vocab-size", Usage: "maximum vocabulary size, reserved tokens included", Value: int64(def.VocabSize), Destination: &vocabSize},
			&cli.Int64Flag{Name: "embedding-dim", Usage: "embedding width", Value: int64(def.EmbeddingDim), Destination: &embeddingDim},
			&cli.Int64Flag{Name: "units", Usage: "recurrent state width", Value: int64(def.Units), Destination: &units},
			&cli.Int64Flag{Name: "batch-size", Usage: "batch size used by eval", Value: int64(def.BatchSize), Destination: &batchSize},
			&cli.Int64Flag{Name: "max-question-len", Usage: "question length in tokens", Value: int64(def.MaxQuestionLen), Destination: &maxQuestion},
			&cli.Int64Flag{Name: "max-answer-len", Usage: "answer length in tokens", Value: int64(def.MaxAnswerLen), Destination: &maxAnswer},
			&cli.StringFlag{Name: "cell", Usage: "recurrent cell (lstm, simple)", Value: def.Cell, Destination: &cell},
			&cli.StringFlag{Name: "mask-mode", Usage: "decoder mask source (propagated, derived)", Value: string(def.MaskMode), Destination: &maskMode},
			&cli.BoolFlag{Name: "zero-masked-outputs", Usage: "emit zero encoder outputs at padded positions", Destination: &zeroMasked},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			start := time.Now()

			dir := resolveModelDir(outDir, fileConfig)
			if _, err := os.Stat(filepath.Join(dir, model.ConfigFile)); err == nil && !force {
				return fmt.Errorf("%s already holds a model (use --force to overwrite)", dir)
			}

			pairs, err := dataset.ReadFile(dataPath)
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				return errors.New("dataset is empty")
			}

			voc := vocab.Fit(dataset.Texts(pairs), int(vocabSize))
			cfg := seq2seq.Config{
				VocabSize:         voc.Size(),
				EmbeddingDim:      int(embeddingDim),
				Units:             int(units),
				BatchSize:         int(batchSize),
				MaxQuestionLen:    int(maxQuestion),
				MaxAnswerLen:      int(maxAnswer),
				Cell:              strings.ToLower(cell),
				ZeroMaskedOutputs: zeroMasked,
				MaskMode:          seq2seq.MaskMode(strings.ToLower(maskMode)),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log.Info("vocabulary fitted", "pairs", len(pairs), "tokens", voc.Size())

			var table *embedding.Table
			if glovePath != "" {
				table, err = loadGlove(glovePath, voc, cfg.EmbeddingDim)
				if err != nil {
					return err
				}
				log.Info("pretrained vectors loaded", "path", glovePath)
			}

			m, err := model.New(cfg, voc, table, uint64(seed))
			if err != nil {
				return err
			}
			if err := m.Save(dir); err != nil {
				return err
			}
			params, err := m.ParamCount()
			if err != nil {
				return err
			}
			log.Info("model written",
				"dir", dir,
				"params", params,
				"elapsed", time.Since(start),
			)
			return nil
		},
	}
}

func loadGlove(path string, voc *vocab.Vocabulary, dim int) (*embedding.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	table, filled, err := embedding.LoadText(f, voc, dim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if filled == 0 {
		return nil, fmt.Errorf("%s: no vector matched the vocabulary", path)
	}
	return table, nil
}
