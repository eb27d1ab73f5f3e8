package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqqa/internal/dataset"
	"github.com/samcharles93/seqqa/internal/inference"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/model"
)

func evalCmd() *cli.Command {
	var (
		dataPath string
		samples  int64
	)

	return &cli.Command{
		Name:  "eval",
		Usage: "Report teacher-forced loss and perplexity on a QA dataset",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "data",
				Aliases:     []string{"d"},
				Usage:       "JSONL file of {\"question\", \"answer\"} pairs",
				Destination: &dataPath,
				Required:    true,
			},
			&cli.Int64Flag{
				Name:        "samples",
				Usage:       "also print greedy answers for the first n pairs",
				Destination: &samples,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			dir, err := requireModelDir(modelDir, fileConfig)
			if err != nil {
				return err
			}
			m, err := model.Load(ctx, dir)
			if err != nil {
				return err
			}
			pairs, err := dataset.ReadFile(dataPath)
			if err != nil {
				return err
			}
			engine := inference.NewEngine(m, log)

			res, err := engine.Evaluate(ctx, pairs)
			if err != nil {
				return err
			}
			fmt.Printf("pairs:      %d\n", res.Pairs)
			fmt.Printf("batches:    %d\n", res.Batches)
			fmt.Printf("tokens:     %d\n", res.Tokens)
			fmt.Printf("loss:       %.4f\n", res.Loss)
			fmt.Printf("perplexity: %.2f\n", res.Perplexity)
			fmt.Printf("elapsed:    %s\n", res.Duration.Round(time.Millisecond))

			for i := range min(int(samples), len(pairs)) {
				req := inference.DefaultRequest()
				req.Question = pairs[i].Question
				out, err := engine.Answer(ctx, req, nil)
				if err != nil {
					return err
				}
				fmt.Printf("\nQ: %s\nA: %s\n=> %s\n", pairs[i].Question, pairs[i].Answer, out.Text)
			}
			return nil
		},
	}
}
