package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqqa/internal/inference"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/model"
	"github.com/samcharles93/seqqa/internal/vocab"
)

func answerCmd() *cli.Command {
	var (
		sampling      samplingOptions
		showAttention bool
		showStats     bool
	)

	return &cli.Command{
		Name:      "answer",
		Aliases:   []string{"ask"},
		Usage:     "Answer a question, or read questions interactively",
		ArgsUsage: "[question words...]",
		Flags: append(append(modelFlags(), samplingFlags(&sampling)...),
			&cli.BoolFlag{
				Name:        "attention",
				Usage:       "print the attention weights of each answer word",
				Destination: &showAttention,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "log decoding statistics after each answer",
				Destination: &showStats,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applySamplingConfig(cmd, fileConfig, &sampling)

			dir, err := requireModelDir(modelDir, fileConfig)
			if err != nil {
				return err
			}
			m, err := model.Load(ctx, dir)
			if err != nil {
				return err
			}
			engine := inference.NewEngine(m, log)
			tmpl := sampling.request()

			ask := func(question string) error {
				req := tmpl
				req.Question = question
				first := true
				res, err := engine.Answer(ctx, req, func(word string) {
					if !first {
						fmt.Print(" ")
					}
					first = false
					fmt.Print(word)
				})
				fmt.Println()
				if err != nil {
					return err
				}
				if showAttention {
					printAttention(os.Stdout, res)
				}
				if showStats {
					log.Info("answer stats",
						"steps", res.Stats.Steps,
						"tokens", res.Stats.TokensGenerated,
						"finished", res.Finished,
						"elapsed", res.Stats.Duration,
						"tps", fmt.Sprintf("%.1f", res.Stats.TPS),
					)
				}
				return nil
			}

			if cmd.Args().Len() > 0 {
				return ask(strings.Join(cmd.Args().Slice(), " "))
			}

			for {
				line, err := readInteractiveLine("> ")
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				line = strings.TrimSpace(line)
				switch line {
				case "":
					continue
				case "exit", "quit", "/bye":
					return nil
				}
				if err := ask(line); err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					if errors.Is(err, inference.ErrInvalidRequest) {
						return err
					}
					log.Error("answer failed", "error", err)
				}
			}
		},
	}
}

// printAttention writes one row per decoding step with the weight it put on
// each question word.  A finished answer has a final row for the end marker.
func printAttention(w io.Writer, res *inference.Result) {
	if len(res.Attention) == 0 || len(res.QuestionTokens) == 0 {
		return
	}
	words := strings.Fields(res.Text)
	if res.Finished {
		words = append(words, vocab.EndToken)
	}
	width := 7
	for _, q := range res.QuestionTokens {
		width = max(width, len(q)+1)
	}
	label := 8
	for _, a := range words {
		label = max(label, len(a)+1)
	}

	fmt.Fprintf(w, "%-*s", label, "")
	for _, q := range res.QuestionTokens {
		fmt.Fprintf(w, "%*s", width, q)
	}
	fmt.Fprintln(w)
	for i, row := range res.Attention {
		name := ""
		if i < len(words) {
			name = words[i]
		}
		fmt.Fprintf(w, "%-*s", label, name)
		for j := range min(len(res.QuestionTokens), len(row)) {
			fmt.Fprintf(w, "%*.3f", width, row[j])
		}
		fmt.Fprintln(w)
	}
}
