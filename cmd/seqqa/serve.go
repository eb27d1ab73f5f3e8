package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqqa/internal/api"
	"github.com/samcharles93/seqqa/internal/inference"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/model"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		storeSize   int64
		sampling    samplingOptions
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the answer REST API",
		Flags: append(append(modelFlags(), samplingFlags(&sampling)...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "store-size",
				Usage:       "number of recent answers kept for GET /v1/answers/:id",
				Value:       256,
				Destination: &storeSize,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applySamplingConfig(cmd, fileConfig, &sampling)
			applyServeConfig(cmd, fileConfig, &addr)

			dir, err := requireModelDir(modelDir, fileConfig)
			if err != nil {
				return err
			}
			m, err := model.Load(ctx, dir)
			if err != nil {
				return err
			}
			params, err := m.ParamCount()
			if err != nil {
				return err
			}
			defaults := sampling.request()
			if err := validateDefaults(defaults); err != nil {
				return err
			}

			server := api.NewServer(inference.NewEngine(m, log), api.ModelInfo{
				Config:      m.Config,
				VocabTokens: m.Vocab.Size(),
				Params:      params,
			}, api.Options{
				Defaults:  defaults,
				StoreSize: int(storeSize),
				Log:       log,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "model", dir, "params", params)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// validateDefaults checks the server-wide decoding defaults.
func validateDefaults(req inference.Request) error {
	req.Question = "-"
	return req.Validate()
}
