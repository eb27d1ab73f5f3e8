package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqqa/internal/logger"
)

// fileConfig holds ~/.config/seqqa/config.yaml, loaded before any command runs.
var fileConfig Config

func main() {
	commands := []*cli.Command{
		initCmd(),
		answerCmd(),
		evalCmd(),
		serveCmd(),
		inspectCmd(),
		versionCmd(),
	}
	// Logging flags may follow the subcommand name, so the logger is built
	// once the subcommand has parsed its arguments.
	for _, c := range commands {
		c.Before = setup
	}

	app := &cli.Command{
		Name:  "seqqa",
		Usage: "Attention encoder/decoder question answering",
		Flags: loggingFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: commands,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file and installs the logger every command reads
// from its context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, cfgErr := LoadConfig()
	fileConfig = cfg
	applyLogConfig(cmd, cfg)

	log, err := logger.Setup(os.Stderr, logFormat, logLevel, debug)
	if err != nil {
		return ctx, err
	}
	if cfgErr != nil {
		log.Warn("ignoring config file", "path", configPath(), "error", cfgErr)
	}
	return logger.WithContext(ctx, log), nil
}
