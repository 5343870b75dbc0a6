package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/logicflow/engine/pkg/logger"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "flowctl",
		Usage:                 "Operate a logic flow engine from the command line",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			w := command.Root().ErrWriter
			if w == nil {
				w = os.Stderr
			}
			if _, err := logger.InitWithWriter(command.String("log-level"), "console", w); err != nil {
				return ctx, fmt.Errorf("failed to initialize logger: %w", err)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			NewTokenCommand(),
			NewBackupCommand(),
			NewTraceCommand(),
		},
	}
}

func main() {
	defer logger.Sync()
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
