package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cine-social/cine-cli/internal/account"
	"github.com/cine-social/cine-cli/internal/comments"
	"github.com/cine-social/cine-cli/internal/config"
	"github.com/cine-social/cine-cli/internal/logging"
	"github.com/cine-social/cine-cli/internal/reviews"
	"github.com/cine-social/cine-cli/internal/users"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// Version can be set at build time with -ldflags="-X main.Version=X.Y.Z"
var Version = "dev"

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return runWithOutput(args, os.Stdout, os.Stderr)
}

func runWithOutput(args []string, w, errW io.Writer) error {
	app := buildApp(w, errW)
	return app.Run(context.Background(), args)
}

func buildApp(w, errW io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "cine",
		Usage:     "Comments and reviews of movies and shows from the terminal",
		Version:   Version,
		Writer:    w,
		ErrWriter: errW,
		ExitErrHandler: func(ctx context.Context, cmd *cli.Command, err error) {
			// Don't call os.Exit, just let the error propagate
		},
		Flags:  config.Flags(),
		Before: setupLogging(errW),
		Action: catchallAction,
		Commands: []*cli.Command{
			account.CmdAccount,
			comments.CmdComment,
			reviews.CmdReview,
			users.CmdUser,
		},
	}
}

// setupLogging attaches a logger at the configured level to the context seen
// by every subcommand.
func setupLogging(errW io.Writer) cli.BeforeFunc {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		log := logging.New(cmd.String("log-level"), errW)
		log.Debug("starting", zap.String("version", Version), zap.String("api", cmd.String("api-url")))
		return logging.WithContext(ctx, log), nil
	}
}

// catchallAction handles the root command invocation: help when there is
// nothing to run, an error for unknown subcommands.
func catchallAction(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()

	if len(args) == 0 || (len(args[0]) > 0 && args[0][0] == '-') {
		return cli.ShowAppHelp(cmd)
	}

	return fmt.Errorf("unknown command %q (run: cine --help)", args[0])
}
