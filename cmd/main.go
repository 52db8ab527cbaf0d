package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotility/internal/shared"
)

// Exit code for an interrupted command, following the shell convention for SIGINT.
const exitInterrupted = 130

func main() {
	logger := shared.NewLogger(nil)
	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runner := NewRunner(RunnerOpts{Logger: logger})

	err := runner.App().Run(ctx, os.Args)
	stop()
	os.Exit(exitCode(runner.logger, err))
}

// exitCode logs err and maps it to the process exit status.
func exitCode(logger *log.Logger, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrNothingPlaying):
		logger.Warn("nothing is playing right now")
		return 0
	case errors.Is(err, shared.ErrCancelled):
		logger.Info("cancelled, nothing was changed")
		return 0
	case errors.Is(err, context.Canceled):
		logger.Warn("interrupted")
		return exitInterrupted
	default:
		logger.Error("application error", "error", err)
		return 1
	}
}
