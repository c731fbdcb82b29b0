package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

type Runner func(ctx context.Context) error

// ShutdownGrace bounds how long Run waits for the runner after a signal.
var ShutdownGrace = 30 * time.Second

// Run executes run until it returns or the process receives SIGINT/SIGTERM,
// and returns the process exit code.
func Run(serviceName string, logger zerolog.Logger, run Runner) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runContext(ctx, serviceName, logger, run)
}

func runContext(ctx context.Context, serviceName string, logger zerolog.Logger, run Runner) int {
	logger.Info().Msgf("%s starting", serviceName)

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info().Msgf("%s shutting down", serviceName)
		select {
		case err := <-errCh:
			if err != nil {
				logger.Error().Err(err).Msgf("%s shutdown failed", serviceName)
				return 1
			}
		case <-time.After(ShutdownGrace):
			logger.Warn().Dur("grace", ShutdownGrace).Msg("shutdown grace period exceeded")
			return 1
		}
		logger.Info().Msgf("%s stopped", serviceName)
		return 0
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msgf("%s failed", serviceName)
			return 1
		}
		logger.Info().Msgf("%s stopped", serviceName)
		return 0
	}
}
