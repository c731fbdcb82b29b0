package main

import (
	"fmt"
	"os"

	"github.com/romariotrain/hls-pipeline/internal/app"
	"github.com/romariotrain/hls-pipeline/internal/config"
	"github.com/romariotrain/hls-pipeline/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New("media", cfg.LogLevel, cfg.LogFormat)
	code := app.Run("media", logger, runner(cfg, logger))
	os.Exit(code)
}
