package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/acoustica/internal/logging"
	"github.com/farcloser/acoustica/version"
)

func main() {
	ctx := context.Background()

	logging.Init()

	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Audio analysis service: denoising, descriptors, spectrograms",
		Version: version.Version() + " " + version.Commit(),
		Commands: []*cli.Command{
			serveCommand(),
			analyzeCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		logging.Errorw("failed to run", "error", err)
		_ = logging.Sync()

		os.Exit(1)
	}

	_ = logging.Sync()
}
