//nolint:wrapcheck
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/acoustica"
	"github.com/farcloser/acoustica/internal/encode"
	"github.com/farcloser/acoustica/internal/server"
)

func serveCommand() *cli.Command {
	defaults := server.DefaultConfig()

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the upload, polling and streaming endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address to listen on",
				Value:   defaults.Listen,
				Sources: cli.EnvVars("ACOUSTICA_LISTEN"),
			},
			&cli.Int64Flag{
				Name:    "max-upload",
				Usage:   "Maximum upload size in bytes, also applied to each websocket message",
				Value:   defaults.MaxUpload,
				Sources: cli.EnvVars("ACOUSTICA_MAX_UPLOAD"),
			},
			&cli.StringFlag{
				Name:    "audio-format",
				Usage:   "Container for returned audio: mp3, wav",
				Value:   string(defaults.Options.AudioFormat),
				Sources: cli.EnvVars("ACOUSTICA_AUDIO_FORMAT"),
			},
			&cli.FloatFlag{
				Name:    "noise-reduction",
				Usage:   "Proportion of gated noise removed, from 0 (off) to 1",
				Value:   defaults.Options.Denoise.PropDecrease,
				Sources: cli.EnvVars("ACOUSTICA_NOISE_REDUCTION"),
			},
			&cli.StringFlag{
				Name:    "stream-format",
				Usage:   "Container assumed for websocket audio when the client names none",
				Value:   defaults.StreamFormat,
				Sources: cli.EnvVars("ACOUSTICA_STREAM_FORMAT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := server.DefaultConfig()
			cfg.Listen = cmd.String("listen")
			cfg.MaxUpload = cmd.Int64("max-upload")
			cfg.StreamFormat = cmd.String("stream-format")
			cfg.Options.Denoise.PropDecrease = cmd.Float("noise-reduction")
			cfg.Options.Denoise.Bypass = cfg.Options.Denoise.PropDecrease == 0

			format, err := encode.ParseFormat(cmd.String("audio-format"))
			if err != nil {
				return err
			}

			cfg.Options.AudioFormat = format

			if err = cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, acoustica.NewStore()).ListenAndServe(ctx)
		},
	}
}
