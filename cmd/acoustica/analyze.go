//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/farcloser/acoustica"
	"github.com/farcloser/acoustica/internal/encode"
	"github.com/farcloser/acoustica/internal/normalize"
	"github.com/farcloser/acoustica/internal/output"
)

var errNoFiles = errors.New("expected at least one argument: file paths, or \"-\" for stdin")

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze audio files and print their descriptors",
		ArgsUsage: "<file | -> [file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: console, json, markdown",
				Value:   "console",
			},
			&cli.StringFlag{
				Name:  "container",
				Usage: "Container of stdin input (wav, ogg, webm, mp3, s16le, ...)",
				Value: normalize.ContainerWAV,
			},
			&cli.FloatFlag{
				Name:  "noise-reduction",
				Usage: "Proportion of gated noise removed, from 0 (off) to 1",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "audio-format",
				Usage: "Container for encoded audio, shown with --images: mp3, wav",
				Value: string(encode.FormatWAV),
			},
			&cli.BoolFlag{
				Name:  "images",
				Usage: "Render plots and include base64 images and audio in the output",
			},
			&cli.BoolFlag{
				Name:  "denoised",
				Usage: "Include the denoised variant",
				Value: true,
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"D"},
				Usage:   "Print raw numbers instead of formatted values",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errNoFiles
			}

			format, err := encode.ParseFormat(cmd.String("audio-format"))
			if err != nil {
				return err
			}

			opts := acoustica.DefaultOptions()
			opts.AudioFormat = format
			opts.Denoise.PropDecrease = cmd.Float("noise-reduction")
			opts.Denoise.Bypass = opts.Denoise.PropDecrease == 0
			opts.Features.NoImages = !cmd.Bool("images")

			if err = opts.Denoise.Validate(); err != nil {
				return err
			}

			paths := cmd.Args().Slice()
			stdinHint := normalize.Hint{Container: normalize.ParseContainer(cmd.String("container"))}

			results, err := analyzeAll(ctx, paths, stdinHint, opts)
			if err != nil {
				return err
			}

			fields := output.Fields{Denoised: cmd.Bool("denoised"), Images: cmd.Bool("images")}

			return outputResults(paths, results, cmd.String("format"), fields, cmd.Bool("debug"))
		},
	}
}

// analyzeAll runs the pipeline over every input, NumCPU at a time, keeping argument order.
func analyzeAll(
	ctx context.Context,
	paths []string,
	stdinHint normalize.Hint,
	opts acoustica.Options,
) ([]*acoustica.Result, error) {
	results := make([]*acoustica.Result, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		group.Go(func() error {
			data, hint, err := readInput(path, stdinHint)
			if err != nil {
				return err
			}

			result, err := acoustica.AnalyzeHint(groupCtx, data, hint, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func readInput(path string, stdinHint normalize.Hint) ([]byte, normalize.Hint, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, stdinHint, fmt.Errorf("reading stdin: %w", err)
		}

		return data, stdinHint, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return nil, normalize.Hint{}, fmt.Errorf("cannot access %s: %w", path, err)
	}

	return data, normalize.HintFromFilename(path), nil
}
