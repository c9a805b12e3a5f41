package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/acoustica/internal/integration/binary"
	"github.com/farcloser/acoustica/internal/logging"
)

// EncodeMP3 compresses interleaved s16le PCM read from input into an mp3 stream written to output.
func EncodeMP3(ctx context.Context, input io.Reader, output io.Writer, sampleRate, channels int) error {
	logging.DebugwCtx(ctx, "ffmpeg.EncodeMP3", "sample rate", sampleRate, "channels", channels, "stage", "start")

	ffmpegPath, found := binary.Available(name)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner",
		"-v", logLevelArg,
		"-f", s16Spec,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "-",
		"-acodec", mp3Codec,
		"-b:a", mp3Bitrate,
		"-f", "mp3",
		"-",
	)

	cmd.Stdout = output
	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logging.DebugwCtx(ctx, "ffmpeg.EncodeMP3", "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		logging.DebugwCtx(ctx, "ffmpeg.EncodeMP3", "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	return nil
}
