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
	"github.com/farcloser/acoustica/internal/types"
)

// ExtractStream decodes the first audio stream of a container into raw interleaved PCM.
// Sample rate and channel layout are kept as-is.
func ExtractStream(ctx context.Context, input io.Reader, output io.Writer, format *types.PCMFormat) error {
	logging.DebugwCtx(ctx, "ffmpeg.ExtractStream", "bit depth", format.BitDepth, "stage", "start")

	ffmpegPath, found := binary.Available(name)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-v", logLevelArg,
		"-i", "-",
		"-map", "0:a:0",
		"-f", bitDepthToSpec(format.BitDepth),
		"-acodec", bitDepthToCodec(format.BitDepth),
	}

	if format.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(format.SampleRate))
	}

	if format.Channels > 0 {
		args = append(args, "-ac", strconv.FormatUint(uint64(format.Channels), 10))
	}

	args = append(args, "-")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	cmd.Stdout = output
	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logging.DebugwCtx(ctx, "ffmpeg.ExtractStream", "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		logging.DebugwCtx(ctx, "ffmpeg.ExtractStream", "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	logging.DebugwCtx(ctx, "ffmpeg.ExtractStream", "stage", "done")

	return nil
}
