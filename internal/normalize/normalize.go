// Package normalize decodes uploaded audio of any container into a float PCM Buffer.
//
// WAV (integer PCM), Ogg Vorbis and raw s16 are decoded in-process so that canonical
// input is never re-encoded. Everything else goes through ffprobe and ffmpeg.
// Sample rate and channel layout are always preserved.
package normalize

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/farcloser/acoustica/internal/integration/ffmpeg"
	"github.com/farcloser/acoustica/internal/integration/ffprobe"
	"github.com/farcloser/acoustica/internal/logging"
	"github.com/farcloser/acoustica/internal/pcm"
	"github.com/farcloser/acoustica/internal/types"
)

// FormatError reports input that could not be decoded or transcoded.
type FormatError struct {
	Container string
	Err       error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot decode %s input: %v", e.Container, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Options tunes decoding.
type Options struct {
	// NoTranscode rejects containers that are not decoded natively instead of handing them to ffmpeg.
	NoTranscode bool
}

// DefaultOptions returns the options used by the service.
func DefaultOptions() Options {
	return Options{}
}

var errNotCanonical = errors.New("not decodable in-process")

// Normalize decodes data into a Buffer.
// It returns types.ErrEmptySignal when the input decodes to zero frames, and a *FormatError otherwise.
func Normalize(ctx context.Context, data []byte, hint Hint, opts Options) (*types.Buffer, error) {
	if len(data) == 0 {
		return nil, types.ErrEmptySignal
	}

	buf, err := decode(ctx, data, hint, opts)
	if err != nil {
		return nil, err
	}

	if buf.Frames() == 0 {
		return nil, types.ErrEmptySignal
	}

	logging.DebugwCtx(ctx, "normalized",
		"container", hint.String(),
		"sample rate", buf.SampleRate,
		"channels", buf.Channels(),
		"frames", buf.Frames(),
	)

	return buf, nil
}

func decode(ctx context.Context, data []byte, hint Hint, opts Options) (*types.Buffer, error) {
	switch hint.Container {
	case ContainerS16LE, ContainerL16:
		hint = hint.withRawDefaults()

		buf, err := pcm.Decode(data, types.PCMFormat{
			SampleRate: hint.Rate,
			BitDepth:   types.Depth16,
			Channels:   uint(hint.Channels), //nolint:gosec // defaulted positive value
			BigEndian:  hint.Container == ContainerL16,
		})
		if err != nil {
			return nil, &FormatError{Container: hint.String(), Err: err}
		}

		return buf, nil
	case ContainerWAV:
		buf, err := decodeWAV(data)
		if err == nil {
			return buf, nil
		}

		logging.DebugwCtx(ctx, "wav not decoded natively", "error", err)
	case ContainerOgg:
		buf, err := decodeVorbis(data)
		if err == nil {
			return buf, nil
		}

		// Ogg may carry Opus or FLAC, which only ffmpeg handles.
		logging.DebugwCtx(ctx, "ogg not decoded natively", "error", err)
	}

	if opts.NoTranscode {
		return nil, &FormatError{Container: hint.String(), Err: errNotCanonical}
	}

	return transcode(ctx, data, hint)
}

func transcode(ctx context.Context, data []byte, hint Hint) (*types.Buffer, error) {
	probe, err := ffprobe.Probe(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Container: hint.String(), Err: err}
	}

	stream, rate, err := probe.Audio()
	if err != nil {
		return nil, &FormatError{Container: hint.String(), Err: err}
	}

	format := types.PCMFormat{
		SampleRate: rate,
		BitDepth:   types.Depth32,
		Channels:   uint(stream.Channels), //nolint:gosec // validated positive value
	}

	var out bytes.Buffer
	if err = ffmpeg.ExtractStream(ctx, bytes.NewReader(data), &out, &format); err != nil {
		return nil, &FormatError{Container: hint.String(), Err: err}
	}

	buf, err := pcm.Decode(out.Bytes(), format)
	if err != nil {
		return nil, &FormatError{Container: hint.String(), Err: err}
	}

	return buf, nil
}
