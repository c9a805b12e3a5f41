// Package acoustica analyses an audio upload: it decodes it, produces a denoised copy, then
// computes descriptors and transport payloads for both signals.
package acoustica

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/farcloser/acoustica/internal/denoise"
	"github.com/farcloser/acoustica/internal/encode"
	"github.com/farcloser/acoustica/internal/features"
	"github.com/farcloser/acoustica/internal/logging"
	"github.com/farcloser/acoustica/internal/normalize"
	"github.com/farcloser/acoustica/internal/types"
)

/*
Usage:

result, err := acoustica.Analyze(ctx, data, "recording.webm", acoustica.DefaultOptions())
switch {
case acoustica.IsFormatError(err):
    // unsupported or corrupt container
case acoustica.IsEmptySignal(err):
    // nothing to analyse
case err != nil:
    // unexpected
}

fmt.Println(result.Raw.Duration, result.Denoised.Loudness, result.Raw.Pitch)

// Numbers only, uncompressed audio
opts := acoustica.DefaultOptions()
opts.Features.NoImages = true
opts.AudioFormat = encode.FormatWAV
result, err := acoustica.Analyze(ctx, data, "tone.wav", opts)

// Partial success
if err := result.EncodingErr(); err != nil {
    log.Println(err)
}
*/

// Analyze decodes data, using filename only to recover the container, and analyses it.
// It is safe for concurrent use.
func Analyze(ctx context.Context, data []byte, filename string, opts Options) (*Result, error) {
	return AnalyzeHint(ctx, data, normalize.HintFromFilename(filename), opts)
}

// AnalyzeHint is Analyze with an explicit container hint.
func AnalyzeHint(ctx context.Context, data []byte, hint normalize.Hint, opts Options) (*Result, error) {
	applyDefaults(&opts)

	buf, err := normalize.Normalize(ctx, data, hint, opts.Normalize)
	if err != nil {
		return nil, classify(err)
	}

	return analyzeBuffer(ctx, buf, opts)
}

// AnalyzeBuffer analyses already decoded audio.
func AnalyzeBuffer(ctx context.Context, buf *types.Buffer, opts Options) (*Result, error) {
	applyDefaults(&opts)

	return analyzeBuffer(ctx, buf, opts)
}

func analyzeBuffer(ctx context.Context, buf *types.Buffer, opts Options) (*Result, error) {
	if err := buf.Validate(); err != nil {
		return nil, classify(err)
	}

	denoised, err := denoise.Reduce(buf, opts.Denoise)
	if err != nil {
		return nil, classify(err)
	}

	result := &Result{}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		var verr error

		result.Raw, verr = analyzeVariant(groupCtx, "raw", buf, opts)

		return verr
	})

	group.Go(func() error {
		var verr error

		result.Denoised, verr = analyzeVariant(groupCtx, "denoised", denoised, opts)

		return verr
	})

	if err = group.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func analyzeVariant(ctx context.Context, name string, buf *types.Buffer, opts Options) (*Variant, error) {
	fs, err := features.Extract(buf, opts.Features)
	if err != nil {
		return nil, classify(err)
	}

	variant := &Variant{
		Duration:   fs.Duration,
		NoiseLevel: fs.NoiseLevel,
		Loudness:   fs.LoudnessDB,
		Pitch:      fs.Pitch,
	}

	encoded, err := encode.Variant(ctx, buf, fs, opts.AudioFormat, !opts.Features.NoImages)
	if err != nil {
		logging.WarnwCtx(ctx, "partial encoding", "variant", name, "error", err)

		variant.EncodingErrors = encodingMessages(err)
	}

	variant.AudioData = encoded.Audio
	variant.FileExtension = encoded.Extension
	variant.Spectrogram = encoded.Spectrogram
	variant.WaveformPlot = encoded.Waveform

	return variant, nil
}

// applyDefaults fills the pipeline-level fields. Each stage fills its own zero fields, so a partial
// Options behaves like DefaultOptions with those fields overridden.
func applyDefaults(opts *Options) {
	if opts.AudioFormat == "" {
		opts.AudioFormat = encode.FormatMP3
	}
}
