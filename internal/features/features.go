// Package features computes the descriptors of a decoded signal: duration, noise level,
// loudness, pitch and the two plots.
//
// Loudness and noise level pool every sample of every channel. Pitch and the plots use channel 0.
package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/acoustica/internal/logging"
	"github.com/farcloser/acoustica/internal/render"
	"github.com/farcloser/acoustica/internal/types"
)

const (
	// loudnessEpsilon floors the mean amplitude, so silence reads -200 dB.
	loudnessEpsilon = 1e-10

	durationPlaces = 2
	noisePlaces    = 4
	loudnessPlaces = 2
	pitchPlaces    = 2
)

var (
	ErrExtraction = errors.New("feature extraction failed")
	errOptions    = errors.New("invalid feature options")
)

type Options struct {
	// NoImages skips the spectrogram and waveform renders.
	NoImages bool
	// PitchMinHz and PitchMaxHz bound the fundamental frequency search.
	PitchMinHz float64
	PitchMaxHz float64
	Render     render.Options
}

func DefaultOptions() Options {
	return Options{
		PitchMinHz: 50,
		PitchMaxHz: 2000,
		Render:     render.DefaultOptions(),
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()

	if o.PitchMinHz == 0 {
		o.PitchMinHz = def.PitchMinHz
	}

	if o.PitchMaxHz == 0 {
		o.PitchMaxHz = def.PitchMaxHz
	}
}

// Validate reports nonsensical pitch bounds.
func (o Options) Validate() error {
	o.applyDefaults()

	if o.PitchMinHz <= 0 || o.PitchMaxHz <= o.PitchMinHz {
		return fmt.Errorf("%w: pitch range [%v, %v] Hz", errOptions, o.PitchMinHz, o.PitchMaxHz)
	}

	return nil
}

// Extract computes every descriptor of buf. Images are rendered unless opts.NoImages is set;
// a failed render leaves that image nil and is only logged.
func Extract(buf *types.Buffer, opts Options) (*types.FeatureSet, error) {
	fs, err := Scalars(buf, opts)
	if err != nil {
		return nil, err
	}

	if opts.NoImages {
		return fs, nil
	}

	first := buf.Samples[0]

	if fs.Spectrogram, err = render.Spectrogram(first, buf.SampleRate, opts.Render); err != nil {
		logging.Warnw("spectrogram not rendered", "error", err)
	}

	if fs.Waveform, err = render.Waveform(first, buf.SampleRate, opts.Render); err != nil {
		logging.Warnw("waveform not rendered", "error", err)
	}

	return fs, nil
}

// Scalars computes the numeric descriptors only.
func Scalars(buf *types.Buffer, opts Options) (*types.FeatureSet, error) {
	opts.applyDefaults()

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if buf.Frames() == 0 {
		return nil, types.ErrEmptySignal
	}

	pooled := pool(buf)

	fs := &types.FeatureSet{
		Duration:   round(float64(buf.Frames())/float64(buf.SampleRate), durationPlaces),
		NoiseLevel: round(stat.PopStdDev(pooled, nil), noisePlaces),
		LoudnessDB: round(loudness(pooled), loudnessPlaces),
		Pitch:      detectPitch(buf.Samples[0], buf.SampleRate, opts.PitchMinHz, opts.PitchMaxHz),
	}

	if fs.Pitch.Available {
		fs.Pitch.Hz = round(fs.Pitch.Hz, pitchPlaces)
	}

	if math.IsNaN(fs.NoiseLevel) || math.IsNaN(fs.LoudnessDB) || math.IsNaN(fs.Pitch.Hz) {
		return nil, fmt.Errorf("%w: non-finite samples in input", ErrExtraction)
	}

	return fs, nil
}

// pool concatenates every channel.
func pool(buf *types.Buffer) []float64 {
	out := make([]float64, 0, buf.Frames()*buf.Channels())
	for _, ch := range buf.Samples {
		out = append(out, ch...)
	}

	return out
}

func loudness(samples []float64) float64 {
	abs := make([]float64, len(samples))
	for i, v := range samples {
		abs[i] = math.Abs(v)
	}

	mean := floats.Sum(abs) / float64(len(abs))

	return 20 * math.Log10(math.Max(mean, loudnessEpsilon))
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))

	return math.Round(v*scale) / scale
}
