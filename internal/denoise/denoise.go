// Package denoise implements stationary spectral gating.
//
// A noise profile is estimated over the whole signal (no separate noise clip is available):
// for every frequency bin, the mean and standard deviation of the dB magnitude across frames.
// Time-frequency cells that do not rise NStdThresh deviations above that profile are attenuated,
// the mask is smoothed in both axes, and the signal is rebuilt with the input phase.
package denoise

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/acoustica/internal/stft"
	"github.com/farcloser/acoustica/internal/types"
)

const (
	// topDB clamps each bin to this many dB below its loudest frame.
	topDB = 80.0
	// magnitudeEps keeps log10 finite on exact zeros.
	magnitudeEps = 2.220446049250313e-16
)

var errOptions = errors.New("invalid denoise options")

// Options tunes the gate.
type Options struct {
	NFFT             int     // default 1024
	Hop              int     // default NFFT/4
	NStdThresh       float64 // default 1.5
	PropDecrease     float64 // default 1.0, which removes gated cells entirely
	FreqMaskSmoothHz float64 // default 500
	TimeMaskSmoothMS float64 // default 50
	// Bypass turns the gate off: Reduce returns a copy of its input.
	Bypass bool
}

func DefaultOptions() Options {
	return Options{
		NFFT:             1024,
		Hop:              256,
		NStdThresh:       1.5,
		PropDecrease:     1.0,
		FreqMaskSmoothHz: 500,
		TimeMaskSmoothMS: 50,
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()

	if o.NFFT == 0 {
		o.NFFT = def.NFFT
	}

	if o.Hop == 0 {
		o.Hop = o.NFFT / 4
	}

	if o.PropDecrease == 0 {
		o.PropDecrease = def.PropDecrease
	}

	if o.NStdThresh == 0 {
		o.NStdThresh = def.NStdThresh
	}

	if o.FreqMaskSmoothHz == 0 {
		o.FreqMaskSmoothHz = def.FreqMaskSmoothHz
	}

	if o.TimeMaskSmoothMS == 0 {
		o.TimeMaskSmoothMS = def.TimeMaskSmoothMS
	}
}

// Validate reports options the gate cannot run with.
func (o Options) Validate() error {
	o.applyDefaults()

	if err := (stft.Config{Size: o.NFFT, Hop: o.Hop}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", errOptions, err)
	}

	if o.PropDecrease < 0 || o.PropDecrease > 1 {
		return fmt.Errorf("%w: prop decrease %v outside (0, 1]", errOptions, o.PropDecrease)
	}

	if o.NStdThresh < 0 || o.FreqMaskSmoothHz < 0 || o.TimeMaskSmoothMS < 0 {
		return fmt.Errorf("%w: negative threshold or smoothing", errOptions)
	}

	return nil
}

// Reduce returns a denoised copy of buf with the same shape.
// Each channel is gated independently. Silent input yields silent output.
func Reduce(buf *types.Buffer, opts Options) (*types.Buffer, error) {
	opts.applyDefaults()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if err := buf.Validate(); err != nil {
		return nil, err
	}

	if buf.Frames() == 0 {
		return nil, types.ErrEmptySignal
	}

	if opts.Bypass {
		return buf.Clone(), nil
	}

	out := &types.Buffer{
		Samples:    make([][]float64, buf.Channels()),
		SampleRate: buf.SampleRate,
	}

	kernelFreq := triangle(smoothingSpan(opts.FreqMaskSmoothHz, float64(buf.SampleRate)/(float64(opts.NFFT)/2)))
	kernelTime := triangle(smoothingSpan(opts.TimeMaskSmoothMS, float64(opts.Hop)/float64(buf.SampleRate)*1000))

	for ch, samples := range buf.Samples {
		reduced, err := gate(samples, opts, kernelFreq, kernelTime)
		if err != nil {
			return nil, err
		}

		out.Samples[ch] = reduced
	}

	return out, nil
}

func gate(samples []float64, opts Options, kernelFreq, kernelTime []float64) ([]float64, error) {
	spec, err := stft.Forward(samples, stft.Config{Size: opts.NFFT, Hop: opts.Hop})
	if err != nil {
		return nil, err
	}

	numFrames := len(spec.Frames)
	bins := spec.Bins()

	// db is bin-major so each row is one frequency over time.
	db := make([][]float64, bins)
	for k := range bins {
		row := make([]float64, numFrames)
		for t := range numFrames {
			row[t] = 20 * math.Log10(cmplx.Abs(spec.Frames[t][k])+magnitudeEps)
		}

		ceiling := floats.Max(row) - topDB
		for t := range row {
			row[t] = math.Max(row[t], ceiling)
		}

		db[k] = row
	}

	mask := make([][]float64, bins)
	for k, row := range db {
		mean, std := stat.PopMeanStdDev(row, nil)
		threshold := mean + std*opts.NStdThresh

		mask[k] = make([]float64, numFrames)
		for t, v := range row {
			var keep float64
			if v > threshold {
				keep = 1
			}

			mask[k][t] = keep*opts.PropDecrease + (1 - opts.PropDecrease)
		}
	}

	mask = smooth(mask, kernelFreq, kernelTime)

	for t := range numFrames {
		for k := range bins {
			spec.Frames[t][k] *= complex(mask[k][t], 0)
		}
	}

	return stft.Inverse(spec), nil
}

// smoothingSpan converts a smoothing width into a whole number of bins or frames.
func smoothingSpan(width, step float64) int {
	if step <= 0 {
		return 0
	}

	return max(int(width/step), 0)
}

// triangle returns a normalized triangular kernel of 2n+1 taps peaking at the center.
func triangle(n int) []float64 {
	kernel := make([]float64, 2*n+1)
	for i := range kernel {
		kernel[i] = float64(n+1-absInt(i-n)) / float64(n+1)
	}

	floats.Scale(1/floats.Sum(kernel), kernel)

	return kernel
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// smooth convolves mask with kernelFreq along bins and kernelTime along frames.
// The output keeps the input size.
func smooth(mask [][]float64, kernelFreq, kernelTime []float64) [][]float64 {
	bins := len(mask)
	if bins == 0 {
		return mask
	}

	numFrames := len(mask[0])

	out := make([][]float64, bins)
	for k := range bins {
		out[k] = convolveSame(mask[k], kernelTime)
	}

	column := make([]float64, bins)

	for t := range numFrames {
		for k := range bins {
			column[k] = out[k][t]
		}

		smoothed := convolveSame(column, kernelFreq)
		for k := range bins {
			out[k][t] = smoothed[k]
		}
	}

	return out
}

// convolveSame applies a centered kernel. Near the edges, taps that fall outside the signal are
// dropped and the remaining weights renormalized, so a constant mask stays constant.
func convolveSame(signal, kernel []float64) []float64 {
	out := make([]float64, len(signal))
	center := len(kernel) / 2

	for i := range signal {
		var sum, weight float64

		for j, w := range kernel {
			idx := i + center - j
			if idx < 0 || idx >= len(signal) {
				continue
			}

			sum += signal[idx] * w
			weight += w
		}

		if weight > 0 {
			out[i] = sum / weight
		}
	}

	return out
}
