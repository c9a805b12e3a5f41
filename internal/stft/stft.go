// Package stft implements a centered short-time Fourier transform and its overlap-add inverse.
package stft

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// wssFloor guards the window-sum-square normalization at the signal edges.
const wssFloor = 1e-10

var errConfig = errors.New("invalid stft configuration")

// Config sets the frame size and hop, in samples.
type Config struct {
	Size int
	Hop  int
}

// Validate requires a power-of-two size and 0 < Hop <= Size/2.
func (c Config) Validate() error {
	if c.Size < 2 || c.Size&(c.Size-1) != 0 {
		return fmt.Errorf("%w: size %d is not a power of two", errConfig, c.Size)
	}

	if c.Hop <= 0 || c.Hop > c.Size/2 {
		return fmt.Errorf("%w: hop %d must be in (0, %d]", errConfig, c.Hop, c.Size/2)
	}

	return nil
}

// Bins returns the number of frequency bins per frame.
func (c Config) Bins() int {
	return c.Size/2 + 1
}

// Spectrogram holds complex frames, indexed [frame][bin].
type Spectrogram struct {
	Config

	Frames [][]complex128
	// Length is the sample count of the analysed signal.
	Length int
}

// Window returns a periodic Hann window of n samples.
func Window(n int) []float64 {
	w := make([]float64, n+1)
	for i := range w {
		w[i] = 1
	}

	return window.Hann(w)[:n]
}

// reflect mirrors an out-of-range index back into [0, n) without repeating the edge sample.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}

	period := 2 * (n - 1)

	i %= period
	if i < 0 {
		i += period
	}

	if i >= n {
		i = period - i
	}

	return i
}

// Forward computes the STFT of signal, padded by Size/2 on each side with its own reflection
// so that frame t is centered on sample t*Hop.
func Forward(signal []float64, cfg Config) (*Spectrogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	spec := &Spectrogram{Config: cfg, Length: len(signal)}
	if len(signal) == 0 {
		return spec, nil
	}

	half := cfg.Size / 2
	win := Window(cfg.Size)
	fft := fourier.NewFFT(cfg.Size)
	seg := make([]float64, cfg.Size)

	numFrames := 1 + len(signal)/cfg.Hop
	spec.Frames = make([][]complex128, numFrames)

	for t := range numFrames {
		start := t*cfg.Hop - half
		for k := range cfg.Size {
			seg[k] = signal[reflect(start+k, len(signal))] * win[k]
		}

		spec.Frames[t] = fft.Coefficients(nil, seg)
	}

	return spec, nil
}

// Inverse reconstructs a signal of spec.Length samples by windowed overlap-add.
func Inverse(spec *Spectrogram) []float64 {
	out := make([]float64, spec.Length)
	if spec.Length == 0 || len(spec.Frames) == 0 {
		return out
	}

	size := spec.Size
	half := size / 2
	win := Window(size)
	fft := fourier.NewFFT(size)
	frame := make([]float64, size)

	total := spec.Length + size
	acc := make([]float64, total)
	wss := make([]float64, total)

	for t, coeffs := range spec.Frames {
		fft.Sequence(frame, coeffs)

		offset := t * spec.Hop
		for k := range size {
			if offset+k >= total {
				break
			}

			acc[offset+k] += frame[k] / float64(size) * win[k]
			wss[offset+k] += win[k] * win[k]
		}
	}

	for i := range out {
		j := i + half
		if wss[j] > wssFloor {
			out[i] = acc[j] / wss[j]
		}
	}

	return out
}
