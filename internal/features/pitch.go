package features

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/farcloser/acoustica/internal/types"
)

const (
	pitchFrame = 2048
	// voicedThreshold is the minimum normalized correlation of an accepted period.
	voicedThreshold = 0.5
	// firstPeakRatio picks the shortest lag close to the best one, avoiding octave errors.
	firstPeakRatio = 0.9
	// minFrameRMS skips frames that are effectively silent.
	minFrameRMS = 1e-3
)

// detectPitch estimates the fundamental of samples by windowed autocorrelation over
// half-overlapping frames, averaging the voiced frames.
func detectPitch(samples []float64, sampleRate int, minHz, maxHz float64) types.Pitch {
	rate := float64(sampleRate)
	minLag := max(1, int(math.Floor(rate/maxHz)))
	maxLag := int(math.Ceil(rate / minHz))

	size := pitchFrame
	for size < 2*maxLag {
		size *= 2
	}

	size = min(size, len(samples))
	maxLag = min(maxLag, size/2)

	if maxLag <= minLag+1 {
		return types.Pitch{}
	}

	win := window.Hann(size)
	nfft := nextPowerOfTwo(2 * size)
	winCorr := autocorrelate(win, nfft)

	centered := make([]float64, size)
	frame := make([]float64, size)

	var (
		sum    float64
		voiced int
	)

	for start := 0; start+size <= len(samples); start += size / 2 {
		raw := samples[start : start+size]

		// A DC offset correlates at every lag.
		mean := floats.Sum(raw) / float64(size)
		for i, v := range raw {
			centered[i] = v - mean
		}

		if floats.Norm(centered, 2)/math.Sqrt(float64(size)) < minFrameRMS {
			continue
		}

		floats.MulTo(frame, centered, win)

		lag, ok := framePeriod(frame, winCorr, nfft, minLag, maxLag)
		if !ok {
			continue
		}

		if hz := rate / lag; hz >= minHz && hz <= maxHz {
			sum += hz
			voiced++
		}
	}

	if voiced == 0 {
		return types.Pitch{}
	}

	return types.Pitch{Hz: sum / float64(voiced), Available: true}
}

// framePeriod returns the fractional lag of the first strong autocorrelation peak strictly inside
// (minLag, maxLag). Values on either bound are never peaks: they only rise towards a period
// outside the search range.
func framePeriod(frame, winCorr []float64, nfft, minLag, maxLag int) (float64, bool) {
	corr := autocorrelate(frame, nfft)
	if corr[0] <= 0 {
		return 0, false
	}

	// Dividing by the window's own autocorrelation undoes the taper's bias towards short lags.
	norm := make([]float64, maxLag+1)
	for k := minLag; k <= maxLag; k++ {
		norm[k] = (corr[k] / corr[0]) / (winCorr[k] / winCorr[0])
	}

	isPeak := func(k int) bool {
		return norm[k] >= norm[k-1] && norm[k] >= norm[k+1]
	}

	best := -1

	for k := minLag + 1; k < maxLag; k++ {
		if isPeak(k) && (best < 0 || norm[k] > norm[best]) {
			best = k
		}
	}

	if best < 0 || norm[best] < voicedThreshold {
		return 0, false
	}

	peak := best

	for k := minLag + 1; k < best; k++ {
		if norm[k] >= firstPeakRatio*norm[best] && isPeak(k) {
			peak = k

			break
		}
	}

	lag := float64(peak)

	y1, y2, y3 := norm[peak-1], norm[peak], norm[peak+1]
	if denom := y1 - 2*y2 + y3; math.Abs(denom) > 1e-12 {
		lag += max(-0.5, min(0.5, (y1-y3)/(2*denom)))
	}

	return lag, true
}

// autocorrelate returns the linear autocorrelation of x for lags [0, len(x)), via an nfft-point FFT.
func autocorrelate(x []float64, nfft int) []float64 {
	padded := make([]float64, nfft)
	copy(padded, x)

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}

	timeDomain := fft.IFFT(spectrum)

	out := make([]float64, len(x))
	for k := range out {
		out[k] = real(timeDomain[k])
	}

	return out
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
