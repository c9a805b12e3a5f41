package render

import (
	"math"
	"math/cmplx"

	"github.com/farcloser/acoustica/internal/stft"
)

// powerFloor keeps log10 finite on silent frames.
const powerFloor = 1e-10

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank returns nMels triangular filters over the bins of an nFFT-point spectrum,
// spaced evenly on the HTK mel scale between 0 Hz and Nyquist.
func melFilterbank(nMels, nFFT, sampleRate int) [][]float64 {
	bins := nFFT/2 + 1
	nyquist := float64(sampleRate) / 2

	melMax := hzToMel(nyquist)
	edges := make([]float64, nMels+2)

	for i := range edges {
		edges[i] = melToHz(melMax * float64(i) / float64(nMels+1))
	}

	binHz := make([]float64, bins)
	for k := range bins {
		binHz[k] = float64(k) * nyquist / float64(bins-1)
	}

	bank := make([][]float64, nMels)

	for m := range nMels {
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		filter := make([]float64, bins)

		for k, f := range binHz {
			switch {
			case f > lower && f <= center:
				filter[k] = (f - lower) / (center - lower)
			case f > center && f < upper:
				filter[k] = (upper - f) / (upper - center)
			}
		}

		bank[m] = filter
	}

	return bank
}

// melSpectrogram returns log-power mel energies in dB, indexed [frame][band].
func melSpectrogram(samples []float64, sampleRate int, opts Options) ([][]float64, error) {
	spec, err := stft.Forward(samples, stft.Config{Size: opts.FFTSize, Hop: opts.Hop})
	if err != nil {
		return nil, err
	}

	bank := melFilterbank(opts.Mels, opts.FFTSize, sampleRate)
	out := make([][]float64, len(spec.Frames))
	power := make([]float64, spec.Bins())

	for t, frame := range spec.Frames {
		for k, c := range frame {
			mag := cmplx.Abs(c)
			power[k] = mag * mag
		}

		bands := make([]float64, opts.Mels)
		for m, filter := range bank {
			var energy float64
			for k, w := range filter {
				energy += w * power[k]
			}

			bands[m] = 10 * math.Log10(math.Max(energy, powerFloor))
		}

		out[t] = bands
	}

	return out, nil
}

// decimateFrames averages adjacent frames so that at most limit remain.
func decimateFrames(frames [][]float64, limit int) ([][]float64, int) {
	if limit <= 0 || len(frames) <= limit {
		return frames, 1
	}

	group := (len(frames) + limit - 1) / limit
	out := make([][]float64, 0, limit)

	for start := 0; start < len(frames); start += group {
		end := min(start+group, len(frames))
		avg := make([]float64, len(frames[start]))

		for _, frame := range frames[start:end] {
			for m, v := range frame {
				avg[m] += v
			}
		}

		for m := range avg {
			avg[m] /= float64(end - start)
		}

		out = append(out, avg)
	}

	return out, group
}
