package denoise

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/farcloser/acoustica/internal/types"
)

func rms(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}

func noise(rng *rand.Rand, n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * amplitude
	}

	return out
}

func TestReducePreservesShape(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for _, frames := range []int{1, 100, 16000, 16001} {
		buf := &types.Buffer{
			Samples:    [][]float64{noise(rng, frames, 0.1), noise(rng, frames, 0.2)},
			SampleRate: 16000,
		}

		out, err := Reduce(buf, DefaultOptions())
		require.NoError(t, err)
		require.Equal(t, buf.Channels(), out.Channels())
		require.Equal(t, buf.SampleRate, out.SampleRate)
		require.Equal(t, buf.Frames(), out.Frames())
		require.NoError(t, out.Validate())
	}
}

func TestReduceSilenceStaysSilent(t *testing.T) {
	buf := &types.Buffer{Samples: [][]float64{make([]float64, 22050)}, SampleRate: 22050}

	out, err := Reduce(buf, DefaultOptions())
	require.NoError(t, err)

	for _, v := range out.Samples[0] {
		require.InDelta(t, 0, v, 1e-12)
	}
}

func TestReduceEmpty(t *testing.T) {
	_, err := Reduce(&types.Buffer{Samples: [][]float64{{}}, SampleRate: 8000}, DefaultOptions())
	require.ErrorIs(t, err, types.ErrEmptySignal)

	_, err = Reduce(&types.Buffer{SampleRate: 8000}, DefaultOptions())
	require.ErrorIs(t, err, types.ErrMalformedBuffer)
}

func TestReduceBypassIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	buf := &types.Buffer{Samples: [][]float64{noise(rng, 8000, 0.3)}, SampleRate: 8000}

	opts := DefaultOptions()
	opts.Bypass = true

	out, err := Reduce(buf, opts)
	require.NoError(t, err)

	for i, v := range buf.Samples[0] {
		require.InDelta(t, v, out.Samples[0][i], 1e-9)
	}
}

func TestReduceKeepsBurstDropsFloor(t *testing.T) {
	const rate = 16000

	rng := rand.New(rand.NewPCG(7, 8))
	samples := noise(rng, 2*rate, 0.01)

	burstStart, burstEnd := rate*8/10, rate*12/10
	for i := burstStart; i < burstEnd; i++ {
		samples[i] += rng.NormFloat64() * 0.5
	}

	in := append([]float64(nil), samples...)

	out, err := Reduce(&types.Buffer{Samples: [][]float64{samples}, SampleRate: rate}, DefaultOptions())
	require.NoError(t, err)

	// Input must not be mutated.
	require.Equal(t, in, samples)

	burstKept := rms(out.Samples[0][burstStart+rate/20:burstEnd-rate/20]) /
		rms(in[burstStart+rate/20:burstEnd-rate/20])
	floorKept := rms(out.Samples[0][:rate/2]) / rms(in[:rate/2])

	require.Greater(t, burstKept, 0.5)
	require.Less(t, floorKept, 0.3)
}

func TestReduceZeroOptionsGateLikeDefaults(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	buf := &types.Buffer{Samples: [][]float64{noise(rng, 16000, 0.05)}, SampleRate: 16000}

	fromZero, err := Reduce(buf, Options{})
	require.NoError(t, err)

	fromDefaults, err := Reduce(buf, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, fromDefaults.Samples, fromZero.Samples)
	require.Less(t, rms(fromZero.Samples[0]), 0.5*rms(buf.Samples[0]))
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, Options{}.Validate())

	opts := DefaultOptions()
	require.NoError(t, opts.Validate())

	opts.PropDecrease = 1.5
	require.ErrorIs(t, opts.Validate(), errOptions)

	opts = DefaultOptions()
	opts.NFFT = 1000
	require.ErrorIs(t, opts.Validate(), errOptions)

	_, err := Reduce(&types.Buffer{Samples: [][]float64{{1}}, SampleRate: 8000}, Options{NFFT: 1000})
	require.ErrorIs(t, err, errOptions)
}

func TestTriangleKernel(t *testing.T) {
	require.Equal(t, []float64{1}, triangle(0))

	kernel := triangle(2)
	require.Len(t, kernel, 5)
	require.InDeltaSlice(t, []float64{1.0 / 9, 2.0 / 9, 3.0 / 9, 2.0 / 9, 1.0 / 9}, kernel, 1e-12)
}

func TestSmoothingSpan(t *testing.T) {
	// 16 kHz with a 1024-point FFT gives 31.25 Hz per bin.
	require.Equal(t, 16, smoothingSpan(500, 16000.0/512))
	// 256-sample hop at 16 kHz is 16 ms per frame.
	require.Equal(t, 3, smoothingSpan(50, 16))
	require.Equal(t, 0, smoothingSpan(50, 0))
}

func TestConvolveSame(t *testing.T) {
	out := convolveSame([]float64{0, 0, 1, 0, 0}, []float64{0.25, 0.5, 0.25})
	require.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.25, 0}, out, 1e-12)

	out = convolveSame([]float64{1, 1, 1}, []float64{0.25, 0.5, 0.25})
	require.InDeltaSlice(t, []float64{1, 1, 1}, out, 1e-12)
}
