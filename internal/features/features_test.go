package features_test

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/acoustica/internal/features"
	"github.com/farcloser/acoustica/internal/types"
)

func sine(freq, amplitude float64, rate, frames, channels int) *types.Buffer {
	buf := &types.Buffer{Samples: make([][]float64, channels), SampleRate: rate}
	for ch := range channels {
		buf.Samples[ch] = make([]float64, frames)
		for i := range frames {
			buf.Samples[ch][i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		}
	}

	return buf
}

func silence(rate, frames int) *types.Buffer {
	return &types.Buffer{Samples: [][]float64{make([]float64, frames)}, SampleRate: rate}
}

func scalarOptions() features.Options {
	opts := features.DefaultOptions()
	opts.NoImages = true

	return opts
}

func TestPitchOfSine(t *testing.T) {
	for _, freq := range []float64{110, 220, 440, 1000} {
		fs, err := features.Scalars(sine(freq, 0.5, 16000, 32000, 1), scalarOptions())
		require.NoError(t, err)
		require.True(t, fs.Pitch.Available, "%v Hz", freq)
		assert.InDelta(t, freq, fs.Pitch.Hz, 5, "%v Hz", freq)
	}
}

func TestPitchAtHighSampleRate(t *testing.T) {
	fs, err := features.Scalars(sine(100, 0.5, 96000, 96000, 1), scalarOptions())
	require.NoError(t, err)
	require.True(t, fs.Pitch.Available)
	assert.InDelta(t, 100, fs.Pitch.Hz, 2)
}

func offset(buf *types.Buffer, dc float64) *types.Buffer {
	for _, ch := range buf.Samples {
		for i := range ch {
			ch[i] += dc
		}
	}

	return buf
}

func TestPitchStaysInRange(t *testing.T) {
	opts := scalarOptions()

	for _, freq := range []float64{20, 30, 40, 3000} {
		for _, dc := range []float64{0, 0.1} {
			fs, err := features.Scalars(offset(sine(freq, 0.5, 16000, 32000, 1), dc), opts)
			require.NoError(t, err)

			if fs.Pitch.Available {
				assert.GreaterOrEqual(t, fs.Pitch.Hz, opts.PitchMinHz, "%v Hz, dc %v", freq, dc)
				assert.LessOrEqual(t, fs.Pitch.Hz, opts.PitchMaxHz, "%v Hz, dc %v", freq, dc)
			}
		}
	}
}

func TestPitchIgnoresDC(t *testing.T) {
	constant := &types.Buffer{Samples: [][]float64{make([]float64, 32000)}, SampleRate: 16000}

	fs, err := features.Scalars(offset(constant, 0.3), scalarOptions())
	require.NoError(t, err)
	assert.False(t, fs.Pitch.Available)

	fs, err = features.Scalars(offset(sine(440, 0.5, 16000, 32000, 1), 0.1), scalarOptions())
	require.NoError(t, err)
	require.True(t, fs.Pitch.Available)
	assert.InDelta(t, 440, fs.Pitch.Hz, 5)
}

func TestSilence(t *testing.T) {
	fs, err := features.Scalars(silence(16000, 16000), scalarOptions())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, fs.Duration, 0)
	assert.Zero(t, fs.NoiseLevel)
	assert.InDelta(t, -200.0, fs.LoudnessDB, 0)
	assert.False(t, fs.Pitch.Available)
}

func TestNoiseHasNoPitch(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	buf := silence(16000, 16000)
	for i := range buf.Samples[0] {
		buf.Samples[0][i] = rng.Float64()*0.2 - 0.1
	}

	fs, err := features.Scalars(buf, scalarOptions())
	require.NoError(t, err)
	assert.False(t, fs.Pitch.Available)
	assert.Positive(t, fs.NoiseLevel)
}

func TestLoudnessIsFinite(t *testing.T) {
	buf := silence(8000, 8000)
	buf.Samples[0][4000] = 1.0 / 32768

	fs, err := features.Scalars(buf, scalarOptions())
	require.NoError(t, err)
	assert.False(t, math.IsInf(fs.LoudnessDB, 0))
	assert.Greater(t, fs.LoudnessDB, -200.0)
}

func TestNumbersAreRounded(t *testing.T) {
	fs, err := features.Scalars(sine(440, 0.5, 16000, 16001, 1), scalarOptions())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, fs.Duration, 0)
	// Population std of a sine is amplitude/sqrt(2).
	assert.InDelta(t, 0.3536, fs.NoiseLevel, 1e-4)
	assert.InDelta(t, math.Round(fs.NoiseLevel*1e4)/1e4, fs.NoiseLevel, 0)
	assert.InDelta(t, math.Round(fs.LoudnessDB*100)/100, fs.LoudnessDB, 0)
}

func TestDurationMatchesFrames(t *testing.T) {
	for _, tc := range []struct{ rate, frames int }{
		{8000, 1}, {16000, 12345}, {44100, 44100 * 3}, {22050, 999},
	} {
		fs, err := features.Scalars(silence(tc.rate, tc.frames), scalarOptions())
		require.NoError(t, err)

		tolerance := 0.005*float64(tc.rate) + 1
		assert.InDelta(t, float64(tc.frames), fs.Duration*float64(tc.rate), tolerance)
	}
}

func TestPooledStatistics(t *testing.T) {
	buf := silence(8000, 8000)
	buf.Samples = append(buf.Samples, make([]float64, 8000))

	for i := range buf.Samples[1] {
		buf.Samples[1][i] = 0.5
	}

	fs, err := features.Scalars(buf, scalarOptions())
	require.NoError(t, err)
	// Half zeros, half 0.5: mean 0.25, std 0.25, mean |x| 0.25.
	assert.InDelta(t, 0.25, fs.NoiseLevel, 0)
	assert.InDelta(t, math.Round(20*math.Log10(0.25)*100)/100, fs.LoudnessDB, 0)
	// Pitch uses channel 0, which is silent.
	assert.False(t, fs.Pitch.Available)
}

func TestExtractImages(t *testing.T) {
	opts := features.DefaultOptions()
	opts.Render.Width, opts.Render.Height = 300, 120

	fs, err := features.Extract(sine(440, 0.5, 16000, 8000, 2), opts)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(fs.Spectrogram, []byte("\x89PNG")))
	assert.True(t, bytes.HasPrefix(fs.Waveform, []byte("\x89PNG")))

	fs, err = features.Extract(sine(440, 0.5, 16000, 8000, 1), scalarOptions())
	require.NoError(t, err)
	assert.Nil(t, fs.Spectrogram)
	assert.Nil(t, fs.Waveform)
}

func TestDeterminism(t *testing.T) {
	buf := sine(330, 0.3, 22050, 22050, 1)

	first, err := features.Scalars(buf, scalarOptions())
	require.NoError(t, err)

	second, err := features.Scalars(buf.Clone(), scalarOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestErrors(t *testing.T) {
	_, err := features.Scalars(silence(16000, 0), scalarOptions())
	require.ErrorIs(t, err, types.ErrEmptySignal)

	_, err = features.Scalars(&types.Buffer{Samples: [][]float64{{0, 1}, {0}}, SampleRate: 8000}, scalarOptions())
	require.ErrorIs(t, err, features.ErrExtraction)
	require.ErrorIs(t, err, types.ErrMalformedBuffer)

	_, err = features.Scalars(silence(0, 10), scalarOptions())
	require.ErrorIs(t, err, features.ErrExtraction)

	buf := silence(8000, 8000)
	buf.Samples[0][10] = math.NaN()
	_, err = features.Scalars(buf, scalarOptions())
	require.ErrorIs(t, err, features.ErrExtraction)

	opts := scalarOptions()
	opts.PitchMinHz, opts.PitchMaxHz = 500, 100
	require.Error(t, opts.Validate())
	_, err = features.Scalars(silence(8000, 10), opts)
	require.ErrorIs(t, err, features.ErrExtraction)
}
