package output_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farcloser/acoustica"
	"github.com/farcloser/acoustica/internal/output"
	"github.com/farcloser/acoustica/internal/types"
)

func sample() *acoustica.Result {
	return &acoustica.Result{
		Raw: &acoustica.Variant{
			AudioData:     "UklGRg==",
			FileExtension: ".wav",
			Duration:      2,
			NoiseLevel:    0.3536,
			Loudness:      -9.1,
			Pitch:         types.Pitch{Hz: 440.12, Available: true},
			Spectrogram:   "iVBO",
		},
		Denoised: &acoustica.Variant{
			Duration:       2,
			EncodingErrors: []string{"audio: boom"},
		},
	}
}

func TestResultToMap(t *testing.T) {
	meta := output.ResultToMap(sample(), output.Fields{})
	assert.NotContains(t, meta, "denoised")

	raw, ok := meta["raw"].(map[string]any)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, raw["duration"], 0)
	assert.NotContains(t, raw, "spectrogram")

	meta = output.ResultToMap(sample(), output.Fields{Denoised: true, Images: true})
	raw, _ = meta["raw"].(map[string]any)
	assert.Equal(t, "iVBO", raw["spectrogram"])
	assert.Equal(t, ".wav", raw["file_extension"])

	denoised, ok := meta["denoised"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, []string{"audio: boom"}, denoised["encoding_errors"])
}

func TestFriendlyResult(t *testing.T) {
	meta := output.FriendlyResult(sample(), output.Fields{Denoised: true})

	raw, _ := meta["raw"].(map[string]any)
	assert.Equal(t, "2.00 s", raw["duration"])
	assert.Equal(t, "440.12 Hz", raw["pitch"])
	assert.Equal(t, "-9.10 dB", raw["loudness"])

	denoised, _ := meta["denoised"].(map[string]any)
	assert.Equal(t, "unavailable", denoised["pitch"])
}
