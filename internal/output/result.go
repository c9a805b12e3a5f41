// Package output provides shared result serialization for acoustica CLI output.
package output

import (
	"fmt"

	"github.com/farcloser/acoustica"
)

// Fields selects the optional parts of a serialized result.
type Fields struct {
	Denoised bool // include the denoised variant
	Images   bool // include base64 images and audio
}

// ResultToMap converts an analysis result into the canonical map structure
// used for JSON serialization. Numbers are kept as numbers.
func ResultToMap(result *acoustica.Result, fields Fields) map[string]any {
	meta := map[string]any{
		"raw": VariantToMap(result.Raw, fields.Images),
	}

	if fields.Denoised {
		meta["denoised"] = VariantToMap(result.Denoised, fields.Images)
	}

	return meta
}

// VariantToMap converts one variant.
func VariantToMap(variant *acoustica.Variant, images bool) map[string]any {
	out := map[string]any{
		"duration":    variant.Duration,
		"noise_level": variant.NoiseLevel,
		"loudness":    variant.Loudness,
		"pitch":       variant.Pitch,
	}

	if images {
		out["audio_data"] = variant.AudioData
		out["file_extension"] = variant.FileExtension
		out["spectrogram"] = variant.Spectrogram
		out["waveform_plot"] = variant.WaveformPlot
	}

	if len(variant.EncodingErrors) > 0 {
		out["encoding_errors"] = variant.EncodingErrors
	}

	return out
}

// FriendlyResult renders the descriptors as human-readable strings.
func FriendlyResult(result *acoustica.Result, fields Fields) map[string]any {
	meta := map[string]any{
		"raw": friendlyVariant(result.Raw),
	}

	if fields.Denoised {
		meta["denoised"] = friendlyVariant(result.Denoised)
	}

	return meta
}

func friendlyVariant(variant *acoustica.Variant) map[string]any {
	out := map[string]any{
		"duration":    fmt.Sprintf("%.2f s", variant.Duration),
		"noise_level": fmt.Sprintf("%.4f", variant.NoiseLevel),
		"loudness":    fmt.Sprintf("%.2f dB", variant.Loudness),
		"pitch":       variant.Pitch.String(),
	}

	if len(variant.EncodingErrors) > 0 {
		out["encoding_errors"] = variant.EncodingErrors
	}

	return out
}
