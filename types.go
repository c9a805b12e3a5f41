package acoustica

import (
	"fmt"
	"strings"

	"github.com/farcloser/acoustica/internal/denoise"
	"github.com/farcloser/acoustica/internal/encode"
	"github.com/farcloser/acoustica/internal/features"
	"github.com/farcloser/acoustica/internal/normalize"
	"github.com/farcloser/acoustica/internal/types"
)

// Options configures the pipeline.
type Options struct {
	Normalize normalize.Options
	Denoise   denoise.Options
	Features  features.Options
	// AudioFormat is the container the processed audio is returned in (default: mp3).
	AudioFormat encode.Format
}

// DefaultOptions returns the options used by the service.
func DefaultOptions() Options {
	return Options{
		Normalize:   normalize.DefaultOptions(),
		Denoise:     denoise.DefaultOptions(),
		Features:    features.DefaultOptions(),
		AudioFormat: encode.FormatMP3,
	}
}

// Variant is one analysed signal: its audio in transport form and its descriptors.
type Variant struct {
	AudioData     string      `json:"audio_data"` // base64
	FileExtension string      `json:"file_extension"`
	Duration      float64     `json:"duration"`    // seconds
	NoiseLevel    float64     `json:"noise_level"` // standard deviation of amplitude
	Loudness      float64     `json:"loudness"`    // dB, floored at -200
	Pitch         types.Pitch `json:"pitch"`
	Spectrogram   string      `json:"spectrogram"`   // base64 PNG
	WaveformPlot  string      `json:"waveform_plot"` // base64 PNG

	// EncodingErrors is set when some payloads could not be encoded; the numbers are still valid.
	EncodingErrors []string `json:"encoding_errors,omitempty"`
}

// Result pairs the analysis of the uploaded signal with that of its denoised version.
type Result struct {
	Raw      *Variant `json:"raw"`
	Denoised *Variant `json:"denoised"`
}

// Partial reports whether any payload of either variant failed to encode.
func (r *Result) Partial() bool {
	return len(r.Raw.EncodingErrors) > 0 || len(r.Denoised.EncodingErrors) > 0
}

// EncodingErr returns an error wrapping ErrEncoding that lists every encoding failure, or nil.
func (r *Result) EncodingErr() error {
	if !r.Partial() {
		return nil
	}

	var failures []string

	for _, msg := range r.Raw.EncodingErrors {
		failures = append(failures, "raw: "+msg)
	}

	for _, msg := range r.Denoised.EncodingErrors {
		failures = append(failures, "denoised: "+msg)
	}

	return fmt.Errorf("%w: %s", ErrEncoding, strings.Join(failures, "; "))
}
