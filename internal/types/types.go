package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrEmptySignal is returned when decoded audio holds no samples.
	ErrEmptySignal = errors.New("audio contains no samples")
	// ErrMalformedBuffer is returned when a Buffer breaks its shape invariants.
	ErrMalformedBuffer = errors.New("malformed audio buffer")
)

type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// PCMFormat describes interleaved signed little-endian PCM.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
	// BigEndian is only honored for 16-bit (audio/L16 network byte order).
	BigEndian bool
}

// Buffer is decoded audio, one slice per channel, normalized to [-1, 1].
type Buffer struct {
	Samples    [][]float64
	SampleRate int
}

// Channels returns the channel count.
func (b *Buffer) Channels() int {
	return len(b.Samples)
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Samples) == 0 {
		return 0
	}

	return len(b.Samples[0])
}

// Validate checks that the sample rate is positive and all channels have equal length.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrMalformedBuffer)
	}

	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrMalformedBuffer, b.SampleRate)
	}

	if len(b.Samples) == 0 {
		return fmt.Errorf("%w: no channels", ErrMalformedBuffer)
	}

	frames := len(b.Samples[0])
	for i, ch := range b.Samples {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d samples, expected %d", ErrMalformedBuffer, i, len(ch), frames)
		}
	}

	return nil
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Samples:    make([][]float64, len(b.Samples)),
		SampleRate: b.SampleRate,
	}

	for i, ch := range b.Samples {
		out.Samples[i] = append([]float64(nil), ch...)
	}

	return out
}

// PitchUnavailable is the wire form of a pitch that could not be estimated.
const PitchUnavailable = "unavailable"

// Pitch is an optional fundamental frequency estimate.
type Pitch struct {
	Hz        float64
	Available bool
}

// MarshalJSON renders the estimate as a number, or the "unavailable" string.
func (p Pitch) MarshalJSON() ([]byte, error) {
	if !p.Available {
		return json.Marshal(PitchUnavailable)
	}

	return json.Marshal(p.Hz)
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (p *Pitch) UnmarshalJSON(data []byte) error {
	var hz float64
	if err := json.Unmarshal(data, &hz); err == nil {
		*p = Pitch{Hz: hz, Available: true}

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s != PitchUnavailable {
		return fmt.Errorf("unexpected pitch value %q", s)
	}

	*p = Pitch{}

	return nil
}

func (p Pitch) String() string {
	if !p.Available {
		return PitchUnavailable
	}

	return fmt.Sprintf("%.2f Hz", p.Hz)
}

// FeatureSet contains the descriptors computed for one signal.
type FeatureSet struct {
	Duration    float64 // seconds
	NoiseLevel  float64 // standard deviation of amplitude
	LoudnessDB  float64 // 20*log10 of mean absolute amplitude, floored
	Pitch       Pitch
	Spectrogram []byte // PNG
	Waveform    []byte // PNG
}
