// Package pcm converts between raw interleaved integer PCM and normalized float buffers.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/farcloser/acoustica/internal/types"
)

const (
	MaxValue16 = 32768.0      // 2^15, 16-bit signed PCM normalization divisor
	MaxValue24 = 8388608.0    // 2^23, 24-bit signed PCM normalization divisor
	MaxValue32 = 2147483648.0 // 2^31, 32-bit signed PCM normalization divisor
)

var (
	errUnsupportedDepth = errors.New("unsupported bit depth")
	errNoChannels       = errors.New("channel count must be positive")
	errNoSampleRate     = errors.New("sample rate must be positive")
)

// Decode deinterleaves raw PCM into a Buffer. A trailing partial frame is dropped.
func Decode(data []byte, format types.PCMFormat) (*types.Buffer, error) {
	if format.Channels == 0 {
		return nil, errNoChannels
	}

	if format.SampleRate <= 0 {
		return nil, errNoSampleRate
	}

	bytesPerSample := int(format.BitDepth / 8) //nolint:gosec // bit depth and channel count are small constants
	numChannels := int(format.Channels)        //nolint:gosec // channel count is small

	switch format.BitDepth {
	case types.Depth16, types.Depth24, types.Depth32:
	default:
		return nil, fmt.Errorf("%w: %d", errUnsupportedDepth, format.BitDepth)
	}

	frameSize := bytesPerSample * numChannels
	frames := len(data) / frameSize

	buf := &types.Buffer{
		Samples:    make([][]float64, numChannels),
		SampleRate: format.SampleRate,
	}
	for ch := range numChannels {
		buf.Samples[ch] = make([]float64, frames)
	}

	data = data[:frames*frameSize]

	switch format.BitDepth {
	case types.Depth16:
		order := binary.ByteOrder(binary.LittleEndian)
		if format.BigEndian {
			order = binary.BigEndian
		}

		for i := 0; i < len(data); i += 2 {
			idx := i / 2
			buf.Samples[idx%numChannels][idx/numChannels] = float64(int16(order.Uint16(data[i:]))) / MaxValue16 //nolint:gosec // two's complement conversion for signed PCM samples
		}
	case types.Depth24:
		for i := 0; i < len(data); i += 3 {
			idx := i / 3

			raw := int32(data[i]) | int32(data[i+1])<<8 | int32(data[i+2])<<16
			if raw&0x800000 != 0 {
				raw |= ^0xFFFFFF
			}

			buf.Samples[idx%numChannels][idx/numChannels] = float64(raw) / MaxValue24
		}
	case types.Depth32:
		for i := 0; i < len(data); i += 4 {
			idx := i / 4
			buf.Samples[idx%numChannels][idx/numChannels] = float64(int32(binary.LittleEndian.Uint32(data[i:]))) / MaxValue32 //nolint:gosec // two's complement conversion for signed PCM samples
		}
	default:
	}

	return buf, nil
}

// Quantize16 clamps a normalized sample and converts it to a signed 16-bit value.
func Quantize16(sample float64) int16 {
	v := math.Round(sample * MaxValue16)

	switch {
	case v > math.MaxInt16:
		v = math.MaxInt16
	case v < math.MinInt16:
		v = math.MinInt16
	}

	return int16(v)
}

// EncodeS16LE interleaves a Buffer into signed 16-bit little-endian PCM.
func EncodeS16LE(buf *types.Buffer) []byte {
	channels := buf.Channels()
	frames := buf.Frames()
	out := make([]byte, frames*channels*2)

	for frame := range frames {
		for ch := range channels {
			off := (frame*channels + ch) * 2
			binary.LittleEndian.PutUint16(out[off:], uint16(Quantize16(buf.Samples[ch][frame]))) //nolint:gosec // two's complement conversion for signed PCM samples
		}
	}

	return out
}

// Interleave16 flattens a Buffer into interleaved 16-bit integer samples.
func Interleave16(buf *types.Buffer) []int {
	channels := buf.Channels()
	frames := buf.Frames()
	out := make([]int, frames*channels)

	for frame := range frames {
		for ch := range channels {
			out[frame*channels+ch] = int(Quantize16(buf.Samples[ch][frame]))
		}
	}

	return out
}
