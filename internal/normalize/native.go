package normalize

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/jfreymuth/oggvorbis"

	"github.com/farcloser/acoustica/internal/pcm"
	"github.com/farcloser/acoustica/internal/types"
)

const wavFormatPCM = 1

func decodeWAV(data []byte) (*types.Buffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))

	decoder.ReadInfo()

	if err := decoder.Err(); err != nil {
		return nil, err
	}

	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav format tag %#x", errNotCanonical, decoder.WavAudioFormat)
	}

	var divisor float64

	switch types.BitDepth(decoder.BitDepth) {
	case types.Depth16:
		divisor = pcm.MaxValue16
	case types.Depth24:
		divisor = pcm.MaxValue24
	case types.Depth32:
		divisor = pcm.MaxValue32
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", errNotCanonical, decoder.BitDepth)
	}

	if decoder.NumChans == 0 || decoder.SampleRate == 0 {
		return nil, fmt.Errorf("%w: missing fmt chunk", errNotCanonical)
	}

	intBuf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	numChannels := int(decoder.NumChans)
	frames := len(intBuf.Data) / numChannels

	buf := &types.Buffer{
		Samples:    make([][]float64, numChannels),
		SampleRate: int(decoder.SampleRate),
	}

	for ch := range numChannels {
		buf.Samples[ch] = make([]float64, frames)
	}

	for i, v := range intBuf.Data[:frames*numChannels] {
		buf.Samples[i%numChannels][i/numChannels] = float64(v) / divisor
	}

	return buf, nil
}

func decodeVorbis(data []byte) (*types.Buffer, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid vorbis header", errNotCanonical)
	}

	frames := len(samples) / format.Channels

	buf := &types.Buffer{
		Samples:    make([][]float64, format.Channels),
		SampleRate: format.SampleRate,
	}

	for ch := range format.Channels {
		buf.Samples[ch] = make([]float64, frames)
	}

	for i, v := range samples[:frames*format.Channels] {
		buf.Samples[i%format.Channels][i/format.Channels] = float64(v)
	}

	return buf, nil
}
