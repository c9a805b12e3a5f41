// Package encode turns buffers and rendered plots into transport-ready payloads.
package encode

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/farcloser/acoustica/internal/integration/ffmpeg"
	"github.com/farcloser/acoustica/internal/pcm"
	"github.com/farcloser/acoustica/internal/types"
)

const (
	wavBitDepth  = 16
	wavFormatPCM = 1
)

// Audio encodes buf in the requested container and returns the bytes with their file extension.
func Audio(ctx context.Context, buf *types.Buffer, format Format) ([]byte, string, error) {
	switch format {
	case FormatWAV:
		data, err := WAV(buf)

		return data, format.Extension(), err
	case FormatMP3:
		var out bytes.Buffer

		err := ffmpeg.EncodeMP3(ctx, bytes.NewReader(pcm.EncodeS16LE(buf)), &out, buf.SampleRate, buf.Channels())

		return out.Bytes(), format.Extension(), err
	default:
		return nil, "", fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

// WAV writes buf as 16-bit PCM wav.
func WAV(buf *types.Buffer) ([]byte, error) {
	out := &memFile{}
	encoder := wav.NewEncoder(out, buf.SampleRate, wavBitDepth, buf.Channels(), wavFormatPCM)

	intBuf := &audio.IntBuffer{
		Data: pcm.Interleave16(buf),
		Format: &audio.Format{
			NumChannels: buf.Channels(),
			SampleRate:  buf.SampleRate,
		},
		SourceBitDepth: wavBitDepth,
	}

	if err := encoder.Write(intBuf); err != nil {
		return nil, fmt.Errorf("writing wav samples: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}

	return out.Bytes(), nil
}
