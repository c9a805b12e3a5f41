package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	bin "github.com/farcloser/acoustica/internal/integration/binary"
	"github.com/farcloser/acoustica/internal/types"
)

func TestBitDepthToSpec(t *testing.T) {
	require.Equal(t, "s16le", bitDepthToSpec(types.Depth16))
	require.Equal(t, "s24le", bitDepthToSpec(types.Depth24))
	require.Equal(t, "s32le", bitDepthToSpec(types.Depth32))
	require.Equal(t, "pcm_s32le", bitDepthToCodec(types.Depth32))
}

func sineS16(rate, frames int, freq float64) []byte {
	out := make([]byte, frames*2)
	for i := range frames {
		v := int16(0.5 * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v)) //nolint:gosec // two's complement
	}

	return out
}

func TestEncodeThenExtract(t *testing.T) {
	if _, ok := bin.Available(name); !ok {
		t.Skip("ffmpeg not available")
	}

	ctx := context.Background()

	var mp3 bytes.Buffer
	require.NoError(t, EncodeMP3(ctx, bytes.NewReader(sineS16(16000, 16000, 440)), &mp3, 16000, 1))
	require.NotZero(t, mp3.Len())

	var pcm bytes.Buffer
	require.NoError(t, ExtractStream(ctx, &mp3, &pcm, &types.PCMFormat{BitDepth: types.Depth32}))
	// The encoder pads, so at least the input length comes back.
	require.GreaterOrEqual(t, pcm.Len()/4, 16000)
}

func TestExtractGarbageFails(t *testing.T) {
	if _, ok := bin.Available(name); !ok {
		t.Skip("ffmpeg not available")
	}

	var pcm bytes.Buffer
	err := ExtractStream(context.Background(), bytes.NewReader([]byte("definitely not audio")), &pcm,
		&types.PCMFormat{BitDepth: types.Depth32})
	require.Error(t, err)
}
