package ffmpeg

import (
	"strconv"

	"github.com/farcloser/acoustica/internal/types"
)

// bitDepthToSpec maps a bit depth to the matching ffmpeg raw format (32 = s32le, 24 = s24le, 16 = s16le).
func bitDepthToSpec(bitDepth types.BitDepth) string {
	//nolint:gosec // we fine, gosec
	return "s" + strconv.Itoa(int(bitDepth)) + "le"
}

// bitDepthToCodec maps a bit depth to the matching pcm codec name.
func bitDepthToCodec(bitDepth types.BitDepth) string {
	return "pcm_" + bitDepthToSpec(bitDepth)
}
