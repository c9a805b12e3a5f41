package ffmpeg

import "time"

const (
	name = "ffmpeg"
	// Long uploads decoded from slow containers need headroom.
	timeout = 120 * time.Second

	mp3Codec    = "libmp3lame"
	mp3Bitrate  = "128k"
	s16Spec     = "s16le"
	logLevelArg = "error"
)
