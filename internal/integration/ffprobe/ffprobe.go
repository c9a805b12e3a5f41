package ffprobe

import "time"

const (
	name = "ffprobe"
	// Uploads are probed from memory, so this only guards against a wedged process.
	timeout = 30 * time.Second
)
