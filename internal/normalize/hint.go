package normalize

import (
	"mime"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ContainerWAV  = "wav"
	ContainerOgg  = "ogg"
	ContainerWebM = "webm"
	ContainerMP3  = "mp3"
	// ContainerS16LE is headerless signed 16-bit little-endian PCM.
	ContainerS16LE = "s16le"
	// ContainerL16 is headerless signed 16-bit big-endian PCM (RFC 2586).
	ContainerL16 = "l16"

	DefaultRawRate     = 16000
	DefaultRawChannels = 1
)

// Hint tells the normalizer what container the bytes claim to be.
// Rate and Channels only matter for raw PCM, which carries no header.
type Hint struct {
	Container string
	Rate      int
	Channels  int
}

// Raw reports whether the hint designates headerless PCM.
func (h Hint) Raw() bool {
	return h.Container == ContainerS16LE || h.Container == ContainerL16
}

func (h Hint) String() string {
	if h.Container == "" {
		return "unknown"
	}

	return h.Container
}

func (h Hint) withRawDefaults() Hint {
	if h.Rate <= 0 {
		h.Rate = DefaultRawRate
	}

	if h.Channels <= 0 {
		h.Channels = DefaultRawChannels
	}

	return h
}

// HintFromFilename derives the container from a file extension. Only the extension is looked at.
func HintFromFilename(name string) Hint {
	return Hint{Container: ParseContainer(filepath.Ext(name))}
}

// ParseContainer canonicalizes a container name or extension, folding common aliases.
func ParseContainer(name string) string {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")

	switch name {
	case "wave":
		return ContainerWAV
	case "oga":
		return ContainerOgg
	case "pcm", "raw":
		return ContainerS16LE
	}

	return name
}

//nolint:gochecknoglobals // lookup table, effectively const
var mimeContainers = map[string]string{
	"audio/wav":       ContainerWAV,
	"audio/wave":      ContainerWAV,
	"audio/x-wav":     ContainerWAV,
	"audio/vnd.wave":  ContainerWAV,
	"audio/ogg":       ContainerOgg,
	"audio/vorbis":    ContainerOgg,
	"application/ogg": ContainerOgg,
	"audio/webm":      ContainerWebM,
	"video/webm":      ContainerWebM,
	"audio/mpeg":      ContainerMP3,
	"audio/mp3":       ContainerMP3,
	"audio/l16":       ContainerL16,
	"audio/pcm":       ContainerS16LE,
	"audio/x-raw":     ContainerS16LE,
}

// HintFromMIME derives the container from a declared media type.
// Raw PCM types read their rate and channels parameters.
func HintFromMIME(mediaType string) Hint {
	parsed, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return Hint{}
	}

	container, ok := mimeContainers[parsed]
	if !ok {
		if sub, found := strings.CutPrefix(parsed, "audio/"); found {
			container = sub
		}
	}

	hint := Hint{Container: container}
	if hint.Raw() {
		hint.Rate, _ = strconv.Atoi(params["rate"])
		hint.Channels, _ = strconv.Atoi(params["channels"])
	}

	return hint
}
