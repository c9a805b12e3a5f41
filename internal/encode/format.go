package encode

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the container the processed audio is shipped back in.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

var errUnknownFormat = errors.New("unknown audio format")

// ParseFormat accepts "mp3" or "wav", case-insensitively, with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")) {
	case FormatMP3:
		return FormatMP3, nil
	case FormatWAV:
		return FormatWAV, nil
	default:
		return "", fmt.Errorf("%w: %q (expected mp3 or wav)", errUnknownFormat, s)
	}
}

// Extension returns the file extension clients should use, dot included.
func (f Format) Extension() string {
	return "." + string(f)
}
