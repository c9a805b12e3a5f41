//nolint:tagliatelle
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/acoustica/internal/integration/binary"
	"github.com/farcloser/acoustica/internal/logging"
)

var errNoAudioStream = errors.New("no audio stream found")

// Result contains the marshalled output of ffprobe.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream holds the per-stream fields needed to decode audio.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`               // opus
	CodecType     string `json:"codec_type"`               // audio
	SampleRate    string `json:"sample_rate,omitempty"`    // 48000
	Channels      int    `json:"channels,omitempty"`       // 2
	ChannelLayout string `json:"channel_layout,omitempty"` // stereo
	Duration      string `json:"duration,omitempty"`       // 12.345000, often absent for webm
	SampleFmt     string `json:"sample_fmt,omitempty"`     // fltp
}

// Format is container-level information.
type Format struct {
	FormatName string `json:"format_name"`        // "matroska,webm", "mov,mp4,m4a,3gp,3g2,mj2"
	Duration   string `json:"duration,omitempty"` // seconds as float string
	ProbeScore int    `json:"probe_score"`        // 100 = certain, lower = guessed
}

// Audio returns the first audio stream, with its sample rate parsed.
func (r *Result) Audio() (*Stream, int, error) {
	for i := range r.Streams {
		if r.Streams[i].CodecType != "audio" {
			continue
		}

		rate, err := strconv.Atoi(r.Streams[i].SampleRate)
		if err != nil || rate <= 0 {
			return nil, 0, fmt.Errorf("invalid sample rate from probe: %q", r.Streams[i].SampleRate)
		}

		if r.Streams[i].Channels <= 0 {
			return nil, 0, fmt.Errorf("invalid channel count from probe: %d", r.Streams[i].Channels)
		}

		return &r.Streams[i], rate, nil
	}

	return nil, 0, errNoAudioStream
}

// Probe runs ffprobe over data fed on stdin and returns parsed metadata.
// It requires ffprobe to be available in the system PATH.
func Probe(ctx context.Context, input io.Reader) (*Result, error) {
	logging.DebugwCtx(ctx, "ffprobe.Probe", "stage", "start")

	ffprobePath, found := binary.Available(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-",
	)

	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	var result Result
	if err = json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	return &result, nil
}
