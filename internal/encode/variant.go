package encode

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/farcloser/acoustica/internal/types"
)

var (
	// ErrEncoding marks a Variant whose audio or images could not be encoded.
	ErrEncoding     = errors.New("artifact encoding failed")
	errImageMissing = errors.New("image was not rendered")
)

// Encoded is one analysed signal in transport form.
type Encoded struct {
	Audio       string // base64
	Extension   string
	Spectrogram string // base64 PNG
	Waveform    string // base64 PNG
}

// Variant encodes the audio and, when images is set, both plots of one signal.
// Failures do not stop the other payloads: whatever succeeded is returned alongside an error
// wrapping ErrEncoding and a *multierror.Error listing what did not.
func Variant(
	ctx context.Context,
	buf *types.Buffer,
	features *types.FeatureSet,
	format Format,
	images bool,
) (*Encoded, error) {
	out := &Encoded{Extension: format.Extension()}

	var mErr *multierror.Error

	data, ext, err := Audio(ctx, buf, format)
	if err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("audio: %w", err))
	} else {
		out.Audio = base64.StdEncoding.EncodeToString(data)
		out.Extension = ext
	}

	if !images {
		return out, wrapEncoding(mErr)
	}

	if len(features.Spectrogram) > 0 {
		out.Spectrogram = Image(features.Spectrogram)
	} else {
		mErr = multierror.Append(mErr, fmt.Errorf("spectrogram: %w", errImageMissing))
	}

	if len(features.Waveform) > 0 {
		out.Waveform = Image(features.Waveform)
	} else {
		mErr = multierror.Append(mErr, fmt.Errorf("waveform: %w", errImageMissing))
	}

	return out, wrapEncoding(mErr)
}

func wrapEncoding(mErr *multierror.Error) error {
	if err := mErr.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return nil
}
