package acoustica

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/farcloser/acoustica/internal/encode"
	"github.com/farcloser/acoustica/internal/normalize"
	"github.com/farcloser/acoustica/internal/types"
)

var (
	// ErrFormat reports an upload that could not be decoded or transcoded.
	ErrFormat = errors.New("audio format conversion failed")
	// ErrEmptySignal reports audio that decoded to zero samples.
	ErrEmptySignal = types.ErrEmptySignal
	// ErrEncoding reports a result whose audio or images could not be encoded. Numbers are still valid.
	ErrEncoding = encode.ErrEncoding
	// ErrExtraction reports an unexpected numeric failure, typically a malformed buffer.
	ErrExtraction = errors.New("feature extraction failed")
)

// IsFormatError reports whether err is an undecodable input.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}

// IsEmptySignal reports whether err is an input without samples.
func IsEmptySignal(err error) bool {
	return errors.Is(err, ErrEmptySignal)
}

// IsExtraction reports whether err is an extraction failure.
func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}

// FormatContainer returns the container named by a format error, or "" for any other error.
func FormatContainer(err error) string {
	var formatErr *normalize.FormatError
	if errors.As(err, &formatErr) {
		return formatErr.Container
	}

	return ""
}

// classify maps component errors onto the exported taxonomy.
func classify(err error) error {
	var formatErr *normalize.FormatError

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEmptySignal):
		return err
	case errors.As(err, &formatErr):
		return fmt.Errorf("%w: %w", ErrFormat, err)
	default:
		// Malformed buffers, invalid options and numeric faults from every stage.
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
}

// encodingMessages flattens an aggregated encoding error into one message per failure.
func encodingMessages(err error) []string {
	var mErr *multierror.Error
	if !errors.As(err, &mErr) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(mErr.Errors))
	for _, e := range mErr.Errors {
		out = append(out, e.Error())
	}

	return out
}
