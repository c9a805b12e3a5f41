package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/farcloser/acoustica"
	"github.com/farcloser/acoustica/internal/encode"
	"github.com/farcloser/acoustica/internal/normalize"
)

const (
	defaultListen    = ":8000"
	defaultMaxUpload = 100 << 20

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	wsWriteTimeout    = 10 * time.Second
)

var errConfig = errors.New("invalid server configuration")

// Config is everything the service needs to run.
type Config struct {
	Listen string
	// MaxUpload bounds an uploaded file, and each websocket message, in bytes.
	MaxUpload int64
	// StreamFormat is the container assumed for websocket audio when the client does not name one.
	StreamFormat string
	Options      acoustica.Options
}

func DefaultConfig() Config {
	return Config{
		Listen:       defaultListen,
		MaxUpload:    defaultMaxUpload,
		StreamFormat: normalize.ContainerWebM,
		Options:      acoustica.DefaultOptions(),
	}
}

// Validate reports unusable settings.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: empty listen address", errConfig)
	}

	if c.MaxUpload <= 0 {
		return fmt.Errorf("%w: max upload must be positive, got %d", errConfig, c.MaxUpload)
	}

	if c.StreamFormat == "" {
		return fmt.Errorf("%w: empty stream format", errConfig)
	}

	if _, err := encode.ParseFormat(string(c.Options.AudioFormat)); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	if err := c.Options.Denoise.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	if err := c.Options.Features.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	return nil
}
