// Package stream drives feature extraction over a live sequence of audio chunks.
//
// Every chunk is appended to the session buffer and the whole buffer is analysed again,
// so one message goes back per chunk received. No state is carried between analyses.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/farcloser/acoustica/internal/encode"
	"github.com/farcloser/acoustica/internal/features"
	"github.com/farcloser/acoustica/internal/logging"
	"github.com/farcloser/acoustica/internal/normalize"
	"github.com/farcloser/acoustica/internal/types"
)

var (
	// ErrClosed is returned by Conn.ReadChunk when the peer closed the connection cleanly.
	ErrClosed = errors.New("connection closed")

	errWrite = errors.New("cannot send result")
	errRead  = errors.New("cannot receive chunk")
)

// State is the lifecycle position of a Session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReceiving
	StateEmitting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReceiving:
		return "receiving"
	case StateEmitting:
		return "emitting"
	case StateClosed:
		return "closed"
	}

	return "unknown"
}

// Conn is a bidirectional message transport.
// ReadChunk returns io.EOF or ErrClosed on a clean disconnect.
type Conn interface {
	ReadChunk(ctx context.Context) ([]byte, error)
	WriteResult(ctx context.Context, msg any) error
	Close() error
}

// Analyzer computes descriptors for the bytes received so far.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, hint normalize.Hint) (*types.FeatureSet, error)
}

// Extractor is the Analyzer used by the service: decode, then extract.
type Extractor struct {
	Normalize normalize.Options
	Features  features.Options
}

// DefaultExtractor returns an Extractor producing numbers only.
func DefaultExtractor() Extractor {
	opts := features.DefaultOptions()
	opts.NoImages = true

	return Extractor{Normalize: normalize.DefaultOptions(), Features: opts}
}

func (e Extractor) Analyze(ctx context.Context, data []byte, hint normalize.Hint) (*types.FeatureSet, error) {
	buf, err := normalize.Normalize(ctx, data, hint, e.Normalize)
	if err != nil {
		return nil, err
	}

	return features.Extract(buf, e.Features)
}

// Message is sent for every chunk that could be analysed.
type Message struct {
	Chunk        int         `json:"chunk"`
	SessionID    string      `json:"session_id"`
	Duration     float64     `json:"duration"`
	NoiseLevel   float64     `json:"noise_level"`
	Loudness     float64     `json:"loudness"`
	Pitch        types.Pitch `json:"pitch"`
	Spectrogram  string      `json:"spectrogram,omitempty"`
	WaveformPlot string      `json:"waveform_plot,omitempty"`
}

// ErrorMessage is sent when the bytes received so far cannot be decoded yet.
type ErrorMessage struct {
	Error     string `json:"error"`
	Chunk     int    `json:"chunk"`
	SessionID string `json:"session_id"`
}

// Session owns one connection and the audio accumulated on it.
type Session struct {
	id       string
	conn     Conn
	analyzer Analyzer
	hint     normalize.Hint

	state  atomic.Int32
	buffer []byte
	chunks int
}

func NewSession(conn Conn, analyzer Analyzer, hint normalize.Hint) *Session {
	return &Session{
		id:       uuid.NewString(),
		conn:     conn,
		analyzer: analyzer,
		hint:     hint,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Run serves the session until the peer disconnects, the context ends, or a fatal error occurs.
// A clean disconnect returns nil. The connection is always closed on return.
func (s *Session) Run(ctx context.Context) (err error) {
	ctx = logging.WithFields(ctx, logging.SessionFields(s.id, s.hint.String())...)

	s.setState(StateOpen)
	logging.InfowCtx(ctx, "stream session opened")

	defer func() {
		s.setState(StateClosed)

		if closeErr := s.conn.Close(); closeErr != nil {
			logging.DebugwCtx(ctx, "stream close", "error", closeErr)
		}

		if err != nil {
			logging.ErrorwCtx(ctx, "stream session failed", "chunks", s.chunks, "bytes", len(s.buffer), "error", err)

			return
		}

		logging.InfowCtx(ctx, "stream session closed", "chunks", s.chunks, "bytes", len(s.buffer))
	}()

	for {
		s.setState(StateReceiving)

		chunk, readErr := s.conn.ReadChunk(ctx)
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, ErrClosed) || ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("%w: %w", errRead, readErr)
		}

		s.setState(StateEmitting)

		var msg any
		if msg, err = s.process(ctx, chunk); err != nil {
			return err
		}

		if err = s.conn.WriteResult(ctx, msg); err != nil {
			return fmt.Errorf("%w: %w", errWrite, err)
		}
	}
}

// process appends chunk and analyses the whole buffer. Only extraction failures are returned;
// undecodable or empty prefixes become an ErrorMessage.
func (s *Session) process(ctx context.Context, chunk []byte) (any, error) {
	s.chunks++
	s.buffer = append(s.buffer, chunk...)

	fs, err := s.analyzer.Analyze(ctx, s.buffer, s.hint)
	if err != nil {
		if errors.Is(err, features.ErrExtraction) {
			return nil, err
		}

		logging.DebugwCtx(ctx, "stream prefix not analysable", "chunk", s.chunks, "error", err)

		return &ErrorMessage{Error: err.Error(), Chunk: s.chunks, SessionID: s.id}, nil
	}

	msg := &Message{
		Chunk:      s.chunks,
		SessionID:  s.id,
		Duration:   fs.Duration,
		NoiseLevel: fs.NoiseLevel,
		Loudness:   fs.LoudnessDB,
		Pitch:      fs.Pitch,
	}

	if len(fs.Spectrogram) > 0 {
		msg.Spectrogram = encode.Image(fs.Spectrogram)
	}

	if len(fs.Waveform) > 0 {
		msg.WaveformPlot = encode.Image(fs.Waveform)
	}

	return msg, nil
}
