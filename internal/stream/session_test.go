package stream_test

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/acoustica/internal/features"
	"github.com/farcloser/acoustica/internal/normalize"
	"github.com/farcloser/acoustica/internal/stream"
	"github.com/farcloser/acoustica/internal/types"
)

var errBroken = errors.New("broken pipe")

// memConn replays chunks then reports EOF, recording every message written.
type memConn struct {
	chunks   [][]byte
	written  []any
	writeErr error
	closed   bool
}

func (c *memConn) ReadChunk(context.Context) ([]byte, error) {
	if len(c.chunks) == 0 {
		return nil, io.EOF
	}

	chunk := c.chunks[0]
	c.chunks = c.chunks[1:]

	return chunk, nil
}

func (c *memConn) WriteResult(_ context.Context, msg any) error {
	if c.writeErr != nil {
		return c.writeErr
	}

	c.written = append(c.written, msg)

	return nil
}

func (c *memConn) Close() error {
	c.closed = true

	return nil
}

type failingAnalyzer struct{ err error }

func (f failingAnalyzer) Analyze(context.Context, []byte, normalize.Hint) (*types.FeatureSet, error) {
	return nil, f.err
}

func s16(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(v*32767))))
	}

	return out
}

var rawHint = normalize.Hint{Container: normalize.ContainerS16LE, Rate: 16000, Channels: 1}

func TestSilentChunks(t *testing.T) {
	conn := &memConn{chunks: [][]byte{
		make([]byte, 3200),
		make([]byte, 3200),
		make([]byte, 3200),
	}}

	session := stream.NewSession(conn, stream.DefaultExtractor(), rawHint)
	require.Equal(t, stream.StateConnecting, session.State())
	require.NoError(t, session.Run(context.Background()))
	require.Equal(t, stream.StateClosed, session.State())
	require.True(t, conn.closed)

	require.Len(t, conn.written, 3)

	previous := 0.0

	for i, written := range conn.written {
		msg, ok := written.(*stream.Message)
		require.True(t, ok, "message %d is %T", i, written)

		assert.Equal(t, i+1, msg.Chunk)
		assert.Equal(t, session.ID(), msg.SessionID)
		assert.Greater(t, msg.Duration, previous)
		assert.InDelta(t, 0, msg.NoiseLevel, 1e-4)
		assert.False(t, msg.Pitch.Available)
		assert.Empty(t, msg.Spectrogram)

		previous = msg.Duration
	}

	assert.InDelta(t, 0.3, previous, 0)
}

func TestWholeBufferIsReanalysed(t *testing.T) {
	tone := make([]float64, 8000)
	for i := range tone {
		tone[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}

	data := s16(tone)
	// Odd split: the first chunk ends mid-sample.
	conn := &memConn{chunks: [][]byte{data[:4001], data[4001:]}}

	require.NoError(t, stream.NewSession(conn, stream.DefaultExtractor(), rawHint).Run(context.Background()))
	require.Len(t, conn.written, 2)

	last, ok := conn.written[1].(*stream.Message)
	require.True(t, ok)
	assert.InDelta(t, 0.5, last.Duration, 0)
	require.True(t, last.Pitch.Available)
	assert.InDelta(t, 440, last.Pitch.Hz, 5)
}

func TestImagesOnRequest(t *testing.T) {
	extractor := stream.DefaultExtractor()
	extractor.Features.NoImages = false
	extractor.Features.Render.Width, extractor.Features.Render.Height = 200, 100

	conn := &memConn{chunks: [][]byte{s16(make([]float64, 1600))}}

	require.NoError(t, stream.NewSession(conn, extractor, rawHint).Run(context.Background()))
	require.Len(t, conn.written, 1)

	msg, ok := conn.written[0].(*stream.Message)
	require.True(t, ok)
	assert.NotEmpty(t, msg.Spectrogram)
	assert.NotEmpty(t, msg.WaveformPlot)
}

func TestUndecodablePrefixKeepsSessionOpen(t *testing.T) {
	extractor := stream.DefaultExtractor()
	extractor.Normalize.NoTranscode = true

	conn := &memConn{chunks: [][]byte{[]byte("RIFF"), []byte("more junk")}}

	err := stream.NewSession(conn, extractor, normalize.Hint{Container: normalize.ContainerWAV}).
		Run(context.Background())
	require.NoError(t, err)
	require.Len(t, conn.written, 2)

	for i, written := range conn.written {
		msg, ok := written.(*stream.ErrorMessage)
		require.True(t, ok)
		assert.Equal(t, i+1, msg.Chunk)
		assert.NotEmpty(t, msg.Error)
	}
}

func TestEmptyChunkIsNotFatal(t *testing.T) {
	conn := &memConn{chunks: [][]byte{{}, make([]byte, 320)}}

	require.NoError(t, stream.NewSession(conn, stream.DefaultExtractor(), rawHint).Run(context.Background()))
	require.Len(t, conn.written, 2)

	_, isError := conn.written[0].(*stream.ErrorMessage)
	assert.True(t, isError)

	_, isMessage := conn.written[1].(*stream.Message)
	assert.True(t, isMessage)
}

func TestExtractionFailureIsFatal(t *testing.T) {
	conn := &memConn{chunks: [][]byte{{1, 2}, {3, 4}}}

	session := stream.NewSession(conn, failingAnalyzer{err: features.ErrExtraction}, rawHint)
	err := session.Run(context.Background())
	require.ErrorIs(t, err, features.ErrExtraction)
	require.Empty(t, conn.written)
	require.True(t, conn.closed)
	require.Equal(t, stream.StateClosed, session.State())
}

func TestWriteFailureIsFatal(t *testing.T) {
	conn := &memConn{chunks: [][]byte{make([]byte, 320)}, writeErr: errBroken}

	err := stream.NewSession(conn, stream.DefaultExtractor(), rawHint).Run(context.Background())
	require.ErrorIs(t, err, errBroken)
	require.True(t, conn.closed)
}

func TestCleanCloseError(t *testing.T) {
	conn := &closingConn{}

	require.NoError(t, stream.NewSession(conn, stream.DefaultExtractor(), rawHint).Run(context.Background()))
}

type closingConn struct{ memConn }

func (*closingConn) ReadChunk(context.Context) ([]byte, error) {
	return nil, stream.ErrClosed
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "connecting", stream.StateConnecting.String())
	assert.Equal(t, "open", stream.StateOpen.String())
	assert.Equal(t, "receiving", stream.StateReceiving.String())
	assert.Equal(t, "emitting", stream.StateEmitting.String())
	assert.Equal(t, "closed", stream.StateClosed.String())
	assert.Equal(t, "unknown", stream.State(42).String())
}
