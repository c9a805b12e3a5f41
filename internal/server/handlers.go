package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/xaionaro-go/datacounter"

	"github.com/farcloser/acoustica"
	"github.com/farcloser/acoustica/internal/logging"
	"github.com/farcloser/acoustica/internal/normalize"
	"github.com/farcloser/acoustica/internal/stream"
)

const (
	msgNoFile        = "No audio file provided."
	msgTooLarge      = "Audio file too large."
	msgConversion    = "Audio format conversion failed."
	msgEmptySignal   = "Audio contains no samples."
	msgProcessFailed = "Failed to process audio"
	msgNoData        = "No data available"
)

type readCloser struct {
	io.Reader
	io.Closer
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) processAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Counts the whole multipart body as read off the wire, which Content-Length may not announce.
	body := datacounter.NewReaderCounter(r.Body)
	r.Body = http.MaxBytesReader(w, readCloser{Reader: body, Closer: r.Body}, s.cfg.MaxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logging.WarnwCtx(ctx, "upload rejected", "request bytes", body.Count(), "limit", tooLarge.Limit)
			writeJSON(ctx, w, http.StatusRequestEntityTooLarge, errorBody{Error: msgTooLarge})

			return
		}

		logging.WarnwCtx(ctx, "no upload", "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, errorBody{Error: msgNoFile})

		return
	}
	defer file.Close()

	ctx = logging.WithFields(ctx, "request.filename", header.Filename)

	data, err := io.ReadAll(file)
	if err != nil {
		logging.ErrorwCtx(ctx, "upload not read", "request bytes", body.Count(), "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, errorBody{Error: msgProcessFailed, Details: err.Error()})

		return
	}

	hint := normalize.HintFromFilename(header.Filename)
	if filepath.Ext(header.Filename) == "" {
		hint = normalize.HintFromMIME(header.Header.Get("Content-Type"))
	}

	logging.InfowCtx(ctx, "upload received",
		"request bytes", body.Count(),
		"audio bytes", len(data),
		"container", hint.String(),
	)

	result, err := acoustica.AnalyzeHint(ctx, data, hint, s.cfg.Options)
	if err != nil {
		s.analysisFailed(w, r.WithContext(ctx), err)

		return
	}

	if encErr := result.EncodingErr(); encErr != nil {
		logging.WarnwCtx(ctx, "partial result", "kind", "encoding", "error", encErr)
	}

	s.store.Set(result)

	logging.InfowCtx(ctx, "analysis complete",
		"duration", result.Raw.Duration,
		"pitch", result.Raw.Pitch.String(),
	)

	writeJSON(ctx, w, http.StatusOK, result)
}

// analysisFailed maps the pipeline taxonomy onto a response. Nothing is stored.
func (s *Server) analysisFailed(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case acoustica.IsFormatError(err):
		logging.WarnwCtx(ctx, "analysis failed", "kind", "format", "container", acoustica.FormatContainer(err), "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, errorBody{Error: msgConversion})
	case acoustica.IsEmptySignal(err):
		logging.WarnwCtx(ctx, "analysis failed", "kind", "empty", "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, errorBody{Error: msgEmptySignal})
	default:
		logging.ErrorwCtx(ctx, "analysis failed", "kind", "extraction", "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, errorBody{Error: msgProcessFailed, Details: err.Error()})
	}
}

func (s *Server) latestResults(w http.ResponseWriter, r *http.Request) {
	result, ok := s.store.Get()
	if !ok {
		writeJSON(r.Context(), w, http.StatusNotFound, errorBody{Error: msgNoData})

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, result)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// streamAudio upgrades to a websocket and runs a streaming session on it.
// Query parameters: format (container), rate and channels (raw PCM), images (bool).
func (s *Server) streamAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	hint := normalize.Hint{Container: normalize.ParseContainer(s.cfg.StreamFormat)}
	if format := query.Get("format"); format != "" {
		hint.Container = normalize.ParseContainer(format)
	}

	rate, okRate := positiveParam(query, "rate")
	channels, okChannels := positiveParam(query, "channels")

	if !okRate || !okChannels {
		writeJSON(ctx, w, http.StatusBadRequest, errorBody{Error: "Invalid rate or channels."})

		return
	}

	hint.Rate, hint.Channels = rate, channels

	extractor := stream.Extractor{Normalize: s.cfg.Options.Normalize, Features: s.cfg.Options.Features}
	images, _ := strconv.ParseBool(query.Get("images"))
	extractor.Features.NoImages = !images

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the client.
		logging.WarnwCtx(ctx, "websocket upgrade failed", "error", err)

		return
	}

	wsc := newWSConn(conn, s.cfg.MaxUpload)
	session := stream.NewSession(wsc, extractor, hint)

	// Errors are logged by the session; they never escape the connection.
	_ = session.Run(ctx)

	logging.DebugwCtx(ctx, "websocket traffic", "session", session.ID(), "received", wsc.Received())
}

// positiveParam reads an optional positive integer; absent yields 0.
func positiveParam(query url.Values, name string) (int, bool) {
	value := query.Get(name)
	if value == "" {
		return 0, true
	}

	n, err := strconv.Atoi(value)

	return n, err == nil && n > 0
}
