package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mpv-stt/sttcore/internal/auth"
	"github.com/mpv-stt/sttcore/internal/crypto"
	"github.com/mpv-stt/sttcore/internal/logging"
	"github.com/mpv-stt/sttcore/internal/opuscodec"
	"github.com/mpv-stt/sttcore/internal/wavfmt"
	"github.com/mpv-stt/sttcore/internal/wire"
	"github.com/mpv-stt/sttcore/internal/worker"
)

// resultTimeout bounds how long the handler waits for a worker result
// before reporting 500 (spec §4.8 "result timeout").
const resultTimeout = 120 * time.Second

// Server hosts the /transcribe endpoint and owns the worker pool.
type Server struct {
	cfg           Config
	pool          *worker.Pool
	encKey        *crypto.Key
	expectedToken *auth.Token
	httpServer    *http.Server
}

// New constructs a Server and its worker pool. newRunner is called once per
// worker to build its private Runner instance.
func New(cfg Config, newRunner worker.NewRunnerFunc) (*Server, error) {
	pool, err := worker.New(cfg.NumWorkers, cfg.ScratchDir, newRunner)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, pool: pool}
	if cfg.EncryptionKey != "" {
		key := crypto.FromPassphrase(cfg.EncryptionKey)
		s.encKey = &key
	}
	if cfg.AuthSecret != "" {
		tok := auth.FromSecret(cfg.AuthSecret)
		s.expectedToken = &tok
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", s.handleTranscribe)
	s.httpServer = &http.Server{Addr: cfg.BindAddr, Handler: mux}
	return s, nil
}

// Warmup runs one throwaway transcription through a fresh Runner before
// serving traffic (spec §4.9), to pay model-load cost up front.
func (s *Server) Warmup(ctx context.Context, newRunner worker.NewRunnerFunc) error {
	return runWarmup(ctx, newRunner)
}

// ListenAndServe blocks serving HTTP until the context is cancelled or the
// server errors.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		_ = s.pool.Close()
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, wire.MaxBodySize+1))
	if err != nil {
		writeStatus(w, wire.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > wire.MaxBodySize {
		writeStatus(w, wire.StatusPayloadTooLarge, "body too large")
		return
	}
	bytesIn := len(body)

	requestID, ok := parseUint64Header(r, wire.HeaderRequestID)
	if !ok {
		writeStatus(w, wire.StatusBadRequest, "missing x-request-id")
		return
	}
	durationMS, _ := parseUint64Header(r, wire.HeaderDurationMS)

	if s.expectedToken != nil {
		if !s.authorize(r) {
			writeStatus(w, wire.StatusUnauthorized, "unauthorized")
			return
		}
	}

	encrypted := r.Header.Get(wire.HeaderEncrypted) == wire.EncryptedValue
	compression := r.Header.Get(wire.HeaderCompressed)
	if compression == "" {
		compression = wire.CompressionPCM
	}

	audioBytes := body
	if encrypted {
		if s.encKey == nil {
			writeStatus(w, wire.StatusBadRequest, "encryption not enabled")
			return
		}
		decrypted, err := s.encKey.Decrypt(audioBytes)
		if err != nil {
			writeStatus(w, wire.StatusBadRequest, "decrypt failed: "+err.Error())
			return
		}
		audioBytes = decrypted
	}

	audioData, ok := s.decodeCompression(compression, audioBytes)
	if !ok {
		writeStatus(w, wire.StatusBadRequest, "unsupported compression or malformed opus stream")
		return
	}
	if len(audioData) == 0 {
		writeStatus(w, wire.StatusBadRequest, "empty audio data")
		return
	}
	if _, err := wavfmt.Parse(audioData); err != nil {
		writeStatus(w, wire.StatusBadRequest, "unsupported wav format: "+err.Error())
		return
	}

	job := worker.Job{
		RequestID:  requestID,
		AudioData:  audioData,
		DurationMS: durationMS,
		EnqueueAt:  time.Now(),
	}
	resultCh := s.pool.Submit(job)
	defer s.pool.Deregister(requestID)

	result, err := s.awaitResult(r.Context(), resultCh)
	if err != nil {
		writeStatus(w, wire.StatusInternalServerError, err.Error())
		return
	}
	if result.Err != nil {
		writeStatus(w, wire.StatusInternalServerError, result.Err.Error())
		return
	}

	respBody := result.SRTData
	if encrypted {
		enc, err := s.encKey.Encrypt(respBody)
		if err != nil {
			writeStatus(w, wire.StatusInternalServerError, err.Error())
			return
		}
		respBody = enc
	}

	w.Header().Set(wire.HeaderMetricQueueMS, strconv.FormatUint(result.Metrics.QueueWaitMS, 10))
	w.Header().Set(wire.HeaderMetricInferMS, strconv.FormatUint(result.Metrics.InferenceMS, 10))
	w.Header().Set(wire.HeaderMetricWorker, strconv.FormatUint(result.Metrics.WorkerTotalMS, 10))
	w.Header().Set(wire.HeaderBytesIn, strconv.Itoa(bytesIn))
	w.Header().Set(wire.HeaderBytesOut, strconv.Itoa(len(respBody)))
	w.WriteHeader(wire.StatusOK)
	w.Write(respBody)
}

func (s *Server) authorize(r *http.Request) bool {
	tok, ok := auth.FromHex(r.Header.Get(wire.HeaderAuthToken))
	if !ok {
		return false
	}
	return tok.Equal(*s.expectedToken)
}

// decodeCompression decodes audioBytes per the declared compression token.
// An opus-labeled body that is actually raw RIFF/WAV is accepted as-is with
// a logged warning, matching clients that mislabel their payload
// (spec §4.8 compatibility fallback).
func (s *Server) decodeCompression(compression string, audioBytes []byte) ([]byte, bool) {
	switch compression {
	case wire.CompressionPCM, wire.CompressionWAV:
		return audioBytes, true
	case wire.CompressionOpus:
		samples, err := opuscodec.Decode(audioBytes)
		if err != nil {
			if strings.HasPrefix(string(audioBytes), "RIFF") {
				logging.Warnw("compression=opus but payload looks like wav; bypassing opus decode")
				return audioBytes, true
			}
			return nil, false
		}
		return wavfmt.BuildFromSamples(samples), true
	default:
		return nil, false
	}
}

func (s *Server) awaitResult(ctx context.Context, ch chan worker.Result) (worker.Result, error) {
	timer := time.NewTimer(resultTimeout)
	defer timer.Stop()
	select {
	case result := <-ch:
		return result, nil
	case <-timer.C:
		return worker.Result{}, errors.New("timeout waiting result")
	case <-ctx.Done():
		return worker.Result{}, ctx.Err()
	}
}

func parseUint64Header(r *http.Request, name string) (uint64, bool) {
	v := r.Header.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	w.Write([]byte(message))
}
