package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/mpv-stt/sttcore/internal/auth"
	"github.com/mpv-stt/sttcore/internal/crypto"
	"github.com/mpv-stt/sttcore/internal/opuscodec"
	"github.com/mpv-stt/sttcore/internal/runner"
	"github.com/mpv-stt/sttcore/internal/wavfmt"
	"github.com/mpv-stt/sttcore/internal/wire"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.ScratchDir = t.TempDir()
	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = 1
	}
	s, err := New(cfg, func() (runner.Runner, error) { return runner.NewFake(), nil })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.pool.Close() })
	return s
}

func silentWAV(n int) []byte {
	return wavfmt.BuildFromSamples(make([]int16, n))
}

func TestHandleTranscribeHappyPathPCM(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(silentWAV(16000)))
	req.Header.Set(wire.HeaderRequestID, "42")
	req.Header.Set(wire.HeaderDurationMS, "1000")
	req.Header.Set(wire.HeaderCompressed, wire.CompressionPCM)
	rec := httptest.NewRecorder()

	s.handleTranscribe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(wire.HeaderMetricWorker) == "0" {
		t.Fatalf("expected non-zero worker metric")
	}
}

func TestHandleTranscribeMissingRequestID(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(silentWAV(16000)))
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTranscribeBodyTooLarge(t *testing.T) {
	s := newTestServer(t, Config{})
	big := make([]byte, wire.MaxBodySize+1)
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(big))
	req.Header.Set(wire.HeaderRequestID, "1")
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestHandleTranscribeBadWav(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader([]byte("not a wav")))
	req.Header.Set(wire.HeaderRequestID, "1")
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTranscribeWrongAuthToken(t *testing.T) {
	s := newTestServer(t, Config{AuthSecret: "shared"})
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(silentWAV(16000)))
	req.Header.Set(wire.HeaderRequestID, "1")
	req.Header.Set(wire.HeaderAuthToken, auth.FromSecret("wrong").Hex())
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHandleTranscribeCorrectAuthToken(t *testing.T) {
	s := newTestServer(t, Config{AuthSecret: "shared"})
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(silentWAV(16000)))
	req.Header.Set(wire.HeaderRequestID, "1")
	req.Header.Set(wire.HeaderAuthToken, auth.FromSecret("shared").Hex())
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleTranscribeOpusCompression(t *testing.T) {
	s := newTestServer(t, Config{})
	samples := make([]int16, opuscodec.FrameSamples*5)
	framed, err := opuscodec.Encode(samples)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(framed))
	req.Header.Set(wire.HeaderRequestID, "1")
	req.Header.Set(wire.HeaderCompressed, wire.CompressionOpus)
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleTranscribeOpusLabeledRIFFCompatibility(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(silentWAV(16000)))
	req.Header.Set(wire.HeaderRequestID, "1")
	req.Header.Set(wire.HeaderCompressed, wire.CompressionOpus)
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleTranscribeEncryptedRoundTrip(t *testing.T) {
	s := newTestServer(t, Config{EncryptionKey: "test"})
	key := crypto.FromPassphrase("test")
	enc, err := key.Encrypt(silentWAV(16000))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(enc))
	req.Header.Set(wire.HeaderRequestID, "1")
	req.Header.Set(wire.HeaderEncrypted, wire.EncryptedValue)
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}
	if _, err := key.Decrypt(rec.Body.Bytes()); err != nil {
		t.Fatalf("response body did not decrypt: %v", err)
	}
}

func TestHandleTranscribeUnsupportedCompression(t *testing.T) {
	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(silentWAV(16000)))
	req.Header.Set(wire.HeaderRequestID, "1")
	req.Header.Set(wire.HeaderCompressed, "flac")
	rec := httptest.NewRecorder()
	s.handleTranscribe(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTranscribeConcurrentRequestsRouteIndependently(t *testing.T) {
	s := newTestServer(t, Config{NumWorkers: 4})

	type outcome struct {
		id   int
		code int
	}
	results := make(chan outcome, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(silentWAV(16000)))
			req.Header.Set(wire.HeaderRequestID, strconv.Itoa(i+1))
			rec := httptest.NewRecorder()
			s.handleTranscribe(rec, req)
			results <- outcome{id: i, code: rec.Code}
		}(i)
	}
	for i := 0; i < 20; i++ {
		o := <-results
		if o.code != http.StatusOK {
			t.Fatalf("request %d: status = %d", o.id, o.code)
		}
	}
}
