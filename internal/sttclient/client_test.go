package sttclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mpv-stt/sttcore/internal/crypto"
	"github.com/mpv-stt/sttcore/internal/sttcore"
	"github.com/mpv-stt/sttcore/internal/wavfmt"
	"github.com/mpv-stt/sttcore/internal/wire"
)

func writeSilentWAV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "in.wav")
	wav := wavfmt.BuildFromSamples(make([]int16, 16000))
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

const sampleSRT = "1\n00:00:00,000 --> 00:00:01,000\nhello\n"

func TestTranscribeHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(wire.HeaderRequestID) == "" {
			t.Errorf("missing request id header")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sampleSRT))
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := writeSilentWAV(t, dir)
	outPrefix := filepath.Join(dir, "out")

	s := NewSession(Config{ServerAddr: srv.URL, TimeoutMS: 2000, MaxRetry: 1})
	if err := s.Transcribe(context.Background(), wavPath, outPrefix, 1000); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	data, err := os.ReadFile(outPrefix + ".srt")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty srt output")
	}
}

func TestTranscribeEmptyBodyWritesEmptySRT(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("   \n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := writeSilentWAV(t, dir)
	outPrefix := filepath.Join(dir, "out")

	s := NewSession(Config{ServerAddr: srv.URL, TimeoutMS: 2000, MaxRetry: 1})
	if err := s.Transcribe(context.Background(), wavPath, outPrefix, 1000); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	data, err := os.ReadFile(outPrefix + ".srt")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty srt file, got %q", data)
	}
}

func TestTranscribeServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid wav"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := writeSilentWAV(t, dir)
	outPrefix := filepath.Join(dir, "out")

	s := NewSession(Config{ServerAddr: srv.URL, TimeoutMS: 2000, MaxRetry: 1})
	err := s.Transcribe(context.Background(), wavPath, outPrefix, 1000)
	if err == nil {
		t.Fatalf("expected error")
	}
	var sErr *sttcore.Error
	if !errors.As(err, &sErr) || sErr.Kind != sttcore.KindSttFailed {
		t.Fatalf("expected KindSttFailed, got %v", err)
	}
}

func TestTranscribeRetriesOnTransientFailureThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("try again"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sampleSRT))
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := writeSilentWAV(t, dir)
	outPrefix := filepath.Join(dir, "out")

	s := NewSession(Config{ServerAddr: srv.URL, TimeoutMS: 2000, MaxRetry: 3})
	if err := s.Transcribe(context.Background(), wavPath, outPrefix, 1000); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestCancelInflightAbortsRetryLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := writeSilentWAV(t, dir)
	outPrefix := filepath.Join(dir, "out")

	s := NewSession(Config{ServerAddr: srv.URL, TimeoutMS: 2000, MaxRetry: 5})

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.CancelInflight()
	}()

	err := s.Transcribe(context.Background(), wavPath, outPrefix, 1000)
	if !errors.Is(err, sttcore.Cancelled) {
		t.Fatalf("expected SttCancelled, got %v", err)
	}
	if _, statErr := os.Stat(outPrefix + ".srt"); statErr == nil {
		t.Fatalf("expected no srt file to be written on cancellation")
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	key := crypto.FromPassphrase("test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(wire.HeaderEncrypted) != wire.EncryptedValue {
			t.Errorf("expected encrypted header to be set")
		}
		enc, err := key.Encrypt([]byte(sampleSRT))
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(enc)
	}))
	defer srv.Close()

	dir := t.TempDir()
	wavPath := writeSilentWAV(t, dir)
	outPrefix := filepath.Join(dir, "out")

	s := NewSession(Config{ServerAddr: srv.URL, TimeoutMS: 2000, MaxRetry: 1, EncryptionKey: "test"})
	if err := s.Transcribe(context.Background(), wavPath, outPrefix, 1000); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}
