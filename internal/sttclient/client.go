// Package sttclient implements the client side of the remote STT transport
// (spec §4.6): encode, encrypt, POST with retry, watch for cancellation,
// decrypt, and persist the result as an SRT file.
package sttclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mpv-stt/sttcore/internal/auth"
	"github.com/mpv-stt/sttcore/internal/crypto"
	"github.com/mpv-stt/sttcore/internal/logging"
	"github.com/mpv-stt/sttcore/internal/opuscodec"
	"github.com/mpv-stt/sttcore/internal/srtfile"
	"github.com/mpv-stt/sttcore/internal/sttcore"
	"github.com/mpv-stt/sttcore/internal/wavfmt"
	"github.com/mpv-stt/sttcore/internal/wire"
)

const retrySleep = 500 * time.Millisecond

// Config configures a Session.
type Config struct {
	ServerAddr    string
	TimeoutMS     int
	MaxRetry      int
	AuthSecret    string
	EncryptionKey string // empty disables encryption
	UseOpus       bool
}

// Session is the client side of one STT endpoint. It is safe to call
// Transcribe from multiple goroutines; CancelInflight cancels every
// Transcribe currently in flight on this Session.
type Session struct {
	cfg        Config
	serverURL  string
	httpClient *http.Client
	authToken  auth.Token
	encKey     *crypto.Key

	cancelGeneration atomic.Uint64
}

// NewSession builds a Session from cfg.
func NewSession(cfg Config) *Session {
	s := &Session{
		cfg:       cfg,
		serverURL: normalizeServerURL(cfg.ServerAddr),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		authToken: auth.FromSecret(cfg.AuthSecret),
	}
	if cfg.EncryptionKey != "" {
		key := crypto.FromPassphrase(cfg.EncryptionKey)
		s.encKey = &key
	}
	if s.cfg.MaxRetry <= 0 {
		s.cfg.MaxRetry = 1
	}
	return s
}

// CancelInflight aborts every Transcribe call currently running on this
// Session at its next checkpoint (spec §4.6 "Cancellation").
func (s *Session) CancelInflight() {
	s.cancelGeneration.Add(1)
}

// Transcribe reads a WAV file, sends it to the server, and writes the
// resulting subtitles to "<outputPrefix>.srt". durationMS of 0 lets the
// server derive duration from the audio.
func (s *Session) Transcribe(ctx context.Context, wavPath, outputPrefix string, durationMS uint64) error {
	gen := s.cancelGeneration.Load()

	wavBytes, err := os.ReadFile(wavPath)
	if err != nil {
		return sttcore.Wrap(sttcore.KindIO, "read wav", err)
	}
	if _, err := wavfmt.Parse(wavBytes); err != nil {
		return sttcore.Wrap(sttcore.KindWav, "unsupported wav format", err)
	}

	audioData := wavBytes
	compression := wire.CompressionPCM
	if s.cfg.UseOpus {
		samples, err := wavfmt.ParseToSamples(wavBytes)
		if err != nil {
			return sttcore.Wrap(sttcore.KindWav, "decode wav samples for opus", err)
		}
		audioData, err = opuscodec.Encode(samples)
		if err != nil {
			return err
		}
		compression = wire.CompressionOpus
	}
	if len(audioData) == 0 {
		return sttcore.New(sttcore.KindSttFailed, "audio data is empty")
	}

	requestID := uint64(time.Now().UnixNano())

	srtData, err := s.sendWithRetry(ctx, requestID, audioData, compression, durationMS, gen)
	if err != nil {
		return err
	}
	if s.cancelGeneration.Load() != gen {
		return sttcore.Cancelled
	}

	if srtfile.IsBlank(srtData) {
		return os.WriteFile(outputPrefix+".srt", nil, 0o644)
	}
	cues, err := srtfile.Parse(srtData)
	if err != nil {
		return sttcore.Wrap(sttcore.KindInvalidSrt, "parse server response", err)
	}
	return os.WriteFile(outputPrefix+".srt", srtfile.Serialize(cues), 0o644)
}

func (s *Session) sendWithRetry(ctx context.Context, requestID uint64, audio []byte, compression string, durationMS, gen uint64) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetry; attempt++ {
		if s.cancelGeneration.Load() != gen {
			return nil, sttcore.Cancelled
		}

		data, err := s.sendOnce(ctx, requestID, audio, compression, durationMS, gen)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if errors.Is(err, sttcore.Cancelled) {
			return nil, err
		}
		if attempt+1 < s.cfg.MaxRetry {
			logging.Debugw("stt request attempt failed, retrying", "request_id", requestID, "attempt", attempt+1, "err", err)
			time.Sleep(retrySleep)
		}
	}
	return nil, lastErr
}

func (s *Session) sendOnce(ctx context.Context, requestID uint64, audio []byte, compression string, durationMS, gen uint64) ([]byte, error) {
	payload := audio
	encrypted := false
	if s.encKey != nil {
		enc, err := s.encKey.Encrypt(payload)
		if err != nil {
			return nil, err
		}
		payload = enc
		encrypted = true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindSttFailed, "build request", err)
	}
	req.Header.Set(wire.HeaderRequestID, strconv.FormatUint(requestID, 10))
	req.Header.Set(wire.HeaderDurationMS, strconv.FormatUint(durationMS, 10))
	req.Header.Set(wire.HeaderAuthToken, s.authToken.Hex())
	req.Header.Set(wire.HeaderCompressed, compression)
	if encrypted {
		req.Header.Set(wire.HeaderEncrypted, wire.EncryptedValue)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindSttFailed, "http send failed", err)
	}
	defer resp.Body.Close()

	if s.cancelGeneration.Load() != gen {
		return nil, sttcore.Cancelled
	}

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return nil, sttcore.New(sttcore.KindSttFailed, "server error ("+resp.Status+"): "+strings.TrimSpace(string(text)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindIO, "read response body", err)
	}

	if encrypted {
		data, err = s.encKey.Decrypt(data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func normalizeServerURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "http://" + raw
}
