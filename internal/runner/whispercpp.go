//go:build whispercpp

package runner

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/mpv-stt/sttcore/internal/logging"
	"github.com/mpv-stt/sttcore/internal/srtfile"
	"github.com/mpv-stt/sttcore/internal/sttcore"
	"github.com/mpv-stt/sttcore/internal/wavfmt"
)

// WhisperCPP is the real Runner backend, using the whisper.cpp CGO bindings
// directly rather than shelling out to an HTTP service. The model is loaded
// once; each Transcribe call opens a fresh whisper.cpp context, since a
// context is not reusable across concurrent calls, and this Runner is in
// turn owned by exactly one worker goroutine at a time (spec §4.7).
type WhisperCPP struct {
	model    whisperlib.Model
	language string

	mu sync.Mutex
}

// NewWhisperCPP loads the model at cfg.ModelPath. cfg.Device is accepted for
// interface symmetry but ignored; whisper.cpp's Go bindings select the
// device at build time via CGO flags, not at runtime.
func NewWhisperCPP(cfg Config) (*WhisperCPP, error) {
	if cfg.ModelPath == "" {
		return nil, sttcore.New(sttcore.KindSttFailed, "whisper.cpp model path is required")
	}
	if cfg.Device != "" && cfg.Device != "cpu" {
		logging.Warnw("whisper.cpp device selection happens at build time via CGO flags; ignoring runtime device request", "requested_device", cfg.Device)
	}
	model, err := whisperlib.New(cfg.ModelPath)
	if err != nil {
		return nil, sttcore.Wrap(sttcore.KindSttFailed, "load whisper.cpp model", err)
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &WhisperCPP{model: model, language: lang}, nil
}

func (w *WhisperCPP) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}

// Transcribe reads wavPath, runs whisper.cpp inference, and writes the
// resulting cues as SRT to "<outputPrefix>.srt".
func (w *WhisperCPP) Transcribe(ctx context.Context, wavPath, outputPrefix string, _ uint64) error {
	// whisper.cpp's C API blocks the calling goroutine for the duration of
	// inference; holding this mutex documents that a single WhisperCPP
	// value must not be driven concurrently even though the worker pool
	// already guarantees that by construction.
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return sttcore.Wrap(sttcore.KindSttCancelled, "context cancelled before inference", err)
	}

	raw, err := os.ReadFile(wavPath)
	if err != nil {
		return sttcore.Wrap(sttcore.KindIO, "read scratch wav", err)
	}
	pcm, err := wavfmt.Parse(raw)
	if err != nil {
		return sttcore.Wrap(sttcore.KindWav, "parse scratch wav", err)
	}
	samples := pcmToFloat32(pcm)

	wctx, err := w.model.NewContext()
	if err != nil {
		return sttcore.Wrap(sttcore.KindSttFailed, "create whisper context", err)
	}
	if err := wctx.SetLanguage(w.language); err != nil {
		return sttcore.Wrap(sttcore.KindSttFailed, "set whisper language", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return sttcore.Wrap(sttcore.KindSttFailed, "whisper inference", err)
	}

	var cues []srtfile.Cue
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sttcore.Wrap(sttcore.KindSttFailed, "read whisper segment", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		cues = append(cues, srtfile.Cue{
			Index: len(cues) + 1,
			Start: segment.Start,
			End:   segment.End,
			Text:  []string{text},
		})
	}

	if err := os.WriteFile(outputPrefix+".srt", srtfile.Serialize(cues), 0o644); err != nil {
		return sttcore.Wrap(sttcore.KindIO, "write srt output", err)
	}
	return nil
}

// pcmToFloat32 converts 16-bit signed little-endian PCM to float32 samples
// normalized to [-1.0, 1.0].
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
