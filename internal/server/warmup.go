package server

import (
	"context"
	"os"

	"github.com/mpv-stt/sttcore/internal/logging"
	"github.com/mpv-stt/sttcore/internal/sttcore"
	"github.com/mpv-stt/sttcore/internal/wavfmt"
	"github.com/mpv-stt/sttcore/internal/worker"
)

// warmupSamples is 1 second of silence at the fixed 16 kHz sample rate.
const warmupSamples = wavfmt.SampleRate

// runWarmup builds a throwaway Runner, feeds it a synthetic 1s silent WAV,
// and discards the scratch artifacts (spec §4.9).
func runWarmup(ctx context.Context, newRunner worker.NewRunnerFunc) error {
	logging.Infow("running warmup inference to preload model")

	r, err := newRunner()
	if err != nil {
		return sttcore.Wrap(sttcore.KindSttFailed, "construct warmup runner", err)
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "sttcore-warmup-*.wav")
	if err != nil {
		return sttcore.Wrap(sttcore.KindIO, "create warmup wav", err)
	}
	path := tmp.Name()
	defer os.Remove(path)
	defer os.Remove(trimExt(path) + ".srt")
	defer os.Remove(trimExt(path) + ".txt")

	wav := wavfmt.BuildFromSamples(make([]int16, warmupSamples))
	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return sttcore.Wrap(sttcore.KindIO, "write warmup wav", err)
	}
	if err := tmp.Close(); err != nil {
		return sttcore.Wrap(sttcore.KindIO, "close warmup wav", err)
	}

	if err := r.Transcribe(ctx, path, trimExt(path), 1000); err != nil {
		return sttcore.Wrap(sttcore.KindSttFailed, "warmup transcription", err)
	}

	logging.Infow("warmup inference completed")
	return nil
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[:i]
		}
		if path[i] == '/' {
			break
		}
	}
	return path
}
