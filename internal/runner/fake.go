package runner

import (
	"context"
	"fmt"
	"os"
)

// Fake is a Runner that never shells out to real inference. It emits a
// single cue spanning the declared duration, useful for warmup, tests, and
// environments without a whisper.cpp build available.
type Fake struct {
	// Text is the cue body every Transcribe call emits. Defaults to
	// "[transcription]" when empty.
	Text string
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Transcribe(_ context.Context, _ string, outputPrefix string, durationMs uint64) error {
	text := f.Text
	if text == "" {
		text = "[transcription]"
	}
	if durationMs == 0 {
		durationMs = 1000
	}
	srt := fmt.Sprintf("1\n00:00:00,000 --> %s\n%s\n", formatMs(durationMs), text)
	return os.WriteFile(outputPrefix+".srt", []byte(srt), 0o644)
}

func (f *Fake) Close() error { return nil }

func formatMs(ms uint64) string {
	h := ms / 3600000
	ms %= 3600000
	m := ms / 60000
	ms %= 60000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
