// Package runner defines the opaque STT inference engine contract (spec
// §4.7/§4.9 glossary "Runner"): given a WAV file path, it produces a
// sibling SRT (and optionally a plain-text) file at an output prefix. The
// worker pool (C7) owns one Runner instance per worker and never shares an
// instance across goroutines, matching the contract's "not thread-safe
// across a single instance" clause.
package runner

import "context"

// Config carries the parameters needed to construct a Runner.
type Config struct {
	ModelPath string
	Language  string
	// Device selects an inference device hint (e.g. "cpu", "cuda"); backends
	// that don't support device selection ignore it.
	Device string
}

// Runner transcribes a WAV file into SRT text written to
// "<outputPrefix>.srt". durationMs is a hint; zero means "derive from the
// WAV" is the caller's responsibility, not the Runner's.
type Runner interface {
	Transcribe(ctx context.Context, wavPath, outputPrefix string, durationMs uint64) error
	Close() error
}
