//go:build whispercpp

package main

import (
	"github.com/mpv-stt/sttcore/internal/runner"
)

// newRunnerFactory builds a real whisper.cpp-backed Runner constructor.
// cfg.ModelPath is required; each call loads its own model instance so
// every worker owns a private Runner (spec §4.7).
func newRunnerFactory(cfg runner.Config) (func() (runner.Runner, error), error) {
	return func() (runner.Runner, error) { return runner.NewWhisperCPP(cfg) }, nil
}
