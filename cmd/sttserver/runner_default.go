//go:build !whispercpp

package main

import (
	"fmt"

	"github.com/mpv-stt/sttcore/internal/runner"
)

// newRunnerFactory builds the Runner constructor used by every worker. The
// default build has no whisper.cpp CGO bindings linked in (build with
// -tags whispercpp for real inference); it always returns the in-memory
// Fake, warning loudly if a model path was configured, since it will be
// silently ignored.
func newRunnerFactory(cfg runner.Config) (func() (runner.Runner, error), error) {
	if cfg.ModelPath != "" {
		fmt.Println("sttserver: built without -tags whispercpp; --model-path is ignored, using fake runner")
	}
	return func() (runner.Runner, error) { return runner.NewFake(), nil }, nil
}
