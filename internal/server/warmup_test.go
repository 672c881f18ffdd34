package server

import (
	"context"
	"errors"
	"testing"

	"github.com/mpv-stt/sttcore/internal/runner"
)

func TestRunWarmupSucceedsWithFakeRunner(t *testing.T) {
	err := runWarmup(context.Background(), func() (runner.Runner, error) { return runner.NewFake(), nil })
	if err != nil {
		t.Fatalf("runWarmup: %v", err)
	}
}

func TestRunWarmupPropagatesConstructorError(t *testing.T) {
	err := runWarmup(context.Background(), func() (runner.Runner, error) {
		return nil, errors.New("construct failed")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
