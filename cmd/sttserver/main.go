// Command sttserver hosts the remote speech-to-text HTTP endpoint: it
// admits requests, decodes and validates audio, and dispatches to a bounded
// pool of workers fronting a Runner.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mpv-stt/sttcore/internal/logging"
	"github.com/mpv-stt/sttcore/internal/runner"
	"github.com/mpv-stt/sttcore/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	bind := flag.String("bind", "127.0.0.1:8088", "address to listen on")
	workers := flag.Int("workers", 2, "number of STT worker goroutines")
	modelPath := flag.String("model-path", "", "path to the STT model (ignored unless built with -tags whispercpp)")
	language := flag.String("language", "en", "transcription language hint")
	device := flag.String("device", "cpu", "inference device hint (cpu|cuda)")
	authSecret := flag.String("auth-secret", "", "shared secret for x-auth-token validation; empty disables auth")
	encryptionKey := flag.String("encryption-key", "", "passphrase for the request/response encryption envelope; empty disables encryption")
	warmup := flag.Bool("warmup", true, "run a throwaway inference before serving traffic")
	requireWarmup := flag.Bool("require-warmup", false, "treat a warmup failure as fatal (exit 2) instead of logging and continuing")
	logFile := flag.String("log-file", "", "path to a rotated JSON log file; empty logs to stdout only")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	logging.Init(logging.Options{Level: *logLevel, LogFile: *logFile})
	defer logging.Sync()

	runnerCfg := runner.Config{ModelPath: *modelPath, Language: *language, Device: *device}
	newRunner, err := newRunnerFactory(runnerCfg)
	if err != nil {
		logging.Errorw("failed to build runner factory", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(server.Config{
		BindAddr:      *bind,
		NumWorkers:    *workers,
		ScratchDir:    os.TempDir(),
		AuthSecret:    *authSecret,
		EncryptionKey: *encryptionKey,
	}, newRunner)
	if err != nil {
		logging.Errorw("failed to construct server", "err", err)
		return 1
	}

	if *warmup {
		if err := srv.Warmup(ctx, newRunner); err != nil {
			if *requireWarmup {
				logging.Errorw("warmup failed and --require-warmup is set", "err", err)
				return 2
			}
			logging.Warnw("warmup inference failed, continuing to serve", "err", err)
		}
	}

	logging.Infow("sttserver listening", "bind", *bind, "workers", *workers)
	fmt.Println("sttserver ready — press Ctrl+C to shut down")

	if err := srv.ListenAndServe(ctx); err != nil && err != context.Canceled {
		logging.Errorw("server stopped with error", "err", err)
		return 1
	}

	logging.Infow("sttserver stopped")
	return 0
}
