// Command sttclient sends a WAV file to a remote sttserver and writes the
// resulting subtitles next to it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mpv-stt/sttcore/internal/logging"
	"github.com/mpv-stt/sttcore/internal/sttclient"
)

func main() {
	os.Exit(run())
}

func run() int {
	server := flag.String("server", "127.0.0.1:8088", "sttserver address")
	timeoutMS := flag.Int("timeout-ms", 30000, "per-attempt HTTP timeout in milliseconds")
	maxRetry := flag.Int("max-retry", 3, "maximum number of send attempts")
	authSecret := flag.String("auth-secret", "", "shared secret for x-auth-token; must match the server")
	encryptionKey := flag.String("encryption-key", "", "passphrase for the encryption envelope; must match the server")
	useOpus := flag.Bool("opus", false, "compress audio with Opus before sending")
	durationMS := flag.Uint64("duration-ms", 0, "known audio duration in milliseconds; 0 lets the server derive it")
	outputPrefix := flag.String("out", "", "output path prefix; defaults to the input path without its extension")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sttclient [flags] <input.wav>")
		return 2
	}
	wavPath := flag.Arg(0)
	prefix := *outputPrefix
	if prefix == "" {
		prefix = strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	}

	logging.Init(logging.Options{Level: *logLevel})
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := sttclient.NewSession(sttclient.Config{
		ServerAddr:    *server,
		TimeoutMS:     *timeoutMS,
		MaxRetry:      *maxRetry,
		AuthSecret:    *authSecret,
		EncryptionKey: *encryptionKey,
		UseOpus:       *useOpus,
	})

	go func() {
		<-ctx.Done()
		session.CancelInflight()
	}()

	if err := session.Transcribe(ctx, wavPath, prefix, *durationMS); err != nil {
		logging.Errorw("transcribe failed", "err", err)
		return 1
	}

	fmt.Println("wrote " + prefix + ".srt")
	return 0
}
