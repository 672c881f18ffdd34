// Package server implements the HTTP admission path (C8) and warmup driver
// (C9) fronting the worker pool (spec §4.8/§4.9).
package server

// Config configures a Server.
type Config struct {
	BindAddr      string
	NumWorkers    int
	ScratchDir    string
	AuthSecret    string // empty disables auth entirely (spec §9 open question)
	EncryptionKey string // empty disables encryption
}
