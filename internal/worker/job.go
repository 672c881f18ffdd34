// Package worker implements the bounded pool of blocking STT workers that
// front the opaque Runner (spec §4.7): an unbounded FIFO job queue feeds N
// goroutines, each owning a private Runner instance, that write scratch
// audio, invoke the runner, and report a per-request result.
package worker

import "time"

// Job is a unit of transcription work submitted by the HTTP handler (C8).
type Job struct {
	RequestID  uint64
	AudioData  []byte
	DurationMS uint64
	EnqueueAt  time.Time
}

// Metrics brackets the timing the handler reports back to the client
// (spec §4.7 "Timing").
type Metrics struct {
	QueueWaitMS   uint64
	InferenceMS   uint64
	WorkerTotalMS uint64
}

// Result is the outcome of processing a Job: exactly one of SRTData (on
// success, possibly empty) or Err (on failure) is meaningful.
type Result struct {
	RequestID uint64
	SRTData   []byte
	Metrics   Metrics
	Err       error
}
