package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mpv-stt/sttcore/internal/logging"
	"github.com/mpv-stt/sttcore/internal/runner"
	"github.com/mpv-stt/sttcore/internal/sttcore"
	"github.com/mpv-stt/sttcore/internal/wavfmt"
)

// cancelSweepInterval and cancelTTL bound how long a cancelled-but-never-
// dequeued request id can linger in the cancellation set.
const (
	cancelSweepInterval = 30 * time.Second
	cancelTTL           = 5 * time.Minute
)

// NewRunnerFunc constructs a Runner, one per worker goroutine. Each call
// must return an independent instance; Runners are never shared across
// workers (spec §4.7 "private Runner").
type NewRunnerFunc func() (runner.Runner, error)

// Pool is the bounded set of blocking STT workers (spec §4.7).
type Pool struct {
	queue  *queue
	cancel *cancelSet
	router *resultRouter

	scratchDir string

	wg        sync.WaitGroup
	runners   []runner.Runner
	sweepDone chan struct{}
}

// New spawns numWorkers goroutines, each constructed via newRunner. It
// returns once every worker's Runner has been created, so a bad model
// path/config surfaces as a constructor error instead of a later silent
// failure (mirrors the original's fail-fast intent, adapted since Go's
// error path is explicit rather than a panic inside a spawned task).
func New(numWorkers int, scratchDir string, newRunner NewRunnerFunc) (*Pool, error) {
	p := &Pool{
		queue:      newQueue(),
		cancel:     newCancelSet(),
		router:     newResultRouter(),
		scratchDir: scratchDir,
		sweepDone:  make(chan struct{}),
	}

	for id := 0; id < numWorkers; id++ {
		r, err := newRunner()
		if err != nil {
			p.closeRunners()
			return nil, sttcore.Wrap(sttcore.KindSttFailed, "construct worker runner", err)
		}
		p.runners = append(p.runners, r)
	}

	for id, r := range p.runners {
		p.wg.Add(1)
		go p.workerLoop(id, r)
	}

	go p.sweepLoop()

	return p, nil
}

// Submit enqueues job and returns the channel its Result will arrive on.
// The caller must call Deregister(job.RequestID) once it stops waiting.
func (p *Pool) Submit(job Job) chan Result {
	ch := p.router.register(job.RequestID)
	p.queue.push(job)
	return ch
}

// Deregister releases the per-request result channel for requestID.
func (p *Pool) Deregister(requestID uint64) {
	p.router.deregister(requestID)
}

// CancelRequest marks requestID as cancelled; a worker that has not yet
// dequeued it will discard it instead of processing it (spec §4.7).
func (p *Pool) CancelRequest(requestID uint64) {
	p.cancel.cancel(requestID)
}

// Close stops accepting new work, waits for the workers to finish every job
// already queued, and releases every worker's Runner.
func (p *Pool) Close() error {
	close(p.sweepDone)
	p.queue.close()
	p.wg.Wait()
	return p.closeRunners()
}

func (p *Pool) closeRunners() error {
	var firstErr error
	for _, r := range p.runners {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Pool) sweepLoop() {
	ticker := time.NewTicker(cancelSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.sweepDone:
			return
		case <-ticker.C:
			p.cancel.sweep(cancelTTL)
		}
	}
}

func (p *Pool) workerLoop(workerID int, r runner.Runner) {
	defer p.wg.Done()
	logging.Infow("worker started", "worker_id", workerID)

	for {
		job, ok := p.queue.pop()
		if !ok {
			break
		}
		dequeueAt := time.Now()

		if p.cancel.checkAndPrune(job.RequestID) {
			logging.Infow("worker discarding cancelled request", logging.WorkerFields(workerID, job.RequestID)...)
			continue
		}

		result := p.process(workerID, r, job, dequeueAt)
		p.router.deliver(result)
	}

	logging.Infow("worker stopped", "worker_id", workerID)
}

func (p *Pool) process(workerID int, r runner.Runner, job Job, dequeueAt time.Time) Result {
	queueWaitMS := saturatingMillis(dequeueAt.Sub(job.EnqueueAt))

	scratchBase := filepath.Join(p.scratchDir, "sttcore-"+uuid.NewString())
	wavPath := scratchBase + ".wav"
	defer os.Remove(wavPath)
	defer os.Remove(scratchBase + ".srt")
	defer os.Remove(scratchBase + ".txt")

	if err := os.WriteFile(wavPath, job.AudioData, 0o600); err != nil {
		return Result{RequestID: job.RequestID, Err: sttcore.Wrap(sttcore.KindIO, "write scratch wav", err)}
	}

	durationMS := job.DurationMS
	if durationMS == 0 {
		durationMS = deriveDurationMS(job.AudioData)
	}

	inferStart := time.Now()
	err := r.Transcribe(context.Background(), wavPath, scratchBase, durationMS)
	inferenceMS := saturatingMillis(time.Since(inferStart))
	if err != nil {
		return Result{RequestID: job.RequestID, Err: sttcore.Wrap(sttcore.KindSttFailed, "runner transcribe", err)}
	}

	srtData, err := os.ReadFile(scratchBase + ".srt")
	if err != nil {
		return Result{RequestID: job.RequestID, Err: sttcore.Wrap(sttcore.KindIO, "read srt output", err)}
	}
	if len(srtData) == 0 {
		logging.Warnw("no subtitles produced", logging.WorkerFields(workerID, job.RequestID)...)
	}

	workerTotalMS := saturatingMillis(time.Since(dequeueAt))
	return Result{
		RequestID: job.RequestID,
		SRTData:   srtData,
		Metrics: Metrics{
			QueueWaitMS:   queueWaitMS,
			InferenceMS:   inferenceMS,
			WorkerTotalMS: workerTotalMS,
		},
	}
}

// deriveDurationMS estimates duration from a WAV buffer's sample count
// (spec §4.7 "derive duration from the WAV"). 0 on parse failure, since a
// WAV that made it this far was already validated by the handler.
func deriveDurationMS(wav []byte) uint64 {
	pcm, err := wavfmt.Parse(wav)
	if err != nil {
		return 0
	}
	samples := uint64(len(pcm) / 2)
	return saturatingMul(samples, 1000) / wavfmt.SampleRate
}

func saturatingMillis(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms < 0 {
		return ^uint64(0)
	}
	if d%time.Millisecond != 0 {
		ms++ // a partial millisecond rounds up, so a non-zero span never reports 0
	}
	return uint64(ms)
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	result := a * b
	if result/a != b {
		return ^uint64(0)
	}
	return result
}
