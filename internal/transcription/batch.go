package transcription

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// DefaultGroupSize is how many requests run concurrently per group.
	DefaultGroupSize = 5
	// DefaultGroupDelay is the pacing pause between groups, protecting
	// rate-limited backends during backlog reprocessing.
	DefaultGroupDelay = 100 * time.Millisecond
)

// BatchConfig holds tunables for the batch transcriber.
type BatchConfig struct {
	GroupSize  int           // <=0 means DefaultGroupSize
	GroupDelay time.Duration // <0 means DefaultGroupDelay, 0 disables pacing
	// DefaultBackend tags sentinel failure results; typically the head
	// of the configured fallback chain.
	DefaultBackend Backend
}

// Batch fans requests out across a single-request transcriber with
// bounded concurrency and inter-group pacing. It never retries; retry
// policy belongs to the caller.
type Batch struct {
	transcriber    Transcriber
	logger         *log.Logger
	groupSize      int
	groupDelay     time.Duration
	defaultBackend Backend
	sleep          func(context.Context, time.Duration)
}

// NewBatch creates a batch transcriber over the given single-request one.
func NewBatch(t Transcriber, logger *log.Logger, cfg BatchConfig) *Batch {
	groupSize := cfg.GroupSize
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	groupDelay := cfg.GroupDelay
	if groupDelay < 0 {
		groupDelay = DefaultGroupDelay
	}
	return &Batch{
		transcriber:    t,
		logger:         logger,
		groupSize:      groupSize,
		groupDelay:     groupDelay,
		defaultBackend: cfg.DefaultBackend,
		sleep:          sleepCtx,
	}
}

// BatchTranscribe resolves every request and returns results in input
// order. Requests within a group run concurrently and all settle before
// the next group starts; a failed request yields a zero-confidence
// sentinel in its slot instead of aborting its siblings.
func (b *Batch) BatchTranscribe(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	for start := 0; start < len(reqs); start += b.groupSize {
		if start > 0 && b.groupDelay > 0 {
			b.sleep(ctx, b.groupDelay)
		}

		end := min(start+b.groupSize, len(reqs))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := b.transcriber.Transcribe(ctx, reqs[i])
				if err != nil {
					b.logger.Printf("transcription: batch item %d failed: %v", i, err)
					res = b.sentinel(reqs[i])
				}
				results[i] = res
			}(i)
		}
		wg.Wait()
	}

	return results
}

// sentinel is the zero-confidence placeholder that preserves positional
// correspondence when an item fails.
func (b *Batch) sentinel(req Request) Result {
	backend := b.defaultBackend
	if req.RealtimeText != "" {
		backend = BackendWebSpeech
	}
	return Result{Text: "", Confidence: 0, Backend: backend, ProcessingTimeMs: 0}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
