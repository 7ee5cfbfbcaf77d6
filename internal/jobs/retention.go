package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cathcr/cathcr/internal/store"
)

// RetentionJob deletes captures that have aged past the configured
// retention window. It runs on a configurable interval (default: 24h)
// and does nothing when no window is configured.
type RetentionJob struct {
	store    *store.Store
	logger   *log.Logger
	window   time.Duration
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewRetentionJob creates a new retention job. A zero window disables it.
func NewRetentionJob(s *store.Store, logger *log.Logger, window, interval time.Duration) *RetentionJob {
	if interval == 0 {
		interval = 24 * time.Hour
	}
	return &RetentionJob{
		store:    s,
		logger:   logger,
		window:   window,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background job.
func (j *RetentionJob) Start() {
	if j.window <= 0 {
		j.logger.Println("RetentionJob: no retention window configured, job disabled")
		return
	}
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("RetentionJob: started (window=%v, interval=%v)", j.window, j.interval)
}

// Stop gracefully stops the background job.
func (j *RetentionJob) Stop() {
	if j.window <= 0 {
		return
	}
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("RetentionJob: stopped")
}

func (j *RetentionJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopCh:
			return
		}
	}
}

func (j *RetentionJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.window)
	deleted, err := j.store.DeleteCapturesOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Printf("RetentionJob: sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		j.logger.Printf("RetentionJob: deleted %d captures older than %s", deleted, cutoff.Format(time.RFC3339))
	}
}
