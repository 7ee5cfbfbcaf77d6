package transcription

import (
	"context"
	"log"
	"sync"
	"time"
)

// HealthStatus is the aggregate usability of the subsystem.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is the answer to "is transcription usable right now, and
// how degraded is it?".
type HealthReport struct {
	Backends  map[Backend]bool `json:"backends"`
	Status    HealthStatus     `json:"status"`
	LatencyMs int64            `json:"latency_ms"`
}

const defaultProbeTimeout = 5 * time.Second

// Monitor probes backend reachability and publishes the result into the
// selector. It is the sole writer of the selector's health state.
type Monitor struct {
	selector *Selector
	logger   *log.Logger
	timeout  time.Duration
}

// NewMonitor creates a health monitor. timeout bounds each probe; zero
// means the 5s default.
func NewMonitor(selector *Selector, logger *log.Logger, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Monitor{selector: selector, logger: logger, timeout: timeout}
}

// Check probes every backend concurrently and returns the aggregate
// report. It never fails: a probe error or panic is recorded as false
// for that backend. web_speech requires no server-side network call, so
// it is reported statically true and excluded from the aggregate count.
func (m *Monitor) Check(ctx context.Context) HealthReport {
	start := time.Now()

	backends := map[Backend]bool{BackendWebSpeech: true}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, rec := range m.selector.Recognizers() {
		wg.Add(1)
		go func(rec Recognizer) {
			defer wg.Done()
			ok := m.probe(ctx, rec)
			mu.Lock()
			backends[rec.Name()] = ok
			mu.Unlock()
		}(rec)
	}
	wg.Wait()

	report := HealthReport{
		Backends:  backends,
		Status:    aggregateStatus(backends),
		LatencyMs: time.Since(start).Milliseconds(),
	}

	m.selector.SetHealth(backends)
	return report
}

// Run re-probes on the given interval until ctx is cancelled, keeping
// the selector's availability view fresh between on-demand checks.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context, rec Recognizer) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Printf("health: %s probe panicked: %v", rec.Name(), r)
			ok = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := rec.Ping(probeCtx); err != nil {
		m.logger.Printf("health: %s probe failed: %v", rec.Name(), err)
		return false
	}
	return true
}

// aggregateStatus counts reachable server-side backends: zero is
// unhealthy, one degraded, two or more healthy. The static web_speech
// entry says nothing about server capability and is not counted.
func aggregateStatus(backends map[Backend]bool) HealthStatus {
	reachable := 0
	for name, ok := range backends {
		if name == BackendWebSpeech {
			continue
		}
		if ok {
			reachable++
		}
	}
	switch {
	case reachable == 0:
		return StatusUnhealthy
	case reachable == 1:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
