package transcription

import (
	"context"
	"errors"
	"testing"
)

func TestHealthAggregation(t *testing.T) {
	order := []Backend{BackendHostedOpenModel, BackendCommercialAPI}

	tests := []struct {
		name       string
		hostedErr  error
		commercial error
		want       HealthStatus
	}{
		{"all reachable", nil, nil, StatusHealthy},
		{"one reachable", errors.New("down"), nil, StatusDegraded},
		{"none reachable", errors.New("down"), errors.New("down"), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hosted := &fakeRecognizer{name: BackendHostedOpenModel, pingErr: tt.hostedErr}
			commercial := &fakeRecognizer{name: BackendCommercialAPI, pingErr: tt.commercial}
			selector := NewSelector(order, []Recognizer{hosted, commercial}, nil)
			m := NewMonitor(selector, testLogger(), 0)

			report := m.Check(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %q, want %q", report.Status, tt.want)
			}
			if !report.Backends[BackendWebSpeech] {
				t.Error("web_speech must always be reported reachable")
			}
			if report.LatencyMs < 0 {
				t.Errorf("latency = %d, want >= 0", report.LatencyMs)
			}
		})
	}
}

func TestHealthCheckNeverRaises(t *testing.T) {
	hosted := &fakeRecognizer{name: BackendHostedOpenModel, panicOnPing: true}
	commercial := &fakeRecognizer{name: BackendCommercialAPI, panicOnPing: true}
	selector := NewSelector([]Backend{BackendHostedOpenModel, BackendCommercialAPI},
		[]Recognizer{hosted, commercial}, nil)
	m := NewMonitor(selector, testLogger(), 0)

	report := m.Check(context.Background())
	if report.Status != StatusUnhealthy {
		t.Errorf("status = %q, want %q when every probe panics", report.Status, StatusUnhealthy)
	}
	if report.Backends[BackendHostedOpenModel] || report.Backends[BackendCommercialAPI] {
		t.Error("panicking probes must be recorded as unreachable")
	}
}

func TestHealthCheckIncludesLocalBackend(t *testing.T) {
	hosted := &fakeRecognizer{name: BackendHostedOpenModel}
	local := &fakeRecognizer{name: BackendLocalHighPerformance, pingErr: errors.New("not running")}
	selector := NewSelector([]Backend{BackendHostedOpenModel}, []Recognizer{hosted}, local)
	m := NewMonitor(selector, testLogger(), 0)

	report := m.Check(context.Background())
	reachable, probed := report.Backends[BackendLocalHighPerformance]
	if !probed {
		t.Fatal("local backend missing from the report")
	}
	if reachable {
		t.Error("local backend reported reachable despite a failing probe")
	}
}

func TestHealthCheckPublishesToSelector(t *testing.T) {
	hosted := &fakeRecognizer{name: BackendHostedOpenModel, pingErr: errors.New("down")}
	commercial := &fakeRecognizer{name: BackendCommercialAPI}
	selector := NewSelector([]Backend{BackendHostedOpenModel, BackendCommercialAPI},
		[]Recognizer{hosted, commercial}, nil)
	m := NewMonitor(selector, testLogger(), 0)

	m.Check(context.Background())

	available := selector.AvailableBackends()
	if len(available) != 1 || available[0] != BackendCommercialAPI {
		t.Errorf("available = %v, want only %q after the probe", available, BackendCommercialAPI)
	}
}
