package transcription

import "sync/atomic"

// Selector knows which backends are configured and reachable and
// provides the ordered fallback chain to consult.
//
// The health map is written only by the Monitor, as a whole-value swap;
// everything else reads it. No further locking is needed.
type Selector struct {
	recognizers map[Backend]Recognizer
	chain       []Recognizer
	local       Recognizer
	health      atomic.Value // map[Backend]bool
}

// NewSelector builds a selector from the configured recognizers, the
// configured chain ordering and an optional last-resort local backend.
// Backends named in the order but not configured are skipped, as is
// local_high_performance: the local backend is never part of the primary
// chain, it is only tried after the chain is exhausted.
func NewSelector(order []Backend, recognizers []Recognizer, local Recognizer) *Selector {
	byName := make(map[Backend]Recognizer, len(recognizers))
	for _, rec := range recognizers {
		byName[rec.Name()] = rec
	}
	if local != nil {
		byName[local.Name()] = local
	}

	var chain []Recognizer
	seen := make(map[Backend]bool)
	for _, name := range order {
		if name == BackendLocalHighPerformance || seen[name] {
			continue
		}
		rec, ok := byName[name]
		if !ok || rec == local {
			continue
		}
		seen[name] = true
		chain = append(chain, rec)
	}

	return &Selector{
		recognizers: byName,
		chain:       chain,
		local:       local,
	}
}

// FallbackChain returns the configured chain ordering. The local
// last-resort backend is not included.
func (s *Selector) FallbackChain() []Recognizer {
	return s.chain
}

// Local returns the last-resort local backend, or nil when disabled.
func (s *Selector) Local() Recognizer {
	return s.local
}

// Recognizers returns every configured server-side backend, chain first,
// local last.
func (s *Selector) Recognizers() []Recognizer {
	recs := make([]Recognizer, 0, len(s.chain)+1)
	recs = append(recs, s.chain...)
	if s.local != nil {
		recs = append(recs, s.local)
	}
	return recs
}

// AvailableBackends reports the server-side backends that are configured
// and that the most recent health probe did not mark unreachable. With
// no probe on record every configured backend counts as available.
func (s *Selector) AvailableBackends() []Backend {
	var out []Backend
	for _, rec := range s.Recognizers() {
		if s.healthy(rec.Name()) {
			out = append(out, rec.Name())
		}
	}
	return out
}

// SetHealth publishes a fresh health map. The monitor is the sole
// caller; the map must not be mutated afterwards.
func (s *Selector) SetHealth(health map[Backend]bool) {
	s.health.Store(health)
}

func (s *Selector) healthy(name Backend) bool {
	m, _ := s.health.Load().(map[Backend]bool)
	if m == nil {
		return true
	}
	ok, probed := m[name]
	return !probed || ok
}
