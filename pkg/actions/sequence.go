package actions

import "sync"

// sequencer issues per-instance submission numbers and answers whether a
// number is still the latest one issued for its instance.
type sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func newSequencer() *sequencer {
	return &sequencer{latest: make(map[string]uint64)}
}

func (s *sequencer) next(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[id]++
	return s.latest[id]
}

func (s *sequencer) isLatest(id string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[id] == seq
}
