package service

import (
	"sync"
	"time"
)

// IDSource hands out millisecond timestamps that never repeat: if the clock
// has not advanced since the last call, the previous value plus one is used.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDSource() *IDSource {
	return &IDSource{now: time.Now}
}

func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
