package store

import (
	"context"
	"sync"
	"time"

	"rul-dashboard/internal/metrics"
)

// MemoryHistory is a concurrency-safe in-memory History.
//
// Each subsystem keeps at most capacity points; appending past it drops the
// oldest. Expiry uses wall-clock time.
type MemoryHistory struct {
	mu       sync.RWMutex
	data     map[string][]Point
	capacity int
	metrics  *metrics.Registry
}

// NewMemoryHistory initializes and returns a new MemoryHistory.
func NewMemoryHistory(capacity int, metricsRegistry *metrics.Registry) *MemoryHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryHistory{
		data:     make(map[string][]Point),
		capacity: capacity,
		metrics:  metricsRegistry,
	}
}

// Append stores p, dropping the oldest point when the subsystem is full.
func (s *MemoryHistory) Append(_ context.Context, subsystem string, p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Inc(metrics.HistoryAppendsTotal)

	points := s.data[subsystem]
	if len(points) >= s.capacity {
		dropped := len(points) - s.capacity + 1
		points = points[dropped:]
		s.metrics.Add(metrics.HistoryPointsTotal, -int64(dropped))
	}

	s.data[subsystem] = append(points, p)
	s.metrics.Inc(metrics.HistoryPointsTotal)
	return nil
}

// List returns a copy of the live points of subsystem.
func (s *MemoryHistory) List(_ context.Context, subsystem string) ([]Point, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Point, 0, len(s.data[subsystem]))
	for _, p := range s.data[subsystem] {
		if !p.IsExpired(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// RemoveExpired removes all expired points.
//
// This is used by the background TTL cleaner.
func (s *MemoryHistory) RemoveExpired(_ context.Context) (int, error) {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, points := range s.data {
		kept := points[:0]
		for _, p := range points {
			if p.IsExpired(now) {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(s.data, key)
			continue
		}
		s.data[key] = kept
	}

	if removed > 0 {
		s.metrics.Add(metrics.HistoryPointsTotal, -int64(removed))
	}

	return removed, nil
}
