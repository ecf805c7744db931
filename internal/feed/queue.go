package feed

import (
	"log/slog"
	"sync"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

// Queue is the bounded buffer between the discovery feed and the
// coordinator. When full, the oldest queued candidate is dropped (a stale
// discovery is worthless) and the drop is counted.
type Queue struct {
	mu      sync.Mutex
	ch      chan domain.Candidate
	dropped int64
	logger  *slog.Logger
}

// NewQueue creates a Queue holding at most size candidates.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		ch:     make(chan domain.Candidate, size),
		logger: logger.With(slog.String("component", "candidate_queue")),
	}
}

// Push enqueues a candidate, evicting the oldest entry when the buffer is
// full.
func (q *Queue) Push(c domain.Candidate) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case q.ch <- c:
			return
		default:
		}
		select {
		case old := <-q.ch:
			q.dropped++
			q.logger.Warn("candidate queue full, dropped oldest",
				slog.String("dropped_mint", old.Mint),
				slog.Int64("total_dropped", q.dropped),
			)
		default:
		}
	}
}

// C returns the receive side consumed by the coordinator.
func (q *Queue) C() <-chan domain.Candidate {
	return q.ch
}

// Dropped returns how many candidates have been evicted so far.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
