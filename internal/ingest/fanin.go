package ingest

import (
	"sync"

	"github.com/arbengine/arbengine/internal/domain"
)

// BoundedFanIn merges snapshots from multiple adapter channels into a
// single bounded output channel. When the output channel is full, the
// oldest queued snapshot is dropped in favor of the new one:
// market-data staleness is preferred over unbounded memory growth.
type BoundedFanIn struct {
	out chan domain.BookSnapshot
	mu  sync.Mutex
}

// NewBoundedFanIn creates a fan-in point with the given output buffer
// capacity.
func NewBoundedFanIn(capacity int) *BoundedFanIn {
	return &BoundedFanIn{out: make(chan domain.BookSnapshot, capacity)}
}

// Out returns the merged output channel.
func (f *BoundedFanIn) Out() <-chan domain.BookSnapshot { return f.out }

// Push enqueues a snapshot, dropping the oldest queued entry first if
// the buffer is full.
func (f *BoundedFanIn) Push(s domain.BookSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		select {
		case f.out <- s:
			return
		default:
			select {
			case <-f.out:
				// dropped oldest, retry push
			default:
				return
			}
		}
	}
}

// Close closes the output channel. Callers must ensure no further
// Push calls occur after Close.
func (f *BoundedFanIn) Close() { close(f.out) }
