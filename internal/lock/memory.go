package lock

import (
	"context"
	"sync"
	"time"

	"github.com/feral-file/ff-stacks-mint/internal/adapter"
)

type memoryEntry struct {
	generation uint64
	timer      adapter.Timer
}

// memoryLocker keeps leases in process memory
type memoryLocker struct {
	clock adapter.Clock

	mu         sync.Mutex
	held       map[string]memoryEntry
	generation uint64
}

// NewMemoryLocker creates a locker for a single process
func NewMemoryLocker(clock adapter.Clock) Locker {
	return &memoryLocker{
		clock: clock,
		held:  make(map[string]memoryEntry),
	}
}

func (l *memoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrNotAcquired
	}

	l.generation++
	generation := l.generation
	entry := memoryEntry{generation: generation}
	entry.timer = l.clock.AfterFunc(ttl, func() {
		l.release(key, generation)
	})
	l.held[key] = entry

	return &memoryLease{locker: l, key: key, generation: generation}, nil
}

// release drops the entry only if it still belongs to generation
func (l *memoryLocker) release(key string, generation uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.held[key]
	if !ok || entry.generation != generation {
		return
	}
	delete(l.held, key)
	if entry.timer != nil {
		entry.timer.Stop()
	}
}

type memoryLease struct {
	locker     *memoryLocker
	key        string
	generation uint64
}

func (m *memoryLease) Release(context.Context) error {
	m.locker.release(m.key, m.generation)
	return nil
}
