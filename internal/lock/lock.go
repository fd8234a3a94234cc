package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock is held by someone else
var ErrNotAcquired = errors.New("lock held")

// Lease is a held lock. It expires on its own after its ttl.
type Lease interface {
	// Release gives the lock up. Releasing an expired or taken-over lease is a no-op.
	Release(ctx context.Context) error
}

// Locker hands out exclusive, self-expiring leases by key
//
//go:generate mockgen -source=lock.go -destination=../mocks/lock.go -package=mocks -mock_names=Locker=MockLocker,Lease=MockLease
type Locker interface {
	// TryAcquire takes the lock without waiting; it returns ErrNotAcquired when it is held
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}
