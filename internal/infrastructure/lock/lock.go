package lock

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when a lock is requested without a key.
var ErrEmptyKey = errors.New("lock key cannot be empty")

// Handle releases a held lock.
type Handle interface {
	Unlock(ctx context.Context) error
}

// Locker grants exclusive, non-blocking access to a key.
// TryLock returns acquired=false, err=nil when another holder has the key.
type Locker interface {
	TryLock(ctx context.Context, key string) (Handle, bool, error)
}

// TransactionKey is the lock key guarding one transaction record.
func TransactionKey(id string) string {
	return "lock:transaction:" + id
}
