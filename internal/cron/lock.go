package cron

import (
	"context"
	"sync"
)

// Lock coordinates exclusive cron runs. The intent store lives in process
// memory, so the sweep loop runs inside the API process and a process-local
// lock is enough; the interface leaves room for a distributed lock if the
// store ever moves out of process.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLock implements Lock with an in-process mutex.
type LocalLock struct {
	mu sync.Mutex
}

// NewLocalLock constructs a process-local lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire returns false when a cycle is already running.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

// Release frees the lock.
func (l *LocalLock) Release(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}
