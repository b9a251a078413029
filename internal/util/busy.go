package util

import "sync/atomic"

// Busy guards a form against a second submission while one is in flight.
type Busy struct {
	active atomic.Bool
}

// TryAcquire marks the guard busy. It returns false when it already was.
func (b *Busy) TryAcquire() bool {
	return b.active.CompareAndSwap(false, true)
}

// Release clears the guard.
func (b *Busy) Release() {
	b.active.Store(false)
}

// Active reports whether an operation is in flight.
func (b *Busy) Active() bool {
	return b.active.Load()
}
