package engine

import (
	"context"
	"sync"
)

// StreamSlot serializes access to the single live stream. Acquiring the
// slot cancels whatever stream currently holds it, so starting a new run
// or refinement aborts the previous one.
type StreamSlot struct {
	mu     sync.Mutex
	holder *slotHolder
}

type slotHolder struct {
	cancel context.CancelFunc
}

// Acquire cancels the current holder (if any) and derives a cancellable
// context for the new one. The returned release func cancels the stream
// and vacates the slot; it is safe to call more than once.
func (s *StreamSlot) Acquire(parent context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holder != nil {
		s.holder.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &slotHolder{cancel: cancel}
	s.holder = h

	release := func() {
		cancel()
		s.mu.Lock()
		// Only vacate if a newer holder has not replaced us.
		if s.holder == h {
			s.holder = nil
		}
		s.mu.Unlock()
	}
	return ctx, release
}

// Abort cancels the current holder without claiming the slot.
func (s *StreamSlot) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holder != nil {
		s.holder.cancel()
		s.holder = nil
	}
}
