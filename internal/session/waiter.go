package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// Result is the single response a create flow may deliver to its caller:
// a pairing code, a rendered QR challenge, or a failure.
type Result struct {
	OK      bool
	Message string
	Data    interface{}
}

// ResponseWaiter carries at most one Result from the session lifecycle
// back to the HTTP caller that initiated the create. Every method is safe
// on a nil receiver: a recovered session has no caller waiting.
type ResponseWaiter struct {
	once    sync.Once
	pending atomic.Bool
	ch      chan Result
}

func NewResponseWaiter() *ResponseWaiter {
	w := &ResponseWaiter{
		ch: make(chan Result, 1),
	}
	w.pending.Store(true)
	return w
}

// Pending reports whether no result has been delivered yet.
func (w *ResponseWaiter) Pending() bool {
	return w != nil && w.pending.Load()
}

func (w *ResponseWaiter) Succeed(message string, data interface{}) {
	w.deliver(Result{OK: true, Message: message, Data: data})
}

func (w *ResponseWaiter) Fail(message string) {
	w.deliver(Result{OK: false, Message: message})
}

func (w *ResponseWaiter) deliver(result Result) {
	if w == nil {
		return
	}
	w.once.Do(func() {
		w.pending.Store(false)
		w.ch <- result
	})
}

// Wait blocks until a result is delivered or the context expires.
func (w *ResponseWaiter) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case result := <-w.ch:
		return result, nil
	}
}
