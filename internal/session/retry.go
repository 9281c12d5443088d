package session

import "sync"

// UnlimitedRetries disables the reconnect budget.
const UnlimitedRetries = -1

// RetryTracker counts reconnect attempts per session. The counter never
// decays with time; it is reset only by a successful connection open.
type RetryTracker struct {
	mu         sync.Mutex
	maxRetries int
	attempts   map[string]int
}

func NewRetryTracker(maxRetries int) *RetryTracker {
	return &RetryTracker{
		maxRetries: maxRetries,
		attempts:   make(map[string]int),
	}
}

// ShouldReconnect reports whether another reconnect attempt is within
// budget, incrementing the attempt count when it is. When the budget is
// exhausted the count is left unchanged.
func (t *RetryTracker) ShouldReconnect(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempts := t.attempts[id]
	if attempts < t.maxRetries || t.maxRetries == UnlimitedRetries {
		t.attempts[id] = attempts + 1
		return true
	}
	return false
}

// Clear resets the attempt count for id, called on connection open.
func (t *RetryTracker) Clear(id string) {
	t.mu.Lock()
	delete(t.attempts, id)
	t.mu.Unlock()
}

func (t *RetryTracker) Attempts(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts[id]
}
