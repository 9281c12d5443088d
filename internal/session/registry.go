package session

import "sync"

// Registry is the process-wide mapping from session id to live session.
// Lifecycle callbacks for different sessions run concurrently, so every
// access is serialized here.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Set(id string, sess *Session) {
	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	return sess, ok
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	_, ok := r.sessions[id]
	r.mu.RUnlock()
	return ok
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Range calls fn for every registered session without holding the lock
// during the callback.
func (r *Registry) Range(fn func(id string, sess *Session)) {
	for _, id := range r.IDs() {
		if sess, ok := r.Get(id); ok {
			fn(id, sess)
		}
	}
}
