package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"wagateway/internal/engine"
	"wagateway/internal/history"
	"wagateway/internal/storage"
	"wagateway/internal/webhook"
	"wagateway/pkg/env"
	"wagateway/pkg/log"
)

var ErrShuttingDown = errors.New("session manager is shutting down")

type Config struct {
	// MaxRetries bounds reconnect attempts per session: -1 unlimited,
	// 0 never reconnect.
	MaxRetries         int
	ReconnectInterval  time.Duration
	InlineMedia        bool
	RecoverConcurrency int
	RecoverJitterMax   time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		MaxRetries:         env.GetEnvIntOrDefault("MAX_RETRIES", 0),
		ReconnectInterval:  time.Duration(env.GetEnvIntOrDefault("RECONNECT_INTERVAL", 0)) * time.Millisecond,
		InlineMedia:        env.GetEnvBoolOrDefault("APP_WEBHOOK_FILE_IN_BASE64", false),
		RecoverConcurrency: env.GetEnvIntOrDefault("STARTUP_RECOVER_CONCURRENCY", 10),
		RecoverJitterMax:   env.GetEnvDurationOrDefault("STARTUP_RECOVER_JITTER_MAX", 2*time.Second),
	}
}

type CreateOptions struct {
	UsePairingCode bool
	PhoneNumber    string
}

// Manager owns every session lifecycle: creation, recovery at boot,
// reconnection with a bounded retry budget, deletion, and the fan-out of
// engine events to the webhook dispatcher.
type Manager struct {
	cfg        Config
	opener     engine.Opener
	store      *storage.Store
	dispatcher *webhook.Dispatcher
	registry   *Registry
	tracker    *RetryTracker

	// createMu guards createLocks; each id gets its own mutex so that
	// concurrent create calls for one id are serialized while distinct
	// ids proceed in parallel.
	createMu    sync.Mutex
	createLocks map[string]*sync.Mutex

	closed atomic.Bool
	loops  sync.WaitGroup
}

func NewManager(cfg Config, opener engine.Opener, store *storage.Store, dispatcher *webhook.Dispatcher) *Manager {
	if cfg.RecoverConcurrency <= 0 {
		cfg.RecoverConcurrency = 10
	}
	return &Manager{
		cfg:         cfg,
		opener:      opener,
		store:       store,
		dispatcher:  dispatcher,
		registry:    NewRegistry(),
		tracker:     NewRetryTracker(cfg.MaxRetries),
		createLocks: make(map[string]*sync.Mutex),
	}
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

func (m *Manager) Tracker() *RetryTracker {
	return m.tracker
}

func (m *Manager) createLock(id string) *sync.Mutex {
	m.createMu.Lock()
	defer m.createMu.Unlock()
	lock, ok := m.createLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.createLocks[id] = lock
	}
	return lock
}

// Create establishes a session for id. A later create for the same id
// supersedes the installed handle: the old connection is closed before the
// new one is opened, and the registry entry is replaced only once the new
// connection is established. The optional waiter receives exactly one
// result (pairing code, QR challenge, or failure).
func (m *Manager) Create(ctx context.Context, id string, waiter *ResponseWaiter, opts CreateOptions) error {
	lock := m.createLock(id)
	lock.Lock()
	defer lock.Unlock()

	if m.closed.Load() {
		waiter.Fail("Unable to create session.")
		return ErrShuttingDown
	}

	credDir, err := m.store.Resolve(id)
	if err != nil {
		waiter.Fail("Unable to create session.")
		return err
	}

	// Supersede any previous handle before opening a new one; the
	// credential datastore is exclusive to one open connection.
	if old, ok := m.registry.Get(id); ok {
		_ = old.conn.Close()
	}

	hist := history.Open(m.store.HistoryPath(id))

	conn, err := m.opener.Open(ctx, engine.OpenOptions{
		SessionID:      id,
		CredentialDir:  credDir,
		UsePairingCode: opts.UsePairingCode,
		InlineMedia:    m.cfg.InlineMedia,
		History:        hist,
	})
	if err != nil {
		waiter.Fail("Unable to create session.")
		return fmt.Errorf("open session %s: %w", id, err)
	}

	sess := &Session{ID: id, conn: conn, history: hist}
	m.registry.Set(id, sess)

	m.loops.Add(1)
	go m.runLoop(sess, waiter)

	if opts.UsePairingCode && !conn.Registered() {
		code, err := conn.PairPhone(ctx, opts.PhoneNumber)
		if err != nil || code == "" {
			log.Session(id).WithError(err).Error("Pairing code request failed")
			waiter.Fail("Unable to create session.")
			return nil
		}
		waiter.Succeed("Verify on your phone and enter the provided code.", map[string]interface{}{
			"code": code,
		})
	}

	return nil
}

// RecoverAll restores every session found under the credential root.
// Recovered sessions have no caller waiting, so the pairing branch is
// skipped. A scan failure is returned to the caller (boot-fatal there);
// individual session failures are logged and skipped.
func (m *Manager) RecoverAll(ctx context.Context) error {
	ids, err := m.store.ListIDs()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.RecoverConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			jitterSleep(m.cfg.RecoverJitterMax)
			log.Session(id).Info("Recovering session")
			if err := m.Create(ctx, id, nil, CreateOptions{}); err != nil {
				log.Session(id).WithError(err).Warn("Failed to recover session")
			}
			return nil
		})
	}
	return g.Wait()
}

func jitterSleep(max time.Duration) {
	if max <= 0 {
		return
	}
	ms := rand.Int64N(max.Milliseconds() + 1)
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Delete tears a session down: close the handle, drop the registry entry,
// clear the retry counter, remove the credential directory and history
// file. Deleting a nonexistent id is a no-op.
func (m *Manager) Delete(id string) error {
	if sess, ok := m.registry.Get(id); ok {
		_ = sess.conn.Close()
	}
	m.registry.Delete(id)
	m.tracker.Clear(id)

	if err := m.store.Remove(id); err != nil {
		return fmt.Errorf("remove persisted state for %s: %w", id, err)
	}
	return nil
}

// Logout logs the session out of the protocol account, then deletes it.
func (m *Manager) Logout(ctx context.Context, id string) error {
	sess, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("session %s is not registered", id)
	}
	if err := sess.conn.Logout(ctx); err != nil {
		log.Session(id).WithError(err).Warn("Protocol logout failed, deleting session anyway")
	}
	return m.Delete(id)
}

func (m *Manager) Get(id string) (*Session, bool) {
	return m.registry.Get(id)
}

func (m *Manager) List() []string {
	return m.registry.IDs()
}

func (m *Manager) IsRegistered(id string) bool {
	return m.registry.Has(id)
}

// IsConnected is a point-in-time check against the underlying transport.
func (m *Manager) IsConnected(id string) bool {
	sess, ok := m.registry.Get(id)
	return ok && sess.conn.IsConnected()
}

// FlushHistories rewrites every session's history cache file.
func (m *Manager) FlushHistories() {
	m.registry.Range(func(id string, sess *Session) {
		if err := sess.history.Flush(); err != nil {
			log.Session(id).WithError(err).Warn("History cache flush failed")
		}
	})
}

// Shutdown stops scheduling reconnects, flushes history caches, and
// closes every live handle.
func (m *Manager) Shutdown() {
	m.closed.Store(true)
	m.registry.Range(func(id string, sess *Session) {
		if err := sess.history.Flush(); err != nil {
			log.Session(id).WithError(err).Warn("History cache flush failed")
		}
		_ = sess.conn.Close()
	})
	m.loops.Wait()
}
