package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"deckhand/internal/auth"
	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/notifications"
	"deckhand/internal/queue"
	"deckhand/internal/services/worker"
)

// ConfigProvider returns the current configuration. The manager reads it
// fresh at admission and recovery time so an edited max_concurrency applies
// without a restart.
type ConfigProvider func() *config.Config

// Manager owns job scheduling: admission of pending jobs under the
// concurrency cap, startup recovery of jobs interrupted by a restart, and
// the polling loop for generations that outlive their worker process.
type Manager struct {
	provider ConfigProvider
	store    *queue.Store
	driver   worker.Driver
	creds    auth.Provider
	notifier notifications.Service
	hub      *queue.Hub
	logger   *slog.Logger

	sem  *dynamicSemaphore
	wake chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	active  map[string]*slot
}

// slot pairs an admitted job with its one-shot capacity release. Removal
// frees the slot early while the job's worker process keeps running, so
// the release must be safe to call twice.
type slot struct {
	once sync.Once
	sem  *dynamicSemaphore
}

func (s *slot) release() {
	s.once.Do(s.sem.Release)
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithNotifier overrides the notification service (used in tests).
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithCredentials overrides the credential provider (used in tests).
func WithCredentials(creds auth.Provider) Option {
	return func(m *Manager) {
		if creds != nil {
			m.creds = creds
		}
	}
}

// WithHub attaches the event hub progress events are published to.
func WithHub(hub *queue.Hub) Option {
	return func(m *Manager) {
		m.hub = hub
	}
}

// NewManager constructs an orchestrator manager.
func NewManager(provider ConfigProvider, store *queue.Store, driver worker.Driver, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg := provider()
	m := &Manager{
		provider: provider,
		store:    store,
		driver:   driver,
		creds:    auth.NewFileProvider(cfg),
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		sem:      newDynamicSemaphore(config.ClampConcurrency(cfg.Queue.MaxConcurrency)),
		wake:     make(chan struct{}, 1),
		active:   make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Nudge asks the scheduler to re-evaluate admission immediately.
func (m *Manager) Nudge() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) currentLimit() int {
	cfg := m.provider()
	if cfg == nil {
		return 1
	}
	return config.ClampConcurrency(cfg.Queue.MaxConcurrency)
}

func (m *Manager) trackActive(id string) *slot {
	s := &slot{sem: m.sem}
	m.mu.Lock()
	m.active[id] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) finishJob(id string, s *slot) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
	s.release()
	m.Nudge()
}

// releaseActive frees the capacity held by a removed job without waiting
// for its worker process, which deliberately keeps running.
func (m *Manager) releaseActive(id string) {
	m.mu.Lock()
	s := m.active[id]
	delete(m.active, id)
	m.mu.Unlock()
	if s != nil {
		s.release()
		m.Nudge()
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) jobLogger(id string) *slog.Logger {
	return m.logger.With(logging.String(logging.FieldJobID, id))
}
