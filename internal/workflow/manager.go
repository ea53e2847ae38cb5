package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"bbdrop/internal/artifact"
	"bbdrop/internal/config"
	"bbdrop/internal/imagehost"
	"bbdrop/internal/logging"
	"bbdrop/internal/naturalsort"
	"bbdrop/internal/notifications"
	"bbdrop/internal/queue"
	"bbdrop/internal/rename"
)

// HostSource resolves enabled image-host clients by id.
// *imagehost.Registry satisfies this.
type HostSource interface {
	Get(id string) (imagehost.Client, error)
}

// Manager owns the daemon's upload loop: poll the queue, claim the next
// pending gallery, run the engine over it, and map the outcome back onto the
// item.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	hosts      HostSource
	renames    *rename.Service
	artifacts  *artifact.Writer
	notifier   notifications.Service
	logger     *slog.Logger
	comparator naturalsort.Comparator

	pollInterval time.Duration
	heartbeat    *HeartbeatMonitor

	softStop atomic.Bool
	progress func(completed, total, percent int, filename string)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error

	processed  int
	queueStart time.Time
}

// NewManager constructs a workflow manager. The rename service may be nil
// when auto-rename is disabled.
func NewManager(cfg *config.Config, store *queue.Store, hosts HostSource, renames *rename.Service, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, hosts, renames, notifications.NewService(cfg), logger)
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, hosts HostSource, renames *rename.Service, notifier notifications.Service, logger *slog.Logger) *Manager {
	componentLogger := logging.NewComponentLogger(logger, "workflow")
	return &Manager{
		cfg:          cfg,
		store:        store,
		hosts:        hosts,
		renames:      renames,
		artifacts:    artifact.NewWriter(cfg, logger),
		notifier:     notifier,
		logger:       componentLogger,
		comparator:   naturalsort.New(componentLogger),
		pollInterval: time.Duration(cfg.Daemon.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			componentLogger,
			time.Duration(cfg.Daemon.HeartbeatInterval)*time.Second,
		),
	}
}

// SetProgressObserver installs a callback that observes every completed
// upload alongside the queue's own progress columns. Set it before Start or
// RunItem; it is not safe to change while processing runs.
func (m *Manager) SetProgressObserver(fn func(completed, total, percent int, filename string)) {
	m.progress = fn
}

// RunItem processes a single queue item in the foreground and returns its
// final state. Soft stop and cancellation behave exactly as in the background
// loop.
func (m *Manager) RunItem(ctx context.Context, item *queue.Item) (*queue.Item, error) {
	m.processItem(ctx, item)
	return m.store.GetByID(context.WithoutCancel(ctx), item.ID)
}

// Start begins background queue processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.softStop.Store(false)
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// RequestStop asks the manager to stop after the current gallery's in-flight
// uploads finish. The engine submits no further uploads once the flag is set;
// the interrupted item lands in the incomplete state, resumable later.
func (m *Manager) RequestStop() {
	if m.softStop.CompareAndSwap(false, true) {
		m.logger.Info("soft stop requested; in-flight uploads will finish")
	}
}

// Stop cancels background processing outright and waits for the loop to
// exit. Callers wanting a graceful shutdown use RequestStop first and call
// Stop only when the loop has drained or patience runs out.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Wait blocks until the processing loop exits on its own, such as after a
// soft stop completes.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Running reports whether the processing loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent loop-level error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) stopRequested(ctx context.Context) bool {
	return m.softStop.Load() || ctx.Err() != nil
}
