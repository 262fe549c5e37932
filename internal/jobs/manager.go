package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long terminal jobs are kept before cleanup.
const DefaultRetention = 24 * time.Hour

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Logger    *slog.Logger
	Retention time.Duration
	// Now overrides the clock. Tests use it to age jobs.
	Now func() time.Time
}

type commandKind int

const (
	cmdProgress commandKind = iota
	cmdComplete
	cmdFail
	cmdCancel
	cmdCleanup
	cmdFlush
)

type command struct {
	kind     commandKind
	id       string
	progress float64
	message  string
	result   any
	err      string
	done     chan struct{}
}

// Manager is the in-memory job registry.
//
// Status changes are queued onto an unbounded command queue and applied by a
// single goroutine, so transitions never interleave. Reads take the registry
// read lock directly. Once Shutdown is called, queued updates are dropped and
// job state freezes.
type Manager struct {
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job

	qmu    sync.Mutex
	queue  []command
	closed bool
	notify chan struct{}
	done   chan struct{}
	exited chan struct{}

	subMu sync.Mutex
	subs  map[string][]chan StatusView
}

// NewManager creates a Manager and starts its command loop.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{
		logger:    cfg.Logger,
		retention: cfg.Retention,
		now:       cfg.Now,
		jobs:      make(map[string]*Job),
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
		subs:      make(map[string][]chan StatusView),
	}
	go m.run()
	return m
}

// CreateJob registers a pending job and returns its id. Registration is
// applied immediately so the id is visible to readers on return.
func (m *Manager) CreateJob(t JobType) string {
	id := uuid.New().String()
	now := m.now()

	m.mu.Lock()
	m.jobs[id] = &Job{
		ID:        id,
		Type:      t,
		Status:    Status{State: StatePending},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Unlock()

	m.logger.Info("job created", "id", id, "kind", t.Kind)
	return id
}

// GetJob returns a copy of the job.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	return j.clone(), true
}

// ListJobs returns copies of all jobs, newest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// IsCancelled reports whether the job exists and has been cancelled.
func (m *Manager) IsCancelled(id string) bool {
	j, ok := m.GetJob(id)
	return ok && j.Status.State == StateCancelled
}

// UpdateProgress moves the job to Running with the given percentage.
func (m *Manager) UpdateProgress(id string, percent float64, message string) {
	m.send(command{kind: cmdProgress, id: id, progress: clampPercent(percent), message: message})
}

// CompleteJob moves the job to Completed.
func (m *Manager) CompleteJob(id string, result any) {
	m.send(command{kind: cmdComplete, id: id, result: result})
}

// FailJob moves the job to Failed.
func (m *Manager) FailJob(id string, errMsg string) {
	m.send(command{kind: cmdFail, id: id, err: errMsg})
}

// CancelJob moves a pending or running job to Cancelled. Cancelling a
// terminal job does nothing.
func (m *Manager) CancelJob(id string) {
	m.send(command{kind: cmdCancel, id: id})
}

// CleanupOldJobs removes terminal jobs whose last update is older than the
// retention window.
func (m *Manager) CleanupOldJobs() {
	m.send(command{kind: cmdCleanup})
}

// Flush blocks until every command queued before the call has been applied,
// or ctx is done. It returns immediately after Shutdown.
func (m *Manager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !m.send(command{kind: cmdFlush, done: done}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-m.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartCleanup runs CleanupOldJobs every interval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupOldJobs()
			}
		}
	}()
}

// Subscribe returns a channel that receives the job's status after every
// applied transition. Slow readers only see the latest view. The channel is
// closed once the job reaches a terminal state or the returned cancel func is
// called.
func (m *Manager) Subscribe(id string) (<-chan StatusView, func()) {
	ch := make(chan StatusView, 1)

	m.subMu.Lock()
	if j, ok := m.GetJob(id); ok {
		v := j.View()
		offer(ch, v)
		if v.Status.IsTerminal() {
			m.subMu.Unlock()
			close(ch)
			return ch, func() {}
		}
	}
	m.subs[id] = append(m.subs[id], ch)
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { m.unsubscribe(id, ch) })
	}
}

// Shutdown stops the command loop. Later updates are dropped silently.
func (m *Manager) Shutdown() {
	m.qmu.Lock()
	if m.closed {
		m.qmu.Unlock()
		return
	}
	m.closed = true
	m.qmu.Unlock()
	close(m.done)
	<-m.exited
}

func (m *Manager) send(c command) bool {
	m.qmu.Lock()
	if m.closed {
		m.qmu.Unlock()
		return false
	}
	m.queue = append(m.queue, c)
	m.qmu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

func (m *Manager) run() {
	defer close(m.exited)
	for {
		select {
		case <-m.done:
			return
		case <-m.notify:
		}

		m.qmu.Lock()
		batch := m.queue
		m.queue = nil
		m.qmu.Unlock()

		for _, c := range batch {
			select {
			case <-m.done:
				return
			default:
			}
			m.apply(c)
		}
	}
}

func (m *Manager) apply(c command) {
	switch c.kind {
	case cmdFlush:
		close(c.done)
		return
	case cmdCleanup:
		m.cleanup()
		return
	}

	m.mu.Lock()
	j, ok := m.jobs[c.id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if j.Status.State.IsTerminal() {
		m.mu.Unlock()
		m.logger.Debug("ignoring update to terminal job", "id", c.id, "state", j.Status.State)
		return
	}

	switch c.kind {
	case cmdProgress:
		j.Status = Status{State: StateRunning, Progress: c.progress, Message: c.message}
	case cmdComplete:
		j.Status = Status{State: StateCompleted, Result: c.result}
	case cmdFail:
		j.Status = Status{State: StateFailed, Error: c.err}
	case cmdCancel:
		j.Status = Status{State: StateCancelled}
	}
	j.UpdatedAt = m.now()
	view := j.View()
	m.mu.Unlock()

	if view.Status.IsTerminal() {
		m.logger.Info("job finished", "id", c.id, "status", view.Status)
	}
	m.publish(c.id, view)
}

func (m *Manager) cleanup() {
	cutoff := m.now().Add(-m.retention)

	m.mu.Lock()
	removed := 0
	for id, j := range m.jobs {
		if j.Status.State.IsTerminal() && j.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Info("cleaned up old jobs", "removed", removed)
	}
}

func (m *Manager) publish(id string, v StatusView) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs[id] {
		offer(ch, v)
		if v.Status.IsTerminal() {
			close(ch)
		}
	}
	if v.Status.IsTerminal() {
		delete(m.subs, id)
	}
}

func (m *Manager) unsubscribe(id string, ch chan StatusView) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	list := m.subs[id]
	for i, c := range list {
		if c == ch {
			m.subs[id] = append(list[:i], list[i+1:]...)
			close(ch)
			break
		}
	}
	if len(m.subs[id]) == 0 {
		delete(m.subs, id)
	}
}

// offer replaces any unread view in ch with v.
func offer(ch chan StatusView, v StatusView) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
