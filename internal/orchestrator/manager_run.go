package orchestrator

import (
	"context"
	"errors"
	"time"

	"deckhand/internal/logging"
	"deckhand/internal/queue"
)

// idleWait bounds how long the scheduler sleeps between admission checks
// when nothing nudges it. Submissions and completions wake it sooner.
const idleWait = time.Second

// Start runs the recovery pass and then begins background scheduling.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("orchestrator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	go m.limitLoop(runCtx)
	go func() {
		defer m.wg.Done()
		m.recover(runCtx)
		m.scheduleLoop(runCtx)
	}()
	return nil
}

// Stop cancels background work and waits for in-flight goroutines. Worker
// processes die with the context; their jobs stay non-terminal in the
// snapshot so the next start can restore them.
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

// limitLoop keeps the semaphore limit in step with the live configuration
// so a blocked admission re-evaluates when max_concurrency changes.
func (m *Manager) limitLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(idleWait)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sem.SetLimit(m.currentLimit())
		}
	}
}

func (m *Manager) scheduleLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.sem.SetLimit(m.currentLimit())

		job, err := m.store.NextPending(ctx)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next pending job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"))
			m.waitForWork(ctx)
			continue
		}
		if job == nil {
			m.waitForWork(ctx)
			continue
		}

		if err := m.sem.Acquire(ctx); err != nil {
			return
		}

		admitted, err := m.admit(ctx, job.ID)
		if err != nil {
			m.sem.Release()
			m.setLastError(err)
			m.logger.Error("failed to admit job", logging.Error(err))
			m.waitForWork(ctx)
			continue
		}
		if admitted == nil {
			// Removed or changed while waiting for capacity.
			m.sem.Release()
			continue
		}

		s := m.trackActive(admitted.ID)
		m.wg.Add(1)
		go func(j *queue.Job, s *slot) {
			defer m.wg.Done()
			defer m.finishJob(j.ID, s)
			m.runJob(ctx, j)
		}(admitted, s)
	}
}

// admit re-reads the job and flips it to processing. The job may have been
// removed, or already moved on, while the scheduler waited for capacity.
func (m *Manager) admit(ctx context.Context, id string) (*queue.Job, error) {
	job, err := m.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	if job.Status != queue.StatusPending {
		return nil, nil
	}
	job.Status = queue.StatusProcessing
	updated, err := m.store.Update(ctx, job)
	if err != nil || !updated {
		return nil, err
	}
	return job, nil
}

func (m *Manager) waitForWork(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-time.After(idleWait):
	}
}
