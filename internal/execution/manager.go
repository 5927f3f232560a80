package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nbmcp/nbmcp/internal/jupyter"
	"github.com/nbmcp/nbmcp/internal/log"
)

// ErrNotFound is returned for execution ids the manager never issued.
var ErrNotFound = errors.New("unknown execution id")

// pollInterval paces Await's checks on the task record.
const pollInterval = 50 * time.Millisecond

// Recorder receives task lifecycle events, typically for persistence.
// Implementations must not block; they are called on submit paths and
// worker goroutines.
type Recorder interface {
	RecordSubmitted(Snapshot)
	RecordFinished(Snapshot)
}

// Manager tracks every submitted execution and routes each one to the
// single worker owning its kernel's websocket. Task records are kept for
// the life of the process so results stay queryable after completion.
type Manager struct {
	baseURL string
	token   string

	mu      sync.Mutex
	tasks   map[string]*Task
	workers map[string]worker

	newWorker func(kernelID string) worker
	recorder  Recorder
}

// NewManager wires a manager against one Jupyter server.
func NewManager(baseURL, token string) *Manager {
	m := &Manager{
		baseURL: baseURL,
		token:   token,
		tasks:   make(map[string]*Task),
		workers: make(map[string]worker),
	}
	m.newWorker = func(kernelID string) worker {
		return newKernelWorker(kernelID, jupyter.WebSocketURL(baseURL, kernelID, token))
	}
	return m
}

// SetRecorder attaches a lifecycle recorder. Call before serving; it is
// not synchronized against in-flight submissions.
func (m *Manager) SetRecorder(r Recorder) {
	m.recorder = r
}

// Submit registers a new execution and queues it on the kernel's worker.
// It returns as soon as the task is queued; use Status, Output or Await
// to observe progress. A dead worker is replaced once; if the
// replacement cannot accept either, the task fails immediately.
func (m *Manager) Submit(kernelID, code string, timeout time.Duration) (string, error) {
	task := newTask(uuid.NewString(), kernelID, code)
	if m.recorder != nil {
		task.onTerminal = m.recorder.RecordFinished
	}

	m.mu.Lock()
	m.tasks[task.ExecutionID] = task
	w := m.workers[kernelID]
	if w == nil || w.isClosed() {
		w = m.newWorker(kernelID)
		m.workers[kernelID] = w
	}
	err := w.enqueue(task, timeout)
	if err != nil {
		w = m.newWorker(kernelID)
		m.workers[kernelID] = w
		err = w.enqueue(task, timeout)
	}
	m.mu.Unlock()

	if err != nil {
		task.finish(StatusFailed, ErrorWorkerDisconnected)
		return task.ExecutionID, fmt.Errorf("enqueue on kernel %s: %w", kernelID, err)
	}

	log.Infof("submitted execution %s to kernel %s", task.ExecutionID, kernelID)
	if m.recorder != nil {
		m.recorder.RecordSubmitted(task.Snapshot())
	}
	return task.ExecutionID, nil
}

func (m *Manager) task(executionID string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[executionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, executionID)
	}
	return t, nil
}

// Status returns the task's current status string.
func (m *Manager) Status(executionID string) (string, error) {
	t, err := m.task(executionID)
	if err != nil {
		return "", err
	}
	return t.Status(), nil
}

// Output returns a copy of the outputs collected so far.
func (m *Manager) Output(executionID string) ([]Output, error) {
	t, err := m.task(executionID)
	if err != nil {
		return nil, err
	}
	return t.Outputs(), nil
}

// Snapshot returns a full point-in-time copy of the task.
func (m *Manager) Snapshot(executionID string) (Snapshot, error) {
	t, err := m.task(executionID)
	if err != nil {
		return Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Cancel fails a non-terminal task with the cancelled label and flags it
// on the worker so queued code never reaches the kernel. Code already
// running on the kernel is not interrupted; only the local record stops.
// Cancelling a terminal task is a no-op.
func (m *Manager) Cancel(executionID string) error {
	t, err := m.task(executionID)
	if err != nil {
		return err
	}
	if !t.finish(StatusFailed, ErrorCancelled) {
		return nil
	}

	m.mu.Lock()
	w := m.workers[t.KernelID]
	m.mu.Unlock()
	if w != nil {
		w.cancel(executionID)
	}
	log.Infof("cancelled execution %s", executionID)
	return nil
}

// Await polls until the task reaches a terminal status or the timeout
// elapses. On timeout the task itself is failed with the timeout label,
// so the returned snapshot is terminal either way.
func (m *Manager) Await(ctx context.Context, executionID string, timeout time.Duration) (Snapshot, error) {
	t, err := m.task(executionID)
	if err != nil {
		return Snapshot{}, err
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if t.IsTerminal() {
			return t.Snapshot(), nil
		}
		if time.Now().After(deadline) {
			t.finish(StatusFailed, ErrorTimeout)
			return t.Snapshot(), nil
		}
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DropWorker closes the kernel's worker, failing its queued tasks. The
// next submission to that kernel dials a fresh connection. Unknown
// kernels are a no-op.
func (m *Manager) DropWorker(kernelID string) {
	m.mu.Lock()
	w := m.workers[kernelID]
	delete(m.workers, kernelID)
	m.mu.Unlock()
	if w != nil {
		w.close()
		log.Infof("dropped worker for kernel %s", kernelID)
	}
}

// Shutdown closes every worker. Queued tasks fail with the
// disconnected label; task records remain queryable.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	workers := m.workers
	m.workers = make(map[string]worker)
	m.mu.Unlock()
	for _, w := range workers {
		w.close()
	}
}
