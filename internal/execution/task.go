// Package execution serializes code submissions to remote Jupyter
// kernels. A manager hands each submission to a per-kernel worker that
// owns one websocket connection and runs strictly one execution at a
// time; callers observe progress by polling task records.
package execution

import (
	"encoding/json"
	"sync"
	"time"
)

// Task statuses. pending and running are transient; completed and failed
// are terminal and a task never leaves a terminal status.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Error labels attached to failed tasks.
const (
	// ErrorCancelled: the caller cancelled before or during execution.
	ErrorCancelled = "cancelled"
	// ErrorTimeout: no reply/idle pair within the task's budget.
	ErrorTimeout = "timeout"
	// ErrorExecution: the kernel reported an error for this request.
	ErrorExecution = "error"
	// ErrorTransport: the connection broke while this task was in flight.
	ErrorTransport = "websocket_execution_failed"
	// ErrorWorkerDisconnected: the task was still queued when its worker
	// died.
	ErrorWorkerDisconnected = "kernel_worker_disconnected"
)

// Output is one kernel output event as it arrived. Stream events carry
// Name and Text; result, display and error events carry the raw content.
type Output struct {
	Type    string          `json:"type"`
	Name    string          `json:"name,omitempty"`
	Text    string          `json:"text,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Snapshot is a point-in-time copy of a task, safe to hold and marshal
// while the task keeps running.
type Snapshot struct {
	ExecutionID string    `json:"execution_id"`
	KernelID    string    `json:"kernel_id"`
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	Outputs     []Output  `json:"outputs"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task is one submitted execution. The assigned worker mutates it;
// status and output queries read it concurrently, so every access goes
// through the mutex.
type Task struct {
	ExecutionID string
	KernelID    string
	Code        string

	mu        sync.Mutex
	status    string
	outputs   []Output
	errLabel  string
	createdAt time.Time
	updatedAt time.Time

	// onTerminal fires exactly once, on the transition into a terminal
	// status, with the terminal snapshot.
	onTerminal func(Snapshot)
}

func newTask(executionID, kernelID, code string) *Task {
	now := time.Now().UTC()
	return &Task{
		ExecutionID: executionID,
		KernelID:    kernelID,
		Code:        code,
		status:      StatusPending,
		outputs:     []Output{},
		createdAt:   now,
		updatedAt:   now,
	}
}

// Status returns the current status string.
func (t *Task) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Error returns the error label, empty unless failed.
func (t *Task) Error() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errLabel
}

// IsTerminal reports whether the task has finished, either way.
func (t *Task) IsTerminal() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusCompleted || t.status == StatusFailed
}

// Outputs returns a copy of the output events accumulated so far.
func (t *Task) Outputs() []Output {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Output, len(t.outputs))
	copy(out, t.outputs)
	return out
}

// Snapshot copies the whole task state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Task) snapshotLocked() Snapshot {
	outputs := make([]Output, len(t.outputs))
	copy(outputs, t.outputs)
	return Snapshot{
		ExecutionID: t.ExecutionID,
		KernelID:    t.KernelID,
		Code:        t.Code,
		Status:      t.status,
		Outputs:     outputs,
		Error:       t.errLabel,
		CreatedAt:   t.createdAt,
		UpdatedAt:   t.updatedAt,
	}
}

// appendOutput records one arrived event so partial output is visible
// before completion.
func (t *Task) appendOutput(ev Output) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outputs = append(t.outputs, ev)
	t.updatedAt = time.Now().UTC()
}

// markRunning moves pending to running. A task that was cancelled while
// queued stays failed.
func (t *Task) markRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return
	}
	t.status = StatusRunning
	t.updatedAt = time.Now().UTC()
}

// finish moves the task into a terminal status. The first terminal write
// wins; later attempts are ignored so a finished task never changes its
// outcome. Reports whether this call performed the transition.
func (t *Task) finish(status, errLabel string) bool {
	t.mu.Lock()
	if t.status == StatusCompleted || t.status == StatusFailed {
		t.mu.Unlock()
		return false
	}
	t.status = status
	t.errLabel = errLabel
	t.updatedAt = time.Now().UTC()
	hook := t.onTerminal
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
	return true
}
