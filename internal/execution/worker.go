package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nbmcp/nbmcp/internal/jupyter"
	"github.com/nbmcp/nbmcp/internal/log"
)

// ErrWorkerClosed is returned by enqueue after the worker shut down.
var ErrWorkerClosed = errors.New("kernel worker is closed")

const (
	workerHandshakeTimeout = 10 * time.Second
	workerReadLimit        = 16 << 20
	frameBuffer            = 16
)

// worker is what the manager needs from a per-kernel executor. The
// concrete kernelWorker talks websocket; tests substitute stubs.
type worker interface {
	enqueue(task *Task, timeout time.Duration) error
	cancel(executionID string)
	close()
	isClosed() bool
}

type queueItem struct {
	task    *Task
	timeout time.Duration
}

// kernelWorker owns one websocket connection to one kernel and drains a
// FIFO queue of tasks, one at a time. All websocket writes happen on the
// run goroutine; a separate reader goroutine pumps incoming frames into
// a channel so per-task deadlines never poison the connection.
type kernelWorker struct {
	kernelID string
	wsURL    string

	mu        sync.Mutex
	wake      *sync.Cond
	queue     []*queueItem
	cancelled map[string]struct{}
	closed    bool
	conn      *websocket.Conn

	done chan struct{}
}

func newKernelWorker(kernelID, wsURL string) *kernelWorker {
	w := &kernelWorker{
		kernelID:  kernelID,
		wsURL:     wsURL,
		cancelled: make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	w.wake = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// enqueue appends a task without blocking. Tasks are accepted while the
// connection is still being dialed; a dial failure fails them all.
func (w *kernelWorker) enqueue(task *Task, timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkerClosed
	}
	w.queue = append(w.queue, &queueItem{task: task, timeout: timeout})
	w.wake.Signal()
	return nil
}

// cancel flags an execution id so the worker skips it when dequeued. The
// caller already failed the task record; this only prevents the code
// from reaching the kernel.
func (w *kernelWorker) cancel(executionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelled[executionID] = struct{}{}
}

func (w *kernelWorker) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// close shuts the worker down and fails every still-queued task. Safe to
// call from any goroutine and more than once.
func (w *kernelWorker) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	pending := w.queue
	w.queue = nil
	conn := w.conn
	w.conn = nil
	w.wake.Broadcast()
	w.mu.Unlock()

	close(w.done)
	if conn != nil {
		conn.Close()
	}
	for _, item := range pending {
		item.task.finish(StatusFailed, ErrorWorkerDisconnected)
	}
}

// run dials the kernel channel and processes the queue until the worker
// closes or the transport breaks.
func (w *kernelWorker) run() {
	dialer := websocket.Dialer{HandshakeTimeout: workerHandshakeTimeout}
	conn, _, err := dialer.Dial(w.wsURL, nil)
	if err != nil {
		log.Errorf("kernel %s: websocket dial failed: %v", w.kernelID, err)
		w.close()
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		conn.Close()
		return
	}
	w.conn = conn
	w.mu.Unlock()

	conn.SetReadLimit(workerReadLimit)
	frames := make(chan frame, frameBuffer)
	go w.readFrames(conn, frames)

	for {
		item, ok := w.next()
		if !ok {
			return
		}
		if w.takeCancelled(item.task.ExecutionID) {
			item.task.finish(StatusFailed, ErrorCancelled)
			continue
		}
		item.task.markRunning()
		log.Infof("kernel %s: executing %s", w.kernelID, item.task.ExecutionID)
		if err := w.executeOne(conn, frames, item.task, item.timeout); err != nil {
			log.Errorf("kernel %s: execution %s transport failure: %v",
				w.kernelID, item.task.ExecutionID, err)
			item.task.finish(StatusFailed, ErrorTransport)
			w.close()
			return
		}
	}
}

type frame struct {
	data []byte
	err  error
}

// readFrames pumps websocket messages into the frames channel until the
// connection errors or the worker closes. Run loop code never reads the
// socket directly, so an expired task deadline leaves the connection
// usable for the next task.
func (w *kernelWorker) readFrames(conn *websocket.Conn, frames chan<- frame) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case frames <- frame{err: err}:
			case <-w.done:
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case frames <- frame{data: data}:
		case <-w.done:
			return
		}
	}
}

// next blocks until a task is queued or the worker closes.
func (w *kernelWorker) next() (*queueItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && !w.closed {
		w.wake.Wait()
	}
	if w.closed {
		return nil, false
	}
	item := w.queue[0]
	w.queue = w.queue[1:]
	return item, true
}

func (w *kernelWorker) takeCancelled(executionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.cancelled[executionID]; ok {
		delete(w.cancelled, executionID)
		return true
	}
	return false
}

// executeOne sends the execute_request and consumes frames until the
// kernel replied and went idle, the deadline expired, or the task was
// cancelled. A non-nil return means the transport is unusable.
func (w *kernelWorker) executeOne(conn *websocket.Conn, frames <-chan frame, task *Task, timeout time.Duration) error {
	request := jupyter.NewExecuteRequest(task.Code, nil)
	correlationID := request.Header.MsgID
	if err := conn.WriteJSON(request); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var gotReply, gotIdle, sawError bool
	for !(gotReply && gotIdle) {
		if w.takeCancelled(task.ExecutionID) {
			task.finish(StatusFailed, ErrorCancelled)
			return nil
		}
		select {
		case f := <-frames:
			if f.err != nil {
				return f.err
			}
			var msg jupyter.Message
			if err := json.Unmarshal(f.data, &msg); err != nil {
				return fmt.Errorf("malformed kernel message: %w", err)
			}
			// Replies to other requests still arrive on this shared
			// channel; keep only frames parented to ours. Frames with no
			// parent at all pass through.
			if pid := msg.ParentHeader.MsgID; pid != "" && pid != correlationID {
				continue
			}
			switch msg.Header.MsgType {
			case jupyter.MsgTypeStream:
				var c jupyter.StreamContent
				if err := json.Unmarshal(msg.Content, &c); err == nil {
					task.appendOutput(Output{Type: jupyter.MsgTypeStream, Name: c.Name, Text: c.Text})
				}
			case jupyter.MsgTypeExecuteResult, jupyter.MsgTypeDisplayData:
				task.appendOutput(Output{Type: msg.Header.MsgType, Content: msg.Content})
			case jupyter.MsgTypeError:
				sawError = true
				task.appendOutput(Output{Type: jupyter.MsgTypeError, Content: msg.Content})
			case jupyter.MsgTypeExecuteReply:
				if msg.Channel == jupyter.ChannelShell {
					gotReply = true
					var c jupyter.ExecuteReplyContent
					if err := json.Unmarshal(msg.Content, &c); err == nil && c.Status == "error" {
						sawError = true
					}
				}
			case jupyter.MsgTypeStatus:
				var c jupyter.StatusContent
				if err := json.Unmarshal(msg.Content, &c); err == nil && c.ExecutionState == "idle" {
					gotIdle = true
				}
			}
		case <-timer.C:
			task.finish(StatusFailed, ErrorTimeout)
			return nil
		case <-w.done:
			return ErrWorkerClosed
		}
	}

	if sawError {
		task.finish(StatusFailed, ErrorExecution)
	} else {
		task.finish(StatusCompleted, "")
	}
	return nil
}
