package build

import (
	"sync"

	"github.com/rathix/devserve/internal/watch"
)

type taskKind int

const (
	taskBundle taskKind = iota + 1
	taskAsset
	taskForce
	taskBarrier
)

type task struct {
	kind  taskKind
	event watch.Event
	// done, when set, is closed once the task has been processed.
	done chan struct{}
}

// taskQueue is an unbounded FIFO. push never blocks.
type taskQueue struct {
	mu     sync.Mutex
	items  []task
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{signal: make(chan struct{}, 1)}
}

func (q *taskQueue) push(t task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *taskQueue) pop() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return task{}, false
	}
	t := q.items[0]
	q.items[0] = task{}
	q.items = q.items[1:]
	return t, true
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
