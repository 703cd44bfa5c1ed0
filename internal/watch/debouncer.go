package watch

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of events for the same path. A save usually
// arrives as CREATE+WRITE or several WRITEs; only one event per quiet
// interval is delivered. Added wins over Changed within a burst.
type debouncer struct {
	interval time.Duration
	fire     chan<- Event
	done     <-chan struct{}

	mu      sync.Mutex
	pending map[string]*pendingEvent
}

type pendingEvent struct {
	op    Op
	timer *time.Timer
}

func newDebouncer(interval time.Duration, fire chan<- Event, done <-chan struct{}) *debouncer {
	return &debouncer{
		interval: interval,
		fire:     fire,
		done:     done,
		pending:  make(map[string]*pendingEvent),
	}
}

// trigger records an event for path and (re)starts its quiet timer.
func (d *debouncer) trigger(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[ev.Path]; ok {
		p.timer.Stop()
		if ev.Op == Added {
			p.op = Added
		}
		p.timer.Reset(d.interval)
		return
	}

	p := &pendingEvent{op: ev.Op}
	path := ev.Path
	p.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cur, ok := d.pending[path]
		if !ok || cur != p {
			d.mu.Unlock()
			return
		}
		delete(d.pending, path)
		op := cur.op
		d.mu.Unlock()

		select {
		case d.fire <- Event{Op: op, Path: path}:
		case <-d.done:
		}
	})
	d.pending[path] = p
}

// stop cancels every pending timer.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}
