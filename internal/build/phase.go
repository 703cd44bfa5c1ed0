package build

import (
	"sync/atomic"
	"time"
)

// Phase is the orchestrator's lifecycle state.
type Phase int32

const (
	// PhaseStarting is the grace window after launch. Watch-driven work
	// still updates files but does not notify browsers or run the command.
	PhaseStarting Phase = iota
	// PhaseRunning is the steady state.
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	default:
		return "unknown"
	}
}

// DefaultStartupGrace is how long the orchestrator stays in PhaseStarting.
const DefaultStartupGrace = 5 * time.Second

// lifecycle flips from starting to running exactly once. Only the grace
// timer writes it.
type lifecycle struct {
	phase atomic.Int32
	timer *time.Timer
}

func (l *lifecycle) begin(grace time.Duration) {
	if grace <= 0 {
		l.phase.Store(int32(PhaseRunning))
		return
	}
	l.timer = time.AfterFunc(grace, func() {
		l.phase.Store(int32(PhaseRunning))
	})
}

func (l *lifecycle) current() Phase {
	return Phase(l.phase.Load())
}

func (l *lifecycle) stop() {
	if l.timer != nil {
		l.timer.Stop()
	}
}
