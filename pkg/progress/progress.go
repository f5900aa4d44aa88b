// Package progress reports the advance of long-running analyses to an
// optional caller-supplied callback.
package progress

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Func receives the number of completed units and the total.
type Func func(completed, total int)

// Tracker counts completed units and invokes a Func at a fixed cadence. It is
// safe for concurrent use; callbacks are serialized and see a non-decreasing
// completed count. A panicking callback is logged and otherwise ignored.
type Tracker struct {
	mu        sync.Mutex
	fn        Func
	logger    *zap.Logger
	op        string
	total     int
	every     int
	completed int
	reported  int
	failures  int
}

// NewTracker creates a Tracker reporting every `every` units and on completion.
func NewTracker(logger *zap.Logger, op string, fn Func, total, every int) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every < 1 {
		every = 1
	}
	return &Tracker{fn: fn, logger: logger, op: op, total: total, every: every}
}

// EveryPercent returns the cadence that reports every pct percent of total.
func EveryPercent(total, pct int) int {
	every := total * pct / 100
	if every < 1 {
		return 1
	}
	return every
}

// Add records n more completed units.
func (t *Tracker) Add(n int) {
	if t == nil || n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed += n
	if t.fn == nil {
		return
	}
	crossed := t.completed/t.every > t.reported/t.every
	finished := t.completed >= t.total && t.reported < t.total
	if crossed || finished {
		t.reported = t.completed
		t.invoke()
	}
}

// Completed returns the number of units recorded so far.
func (t *Tracker) Completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Failures returns the number of callback invocations that panicked.
func (t *Tracker) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

func (t *Tracker) invoke() {
	defer func() {
		if r := recover(); r != nil {
			t.failures++
			t.logger.Warn("progress callback failed",
				zap.String("op", t.op),
				zap.Int("completed", t.completed),
				zap.Int("total", t.total),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	t.fn(t.completed, t.total)
}
