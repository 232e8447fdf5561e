// Package metrics provides simple built-in metrics collection with no
// external dependencies.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tracks workbench-level operation counters.
type Collector struct {
	data      *Metrics
	startTime time.Time
}

// Metrics is the counter snapshot handed to callers.
type Metrics struct {
	// Session lifecycle
	SessionsCreated   int64 `json:"sessions_created"`
	SessionsDestroyed int64 `json:"sessions_destroyed"`
	ActiveSessions    int64 `json:"active_sessions"`
	MaxConcurrent     int64 `json:"max_concurrent_sessions"`

	// Structural edits
	EditsApplied  int64 `json:"edits_applied"`
	EditsRejected int64 `json:"edits_rejected"`
	Undos         int64 `json:"undos"`

	// Fold and compile operations
	Folds          int64 `json:"folds"`
	Unfolds        int64 `json:"unfolds"`
	Compiles       int64 `json:"compiles"`
	Parses         int64 `json:"parses"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	now := time.Now()
	return &Collector{
		data:      &Metrics{StartTime: now},
		startTime: now,
	}
}

// IncrementSessionCreated records a new session.
func (c *Collector) IncrementSessionCreated() {
	atomic.AddInt64(&c.data.SessionsCreated, 1)
	active := atomic.AddInt64(&c.data.ActiveSessions, 1)

	for {
		max := atomic.LoadInt64(&c.data.MaxConcurrent)
		if active <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.data.MaxConcurrent, max, active) {
			break
		}
	}
}

// IncrementSessionDestroyed records a session teardown.
func (c *Collector) IncrementSessionDestroyed() {
	atomic.AddInt64(&c.data.SessionsDestroyed, 1)
	atomic.AddInt64(&c.data.ActiveSessions, -1)
}

// IncrementEditApplied records a structural edit that changed state.
func (c *Collector) IncrementEditApplied() {
	atomic.AddInt64(&c.data.EditsApplied, 1)
}

// IncrementEditRejected records a validation or selection failure.
func (c *Collector) IncrementEditRejected() {
	atomic.AddInt64(&c.data.EditsRejected, 1)
}

// IncrementUndo records an undo that restored a snapshot.
func (c *Collector) IncrementUndo() {
	atomic.AddInt64(&c.data.Undos, 1)
}

// IncrementFold records a fold operation.
func (c *Collector) IncrementFold() {
	atomic.AddInt64(&c.data.Folds, 1)
}

// IncrementUnfold records an unfold operation.
func (c *Collector) IncrementUnfold() {
	atomic.AddInt64(&c.data.Unfolds, 1)
}

// IncrementCompile records a compile to renderer form.
func (c *Collector) IncrementCompile() {
	atomic.AddInt64(&c.data.Compiles, 1)
}

// IncrementParse records a tokenizer load of a stored template.
func (c *Collector) IncrementParse() {
	atomic.AddInt64(&c.data.Parses, 1)
}

// GetMetrics returns a consistent snapshot of all counters.
func (c *Collector) GetMetrics() Metrics {
	return Metrics{
		SessionsCreated:   atomic.LoadInt64(&c.data.SessionsCreated),
		SessionsDestroyed: atomic.LoadInt64(&c.data.SessionsDestroyed),
		ActiveSessions:    atomic.LoadInt64(&c.data.ActiveSessions),
		MaxConcurrent:     atomic.LoadInt64(&c.data.MaxConcurrent),
		EditsApplied:      atomic.LoadInt64(&c.data.EditsApplied),
		EditsRejected:     atomic.LoadInt64(&c.data.EditsRejected),
		Undos:             atomic.LoadInt64(&c.data.Undos),
		Folds:             atomic.LoadInt64(&c.data.Folds),
		Unfolds:           atomic.LoadInt64(&c.data.Unfolds),
		Compiles:          atomic.LoadInt64(&c.data.Compiles),
		Parses:            atomic.LoadInt64(&c.data.Parses),
		StartTime:         c.startTime,
		Uptime:            time.Since(c.startTime),
	}
}

// Reset zeroes all counters and restarts the uptime clock.
func (c *Collector) Reset() {
	now := time.Now()
	c.data = &Metrics{StartTime: now}
	c.startTime = now
}
