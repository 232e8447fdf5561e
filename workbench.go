package citationlab

import (
	"fmt"
	"sync"
	"time"

	"github.com/FHSS-Web-Team/citation-lab/internal/memory"
	"github.com/FHSS-Web-Team/citation-lab/internal/metrics"
	"github.com/FHSS-Web-Team/citation-lab/internal/session"
	"github.com/FHSS-Web-Team/citation-lab/internal/u16"
)

// WorkbenchConfig defines Workbench configuration.
type WorkbenchConfig struct {
	// MaxSessions bounds concurrently open sessions. Default 256.
	MaxSessions int
	// SessionTTL expires idle sessions. Default 24 hours.
	SessionTTL time.Duration
	// MaxMemoryKB budgets buffer, fold table and history bytes across
	// all sessions. Default 4096.
	MaxMemoryKB int
	// EnableMetrics controls the counter collector. Default true.
	EnableMetrics bool
}

// DefaultWorkbenchConfig returns the default configuration.
func DefaultWorkbenchConfig() *WorkbenchConfig {
	return &WorkbenchConfig{
		MaxSessions:   256,
		SessionTTL:    24 * time.Hour,
		MaxMemoryKB:   4096,
		EnableMetrics: true,
	}
}

// WorkbenchOption configures a Workbench instance.
type WorkbenchOption func(*Workbench) error

// WithMaxSessions bounds concurrently open sessions.
func WithMaxSessions(n int) WorkbenchOption {
	return func(wb *Workbench) error {
		if n <= 0 {
			return fmt.Errorf("maxSessions must be positive")
		}
		wb.config.MaxSessions = n
		return nil
	}
}

// WithSessionTTL sets the idle-session expiry.
func WithSessionTTL(ttl time.Duration) WorkbenchOption {
	return func(wb *Workbench) error {
		if ttl <= 0 {
			return fmt.Errorf("TTL must be positive")
		}
		wb.config.SessionTTL = ttl
		return nil
	}
}

// WithMaxMemoryKB sets the shared memory budget.
func WithMaxMemoryKB(kb int) WorkbenchOption {
	return func(wb *Workbench) error {
		if kb <= 0 {
			return fmt.Errorf("memory budget must be positive")
		}
		wb.config.MaxMemoryKB = kb
		return nil
	}
}

// WithMetricsEnabled configures metrics collection.
func WithMetricsEnabled(enabled bool) WorkbenchOption {
	return func(wb *Workbench) error {
		wb.config.EnableMetrics = enabled
		return nil
	}
}

// Workbench hosts multiple isolated editing sessions behind one memory
// budget and one metrics collector. Individual sessions stay single-owner;
// only the registry is safe for concurrent use.
type Workbench struct {
	sessions *session.Manager
	memory   *memory.Manager
	metrics  *metrics.Collector
	config   *WorkbenchConfig
	mu       sync.RWMutex
	closed   bool
}

// NewWorkbench creates a workbench with the given options.
func NewWorkbench(options ...WorkbenchOption) (*Workbench, error) {
	wb := &Workbench{config: DefaultWorkbenchConfig()}

	for _, option := range options {
		if err := option(wb); err != nil {
			return nil, fmt.Errorf("failed to apply workbench option: %w", err)
		}
	}

	wb.sessions = session.NewManager(wb.config.SessionTTL)
	wb.memory = memory.NewManager(&memory.Config{
		MaxMemoryKB:          wb.config.MaxMemoryKB,
		WarningThresholdPct:  75,
		CriticalThresholdPct: 90,
	})
	if wb.config.EnableMetrics {
		wb.metrics = metrics.NewCollector()
	}

	return wb, nil
}

// NewSession opens a session over initial buffer text. The write lock
// spans the limit checks and the create so concurrent callers cannot both
// pass the count check and overshoot MaxSessions.
func (wb *Workbench) NewSession(text string) (*EditSession, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if wb.closed {
		return nil, ErrSessionClosed
	}
	if wb.sessions.Count() >= wb.config.MaxSessions {
		return nil, fmt.Errorf("session limit of %d reached", wb.config.MaxSessions)
	}

	estimated := estimateSessionBytes(text)
	if !wb.memory.CanAllocate(estimated) {
		return nil, fmt.Errorf("insufficient memory for new session")
	}

	internal, err := wb.sessions.CreateSession(text)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := wb.memory.Allocate(internal.ID, estimated); err != nil {
		wb.sessions.DeleteSession(internal.ID)
		return nil, fmt.Errorf("failed to allocate memory: %w", err)
	}

	if wb.metrics != nil {
		wb.metrics.IncrementSessionCreated()
	}

	return &EditSession{id: internal.ID, fold: internal.Fold, wb: wb, rec: internal}, nil
}

// GetSession retrieves a live session by ID; expired or unknown IDs
// report false.
func (wb *Workbench) GetSession(id string) (*EditSession, bool) {
	wb.mu.RLock()
	defer wb.mu.RUnlock()

	if wb.closed {
		return nil, false
	}

	internal, ok := wb.sessions.GetSession(id)
	if !ok {
		return nil, false
	}
	return &EditSession{id: internal.ID, fold: internal.Fold, marks: internal.Marks, wb: wb, rec: internal}, true
}

// CloseSession releases a session and its memory reservation.
func (wb *Workbench) CloseSession(id string) {
	wb.mu.RLock()
	defer wb.mu.RUnlock()

	if wb.closed {
		return
	}

	wb.sessions.DeleteSession(id)
	wb.memory.Deallocate(id)
	if wb.metrics != nil {
		wb.metrics.IncrementSessionDestroyed()
	}
}

// SessionCount returns the number of live sessions.
func (wb *Workbench) SessionCount() int {
	wb.mu.RLock()
	defer wb.mu.RUnlock()

	if wb.closed {
		return 0
	}
	return wb.sessions.Count()
}

// CleanupExpiredSessions drops idle sessions past the TTL and returns how
// many were removed.
func (wb *Workbench) CleanupExpiredSessions() int {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if wb.closed {
		return 0
	}
	return wb.sessions.CleanupExpiredSessions()
}

// WorkbenchMetrics is the public metrics snapshot.
type WorkbenchMetrics struct {
	SessionsCreated   int64         `json:"sessions_created"`
	SessionsDestroyed int64         `json:"sessions_destroyed"`
	ActiveSessions    int64         `json:"active_sessions"`
	EditsApplied      int64         `json:"edits_applied"`
	EditsRejected     int64         `json:"edits_rejected"`
	Undos             int64         `json:"undos"`
	Folds             int64         `json:"folds"`
	Unfolds           int64         `json:"unfolds"`
	Compiles          int64         `json:"compiles"`
	Parses            int64         `json:"parses"`
	MemoryUsage       int64         `json:"memory_usage"`
	MemoryStatus      string        `json:"memory_status"`
	Uptime            time.Duration `json:"uptime"`
}

// Metrics returns the current counter snapshot; zero-valued when metrics
// are disabled or the workbench is closed.
func (wb *Workbench) Metrics() WorkbenchMetrics {
	wb.mu.RLock()
	defer wb.mu.RUnlock()

	if wb.closed || wb.metrics == nil {
		return WorkbenchMetrics{}
	}

	data := wb.metrics.GetMetrics()
	mem := wb.memory.GetStatus()

	return WorkbenchMetrics{
		SessionsCreated:   data.SessionsCreated,
		SessionsDestroyed: data.SessionsDestroyed,
		ActiveSessions:    data.ActiveSessions,
		EditsApplied:      data.EditsApplied,
		EditsRejected:     data.EditsRejected,
		Undos:             data.Undos,
		Folds:             data.Folds,
		Unfolds:           data.Unfolds,
		Compiles:          data.Compiles,
		Parses:            data.Parses,
		MemoryUsage:       mem.CurrentUsage,
		MemoryStatus:      mem.Level,
		Uptime:            data.Uptime,
	}
}

// ParseTemplate parses a stored template string into a part tree,
// counting the parse.
func (wb *Workbench) ParseTemplate(source string, opts ...TemplateOption) *Template {
	wb.mu.RLock()
	if wb.metrics != nil {
		wb.metrics.IncrementParse()
	}
	wb.mu.RUnlock()
	return Parse(source, opts...)
}

// Close releases all workbench resources.
func (wb *Workbench) Close() error {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if wb.closed {
		return nil
	}
	wb.closed = true

	wb.memory.Reset()
	if wb.metrics != nil {
		wb.metrics.Reset()
	}

	return nil
}

// accountSession refreshes a session's memory reservation after an edit.
// Over-budget growth is tolerated here (the edit already happened); the
// budget gates session creation and shows up in memory status.
func (wb *Workbench) accountSession(s *EditSession) {
	size := estimateSessionBytes(s.fold.Buffer())
	for _, piece := range s.fold.Pieces() {
		size += int64(len(piece))
	}
	if s.rec != nil && s.rec.Builder != nil {
		size += s.rec.Builder.SnapshotBytes()
	}
	_ = wb.memory.Update(s.id, size)
}

// estimateSessionBytes roughly sizes a session's live state.
func estimateSessionBytes(text string) int64 {
	return 512 + int64(u16.Len(text)*2)
}
