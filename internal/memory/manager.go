// Package memory budgets the bytes held by live editing sessions: buffer
// text, fold tables and undo snapshot stacks. A workbench refuses new
// sessions or oversized histories rather than growing without bound.
package memory

import (
	"fmt"
	"sync"
)

// Status levels reported by GetStatus.
const (
	LevelNormal   = "normal"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Config defines memory manager configuration.
type Config struct {
	MaxMemoryKB          int // Maximum budget in KB
	WarningThresholdPct  int // Warning threshold percentage
	CriticalThresholdPct int // Critical threshold percentage
}

// DefaultConfig returns the default budget: templates are small, so the
// default is deliberately modest.
func DefaultConfig() *Config {
	return &Config{
		MaxMemoryKB:          4096,
		WarningThresholdPct:  75,
		CriticalThresholdPct: 90,
	}
}

// Manager tracks per-session byte usage against the budget.
type Manager struct {
	maxBytes     int64
	currentUsage int64
	sessionUsage map[string]int64
	warnBytes    int64
	critBytes    int64
	mu           sync.RWMutex
}

// Status describes current usage.
type Status struct {
	CurrentUsage    int64   `json:"current_usage"`
	MaxBytes        int64   `json:"max_bytes"`
	UsagePercentage float64 `json:"usage_percentage"`
	Level           string  `json:"level"`
	SessionCount    int     `json:"session_count"`
}

// NewManager creates a memory manager; a nil config uses defaults.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	maxBytes := int64(config.MaxMemoryKB) * 1024

	return &Manager{
		maxBytes:     maxBytes,
		sessionUsage: make(map[string]int64),
		warnBytes:    maxBytes * int64(config.WarningThresholdPct) / 100,
		critBytes:    maxBytes * int64(config.CriticalThresholdPct) / 100,
	}
}

// CanAllocate reports whether size more bytes fit the budget.
func (m *Manager) CanAllocate(size int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentUsage+size <= m.maxBytes
}

// Allocate reserves size bytes for a session.
func (m *Manager) Allocate(sessionID string, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentUsage+size > m.maxBytes {
		return fmt.Errorf("allocation would exceed budget: %d + %d > %d",
			m.currentUsage, size, m.maxBytes)
	}

	m.sessionUsage[sessionID] += size
	m.currentUsage += size
	return nil
}

// Update re-reserves a session's usage at newSize, growing or shrinking
// its share.
func (m *Manager) Update(sessionID string, newSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldSize, exists := m.sessionUsage[sessionID]
	if !exists {
		return fmt.Errorf("session not tracked: %s", sessionID)
	}

	delta := newSize - oldSize
	if m.currentUsage+delta > m.maxBytes {
		return fmt.Errorf("update would exceed budget: %d + %d > %d",
			m.currentUsage, delta, m.maxBytes)
	}

	m.sessionUsage[sessionID] = newSize
	m.currentUsage += delta
	return nil
}

// Deallocate releases a session's reservation.
func (m *Manager) Deallocate(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if usage, exists := m.sessionUsage[sessionID]; exists {
		m.currentUsage -= usage
		delete(m.sessionUsage, sessionID)
	}
}

// GetStatus returns current usage and its severity level.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	level := LevelNormal
	switch {
	case m.currentUsage >= m.critBytes:
		level = LevelCritical
	case m.currentUsage >= m.warnBytes:
		level = LevelWarning
	}

	pct := 0.0
	if m.maxBytes > 0 {
		pct = float64(m.currentUsage) / float64(m.maxBytes) * 100
	}

	return Status{
		CurrentUsage:    m.currentUsage,
		MaxBytes:        m.maxBytes,
		UsagePercentage: pct,
		Level:           level,
		SessionCount:    len(m.sessionUsage),
	}
}

// Reset drops all reservations.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionUsage = make(map[string]int64)
	m.currentUsage = 0
}
