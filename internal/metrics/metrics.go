// Package metrics collects counters and timings of hierarchy comparisons.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects comparison metrics.
type Metrics interface {
	// RecordDocumentDiff records one document comparison and whether it found
	// differences.
	RecordDocumentDiff(duration time.Duration, changed bool)
	// RecordFastPath records a leaf pair settled by size and checksum alone.
	RecordFastPath()
	// RecordEvent counts an emitted event by type.
	RecordEvent(kind string)
	// RecordBytesRead adds to the number of content bytes read.
	RecordBytesRead(n int64)
	// GetSnapshot returns the current metrics snapshot.
	GetSnapshot() Snapshot
	// Reset clears all metrics.
	Reset()
}

// Snapshot contains a point-in-time view of collected metrics.
type Snapshot struct {
	DocumentDiffs DiffMetrics
	FastPathHits  int64
	Events        map[string]int64
	BytesRead     int64
	LastDiffTime  time.Time
}

// DiffMetrics tracks document comparison statistics.
type DiffMetrics struct {
	Total     int64
	Changed   int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OrNoOp returns m, or a NoOpMetrics when m is nil.
func OrNoOp(m Metrics) Metrics {
	if m == nil {
		return &NoOpMetrics{}
	}
	return m
}

// NoOpMetrics discards all metrics.
type NoOpMetrics struct{}

func (n *NoOpMetrics) RecordDocumentDiff(_ time.Duration, _ bool) {}
func (n *NoOpMetrics) RecordFastPath()                            {}
func (n *NoOpMetrics) RecordEvent(_ string)                       {}
func (n *NoOpMetrics) RecordBytesRead(_ int64)                    {}
func (n *NoOpMetrics) GetSnapshot() Snapshot                      { return Snapshot{} }
func (n *NoOpMetrics) Reset()                                     {}

// InMemoryMetrics is a thread-safe in-memory metrics collector.
type InMemoryMetrics struct {
	mu           sync.RWMutex
	diffs        DiffMetrics
	events       map[string]int64
	lastDiffTime time.Time

	fastPath  atomic.Int64
	bytesRead atomic.Int64

	minTime atomic.Int64 // nanoseconds
	maxTime atomic.Int64 // nanoseconds
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	m := &InMemoryMetrics{events: make(map[string]int64)}
	m.minTime.Store(int64(time.Hour))
	return m
}

func (m *InMemoryMetrics) RecordDocumentDiff(duration time.Duration, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.diffs.Total++
	if changed {
		m.diffs.Changed++
	}
	m.diffs.TotalTime += duration
	m.lastDiffTime = time.Now()

	durNanos := int64(duration)
	for {
		oldMin := m.minTime.Load()
		if durNanos >= oldMin || m.minTime.CompareAndSwap(oldMin, durNanos) {
			break
		}
	}
	for {
		oldMax := m.maxTime.Load()
		if durNanos <= oldMax || m.maxTime.CompareAndSwap(oldMax, durNanos) {
			break
		}
	}
}

func (m *InMemoryMetrics) RecordFastPath() {
	m.fastPath.Add(1)
}

func (m *InMemoryMetrics) RecordEvent(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[kind]++
}

func (m *InMemoryMetrics) RecordBytesRead(n int64) {
	m.bytesRead.Add(n)
}

func (m *InMemoryMetrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := Snapshot{
		DocumentDiffs: m.diffs,
		FastPathHits:  m.fastPath.Load(),
		Events:        make(map[string]int64, len(m.events)),
		BytesRead:     m.bytesRead.Load(),
		LastDiffTime:  m.lastDiffTime,
	}
	for k, v := range m.events {
		snapshot.Events[k] = v
	}
	if snapshot.DocumentDiffs.Total > 0 {
		snapshot.DocumentDiffs.MinTime = time.Duration(m.minTime.Load())
		snapshot.DocumentDiffs.MaxTime = time.Duration(m.maxTime.Load())
	}
	return snapshot
}

func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.diffs = DiffMetrics{}
	m.events = make(map[string]int64)
	m.lastDiffTime = time.Time{}
	m.fastPath.Store(0)
	m.bytesRead.Store(0)
	m.minTime.Store(int64(time.Hour))
	m.maxTime.Store(0)
}

// WriteSummary prints a snapshot as aligned "name: value" lines.
func WriteSummary(w io.Writer, s Snapshot) error {
	lines := []string{
		fmt.Sprintf("documents compared: %d (%d changed)", s.DocumentDiffs.Total, s.DocumentDiffs.Changed),
		fmt.Sprintf("fast path hits:     %d", s.FastPathHits),
		fmt.Sprintf("bytes read:         %d", s.BytesRead),
	}
	if s.DocumentDiffs.Total > 0 {
		avg := s.DocumentDiffs.TotalTime / time.Duration(s.DocumentDiffs.Total)
		lines = append(lines, fmt.Sprintf("diff time:          total %s, avg %s, max %s", s.DocumentDiffs.TotalTime, avg, s.DocumentDiffs.MaxTime))
	}
	kinds := make([]string, 0, len(s.Events))
	for k := range s.Events {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		lines = append(lines, fmt.Sprintf("events %-11s %d", k+":", s.Events[k]))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
