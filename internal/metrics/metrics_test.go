package metrics

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryMetricsSnapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemoryMetrics()
	require.Zero(t, m.GetSnapshot().DocumentDiffs.MinTime)

	m.RecordDocumentDiff(2*time.Millisecond, true)
	m.RecordDocumentDiff(5*time.Millisecond, false)
	m.RecordFastPath()
	m.RecordEvent("changed")
	m.RecordEvent("changed")
	m.RecordBytesRead(42)

	s := m.GetSnapshot()
	require.Equal(t, int64(2), s.DocumentDiffs.Total)
	require.Equal(t, int64(1), s.DocumentDiffs.Changed)
	require.Equal(t, 2*time.Millisecond, s.DocumentDiffs.MinTime)
	require.Equal(t, 5*time.Millisecond, s.DocumentDiffs.MaxTime)
	require.Equal(t, int64(1), s.FastPathHits)
	require.Equal(t, int64(2), s.Events["changed"])
	require.Equal(t, int64(42), s.BytesRead)

	m.Reset()
	require.Equal(t, Snapshot{Events: map[string]int64{}}, m.GetSnapshot())
}

func TestInMemoryMetricsConcurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemoryMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordEvent("added")
			m.RecordBytesRead(1)
		}()
	}
	wg.Wait()
	s := m.GetSnapshot()
	require.Equal(t, int64(20), s.Events["added"])
	require.Equal(t, int64(20), s.BytesRead)
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, Snapshot{
		DocumentDiffs: DiffMetrics{Total: 2, Changed: 1, TotalTime: 4 * time.Millisecond, MaxTime: 3 * time.Millisecond},
		Events:        map[string]int64{"deleted": 1, "changed": 1},
	}))
	out := buf.String()
	require.Contains(t, out, "documents compared: 2 (1 changed)")
	require.Contains(t, out, "avg 2ms")
	require.Less(t, bytes.Index(buf.Bytes(), []byte("changed:")), bytes.Index(buf.Bytes(), []byte("deleted:")))
}
