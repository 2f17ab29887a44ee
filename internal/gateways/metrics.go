package gateway

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ProviderMetrics tracks outcome and latency of calls to one external provider.
type ProviderMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64

	mu             sync.RWMutex
	latencyHistory []int64 // last N latencies for percentile calculation
	maxHistorySize int
}

func NewProviderMetrics() *ProviderMetrics {
	return &ProviderMetrics{
		latencyHistory: make([]int64, 0, 100),
		maxHistorySize: 100,
	}
}

func (m *ProviderMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.record(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())
}

func (m *ProviderMetrics) RecordFailure(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.record(latencyMs)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *ProviderMetrics) record(latencyMs int64) {
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)

	m.mu.Lock()
	if len(m.latencyHistory) >= m.maxHistorySize {
		m.latencyHistory = m.latencyHistory[1:]
	}
	m.latencyHistory = append(m.latencyHistory, latencyMs)
	m.mu.Unlock()
}

func (m *ProviderMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *ProviderMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *ProviderMetrics) P95LatencyMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencyHistory) == 0 {
		return 0
	}

	sorted := make([]int64, len(m.latencyHistory))
	copy(sorted, m.latencyHistory)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p95Index := int(float64(len(sorted)) * 0.95)
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}
	return sorted[p95Index]
}

// ProviderStats is a point-in-time copy of ProviderMetrics.
type ProviderStats struct {
	Name             string  `json:"name"`
	TotalRequests    int64   `json:"total_requests"`
	SuccessfulReqs   int64   `json:"successful_requests"`
	FailedReqs       int64   `json:"failed_requests"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     int64   `json:"avg_latency_ms"`
	P95LatencyMs     int64   `json:"p95_latency_ms"`
	ConsecutiveFails int32   `json:"consecutive_fails"`
}

func (m *ProviderMetrics) Snapshot(name string) ProviderStats {
	return ProviderStats{
		Name:             name,
		TotalRequests:    m.TotalRequests.Load(),
		SuccessfulReqs:   m.SuccessfulReqs.Load(),
		FailedReqs:       m.FailedReqs.Load(),
		SuccessRate:      m.SuccessRate(),
		AvgLatencyMs:     m.AvgLatencyMs(),
		P95LatencyMs:     m.P95LatencyMs(),
		ConsecutiveFails: m.ConsecutiveFails.Load(),
	}
}
