package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	MessagesFetched     int64
	ItemsExtracted      int64
	FallbackExtractions int64
	CapabilityFailures  int64
	DuplicatesMerged    int64
	ReportsDelivered    int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddMessagesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesFetched += int64(n)
}

func (m *Metrics) AddItemsExtracted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsExtracted += int64(n)
}

func (m *Metrics) IncrementFallbackExtractions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FallbackExtractions++
}

func (m *Metrics) IncrementCapabilityFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapabilityFailures++
}

func (m *Metrics) AddDuplicatesMerged(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesMerged += int64(n)
}

func (m *Metrics) IncrementReportsDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportsDelivered++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++

	if m.RunCount > 0 {
		m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"messages_fetched":        m.MessagesFetched,
		"items_extracted":         m.ItemsExtracted,
		"fallback_extractions":    m.FallbackExtractions,
		"capability_failures":     m.CapabilityFailures,
		"duplicates_merged":       m.DuplicatesMerged,
		"reports_delivered":       m.ReportsDelivered,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
