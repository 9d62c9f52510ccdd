package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	rowsImported     map[string]int64
	rowsSkipped      map[string]int64
	dispatchFailures map[string]int64
	mergeFailures    int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:     make(map[string]int64),
		errorCount:       make(map[string]int64),
		rowsImported:     make(map[string]int64),
		rowsSkipped:      make(map[string]int64),
		dispatchFailures: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordRowsImported counts rows persisted per dialect.
func (m *Metrics) RecordRowsImported(dialect string, n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowsImported[dialect] += int64(n)
}

// RecordRowSkipped counts rows dropped by validation or store failures.
func (m *Metrics) RecordRowSkipped(dialect string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowsSkipped[dialect]++
}

// RecordDispatchFailure counts failed classifier calls per endpoint.
func (m *Metrics) RecordDispatchFailure(endpoint string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchFailures[endpoint]++
}

// RecordMergeFailure counts enrichment merges that could not be applied.
func (m *Metrics) RecordMergeFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeFailures++
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
