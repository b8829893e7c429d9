package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	deliveryCount map[string]int64
	failureCount  map[string]int64
	forwardCount  map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		deliveryCount: make(map[string]int64),
		failureCount:  make(map[string]int64),
		forwardCount:  make(map[string]int64),
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

// RecordDelivery counts one local delivery of an event type to a subscriber.
func (m *Metrics) RecordDelivery(eventType string, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if failed {
		m.failureCount[eventType]++
		return
	}
	m.deliveryCount[eventType]++
}

// RecordForward counts a remote forward attempt by outcome.
func (m *Metrics) RecordForward(eventType string, ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardCount[eventType+"|"+strconv.FormatBool(ok)]++
}

// SyncSnapshot is a point-in-time copy of the sync counters.
type SyncSnapshot struct {
	Deliveries map[string]int64
	Failures   map[string]int64
	Forwards   map[string]int64
}

// Sync returns a copy of the sync counters.
func (m *Metrics) Sync() SyncSnapshot {
	if m == nil {
		return SyncSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return SyncSnapshot{
		Deliveries: copyCounts(m.deliveryCount),
		Failures:   copyCounts(m.failureCount),
		Forwards:   copyCounts(m.forwardCount),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
