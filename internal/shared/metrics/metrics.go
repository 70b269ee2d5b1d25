package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	transitionsCommittedTotal atomic.Uint64
	transitionsRejectedTotal  atomic.Uint64
	lockRetriesTotal          atomic.Uint64
	effectsDispatchedTotal    atomic.Uint64
	effectsFailedTotal        atomic.Uint64

	transitionDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000})
)

// IncTransitionsCommitted increments the committed-transition counter.
func IncTransitionsCommitted() {
	transitionsCommittedTotal.Add(1)
}

// IncTransitionsRejected increments the rejected-transition counter.
func IncTransitionsRejected() {
	transitionsRejectedTotal.Add(1)
}

// IncLockRetries increments the lock-contention retry counter.
func IncLockRetries() {
	lockRetriesTotal.Add(1)
}

// IncEffectsDispatched increments the dispatched side-effect counter.
func IncEffectsDispatched() {
	effectsDispatchedTotal.Add(1)
}

// IncEffectsFailed increments the failed side-effect counter.
func IncEffectsFailed() {
	effectsFailedTotal.Add(1)
}

// ObserveTransitionDurationMs records a transition duration in milliseconds.
func ObserveTransitionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	transitionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "transitions_committed_total", "Total application stage transitions committed", transitionsCommittedTotal.Load())
	writeCounter(&buf, "transitions_rejected_total", "Total application stage transitions rejected", transitionsRejectedTotal.Load())
	writeCounter(&buf, "transition_lock_retries_total", "Total lock-contention retries during transitions", lockRetriesTotal.Load())
	writeCounter(&buf, "effects_dispatched_total", "Total side effects dispatched", effectsDispatchedTotal.Load())
	writeCounter(&buf, "effects_failed_total", "Total side effects that failed", effectsFailedTotal.Load())
	writeHistogram(&buf, "transition_duration_ms", "Transition duration in milliseconds", transitionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
