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
	rankStartedTotal            atomic.Uint64
	rankCompletedTotal          atomic.Uint64
	rankFailedTotal             atomic.Uint64
	rankFilesProcessedTotal     atomic.Uint64
	rankExtractionDegradedTotal atomic.Uint64

	rankDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncRankStarted counts a ranking run that passed the quota gate.
func IncRankStarted() {
	rankStartedTotal.Add(1)
}

// IncRankCompleted counts a ranking run that was persisted and charged.
func IncRankCompleted() {
	rankCompletedTotal.Add(1)
}

// IncRankFailed counts a ranking run that ended in an error after starting.
func IncRankFailed() {
	rankFailedTotal.Add(1)
}

// AddFilesProcessed counts resume files pushed through extraction and scoring.
func AddFilesProcessed(n int) {
	if n > 0 {
		rankFilesProcessedTotal.Add(uint64(n))
	}
}

// IncExtractionDegraded counts files whose parser failed or timed out.
func IncExtractionDegraded() {
	rankExtractionDegradedTotal.Add(1)
}

// ObserveRankDurationMs records a ranking run duration in milliseconds.
func ObserveRankDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	rankDuration.Observe(value)
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
	writeCounter(&buf, "rank_runs_started_total", "Total ranking runs started", rankStartedTotal.Load())
	writeCounter(&buf, "rank_runs_completed_total", "Total ranking runs completed", rankCompletedTotal.Load())
	writeCounter(&buf, "rank_runs_failed_total", "Total ranking runs failed", rankFailedTotal.Load())
	writeCounter(&buf, "rank_files_processed_total", "Total resume files processed", rankFilesProcessedTotal.Load())
	writeCounter(&buf, "rank_extraction_degraded_total", "Total resume files with degraded extraction", rankExtractionDegradedTotal.Load())
	writeHistogram(&buf, "rank_duration_ms", "Ranking run duration in milliseconds", rankDuration.Snapshot())
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
			break
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

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
