package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	assetUploadsTotal     = newLabeledCounter()
	assetRejectionsTotal  = newLabeledCounter()
	assetDeletesTotal     = newLabeledCounter()
	assetOrphanedTotal    atomic.Uint64
	contactSubmitsTotal   atomic.Uint64
	contactRejectedTotal  atomic.Uint64
	rateLimitedTotal      = newLabeledCounter()
	notifySentTotal       = newLabeledCounter()
	notifyFailedTotal     = newLabeledCounter()
	notifyJobsReceived    atomic.Uint64
	notifyJobsDeadLetters atomic.Uint64

	assetUploadBytes = newHistogram([]float64{16 << 10, 64 << 10, 256 << 10, 1 << 20, 2 << 20, 5 << 20, 10 << 20})
)

// IncAssetUpload counts a stored upload of the given kind.
func IncAssetUpload(kind string) { assetUploadsTotal.inc(kind) }

// IncAssetRejected counts an upload rejected for reason.
func IncAssetRejected(reason string) { assetRejectionsTotal.inc(reason) }

// IncAssetDeleted counts an explicit asset deletion.
func IncAssetDeleted(kind string) { assetDeletesTotal.inc(kind) }

// IncAssetOrphaned counts stored objects that could not be removed.
func IncAssetOrphaned() { assetOrphanedTotal.Add(1) }

// ObserveAssetBytes records the size of a stored upload.
func ObserveAssetBytes(n int64) {
	if n < 0 {
		n = 0
	}
	assetUploadBytes.Observe(float64(n))
}

// IncContactSubmitted counts a persisted contact submission.
func IncContactSubmitted() { contactSubmitsTotal.Add(1) }

// IncContactRejected counts a submission that failed validation.
func IncContactRejected() { contactRejectedTotal.Add(1) }

// IncRateLimited counts a throttled request for the named limiter.
func IncRateLimited(limiter string) { rateLimitedTotal.inc(limiter) }

// IncNotifySent counts a delivered email of the given kind.
func IncNotifySent(kind string) { notifySentTotal.inc(kind) }

// IncNotifyFailed counts a failed email of the given kind.
func IncNotifyFailed(kind string) { notifyFailedTotal.inc(kind) }

// IncNotifyJobsReceived counts queue messages picked up by the worker.
func IncNotifyJobsReceived() { notifyJobsReceived.Add(1) }

// IncNotifyJobsDropped counts queue messages deleted as unprocessable.
func IncNotifyJobsDropped() { notifyJobsDeadLetters.Add(1) }

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
	writeLabeled(&buf, "asset_uploads_total", "Assets stored", "kind", assetUploadsTotal)
	writeLabeled(&buf, "asset_upload_rejections_total", "Uploads rejected", "reason", assetRejectionsTotal)
	writeLabeled(&buf, "asset_deletes_total", "Assets deleted on request", "kind", assetDeletesTotal)
	writeCounter(&buf, "asset_orphaned_total", "Stored objects left behind after a failed delete", assetOrphanedTotal.Load())
	writeHistogram(&buf, "asset_upload_bytes", "Stored upload size in bytes", assetUploadBytes.Snapshot())
	writeCounter(&buf, "contact_submissions_total", "Contact submissions persisted", contactSubmitsTotal.Load())
	writeCounter(&buf, "contact_validation_failures_total", "Contact submissions rejected by validation", contactRejectedTotal.Load())
	writeLabeled(&buf, "rate_limited_total", "Requests rejected by a rate limiter", "limiter", rateLimitedTotal)
	writeLabeled(&buf, "notify_sent_total", "Notification emails delivered", "kind", notifySentTotal)
	writeLabeled(&buf, "notify_failed_total", "Notification emails that failed", "kind", notifyFailedTotal)
	writeCounter(&buf, "notify_jobs_received_total", "Notification jobs received from the queue", notifyJobsReceived.Load())
	writeCounter(&buf, "notify_jobs_dropped_total", "Notification jobs dropped as unprocessable", notifyJobsDeadLetters.Load())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) snapshot() ([]string, map[string]uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	keys := make([]string, 0, len(l.values))
	for k, v := range l.values {
		out[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, out
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

// Observe counts value in the first bucket whose bound holds it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeled(buf *bytes.Buffer, name, help, label string, c *labeledCounter) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys, values := c.snapshot()
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
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
