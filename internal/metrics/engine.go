// Package metrics collects and aggregates load-run measurements using HDR
// histograms.
//
// Key properties:
//   - HDR histograms for accurate latency percentiles
//   - Lock-free counter updates on the hot path
//   - Per-second time buckets maintained on record, no background goroutine
//
// # Thread Safety
//
// Engine is safe for concurrent use by any number of virtual users.
// Counters use atomic operations; histograms and buckets take short
// mutexes.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// MaxBuckets caps the per-second time series (default: 3600).
	MaxBuckets int

	// HistogramMin is the minimum recordable latency in microseconds (default: 1).
	HistogramMin int64

	// HistogramMax is the maximum recordable latency in microseconds (default: 1 hour).
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3).
	HistogramSigFigs int
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxBuckets:       3600,
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
	}
}

// Engine aggregates request outcomes for one load run.
type Engine struct {
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	requestHists   map[string]*hdrhistogram.Histogram
	requestHistsMu sync.RWMutex

	totalRequests      atomic.Int64
	successRequests    atomic.Int64
	failedRequests     atomic.Int64
	validationFailures atomic.Int64
	totalBytes         atomic.Int64

	activeVUs atomic.Int32

	buckets   map[int64]*secondBucket
	bucketsMu sync.Mutex

	startMu   sync.RWMutex
	startTime time.Time

	config EngineConfig
}

type secondBucket struct {
	requests   int64
	failures   int64
	bytes      int64
	latencySum time.Duration
}

// SecondPoint is one entry of the per-second time series.
type SecondPoint struct {
	Offset      int64         `json:"offset"`
	Requests    int64         `json:"requests"`
	Failures    int64         `json:"failures"`
	Bytes       int64         `json:"bytes"`
	MeanLatency time.Duration `json:"meanLatency"`
}

// NewEngine creates a metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a metrics engine with custom configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	return &Engine{
		latencyHist:  hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		requestHists: make(map[string]*hdrhistogram.Histogram),
		buckets:      make(map[int64]*secondBucket),
		startTime:    time.Now(),
		config:       config,
	}
}

// RecordRequest records one completed request: its latency in the overall
// and per-name histograms, the outcome counters, and the current second's
// bucket.
func (e *Engine) RecordRequest(name string, duration time.Duration, success bool, bytes int64) {
	latencyMicros := duration.Microseconds()
	if latencyMicros < e.config.HistogramMin {
		latencyMicros = e.config.HistogramMin
	}
	if latencyMicros > e.config.HistogramMax {
		latencyMicros = e.config.HistogramMax
	}

	e.latencyHistMu.Lock()
	e.latencyHist.RecordValue(latencyMicros)
	e.latencyHistMu.Unlock()

	if name != "" {
		e.recordRequestHistogram(name, latencyMicros)
	}

	e.totalRequests.Add(1)
	e.totalBytes.Add(bytes)
	if success {
		e.successRequests.Add(1)
	} else {
		e.failedRequests.Add(1)
	}

	e.recordBucket(duration, success, bytes)
}

// RecordValidationFailure counts a response that came back but failed its
// validation checks. The request itself is still recorded via
// RecordRequest with success=false.
func (e *Engine) RecordValidationFailure() {
	e.validationFailures.Add(1)
}

// recordRequestHistogram records a latency in a per-request histogram.
// HDR histogram RecordValue is not thread-safe, so the write lock covers it.
func (e *Engine) recordRequestHistogram(name string, latencyMicros int64) {
	e.requestHistsMu.Lock()
	defer e.requestHistsMu.Unlock()

	hist, exists := e.requestHists[name]
	if !exists {
		hist = hdrhistogram.New(e.config.HistogramMin, e.config.HistogramMax, e.config.HistogramSigFigs)
		e.requestHists[name] = hist
	}
	hist.RecordValue(latencyMicros)
}

func (e *Engine) recordBucket(duration time.Duration, success bool, bytes int64) {
	e.recordBucketAt(int64(e.Elapsed()/time.Second), duration, success, bytes)
}

func (e *Engine) recordBucketAt(offset int64, duration time.Duration, success bool, bytes int64) {
	if offset < 0 || offset >= int64(e.config.MaxBuckets) {
		return
	}

	e.bucketsMu.Lock()
	defer e.bucketsMu.Unlock()

	bucket, exists := e.buckets[offset]
	if !exists {
		bucket = &secondBucket{}
		e.buckets[offset] = bucket
	}
	bucket.requests++
	bucket.bytes += bytes
	bucket.latencySum += duration
	if !success {
		bucket.failures++
	}
}

// SetActiveVUs updates the active virtual user gauge.
func (e *Engine) SetActiveVUs(count int) {
	e.activeVUs.Store(int32(count))
}

// GetActiveVUs returns the active virtual user gauge.
func (e *Engine) GetActiveVUs() int {
	return int(e.activeVUs.Load())
}

// Elapsed returns the time since the engine started (or was last reset).
func (e *Engine) Elapsed() time.Duration {
	e.startMu.RLock()
	defer e.startMu.RUnlock()
	return time.Since(e.startTime)
}

// GetSnapshot returns a point-in-time view of all metrics.
func (e *Engine) GetSnapshot() *Snapshot {
	e.latencyHistMu.Lock()
	latencyStats := statsFromHistogram(e.latencyHist)
	e.latencyHistMu.Unlock()

	elapsed := e.Elapsed()
	totalReqs := e.totalRequests.Load()
	failedReqs := e.failedRequests.Load()

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(totalReqs) / elapsed.Seconds()
	}

	errorRate := 0.0
	if totalReqs > 0 {
		errorRate = float64(failedReqs) / float64(totalReqs)
	}

	return &Snapshot{
		TotalRequests:      totalReqs,
		SuccessRequests:    e.successRequests.Load(),
		FailedRequests:     failedReqs,
		ValidationFailures: e.validationFailures.Load(),
		TotalBytes:         e.totalBytes.Load(),
		Latency:            latencyStats,
		RPS:                rps,
		ErrorRate:          errorRate,
		ActiveVUs:          e.GetActiveVUs(),
		Elapsed:            elapsed,
		Timestamp:          time.Now(),
	}
}

// GetRequestStats returns per-request-name latency statistics.
func (e *Engine) GetRequestStats() map[string]LatencyStats {
	e.requestHistsMu.RLock()
	defer e.requestHistsMu.RUnlock()

	result := make(map[string]LatencyStats, len(e.requestHists))
	for name, hist := range e.requestHists {
		result[name] = statsFromHistogram(hist)
	}
	return result
}

// GetTimeSeries returns the per-second series from the first to the last
// active second. Seconds with no traffic appear as zero points, so the
// series has no gaps.
func (e *Engine) GetTimeSeries() []SecondPoint {
	e.bucketsMu.Lock()
	defer e.bucketsMu.Unlock()

	if len(e.buckets) == 0 {
		return nil
	}

	offsets := make([]int64, 0, len(e.buckets))
	for offset := range e.buckets {
		offsets = append(offsets, offset)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	last := offsets[len(offsets)-1]
	series := make([]SecondPoint, 0, last+1)
	for offset := int64(0); offset <= last; offset++ {
		point := SecondPoint{Offset: offset}
		if bucket, ok := e.buckets[offset]; ok {
			point.Requests = bucket.requests
			point.Failures = bucket.failures
			point.Bytes = bucket.bytes
			if bucket.requests > 0 {
				point.MeanLatency = bucket.latencySum / time.Duration(bucket.requests)
			}
		}
		series = append(series, point)
	}
	return series
}

// Reset clears every metric and restarts the clock. Run drivers call this
// when they reuse an engine for a fresh run.
func (e *Engine) Reset() {
	e.latencyHistMu.Lock()
	e.latencyHist.Reset()
	e.latencyHistMu.Unlock()

	e.requestHistsMu.Lock()
	e.requestHists = make(map[string]*hdrhistogram.Histogram)
	e.requestHistsMu.Unlock()

	e.totalRequests.Store(0)
	e.successRequests.Store(0)
	e.failedRequests.Store(0)
	e.validationFailures.Store(0)
	e.totalBytes.Store(0)
	e.activeVUs.Store(0)

	e.bucketsMu.Lock()
	e.buckets = make(map[int64]*secondBucket)
	e.bucketsMu.Unlock()

	e.startMu.Lock()
	e.startTime = time.Now()
	e.startMu.Unlock()
}

func statsFromHistogram(hist *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    time.Duration(hist.Min()) * time.Microsecond,
		Max:    time.Duration(hist.Max()) * time.Microsecond,
		Mean:   time.Duration(hist.Mean()) * time.Microsecond,
		StdDev: time.Duration(hist.StdDev()) * time.Microsecond,
		P50:    time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Count:  hist.TotalCount(),
	}
}

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	TotalRequests      int64         `json:"totalRequests"`
	SuccessRequests    int64         `json:"successRequests"`
	FailedRequests     int64         `json:"failedRequests"`
	ValidationFailures int64         `json:"validationFailures"`
	TotalBytes         int64         `json:"totalBytes"`
	Latency            LatencyStats  `json:"latency"`
	RPS                float64       `json:"rps"`
	ErrorRate          float64       `json:"errorRate"`
	ActiveVUs          int           `json:"activeVUs"`
	Elapsed            time.Duration `json:"elapsed"`
	Timestamp          time.Time     `json:"timestamp"`
}

// LatencyStats contains latency distribution statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}
