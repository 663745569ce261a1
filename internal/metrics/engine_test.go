package metrics

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

func TestNewEngine(t *testing.T) {
	engine := NewEngine()
	if engine == nil {
		t.Fatal("NewEngine() returned nil")
	}

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 0 {
		t.Errorf("Initial TotalRequests = %d, want 0", snapshot.TotalRequests)
	}
	if snapshot.ActiveVUs != 0 {
		t.Errorf("Initial ActiveVUs = %d, want 0", snapshot.ActiveVUs)
	}
}

func TestEngine_RecordRequest(t *testing.T) {
	engine := NewEngine()

	engine.RecordRequest("test-request", 10*time.Millisecond, true, 1000)
	engine.RecordRequest("test-request", 20*time.Millisecond, true, 2000)
	engine.RecordRequest("test-request", 30*time.Millisecond, false, 500)

	snapshot := engine.GetSnapshot()

	if snapshot.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", snapshot.TotalRequests)
	}
	if snapshot.SuccessRequests != 2 {
		t.Errorf("SuccessRequests = %d, want 2", snapshot.SuccessRequests)
	}
	if snapshot.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", snapshot.FailedRequests)
	}
	if snapshot.TotalBytes != 3500 {
		t.Errorf("TotalBytes = %d, want 3500", snapshot.TotalBytes)
	}
}

func TestEngine_RecordValidationFailure(t *testing.T) {
	engine := NewEngine()

	engine.RecordRequest("checkout", 10*time.Millisecond, false, 100)
	engine.RecordValidationFailure()

	snapshot := engine.GetSnapshot()
	if snapshot.ValidationFailures != 1 {
		t.Errorf("ValidationFailures = %d, want 1", snapshot.ValidationFailures)
	}
	if snapshot.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", snapshot.FailedRequests)
	}
}

func TestEngine_LatencyPercentiles(t *testing.T) {
	engine := NewEngine()

	// Known distribution: 10ms..100ms in 10ms steps.
	for i := 1; i <= 10; i++ {
		engine.RecordRequest("", time.Duration(i)*10*time.Millisecond, true, 100)
	}

	snapshot := engine.GetSnapshot()

	// HDR histogram binning introduces some tolerance.
	if snapshot.Latency.P50 < 40*time.Millisecond || snapshot.Latency.P50 > 60*time.Millisecond {
		t.Errorf("P50 = %v, want ~50ms (±10ms)", snapshot.Latency.P50)
	}
	if snapshot.Latency.P99 < 90*time.Millisecond || snapshot.Latency.P99 > 110*time.Millisecond {
		t.Errorf("P99 = %v, want ~100ms (±10ms)", snapshot.Latency.P99)
	}
	if snapshot.Latency.Min < 9*time.Millisecond || snapshot.Latency.Min > 11*time.Millisecond {
		t.Errorf("Min = %v, want ~10ms", snapshot.Latency.Min)
	}
	if snapshot.Latency.Max < 99*time.Millisecond || snapshot.Latency.Max > 101*time.Millisecond {
		t.Errorf("Max = %v, want ~100ms", snapshot.Latency.Max)
	}
	if snapshot.Latency.Count != 10 {
		t.Errorf("Latency.Count = %d, want 10", snapshot.Latency.Count)
	}
}

func TestEngine_LatencyClamped(t *testing.T) {
	engine := NewEngine()

	// Below the histogram floor and above its ceiling must not panic.
	engine.RecordRequest("", 100*time.Nanosecond, true, 0)
	engine.RecordRequest("", 2*time.Hour, true, 0)

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", snapshot.TotalRequests)
	}
}

func TestEngine_ActiveVUs(t *testing.T) {
	engine := NewEngine()

	if engine.GetActiveVUs() != 0 {
		t.Errorf("Initial ActiveVUs = %d, want 0", engine.GetActiveVUs())
	}

	engine.SetActiveVUs(10)
	if engine.GetActiveVUs() != 10 {
		t.Errorf("After SetActiveVUs(10), GetActiveVUs() = %d, want 10", engine.GetActiveVUs())
	}

	engine.SetActiveVUs(5)
	if engine.GetActiveVUs() != 5 {
		t.Errorf("After SetActiveVUs(5), GetActiveVUs() = %d, want 5", engine.GetActiveVUs())
	}
}

func TestEngine_RequestStats(t *testing.T) {
	engine := NewEngine()

	engine.RecordRequest("login", 10*time.Millisecond, true, 100)
	engine.RecordRequest("login", 15*time.Millisecond, true, 100)
	engine.RecordRequest("get-profile", 50*time.Millisecond, true, 500)
	engine.RecordRequest("get-profile", 60*time.Millisecond, true, 500)

	stats := engine.GetRequestStats()

	if len(stats) != 2 {
		t.Errorf("RequestStats length = %d, want 2", len(stats))
	}

	loginStats, ok := stats["login"]
	if !ok {
		t.Fatal("Missing 'login' stats")
	}
	if loginStats.Count != 2 {
		t.Errorf("login count = %d, want 2", loginStats.Count)
	}

	profileStats, ok := stats["get-profile"]
	if !ok {
		t.Fatal("Missing 'get-profile' stats")
	}
	if profileStats.Count != 2 {
		t.Errorf("get-profile count = %d, want 2", profileStats.Count)
	}
}

func TestEngine_UnnamedRequestsSkipPerRequestStats(t *testing.T) {
	engine := NewEngine()

	engine.RecordRequest("", 10*time.Millisecond, true, 100)

	if stats := engine.GetRequestStats(); len(stats) != 0 {
		t.Errorf("RequestStats length = %d, want 0", len(stats))
	}

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", snapshot.TotalRequests)
	}
}

func TestEngine_TimeSeries(t *testing.T) {
	engine := NewEngine()

	engine.RecordRequest("a", 10*time.Millisecond, true, 100)
	engine.RecordRequest("a", 30*time.Millisecond, false, 200)

	series := engine.GetTimeSeries()
	if len(series) == 0 {
		t.Fatal("GetTimeSeries() returned no points")
	}

	first := series[0]
	if first.Offset != 0 {
		t.Errorf("First point offset = %d, want 0", first.Offset)
	}
	if first.Requests != 2 {
		t.Errorf("First point requests = %d, want 2", first.Requests)
	}
	if first.Failures != 1 {
		t.Errorf("First point failures = %d, want 1", first.Failures)
	}
	if first.Bytes != 300 {
		t.Errorf("First point bytes = %d, want 300", first.Bytes)
	}
	if first.MeanLatency != 20*time.Millisecond {
		t.Errorf("First point mean latency = %v, want 20ms", first.MeanLatency)
	}
}

func TestEngine_TimeSeriesFillsGaps(t *testing.T) {
	engine := NewEngine()

	// Put traffic in seconds 0 and 3, leaving 1 and 2 idle.
	engine.recordBucketAt(0, 10*time.Millisecond, true, 100)
	engine.recordBucketAt(3, 20*time.Millisecond, true, 100)

	series := engine.GetTimeSeries()
	if len(series) != 4 {
		t.Fatalf("GetTimeSeries() length = %d, want 4", len(series))
	}
	for i, point := range series {
		if point.Offset != int64(i) {
			t.Errorf("series[%d].Offset = %d, want %d", i, point.Offset, i)
		}
	}
	if series[1].Requests != 0 || series[2].Requests != 0 {
		t.Errorf("Idle seconds have requests: [1]=%d [2]=%d, want 0", series[1].Requests, series[2].Requests)
	}
	if series[3].Requests != 1 {
		t.Errorf("series[3].Requests = %d, want 1", series[3].Requests)
	}
}

func TestEngine_TimeSeriesEmpty(t *testing.T) {
	engine := NewEngine()

	if series := engine.GetTimeSeries(); series != nil {
		t.Errorf("GetTimeSeries() on fresh engine = %v, want nil", series)
	}
}

func TestEngine_Reset(t *testing.T) {
	engine := NewEngine()

	engine.RecordRequest("test", 10*time.Millisecond, true, 100)
	engine.RecordRequest("test", 20*time.Millisecond, false, 200)
	engine.RecordValidationFailure()
	engine.SetActiveVUs(5)

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 2 {
		t.Errorf("Before reset, TotalRequests = %d, want 2", snapshot.TotalRequests)
	}

	engine.Reset()

	snapshot = engine.GetSnapshot()
	if snapshot.TotalRequests != 0 {
		t.Errorf("After reset, TotalRequests = %d, want 0", snapshot.TotalRequests)
	}
	if snapshot.SuccessRequests != 0 {
		t.Errorf("After reset, SuccessRequests = %d, want 0", snapshot.SuccessRequests)
	}
	if snapshot.FailedRequests != 0 {
		t.Errorf("After reset, FailedRequests = %d, want 0", snapshot.FailedRequests)
	}
	if snapshot.ValidationFailures != 0 {
		t.Errorf("After reset, ValidationFailures = %d, want 0", snapshot.ValidationFailures)
	}
	if snapshot.ActiveVUs != 0 {
		t.Errorf("After reset, ActiveVUs = %d, want 0", snapshot.ActiveVUs)
	}
	if stats := engine.GetRequestStats(); len(stats) != 0 {
		t.Errorf("After reset, RequestStats length = %d, want 0", len(stats))
	}
	if series := engine.GetTimeSeries(); series != nil {
		t.Errorf("After reset, GetTimeSeries() = %v, want nil", series)
	}
}

func TestEngine_Snapshot(t *testing.T) {
	engine := NewEngine()

	for i := 0; i < 100; i++ {
		success := i%10 != 0 // 10% failure rate
		engine.RecordRequest("", time.Duration(i+1)*time.Millisecond, success, 100)
	}
	engine.SetActiveVUs(10)

	snapshot := engine.GetSnapshot()

	if snapshot.TotalRequests != 100 {
		t.Errorf("TotalRequests = %d, want 100", snapshot.TotalRequests)
	}
	if snapshot.SuccessRequests != 90 {
		t.Errorf("SuccessRequests = %d, want 90", snapshot.SuccessRequests)
	}
	if snapshot.FailedRequests != 10 {
		t.Errorf("FailedRequests = %d, want 10", snapshot.FailedRequests)
	}

	expectedErrorRate := 0.10
	if snapshot.ErrorRate < expectedErrorRate-0.01 || snapshot.ErrorRate > expectedErrorRate+0.01 {
		t.Errorf("ErrorRate = %v, want ~%v", snapshot.ErrorRate, expectedErrorRate)
	}

	if snapshot.ActiveVUs != 10 {
		t.Errorf("ActiveVUs = %d, want 10", snapshot.ActiveVUs)
	}
	if snapshot.Latency.Count != 100 {
		t.Errorf("Latency.Count = %d, want 100", snapshot.Latency.Count)
	}
	if snapshot.RPS <= 0 {
		t.Errorf("RPS = %v, want > 0", snapshot.RPS)
	}
	if snapshot.Elapsed <= 0 {
		t.Errorf("Elapsed = %v, want > 0", snapshot.Elapsed)
	}
}

func TestEngineWithConfig(t *testing.T) {
	config := EngineConfig{
		MaxBuckets:       100,
		HistogramMin:     1,
		HistogramMax:     60000000, // 1 minute in microseconds
		HistogramSigFigs: 2,
	}

	engine := NewEngineWithConfig(config)
	if engine == nil {
		t.Fatal("NewEngineWithConfig() returned nil")
	}

	engine.RecordRequest("", 10*time.Millisecond, true, 100)

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", snapshot.TotalRequests)
	}
}

func TestConcurrentMetricsAccess(t *testing.T) {
	engine := NewEngine()

	numGoroutines := 50
	iterationsPerGoroutine := 500

	var wg sync.WaitGroup

	// Writers
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterationsPerGoroutine; j++ {
				latency := time.Duration(1+rand.Intn(100)) * time.Millisecond
				engine.RecordRequest("request", latency, rand.Float32() > 0.05, 1024)
			}
		}()
	}

	// Readers
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterationsPerGoroutine; j++ {
				_ = engine.GetSnapshot()
				_ = engine.GetTimeSeries()
			}
		}()
	}

	wg.Wait()

	snapshot := engine.GetSnapshot()
	expectedRequests := int64(numGoroutines * iterationsPerGoroutine)
	if snapshot.TotalRequests != expectedRequests {
		t.Errorf("Expected %d requests, got %d", expectedRequests, snapshot.TotalRequests)
	}
}

func BenchmarkEngine_RecordRequest(b *testing.B) {
	engine := NewEngine()

	latencies := []time.Duration{
		1 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.RecordRequest("request", latencies[i%len(latencies)], true, 1024)
	}
}

func BenchmarkEngine_RecordRequest_Parallel(b *testing.B) {
	engine := NewEngine()

	latencies := []time.Duration{
		1 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
	}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			engine.RecordRequest("request", latencies[i%len(latencies)], true, 1024)
			i++
		}
	})
}

func BenchmarkEngine_GetSnapshot(b *testing.B) {
	engine := NewEngine()

	for i := 0; i < 10000; i++ {
		engine.RecordRequest("", time.Duration(rand.Intn(100))*time.Millisecond, true, 1024)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = engine.GetSnapshot()
	}
}
