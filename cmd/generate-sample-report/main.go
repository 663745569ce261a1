package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ahmed-madyan/surge/internal/engine"
	"github.com/ahmed-madyan/surge/internal/metrics"
	"github.com/ahmed-madyan/surge/internal/report"
)

func main() {
	result := createSampleResult()

	outputPath := "sample-report.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := report.WriteJSON(result, outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample report generated: %s\n", outputPath)
}

func createSampleResult() *engine.Result {
	now := time.Now()
	duration := 90 * time.Second

	return &engine.Result{
		RunID:      "01JDXW0BKTN5W3CHT4V34V2Q5B",
		Name:       "user API ramp test",
		StartTime:  now.Add(-duration),
		EndTime:    now,
		Duration:   duration,
		Iterations: 2893,
		Metrics: &metrics.Snapshot{
			TotalRequests:      5847,
			SuccessRequests:    5789,
			FailedRequests:     58,
			ValidationFailures: 12,
			TotalBytes:         12582912,
			RPS:                64.97,
			ErrorRate:          0.0099,
			ActiveVUs:          80,
			Elapsed:            duration,
			Timestamp:          now,
			Latency: metrics.LatencyStats{
				Min:    8 * time.Millisecond,
				Max:    892 * time.Millisecond,
				Mean:   47 * time.Millisecond,
				StdDev: 38 * time.Millisecond,
				P50:    39 * time.Millisecond,
				P90:    89 * time.Millisecond,
				P95:    124 * time.Millisecond,
				P99:    287 * time.Millisecond,
				Count:  5847,
			},
		},
		RequestStats: map[string]metrics.LatencyStats{
			"GET /api/users": {
				Min:   10 * time.Millisecond,
				Max:   456 * time.Millisecond,
				Mean:  38 * time.Millisecond,
				P50:   32 * time.Millisecond,
				P90:   74 * time.Millisecond,
				P95:   98 * time.Millisecond,
				P99:   234 * time.Millisecond,
				Count: 3521,
			},
			"POST /api/users": {
				Min:   15 * time.Millisecond,
				Max:   892 * time.Millisecond,
				Mean:  54 * time.Millisecond,
				P50:   45 * time.Millisecond,
				P90:   112 * time.Millisecond,
				P95:   138 * time.Millisecond,
				P99:   287 * time.Millisecond,
				Count: 2326,
			},
		},
		TimeSeries: createSampleTimeSeries(90),
	}
}

// createSampleTimeSeries fakes a run that spikes, ramps up, holds steady and
// then stress-ramps, which is the shape the default profile produces.
func createSampleTimeSeries(seconds int) []metrics.SecondPoint {
	points := make([]metrics.SecondPoint, seconds)

	rampEnd := 30
	steadyEnd := 60

	for i := 0; i < seconds; i++ {
		var rps float64

		switch {
		case i == 0:
			// Spike second: everything arrives at once.
			rps = 80
		case i < rampEnd:
			rps = 10 + float64(i)/float64(rampEnd)*55
		case i < steadyEnd:
			rps = 62 + float64(i%5) - 2
		default:
			progress := float64(i-steadyEnd) / float64(seconds-steadyEnd)
			rps = 65 + progress*40
		}

		requests := int64(rps)
		failures := requests / 100
		points[i] = metrics.SecondPoint{
			Offset:      int64(i),
			Requests:    requests,
			Failures:    failures,
			Bytes:       requests * 2152,
			MeanLatency: time.Duration(35+i%20) * time.Millisecond,
		}
	}

	return points
}
