//go:build ignore

// Measures the raw throughput the local HTTP stack reaches with plain
// net/http workers. The number is a ceiling to compare engine runs against:
// if surge reports far fewer rps against the same target, the generator is
// the bottleneck, not the transport.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	url := flag.String("url", "http://localhost:8080/status/200", "target URL")
	duration := flag.Duration("duration", 10*time.Second, "how long to hammer")
	concurrency := flag.Int("concurrency", 100, "number of workers")
	flag.Parse()

	fmt.Printf("Testing connection speed to %s\n", *url)
	fmt.Printf("Duration: %v, Concurrency: %d\n\n", *duration, *concurrency)

	transport := &http.Transport{
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 1000,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: transport,
	}

	var (
		totalRequests atomic.Int64
		successCount  atomic.Int64
		errorCount    atomic.Int64
		wg            sync.WaitGroup
	)

	startTime := time.Now()
	endTime := startTime.Add(*duration)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(endTime) {
				req, err := http.NewRequest("GET", *url, nil)
				if err != nil {
					errorCount.Add(1)
					continue
				}

				resp, err := client.Do(req)
				if err != nil {
					errorCount.Add(1)
					totalRequests.Add(1)
					continue
				}

				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				if resp.StatusCode == 200 {
					successCount.Add(1)
				} else {
					errorCount.Add(1)
				}
				totalRequests.Add(1)
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		lastCount := int64(0)

		for range ticker.C {
			if time.Now().After(endTime) {
				return
			}
			currentCount := totalRequests.Load()
			rps := currentCount - lastCount
			lastCount = currentCount
			fmt.Printf("Current RPS: %d, Total: %d, Success: %d, Errors: %d\n",
				rps, currentCount, successCount.Load(), errorCount.Load())
		}
	}()

	wg.Wait()
	actualDuration := time.Since(startTime)

	total := totalRequests.Load()
	success := successCount.Load()
	errors := errorCount.Load()
	avgRPS := float64(total) / actualDuration.Seconds()

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Total Requests: %d\n", total)
	fmt.Printf("Successful: %d (%.2f%%)\n", success, float64(success)/float64(total)*100)
	fmt.Printf("Errors: %d (%.2f%%)\n", errors, float64(errors)/float64(total)*100)
	fmt.Printf("Duration: %v\n", actualDuration)
	fmt.Printf("Average RPS: %.2f\n", avgRPS)
}
