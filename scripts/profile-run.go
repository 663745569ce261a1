//go:build ignore

// Profiled load run: executes a test in-process with CPU, memory and
// goroutine profiles plus periodic runtime monitoring, to find where the
// load generator itself spends its time.
//
// Usage:
//
//	go run scripts/profile-run.go -url http://localhost:8080 -cpuprofile cpu.out
//	go run scripts/profile-run.go -config examples/users-api.yaml -memprofile mem.out
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/ahmed-madyan/surge"
)

func main() {
	configFile := flag.String("config", "", "test definition to run")
	url := flag.String("url", "http://localhost:8080", "target for the default profile when no config is given")
	cpuProfile := flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile to file")
	goroutineProfile := flag.String("goroutineprofile", "", "write goroutine profile to file")
	monitorInterval := flag.Duration("monitor-interval", 5*time.Second, "interval for monitoring stats")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		fmt.Printf("✓ CPU profiling enabled: %s\n", *cpuProfile)
	}

	stopMonitor := make(chan struct{})
	monitorDone := make(chan struct{})

	go func() {
		defer close(monitorDone)
		ticker := time.NewTicker(*monitorInterval)
		defer ticker.Stop()

		fmt.Println("\nTime\t\tGoroutines\tMemAlloc(MB)\tSys(MB)\t\tNumGC")
		fmt.Println("----\t\t----------\t------------\t-------\t\t-----")

		for {
			select {
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				fmt.Printf("%s\t%d\t\t%.2f\t\t%.2f\t\t%d\n",
					time.Now().Format("15:04:05"),
					runtime.NumGoroutine(),
					float64(m.Alloc)/1024/1024,
					float64(m.Sys)/1024/1024,
					m.NumGC,
				)
			case <-stopMonitor:
				return
			}
		}
	}()

	var initialStats runtime.MemStats
	runtime.ReadMemStats(&initialStats)
	initialGoroutines := runtime.NumGoroutine()

	fmt.Printf("Initial state:\n")
	fmt.Printf("  Goroutines: %d\n", initialGoroutines)
	fmt.Printf("  Memory Allocated: %.2f MB\n", float64(initialStats.Alloc)/1024/1024)
	fmt.Println()

	opts := surge.Options{ConfigFile: *configFile}
	if *configFile == "" {
		cfg := surge.DefaultConfig()
		cfg.Name = "profiled run"
		cfg.Target.BaseURL = *url
		cfg.Requests = []surge.RequestConfig{
			{Name: "status", Method: "GET", Path: "/status/200"},
		}
		opts = surge.Options{Config: cfg}
	}

	startTime := time.Now()
	result, err := surge.Run(context.Background(), opts)
	elapsed := time.Since(startTime)

	close(stopMonitor)
	<-monitorDone

	fmt.Println()
	fmt.Printf("Duration: %s\n", elapsed)
	if result != nil {
		fmt.Printf("Requests: %d (%.1f rps, %.2f%% errors)\n",
			result.Metrics.TotalRequests, result.Metrics.RPS, result.Metrics.ErrorRate*100)
	}
	fmt.Println()

	var finalStats runtime.MemStats
	runtime.ReadMemStats(&finalStats)
	finalGoroutines := runtime.NumGoroutine()

	fmt.Printf("Final state:\n")
	fmt.Printf("  Goroutines: %d (delta: %+d)\n", finalGoroutines, finalGoroutines-initialGoroutines)
	fmt.Printf("  Memory Allocated: %.2f MB\n", float64(finalStats.Alloc)/1024/1024)
	fmt.Printf("  Total GC Runs: %d\n", finalStats.NumGC-initialStats.NumGC)
	fmt.Println()

	// The pool should have drained; a few straggling runtime goroutines are
	// normal, dozens are not.
	if finalGoroutines > initialGoroutines+5 {
		fmt.Printf("⚠ WARNING: Possible goroutine leak detected! (+%d goroutines)\n", finalGoroutines-initialGoroutines)
	} else {
		fmt.Println("✓ No goroutine leaks detected")
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
		fmt.Printf("✓ Memory profile written to: %s\n", *memProfile)
	}

	if *goroutineProfile != "" {
		f, err := os.Create(*goroutineProfile)
		if err != nil {
			log.Fatal("could not create goroutine profile: ", err)
		}
		defer f.Close()
		if err := pprof.Lookup("goroutine").WriteTo(f, 0); err != nil {
			log.Fatal("could not write goroutine profile: ", err)
		}
		fmt.Printf("✓ Goroutine profile written to: %s\n", *goroutineProfile)
	}

	if err != nil {
		fmt.Printf("✗ Run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("To analyze profiles:")
	if *cpuProfile != "" {
		fmt.Printf("  go tool pprof %s\n", *cpuProfile)
	}
	if *memProfile != "" {
		fmt.Printf("  go tool pprof %s\n", *memProfile)
	}
	if *goroutineProfile != "" {
		fmt.Printf("  go tool pprof %s\n", *goroutineProfile)
	}
}
