// Package main provides a performance benchmarking tool for the depdive CLI.
// It measures execution times of the phantom and analyze commands over a set of
// package updates, running each test multiple times, treating the first successful
// run as cold and averaging the rest as warm, and writes the timings to CSV.
//
// Prerequisites:
// - depdive binary installed and available in PATH
// - Published versions extracted under the registry root as <ecosystem>/<package>/<version>
// - GITHUB_TOKENS set for the analyze runs
//
// Usage: go run benchmark/main.go [registry-root]
//
//	registry-root: Directory containing the extracted package versions
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Update      string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkUpdate is one package update to time.
type BenchmarkUpdate struct {
	Ecosystem  string
	Package    string
	OldVersion string
	NewVersion string
}

// Name identifies the update in results.
func (u BenchmarkUpdate) Name() string {
	return fmt.Sprintf("%s/%s@%s..%s", u.Ecosystem, u.Package, u.OldVersion, u.NewVersion)
}

// Args returns the positional arguments of a package command.
func (u BenchmarkUpdate) Args() []string {
	return []string{u.Ecosystem, u.Package, u.OldVersion, u.NewVersion}
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RegistryRoot string
	Timeout      time.Duration
	NoCacheRuns  int
	CacheRuns    int
	Updates      []BenchmarkUpdate
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [registry-root]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RegistryRoot: os.Args[1],
		Timeout:      10 * time.Minute,
		NoCacheRuns:  2,
		CacheRuns:    3,
		Updates: []BenchmarkUpdate{
			{Ecosystem: "npm", Package: "left-pad", OldVersion: "1.2.0", NewVersion: "1.3.0"},
			{Ecosystem: "pypi", Package: "requests", OldVersion: "2.31.0", NewVersion: "2.32.0"},
			{Ecosystem: "cargo", Package: "serde", OldVersion: "1.0.200", NewVersion: "1.0.201"},
			{Ecosystem: "rubygems", Package: "rack", OldVersion: "3.0.9", NewVersion: "3.0.10"},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Clear the review cache using depdive cache clear
	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("depdive", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the depdive binary and the extracted versions exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("depdive"); err != nil {
		return fmt.Errorf("depdive binary not found in PATH")
	}

	for _, u := range config.Updates {
		for _, v := range []string{u.OldVersion, u.NewVersion} {
			p := filepath.Join(config.RegistryRoot, u.Ecosystem, u.Package, v)
			if _, err := os.Stat(p); os.IsNotExist(err) {
				return fmt.Errorf("version %s of %s not found at %s", v, u.Package, p)
			}
		}
	}

	return nil
}

// runBenchmarks executes all benchmark tests across configured updates
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d updates, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Updates), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, u := range config.Updates {
		fmt.Printf("Benchmarking %s\n", u.Name())
		results = append(results, runBenchmarkSuite(config, u, "phantom"))
		results = append(results, runBenchmarkSuite(config, u, "analyze"))
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, u BenchmarkUpdate, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, u.Name())

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, u, command, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs, where the review cache serves repeated commits
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Update:      u.Name(),
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a depdive command multiple times with specified cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, u BenchmarkUpdate, command, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{command}, u.Args()...)
	args = append(args,
		"--registry-root", config.RegistryRoot,
		"--cache-backend", cacheBackend,
		"--report-backend", "none")

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("depdive", args...)

		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	return strings.Contains(strings.ToLower(string(output)), "completed in")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("depdive_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"update", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Update, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "phantom", "Phantom Analysis:")
	printCommandSummary(results, "analyze", "Full Analysis:")

	fmt.Printf("Benchmark script completed successfully\n")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-36s: No-cache: %s, Cold: %s, Warm: %s\n", result.Update, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
