// Command benchmark runs the klrsim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results in JSON format
//	-no-cache   Disable the predecode cache
//	-core       Run only the core benchmarks
//
// Every benchmark carries the cycle count the MCS-48 data sheet gives
// for its instruction sequence; a mismatch fails the run.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/klrsim/benchmarks"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	noCache := flag.Bool("no-cache", false, "Disable the predecode cache")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	flag.Parse()

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.EnableDecodeCache = !*noCache
	config.Output = os.Stdout

	// Create harness and add benchmarks
	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	// Print configuration
	if !*csvOutput && !*jsonOutput {
		fmt.Println("klrsim Timing Benchmark Harness")
		fmt.Println("===============================")
		fmt.Printf("Decode cache: %v\n", config.EnableDecodeCache)
		fmt.Println("")
	}

	// Run benchmarks
	results := harness.RunAll()

	// Output results
	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		summary := benchmarks.Summarize(results)
		fmt.Println("=== Summary ===")
		fmt.Printf("%d/%d benchmarks match the data sheet cycle counts\n",
			summary.Passed, summary.TotalBenchmarks)
		fmt.Printf("Average CPI: %.3f\n", summary.AverageCPI)
	}

	if summary := benchmarks.Summarize(results); summary.Passed != summary.TotalBenchmarks {
		os.Exit(1)
	}
}
