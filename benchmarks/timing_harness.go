// Package benchmarks provides timing benchmark infrastructure for klrsim calibration.
//
// Each benchmark is a short MCS-48 program ending at a halt address. The
// cycle counts of the instruction set are fixed by the data sheet, so
// every benchmark carries the cycle total a real chip would take.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/klrsim/emu"
	"github.com/sarchlab/klrsim/timing/cache"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the machine cycle count up to the halt address
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// ExpectedCycles is the data sheet cycle count, 0 if not known
	ExpectedCycles uint64 `json:"expected_cycles,omitempty"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// Decode cache hits/misses (if enabled)
	CacheHits   uint64 `json:"cache_hits,omitempty"`
	CacheMisses uint64 `json:"cache_misses,omitempty"`

	// Passed is true when the program halted, the cycle count matched and
	// the final state check succeeded
	Passed bool `json:"passed"`

	// Error describes why the benchmark did not pass
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Code holds program fragments keyed by load address
	Code map[uint16][]byte

	// Halt is the address that ends the run; a jump to itself is placed
	// there
	Halt uint16

	// ExpectedCycles is the data sheet cycle count up to Halt
	ExpectedCycles uint64

	// Check validates the final chip state (optional)
	Check func(s emu.State) error
}

// Image returns the program image with the halt loop in place.
func (b Benchmark) Image() []byte {
	image := make([]byte, emu.ROMSize)
	for addr, code := range b.Code {
		copy(image[addr:], code)
	}
	copy(image[b.Halt:], EncodeJMP(b.Halt))
	return image
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDecodeCache runs the chip with the predecode cache
	EnableDecodeCache bool

	// MaxCycles stops a benchmark that never reaches its halt address
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDecodeCache: true,
		MaxCycles:         1_000_000,
		Output:            os.Stdout,
		Verbose:           false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.MaxCycles == 0 {
		config.MaxCycles = DefaultConfig().MaxCycles
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	var opts []emu.EmulatorOption
	if h.config.EnableDecodeCache {
		opts = append(opts, emu.WithDecodeCache(cache.DefaultConfig()))
	}
	e := emu.NewEmulator(opts...)

	result := BenchmarkResult{
		Name:           bench.Name,
		Description:    bench.Description,
		ExpectedCycles: bench.ExpectedCycles,
	}

	if err := e.LoadProgram(bench.Image()); err != nil {
		result.Error = err.Error()
		return result
	}

	// Run simulation and measure time
	start := time.Now()
	runErr := h.runToHalt(e, bench.Halt)
	result.WallTime = time.Since(start)

	result.SimulatedCycles = e.Cycles()
	result.InstructionsRetired = e.InstructionCount()
	if result.InstructionsRetired > 0 {
		result.CPI = float64(result.SimulatedCycles) / float64(result.InstructionsRetired)
	}

	if c := e.DecodeCache(); c != nil {
		stats := c.Stats()
		result.CacheHits = stats.Hits
		result.CacheMisses = stats.Misses
	}

	switch {
	case runErr != nil:
		result.Error = runErr.Error()
	case bench.ExpectedCycles != 0 && result.SimulatedCycles != bench.ExpectedCycles:
		result.Error = fmt.Sprintf("took %d cycles, expected %d",
			result.SimulatedCycles, bench.ExpectedCycles)
	case bench.Check != nil:
		if err := bench.Check(e.Snapshot()); err != nil {
			result.Error = err.Error()
		}
	}
	result.Passed = result.Error == ""

	return result
}

// runToHalt steps the chip until the program counter reaches halt.
func (h *Harness) runToHalt(e *emu.Emulator, halt uint16) error {
	for e.RegFile().PC != halt {
		if e.Cycles() >= h.config.MaxCycles {
			return fmt.Errorf("did not reach 0x%03X within %d cycles", halt, h.config.MaxCycles)
		}

		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if h.config.Verbose && result.Illegal != nil {
			_, _ = fmt.Fprintf(h.config.Output, "  illegal opcode %s\n", result.Illegal)
		}
	}
	return nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== klrsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}

		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s [%s]\n", r.Name, status)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		if r.ExpectedCycles > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Expected Cycles:      %d\n", r.ExpectedCycles)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)

		if r.CacheHits > 0 || r.CacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Decode Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.CacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.CacheMisses)
		}

		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,expected_cycles,instructions,cpi,cache_hits,cache_misses,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%.3f,%d,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.ExpectedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.CacheHits,
			r.CacheMisses,
			r.Passed,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// DecodeCacheEnabled records the harness configuration
	DecodeCacheEnabled bool `json:"decode_cache_enabled"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks that passed
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize computes aggregate statistics over results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if r.Passed {
			summary.Passed++
		}
	}
	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}
	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:          time.Now().UTC().Format(time.RFC3339),
			DecodeCacheEnabled: h.config.EnableDecodeCache,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
