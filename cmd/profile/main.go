// Package main provides a profiling wrapper for klrsim to identify performance bottlenecks.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/klrsim/emu"
	"github.com/sarchlab/klrsim/engine"
	"github.com/sarchlab/klrsim/loader"
	"github.com/sarchlab/klrsim/timing/cache"
	"github.com/sarchlab/klrsim/timing/crank"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	simulated  = flag.Duration("simulated", 10*time.Second, "simulated time to run")
	step       = flag.Duration("step", 10*time.Millisecond, "simulated time per scheduler step")
	rpm        = flag.Float64("rpm", 3000, "engine speed")
	chipOnly   = flag.Bool("chip-only", false, "run the chip without the crank scheduler")
	noCache    = flag.Bool("no-cache", false, "disable the predecode cache")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <rom.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	romPath := flag.Arg(0)

	img, err := loader.Load(romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ROM: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", romPath)

	h := crank.NewHarness(nil)
	opts := []emu.EmulatorOption{emu.WithIOHandler(h)}
	if !*noCache {
		opts = append(opts, emu.WithDecodeCache(cache.DefaultConfig()))
	}
	e := emu.NewEmulator(opts...)
	e.LoadROM(img)

	start := time.Now()

	if *chipOnly {
		err = runChip(e)
	} else {
		err = runScheduled(e, h)
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running ROM: %v\n", err)
	}

	instrCount := e.InstructionCount()
	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Cycles: %d (%.3f s simulated)\n", e.Cycles(), e.Latency().Seconds(e.Cycles()))
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
		fmt.Printf("Real-time factor: %.1fx\n", e.Latency().Seconds(e.Cycles())/elapsed.Seconds())
	}
	if c := e.DecodeCache(); c != nil {
		stats := c.Stats()
		fmt.Printf("Decode cache hit rate: %.1f%% (%d evictions)\n", 100*stats.HitRate(), stats.Evictions)
	}
}

// runChip runs the chip alone for the simulated duration.
func runChip(e *emu.Emulator) error {
	cycles := uint64(simulated.Seconds() * e.Latency().CyclesPerSecond())
	_, err := e.RunCycles(cycles)
	return err
}

// runScheduled runs the chip under the crank scheduler at a fixed speed.
func runScheduled(e *emu.Emulator, h *crank.Harness) error {
	s, err := crank.NewScheduler(e, h, engine.NewFixedRPM(*rpm), nil)
	if err != nil {
		return err
	}

	total := simulated.Seconds()
	dt := step.Seconds()
	for elapsed := 0.0; elapsed < total; elapsed += dt {
		if _, err := s.Advance(min(dt, total-elapsed), 0); err != nil {
			return err
		}
	}
	return nil
}
