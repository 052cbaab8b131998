package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/klrsim/loader"
	"github.com/sarchlab/klrsim/timing/crank"
)

type sweepCmd struct {
	ROM      string    `arg:"" type:"existingfile" help:"4096-byte program image."`
	External string    `name:"external" type:"existingfile" help:"External data memory image (up to 256 bytes)."`
	RPM      []float64 `name:"rpm" sep:"," default:"1000,2000,3000,4000,5000,6000" help:"Engine speeds to run."`
	Duration float64   `name:"duration" default:"1" help:"Simulated seconds per speed."`
	Step     float64   `name:"step" default:"0.01" help:"Simulated seconds per scheduler step."`
	Jobs     int       `name:"jobs" short:"j" help:"Sessions to run at once (default: number of CPUs)."`
}

// sweepResult is one row of the sweep table.
type sweepResult struct {
	RPM          float64
	Cycles       uint64
	Instructions uint64
	Resets       int
	P1, P2       uint8
}

func (c *sweepCmd) Run(g *Globals) error {
	if c.Step <= 0 {
		return fmt.Errorf("--step must be positive")
	}

	config, err := g.crankConfig()
	if err != nil {
		return err
	}

	img, err := loader.Load(c.ROM)
	if err != nil {
		return err
	}

	results, err := sweep(context.Background(), c, img, config, g)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "RPM\tCYCLES\tINSTRUCTIONS\tRESETS\tP1\tP2")
	for _, r := range results {
		fmt.Fprintf(tw, "%.0f\t%d\t%d\t%d\t%02X\t%02X\n",
			r.RPM, r.Cycles, r.Instructions, r.Resets, r.P1, r.P2)
	}
	return tw.Flush()
}

// sweep runs one independent session per speed. Results keep the order
// of c.RPM.
func sweep(
	ctx context.Context,
	c *sweepCmd,
	img *loader.Image,
	config *crank.Config,
	g *Globals,
) ([]sweepResult, error) {
	results := make([]sweepResult, len(c.RPM))

	eg, ctx := errgroup.WithContext(ctx)
	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	eg.SetLimit(jobs)

	for i, rpm := range c.RPM {
		eg.Go(func() error {
			if rpm <= 0 {
				return fmt.Errorf("sweep speed %.0f rpm must be positive", rpm)
			}

			s, err := newSession(sessionOptions{
				ROM:      img,
				External: c.External,
				RPM:      rpm,
				Config:   config.Clone(),
				Log:      g.logger().WithValues("rpm", rpm),
			})
			if err != nil {
				return err
			}

			for elapsed := 0.0; elapsed < c.Duration; elapsed += c.Step {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := s.scheduler.Advance(min(c.Step, c.Duration-elapsed), 0); err != nil {
					return fmt.Errorf("%.0f rpm: %w", rpm, err)
				}
			}

			state := s.emu.Snapshot()
			results[i] = sweepResult{
				RPM:          rpm,
				Cycles:       state.Cycles,
				Instructions: state.Instructions,
				Resets:       s.signals[crank.SignalReset],
				P1:           state.P1,
				P2:           state.P2,
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
