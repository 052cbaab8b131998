package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/klrsim/loader"
)

type runCmd struct {
	ROM      string        `arg:"" type:"existingfile" help:"4096-byte program image."`
	External string        `name:"external" type:"existingfile" help:"External data memory image (up to 256 bytes)."`
	Duration time.Duration `name:"duration" default:"1s" help:"Simulated time to run."`
	Step     time.Duration `name:"step" default:"10ms" help:"Simulated time per scheduler step."`
	Throttle float64       `name:"throttle" default:"0.5" help:"Throttle position, 0 to 1."`
	RPM      float64       `name:"rpm" help:"Hold the engine at this speed instead of using the car model."`
	Format   string        `name:"format" enum:"text,json,yaml" default:"text" help:"Report format (text, json, yaml)."`
}

func (r *runCmd) Run(g *Globals) error {
	if r.Step <= 0 {
		return fmt.Errorf("--step must be positive")
	}

	config, err := g.crankConfig()
	if err != nil {
		return err
	}

	img, err := loader.Load(r.ROM)
	if err != nil {
		return err
	}

	s, err := newSession(sessionOptions{
		ROM:      img,
		External: r.External,
		RPM:      r.RPM,
		Config:   config,
		Log:      g.logger(),
	})
	if err != nil {
		return err
	}

	start := time.Now()
	runErr := s.advance(r.Duration.Seconds(), r.Step.Seconds(), r.Throttle)
	rep := s.report(r.ROM, time.Since(start))

	if err := writeReport(os.Stdout, rep, r.Format); err != nil {
		return err
	}
	return runErr
}

func writeReport(w io.Writer, rep report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rep)
	default:
		rep.print(w, terminalWidth())
		return nil
	}
}
