// Package main provides the klrsim command line.
// klrsim runs 951 KLR controller firmware against a crank-angle driven
// engine model.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/klrsim/timing/crank"
)

// Globals are the flags shared by every command.
type Globals struct {
	Verbose int    `short:"v" type:"counter" help:"Increase log verbosity (repeatable)."`
	Config  string `name:"config" type:"existingfile" help:"Crank and timing configuration (JSON or YAML)."`
}

// crankConfig returns the configuration named by --config, or the
// board defaults.
func (g *Globals) crankConfig() (*crank.Config, error) {
	if g.Config == "" {
		return crank.DefaultConfig(), nil
	}

	config, err := crank.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", g.Config, err)
	}
	return config, nil
}

// logger writes structured diagnostics to stderr.
func (g *Globals) logger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: g.Verbose})
}

func main() {
	var cli struct {
		Globals

		Run    runCmd    `cmd:"" default:"withargs" help:"Run a ROM against the engine model."`
		Sweep  sweepCmd  `cmd:"" help:"Run one session per engine speed in parallel."`
		Script scriptCmd `cmd:"" help:"Drive a session from a Lua script."`
		Disasm disasmCmd `cmd:"" help:"Disassemble a ROM image."`
	}

	ctx := kong.Parse(&cli,
		kong.Name("klrsim"),
		kong.Description("951 KLR ignition and boost controller simulator."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
