package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/sarchlab/klrsim/emu"
	"github.com/sarchlab/klrsim/timing/cache"
	"github.com/sarchlab/klrsim/timing/crank"
	"github.com/sarchlab/klrsim/trace"
)

const defaultWidth = 80

// report is the summary printed after a run.
type report struct {
	ROM              string                   `json:"rom" yaml:"rom"`
	Engine           crank.EngineState        `json:"engine" yaml:"engine"`
	Chip             emu.State                `json:"chip" yaml:"chip"`
	SimulatedSeconds float64                  `json:"simulated_seconds" yaml:"simulated_seconds"`
	WallTime         string                   `json:"wall_time" yaml:"wall_time"`
	Signals          map[string]int           `json:"signals" yaml:"signals"`
	Cache            cache.Statistics         `json:"cache" yaml:"cache"`
	Traces           map[string][]trace.Point `json:"traces" yaml:"traces"`

	channels []string
}

func (s *session) report(rom string, wall time.Duration) report {
	rep := report{
		ROM:              rom,
		Engine:           s.scheduler.State(),
		Chip:             s.emu.Snapshot(),
		SimulatedSeconds: s.emu.Latency().Seconds(s.emu.Cycles()),
		WallTime:         wall.String(),
		Signals:          make(map[string]int),
		Traces:           make(map[string][]trace.Point),
		channels:         s.recorder.Names(),
	}

	for sig, n := range s.signals {
		rep.Signals[crank.Signal(sig).String()] = n
	}
	if c := s.emu.DecodeCache(); c != nil {
		rep.Cache = c.Stats()
	}
	for _, name := range rep.channels {
		rep.Traces[name] = s.recorder.Channel(name).Points()
	}

	return rep
}

func (r report) print(w io.Writer, width int) {
	rule := strings.Repeat("-", width)

	fmt.Fprintf(w, "ROM: %s\n", r.ROM)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Engine: %.0f rpm  throttle %.2f  turbo %.0f rpm  MAP %.2f bar  %.1f bhp\n",
		r.Engine.RPM, r.Engine.Throttle, r.Engine.TurboRPM,
		r.Engine.ManifoldPressure, r.Engine.Power)
	fmt.Fprintf(w, "Crank:  %.2f deg\n", r.Engine.CrankAngle)
	fmt.Fprintf(w, "Time:   %.6f s simulated, %s wall\n", r.SimulatedSeconds, r.WallTime)
	fmt.Fprintf(w, "Cycles: %d  Instructions: %d\n", r.Chip.Cycles, r.Chip.Instructions)
	fmt.Fprintln(w, rule)

	c := r.Chip
	fmt.Fprintf(w, "A=%02X PC=%03X PSW=%02X F1=%t P1=%02X P2=%02X\n",
		c.A, c.PC, c.PSW, c.F1, c.P1, c.P2)
	fmt.Fprintf(w, "Bank:")
	for i, v := range c.Registers {
		fmt.Fprintf(w, " R%d=%02X", i, v)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Timer: %s count=%02X  Interrupts: %s\n",
		c.Timer.Mode, c.Timer.Counter, c.Interrupts.InProgress)
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "Signals:")
	for sig := crank.SignalReset; sig <= crank.SignalRollover; sig++ {
		fmt.Fprintf(w, " %s=%d", sig, r.Signals[sig.String()])
	}
	fmt.Fprintln(w)
	if r.Cache.Lookups > 0 {
		fmt.Fprintf(w, "Decode cache: %d lookups, %.1f%% hits\n",
			r.Cache.Lookups, 100*r.Cache.HitRate())
	}
	fmt.Fprintln(w, rule)

	stripWidth := max(width-8, 8)
	for _, name := range r.channels {
		fmt.Fprintf(w, "%-4s %s\n", name, strip(r.Traces[name], r.Chip.Cycles, stripWidth))
	}
}

// strip renders a channel's history up to cycle now as one line: '|'
// marks a sample, '-' a non-zero level and '_' a zero level.
func strip(points []trace.Point, now uint64, width int) string {
	if len(points) == 0 {
		return strings.Repeat(" ", width)
	}

	from := points[0].Cycle
	span := uint64(1)
	if now > from {
		span = now - from
	}

	line := make([]byte, width)
	next := 0
	var level uint8
	for col := range line {
		end := from + span*uint64(col+1)/uint64(width)
		marked := false
		for next < len(points) && points[next].Cycle <= end {
			level = points[next].Value
			next++
			marked = true
		}
		switch {
		case marked:
			line[col] = '|'
		case level != 0:
			line[col] = '-'
		default:
			line[col] = '_'
		}
	}
	return string(line)
}

// terminalWidth returns the width of stdout, or defaultWidth when it is
// not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}
