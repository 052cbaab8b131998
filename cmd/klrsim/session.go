package main

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/klrsim/emu"
	"github.com/sarchlab/klrsim/engine"
	"github.com/sarchlab/klrsim/loader"
	"github.com/sarchlab/klrsim/timing/cache"
	"github.com/sarchlab/klrsim/timing/crank"
	"github.com/sarchlab/klrsim/timing/latency"
	"github.com/sarchlab/klrsim/trace"
)

// sessionOptions describe one simulated board.
type sessionOptions struct {
	ROM      *loader.Image
	External string
	// RPM fixes the engine speed; zero uses the car model.
	RPM    float64
	Config *crank.Config
	Log    logr.Logger
	// OnEvent, if set, sees every crank event.
	OnEvent func(crank.Event)
}

// session is a chip, its board and the engine, wired together.
type session struct {
	emu       *emu.Emulator
	harness   *crank.Harness
	scheduler *crank.Scheduler
	recorder  *trace.Recorder
	// signals counts crank events over the whole session.
	signals [crank.SignalRollover + 1]int
}

func newSession(opts sessionOptions) (*session, error) {
	config := opts.Config
	if config == nil {
		config = crank.DefaultConfig()
	}

	recorder := trace.NewRecorder(crank.ChannelP1, crank.ChannelP2, crank.ChannelT0, crank.ChannelT1)
	h := crank.NewHarness(recorder)
	if opts.External != "" {
		if err := h.LoadExternalFile(opts.External); err != nil {
			return nil, err
		}
	}

	e := emu.NewEmulator(
		emu.WithIOHandler(h),
		emu.WithLogger(opts.Log.WithName("emu")),
		emu.WithLatencyTable(latency.NewTableWithConfig(config.Timing)),
		emu.WithDecodeCache(cache.DefaultConfig()),
	)
	e.LoadROM(opts.ROM)

	var provider engine.Provider = engine.NewCar()
	if opts.RPM > 0 {
		provider = engine.NewFixedRPM(opts.RPM)
	}

	sess := &session{emu: e, harness: h, recorder: recorder}
	s, err := crank.NewScheduler(e, h, provider, config,
		crank.WithLogger(opts.Log.WithName("crank")),
		crank.WithEventHandler(func(ev crank.Event) {
			sess.signals[ev.Signal]++
			if opts.OnEvent != nil {
				opts.OnEvent(ev)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	sess.scheduler = s

	return sess, nil
}

// advance runs the session for total seconds in steps of step seconds.
// The last step is shortened to land on total.
func (s *session) advance(total, step, throttle float64) error {
	for elapsed := 0.0; elapsed < total; elapsed += step {
		dt := min(step, total-elapsed)
		if _, err := s.scheduler.Advance(dt, throttle); err != nil {
			return err
		}
	}
	return nil
}
