package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/sarchlab/klrsim/insts"
	"github.com/sarchlab/klrsim/loader"
	"github.com/sarchlab/klrsim/timing/crank"
)

type scriptCmd struct {
	ROM      string  `arg:"" type:"existingfile" help:"4096-byte program image."`
	Script   string  `arg:"" type:"existingfile" help:"Lua script driving the session."`
	External string  `name:"external" type:"existingfile" help:"External data memory image (up to 256 bytes)."`
	RPM      float64 `name:"rpm" help:"Hold the engine at this speed instead of using the car model."`
}

func (c *scriptCmd) Run(g *Globals) error {
	config, err := g.crankConfig()
	if err != nil {
		return err
	}

	img, err := loader.Load(c.ROM)
	if err != nil {
		return err
	}

	env := newScriptEnv(os.Stdout)
	defer env.close()

	s, err := newSession(sessionOptions{
		ROM:      img,
		External: c.External,
		RPM:      c.RPM,
		Config:   config,
		Log:      g.logger(),
		OnEvent:  env.onEvent,
	})
	if err != nil {
		return err
	}
	env.attach(s)

	if err := env.L.DoFile(c.Script); err != nil {
		return fmt.Errorf("script %s: %w", c.Script, err)
	}
	return nil
}

// scriptEnv is a Lua state bound to one session.
//
// Globals:
//
//	advance(dt [, throttle])  run dt seconds, returns the engine state table
//	run_cycles(n)             run the chip alone, returns cycles run
//	acc() pc() psw() cycles() angle() rpm()
//	reg(n) ram(addr) port(n)
//	set_t0(level) set_t1(level) interrupt() reset()
//	disasm(addr)              returns text, size
//	on_event(fn)              fn(signal, angle, cycle) for every crank event
//	expect(cond [, msg])      fails the script when cond is false
type scriptEnv struct {
	L       *lua.LState
	s       *session
	out     io.Writer
	decoder *insts.Decoder
	handler *lua.LFunction

	// handlerErr holds the first handler failure of the running advance.
	handlerErr error
}

func newScriptEnv(out io.Writer) *scriptEnv {
	env := &scriptEnv{
		L:       lua.NewState(),
		out:     out,
		decoder: insts.NewDecoder(),
	}

	funcs := map[string]lua.LGFunction{
		"print":      env.print,
		"advance":    env.advance,
		"run_cycles": env.runCycles,
		"acc":        env.acc,
		"pc":         env.pc,
		"psw":        env.psw,
		"cycles":     env.cycles,
		"angle":      env.angle,
		"rpm":        env.rpm,
		"reg":        env.reg,
		"ram":        env.ram,
		"port":       env.port,
		"set_t0":     env.setT0,
		"set_t1":     env.setT1,
		"interrupt":  env.interrupt,
		"reset":      env.reset,
		"disasm":     env.disasm,
		"on_event":   env.setHandler,
		"expect":     env.expect,
	}
	for name, fn := range funcs {
		env.L.SetGlobal(name, env.L.NewFunction(fn))
	}

	return env
}

func (env *scriptEnv) attach(s *session) {
	env.s = s
}

func (env *scriptEnv) close() {
	env.L.Close()
}

// onEvent forwards a crank event to the script's handler. A handler
// failure is kept and raised once the advance has finished, so the
// scheduler is never left halfway through a step.
func (env *scriptEnv) onEvent(ev crank.Event) {
	if env.handler == nil || env.handlerErr != nil {
		return
	}

	err := env.L.CallByParam(lua.P{Fn: env.handler, NRet: 0, Protect: true},
		lua.LString(ev.Signal.String()),
		lua.LNumber(ev.Angle),
		lua.LNumber(ev.Cycle))
	if err != nil {
		env.handlerErr = err
	}
}

func (env *scriptEnv) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	fmt.Fprintln(env.out, strings.Join(parts, "\t"))
	return 0
}

func (env *scriptEnv) advance(L *lua.LState) int {
	dt := float64(L.CheckNumber(1))
	throttle := float64(L.OptNumber(2, 0))

	env.handlerErr = nil
	state, err := env.s.scheduler.Advance(dt, throttle)
	if err != nil {
		L.RaiseError("advance: %v", err)
		return 0
	}
	if herr := env.handlerErr; herr != nil {
		env.handlerErr = nil
		L.RaiseError("on_event handler: %v", herr)
		return 0
	}

	t := L.NewTable()
	t.RawSetString("rpm", lua.LNumber(state.RPM))
	t.RawSetString("throttle", lua.LNumber(state.Throttle))
	t.RawSetString("turbo_rpm", lua.LNumber(state.TurboRPM))
	t.RawSetString("manifold_pressure", lua.LNumber(state.ManifoldPressure))
	t.RawSetString("power", lua.LNumber(state.Power))
	t.RawSetString("angle", lua.LNumber(state.CrankAngle))
	t.RawSetString("cycles", lua.LNumber(state.Cycles))
	L.Push(t)
	return 1
}

func (env *scriptEnv) runCycles(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 {
		L.ArgError(1, "cycle count must not be negative")
		return 0
	}

	ran, err := env.s.emu.RunCycles(uint64(n))
	if err != nil {
		L.RaiseError("run_cycles: %v", err)
		return 0
	}
	L.Push(lua.LNumber(ran))
	return 1
}

func (env *scriptEnv) acc(L *lua.LState) int {
	L.Push(lua.LNumber(env.s.emu.RegFile().A))
	return 1
}

func (env *scriptEnv) pc(L *lua.LState) int {
	L.Push(lua.LNumber(env.s.emu.RegFile().PC))
	return 1
}

func (env *scriptEnv) psw(L *lua.LState) int {
	L.Push(lua.LNumber(env.s.emu.RegFile().PSW()))
	return 1
}

func (env *scriptEnv) cycles(L *lua.LState) int {
	L.Push(lua.LNumber(env.s.emu.Cycles()))
	return 1
}

func (env *scriptEnv) angle(L *lua.LState) int {
	L.Push(lua.LNumber(env.s.scheduler.Angle()))
	return 1
}

func (env *scriptEnv) rpm(L *lua.LState) int {
	L.Push(lua.LNumber(env.s.scheduler.State().RPM))
	return 1
}

func (env *scriptEnv) reg(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 || n > 7 {
		L.ArgError(1, "register must be 0-7")
		return 0
	}
	L.Push(lua.LNumber(env.s.emu.RegFile().ReadReg(uint8(n))))
	return 1
}

func (env *scriptEnv) ram(L *lua.LState) int {
	addr := L.CheckInt(1)
	if addr < 0 || addr >= 128 {
		L.ArgError(1, "address must be 0-127")
		return 0
	}
	L.Push(lua.LNumber(env.s.emu.Memory().Read(uint8(addr))))
	return 1
}

func (env *scriptEnv) port(L *lua.LState) int {
	switch L.CheckInt(1) {
	case 1:
		L.Push(lua.LNumber(env.s.emu.RegFile().P1))
	case 2:
		L.Push(lua.LNumber(env.s.emu.RegFile().P2))
	default:
		L.ArgError(1, "port must be 1 or 2")
		return 0
	}
	return 1
}

func (env *scriptEnv) setT0(L *lua.LState) int {
	env.s.harness.SetT0(L.ToBool(1))
	return 0
}

func (env *scriptEnv) setT1(L *lua.LState) int {
	env.s.harness.SetT1(L.ToBool(1))
	return 0
}

func (env *scriptEnv) interrupt(L *lua.LState) int {
	env.s.emu.TriggerExternalInterrupt()
	return 0
}

func (env *scriptEnv) reset(L *lua.LState) int {
	env.s.scheduler.Reset()
	return 0
}

func (env *scriptEnv) disasm(L *lua.LState) int {
	addr := L.CheckInt(1)
	text, size := env.decoder.Disassemble(env.s.emu.Memory().ROM(), uint16(addr))
	L.Push(lua.LString(text))
	L.Push(lua.LNumber(size))
	return 2
}

func (env *scriptEnv) setHandler(L *lua.LState) int {
	if L.Get(1) == lua.LNil {
		env.handler = nil
		return 0
	}
	env.handler = L.CheckFunction(1)
	return 0
}

func (env *scriptEnv) expect(L *lua.LState) int {
	if !L.ToBool(1) {
		L.RaiseError("expectation failed: %s", L.OptString(2, "condition is false"))
	}
	return 0
}
