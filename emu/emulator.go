// Package emu provides cycle-accurate MCS-48 emulation of the KLR
// controller.
package emu

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/klrsim/insts"
	"github.com/sarchlab/klrsim/loader"
	"github.com/sarchlab/klrsim/timing/cache"
	"github.com/sarchlab/klrsim/timing/latency"
)

// StepResult represents the result of a single step.
type StepResult struct {
	// Cycles is the number of machine cycles the step took.
	Cycles uint64

	// Interrupt is set when the step entered an interrupt instead of
	// executing an instruction.
	Interrupt IRQState

	// Illegal is set when the step executed an unassigned opcode.
	Illegal *IllegalOpcode

	// Err is set if the step could not execute. No state changes.
	Err error
}

// Emulator executes MCS-48 instructions cycle by cycle.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	timer   *Timer
	intr    *Interrupts
	decoder *insts.Decoder
	io      IOHandler

	// Execution units
	alu    *ALU
	lsu    *LoadStoreUnit
	branch *BranchUnit

	latency     *latency.Table
	decodeCache *cache.DecodeCache
	cacheConfig *cache.Config
	log         logr.Logger

	// Execution state
	romLoaded        bool
	cycles           uint64
	instructionCount uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithIOHandler sets the board the chip talks to.
func WithIOHandler(io IOHandler) EmulatorOption {
	return func(e *Emulator) {
		e.io = io
	}
}

// WithLogger sets the logger used for diagnostics. Illegal opcodes and
// interrupt entries are logged at V(1).
func WithLogger(log logr.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.log = log
	}
}

// WithLatencyTable sets the timing model.
func WithLatencyTable(table *latency.Table) EmulatorOption {
	return func(e *Emulator) {
		e.latency = table
	}
}

// WithDecodeCache fetches instructions through a predecode cache with
// the given configuration.
func WithDecodeCache(config cache.Config) EmulatorOption {
	return func(e *Emulator) {
		e.cacheConfig = &config
	}
}

// NewEmulator creates a new emulator in its power-up state. A ROM must be
// loaded before it can step.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	memory := NewMemory()
	regFile := NewRegFile(memory)

	e := &Emulator{
		regFile: regFile,
		memory:  memory,
		timer:   &Timer{},
		intr:    &Interrupts{},
		decoder: insts.NewDecoder(),
		io:      NopIO{},
		latency: latency.NewTable(),
		log:     logr.Discard(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(regFile)
	e.lsu = NewLoadStoreUnit(regFile, memory, e.timer, e.io)
	e.branch = NewBranchUnit(regFile, memory)

	if e.cacheConfig != nil {
		e.decodeCache = cache.New(*e.cacheConfig, e.decoder,
			cache.NewProgramBacking(memory.ROM()))
	}

	e.Reset()

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Timer returns the timer/counter unit.
func (e *Emulator) Timer() *Timer {
	return e.timer
}

// Interrupts returns the interrupt controller state.
func (e *Emulator) Interrupts() *Interrupts {
	return e.intr
}

// Latency returns the timing model.
func (e *Emulator) Latency() *latency.Table {
	return e.latency
}

// DecodeCache returns the predecode cache, or nil when disabled.
func (e *Emulator) DecodeCache() *cache.DecodeCache {
	return e.decodeCache
}

// Cycles returns the master cycle count.
func (e *Emulator) Cycles() uint64 {
	return e.cycles
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadROM copies a program image into the program store and resets.
func (e *Emulator) LoadROM(img *loader.Image) {
	e.memory.LoadROM(img.Data[:])
	e.romLoaded = true
	if e.decodeCache != nil {
		e.decodeCache.Reset()
	}
	e.Reset()
}

// LoadProgram loads a raw program image of exactly loader.ROMSize bytes.
func (e *Emulator) LoadProgram(data []byte) error {
	img, err := loader.FromBytes(data)
	if err != nil {
		return err
	}
	e.LoadROM(img)
	return nil
}

// Reset puts the chip in its power-up state. The data store is cleared,
// both ports are driven to 0xFF and the cycle count restarts at 0. The
// program store is kept.
func (e *Emulator) Reset() {
	e.regFile.reset()
	e.memory.ClearRAM()
	*e.timer = Timer{}
	*e.intr = Interrupts{}
	e.cycles = 0
	e.instructionCount = 0

	e.writePort(1, 0xFF)
	e.writePort(2, 0xFF)
}

// TriggerExternalInterrupt asserts /INT. The request is latched until the
// interrupt is taken, and JNI sees the pin low for the configured pulse
// width.
func (e *Emulator) TriggerExternalInterrupt() {
	e.intr.ExternalPending = true
	e.intr.Pulse = e.latency.IntPulseCycles()
}

// RunCycles runs whole steps until at least n cycles have elapsed and
// returns the cycles actually run. An instruction is never split, so the
// count can exceed n by one instruction.
func (e *Emulator) RunCycles(n uint64) (uint64, error) {
	start := e.cycles
	target := start + n

	for e.cycles < target {
		result := e.Step()
		if result.Err != nil {
			return e.cycles - start, result.Err
		}
	}

	return e.cycles - start, nil
}

// Step takes a pending interrupt or executes a single instruction.
func (e *Emulator) Step() StepResult {
	if !e.romLoaded {
		return StepResult{Err: ErrNoROM}
	}

	if irq := e.intr.Pending(e.timer); irq != IRQNone {
		cycles := e.enterInterrupt(irq)
		e.account(cycles)
		return StepResult{Cycles: cycles, Interrupt: irq}
	}

	pc := e.regFile.PC
	addr := pc & e.pcMask()
	inst := e.fetch(addr)
	e.regFile.PC = (addr + 1) & e.pcMask()
	e.intr.poll = jniPoll{}

	result := e.execute(inst, addr)
	if result.Err != nil {
		e.regFile.PC = pc
		return result
	}

	result.Cycles = e.latency.GetLatency(inst)
	e.account(result.Cycles)
	e.instructionCount++

	return result
}

// pcMask limits program addresses to 11 bits while an interrupt is
// being serviced.
func (e *Emulator) pcMask() uint16 {
	if e.intr.InProgress != IRQNone {
		return 0x7FF
	}
	return 0xFFF
}

func (e *Emulator) fetch(addr uint16) *insts.Instruction {
	if e.decodeCache != nil {
		return e.decodeCache.Lookup(addr).Inst
	}
	return e.decoder.Decode(e.memory.ReadROM(addr))
}

// fetchOperand reads the byte at PC and advances PC.
func (e *Emulator) fetchOperand() uint8 {
	mask := e.pcMask()
	b := e.memory.ReadROM(e.regFile.PC & mask)
	e.regFile.PC = (e.regFile.PC + 1) & mask
	return b
}

// account advances the timer, the /INT pulse and the master clock.
func (e *Emulator) account(cycles uint64) {
	t1 := e.timer.Mode == CounterRunning && e.io.ReadT1()
	e.timer.Advance(cycles, t1, e.intr.TimerEnabled)
	e.intr.elapse(cycles)
	e.cycles += cycles
}

func (e *Emulator) enterInterrupt(irq IRQState) uint64 {
	r := e.regFile
	ret := r.PC
	vector := TimerVector

	if irq == IRQExternal {
		e.intr.ExternalPending = false
		vector = ExternalVector
		// A JNI that polled /INT inactive right before the interrupt
		// resumes at its branch target.
		if e.intr.poll.valid {
			ret = e.intr.poll.target
		}
	} else {
		e.timer.Overflow = false
	}
	e.intr.poll = jniPoll{}

	e.branch.Push(ret)
	e.intr.InProgress = irq
	r.A11Shadow = r.A11
	r.A11 = 0
	r.PC = vector

	e.log.V(1).Info("interrupt taken",
		"source", irq.String(), "return", ret, "cycle", e.cycles)

	return e.latency.InterruptLatency()
}

// execute dispatches and executes a decoded instruction. PC points past
// the opcode on entry.
func (e *Emulator) execute(inst *insts.Instruction, addr uint16) StepResult {
	r := e.regFile

	switch inst.Op {
	case insts.OpIllegal:
		illegal := &IllegalOpcode{Opcode: inst.Opcode, Addr: addr}
		e.log.V(1).Info("illegal opcode", "opcode", inst.Opcode, "addr", addr)
		return StepResult{Illegal: illegal}
	case insts.OpUnsupported:
		return StepResult{Err: &UnsupportedError{
			Opcode:   inst.Opcode,
			Addr:     addr,
			Mnemonic: inst.String(),
		}}
	}

	// Operand byte; operandAddr is where it was fetched from.
	var imm uint8
	operandAddr := r.PC
	if inst.HasOperandByte() {
		imm = e.fetchOperand()
	}

	switch inst.Op {
	case insts.OpNOP:
	case insts.OpADD:
		e.alu.ADD(e.lsu.Load(inst.Src, inst, imm))
	case insts.OpADDC:
		e.alu.ADDC(e.lsu.Load(inst.Src, inst, imm))
	case insts.OpANL, insts.OpORL, insts.OpXRL:
		e.executeLogic(inst, imm)
	case insts.OpINC:
		e.lsu.Store(inst.Dst, inst, e.lsu.Load(inst.Dst, inst, 0)+1)
	case insts.OpDEC:
		e.lsu.Store(inst.Dst, inst, e.lsu.Load(inst.Dst, inst, 0)-1)
	case insts.OpCLR, insts.OpCPL:
		e.executeFlagOp(inst)
	case insts.OpSWAP:
		e.alu.SWAP()
	case insts.OpDA:
		e.alu.DA()
	case insts.OpRL:
		e.alu.RL()
	case insts.OpRLC:
		e.alu.RLC()
	case insts.OpRR:
		e.alu.RR()
	case insts.OpRRC:
		e.alu.RRC()
	case insts.OpMOV:
		e.lsu.MOV(inst, imm)
	case insts.OpXCH:
		e.lsu.XCH(inst)
	case insts.OpXCHD:
		e.lsu.XCHD(inst)
	case insts.OpMOVX:
		e.lsu.MOVX(inst)
	case insts.OpMOVP:
		e.lsu.MOVP(r.PC)
	case insts.OpMOVP3:
		e.lsu.MOVP3()
	case insts.OpOUTL:
		e.writePort(inst.Port, r.A)
	case insts.OpJMP, insts.OpJMPP, insts.OpCALL, insts.OpRET, insts.OpRETR,
		insts.OpJcc, insts.OpDJNZ:
		e.executeBranch(inst, imm, operandAddr)
	case insts.OpEN, insts.OpDIS, insts.OpSTRT, insts.OpSTOP, insts.OpSEL:
		e.executeControl(inst)
	}

	return StepResult{}
}

func (e *Emulator) executeLogic(inst *insts.Instruction, imm uint8) {
	if inst.Dst == insts.OperandPort {
		v := e.readPort(inst.Port)
		if inst.Op == insts.OpORL {
			v |= imm
		} else {
			v &= imm
		}
		e.writePort(inst.Port, v)
		return
	}

	v := e.lsu.Load(inst.Src, inst, imm)
	switch inst.Op {
	case insts.OpANL:
		e.alu.ANL(v)
	case insts.OpORL:
		e.alu.ORL(v)
	case insts.OpXRL:
		e.alu.XRL(v)
	}
}

func (e *Emulator) executeFlagOp(inst *insts.Instruction) {
	r := e.regFile
	clr := inst.Op == insts.OpCLR

	switch inst.Dst {
	case insts.OperandA:
		if clr {
			r.A = 0
		} else {
			r.A = ^r.A
		}
	case insts.OperandC:
		r.C = !clr && !r.C
	case insts.OperandF0:
		r.F0 = !clr && !r.F0
	case insts.OperandF1:
		r.F1 = !clr && !r.F1
	}
}

func (e *Emulator) executeBranch(inst *insts.Instruction, imm uint8, operandAddr uint16) {
	r := e.regFile

	switch inst.Op {
	case insts.OpJMP:
		e.branch.Jump(r.A11 | inst.Page | uint16(imm))
	case insts.OpCALL:
		e.branch.Call(r.A11|inst.Page|uint16(imm), r.PC)
	case insts.OpJMPP:
		page := r.PC & 0xF00
		e.branch.Jump(page | uint16(e.memory.ReadROM(page|uint16(r.A))))
	case insts.OpRET:
		e.branch.Ret()
	case insts.OpRETR:
		e.branch.Retr()
		r.A11 = r.A11Shadow
		e.intr.InProgress = IRQNone
	case insts.OpDJNZ:
		v := r.ReadReg(inst.Reg) - 1
		r.WriteReg(inst.Reg, v)
		if v != 0 {
			e.branch.Jump(PageTarget(operandAddr, imm))
		}
	case insts.OpJcc:
		target := PageTarget(operandAddr, imm)
		if e.condition(inst) {
			e.branch.Jump(target)
		} else if inst.Cond == insts.CondNI {
			e.intr.poll = jniPoll{valid: true, target: target}
		}
	}
}

func (e *Emulator) condition(inst *insts.Instruction) bool {
	r := e.regFile

	switch inst.Cond {
	case insts.CondBit:
		return r.A&(1<<inst.Bit) != 0
	case insts.CondC:
		return r.C
	case insts.CondNC:
		return !r.C
	case insts.CondZ:
		return r.A == 0
	case insts.CondNZ:
		return r.A != 0
	case insts.CondT0:
		return e.io.ReadT0()
	case insts.CondNT0:
		return !e.io.ReadT0()
	case insts.CondT1:
		return e.io.ReadT1()
	case insts.CondNT1:
		return !e.io.ReadT1()
	case insts.CondF0:
		return r.F0
	case insts.CondF1:
		return r.F1
	case insts.CondTF:
		return e.timer.TestAndClearFlag()
	case insts.CondNI:
		return e.intr.IntLow()
	default:
		return false
	}
}

func (e *Emulator) executeControl(inst *insts.Instruction) {
	r := e.regFile
	enable := inst.Op == insts.OpEN

	switch inst.Op {
	case insts.OpEN, insts.OpDIS:
		if inst.Dst == insts.OperandI {
			e.intr.ExternalEnabled = enable
			return
		}
		e.intr.TimerEnabled = enable
		if !enable {
			e.timer.Overflow = false
		}
	case insts.OpSTRT:
		if inst.Dst == insts.OperandCNT {
			e.timer.StartCounter(e.io.ReadT1())
		} else {
			e.timer.Start()
		}
	case insts.OpSTOP:
		e.timer.Stop()
	case insts.OpSEL:
		if inst.Dst == insts.OperandRB {
			r.BS = inst.Bit == 1
			return
		}
		switch {
		case inst.Bit == 0:
			r.A11 = 0
			r.A11Shadow = 0
		case e.intr.InProgress != IRQNone:
			r.A11Shadow = BankBit
		default:
			r.A11 = BankBit
			r.A11Shadow = BankBit
		}
	}
}
