// Package insts provides MCS-48 instruction definitions and decoding.
//
// Every one of the 256 opcode values maps to a descriptor naming the
// operation, its operand shape, its length in bytes and its cost in
// machine cycles. Opcodes the chip does not define decode to OpIllegal.
// Opcodes the chip defines but this system does not model (bus writes,
// the 8243 port expander, port reads) decode to OpUnsupported.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x68) // ADD A,R0
//	fmt.Printf("Op: %v, Reg: %d, Cycles: %d\n", inst.Op, inst.Reg, inst.Cycles)
package insts

import "fmt"

// Op represents an MCS-48 operation kind.
type Op uint8

// MCS-48 operations.
const (
	OpIllegal Op = iota
	OpUnsupported
	OpNOP
	OpADD
	OpADDC
	OpANL
	OpORL
	OpXRL
	OpINC
	OpDEC
	OpCLR
	OpCPL
	OpSWAP
	OpDA
	OpRL
	OpRLC
	OpRR
	OpRRC
	OpMOV
	OpXCH
	OpXCHD
	OpMOVX
	OpMOVP
	OpMOVP3
	OpJMP
	OpJMPP
	OpCALL
	OpRET
	OpRETR
	OpJcc
	OpDJNZ
	OpEN
	OpDIS
	OpSTRT
	OpSTOP
	OpSEL
	OpOUTL
)

var opNames = [...]string{
	OpIllegal:     "ILL",
	OpUnsupported: "UNSUP",
	OpNOP:         "NOP",
	OpADD:         "ADD",
	OpADDC:        "ADDC",
	OpANL:         "ANL",
	OpORL:         "ORL",
	OpXRL:         "XRL",
	OpINC:         "INC",
	OpDEC:         "DEC",
	OpCLR:         "CLR",
	OpCPL:         "CPL",
	OpSWAP:        "SWAP",
	OpDA:          "DA",
	OpRL:          "RL",
	OpRLC:         "RLC",
	OpRR:          "RR",
	OpRRC:         "RRC",
	OpMOV:         "MOV",
	OpXCH:         "XCH",
	OpXCHD:        "XCHD",
	OpMOVX:        "MOVX",
	OpMOVP:        "MOVP",
	OpMOVP3:       "MOVP3",
	OpJMP:         "JMP",
	OpJMPP:        "JMPP",
	OpCALL:        "CALL",
	OpRET:         "RET",
	OpRETR:        "RETR",
	OpJcc:         "J",
	OpDJNZ:        "DJNZ",
	OpEN:          "EN",
	OpDIS:         "DIS",
	OpSTRT:        "STRT",
	OpSTOP:        "STOP",
	OpSEL:         "SEL",
	OpOUTL:        "OUTL",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Operand describes where an instruction reads or writes its data.
type Operand uint8

// Operand shapes.
const (
	OperandNone     Operand = iota
	OperandA                // Accumulator
	OperandReg              // Rr of the selected bank
	OperandIndirect         // @Ri, data store addressed by R0/R1
	OperandExternal         // @Ri, external memory addressed by R0/R1
	OperandImm              // #data, the byte following the opcode
	OperandT                // Timer/counter register
	OperandPSW              // Program status word
	OperandPort             // P1 or P2
	OperandC                // Carry flag
	OperandF0               // User flag 0
	OperandF1               // User flag 1
	OperandI                // External interrupt source
	OperandTCNTI            // Timer/counter interrupt source
	OperandCNT              // Event counter mode
	OperandRB               // Register bank select
	OperandMB               // Program memory bank select
	OperandAtA              // @A, page-relative program memory
)

// Cond represents the condition tested by a conditional jump.
type Cond uint8

// Conditional jump conditions.
const (
	CondBit Cond = iota // Accumulator bit set (JBb)
	CondC               // Carry set
	CondNC              // Carry clear
	CondZ               // Accumulator zero
	CondNZ              // Accumulator non-zero
	CondT0              // T0 input high
	CondNT0             // T0 input low
	CondT1              // T1 input high
	CondNT1             // T1 input low
	CondF0              // F0 set
	CondF1              // F1 set
	CondTF              // Timer flag set, flag cleared by the test
	CondNI              // /INT asserted
)

var condNames = [...]string{
	CondBit: "JB",
	CondC:   "JC",
	CondNC:  "JNC",
	CondZ:   "JZ",
	CondNZ:  "JNZ",
	CondT0:  "JT0",
	CondNT0: "JNT0",
	CondT1:  "JT1",
	CondNT1: "JNT1",
	CondF0:  "JF0",
	CondF1:  "JF1",
	CondTF:  "JTF",
	CondNI:  "JNI",
}

// Instruction is the decoded descriptor of one opcode.
type Instruction struct {
	Opcode uint8 // Raw opcode byte
	Op     Op    // Operation kind
	Dst    Operand
	Src    Operand

	Reg  uint8  // Register index for OperandReg (0-7) and @Ri (0-1)
	Bit  uint8  // Accumulator bit for JBb, bank number for SEL
	Page uint16 // Page bits (0x000-0x700) for JMP and CALL
	Port uint8  // Port number for OperandPort
	Cond Cond   // Condition for OpJcc

	Cycles uint8 // Machine cycles, 1 or 2
	Size   uint8 // Length in bytes, 1 or 2
}

// HasOperandByte reports whether the instruction is followed by an
// immediate or address byte.
func (i *Instruction) HasOperandByte() bool {
	return i.Size == 2
}

// String returns the instruction mnemonic without its operand byte.
func (i *Instruction) String() string {
	switch i.Op {
	case OpIllegal:
		return "ILL"
	case OpUnsupported:
		return unsupportedNames[i.Opcode]
	case OpJcc:
		if i.Cond == CondBit {
			return fmt.Sprintf("JB%d", i.Bit)
		}
		return condNames[i.Cond]
	case OpSEL:
		return fmt.Sprintf("SEL %s%d", operandText(i.Dst, i), i.Bit)
	case OpSTOP:
		return "STOP TCNT"
	}

	dst := operandText(i.Dst, i)
	src := operandText(i.Src, i)
	switch {
	case dst != "" && src != "":
		return fmt.Sprintf("%s %s,%s", i.Op, dst, src)
	case dst != "":
		return fmt.Sprintf("%s %s", i.Op, dst)
	case src != "":
		return fmt.Sprintf("%s %s", i.Op, src)
	default:
		return i.Op.String()
	}
}

func operandText(o Operand, i *Instruction) string {
	switch o {
	case OperandA:
		return "A"
	case OperandReg:
		return fmt.Sprintf("R%d", i.Reg)
	case OperandIndirect, OperandExternal:
		return fmt.Sprintf("@R%d", i.Reg)
	case OperandImm:
		return "#"
	case OperandT:
		return "T"
	case OperandPSW:
		return "PSW"
	case OperandPort:
		return fmt.Sprintf("P%d", i.Port)
	case OperandC:
		return "C"
	case OperandF0:
		return "F0"
	case OperandF1:
		return "F1"
	case OperandI:
		return "I"
	case OperandTCNTI:
		return "TCNTI"
	case OperandCNT:
		return "CNT"
	case OperandRB:
		return "RB"
	case OperandMB:
		return "MB"
	case OperandAtA:
		return "@A"
	default:
		return ""
	}
}

var unsupportedNames = map[uint8]string{
	0x02: "OUTL BUS,A",
	0x08: "INS A,BUS",
	0x09: "IN A,P1",
	0x0A: "IN A,P2",
	0x0C: "MOVD A,P4",
	0x0D: "MOVD A,P5",
	0x0E: "MOVD A,P6",
	0x0F: "MOVD A,P7",
	0x3C: "MOVD P4,A",
	0x3D: "MOVD P5,A",
	0x3E: "MOVD P6,A",
	0x3F: "MOVD P7,A",
	0x75: "ENT0 CLK",
	0x88: "ORL BUS,#",
	0x8C: "ORLD P4,A",
	0x8D: "ORLD P5,A",
	0x8E: "ORLD P6,A",
	0x8F: "ORLD P7,A",
	0x90: "MOVX @R0,A",
	0x91: "MOVX @R1,A",
	0x98: "ANL BUS,#",
	0x9C: "ANLD P4,A",
	0x9D: "ANLD P5,A",
	0x9E: "ANLD P6,A",
	0x9F: "ANLD P7,A",
}
