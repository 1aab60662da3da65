// Package x64 describes the x86-64 target: its opcodes, register classes
// and the descriptor registry that tells the allocator and the spiller how
// each opcode constrains its operands.
package x64

import "github.com/raymyers/ralph-ra/pkg/machine"

// Target opcodes. Suffixes follow the operand shape: r register, m memory,
// i immediate, with the operand width where it is ambiguous.
const (
	MOVSDrm64 machine.Opcode = machine.FirstTargetOpcode + iota
	MOVSDmr
	MOVSDrm
	MOVSDrr
	MOVrm32
	MOVmr32
	MOVmi32
	MOVmr64
	MOVmi64
	MOVSXDr64m32
	LEAr64m
	ADDrr32
	ADDrr64
	ADDri32
	ADDr64i32
	ADDSDrr
	ADDSDrm
	SUBrr32
	SUBri32
	SUBr64i32
	SUBSDrr
	SUBSDrm
	IMULrr32
	IMULrri32
	IMULrr64i32
	MULSDrr
	MULSDrm
	CDQ
	IDIV
	DIVSDrr
	DIVSDrm
	SHLr64i8
	SHLr32i8
	SQRTSDrr
	MOVrr32
	MOVri32
	MOVrr64
	MOVri64
	MOVrm64
	PUSH64
	POP64
	RET
	CALL
	SETEr8
	SETLEr8
	SETLr8
	CMPrr32
	CMPri32
	UCOMISDrr
	JE
	JBE
	JB
	JLE
	JL
	JA
	JAE
	JG
	JGE
	JMP

	lastOpcode
)

var opcodeNames = [...]string{
	MOVSDrm64 - machine.FirstTargetOpcode:    "MOVSDrm64",
	MOVSDmr - machine.FirstTargetOpcode:      "MOVSDmr",
	MOVSDrm - machine.FirstTargetOpcode:      "MOVSDrm",
	MOVSDrr - machine.FirstTargetOpcode:      "MOVSDrr",
	MOVrm32 - machine.FirstTargetOpcode:      "MOVrm32",
	MOVmr32 - machine.FirstTargetOpcode:      "MOVmr32",
	MOVmi32 - machine.FirstTargetOpcode:      "MOVmi32",
	MOVmr64 - machine.FirstTargetOpcode:      "MOVmr64",
	MOVmi64 - machine.FirstTargetOpcode:      "MOVmi64",
	MOVSXDr64m32 - machine.FirstTargetOpcode: "MOVSXDr64m32",
	LEAr64m - machine.FirstTargetOpcode:      "LEAr64m",
	ADDrr32 - machine.FirstTargetOpcode:      "ADDrr32",
	ADDrr64 - machine.FirstTargetOpcode:      "ADDrr64",
	ADDri32 - machine.FirstTargetOpcode:      "ADDri32",
	ADDr64i32 - machine.FirstTargetOpcode:    "ADDr64i32",
	ADDSDrr - machine.FirstTargetOpcode:      "ADDSDrr",
	ADDSDrm - machine.FirstTargetOpcode:      "ADDSDrm",
	SUBrr32 - machine.FirstTargetOpcode:      "SUBrr32",
	SUBri32 - machine.FirstTargetOpcode:      "SUBri32",
	SUBr64i32 - machine.FirstTargetOpcode:    "SUBr64i32",
	SUBSDrr - machine.FirstTargetOpcode:      "SUBSDrr",
	SUBSDrm - machine.FirstTargetOpcode:      "SUBSDrm",
	IMULrr32 - machine.FirstTargetOpcode:     "IMULrr32",
	IMULrri32 - machine.FirstTargetOpcode:    "IMULrri32",
	IMULrr64i32 - machine.FirstTargetOpcode:  "IMULrr64i32",
	MULSDrr - machine.FirstTargetOpcode:      "MULSDrr",
	MULSDrm - machine.FirstTargetOpcode:      "MULSDrm",
	CDQ - machine.FirstTargetOpcode:          "CDQ",
	IDIV - machine.FirstTargetOpcode:         "IDIV",
	DIVSDrr - machine.FirstTargetOpcode:      "DIVSDrr",
	DIVSDrm - machine.FirstTargetOpcode:      "DIVSDrm",
	SHLr64i8 - machine.FirstTargetOpcode:     "SHLr64i8",
	SHLr32i8 - machine.FirstTargetOpcode:     "SHLr32i8",
	SQRTSDrr - machine.FirstTargetOpcode:     "SQRTSDrr",
	MOVrr32 - machine.FirstTargetOpcode:      "MOVrr32",
	MOVri32 - machine.FirstTargetOpcode:      "MOVri32",
	MOVrr64 - machine.FirstTargetOpcode:      "MOVrr64",
	MOVri64 - machine.FirstTargetOpcode:      "MOVri64",
	MOVrm64 - machine.FirstTargetOpcode:      "MOVrm64",
	PUSH64 - machine.FirstTargetOpcode:       "PUSH64",
	POP64 - machine.FirstTargetOpcode:        "POP64",
	RET - machine.FirstTargetOpcode:          "RET",
	CALL - machine.FirstTargetOpcode:         "CALL",
	SETEr8 - machine.FirstTargetOpcode:       "SETEr8",
	SETLEr8 - machine.FirstTargetOpcode:      "SETLEr8",
	SETLr8 - machine.FirstTargetOpcode:       "SETLr8",
	CMPrr32 - machine.FirstTargetOpcode:      "CMPrr32",
	CMPri32 - machine.FirstTargetOpcode:      "CMPri32",
	UCOMISDrr - machine.FirstTargetOpcode:    "UCOMISDrr",
	JE - machine.FirstTargetOpcode:           "JE",
	JBE - machine.FirstTargetOpcode:          "JBE",
	JB - machine.FirstTargetOpcode:           "JB",
	JLE - machine.FirstTargetOpcode:          "JLE",
	JL - machine.FirstTargetOpcode:           "JL",
	JA - machine.FirstTargetOpcode:           "JA",
	JAE - machine.FirstTargetOpcode:          "JAE",
	JG - machine.FirstTargetOpcode:           "JG",
	JGE - machine.FirstTargetOpcode:          "JGE",
	JMP - machine.FirstTargetOpcode:          "JMP",
}

// OpcodeName returns the symbolic name of a target or pseudo opcode
func OpcodeName(op machine.Opcode) string {
	if op.IsPseudo() {
		if name, ok := op.PseudoName(); ok {
			return name
		}
		return "invalid"
	}
	if op >= lastOpcode {
		return "unknown"
	}
	return opcodeNames[op-machine.FirstTargetOpcode]
}

// ParseOpcode accepts either a target opcode name ("ADDrr32") or a
// pseudo opcode name ("copy")
func ParseOpcode(name string) (machine.Opcode, bool) {
	for k, n := range opcodeNames {
		if n == name {
			return machine.FirstTargetOpcode + machine.Opcode(k), true
		}
	}
	return machine.ParsePseudo(name)
}
