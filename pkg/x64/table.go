package x64

import "golang.org/x/arch/x86/x86asm"

var (
	gr32 = Reg(GR32)
	gr64 = Reg(GR64)
	xmm  = Reg(XMM)

	// read-modify-write: the result lands in the first source register
	rmw = []Tie{{Def: 0, Use: 0}}

	callClobbers = []x86asm.Reg{
		x86asm.RAX, x86asm.RCX, x86asm.RDX, x86asm.RSI, x86asm.RDI,
		x86asm.R8, x86asm.R9, x86asm.R10, x86asm.R11,
	}
)

// descriptors returns a fresh copy of the built-in table
func descriptors() []Descriptor {
	return []Descriptor{
		// moves
		{Name: "MOVSDrm64", Opcode: MOVSDrm64, Op: x86asm.MOVSD_XMM, Uses: []Constraint{Mem()}, Defs: []RegClass{XMM}},
		{Name: "MOVSDmr", Opcode: MOVSDmr, Op: x86asm.MOVSD_XMM, Uses: []Constraint{Mem(), xmm}},
		{Name: "MOVSDrm", Opcode: MOVSDrm, Op: x86asm.MOVSD_XMM, Uses: []Constraint{Mem()}, Defs: []RegClass{XMM}},
		{Name: "MOVSDrr", Opcode: MOVSDrr, Op: x86asm.MOVSD_XMM, Uses: []Constraint{xmm}, Defs: []RegClass{XMM}},
		{Name: "MOVrm32", Opcode: MOVrm32, Op: x86asm.MOV, Uses: []Constraint{Mem()}, Defs: []RegClass{GR32}},
		{Name: "MOVmr32", Opcode: MOVmr32, Op: x86asm.MOV, Uses: []Constraint{Mem(), gr32}},
		{Name: "MOVmi32", Opcode: MOVmi32, Op: x86asm.MOV, Uses: []Constraint{Mem(), Imm(I32)}},
		{Name: "MOVmr64", Opcode: MOVmr64, Op: x86asm.MOV, Uses: []Constraint{Mem(), gr64}},
		{Name: "MOVmi64", Opcode: MOVmi64, Op: x86asm.MOV, Uses: []Constraint{Mem(), Imm(I64)}},
		{Name: "MOVSXDr64m32", Opcode: MOVSXDr64m32, Op: x86asm.MOVSXD, Uses: []Constraint{FI()}, Defs: []RegClass{GR64}},
		{Name: "LEAr64m", Opcode: LEAr64m, Op: x86asm.LEA, Uses: []Constraint{Mem()}, Defs: []RegClass{GR64}},
		{Name: "MOVrr32", Opcode: MOVrr32, Op: x86asm.MOV, Uses: []Constraint{gr32}, Defs: []RegClass{GR32}},
		{Name: "MOVri32", Opcode: MOVri32, Op: x86asm.MOV, Uses: []Constraint{Imm(I32)}, Defs: []RegClass{GR32}},
		{Name: "MOVrr64", Opcode: MOVrr64, Op: x86asm.MOV, Uses: []Constraint{gr64}, Defs: []RegClass{GR64}},
		{Name: "MOVri64", Opcode: MOVri64, Op: x86asm.MOV, Uses: []Constraint{Imm(I64)}, Defs: []RegClass{GR64}},
		{Name: "MOVrm64", Opcode: MOVrm64, Op: x86asm.MOV, Uses: []Constraint{Mem()}, Defs: []RegClass{GR64}},

		// integer arithmetic
		{Name: "ADDrr32", Opcode: ADDrr32, Op: x86asm.ADD, Uses: []Constraint{gr32, gr32}, Defs: []RegClass{GR32}, Ties: rmw},
		{Name: "ADDrr64", Opcode: ADDrr64, Op: x86asm.ADD, Uses: []Constraint{gr64, gr64}, Defs: []RegClass{GR64}, Ties: rmw},
		{Name: "ADDri32", Opcode: ADDri32, Op: x86asm.ADD, Uses: []Constraint{gr32, Imm(I32)}, Defs: []RegClass{GR32}, Ties: rmw},
		{Name: "ADDr64i32", Opcode: ADDr64i32, Op: x86asm.ADD, Uses: []Constraint{gr64, Imm(I32)}, Defs: []RegClass{GR64}, Ties: rmw},
		{Name: "SUBrr32", Opcode: SUBrr32, Op: x86asm.SUB, Uses: []Constraint{gr32, gr32}, Defs: []RegClass{GR32}, Ties: rmw},
		{Name: "SUBri32", Opcode: SUBri32, Op: x86asm.SUB, Uses: []Constraint{gr32, Imm(I32)}, Defs: []RegClass{GR32}, Ties: rmw},
		{Name: "SUBr64i32", Opcode: SUBr64i32, Op: x86asm.SUB, Uses: []Constraint{gr64, Imm(I32)}, Defs: []RegClass{GR64}, Ties: rmw},
		{Name: "IMULrr32", Opcode: IMULrr32, Op: x86asm.IMUL, Uses: []Constraint{gr32, gr32}, Defs: []RegClass{GR32}, Ties: rmw},
		// three-operand form: destination is free
		{Name: "IMULrri32", Opcode: IMULrri32, Op: x86asm.IMUL, Uses: []Constraint{gr32, Imm(I32)}, Defs: []RegClass{GR32}},
		{Name: "IMULrr64i32", Opcode: IMULrr64i32, Op: x86asm.IMUL, Uses: []Constraint{gr64, Imm(I32)}, Defs: []RegClass{GR64}, Ties: rmw},
		{Name: "SHLr64i8", Opcode: SHLr64i8, Op: x86asm.SHL, Uses: []Constraint{gr64, Imm(I8)}, Defs: []RegClass{GR64}, Ties: rmw},
		{Name: "SHLr32i8", Opcode: SHLr32i8, Op: x86asm.SHL, Uses: []Constraint{gr32, Imm(I8)}, Defs: []RegClass{GR32}, Ties: rmw},
		{
			Name: "CDQ", Opcode: CDQ, Op: x86asm.CDQ,
			ImpDefs: []x86asm.Reg{x86asm.EDX},
			ImpUses: []x86asm.Reg{x86asm.EAX},
		},
		{
			Name: "IDIV", Opcode: IDIV, Op: x86asm.IDIV,
			Uses:    []Constraint{gr32},
			ImpDefs: []x86asm.Reg{x86asm.EAX, x86asm.EDX},
			ImpUses: []x86asm.Reg{x86asm.EAX, x86asm.EDX},
		},

		// scalar double
		{Name: "ADDSDrr", Opcode: ADDSDrr, Op: x86asm.ADDSD, Uses: []Constraint{xmm, xmm}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "ADDSDrm", Opcode: ADDSDrm, Op: x86asm.ADDSD, Uses: []Constraint{xmm, Mem()}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "SUBSDrr", Opcode: SUBSDrr, Op: x86asm.SUBSD, Uses: []Constraint{xmm, xmm}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "SUBSDrm", Opcode: SUBSDrm, Op: x86asm.SUBSD, Uses: []Constraint{xmm, Mem()}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "MULSDrr", Opcode: MULSDrr, Op: x86asm.MULSD, Uses: []Constraint{xmm, xmm}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "MULSDrm", Opcode: MULSDrm, Op: x86asm.MULSD, Uses: []Constraint{xmm, Mem()}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "DIVSDrr", Opcode: DIVSDrr, Op: x86asm.DIVSD, Uses: []Constraint{xmm, xmm}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "DIVSDrm", Opcode: DIVSDrm, Op: x86asm.DIVSD, Uses: []Constraint{xmm, Mem()}, Defs: []RegClass{XMM}, Ties: rmw},
		{Name: "SQRTSDrr", Opcode: SQRTSDrr, Op: x86asm.SQRTSD, Uses: []Constraint{xmm}, Defs: []RegClass{XMM}},

		// stack and calls
		{Name: "PUSH64", Opcode: PUSH64, Op: x86asm.PUSH, Uses: []Constraint{gr64}},
		{Name: "POP64", Opcode: POP64, Op: x86asm.POP, Defs: []RegClass{GR64}},
		{Name: "RET", Opcode: RET, Op: x86asm.RET},
		{Name: "CALL", Opcode: CALL, Op: x86asm.CALL, Uses: []Constraint{Sym()}, ImpDefs: callClobbers},

		// compares and branches
		{Name: "CMPrr32", Opcode: CMPrr32, Op: x86asm.CMP, Uses: []Constraint{gr32, gr32}},
		{Name: "CMPri32", Opcode: CMPri32, Op: x86asm.CMP, Uses: []Constraint{gr32, Imm(I32)}},
		{Name: "UCOMISDrr", Opcode: UCOMISDrr, Op: x86asm.UCOMISD, Uses: []Constraint{xmm, xmm}},
		{Name: "SETEr8", Opcode: SETEr8, Op: x86asm.SETE, Defs: []RegClass{GR8}},
		{Name: "SETLEr8", Opcode: SETLEr8, Op: x86asm.SETLE, Defs: []RegClass{GR8}},
		{Name: "SETLr8", Opcode: SETLr8, Op: x86asm.SETL, Defs: []RegClass{GR8}},
		{Name: "JE", Opcode: JE, Op: x86asm.JE, Uses: []Constraint{Lbl()}},
		{Name: "JBE", Opcode: JBE, Op: x86asm.JBE, Uses: []Constraint{Lbl()}},
		{Name: "JB", Opcode: JB, Op: x86asm.JB, Uses: []Constraint{Lbl()}},
		{Name: "JLE", Opcode: JLE, Op: x86asm.JLE, Uses: []Constraint{Lbl()}},
		{Name: "JL", Opcode: JL, Op: x86asm.JL, Uses: []Constraint{Lbl()}},
		{Name: "JA", Opcode: JA, Op: x86asm.JA, Uses: []Constraint{Lbl()}},
		{Name: "JAE", Opcode: JAE, Op: x86asm.JAE, Uses: []Constraint{Lbl()}},
		{Name: "JG", Opcode: JG, Op: x86asm.JG, Uses: []Constraint{Lbl()}},
		{Name: "JGE", Opcode: JGE, Op: x86asm.JGE, Uses: []Constraint{Lbl()}},
		{Name: "JMP", Opcode: JMP, Op: x86asm.JMP, Uses: []Constraint{Lbl()}},
	}
}
