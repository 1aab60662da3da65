package ir

import "github.com/raymyers/ralph-ra/pkg/types"

// Builder appends instructions at the end of a current block.
// It panics on dangling operands, since it is meant for code that
// constructs IR from handles it just created (front ends, tests).
type Builder struct {
	fn    *Function
	block BlockID
}

// NewBuilder creates a builder for fn with no insert point
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// SetInsertPoint selects the block new instructions are appended to
func (b *Builder) SetInsertPoint(block BlockID) {
	b.block = block
}

// Block returns the current insert block
func (b *Builder) Block() BlockID {
	return b.block
}

func (b *Builder) emit(inst *Instruction) InstID {
	id, err := b.fn.Append(b.block, inst)
	if err != nil {
		panic(err)
	}
	return id
}

// Alloca reserves a stack slot of type ty and returns its address
func (b *Builder) Alloca(ty types.Type) Value {
	return Inst{ID: b.emit(&Instruction{Op: Alloca, Ty: types.Ptr, AllocTy: ty})}
}

// Store writes v to slot
func (b *Builder) Store(v, slot Value) InstID {
	return b.emit(&Instruction{Op: Store, Ty: types.Void, Operands: []Value{v, slot}})
}

// Load reads a ty from slot
func (b *Builder) Load(ty types.Type, slot Value) Value {
	return Inst{ID: b.emit(&Instruction{Op: Load, Ty: ty, Operands: []Value{slot}})}
}

func (b *Builder) binop(op Opcode, x, y Value) Value {
	ty := b.fn.TypeOf(x)
	return Inst{ID: b.emit(&Instruction{Op: op, Ty: ty, Operands: []Value{x, y}})}
}

// Add emits x + y
func (b *Builder) Add(x, y Value) Value { return b.binop(Add, x, y) }

// Sub emits x - y
func (b *Builder) Sub(x, y Value) Value { return b.binop(Sub, x, y) }

// Mul emits x * y
func (b *Builder) Mul(x, y Value) Value { return b.binop(Mul, x, y) }

// ICmp emits an integer comparison producing an i1
func (b *Builder) ICmp(c Cond, x, y Value) Value {
	return Inst{ID: b.emit(&Instruction{Op: ICmp, Ty: types.I1, Cond: c, Operands: []Value{x, y}})}
}

// Br emits an unconditional branch
func (b *Builder) Br(target BlockID) InstID {
	return b.emit(&Instruction{Op: Br, Ty: types.Void, Targets: []BlockID{target}})
}

// CondBr emits a two-way branch on c
func (b *Builder) CondBr(c Value, then, els BlockID) InstID {
	return b.emit(&Instruction{Op: CondBr, Ty: types.Void, Operands: []Value{c}, Targets: []BlockID{then, els}})
}

// Ret emits a return; v may be nil for a void return
func (b *Builder) Ret(v Value) InstID {
	inst := &Instruction{Op: Ret, Ty: types.Void}
	if v != nil {
		inst.Operands = []Value{v}
	}
	return b.emit(inst)
}
