package compiler

import (
	"fmt"

	"github.com/DavidKinder/Inform6-sub000/glulx"
	"github.com/DavidKinder/Inform6-sub000/zcode"
)

// Pseudo-label numbers for branches to the Z-machine's built-in
// return paths.
const (
	RTrueLabel  = -2
	RFalseLabel = -3
)

// Label is one entry of the per-routine label list, linked in PC
// order. Offset -1 means the label was never reached; jumping to it is
// an error.
type Label struct {
	Offset int32
	Sym    int // owning symbol, or -1 for anonymous
	Prev   int
	Next   int
	Used   bool // something branches here
}

// AI is the operand record the assemble_* helpers populate: one
// instruction with its operands, store destination and branch.
type AI struct {
	Op       int // zcode.Op or glulx.Op, per target
	Operands []Operand
	Store    int32 // store variable number, or -1
	Branch   int   // branch label number, RTrueLabel/RFalseLabel, or -1
	BranchOnFalse bool
}

// Reachability sub-flags.
const (
	reachable = iota
	unreachable
	unreachableNoWarn // duplicate warnings suppressed
)

// Assembler owns the holding area: the not-yet-relaxed code for the
// routine currently being compiled, with one marker byte per code
// byte.
type Assembler struct {
	c *Compiler

	code  *List[byte]
	marks *List[byte]

	labels      *List[Label]
	firstLabel  int
	lastLabel   int

	reach       int
	entireBlock bool // suppression covers a whole braced statement

	routineSym    int
	routineName   string
	routineStarts int32
	routineLocals int

	// The permanent code area, built by the relaxer's copy-out pass.
	out     *List[byte]
	patches *PatchTable

	// sequence points for the debug file
	seqPoints []SeqPoint
}

// SeqPoint associates a source location with a code offset.
type SeqPoint struct {
	Loc    Loc
	Offset int32
}

func NewAssembler(c *Compiler) *Assembler {
	a := &Assembler{
		c:          c,
		code:       NewList[byte]("holding area", 2048),
		marks:      NewList[byte]("holding markers", 2048),
		labels:     NewList[Label]("labels", 64),
		firstLabel: -1,
		lastLabel:  -1,
		out:        NewList[byte]("code area", 16384),
		patches:    NewPatchTable(),
	}
	return a
}

// PC returns the current holding-area program counter.
func (a *Assembler) PC() int32 { return int32(a.code.Len()) }

// CodeSize returns the size of the permanent code area so far.
func (a *Assembler) CodeSize() int32 { return int32(a.out.Len()) }

// Patches returns the backpatch table fed by the copy-out pass.
func (a *Assembler) Patches() *PatchTable { return a.patches }

// CodeBytes exposes the finished code area for the image writer. The
// slice is invalidated by further assembly.
func (a *Assembler) CodeBytes() []byte { return a.out.Slice() }

// SequencePoints returns the finished routine's sequence points; valid
// between EndRoutine and the next StartRoutine.
func (a *Assembler) SequencePoints() []SeqPoint {
	out := make([]SeqPoint, len(a.seqPoints))
	copy(out, a.seqPoints)
	return out
}

func (a *Assembler) byte(b byte, mark Marker) {
	a.code.Append(b)
	a.marks.Append(byte(mark))
}

func (a *Assembler) word16(v uint16, mark Marker) {
	a.byte(byte(v>>8), mark)
	a.byte(byte(v), NullMarker)
}

func (a *Assembler) word32(v uint32, mark Marker) {
	a.byte(byte(v>>24), mark)
	a.byte(byte(v>>16), NullMarker)
	a.byte(byte(v>>8), NullMarker)
	a.byte(byte(v), NullMarker)
}

// NewLabel allocates the next label number.
func (a *Assembler) NewLabel() int {
	return a.labels.Append(Label{Offset: -1, Sym: -1, Prev: -1, Next: -1})
}

// DefineLabel records the current PC as label n's position and links
// it into the PC-ordered list. Defining a label makes code reachable
// again.
func (a *Assembler) DefineLabel(n int) {
	l := a.labels.At(n)
	l.Offset = a.PC()
	l.Prev = a.lastLabel
	l.Next = -1
	if a.lastLabel != -1 {
		a.labels.At(a.lastLabel).Next = n
	} else {
		a.firstLabel = n
	}
	a.lastLabel = n
	a.reach = reachable
	a.entireBlock = false
}

// DefineForwardLabel places label n only if a branch has marked it
// used; a dead forward label keeps offset -1 and does not resurrect
// unreachable code.
func (a *Assembler) DefineForwardLabel(n int) {
	if a.labels.At(n).Used {
		a.DefineLabel(n)
	}
}

// MarkUsed notes that something branches to label n.
func (a *Assembler) MarkUsed(n int) {
	if n >= 0 {
		a.labels.At(n).Used = true
	}
}

func (a *Assembler) labelOffset(n int) int32 {
	if n < 0 || n >= a.labels.Len() {
		a.c.Errs.CompilerError("branch to nonexistent label L%d", n)
	}
	off := a.labels.At(n).Offset
	if off == -1 {
		owner := a.labels.At(n).Sym
		if owner >= 0 {
			a.c.Errs.Error("jump to %q, which is never reached", a.c.Syms.Get(owner).Name)
		} else {
			a.c.Errs.Error("jump to a label that is never reached")
		}
		return 0
	}
	return off
}

// Unreachable reports whether emission is currently suppressed.
func (a *Assembler) Unreachable() bool { return a.reach != reachable }

// MarkUnreachable suppresses emission until the next label. With
// entire set, the suppression is known to cover a whole braced
// statement, so no warning is wanted anywhere inside it.
func (a *Assembler) MarkUnreachable(entire bool) {
	a.reach = unreachable
	a.entireBlock = entire
}

// warnUnreached diagnoses a statement in dead code, once per region.
func (a *Assembler) warnUnreached() {
	if a.reach == unreachable && !a.entireBlock {
		a.c.Errs.Warning("this statement can never be reached")
	}
	if a.reach == unreachable {
		a.reach = unreachableNoWarn
	}
}

// StartRoutine opens the holding area for a routine.
func (a *Assembler) StartRoutine(sym int, name string, nLocals int, embedded bool) {
	a.code.SetLen(0)
	a.marks.SetLen(0)
	a.labels.SetLen(0)
	a.firstLabel, a.lastLabel = -1, -1
	a.reach = reachable
	a.entireBlock = false
	a.routineSym = sym
	a.routineName = name
	a.routineLocals = nLocals
	a.seqPoints = a.seqPoints[:0]
	a.routineStarts = a.CodeSize()
	if a.c.Stripper != nil {
		a.c.Stripper.NoteFunctionStart(name, a.CodeSize(), embedded, a.c.Errs.Current)
	}
}

// RoutineHeader emits the target's routine prologue: the local count
// byte (plus v3/v4 initial values) on the Z-machine, or the function
// type and locals-format block on Glulx.
func (a *Assembler) RoutineHeader(nLocals int) {
	if a.c.Opts.Target == TargetZ {
		a.byte(byte(nLocals), NullMarker)
		if a.c.Opts.Version < 5 {
			for i := 0; i < nLocals; i++ {
				a.byte(0, NullMarker)
				a.byte(0, NullMarker)
			}
		}
		return
	}
	a.byte(0xC1, NullMarker)
	if nLocals > 0 {
		a.byte(4, NullMarker)
		a.byte(byte(nLocals), NullMarker)
	}
	a.byte(0, NullMarker)
	a.byte(0, NullMarker)
}

// NoteSequencePoint records the current source line against the
// current PC for the debug file.
func (a *Assembler) NoteSequencePoint() {
	a.seqPoints = append(a.seqPoints, SeqPoint{Loc: a.c.Errs.Current, Offset: a.PC()})
}

// Assemble encodes one instruction into the holding area, dispatching
// on target. While the execution point is unreachable the instruction
// is discarded silently.
func (a *Assembler) Assemble(ai *AI) {
	if a.Unreachable() {
		a.warnUnreached()
		return
	}
	if a.c.Opts.TraceAsm > 0 {
		a.trace(ai)
	}
	if a.c.Opts.Target == TargetZ {
		a.assembleZ(ai)
	} else {
		a.assembleG(ai)
	}
	if a.endsFlow(ai.Op) {
		a.reach = unreachable
	}
}

func (a *Assembler) endsFlow(op int) bool {
	if a.c.Opts.Target == TargetZ {
		return zcode.Op(op).EndsFlow()
	}
	if info := glulx.Info(glulx.Op(op)); info != nil {
		return info.EndsFlow
	}
	return false
}

func (a *Assembler) trace(ai *AI) {
	name := a.opName(ai.Op)
	fmt.Fprintf(a.c.Errs.Out, "%5d  +%05x  @%s", a.c.Errs.Current.Line, a.PC(), name)
	for _, o := range ai.Operands {
		switch o.Kind {
		case VariableOp:
			fmt.Fprintf(a.c.Errs.Out, " var%d", o.Value)
		default:
			fmt.Fprintf(a.c.Errs.Out, " %d", o.Value)
		}
	}
	if ai.Store >= 0 {
		fmt.Fprintf(a.c.Errs.Out, " -> var%d", ai.Store)
	}
	if ai.Branch != -1 {
		fmt.Fprintf(a.c.Errs.Out, " ?L%d", ai.Branch)
	}
	fmt.Fprintln(a.c.Errs.Out)
}

func (a *Assembler) opName(op int) string {
	if a.c.Opts.Target == TargetZ {
		return zcode.Op(op).String()
	}
	return glulx.Op(op).String()
}

// Convenience entry points. These fill in an AI and run the visible
// peephole rules before emitting.

func (a *Assembler) Assemble0(op int) {
	a.Assemble(&AI{Op: op, Store: -1, Branch: -1})
}

func (a *Assembler) Assemble1(op int, o1 Operand) {
	a.Assemble(&AI{Op: op, Operands: []Operand{o1}, Store: -1, Branch: -1})
}

func (a *Assembler) Assemble2(op int, o1, o2 Operand) {
	ai := &AI{Op: op, Operands: []Operand{o1, o2}, Store: -1, Branch: -1}
	if a.c.Opts.Target == TargetZ && op == int(zcode.OpStore) {
		// @store V sp is @pull V; @store sp V is @push V.
		if o2.Kind == VariableOp && o2.Value == zcode.StackVar && o1.Kind == VariableOp {
			a.Assemble(&AI{Op: int(zcode.OpPull), Operands: []Operand{o1}, Store: -1, Branch: -1})
			return
		}
		if o1.Kind == VariableOp && o1.Value == zcode.StackVar {
			a.Assemble(&AI{Op: int(zcode.OpPush), Operands: []Operand{o2}, Store: -1, Branch: -1})
			return
		}
	}
	a.Assemble(ai)
}

func (a *Assembler) Assemble3(op int, o1, o2, o3 Operand) {
	a.Assemble(&AI{Op: op, Operands: []Operand{o1, o2, o3}, Store: -1, Branch: -1})
}

func (a *Assembler) Assemble1To(op int, o1 Operand, store int32) {
	a.Assemble(&AI{Op: op, Operands: []Operand{o1}, Store: store, Branch: -1})
}

func (a *Assembler) Assemble2To(op int, o1, o2 Operand, store int32) {
	a.Assemble(&AI{Op: op, Operands: []Operand{o1, o2}, Store: store, Branch: -1})
}

func (a *Assembler) Assemble3To(op int, o1, o2, o3 Operand, store int32) {
	a.Assemble(&AI{Op: op, Operands: []Operand{o1, o2, o3}, Store: store, Branch: -1})
}

// Assemble1Branch emits a conditional branch, folding branches on
// compile-time constants: jz on a known value becomes either an
// unconditional jump or nothing at all.
func (a *Assembler) Assemble1Branch(op int, o1 Operand, label int, branchOnFalse bool) {
	if a.c.Opts.Target == TargetZ && op == int(zcode.OpJZ) && o1.IsConstant() {
		taken := (o1.Value == 0) != branchOnFalse
		if taken {
			a.AssembleJump(label)
		}
		return
	}
	if a.c.Opts.Target == TargetGlulx && (op == int(glulx.Jz) || op == int(glulx.Jnz)) && o1.IsConstant() {
		zero := o1.Value == 0
		taken := (zero == (op == int(glulx.Jz))) != branchOnFalse
		if taken {
			a.AssembleJump(label)
		}
		return
	}
	a.MarkUsed(label)
	a.Assemble(&AI{Op: op, Operands: []Operand{o1}, Store: -1, Branch: label, BranchOnFalse: branchOnFalse})
}

func (a *Assembler) Assemble2Branch(op int, o1, o2 Operand, label int, branchOnFalse bool) {
	a.MarkUsed(label)
	a.Assemble(&AI{Op: op, Operands: []Operand{o1, o2}, Store: -1, Branch: label, BranchOnFalse: branchOnFalse})
}

// AssembleJump emits an unconditional jump to a label or to one of the
// return pseudo-labels.
func (a *Assembler) AssembleJump(label int) {
	if a.c.Opts.Target == TargetZ {
		switch label {
		case RTrueLabel:
			a.Assemble0(int(zcode.OpRTrue))
		case RFalseLabel:
			a.Assemble0(int(zcode.OpRFalse))
		default:
			a.MarkUsed(label)
			a.Assemble(&AI{Op: int(zcode.OpJump), Operands: nil, Store: -1, Branch: label})
		}
		return
	}
	switch label {
	case RTrueLabel:
		a.Assemble1(int(glulx.Return), constOperand(1))
	case RFalseLabel:
		a.Assemble1(int(glulx.Return), constOperand(0))
	default:
		a.MarkUsed(label)
		a.Assemble(&AI{Op: int(glulx.Jump), Store: -1, Branch: label})
	}
}
