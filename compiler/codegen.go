package compiler

import (
	"github.com/DavidKinder/Inform6-sub000/glulx"
	"github.com/DavidKinder/Inform6-sub000/zcode"
)

// Scratch globals park values that must survive later stack pushes.
// On the Z-machine they occupy variables 255 down to 240, which is why
// globals in that range go through the VARIABLE backpatch remap; on
// Glulx the first sixteen global words are reserved and user globals
// are numbered from glulxFirstGlobal+maxTemps.
const maxTemps = 16

func (c *Compiler) tempVar(n int) int32 {
	if c.Opts.Target == TargetZ {
		return int32(255 - n)
	}
	return int32(glulxFirstGlobal + n)
}

type loopFrame struct {
	breakLabel    int
	continueLabel int
}

// CodeGen turns expression trees and statement source into assembled
// code.
type CodeGen struct {
	c         *Compiler
	loops     []loopFrame
	tempDepth int

	// label-symbol id to assembler label, per routine
	routineLabels map[int]int
}

func NewCodeGen(c *Compiler) *CodeGen {
	return &CodeGen{c: c}
}

func stackOp() Operand {
	return Operand{Kind: VariableOp, Value: 0, Sym: -1}
}

func varOp(v int32) Operand {
	return Operand{Kind: VariableOp, Value: v, Sym: -1}
}

func omitted() Operand { return Operand{Kind: OmittedOp} }

func (g *CodeGen) tree() *ExprTree { return g.c.Expr.Tree() }

func (g *CodeGen) node(n int) *TreeNode { return g.tree().Node(n) }

// onStack reports whether an operand is the value on top of the stack.
func onStack(o Operand) bool {
	return o.Kind == VariableOp && o.Value == 0
}

// toStack pushes a value that is not already there.
func (g *CodeGen) toStack(o Operand) {
	if onStack(o) {
		return
	}
	if g.c.Opts.Target == TargetZ {
		g.c.Asm.Assemble2(int(zcode.OpStore), stackOp(), o)
	} else {
		g.c.Asm.Assemble1To(int(glulx.Copy), o, 0)
	}
}

// save parks a stack value in the next free scratch global; any other
// operand passes through unchanged. Callers bracket instruction
// emission with tempMark/tempRelease.
func (g *CodeGen) save(o Operand) Operand {
	if !onStack(o) {
		return o
	}
	if g.tempDepth >= maxTemps {
		g.c.Errs.Error("expression too complex to evaluate")
		return o
	}
	t := g.c.tempVar(g.tempDepth)
	g.tempDepth++
	if g.c.Opts.Target == TargetZ {
		g.c.Asm.Assemble2(int(zcode.OpStore), varOp(t), o)
	} else {
		g.c.Asm.Assemble1To(int(glulx.Copy), o, t)
	}
	return varOp(t)
}

func (g *CodeGen) tempMark() int        { return g.tempDepth }
func (g *CodeGen) tempRelease(mark int) { g.tempDepth = mark }

func (g *CodeGen) discard(o Operand) {
	if !onStack(o) {
		return
	}
	if g.c.Opts.Target == TargetZ {
		if g.c.Opts.Version >= 5 {
			g.c.Asm.Assemble1(int(zcode.OpPull), varOp(g.c.tempVar(maxTemps-1)))
		} else {
			g.c.Asm.Assemble0(int(zcode.Lookup("pop", g.c.Opts.Version)))
		}
	} else {
		g.c.Asm.Assemble1To(int(glulx.Copy), o, -1)
	}
}

// voidResult discards a useless stack value in void context.
func (g *CodeGen) voidResult(o Operand, void bool) Operand {
	if void {
		g.discard(o)
		return omitted()
	}
	return o
}

// EvalOperand emits code computing an expression-parser result and
// returns where the value ended up.
func (g *CodeGen) EvalOperand(o Operand, void bool) Operand {
	if o.Kind == ExpressionOp {
		return g.eval(int(o.Value), void)
	}
	if void && o.Kind != ErrorOp {
		g.c.Errs.Warning("expression used as statement has no effect")
	}
	return o
}

func (g *CodeGen) eval(n int, void bool) Operand {
	nd := g.node(n)
	if nd.Leaf {
		if void {
			g.c.Errs.Warning("expression used as statement has no effect")
		}
		return nd.Value
	}
	mark := g.tempMark()
	defer g.tempRelease(mark)

	switch nd.Op {
	case CommaOp:
		kids := g.tree().Children(n)
		var last Operand
		for i, k := range kids {
			last = g.eval(k, i < len(kids)-1 || void)
		}
		return last

	case FnCallOp:
		return g.evalCall(n, void)

	case SetEqOp:
		return g.evalAssign(n, void)

	case ArrowSetEqOp, DArrowSetEqOp, PropSetEqOp, MessageSetEqOp, SuperclassSetEqOp:
		return g.evalIndirectAssign(n, void)

	case PreIncOp, PreDecOp, PostIncOp, PostDecOp:
		return g.evalIncDec(n, void)

	case ArrowIncOp, ArrowDecOp, ArrowPostIncOp, ArrowPostDecOp,
		DArrowIncOp, DArrowDecOp, DArrowPostIncOp, DArrowPostDecOp,
		PropIncOp, PropDecOp, PropPostIncOp, PropPostDecOp:
		return g.evalIndirectIncDec(n, void)

	case PlusOp, MinusOp, TimesOp, DivideOp, RemainderOp, ArtAndOp, ArtOrOp:
		return g.evalArith(n, void)

	case UnaryMinusOp, ArtNotOp:
		return g.evalUnary(n, void)

	case ArrowOp, DArrowOp:
		return g.evalArrayRead(n, void)

	case PropOp, PropAddOp, PropNumOp:
		if g.c.Opts.Target == TargetZ {
			return g.evalZProperty(n, void)
		}
		return g.evalMessage(n, void)

	case MessageOp, MPropAddOp, MPropNumOp, SuperclassOp:
		return g.evalMessage(n, void)

	case PushOp:
		v := g.evalChildValue(g.tree().Children(n)[0])
		g.toStack(v)
		return stackOp()

	case CondEqOp, NotEqOp, GeOp, GtOp, LeOp, LtOp, HasOp, HasntOp,
		InOp, NotInOp, OfclassOp, NotOfclassOp, ProvidesOp, NotProvidesOp,
		LogOrOp, LogAndOp, LogNotOp, NonzeroOp, ZeroOp_:
		return g.condValue(n, void)

	default:
		g.c.Errs.CompilerError("no code generation for operator %q", operators[nd.Op].name)
		return errorOperand
	}
}

// evalChildValue evaluates a child subtree (leaf or interior) for its
// value.
func (g *CodeGen) evalChildValue(n int) Operand {
	nd := g.node(n)
	if nd.Leaf {
		return nd.Value
	}
	return g.eval(n, false)
}

func (g *CodeGen) evalArith(n int, void bool) Operand {
	kids := g.tree().Children(n)
	l := g.save(g.evalChildValue(kids[0]))
	r := g.evalChildValue(kids[1])
	var op int
	if g.c.Opts.Target == TargetZ {
		switch g.node(n).Op {
		case PlusOp:
			op = int(zcode.OpAdd)
		case MinusOp:
			op = int(zcode.OpSub)
		case TimesOp:
			op = int(zcode.OpMul)
		case DivideOp:
			op = int(zcode.OpDiv)
		case RemainderOp:
			op = int(zcode.OpMod)
		case ArtAndOp:
			op = int(zcode.OpAnd)
		case ArtOrOp:
			op = int(zcode.OpOr)
		}
	} else {
		switch g.node(n).Op {
		case PlusOp:
			op = int(glulx.Add)
		case MinusOp:
			op = int(glulx.Sub)
		case TimesOp:
			op = int(glulx.Mul)
		case DivideOp:
			op = int(glulx.Div)
		case RemainderOp:
			op = int(glulx.Mod)
		case ArtAndOp:
			op = int(glulx.Bitand)
		case ArtOrOp:
			op = int(glulx.Bitor)
		}
	}
	g.c.Asm.Assemble2To(op, l, r, 0)
	return g.voidResult(stackOp(), void)
}

func (g *CodeGen) evalUnary(n int, void bool) Operand {
	x := g.evalChildValue(g.tree().Children(n)[0])
	if g.c.Opts.Target == TargetZ {
		if g.node(n).Op == UnaryMinusOp {
			g.c.Asm.Assemble2To(int(zcode.OpSub), constOperand(0), x, 0)
		} else {
			g.c.Asm.Assemble1To(int(zcode.Lookup("not", g.c.Opts.Version)), x, 0)
		}
	} else {
		if g.node(n).Op == UnaryMinusOp {
			g.c.Asm.Assemble1To(int(glulx.Neg), x, 0)
		} else {
			g.c.Asm.Assemble1To(int(glulx.Bitnot), x, 0)
		}
	}
	return g.voidResult(stackOp(), void)
}

func (g *CodeGen) evalArrayRead(n int, void bool) Operand {
	kids := g.tree().Children(n)
	a := g.save(g.evalChildValue(kids[0]))
	i := g.evalChildValue(kids[1])
	if g.c.Opts.Target == TargetZ {
		if g.node(n).Op == ArrowOp {
			g.c.Asm.Assemble2To(int(zcode.OpLoadB), a, i, 0)
		} else {
			g.c.Asm.Assemble2To(int(zcode.OpLoadW), a, i, 0)
		}
	} else {
		if g.node(n).Op == ArrowOp {
			g.c.Asm.Assemble2To(int(glulx.Aloadb), a, i, 0)
		} else {
			g.c.Asm.Assemble2To(int(glulx.Aload), a, i, 0)
		}
	}
	return g.voidResult(stackOp(), void)
}

// evalZProperty reads common properties with the object opcodes; the
// specialisation pass has already diverted anything else to the
// message operators.
func (g *CodeGen) evalZProperty(n int, void bool) Operand {
	kids := g.tree().Children(n)
	o := g.save(g.evalChildValue(kids[0]))
	p := g.evalChildValue(kids[1])
	switch g.node(n).Op {
	case PropOp:
		g.c.Asm.Assemble2To(int(zcode.OpGetProp), o, p, 0)
	case PropAddOp:
		g.c.Asm.Assemble2To(int(zcode.OpGetPropAddr), o, p, 0)
	case PropNumOp:
		g.c.Asm.Assemble2To(int(zcode.OpGetPropAddr), o, p, 0)
		g.c.Asm.Assemble1To(int(zcode.Lookup("get_prop_len", g.c.Opts.Version)), stackOp(), 0)
	}
	return g.voidResult(stackOp(), void)
}

// evalMessage resolves property access through the run-time support
// routines.
func (g *CodeGen) evalMessage(n int, void bool) Operand {
	kids := g.tree().Children(n)
	var vr VeneerRoutine
	switch g.node(n).Op {
	case MessageOp, SuperclassOp, PropOp:
		vr = VnRVPr
	case MPropAddOp, PropAddOp:
		vr = VnRAPr
	case MPropNumOp, PropNumOp:
		vr = VnRLPr
	}
	fn := g.c.Veneer.Request(vr)
	return g.callNodes(fn, kids, void)
}

func (g *CodeGen) evalAssign(n int, void bool) Operand {
	kids := g.tree().Children(n)
	target := g.node(kids[0])
	if !target.Leaf || target.Value.Kind != VariableOp {
		g.c.Errs.Error("invalid assignment target")
		return errorOperand
	}
	v := target.Value
	r := g.evalChildValue(kids[1])
	if g.c.Opts.Target == TargetZ {
		g.c.Asm.Assemble2(int(zcode.OpStore), v, r)
	} else {
		g.c.Asm.Assemble1To(int(glulx.Copy), r, v.Value)
	}
	if void {
		return omitted()
	}
	return v
}

func (g *CodeGen) evalIndirectAssign(n int, void bool) Operand {
	kids := g.tree().Children(n)
	a := g.save(g.evalChildValue(kids[0]))
	i := g.save(g.evalChildValue(kids[1]))
	r := g.evalChildValue(kids[2])
	if !void {
		r = g.save(r)
	}
	switch op := g.node(n).Op; {
	case op == ArrowSetEqOp || op == DArrowSetEqOp:
		g.writeCell(op, a, i, r)
	case op == PropSetEqOp && g.c.Opts.Target == TargetZ:
		g.c.Asm.Assemble3(int(zcode.OpPutProp), a, i, r)
	default:
		fn := g.c.Veneer.Request(VnWVPr)
		g.callValues(fn, []Operand{a, i, r}, true)
	}
	if void {
		return omitted()
	}
	return r
}

func (g *CodeGen) evalIncDec(n int, void bool) Operand {
	nd := g.node(n)
	target := g.node(g.tree().Children(n)[0])
	if !target.Leaf || target.Value.Kind != VariableOp || target.Value.Value == 0 {
		g.c.Errs.Error("++ and -- need a variable to act on")
		return errorOperand
	}
	v := target.Value
	post := nd.Op == PostIncOp || nd.Op == PostDecOp
	dec := nd.Op == PreDecOp || nd.Op == PostDecOp

	if post && !void {
		g.toStack(v)
	}
	if g.c.Opts.Target == TargetZ {
		if dec {
			g.c.Asm.Assemble1(int(zcode.OpDec), v)
		} else {
			g.c.Asm.Assemble1(int(zcode.OpInc), v)
		}
	} else {
		op := glulx.Add
		if dec {
			op = glulx.Sub
		}
		g.c.Asm.Assemble2To(int(op), v, constOperand(1), v.Value)
	}
	if void {
		return omitted()
	}
	if post {
		return stackOp()
	}
	return v
}

// evalIndirectIncDec rewrites x->i++ and friends as read, adjust,
// write back.
func (g *CodeGen) evalIndirectIncDec(n int, void bool) Operand {
	nd := g.node(n)
	kids := g.tree().Children(n)
	a := g.save(g.evalChildValue(kids[0]))
	i := g.save(g.evalChildValue(kids[1]))

	var post, dec bool
	var load, store Operator
	switch nd.Op {
	case ArrowIncOp, ArrowPostIncOp, ArrowDecOp, ArrowPostDecOp:
		load, store = ArrowOp, ArrowSetEqOp
		post = nd.Op == ArrowPostIncOp || nd.Op == ArrowPostDecOp
		dec = nd.Op == ArrowDecOp || nd.Op == ArrowPostDecOp
	case DArrowIncOp, DArrowPostIncOp, DArrowDecOp, DArrowPostDecOp:
		load, store = DArrowOp, DArrowSetEqOp
		post = nd.Op == DArrowPostIncOp || nd.Op == DArrowPostDecOp
		dec = nd.Op == DArrowDecOp || nd.Op == DArrowPostDecOp
	default:
		load, store = PropOp, PropSetEqOp
		post = nd.Op == PropPostIncOp || nd.Op == PropPostDecOp
		dec = nd.Op == PropDecOp || nd.Op == PropPostDecOp
	}

	g.readCell(load, a, i)
	t := g.save(stackOp())
	if post && !void {
		g.toStack(t)
	}
	if g.c.Opts.Target == TargetZ {
		op := zcode.OpAdd
		if dec {
			op = zcode.OpSub
		}
		g.c.Asm.Assemble2To(int(op), t, constOperand(1), t.Value)
	} else {
		op := glulx.Add
		if dec {
			op = glulx.Sub
		}
		g.c.Asm.Assemble2To(int(op), t, constOperand(1), t.Value)
	}
	g.writeCell(store, a, i, t)
	if void {
		return omitted()
	}
	if post {
		return stackOp()
	}
	return t
}

func (g *CodeGen) readCell(op Operator, a, i Operand) {
	if g.c.Opts.Target == TargetZ {
		switch op {
		case ArrowOp:
			g.c.Asm.Assemble2To(int(zcode.OpLoadB), a, i, 0)
		case DArrowOp:
			g.c.Asm.Assemble2To(int(zcode.OpLoadW), a, i, 0)
		default:
			g.c.Asm.Assemble2To(int(zcode.OpGetProp), a, i, 0)
		}
		return
	}
	switch op {
	case ArrowOp:
		g.c.Asm.Assemble2To(int(glulx.Aloadb), a, i, 0)
	case DArrowOp:
		g.c.Asm.Assemble2To(int(glulx.Aload), a, i, 0)
	default:
		fn := g.c.Veneer.Request(VnRVPr)
		g.callValues(fn, []Operand{a, i}, false)
	}
}

func (g *CodeGen) writeCell(op Operator, a, i, v Operand) {
	if g.c.Opts.Target == TargetZ {
		switch op {
		case ArrowSetEqOp:
			g.c.Asm.Assemble3(int(zcode.OpStoreB), a, i, v)
		case DArrowSetEqOp:
			g.c.Asm.Assemble3(int(zcode.OpStoreW), a, i, v)
		default:
			g.c.Asm.Assemble3(int(zcode.OpPutProp), a, i, v)
		}
		return
	}
	switch op {
	case ArrowSetEqOp:
		g.c.Asm.Assemble3(int(glulx.Astoreb), a, i, v)
	case DArrowSetEqOp:
		g.c.Asm.Assemble3(int(glulx.Astore), a, i, v)
	default:
		fn := g.c.Veneer.Request(VnWVPr)
		g.callValues(fn, []Operand{a, i, v}, true)
	}
}

// Function calls.

func (g *CodeGen) evalCall(n int, void bool) Operand {
	kids := g.tree().Children(n)
	callee := g.node(kids[0])
	if callee.Leaf && callee.Value.Kind == SysFunOp {
		return g.evalSysFun(callee.Value.Value, kids[1:], void)
	}
	fn := g.save(g.evalChildValue(kids[0]))
	return g.callNodes(fn, kids[1:], void)
}

// callNodes evaluates argument subtrees and emits the call.
func (g *CodeGen) callNodes(fn Operand, argNodes []int, void bool) Operand {
	if g.c.Opts.Target == TargetGlulx {
		// The interpreter pops arguments first-argument-first, so
		// push in reverse order.
		fn = g.save(fn)
		for i := len(argNodes) - 1; i >= 0; i-- {
			g.toStack(g.evalChildValue(argNodes[i]))
		}
		store := int32(0)
		if void {
			store = -1
		}
		g.c.Asm.Assemble2To(int(glulx.Call), fn, constOperand(int32(len(argNodes))), store)
		if void {
			return omitted()
		}
		return stackOp()
	}
	args := make([]Operand, 0, len(argNodes))
	for i, k := range argNodes {
		v := g.evalChildValue(k)
		if i < len(argNodes)-1 {
			v = g.save(v)
		}
		args = append(args, v)
	}
	return g.callValues(fn, args, void)
}

// callValues emits a call with already-evaluated operands.
func (g *CodeGen) callValues(fn Operand, args []Operand, void bool) Operand {
	if g.c.Opts.Target == TargetGlulx {
		for i := len(args) - 1; i >= 0; i-- {
			g.toStack(args[i])
		}
		store := int32(0)
		if void {
			store = -1
		}
		g.c.Asm.Assemble2To(int(glulx.Call), fn, constOperand(int32(len(args))), store)
		if void {
			return omitted()
		}
		return stackOp()
	}
	ops := append([]Operand{fn}, args...)
	v := g.c.Opts.Version
	switch {
	case len(args) <= 3:
		if void && v >= 5 {
			g.c.Asm.Assemble(&AI{Op: int(zcode.OpCallVN), Operands: ops, Store: -1, Branch: -1})
			return omitted()
		}
		g.c.Asm.Assemble(&AI{Op: int(zcode.OpCallVS), Operands: ops, Store: 0, Branch: -1})
	case len(args) <= 7 && v >= 4:
		if void && v >= 5 {
			g.c.Asm.Assemble(&AI{Op: int(zcode.Lookup("call_vn2", v)), Operands: ops, Store: -1, Branch: -1})
			return omitted()
		}
		g.c.Asm.Assemble(&AI{Op: int(zcode.Lookup("call_vs2", v)), Operands: ops, Store: 0, Branch: -1})
	default:
		g.c.Errs.Error("too many arguments in function call (%d given)", len(args))
		return errorOperand
	}
	return g.voidResult(stackOp(), void)
}

func (g *CodeGen) evalSysFun(fn int32, argNodes []int, void bool) Operand {
	oneArg := func() Operand {
		if len(argNodes) != 1 {
			g.c.Errs.Error("system function expected 1 argument, given %d", len(argNodes))
			return constOperand(0)
		}
		return g.evalChildValue(argNodes[0])
	}
	switch fn {
	case FnIndirect:
		if len(argNodes) == 0 {
			g.c.Errs.Error("indirect() needs a function to call")
			return constOperand(0)
		}
		f := g.save(g.evalChildValue(argNodes[0]))
		return g.callNodes(f, argNodes[1:], void)

	case FnMetaclass, FnChildren, FnYoungest:
		var vr VeneerRoutine
		switch fn {
		case FnMetaclass:
			vr = VnMetaclass
		case FnChildren:
			vr = VnChildren
		default:
			vr = VnYoungest
		}
		return g.callNodes(g.c.Veneer.Request(vr), argNodes, void)

	case FnRandom:
		if g.c.Opts.Target == TargetZ {
			g.c.Asm.Assemble1To(int(zcode.Lookup("random", g.c.Opts.Version)), oneArg(), 0)
		} else {
			g.c.Asm.Assemble1To(int(glulx.Random), oneArg(), 0)
		}
		return g.voidResult(stackOp(), void)

	case FnGlk:
		if g.c.Opts.Target != TargetGlulx {
			g.c.Errs.Error("glk() is only available when compiling to Glulx")
			return constOperand(0)
		}
		if len(argNodes) == 0 {
			g.c.Errs.Error("glk() needs a selector")
			return constOperand(0)
		}
		for i := len(argNodes) - 1; i >= 1; i-- {
			g.toStack(g.evalChildValue(argNodes[i]))
		}
		sel := g.evalChildValue(argNodes[0])
		g.c.Asm.Assemble2To(int(glulx.Glk), sel, constOperand(int32(len(argNodes)-1)), 0)
		return g.voidResult(stackOp(), void)

	case FnParent, FnChild, FnEldest, FnSibling, FnElder, FnYounger:
		if g.c.Opts.Target == TargetZ {
			var name string
			switch fn {
			case FnParent:
				name = "get_parent"
			case FnChild, FnEldest:
				name = "get_child"
			default:
				name = "get_sibling"
			}
			op := zcode.Lookup(name, g.c.Opts.Version)
			if zcode.Op(op).IsBranch() {
				// get_child and get_sibling must branch; aim at the
				// next instruction.
				lbl := g.c.Asm.NewLabel()
				g.c.Asm.Assemble(&AI{Op: int(op), Operands: []Operand{oneArg()},
					Store: 0, Branch: lbl})
				g.c.Asm.DefineLabel(lbl)
			} else {
				g.c.Asm.Assemble1To(int(op), oneArg(), 0)
			}
			return g.voidResult(stackOp(), void)
		}
		field := int32(5)
		switch fn {
		case FnChild, FnEldest:
			field = 7
		case FnSibling, FnElder, FnYounger:
			field = 6
		}
		g.c.Asm.Assemble2To(int(glulx.Aload), oneArg(), constOperand(field), 0)
		return g.voidResult(stackOp(), void)

	default:
		g.c.Errs.Error("system function not available on this target")
		return constOperand(0)
	}
}

// Conditions.

// Branch emits code jumping to label when the condition comes out
// equal to want.
func (g *CodeGen) Branch(o Operand, label int, want bool) {
	if o.Kind == ExpressionOp {
		g.genBranch(int(o.Value), label, want)
		return
	}
	if o.IsConstant() {
		if (o.Value != 0) == want {
			g.c.Asm.AssembleJump(label)
		}
		return
	}
	if o.Kind == ErrorOp {
		return
	}
	g.branchNonzero(o, label, want)
}

func (g *CodeGen) branchNonzero(v Operand, label int, want bool) {
	if g.c.Opts.Target == TargetZ {
		g.c.Asm.Assemble1Branch(int(zcode.OpJZ), v, label, want)
		return
	}
	op := glulx.Jz
	if want {
		op = glulx.Jnz
	}
	g.c.Asm.Assemble1Branch(int(op), v, label, false)
}

func (g *CodeGen) genBranch(n int, label int, want bool) {
	nd := g.node(n)
	if nd.Leaf {
		g.Branch(nd.Value, label, want)
		return
	}
	mark := g.tempMark()
	defer g.tempRelease(mark)

	kids := g.tree().Children(n)
	switch nd.Op {
	case LogAndOp:
		if want {
			skip := g.c.Asm.NewLabel()
			g.genBranch(kids[0], skip, false)
			g.genBranch(kids[1], label, true)
			g.c.Asm.DefineForwardLabel(skip)
		} else {
			g.genBranch(kids[0], label, false)
			g.genBranch(kids[1], label, false)
		}
	case LogOrOp:
		if want {
			g.genBranch(kids[0], label, true)
			g.genBranch(kids[1], label, true)
		} else {
			skip := g.c.Asm.NewLabel()
			g.genBranch(kids[0], skip, true)
			g.genBranch(kids[1], label, false)
			g.c.Asm.DefineForwardLabel(skip)
		}
	case LogNotOp:
		g.genBranch(kids[0], label, !want)
	case NonzeroOp:
		g.Branch(g.evalChildOperand(kids[0]), label, want)
	case ZeroOp_:
		g.Branch(g.evalChildOperand(kids[0]), label, !want)
	default:
		g.genComparison(n, label, want)
	}
}

// evalChildOperand yields a leaf operand directly, or evaluates an
// interior node to a value first.
func (g *CodeGen) evalChildOperand(n int) Operand {
	nd := g.node(n)
	if nd.Leaf {
		return nd.Value
	}
	return g.eval(n, false)
}

func (g *CodeGen) genComparison(n int, label int, want bool) {
	nd := g.node(n)
	kids := g.tree().Children(n)
	op := nd.Op

	// Fold negated forms into the branch sense.
	switch op {
	case NotEqOp, HasntOp, NotInOp, NotOfclassOp, NotProvidesOp, GeOp, LeOp:
		op = op.Negation()
		want = !want
	}

	switch op {
	case OfclassOp, ProvidesOp:
		var vr VeneerRoutine
		if op == OfclassOp {
			vr = VnOCCl
		} else {
			vr = VnRAPr
		}
		g.callNodes(g.c.Veneer.Request(vr), kids, false)
		g.branchNonzero(stackOp(), label, want)
		return
	}

	args := make([]Operand, 0, len(kids))
	for i, k := range kids {
		v := g.evalChildValue(k)
		if i < len(kids)-1 {
			v = g.save(v)
		}
		args = append(args, v)
	}

	if g.c.Opts.Target == TargetZ {
		var zop zcode.Op
		switch op {
		case CondEqOp:
			zop = zcode.OpJE
		case GtOp:
			zop = zcode.OpJG
		case LtOp:
			zop = zcode.OpJL
		case HasOp:
			zop = zcode.OpTestAttr
		case InOp:
			zop = zcode.OpJin
		default:
			g.c.Errs.CompilerError("unhandled condition operator %q", operators[op].name)
			return
		}
		if len(args) > 2 {
			g.c.Asm.MarkUsed(label)
			g.c.Asm.Assemble(&AI{Op: int(zop), Operands: args, Store: -1,
				Branch: label, BranchOnFalse: !want})
			return
		}
		g.c.Asm.Assemble2Branch(int(zop), args[0], args[1], label, !want)
		return
	}

	switch op {
	case HasOp:
		g.c.Asm.Assemble3To(int(glulx.Aloadbit), args[0], args[1], omitted(), 0)
		g.branchNonzero(stackOp(), label, want)
		return
	case InOp:
		g.c.Asm.Assemble2To(int(glulx.Aload), args[0], constOperand(5), 0)
		args[0] = stackOp()
		op = CondEqOp
	}
	if op == CondEqOp && len(args) > 2 {
		// No multi-way compare on this target; chain the branches.
		first := g.save(args[0])
		if want {
			for _, r := range args[1:] {
				g.c.Asm.Assemble2Branch(int(glulx.Jeq), first, r, label, false)
			}
		} else {
			hit := g.c.Asm.NewLabel()
			for _, r := range args[1:] {
				g.c.Asm.Assemble2Branch(int(glulx.Jeq), first, r, hit, false)
			}
			g.c.Asm.AssembleJump(label)
			g.c.Asm.DefineForwardLabel(hit)
		}
		return
	}
	var gop glulx.Op
	switch op {
	case CondEqOp:
		if want {
			gop = glulx.Jeq
		} else {
			gop = glulx.Jne
		}
	case GtOp:
		if want {
			gop = glulx.Jgt
		} else {
			gop = glulx.Jle
		}
	case LtOp:
		if want {
			gop = glulx.Jlt
		} else {
			gop = glulx.Jge
		}
	default:
		g.c.Errs.CompilerError("unhandled condition operator %q", operators[op].name)
		return
	}
	g.c.Asm.Assemble2Branch(int(gop), args[0], args[1], label, false)
}

// condValue materialises a condition as 1 or 0.
func (g *CodeGen) condValue(n int, void bool) Operand {
	if void {
		skip := g.c.Asm.NewLabel()
		g.genBranch(n, skip, false)
		g.c.Asm.DefineForwardLabel(skip)
		return omitted()
	}
	lfalse := g.c.Asm.NewLabel()
	lend := g.c.Asm.NewLabel()
	g.genBranch(n, lfalse, false)
	g.toStack(constOperand(1))
	g.c.Asm.AssembleJump(lend)
	g.c.Asm.DefineForwardLabel(lfalse)
	g.toStack(constOperand(0))
	g.c.Asm.DefineForwardLabel(lend)
	return stackOp()
}
