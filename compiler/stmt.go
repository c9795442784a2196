package compiler

import (
	"github.com/DavidKinder/Inform6-sub000/glulx"
	"github.com/DavidKinder/Inform6-sub000/zcode"
)

// Opcode names are only recognised directly after '@'; the assembly
// statement enables that group itself.
const routineContext = StatementsEnabled | SystemFunsEnabled |
	SystemConstsEnabled | LocalVarsEnabled | ConditionsEnabled

func isSep(t *Token, code int) bool {
	return t.Kind == SepTok && t.Value == int32(code)
}

// CompileRoutine parses a routine body after the directive loop has
// consumed the opening '[' and the name, and returns the routine's
// code-area offset.
func (g *CodeGen) CompileRoutine(name string, sym int, embedded bool) int32 {
	lx := g.c.Lex
	oldCtx := lx.Context
	oldLocals := lx.LocalVars
	lx.Context = routineContext

	var locals []string
	for {
		t := lx.Get()
		if isSep(t, SepSemicolon) {
			break
		}
		if t.Kind == EOFTok {
			g.c.Errs.Fatal("end of file inside routine %q", name)
		}
		if t.Kind == SymbolTok || t.Kind == LocalVarTok {
			locals = append(locals, t.Text)
			continue
		}
		g.c.Errs.Error("expected local variable name but found %q", t.Text)
	}
	limit := 15
	if g.c.Opts.Target == TargetGlulx {
		limit = glulxFirstGlobal - 1
	}
	if len(locals) > limit {
		g.c.Errs.Error("routine %q has %d local variables; the limit is %d",
			name, len(locals), limit)
		locals = locals[:limit]
	}
	lx.LocalVars = locals

	g.routineLabels = map[int]int{}
	g.loops = g.loops[:0]
	g.tempDepth = 0
	g.c.Asm.StartRoutine(sym, name, len(locals), embedded)
	g.c.Asm.RoutineHeader(len(locals))

	for {
		t := lx.Get()
		if isSep(t, SepCloseSB) {
			break
		}
		if t.Kind == EOFTok {
			g.c.Errs.Fatal("end of file inside routine %q", name)
		}
		g.statement(t)
		lx.ReleaseTokenTexts()
	}

	if !g.c.Asm.Unreachable() {
		g.c.Asm.AssembleJump(RTrueLabel)
	}

	for symID := range g.routineLabels {
		g.c.Syms.EndScope(symID, false)
	}
	lx.LocalVars = oldLocals
	lx.Context = oldCtx
	start := g.c.Asm.EndRoutine()
	g.c.noteRoutine(sym, name, locals, start, g.c.Asm.CodeSize(), g.c.Asm.SequencePoints())
	return start
}

// codeBlock compiles the single statement or braced group that forms
// the body of an if, else or loop.
func (g *CodeGen) codeBlock() {
	lx := g.c.Lex
	t := lx.Get()
	if isSep(t, SepOpenBrace) {
		for {
			t = lx.Get()
			if isSep(t, SepCloseBrace) {
				return
			}
			if t.Kind == EOFTok {
				g.c.Errs.Fatal("end of file inside a braced statement group")
			}
			g.statement(t)
		}
	}
	g.statement(t)
}

func (g *CodeGen) statement(t *Token) {
	g.c.Asm.NoteSequencePoint()
	switch {
	case isSep(t, SepSemicolon):
		return

	case isSep(t, SepOpenBrace):
		g.c.Lex.PutBack()
		g.codeBlock()
		return

	case isSep(t, SepCloseBrace):
		g.c.Errs.Error("found '}' without matching '{'")
		return

	case isSep(t, SepProperty):
		g.labelStatement()
		return

	case isSep(t, SepAt):
		g.assemblyStatement()
		return

	case t.Kind == DQTok:
		// A bare string statement prints it, a newline, and returns true.
		g.c.Lex.PutBack()
		g.printStatement(true)
		return

	case t.Kind == StatementTok:
		g.keywordStatement(t)
		return

	case t.Kind == DirectiveTok:
		g.c.Errs.Error("directive %q cannot be used inside a routine", t.Text)
		g.resync()
		return

	default:
		g.c.Lex.PutBack()
		v := g.c.Expr.Parse(VoidContext)
		if v.Kind == ErrorOp {
			g.c.Errs.Error("expected a statement")
			g.resync()
			return
		}
		g.EvalOperand(v, true)
		g.expectSemicolon()
	}
}

func (g *CodeGen) keywordStatement(t *Token) {
	switch t.Value {
	case StIf:
		g.ifStatement()
	case StElse:
		g.c.Errs.Error("'else' without matching 'if'")
		g.resync()
	case StWhile:
		g.whileStatement()
	case StDo:
		g.doStatement()
	case StUntil:
		g.c.Errs.Error("'until' without matching 'do'")
		g.resync()
	case StFor:
		g.forStatement()
	case StSwitch:
		g.switchStatement()
	case StDefault:
		g.c.Errs.Error("'default' can only be used inside a switch")
		g.resync()
	case StBreak:
		g.loopJump(t.Text, func(f loopFrame) int { return f.breakLabel })
	case StContinue:
		g.loopJump(t.Text, func(f loopFrame) int { return f.continueLabel })
	case StReturn:
		g.returnStatement()
	case StRtrue:
		g.c.Asm.AssembleJump(RTrueLabel)
		g.expectSemicolon()
	case StRfalse:
		g.c.Asm.AssembleJump(RFalseLabel)
		g.expectSemicolon()
	case StJump:
		g.jumpStatement()
	case StPrint:
		g.printStatement(false)
	case StPrintRet:
		g.printStatement(true)
	case StNewLine:
		g.newLine()
		g.expectSemicolon()
	case StQuit:
		if g.c.Opts.Target == TargetZ {
			g.c.Asm.Assemble0(int(zcode.Lookup("quit", g.c.Opts.Version)))
		} else {
			g.c.Asm.Assemble0(int(glulx.Quit))
		}
		g.expectSemicolon()
	case StGive:
		g.giveStatement()
	case StRemove:
		g.removeStatement()
	case StInversion:
		g.expectSemicolon()
	default:
		g.c.Errs.Error("the %q statement is not supported by this compiler", t.Text)
		g.resync()
	}
}

// parseHeadCondition parses the parenthesised condition of an if,
// while or until head.
func (g *CodeGen) parseHeadCondition(keyword string) Operand {
	t := g.c.Lex.Get()
	if !isSep(t, SepOpenB) {
		g.c.Errs.Error("expected '(' after %q", keyword)
		g.c.Lex.PutBack()
		return errorOperand
	}
	g.c.Lex.PutBack()
	return g.c.Expr.Parse(ConditionContext)
}

func (g *CodeGen) ifStatement() {
	cond := g.parseHeadCondition("if")

	if cond.IsConstant() {
		g.constantIf(cond.Value != 0)
		return
	}

	lfalse := g.c.Asm.NewLabel()
	g.Branch(cond, lfalse, false)
	g.codeBlock()

	t := g.c.Lex.Get()
	if t.Kind == StatementTok && t.Value == StElse {
		lend := g.c.Asm.NewLabel()
		if !g.c.Asm.Unreachable() {
			g.c.Asm.AssembleJump(lend)
		}
		g.c.Asm.DefineForwardLabel(lfalse)
		g.codeBlock()
		g.c.Asm.DefineForwardLabel(lend)
		return
	}
	g.c.Lex.PutBack()
	g.c.Asm.DefineForwardLabel(lfalse)
}

// constantIf compiles an if whose condition folded at compile time:
// the dead branch is still parsed, with emission suppressed and no
// unreachable-code warnings.
func (g *CodeGen) constantIf(taken bool) {
	deadBlock := func() {
		reach, entire := g.c.Asm.reach, g.c.Asm.entireBlock
		g.c.Asm.MarkUnreachable(true)
		g.codeBlock()
		g.c.Asm.reach, g.c.Asm.entireBlock = reach, entire
	}
	if taken {
		g.codeBlock()
	} else {
		deadBlock()
	}
	t := g.c.Lex.Get()
	if t.Kind == StatementTok && t.Value == StElse {
		if taken {
			deadBlock()
		} else {
			g.codeBlock()
		}
		return
	}
	g.c.Lex.PutBack()
}

func (g *CodeGen) whileStatement() {
	lhead := g.c.Asm.NewLabel()
	lbreak := g.c.Asm.NewLabel()
	g.c.Asm.DefineLabel(lhead)
	cond := g.parseHeadCondition("while")
	g.Branch(cond, lbreak, false)

	g.loops = append(g.loops, loopFrame{breakLabel: lbreak, continueLabel: lhead})
	g.codeBlock()
	g.loops = g.loops[:len(g.loops)-1]

	g.c.Asm.AssembleJump(lhead)
	g.c.Asm.DefineForwardLabel(lbreak)
}

func (g *CodeGen) doStatement() {
	ltop := g.c.Asm.NewLabel()
	lcheck := g.c.Asm.NewLabel()
	lbreak := g.c.Asm.NewLabel()
	g.c.Asm.DefineLabel(ltop)

	g.loops = append(g.loops, loopFrame{breakLabel: lbreak, continueLabel: lcheck})
	g.codeBlock()
	g.loops = g.loops[:len(g.loops)-1]

	t := g.c.Lex.Get()
	if t.Kind != StatementTok || t.Value != StUntil {
		g.c.Errs.Error("expected 'until' to close 'do' but found %q", t.Text)
		g.c.Lex.PutBack()
		return
	}
	g.c.Asm.DefineForwardLabel(lcheck)
	cond := g.parseHeadCondition("until")
	g.Branch(cond, ltop, false)
	g.c.Asm.DefineForwardLabel(lbreak)
	g.expectSemicolon()
}

// forStatement compiles "for (init : cond : update)". Any of the three
// sections may be empty. The colon only ends an expression while the
// ColonTerminates bit is live, so the head sets it and the body runs
// without it.
func (g *CodeGen) forStatement() {
	lx := g.c.Lex
	t := lx.Get()
	if !isSep(t, SepOpenB) {
		g.c.Errs.Error("expected '(' after 'for'")
		lx.PutBack()
		g.resync()
		return
	}
	saved := lx.Context
	lx.Context |= ColonTerminates

	t = lx.Get()
	if !isSep(t, SepColon) {
		lx.PutBack()
		v := g.c.Expr.Parse(VoidContext)
		if v.Kind != ErrorOp {
			g.EvalOperand(v, true)
		}
		t = lx.Get()
		if !isSep(t, SepColon) {
			g.c.Errs.Error("expected ':' after the loop initialiser but found %q", t.Text)
			lx.PutBack()
		}
	}

	lhead := g.c.Asm.NewLabel()
	lbreak := g.c.Asm.NewLabel()
	g.c.Asm.DefineLabel(lhead)

	t = lx.Get()
	if isSep(t, SepColon) {
		// Empty condition: the loop only ends by break or return.
	} else {
		lx.PutBack()
		cond := g.c.Expr.Parse(ConditionContext)
		g.Branch(cond, lbreak, false)
		t = lx.Get()
		if !isSep(t, SepColon) {
			g.c.Errs.Error("expected ':' after the loop condition but found %q", t.Text)
			lx.PutBack()
		}
	}

	// The update's source precedes the body, so its code is laid down
	// here behind a jump and the bottom of the loop comes back to it.
	cont := lhead
	t = lx.Get()
	if !isSep(t, SepCloseB) {
		lx.PutBack()
		lbody := g.c.Asm.NewLabel()
		lupdate := g.c.Asm.NewLabel()
		g.c.Asm.AssembleJump(lbody)
		g.c.Asm.DefineLabel(lupdate)
		v := g.c.Expr.Parse(VoidContext)
		if v.Kind != ErrorOp {
			g.EvalOperand(v, true)
		}
		g.c.Asm.AssembleJump(lhead)
		g.c.Asm.DefineForwardLabel(lbody)
		cont = lupdate
		t = lx.Get()
		if !isSep(t, SepCloseB) {
			g.c.Errs.Error("expected ')' to close the loop head but found %q", t.Text)
			lx.PutBack()
		}
	}
	lx.Context = saved

	g.loops = append(g.loops, loopFrame{breakLabel: lbreak, continueLabel: cont})
	g.codeBlock()
	g.loops = g.loops[:len(g.loops)-1]

	if !g.c.Asm.Unreachable() {
		g.c.Asm.AssembleJump(cont)
	}
	g.c.Asm.DefineForwardLabel(lbreak)
}

// caseSpec is one value, or an inclusive range, in a switch case head.
type caseSpec struct {
	lo, hi  Operand
	isRange bool
}

// switchStatement compiles "switch (expr) { spec, spec: ... default: ... }".
// Cases are tried in order, each guarded by comparisons against the
// switched value, which is parked in a scratch variable first.
func (g *CodeGen) switchStatement() {
	lx := g.c.Lex
	t := lx.Get()
	if !isSep(t, SepOpenB) {
		g.c.Errs.Error("expected '(' after 'switch'")
		lx.PutBack()
		g.resync()
		return
	}
	lx.PutBack()
	mark := g.tempMark()
	sw := g.save(g.EvalOperand(g.c.Expr.Parse(ValueContext), false))
	t = lx.Get()
	if !isSep(t, SepOpenBrace) {
		g.c.Errs.Error("expected '{' to open the switch body but found %q", t.Text)
		lx.PutBack()
		g.tempRelease(mark)
		g.resync()
		return
	}

	saved := lx.Context
	lx.Context |= ColonTerminates

	lend := g.c.Asm.NewLabel()
	inCase := false
	isDefault := false
	seenDefault := false
	lskip := -1

	closeCase := func() {
		if !inCase {
			return
		}
		if !g.c.Asm.Unreachable() {
			g.c.Asm.AssembleJump(lend)
		}
		if !isDefault {
			g.c.Asm.DefineForwardLabel(lskip)
		}
		inCase = false
	}

	for {
		t = lx.Get()
		switch {
		case t.Kind == EOFTok:
			g.c.Errs.Fatal("end of file inside a switch body")

		case isSep(t, SepCloseBrace):
			closeCase()
			g.c.Asm.DefineForwardLabel(lend)
			lx.Context = saved
			g.tempRelease(mark)
			return

		case t.Kind == StatementTok && t.Value == StDefault:
			closeCase()
			if seenDefault {
				g.c.Errs.Error("a switch can have only one 'default' case")
			}
			seenDefault = true
			t = lx.Get()
			if !isSep(t, SepColon) {
				g.c.Errs.Error("expected ':' after 'default'")
				lx.PutBack()
			}
			inCase, isDefault = true, true

		case !inCase || g.caseHeadAhead(t):
			lx.PutBack()
			closeCase()
			if seenDefault {
				g.c.Errs.Error("'default' must be the last case of a switch")
			}
			lskip = g.switchCaseHead(sw)
			inCase, isDefault = true, false

		default:
			g.statement(t)
		}
	}
}

// caseHeadAhead reports whether t opens a new case head rather than a
// statement. A head is a value followed by ':', ',' or 'to', which
// takes one extra token of lookahead, two for a leading minus sign.
func (g *CodeGen) caseHeadAhead(t *Token) bool {
	lx := g.c.Lex
	switch t.Kind {
	case SmallNumberTok, LargeNumberTok, SQTok, DQTok, SymbolTok,
		SystemConstTok, ActionLiteralTok:
	default:
		if !isSep(t, SepMinus) {
			return false
		}
		next := lx.Get()
		if next.Kind != SmallNumberTok && next.Kind != LargeNumberTok {
			lx.PutBack()
			return false
		}
		after := lx.Get()
		lx.PutBack()
		lx.PutBack()
		return caseHeadFollower(after)
	}
	next := lx.Get()
	lx.PutBack()
	return caseHeadFollower(next)
}

func caseHeadFollower(t *Token) bool {
	if isSep(t, SepColon) || isSep(t, SepComma) {
		return true
	}
	return t.Kind == SymbolTok && fold(t.Text) == "to"
}

// switchCaseHead parses one case head up to its ':' and emits the
// guarding comparisons. It returns the label to which a failed match
// branches; the caller defines it once the case body ends.
func (g *CodeGen) switchCaseHead(sw Operand) int {
	lx := g.c.Lex
	lskip := g.c.Asm.NewLabel()

	var specs []caseSpec
	for {
		v := g.c.Expr.Parse(ArrayContext)
		if v.Kind == ErrorOp {
			g.c.Errs.Error("expected a value in a switch case")
			g.resync()
			return lskip
		}
		if !v.IsConstant() {
			g.c.Errs.Error("switch case values must be constant")
			v = constOperand(0)
		}
		spec := caseSpec{lo: v}
		t := lx.Get()
		if t.Kind == SymbolTok && fold(t.Text) == "to" {
			hi := g.c.Expr.Parse(ArrayContext)
			if !hi.IsConstant() {
				g.c.Errs.Error("switch case values must be constant")
				hi = constOperand(0)
			}
			spec.hi = hi
			spec.isRange = true
			t = lx.Get()
		}
		specs = append(specs, spec)
		if isSep(t, SepColon) {
			break
		}
		if !isSep(t, SepComma) {
			g.c.Errs.Error("expected ',' or ':' in a switch case head but found %q", t.Text)
			lx.PutBack()
			break
		}
	}

	// All but the last spec branch forward on a match; the last one
	// branches to the failure label instead, so a match falls through
	// into the body.
	lbody := -1
	if len(specs) > 1 {
		lbody = g.c.Asm.NewLabel()
	}
	for i, s := range specs {
		last := i == len(specs)-1
		if !s.isRange {
			g.caseCompare(zcode.OpJE, glulx.Jeq, glulx.Jne, sw, s.lo, pick(last, lskip, lbody), last)
			continue
		}
		if last {
			g.caseCompare(zcode.OpJL, glulx.Jlt, glulx.Jlt, sw, s.lo, lskip, false)
			g.caseCompare(zcode.OpJG, glulx.Jgt, glulx.Jgt, sw, s.hi, lskip, false)
			continue
		}
		miss := g.c.Asm.NewLabel()
		g.caseCompare(zcode.OpJL, glulx.Jlt, glulx.Jlt, sw, s.lo, miss, false)
		g.caseCompare(zcode.OpJG, glulx.Jgt, glulx.Jgt, sw, s.hi, miss, false)
		g.c.Asm.AssembleJump(lbody)
		g.c.Asm.DefineForwardLabel(miss)
	}
	if lbody != -1 {
		g.c.Asm.DefineForwardLabel(lbody)
	}
	return lskip
}

func pick(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}

// caseCompare emits one two-operand conditional branch. On the
// Z-machine the sense is inverted with the branch polarity bit; Glulx
// has no polarity, so the inverted opcode is spelled out.
func (g *CodeGen) caseCompare(zop zcode.Op, gop, gopInv glulx.Op, a, b Operand, label int, invert bool) {
	if g.c.Opts.Target == TargetZ {
		g.c.Asm.Assemble2Branch(int(zop), a, b, label, invert)
		return
	}
	op := gop
	if invert {
		op = gopInv
	}
	g.c.Asm.Assemble2Branch(int(op), a, b, label, false)
}

func (g *CodeGen) loopJump(name string, pick func(loopFrame) int) {
	if len(g.loops) == 0 {
		g.c.Errs.Error("%q can only be used inside a loop", name)
		g.resync()
		return
	}
	g.c.Asm.AssembleJump(pick(g.loops[len(g.loops)-1]))
	g.expectSemicolon()
}

func (g *CodeGen) returnStatement() {
	t := g.c.Lex.Get()
	if isSep(t, SepSemicolon) {
		g.c.Asm.AssembleJump(RTrueLabel)
		return
	}
	g.c.Lex.PutBack()
	v := g.EvalOperand(g.c.Expr.Parse(ValueContext), false)
	switch {
	case v.IsConstant() && v.Value == 1:
		g.c.Asm.AssembleJump(RTrueLabel)
	case v.IsConstant() && v.Value == 0:
		g.c.Asm.AssembleJump(RFalseLabel)
	case g.c.Opts.Target == TargetZ:
		g.c.Asm.Assemble1(int(zcode.OpRet), v)
	default:
		g.c.Asm.Assemble1(int(glulx.Return), v)
	}
	g.expectSemicolon()
}

func (g *CodeGen) labelStatement() {
	t := g.c.Lex.Get()
	if t.Kind != SymbolTok {
		g.c.Errs.Error("expected a label name after '.'")
		g.resync()
		return
	}
	g.c.Asm.DefineLabel(g.labelFor(t.SymIndex))
	g.expectSemicolon()
}

func (g *CodeGen) jumpStatement() {
	t := g.c.Lex.Get()
	switch {
	case t.Kind == StatementTok && t.Value == StRtrue:
		g.c.Asm.AssembleJump(RTrueLabel)
	case t.Kind == StatementTok && t.Value == StRfalse:
		g.c.Asm.AssembleJump(RFalseLabel)
	case t.Kind == SymbolTok:
		g.c.Asm.AssembleJump(g.labelFor(t.SymIndex))
	default:
		g.c.Errs.Error("expected a label name after 'jump'")
	}
	g.expectSemicolon()
}

// labelFor finds or creates the assembler label bound to a label
// symbol within the current routine.
func (g *CodeGen) labelFor(symID int) int {
	if l, ok := g.routineLabels[symID]; ok {
		return l
	}
	l := g.c.Asm.NewLabel()
	g.routineLabels[symID] = l
	g.c.Asm.labels.At(l).Sym = symID
	g.c.Syms.Assign(symID, int32(l), LabelSym)
	return l
}

func (g *CodeGen) newLine() {
	if g.c.Opts.Target == TargetZ {
		g.c.Asm.Assemble0(int(zcode.OpNewLine))
	} else {
		g.c.Asm.Assemble1(int(glulx.Streamchar), constOperand('\n'))
	}
}

func (g *CodeGen) printStatement(ret bool) {
	lx := g.c.Lex
	done := false
	for !done {
		t := lx.Get()
		if t.Kind == DQTok {
			text := t.Text
			sep := lx.Get()
			last := isSep(sep, SepSemicolon)
			if g.c.Opts.Target == TargetZ {
				if ret && last {
					// print_ret folds the newline and the return in.
					g.c.Asm.AssembleZText(zcode.OpPrintRet, text)
					return
				}
				g.c.Asm.AssembleZText(zcode.OpPrint, text)
			} else {
				id := g.c.AddString(text)
				g.c.Asm.AssembleGString(id, StringMarker)
			}
			if last {
				done = true
				continue
			}
			if !isSep(sep, SepComma) {
				g.c.Errs.Error("expected ',' or ';' after a print item")
				lx.PutBack()
				done = true
			}
			continue
		}

		lx.PutBack()
		v := g.c.Expr.Parse(ArrayContext)
		if v.Kind == ErrorOp {
			g.c.Errs.Error("expected something to print")
			g.resync()
			return
		}
		o := g.EvalOperand(v, false)
		if g.c.Opts.Target == TargetZ {
			g.c.Asm.Assemble1(int(zcode.Lookup("print_num", g.c.Opts.Version)), o)
		} else {
			g.c.Asm.Assemble1(int(glulx.Streamnum), o)
		}
		t = lx.Get()
		if isSep(t, SepSemicolon) {
			done = true
		} else if !isSep(t, SepComma) {
			g.c.Errs.Error("expected ',' or ';' after a print item")
			lx.PutBack()
			done = true
		}
	}
	if ret {
		g.newLine()
		g.c.Asm.AssembleJump(RTrueLabel)
	}
}

// giveStatement handles "give obj attr" and "give obj ~attr" with a
// simple term for the object.
func (g *CodeGen) giveStatement() {
	lx := g.c.Lex
	obj := g.simpleTerm()
	for {
		t := lx.Get()
		if isSep(t, SepSemicolon) {
			return
		}
		clear := false
		if isSep(t, SepArtNot) {
			clear = true
			t = lx.Get()
		}
		attr, ok := g.c.Expr.termOperand(t)
		if !ok {
			g.c.Errs.Error("expected an attribute name in 'give'")
			g.resync()
			return
		}
		mark := g.tempMark()
		if g.c.Opts.Target == TargetZ {
			op := zcode.Lookup("set_attr", g.c.Opts.Version)
			if clear {
				op = zcode.Lookup("clear_attr", g.c.Opts.Version)
			}
			g.c.Asm.Assemble2(int(op), obj, attr)
		} else {
			bit := constOperand(1)
			if clear {
				bit = constOperand(0)
			}
			g.c.Asm.Assemble3(int(glulx.Astorebit), obj, attr, bit)
		}
		g.tempRelease(mark)
	}
}

func (g *CodeGen) removeStatement() {
	obj := g.simpleTerm()
	if g.c.Opts.Target == TargetZ {
		g.c.Asm.Assemble1(int(zcode.Lookup("remove_obj", g.c.Opts.Version)), obj)
	} else {
		g.c.Errs.Error("the %q statement is not supported by this compiler", "remove")
	}
	g.expectSemicolon()
}

// simpleTerm reads a single-token operand.
func (g *CodeGen) simpleTerm() Operand {
	t := g.c.Lex.Get()
	v, ok := g.c.Expr.termOperand(t)
	if !ok {
		g.c.Errs.Error("expected a simple value but found %q", t.Text)
		return constOperand(0)
	}
	return v
}

// Assembly-language statements: @opcode operands [-> store] [?label].

func (g *CodeGen) assemblyStatement() {
	lx := g.c.Lex
	// The mnemonic is lexed with only the opcode group live, so that
	// names like print or random are not claimed by other groups.
	saved := lx.Context
	lx.Context = OpcodesEnabled
	t := lx.Get()
	lx.Context = saved
	if t.Kind != OpcodeTok && t.Kind != SymbolTok {
		g.c.Errs.Error("expected an opcode name after '@'")
		g.resync()
		return
	}
	name := t.Text

	ai := AI{Store: -1, Branch: -1}
	var textOperand string
	haveText := false
	for {
		t = lx.Get()
		switch {
		case isSep(t, SepSemicolon):
			g.emitAssembly(name, &ai, textOperand, haveText)
			return

		case t.Kind == EOFTok:
			g.c.Errs.Fatal("end of file inside an assembly statement")

		case isSep(t, SepArrow):
			v := g.asmOperand(lx.Get())
			if v.Kind != VariableOp {
				g.c.Errs.Error("store destination of @%s must be a variable", name)
				continue
			}
			ai.Store = v.Value

		case isSep(t, SepBranch), isSep(t, SepNBranch):
			ai.BranchOnFalse = isSep(t, SepNBranch)
			tgt := lx.Get()
			switch {
			case tgt.Kind == StatementTok && tgt.Value == StRtrue:
				ai.Branch = RTrueLabel
			case tgt.Kind == StatementTok && tgt.Value == StRfalse:
				ai.Branch = RFalseLabel
			case tgt.Kind == SymbolTok:
				ai.Branch = g.labelFor(tgt.SymIndex)
				g.c.Asm.MarkUsed(ai.Branch)
			default:
				g.c.Errs.Error("expected a label after '?' in @%s", name)
			}

		case t.Kind == DQTok:
			textOperand = t.Text
			haveText = true

		default:
			ai.Operands = append(ai.Operands, g.asmOperand(t))
		}
	}
}

func (g *CodeGen) asmOperand(t *Token) Operand {
	if t.Kind == SymbolTok && fold(t.Text) == "sp" {
		return stackOp()
	}
	v, ok := g.c.Expr.termOperand(t)
	if !ok {
		g.c.Errs.Error("expected an assembly operand but found %q", t.Text)
		return constOperand(0)
	}
	return v
}

func (g *CodeGen) emitAssembly(name string, ai *AI, text string, haveText bool) {
	if g.c.Opts.Target == TargetZ {
		op := zcode.Lookup(name, g.c.Opts.Version)
		if op < 0 {
			g.c.Errs.Error("opcode @%s is not available in Z-machine version %d",
				name, g.c.Opts.Version)
			return
		}
		info := zcode.Info(op)
		if info.Flags&zcode.TextFlag != 0 {
			if !haveText {
				g.c.Errs.Error("@%s needs a literal text operand", name)
				return
			}
			g.c.Asm.AssembleZText(op, text)
			return
		}
		if haveText {
			g.c.Errs.Error("@%s cannot take a literal text operand", name)
		}
		if info.Flags&zcode.BranchFlag != 0 && ai.Branch == -1 {
			g.c.Errs.Error("@%s requires a '?' branch label", name)
			return
		}
		if info.Flags&zcode.BranchFlag == 0 && ai.Branch != -1 {
			g.c.Errs.Error("@%s does not branch", name)
			return
		}
		if name == "jump" {
			g.c.Errs.Error("use the 'jump' statement rather than @jump")
			return
		}
		ai.Op = int(op)
		g.c.Asm.Assemble(ai)
		return
	}

	info := glulx.Lookup(name)
	if info == nil {
		g.c.Errs.Error("unknown Glulx opcode @%s", name)
		return
	}
	if haveText {
		g.c.Errs.Error("@%s cannot take a literal text operand", name)
		return
	}
	if info.Branches {
		if ai.Branch == -1 {
			g.c.Errs.Error("@%s requires a '?' branch label", name)
			return
		}
		if ai.BranchOnFalse {
			g.c.Errs.Error("'?~' branches are not available when compiling to Glulx")
			return
		}
	} else if ai.Branch != -1 {
		g.c.Errs.Error("@%s does not branch", name)
		return
	}
	if info.Stores == 0 && ai.Store != -1 {
		g.c.Errs.Error("@%s does not store a result", name)
		return
	}
	want := info.Operands - info.Stores
	if info.Branches {
		want--
	}
	if len(ai.Operands) != want {
		g.c.Errs.Error("@%s expects %d operands, given %d", name, want, len(ai.Operands))
		return
	}
	ai.Op = int(info.Op)
	g.c.Asm.Assemble(ai)
}

func (g *CodeGen) expectSemicolon() {
	t := g.c.Lex.Get()
	if isSep(t, SepSemicolon) {
		return
	}
	g.c.Errs.Error("expected ';' but found %q", t.Text)
	g.c.Lex.PutBack()
	g.resync()
}

// resync skips ahead to the next ';', or stops short of a token that
// plainly starts something new.
func (g *CodeGen) resync() {
	lx := g.c.Lex
	for {
		t := lx.Get()
		switch {
		case t.Kind == EOFTok:
			return
		case isSep(t, SepSemicolon):
			return
		case isSep(t, SepCloseBrace), isSep(t, SepCloseSB), t.Kind == DirectiveTok:
			lx.PutBack()
			return
		}
	}
}
