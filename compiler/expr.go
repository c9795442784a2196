package compiler

import (
	"fmt"
	"math"
)

// Expression-parsing contexts. They differ in which operators are
// legal, how the result is checked, and whether condition
// normalisation runs.
type ExprContext int

const (
	VoidContext ExprContext = iota
	ValueContext
	ConditionContext
	ConstantContext
	ArrayContext // array initialisers: an ErrorOp result stops the scan
)

// Emitter-stack slot markers.
const (
	noValue       = iota
	functionValue // the callee of an in-progress call
	argumentValue // a finished call argument
	orValue       // a disjunct awaiting serial-or expansion
)

// emitEntry is one slot of the emitter stack, maintained in step with
// the operator stack.
type emitEntry struct {
	op       Operand
	marker   int
	brackets int // open brackets currently fencing this slot
}

// opEntry is one slot of the operator stack.
type opEntry struct {
	op       Operator
	bracket  bool // open-bracket sentinel
	call     bool // sentinel is a function-call bracket
	argCount int
}

// ExprParser is the shift-reduce expression front end.
type ExprParser struct {
	c    *Compiler
	tree *ExprTree

	ops  []opEntry
	vals []emitEntry

	context  ExprContext
	endState int // consecutive end-of-expression states seen
}

func NewExprParser(c *Compiler) *ExprParser {
	return &ExprParser{c: c, tree: NewExprTree()}
}

// Tree exposes the node arena for the code generator.
func (p *ExprParser) Tree() *ExprTree { return p.tree }

// Parse reads one expression in the given context and returns its
// operand: a folded constant, a variable, or an ExpressionOp pointing
// into the tree. The tree is wiped at the next Parse call.
func (p *ExprParser) Parse(ctx ExprContext) Operand {
	p.tree.Wipe()
	p.ops = p.ops[:0]
	p.vals = p.vals[:0]
	p.context = ctx

	lx := p.c.Lex
	lastWasTerm := false

	for {
		t := lx.Get()
		switch {
		case p.isEndToken(t):
			lx.PutBack()
			if len(p.vals) == 0 && len(p.ops) == 0 {
				// An empty expression: hand back the poisoned operand
				// and let the caller decide whether that is an error.
				// Greedy callers (array initialisers) use it to stop.
				p.endState++
				return errorOperand
			}
			p.endState = 0
			return p.finish()

		case t.Kind == SepTok && t.Value == int32(SepOpenB):
			if lastWasTerm {
				// A term followed by '(' is a call; the term becomes
				// the callee.
				p.reduceStronger(operators[FnCallOp].prec, LeftAssoc)
				p.vals[len(p.vals)-1].marker = functionValue
				p.ops = append(p.ops, opEntry{bracket: true, call: true})
			} else {
				p.ops = append(p.ops, opEntry{bracket: true})
			}
			p.bumpBrackets(1)
			lastWasTerm = false

		case t.Kind == SepTok && t.Value == int32(SepCloseB):
			if !p.closeBracket() {
				lx.PutBack()
				return p.finish()
			}
			if p.context == ConditionContext && !p.insideBrackets() {
				// A condition ends when its brackets balance; the
				// closing ')' belongs to the if or while head.
				p.endState = 0
				return p.finish()
			}
			lastWasTerm = true

		case t.Kind == SepTok && t.Value == int32(SepComma) && p.inCallBrackets():
			p.reduceToBracket()
			if len(p.vals) > 0 {
				p.vals[len(p.vals)-1].marker = argumentValue
			}
			lastWasTerm = false

		case p.operatorToken(t, lastWasTerm) >= 0:
			op := Operator(p.operatorToken(t, lastWasTerm))
			inf := &operators[op]
			switch inf.usage {
			case prefixUse:
				p.ops = append(p.ops, opEntry{op: op})
			case postfixUse:
				p.reduceStronger(inf.prec, inf.assoc)
				p.apply(op)
			default:
				if !lastWasTerm {
					p.c.Errs.Error("expected operand before %q", inf.name)
					p.pushValue(constOperand(0))
				}
				p.reduceStronger(inf.prec, inf.assoc)
				p.ops = append(p.ops, opEntry{op: op})
			}
			lastWasTerm = false

		default:
			v, ok := p.termOperand(t)
			if !ok {
				lx.PutBack()
				return p.finish()
			}
			if lastWasTerm {
				if p.context == ArrayContext && !p.insideBrackets() {
					// Array entries may be separated by whitespace
					// alone; a term after a term starts the next one.
					lx.PutBack()
					p.endState = 0
					return p.finish()
				}
				p.c.Errs.Error("expected operator but found %q", t.Text)
				p.ops = append(p.ops, opEntry{op: PlusOp})
			}
			p.pushValue(v)
			lastWasTerm = true
		}
	}
}

// isEndToken recognises end-of-expression: semicolons, braces, square
// brackets, and (in switch heads) the colon.
func (p *ExprParser) isEndToken(t *Token) bool {
	if t.Kind == EOFTok {
		return true
	}
	if t.Kind != SepTok {
		// Statement and directive keywords end an expression.
		return t.Kind == StatementTok || t.Kind == DirectiveTok
	}
	switch int(t.Value) {
	case SepSemicolon, SepOpenBrace, SepCloseBrace, SepOpenSB, SepCloseSB:
		return true
	case SepColon:
		return t.Context&ColonTerminates != 0
	case SepComma:
		// A comma at bracket level zero separates a tuple only in void
		// context; elsewhere it terminates (array entries).
		if p.context == ArrayContext && !p.insideBrackets() {
			return true
		}
	}
	return false
}

// operatorToken maps a token to an operator code, or -1. The
// prefix/infix distinction rides on whether a term preceded.
func (p *ExprParser) operatorToken(t *Token, lastWasTerm bool) int {
	if t.Kind == SymbolTok && p.context == ConditionContext {
		switch fold(t.Text) {
		case "or":
			return int(SerialOrOp)
		case "has":
			return int(HasOp)
		case "hasnt":
			return int(HasntOp)
		case "in":
			return int(InOp)
		case "notin":
			return int(NotInOp)
		case "ofclass":
			return int(OfclassOp)
		case "provides":
			return int(ProvidesOp)
		}
	}
	if t.Kind != SepTok {
		return -1
	}
	switch int(t.Value) {
	case SepMinus:
		if lastWasTerm {
			return int(MinusOp)
		}
		return int(UnaryMinusOp)
	case SepInc:
		if lastWasTerm {
			return int(PostIncOp)
		}
		return int(PreIncOp)
	case SepDec:
		if lastWasTerm {
			return int(PostDecOp)
		}
		return int(PreDecOp)
	}
	for op := Operator(0); op < NumOperators; op++ {
		inf := &operators[op]
		if inf.token == int(t.Value) && inf.token >= 0 {
			if inf.usage == infixUse || !lastWasTerm {
				return int(op)
			}
		}
	}
	return -1
}

func (p *ExprParser) pushValue(v Operand) {
	p.vals = append(p.vals, emitEntry{op: v})
}

func (p *ExprParser) bumpBrackets(d int) {
	if len(p.vals) > 0 {
		p.vals[len(p.vals)-1].brackets += d
	}
}

func (p *ExprParser) insideBrackets() bool {
	for _, e := range p.ops {
		if e.bracket {
			return true
		}
	}
	return false
}

// inCallBrackets inspects the nearest open bracket on the stack: the
// test that tells an argument comma from a tuple comma.
func (p *ExprParser) inCallBrackets() bool {
	for i := len(p.ops) - 1; i >= 0; i-- {
		if p.ops[i].bracket {
			return p.ops[i].call
		}
	}
	return false
}

// reduceStronger reduces stacked operators that bind at least as
// tightly as prec (more tightly, for right associativity).
func (p *ExprParser) reduceStronger(prec, assoc int) {
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		if top.bracket {
			return
		}
		ti := &operators[top.op]
		if ti.prec < prec {
			return
		}
		if ti.prec == prec {
			switch assoc {
			case RightAssoc:
				return
			case NoAssoc:
				p.c.Errs.Error("%q and equal-precedence operators need bracketing", ti.name)
				return
			}
		}
		p.ops = p.ops[:len(p.ops)-1]
		p.apply(top.op)
	}
}

// reduceToBracket reduces everything above the nearest open bracket.
func (p *ExprParser) reduceToBracket() {
	for len(p.ops) > 0 && !p.ops[len(p.ops)-1].bracket {
		op := p.ops[len(p.ops)-1].op
		p.ops = p.ops[:len(p.ops)-1]
		p.apply(op)
	}
}

// closeBracket reduces to and pops a bracket sentinel, building a call
// node if the bracket was a call. Reports false on an unmatched ')'.
func (p *ExprParser) closeBracket() bool {
	p.reduceToBracket()
	if len(p.ops) == 0 {
		p.c.Errs.Error("found ')' without matching '('")
		return false
	}
	sentinel := p.ops[len(p.ops)-1]
	p.ops = p.ops[:len(p.ops)-1]
	p.bumpBrackets(-1)
	if sentinel.call {
		p.buildCall()
	}
	return true
}

// buildCall collapses the callee (functionValue) and its finished
// arguments into one FnCallOp node.
func (p *ExprParser) buildCall() {
	start := -1
	for i := len(p.vals) - 1; i >= 0; i-- {
		if p.vals[i].marker == functionValue {
			start = i
			break
		}
	}
	if start < 0 {
		p.c.Errs.CompilerError("call bracket without function value")
		return
	}
	callee := p.tree.NewLeafOrNode(p.vals[start].op)
	node := p.tree.NewNode(FnCallOp, callee)
	for i := start + 1; i < len(p.vals); i++ {
		p.tree.AppendChild(node, p.tree.NewLeafOrNode(p.vals[i].op))
	}
	p.vals = p.vals[:start]
	p.pushValue(Operand{Kind: ExpressionOp, Value: int32(node), Sym: -1})
}

// finish reduces the remaining stack to a single operand and runs the
// post-passes for the context.
func (p *ExprParser) finish() Operand {
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		p.ops = p.ops[:len(p.ops)-1]
		if top.bracket {
			p.c.Errs.Error("found '(' without matching ')'")
			if top.call {
				p.buildCall()
			}
			continue
		}
		p.apply(top.op)
	}
	if len(p.vals) == 0 {
		return errorOperand
	}
	if len(p.vals) > 1 {
		p.c.Errs.Error("expected operator between expressions")
		p.vals = p.vals[:1]
	}
	result := p.vals[0].op
	p.vals = p.vals[:0]

	if result.Kind == ExpressionOp {
		root := int(result.Value)
		if p.c.Opts.Target == TargetZ {
			root = p.specialiseProperties(root)
		}
		root = p.rewriteLvalues(root)
		if p.context == ConditionContext {
			root = p.normaliseCondition(root, false)
		}
		if p.c.Opts.Target == TargetGlulx {
			p.spillCallArgs(root)
		}
		result.Value = int32(root)
	} else if p.context == ConditionContext && result.Kind != ErrorOp {
		root := p.tree.NewNode(NonzeroOp, p.tree.NewLeafOrNode(result))
		result = Operand{Kind: ExpressionOp, Value: int32(root), Sym: -1}
	}
	if p.c.Opts.TraceExprs && result.Kind == ExpressionOp {
		p.dumpTree(int(result.Value), 0)
	}
	return result
}

// dumpTree prints a parsed tree for Trace expressions mode, one node
// per line, children indented under their parent.
func (p *ExprParser) dumpTree(node, depth int) {
	out := p.c.Errs.Out
	for i := 0; i < depth; i++ {
		fmt.Fprint(out, "  ")
	}
	n := p.tree.Node(node)
	if n.Leaf {
		v := n.Value
		switch {
		case v.Kind == VariableOp:
			fmt.Fprintf(out, "var%d\n", v.Value)
		case v.Sym >= 0:
			fmt.Fprintf(out, "%s\n", p.c.Syms.Get(v.Sym).Name)
		case v.Marker != NullMarker:
			fmt.Fprintf(out, "%d [%s]\n", v.Value, v.Marker)
		default:
			fmt.Fprintf(out, "%d\n", v.Value)
		}
		return
	}
	fmt.Fprintf(out, "%s\n", operators[n.Op].name)
	for c := n.Child; c != -1; c = p.tree.Node(c).Right {
		p.dumpTree(c, depth+1)
	}
}

// NewLeafOrNode wraps an operand as a leaf unless it already refers to
// a tree node.
func (t *ExprTree) NewLeafOrNode(v Operand) int {
	if v.Kind == ExpressionOp {
		return int(v.Value)
	}
	return t.NewLeaf(v)
}

// apply reduces one operator against the emitter stack, folding
// constants where possible.
func (p *ExprParser) apply(op Operator) {
	inf := &operators[op]
	unary := inf.usage != infixUse

	var lhs, rhs emitEntry
	if unary {
		if len(p.vals) < 1 {
			p.c.Errs.Error("expected operand for %q", inf.name)
			p.pushValue(constOperand(0))
		}
		rhs = p.vals[len(p.vals)-1]
		p.vals = p.vals[:len(p.vals)-1]
	} else {
		for len(p.vals) < 2 {
			p.c.Errs.Error("expected operand for %q", inf.name)
			p.pushValue(constOperand(0))
		}
		rhs = p.vals[len(p.vals)-1]
		lhs = p.vals[len(p.vals)-2]
		p.vals = p.vals[:len(p.vals)-2]
	}

	// Short-circuit folding: a constant left operand of && or ||
	// decides the expression by itself; the right operand is discarded
	// even if it could have side effects.
	if op == LogAndOp && lhs.op.IsConstant() {
		if lhs.op.Value == 0 {
			p.pushValue(constOperand(0))
		} else {
			p.vals = append(p.vals, rhs)
		}
		return
	}
	if op == LogOrOp && lhs.op.IsConstant() {
		if lhs.op.Value != 0 {
			p.pushValue(constOperand(1))
		} else {
			p.vals = append(p.vals, rhs)
		}
		return
	}

	if folded, ok := p.foldConstant(op, unary, lhs.op, rhs.op); ok {
		p.pushValue(folded)
		return
	}

	var node int
	if unary {
		node = p.tree.NewNode(op, p.tree.NewLeafOrNode(rhs.op))
	} else {
		node = p.tree.NewNode(op, p.tree.NewLeafOrNode(lhs.op), p.tree.NewLeafOrNode(rhs.op))
	}
	p.pushValue(Operand{Kind: ExpressionOp, Value: int32(node), Sym: -1})
}

// foldConstant computes pure operators over marker-free constants in
// 32-bit signed arithmetic.
func (p *ExprParser) foldConstant(op Operator, unary bool, lhs, rhs Operand) (Operand, bool) {
	if !rhs.IsConstant() || (!unary && !lhs.IsConstant()) {
		return Operand{}, false
	}
	a, b := lhs.Value, rhs.Value
	var v int32
	switch op {
	case UnaryMinusOp:
		v = -b
	case ArtNotOp:
		v = ^b
	case LogNotOp:
		if b == 0 {
			v = 1
		}
	case PlusOp:
		v = a + b
	case MinusOp:
		v = a - b
	case TimesOp:
		v = a * b
	case DivideOp, RemainderOp:
		if b == 0 {
			p.c.Errs.Error("division of constant by zero")
			return constOperand(0), true
		}
		// Round toward zero; remainder takes the numerator's sign.
		neg := false
		if a < 0 {
			a, neg = -a, !neg
		}
		if b < 0 {
			b, neg = -b, !neg
		}
		q, r := a/b, a%b
		if op == DivideOp {
			v = q
			if neg {
				v = -v
			}
		} else {
			v = r
			if lhs.Value < 0 {
				v = -v
			}
		}
	case ArtAndOp:
		v = a & b
	case ArtOrOp:
		v = a | b
	case CondEqOp, NotEqOp, GtOp, GeOp, LtOp, LeOp:
		var truth bool
		switch op {
		case CondEqOp:
			truth = a == b
		case NotEqOp:
			truth = a != b
		case GtOp:
			truth = a > b
		case GeOp:
			truth = a >= b
		case LtOp:
			truth = a < b
		case LeOp:
			truth = a <= b
		}
		if truth {
			v = 1
		}
	default:
		return Operand{}, false
	}
	if p.c.Opts.Target == TargetZ && (v > math.MaxInt16 || v < math.MinInt16) {
		p.c.Errs.Warning("constant expression folds to %d, which overflows the 16-bit range", v)
	}
	return constOperand(v), true
}

// termOperand converts a term token to an operand, consulting the
// symbol table and the external string/dictionary/action builders.
func (p *ExprParser) termOperand(t *Token) (Operand, bool) {
	switch t.Kind {
	case SmallNumberTok, LargeNumberTok:
		v := Operand{Kind: ShortConstOp, Value: t.Value, Marker: t.Marker, Sym: t.SymIndex}
		if t.Kind == LargeNumberTok || t.Marker != NullMarker {
			v.Kind = LongConstOp
		}
		return v, true

	case LocalVarTok:
		return Operand{Kind: VariableOp, Value: t.Value, Sym: -1}, true

	case SymbolTok:
		return p.symbolOperand(t)

	case DQTok:
		id := p.c.AddString(t.Text)
		return Operand{Kind: LongConstOp, Value: id, Marker: StringMarker, Sym: -1}, true

	case SQTok:
		id := p.c.AddDictWord(t.Text)
		return Operand{Kind: LongConstOp, Value: id, Marker: DWordMarker, Sym: -1}, true

	case ActionLiteralTok:
		id := p.c.AddAction(t.Text)
		return Operand{Kind: LongConstOp, Value: id, Marker: ActionMarker, Sym: -1}, true

	case SystemConstTok:
		return Operand{Kind: LongConstOp, Value: t.Value, Marker: InconMarker, Sym: -1}, true

	case SystemFunTok:
		return Operand{Kind: SysFunOp, Value: t.Value, Sym: -1}, true
	}
	return Operand{}, false
}

func (p *ExprParser) symbolOperand(t *Token) (Operand, bool) {
	id := t.SymIndex
	p.c.Syms.TouchUse(id)
	s := p.c.Syms.Get(id)

	if s.Flags&UnknownFlag != 0 {
		if p.context == ConstantContext && s.Flags&UErrorIssued == 0 {
			p.c.Errs.Error("%q used in constant context before definition", s.Name)
			s.Flags |= UErrorIssued
		}
		return Operand{Kind: LongConstOp, Value: int32(id), Marker: SymbolMarker, Sym: id}, true
	}
	switch s.Type {
	case GlobalSym:
		return Operand{Kind: VariableOp, Value: s.Value, Marker: s.Marker, Sym: id}, true
	case RoutineSym:
		return Operand{Kind: LongConstOp, Value: s.Value, Marker: RoutineMarker, Sym: id}, true
	case ObjectSym, ClassSym:
		v := Operand{Kind: LongConstOp, Value: s.Value, Marker: ObjectMarker, Sym: id}
		if p.c.Opts.Target == TargetZ {
			v.Kind = ShortConstOp
			if s.Value > 255 {
				v.Kind = LongConstOp
			}
		}
		return v, true
	case ArraySym:
		return Operand{Kind: LongConstOp, Value: s.Value, Marker: ArrayMarker, Sym: id}, true
	case StaticArraySym:
		return Operand{Kind: LongConstOp, Value: s.Value, Marker: StaticArrayMarker, Sym: id}, true
	default:
		v := Operand{Kind: LongConstOp, Value: s.Value, Marker: s.Marker, Sym: id}
		if s.Marker == NullMarker && s.Value >= -32768 && s.Value <= 32767 {
			v.Kind = ShortConstOp
		}
		return v, true
	}
}
