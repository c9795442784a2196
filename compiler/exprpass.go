package compiler

// Post-parse tree transformations: property-operator specialisation,
// the lvalue rewrite, condition normalisation and the Glulx
// argument-spill pass.

// specialiseProperties rewrites '.', '.&' and '.#' to their message
// variants when the right operand is not a recognised common-property
// constant. Z-machine only: the native property opcodes address the
// 63-entry common property table, everything else goes through the
// veneer's message dispatch.
func (p *ExprParser) specialiseProperties(root int) int {
	n := p.tree.Node(root)
	if n.Leaf {
		return root
	}
	for c := n.Child; c != -1; c = p.tree.Node(c).Right {
		p.specialiseProperties(c)
	}
	var variant Operator
	switch n.Op {
	case PropOp:
		variant = MessageOp
	case PropAddOp:
		variant = MPropAddOp
	case PropNumOp:
		variant = MPropNumOp
	default:
		return root
	}
	kids := p.tree.Children(root)
	if len(kids) == 2 && !p.isCommonProperty(kids[1]) {
		n.Op = variant
	}
	return root
}

// isCommonProperty reports whether a node is a constant naming one of
// the 63 common properties.
func (p *ExprParser) isCommonProperty(node int) bool {
	n := p.tree.Node(node)
	if !n.Leaf {
		return false
	}
	v := n.Value
	if v.Sym >= 0 {
		s := p.c.Syms.Get(v.Sym)
		if s.Type == PropertySym {
			return s.Value > 0 && s.Value < 64
		}
		if s.Type == IndivPropSym {
			return false
		}
		if s.Flags&UnknownFlag != 0 {
			return false
		}
	}
	return v.IsConstant() && v.Value > 0 && v.Value < 64
}

// assignToIndirect maps an assignment-like operator applied to an
// indirection operator onto the single combined operator, so the code
// generator sees exactly one node per memory write.
var assignToIndirect = map[Operator]map[Operator]Operator{
	SetEqOp: {
		ArrowOp: ArrowSetEqOp, DArrowOp: DArrowSetEqOp,
		PropOp: PropSetEqOp, MessageOp: MessageSetEqOp,
		SuperclassOp: SuperclassSetEqOp,
	},
	PreIncOp: {
		ArrowOp: ArrowIncOp, DArrowOp: DArrowIncOp, PropOp: PropIncOp,
	},
	PreDecOp: {
		ArrowOp: ArrowDecOp, DArrowOp: DArrowDecOp, PropOp: PropDecOp,
	},
	PostIncOp: {
		ArrowOp: ArrowPostIncOp, DArrowOp: DArrowPostIncOp, PropOp: PropPostIncOp,
	},
	PostDecOp: {
		ArrowOp: ArrowPostDecOp, DArrowOp: DArrowPostDecOp, PropOp: PropPostDecOp,
	},
}

// rewriteLvalues descends the tree combining assignment operators with
// an indirection on their left into indirect-assignment operators.
func (p *ExprParser) rewriteLvalues(root int) int {
	n := p.tree.Node(root)
	if n.Leaf {
		return root
	}
	kids := p.tree.Children(root)
	for i, c := range kids {
		kids[i] = p.rewriteLvalues(c)
	}
	p.tree.SetChildren(root, kids)

	variants, ok := assignToIndirect[n.Op]
	if !ok || len(kids) == 0 {
		return root
	}
	target := p.tree.Node(kids[0])
	if target.Leaf {
		if n.Op == SetEqOp && target.Value.Kind != VariableOp {
			p.c.Errs.Error("assignment to a value that is not a variable or memory reference")
		}
		return root
	}
	combined, ok := variants[target.Op]
	if !ok {
		if n.Op == SetEqOp {
			p.c.Errs.Error("assignment to an expression that is not writable")
		}
		return root
	}
	// Children become: indirection's children, then the rhs if any.
	newKids := p.tree.Children(kids[0])
	newKids = append(newKids, kids[1:]...)
	n.Op = combined
	p.tree.SetChildren(root, newKids)
	return root
}

// dupSubtree makes a structural copy of a subtree, for serial-or
// expansion.
func (p *ExprParser) dupSubtree(node int) int {
	n := p.tree.Node(node)
	if n.Leaf {
		return p.tree.NewLeaf(n.Value)
	}
	op := n.Op
	var kids []int
	for c := n.Child; c != -1; c = p.tree.Node(c).Right {
		kids = append(kids, p.dupSubtree(c))
	}
	return p.tree.NewNode(op, kids...)
}

// normaliseCondition rewrites a tree for condition context: value
// leaves become nonzero tests, '~~' is eliminated by De Morgan's
// rules, and serial 'or' disjuncts are expanded against the
// comparison on their left.
func (p *ExprParser) normaliseCondition(root int, negated bool) int {
	n := p.tree.Node(root)

	if n.Leaf {
		op := NonzeroOp
		if negated {
			op = ZeroOp_
		}
		return p.tree.NewNode(op, root)
	}

	switch n.Op {
	case LogNotOp:
		kids := p.tree.Children(root)
		return p.normaliseCondition(kids[0], !negated)

	case LogAndOp, LogOrOp:
		kids := p.tree.Children(root)
		l := p.normaliseCondition(kids[0], negated)
		r := p.normaliseCondition(kids[1], negated)
		op := n.Op
		if negated {
			op = n.Op.Negation() // De Morgan
		}
		return p.tree.NewNode(op, l, r)

	case SerialOrOp:
		return p.normaliseCondition(p.expandSerialOr(root), negated)

	case SetEqOp:
		p.c.Errs.Warning("'=' used as condition: '==' intended?")
		fallthrough
	default:
		inf := &operators[n.Op]
		if inf.condition && n.Op != SerialOrOp {
			if negated {
				n.Op = n.Op.Negation()
			}
			return root
		}
		// A value-yielding operator in condition context.
		op := NonzeroOp
		if negated {
			op = ZeroOp_
		}
		return p.tree.NewNode(op, root)
	}
}

// expandSerialOr turns `a == b or c` into `(a == b) || (a == c)`,
// duplicating the comparison's left operand. `x or y` over plain
// values becomes a disjunction of nonzero tests.
func (p *ExprParser) expandSerialOr(root int) int {
	kids := p.tree.Children(root)
	left, right := kids[0], kids[1]
	ln := p.tree.Node(left)

	if !ln.Leaf && operators[ln.Op].condition && ln.Op != SerialOrOp {
		if ln.Op == LeOp || ln.Op == GeOp {
			p.c.Errs.Warning("'or' on the right of %q is rarely intended: it compares against each alternative in turn", operators[ln.Op].name)
		}
		cmpKids := p.tree.Children(left)
		dupLeft := p.dupSubtree(cmpKids[0])
		second := p.tree.NewNode(ln.Op, dupLeft, right)
		return p.tree.NewNode(LogOrOp, left, second)
	}
	return p.tree.NewNode(LogOrOp, left, right)
}

// spillCallArgs makes every call argument stack-resident on Glulx by
// wrapping it in a PUSH node. System-function callees are exempt: they
// assemble to single opcodes that take their operands inline.
func (p *ExprParser) spillCallArgs(root int) {
	n := p.tree.Node(root)
	if n.Leaf {
		return
	}
	for c := n.Child; c != -1; c = p.tree.Node(c).Right {
		p.spillCallArgs(c)
	}
	if n.Op != FnCallOp {
		return
	}
	kids := p.tree.Children(root)
	callee := p.tree.Node(kids[0])
	if callee.Leaf && callee.Value.Kind == SysFunOp {
		return
	}
	for i := 1; i < len(kids); i++ {
		kids[i] = p.tree.NewNode(PushOp, kids[i])
	}
	p.tree.SetChildren(root, kids)
}
