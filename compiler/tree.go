package compiler

// OperandKind classifies a parsed value.
type OperandKind int

const (
	OmittedOp OperandKind = iota
	ShortConstOp
	LongConstOp
	VariableOp
	ExpressionOp // Value is a tree-node index
	SysFunOp     // Value is a system-function code
	ErrorOp      // poisoned; callers stop greedy parsing on sight
)

// Operand is a typed compile-time value with its backpatch marker and
// originating symbol (or -1).
type Operand struct {
	Kind   OperandKind
	Value  int32
	Marker Marker
	Sym    int
}

func constOperand(v int32) Operand {
	k := LongConstOp
	if v >= -32768 && v <= 32767 {
		k = ShortConstOp
	}
	return Operand{Kind: k, Value: v, Sym: -1}
}

var errorOperand = Operand{Kind: ErrorOp, Sym: -1}

// IsConstant reports whether the operand is a compile-time constant
// with no pending backpatch.
func (o Operand) IsConstant() bool {
	return (o.Kind == ShortConstOp || o.Kind == LongConstOp) && o.Marker == NullMarker
}

// Operator codes for expression-tree nodes.
type Operator int

const (
	CommaOp Operator = iota
	SetEqOp          // =
	CondEqOp         // ==
	NotEqOp          // ~=
	GeOp
	GtOp
	LeOp
	LtOp
	HasOp
	HasntOp
	InOp
	NotInOp
	OfclassOp
	ProvidesOp
	NotProvidesOp
	NotOfclassOp
	LogOrOp  // ||
	LogAndOp // &&
	LogNotOp // ~~
	SerialOrOp
	PlusOp
	MinusOp
	TimesOp
	DivideOp
	RemainderOp
	ArtAndOp // &
	ArtOrOp  // |
	ArtNotOp // ~
	UnaryMinusOp
	PreIncOp
	PreDecOp
	PostIncOp
	PostDecOp
	ArrowOp      // ->
	DArrowOp     // -->
	PropOp       // .
	PropAddOp    // .&
	PropNumOp    // .#
	MessageOp    // . on a non-common property
	MPropAddOp   // .& likewise
	MPropNumOp   // .# likewise
	SuperclassOp // ::
	FnCallOp
	NonzeroOp // condition wrapper for value leaves
	ZeroOp_   // its negation
	PushOp    // Glulx spill

	// Indirect-assignment operators produced by the lvalue rewrite:
	// children are the indirection's children followed by the rhs (or
	// nothing for inc/dec forms).
	ArrowSetEqOp
	DArrowSetEqOp
	PropSetEqOp
	MessageSetEqOp
	SuperclassSetEqOp
	ArrowIncOp
	ArrowDecOp
	ArrowPostIncOp
	ArrowPostDecOp
	DArrowIncOp
	DArrowDecOp
	DArrowPostIncOp
	DArrowPostDecOp
	PropIncOp
	PropDecOp
	PropPostIncOp
	PropPostDecOp

	NumOperators
)

// Associativity of equal-precedence neighbours.
const (
	LeftAssoc = iota
	RightAssoc
	NoAssoc // brackets mandatory; adjacency is an error
)

// opInfo describes one operator for the shift-reduce automaton.
type opInfo struct {
	name     string
	token    int  // separator code, or -1 for keyword operators
	usage    int  // prefixUse / infixUse / postfixUse
	prec     int  // binding strength; higher binds tighter
	assoc    int
	negation Operator // operator with opposite condition sense, or -1
	condition bool    // only meaningful in condition context
}

const (
	prefixUse = iota
	infixUse
	postfixUse
)

var operators [NumOperators]opInfo

func defOp(op Operator, name string, token, usage, prec, assoc int, negation Operator, condition bool) {
	operators[op] = opInfo{name, token, usage, prec, assoc, negation, condition}
}

func init() {
	n := Operator(-1)
	defOp(CommaOp, ",", SepComma, infixUse, 0, LeftAssoc, n, false)
	defOp(SetEqOp, "=", SepSetEqual, infixUse, 1, RightAssoc, n, false)
	defOp(LogAndOp, "&&", SepLogAnd, infixUse, 2, LeftAssoc, LogOrOp, false)
	defOp(LogOrOp, "||", SepLogOr, infixUse, 2, LeftAssoc, LogAndOp, false)
	defOp(LogNotOp, "~~", SepLogNot, prefixUse, 3, NoAssoc, n, false)
	defOp(CondEqOp, "==", SepCondEqual, infixUse, 4, NoAssoc, NotEqOp, true)
	defOp(NotEqOp, "~=", SepNotEqual, infixUse, 4, NoAssoc, CondEqOp, true)
	defOp(GeOp, ">=", SepGE, infixUse, 4, NoAssoc, LtOp, true)
	defOp(GtOp, ">", SepGreater, infixUse, 4, NoAssoc, LeOp, true)
	defOp(LeOp, "<=", SepLE, infixUse, 4, NoAssoc, GtOp, true)
	defOp(LtOp, "<", SepLess, infixUse, 4, NoAssoc, GeOp, true)
	defOp(HasOp, "has", -1, infixUse, 4, NoAssoc, HasntOp, true)
	defOp(HasntOp, "hasnt", -1, infixUse, 4, NoAssoc, HasOp, true)
	defOp(InOp, "in", -1, infixUse, 4, NoAssoc, NotInOp, true)
	defOp(NotInOp, "notin", -1, infixUse, 4, NoAssoc, InOp, true)
	defOp(OfclassOp, "ofclass", -1, infixUse, 4, NoAssoc, NotOfclassOp, true)
	defOp(NotOfclassOp, "~ofclass", -1, infixUse, 4, NoAssoc, OfclassOp, true)
	defOp(ProvidesOp, "provides", -1, infixUse, 4, NoAssoc, NotProvidesOp, true)
	defOp(NotProvidesOp, "~provides", -1, infixUse, 4, NoAssoc, ProvidesOp, true)
	defOp(SerialOrOp, "or", -1, infixUse, 5, LeftAssoc, n, true)
	defOp(PlusOp, "+", SepPlus, infixUse, 6, LeftAssoc, n, false)
	defOp(MinusOp, "-", SepMinus, infixUse, 6, LeftAssoc, n, false)
	defOp(TimesOp, "*", SepTimes, infixUse, 7, LeftAssoc, n, false)
	defOp(DivideOp, "/", SepDivide, infixUse, 7, LeftAssoc, n, false)
	defOp(RemainderOp, "%", SepRemainder, infixUse, 7, LeftAssoc, n, false)
	defOp(ArtAndOp, "&", SepArtAnd, infixUse, 7, LeftAssoc, n, false)
	defOp(ArtOrOp, "|", SepArtOr, infixUse, 7, LeftAssoc, n, false)
	defOp(ArtNotOp, "~", SepArtNot, prefixUse, 8, NoAssoc, n, false)
	defOp(UnaryMinusOp, "unary -", SepMinus, prefixUse, 9, NoAssoc, n, false)
	defOp(PreIncOp, "++", SepInc, prefixUse, 10, NoAssoc, n, false)
	defOp(PreDecOp, "--", SepDec, prefixUse, 10, NoAssoc, n, false)
	defOp(PostIncOp, "++ (post)", SepInc, postfixUse, 10, NoAssoc, n, false)
	defOp(PostDecOp, "-- (post)", SepDec, postfixUse, 10, NoAssoc, n, false)
	defOp(ArrowOp, "->", SepArrow, infixUse, 11, LeftAssoc, n, false)
	defOp(DArrowOp, "-->", SepDArrow, infixUse, 11, LeftAssoc, n, false)
	defOp(SuperclassOp, "::", SepColonColon, infixUse, 12, LeftAssoc, n, false)
	defOp(PropAddOp, ".&", SepPropertyA, infixUse, 12, LeftAssoc, n, false)
	defOp(PropNumOp, ".#", SepPropertyN, infixUse, 12, LeftAssoc, n, false)
	defOp(PropOp, ".", SepProperty, infixUse, 12, LeftAssoc, n, false)
	defOp(MessageOp, ". (message)", -1, infixUse, 12, LeftAssoc, n, false)
	defOp(MPropAddOp, ".& (message)", -1, infixUse, 12, LeftAssoc, n, false)
	defOp(MPropNumOp, ".# (message)", -1, infixUse, 12, LeftAssoc, n, false)
	defOp(FnCallOp, "function call", -1, infixUse, 13, LeftAssoc, n, false)
	defOp(NonzeroOp, "~= 0", -1, prefixUse, 14, NoAssoc, ZeroOp_, true)
	defOp(ZeroOp_, "== 0", -1, prefixUse, 14, NoAssoc, NonzeroOp, true)
	defOp(PushOp, "push", -1, prefixUse, 14, NoAssoc, n, false)

	defOp(ArrowSetEqOp, "-> =", -1, infixUse, 1, RightAssoc, n, false)
	defOp(DArrowSetEqOp, "--> =", -1, infixUse, 1, RightAssoc, n, false)
	defOp(PropSetEqOp, ". =", -1, infixUse, 1, RightAssoc, n, false)
	defOp(MessageSetEqOp, ". = (message)", -1, infixUse, 1, RightAssoc, n, false)
	defOp(SuperclassSetEqOp, ":: =", -1, infixUse, 1, RightAssoc, n, false)
	defOp(ArrowIncOp, "++ ->", -1, prefixUse, 10, NoAssoc, n, false)
	defOp(ArrowDecOp, "-- ->", -1, prefixUse, 10, NoAssoc, n, false)
	defOp(ArrowPostIncOp, "-> ++", -1, postfixUse, 10, NoAssoc, n, false)
	defOp(ArrowPostDecOp, "-> --", -1, postfixUse, 10, NoAssoc, n, false)
	defOp(DArrowIncOp, "++ -->", -1, prefixUse, 10, NoAssoc, n, false)
	defOp(DArrowDecOp, "-- -->", -1, prefixUse, 10, NoAssoc, n, false)
	defOp(DArrowPostIncOp, "--> ++", -1, postfixUse, 10, NoAssoc, n, false)
	defOp(DArrowPostDecOp, "--> --", -1, postfixUse, 10, NoAssoc, n, false)
	defOp(PropIncOp, "++ .", -1, prefixUse, 10, NoAssoc, n, false)
	defOp(PropDecOp, "-- .", -1, prefixUse, 10, NoAssoc, n, false)
	defOp(PropPostIncOp, ". ++", -1, postfixUse, 10, NoAssoc, n, false)
	defOp(PropPostDecOp, ". --", -1, postfixUse, 10, NoAssoc, n, false)
}

func (op Operator) String() string { return operators[op].name }

// Negation returns the operator with the opposite condition sense, or
// -1 when there is none.
func (op Operator) Negation() Operator { return operators[op].negation }

// TreeNode is one expression-tree node. Internal nodes carry an
// operator and link children in first-child / right-sibling form;
// leaves carry an operand.
type TreeNode struct {
	Op     Operator
	Leaf   bool
	Value  Operand
	Child  int // first child, -1
	Right  int // next sibling, -1
	Up     int // parent, -1
}

// ExprTree is the per-expression node arena, wiped between
// expressions.
type ExprTree struct {
	nodes *List[TreeNode]
}

func NewExprTree() *ExprTree {
	return &ExprTree{nodes: NewList[TreeNode]("expression tree", 128)}
}

// Wipe discards all nodes.
func (t *ExprTree) Wipe() { t.nodes.SetLen(0) }

// Node returns the node at index i.
func (t *ExprTree) Node(i int) *TreeNode { return t.nodes.At(i) }

// NewLeaf allocates a leaf node for an operand.
func (t *ExprTree) NewLeaf(v Operand) int {
	return t.nodes.Append(TreeNode{Leaf: true, Value: v, Child: -1, Right: -1, Up: -1})
}

// NewNode allocates an internal node with the given children.
func (t *ExprTree) NewNode(op Operator, children ...int) int {
	id := t.nodes.Append(TreeNode{Op: op, Child: -1, Right: -1, Up: -1})
	prev := -1
	for _, c := range children {
		if prev == -1 {
			t.nodes.At(id).Child = c
		} else {
			t.nodes.At(prev).Right = c
		}
		t.nodes.At(c).Up = id
		prev = c
	}
	return id
}

// AppendChild links c as the last child of node id.
func (t *ExprTree) AppendChild(id, c int) {
	n := t.Node(id)
	if n.Child == -1 {
		n.Child = c
	} else {
		last := n.Child
		for t.Node(last).Right != -1 {
			last = t.Node(last).Right
		}
		t.Node(last).Right = c
	}
	t.Node(c).Up = id
}

// Children collects a node's child indexes.
func (t *ExprTree) Children(id int) []int {
	var out []int
	for c := t.Node(id).Child; c != -1; c = t.Node(c).Right {
		out = append(out, c)
	}
	return out
}

// SetChildren replaces a node's child list.
func (t *ExprTree) SetChildren(id int, children []int) {
	t.Node(id).Child = -1
	prev := -1
	for _, c := range children {
		t.Node(c).Right = -1
		if prev == -1 {
			t.Node(id).Child = c
		} else {
			t.Node(prev).Right = c
		}
		t.Node(c).Up = id
		prev = c
	}
}
