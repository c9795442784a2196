package compiler

import (
	"testing"
)

// parseExpr runs the shift-reduce parser over src in the given context.
func parseExpr(t *testing.T, src string, ctx ExprContext) (*Compiler, Operand) {
	t.Helper()
	c, out := newTestCompiler(TargetZ)
	c.Lex.PushString(src, 1)
	o := c.Expr.Parse(ctx)
	if c.Errs.ErrorCount != 0 {
		t.Fatalf("parse %q:\n%s", src, out.String())
	}
	return c, o
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		src  string
		want int32
	}{
		{"1+2;", 3},
		{"2*(3+4);", 14},
		{"10-3-2;", 5}, // left associative
		{"-5;", -5},
		{"100/7;", 14},
		{"100%7;", 2},
		{"1+2*3;", 7},
		{"$ff & $0f;", 15},
		{"$f0 | $0f;", 255},
		{"~$ff;", ^int32(0xff)},
		{"1 == 1;", 1},
		{"3 < 2;", 0},
	}
	for _, tt := range tests {
		_, o := parseExpr(t, tt.src, ConstantContext)
		if !o.IsConstant() {
			t.Errorf("%q did not fold to a constant (kind %v)", tt.src, o.Kind)
			continue
		}
		if o.Value != tt.want {
			t.Errorf("%q = %d, want %d", tt.src, o.Value, tt.want)
		}
	}
}

func TestFoldingIs32Bit(t *testing.T) {
	// Compile-time arithmetic runs in 32 bits even for the 16-bit
	// target; only emission narrows.
	_, o := parseExpr(t, "30000+30000;", ConstantContext)
	if !o.IsConstant() || o.Value != 60000 {
		t.Errorf("30000+30000 = %d, want 60000", o.Value)
	}
	if o.Kind != LongConstOp {
		t.Errorf("60000 classified %v, want %v", o.Kind, LongConstOp)
	}
}

func TestShortCircuitConstants(t *testing.T) {
	// A constant false left operand of && decides the expression; the
	// right side is discarded without evaluation.
	_, o := parseExpr(t, "0 && unheard_of();", ValueContext)
	if !o.IsConstant() || o.Value != 0 {
		t.Errorf("0 && e = kind %v value %d, want constant 0", o.Kind, o.Value)
	}

	_, o = parseExpr(t, "3 || unheard_of();", ValueContext)
	if !o.IsConstant() || o.Value != 1 {
		t.Errorf("3 || e = kind %v value %d, want constant 1", o.Kind, o.Value)
	}
}

func TestShortCircuitEmitsNoCode(t *testing.T) {
	c, o := parseExpr(t, "0 && defined_later();", ValueContext)
	before := c.Asm.PC()
	c.Gen.EvalOperand(o, true)
	if c.Asm.PC() != before {
		t.Errorf("0 && call emitted %d bytes", c.Asm.PC()-before)
	}
}

func TestDeMorganNegation(t *testing.T) {
	// ~~(a && b) normalises to (a == 0) || (b == 0).
	c, o := parseExpr(t, "~~(a && b))", ConditionContext)
	if o.Kind != ExpressionOp {
		t.Fatalf("kind %v, want %v", o.Kind, ExpressionOp)
	}
	tree := c.Expr.Tree()
	root := tree.Node(int(o.Value))
	if root.Op != LogOrOp {
		t.Fatalf("root operator %v, want %v", root.Op, LogOrOp)
	}
	kids := tree.Children(int(o.Value))
	if len(kids) != 2 {
		t.Fatalf("root has %d children, want 2", len(kids))
	}
	for _, k := range kids {
		if got := tree.Node(k).Op; got != ZeroOp_ {
			t.Errorf("child operator %v, want %v", got, ZeroOp_)
		}
	}
}

func TestDoubleNegationCancels(t *testing.T) {
	c, o := parseExpr(t, "~~(~~(a))", ConditionContext)
	tree := c.Expr.Tree()
	root := tree.Node(int(o.Value))
	if root.Op != NonzeroOp {
		t.Errorf("root operator %v, want %v", root.Op, NonzeroOp)
	}
}

func TestSerialOrExpansion(t *testing.T) {
	// x == 1 or 2 compares x against each alternative.
	c, o := parseExpr(t, "x == 1 or 2)", ConditionContext)
	tree := c.Expr.Tree()
	root := tree.Node(int(o.Value))
	if root.Op != LogOrOp {
		t.Fatalf("root operator %v, want %v", root.Op, LogOrOp)
	}
	kids := tree.Children(int(o.Value))
	for _, k := range kids {
		if got := tree.Node(k).Op; got != CondEqOp {
			t.Errorf("disjunct operator %v, want %v", got, CondEqOp)
		}
	}
}

func TestConditionWrapsPlainValue(t *testing.T) {
	c, o := parseExpr(t, "x)", ConditionContext)
	if o.Kind != ExpressionOp {
		t.Fatalf("kind %v, want %v", o.Kind, ExpressionOp)
	}
	root := c.Expr.Tree().Node(int(o.Value))
	if root.Op != NonzeroOp {
		t.Errorf("root operator %v, want %v", root.Op, NonzeroOp)
	}
}

func TestDivisionByZero(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	c.Lex.PushString("1/0;", 1)
	c.Expr.Parse(ConstantContext)
	if c.Errs.ErrorCount == 0 {
		t.Errorf("1/0 folded without a diagnostic:\n%s", out.String())
	}
}

func TestMissingOperand(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	c.Lex.PushString("1+;", 1)
	c.Expr.Parse(ConstantContext)
	if c.Errs.ErrorCount == 0 {
		t.Errorf("dangling operator accepted:\n%s", out.String())
	}
}
