package compiler

import (
	"strings"
	"testing"
)

func TestRoutineBodySmoke(t *testing.T) {
	for _, target := range []Target{TargetZ, TargetGlulx} {
		c, out := newTestCompiler(target)
		src := `
Global counter = 0;
[ Square x; return x * x; ];
[ Main total i;
    total = 0;
    for (i = 1: i <= 5: i++) total = total + Square(i);
    if (total == 55) print "fifty-five";
    while (counter > 0) counter--;
    do { counter++; } until (counter == 3);
    switch (total) {
        55: print "as expected";
        default: print "surprising";
    }
    print_ret "done.";
];
`
		if err := c.CompileString("test.inf", src); err != nil {
			t.Fatalf("target %d: %v\n%s", target, err, out.String())
		}
		if c.Errs.ErrorCount != 0 {
			t.Fatalf("target %d errors:\n%s", target, out.String())
		}
		if c.Asm.CodeSize() == 0 {
			t.Fatalf("target %d produced no code", target)
		}
		if _, err := c.Generate(); err != nil {
			t.Fatalf("target %d generate: %v\n%s", target, err, out.String())
		}
	}
}

func TestAssemblyStatements(t *testing.T) {
	c, out := mustCompile(t, TargetZ, `
[ Main x;
    @add 2 3 -> x;
    @jz x ?done;
    @nop;
    .done;
    @rtrue;
];
`)
	if c.Asm.CodeSize() == 0 {
		t.Fatalf("no code emitted:\n%s", out.String())
	}
}

func TestOpcodeNameOnlyAfterAt(t *testing.T) {
	// "add" is a perfectly good local variable name outside assembly.
	c, out := mustCompile(t, TargetZ, "[ Main add; add = 3; if (add == 3) rtrue; ];")
	if c.Errs.ErrorCount != 0 {
		t.Fatalf("errors:\n%s", out.String())
	}
}

func TestJumpToLabel(t *testing.T) {
	mustCompile(t, TargetZ, `
[ Main;
    jump ahead;
    print "skipped";
    .ahead;
    rtrue;
];
`)
}

func TestUnreachableStatementWarning(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := "[ Main; return 1; print \"never\"; ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount != 0 {
		t.Fatalf("errors:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "never be reached") {
		t.Errorf("no unreachable-statement warning:\n%s", out.String())
	}
}

func TestTooManyLocalsZ(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := "[ Main a b c d e f g h i j k l m n o p; ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount == 0 {
		t.Errorf("sixteen locals accepted on the Z-machine:\n%s", out.String())
	}
}

func TestStringEscapes(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `[ Main; print "a^b~c"; ];`)
	if c.Strings.Count() == 0 {
		t.Fatal("no string interned")
	}
	text := c.Strings.Text(0)
	if !strings.Contains(text, "\n") {
		t.Errorf("caret did not become a newline: %q", text)
	}
	if !strings.Contains(text, "\"") {
		t.Errorf("tilde did not become a double quote: %q", text)
	}
}

func TestForLoopEmptySections(t *testing.T) {
	c, out := mustCompile(t, TargetZ, `
[ Main i;
    for (::) break;
    for (i = 0: : i++) if (i == 3) break;
    for (: i > 0:) i--;
];
`)
	if c.Asm.CodeSize() == 0 {
		t.Fatalf("no code emitted:\n%s", out.String())
	}
}

func TestForLoopRunsUpdateAfterBody(t *testing.T) {
	// The update expression sits before the body in the source but must
	// execute after it, so the head jumps over the update code on entry.
	for _, target := range []Target{TargetZ, TargetGlulx} {
		c, out := mustCompile(t, target, `
[ Main i total;
    for (i = 1: i <= 3: i++) total = total + i;
    return total;
];
`)
		if c.Errs.WarningCount != 0 {
			t.Errorf("target %d warned:\n%s", target, out.String())
		}
	}
}

func TestSwitchValueListsAndRanges(t *testing.T) {
	for _, target := range []Target{TargetZ, TargetGlulx} {
		mustCompile(t, target, `
[ Main x r;
    x = 4;
    switch (x) {
        1, 2:    r = 1;
        3 to 5:  r = 2;
        -7:      r = 3;
        default: r = 4;
    }
    return r;
];
`)
	}
}

func TestSwitchDefaultMustBeLast(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := `
[ Main x;
    switch (x) {
        default: x = 1;
        2: x = 2;
    }
];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount == 0 {
		t.Fatal("a case after 'default' was accepted")
	}
	if !strings.Contains(out.String(), "last") {
		t.Errorf("wrong diagnostic:\n%s", out.String())
	}
}

func TestSwitchCaseValueMustBeConstant(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := `
[ Main x y;
    switch (x) {
        y: x = 1;
    }
];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount == 0 {
		t.Errorf("non-constant case value accepted:\n%s", out.String())
	}
}

func TestBareStringStatement(t *testing.T) {
	c, out := mustCompile(t, TargetZ, `[ Main; "all done"; ];`)
	if c.Errs.WarningCount != 0 {
		t.Errorf("bare string statement warned:\n%s", out.String())
	}
}

func TestBreakAndContinueTargetTheNearestLoop(t *testing.T) {
	mustCompile(t, TargetZ, `
[ Main i j;
    for (i = 0: i < 3: i++) {
        for (j = 0: j < 3: j++) {
            if (j == i) continue;
            if (j > i)  break;
        }
    }
];
`)
}
