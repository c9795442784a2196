package compiler

import (
	"strings"
	"testing"
)

func constantValueOf(t *testing.T, c *Compiler, name string) int32 {
	t.Helper()
	id := c.Syms.Lookup(name)
	if id < 0 {
		t.Fatalf("constant %q not defined", name)
	}
	s := c.Syms.Get(id)
	if s.Type != ConstantSym {
		t.Fatalf("%q has type %v, want %v", name, s.Type, ConstantSym)
	}
	return s.Value
}

func TestIfdefTakesTheRightBranch(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Constant FLAG;
#Ifdef FLAG;
Constant RESULT = 1;
#Ifnot;
Constant RESULT = 2;
#Endif;
[ Main; ];
`)
	if got := constantValueOf(t, c, "RESULT"); got != 1 {
		t.Errorf("RESULT = %d, want 1", got)
	}
}

func TestIfndefSkipsWhenDefined(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Constant FLAG;
#Ifndef FLAG;
Constant RESULT = 1;
#Ifnot;
Constant RESULT = 2;
#Endif;
[ Main; ];
`)
	if got := constantValueOf(t, c, "RESULT"); got != 2 {
		t.Errorf("RESULT = %d, want 2", got)
	}
}

func TestNestedConditionals(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Constant OUTER;
#Ifdef OUTER;
#Ifdef MISSING;
Constant RESULT = 1;
#Ifnot;
Constant RESULT = 2;
#Endif;
#Ifnot;
Constant RESULT = 3;
#Endif;
[ Main; ];
`)
	if got := constantValueOf(t, c, "RESULT"); got != 2 {
		t.Errorf("RESULT = %d, want 2", got)
	}
}

func TestSecondIfnotIsAnError(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := `
#Ifdef MISSING;
#Ifnot;
#Ifnot;
#Endif;
[ Main; ];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount == 0 {
		t.Fatal("a second Ifnot was accepted")
	}
	if !strings.Contains(out.String(), "Ifnot") {
		t.Errorf("diagnostic does not name Ifnot:\n%s", out.String())
	}
}

func TestIftrue(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
#Iftrue 3 > 2;
Constant RESULT = 1;
#Ifnot;
Constant RESULT = 2;
#Endif;
[ Main; ];
`)
	if got := constantValueOf(t, c, "RESULT"); got != 1 {
		t.Errorf("RESULT = %d, want 1", got)
	}
}

func TestConstantRedefinitionIsAnError(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := "Constant K = 1;\nConstant K = 2;\n[ Main; ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount == 0 {
		t.Errorf("redefinition accepted:\n%s", out.String())
	}
}

func TestDefaultDirective(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Constant K = 7;
Default K = 9;
Default L = 3;
[ Main; ];
`)
	if got := constantValueOf(t, c, "K"); got != 7 {
		t.Errorf("Default overrode K: %d, want 7", got)
	}
	if got := constantValueOf(t, c, "L"); got != 3 {
		t.Errorf("L = %d, want 3", got)
	}
}

func TestGlobalDirective(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, "Global score = 36;\nGlobal turns;\n[ Main; ];")

	id := c.Syms.Lookup("score")
	if id < 0 {
		t.Fatal("score not defined")
	}
	s := c.Syms.Get(id)
	if s.Type != GlobalSym {
		t.Fatalf("score has type %v", s.Type)
	}
	// The first user global is variable 16 on the Z-machine.
	if s.Value != 16 {
		t.Errorf("score is variable %d, want 16", s.Value)
	}
	turns := c.Syms.Get(c.Syms.Lookup("turns"))
	if turns.Value != 17 {
		t.Errorf("turns is variable %d, want 17", turns.Value)
	}
	if len(c.Globals) != 2 {
		t.Fatalf("%d global records, want 2", len(c.Globals))
	}
	if c.Globals[0].Init.Value != 36 {
		t.Errorf("score initialiser %d, want 36", c.Globals[0].Init.Value)
	}
}

func TestArrayForms(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Array words --> 1 2 3;
Array bytes -> 10;
Array tbl table 4 5 6;
Array buf buffer 8;
Array str string "ab";
[ Main; ];
`)

	find := func(name string) ArrayRecord {
		for _, r := range c.ArrayInfo {
			if strings.EqualFold(c.Syms.Get(r.Sym).Name, name) {
				return r
			}
		}
		t.Fatalf("array %q not recorded", name)
		return ArrayRecord{}
	}

	if r := find("words"); r.Len != 6 {
		t.Errorf("word array occupies %d bytes, want 6", r.Len)
	}
	// A single plain constant is a size, not an initialiser.
	if r := find("bytes"); r.Len != 10 {
		t.Errorf("byte array occupies %d bytes, want 10", r.Len)
	}
	// A table carries its length in an initial word.
	if r := find("tbl"); r.Len != 8 {
		t.Errorf("table occupies %d bytes, want 8", r.Len)
	}
	// A buffer is a byte array behind a length word.
	if r := find("buf"); r.Len != 2+8 {
		t.Errorf("buffer occupies %d bytes, want 10", r.Len)
	}
	// A string array holds its length in an initial byte.
	if r := find("str"); r.Len != 3 {
		t.Errorf("string array occupies %d bytes, want 3", r.Len)
	}
}

func TestAttributeAndPropertyNumbering(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Attribute light;
Attribute open;
Property weight;
Property value 10;
[ Main; ];
`)
	if got := c.Syms.Get(c.Syms.Lookup("light")).Value; got != 0 {
		t.Errorf("first attribute is %d, want 0", got)
	}
	if got := c.Syms.Get(c.Syms.Lookup("open")).Value; got != 1 {
		t.Errorf("second attribute is %d, want 1", got)
	}
	// Property 0 is reserved.
	if got := c.Syms.Get(c.Syms.Lookup("weight")).Value; got != 1 {
		t.Errorf("first property is %d, want 1", got)
	}
	if got := c.Syms.Get(c.Syms.Lookup("value")).Value; got != 2 {
		t.Errorf("second property is %d, want 2", got)
	}
}

func TestStubCompilesWhenUndefined(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, "Stub Missing 2;\n[ Main; Missing(); ];")
	id := c.Syms.Lookup("Missing")
	if id < 0 {
		t.Fatal("stub routine not defined")
	}
	if c.Syms.Get(id).Type != RoutineSym {
		t.Errorf("stub has type %v", c.Syms.Get(id).Type)
	}
}

func TestStubYieldsToARealDefinition(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Stub Helper 0;
[ Helper; return 5; ];
[ Main; Helper(); ];
`)
	id := c.Syms.Lookup("Helper")
	if c.Syms.Get(id).Type != RoutineSym {
		t.Errorf("Helper has type %v", c.Syms.Get(id).Type)
	}
}

func TestUndefDirective(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `
Constant GONE = 1;
Undef GONE;
#Ifdef GONE;
Constant RESULT = 1;
#Ifnot;
Constant RESULT = 2;
#Endif;
[ Main; ];
`)
	if got := constantValueOf(t, c, "RESULT"); got != 2 {
		t.Errorf("RESULT = %d, want 2; Undef left the name visible", got)
	}
}

func TestReleaseAndSerial(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, "Release 7;\nSerial \"240101\";\n[ Main; ];")
	if c.Release != 7 {
		t.Errorf("release %d, want 7", c.Release)
	}
	if c.Serial != "240101" {
		t.Errorf("serial %q, want 240101", c.Serial)
	}
}

func TestVersionDirective(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, "Version 8;\n[ Main; ];")
	if c.Opts.Version != 8 {
		t.Errorf("version %d, want 8", c.Opts.Version)
	}
}

func TestUnknownDirectiveResyncs(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := "Object kitchen \"Kitchen\";\nConstant AFTER = 1;\n[ Main; ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount == 0 {
		t.Fatalf("Object accepted:\n%s", out.String())
	}
	// Compilation resumes at the next directive.
	if got := constantValueOf(t, c, "AFTER"); got != 1 {
		t.Errorf("AFTER = %d after resync, want 1", got)
	}
}

func TestDictionaryDirective(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, "Dictionary 'xyzzy' 'plugh';\n[ Main; ];")
	sorted, _ := c.Dict.Layout()
	if len(sorted) != 2 {
		t.Fatalf("%d dictionary words, want 2", len(sorted))
	}
	// Layout is sorted.
	if sorted[0] != "plugh" || sorted[1] != "xyzzy" {
		t.Errorf("dictionary order %v", sorted)
	}
}

func TestDictionaryTruncation(t *testing.T) {
	c, _ := newTestCompiler(TargetZ)
	c.Opts.DictWordSize = 9
	a := c.AddDictWord("extraordinarily")
	b := c.AddDictWord("extraordinary")
	if a != b {
		t.Errorf("words identical at dictionary resolution got entries %d and %d", a, b)
	}
}

func TestAbbreviateDirective(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, `Abbreviate ". " ", " "the ";`+"\n[ Main; ];")
	if len(c.Abbrevs) != 3 {
		t.Errorf("%d abbreviations, want 3", len(c.Abbrevs))
	}
}

func TestZcharacterRejectsOnGlulx(t *testing.T) {
	c, out := newTestCompiler(TargetGlulx)
	src := "Zcharacter table;\n[ Main; ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Errs.ErrorCount == 0 {
		t.Errorf("Zcharacter accepted on Glulx:\n%s", out.String())
	}
}
