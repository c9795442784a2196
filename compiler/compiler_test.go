package compiler

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/DavidKinder/Inform6-sub000/glulx"
	"github.com/DavidKinder/Inform6-sub000/zcode"
)

func newTestCompiler(target Target) (*Compiler, *bytes.Buffer) {
	var out bytes.Buffer
	c := NewCompiler(DefaultOptions(target), &out)
	return c, &out
}

func mustCompile(t *testing.T, target Target, src string) (*Compiler, *bytes.Buffer) {
	t.Helper()
	c, out := newTestCompiler(target)
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v\n%s", err, out.String())
	}
	if c.Errs.ErrorCount != 0 {
		t.Fatalf("unexpected errors:\n%s", out.String())
	}
	return c, out
}

func TestConstantExpressionFolds(t *testing.T) {
	c, _ := mustCompile(t, TargetZ, "Constant C = 2*(3+4);\n[ Main; ];")

	id := c.Syms.Lookup("c") // lookup is case-insensitive
	if id < 0 {
		t.Fatal("constant C not in the symbol table")
	}
	s := c.Syms.Get(id)
	if s.Value != 14 {
		t.Errorf("C = %d, want 14", s.Value)
	}
	if s.Type != ConstantSym {
		t.Errorf("C has type %v, want %v", s.Type, ConstantSym)
	}
	if s.Marker != NullMarker {
		t.Errorf("C carries marker %v, want none", s.Marker)
	}
}

func TestReplaceInSystemFile(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	c.IncludeOpen = func(name string) (io.Reader, error) {
		return strings.NewReader("System_file;\n[ Banner; return 1; ];\n"), nil
	}
	src := `
Replace Banner;
Include "library";
[ Banner; return 2; ];
[ Main; Banner(); ];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v\n%s", err, out.String())
	}
	if c.Errs.ErrorCount != 0 {
		t.Fatalf("unexpected errors:\n%s", out.String())
	}
	if strings.Contains(out.String(), "defined twice") {
		t.Errorf("replaced routine reported as a duplicate:\n%s", out.String())
	}

	id := c.Syms.Lookup("Banner")
	if id < 0 {
		t.Fatal("Banner not defined")
	}
	s := c.Syms.Get(id)
	if s.Type != RoutineSym {
		t.Fatalf("Banner has type %v, want %v", s.Type, RoutineSym)
	}
	// The system-file body was discarded, so the surviving definition
	// is the first routine compiled.
	if s.Value != 0 {
		t.Errorf("Banner at code offset %d, want 0", s.Value)
	}
}

func TestUnusedRoutineOmission(t *testing.T) {
	var out bytes.Buffer
	opts := DefaultOptions(TargetZ)
	opts.UnusedRoutines = RoutinesOmit
	c := NewCompiler(opts, &out)

	src := `
[ Helper; return 3; ];
[ Orphan; return 4; ];
[ Main; Helper(); ];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v\n%s", err, out.String())
	}
	img, err := c.Generate()
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out.String())
	}
	if len(img) == 0 {
		t.Fatal("empty image")
	}

	helper := c.Syms.Get(c.Syms.Lookup("Helper"))
	orphan := c.Syms.Get(c.Syms.Lookup("Orphan"))
	if c.Stripper.Omitted(helper.Value) {
		t.Error("called routine Helper was stripped")
	}
	if !c.Stripper.Omitted(orphan.Value) {
		t.Error("uncalled routine Orphan was kept")
	}
	if c.Stripper.StrippedSize(c.Asm.CodeSize()) >= c.Asm.CodeSize() {
		t.Error("stripping removed no code")
	}
}

func TestStrippedRoutineAddressIsACompilerError(t *testing.T) {
	var out bytes.Buffer
	opts := DefaultOptions(TargetZ)
	opts.UnusedRoutines = RoutinesOmit
	c := NewCompiler(opts, &out)

	src := "[ Orphan; ];\n[ Main; ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v\n%s", err, out.String())
	}
	c.Stripper.Compute()
	orphan := c.Syms.Get(c.Syms.Lookup("Orphan"))

	defer func() {
		p := recover()
		if p == nil {
			t.Fatal("the address of a stripped routine was resolved")
		}
		if _, ok := p.(fatalBail); !ok {
			panic(p)
		}
	}()
	c.Stripper.AddressForAddress(orphan.Value)
}

func TestUnusedRoutineWarning(t *testing.T) {
	var out bytes.Buffer
	opts := DefaultOptions(TargetZ)
	opts.UnusedRoutines = RoutinesWarn
	c := NewCompiler(opts, &out)

	src := "[ Orphan; ];\n[ Main; ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := c.Generate(); err != nil {
		t.Fatalf("generate: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Orphan") {
		t.Errorf("no warning about Orphan:\n%s", out.String())
	}
}

func TestZImageHeader(t *testing.T) {
	c, out := mustCompile(t, TargetZ, `
Global score = 0;
Constant GREETING = "hello";
[ Main; ];
`)
	img, err := c.Generate()
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out.String())
	}

	if img[zcode.HdrVersion] != 5 {
		t.Errorf("version byte %d, want 5", img[zcode.HdrVersion])
	}
	if len(img)%512 != 0 {
		t.Errorf("image length %d not a 512-byte multiple", len(img))
	}
	if got := zcode.Word(img, zcode.HdrRelease); got != 1 {
		t.Errorf("release %d, want 1", got)
	}
	if got := string(img[zcode.HdrSerial : zcode.HdrSerial+6]); got != "000000" {
		t.Errorf("serial %q, want 000000", got)
	}

	// The checksum covers everything after the header.
	if got, want := zcode.Word(img, zcode.HdrChecksum), zcode.Checksum(img); got != want {
		t.Errorf("checksum %#x, want %#x", got, want)
	}

	// The stored length is in scaled units and covers the file.
	length := int32(zcode.Word(img, zcode.HdrFileLength)) * zcode.LengthScale(5)
	if length < int32(len(img))-int32(zcode.LengthScale(5)) || length > int32(len(img)) {
		t.Errorf("stored length %d, file is %d bytes", length, len(img))
	}

	// Memory map ordering: dynamic below static below high.
	statics := zcode.Word(img, zcode.HdrStaticMem)
	high := zcode.Word(img, zcode.HdrHighMem)
	globals := zcode.Word(img, zcode.HdrGlobals)
	if !(globals < statics && statics <= high) {
		t.Errorf("memory map out of order: globals %#x static %#x high %#x",
			globals, statics, high)
	}
}

func TestZInitialPC(t *testing.T) {
	c, out := mustCompile(t, TargetZ, "[ Before; ];\n[ Main; Before(); ];")
	img, err := c.Generate()
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out.String())
	}
	pc := zcode.Word(img, zcode.HdrInitialPC)
	// Below v6 the initial PC is the first instruction, just past
	// Main's locals byte.
	if img[pc-1] != 0 {
		t.Errorf("byte before initial PC is %#x, want a zero locals count", img[pc-1])
	}
}

func TestGlulxImageHeader(t *testing.T) {
	c, out := mustCompile(t, TargetGlulx, "Global score = 0;\n[ Main; ];")
	img, err := c.Generate()
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out.String())
	}

	if got := glulx.Word(img, glulx.HdrMagic); got != glulx.Magic {
		t.Fatalf("magic %#x, want %#x", got, glulx.Magic)
	}
	if got := glulx.Word(img, glulx.HdrVersion); got != glulx.Version {
		t.Errorf("version %#x, want %#x", got, glulx.Version)
	}

	ramStart := glulx.Word(img, glulx.HdrRAMStart)
	if ramStart%glulx.PageSize != 0 {
		t.Errorf("RAMSTART %#x not page-aligned", ramStart)
	}
	if got := glulx.Word(img, glulx.HdrExtStart); got != uint32(len(img)) {
		t.Errorf("EXTSTART %#x, want the file size %#x", got, len(img))
	}
	if end := glulx.Word(img, glulx.HdrEndMem); end < uint32(len(img)) {
		t.Errorf("ENDMEM %#x below the file size", end)
	}
	if got, want := glulx.Word(img, glulx.HdrChecksum), glulx.Checksum(img); got != want {
		t.Errorf("checksum %#x, want %#x", got, want)
	}

	// The start function must begin with a function-type byte.
	start := glulx.Word(img, glulx.HdrStartFunc)
	if img[start] != 0xC1 {
		t.Errorf("start function type byte %#x, want 0xC1", img[start])
	}
}

func TestMissingMain(t *testing.T) {
	c, out := mustCompile(t, TargetZ, "[ Helper; ];")
	if _, err := c.Generate(); err == nil {
		t.Fatal("generate succeeded without Main")
	}
	if !strings.Contains(out.String(), "Main") {
		t.Errorf("no mention of Main in diagnostics:\n%s", out.String())
	}
}

func TestUndefinedSymbolReportedOnce(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := "[ Main; Missing(); Missing(); ];"
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := c.Generate(); err == nil {
		t.Fatal("generate succeeded with an undefined routine")
	}
	if n := strings.Count(out.String(), "never defined"); n != 1 {
		t.Errorf("undefined-symbol error issued %d times, want 1:\n%s", n, out.String())
	}
}
