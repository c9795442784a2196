package compiler

import (
	"bytes"
	"testing"
)

func TestPatchTableApply(t *testing.T) {
	pt := NewPatchTable()
	code := []byte{0x00, 0x00, 0x07, 0x00, 0x01}
	pt.Add(StringMarker, 2, 1)
	pt.Add(VariableMarker, 1, 4)

	errs := NewErrors(&bytes.Buffer{})
	pt.Apply(code, nil, errs, func(p Patch, cur int32) int32 {
		switch p.Marker {
		case StringMarker:
			if cur != 7 {
				t.Errorf("string record read %d, want 7", cur)
			}
			return 0x1234
		case VariableMarker:
			return cur + 15
		}
		t.Errorf("unexpected marker %v", p.Marker)
		return cur
	})

	if code[1] != 0x12 || code[2] != 0x34 {
		t.Errorf("word patch wrote % x", code[1:3])
	}
	if code[4] != 16 {
		t.Errorf("byte patch wrote %d, want 16", code[4])
	}
	if errs.ErrorCount != 0 {
		t.Error("apply reported errors")
	}
}

func TestPatchOutsideTheClosedSetIsACompilerError(t *testing.T) {
	pt := NewPatchTable()
	pt.Add(DeletedMarker, 2, 0)
	errs := NewErrors(&bytes.Buffer{})
	code := []byte{0, 0}

	defer func() {
		p := recover()
		if p == nil {
			t.Fatal("out-of-set marker did not stop compilation")
		}
		if _, ok := p.(fatalBail); !ok {
			panic(p)
		}
	}()
	pt.Apply(code, nil, errs, func(p Patch, cur int32) int32 { return cur })
}

func TestApplyDropsRecordsInStrippedRoutines(t *testing.T) {
	var out bytes.Buffer
	opts := DefaultOptions(TargetZ)
	opts.UnusedRoutines = RoutinesOmit
	c := NewCompiler(opts, &out)

	// Two routines: Orphan holds a string reference and is never
	// called, so its record must vanish rather than be applied at a
	// displaced address.
	src := `
[ Orphan; print "lost"; ];
[ Main; ];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v", err)
	}
	c.Stripper.Compute()

	orphan := c.Syms.Get(c.Syms.Lookup("Orphan"))
	if !c.Stripper.Omitted(orphan.Value) {
		t.Fatal("Orphan was not stripped")
	}

	code := make([]byte, c.Asm.CodeSize())
	copy(code, c.Asm.CodeBytes())
	applied := 0
	c.Asm.Patches().Apply(code, c.Stripper, c.Errs, func(p Patch, cur int32) int32 {
		applied++
		return cur
	})
	if applied != 0 {
		t.Errorf("%d records applied from a stripped routine, want 0", applied)
	}
}

func TestPatchRecordFormats(t *testing.T) {
	pt := NewPatchTable()
	pt.Add(StringMarker, 2, 0x103)

	errs := NewErrors(&bytes.Buffer{})
	z := pt.BytesZ(errs)
	if len(z) != 3 {
		t.Fatalf("Z record is %d bytes, want 3", len(z))
	}
	if Marker(z[0]&0x3F) != StringMarker {
		t.Errorf("Z record marker byte %#x", z[0])
	}
	if got := int32(z[1])<<8 | int32(z[2]); got != 0x103 {
		t.Errorf("Z record PC %#x, want 0x103", got)
	}

	g := pt.BytesG()
	if len(g) != 6 {
		t.Fatalf("Glulx record is %d bytes, want 6", len(g))
	}
	if Marker(g[0]) != StringMarker || g[1] != 2 {
		t.Errorf("Glulx record head % x", g[:2])
	}
	if got := int32(g[2])<<24 | int32(g[3])<<16 | int32(g[4])<<8 | int32(g[5]); got != 0x103 {
		t.Errorf("Glulx record PC %#x, want 0x103", got)
	}
}
