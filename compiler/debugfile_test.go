package compiler

import (
	"bytes"
	"testing"
)

func TestDebugStreamLayout(t *testing.T) {
	c, out := newTestCompiler(TargetZ)
	src := `
Global score = 0;
[ Helper x; return x + 1; ];
[ Main; return Helper(41); ];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v\n%s", err, out.String())
	}
	img, err := c.Generate()
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out.String())
	}

	var buf bytes.Buffer
	if err := c.WriteDebug(&buf, img); err != nil {
		t.Fatalf("write debug: %v", err)
	}
	b := buf.Bytes()

	if len(b) < 5 || b[0] != 0xDE || b[1] != 0xBF {
		t.Fatalf("bad magic: % x", b[:4])
	}
	if b[2] != 0 || b[3] != 1 {
		t.Errorf("format version = %d, want 1", int(b[2])<<8|int(b[3]))
	}
	if b[len(b)-1] != 0 {
		t.Errorf("stream does not end with the EOF tag: % x", b[len(b)-8:])
	}

	for _, name := range []string{"test.inf", "score", "Helper", "Main"} {
		if !bytes.Contains(b, append([]byte(name), 0)) {
			t.Errorf("no record names %q", name)
		}
	}

	// The HEADER record echoes the story file header verbatim.
	if !bytes.Contains(b, img[:64]) {
		t.Error("header record does not carry the image header bytes")
	}
}

func TestDebugStreamSkipsStrippedRoutines(t *testing.T) {
	var out bytes.Buffer
	opts := DefaultOptions(TargetZ)
	opts.UnusedRoutines = RoutinesOmit
	c := NewCompiler(opts, &out)

	src := `
[ Orphan; return 4; ];
[ Main; return 1; ];
`
	if err := c.CompileString("test.inf", src); err != nil {
		t.Fatalf("compile: %v\n%s", err, out.String())
	}
	img, err := c.Generate()
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out.String())
	}

	var buf bytes.Buffer
	if err := c.WriteDebug(&buf, img); err != nil {
		t.Fatalf("write debug: %v", err)
	}
	b := buf.Bytes()
	if bytes.Contains(b, append([]byte("Orphan"), 0)) {
		t.Error("stripped routine Orphan has a debug record")
	}
	if !bytes.Contains(b, append([]byte("Main"), 0)) {
		t.Error("kept routine Main has no debug record")
	}
}
