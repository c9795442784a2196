package compiler

import (
	"io"
	"testing"
)

func newTestLexer(src string) (*Lexer, *Options) {
	opts := DefaultOptions(TargetZ)
	errs := NewErrors(io.Discard)
	syms := NewSymbolTable(errs, &opts)
	lx := NewLexer(errs, &opts, syms)
	lx.PushString(src, 1)
	return lx, &opts
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want int32
	}{
		{"0", 0},
		{"10", 10},
		{"32767", 32767},
		{"$ff", 255},
		{"$4e", 78},
		{"$$1011", 11},
		{"$$0", 0},
		{"'x'", 120},
		{"'@@64'", 64},
	}
	for _, tt := range tests {
		lx, _ := newTestLexer(tt.src)
		tok := lx.Get()
		if tok.Kind != SmallNumberTok && tok.Kind != LargeNumberTok {
			t.Errorf("%q lexed as %v, want a number", tt.src, tok.Kind)
			continue
		}
		if tok.Value != tt.want {
			t.Errorf("%q = %d, want %d", tt.src, tok.Value, tt.want)
		}
	}
}

func TestDictionaryWordToken(t *testing.T) {
	lx, _ := newTestLexer("'sword'")
	tok := lx.Get()
	if tok.Kind != SQTok {
		t.Fatalf("kind %v, want %v", tok.Kind, SQTok)
	}
	if tok.Text != "sword" {
		t.Errorf("text %q, want %q", tok.Text, "sword")
	}
	if tok.Marker != DWordMarker {
		t.Errorf("marker %v, want %v", tok.Marker, DWordMarker)
	}
}

func TestPutBack(t *testing.T) {
	lx, _ := newTestLexer("alpha beta")
	first := *lx.Get()
	lx.PutBack()
	again := *lx.Get()
	if again.Kind != first.Kind || again.Text != first.Text {
		t.Errorf("put-back token %v %q, want %v %q",
			again.Kind, again.Text, first.Kind, first.Text)
	}
	next := lx.Get()
	if next.Text != "beta" {
		t.Errorf("token after put-back replay is %q, want %q", next.Text, "beta")
	}
}

func TestTokenTextsSurviveTheCircle(t *testing.T) {
	lx, _ := newTestLexer("one two three four")
	a := lx.Get()
	textA := a.Text
	// Reading further tokens must not disturb an earlier token's text
	// until the texts are released.
	lx.Get()
	lx.Get()
	if textA != "one" {
		t.Errorf("first token text became %q", textA)
	}
	lx.ReleaseTokenTexts()
	last := lx.Get()
	if last.Text != "four" {
		t.Errorf("token after release is %q, want %q", last.Text, "four")
	}
}

func TestKeywordContexts(t *testing.T) {
	lx, _ := newTestLexer("Constant")
	lx.Context = DirectivesEnabled
	if tok := lx.Get(); tok.Kind != DirectiveTok {
		t.Errorf("Constant with directives enabled lexed as %v", tok.Kind)
	}

	lx, _ = newTestLexer("Constant")
	lx.Context = 0
	if tok := lx.Get(); tok.Kind != SymbolTok {
		t.Errorf("Constant with no keywords enabled lexed as %v", tok.Kind)
	}

	lx, _ = newTestLexer("print")
	lx.Context = StatementsEnabled
	if tok := lx.Get(); tok.Kind != StatementTok {
		t.Errorf("print with statements enabled lexed as %v", tok.Kind)
	}
}

func TestOpcodeNamesNeedTheirContext(t *testing.T) {
	// Opcode names are plain identifiers except straight after '@'.
	lx, _ := newTestLexer("add")
	lx.Context = StatementsEnabled
	if tok := lx.Get(); tok.Kind != SymbolTok {
		t.Errorf("add outside assembly lexed as %v", tok.Kind)
	}

	lx, _ = newTestLexer("add")
	lx.Context = OpcodesEnabled
	if tok := lx.Get(); tok.Kind != OpcodeTok {
		t.Errorf("add in assembly lexed as %v", tok.Kind)
	}
}

func TestCommentsAndWhitespace(t *testing.T) {
	lx, _ := newTestLexer("alpha ! the rest is commentary\nbeta")
	if tok := lx.Get(); tok.Text != "alpha" {
		t.Fatalf("first token %q", tok.Text)
	}
	if tok := lx.Get(); tok.Text != "beta" {
		t.Errorf("token after comment is %q, want %q", tok.Text, "beta")
	}
	if tok := lx.Get(); tok.Kind != EOFTok {
		t.Errorf("expected end of file, got %v", tok.Kind)
	}
}

func TestStringNewlineFolding(t *testing.T) {
	lx, _ := newTestLexer("\"two\nlines\"")
	tok := lx.Get()
	if tok.Kind != DQTok {
		t.Fatalf("kind %v, want %v", tok.Kind, DQTok)
	}
	if tok.Text != "two lines" {
		t.Errorf("text %q, want %q", tok.Text, "two lines")
	}
}

func TestSeparators(t *testing.T) {
	tests := []struct {
		src  string
		want int32
	}{
		{"-->", SepDArrow},
		{"->", SepArrow},
		{"--", SepDec},
		{"-", SepMinus},
		{"~=", SepNotEqual},
		{"~~", SepLogNot},
		{"==", SepCondEqual},
		{"=", SepSetEqual},
		{"..", SepSuper},
		{".", SepProperty},
		{";", SepSemicolon},
	}
	for _, tt := range tests {
		lx, _ := newTestLexer(tt.src)
		tok := lx.Get()
		if tok.Kind != SepTok {
			t.Errorf("%q lexed as %v, want a separator", tt.src, tok.Kind)
			continue
		}
		if tok.Value != tt.want {
			t.Errorf("%q = separator %d, want %d", tt.src, tok.Value, tt.want)
		}
	}
}
