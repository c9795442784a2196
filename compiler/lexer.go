package compiler

import (
	"fmt"
	"io"
	"math"
	"strconv"
)

// CircleSize is the token look-back depth. The expression parser never
// reaches back further than five tokens, so six slots suffice.
const CircleSize = 6

// lookahead is the character pipeline depth beyond the current
// character; the tokeniser is LR(3).
const lookahead = 3

// fileBufSize is the per-include read buffer size.
const fileBufSize = 4096

// sourceFrame is one entry of the include stack.
type sourceFrame struct {
	fileno int
	line   int
	r      io.Reader
	buf    []byte
	pos, n int
	eof    bool
	system bool // pushed by a System_file inclusion

	// pending delivers the newline inserted at pop time followed by
	// the lookahead characters saved when a child file was pushed.
	pending []byte
}

// Lexer turns the character pipeline into the token circle.
type Lexer struct {
	errs *Errors
	opts *Options
	syms *SymbolTable

	cur byte
	la  [lookahead]byte

	frames []*sourceFrame
	unget  byte // CR-LF normalisation spill
	hasUnget bool

	circle    [CircleSize]Token
	circlePos int
	putBack   int

	// Context enables keyword groups for identifier resolution.
	Context uint32

	// LocalVars is the current routine's local variable names, checked
	// before any keyword group.
	LocalVars []string

	// pool counts live lexeme buffers between ReleaseTokenTexts calls.
	poolLive int

	totalChars int
}

// NewLexer builds a lexer over an empty source; the driver pushes
// files onto it.
func NewLexer(errs *Errors, opts *Options, syms *SymbolTable) *Lexer {
	lx := &Lexer{errs: errs, opts: opts, syms: syms}
	for i := range lx.circle {
		lx.circle[i].SymIndex = -1
	}
	return lx
}

// PushFile stacks a new source file. The pipeline lookahead belonging
// to the including file is saved and will be restored, preceded by a
// newline, when this file is exhausted.
func (lx *Lexer) PushFile(fileno int, r io.Reader, system bool) {
	if len(lx.frames) > 0 {
		parent := lx.frames[len(lx.frames)-1]
		parent.pending = append([]byte{'\n', lx.cur, lx.la[0], lx.la[1], lx.la[2]}, parent.pending...)
	}
	f := &sourceFrame{fileno: fileno, line: 1, r: r, buf: make([]byte, fileBufSize), system: system}
	lx.frames = append(lx.frames, f)
	lx.prime()
}

// PushString feeds source from a string, as used for veneer routines.
func (lx *Lexer) PushString(src string, fileno int) {
	lx.PushFile(fileno, &stringReader{s: src}, true)
}

type stringReader struct {
	s   string
	pos int
}

func (sr *stringReader) Read(p []byte) (int, error) {
	if sr.pos >= len(sr.s) {
		return 0, io.EOF
	}
	n := copy(p, sr.s[sr.pos:])
	sr.pos += n
	return n, nil
}

// MarkSystemFile flags the current source frame as a system file, as
// directed by a System_file directive inside it.
func (lx *Lexer) MarkSystemFile() {
	if len(lx.frames) > 0 {
		lx.frames[len(lx.frames)-1].system = true
	}
}

// InSystemFile reports whether the current source frame came from a
// System_file inclusion.
func (lx *Lexer) InSystemFile() bool {
	for i := len(lx.frames) - 1; i >= 0; i-- {
		if lx.frames[i].system {
			return true
		}
	}
	return false
}

// prime fills cur and the lookahead after a push onto an empty stack,
// or refills the lookahead from the new top frame.
func (lx *Lexer) prime() {
	lx.cur = lx.normChar()
	for i := range lx.la {
		lx.la[i] = lx.normChar()
	}
}

// rawByte pulls the next source byte, handling include-stack pops.
// Zero means end of all input.
func (lx *Lexer) rawByte() byte {
	if lx.hasUnget {
		lx.hasUnget = false
		return lx.unget
	}
	for len(lx.frames) > 0 {
		f := lx.frames[len(lx.frames)-1]
		if len(f.pending) > 0 {
			b := f.pending[0]
			f.pending = f.pending[1:]
			return b
		}
		if f.pos < f.n {
			b := f.buf[f.pos]
			f.pos++
			return b
		}
		if !f.eof {
			n, err := f.r.Read(f.buf)
			f.pos, f.n = 0, n
			if err != nil || n == 0 {
				f.eof = true
			}
			continue
		}
		lx.frames = lx.frames[:len(lx.frames)-1]
	}
	return 0
}

// normChar reads one byte with newline normalisation: CR and CR-LF
// become LF, formfeed is treated as CR.
func (lx *Lexer) normChar() byte {
	b := lx.rawByte()
	if b == '\f' {
		b = '\r'
	}
	if b == '\r' {
		next := lx.rawByte()
		if next != '\n' && next != 0 {
			lx.unget = next
			lx.hasUnget = true
		}
		return '\n'
	}
	return b
}

// advance consumes the current character and shifts the pipeline.
func (lx *Lexer) advance() {
	if lx.cur == '\n' && len(lx.frames) > 0 {
		lx.frames[len(lx.frames)-1].line++
	}
	lx.totalChars++
	lx.cur = lx.la[0]
	lx.la[0] = lx.la[1]
	lx.la[1] = lx.la[2]
	lx.la[2] = lx.normChar()
}

func (lx *Lexer) atEOF() bool {
	return lx.cur == 0 && lx.la[0] == 0 && lx.la[1] == 0 && lx.la[2] == 0
}

func (lx *Lexer) here() Loc {
	if len(lx.frames) == 0 {
		return lx.errs.Current
	}
	f := lx.frames[len(lx.frames)-1]
	return Loc{File: f.fileno, Line: f.line}
}

// Get returns the next token, either a put-back one or a fresh one.
func (lx *Lexer) Get() *Token {
	lx.circlePos = (lx.circlePos + 1) % CircleSize
	t := &lx.circle[lx.circlePos]
	if lx.putBack > 0 {
		lx.putBack--
		return t
	}
	lx.lex(t)
	if lx.opts.TraceLex {
		fmt.Fprintf(lx.errs.Out, "| token %s %q value %d\n", t.Kind, t.Text, t.Value)
	}
	return t
}

// PutBack returns the most recently delivered token to the circle.
// Up to CircleSize-1 tokens may be pending at once.
func (lx *Lexer) PutBack() {
	lx.putBack++
	lx.circlePos = (lx.circlePos - 1 + CircleSize) % CircleSize
	if lx.putBack >= CircleSize {
		lx.errs.CompilerError("token circle exhausted by put-backs")
	}
}

// ReleaseTokenTexts marks a statement or directive boundary: lexeme
// buffers not referenced by a put-back token become reusable. Texts of
// put-back tokens stay valid across the call.
func (lx *Lexer) ReleaseTokenTexts() {
	lx.poolLive = lx.putBack
}

func (lx *Lexer) skipToContent() {
	for {
		switch {
		case lx.cur == '!':
			for lx.cur != '\n' && !lx.atEOF() {
				lx.advance()
			}
		case lx.cur == ' ' || lx.cur == '\t' || lx.cur == '\n':
			lx.advance()
		default:
			return
		}
	}
}

func isIDStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIDChar(c byte) bool {
	return isIDStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// lex reads one fresh token into t.
func (lx *Lexer) lex(t *Token) {
	lx.skipToContent()

	*t = Token{SymIndex: -1, Context: lx.Context, Loc: lx.here()}
	lx.errs.Current = t.Loc
	lx.poolLive++

	switch {
	case lx.atEOF():
		t.Kind = EOFTok

	case isDigit(lx.cur):
		lx.lexDecimal(t)

	case lx.cur == '$':
		lx.lexDollar(t)

	case isIDStart(lx.cur):
		lx.lexIdentifier(t)

	case lx.cur == '\'':
		lx.lexQuoted(t)

	case lx.cur == '"':
		lx.lexString(t)

	case lx.cur == '#' && (isIDStart(lx.la[0]) || lx.la[0] == '#' ||
		(lx.la[1] == '$' && (lx.la[0] == 'g' || lx.la[0] == 'n' || lx.la[0] == 'r' || lx.la[0] == 'a' || lx.la[0] == 'w'))):
		lx.lexHash(t)

	default:
		lx.lexSeparator(t)
	}
}

func (lx *Lexer) lexDecimal(t *Token) {
	var buf []byte
	var v int64
	for isDigit(lx.cur) {
		v = v*10 + int64(lx.cur-'0')
		if v > math.MaxInt32 {
			lx.errs.Error("number exceeds the 32-bit range")
			v = 0
		}
		buf = append(buf, lx.cur)
		lx.advance()
	}
	lx.setNumber(t, int32(v), string(buf))
}

func (lx *Lexer) setNumber(t *Token, v int32, text string) {
	t.Value = v
	t.Text = text
	if v >= math.MinInt16 && v <= math.MaxInt16 {
		t.Kind = SmallNumberTok
	} else {
		t.Kind = LargeNumberTok
	}
}

// lexDollar handles $hex, $$binary and the float forms $+, $<+, $>+.
func (lx *Lexer) lexDollar(t *Token) {
	lx.advance() // '$'
	switch {
	case lx.cur == '$':
		lx.advance()
		var buf []byte
		var v int64
		for lx.cur == '0' || lx.cur == '1' {
			v = v<<1 | int64(lx.cur-'0')
			buf = append(buf, lx.cur)
			lx.advance()
		}
		if len(buf) == 0 {
			lx.errs.Error("binary number expected after '$$'")
		}
		lx.setNumber(t, int32(uint32(v)), "$$"+string(buf))

	case lx.cur == '+' || ((lx.cur == '<' || lx.cur == '>') && lx.la[0] == '+'):
		lx.lexFloat(t)

	case isHexDigit(lx.cur):
		var buf []byte
		var v uint64
		for isHexDigit(lx.cur) {
			v = v<<4 | uint64(hexVal(lx.cur))
			buf = append(buf, lx.cur)
			lx.advance()
		}
		if v > math.MaxUint32 {
			lx.errs.Error("hexadecimal number exceeds the 32-bit range")
			v = 0
		}
		lx.setNumber(t, int32(uint32(v)), "$"+string(buf))

	default:
		lx.errs.Error("'$' must be followed by a hexadecimal number")
		lx.setNumber(t, 0, "$")
	}
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

// lexFloat converts $+digits.digitsEexp at lex time. The plain form
// yields 32-bit IEEE754 bits; $<+ and $>+ yield the low and high words
// of the 64-bit pattern.
func (lx *Lexer) lexFloat(t *Token) {
	half := byte(0)
	if lx.cur == '<' || lx.cur == '>' {
		half = lx.cur
		lx.advance()
	}
	lx.advance() // '+'
	var buf []byte
	readDigits := func() {
		for isDigit(lx.cur) {
			buf = append(buf, lx.cur)
			lx.advance()
		}
	}
	readDigits()
	if lx.cur == '.' {
		buf = append(buf, '.')
		lx.advance()
		readDigits()
	}
	if lx.cur == 'e' || lx.cur == 'E' {
		buf = append(buf, 'e')
		lx.advance()
		if lx.cur == '+' || lx.cur == '-' {
			buf = append(buf, lx.cur)
			lx.advance()
		}
		readDigits()
	}
	f, err := strconv.ParseFloat(string(buf), 64)
	if err != nil {
		lx.errs.Error("malformed floating-point constant")
		f = 0
	}
	var v uint32
	switch half {
	case '<':
		v = uint32(math.Float64bits(f))
	case '>':
		v = uint32(math.Float64bits(f) >> 32)
	default:
		v = math.Float32bits(float32(f))
	}
	t.Kind = LargeNumberTok
	t.Value = int32(v)
	t.Text = "$+" + string(buf)
}

// lexIdentifier accumulates a name and resolves it: local variables
// first, then whichever keyword groups the context enables, then the
// symbol table.
func (lx *Lexer) lexIdentifier(t *Token) {
	var buf []byte
	for isIDChar(lx.cur) {
		buf = append(buf, lx.cur)
		lx.advance()
	}
	name := string(buf)
	t.Text = name
	folded := fold(name)

	if lx.Context&LocalVarsEnabled != 0 {
		for i, lv := range lx.LocalVars {
			if fold(lv) == folded {
				t.Kind = LocalVarTok
				t.Value = int32(i + 1) // variable 0 is the stack
				return
			}
		}
	}
	if lx.Context&DirectivesEnabled != 0 {
		if d, ok := directiveNames[folded]; ok {
			t.Kind = DirectiveTok
			t.Value = int32(d)
			return
		}
	}
	if lx.Context&StatementsEnabled != 0 {
		if s, ok := statementNames[folded]; ok {
			t.Kind = StatementTok
			t.Value = int32(s)
			return
		}
	}
	if lx.Context&OpcodesEnabled != 0 {
		t.Kind = OpcodeTok
		return // the assembler resolves the mnemonic per target
	}
	if lx.Context&SystemFunsEnabled != 0 {
		if f, ok := systemFunNames[folded]; ok {
			t.Kind = SystemFunTok
			t.Value = int32(f)
			return
		}
	}
	if lx.Context&SystemConstsEnabled != 0 {
		if c, ok := systemConstNames[folded]; ok {
			t.Kind = SystemConstTok
			t.Value = int32(c)
			t.Marker = InconMarker
			return
		}
	}
	id := lx.syms.Index(name)
	t.Kind = SymbolTok
	t.Value = int32(id)
	t.SymIndex = id
}

// lexQuoted handles single-quoted literals: a single character becomes
// a number, anything longer a dictionary word.
func (lx *Lexer) lexQuoted(t *Token) {
	lx.advance() // opening quote
	var buf []byte
	for lx.cur != '\'' && lx.cur != '\n' && !lx.atEOF() {
		if lx.cur == '@' && lx.la[0] == '@' {
			// @@nnn decimal character escape
			lx.advance()
			lx.advance()
			var v int
			for isDigit(lx.cur) {
				v = v*10 + int(lx.cur-'0')
				lx.advance()
			}
			buf = append(buf, byte(v))
			continue
		}
		buf = append(buf, lx.cur)
		lx.advance()
	}
	if lx.cur != '\'' {
		lx.errs.Error("unterminated quoted text")
	} else {
		lx.advance()
	}
	switch len(buf) {
	case 0:
		lx.errs.Error("empty quoted character")
		t.Kind = SmallNumberTok
	case 1:
		lx.setNumber(t, int32(buf[0]), string(buf))
	default:
		t.Kind = SQTok
		t.Text = string(buf)
		t.Marker = DWordMarker
	}
}

// lexString reads a double-quoted string. A literal newline collapses
// to a space unless the last emitted character was the soft-newline
// '^'; a backslash at end of line swallows following whitespace
// including at most one newline.
func (lx *Lexer) lexString(t *Token) {
	lx.advance() // opening quote
	var buf []byte
	for lx.cur != '"' {
		if lx.atEOF() {
			lx.errs.Error("unterminated string")
			break
		}
		switch {
		case lx.cur == '\n':
			if len(buf) > 0 && buf[len(buf)-1] == '^' {
				lx.advance()
				continue
			}
			buf = append(buf, ' ')
			lx.advance()
			for lx.cur == ' ' || lx.cur == '\t' {
				lx.advance()
			}
		case lx.cur == '\\':
			lx.advance()
			newlines := 0
			for lx.cur == ' ' || lx.cur == '\t' || (lx.cur == '\n' && newlines == 0) {
				if lx.cur == '\n' {
					newlines++
				}
				lx.advance()
			}
		default:
			buf = append(buf, lx.cur)
			lx.advance()
		}
	}
	lx.advance() // closing quote
	t.Kind = DQTok
	t.Text = string(buf)
}

// lexHash handles the '#'-prefixed token forms.
func (lx *Lexer) lexHash(t *Token) {
	lx.advance() // '#'
	switch {
	case lx.cur == '#': // ##Name: action literal
		lx.advance()
		if !isIDStart(lx.cur) {
			lx.errs.Error("action name expected after '##'")
			t.Kind = UErrorTok
			return
		}
		name := lx.readName()
		t.Kind = ActionLiteralTok
		t.Text = name
		t.Marker = ActionMarker

	case lx.la[0] == '$' && (lx.cur == 'g' || lx.cur == 'n' || lx.cur == 'r' || lx.cur == 'a' || lx.cur == 'w'):
		kind := lx.cur
		lx.advance() // letter
		lx.advance() // '$'
		name := lx.readName()
		t.Text = name
		switch kind {
		case 'g':
			t.Kind = LargeNumberTok
			t.Marker = VariableMarker
		case 'n', 'w':
			t.Kind = SQTok
			t.Marker = DWordMarker
		case 'r':
			id := lx.syms.Index(name)
			t.Kind = LargeNumberTok
			t.SymIndex = id
			t.Value = int32(id)
			t.Marker = RoutineMarker
		case 'a':
			t.Kind = ActionLiteralTok
			t.Marker = ActionMarker
		}

	default: // #Directive, or #constant_name for a system constant
		name := lx.readName()
		if d, ok := directiveNames[fold(name)]; ok {
			t.Kind = DirectiveTok
			t.Value = int32(d)
			t.Text = name
			return
		}
		if c, ok := systemConstNames[fold(name)]; ok {
			t.Kind = SystemConstTok
			t.Value = int32(c)
			t.Text = name
			t.Marker = InconMarker
			return
		}
		lx.errs.Error("no such system constant as %q", name)
		t.Kind = UErrorTok
		t.Text = name
	}
}

func (lx *Lexer) readName() string {
	var buf []byte
	for isIDChar(lx.cur) {
		buf = append(buf, lx.cur)
		lx.advance()
	}
	return string(buf)
}

// lexSeparator matches through the dispatch grid, preferring the
// longest separator that fits the pipeline.
func (lx *Lexer) lexSeparator(t *Token) {
	g := sepGrid[lx.cur]
	if g.start < 0 {
		lx.errs.Error("illegal character %q in source", string(rune(lx.cur)))
		lx.advance()
		t.Kind = UErrorTok
		return
	}
	best := -1
	bestLen := 0
	window := [lookahead + 1]byte{lx.cur, lx.la[0], lx.la[1], lx.la[2]}
	for i := g.start; i < g.start+g.count; i++ {
		s := separators[i]
		if len(s) > len(window) {
			continue
		}
		match := true
		for j := 0; j < len(s); j++ {
			if window[j] != s[j] {
				match = false
				break
			}
		}
		if match && len(s) > bestLen {
			best, bestLen = i, len(s)
		}
	}
	if best < 0 {
		lx.errs.Error("illegal character %q in source", string(rune(lx.cur)))
		lx.advance()
		t.Kind = UErrorTok
		return
	}
	for j := 0; j < bestLen; j++ {
		lx.advance()
	}
	t.Kind = SepTok
	t.Value = int32(best)
	t.Text = separators[best]
}
