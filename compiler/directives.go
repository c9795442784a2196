package compiler

import "strings"

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// condFrame is one entry of the conditional-compilation stack. A frame
// is pushed for every If-family directive, whichever way it went.
type condFrame struct {
	sawIfnot bool
}

// run is the directive loop: the outer driver of a compilation pass.
// Source has already been pushed onto the lexer.
func (c *Compiler) run() {
	lx := c.Lex
	lx.Context = DirectivesEnabled
	for !c.ended {
		t := lx.Get()
		switch {
		case t.Kind == EOFTok:
			if len(c.condStack) > 0 {
				c.Errs.Error("end of file inside an 'If...' block")
			}
			return

		case isSep(t, SepSemicolon):
			// Empty directive.

		case isSep(t, SepOpenSB):
			c.routineDefinition()

		case t.Kind == DirectiveTok:
			c.directive(int(t.Value))

		default:
			c.Errs.Error("expected a directive or '[' but found %q", t.Text)
			c.dirResync()
		}
		lx.ReleaseTokenTexts()
	}
}

func (c *Compiler) directive(code int) {
	switch code {
	case DirConstant:
		c.constantDirective(false)
	case DirDefault:
		c.constantDirective(true)
	case DirGlobal:
		c.globalDirective()
	case DirArray:
		c.arrayDirective()
	case DirAttribute:
		c.attributeDirective()
	case DirProperty:
		c.propertyDirective()
	case DirFakeAction:
		c.fakeActionDirective()
	case DirReplace:
		c.replaceDirective()
	case DirStub:
		c.stubDirective()
	case DirUndef:
		c.undefDirective()

	case DirIfdef, DirIfndef, DirIftrue, DirIffalse, DirIfv3, DirIfv5:
		c.ifDirective(code)
	case DirIfnot:
		c.ifnotDirective()
	case DirEndif:
		c.endifDirective()

	case DirInclude:
		c.includeDirective()
	case DirSystemFile:
		c.Lex.MarkSystemFile()
		c.expectDirSemicolon("System_file")
	case DirRelease:
		c.releaseDirective()
	case DirSerial:
		c.serialDirective()
	case DirVersion:
		c.versionDirective()
	case DirSwitches:
		c.switchesDirective()
	case DirStatusline:
		c.statuslineDirective()

	case DirAbbreviate:
		c.abbreviateDirective()
	case DirZcharacter:
		c.zcharacterDirective()
	case DirDictionary:
		c.dictionaryDirective()
	case DirLowstring:
		c.lowstringDirective()
	case DirOrigsource:
		c.origsourceDirective()
	case DirMessage:
		c.messageDirective()
	case DirTrace:
		c.traceDirective()

	case DirEnd:
		c.ended = true

	default:
		// Object, Class, Nearby, Verb, Extend, Link: the object and
		// grammar builders live outside this core.
		c.Errs.Error("the %q directive is not handled by this compiler core",
			directiveName(code))
		c.dirResync()
	}
}

func directiveName(code int) string {
	for name, v := range directiveNames {
		if v == code {
			return titleCase(name)
		}
	}
	return "???"
}

// expectDirSemicolon consumes the ';' ending a directive, diagnosing
// and resynchronising when it is missing.
func (c *Compiler) expectDirSemicolon(dir string) {
	t := c.Lex.Get()
	if isSep(t, SepSemicolon) {
		return
	}
	if t.Kind == EOFTok {
		c.Lex.PutBack()
		return
	}
	c.Errs.Error("expected ';' after the %s directive but found %q", dir, t.Text)
	c.Lex.PutBack()
	c.dirResync()
}

// dirResync is panic-mode recovery: skip to the ';' ending the failed
// directive, stepping over any bracketed material.
func (c *Compiler) dirResync() {
	depth := 0
	for {
		t := c.Lex.Get()
		switch {
		case t.Kind == EOFTok:
			c.Lex.PutBack()
			return
		case isSep(t, SepOpenSB), isSep(t, SepOpenBrace):
			depth++
		case isSep(t, SepCloseSB), isSep(t, SepCloseBrace):
			if depth > 0 {
				depth--
			}
		case isSep(t, SepSemicolon):
			if depth == 0 {
				return
			}
		}
		c.Lex.ReleaseTokenTexts()
	}
}

// ---------------------------------------------------------------------
// Routine definitions

// routineDefinition handles '[' Name locals ';' body '];' at the top
// level. The name is assigned its code offset before the body is
// compiled so recursion resolves without a fixup.
func (c *Compiler) routineDefinition() {
	lx := c.Lex
	t := lx.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a routine name after '[' but found %q", t.Text)
		c.skipRoutineBody()
		c.expectDirSemicolon("routine")
		return
	}
	name, id := t.Text, t.SymIndex
	s := c.Syms.Get(id)

	// A Replace'd routine keeps the user's body: any definition that
	// arrives from a system file is discarded without comment.
	if s.Flags&ReplaceFlag != 0 && lx.InSystemFile() {
		c.skipRoutineBody()
		c.expectDirSemicolon("routine")
		return
	}
	// A VRoutineMarker value is a veneer request awaiting its body.
	if s.Flags&UnknownFlag == 0 && s.Type == RoutineSym && s.Marker != VRoutineMarker &&
		s.Flags&(ReplaceFlag|StubFlag|InSystemFile) == 0 {
		c.Errs.Error("routine %q is defined twice", name)
	}

	c.Syms.Assign(id, c.Asm.CodeSize(), RoutineSym)
	if lx.InSystemFile() {
		s.Flags |= InSystemFile
	} else {
		s.Flags &^= InSystemFile
	}
	c.Gen.CompileRoutine(name, id, false)
	c.expectDirSemicolon("routine")
}

// skipRoutineBody discards tokens up to the ']' closing the current
// routine, balancing any nested brackets.
func (c *Compiler) skipRoutineBody() {
	lx := c.Lex
	depth := 0
	for {
		t := lx.Get()
		switch {
		case t.Kind == EOFTok:
			c.Errs.Fatal("end of file inside a routine")
		case isSep(t, SepOpenSB):
			depth++
		case isSep(t, SepCloseSB):
			if depth == 0 {
				return
			}
			depth--
		}
		lx.ReleaseTokenTexts()
	}
}

// ---------------------------------------------------------------------
// Conditional compilation

// ifDirective evaluates one of the If-family conditions. A true branch
// is compiled in place; a false one is skipped to the matching Ifnot
// or Endif.
func (c *Compiler) ifDirective(code int) {
	cond := false
	switch code {
	case DirIfdef, DirIfndef:
		t := c.Lex.Get()
		if t.Kind != SymbolTok {
			c.Errs.Error("expected a symbol name after Ifdef")
		} else {
			s := c.Syms.Get(t.SymIndex)
			cond = s.Flags&UnknownFlag == 0
		}
		if code == DirIfndef {
			cond = !cond
		}
		c.expectDirSemicolon("Ifdef")

	case DirIftrue, DirIffalse:
		v := c.Expr.Parse(ConstantContext)
		if !v.IsConstant() {
			c.Errs.Error("This condition can't be assessed at compile time")
		} else {
			cond = v.Value != 0
		}
		if code == DirIffalse {
			cond = !cond
		}
		c.expectDirSemicolon("Iftrue")

	case DirIfv3:
		cond = c.Opts.Target == TargetZ && c.Opts.Version <= 3
		c.expectDirSemicolon("Ifv3")
	case DirIfv5:
		cond = c.Opts.Target == TargetGlulx || c.Opts.Version >= 5
		c.expectDirSemicolon("Ifv5")
	}

	c.condStack = append(c.condStack, condFrame{})
	if !cond {
		c.skipCondBranch(false)
	}
}

// ifnotDirective is reached when the branch being compiled hits its
// Ifnot: the remainder up to Endif is skipped.
func (c *Compiler) ifnotDirective() {
	if len(c.condStack) == 0 {
		c.Errs.Error("Ifnot without a matching If... directive")
		c.expectDirSemicolon("Ifnot")
		return
	}
	frame := &c.condStack[len(c.condStack)-1]
	if frame.sawIfnot {
		c.Errs.Error("Ifnot occurs twice in the same If... block")
		c.expectDirSemicolon("Ifnot")
		return
	}
	frame.sawIfnot = true
	c.expectDirSemicolon("Ifnot")
	c.skipCondBranch(true)
}

func (c *Compiler) endifDirective() {
	if len(c.condStack) == 0 {
		c.Errs.Error("Endif without a matching If... directive")
	} else {
		c.condStack = c.condStack[:len(c.condStack)-1]
	}
	c.expectDirSemicolon("Endif")
}

// skipCondBranch discards tokens until the conditional block resumes:
// at the matching Ifnot (unless afterIfnot, which runs to the Endif)
// or at the matching Endif, which pops the frame.
func (c *Compiler) skipCondBranch(afterIfnot bool) {
	lx := c.Lex
	depth := 0
	for {
		t := lx.Get()
		if t.Kind == EOFTok {
			c.Errs.Error("end of file inside an 'If...' block")
			lx.PutBack()
			c.condStack = c.condStack[:len(c.condStack)-1]
			return
		}
		if t.Kind == DirectiveTok {
			switch int(t.Value) {
			case DirIfdef, DirIfndef, DirIftrue, DirIffalse, DirIfv3, DirIfv5:
				depth++
			case DirEndif:
				if depth == 0 {
					c.condStack = c.condStack[:len(c.condStack)-1]
					c.expectDirSemicolon("Endif")
					return
				}
				depth--
			case DirIfnot:
				if depth == 0 {
					frame := &c.condStack[len(c.condStack)-1]
					if frame.sawIfnot {
						c.Errs.Error("Ifnot occurs twice in the same If... block")
					} else if !afterIfnot {
						// The other branch starts here.
						frame.sawIfnot = true
						c.expectDirSemicolon("Ifnot")
						return
					}
					frame.sawIfnot = true
				}
			}
		}
		lx.ReleaseTokenTexts()
	}
}

// ---------------------------------------------------------------------
// Constants, globals, arrays

// constantValue parses a compile-time constant expression, accepting a
// pending backpatch marker but not a run-time computation.
func (c *Compiler) constantValue(what string) (Operand, bool) {
	v := c.Expr.Parse(ConstantContext)
	switch v.Kind {
	case ShortConstOp, LongConstOp:
		return v, true
	case ErrorOp:
		c.Errs.Error("expected a value for %s", what)
	default:
		c.Errs.Error("the value of %s is not a compile-time constant", what)
	}
	return constOperand(0), false
}

func (c *Compiler) constantDirective(isDefault bool) {
	dir := "Constant"
	if isDefault {
		dir = "Default"
	}
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a constant name after %s but found %q", dir, t.Text)
		c.dirResync()
		return
	}
	name, id := t.Text, t.SymIndex

	v := constOperand(0)
	t = c.Lex.Get()
	if isSep(t, SepSemicolon) {
		c.Lex.PutBack()
	} else {
		if !isSep(t, SepSetEqual) {
			c.Lex.PutBack() // the old "Constant name value" form
		}
		v, _ = c.constantValue("constant " + name)
	}

	// Parsing the value may have created symbols, so fetch the record
	// only now: List pointers do not survive growth.
	s := c.Syms.Get(id)
	if s.Flags&UnknownFlag == 0 {
		if isDefault || s.Flags&RedefinableFlag == 0 {
			if !isDefault {
				c.Errs.Error("%q is a name already in use (as a %s)", name, s.Type)
			}
			c.expectDirSemicolon(dir)
			return
		}
	}
	c.Syms.AssignMarked(id, v.Marker, v.Value, ConstantSym)
	s.Flags &^= RedefinableFlag
	if isDefault {
		s.Flags |= DefconFlag
	}
	c.expectDirSemicolon(dir)
}

func (c *Compiler) globalDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a global variable name but found %q", t.Text)
		c.dirResync()
		return
	}
	name, id := t.Text, t.SymIndex
	if c.Syms.Get(id).Flags&UnknownFlag == 0 {
		c.Errs.Error("%q is a name already in use (as a %s)", name, c.Syms.Get(id).Type)
		c.dirResync()
		return
	}
	if c.Opts.Target == TargetZ && c.nextGlobal > 239 {
		c.Errs.Error("too many global variables: the Z-machine allows 240")
		c.dirResync()
		return
	}

	number := c.nextGlobal
	c.nextGlobal++
	c.Syms.Assign(id, number, GlobalSym)

	init := constOperand(0)
	t = c.Lex.Get()
	if isSep(t, SepSetEqual) {
		init, _ = c.constantValue("global variable " + name)
	} else {
		c.Lex.PutBack()
	}
	c.Globals = append(c.Globals, GlobalVar{Sym: id, Number: number, Init: init})
	c.expectDirSemicolon("Global")
}

// Array entry layouts.
const (
	arrayBytes  = iota // ->   plain bytes
	arrayWords         // -->  plain words
	arrayTable         // word length prefix, then words
	arrayBuffer        // word length prefix, then bytes
	arrayString        // byte length prefix, then bytes
)

func (c *Compiler) arrayDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected an array name but found %q", t.Text)
		c.dirResync()
		return
	}
	name, id := t.Text, t.SymIndex
	if c.Syms.Get(id).Flags&UnknownFlag == 0 {
		c.Errs.Error("%q is a name already in use (as a %s)", name, c.Syms.Get(id).Type)
		c.dirResync()
		return
	}

	area, symType := c.Arrays, ArraySym
	t = c.Lex.Get()
	if t.Kind == SymbolTok && fold(t.Text) == "static" {
		area, symType = c.Statics, StaticArraySym
		t = c.Lex.Get()
	}

	layout := -1
	switch {
	case isSep(t, SepArrow):
		layout = arrayBytes
	case isSep(t, SepDArrow):
		layout = arrayWords
	case t.Kind == SymbolTok && fold(t.Text) == "table":
		layout = arrayTable
	case t.Kind == SymbolTok && fold(t.Text) == "buffer":
		layout = arrayBuffer
	case t.Kind == SymbolTok && fold(t.Text) == "string":
		layout = arrayString
	default:
		c.Errs.Error("expected '->', '-->', 'table', 'buffer' or 'string' in the Array directive, not %q", t.Text)
		c.dirResync()
		return
	}

	// A bracketed initialiser is always a list of values; without
	// brackets a single numeric entry gives the element count instead.
	bracketed := false
	t = c.Lex.Get()
	if isSep(t, SepOpenSB) {
		bracketed = true
	} else {
		c.Lex.PutBack()
	}

	var entries []Operand
	for {
		v := c.Expr.Parse(ArrayContext)
		if v.Kind == ErrorOp {
			break
		}
		if v.Kind != ShortConstOp && v.Kind != LongConstOp {
			c.Errs.Error("entries in the array %q must be compile-time constants", name)
			v = constOperand(0)
		}
		entries = append(entries, v)
		t = c.Lex.Get()
		if !isSep(t, SepComma) {
			c.Lex.PutBack()
		}
	}
	if bracketed {
		t = c.Lex.Get()
		if !isSep(t, SepCloseSB) {
			c.Errs.Error("expected ']' closing the initialiser of array %q", name)
			c.Lex.PutBack()
		}
	}

	base := area.Len()
	c.Syms.AssignMarked(id, symType.arrayMarker(), base, symType)
	c.buildArray(name, area, layout, entries, bracketed)
	c.ArrayInfo = append(c.ArrayInfo, ArrayRecord{
		Sym: id, Base: base, Len: area.Len() - base, Static: symType == StaticArraySym,
	})
	c.expectDirSemicolon("Array")
}

func (t SymbolType) arrayMarker() Marker {
	if t == StaticArraySym {
		return StaticArrayMarker
	}
	return ArrayMarker
}

func (c *Compiler) buildArray(name string, area *DataArea, layout int, entries []Operand, bracketed bool) {
	wordSize := c.Opts.WordSize()
	entrySize := 1
	if layout == arrayWords || layout == arrayTable {
		entrySize = wordSize
	}

	if len(entries) == 0 {
		c.Errs.Error("the array %q has no entries", name)
		return
	}

	// Size form: Array X --> 10; allocates ten zeroed entries.
	if !bracketed && len(entries) == 1 && entries[0].IsConstant() && layout != arrayString {
		n := entries[0].Value
		if n <= 0 {
			c.Errs.Error("an array must have a positive number of entries, not %d", n)
			return
		}
		switch layout {
		case arrayTable:
			area.Word(n, NullMarker, wordSize)
		case arrayBuffer:
			area.Word(n, NullMarker, wordSize)
		}
		area.Zero(n * int32(entrySize))
		return
	}

	// Byte layouts flatten double-quoted text into its characters.
	if entrySize == 1 {
		flat := make([]Operand, 0, len(entries))
		for _, e := range entries {
			if e.Marker == StringMarker {
				for _, ch := range []byte(c.Strings.Text(e.Value)) {
					flat = append(flat, constOperand(int32(ch)))
				}
				continue
			}
			flat = append(flat, e)
		}
		entries = flat
	}

	switch layout {
	case arrayTable, arrayBuffer:
		area.Word(int32(len(entries)), NullMarker, wordSize)
	case arrayString:
		if len(entries) > 255 {
			c.Errs.Error("a string array is limited to 255 entries; %q has %d", name, len(entries))
			entries = entries[:255]
		}
		area.Byte(int32(len(entries)), NullMarker)
	}
	for _, e := range entries {
		if entrySize == 1 {
			if e.Marker != NullMarker {
				c.Errs.Error("the entries of byte array %q cannot hold addresses", name)
			}
			area.Byte(e.Value, NullMarker)
		} else {
			area.Word(e.Value, e.Marker, wordSize)
		}
	}
}

// ---------------------------------------------------------------------
// Attributes, properties, actions

func (c *Compiler) attributeDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected an attribute name but found %q", t.Text)
		c.dirResync()
		return
	}
	limit := int32(48)
	if c.Opts.Target == TargetZ && c.Opts.Version <= 3 {
		limit = 32
	} else if c.Opts.Target == TargetGlulx {
		limit = int32(c.Opts.NumAttrBytes) * 8
	}
	if c.nextAttribute >= limit {
		c.Errs.Error("too many attributes: the limit is %d", limit)
		c.dirResync()
		return
	}
	c.Syms.Assign(t.SymIndex, c.nextAttribute, AttributeSym)
	c.nextAttribute++
	c.expectDirSemicolon("Attribute")
}

func (c *Compiler) propertyDirective() {
	t := c.Lex.Get()
	if t.Kind == SymbolTok && fold(t.Text) == "additive" {
		t = c.Lex.Get() // additivity matters to the object builder only
	}
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a property name but found %q", t.Text)
		c.dirResync()
		return
	}
	limit := int32(64)
	if c.Opts.Target == TargetZ && c.Opts.Version <= 3 {
		limit = 32
	} else if c.Opts.Target == TargetGlulx {
		limit = 1 << 14
	}
	if c.nextProperty >= limit {
		c.Errs.Error("too many common properties: the limit is %d", limit-1)
		c.dirResync()
		return
	}
	id := t.SymIndex
	c.Syms.Assign(id, c.nextProperty, PropertySym)
	c.nextProperty++

	def := constOperand(0)
	t = c.Lex.Get()
	if !isSep(t, SepSemicolon) {
		c.Lex.PutBack()
		def, _ = c.constantValue("the default of property " + c.Syms.Get(id).Name)
	} else {
		c.Lex.PutBack()
	}
	c.PropDefaults = append(c.PropDefaults, def)
	c.expectDirSemicolon("Property")
}

func (c *Compiler) fakeActionDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a fake action name but found %q", t.Text)
		c.dirResync()
		return
	}
	c.Syms.Assign(t.SymIndex, FakeBase+c.nextFakeAction, FakeActionSym)
	c.nextFakeAction++
	c.expectDirSemicolon("Fake_action")
}

// ---------------------------------------------------------------------
// Replace, Stub, Undef

func (c *Compiler) replaceDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a routine name after Replace but found %q", t.Text)
		c.dirResync()
		return
	}
	first := t.SymIndex
	t = c.Lex.Get()
	if t.Kind == SymbolTok {
		// Replace Original NewName: references to Original divert.
		c.Syms.AddReplacement(first, t.SymIndex)
	} else {
		c.Lex.PutBack()
		c.Syms.Get(first).Flags |= ReplaceFlag
	}
	c.expectDirSemicolon("Replace")
}

// stubDirective compiles an n-argument routine returning false under
// the given name, unless the name is already defined.
func (c *Compiler) stubDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a routine name after Stub but found %q", t.Text)
		c.dirResync()
		return
	}
	name, id := t.Text, t.SymIndex
	t = c.Lex.Get()
	if t.Kind != SmallNumberTok && t.Kind != LargeNumberTok {
		c.Errs.Error("expected the number of arguments to Stub %q", name)
		c.dirResync()
		return
	}
	nArgs := int(t.Value)
	if c.Syms.Get(id).Flags&UnknownFlag == 0 {
		c.expectDirSemicolon("Stub")
		return
	}

	c.Syms.Assign(id, c.Asm.CodeSize(), RoutineSym)
	c.Syms.Get(id).Flags |= StubFlag
	c.Asm.StartRoutine(id, name, nArgs, false)
	c.Asm.RoutineHeader(nArgs)
	c.Asm.AssembleJump(RFalseLabel)
	c.Asm.EndRoutine()
	c.expectDirSemicolon("Stub")
}

func (c *Compiler) undefDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a symbol name after Undef but found %q", t.Text)
		c.dirResync()
		return
	}
	if c.Syms.Get(t.SymIndex).Flags&UnknownFlag != 0 {
		c.Errs.Warning("attempt to Undef %q, which is not defined anyway", t.Text)
	} else {
		c.Syms.EndScope(t.SymIndex, false)
	}
	c.expectDirSemicolon("Undef")
}

// ---------------------------------------------------------------------
// Housekeeping directives

func (c *Compiler) includeDirective() {
	t := c.Lex.Get()
	if t.Kind != DQTok {
		c.Errs.Error("expected a file name in double quotes after Include")
		c.dirResync()
		return
	}
	name := t.Text
	c.expectDirSemicolon("Include")
	if c.IncludeOpen == nil {
		c.Errs.Error("cannot Include %q: no file resolver was supplied", name)
		return
	}
	r, err := c.IncludeOpen(name)
	if err != nil {
		c.Errs.Fatal("cannot open the included file %q: %v", name, err)
	}
	c.Lex.PushFile(c.addFile(name), r, false)
}

func (c *Compiler) releaseDirective() {
	if v, ok := c.constantValue("the release number"); ok {
		c.Release = v.Value
	}
	c.expectDirSemicolon("Release")
}

func (c *Compiler) serialDirective() {
	t := c.Lex.Get()
	ok := t.Kind == DQTok && len(t.Text) == 6
	for i := 0; ok && i < 6; i++ {
		if t.Text[i] < '0' || t.Text[i] > '9' {
			ok = false
		}
	}
	if !ok {
		c.Errs.Error("the Serial code must be six digits in double quotes")
	} else {
		c.Serial = t.Text
	}
	c.expectDirSemicolon("Serial")
}

func (c *Compiler) versionDirective() {
	v, ok := c.constantValue("the Version number")
	c.expectDirSemicolon("Version")
	if !ok {
		return
	}
	if c.Asm.CodeSize() > 0 {
		c.Errs.Warning("a Version directive after code has been compiled has no effect")
		return
	}
	if err := c.Opts.Set("VERSION", int(v.Value), LevelHeader); err != nil {
		c.Errs.Error("%v", err)
	}
}

func (c *Compiler) switchesDirective() {
	t := c.Lex.Get()
	if t.Kind != SymbolTok && t.Kind != DQTok {
		c.Errs.Error("expected a switch list after Switches")
		c.dirResync()
		return
	}
	if c.Asm.CodeSize() > 0 {
		c.Errs.Warning("a Switches directive after code has been compiled has no effect")
	} else {
		c.applySwitches(t.Text, LevelHeader)
	}
	c.expectDirSemicolon("Switches")
}

// ApplySwitches applies a driver switch string, as given by -s on the
// command line. Command-line switches outrank Switches directives.
func (c *Compiler) ApplySwitches(text string) {
	c.applySwitches(text, LevelCommand)
}

// applySwitches handles the characters of a Switches directive or a
// driver -s string.
func (c *Compiler) applySwitches(text string, level int) {
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch >= '3' && ch <= '8':
			if err := c.Opts.Set("VERSION", int(ch-'0'), level); err != nil {
				c.Errs.Error("%v", err)
			}
		case ch == 'v':
			// The version digit follows.
		case ch == 'e':
			c.Opts.Economy = true
		case ch == 'w':
			c.Errs.NoWarnings = true
		case ch == 's':
			c.Errs.ListSymbols = true
		case ch == 'k':
			c.Opts.Debugging = true
		case ch == 'D':
			c.Opts.DefinedConstants["DEBUG"] = 1
			id := c.Syms.Index("DEBUG")
			c.Syms.Assign(id, 1, ConstantSym)
			c.Syms.Get(id).Flags |= RedefinableFlag
		case ch == 'G':
			c.Errs.Error("the G switch cannot be used once compilation has begun")
		case ch == '~':
			if i+1 < len(text) {
				i++ // switch negation: accepted and ignored
			}
		default:
			c.Errs.Warning("unknown switch %q", string(ch))
		}
	}
}

func (c *Compiler) statuslineDirective() {
	t := c.Lex.Get()
	switch {
	case t.Kind == SymbolTok && fold(t.Text) == "score":
		c.Statusline = StatuslineScore
	case t.Kind == SymbolTok && fold(t.Text) == "time":
		c.Statusline = StatuslineTime
	default:
		c.Errs.Error("expected 'score' or 'time' after Statusline")
	}
	c.expectDirSemicolon("Statusline")
}

func (c *Compiler) abbreviateDirective() {
	for {
		t := c.Lex.Get()
		if t.Kind != DQTok {
			c.Lex.PutBack()
			break
		}
		if len(c.Abbrevs) >= c.Opts.MaxAbbrevs {
			c.Errs.Error("too many abbreviations: the limit is %d", c.Opts.MaxAbbrevs)
			c.dirResync()
			return
		}
		c.Abbrevs = append(c.Abbrevs, t.Text)
	}
	c.expectDirSemicolon("Abbreviate")
}

func (c *Compiler) zcharacterDirective() {
	if c.Opts.Target == TargetGlulx {
		c.Errs.Error("the Zcharacter directive has no meaning when compiling to Glulx")
		c.dirResync()
		return
	}
	var rows []string
	for {
		t := c.Lex.Get()
		if t.Kind != DQTok {
			c.Lex.PutBack()
			break
		}
		rows = append(rows, t.Text)
	}
	if len(rows) != 3 {
		c.Errs.Error("expected three alphabet strings after Zcharacter")
		c.dirResync()
		return
	}
	if len(rows[0]) != 26 || len(rows[1]) != 26 || len(rows[2]) != 24 {
		c.Errs.Error("Zcharacter alphabets must be 26, 26 and 24 characters long")
	} else {
		c.Alphabet[0] = rows[0]
		c.Alphabet[1] = rows[1]
		// Row A2 positions 0 and 1 are the escape and newline.
		c.Alphabet[2] = " \n" + rows[2]
	}
	c.expectDirSemicolon("Zcharacter")
}

func (c *Compiler) dictionaryDirective() {
	n := 0
	for {
		t := c.Lex.Get()
		if t.Kind != SQTok && t.Kind != DQTok {
			c.Lex.PutBack()
			break
		}
		c.AddDictWord(t.Text)
		n++
	}
	if n == 0 {
		c.Errs.Error("expected at least one dictionary word after Dictionary")
	}
	c.expectDirSemicolon("Dictionary")
}

func (c *Compiler) lowstringDirective() {
	if c.Opts.Target == TargetGlulx {
		c.Errs.Error("the Lowstring directive has no meaning when compiling to Glulx")
		c.dirResync()
		return
	}
	t := c.Lex.Get()
	if t.Kind != SymbolTok {
		c.Errs.Error("expected a new constant name after Lowstring")
		c.dirResync()
		return
	}
	id := t.SymIndex
	t = c.Lex.Get()
	if t.Kind != DQTok {
		c.Errs.Error("expected a string in double quotes after Lowstring %q", c.Syms.Get(id).Name)
		c.dirResync()
		return
	}
	if len(c.LowStrings) >= c.Opts.MaxDynamicString {
		c.Errs.Error("too many Lowstring strings: the limit is %d", c.Opts.MaxDynamicString)
		c.dirResync()
		return
	}
	slot := int32(len(c.LowStrings))
	c.LowStrings = append(c.LowStrings, LowString{Sym: id, Text: t.Text, Slot: slot})
	c.Syms.Assign(id, slot, ConstantSym)
	c.expectDirSemicolon("Lowstring")
}

func (c *Compiler) origsourceDirective() {
	t := c.Lex.Get()
	if t.Kind != DQTok {
		c.Errs.Error("expected a file name in double quotes after Origsource")
		c.dirResync()
		return
	}
	c.OrigSource = t.Text
	for {
		t = c.Lex.Get()
		if t.Kind != SmallNumberTok && t.Kind != LargeNumberTok {
			c.Lex.PutBack()
			break
		}
	}
	c.expectDirSemicolon("Origsource")
}

func (c *Compiler) messageDirective() {
	report := c.Errs.Info
	t := c.Lex.Get()
	if t.Kind == SymbolTok || t.Kind == StatementTok {
		switch fold(t.Text) {
		case "error":
			report = func(f string, a ...any) { c.Errs.Error(f, a...) }
		case "warning":
			report = func(f string, a ...any) { c.Errs.Warning(f, a...) }
		case "fatalerror":
			report = func(f string, a ...any) { c.Errs.Fatal(f, a...) }
		default:
			c.Errs.Error("expected 'error', 'warning' or 'fatalerror' after Message, not %q", t.Text)
		}
		t = c.Lex.Get()
	}
	if t.Kind != DQTok {
		c.Errs.Error("expected the message text in double quotes")
		c.dirResync()
		return
	}
	report("%s", t.Text)
	c.expectDirSemicolon("Message")
}

func (c *Compiler) traceDirective() {
	t := c.Lex.Get()
	subject := ""
	if t.Kind == SymbolTok {
		subject = fold(t.Text)
	}
	level := 1
	t = c.Lex.Get()
	if t.Kind == SmallNumberTok || t.Kind == LargeNumberTok {
		level = int(t.Value)
	} else {
		c.Lex.PutBack()
	}
	switch subject {
	case "assembly":
		c.Opts.TraceAsm = level
	case "expressions":
		c.Opts.TraceExprs = level != 0
	case "tokens":
		c.Opts.TraceLex = level != 0
	case "off":
		c.Opts.TraceAsm = 0
		c.Opts.TraceExprs = false
		c.Opts.TraceLex = false
	default:
		c.Errs.Warning("Trace has nothing to say about %q", subject)
	}
	c.expectDirSemicolon("Trace")
}
