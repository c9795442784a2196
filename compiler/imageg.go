package compiler

import "github.com/DavidKinder/Inform6-sub000/glulx"

// Compiler identification written into the Glulx info block.
const (
	compilerVersionMajor = 6
	compilerVersionMinor = 41
	backendVersion       = 1
)

// gImage carries the Glulx memory map while values are resolved.
type gImage struct {
	c *Compiler

	codeBase    int32
	stringsBase int32
	strOffsets  []int32
	staticsBase int32
	dictBase    int32
	dictEntry   int32
	dictPlace   []int32
	globalsBase int32
	arraysBase  int32
	veneer      [VnCount]int32
}

func (c *Compiler) generateG() []byte {
	g := &gImage{c: c, veneer: c.Veneer.Addresses()}

	code := c.strippedCode()
	strArea, strOffsets := c.Strings.BytesG()
	g.strOffsets = strOffsets
	dict := c.dictBytesG(g)

	// ROM: code, strings, static arrays, dictionary. RAM: globals and
	// dynamic arrays, page-aligned.
	pos := int32(glulx.CodeStart)
	g.codeBase = pos
	pos += int32(len(code))
	g.stringsBase = pos
	pos += int32(len(strArea))
	g.staticsBase = pos
	pos += c.Statics.Len()
	g.dictBase = pos
	pos += int32(len(dict))

	ramStart := alignTo(pos, glulx.PageSize)
	g.globalsBase = ramStart
	globalsLen := 4 * (c.nextGlobal - glulxFirstGlobal)
	g.arraysBase = g.globalsBase + globalsLen
	ramEnd := g.arraysBase + c.Arrays.Len()
	extStart := alignTo(ramEnd, glulx.PageSize)
	endMem := extStart + int32(c.Opts.MemoryMapExt)*glulx.PageSize

	c.Asm.Patches().Apply(code, c.Stripper, c.Errs, g.resolve)
	arrays := append([]byte(nil), c.Arrays.Bytes()...)
	c.Arrays.Patches().Apply(arrays, nil, c.Errs, g.resolve)
	statics := append([]byte(nil), c.Statics.Bytes()...)
	c.Statics.Patches().Apply(statics, nil, c.Errs, g.resolve)

	img := make([]byte, extStart)
	copy(img[g.codeBase:], code)
	copy(img[g.stringsBase:], strArea)
	copy(img[g.staticsBase:], statics)
	copy(img[g.dictBase:], dict)
	for _, gv := range c.Globals {
		val := g.value(gv.Init.Marker, gv.Init.Value)
		glulx.PutWord(img, int(g.globalsBase)+4*int(gv.Number-glulxFirstGlobal), uint32(val))
	}
	copy(img[g.arraysBase:], arrays)

	// Header.
	glulx.PutWord(img, glulx.HdrMagic, glulx.Magic)
	glulx.PutWord(img, glulx.HdrVersion, glulx.Version)
	glulx.PutWord(img, glulx.HdrRAMStart, uint32(ramStart))
	glulx.PutWord(img, glulx.HdrExtStart, uint32(extStart))
	glulx.PutWord(img, glulx.HdrEndMem, uint32(endMem))
	glulx.PutWord(img, glulx.HdrStackSize, glulx.RoundUp(uint32(c.Opts.StackSize), glulx.PageSize))
	if main := c.mainAddress(); main >= 0 {
		start := g.codeBase + c.Stripper.AddressForAddress(main)
		glulx.PutWord(img, glulx.HdrStartFunc, uint32(start))
	}
	glulx.PutWord(img, glulx.HdrDecodingTbl, 0)

	copy(img[glulx.LayoutTagOff:], "Info")
	glulx.PutWord(img, glulx.LayoutTagOff+4, 1)
	info := img[glulx.InfoBlockOff:]
	info[0] = compilerVersionMajor
	info[1] = compilerVersionMinor
	info[2] = 0
	info[3] = backendVersion
	info[4] = byte(c.Release >> 8)
	info[5] = byte(c.Release)
	copy(info[6:12], c.Serial)

	glulx.PutWord(img, glulx.HdrChecksum, glulx.Checksum(img))
	return img
}

// dictBytesG lays out the dictionary: a word count, then the sorted
// entries, each a type byte, the padded text, and the data bytes.
func (c *Compiler) dictBytesG(g *gImage) []byte {
	textLen := c.Opts.DictWordSize * c.Opts.DictCharWidth
	g.dictEntry = int32(1 + textLen + c.Opts.DictEntryExtra)

	words, place := c.Dict.Layout()
	g.dictPlace = place

	out := make([]byte, 4, 4+len(words)*int(g.dictEntry))
	glulx.PutWord(out, 0, uint32(len(words)))
	for _, w := range words {
		entry := make([]byte, g.dictEntry)
		entry[0] = 0x60 // dict-word object type
		if c.Opts.DictCharWidth == 4 {
			for i := 0; i < len(w) && i < c.Opts.DictWordSize; i++ {
				entry[1+4*i+3] = w[i]
			}
		} else {
			copy(entry[1:1+textLen], w)
		}
		out = append(out, entry...)
	}
	return out
}

func (g *gImage) resolve(p Patch, cur int32) int32 { return g.value(p.Marker, cur) }

func (g *gImage) codeAddr(pre int32) int32 {
	return g.codeBase + g.c.Stripper.AddressForAddress(pre)
}

func (g *gImage) value(m Marker, v int32) int32 {
	switch m {
	case NullMarker:
		return v
	case StringMarker:
		return g.stringsBase + g.strOffsets[v]
	case RoutineMarker:
		return g.codeAddr(v)
	case MainMarker:
		main := g.c.mainAddress()
		if main < 0 {
			return 0
		}
		return g.codeAddr(main)
	case VRoutineMarker:
		addr := g.veneer[v]
		if addr < 0 {
			return 0 // already diagnosed as unsupplied
		}
		return g.codeAddr(addr)
	case DWordMarker:
		return g.dictBase + 4 + g.dictPlace[v]*g.dictEntry
	case ArrayMarker:
		return g.arraysBase + v
	case StaticArrayMarker:
		return g.staticsBase + v
	case VariableMarker:
		// The operand payload is the global's byte offset.
		return g.globalsBase + v
	case IdentMarker, ActionMarker:
		return v
	case InconMarker:
		return g.incon(v)
	case SymbolMarker:
		return g.symbolValue(int(v))
	default:
		g.c.Errs.CompilerError("marker %s has no resolver in this build", m)
		return v
	}
}

func (g *gImage) symbolValue(id int) int32 {
	s := g.c.Syms.Get(id)
	if s.Flags&UnknownFlag != 0 {
		if s.Flags&UErrorIssued == 0 {
			s.Flags |= UErrorIssued
			g.c.Errs.ErrorAt(s.Line, "%q is used but never defined", s.Name)
		}
		return 0
	}
	switch s.Type {
	case RoutineSym:
		return g.codeAddr(s.Value)
	case ArraySym:
		return g.arraysBase + s.Value
	case StaticArraySym:
		return g.staticsBase + s.Value
	}
	if s.Marker != NullMarker && s.Marker != SymbolMarker {
		return g.value(s.Marker, s.Value)
	}
	return s.Value
}

func (g *gImage) incon(code int32) int32 {
	switch int(code) {
	case ScVersionNumber:
		return int32(glulx.Version)
	case ScCodeOffset:
		return g.codeBase
	case ScStringsOffset:
		return g.stringsBase
	case ScDictionaryTable:
		return g.dictBase
	case ScDictParEntries:
		return g.dictEntry - int32(g.c.Opts.DictEntryExtra)
	default:
		g.c.Errs.Error("the system constant #%s needs tables this compiler does not build",
			sysConstName(code))
		return 0
	}
}
