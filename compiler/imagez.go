package compiler

import "github.com/DavidKinder/Inform6-sub000/zcode"

// zImage carries the Z-machine memory map while values are resolved.
type zImage struct {
	c     *Compiler
	scale int32

	globalsBase int32
	arraysBase  int32
	staticsBase int32
	dictBase    int32
	dictHeader  int32
	dictEntry   int32
	dictPlace   []int32
	stringsBase int32
	strOffsets  []int32
	codeBase    int32
	veneer      [VnCount]int32
}

// abbrevEntries is the fixed size of the Z abbreviations table: three
// banks of 32 entries.
const abbrevEntries = 96

func (c *Compiler) generateZ() []byte {
	v := c.Opts.Version
	z := &zImage{c: c, scale: c.Opts.Scale(), veneer: c.Veneer.Addresses()}

	code := c.strippedCode()
	var abbrevs []zcode.Abbrev
	if c.Opts.Economy {
		for k, text := range c.Abbrevs {
			abbrevs = append(abbrevs, zcode.Abbrev{Text: text, Slot: c.Opts.MaxDynamicString + k})
		}
	}
	strArea, strOffsets := c.Strings.BytesZ(&c.Alphabet, abbrevs)
	z.strOffsets = strOffsets
	dict := c.dictBytesZ(z)
	low, abbrevTable := c.lowMemoryZ(int32(zcode.HeaderSize))

	pos := int32(zcode.HeaderSize)
	lowBase := pos
	pos += int32(len(low))
	abbrevBase := pos
	pos += abbrevEntries * 2
	z.globalsBase = pos
	pos += 240 * 2
	z.arraysBase = pos
	pos += c.Arrays.Len()
	staticBase := pos
	z.staticsBase = pos
	pos += c.Statics.Len()
	z.dictBase = pos
	pos += int32(len(dict))
	alphaBase := int32(0)
	if c.Alphabet != zcode.DefaultAlphabet {
		alphaBase = pos
		pos += 78
	}
	pos = alignTo(pos, z.scale)
	z.stringsBase = pos
	pos += int32(len(strArea))
	pos = alignTo(pos, z.scale)
	z.codeBase = pos
	pos += int32(len(code))
	fileEnd := pos

	limit := int32(128 << 10)
	switch {
	case v >= 6:
		limit = 512 << 10
	case v >= 4:
		limit = 256 << 10
	}
	if fileEnd > limit {
		c.Errs.Fatal("the story file is %d bytes long, but version %d allows only %d",
			fileEnd, v, limit)
	}

	// Backpatch the areas before assembly into the image.
	c.Asm.Patches().Apply(code, c.Stripper, c.Errs, z.resolve)
	arrays := append([]byte(nil), c.Arrays.Bytes()...)
	c.Arrays.Patches().Apply(arrays, nil, c.Errs, z.resolve)
	statics := append([]byte(nil), c.Statics.Bytes()...)
	c.Statics.Patches().Apply(statics, nil, c.Errs, z.resolve)

	img := make([]byte, alignTo(fileEnd, zcode.FileLengthScale))
	copy(img[lowBase:], low)
	for i, a := range abbrevTable {
		zcode.PutWord(img, int(abbrevBase)+2*i, a)
	}
	for _, g := range c.Globals {
		val := z.value(g.Init.Marker, g.Init.Value)
		zcode.PutWord(img, int(z.globalsBase)+2*int(g.Number-16), uint16(val))
	}
	copy(img[z.arraysBase:], arrays)
	copy(img[z.staticsBase:], statics)
	copy(img[z.dictBase:], dict)
	if alphaBase != 0 {
		c.alphabetTableZ(img[alphaBase:])
	}
	copy(img[z.stringsBase:], strArea)
	copy(img[z.codeBase:], code)

	// Header.
	img[zcode.HdrVersion] = byte(v)
	zcode.PutWord(img, zcode.HdrRelease, uint16(c.Release))
	copy(img[zcode.HdrSerial:], c.Serial)
	zcode.PutWord(img, zcode.HdrHighMem, uint16(z.stringsBase))
	zcode.PutWord(img, zcode.HdrDictionary, uint16(z.dictBase))
	zcode.PutWord(img, zcode.HdrGlobals, uint16(z.globalsBase))
	zcode.PutWord(img, zcode.HdrStaticMem, uint16(staticBase))
	zcode.PutWord(img, zcode.HdrAbbrevs, uint16(abbrevBase))
	if alphaBase != 0 {
		zcode.PutWord(img, zcode.HdrAlphabet, uint16(alphaBase))
	}
	if v == 3 && c.Statusline == StatuslineTime {
		img[zcode.HdrFlags1] |= 0x02
	}
	ls := zcode.LengthScale(v)
	zcode.PutWord(img, zcode.HdrFileLength, uint16((fileEnd+ls-1)/ls))

	if main := c.mainAddress(); main >= 0 {
		addr := z.codeBase + c.Stripper.AddressForAddress(main)
		if v >= 6 {
			zcode.PutWord(img, zcode.HdrInitialPC, uint16(addr/z.scale))
		} else {
			pc := addr + 1
			if v < 5 {
				pc += 2 * int32(img[addr])
			}
			zcode.PutWord(img, zcode.HdrInitialPC, uint16(pc))
		}
	}

	zcode.PutWord(img, zcode.HdrChecksum, zcode.Checksum(img))
	return img
}

// dictBytesZ lays out the dictionary: the separator list, the entry
// length, the entry count, then the sorted entries.
func (c *Compiler) dictBytesZ(z *zImage) []byte {
	v := c.Opts.Version
	textLen := int32(4)
	if v >= 4 {
		textLen = 6
	}
	z.dictEntry = textLen + int32(c.Opts.DictEntryExtra)

	words, place := c.Dict.Layout()
	z.dictPlace = place

	seps := []byte{'.', ',', '"'}
	out := append([]byte{byte(len(seps))}, seps...)
	out = append(out, byte(z.dictEntry))
	out = append(out, byte(len(words)>>8), byte(len(words)))
	z.dictHeader = int32(len(out))
	for _, w := range words {
		out = append(out, zcode.DictWordBytes([]byte(w), v, &c.Alphabet)...)
		out = append(out, make([]byte, c.Opts.DictEntryExtra)...)
	}
	return out
}

// lowMemoryZ builds the area below the abbreviations table: the packed
// texts of Lowstring strings and Abbreviate strings, plus the 96-entry
// table of their word addresses. Dynamic-string slots fill the table
// from entry 0; abbreviations follow.
func (c *Compiler) lowMemoryZ(base int32) ([]byte, []uint16) {
	var low []byte
	table := make([]uint16, abbrevEntries)

	pack := func(text string) uint16 {
		addr := base + int32(len(low))
		for _, w := range zcode.PackZchars(zcode.Zchars([]byte(text), &c.Alphabet)) {
			low = append(low, byte(w>>8), byte(w))
		}
		return uint16(addr / 2)
	}

	empty := pack(" ")
	for i := range table {
		table[i] = empty
	}
	for _, ls := range c.LowStrings {
		if int(ls.Slot) < len(table) {
			table[ls.Slot] = pack(ls.Text)
		}
	}
	next := c.Opts.MaxDynamicString
	for _, ab := range c.Abbrevs {
		if next >= len(table) {
			break
		}
		table[next] = pack(ab)
		next++
	}
	// Keep the next area word-aligned.
	if len(low)%2 != 0 {
		low = append(low, 0)
	}
	return low, table
}

// alphabetTableZ writes the 78-byte custom alphabet table.
func (c *Compiler) alphabetTableZ(dst []byte) {
	for r := 0; r < 3; r++ {
		row := c.Alphabet[r]
		for i := 0; i < 26 && i < len(row); i++ {
			dst[r*26+i] = row[i]
		}
	}
}

func (z *zImage) resolve(p Patch, cur int32) int32 { return z.value(p.Marker, cur) }

func (z *zImage) packedCode(pre int32) int32 {
	return (z.codeBase + z.c.Stripper.AddressForAddress(pre)) / z.scale
}

// value maps a marked compile-time value to its final image value.
func (z *zImage) value(m Marker, v int32) int32 {
	switch m {
	case NullMarker:
		return v
	case StringMarker:
		return (z.stringsBase + z.strOffsets[v]) / z.scale
	case RoutineMarker:
		return z.packedCode(v)
	case MainMarker:
		main := z.c.mainAddress()
		if main < 0 {
			return 0
		}
		return z.packedCode(main)
	case VRoutineMarker:
		addr := z.veneer[v]
		if addr < 0 {
			return 0 // already diagnosed as unsupplied
		}
		return z.packedCode(addr)
	case DWordMarker:
		return z.dictBase + z.dictHeader + z.dictPlace[v]*z.dictEntry
	case ArrayMarker:
		return z.arraysBase + v
	case StaticArrayMarker:
		return z.staticsBase + v
	case VariableMarker, IdentMarker, ActionMarker:
		return v
	case InconMarker:
		return z.incon(v)
	case SymbolMarker:
		return z.symbolValue(int(v))
	default:
		z.c.Errs.CompilerError("marker %s has no resolver in this build", m)
		return v
	}
}

func (z *zImage) symbolValue(id int) int32 {
	s := z.c.Syms.Get(id)
	if s.Flags&UnknownFlag != 0 {
		if s.Flags&UErrorIssued == 0 {
			s.Flags |= UErrorIssued
			z.c.Errs.ErrorAt(s.Line, "%q is used but never defined", s.Name)
		}
		return 0
	}
	switch s.Type {
	case RoutineSym:
		return z.packedCode(s.Value)
	case ArraySym:
		return z.arraysBase + s.Value
	case StaticArraySym:
		return z.staticsBase + s.Value
	}
	if s.Marker != NullMarker && s.Marker != SymbolMarker {
		return z.value(s.Marker, s.Value)
	}
	return s.Value
}

func (z *zImage) incon(code int32) int32 {
	switch int(code) {
	case ScVersionNumber:
		return int32(z.c.Opts.Version)
	case ScCodeOffset:
		return z.codeBase / z.scale
	case ScStringsOffset:
		return z.stringsBase / z.scale
	case ScDictionaryTable:
		return z.dictBase
	case ScDictParEntries:
		return z.dictEntry - int32(z.c.Opts.DictEntryExtra)
	default:
		z.c.Errs.Error("the system constant #%s needs tables this compiler does not build",
			sysConstName(code))
		return 0
	}
}
