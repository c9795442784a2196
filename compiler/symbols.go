package compiler

import (
	"sort"
	"strings"
)

// SymbolType classifies what a name stands for.
type SymbolType int

const (
	UnknownSym SymbolType = iota // referenced but not yet defined
	RoutineSym
	LabelSym
	GlobalSym
	ArraySym
	StaticArraySym
	ConstantSym
	AttributeSym
	PropertySym
	IndivPropSym
	ObjectSym
	ClassSym
	FakeActionSym
)

var symTypeNames = [...]string{
	"(not defined)", "Routine", "Label", "Global variable", "Array",
	"Static array", "Constant", "Attribute", "Property",
	"Individual property", "Object", "Class", "Fake action",
}

func (t SymbolType) String() string {
	if int(t) < len(symTypeNames) {
		return symTypeNames[t]
	}
	return "???"
}

// Symbol flags.
const (
	UnknownFlag = 1 << iota
	ReplaceFlag
	UsedFlag
	DefconFlag // defaulted by a Default directive
	StubFlag
	UnhashedFlag // removed from its chain by EndScope
	DiscardFlag  // use after EndScope(forbid) is an error
	AliasFlag
	ChangeFlag
	SystemFlag     // preloaded by the compiler
	InSystemFile   // defined inside a System_file inclusion
	UErrorIssued   // "used before defined" already reported
	ActionFlag     // has an ##Action literal
	RedefinableFlag
	StarFlag // may be redefined without warning
	ImportFlag
	ExportFlag
)

// Symbol is one entry in the compile-time namespace.
type Symbol struct {
	Name   string
	Value  int32
	Marker Marker
	Type   SymbolType
	Flags  int
	Line   Loc

	next int // hash-chain successor, -1 at chain end
}

// SymbolTable is the hash-chained namespace. Lookup is
// case-insensitive; each chain is kept sorted by case-folded name so a
// miss stops at the first strictly greater entry.
type SymbolTable struct {
	errs *Errors

	syms  *List[Symbol]
	heads []int // fixed-width bucket heads, -1 = empty
	arena *nameArena

	replacements []replacement

	// OnRoutineRef, when set, is told about every ROUTINE or UNKNOWN
	// symbol consulted in code-emitting context. The dead-function
	// stripper listens here.
	OnRoutineRef func(sym int)
}

type replacement struct {
	from, to int
}

// NewSymbolTable builds a table seeded with the platform constants for
// the target in opts.
func NewSymbolTable(errs *Errors, opts *Options) *SymbolTable {
	st := &SymbolTable{
		errs:  errs,
		syms:  NewList[Symbol]("symbols", opts.SymbolsInitial),
		heads: make([]int, opts.HashTabSize),
		arena: newNameArena(),
	}
	for i := range st.heads {
		st.heads[i] = -1
	}
	st.preload(opts)
	return st
}

func fold(name string) string { return strings.ToLower(name) }

func (st *SymbolTable) hash(folded string) int {
	var h uint32
	for i := 0; i < len(folded); i++ {
		h = h*30011 + uint32(folded[i])
	}
	return int(h % uint32(len(st.heads)))
}

// Index finds or creates the symbol for name. A created symbol has
// type UnknownSym, value 0 and the UNKNOWN flag.
func (st *SymbolTable) Index(name string) int {
	folded := fold(name)
	bucket := st.hash(folded)
	prev := -1
	for id := st.heads[bucket]; id != -1; {
		s := st.syms.At(id)
		f := fold(s.Name)
		if f == folded {
			return id
		}
		if f > folded {
			break
		}
		prev = id
		id = s.next
	}
	id := st.syms.Append(Symbol{
		Name:  st.arena.Intern(name),
		Type:  UnknownSym,
		Flags: UnknownFlag,
		Line:  st.errs.Current,
		next:  -1,
	})
	if prev == -1 {
		st.syms.At(id).next = st.heads[bucket]
		st.heads[bucket] = id
	} else {
		st.syms.At(id).next = st.syms.At(prev).next
		st.syms.At(prev).next = id
	}
	return id
}

// Lookup finds the symbol for name without creating, returning -1 on a
// miss. Unhashed symbols are invisible here.
func (st *SymbolTable) Lookup(name string) int {
	folded := fold(name)
	for id := st.heads[st.hash(folded)]; id != -1; id = st.syms.At(id).next {
		f := fold(st.syms.At(id).Name)
		if f == folded {
			return id
		}
		if f > folded {
			break
		}
	}
	return -1
}

// Get returns the symbol record for id.
func (st *SymbolTable) Get(id int) *Symbol { return st.syms.At(id) }

// Count returns the number of symbols ever created.
func (st *SymbolTable) Count() int { return st.syms.Len() }

// Assign defines id with a value and type, clearing UNKNOWN. The first
// definition records the current source location.
func (st *SymbolTable) Assign(id int, value int32, t SymbolType) {
	st.AssignMarked(id, NullMarker, value, t)
}

// AssignMarked is Assign with an explicit backpatch marker.
func (st *SymbolTable) AssignMarked(id int, marker Marker, value int32, t SymbolType) {
	s := st.syms.At(id)
	if s.Flags&UnknownFlag != 0 {
		s.Line = st.errs.Current
	}
	s.Flags &^= UnknownFlag
	s.Value = value
	s.Marker = marker
	s.Type = t
}

// EndScope removes id from its hash chain so the name can be reused
// (local labels, Undef). With forbidUse, later uses of the dead symbol
// are diagnosed.
func (st *SymbolTable) EndScope(id int, forbidUse bool) {
	s := st.syms.At(id)
	if s.Flags&UnhashedFlag != 0 {
		return
	}
	folded := fold(s.Name)
	bucket := st.hash(folded)
	if st.heads[bucket] == id {
		st.heads[bucket] = s.next
	} else {
		for p := st.heads[bucket]; p != -1; p = st.syms.At(p).next {
			if st.syms.At(p).next == id {
				st.syms.At(p).next = s.next
				break
			}
		}
	}
	s.Flags |= UnhashedFlag
	if forbidUse {
		s.Flags |= DiscardFlag
	}
}

// TouchUse marks id used, reporting a discarded symbol. Callers that
// consume a symbol as an operand come through here.
func (st *SymbolTable) TouchUse(id int) {
	s := st.syms.At(id)
	if s.Flags&DiscardFlag != 0 {
		st.errs.Error("%q is no longer in scope", s.Name)
	}
	s.Flags |= UsedFlag
	if st.OnRoutineRef != nil && (s.Type == RoutineSym || s.Flags&UnknownFlag != 0) {
		st.OnRoutineRef(id)
	}
}

// AddReplacement queues the source-level rename from -> to. A symbol
// may be replaced once, may not replace itself, and may not be both a
// source and a target of replacement.
func (st *SymbolTable) AddReplacement(from, to int) {
	if from == to {
		st.errs.Error("%q cannot be Replaced by itself", st.Get(from).Name)
		return
	}
	for _, r := range st.replacements {
		if r.from == from {
			st.errs.Error("%q is Replaced more than once", st.Get(from).Name)
			return
		}
		if r.to == from || r.from == to {
			st.errs.Error("replacement of %q would form a chain", st.Get(from).Name)
			return
		}
	}
	st.Get(from).Flags |= ReplaceFlag
	st.replacements = append(st.replacements, replacement{from, to})
}

// FindReplacement chases the replacement map, rewriting *id and
// reporting whether anything changed.
func (st *SymbolTable) FindReplacement(id *int) bool {
	changed := false
	for {
		advanced := false
		for _, r := range st.replacements {
			if r.from == *id {
				*id = r.to
				changed = true
				advanced = true
				break
			}
		}
		if !advanced {
			return changed
		}
	}
}

// CheckType warns when a symbol operand's declared type does not match
// what the context expects. Globals and untyped constants are checked
// through their marker instead: an object-marked constant counts as an
// object.
func (st *SymbolTable) CheckType(id int, want SymbolType, context string) {
	s := st.Get(id)
	if s.Flags&UnknownFlag != 0 {
		return
	}
	t := s.Type
	if t == GlobalSym || t == ConstantSym {
		if s.Marker == ObjectMarker {
			t = ObjectSym
		} else if t == ConstantSym && s.Marker == NullMarker {
			return // a plain number fits anywhere
		}
	}
	if t == want {
		return
	}
	if want == ObjectSym && t == ClassSym {
		return // classes are objects
	}
	st.errs.Warning("%s %q used as %s in %s",
		t, s.Name, want, context)
}

// preload seeds the table with the platform-dependent system constants.
// All carry SYSTEM and REDEFINABLE so user source may override them.
func (st *SymbolTable) preload(opts *Options) {
	def := func(name string, value int32) {
		id := st.Index(name)
		st.Assign(id, value, ConstantSym)
		st.Get(id).Flags |= SystemFlag | RedefinableFlag
	}
	wordsize := int32(opts.WordSize())
	def("WORDSIZE", wordsize)
	def("DICT_WORD_SIZE", int32(opts.DictWordSize))
	def("DICT_ENTRY_BYTES", int32(opts.DictWordSize*opts.DictCharWidth+opts.DictEntryExtra))
	def("NUM_ATTR_BYTES", int32(opts.NumAttrBytes))
	if opts.Target == TargetGlulx {
		def("DICT_CHAR_SIZE", int32(opts.DictCharWidth))
		def("GOBJFIELD_CHAIN", 2)
		def("GOBJFIELD_NAME", 3)
		def("GOBJFIELD_PROPTAB", 4)
		def("GOBJFIELD_PARENT", 5)
		def("GOBJFIELD_SIBLING", 6)
		def("GOBJFIELD_CHILD", 7)
		def("GOBJ_EXT_START", int32(1+opts.NumAttrBytes)/4+7)
		def("FLOAT_INFINITY", 0x7F800000)
		def("FLOAT_NINFINITY", -0x00800000) // 0xFF800000 as int32
		def("FLOAT_NAN", 0x7FC00000)
	} else {
		def("FLOAT_INFINITY", 0x7F80)
		def("FLOAT_NINFINITY", -0x0080) // 0xFF80 as a 16-bit pattern
		def("FLOAT_NAN", 0x7FC0)
	}
	def("GRAMMAR_VERSION", 1)
	for name, value := range opts.DefinedConstants {
		id := st.Index(name)
		st.Assign(id, value, ConstantSym)
		st.Get(id).Flags |= RedefinableFlag
	}
}

// IssueUnusedWarnings runs the end-of-pass declared-but-not-used scan.
// System symbols, symbols defined in system files, objects and anything
// Replaced are exempt.
func (st *SymbolTable) IssueUnusedWarnings() {
	for id := 0; id < st.syms.Len(); id++ {
		s := st.syms.At(id)
		if s.Flags&(UsedFlag|ReplaceFlag|SystemFlag|InSystemFile|UnknownFlag) != 0 {
			continue
		}
		switch s.Type {
		case ObjectSym, ClassSym, LabelSym:
			continue
		}
		// The interpreter calls Main; it is used by definition.
		if fold(s.Name) == "main" {
			continue
		}
		st.errs.DeferWarning(s.Line, "%s %q declared but not used", s.Type, s.Name)
	}
	st.errs.FlushDeferred()
}

// SortedNames lists live symbol names in folded order; the -s listing
// and tests use it.
func (st *SymbolTable) SortedNames() []string {
	var names []string
	for id := 0; id < st.syms.Len(); id++ {
		s := st.syms.At(id)
		if s.Flags&UnhashedFlag == 0 {
			names = append(names, s.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return fold(names[i]) < fold(names[j]) })
	return names
}
