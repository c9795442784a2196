package compiler

import "sort"

// Usage bits for a function record.
const (
	usedAsFunction = 1 << iota
	usedAsEmbedded // referenced as a property value, not a textual call
	usedAsMain
)

// The pseudo-function collecting references made outside any routine
// body (array initialisers, constant definitions).
const fromGlobal = -1

type funcRecord struct {
	Name    string
	Addr    int32 // code-area offset, including trailing padding
	Len     int32
	Usage   int
	Refs    []int // referenced symbol ids, deduplicated
	Line    Loc
	Omitted bool
	NewAddr int32
}

// Stripper tracks which routines are reachable so unused ones can be
// warned about or omitted from the output image.
type Stripper struct {
	errs *Errors
	syms *SymbolTable
	mode int // RoutinesWarn or RoutinesOmit

	funcs      []funcRecord
	cur        int
	globalRefs []int
	seen       map[[2]int]bool
	computed   bool
}

func NewStripper(errs *Errors, syms *SymbolTable, mode int) *Stripper {
	s := &Stripper{
		errs: errs,
		syms: syms,
		mode: mode,
		cur:  fromGlobal,
		seen: map[[2]int]bool{},
	}
	syms.OnRoutineRef = s.NoteFunctionSymbol
	return s
}

func (s *Stripper) NoteFunctionStart(name string, addr int32, embedded bool, line Loc) {
	rec := funcRecord{Name: name, Addr: addr, Len: -1, Line: line}
	if embedded {
		rec.Usage |= usedAsEmbedded
	}
	s.funcs = append(s.funcs, rec)
	s.cur = len(s.funcs) - 1
}

func (s *Stripper) NoteFunctionEnd(addr int32) {
	f := &s.funcs[s.cur]
	f.Len = addr - f.Addr
	s.cur = fromGlobal
}

// NoteFunctionSymbol records one outgoing reference from the function
// currently being assembled, once per (function, symbol) pair.
func (s *Stripper) NoteFunctionSymbol(sym int) {
	key := [2]int{s.cur, sym}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	if s.cur == fromGlobal {
		s.globalRefs = append(s.globalRefs, sym)
	} else {
		f := &s.funcs[s.cur]
		f.Refs = append(f.Refs, sym)
	}
}

func (s *Stripper) recordByAddr(addr int32) int {
	i := sort.Search(len(s.funcs), func(i int) bool {
		return s.funcs[i].Addr > addr
	})
	if i == 0 {
		return -1
	}
	f := &s.funcs[i-1]
	if addr >= f.Addr+f.Len {
		return -1
	}
	return i - 1
}

func (s *Stripper) markSym(sym int, queue *[]int) {
	r := s.syms.Get(sym)
	if r.Type != RoutineSym {
		return
	}
	idx := s.recordByAddr(r.Value)
	if idx < 0 {
		return
	}
	if s.funcs[idx].Usage == 0 {
		*queue = append(*queue, idx)
	}
	s.funcs[idx].Usage |= usedAsFunction
}

// Compute runs the reachability walk and assigns post-strip addresses.
func (s *Stripper) Compute() {
	if s.computed {
		return
	}
	s.computed = true

	var queue []int
	for i := range s.funcs {
		if s.funcs[i].Usage != 0 {
			queue = append(queue, i)
		}
	}
	for _, name := range []string{"Main", "Main__"} {
		if id := s.syms.Lookup(name); id >= 0 {
			r := s.syms.Get(id)
			if idx := s.recordByAddr(r.Value); idx >= 0 {
				if s.funcs[idx].Usage == 0 {
					queue = append(queue, idx)
				}
				s.funcs[idx].Usage |= usedAsMain
			}
		}
	}
	for _, sym := range s.globalRefs {
		s.markSym(sym, &queue)
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		for _, sym := range s.funcs[idx].Refs {
			s.markSym(sym, &queue)
		}
	}

	newAddr := int32(0)
	for i := range s.funcs {
		f := &s.funcs[i]
		if f.Usage == 0 {
			f.Omitted = s.mode == RoutinesOmit
			if s.mode == RoutinesWarn {
				s.errs.WarningAt(f.Line, "routine %q is never used", f.Name)
			}
		}
		f.NewAddr = newAddr
		if !f.Omitted {
			newAddr += f.Len
		}
	}
}

// StrippedSize returns the code-area size after omission.
func (s *Stripper) StrippedSize(origSize int32) int32 {
	removed := int32(0)
	for i := range s.funcs {
		if s.funcs[i].Omitted {
			removed += s.funcs[i].Len
		}
	}
	return origSize - removed
}

// AddressForAddress maps a live function's start address to its
// post-strip address. Asking for a stripped function is a bug.
func (s *Stripper) AddressForAddress(old int32) int32 {
	idx := s.recordByAddr(old)
	if idx < 0 {
		s.errs.CompilerError("address %#x is not inside any routine", old)
		return old
	}
	f := &s.funcs[idx]
	if f.Omitted {
		s.errs.CompilerError("address of stripped routine %q requested", f.Name)
	}
	return f.NewAddr + (old - f.Addr)
}

// OffsetForCodeOffset maps any code offset through the strip,
// reporting whether the byte fell inside an omitted function.
func (s *Stripper) OffsetForCodeOffset(old int32, stripped *bool) int32 {
	idx := s.recordByAddr(old)
	if idx < 0 {
		*stripped = false
		return old
	}
	f := &s.funcs[idx]
	*stripped = f.Omitted
	return f.NewAddr + (old - f.Addr)
}

// Omitted reports whether the function starting at addr was stripped.
func (s *Stripper) Omitted(addr int32) bool {
	idx := s.recordByAddr(addr)
	return idx >= 0 && s.funcs[idx].Omitted
}

// Functions exposes the record list for the debug-file writer.
func (s *Stripper) Functions() []funcRecord { return s.funcs }
