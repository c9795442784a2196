package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Target selects the output virtual machine.
type Target int

const (
	TargetZ     Target = iota // Z-machine, versions 3..8
	TargetGlulx               // Glulx
)

// Unused-routine policy.
const (
	RoutinesKeep = iota // no analysis
	RoutinesWarn        // WARN_UNUSED_ROUTINES
	RoutinesOmit        // OMIT_UNUSED_ROUTINES
)

// OptionLevel is the precedence of a setting source. Higher levels win.
const (
	LevelDefault = iota // compile-time default
	LevelHeader         // source-file header comment
	LevelCommand        // command line
)

// Options is the driver-to-core configuration surface. The zero value
// is not usable; call DefaultOptions.
type Options struct {
	Target  Target
	Version int // Z-machine version, 3..8

	HashTabSize    int
	SymbolsInitial int
	TokensInitial  int

	DictWordSize     int // dictionary resolution in characters
	DictCharWidth    int // bytes per dictionary character (Glulx: 1 or 4)
	DictEntryExtra   int // data bytes per dictionary entry
	NumAttrBytes     int // attribute bytes per object
	StackSize        int // Z: 256-byte units; Glulx: bytes
	MemoryMapExt     int // Glulx: 256-byte units appended to ENDMEM
	MaxAbbrevs       int
	MaxDynamicString int

	UnusedRoutines int // RoutinesKeep / RoutinesWarn / RoutinesOmit

	Economy    bool // -e: abbreviate strings in the string area
	Debugging  bool // emit the debug-information file
	TraceAsm   int  // assembly trace level
	TraceLex   bool
	TraceExprs bool

	// DefinedConstants are driver-supplied NAME=VALUE pairs, seeded
	// into the symbol table as constants before the pass.
	DefinedConstants map[string]int32

	levels map[string]int
}

// DefaultOptions returns the compile-time defaults for a target.
func DefaultOptions(target Target) Options {
	o := Options{
		Target:           target,
		Version:          5,
		HashTabSize:      512,
		SymbolsInitial:   2000,
		TokensInitial:    512,
		DictWordSize:     9,
		DictCharWidth:    1,
		DictEntryExtra:   4,
		NumAttrBytes:     6,
		StackSize:        4,
		MaxAbbrevs:       64,
		MaxDynamicString: 32,
		DefinedConstants: make(map[string]int32),
		levels:           make(map[string]int),
	}
	if target == TargetGlulx {
		o.Version = 0
		o.NumAttrBytes = 7
		o.StackSize = 4096
		o.DictWordSize = 9
	}
	return o
}

// Set applies a named option at the given precedence level. Settings
// from a lower level never override a higher one. Unknown names and
// out-of-range values return an error for the driver to report.
func (o *Options) Set(name string, value int, level int) error {
	key := strings.ToUpper(name)
	if prev, ok := o.levels[key]; ok && prev > level {
		return nil
	}
	switch key {
	case "VERSION":
		if o.Target == TargetGlulx {
			return fmt.Errorf("VERSION applies to the Z-machine target only")
		}
		if value < 3 || value > 8 {
			return fmt.Errorf("VERSION must be in 3..8, not %d", value)
		}
		o.Version = value
	case "HASH_TAB_SIZE":
		if value < 1 {
			return fmt.Errorf("HASH_TAB_SIZE must be positive")
		}
		o.HashTabSize = value
	case "MAX_SYMBOLS":
		o.SymbolsInitial = value
	case "DICT_WORD_SIZE":
		o.DictWordSize = value
	case "DICT_CHAR_SIZE":
		if o.Target == TargetGlulx && value != 1 && value != 4 {
			return fmt.Errorf("DICT_CHAR_SIZE must be 1 or 4")
		}
		o.DictCharWidth = value
	case "NUM_ATTR_BYTES":
		if o.Target == TargetGlulx {
			// Must be 3 mod 4; round up rather than reject.
			for value%4 != 3 {
				value++
			}
		}
		o.NumAttrBytes = value
	case "MAX_STACK_SIZE":
		o.StackSize = value
	case "MEMORY_MAP_EXTENSION":
		if o.Target != TargetGlulx {
			return fmt.Errorf("MEMORY_MAP_EXTENSION applies to the Glulx target only")
		}
		o.MemoryMapExt = value
	case "MAX_ABBREVS":
		limit := 96
		if o.Target == TargetGlulx {
			limit = 0
		}
		if limit > 0 && value > limit {
			return fmt.Errorf("MAX_ABBREVS is limited to %d", limit)
		}
		o.MaxAbbrevs = value
	case "MAX_DYNAMIC_STRINGS":
		limit := 96
		if o.Target == TargetGlulx {
			limit = 100
		}
		if value > limit {
			return fmt.Errorf("MAX_DYNAMIC_STRINGS is limited to %d", limit)
		}
		o.MaxDynamicString = value
	case "WARN_UNUSED_ROUTINES":
		if value != 0 {
			o.UnusedRoutines = RoutinesWarn
		}
	case "OMIT_UNUSED_ROUTINES":
		if value != 0 {
			o.UnusedRoutines = RoutinesOmit
		}
	default:
		return fmt.Errorf("no such memory setting as %q", name)
	}
	o.levels[key] = level
	return nil
}

// Define records a driver-supplied NAME=VALUE constant (VALUE optional,
// defaulting to 0), as given by -D on the command line.
func (o *Options) Define(pair string) error {
	name, val := pair, ""
	if i := strings.IndexByte(pair, '='); i >= 0 {
		name, val = pair[:i], pair[i+1:]
	}
	if name == "" {
		return fmt.Errorf("empty constant name in %q", pair)
	}
	var n int64
	if val != "" {
		var err error
		n, err = strconv.ParseInt(val, 0, 32)
		if err != nil {
			return fmt.Errorf("bad value in %q: %v", pair, err)
		}
	}
	o.DefinedConstants[name] = int32(n)
	return nil
}

// WordSize is the target word size in bytes.
func (o *Options) WordSize() int {
	if o.Target == TargetGlulx {
		return 4
	}
	return 2
}

// Scale is the packed-address scale factor (1 on Glulx, where function
// addresses are byte addresses).
func (o *Options) Scale() int32 {
	if o.Target == TargetGlulx {
		return 1
	}
	switch {
	case o.Version <= 3:
		return 2
	case o.Version <= 7:
		return 4
	default:
		return 8
	}
}
