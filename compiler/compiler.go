package compiler

import (
	"errors"
	"io"

	"github.com/DavidKinder/Inform6-sub000/zcode"
)

// GlobalVar is one declared global variable: its symbol, its variable
// number, and the initial value placed in the globals table.
type GlobalVar struct {
	Sym    int
	Number int32
	Init   Operand
}

// LowString is one dynamic-string slot declared by Lowstring (Z only).
type LowString struct {
	Sym  int
	Text string
	Slot int32
}

// ArrayRecord describes one compiled array for the debug writer and
// the tests.
type ArrayRecord struct {
	Sym    int
	Base   int32
	Len    int32
	Static bool
}

// RoutineDebug is one routine's record for the debug-information file.
type RoutineDebug struct {
	Sym        int
	Name       string
	Start, End int32 // code-area offsets, end exclusive
	Locals     []string
	SeqPoints  []SeqPoint
}

// Statusline modes (Z version 3).
const (
	StatuslineScore = iota
	StatuslineTime
)

// Compiler owns every subsystem of one compilation. Exactly one exists
// per compile; all cross-component access goes through it.
type Compiler struct {
	Opts *Options
	Errs *Errors
	Syms *SymbolTable
	Lex  *Lexer
	Expr *ExprParser
	Asm  *Assembler
	Gen  *CodeGen

	Veneer   *Veneer
	Stripper *Stripper

	Strings *StringPool
	Dict    *Dictionary
	Actions *ActionTable
	Arrays  *DataArea
	Statics *DataArea

	Globals      []GlobalVar
	Routines     []RoutineDebug
	PropDefaults []Operand
	LowStrings   []LowString
	Abbrevs      []string
	ArrayInfo    []ArrayRecord
	Alphabet     [3]string

	Release    int32
	Serial     string
	Statusline int
	OrigSource string

	// IncludeOpen resolves an Include directive to an open reader. The
	// driver owns the search path; nil disables Include.
	IncludeOpen func(name string) (io.Reader, error)

	files []string

	nextGlobal     int32
	nextAttribute  int32
	nextProperty   int32
	nextFakeAction int32

	condStack []condFrame
	ended     bool

	mainChecked bool
	mainAddr    int32
}

// NewCompiler wires up a compiler for the given options, reporting
// diagnostics to out (os.Stdout if nil).
func NewCompiler(opts Options, out io.Writer) *Compiler {
	c := &Compiler{Opts: &opts}
	c.Errs = NewErrors(out)
	c.Errs.FileName = c.fileName
	c.Syms = NewSymbolTable(c.Errs, c.Opts)
	c.Lex = NewLexer(c.Errs, c.Opts, c.Syms)
	c.Expr = NewExprParser(c)
	c.Asm = NewAssembler(c)
	c.Gen = NewCodeGen(c)
	c.Veneer = NewVeneer(c)
	c.Stripper = NewStripper(c.Errs, c.Syms, opts.UnusedRoutines)

	c.Strings = NewStringPool()
	c.Dict = NewDictionary()
	c.Actions = NewActionTable()
	c.Arrays = NewDataArea()
	c.Statics = NewDataArea()
	c.Alphabet = zcode.DefaultAlphabet

	c.Release = 1
	c.Serial = "000000"
	c.nextProperty = 1
	if opts.Target == TargetGlulx {
		// The first user global sits above the code generator's
		// scratch range.
		c.nextGlobal = glulxFirstGlobal + maxTemps
	} else {
		c.nextGlobal = 16
	}
	return c
}

// AddString interns a double-quoted string and returns its pool index,
// referenced in code under the string marker.
func (c *Compiler) AddString(text string) int32 { return c.Strings.Add(text) }

// AddDictWord interns a dictionary word and returns its insertion
// index, referenced under the dictionary-word marker.
func (c *Compiler) AddDictWord(word string) int32 {
	return c.Dict.Add(word, c.Opts.DictWordSize)
}

// AddAction numbers an ##Action literal.
func (c *Compiler) AddAction(name string) int32 { return c.Actions.Add(name) }

// noteRoutine records a finished routine for the debug writer.
func (c *Compiler) noteRoutine(sym int, name string, locals []string, start, end int32, seq []SeqPoint) {
	c.Routines = append(c.Routines, RoutineDebug{
		Sym: sym, Name: name, Start: start, End: end,
		Locals: locals, SeqPoints: seq,
	})
}

// addFile registers a source file name; file numbers start at 1.
func (c *Compiler) addFile(name string) int {
	c.files = append(c.files, name)
	return len(c.files)
}

func (c *Compiler) fileName(n int) string {
	if n >= 1 && n <= len(c.files) {
		return c.files[n-1]
	}
	return "(no file)"
}

// Files lists the source files seen so far, in file-number order.
func (c *Compiler) Files() []string { return c.files }

// Compile runs the directive loop over one source file, including
// whatever it pulls in. A fatal diagnostic unwinds to here and is
// returned as an error; ordinary errors accumulate in c.Errs.
func (c *Compiler) Compile(name string, r io.Reader) (err error) {
	defer func() {
		if p := recover(); p != nil {
			bail, ok := p.(fatalBail)
			if !ok {
				panic(p)
			}
			err = errors.New(bail.msg)
		}
	}()
	c.Lex.PushFile(c.addFile(name), r, false)
	c.run()
	c.finishPass()
	return nil
}

// CompileString is Compile over in-memory source, for the tests and
// for driver-synthesised fragments.
func (c *Compiler) CompileString(name, src string) error {
	return c.Compile(name, &stringReader{s: src})
}

// finishPass runs the end-of-pass bookkeeping: unsupplied veneer
// requests and the declared-but-not-used scan.
func (c *Compiler) finishPass() {
	for r := VeneerRoutine(0); r < VnCount; r++ {
		if !c.Veneer.Requested(r) {
			continue
		}
		id := c.Syms.Lookup(veneerNames[r])
		if id < 0 || c.Syms.Get(id).Marker == VRoutineMarker {
			c.Errs.Error("the veneer routine %q is required but was never supplied",
				veneerNames[r])
		}
	}
	c.Syms.IssueUnusedWarnings()
	if c.Errs.ListSymbols {
		for _, name := range c.Syms.SortedNames() {
			s := c.Syms.Get(c.Syms.Lookup(name))
			c.Errs.Info("%-28s %-20s %d", s.Name, s.Type, s.Value)
		}
	}
}
