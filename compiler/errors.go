package compiler

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SevWarning Severity = iota
	SevError
	SevLinkError
	SevCompilerError
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "Warning"
	case SevError:
		return "Error"
	case SevLinkError:
		return "Error"
	case SevCompilerError:
		return "Compiler error"
	case SevFatal:
		return "Fatal error"
	}
	return "???"
}

// Loc is a brief source location: file number (index into the driver's
// file table) and line.
type Loc struct {
	File int
	Line int
}

// fatalBail is the panic payload used to unwind to Compile's recover
// when compilation cannot continue.
type fatalBail struct {
	msg string
}

// TooManyErrors is the error budget before compilation gives up.
const TooManyErrors = 100

// Errors collects and reports diagnostics. All user-visible compiler
// output flows through here, to the writer the driver supplies.
type Errors struct {
	Out io.Writer

	// FileName resolves a file number for display; the driver owns the
	// file table. Nil means "print the number".
	FileName func(file int) string

	// Location reports run in source order, so the lexer keeps this
	// current as it reads.
	Current Loc

	WarningCount  int
	ErrorCount    int
	SuppressCount int

	NoWarnings   bool // -w: suppress all warnings
	ListSymbols  bool
	obsoleteOnce map[string]bool

	deferredWarns []deferredWarn
}

type deferredWarn struct {
	loc Loc
	msg string
}

// NewErrors returns a collector writing to out (os.Stdout if nil).
func NewErrors(out io.Writer) *Errors {
	if out == nil {
		out = os.Stdout
	}
	return &Errors{Out: out, obsoleteOnce: make(map[string]bool)}
}

func (e *Errors) where(loc Loc) string {
	name := fmt.Sprintf("file %d", loc.File)
	if e.FileName != nil {
		name = e.FileName(loc.File)
	}
	return fmt.Sprintf("%s(%d)", name, loc.Line)
}

func (e *Errors) report(sev Severity, loc Loc, format string, args ...any) {
	fmt.Fprintf(e.Out, "%s: %s: %s\n", e.where(loc), sev, fmt.Sprintf(format, args...))
}

// Info prints a plain informational line, as the Message directive
// does, without touching any diagnostic counter.
func (e *Errors) Info(format string, args ...any) {
	fmt.Fprintf(e.Out, "%s\n", fmt.Sprintf(format, args...))
}

// Warning reports a warning at the current location.
func (e *Errors) Warning(format string, args ...any) {
	e.WarningAt(e.Current, format, args...)
}

// WarningAt reports a warning at an explicit location.
func (e *Errors) WarningAt(loc Loc, format string, args ...any) {
	if e.NoWarnings {
		e.SuppressCount++
		return
	}
	e.WarningCount++
	e.report(SevWarning, loc, format, args...)
}

// DeferWarning queues a warning to be issued, in location order, at the
// end of the pass. Used for the declared-but-not-used scan.
func (e *Errors) DeferWarning(loc Loc, format string, args ...any) {
	e.deferredWarns = append(e.deferredWarns, deferredWarn{loc, fmt.Sprintf(format, args...)})
}

// FlushDeferred issues queued warnings sorted by location.
func (e *Errors) FlushDeferred() {
	sort.SliceStable(e.deferredWarns, func(i, j int) bool {
		a, b := e.deferredWarns[i].loc, e.deferredWarns[j].loc
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	for _, w := range e.deferredWarns {
		e.WarningAt(w.loc, "%s", w.msg)
	}
	e.deferredWarns = nil
}

// Error reports a recoverable error at the current location.
func (e *Errors) Error(format string, args ...any) {
	e.ErrorAt(e.Current, format, args...)
}

// ErrorAt reports a recoverable error at an explicit location.
func (e *Errors) ErrorAt(loc Loc, format string, args ...any) {
	e.ErrorCount++
	e.report(SevError, loc, format, args...)
	if e.ErrorCount >= TooManyErrors {
		e.Fatal("too many errors: giving up")
	}
}

// LinkError reports an error prefixed with the module file name.
func (e *Errors) LinkError(module string, format string, args ...any) {
	e.ErrorCount++
	e.report(SevLinkError, e.Current, "module %q: %s", module, fmt.Sprintf(format, args...))
}

// CompilerError reports an internal invariant violation. If the user's
// source was clean up to this point the bug is ours, so ask for a
// report; either way compilation stops.
func (e *Errors) CompilerError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.ErrorCount == 0 {
		fmt.Fprintf(e.Out, "*** Compiler error: %s ***\n", msg)
		fmt.Fprintf(e.Out, "*** Please report this bug to the maintainers. ***\n")
	} else {
		e.report(SevCompilerError, e.Current, "%s", msg)
	}
	panic(fatalBail{msg: "compiler error: " + msg})
}

// Fatal reports an unrecoverable error and unwinds compilation.
func (e *Errors) Fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.report(SevFatal, e.Current, "%s", msg)
	panic(fatalBail{msg: msg})
}

// Obsolete warns about a deprecated usage, once per distinct message.
func (e *Errors) Obsolete(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.obsoleteOnce[msg] {
		return
	}
	e.obsoleteOnce[msg] = true
	e.Warning("%s", msg)
}

// Succeeded reports whether compilation produced no errors. Warnings
// alone do not fail a compile.
func (e *Errors) Succeeded() bool { return e.ErrorCount == 0 }
