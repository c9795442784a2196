package compiler

// VeneerRoutine identifies one of the run-time support routines the
// code generator can call on. Their bodies are supplied by the driver;
// the compiler only requests them and patches their addresses.
type VeneerRoutine int

const (
	VnRVPr VeneerRoutine = iota // read a property value
	VnWVPr                      // write a property value
	VnRAPr                      // property address
	VnRLPr                      // property length
	VnCAPr                      // call a property as a routine
	VnOCCl                      // ofclass test
	VnMetaclass
	VnChildren
	VnYoungest
	VnCount
)

var veneerNames = [VnCount]string{
	"RV__Pr", "WV__Pr", "RA__Pr", "RL__Pr", "CA__Pr",
	"OC__Cl", "Metaclass", "Children", "Youngest",
}

func (v VeneerRoutine) String() string { return veneerNames[v] }

// Veneer tracks which support routines have been requested. Supply,
// when set, is called once per routine on first request so the driver
// can feed its source through the compiler.
type Veneer struct {
	c         *Compiler
	requested [VnCount]bool
	symbols   [VnCount]int
	Supply    func(r VeneerRoutine, name string)
}

func NewVeneer(c *Compiler) *Veneer {
	v := &Veneer{c: c}
	for i := range v.symbols {
		v.symbols[i] = -1
	}
	return v
}

// Request marks routine r as needed and returns the operand to call
// it with. The value is the veneer index until backpatch resolves it.
func (v *Veneer) Request(r VeneerRoutine) Operand {
	if !v.requested[r] {
		v.requested[r] = true
		id := v.c.Syms.Index(veneerNames[r])
		s := v.c.Syms.Get(id)
		if s.Flags&UnknownFlag != 0 {
			v.c.Syms.AssignMarked(id, VRoutineMarker, int32(r), RoutineSym)
			s.Flags |= SystemFlag | UsedFlag
		}
		v.symbols[r] = id
		if v.Supply != nil {
			v.Supply(r, veneerNames[r])
		}
	}
	return Operand{Kind: LongConstOp, Value: int32(r), Marker: VRoutineMarker, Sym: v.symbols[r]}
}

// Requested reports whether routine r has been asked for.
func (v *Veneer) Requested(r VeneerRoutine) bool { return v.requested[r] }

// Addresses returns the code offsets recorded for requested routines,
// for the backpatcher; unrequested slots are -1.
func (v *Veneer) Addresses() [VnCount]int32 {
	var out [VnCount]int32
	for i := range out {
		out[i] = -1
		if v.requested[i] && v.symbols[i] >= 0 {
			s := v.c.Syms.Get(v.symbols[i])
			if s.Type == RoutineSym && s.Marker != VRoutineMarker {
				out[i] = s.Value
			}
		}
	}
	return out
}
