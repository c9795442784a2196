package compiler

// Marker is the one-byte backpatch tag carried alongside emitted code
// and data. Values below MaxPatchMarker survive into the backpatch
// table; the rest are consumed by the relaxer or diagnose bugs.
type Marker byte

const (
	NullMarker     Marker = iota // no fixup
	DWordMarker                  // dictionary word address
	StringMarker                 // packed string address
	InconMarker                  // system (veneer-interface) constant
	RoutineMarker                // packed internal routine address
	VRoutineMarker               // packed veneer routine address
	ArrayMarker                  // dynamic array base offset
	StaticArrayMarker
	ObjectMarker
	NumObjectsMarker // total object count
	InheritMarker    // inherited common property value
	IndivPropTableMarker
	InheritIndivMarker
	MainMarker   // address of Main
	SymbolMarker // unresolved symbol value
	VariableMarker
	IdentMarker // property identifier
	ActionMarker

	MaxPatchMarker = ActionMarker

	// Code-stream markers, consumed before backpatching.
	BranchMarker    Marker = 32 // start of branch data; Glulx adds the opmode offset
	BranchMaxMarker Marker = 58 // highest branch marker (opmode offset 26)
	LabelMarker     Marker = 80 // label operand (jump)
	DeletedMarker   Marker = 100
	ErrorMarker     Marker = 120
)

var markerNames = map[Marker]string{
	NullMarker:           "null",
	DWordMarker:          "dictionary-word",
	StringMarker:         "string",
	InconMarker:          "system-constant",
	RoutineMarker:        "routine",
	VRoutineMarker:       "veneer-routine",
	ArrayMarker:          "array",
	StaticArrayMarker:    "static-array",
	ObjectMarker:         "object",
	NumObjectsMarker:     "no-of-objects",
	InheritMarker:        "inherited-property",
	IndivPropTableMarker: "individual-property-table",
	InheritIndivMarker:   "inherited-individual-property",
	MainMarker:           "main",
	SymbolMarker:         "symbol",
	VariableMarker:       "variable",
	IdentMarker:          "identifier",
	ActionMarker:         "action",
	LabelMarker:          "label",
	DeletedMarker:        "deleted",
	ErrorMarker:          "error",
}

func (m Marker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}
	if m >= BranchMarker && m <= BranchMaxMarker {
		return "branch"
	}
	return "???"
}
