// Package zcode provides types and encoding for the Z-machine story file
// format, versions 3 to 8.
package zcode

// Op identifies a Z-machine opcode by its table index, not by its
// encoded byte: the encoded form depends on the operand count and, for
// EXT opcodes, on the 0xBE prefix.
type Op int

// Operand-count classes. TWO-operand opcodes may still be assembled in
// VAR form when an operand does not fit the long form.
const (
	ZeroOp = iota
	OneOp
	TwoOp
	VarOp
	ExtOp
	VarLongOp // call_vs2 / call_vn2: VAR form with two type bytes
)

// Opcode flags.
const (
	StoreFlag  = 1 << iota // writes a result variable byte
	BranchFlag             // carries branch data
	RFlag                  // return-flow: execution never falls through
	VarFlag                // first operand is a variable number, not a value
	TextFlag               // operand is inline encoded text
	LabelFlag              // operand is a label (jump)
	CallFlag               // first operand is a packed routine address
	Store2Flag             // v6 secondary store (not used below v6)
)

// Opcode describes one entry in the Z-machine opcode database.
// Code is the low opcode number within the operand-count class.
type Opcode struct {
	Name    string
	Class   int // ZeroOp .. VarLongOp
	Code    byte
	Flags   int
	MinV    int // first version the opcode exists in
	MaxV    int // last version (0 = no upper limit)
	Version int // 0, or the version whose variant replaces this entry
}

// The opcode database, from the Z-Machine Standards Document 1.1.
// Order within each class is by opcode number.
var opcodes = []Opcode{
	// 2OP
	{"je", TwoOp, 1, BranchFlag, 1, 0, 0},
	{"jl", TwoOp, 2, BranchFlag, 1, 0, 0},
	{"jg", TwoOp, 3, BranchFlag, 1, 0, 0},
	{"dec_chk", TwoOp, 4, BranchFlag | VarFlag, 1, 0, 0},
	{"inc_chk", TwoOp, 5, BranchFlag | VarFlag, 1, 0, 0},
	{"jin", TwoOp, 6, BranchFlag, 1, 0, 0},
	{"test", TwoOp, 7, BranchFlag, 1, 0, 0},
	{"or", TwoOp, 8, StoreFlag, 1, 0, 0},
	{"and", TwoOp, 9, StoreFlag, 1, 0, 0},
	{"test_attr", TwoOp, 10, BranchFlag, 1, 0, 0},
	{"set_attr", TwoOp, 11, 0, 1, 0, 0},
	{"clear_attr", TwoOp, 12, 0, 1, 0, 0},
	{"store", TwoOp, 13, VarFlag, 1, 0, 0},
	{"insert_obj", TwoOp, 14, 0, 1, 0, 0},
	{"loadw", TwoOp, 15, StoreFlag, 1, 0, 0},
	{"loadb", TwoOp, 16, StoreFlag, 1, 0, 0},
	{"get_prop", TwoOp, 17, StoreFlag, 1, 0, 0},
	{"get_prop_addr", TwoOp, 18, StoreFlag, 1, 0, 0},
	{"get_next_prop", TwoOp, 19, StoreFlag, 1, 0, 0},
	{"add", TwoOp, 20, StoreFlag, 1, 0, 0},
	{"sub", TwoOp, 21, StoreFlag, 1, 0, 0},
	{"mul", TwoOp, 22, StoreFlag, 1, 0, 0},
	{"div", TwoOp, 23, StoreFlag, 1, 0, 0},
	{"mod", TwoOp, 24, StoreFlag, 1, 0, 0},
	{"call_2s", TwoOp, 25, StoreFlag | CallFlag, 4, 0, 0},
	{"call_2n", TwoOp, 26, CallFlag, 5, 0, 0},
	{"set_colour", TwoOp, 27, 0, 5, 0, 0},
	{"throw", TwoOp, 28, RFlag, 5, 0, 0},

	// 1OP
	{"jz", OneOp, 0, BranchFlag, 1, 0, 0},
	{"get_sibling", OneOp, 1, StoreFlag | BranchFlag, 1, 0, 0},
	{"get_child", OneOp, 2, StoreFlag | BranchFlag, 1, 0, 0},
	{"get_parent", OneOp, 3, StoreFlag, 1, 0, 0},
	{"get_prop_len", OneOp, 4, StoreFlag, 1, 0, 0},
	{"inc", OneOp, 5, VarFlag, 1, 0, 0},
	{"dec", OneOp, 6, VarFlag, 1, 0, 0},
	{"print_addr", OneOp, 7, 0, 1, 0, 0},
	{"call_1s", OneOp, 8, StoreFlag | CallFlag, 4, 0, 0},
	{"remove_obj", OneOp, 9, 0, 1, 0, 0},
	{"print_obj", OneOp, 10, 0, 1, 0, 0},
	{"ret", OneOp, 11, RFlag, 1, 0, 0},
	{"jump", OneOp, 12, RFlag | LabelFlag, 1, 0, 0},
	{"print_paddr", OneOp, 13, 0, 1, 0, 0},
	{"load", OneOp, 14, StoreFlag | VarFlag, 1, 0, 0},
	{"not", OneOp, 15, StoreFlag, 1, 4, 0},
	{"call_1n", OneOp, 15, CallFlag, 5, 0, 0},

	// 0OP
	{"rtrue", ZeroOp, 0, RFlag, 1, 0, 0},
	{"rfalse", ZeroOp, 1, RFlag, 1, 0, 0},
	{"print", ZeroOp, 2, TextFlag, 1, 0, 0},
	{"print_ret", ZeroOp, 3, RFlag | TextFlag, 1, 0, 0},
	{"nop", ZeroOp, 4, 0, 1, 0, 0},
	{"save", ZeroOp, 5, BranchFlag, 1, 3, 0},
	{"restore", ZeroOp, 6, BranchFlag, 1, 3, 0},
	{"restart", ZeroOp, 7, RFlag, 1, 0, 0},
	{"ret_popped", ZeroOp, 8, RFlag, 1, 0, 0},
	{"pop", ZeroOp, 9, 0, 1, 4, 0},
	{"catch", ZeroOp, 9, StoreFlag, 5, 0, 0},
	{"quit", ZeroOp, 10, RFlag, 1, 0, 0},
	{"new_line", ZeroOp, 11, 0, 1, 0, 0},
	{"show_status", ZeroOp, 12, 0, 3, 3, 0},
	{"verify", ZeroOp, 13, BranchFlag, 3, 0, 0},
	{"piracy", ZeroOp, 15, BranchFlag, 5, 0, 0},

	// VAR
	{"call_vs", VarOp, 0, StoreFlag | CallFlag, 1, 0, 0},
	{"storew", VarOp, 1, 0, 1, 0, 0},
	{"storeb", VarOp, 2, 0, 1, 0, 0},
	{"put_prop", VarOp, 3, 0, 1, 0, 0},
	{"sread", VarOp, 4, 0, 1, 4, 0},
	{"aread", VarOp, 4, StoreFlag, 5, 0, 0},
	{"print_char", VarOp, 5, 0, 1, 0, 0},
	{"print_num", VarOp, 6, 0, 1, 0, 0},
	{"random", VarOp, 7, StoreFlag, 1, 0, 0},
	{"push", VarOp, 8, 0, 1, 0, 0},
	{"pull", VarOp, 9, VarFlag, 1, 0, 0},
	{"split_window", VarOp, 10, 0, 3, 0, 0},
	{"set_window", VarOp, 11, 0, 3, 0, 0},
	{"call_vs2", VarLongOp, 12, StoreFlag | CallFlag, 4, 0, 0},
	{"erase_window", VarOp, 13, 0, 4, 0, 0},
	{"erase_line", VarOp, 14, 0, 4, 0, 0},
	{"set_cursor", VarOp, 15, 0, 4, 0, 0},
	{"get_cursor", VarOp, 16, 0, 4, 0, 0},
	{"set_text_style", VarOp, 17, 0, 4, 0, 0},
	{"buffer_mode", VarOp, 18, 0, 4, 0, 0},
	{"output_stream", VarOp, 19, 0, 3, 0, 0},
	{"input_stream", VarOp, 20, 0, 3, 0, 0},
	{"sound_effect", VarOp, 21, 0, 3, 0, 0},
	{"read_char", VarOp, 22, StoreFlag, 4, 0, 0},
	{"scan_table", VarOp, 23, StoreFlag | BranchFlag, 4, 0, 0},
	{"not_v", VarOp, 24, StoreFlag, 5, 0, 0},
	{"call_vn", VarOp, 25, CallFlag, 5, 0, 0},
	{"call_vn2", VarLongOp, 26, CallFlag, 5, 0, 0},
	{"tokenise", VarOp, 27, 0, 5, 0, 0},
	{"encode_text", VarOp, 28, 0, 5, 0, 0},
	{"copy_table", VarOp, 29, 0, 5, 0, 0},
	{"print_table", VarOp, 30, 0, 5, 0, 0},
	{"check_arg_count", VarOp, 31, BranchFlag, 5, 0, 0},

	// EXT (prefixed 0xBE, version 5+)
	{"save_ext", ExtOp, 0, StoreFlag, 5, 0, 0},
	{"restore_ext", ExtOp, 1, StoreFlag, 5, 0, 0},
	{"log_shift", ExtOp, 2, StoreFlag, 5, 0, 0},
	{"art_shift", ExtOp, 3, StoreFlag, 5, 0, 0},
	{"set_font", ExtOp, 4, StoreFlag, 5, 0, 0},
	{"save_undo", ExtOp, 9, StoreFlag, 5, 0, 0},
	{"restore_undo", ExtOp, 10, StoreFlag, 5, 0, 0},
	{"print_unicode", ExtOp, 11, 0, 5, 0, 0},
	{"check_unicode", ExtOp, 12, StoreFlag, 5, 0, 0},
	{"set_true_colour", ExtOp, 13, 0, 5, 0, 0},
}

// Well-known opcode indexes, resolved once at init. The assembler's
// peephole rules and the relaxer's jump-to-return collapse key off
// these.
var (
	OpJE, OpJZ, OpJump, OpStore, OpPush, OpPull Op
	OpRTrue, OpRFalse, OpRetPopped, OpNop, OpRet Op
	OpAdd, OpSub, OpMul, OpDiv, OpMod            Op
	OpCallVS, OpCallVN, OpLoadW, OpLoadB         Op
	OpPrint, OpPrintRet, OpNewLine               Op
	OpGetProp, OpGetPropAddr, OpPutProp          Op
	OpStoreW, OpStoreB, OpInc, OpDec             Op
	OpAnd, OpOr, OpJL, OpJG, OpTestAttr, OpJin   Op
)

var opIndex = map[string]Op{}

func init() {
	for i, oc := range opcodes {
		// Later variants shadow earlier ones in the name index only
		// when the caller does not go through Lookup with a version.
		if _, dup := opIndex[oc.Name]; !dup {
			opIndex[oc.Name] = Op(i)
		}
	}
	OpJE = opIndex["je"]
	OpJZ = opIndex["jz"]
	OpJump = opIndex["jump"]
	OpStore = opIndex["store"]
	OpPush = opIndex["push"]
	OpPull = opIndex["pull"]
	OpRTrue = opIndex["rtrue"]
	OpRFalse = opIndex["rfalse"]
	OpRetPopped = opIndex["ret_popped"]
	OpNop = opIndex["nop"]
	OpRet = opIndex["ret"]
	OpAdd = opIndex["add"]
	OpSub = opIndex["sub"]
	OpMul = opIndex["mul"]
	OpDiv = opIndex["div"]
	OpMod = opIndex["mod"]
	OpCallVS = opIndex["call_vs"]
	OpCallVN = opIndex["call_vn"]
	OpLoadW = opIndex["loadw"]
	OpLoadB = opIndex["loadb"]
	OpPrint = opIndex["print"]
	OpPrintRet = opIndex["print_ret"]
	OpNewLine = opIndex["new_line"]
	OpGetProp = opIndex["get_prop"]
	OpGetPropAddr = opIndex["get_prop_addr"]
	OpPutProp = opIndex["put_prop"]
	OpStoreW = opIndex["storew"]
	OpStoreB = opIndex["storeb"]
	OpInc = opIndex["inc"]
	OpDec = opIndex["dec"]
	OpAnd = opIndex["and"]
	OpOr = opIndex["or"]
	OpJL = opIndex["jl"]
	OpJG = opIndex["jg"]
	OpTestAttr = opIndex["test_attr"]
	OpJin = opIndex["jin"]
}

// Lookup finds the opcode named name that is available in the given
// version, or -1. Versioned variants share a name slot (sread/aread
// style pairs keep distinct names instead).
func Lookup(name string, version int) Op {
	for i, oc := range opcodes {
		if oc.Name == name && oc.availableIn(version) {
			return Op(i)
		}
	}
	return -1
}

func (oc *Opcode) availableIn(v int) bool {
	if v < oc.MinV {
		return false
	}
	return oc.MaxV == 0 || v <= oc.MaxV
}

// Info returns the database entry for op.
func Info(op Op) *Opcode { return &opcodes[op] }

func (op Op) String() string {
	if op < 0 || int(op) >= len(opcodes) {
		return "???"
	}
	return opcodes[op].Name
}

// IsBranch reports whether op carries branch data.
func (op Op) IsBranch() bool { return opcodes[op].Flags&BranchFlag != 0 }

// IsStore reports whether op writes a result variable.
func (op Op) IsStore() bool { return opcodes[op].Flags&StoreFlag != 0 }

// EndsFlow reports whether execution cannot continue past op.
func (op Op) EndsFlow() bool { return opcodes[op].Flags&RFlag != 0 }

// Operand types as encoded in Z-machine type bits.
const (
	LargeConst byte = 0 // 2-byte constant
	SmallConst byte = 1 // 1-byte constant
	Variable   byte = 2 // variable number byte
	Omitted    byte = 3
)

// Variable numbering: 0 is the stack, 1..15 the routine locals,
// 16..255 the globals.
const (
	StackVar    = 0
	FirstLocal  = 1
	FirstGlobal = 16
)
