// Package glulx provides types and encoding for the Glulx virtual
// machine image format.
package glulx

// Op is a Glulx opcode number. Encoded length depends on magnitude:
// one byte below 0x80, two bytes below 0x4000, four bytes otherwise.
type Op int32

// Opcodes from the Glulx 3.1.2 specification.
const (
	Nop        Op = 0x00
	Add        Op = 0x10
	Sub        Op = 0x11
	Mul        Op = 0x12
	Div        Op = 0x13
	Mod        Op = 0x14
	Neg        Op = 0x15
	Bitand     Op = 0x18
	Bitor      Op = 0x19
	Bitxor     Op = 0x1A
	Bitnot     Op = 0x1B
	Shiftl     Op = 0x1C
	Sshiftr    Op = 0x1D
	Ushiftr    Op = 0x1E
	Jump       Op = 0x20
	Jz         Op = 0x22
	Jnz        Op = 0x23
	Jeq        Op = 0x24
	Jne        Op = 0x25
	Jlt        Op = 0x26
	Jge        Op = 0x27
	Jgt        Op = 0x28
	Jle        Op = 0x29
	Jltu       Op = 0x2A
	Jgeu       Op = 0x2B
	Jgtu       Op = 0x2C
	Jleu       Op = 0x2D
	Call       Op = 0x30
	Return     Op = 0x31
	Catch      Op = 0x32
	Throw      Op = 0x33
	Tailcall   Op = 0x34
	Copy       Op = 0x40
	Copys      Op = 0x41
	Copyb      Op = 0x42
	Sexs       Op = 0x44
	Sexb       Op = 0x45
	Aload      Op = 0x48
	Aloads     Op = 0x49
	Aloadb     Op = 0x4A
	Aloadbit   Op = 0x4B
	Astore     Op = 0x4C
	Astores    Op = 0x4D
	Astoreb    Op = 0x4E
	Astorebit  Op = 0x4F
	Stkcount   Op = 0x50
	Stkpeek    Op = 0x51
	Stkswap    Op = 0x52
	Stkroll    Op = 0x53
	Stkcopy    Op = 0x54
	Streamchar Op = 0x70
	Streamnum  Op = 0x71
	Streamstr  Op = 0x72
	Streamuni  Op = 0x73
	Gestalt    Op = 0x100
	Debugtrap  Op = 0x101
	Getmemsize Op = 0x102
	Setmemsize Op = 0x103
	Jumpabs    Op = 0x104
	Random     Op = 0x110
	Setrandom  Op = 0x111
	Quit       Op = 0x120
	Verify     Op = 0x121
	Restart    Op = 0x122
	Save       Op = 0x123
	Restore    Op = 0x124
	Saveundo   Op = 0x125
	Restoreund Op = 0x126
	Protect    Op = 0x127
	Glk        Op = 0x130
	Getstringt Op = 0x140
	Setstringt Op = 0x141
	Getiosys   Op = 0x148
	Setiosys   Op = 0x149
	Linearsrch Op = 0x150
	Binarysrch Op = 0x151
	Linkedsrch Op = 0x152
	Callf      Op = 0x160
	Callfi     Op = 0x161
	Callfii    Op = 0x162
	Callfiii   Op = 0x163
	Mzero      Op = 0x170
	Mcopy      Op = 0x171
	Malloc     Op = 0x178
	Mfree      Op = 0x179
	Accelfunc  Op = 0x180
	Accelparam Op = 0x181
	Numtof     Op = 0x190
	Ftonumz    Op = 0x191
	Ftonumn    Op = 0x192
	Ceil       Op = 0x198
	Floor      Op = 0x199
	Fadd       Op = 0x1A0
	Fsub       Op = 0x1A1
	Fmul       Op = 0x1A2
	Fdiv       Op = 0x1A3
	Fmod       Op = 0x1A4
	Sqrt       Op = 0x1A8
	Exp        Op = 0x1A9
	Log        Op = 0x1AA
	Pow        Op = 0x1AB
	Sin        Op = 0x1B0
	Cos        Op = 0x1B1
	Tan        Op = 0x1B2
	Asin       Op = 0x1B3
	Acos       Op = 0x1B4
	Atan       Op = 0x1B5
	Atan2      Op = 0x1B6
	Jfeq       Op = 0x1C0
	Jfne       Op = 0x1C1
	Jflt       Op = 0x1C2
	Jfle       Op = 0x1C3
	Jfgt       Op = 0x1C4
	Jfge       Op = 0x1C5
	Jisnan     Op = 0x1C8
	Jisinf     Op = 0x1C9
)

// Operand roles within an instruction.
const (
	LoadRole  = iota // read operand
	StoreRole        // write operand
)

/// Opcode metadata: operand count and which operands store. Branch
// opcodes treat their final operand as a jump offset.
type Opcode struct {
	Op       Op
	Name     string
	Operands int
	Stores   int // number of trailing store operands
	Branches bool
	EndsFlow bool
}

var opcodes = []Opcode{
	{Nop, "nop", 0, 0, false, false},
	{Add, "add", 3, 1, false, false},
	{Sub, "sub", 3, 1, false, false},
	{Mul, "mul", 3, 1, false, false},
	{Div, "div", 3, 1, false, false},
	{Mod, "mod", 3, 1, false, false},
	{Neg, "neg", 2, 1, false, false},
	{Bitand, "bitand", 3, 1, false, false},
	{Bitor, "bitor", 3, 1, false, false},
	{Bitxor, "bitxor", 3, 1, false, false},
	{Bitnot, "bitnot", 2, 1, false, false},
	{Shiftl, "shiftl", 3, 1, false, false},
	{Sshiftr, "sshiftr", 3, 1, false, false},
	{Ushiftr, "ushiftr", 3, 1, false, false},
	{Jump, "jump", 1, 0, true, true},
	{Jz, "jz", 2, 0, true, false},
	{Jnz, "jnz", 2, 0, true, false},
	{Jeq, "jeq", 3, 0, true, false},
	{Jne, "jne", 3, 0, true, false},
	{Jlt, "jlt", 3, 0, true, false},
	{Jge, "jge", 3, 0, true, false},
	{Jgt, "jgt", 3, 0, true, false},
	{Jle, "jle", 3, 0, true, false},
	{Jltu, "jltu", 3, 0, true, false},
	{Jgeu, "jgeu", 3, 0, true, false},
	{Jgtu, "jgtu", 3, 0, true, false},
	{Jleu, "jleu", 3, 0, true, false},
	{Call, "call", 3, 1, false, false},
	{Return, "return", 1, 0, false, true},
	{Catch, "catch", 2, 1, true, false},
	{Throw, "throw", 2, 0, false, true},
	{Tailcall, "tailcall", 2, 0, false, true},
	{Copy, "copy", 2, 1, false, false},
	{Copys, "copys", 2, 1, false, false},
	{Copyb, "copyb", 2, 1, false, false},
	{Sexs, "sexs", 2, 1, false, false},
	{Sexb, "sexb", 2, 1, false, false},
	{Aload, "aload", 3, 1, false, false},
	{Aloads, "aloads", 3, 1, false, false},
	{Aloadb, "aloadb", 3, 1, false, false},
	{Aloadbit, "aloadbit", 3, 1, false, false},
	{Astore, "astore", 3, 0, false, false},
	{Astores, "astores", 3, 0, false, false},
	{Astoreb, "astoreb", 3, 0, false, false},
	{Astorebit, "astorebit", 3, 0, false, false},
	{Stkcount, "stkcount", 1, 1, false, false},
	{Stkpeek, "stkpeek", 2, 1, false, false},
	{Stkswap, "stkswap", 0, 0, false, false},
	{Stkroll, "stkroll", 2, 0, false, false},
	{Stkcopy, "stkcopy", 1, 0, false, false},
	{Streamchar, "streamchar", 1, 0, false, false},
	{Streamnum, "streamnum", 1, 0, false, false},
	{Streamstr, "streamstr", 1, 0, false, false},
	{Streamuni, "streamunichar", 1, 0, false, false},
	{Gestalt, "gestalt", 3, 1, false, false},
	{Debugtrap, "debugtrap", 1, 0, false, false},
	{Getmemsize, "getmemsize", 1, 1, false, false},
	{Setmemsize, "setmemsize", 2, 1, false, false},
	{Jumpabs, "jumpabs", 1, 0, false, true},
	{Random, "random", 2, 1, false, false},
	{Setrandom, "setrandom", 1, 0, false, false},
	{Quit, "quit", 0, 0, false, true},
	{Verify, "verify", 1, 1, false, false},
	{Restart, "restart", 0, 0, false, true},
	{Save, "save", 2, 1, false, false},
	{Restore, "restore", 2, 1, false, false},
	{Saveundo, "saveundo", 1, 1, false, false},
	{Restoreund, "restoreundo", 1, 1, false, false},
	{Protect, "protect", 2, 0, false, false},
	{Glk, "glk", 3, 1, false, false},
	{Getstringt, "getstringtbl", 1, 1, false, false},
	{Setstringt, "setstringtbl", 1, 0, false, false},
	{Getiosys, "getiosys", 2, 1, false, false},
	{Setiosys, "setiosys", 2, 0, false, false},
	{Linearsrch, "linearsearch", 8, 1, false, false},
	{Binarysrch, "binarysearch", 8, 1, false, false},
	{Linkedsrch, "linkedsearch", 7, 1, false, false},
	{Callf, "callf", 2, 1, false, false},
	{Callfi, "callfi", 3, 1, false, false},
	{Callfii, "callfii", 4, 1, false, false},
	{Callfiii, "callfiii", 5, 1, false, false},
	{Mzero, "mzero", 2, 0, false, false},
	{Mcopy, "mcopy", 3, 0, false, false},
	{Malloc, "malloc", 2, 1, false, false},
	{Mfree, "mfree", 1, 0, false, false},
	{Accelfunc, "accelfunc", 2, 0, false, false},
	{Accelparam, "accelparam", 2, 0, false, false},
	{Numtof, "numtof", 2, 1, false, false},
	{Ftonumz, "ftonumz", 2, 1, false, false},
	{Ftonumn, "ftonumn", 2, 1, false, false},
	{Ceil, "ceil", 2, 1, false, false},
	{Floor, "floor", 2, 1, false, false},
	{Fadd, "fadd", 3, 1, false, false},
	{Fsub, "fsub", 3, 1, false, false},
	{Fmul, "fmul", 3, 1, false, false},
	{Fdiv, "fdiv", 3, 1, false, false},
	{Fmod, "fmod", 4, 2, false, false},
	{Sqrt, "sqrt", 2, 1, false, false},
	{Exp, "exp", 2, 1, false, false},
	{Log, "log", 2, 1, false, false},
	{Pow, "pow", 3, 1, false, false},
	{Sin, "sin", 2, 1, false, false},
	{Cos, "cos", 2, 1, false, false},
	{Tan, "tan", 2, 1, false, false},
	{Asin, "asin", 2, 1, false, false},
	{Acos, "acos", 2, 1, false, false},
	{Atan, "atan", 2, 1, false, false},
	{Atan2, "atan2", 3, 1, false, false},
	{Jfeq, "jfeq", 4, 0, true, false},
	{Jfne, "jfne", 4, 0, true, false},
	{Jflt, "jflt", 3, 0, true, false},
	{Jfle, "jfle", 3, 0, true, false},
	{Jfgt, "jfgt", 3, 0, true, false},
	{Jfge, "jfge", 3, 0, true, false},
	{Jisnan, "jisnan", 2, 0, true, false},
	{Jisinf, "jisinf", 2, 0, true, false},
}

var byOp = map[Op]*Opcode{}
var byName = map[string]*Opcode{}

func init() {
	for i := range opcodes {
		byOp[opcodes[i].Op] = &opcodes[i]
		byName[opcodes[i].Name] = &opcodes[i]
	}
}

// Info returns the metadata entry for op, or nil.
func Info(op Op) *Opcode { return byOp[op] }

// Lookup finds an opcode by mnemonic, or nil.
func Lookup(name string) *Opcode { return byName[name] }

func (op Op) String() string {
	if oc := byOp[op]; oc != nil {
		return oc.Name
	}
	return "???"
}

// EncodedLen returns the byte length of the opcode number on disk.
func (op Op) EncodedLen() int {
	switch {
	case op < 0x80:
		return 1
	case op < 0x4000:
		return 2
	default:
		return 4
	}
}

// Encode appends the opcode number in its variable-length form:
// 1 byte as-is, 2 bytes with 0x8000 added, 4 bytes with 0xC0000000.
func (op Op) Encode(dst []byte) []byte {
	switch {
	case op < 0x80:
		return append(dst, byte(op))
	case op < 0x4000:
		v := uint16(op) | 0x8000
		return append(dst, byte(v>>8), byte(v))
	default:
		v := uint32(op) | 0xC0000000
		return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

// Operand addressing modes (opmode nibbles).
const (
	ModeConstZero  byte = 0x0
	ModeConstByte  byte = 0x1
	ModeConstShort byte = 0x2
	ModeConstWord  byte = 0x3
	ModeMemByte    byte = 0x5
	ModeMemShort   byte = 0x6
	ModeMemWord    byte = 0x7
	ModeStack      byte = 0x8
	ModeLocalByte  byte = 0x9
	ModeLocalShort byte = 0xA
	ModeLocalWord  byte = 0xB
	ModeRAMByte    byte = 0xD
	ModeRAMShort   byte = 0xE
	ModeRAMWord    byte = 0xF
)

// PayloadLen returns the number of payload bytes an opmode consumes.
func PayloadLen(mode byte) int {
	switch mode {
	case ModeConstZero, ModeStack:
		return 0
	case ModeConstByte, ModeMemByte, ModeLocalByte, ModeRAMByte:
		return 1
	case ModeConstShort, ModeMemShort, ModeLocalShort, ModeRAMShort:
		return 2
	default:
		return 4
	}
}
