package compiler

// Patch is one backpatch record: a marker, the byte width of the
// value it covers, and the code-area offset of the value's first byte.
type Patch struct {
	Marker Marker
	Width  int
	PC     int32
}

// PatchTable accumulates the backpatch records the relaxer's copy-out
// pass leaves behind, in emission order.
type PatchTable struct {
	recs []Patch
}

func NewPatchTable() *PatchTable { return &PatchTable{} }

func (t *PatchTable) Add(m Marker, width int, pc int32) {
	t.recs = append(t.recs, Patch{Marker: m, Width: width, PC: pc})
}

func (t *PatchTable) Records() []Patch { return t.recs }

func (t *PatchTable) Len() int { return len(t.recs) }

// BytesZ serializes the table in the 16-bit record format: three
// bytes per record, with bits 16..17 of the PC folded into the top of
// the marker byte.
func (t *PatchTable) BytesZ(errs *Errors) []byte {
	out := make([]byte, 0, 3*len(t.recs))
	for _, r := range t.recs {
		if r.PC >= 1<<18 {
			errs.Fatal("backpatch offset %#x exceeds the 18-bit record format", r.PC)
		}
		out = append(out,
			byte(r.Marker)|byte(r.PC>>16)<<6,
			byte(r.PC>>8),
			byte(r.PC))
	}
	return out
}

// BytesG serializes the table in the 32-bit record format: marker,
// width, four-byte PC.
func (t *PatchTable) BytesG() []byte {
	out := make([]byte, 0, 6*len(t.recs))
	for _, r := range t.recs {
		out = append(out,
			byte(r.Marker),
			byte(r.Width),
			byte(r.PC>>24), byte(r.PC>>16), byte(r.PC>>8), byte(r.PC))
	}
	return out
}

// Apply resolves every record against the code image. The slice
// starts at the code area's first byte. resolve receives the record
// and the compile-time value currently in the image and returns the
// final value. With a stripper active, records inside omitted
// functions are dropped and surviving PCs are displaced.
func (t *PatchTable) Apply(code []byte, strip *Stripper, errs *Errors,
	resolve func(Patch, int32) int32) {
	for _, r := range t.recs {
		if r.Marker > MaxPatchMarker || r.Marker == NullMarker {
			errs.CompilerError("marker %s in backpatch table", r.Marker)
		}
		pc := r.PC
		if strip != nil {
			var stripped bool
			pc = strip.OffsetForCodeOffset(pc, &stripped)
			if stripped {
				continue
			}
		}
		cur := readValue(code, pc, r.Width)
		writeValue(code, pc, r.Width, resolve(r, cur))
	}
}

func readValue(code []byte, pc int32, width int) int32 {
	switch width {
	case 1:
		return int32(code[pc])
	case 2:
		return int32(uint16(code[pc])<<8 | uint16(code[pc+1]))
	default:
		return int32(uint32(code[pc])<<24 | uint32(code[pc+1])<<16 |
			uint32(code[pc+2])<<8 | uint32(code[pc+3]))
	}
}

func writeValue(code []byte, pc int32, width int, v int32) {
	switch width {
	case 1:
		code[pc] = byte(v)
	case 2:
		code[pc] = byte(v >> 8)
		code[pc+1] = byte(v)
	default:
		code[pc] = byte(v >> 24)
		code[pc+1] = byte(v >> 16)
		code[pc+2] = byte(v >> 8)
		code[pc+3] = byte(v)
	}
}
