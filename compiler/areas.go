package compiler

import (
	"sort"
	"strings"

	"github.com/DavidKinder/Inform6-sub000/zcode"
)

// StringPool collects the double-quoted strings of the program. Code
// references a string by pool index under StringMarker; the index is
// traded for a real address when the image is laid out.
type StringPool struct {
	texts []string
	index map[string]int32
}

func NewStringPool() *StringPool {
	return &StringPool{index: make(map[string]int32)}
}

// Add interns text and returns its pool index.
func (sp *StringPool) Add(text string) int32 {
	if id, ok := sp.index[text]; ok {
		return id
	}
	id := int32(len(sp.texts))
	sp.texts = append(sp.texts, text)
	sp.index[text] = id
	return id
}

func (sp *StringPool) Count() int          { return len(sp.texts) }
func (sp *StringPool) Text(i int32) string { return sp.texts[i] }

// BytesZ encodes the pool as the Z-machine packed-string area and
// returns the area bytes plus each string's byte offset within it.
// The caller pads the area start to the packed-address scale. A
// non-nil abbrevs table turns on abbreviation substitution (economy
// mode).
func (sp *StringPool) BytesZ(alphabet *[3]string, abbrevs []zcode.Abbrev) ([]byte, []int32) {
	var out []byte
	offsets := make([]int32, len(sp.texts))
	for i, text := range sp.texts {
		offsets[i] = int32(len(out))
		var z []byte
		if abbrevs != nil {
			z = zcode.ZcharsAbbrev([]byte(text), alphabet, abbrevs)
		} else {
			z = zcode.Zchars([]byte(text), alphabet)
		}
		for _, w := range zcode.PackZchars(z) {
			out = append(out, byte(w>>8), byte(w))
		}
	}
	return out, offsets
}

// BytesG encodes the pool as unencoded Glulx strings (type byte E0,
// then the text, then a terminator). No decoding table is needed.
func (sp *StringPool) BytesG() ([]byte, []int32) {
	var out []byte
	offsets := make([]int32, len(sp.texts))
	for i, text := range sp.texts {
		offsets[i] = int32(len(out))
		out = append(out, 0xE0)
		out = append(out, text...)
		out = append(out, 0)
	}
	return out, offsets
}

// Dictionary collects the single-quoted dictionary words. Entries are
// held in insertion order; Layout sorts them into the output order and
// reports where each insertion index landed.
type Dictionary struct {
	words []string
	index map[string]int32
}

func NewDictionary() *Dictionary {
	return &Dictionary{index: make(map[string]int32)}
}

// Add interns word, case-folded and truncated to the dictionary
// resolution, and returns its insertion index.
func (d *Dictionary) Add(word string, resolution int) int32 {
	w := strings.ToLower(word)
	if len(w) > resolution {
		w = w[:resolution]
	}
	if id, ok := d.index[w]; ok {
		return id
	}
	id := int32(len(d.words))
	d.words = append(d.words, w)
	d.index[w] = id
	return id
}

func (d *Dictionary) Count() int { return len(d.words) }

// Layout returns the words in dictionary order together with a map
// from insertion index to sorted position.
func (d *Dictionary) Layout() ([]string, []int32) {
	order := make([]int, len(d.words))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return d.words[order[i]] < d.words[order[j]]
	})
	sorted := make([]string, len(order))
	place := make([]int32, len(order))
	for pos, idx := range order {
		sorted[pos] = d.words[idx]
		place[idx] = int32(pos)
	}
	return sorted, place
}

// ActionTable numbers the ##Name action literals in order of first
// appearance. Fake actions share the table but live above FakeBase.
type ActionTable struct {
	names []string
	index map[string]int32
}

// FakeBase is the first fake-action number.
const FakeBase = 4096

func NewActionTable() *ActionTable {
	return &ActionTable{index: make(map[string]int32)}
}

func (a *ActionTable) Add(name string) int32 {
	key := fold(name)
	if id, ok := a.index[key]; ok {
		return id
	}
	id := int32(len(a.names))
	a.names = append(a.names, name)
	a.index[key] = id
	return id
}

func (a *ActionTable) Count() int            { return len(a.names) }
func (a *ActionTable) Name(i int32) string   { return a.names[i] }

// DataArea accumulates array bytes together with their backpatch
// records; record PCs are offsets from the area start.
type DataArea struct {
	bytes   []byte
	patches *PatchTable
}

func NewDataArea() *DataArea {
	return &DataArea{patches: NewPatchTable()}
}

func (d *DataArea) Len() int32          { return int32(len(d.bytes)) }
func (d *DataArea) Bytes() []byte       { return d.bytes }
func (d *DataArea) Patches() *PatchTable { return d.patches }

// Byte appends one byte. A non-null marker is recorded at width 1.
func (d *DataArea) Byte(v int32, m Marker) {
	if m != NullMarker {
		d.patches.Add(m, 1, int32(len(d.bytes)))
	}
	d.bytes = append(d.bytes, byte(v))
}

// Word appends one target word, big-endian.
func (d *DataArea) Word(v int32, m Marker, wordSize int) {
	if m != NullMarker {
		d.patches.Add(m, wordSize, int32(len(d.bytes)))
	}
	if wordSize == 4 {
		d.bytes = append(d.bytes, byte(v>>24), byte(v>>16))
	}
	d.bytes = append(d.bytes, byte(v>>8), byte(v))
}

// Zero appends n zero bytes.
func (d *DataArea) Zero(n int32) {
	d.bytes = append(d.bytes, make([]byte, n)...)
}
