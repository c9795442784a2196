package compiler

import (
	"testing"

	"github.com/DavidKinder/Inform6-sub000/zcode"
)

func TestStringPoolInterning(t *testing.T) {
	sp := NewStringPool()
	a := sp.Add("hello")
	b := sp.Add("world")
	if a == b {
		t.Fatal("distinct strings share an index")
	}
	if again := sp.Add("hello"); again != a {
		t.Errorf("re-adding returned %d, want %d", again, a)
	}
	if sp.Count() != 2 {
		t.Errorf("pool holds %d strings, want 2", sp.Count())
	}
	if sp.Text(b) != "world" {
		t.Errorf("Text(%d) = %q", b, sp.Text(b))
	}
}

func TestStringPoolZOffsets(t *testing.T) {
	sp := NewStringPool()
	sp.Add("a")
	sp.Add("somewhat longer text here")
	sp.Add("x")
	out, offsets := sp.BytesZ(&zcode.DefaultAlphabet, nil)

	if len(out)%2 != 0 {
		t.Errorf("packed area length %d is odd", len(out))
	}
	for i, off := range offsets {
		if off%2 != 0 {
			t.Errorf("string %d starts at odd offset %d", i, off)
		}
		// Each string's final word carries the end bit.
		var end int32
		if i+1 < len(offsets) {
			end = offsets[i+1]
		} else {
			end = int32(len(out))
		}
		if out[end-2]&0x80 == 0 {
			t.Errorf("string %d has no end bit in its last word", i)
		}
	}
}

func TestStringPoolEconomyShrinks(t *testing.T) {
	sp := NewStringPool()
	sp.Add("the cat sat on the mat")
	plain, _ := sp.BytesZ(&zcode.DefaultAlphabet, nil)
	abbr, _ := sp.BytesZ(&zcode.DefaultAlphabet, []zcode.Abbrev{{Text: "the ", Slot: 32}})
	if len(abbr) >= len(plain) {
		t.Errorf("abbreviated area is %d bytes, plain is %d", len(abbr), len(plain))
	}
	// The first z-char pair must be the slot-32 reference: z-char 2
	// then index 0.
	if top := abbr[0] >> 2; top != 2 {
		t.Errorf("first z-char %d, want abbreviation bank 2", top)
	}
}

func TestStringPoolGlulxEncoding(t *testing.T) {
	sp := NewStringPool()
	sp.Add("hi")
	out, offsets := sp.BytesG()
	if offsets[0] != 0 {
		t.Fatalf("first offset %d", offsets[0])
	}
	want := []byte{0xE0, 'h', 'i', 0}
	if len(out) != len(want) {
		t.Fatalf("encoded % x, want % x", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("encoded % x, want % x", out, want)
		}
	}
}

func TestDictionaryPlacement(t *testing.T) {
	d := NewDictionary()
	// Insertion order differs from sorted order.
	iZ := d.Add("zebra", 9)
	iA := d.Add("apple", 9)
	iM := d.Add("mango", 9)

	sorted, place := d.Layout()
	if len(sorted) != 3 {
		t.Fatalf("%d entries", len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1] > sorted[i] {
			t.Fatalf("layout unsorted: %v", sorted)
		}
	}
	// place maps insertion index to layout position.
	if sorted[place[iZ]] != "zebra" || sorted[place[iA]] != "apple" || sorted[place[iM]] != "mango" {
		t.Errorf("place map broken: %v / %v", sorted, place)
	}
}

func TestDictionaryFoldsCase(t *testing.T) {
	d := NewDictionary()
	a := d.Add("Take", 9)
	b := d.Add("take", 9)
	if a != b {
		t.Errorf("Take and take got entries %d and %d", a, b)
	}
}

func TestDataAreaPatchRecording(t *testing.T) {
	a := NewDataArea()
	a.Word(5, NullMarker, 2)
	a.Word(3, StringMarker, 2)
	a.Byte(1, NullMarker)
	a.Zero(3)

	if a.Len() != 8 {
		t.Fatalf("area length %d, want 8", a.Len())
	}
	recs := a.Patches().Records()
	if len(recs) != 1 {
		t.Fatalf("%d patch records, want 1", len(recs))
	}
	if recs[0].Marker != StringMarker || recs[0].PC != 2 || recs[0].Width != 2 {
		t.Errorf("record %+v", recs[0])
	}
}

func TestActionNumbering(t *testing.T) {
	at := NewActionTable()
	take := at.Add("Take")
	drop := at.Add("Drop")
	if take == drop {
		t.Fatal("distinct actions share a number")
	}
	if again := at.Add("Take"); again != take {
		t.Errorf("re-adding Take returned %d, want %d", again, take)
	}
}

func TestZTextRoundTrip(t *testing.T) {
	// A2 characters and ZSCII escapes survive encoding.
	for _, text := range []string{"hello", "Hello, World!", "x=3? (why)"} {
		zchars := zcode.Zchars([]byte(text), &zcode.DefaultAlphabet)
		words := zcode.PackZchars(zchars)
		if len(words) == 0 {
			t.Fatalf("%q packed to nothing", text)
		}
		if words[len(words)-1]&0x8000 == 0 {
			t.Errorf("%q: no end bit", text)
		}
	}
}
