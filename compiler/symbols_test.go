package compiler

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

func newTestSymbols(out io.Writer) *SymbolTable {
	if out == nil {
		out = io.Discard
	}
	opts := DefaultOptions(TargetZ)
	return NewSymbolTable(NewErrors(out), &opts)
}

func TestIndexIsCaseInsensitive(t *testing.T) {
	st := newTestSymbols(nil)
	a := st.Index("Frog")
	b := st.Index("FROG")
	c := st.Index("frog")
	if a != b || b != c {
		t.Errorf("Frog/FROG/frog got ids %d/%d/%d", a, b, c)
	}
	// The first spelling is the one kept for display.
	if got := st.Get(a).Name; got != "Frog" {
		t.Errorf("stored name %q, want %q", got, "Frog")
	}
}

func TestDistinctNamesGetDistinctIDs(t *testing.T) {
	st := newTestSymbols(nil)
	base := st.Count()
	seen := make(map[int]string)
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("sym_%d", i)
		id := st.Index(name)
		if prev, ok := seen[id]; ok {
			t.Fatalf("%q and %q share id %d", name, prev, id)
		}
		seen[id] = name
		if st.Get(id).Name != name {
			t.Errorf("id %d names %q, want %q", id, st.Get(id).Name, name)
		}
	}
	if st.Count() != base+200 {
		t.Errorf("table grew by %d, want 200", st.Count()-base)
	}
}

func TestLookupMissing(t *testing.T) {
	st := newTestSymbols(nil)
	if id := st.Lookup("no_such_name"); id != -1 {
		t.Errorf("Lookup of a missing name returned %d, want -1", id)
	}
	st.Index("no_such_name")
	if id := st.Lookup("NO_SUCH_NAME"); id < 0 {
		t.Error("Lookup missed a present name")
	}
}

func TestAssign(t *testing.T) {
	st := newTestSymbols(nil)
	id := st.Index("kitchen_window")
	if st.Get(id).Type != UnknownSym {
		t.Fatalf("fresh symbol has type %v", st.Get(id).Type)
	}
	st.Assign(id, 42, ConstantSym)
	s := st.Get(id)
	if s.Value != 42 || s.Type != ConstantSym {
		t.Errorf("after Assign: value %d type %v", s.Value, s.Type)
	}
}

func TestEndScopeDetachesTheName(t *testing.T) {
	st := newTestSymbols(nil)
	id := st.Index("temp")
	st.Assign(id, 1, ConstantSym)
	st.EndScope(id, false)
	fresh := st.Index("temp")
	if fresh == id {
		t.Error("Index returned the retired symbol")
	}
	if st.Get(fresh).Type != UnknownSym {
		t.Errorf("re-created symbol has type %v", st.Get(fresh).Type)
	}
}

func TestEndScopeForbidUse(t *testing.T) {
	var out bytes.Buffer
	st := newTestSymbols(&out)
	id := st.Index("banished")
	st.Assign(id, 1, ConstantSym)
	st.EndScope(id, true)
	st.TouchUse(id)
	if !strings.Contains(out.String(), "banished") {
		t.Errorf("no diagnostic for a forbidden name:\n%s", out.String())
	}
}

func TestReplacementChain(t *testing.T) {
	st := newTestSymbols(nil)
	from := st.Index("OldRoutine")
	to := st.Index("NewRoutine")
	st.AddReplacement(from, to)

	id := from
	if !st.FindReplacement(&id) {
		t.Fatal("no replacement found")
	}
	if id != to {
		t.Errorf("replacement of %d is %d, want %d", from, id, to)
	}

	other := st.Index("Unrelated")
	id = other
	if st.FindReplacement(&id) || id != other {
		t.Error("unrelated symbol was replaced")
	}
}

func TestReplacementIsSingleUse(t *testing.T) {
	var out bytes.Buffer
	st := newTestSymbols(&out)
	x := st.Index("Banner")
	y := st.Index("FirstBody")
	z := st.Index("SecondBody")
	st.AddReplacement(x, y)
	st.AddReplacement(x, z)
	if !strings.Contains(out.String(), "more than once") {
		t.Errorf("second replacement drew no diagnostic:\n%s", out.String())
	}

	// The first mapping stands.
	id := x
	st.FindReplacement(&id)
	if id != y {
		t.Errorf("replacement of Banner is %q, want FirstBody", st.Get(id).Name)
	}
}

func TestCheckType(t *testing.T) {
	var out bytes.Buffer
	st := newTestSymbols(&out)
	id := st.Index("score")
	st.Assign(id, 16, GlobalSym)
	st.CheckType(id, GlobalSym, "assignment")
	if out.Len() != 0 {
		t.Errorf("matching type drew a diagnostic:\n%s", out.String())
	}
	st.CheckType(id, RoutineSym, "call")
	if out.Len() == 0 {
		t.Error("mismatched type drew no diagnostic")
	}
}

func TestSortedNames(t *testing.T) {
	st := newTestSymbols(nil)
	st.Index("zebra")
	st.Index("Aardvark")
	st.Index("mango")
	names := st.SortedNames()
	for i := 1; i < len(names); i++ {
		if fold(names[i-1]) > fold(names[i]) {
			t.Fatalf("names out of order: %q before %q", names[i-1], names[i])
		}
	}
}
