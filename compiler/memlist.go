// Package compiler implements the core of the Inform 6 compiler:
// lexing, expression parsing, the symbol table, code assembly for the
// Z-machine and Glulx targets, branch relaxation, dead-function
// stripping and backpatching.
package compiler

// List is a growable array with ensure-available semantics. Subsystems
// hold a List and refer to elements by index; growth zeroes the new
// region and never invalidates element indices.
type List[T any] struct {
	name  string
	items []T
}

// NewList creates a list with the given initial capacity.
func NewList[T any](name string, initial int) *List[T] {
	return &List[T]{name: name, items: make([]T, 0, initial)}
}

// Ensure extends the list so that indices 0..n-1 are valid. Growth is
// exponential (double plus headroom) so repeated one-past-the-end
// ensures stay amortised constant.
func (l *List[T]) Ensure(n int) {
	if n <= len(l.items) {
		return
	}
	if n > cap(l.items) {
		newCap := cap(l.items)*2 + 8
		if newCap < n {
			newCap = n
		}
		grown := make([]T, len(l.items), newCap)
		copy(grown, l.items)
		l.items = grown
	}
	var zero T
	for len(l.items) < n {
		l.items = append(l.items, zero)
	}
}

// At returns a pointer to element i, which must be valid.
func (l *List[T]) At(i int) *T { return &l.items[i] }

// Len returns the current valid length.
func (l *List[T]) Len() int { return len(l.items) }

// SetLen truncates or extends the valid region. Extending zeroes.
func (l *List[T]) SetLen(n int) {
	if n <= len(l.items) {
		l.items = l.items[:n]
		return
	}
	l.Ensure(n)
}

// Append adds an item, growing as needed, and returns its index.
func (l *List[T]) Append(item T) int {
	l.items = append(l.items, item)
	return len(l.items) - 1
}

// Slice returns the valid region. The caller must not hold the result
// across an Ensure or Append.
func (l *List[T]) Slice() []T { return l.items }

// nameArena dedupes the immutable name strings the symbol table keeps.
// Strings returned by Intern are shared and stay valid for the life of
// the arena.
type nameArena struct {
	names map[string]string
	bytes int
}

func newNameArena() *nameArena {
	return &nameArena{names: make(map[string]string, 512)}
}

// Intern returns the canonical copy of s.
func (a *nameArena) Intern(s string) string {
	if t, ok := a.names[s]; ok {
		return t
	}
	a.names[s] = s
	a.bytes += len(s)
	return s
}

// Bytes returns the total interned footprint, for the memory report.
func (a *nameArena) Bytes() int { return a.bytes }
