package lox

// Strings is the VM's string-interning set: a Table keyed by content,
// backed by the shared object arena so every interned string is also
// tracked for lifetime bookkeeping (spec.md §4.6's interning protocol).
// Both the Compiler (for string/identifier literals) and the VM (for
// OP_ADD's string concatenation) intern through this single set, so that
// spec.md §8's interning invariant — equal-content strings created via the
// public constructor compare reference-equal — holds across a whole
// Interpret call, not just within one component.
type Strings struct {
	table Table
	arena *objectArena
}

func newStrings(arena *objectArena) *Strings {
	return &Strings{arena: arena}
}

// Intern returns the canonical *ObjString for chars, allocating and
// registering a new one only if an equal-content string isn't already
// interned (spec.md §4.6: "every string constructor consults findString").
func (s *Strings) Intern(chars string) *ObjString {
	hash := hashFNV1a(chars)
	if existing := s.table.FindString(chars, hash); existing != nil {
		return existing
	}
	obj := &ObjString{chars: chars, hash: hash}
	s.arena.track(obj)
	s.table.Set(obj, NilValue)
	return obj
}

func internString(s *Strings, chars string) *ObjString { return s.Intern(chars) }
