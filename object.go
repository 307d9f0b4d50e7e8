package lox

// ObjKind tags the variant of a heap-allocated Object. String is currently
// the only kind; spec.md's Non-goals exclude classes, closures, and
// functions-as-values, so no other kind is ever added here.
type ObjKind uint8

const (
	ObjKindString ObjKind = iota
)

// Obj is the common interface every heap-allocated object implements. Per
// spec.md §9's redesign note, a Value never holds a raw pointer into a
// vector that might reallocate: each concrete object (e.g. *ObjString) is
// allocated individually on the Go heap, so the pointer itself is a stable
// handle regardless of how the VM's bookkeeping slice grows. Object
// equality (used by ValuesEqual) is therefore plain Go interface identity.
type Obj interface {
	Kind() ObjKind
	String() string
}

// ObjString is the only Object kind: an immutable, interned byte string with
// a precomputed FNV-1a hash (spec.md §3, §4.6).
type ObjString struct {
	chars string
	hash  uint32
}

// Kind implements Obj.
func (s *ObjString) Kind() ObjKind { return ObjKindString }

// String implements Obj and fmt.Stringer.
func (s *ObjString) String() string { return s.chars }

// objects is the VM's bookkeeping arena: every heap object allocated during
// an Interpret call is appended here at allocation time. spec.md describes
// this as an intrusive singly-linked list walked once at teardown; this
// rewrite replaces it with a plain owned slice per spec.md §9's redesign
// note. Go's garbage collector reclaims the objects themselves once the
// arena and every Value referencing them are dropped — this module never
// implements a tracing collector of its own (spec.md's explicit Non-goal) —
// but the arena is still maintained so object count/lifetime stays
// observable for debugging and tests, matching the role `freeVM` played in
// the source.
type objectArena struct {
	objects []Obj
}

func (a *objectArena) track(o Obj) Obj {
	a.objects = append(a.objects, o)
	return o
}

func (a *objectArena) reset() {
	a.objects = a.objects[:0]
}

func (a *objectArena) len() int { return len(a.objects) }
