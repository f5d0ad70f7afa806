package value

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dolthub/swiss"
)

// Atom is an interned symbolic constant ('name in source), or an anonymous
// atom that compares equal only to itself. Interned atoms with the same
// name share an id; anonymous atoms each get a unique, never-reused id.
type Atom struct {
	name      string
	id        uint64
	anonymous bool
}

func (Atom) Kind() Kind { return KindAtom }

func (a Atom) String() string {
	if a.name == "" {
		return fmt.Sprintf("'#%d", a.id)
	}
	return "'" + a.name
}

// Name returns the atom's name, or "" for an anonymous atom.
func (a Atom) Name() string { return a.name }

// IsAnonymous reports whether the atom was created by NewAnonymous rather
// than interned by name.
func (a Atom) IsAnonymous() bool { return a.anonymous }

// Equal implements atom equality: interned atoms are equal iff they share a
// name; anonymous atoms are equal only to the exact same instance (id).
func (a Atom) Equal(b Atom) bool {
	if a.anonymous || b.anonymous {
		return a.anonymous && b.anonymous && a.id == b.id
	}
	return a.name == b.name
}

// interner is the process-wide, monotonically growing atom table. It is
// shared by every Intern call regardless of which VM or chunk is running,
// matching the "globally shared and monotonic" requirement of the spec.
type interner struct {
	mu    sync.Mutex
	table *swiss.Map[string, uint64]
	names []string
}

var globalInterner = &interner{
	table: swiss.NewMap[string, uint64](64),
}

var anonymousCounter uint64

// Intern returns the unique Atom for the given name, creating an entry in
// the global table on first use.
func Intern(name string) Atom {
	globalInterner.mu.Lock()
	defer globalInterner.mu.Unlock()
	if id, ok := globalInterner.table.Get(name); ok {
		return Atom{name: name, id: id}
	}
	id := uint64(len(globalInterner.names))
	globalInterner.table.Put(name, id)
	globalInterner.names = append(globalInterner.names, name)
	return Atom{name: name, id: id}
}

// NewAnonymous returns a fresh atom distinct from every other atom ever
// created, interned or anonymous, including ones with the same (empty) name.
func NewAnonymous() Atom {
	id := atomic.AddUint64(&anonymousCounter, 1)
	return Atom{id: id, anonymous: true}
}
