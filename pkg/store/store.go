// Package store defines the two collaborator contracts the core treats
// as external: an object store that can ingest a pack byte stream, and
// a ref store that can resolve and write references. Both are named,
// not implemented, by the spec — pkg/store/badgerstore supplies a
// concrete implementation the same way pkg/objects/badger does for the
// wider wrgl object model this was narrowed from.
package store

import (
	"io"

	"github.com/mhauser/pktwire/pkg/objectid"
)

// Head is the name of the symbolic reference every clone points at its
// selected branch through.
const Head = "HEAD"

// Target is what a ref write points a reference at: either a concrete
// object id, or symbolically at another reference by name. Exactly one
// of OID/Symbolic is meaningful, mirroring the spec's `Hash(oid) |
// Ref(name)` sum type.
type Target struct {
	OID      objectid.ID
	Symbolic string
}

func Hash(id objectid.ID) Target     { return Target{OID: id} }
func SymbolicRef(name string) Target { return Target{Symbolic: name} }

func (t Target) IsSymbolic() bool { return t.Symbolic != "" }

// ObjectStore ingests a pack byte stream and answers existence queries
// used by the caller-supplied want/push callbacks and by the
// fast-forward ref-write policy.
type ObjectStore interface {
	// PackFrom reads a full pack from r — the Store.Pack.from operation
	// — and returns the pack's identifying hash and object count.
	PackFrom(r io.Reader) (hash objectid.ID, count int, err error)

	// HasCommit reports whether an object is present and resolvable as
	// a commit; orchestration uses it to log advertised refs it did not
	// request whose objects the store already holds.
	HasCommit(id objectid.ID) bool

	// IsAncestor reports whether candidate is an ancestor of (or equal
	// to) of, used by the orchestration layer's fast-forward check.
	IsAncestor(candidate, of objectid.ID) (bool, error)
}

// RefStore resolves and writes local references.
type RefStore interface {
	// Resolve returns the object id a local ref currently points at,
	// or objectid.Zero, false if the ref does not exist.
	Resolve(name string) (objectid.ID, bool, error)

	// Write sets name to target — the Store.Ref.write operation.
	Write(name string, target Target) error

	// Delete removes a local ref.
	Delete(name string) error

	// Map returns every local ref and the object id it resolves to —
	// the spec's Reference.Map.
	Map() (map[string]objectid.ID, error)
}
