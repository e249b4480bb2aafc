// Package negotiate provides the Negotiator contract named by the
// spec's Fetch Driver (§4.7) and a default strategy grounded on the
// haves-per-round-trip batching the teacher's upload-pack negotiator
// uses: pop a fixed batch of local ref tips each round, stop after a
// fixed total, and finish as soon as the server reports readiness.
package negotiate

import (
	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/store"
)

// Outcome is the three-way decision the spec's negotiate_fn returns.
type Outcome int

const (
	Ready Outcome = iota
	Again
	Done
)

// Decision is what Continue returns: the outcome, plus any haves to add
// to the mailbox-guarded have set when Outcome is Again.
type Decision struct {
	Outcome    Outcome
	AddedHaves []objectid.ID
}

// Negotiator is the pluggable negotiation strategy the Fetch Driver
// invokes once per round. It carries its own progress state internally
// rather than threading an explicit state value through each call —
// the natural Go rendition of the spec's `negotiate_fn(acks, state)`.
type Negotiator interface {
	Continue(acks protocol.Acks) (Decision, error)
}

const (
	defaultHavesPerRound = 32
	maxHavesPopped       = 256
)

// DefaultNegotiator offers the commits the local refs point at, in
// fixed-size batches, deciding Ready as soon as the server signals
// readiness, Again while unoffered ref tips remain, and Done once they
// are used up or the batch budget is spent. It offers only the ref tips
// themselves; their parent commits are not walked.
type DefaultNegotiator struct {
	refs     store.RefStore
	objects  store.ObjectStore
	queue    []objectid.ID
	visited  objectid.Set
	popped   int
	perRound int
}

// FindCommon builds the default Negotiator over refs' current state —
// the spec's `Negociator.find_common(store)`.
func FindCommon(refs store.RefStore, objects store.ObjectStore) (*DefaultNegotiator, error) {
	m, err := refs.Map()
	if err != nil {
		return nil, err
	}
	n := &DefaultNegotiator{
		refs:     refs,
		objects:  objects,
		visited:  objectid.NewSet(),
		perRound: defaultHavesPerRound,
	}
	for _, id := range m {
		n.queue = append(n.queue, id)
	}
	return n, nil
}

func (n *DefaultNegotiator) Continue(acks protocol.Acks) (Decision, error) {
	for _, e := range acks.Entries {
		if e.Status == protocol.AckReady {
			return Decision{Outcome: Ready}, nil
		}
	}
	if n.popped >= maxHavesPopped || len(n.queue) == 0 {
		return Decision{Outcome: Done}, nil
	}
	var batch []objectid.ID
	for len(batch) < n.perRound && len(n.queue) > 0 {
		id := n.queue[0]
		n.queue = n.queue[1:]
		if n.visited.Has(id) {
			continue
		}
		n.visited.Add(id)
		batch = append(batch, id)
		n.popped++
		if n.popped >= maxHavesPopped {
			break
		}
	}
	if len(batch) == 0 {
		return Decision{Outcome: Done}, nil
	}
	return Decision{Outcome: Again, AddedHaves: batch}, nil
}
