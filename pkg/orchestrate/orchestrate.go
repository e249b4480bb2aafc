package orchestrate

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/imdario/mergo"

	"github.com/mhauser/pktwire/pkg/negotiate"
	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/store"
	"github.com/mhauser/pktwire/pkg/transport"
	httpapi "github.com/mhauser/pktwire/pkg/transport/http"
)

// Options carries the knobs every Orchestration entry point shares. A
// caller only sets what it cares about; DefaultOptions fills the rest.
type Options struct {
	Capabilities transport.Set
	Notify       httpapi.Notifier
	Force        bool
}

// DefaultOptions is the capability set and behavior every entry point
// falls back to when the caller leaves a field unset.
func DefaultOptions() Options {
	return Options{
		Capabilities: transport.Set{
			transport.Cap(transport.CapSideBand64k),
			transport.Cap(transport.CapOfsDelta),
			transport.Cap(transport.CapMultiAckDetailed),
			transport.Cap(transport.CapReportStatus),
		},
	}
}

func mergeOptions(opts Options) Options {
	if err := mergo.Merge(&opts, DefaultOptions()); err != nil {
		return DefaultOptions()
	}
	return opts
}

// RefOutcome tags what happened when Orchestration tried to write one
// fetched ref locally, mirroring the one-character summary codes the
// teacher's fetch command prints (' ', '+', '!', '*', 't').
type RefOutcome int

const (
	RefRejected RefOutcome = iota
	RefFastForward
	RefForcedUpdate
	RefNew
	RefTagUpdate
	RefUnchanged
)

// Code is the one-character summary the teacher's fetch command prints
// for this outcome.
func (o RefOutcome) Code() byte {
	switch o {
	case RefFastForward:
		return ' '
	case RefForcedUpdate:
		return '+'
	case RefNew:
		return '*'
	case RefTagUpdate:
		return 't'
	default:
		return '!'
	}
}

// RefUpdate is the per-ref result Orchestration reports back to the
// caller for every ref it attempted to write.
type RefUpdate struct {
	Remote  string
	Local   string
	Old     objectid.ID
	New     objectid.ID
	Outcome RefOutcome
	Err     error
}

// writeRefWithPolicy applies SUPPLEMENTED FEATURE 3's fast-forward
// policy: a brand new local ref is always written, an existing one is
// only moved forward unless the caller passed Force, matching
// saveFetchedRefs' fast-forward/forced-update/rejected branching.
func writeRefWithPolicy(refs store.RefStore, objects store.ObjectStore, remote, local string, newID objectid.ID, force bool) RefUpdate {
	oldID, exists, err := refs.Resolve(local)
	if err != nil {
		return RefUpdate{Remote: remote, Local: local, New: newID, Outcome: RefRejected, Err: err}
	}
	if !exists {
		if err := refs.Write(local, store.Hash(newID)); err != nil {
			return RefUpdate{Remote: remote, Local: local, New: newID, Outcome: RefRejected, Err: err}
		}
		return RefUpdate{Remote: remote, Local: local, New: newID, Outcome: RefNew}
	}
	if oldID == newID {
		return RefUpdate{Remote: remote, Local: local, Old: oldID, New: newID, Outcome: RefUnchanged}
	}
	ff, err := objects.IsAncestor(oldID, newID)
	if err != nil {
		return RefUpdate{Remote: remote, Local: local, Old: oldID, New: newID, Outcome: RefRejected, Err: err}
	}
	if !ff && !force {
		return RefUpdate{Remote: remote, Local: local, Old: oldID, New: newID, Outcome: RefRejected,
			Err: fmt.Errorf("orchestrate: non-fast-forward update of %s rejected", local)}
	}
	if err := refs.Write(local, store.Hash(newID)); err != nil {
		return RefUpdate{Remote: remote, Local: local, Old: oldID, New: newID, Outcome: RefRejected, Err: err}
	}
	if ff {
		return RefUpdate{Remote: remote, Local: local, Old: oldID, New: newID, Outcome: RefFastForward}
	}
	return RefUpdate{Remote: remote, Local: local, Old: oldID, New: newID, Outcome: RefForcedUpdate}
}

// negotiatorFor builds the default Negotiator over refs' current state,
// the Negociator.find_common(store) collaborator §4.9 names.
func negotiatorFor(refs store.RefStore, objects store.ObjectStore) (negotiate.Negotiator, error) {
	return negotiate.FindCommon(refs, objects)
}

// localHaves seeds the Fetch Driver's initial have set from every
// object the local ref store currently resolves to, so the negotiation
// loop starts from what this clone already possesses rather than always
// taking the empty-have fast path.
func localHaves(refs store.RefStore) (objectid.Set, error) {
	m, err := refs.Map()
	if err != nil {
		return nil, err
	}
	set := objectid.NewSet()
	for _, id := range m {
		set.Add(id)
	}
	return set, nil
}

// Clone fetches a single remote ref and points a fresh local checkout
// at it: the local ref is created (or moved) to the fetched commit and
// HEAD is written as a symbolic ref to it. Any cardinality of the fetch
// result other than exactly the one requested ref is a Sync error.
func Clone(c *httpapi.Client, endpoint transport.Endpoint, objects store.ObjectStore, refs store.RefStore, remoteRef, localRef string, opts Options) (RefUpdate, error) {
	opts = mergeOptions(opts)
	negotiator, err := negotiatorFor(refs, objects)
	if err != nil {
		return RefUpdate{}, err
	}
	have, err := localHaves(refs)
	if err != nil {
		return RefUpdate{}, err
	}
	res, err := httpapi.Fetch(c, httpapi.FetchRequest{
		Endpoint:     endpoint,
		Capabilities: opts.Capabilities,
		Store:        objects,
		Have:         have,
		Negotiator:   negotiator,
		Notify:       opts.Notify,
		Want: func(rs []protocol.RefEntry) []httpapi.WantedRef {
			for _, r := range rs {
				if r.Name == remoteRef {
					return []httpapi.WantedRef{{ID: r.ID, Name: r.Name}}
				}
			}
			return nil
		},
	})
	if err != nil {
		return RefUpdate{}, err
	}
	if len(res.Wanted) != 1 {
		return RefUpdate{}, transport.NewSyncError(
			fmt.Sprintf("unexpected result: wanted %q, got %d refs", remoteRef, len(res.Wanted)), nil)
	}
	update := writeRefWithPolicy(refs, objects, res.Wanted[0].Name, localRef, res.Wanted[0].ID, true)
	if update.Err != nil {
		return update, update.Err
	}
	if err := refs.Write(store.Head, store.SymbolicRef(localRef)); err != nil {
		return update, err
	}
	return update, nil
}

// FetchOne restricts fetch to a single remote_ref -> local_ref mapping.
// alreadySync is true when the remote ref was not found in the
// advertisement (nothing to fetch, nothing missed by error); otherwise
// the mapping was fetched and update reports what got written locally.
func FetchOne(c *httpapi.Client, endpoint transport.Endpoint, objects store.ObjectStore, refs store.RefStore, mapping Refspec, opts Options) (update RefUpdate, alreadySync bool, err error) {
	opts = mergeOptions(opts)
	negotiator, err := negotiatorFor(refs, objects)
	if err != nil {
		return RefUpdate{}, false, err
	}
	have, err := localHaves(refs)
	if err != nil {
		return RefUpdate{}, false, err
	}
	res, err := httpapi.Fetch(c, httpapi.FetchRequest{
		Endpoint:     endpoint,
		Capabilities: opts.Capabilities,
		Store:        objects,
		Have:         have,
		Negotiator:   negotiator,
		Notify:       opts.Notify,
		Want: func(rs []protocol.RefEntry) []httpapi.WantedRef {
			for _, r := range rs {
				if r.Name == mapping.Src {
					return []httpapi.WantedRef{{ID: r.ID, Name: r.Name}}
				}
			}
			return nil
		},
	})
	if err != nil {
		return RefUpdate{}, false, err
	}
	if len(res.Wanted) == 0 {
		return RefUpdate{}, true, nil
	}
	w := res.Wanted[0]
	update = writeRefWithPolicy(refs, objects, w.Name, mapping.Dst, w.ID, opts.Force || mapping.Force)
	return update, false, update.Err
}

// FetchSome restricts fetch to refs matched by mappings, writing each
// matched ref locally under the fast-forward policy. Advertised refs
// this call incidentally pulled the history for but did not itself
// request a mapping for (e.g. a tag pointing at a now-present commit)
// are logged, not treated as an error.
func FetchSome(c *httpapi.Client, endpoint transport.Endpoint, objects store.ObjectStore, refs store.RefStore, mappings []Refspec, opts Options, log logr.Logger) ([]RefUpdate, error) {
	opts = mergeOptions(opts)
	negotiator, err := negotiatorFor(refs, objects)
	if err != nil {
		return nil, err
	}
	have, err := localHaves(refs)
	if err != nil {
		return nil, err
	}
	var advertised []protocol.RefEntry
	res, err := httpapi.Fetch(c, httpapi.FetchRequest{
		Endpoint:     endpoint,
		Capabilities: opts.Capabilities,
		Store:        objects,
		Have:         have,
		Negotiator:   negotiator,
		Notify:       opts.Notify,
		Want: func(rs []protocol.RefEntry) []httpapi.WantedRef {
			advertised = rs
			return selectWanted(rs, mappings)
		},
	})
	if err != nil {
		return nil, err
	}
	updates := writeWanted(refs, objects, res.Wanted, mappings, opts.Force)
	logUnrequestedTags(objects, advertised, res.Wanted, log)
	return updates, nil
}

// FetchAll fetches every ref the remote advertises under the
// unconditional choose = true predicate, mapping each one to the
// identically named local ref.
func FetchAll(c *httpapi.Client, endpoint transport.Endpoint, objects store.ObjectStore, refs store.RefStore, opts Options) ([]RefUpdate, error) {
	opts = mergeOptions(opts)
	negotiator, err := negotiatorFor(refs, objects)
	if err != nil {
		return nil, err
	}
	have, err := localHaves(refs)
	if err != nil {
		return nil, err
	}
	res, err := httpapi.Fetch(c, httpapi.FetchRequest{
		Endpoint:     endpoint,
		Capabilities: opts.Capabilities,
		Store:        objects,
		Have:         have,
		Negotiator:   negotiator,
		Notify:       opts.Notify,
		Want: func(rs []protocol.RefEntry) []httpapi.WantedRef {
			wanted := make([]httpapi.WantedRef, len(rs))
			for i, r := range rs {
				wanted[i] = httpapi.WantedRef{ID: r.ID, Name: r.Name}
			}
			return wanted
		},
	})
	if err != nil {
		return nil, err
	}
	updates := make([]RefUpdate, len(res.Wanted))
	for i, w := range res.Wanted {
		updates[i] = writeRefWithPolicy(refs, objects, w.Name, w.Name, w.ID, opts.Force)
	}
	return updates, nil
}

// selectWanted maps advertised refs through mappings, keeping only
// those with at least one matching refspec.
func selectWanted(rs []protocol.RefEntry, mappings []Refspec) []httpapi.WantedRef {
	var wanted []httpapi.WantedRef
	for _, r := range rs {
		for _, m := range mappings {
			if _, ok := m.DstForRef(r.Name); ok {
				wanted = append(wanted, httpapi.WantedRef{ID: r.ID, Name: r.Name})
				break
			}
		}
	}
	return wanted
}

// writeWanted resolves each wanted ref's local destination through
// mappings and applies the fast-forward policy.
func writeWanted(refs store.RefStore, objects store.ObjectStore, wanted []httpapi.WantedRef, mappings []Refspec, force bool) []RefUpdate {
	updates := make([]RefUpdate, 0, len(wanted))
	for _, w := range wanted {
		for _, m := range mappings {
			dst, ok := m.DstForRef(w.Name)
			if !ok {
				continue
			}
			updates = append(updates, writeRefWithPolicy(refs, objects, w.Name, dst, w.ID, force || m.Force))
			break
		}
	}
	return updates
}

// logUnrequestedTags reports, without erroring, any advertised ref
// (typically a tag; refs are not filtered by kind) that now resolves locally (because the commit it points at rode along with
// what was actually requested) but was not itself part of the request —
// the anomaly fetch-some's spec text calls out.
func logUnrequestedTags(objects store.ObjectStore, advertised []protocol.RefEntry, wanted []httpapi.WantedRef, log logr.Logger) {
	requested := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		requested[w.Name] = struct{}{}
	}
	for _, r := range advertised {
		if _, ok := requested[r.Name]; ok {
			continue
		}
		if objects.HasCommit(r.ID) {
			log.Info("downloaded but unrequested ref now resolvable", "ref", r.Name, "oid", r.ID.String())
		}
	}
}

// PushHandler computes the commands a push should send, given the
// remote's advertised refs and the caller's local ref map — the
// push_handler(store, references, remote_refs) collaborator §4.9 names.
type PushHandler func(objects store.ObjectStore, references map[string]objectid.ID, remoteRefs []protocol.RefEntry) []protocol.Command

// UpdateAndCreate is the thin push policy: it resolves local refs,
// hands them plus the advertisement to handler, and pushes whatever
// commands it returns.
func UpdateAndCreate(c *httpapi.Client, endpoint transport.Endpoint, objects store.ObjectStore, refs store.RefStore, handler PushHandler, packer httpapi.PackGenerator, opts Options) (httpapi.PushResult, error) {
	references, err := refs.Map()
	if err != nil {
		return httpapi.PushResult{}, err
	}
	opts = mergeOptions(opts)
	return httpapi.Push(c, httpapi.PushRequest{
		Endpoint:     endpoint,
		Capabilities: opts.Capabilities,
		Store:        objects,
		Packer:       packer,
		Push: func(remoteRefs []protocol.RefEntry) []protocol.Command {
			return handler(objects, references, remoteRefs)
		},
	})
}
