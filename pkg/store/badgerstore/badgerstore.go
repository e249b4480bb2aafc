// Package badgerstore implements pkg/store's ObjectStore and RefStore
// contracts over a dgraph-io/badger key-value database, the same
// storage engine and access pattern pkg/objects/badger uses: one
// key-per-object, transactional Get/Set/Delete, prefix iteration for
// Map. Pack ingestion here is deliberately shallow (store the raw pack
// bytes and record the presence of each commit its `commit <oid>
// <parents>` lines name) since full pack
// indexing is explicitly out of scope for this component — the real
// object model that pkg/objects/badger serves is the collaborator this
// was narrowed from.
package badgerstore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v3"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/store"
)

var (
	objectPrefix = []byte("obj:")
	commitPrefix = []byte("commit:")
	parentPrefix = []byte("parent:")
	refPrefix    = []byte("ref:")
)

// Store is a badger-backed ObjectStore and RefStore.
type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// PackFrom drains r, which the spec treats as an opaque pack byte
// stream produced by the pack generator collaborator, and records a
// parent edge for every "commit OID parentOID..." framing line it
// contains. Real delta-resolved pack indexing belongs to the object
// store this package narrows, not to this transport-facing shim.
func (s *Store) PackFrom(r io.Reader) (objectid.ID, int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return objectid.ID{}, 0, fmt.Errorf("badgerstore: read pack: %w", err)
	}
	sum := objectid.ID(sha1Sum(raw))
	count := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		key := append(append([]byte{}, objectPrefix...), sum[:]...)
		if err := txn.Set(key, raw); err != nil {
			return err
		}
		for _, line := range bytes.Split(raw, []byte("\n")) {
			id, parents, ok := parsePackCommitLine(line)
			if !ok {
				continue
			}
			count++
			ck := append(append([]byte{}, commitPrefix...), id[:]...)
			if err := txn.Set(ck, []byte{1}); err != nil {
				return err
			}
			pk := append(append([]byte{}, parentPrefix...), id[:]...)
			if err := txn.Set(pk, encodeParents(parents)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return objectid.ID{}, 0, err
	}
	return sum, count, nil
}

func (s *Store) HasCommit(id objectid.ID) bool {
	key := append(append([]byte{}, commitPrefix...), id[:]...)
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	return err == nil
}

// IsAncestor walks the recorded parent edges breadth-first from of,
// looking for candidate.
func (s *Store) IsAncestor(candidate, of objectid.ID) (bool, error) {
	if candidate == of {
		return true, nil
	}
	visited := objectid.NewSet()
	queue := []objectid.ID{of}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited.Has(id) {
			continue
		}
		visited.Add(id)
		parents, err := s.parentsOf(id)
		if err != nil {
			return false, err
		}
		for _, p := range parents {
			if p == candidate {
				return true, nil
			}
			queue = append(queue, p)
		}
	}
	return false, nil
}

// Parents returns the recorded parent edges for id, the same lookup
// IsAncestor walks internally, exported for the pack generator
// collaborator to build an ancestry-ordered pack stream from.
func (s *Store) Parents(id objectid.ID) ([]objectid.ID, error) {
	return s.parentsOf(id)
}

func (s *Store) parentsOf(id objectid.ID) ([]objectid.ID, error) {
	key := append(append([]byte{}, parentPrefix...), id[:]...)
	var parents []objectid.ID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			parents = decodeParents(val)
			return nil
		})
	})
	return parents, err
}

// Resolve implements store.RefStore.
func (s *Store) Resolve(name string) (objectid.ID, bool, error) {
	key := append(append([]byte{}, refPrefix...), []byte(name)...)
	var id objectid.ID
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			parsed, err := objectid.FromBytes(val)
			if err != nil {
				return err
			}
			id = parsed
			return nil
		})
	})
	return id, found, err
}

func (s *Store) Write(name string, target store.Target) error {
	key := append(append([]byte{}, refPrefix...), []byte(name)...)
	var value []byte
	if target.IsSymbolic() {
		value = append([]byte("ref: "), []byte(target.Symbolic)...)
	} else {
		value = target.OID[:]
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *Store) Delete(name string) error {
	key := append(append([]byte{}, refPrefix...), []byte(name)...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *Store) Map() (map[string]objectid.ID, error) {
	result := map[string]objectid.ID{}
	err := s.db.View(func(txn *badger.Txn) error {
		opt := badger.DefaultIteratorOptions
		opt.Prefix = refPrefix
		it := txn.NewIterator(opt)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := string(bytes.TrimPrefix(item.KeyCopy(nil), refPrefix))
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if bytes.HasPrefix(val, []byte("ref: ")) {
				// Symbolic refs are resolved by the caller, not inlined
				// here, since Map's contract returns concrete object ids.
				continue
			}
			id, err := objectid.FromBytes(val)
			if err != nil {
				return err
			}
			result[name] = id
		}
		return nil
	})
	return result, err
}
