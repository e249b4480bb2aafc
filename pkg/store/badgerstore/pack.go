package badgerstore

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"strings"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/store"
	httpapi "github.com/mhauser/pktwire/pkg/transport/http"
)

func sha1Sum(b []byte) [20]byte {
	return sha1.Sum(b)
}

// parsePackCommitLine recognizes the synthetic "commit <oid> <parent>
// <parent>...\n" framing lines the pack generator collaborator is
// expected to emit ahead of each commit object, letting this shim build
// an ancestry index without parsing the real zlib/delta pack format.
func parsePackCommitLine(line []byte) (id objectid.ID, parents []objectid.ID, ok bool) {
	s := string(line)
	if !strings.HasPrefix(s, "commit ") {
		return objectid.ID{}, nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(s, "commit "))
	if len(fields) == 0 {
		return objectid.ID{}, nil, false
	}
	id, err := objectid.Parse(fields[0])
	if err != nil {
		return objectid.ID{}, nil, false
	}
	for _, f := range fields[1:] {
		p, err := objectid.Parse(f)
		if err != nil {
			continue
		}
		parents = append(parents, p)
	}
	return id, parents, true
}

func encodeParents(parents []objectid.ID) []byte {
	out := make([]byte, 0, len(parents)*objectid.Size)
	for _, p := range parents {
		out = append(out, p[:]...)
	}
	return out
}

func decodeParents(b []byte) []objectid.ID {
	var out []objectid.ID
	for i := 0; i+objectid.Size <= len(b); i += objectid.Size {
		id, _ := objectid.FromBytes(b[i : i+objectid.Size])
		out = append(out, id)
	}
	return out
}

// GeneratePack is the default pack generator collaborator (§6) for a
// badgerstore-backed repository: for every non-delete command it walks
// the commit's recorded ancestry and writes one "commit <oid>
// <parent>..." framing line per commit, oldest first, in exactly the
// shape PackFrom parses back out on the receiving end. It has the
// httpapi.PackGenerator signature so it can be passed to Push directly.
func GeneratePack(opts httpapi.PackOptions, st store.ObjectStore, refs []protocol.RefEntry, commands []protocol.Command) (io.Reader, error) {
	bs, ok := st.(*Store)
	if !ok {
		return nil, fmt.Errorf("badgerstore: GeneratePack requires a *badgerstore.Store, got %T", st)
	}
	visited := objectid.NewSet()
	var buf bytes.Buffer
	for _, cmd := range commands {
		if cmd.New.IsZero() {
			continue // delete command: nothing to send
		}
		if err := bs.writeAncestryLines(&buf, cmd.New, visited); err != nil {
			return nil, err
		}
	}
	return &buf, nil
}

func (s *Store) writeAncestryLines(buf *bytes.Buffer, id objectid.ID, visited objectid.Set) error {
	if visited.Has(id) {
		return nil
	}
	visited.Add(id)
	parents, err := s.Parents(id)
	if err != nil {
		return err
	}
	for _, p := range parents {
		if err := s.writeAncestryLines(buf, p, visited); err != nil {
			return err
		}
	}
	fmt.Fprintf(buf, "commit %s", id.String())
	for _, p := range parents {
		fmt.Fprintf(buf, " %s", p.String())
	}
	buf.WriteByte('\n')
	return nil
}
