package http

import (
	"bytes"
	"io"
	"net/url"
	"testing"

	"github.com/go-logr/stdr"

	"github.com/mhauser/pktwire/pkg/negotiate"
	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/protocol"
)

// NewClientForTest builds a bare Client with no credential store, for
// tests that only exercise the fetch/push drivers against an
// httptest.Server.
func NewClientForTest(t *testing.T) (*Client, error) {
	t.Helper()
	return NewClient(stdr.New(nil))
}

// mustHost strips the scheme off an httptest.Server URL, since Endpoint
// composes its own.
func mustHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u.Host
}

// testRef is one line of a fabricated reference advertisement.
type testRef struct {
	id   string
	name string
}

// buildAdvertisement renders the pktline wire form of an
// HttpReferenceDiscovery(service) response: the service announcement,
// a flush, the ref list (capabilities riding on the first ref line),
// and a terminating flush.
func buildAdvertisement(service string, refs []testRef, caps string) []byte {
	buf := &bytes.Buffer{}
	_ = pktline.WriteString(buf, "# service="+service+"\n")
	_ = pktline.WriteFlush(buf)
	for i, r := range refs {
		line := r.id + " " + r.name
		if i == 0 && caps != "" {
			line += "\x00" + caps
		}
		line += "\n"
		_ = pktline.WriteString(buf, line)
	}
	_ = pktline.WriteFlush(buf)
	return buf.Bytes()
}

// sbChunk is one channel-tagged line of a side-band-multiplexed stream.
type sbChunk struct {
	channel byte
	data    []byte
}

// buildSideBandStream renders chunks as side-band(-64k) framed
// pkt-lines terminated by a flush-pkt, the wire form PackDecoder
// expects under SideBandBasic/SideBand64k.
func buildSideBandStream(chunks ...sbChunk) []byte {
	buf := &bytes.Buffer{}
	for _, c := range chunks {
		payload := append([]byte{c.channel}, c.data...)
		_ = pktline.WriteLine(buf, payload)
	}
	_ = pktline.WriteFlush(buf)
	return buf.Bytes()
}

func mustID(s string) objectid.ID {
	id, err := objectid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// fakeObjectStore is the store.ObjectStore test double: PackFrom just
// captures whatever bytes it was handed rather than parsing a real pack.
type fakeObjectStore struct {
	received []byte
	hash     objectid.ID
	count    int
	err      error
}

func (s *fakeObjectStore) PackFrom(r io.Reader) (objectid.ID, int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return objectid.ID{}, 0, err
	}
	s.received = b
	if s.err != nil {
		return objectid.ID{}, 0, s.err
	}
	return s.hash, s.count, nil
}

func (s *fakeObjectStore) HasCommit(objectid.ID) bool { return false }

func (s *fakeObjectStore) IsAncestor(objectid.ID, objectid.ID) (bool, error) { return false, nil }

// stubNegotiator returns a fixed sequence of decisions, one per call to
// Continue, repeating the last one if called more times than the
// sequence provides.
type stubNegotiator struct {
	decisions []negotiate.Decision
	i         int
	seen      []protocol.Acks
}

// notifyFunc adapts plain funcs to the Notifier interface for tests
// that only care about one of the two channels.
type notifyFunc struct {
	progress func([]byte)
	errFn    func([]byte)
}

func (n notifyFunc) Progress(b []byte) {
	if n.progress != nil {
		n.progress(b)
	}
}

func (n notifyFunc) ServerError(b []byte) {
	if n.errFn != nil {
		n.errFn(b)
	}
}

func (n *stubNegotiator) Continue(acks protocol.Acks) (negotiate.Decision, error) {
	n.seen = append(n.seen, acks)
	d := n.decisions[n.i]
	if n.i < len(n.decisions)-1 {
		n.i++
	}
	return d, nil
}
