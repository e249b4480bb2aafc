package orchestrate

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-logr/stdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/store"
	"github.com/mhauser/pktwire/pkg/transport"
	httpapi "github.com/mhauser/pktwire/pkg/transport/http"
)

func mustID(s string) objectid.ID {
	id, err := objectid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func mustHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u.Host
}

type testRef struct {
	id   string
	name string
}

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

// fakeRefStore is the store.RefStore test double: a plain map guarded by
// nothing since tests drive it single-threaded.
type fakeRefStore struct {
	refs map[string]store.Target
}

func newFakeRefStore() *fakeRefStore {
	return &fakeRefStore{refs: map[string]store.Target{}}
}

func (s *fakeRefStore) Resolve(name string) (objectid.ID, bool, error) {
	t, ok := s.refs[name]
	if !ok || t.IsSymbolic() {
		return objectid.ID{}, false, nil
	}
	return t.OID, true, nil
}

func (s *fakeRefStore) Write(name string, target store.Target) error {
	s.refs[name] = target
	return nil
}

func (s *fakeRefStore) Delete(name string) error {
	delete(s.refs, name)
	return nil
}

func (s *fakeRefStore) Map() (map[string]objectid.ID, error) {
	m := map[string]objectid.ID{}
	for name, t := range s.refs {
		if !t.IsSymbolic() {
			m[name] = t.OID
		}
	}
	return m, nil
}

// fakeObjectStore is the store.ObjectStore test double: it tracks a
// fixed ancestry map for IsAncestor and a set of ids HasCommit answers
// true for, independent of the bytes PackFrom actually receives.
type fakeObjectStore struct {
	hash      objectid.ID
	count     int
	ancestors map[objectid.ID]objectid.Set
	commits   objectid.Set
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{ancestors: map[objectid.ID]objectid.Set{}, commits: objectid.NewSet()}
}

func (s *fakeObjectStore) PackFrom(r io.Reader) (objectid.ID, int, error) {
	if _, err := io.ReadAll(r); err != nil {
		return objectid.ID{}, 0, err
	}
	return s.hash, s.count, nil
}

func (s *fakeObjectStore) HasCommit(id objectid.ID) bool { return s.commits.Has(id) }

func (s *fakeObjectStore) IsAncestor(candidate, of objectid.ID) (bool, error) {
	set, ok := s.ancestors[of]
	if !ok {
		return false, nil
	}
	return set.Has(candidate), nil
}

func testCaps() transport.Set {
	return transport.Set{
		transport.Cap(transport.CapSideBand64k),
		transport.Cap(transport.CapOfsDelta),
		transport.Cap(transport.CapMultiAckDetailed),
		transport.Cap(transport.CapReportStatus),
	}
}

func newUploadServer(t *testing.T, adv []byte, uploadResp []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			io.ReadAll(r.Body)
			w.Write(uploadResp)
			return
		}
		w.Write(adv)
	}))
}

func packResponse(t *testing.T, packBytes string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	pktline.WriteString(buf, "NAK\n")
	payload := append([]byte{1}, []byte(packBytes)...)
	pktline.WriteLine(buf, payload)
	pktline.WriteFlush(buf)
	return buf.Bytes()
}

func TestCloneWritesLocalRefAndHead(t *testing.T) {
	h1 := "111111111111111111111111111111111111111a"
	adv := buildAdvertisement("git-upload-pack", []testRef{{h1, "refs/heads/main"}}, "side-band-64k")
	srv := newUploadServer(t, adv, packResponse(t, "PACKBYTES"))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	objects.hash = mustID(h1)
	objects.count = 1
	refs := newFakeRefStore()

	update, err := Clone(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs,
		"refs/heads/main", "refs/heads/main", Options{})
	require.NoError(t, err)
	assert.Equal(t, RefNew, update.Outcome)

	oid, ok, err := refs.Resolve("refs/heads/main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustID(h1), oid)
	assert.Equal(t, store.SymbolicRef("refs/heads/main"), refs.refs[store.Head])
}

func TestCloneUnknownRefIsSyncError(t *testing.T) {
	h1 := "111111111111111111111111111111111111111a"
	adv := buildAdvertisement("git-upload-pack", []testRef{{h1, "refs/heads/main"}}, "side-band-64k")
	srv := newUploadServer(t, adv, packResponse(t, "PACKBYTES"))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	refs := newFakeRefStore()

	_, err = Clone(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs,
		"refs/heads/nope", "refs/heads/main", Options{})
	require.Error(t, err)
	serr, ok := err.(*transport.Error)
	require.True(t, ok)
	assert.Equal(t, transport.CategorySync, serr.Category)
}

func TestFetchOneAlreadySyncWhenRefMissingFromAdvertisement(t *testing.T) {
	h1 := "111111111111111111111111111111111111111a"
	adv := buildAdvertisement("git-upload-pack", []testRef{{h1, "refs/heads/main"}}, "side-band-64k")
	srv := newUploadServer(t, adv, packResponse(t, "PACKBYTES"))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	refs := newFakeRefStore()

	_, already, err := FetchOne(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs,
		Refspec{Src: "refs/heads/gone", Dst: "refs/remotes/origin/gone"}, Options{})
	require.NoError(t, err)
	assert.True(t, already)
}

// readyPackResponse renders the response shape a Ready outcome
// consumes in one HTTP round trip: an "ACK <hOld> ready" negotiation
// line, then the negotiation result ACK, then the side-band pack.
func readyPackResponse(t *testing.T, hOld, hNew, packBytes string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	pktline.WriteString(buf, "ACK "+hOld+" ready\n")
	pktline.WriteString(buf, "ACK "+hNew+"\n")
	payload := append([]byte{1}, []byte(packBytes)...)
	pktline.WriteLine(buf, payload)
	pktline.WriteFlush(buf)
	return buf.Bytes()
}

func TestFetchOneFastForward(t *testing.T) {
	hOld := "111111111111111111111111111111111111111a"
	hNew := "222222222222222222222222222222222222222b"
	adv := buildAdvertisement("git-upload-pack", []testRef{{hNew, "refs/heads/main"}}, "side-band-64k multi-ack-detailed")
	srv := newUploadServer(t, adv, readyPackResponse(t, hOld, hNew, "PACKBYTES"))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	objects.hash = mustID(hNew)
	objects.count = 1
	objects.ancestors[mustID(hNew)] = objectid.NewSet(mustID(hOld))
	refs := newFakeRefStore()
	require.NoError(t, refs.Write("refs/remotes/origin/main", store.Hash(mustID(hOld))))

	update, already, err := FetchOne(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs,
		Refspec{Src: "refs/heads/main", Dst: "refs/remotes/origin/main"}, Options{})
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, RefFastForward, update.Outcome)
	oid, ok, err := refs.Resolve("refs/remotes/origin/main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustID(hNew), oid)
}

func TestFetchOneRejectsNonFastForwardWithoutForce(t *testing.T) {
	hOld := "111111111111111111111111111111111111111a"
	hNew := "222222222222222222222222222222222222222b"
	adv := buildAdvertisement("git-upload-pack", []testRef{{hNew, "refs/heads/main"}}, "side-band-64k multi-ack-detailed")
	srv := newUploadServer(t, adv, readyPackResponse(t, hOld, hNew, "PACKBYTES"))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	objects.hash = mustID(hNew)
	objects.count = 1
	// no ancestry recorded: hOld is not an ancestor of hNew.
	refs := newFakeRefStore()
	require.NoError(t, refs.Write("refs/remotes/origin/main", store.Hash(mustID(hOld))))

	update, already, err := FetchOne(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs,
		Refspec{Src: "refs/heads/main", Dst: "refs/remotes/origin/main"}, Options{})
	require.Error(t, err)
	assert.False(t, already)
	assert.Equal(t, RefRejected, update.Outcome)
}

func TestFetchSomeSelectsOnlyMatchedRefs(t *testing.T) {
	hMain := "111111111111111111111111111111111111111a"
	hTopic := "222222222222222222222222222222222222222b"
	adv := buildAdvertisement("git-upload-pack", []testRef{
		{hMain, "refs/heads/main"},
		{hTopic, "refs/heads/topic"},
	}, "side-band-64k")
	srv := newUploadServer(t, adv, packResponse(t, "PACKBYTES"))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	objects.hash = mustID(hMain)
	objects.count = 1
	refs := newFakeRefStore()

	updates, err := FetchSome(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs,
		[]Refspec{MustParseRefspec("refs/heads/main:refs/remotes/origin/main")}, Options{}, stdr.New(nil))
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "refs/remotes/origin/main", updates[0].Local)
	assert.Equal(t, RefNew, updates[0].Outcome)
}

func TestFetchAllMapsEveryAdvertisedRef(t *testing.T) {
	hMain := "111111111111111111111111111111111111111a"
	hTopic := "222222222222222222222222222222222222222b"
	adv := buildAdvertisement("git-upload-pack", []testRef{
		{hMain, "refs/heads/main"},
		{hTopic, "refs/heads/topic"},
	}, "side-band-64k")
	srv := newUploadServer(t, adv, packResponse(t, "PACKBYTES"))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	objects.hash = mustID(hMain)
	objects.count = 2
	refs := newFakeRefStore()

	updates, err := FetchAll(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs, Options{})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	names := map[string]bool{}
	for _, u := range updates {
		names[u.Local] = true
		assert.Equal(t, RefNew, u.Outcome)
	}
	assert.True(t, names["refs/heads/main"])
	assert.True(t, names["refs/heads/topic"])
}

func TestUpdateAndCreatePushesHandlerCommands(t *testing.T) {
	hMain := "111111111111111111111111111111111111111a"
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			gotBody, _ = io.ReadAll(r.Body)
			buf := &bytes.Buffer{}
			pktline.WriteString(buf, "unpack ok\n")
			pktline.WriteString(buf, "ok refs/heads/main\n")
			pktline.WriteFlush(buf)
			w.Write(buf.Bytes())
			return
		}
		w.Write(buildAdvertisement("git-receive-pack", []testRef{{hMain, "refs/heads/main"}}, "report-status"))
	}))
	defer srv.Close()

	c, err := httpapi.NewClient(stdr.New(nil))
	require.NoError(t, err)
	objects := newFakeObjectStore()
	refs := newFakeRefStore()
	newHash := mustID("222222222222222222222222222222222222222b")
	require.NoError(t, refs.Write("refs/heads/main", store.Hash(newHash)))

	handler := func(_ store.ObjectStore, references map[string]objectid.ID, remoteRefs []protocol.RefEntry) []protocol.Command {
		return []protocol.Command{{
			Kind: protocol.CommandUpdate,
			Old:  remoteRefs[0].ID,
			New:  references["refs/heads/main"],
			Ref:  "refs/heads/main",
		}}
	}
	packer := func(httpapi.PackOptions, store.ObjectStore, []protocol.RefEntry, []protocol.Command) (io.Reader, error) {
		return strings.NewReader("PACKBYTES"), nil
	}

	res, err := UpdateAndCreate(c, transport.Endpoint{Scheme: "http", Host: mustHost(srv.URL)}, objects, refs, handler, packer, Options{})
	require.NoError(t, err)
	require.Len(t, res.Commands, 1)
	assert.Empty(t, res.Commands[0].Error)
	assert.True(t, strings.HasSuffix(string(gotBody), "PACKBYTES"))
}
