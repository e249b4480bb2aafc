package http

import (
	"io"
	"net/http"

	"github.com/mhauser/pktwire/pkg/mailbox"
	"github.com/mhauser/pktwire/pkg/negotiate"
	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/store"
	"github.com/mhauser/pktwire/pkg/transport"
)

// WantedRef is one entry the caller's Want callback selected from the
// advertisement — the pair the Fetch Driver negotiates for and, on
// success, hands back to the orchestration layer to write locally.
type WantedRef struct {
	ID   objectid.ID
	Name string
}

// Notifier receives the side-band stdout/stderr substreams (§4.5) as
// the PACK phase is demultiplexed. A nil Notifier is treated as a
// no-op; Progress/ServerError are called in emission order and the
// driver does not proceed to the next decode step until each call
// returns, giving the sink the backpressure §5 requires.
type Notifier interface {
	Progress(b []byte)
	ServerError(b []byte)
}

type nopNotifier struct{}

func (nopNotifier) Progress(b []byte)    {}
func (nopNotifier) ServerError(b []byte) {}

// FetchRequest groups the Fetch Driver's inputs (§4.7).
type FetchRequest struct {
	Endpoint     transport.Endpoint
	Capabilities transport.Set
	Store        store.ObjectStore
	Shallow      []objectid.ID
	Deepen       int
	Have         objectid.Set
	Want         func([]protocol.RefEntry) []WantedRef
	Negotiator   negotiate.Negotiator
	Notify       Notifier
}

// FetchResult is the Fetch Driver's success value: the caller's
// original non-empty selection, and the object count the store reports
// for the ingested pack (zero for the empty-want short-circuit).
type FetchResult struct {
	Wanted      []WantedRef
	ObjectCount int
}

// Fetch runs the fetch negotiation loop of §4.7 end to end: discovery,
// want selection, the flush/done negotiation rounds driven by req
// .Negotiator, and PACK ingestion into req.Store.
func Fetch(c *Client, req FetchRequest) (FetchResult, error) {
	notify := req.Notify
	if notify == nil {
		notify = nopNotifier{}
	}

	adv, err := Discover(c, req.Capabilities, req.Endpoint, transport.UploadPack)
	if err != nil {
		return FetchResult{}, err
	}
	common, sideBand, ackMode := transport.Negotiate(req.Capabilities, adv.Capabilities)

	wanted := req.Want(adv.Refs)
	if len(wanted) == 0 {
		return FetchResult{}, nil
	}
	wants := make([]objectid.ID, len(wanted))
	for i, w := range wanted {
		wants[i] = w.ID
	}

	if len(req.Have) == 0 {
		resp, err := c.postUpload(req.Endpoint, req.Capabilities, protocol.WantRequest{
			Wants:        wants,
			Shallow:      req.Shallow,
			Deepen:       req.Deepen,
			Capabilities: common,
		}, protocol.MarkerDone)
		if err != nil {
			return FetchResult{}, err
		}
		defer resp.Body.Close()
		count, err := fetchResultThenPack(resp.Body, nil, sideBand, req.Store, notify)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Wanted: wanted, ObjectCount: count}, nil
	}

	haveBox := mailbox.New(req.Have.Union(objectid.NewSet()))

	resp, err := c.postUpload(req.Endpoint, req.Capabilities, protocol.WantRequest{
		Wants:        wants,
		Have:         haveBox.Peek().Slice(),
		Shallow:      req.Shallow,
		Deepen:       req.Deepen,
		Capabilities: common,
	}, protocol.MarkerFlush)
	if err != nil {
		return FetchResult{}, err
	}

	for {
		acksDec := protocol.NewAcksDecoder(ackMode)
		v, err := Consume(acksDec, resp.Body)
		if err != nil {
			resp.Body.Close()
			return FetchResult{}, err
		}
		acks := v.(protocol.Acks)
		residual := acksDec.TakeResidual()

		decision, err := req.Negotiator.Continue(acks)
		if err != nil {
			resp.Body.Close()
			return FetchResult{}, err
		}

		switch decision.Outcome {
		case negotiate.Ready:
			count, err := fetchResultThenPack(resp.Body, residual, sideBand, req.Store, notify)
			resp.Body.Close()
			if err != nil {
				return FetchResult{}, err
			}
			return FetchResult{Wanted: wanted, ObjectCount: count}, nil

		case negotiate.Again:
			resp.Body.Close()
			haveBox.Update(func(h objectid.Set) objectid.Set {
				return h.Union(objectid.NewSet(decision.AddedHaves...))
			})
			resp, err = c.postUpload(req.Endpoint, req.Capabilities, protocol.WantRequest{
				Wants:        wants,
				Have:         haveBox.Peek().Slice(),
				Shallow:      req.Shallow,
				Deepen:       req.Deepen,
				Capabilities: common,
			}, protocol.MarkerFlush)
			if err != nil {
				return FetchResult{}, err
			}

		case negotiate.Done:
			resp.Body.Close()
			haveBox.Update(func(objectid.Set) objectid.Set {
				return objectid.NewSet(ackedHashes(acks)...)
			})
			resp, err = c.postUpload(req.Endpoint, req.Capabilities, protocol.WantRequest{
				Wants:        wants,
				Have:         haveBox.Peek().Slice(),
				Shallow:      req.Shallow,
				Deepen:       req.Deepen,
				Capabilities: common,
			}, protocol.MarkerDone)
			if err != nil {
				return FetchResult{}, err
			}
			// Continue at the Done branch: read final acks, then the
			// NegociationResult, then PACK, all from this one response.
			finalAcksDec := protocol.NewAcksDecoder(ackMode)
			if _, err := Consume(finalAcksDec, resp.Body); err != nil {
				resp.Body.Close()
				return FetchResult{}, err
			}
			count, err := fetchResultThenPack(resp.Body, finalAcksDec.TakeResidual(), sideBand, req.Store, notify)
			resp.Body.Close()
			if err != nil {
				return FetchResult{}, err
			}
			return FetchResult{Wanted: wanted, ObjectCount: count}, nil
		}
	}
}

// ackedHashes extracts every acknowledged object id from a negotiation
// round, in the order the server reported them — the spec's `{ hash :
// (hash, _) ∈ acks }` replacement of the have set on the Done branch.
func ackedHashes(acks protocol.Acks) []objectid.ID {
	out := make([]objectid.ID, len(acks.Entries))
	for i, e := range acks.Entries {
		out[i] = e.ID
	}
	return out
}

// postUpload issues one negotiation POST (§4.7's Flush/Done rounds).
func (c *Client) postUpload(endpoint transport.Endpoint, caps transport.Set, wr protocol.WantRequest, marker protocol.Marker) (*http.Response, error) {
	u, err := endpoint.ServiceURL(transport.UploadPack)
	if err != nil {
		return nil, err
	}
	headers, err := BuildHeaders(caps, ContentTypeUploadRequest, endpoint.Headers)
	if err != nil {
		return nil, err
	}
	enc := protocol.NewUploadRequestEncoder(wr, marker)
	return c.Do(http.MethodPost, u, NewProducer(enc, nil), headers)
}

// fetchResultThenPack reads the NegociationResult line (seeded with any
// residual bytes a preceding Acks decode read past its own boundary),
// then streams the PACK phase through the side-band demultiplexer into
// store, returning the ingested object count.
func fetchResultThenPack(body io.Reader, seed []byte, mode transport.SideBandMode, st store.ObjectStore, notify Notifier) (int, error) {
	negDec := protocol.NewNegotiationResultDecoder()
	if len(seed) > 0 {
		negDec.Seed(seed)
	}
	if _, err := Consume(negDec, body); err != nil {
		return 0, err
	}
	return decodePackIntoStore(body, negDec.TakeResidual(), mode, st, notify)
}

// decodePackIntoStore drives a PackDecoder to completion, copying Raw
// chunks into a pipe Store.PackFrom reads from concurrently, and
// forwarding Out/Err chunks to notify in emission order (§4.5).
func decodePackIntoStore(body io.Reader, seed []byte, mode transport.SideBandMode, st store.ObjectStore, notify Notifier) (int, error) {
	dec := protocol.NewPackDecoder(mode)
	dec.Seed(seed)

	pr, pw := io.Pipe()
	type packResult struct {
		count int
		err   error
	}
	resultCh := make(chan packResult, 1)
	go func() {
		_, count, err := st.PackFrom(pr)
		resultCh <- packResult{count, err}
	}()

	for {
		out := dec.Step()
		switch out.Kind {
		case protocol.DecodeRead:
			n, rerr := body.Read(out.Buf[out.Off : out.Off+out.Len])
			if n > 0 {
				dec.Advance(n)
				if rerr == nil || rerr == io.EOF {
					continue
				}
			}
			if rerr != nil && rerr != io.EOF {
				pw.CloseWithError(rerr)
				<-resultCh
				return 0, rerr
			}
			if rerr == io.EOF || (rerr == nil && n == 0) {
				end := dec.End()
				if end.Kind == protocol.DecodeError {
					pw.CloseWithError(end.Err)
					<-resultCh
					return 0, end.Err
				}
				// end.Value is always PackChunk{Kind: ChunkEnd}: body-end
				// is a legitimate terminator only when it yields one.
				pw.Close()
				res := <-resultCh
				return res.count, res.err
			}
		case protocol.DecodeError:
			pw.CloseWithError(out.Err)
			<-resultCh
			return 0, out.Err
		case protocol.DecodeOk:
			chunk := out.Value.(protocol.PackChunk)
			if chunk.Kind == protocol.ChunkEnd {
				pw.Close()
				res := <-resultCh
				return res.count, res.err
			}
			dispatchPackChunk(chunk, pw, notify)
		}
	}
}

func dispatchPackChunk(chunk protocol.PackChunk, pw *io.PipeWriter, notify Notifier) {
	switch chunk.Kind {
	case protocol.ChunkRaw:
		pw.Write(chunk.Data)
	case protocol.ChunkOut:
		notify.Progress(chunk.Data)
	case protocol.ChunkErr:
		notify.ServerError(chunk.Data)
	}
}
