package http

import (
	"io"
	"net/http"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/store"
	"github.com/mhauser/pktwire/pkg/transport"
)

// Default pack generator parameters per §4.8 step 4: a window of 10
// candidate bases per object, a delta chain depth of 50, and ofs-delta
// enabled. The core does not expose these as tunables — they are the
// fixed call the spec names.
const (
	DefaultPackWindow = 10
	DefaultPackDepth  = 50
)

// PackOptions is the fixed configuration the Push Driver passes to the
// pack generator collaborator on every push.
type PackOptions struct {
	Window   int
	Depth    int
	OfsDelta bool
}

// PackGenerator is the pack generator collaborator (§6): invoked with
// the advertised refs and the commands the caller's push callback
// produced, it returns a lazy byte stream of the outgoing pack.
type PackGenerator func(opts PackOptions, st store.ObjectStore, refs []protocol.RefEntry, commands []protocol.Command) (io.Reader, error)

// PushRequest groups the Push Driver's inputs (§4.8).
type PushRequest struct {
	Endpoint     transport.Endpoint
	Capabilities transport.Set
	Store        store.ObjectStore
	Shallow      []objectid.ID
	Push         func([]protocol.RefEntry) []protocol.Command
	Packer       PackGenerator
}

// PushResult is the Push Driver's success value: the per-command
// outcomes report-status carried back, positionally matching the
// command list the caller's Push callback produced.
type PushResult struct {
	Commands []protocol.CommandResult
}

// Push runs §4.8 end to end: discovery against git-receive-pack, the
// caller's command selection, pack generation, the update-request +
// pack POST, and report-status decoding.
func Push(c *Client, req PushRequest) (PushResult, error) {
	adv, err := Discover(c, req.Capabilities, req.Endpoint, transport.ReceivePack)
	if err != nil {
		return PushResult{}, err
	}
	common, sideBand, _ := transport.Negotiate(req.Capabilities, adv.Capabilities)

	commands := req.Push(adv.Refs)
	if len(commands) == 0 {
		return PushResult{}, nil
	}

	packStream, err := req.Packer(PackOptions{
		Window:   DefaultPackWindow,
		Depth:    DefaultPackDepth,
		OfsDelta: true,
	}, req.Store, adv.Refs, commands)
	if err != nil {
		return PushResult{}, transport.NewStoreError("pack generation failed", err)
	}

	u, err := req.Endpoint.ServiceURL(transport.ReceivePack)
	if err != nil {
		return PushResult{}, err
	}
	headers, err := BuildHeaders(req.Capabilities, ContentTypeReceiveRequest, req.Endpoint.Headers)
	if err != nil {
		return PushResult{}, err
	}
	enc := protocol.NewUpdateRequestEncoder(commands, common, req.Shallow)
	body := NewProducer(enc, packStream)

	resp, err := c.Do(http.MethodPost, u, body, headers)
	if err != nil {
		return PushResult{}, err
	}
	defer resp.Body.Close()

	dec := protocol.NewReportStatusDecoder(sideBand)
	v, err := Consume(dec, resp.Body)
	if err != nil {
		return PushResult{}, err
	}
	rs := v.(protocol.ReportStatus)
	if rs.UnpackError != "" {
		return PushResult{}, transport.NewSyncError(rs.UnpackError, []byte(rs.UnpackError))
	}
	return PushResult{Commands: rs.Commands}, nil
}
