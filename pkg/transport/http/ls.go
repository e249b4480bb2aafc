package http

import (
	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/transport"
)

// Ls is the Ref Discovery driver (§4.6): a thin variant of the fetch
// discovery GET that returns only the advertised refs, for callers that
// want to inspect a remote without negotiating a pack.
func Ls(c *Client, caps transport.Set, endpoint transport.Endpoint) (protocol.RefAdvertisement, error) {
	return Discover(c, caps, endpoint, transport.UploadPack)
}
