package http

import (
	"net/http"

	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/transport"
)

// Discover performs the reference discovery GET (§4.6 step 1-2) shared
// by Ls, Fetch, and Push: it composes the discovery URL, issues the GET,
// and drives a RefDiscoveryDecoder over the response body. Any failure —
// an HTTP-layer error, or the body not parsing as a pktline ref
// advertisement at all, which some servers return as a plain error page
// instead — is mapped to Sync per §4.6 and §7, since discovery is the
// one place spec.md explicitly calls out this fallback.
func Discover(c *Client, caps transport.Set, endpoint transport.Endpoint, svc transport.Service) (protocol.RefAdvertisement, error) {
	u, err := endpoint.DiscoveryURL(svc)
	if err != nil {
		return protocol.RefAdvertisement{}, err
	}
	headers, err := BuildHeaders(caps, "", endpoint.Headers)
	if err != nil {
		return protocol.RefAdvertisement{}, err
	}
	resp, err := c.Do(http.MethodGet, u, nil, headers)
	if err != nil {
		if herr, ok := err.(*HTTPError); ok {
			return protocol.RefAdvertisement{}, transport.NewSyncError(herr.Message, []byte(herr.Message))
		}
		return protocol.RefAdvertisement{}, err
	}
	defer resp.Body.Close()

	dec := protocol.NewRefDiscoveryDecoder(svc)
	v, err := Consume(dec, resp.Body)
	if err != nil {
		return protocol.RefAdvertisement{}, syncFromSmart(err)
	}
	return v.(protocol.RefAdvertisement), nil
}

// syncFromSmart converts a Smart decode failure encountered while
// consuming a response that is supposed to be pktline-framed into a
// Sync error carrying the raw bytes as the message, per §7's note that
// diagnostic payloads are preserved because some servers reply with a
// plain error page rather than a structural protocol error.
func syncFromSmart(err error) error {
	serr, ok := err.(*transport.Error)
	if !ok {
		return err
	}
	diag := serr.Diagnostic
	if len(diag) == 0 {
		diag = []byte(serr.Message)
	}
	return transport.NewSyncError(string(diag), diag)
}
