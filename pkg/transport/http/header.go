// Package http implements the Body Bridge, the HTTP client wrapper,
// and the Fetch/Push/Ls drivers on top of net/http and pkg/protocol —
// the component the spec treats as the HTTP substrate the core's
// Encoder/Decoder state machines are driven across.
package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/mhauser/pktwire/pkg/transport"
)

const (
	ContentTypeUploadRequest  = "application/x-git-upload-pack-request"
	ContentTypeUploadResult   = "application/x-git-upload-pack-result"
	ContentTypeReceiveRequest = "application/x-git-receive-pack-request"
	ContentTypeReceiveResult  = "application/x-git-receive-pack-result"
)

// BuildHeaders is the Header Builder (§4.2): it derives User-Agent from
// the Agent capability (absence is a programmer error, surfaced as
// ErrMissingAgent), sets the service-specific Content-Type, stamps a
// fresh X-Request-Id for tracing, and merges the endpoint's own headers
// over those defaults without letting them remove the required fields.
func BuildHeaders(caps transport.Set, contentType string, endpointHeaders http.Header) (http.Header, error) {
	agent, ok := caps.Get(transport.CapAgent)
	if !ok {
		return nil, ErrMissingAgent
	}
	h := make(http.Header)
	h.Set("User-Agent", agent.Value)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("X-Request-Id", uuid.NewString())
	for k, vs := range endpointHeaders {
		if k == "User-Agent" || k == "Content-Type" {
			continue // required fields cannot be removed by caller headers
		}
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h, nil
}

// ErrMissingAgent is the programmer error (InvalidCapabilities) raised
// when the client's own capability list carries no Agent entry.
var ErrMissingAgent = fmt.Errorf("transport/http: client capabilities must include an Agent entry")
