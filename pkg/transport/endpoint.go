// Package transport holds the collaborator-facing types that sit between
// the fetch/push drivers and the HTTP substrate: endpoints, capability
// negotiation, and the error taxonomy that every protocol failure is
// mapped into.
package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Service names a Smart HTTP service endpoint.
type Service string

const (
	UploadPack  Service = "git-upload-pack"
	ReceivePack Service = "git-receive-pack"
)

// Endpoint is a remote git repository location: a URI plus headers the
// caller wants merged into every request sent to it (credentials,
// tracing headers, and the like — authentication challenge handling
// itself belongs to the HTTP client collaborator, not here).
type Endpoint struct {
	Scheme   string // "http" or "https"
	Host     string
	Port     string // empty means default for Scheme
	Path     string
	Userinfo *url.Userinfo
	Headers  http.Header
}

// ParseEndpoint parses a remote URL such as "https://user@host:8080/path"
// into an Endpoint. Userinfo, if present, is carried onto the Endpoint
// rather than discarded, the same way wrgl passes the parsed *url.URL
// straight through to its credential lookup.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, &ErrInvalidEndpoint{Reason: err.Error()}
	}
	e := Endpoint{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Port:     u.Port(),
		Path:     u.Path,
		Userinfo: u.User,
	}
	if err := e.validate(); err != nil {
		return Endpoint{}, err
	}
	return e, nil
}

// ErrInvalidEndpoint is returned when an Endpoint cannot be composed into
// a valid request URL.
type ErrInvalidEndpoint struct {
	Reason string
}

func (e *ErrInvalidEndpoint) Error() string {
	return fmt.Sprintf("transport: invalid endpoint: %s", e.Reason)
}

func (e Endpoint) validate() error {
	if e.Scheme != "http" && e.Scheme != "https" {
		return &ErrInvalidEndpoint{Reason: fmt.Sprintf("unsupported scheme %q", e.Scheme)}
	}
	if e.Host == "" {
		return &ErrInvalidEndpoint{Reason: "missing host"}
	}
	return nil
}

func (e Endpoint) hostport() string {
	if e.Port == "" {
		return e.Host
	}
	return e.Host + ":" + e.Port
}

// WithURI returns a copy of e with a new scheme/host/port/path/userinfo,
// preserving Headers — the Endpoint contract's `with_uri` operation.
func (e Endpoint) WithURI(scheme, host, port, path string, userinfo *url.Userinfo) Endpoint {
	e.Scheme, e.Host, e.Port, e.Path, e.Userinfo = scheme, host, port, path, userinfo
	return e
}

func (e Endpoint) basePath() string {
	p := strings.TrimSuffix(e.Path, "/")
	return p
}

// DiscoveryURL composes the reference discovery URL:
// SCHEME://HOST[:PORT]/PATH/info/refs?service=SVC
func (e Endpoint) DiscoveryURL(svc Service) (string, error) {
	if err := e.validate(); err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: e.Scheme,
		User:   e.Userinfo,
		Host:   e.hostport(),
		Path:   e.basePath() + "/info/refs",
	}
	q := url.Values{"service": {string(svc)}}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ServiceURL composes the POST URL for svc: SCHEME://HOST[:PORT]/PATH/SVC
func (e Endpoint) ServiceURL(svc Service) (string, error) {
	if err := e.validate(); err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: e.Scheme,
		User:   e.Userinfo,
		Host:   e.hostport(),
		Path:   e.basePath() + "/" + string(svc),
	}
	return u.String(), nil
}
