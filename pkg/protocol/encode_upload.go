package protocol

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

// Marker distinguishes the two ways a negotiation POST can terminate
// its body: Flush continues the round, Done ends negotiation.
type Marker int

const (
	MarkerFlush Marker = iota
	MarkerDone
)

// UploadRequestEncoder implements Encoder for the message the spec
// calls HttpUploadRequest(marker, {want, capabilities, shallow, deep,
// has}). The whole body is rendered up front into buf — the message is
// small and bounded, unlike the PACK body that follows it in the same
// request, which is why the Push side additionally needs a concatenated
// producer (see Body Bridge) rather than a single Encoder instance.
type UploadRequestEncoder struct {
	buf []byte
	off int
}

func NewUploadRequestEncoder(req WantRequest, marker Marker) *UploadRequestEncoder {
	buf := &bytes.Buffer{}
	for i, w := range req.Wants {
		line := "want " + w.String()
		if i == 0 && len(req.Capabilities) > 0 {
			line += " " + capabilitiesString(req.Capabilities)
		}
		line += "\n"
		_ = pktline.WriteString(buf, line)
	}
	for _, sh := range req.Shallow {
		_ = pktline.WriteString(buf, "shallow "+sh.String()+"\n")
	}
	if req.Deepen > 0 {
		_ = pktline.WriteString(buf, "deepen "+strconv.Itoa(req.Deepen)+"\n")
	}
	_ = pktline.WriteFlush(buf)
	for _, h := range req.Have {
		_ = pktline.WriteString(buf, "have "+h.String()+"\n")
	}
	switch marker {
	case MarkerDone:
		_ = pktline.WriteString(buf, "done\n")
	default:
		_ = pktline.WriteFlush(buf)
	}
	return &UploadRequestEncoder{buf: buf.Bytes()}
}

func (e *UploadRequestEncoder) Step() EncodeOutcome {
	if e.off >= len(e.buf) {
		return EncodeOutcome{Kind: EncodeOk}
	}
	return EncodeOutcome{Kind: EncodeWrite, Buf: e.buf, Off: e.off, Len: len(e.buf) - e.off}
}

func (e *UploadRequestEncoder) Advance(n int) { e.off += n }

// capabilitiesString renders a capability set the way the wire expects
// on a "want" line: space-separated names, with "name=value" for
// valued capabilities.
func capabilitiesString(set transport.Set) string {
	parts := make([]string, len(set))
	for i, c := range set {
		if c.Value == "" {
			parts[i] = c.Name
		} else {
			parts[i] = c.Name + "=" + c.Value
		}
	}
	return strings.Join(parts, " ")
}
