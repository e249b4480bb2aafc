package protocol

import (
	"bytes"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

// UpdateRequestEncoder implements Encoder for the message the spec
// calls HttpUpdateRequest({shallow, requests=Raw(first,rest),
// capabilities}): the command list that precedes the pack body in a
// push POST. The pack body itself is not this encoder's concern — the
// Push Driver concatenates this encoder's output with the pack
// generator's byte stream via the Body Bridge producer's `final` hook.
type UpdateRequestEncoder struct {
	buf []byte
	off int
}

func NewUpdateRequestEncoder(commands []Command, capabilities transport.Set, shallow []objectid.ID) *UpdateRequestEncoder {
	buf := &bytes.Buffer{}
	for i, c := range commands {
		line := commandLine(c)
		if i == 0 && len(capabilities) > 0 {
			line += "\x00" + capabilitiesString(capabilities)
		}
		line += "\n"
		_ = pktline.WriteString(buf, line)
	}
	_ = pktline.WriteFlush(buf)
	return &UpdateRequestEncoder{buf: buf.Bytes()}
}

func commandLine(c Command) string {
	oldID, newID := c.Old.String(), c.New.String()
	switch c.Kind {
	case CommandCreate:
		oldID = objectid.Zero.String()
	case CommandDelete:
		newID = objectid.Zero.String()
	}
	return oldID + " " + newID + " " + c.Ref
}

func (e *UpdateRequestEncoder) Step() EncodeOutcome {
	if e.off >= len(e.buf) {
		return EncodeOutcome{Kind: EncodeOk}
	}
	return EncodeOutcome{Kind: EncodeWrite, Buf: e.buf, Off: e.off, Len: len(e.buf) - e.off}
}

func (e *UpdateRequestEncoder) Advance(n int) { e.off += n }
