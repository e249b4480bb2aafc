package protocol

import (
	"fmt"
	"strings"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

// AcksDecoder implements Decoder for the message the spec calls
// Negociation(have, ack_mode): one negotiation-round response. Under
// AckSingle it reads exactly one ACK/NAK line. Under AckMulti and
// AckMultiDetailed the round may end either on an early "ACK <oid>
// ready" line or simply when the response body ends — the latter is
// legitimate termination, not UnexpectedEndOfInput, which is why this
// decoder implements EOFAware.
type AcksDecoder struct {
	mode   transport.AckMode
	feeder *lineFeeder
	result Acks
	done   bool
}

func NewAcksDecoder(mode transport.AckMode) *AcksDecoder {
	return &AcksDecoder{mode: mode, feeder: newLineFeeder()}
}

func (d *AcksDecoder) Advance(n int) { d.feeder.advance(n) }

// Seed and TakeResidual let a driver chain this decoder with whatever
// message decodes next over the same response body (§4.7's Ready/Done
// branches read Acks, then a NegociationResult, then PACK, all from one
// response).
func (d *AcksDecoder) Seed(b []byte)        { d.feeder.seed(b) }
func (d *AcksDecoder) TakeResidual() []byte { return d.feeder.takeResidual() }

func (d *AcksDecoder) Step() DecodeOutcome {
	for {
		if d.done {
			return DecodeOutcome{Kind: DecodeOk, Value: d.result}
		}
		line, ok, err := d.feeder.nextLine()
		if err != nil {
			return errOutcome("malformed pkt-line in negotiation round", d.feeder.pending, err)
		}
		if !ok {
			return d.feeder.readOutcome()
		}
		if out, terminal := d.consume(line); terminal {
			return out
		}
	}
}

// End reports the round as complete when the body has ended — the
// normal way a multi-ack(-detailed) round terminates.
func (d *AcksDecoder) End() DecodeOutcome {
	d.done = true
	return DecodeOutcome{Kind: DecodeOk, Value: d.result}
}

func (d *AcksDecoder) consume(line pktline.Line) (DecodeOutcome, bool) {
	if line.Kind == pktline.Flush {
		d.done = true
		return DecodeOutcome{}, false
	}
	if line.Kind != pktline.Data {
		return errOutcome("unexpected non-data line in negotiation round", nil, fmt.Errorf("kind %d", line.Kind)), true
	}
	s := strings.TrimSuffix(string(line.Payload), "\n")
	if s == "NAK" {
		d.result.NAK = true
		if d.mode == transport.AckSingle {
			d.done = true
		}
		return DecodeOutcome{}, false
	}
	if strings.HasPrefix(s, "shallow ") {
		id, err := objectid.Parse(strings.TrimPrefix(s, "shallow "))
		if err != nil {
			return errOutcome("malformed shallow line", []byte(s), err), true
		}
		d.result.Shallow = append(d.result.Shallow, id)
		return DecodeOutcome{}, false
	}
	if strings.HasPrefix(s, "unshallow ") {
		id, err := objectid.Parse(strings.TrimPrefix(s, "unshallow "))
		if err != nil {
			return errOutcome("malformed unshallow line", []byte(s), err), true
		}
		d.result.Unshallow = append(d.result.Unshallow, id)
		return DecodeOutcome{}, false
	}
	fields := strings.Fields(s)
	if len(fields) < 2 || fields[0] != "ACK" {
		return errOutcome("malformed ack line", []byte(s), nil), true
	}
	id, err := objectid.Parse(fields[1])
	if err != nil {
		return errOutcome("malformed ack oid", []byte(s), err), true
	}
	entry := AckEntry{ID: id}
	ready := false
	if len(fields) >= 3 {
		switch fields[2] {
		case "continue":
			entry.Status = AckContinue
		case "common":
			entry.Status = AckCommon
		case "ready":
			entry.Status = AckReady
			ready = true
		default:
			return errOutcome("unknown ack qualifier", []byte(s), fmt.Errorf("%q", fields[2])), true
		}
	}
	d.result.Entries = append(d.result.Entries, entry)
	if d.mode == transport.AckSingle || ready {
		d.done = true
	}
	return DecodeOutcome{}, false
}
