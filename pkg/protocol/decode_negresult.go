package protocol

import (
	"fmt"
	"strings"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

// NegotiationResultDecoder implements Decoder for the message the spec
// calls NegociationResult: the single "NAK\n" or "ACK <oid>\n" line read
// right before the PACK stream begins.
type NegotiationResultDecoder struct {
	feeder *lineFeeder
	done   bool
	final  DecodeOutcome
}

func NewNegotiationResultDecoder() *NegotiationResultDecoder {
	return &NegotiationResultDecoder{feeder: newLineFeeder()}
}

func (d *NegotiationResultDecoder) Advance(n int) { d.feeder.advance(n) }

func (d *NegotiationResultDecoder) Seed(b []byte)        { d.feeder.seed(b) }
func (d *NegotiationResultDecoder) TakeResidual() []byte { return d.feeder.takeResidual() }

// Step returns the cached terminal outcome if called again after Ok or
// Error — the driver is expected to stop calling once it has one, but
// this keeps repeated calls harmless rather than silently misreporting
// DecodeRead (the zero DecodeKind).
func (d *NegotiationResultDecoder) Step() DecodeOutcome {
	if d.done {
		return d.final
	}
	line, ok, err := d.feeder.nextLine()
	if err != nil {
		d.done, d.final = true, errOutcome("malformed pkt-line in negotiation result", d.feeder.pending, err)
		return d.final
	}
	if !ok {
		return d.feeder.readOutcome()
	}
	if line.Kind != pktline.Data {
		d.done, d.final = true, errOutcome("expected ACK/NAK line", d.feeder.pending, fmt.Errorf("got kind %d", line.Kind))
		return d.final
	}
	s := strings.TrimSuffix(string(line.Payload), "\n")
	if s == "NAK" {
		d.done, d.final = true, DecodeOutcome{Kind: DecodeOk, Value: NegotiationResult{Acked: false}}
		return d.final
	}
	fields := strings.Fields(s)
	if len(fields) != 2 || fields[0] != "ACK" {
		d.done, d.final = true, errOutcome("malformed negotiation result", []byte(s), nil)
		return d.final
	}
	id, err := objectid.Parse(fields[1])
	if err != nil {
		d.done, d.final = true, errOutcome("malformed negotiation result oid", []byte(s), err)
		return d.final
	}
	d.done, d.final = true, DecodeOutcome{Kind: DecodeOk, Value: NegotiationResult{Acked: true, ID: id}}
	return d.final
}

func errOutcome(msg string, diag []byte, cause error) DecodeOutcome {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return DecodeOutcome{Kind: DecodeError, Err: transport.NewSmartError(msg, diag)}
}
