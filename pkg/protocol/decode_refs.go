package protocol

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

type refDiscoveryState int

const (
	refStateServiceLine refDiscoveryState = iota
	refStateServiceFlush
	refStateRefs
	refStateDone
)

// RefDiscoveryDecoder implements Decoder for the message the spec calls
// HttpReferenceDiscovery(service): the "# service=...\n", flush, ref
// list, flush framing a discovery GET response carries.
type RefDiscoveryDecoder struct {
	service transport.Service
	feeder  *lineFeeder
	state   refDiscoveryState
	result  RefAdvertisement
	first   bool
}

func NewRefDiscoveryDecoder(service transport.Service) *RefDiscoveryDecoder {
	return &RefDiscoveryDecoder{service: service, feeder: newLineFeeder(), first: true}
}

func (d *RefDiscoveryDecoder) Advance(n int) { d.feeder.advance(n) }

func (d *RefDiscoveryDecoder) Seed(b []byte)        { d.feeder.seed(b) }
func (d *RefDiscoveryDecoder) TakeResidual() []byte { return d.feeder.takeResidual() }

func (d *RefDiscoveryDecoder) Step() DecodeOutcome {
	for {
		if d.state == refStateDone {
			return DecodeOutcome{Kind: DecodeOk, Value: d.result}
		}
		line, ok, err := d.feeder.nextLine()
		if err != nil {
			return d.errorOutcome("malformed pkt-line in reference advertisement", err)
		}
		if !ok {
			return d.feeder.readOutcome()
		}
		if out, done := d.consume(line); done {
			return out
		}
	}
}

func (d *RefDiscoveryDecoder) errorOutcome(msg string, cause error) DecodeOutcome {
	diag := d.feeder.pending
	e := transport.NewSmartError(fmt.Sprintf("%s: %v", msg, cause), diag)
	return DecodeOutcome{Kind: DecodeError, Err: e}
}

// consume advances the state machine by one line. It returns a non-zero
// outcome (done=true) only for a terminal Error; Ok is reported once via
// the refStateDone branch in Step so that the loop above handles it
// uniformly.
func (d *RefDiscoveryDecoder) consume(line pktline.Line) (DecodeOutcome, bool) {
	switch d.state {
	case refStateServiceLine:
		if line.Kind != pktline.Data {
			return d.errorOutcome("expected service announcement", fmt.Errorf("got kind %d", line.Kind)), true
		}
		want := "# service=" + string(d.service) + "\n"
		if string(line.Payload) != want {
			return d.errorOutcome("unexpected service announcement", fmt.Errorf("got %q", line.Payload)), true
		}
		d.state = refStateServiceFlush
		return DecodeOutcome{}, false
	case refStateServiceFlush:
		if line.Kind != pktline.Flush {
			return d.errorOutcome("expected flush after service announcement", fmt.Errorf("got kind %d", line.Kind)), true
		}
		d.state = refStateRefs
		return DecodeOutcome{}, false
	case refStateRefs:
		if line.Kind == pktline.Flush {
			d.state = refStateDone
			return DecodeOutcome{}, false
		}
		if line.Kind != pktline.Data {
			return d.errorOutcome("unexpected non-data line in ref list", fmt.Errorf("kind %d", line.Kind)), true
		}
		if err := d.consumeRefLine(line.Payload); err != nil {
			return d.errorOutcome("malformed ref line", err), true
		}
		return DecodeOutcome{}, false
	}
	return DecodeOutcome{}, false
}

func (d *RefDiscoveryDecoder) consumeRefLine(payload []byte) error {
	payload = bytes.TrimSuffix(payload, []byte("\n"))
	if d.first {
		d.first = false
		if i := bytes.IndexByte(payload, 0); i >= 0 {
			caps := parseCapabilityLine(string(payload[i+1:]))
			d.result.Capabilities = caps
			payload = payload[:i]
		}
	}
	if len(payload) == 0 {
		return nil
	}
	parts := strings.SplitN(string(payload), " ", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected \"<oid> <name>\", got %q", payload)
	}
	if parts[1] == "capabilities^{}" {
		// Empty-repository advertisement: a single synthetic ref line
		// carrying only capabilities, no real ref.
		return nil
	}
	id, err := objectid.Parse(parts[0])
	if err != nil {
		return err
	}
	name := parts[1]
	peeled := false
	if strings.HasSuffix(name, "^{}") {
		name = strings.TrimSuffix(name, "^{}")
		peeled = true
	}
	d.result.Refs = append(d.result.Refs, RefEntry{ID: id, Name: name, Peeled: peeled})
	return nil
}

func parseCapabilityLine(s string) transport.Set {
	if s == "" {
		return nil
	}
	var set transport.Set
	for _, tok := range strings.Fields(s) {
		if i := strings.IndexByte(tok, '='); i >= 0 {
			set = append(set, transport.CapWithValue(tok[:i], tok[i+1:]))
		} else {
			set = append(set, transport.Cap(tok))
		}
	}
	return set
}
