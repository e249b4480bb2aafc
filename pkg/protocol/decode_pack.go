package protocol

import (
	"fmt"

	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

// ChunkKind tags one piece of a demultiplexed PACK stream.
type ChunkKind int

const (
	ChunkRaw ChunkKind = iota // pack data, destined for the store
	ChunkOut                  // progress text, destined for the stdout sink
	ChunkErr                  // server error text, destined for the stderr sink
	ChunkEnd                  // stream terminator
)

// PackChunk is one value produced by PackDecoder.Step — the Side-band
// Demultiplexer's output (§4.5). Data is always a fresh copy, never an
// alias of an HTTP body buffer, since that buffer may be reused by the
// client as soon as the next chunk is read.
type PackChunk struct {
	Kind ChunkKind
	Data []byte
}

// PackDecoder implements Decoder for the message the spec calls
// PACK(side_band_mode). Under SideBandNone the body is raw pack bytes
// terminated by end-of-body. Under SideBandBasic/SideBand64k each
// pkt-line payload begins with a 1-byte channel tag (1=pack, 2=progress,
// 3=error) and the stream is terminated by a flush-pkt.
type PackDecoder struct {
	mode    transport.SideBandMode
	feeder  *lineFeeder
	raw     []byte
	pending *PackChunk
	ended   bool
}

func NewPackDecoder(mode transport.SideBandMode) *PackDecoder {
	d := &PackDecoder{mode: mode}
	if mode == transport.SideBandNone {
		d.raw = make([]byte, 64*1024)
	} else {
		d.feeder = newLineFeeder()
	}
	return d
}

// Seed hands the decoder bytes a previous decoder over the same
// response body read but did not need — the Acks/NegociationResult
// decodes that precede PACK in §4.7's Ready/Done branches.
func (d *PackDecoder) Seed(b []byte) {
	if len(b) == 0 {
		return
	}
	if d.mode == transport.SideBandNone {
		data := append([]byte(nil), b...)
		d.pending = &PackChunk{Kind: ChunkRaw, Data: data}
		return
	}
	d.feeder.seed(b)
}

func (d *PackDecoder) Advance(n int) {
	if d.mode == transport.SideBandNone {
		if n > 0 {
			data := append([]byte(nil), d.raw[:n]...)
			d.pending = &PackChunk{Kind: ChunkRaw, Data: data}
		}
		return
	}
	d.feeder.advance(n)
}

func (d *PackDecoder) Step() DecodeOutcome {
	if d.ended {
		return DecodeOutcome{Kind: DecodeOk, Value: PackChunk{Kind: ChunkEnd}}
	}
	if d.mode == transport.SideBandNone {
		if d.pending != nil {
			c := *d.pending
			d.pending = nil
			return DecodeOutcome{Kind: DecodeOk, Value: c}
		}
		return DecodeOutcome{Kind: DecodeRead, Buf: d.raw, Off: 0, Len: len(d.raw)}
	}
	return d.stepSideBand()
}

func (d *PackDecoder) stepSideBand() DecodeOutcome {
	line, ok, err := d.feeder.nextLine()
	if err != nil {
		return errOutcome("malformed pkt-line in PACK stream", d.feeder.pending, err)
	}
	if !ok {
		return d.feeder.readOutcome()
	}
	if line.Kind == pktline.Flush {
		d.ended = true
		return DecodeOutcome{Kind: DecodeOk, Value: PackChunk{Kind: ChunkEnd}}
	}
	if line.Kind != pktline.Data || len(line.Payload) == 0 {
		return errOutcome("unexpected line in side-band stream", nil, fmt.Errorf("kind %d len %d", line.Kind, len(line.Payload)))
	}
	channel := line.Payload[0]
	data := append([]byte(nil), line.Payload[1:]...)
	var kind ChunkKind
	switch channel {
	case 1:
		kind = ChunkRaw
	case 2:
		kind = ChunkOut
	case 3:
		kind = ChunkErr
	default:
		return errOutcome("unknown side-band channel", line.Payload[:1], fmt.Errorf("channel %d", channel))
	}
	return DecodeOutcome{Kind: DecodeOk, Value: PackChunk{Kind: kind, Data: data}}
}

// End reports body-end as a legitimate stream terminator when no
// side-band framing is in effect (a raw pack simply ends when the HTTP
// body does); under side-band modes, the flush-pkt is the only valid
// terminator, so ending early is a genuine error.
func (d *PackDecoder) End() DecodeOutcome {
	if d.mode == transport.SideBandNone {
		d.ended = true
		return DecodeOutcome{Kind: DecodeOk, Value: PackChunk{Kind: ChunkEnd}}
	}
	return errOutcome("PACK stream ended before flush-pkt", nil, nil)
}
