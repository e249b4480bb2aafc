package protocol

import (
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

// DecodeKind tags a Decoder.Step outcome.
type DecodeKind int

const (
	DecodeRead DecodeKind = iota
	DecodeOk
	DecodeError
)

// DecodeOutcome is the suspending-state outcome returned by Decoder.Step.
// A Read outcome asks the driver (the Body Bridge consumer) to fill
// Buf[Off:Off+Len] with up to Len bytes from the response body and then
// call Advance with however many it actually wrote — mirroring the
// source's Read{buf,off,len,continue(n)} shape rather than hiding it
// behind a blocking call.
type DecodeOutcome struct {
	Kind  DecodeKind
	Buf   []byte
	Off   int
	Len   int
	Value interface{}
	Err   *transport.Error
}

// Decoder is the suspending state machine driven by the Body Bridge
// consumer. Step never blocks; Advance reports how many bytes of the
// last Read request were actually filled.
type Decoder interface {
	Step() DecodeOutcome
	Advance(n int)
}

// Seeder is implemented by decoders that read through a lineFeeder; it
// lets a driver chaining several message decoders over one HTTP
// response body hand a decoder bytes a previous decoder in the chain
// already read off the wire but did not need.
type Seeder interface {
	Seed(b []byte)
}

// Residual is the other half of Seeder: it lets the driver recover
// bytes this decoder read but did not need, to hand to whatever
// decoder reads the next message on the same body.
type Residual interface {
	TakeResidual() []byte
}

// EOFAware is implemented by decoders for which a body ending while
// still in a Read state is not automatically UnexpectedEndOfInput (the
// negotiation-round Acks message, and the PACK stream, both terminate
// this way under some capability modes). The Body Bridge consumer calls
// End instead of raising the default error when the body is exhausted
// and the decoder implements this interface.
type EOFAware interface {
	End() DecodeOutcome
}

// EncodeKind tags an Encoder.Step outcome.
type EncodeKind int

const (
	EncodeWrite EncodeKind = iota
	EncodeOk
	EncodeError
)

// EncodeOutcome is the suspending-state outcome returned by
// Encoder.Step. A Write outcome asks the driver to consume up to Len
// bytes from Buf[Off:Off+Len] (writing them to the outgoing HTTP body)
// and call Advance with however many it actually wrote.
type EncodeOutcome struct {
	Kind EncodeKind
	Buf  []byte
	Off  int
	Len  int
	Err  *transport.Error
}

// Encoder is the suspending state machine driven by the Body Bridge
// producer.
type Encoder interface {
	Step() EncodeOutcome
	Advance(n int)
}

// lineFeeder accumulates bytes fed via Advance and yields complete
// pkt-lines to an embedding Decoder, retaining any unconsumed suffix
// across Step calls exactly as §4.3 requires of the consumer.
type lineFeeder struct {
	pending []byte
	scratch []byte
}

func newLineFeeder() *lineFeeder {
	return &lineFeeder{scratch: make([]byte, 64*1024)}
}

// readOutcome builds the Read outcome asking for more bytes.
func (f *lineFeeder) readOutcome() DecodeOutcome {
	return DecodeOutcome{Kind: DecodeRead, Buf: f.scratch, Off: 0, Len: len(f.scratch)}
}

// seed primes pending with bytes a previous decoder over the same body
// read past its own message boundary. Used to chain several message
// decoders over one HTTP response body without losing bytes.
func (f *lineFeeder) seed(b []byte) {
	f.pending = append(f.pending, b...)
}

// takeResidual removes and returns whatever this feeder holds that the
// decoder it serves never consumed — the bytes belonging to whatever
// message follows on the same body.
func (f *lineFeeder) takeResidual() []byte {
	b := f.pending
	f.pending = nil
	return b
}

// advance folds n freshly-read bytes (from the last readOutcome's Buf)
// into the pending buffer.
func (f *lineFeeder) advance(n int) {
	f.pending = append(f.pending, f.scratch[:n]...)
}

// nextLine pops the next complete line out of pending. When pending
// does not yet hold a full line, ok is false and the caller should
// return a Read outcome to request more bytes.
func (f *lineFeeder) nextLine() (line pktline.Line, ok bool, err error) {
	line, need, err := pktline.TryParseLine(f.pending)
	if err != nil {
		return pktline.Line{}, false, err
	}
	if need > 0 {
		return pktline.Line{}, false, nil
	}
	// Copy the payload out: pending is about to be rotated, and callers
	// hold onto the line's payload across subsequent Step calls (e.g.
	// while building up a RefAdvertisement).
	if line.Payload != nil {
		line.Payload = append([]byte(nil), line.Payload...)
	}
	f.pending = f.pending[line.Consumed:]
	return line, true, nil
}

func (f *lineFeeder) hasPending() bool {
	return len(f.pending) > 0
}
