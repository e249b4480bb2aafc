package http

import (
	"io"

	"github.com/mhauser/pktwire/pkg/protocol"
	"github.com/mhauser/pktwire/pkg/transport"
)

// Producer is the Body Bridge producer (§4.3): an io.Reader that drives
// an Encoder state machine, reusable directly as an http.Request body.
// Once the encoder reaches Ok, Producer delegates to an optional final
// reader — the mechanism the Push Driver uses to concatenate the
// encoded update request with the pack generator's byte stream without
// buffering either in memory.
type Producer struct {
	enc     protocol.Encoder
	final   io.Reader
	encDone bool
}

func NewProducer(enc protocol.Encoder, final io.Reader) *Producer {
	return &Producer{enc: enc, final: final}
}

func (p *Producer) Read(dst []byte) (int, error) {
	if !p.encDone {
		out := p.enc.Step()
		switch out.Kind {
		case protocol.EncodeWrite:
			n := copy(dst, out.Buf[out.Off:out.Off+out.Len])
			p.enc.Advance(n)
			if n > 0 {
				return n, nil
			}
		case protocol.EncodeError:
			return 0, out.Err
		case protocol.EncodeOk:
			p.encDone = true
		}
	}
	if p.final == nil {
		return 0, io.EOF
	}
	return p.final.Read(dst)
}

// newUnexpectedEndOfInput builds the error Consume returns when the response body
// ends while the decoder still wants more bytes and the decoder is not
// EOFAware — the spec's UnexpectedEndOfInput, mapped into the Smart
// category.
func newUnexpectedEndOfInput(diag []byte) *transport.Error {
	return transport.NewSmartError("unexpected end of input", diag)
}

// Consume is the Body Bridge consumer (§4.3): it drives a Decoder to
// completion against body, copying min(decoder_need, available) bytes
// per step and relying on the decoder itself — via lineFeeder — to
// retain any unconsumed suffix across reads. A body that ends while the
// decoder still wants bytes is UnexpectedEndOfInput unless the decoder
// implements EOFAware and says otherwise.
func Consume(d protocol.Decoder, body io.Reader) (interface{}, error) {
	for {
		out := d.Step()
		switch out.Kind {
		case protocol.DecodeOk:
			return out.Value, nil
		case protocol.DecodeError:
			return nil, out.Err
		case protocol.DecodeRead:
			n, err := body.Read(out.Buf[out.Off : out.Off+out.Len])
			if n > 0 {
				d.Advance(n)
				if err == nil || err == io.EOF {
					continue
				}
			}
			if err == io.EOF || (err == nil && n == 0) {
				if eofd, ok := d.(protocol.EOFAware); ok {
					end := eofd.End()
					if end.Kind == protocol.DecodeError {
						return nil, end.Err
					}
					return end.Value, nil
				}
				return nil, newUnexpectedEndOfInput(nil)
			}
			if err != nil {
				return nil, err
			}
		}
	}
}
