// Package pktline implements git's pkt-line framing: a 4-hex-digit length
// prefix followed by that many bytes of payload, plus the two zero-length
// sentinel lines (flush-pkt "0000" and delim-pkt "0001") used to bound
// negotiation rounds and capability lists.
package pktline

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadLen is the largest payload a single pkt-line may carry (the
// four length digits account for themselves, leaving 0xFFFF-4 bytes).
const MaxPayloadLen = 0xFFFF - 4

// ErrPayloadTooLong is returned by WriteLine when the payload exceeds
// MaxPayloadLen.
var ErrPayloadTooLong = errors.New("pktline: payload exceeds max length")

// WriteLine writes payload as a single pkt-line (length prefix + bytes,
// no implicit newline — callers that want a LF-terminated text line must
// include it in payload, matching git's own convention for ref and
// capability lines).
func WriteLine(w io.Writer, payload []byte) error {
	n := len(payload)
	if n > MaxPayloadLen {
		return ErrPayloadTooLong
	}
	hdr := []byte(fmt.Sprintf("%04x", n+4))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// WriteString is a convenience wrapper for text payloads.
func WriteString(w io.Writer, s string) error {
	return WriteLine(w, []byte(s))
}

// WriteFlush writes the flush-pkt "0000", which terminates a list of
// lines (e.g. the ref advertisement or a negotiation round).
func WriteFlush(w io.Writer) error {
	_, err := w.Write([]byte("0000"))
	return err
}

// WriteDelim writes the delim-pkt "0001", used by protocol v2 to
// separate sections within one response; the core only needs to emit and
// recognize it, never interpret it.
func WriteDelim(w io.Writer) error {
	_, err := w.Write([]byte("0001"))
	return err
}

// Kind tags the line returned by a Scanner step.
type Kind int

const (
	Data Kind = iota
	Flush
	Delim
)

// Scanner reads a sequence of pkt-lines from an underlying reader,
// stopping at (but consuming) flush-pkt boundaries. It is deliberately
// not an io.Reader: callers drive it one line at a time so that a single
// Scanner can be reused across several logical messages within one
// response body, which is exactly what the Decoder state machines in
// pkg/protocol require.
type Scanner struct {
	r   *bufio.Reader
	buf []byte
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, MaxPayloadLen+4)}
}

// Scan reads the next pkt-line. The returned slice is only valid until
// the next call to Scan.
func (s *Scanner) Scan() (line []byte, kind Kind, err error) {
	hdr := make([]byte, 4)
	if _, err = io.ReadFull(s.r, hdr); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return
	}
	n, err := parseLength(hdr)
	if err != nil {
		return nil, Data, err
	}
	switch n {
	case 0:
		return nil, Flush, nil
	case 1:
		return nil, Delim, nil
	}
	if n < 4 {
		return nil, Data, fmt.Errorf("pktline: invalid length %d", n)
	}
	need := n - 4
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]
	if _, err = io.ReadFull(s.r, s.buf); err != nil {
		return nil, Data, err
	}
	return s.buf, Data, nil
}

// Line is one parsed pkt-line, as returned by TryParseLine.
type Line struct {
	Kind Kind
	// Payload aliases the input slice; callers that retain it past the
	// next TryParseLine call on the same buffer must copy it.
	Payload  []byte
	Consumed int
}

// TryParseLine parses one pkt-line from the front of data without
// blocking. If data does not yet hold a complete line, ok is false and
// need reports the minimum number of additional bytes the caller should
// append before trying again — this is the resumable, byte-slice-based
// counterpart to Scanner, used by state machines that must suspend
// between partial reads rather than block on an io.Reader.
func TryParseLine(data []byte) (line Line, need int, err error) {
	if len(data) < 4 {
		return Line{}, 4 - len(data), nil
	}
	n, err := parseLength(data[:4])
	if err != nil {
		return Line{}, 0, err
	}
	switch n {
	case 0:
		return Line{Kind: Flush, Consumed: 4}, 0, nil
	case 1:
		return Line{Kind: Delim, Consumed: 4}, 0, nil
	}
	if n < 4 {
		return Line{}, 0, fmt.Errorf("pktline: invalid length %d", n)
	}
	if len(data) < n {
		return Line{}, n - len(data), nil
	}
	return Line{Kind: Data, Payload: data[4:n], Consumed: n}, 0, nil
}

func parseLength(hdr []byte) (int, error) {
	b := make([]byte, 2)
	if _, err := hex.Decode(b, hdr); err != nil {
		return 0, fmt.Errorf("pktline: malformed length %q: %w", hdr, err)
	}
	return int(b[0])<<8 | int(b[1]), nil
}
