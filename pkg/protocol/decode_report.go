package protocol

import (
	"fmt"
	"strings"

	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

// ReportStatusDecoder implements Decoder for the message the spec calls
// HttpReportStatus(refs, side_band_mode): the post-push response. When
// side-band framing is in effect the report-status lines travel on
// channel 1 of the same multiplexing PACK uses; progress/error channels
// are drained and discarded, since push defines no sinks for them.
type ReportStatusDecoder struct {
	mode       transport.SideBandMode
	outer      *lineFeeder // demultiplexes side-band framing, if any
	inner      []byte      // channel-1 bytes reassembled so far (or raw body, if no side-band)
	rawScratch []byte      // read destination when there is no side-band framing
	result     ReportStatus
	state      reportState
}

type reportState int

const (
	reportStateUnpack reportState = iota
	reportStateCommands
	reportStateDone
)

func NewReportStatusDecoder(mode transport.SideBandMode) *ReportStatusDecoder {
	d := &ReportStatusDecoder{mode: mode}
	if mode != transport.SideBandNone {
		d.outer = newLineFeeder()
	}
	return d
}

func (d *ReportStatusDecoder) Advance(n int) {
	if d.mode == transport.SideBandNone {
		d.inner = append(d.inner, d.rawScratch[:n]...)
		return
	}
	d.outer.advance(n)
}

func (d *ReportStatusDecoder) Step() DecodeOutcome {
	for {
		if d.state == reportStateDone {
			return DecodeOutcome{Kind: DecodeOk, Value: d.result}
		}
		line, ok, err := d.nextInnerLine()
		if err != nil {
			return errOutcome("malformed report-status stream", nil, err)
		}
		if !ok {
			return d.needMore()
		}
		if out, terminal := d.consume(line); terminal {
			return out
		}
	}
}

func (d *ReportStatusDecoder) needMore() DecodeOutcome {
	if d.mode == transport.SideBandNone {
		if d.rawScratch == nil {
			d.rawScratch = make([]byte, 64*1024)
		}
		return DecodeOutcome{Kind: DecodeRead, Buf: d.rawScratch, Off: 0, Len: len(d.rawScratch)}
	}
	return d.outer.readOutcome()
}

// nextInnerLine pulls the next report-status pkt-line, first draining
// as much side-band framing as necessary to grow the channel-1 buffer.
func (d *ReportStatusDecoder) nextInnerLine() (pktline.Line, bool, error) {
	for {
		line, need, err := pktline.TryParseLine(d.inner)
		if err != nil {
			return pktline.Line{}, false, err
		}
		if need == 0 {
			payload := append([]byte(nil), line.Payload...)
			line.Payload = payload
			d.inner = d.inner[line.Consumed:]
			return line, true, nil
		}
		if d.mode == transport.SideBandNone {
			return pktline.Line{}, false, nil
		}
		grew, err := d.demuxOne()
		if err != nil {
			return pktline.Line{}, false, err
		}
		if !grew {
			return pktline.Line{}, false, nil
		}
	}
}

// demuxOne consumes one outer (side-band) pkt-line, appending channel-1
// bytes to d.inner and discarding channel 2/3. Returns false when the
// outer feeder needs more bytes.
func (d *ReportStatusDecoder) demuxOne() (bool, error) {
	line, ok, err := d.outer.nextLine()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if line.Kind == pktline.Flush {
		return true, nil // outer flush; inner parse will see the body end via needMore
	}
	if line.Kind != pktline.Data || len(line.Payload) == 0 {
		return false, fmt.Errorf("unexpected line in side-band report-status stream")
	}
	if line.Payload[0] == 1 {
		d.inner = append(d.inner, line.Payload[1:]...)
	}
	return true, nil
}

func (d *ReportStatusDecoder) consume(line pktline.Line) (DecodeOutcome, bool) {
	if line.Kind == pktline.Flush {
		d.state = reportStateDone
		return DecodeOutcome{}, false
	}
	s := strings.TrimSuffix(string(line.Payload), "\n")
	switch d.state {
	case reportStateUnpack:
		if !strings.HasPrefix(s, "unpack ") {
			return errOutcome("expected unpack status line", []byte(s), nil), true
		}
		status := strings.TrimPrefix(s, "unpack ")
		if status != "ok" {
			d.result.UnpackError = status
		}
		d.state = reportStateCommands
		return DecodeOutcome{}, false
	case reportStateCommands:
		fields := strings.SplitN(s, " ", 3)
		if len(fields) < 2 {
			return errOutcome("malformed command status line", []byte(s), nil), true
		}
		cr := CommandResult{Ref: fields[1]}
		switch fields[0] {
		case "ok":
		case "ng":
			if len(fields) == 3 {
				cr.Error = fields[2]
			} else {
				cr.Error = "unknown error"
			}
		default:
			return errOutcome("unknown command status", []byte(s), nil), true
		}
		d.result.Commands = append(d.result.Commands, cr)
		return DecodeOutcome{}, false
	}
	return DecodeOutcome{}, false
}
