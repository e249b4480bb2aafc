package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

func drainEncoder(t *testing.T, e Encoder) []byte {
	t.Helper()
	var out []byte
	for {
		outcome := e.Step()
		switch outcome.Kind {
		case EncodeOk:
			return out
		case EncodeError:
			t.Fatalf("encoder error: %v", outcome.Err)
		case EncodeWrite:
			out = append(out, outcome.Buf[outcome.Off:outcome.Off+outcome.Len]...)
			e.Advance(outcome.Len)
		}
	}
}

func TestUploadRequestEncoderFlushRoundTrip(t *testing.T) {
	w1, _ := objectid.Parse("1111111111111111111111111111111111111111")
	h1, _ := objectid.Parse("2222222222222222222222222222222222222222")
	req := WantRequest{
		Wants:        []objectid.ID{w1},
		Have:         []objectid.ID{h1},
		Capabilities: transport.Set{transport.Cap(transport.CapOfsDelta)},
	}
	wire := drainEncoder(t, NewUploadRequestEncoder(req, MarkerFlush))

	sc := pktline.NewScanner(strings.NewReader(string(wire)))
	line, kind, err := sc.Scan()
	require.NoError(t, err)
	assert.Equal(t, pktline.Data, kind)
	assert.Equal(t, "want "+w1.String()+" ofs-delta\n", string(line))

	_, kind, err = sc.Scan()
	require.NoError(t, err)
	assert.Equal(t, pktline.Flush, kind)

	line, kind, err = sc.Scan()
	require.NoError(t, err)
	assert.Equal(t, "have "+h1.String()+"\n", string(line))

	_, kind, err = sc.Scan()
	require.NoError(t, err)
	assert.Equal(t, pktline.Flush, kind)
}

func TestUploadRequestEncoderDoneMarker(t *testing.T) {
	w1, _ := objectid.Parse("1111111111111111111111111111111111111111")
	req := WantRequest{Wants: []objectid.ID{w1}}
	wire := drainEncoder(t, NewUploadRequestEncoder(req, MarkerDone))
	assert.True(t, strings.HasSuffix(string(wire), "0009done\n"))
}
