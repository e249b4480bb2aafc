package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/pktline"
	"github.com/mhauser/pktwire/pkg/transport"
)

func TestAcksSingleModeStopsAtOneLine(t *testing.T) {
	id, _ := objectid.Parse("1111111111111111111111111111111111111111")
	buf := &bytes.Buffer{}
	require.NoError(t, pktline.WriteString(buf, "ACK "+id.String()+"\n"))
	v := driveDecoder(t, NewAcksDecoder(transport.AckSingle), buf.Bytes(), 0)
	acks := v.(Acks)
	require.Len(t, acks.Entries, 1)
	assert.Equal(t, id, acks.Entries[0].ID)
}

func TestAcksMultiDetailedEndsOnReady(t *testing.T) {
	h1, _ := objectid.Parse("1111111111111111111111111111111111111111")
	h2, _ := objectid.Parse("2222222222222222222222222222222222222222")
	buf := &bytes.Buffer{}
	require.NoError(t, pktline.WriteString(buf, "ACK "+h1.String()+" common\n"))
	require.NoError(t, pktline.WriteString(buf, "ACK "+h2.String()+" ready\n"))
	v := driveDecoder(t, NewAcksDecoder(transport.AckMultiDetailed), buf.Bytes(), 5)
	acks := v.(Acks)
	require.Len(t, acks.Entries, 2)
	assert.Equal(t, AckCommon, acks.Entries[0].Status)
	assert.Equal(t, AckReady, acks.Entries[1].Status)
}

func TestAcksMultiEndsOnBodyEOF(t *testing.T) {
	h1, _ := objectid.Parse("1111111111111111111111111111111111111111")
	buf := &bytes.Buffer{}
	require.NoError(t, pktline.WriteString(buf, "ACK "+h1.String()+" continue\n"))
	v := driveDecoder(t, NewAcksDecoder(transport.AckMulti), buf.Bytes(), 0)
	acks := v.(Acks)
	require.Len(t, acks.Entries, 1)
	assert.Equal(t, AckContinue, acks.Entries[0].Status)
}

func TestAcksShallowLinesRecorded(t *testing.T) {
	h1, _ := objectid.Parse("1111111111111111111111111111111111111111")
	buf := &bytes.Buffer{}
	require.NoError(t, pktline.WriteString(buf, "shallow "+h1.String()+"\n"))
	require.NoError(t, pktline.WriteString(buf, "NAK\n"))
	v := driveDecoder(t, NewAcksDecoder(transport.AckSingle), buf.Bytes(), 0)
	acks := v.(Acks)
	require.Len(t, acks.Shallow, 1)
	assert.Equal(t, h1, acks.Shallow[0])
	assert.True(t, acks.NAK)
}
