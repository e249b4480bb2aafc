package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntersect(t *testing.T) {
	client := Set{Cap(CapMultiAckDetailed), Cap(CapSideBand64k), Cap(CapThinPack), CapWithValue(CapAgent, "pktwire/1.0")}
	server := Set{Cap(CapMultiAckDetailed), Cap(CapSideBand64k), Cap(CapOfsDelta), CapWithValue(CapAgent, "git/2.40")}

	common := client.Intersect(server)
	assert.True(t, common.Has(CapMultiAckDetailed))
	assert.True(t, common.Has(CapSideBand64k))
	assert.False(t, common.Has(CapThinPack))
	assert.False(t, common.Has(CapOfsDelta))
	// Different agent strings never compare equal, so agent drops out.
	assert.False(t, common.Has(CapAgent))
}

func TestDeriveSideBandModePrecedence(t *testing.T) {
	assert.Equal(t, SideBand64k, DeriveSideBandMode(Set{Cap(CapSideBand64k), Cap(CapSideBand)}))
	assert.Equal(t, SideBandBasic, DeriveSideBandMode(Set{Cap(CapSideBand)}))
	assert.Equal(t, SideBandNone, DeriveSideBandMode(Set{}))
}

func TestDeriveAckModePrecedence(t *testing.T) {
	assert.Equal(t, AckMultiDetailed, DeriveAckMode(Set{Cap(CapMultiAckDetailed), Cap(CapMultiAck)}))
	assert.Equal(t, AckMulti, DeriveAckMode(Set{Cap(CapMultiAck)}))
	assert.Equal(t, AckSingle, DeriveAckMode(Set{}))
}

func TestNegotiate(t *testing.T) {
	client := Set{Cap(CapMultiAck), Cap(CapSideBand)}
	server := Set{Cap(CapMultiAck), Cap(CapSideBand), Cap(CapNoDone)}
	common, sb, ack := Negotiate(client, server)
	assert.Len(t, common, 2)
	assert.Equal(t, SideBandBasic, sb)
	assert.Equal(t, AckMulti, ack)
}
