package transport

// Capability is a single advertised or requested protocol capability.
// Equality is structural: two Capability values with the same Name and
// Value are equal, and — per the spec's design note — two different
// Agent strings are NOT equal, so Agent capabilities typically drop out
// of an intersection entirely (the client's own agent string is sent via
// the User-Agent header, never negotiated).
type Capability struct {
	Name  string
	Value string // empty for valueless capabilities like "thin-pack"
}

const (
	CapMultiAck         = "multi-ack"
	CapMultiAckDetailed = "multi-ack-detailed"
	CapThinPack         = "thin-pack"
	CapSideBand         = "side-band"
	CapSideBand64k      = "side-band-64k"
	CapOfsDelta         = "ofs-delta"
	CapAgent            = "agent"
	CapReportStatus     = "report-status"
	CapNoDone           = "no-done"
)

func Cap(name string) Capability              { return Capability{Name: name} }
func CapWithValue(name, v string) Capability { return Capability{Name: name, Value: v} }

// Set is an unordered collection of capabilities, compared by structural
// equality as the spec requires.
type Set []Capability

func (s Set) Has(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (s Set) Get(name string) (Capability, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Capability{}, false
}

// Intersect returns { c in s : c in other } using structural equality,
// preserving s's ordering.
func (s Set) Intersect(other Set) Set {
	var common Set
	for _, c := range s {
		for _, o := range other {
			if c == o {
				common = append(common, c)
				break
			}
		}
	}
	return common
}

// SideBandMode is the negotiated multiplexing mode for the PACK phase.
type SideBandMode int

const (
	SideBandNone SideBandMode = iota
	SideBandBasic
	SideBand64k
)

// AckMode is the negotiated acknowledgement style for the have/want
// negotiation loop.
type AckMode int

const (
	AckSingle AckMode = iota
	AckMulti
	AckMultiDetailed
)

// DeriveSideBandMode picks side-band-64k over side-band over none, per
// the spec's precedence table, from the capabilities common to client and
// server.
func DeriveSideBandMode(common Set) SideBandMode {
	if common.Has(CapSideBand64k) {
		return SideBand64k
	}
	if common.Has(CapSideBand) {
		return SideBandBasic
	}
	return SideBandNone
}

// DeriveAckMode picks multi-ack-detailed over multi-ack over plain ack,
// per the spec's precedence table, from the capabilities common to
// client and server.
func DeriveAckMode(common Set) AckMode {
	if common.Has(CapMultiAckDetailed) {
		return AckMultiDetailed
	}
	if common.Has(CapMultiAck) {
		return AckMulti
	}
	return AckSingle
}

// Negotiate is the Capability Negotiator (§4.4): it intersects client and
// server capabilities and derives both modes in one call.
func Negotiate(client, server Set) (common Set, sideBand SideBandMode, ack AckMode) {
	common = client.Intersect(server)
	sideBand = DeriveSideBandMode(common)
	ack = DeriveAckMode(common)
	return
}
