// Package protocol implements the Smart HTTP message grammar on top of
// pkg/pktline: the Encoder and Decoder suspending state machines named
// by the core design, plus the concrete message types they produce and
// consume. Every state machine here exposes the same Write/Read/Ok/Error
// outcome shape rather than hiding suspension behind a goroutine, so
// that a single Decoder can be driven across several HTTP response
// bodies by the Body Bridge.
package protocol

import (
	"github.com/mhauser/pktwire/pkg/objectid"
	"github.com/mhauser/pktwire/pkg/transport"
)

// RefEntry is one advertised reference.
type RefEntry struct {
	ID     objectid.ID
	Name   string
	Peeled bool
}

// RefAdvertisement is the parsed result of reference discovery. The
// capability set is always present, even when Refs is empty (an empty
// repository still advertises capabilities).
type RefAdvertisement struct {
	Refs         []RefEntry
	Capabilities transport.Set
	Shallow      []objectid.ID
}

// AckStatus qualifies one ack line under multi-ack/multi-ack-detailed.
type AckStatus int

const (
	AckPlain AckStatus = iota
	AckContinue
	AckCommon
	AckReady
)

type AckEntry struct {
	ID     objectid.ID
	Status AckStatus
}

// Acks is the parsed result of a negotiation round response: zero or
// more ack lines (possibly none, meaning NAK), plus any shallow/unshallow
// lines the server interleaved — read and recorded, never applied to the
// store.
type Acks struct {
	Entries   []AckEntry
	Shallow   []objectid.ID
	Unshallow []objectid.ID
	NAK       bool
}

// NegotiationResult is the final ack/NAK read right before the PACK
// stream begins.
type NegotiationResult struct {
	Acked bool
	ID    objectid.ID
}

// CommandKind tags a push Command.
type CommandKind int

const (
	CommandCreate CommandKind = iota
	CommandDelete
	CommandUpdate
)

// Command is one push ref update, in the shape the encoder writes as a
// single HttpUpdateRequest line: "old new ref".
type Command struct {
	Kind CommandKind
	Old  objectid.ID
	New  objectid.ID
	Ref  string
}

// WantRequest is the input to the HttpUploadRequest encoder: one
// negotiation POST body.
type WantRequest struct {
	Wants        []objectid.ID
	Have         []objectid.ID
	Shallow      []objectid.ID
	Deepen       int // 0 means unset
	Capabilities transport.Set
	Done         bool // marker: Done terminates negotiation, Flush continues it
}

// CommandResult carries the per-ref outcome reported by report-status.
type CommandResult struct {
	Ref   string
	Error string // empty means ok
}

// ReportStatus is the parsed result of a push response.
type ReportStatus struct {
	UnpackError string // empty means "unpack ok"
	Commands    []CommandResult
}
