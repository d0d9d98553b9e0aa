// Package decoder implements per-protocol header decoding.
//
// Each decoder extracts exactly its own header from the front of a buffer and
// reports how many bytes it consumed, so the caller can hand the remainder to
// the next layer. Decoders are stateless and safe for concurrent use.
package decoder

import (
	"fmt"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/schema"
)

// IP protocol numbers used for transport dispatch.
const (
	IPProtoICMP = 1
	IPProtoTCP  = 6
	IPProtoUDP  = 17
)

// Header is the ephemeral result of decoding one protocol header. It lives
// for the duration of one encode pass and is never shared.
type Header struct {
	Proto schema.ProtocolID

	// Raw holds exactly the header bytes covered by the protocol's schema
	// columns: the fixed part plus any option bytes actually present. The
	// encoder reads bits straight out of this slice, so bit i of Raw is
	// schema column i within the protocol's range.
	Raw []byte

	// Fields maps field names to decoded integer values for the fields the
	// orchestrator needs (dispatch, diagnostics). Not every bit column has
	// an entry here; Raw is authoritative for the encoding.
	Fields map[string]uint64
}

// Decoder is the capability set shared by all protocol decoders.
type Decoder interface {
	// Proto identifies the protocol this decoder handles.
	Proto() schema.ProtocolID

	// CanParse reports whether the buffer plausibly starts with this
	// protocol's header. It is a cheap recognition check, not a validation;
	// Decode performs the real length/offset checks.
	CanParse(data []byte) bool

	// Decode extracts the header from the front of data and returns it with
	// the number of bytes consumed. Self-inconsistent length or offset
	// fields yield core.ErrMalformedHeader.
	Decode(data []byte) (Header, int, error)
}

// Table is the explicit dispatch table for the decode chain: one network
// layer decoder plus transport decoders keyed by IPv4 protocol number.
// The set is closed; adding a protocol means adding a table entry, not a new
// dispatch mechanism.
type Table struct {
	network   Decoder
	transport map[uint8]Decoder
}

// NewTable builds the dispatch table for the enabled protocol set. Transport
// decoders are reachable only when their network-layer protocol number can
// select them.
func NewTable(enabled []schema.ProtocolID) (*Table, error) {
	if len(enabled) == 0 {
		return nil, fmt.Errorf("%w: empty protocol set", core.ErrConfigInvalid)
	}

	t := &Table{transport: make(map[uint8]Decoder)}
	for _, p := range enabled {
		switch p {
		case schema.ProtoIPv4:
			t.network = IPv4{}
		case schema.ProtoTCP:
			t.transport[IPProtoTCP] = TCP{}
		case schema.ProtoUDP:
			t.transport[IPProtoUDP] = UDP{}
		case schema.ProtoICMP:
			t.transport[IPProtoICMP] = Stub{ID: p}
		case schema.ProtoEthernet, schema.ProtoIPv6, schema.ProtoQUIC, schema.ProtoPayload:
			return nil, fmt.Errorf("%w: %s decoder not implemented", core.ErrUnsupportedProto, p)
		default:
			return nil, fmt.Errorf("%w: no decoder for %s", core.ErrUnsupportedProto, p)
		}
	}
	return t, nil
}

// Network returns the network-layer decoder, nil if none is enabled.
func (t *Table) Network() Decoder {
	return t.network
}

// Transport returns the decoder registered for an IP protocol number.
func (t *Table) Transport(ipProto uint8) (Decoder, bool) {
	d, ok := t.transport[ipProto]
	return d, ok
}
