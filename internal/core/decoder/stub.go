package decoder

import (
	"fmt"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/schema"
)

// Stub stands in for roadmap protocols (Ethernet, IPv6, ICMP, QUIC, payload)
// that have no schema layout yet. It never recognizes a buffer and fails
// fast on Decode so an unfinished protocol cannot silently produce columns.
type Stub struct {
	ID schema.ProtocolID
}

func (s Stub) Proto() schema.ProtocolID {
	return s.ID
}

func (Stub) CanParse([]byte) bool {
	return false
}

func (s Stub) Decode([]byte) (Header, int, error) {
	return Header{}, 0, fmt.Errorf("%w: %s decoder not implemented", core.ErrUnsupportedProto, s.ID)
}
