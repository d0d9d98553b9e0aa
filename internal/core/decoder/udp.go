package decoder

import (
	"encoding/binary"
	"fmt"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/schema"
)

const udpHeaderLen = 8

// UDP decodes the fixed 8-byte UDP header.
type UDP struct{}

func (UDP) Proto() schema.ProtocolID {
	return schema.ProtoUDP
}

func (UDP) CanParse(data []byte) bool {
	return len(data) >= udpHeaderLen
}

func (UDP) Decode(data []byte) (Header, int, error) {
	if len(data) < udpHeaderLen {
		return Header{}, 0, fmt.Errorf("%w: udp header truncated at %d bytes", core.ErrMalformedHeader, len(data))
	}

	// Declared length covers header plus payload, minimum 8.
	length := uint64(binary.BigEndian.Uint16(data[4:6]))
	if length < udpHeaderLen {
		return Header{}, 0, fmt.Errorf("%w: udp declared length %d < %d", core.ErrMalformedHeader, length, udpHeaderLen)
	}

	h := Header{
		Proto: schema.ProtoUDP,
		Raw:   data[:udpHeaderLen],
		Fields: map[string]uint64{
			"sport": uint64(binary.BigEndian.Uint16(data[0:2])),
			"dport": uint64(binary.BigEndian.Uint16(data[2:4])),
			"len":   length,
			"cksum": uint64(binary.BigEndian.Uint16(data[6:8])),
		},
	}
	return h, udpHeaderLen, nil
}
