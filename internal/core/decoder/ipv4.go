package decoder

import (
	"encoding/binary"
	"fmt"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/schema"
)

const ipv4HeaderMinLen = 20

// IPv4 decodes the fixed 20-byte IPv4 header. Options beyond the fixed part
// carry no schema columns, but the declared header length is still consumed
// so the transport layer starts at the right offset.
type IPv4 struct{}

func (IPv4) Proto() schema.ProtocolID {
	return schema.ProtoIPv4
}

// CanParse checks the version nibble only. A non-IPv4 packet is "protocol
// absent", not an error.
func (IPv4) CanParse(data []byte) bool {
	return len(data) >= 1 && data[0]>>4 == 4
}

func (IPv4) Decode(data []byte) (Header, int, error) {
	if len(data) < ipv4HeaderMinLen {
		return Header{}, 0, fmt.Errorf("%w: ipv4 header truncated at %d bytes", core.ErrMalformedHeader, len(data))
	}

	version := data[0] >> 4
	if version != 4 {
		return Header{}, 0, fmt.Errorf("%w: ipv4 version nibble %d", core.ErrMalformedHeader, version)
	}

	// IHL is in 32-bit words, minimum 5 (20 bytes).
	ihl := uint64(data[0] & 0x0F)
	headerLen := int(ihl) * 4
	if ihl < 5 {
		return Header{}, 0, fmt.Errorf("%w: ipv4 ihl %d < 5", core.ErrMalformedHeader, ihl)
	}
	if headerLen > len(data) {
		return Header{}, 0, fmt.Errorf("%w: ipv4 header length %d exceeds buffer %d", core.ErrMalformedHeader, headerLen, len(data))
	}

	flags := uint64(data[6] >> 5)
	fragOff := uint64(binary.BigEndian.Uint16(data[6:8]) & 0x1FFF)

	h := Header{
		Proto: schema.ProtoIPv4,
		// Only the fixed part is encoded; options have no columns.
		Raw: data[:ipv4HeaderMinLen],
		Fields: map[string]uint64{
			"ver":   uint64(version),
			"hl":    ihl,
			"tos":   uint64(data[1]),
			"tl":    uint64(binary.BigEndian.Uint16(data[2:4])),
			"id":    uint64(binary.BigEndian.Uint16(data[4:6])),
			"flags": flags,
			"foff":  fragOff,
			"ttl":   uint64(data[8]),
			"proto": uint64(data[9]),
			"cksum": uint64(binary.BigEndian.Uint16(data[10:12])),
			"src":   uint64(binary.BigEndian.Uint32(data[12:16])),
			"dst":   uint64(binary.BigEndian.Uint32(data[16:20])),
		},
	}
	return h, headerLen, nil
}
