package decoder

import (
	"encoding/binary"
	"fmt"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/schema"
)

const tcpHeaderMinLen = 20

// TCP decodes the 20-byte fixed TCP header plus any option bytes up to the
// declared data offset. The schema reserves a 40-byte options block, the
// maximum a 4-bit data offset can declare, so option bytes beyond it cannot
// occur; option bytes a shorter header lacks encode as NA.
type TCP struct{}

func (TCP) Proto() schema.ProtocolID {
	return schema.ProtoTCP
}

func (TCP) CanParse(data []byte) bool {
	return len(data) >= tcpHeaderMinLen && data[12]>>4 >= 5
}

func (TCP) Decode(data []byte) (Header, int, error) {
	if len(data) < tcpHeaderMinLen {
		return Header{}, 0, fmt.Errorf("%w: tcp header truncated at %d bytes", core.ErrMalformedHeader, len(data))
	}

	// Data offset is in 32-bit words, minimum 5 (20 bytes).
	dataOffset := uint64(data[12] >> 4)
	headerLen := int(dataOffset) * 4
	if dataOffset < 5 {
		return Header{}, 0, fmt.Errorf("%w: tcp data offset %d < 5", core.ErrMalformedHeader, dataOffset)
	}
	if headerLen > len(data) {
		return Header{}, 0, fmt.Errorf("%w: tcp header length %d exceeds buffer %d", core.ErrMalformedHeader, headerLen, len(data))
	}

	h := Header{
		Proto: schema.ProtoTCP,
		// Fixed header plus the option bytes actually present.
		Raw: data[:headerLen],
		Fields: map[string]uint64{
			"sprt":  uint64(binary.BigEndian.Uint16(data[0:2])),
			"dprt":  uint64(binary.BigEndian.Uint16(data[2:4])),
			"seq":   uint64(binary.BigEndian.Uint32(data[4:8])),
			"ackn":  uint64(binary.BigEndian.Uint32(data[8:12])),
			"doff":  dataOffset,
			"flags": uint64(binary.BigEndian.Uint16(data[12:14]) & 0x0FFF),
			"wsize": uint64(binary.BigEndian.Uint16(data[14:16])),
			"cksum": uint64(binary.BigEndian.Uint16(data[16:18])),
			"urp":   uint64(binary.BigEndian.Uint16(data[18:20])),
		},
	}
	return h, headerLen, nil
}
