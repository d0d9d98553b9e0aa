package file

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket/layers"

	"nprint.dev/nprint/internal/core"
)

const (
	ethernetHeaderLen = 14
	vlanHeaderLen     = 4
	sllHeaderLen      = 16
	nullHeaderLen     = 4

	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD
	etherTypeVLAN = 0x8100
	etherTypeQinQ = 0x88A8
)

// networkOffset returns the byte offset of the network layer within a frame
// for the capture's link type. Non-IP frames still get an offset; the
// encoder renders them as all-NA rows.
func networkOffset(data []byte, link layers.LinkType) (int, error) {
	switch link {
	case layers.LinkTypeEthernet:
		return ethernetOffset(data)
	case layers.LinkTypeLinuxSLL:
		if len(data) < sllHeaderLen {
			return 0, core.ErrPacketTooShort
		}
		return sllHeaderLen, nil
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		if len(data) < nullHeaderLen {
			return 0, core.ErrPacketTooShort
		}
		return nullHeaderLen, nil
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: link type %s", core.ErrUnsupportedProto, link)
	}
}

// ethernetOffset walks the Ethernet header including stacked VLAN tags
// (QinQ has two).
func ethernetOffset(data []byte) (int, error) {
	if len(data) < ethernetHeaderLen {
		return 0, core.ErrPacketTooShort
	}

	etherType := binary.BigEndian.Uint16(data[12:14])
	offset := ethernetHeaderLen

	for etherType == etherTypeVLAN || etherType == etherTypeQinQ {
		if len(data) < offset+vlanHeaderLen {
			return 0, core.ErrPacketTooShort
		}
		etherType = binary.BigEndian.Uint16(data[offset+2 : offset+4])
		offset += vlanHeaderLen
	}

	return offset, nil
}
