// Package flow groups packets into connections by bidirectional 5-tuple.
//
// Grouping is a collaborator of the encoder, not part of it: the table only
// asserts that packets belong together and preserves their arrival order.
package flow

import (
	"fmt"
	"net/netip"

	"nprint.dev/nprint/internal/core"
)

// Key is the connection 5-tuple in the orientation of the first packet seen.
type Key struct {
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d-%s:%d/%d", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort, k.Protocol)
}

// canonical orients the tuple so both directions of a connection map to the
// same table slot.
func (k Key) canonical() Key {
	if c := k.SrcIP.Compare(k.DstIP); c < 0 || (c == 0 && k.SrcPort <= k.DstPort) {
		return k
	}
	return Key{
		SrcIP:    k.DstIP,
		DstIP:    k.SrcIP,
		SrcPort:  k.DstPort,
		DstPort:  k.SrcPort,
		Protocol: k.Protocol,
	}
}

// KeyOf extracts the 5-tuple from network-layer bytes. ok is false when the
// packet carries no usable tuple (not IPv4, or header truncated). Ports stay
// zero for transports without them or when the transport bytes are missing;
// the packet still keys to its host pair.
func KeyOf(data []byte) (Key, bool) {
	if len(data) < 20 || data[0]>>4 != 4 {
		return Key{}, false
	}

	src, _ := netip.AddrFromSlice(data[12:16])
	dst, _ := netip.AddrFromSlice(data[16:20])
	k := Key{
		SrcIP:    src,
		DstIP:    dst,
		Protocol: data[9],
	}

	headerLen := int(data[0]&0x0F) * 4
	hasPorts := k.Protocol == 6 || k.Protocol == 17
	if hasPorts && headerLen >= 20 && len(data) >= headerLen+4 {
		k.SrcPort = uint16(data[headerLen])<<8 | uint16(data[headerLen+1])
		k.DstPort = uint16(data[headerLen+2])<<8 | uint16(data[headerLen+3])
	}
	return k, true
}

// Flow is one connection: its first-seen key and up to K packets in arrival
// order.
type Flow struct {
	Key     Key
	Packets []core.RawPacket
}

// Table accumulates flows from a packet stream. Not safe for concurrent Add;
// the pipeline feeds it from a single goroutine, matching the per-connection
// ordering requirement.
type Table struct {
	k     int
	flows map[Key]*Flow
	order []*Flow
}

// NewTable creates a table that buffers at most k packets per flow. Packets
// beyond k are ignored, since the aggregator would discard them anyway.
func NewTable(k int) (*Table, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", core.ErrConfigInvalid, k)
	}
	return &Table{
		k:     k,
		flows: make(map[Key]*Flow),
	}, nil
}

// Add routes one packet to its flow. It reports false when the packet has no
// usable tuple and was dropped.
func (t *Table) Add(pkt core.RawPacket) bool {
	key, ok := KeyOf(pkt.Data)
	if !ok {
		return false
	}

	canon := key.canonical()
	f, exists := t.flows[canon]
	if !exists {
		f = &Flow{Key: key}
		t.flows[canon] = f
		t.order = append(t.order, f)
	}
	if len(f.Packets) < t.k {
		f.Packets = append(f.Packets, pkt)
	}
	return true
}

// Flows returns all flows in first-seen order.
func (t *Table) Flows() []*Flow {
	return t.order
}

// Len returns the number of distinct connections seen.
func (t *Table) Len() int {
	return len(t.order)
}
