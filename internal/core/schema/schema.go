// Package schema defines the global nPrint column registry.
//
// The schema is an ordered table of field descriptors built once at startup.
// Column numbering is append-only: registering a new protocol adds columns at
// the end and never renumbers existing ones, so rows produced with an older
// schema stay column-compatible with rows produced after an extension.
package schema

import (
	"fmt"

	"nprint.dev/nprint/internal/core"
)

// ProtocolID identifies one supported (or roadmap) protocol.
type ProtocolID uint8

const (
	ProtoIPv4 ProtocolID = iota
	ProtoTCP
	ProtoUDP
	ProtoEthernet
	ProtoIPv6
	ProtoICMP
	ProtoQUIC
	ProtoPayload
)

func (p ProtocolID) String() string {
	switch p {
	case ProtoIPv4:
		return "ipv4"
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	case ProtoEthernet:
		return "eth"
	case ProtoIPv6:
		return "ipv6"
	case ProtoICMP:
		return "icmp"
	case ProtoQUIC:
		return "quic"
	case ProtoPayload:
		return "payload"
	default:
		return fmt.Sprintf("proto(%d)", uint8(p))
	}
}

// ParseProtocol maps a configuration name to a ProtocolID.
func ParseProtocol(name string) (ProtocolID, error) {
	for _, p := range []ProtocolID{
		ProtoIPv4, ProtoTCP, ProtoUDP,
		ProtoEthernet, ProtoIPv6, ProtoICMP, ProtoQUIC, ProtoPayload,
	} {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown protocol %q", core.ErrConfigInvalid, name)
}

// FieldDesc describes one header field: a contiguous run of bits at a fixed
// offset within its protocol's header.
type FieldDesc struct {
	Proto     ProtocolID
	Name      string
	BitOffset int  // bit position within the header, 0 = first bit on the wire
	BitWidth  int
	Variable  bool // options/payload-class field, may be partially present
}

// Range is the contiguous global column span owned by one protocol.
type Range struct {
	Start int
	Width int
}

// End returns the first column index past the range.
func (r Range) End() int {
	return r.Start + r.Width
}

// Schema is the immutable global column table. Build it once before encoding
// starts; reads need no synchronization afterwards.
type Schema struct {
	protos []ProtocolID
	fields map[ProtocolID][]FieldDesc
	ranges map[ProtocolID]Range
	total  int
}

// Build constructs a schema from an ordered protocol list. The order fixes
// the global column layout, so callers must keep it stable across runs.
func Build(protos ...ProtocolID) (*Schema, error) {
	if len(protos) == 0 {
		return nil, fmt.Errorf("%w: empty protocol set", core.ErrConfigInvalid)
	}

	s := &Schema{
		fields: make(map[ProtocolID][]FieldDesc, len(protos)),
		ranges: make(map[ProtocolID]Range, len(protos)),
	}
	for _, p := range protos {
		if err := s.register(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// register appends one protocol's descriptor table to the schema.
func (s *Schema) register(p ProtocolID) error {
	if _, dup := s.ranges[p]; dup {
		return fmt.Errorf("%w: protocol %s registered twice", core.ErrSchemaInvalid, p)
	}

	descs, ok := headerLayouts[p]
	if !ok {
		return fmt.Errorf("%w: no header layout for %s", core.ErrUnsupportedProto, p)
	}

	width, err := layoutWidth(p, descs)
	if err != nil {
		return err
	}

	s.protos = append(s.protos, p)
	s.fields[p] = descs
	s.ranges[p] = Range{Start: s.total, Width: width}
	s.total += width
	return nil
}

// layoutWidth validates that descriptors tile the header without gaps or
// overlap, in on-wire order, and returns the header's bit width. The tiling
// is what makes "column = range start + header bit offset" valid in the
// encoder.
func layoutWidth(p ProtocolID, descs []FieldDesc) (int, error) {
	next := 0
	for _, d := range descs {
		if d.BitWidth == 0 {
			return 0, fmt.Errorf("%w: %s.%s has zero width", core.ErrSchemaInvalid, p, d.Name)
		}
		if d.BitOffset < next {
			return 0, fmt.Errorf("%w: %s.%s overlaps previous field", core.ErrSchemaInvalid, p, d.Name)
		}
		if d.BitOffset > next {
			return 0, fmt.Errorf("%w: %s.%s leaves a gap at bit %d", core.ErrSchemaInvalid, p, d.Name, next)
		}
		next = d.BitOffset + d.BitWidth
	}
	return next, nil
}

// TotalWidth returns the fixed global column count.
func (s *Schema) TotalWidth() int {
	return s.total
}

// Columns returns the contiguous column range owned by a protocol.
func (s *Schema) Columns(p ProtocolID) (Range, bool) {
	r, ok := s.ranges[p]
	return r, ok
}

// Protocols returns the registered protocols in column order.
func (s *Schema) Protocols() []ProtocolID {
	out := make([]ProtocolID, len(s.protos))
	copy(out, s.protos)
	return out
}

// Fields returns a protocol's descriptors in on-wire order.
func (s *Schema) Fields(p ProtocolID) []FieldDesc {
	return s.fields[p]
}

// FieldColumns returns the global column range of one named field.
func (s *Schema) FieldColumns(p ProtocolID, name string) (Range, bool) {
	r, ok := s.ranges[p]
	if !ok {
		return Range{}, false
	}
	for _, d := range s.fields[p] {
		if d.Name == name {
			return Range{Start: r.Start + d.BitOffset, Width: d.BitWidth}, true
		}
	}
	return Range{}, false
}

// ColumnNames returns one name per global column, e.g. ipv4_ttl_0..ipv4_ttl_7.
// The naming follows the nPrint convention: field name suffixed with the bit
// index, most significant bit first.
func (s *Schema) ColumnNames() []string {
	names := make([]string, 0, s.total)
	for _, p := range s.protos {
		for _, d := range s.fields[p] {
			for i := 0; i < d.BitWidth; i++ {
				names = append(names, fmt.Sprintf("%s_%s_%d", p, d.Name, i))
			}
		}
	}
	return names
}
