package schema

// Header bit sizes.
const (
	IPv4HeaderBits = 160 // fixed 20-byte header, options excluded
	TCPHeaderBits  = 480 // 20 fixed bytes + 40-byte options block
	UDPHeaderBits  = 64

	// TCPOptionsBits is the reserved options block: 40 bytes, the maximum a
	// 4-bit data offset can declare. Option bytes a real header does not
	// carry encode as NA.
	TCPOptionsBits = 320
)

// headerLayouts holds the on-wire descriptor table per protocol. Field names
// follow the nPrint column naming convention. Tables are ordered exactly as
// the bits appear on the wire; schema.Build enforces that they tile the
// header.
//
// Extension policy: add new protocols as new tables, never edit or reorder an
// existing one. Ethernet, IPv6, ICMP, QUIC and payload are roadmap entries
// with no layout yet; their decoders fail fast.
var headerLayouts = map[ProtocolID][]FieldDesc{
	ProtoIPv4: ipv4Fields,
	ProtoTCP:  tcpFields,
	ProtoUDP:  udpFields,
}

var ipv4Fields = []FieldDesc{
	{Proto: ProtoIPv4, Name: "ver", BitOffset: 0, BitWidth: 4},
	{Proto: ProtoIPv4, Name: "hl", BitOffset: 4, BitWidth: 4},
	{Proto: ProtoIPv4, Name: "tos", BitOffset: 8, BitWidth: 8},
	{Proto: ProtoIPv4, Name: "tl", BitOffset: 16, BitWidth: 16},
	{Proto: ProtoIPv4, Name: "id", BitOffset: 32, BitWidth: 16},
	{Proto: ProtoIPv4, Name: "rbit", BitOffset: 48, BitWidth: 1},
	{Proto: ProtoIPv4, Name: "dfbit", BitOffset: 49, BitWidth: 1},
	{Proto: ProtoIPv4, Name: "mfbit", BitOffset: 50, BitWidth: 1},
	{Proto: ProtoIPv4, Name: "foff", BitOffset: 51, BitWidth: 13},
	{Proto: ProtoIPv4, Name: "ttl", BitOffset: 64, BitWidth: 8},
	{Proto: ProtoIPv4, Name: "proto", BitOffset: 72, BitWidth: 8},
	{Proto: ProtoIPv4, Name: "cksum", BitOffset: 80, BitWidth: 16},
	{Proto: ProtoIPv4, Name: "src", BitOffset: 96, BitWidth: 32},
	{Proto: ProtoIPv4, Name: "dst", BitOffset: 128, BitWidth: 32},
}

var tcpFields = []FieldDesc{
	{Proto: ProtoTCP, Name: "sprt", BitOffset: 0, BitWidth: 16},
	{Proto: ProtoTCP, Name: "dprt", BitOffset: 16, BitWidth: 16},
	{Proto: ProtoTCP, Name: "seq", BitOffset: 32, BitWidth: 32},
	{Proto: ProtoTCP, Name: "ackn", BitOffset: 64, BitWidth: 32},
	{Proto: ProtoTCP, Name: "doff", BitOffset: 96, BitWidth: 4},
	{Proto: ProtoTCP, Name: "res", BitOffset: 100, BitWidth: 3},
	{Proto: ProtoTCP, Name: "ns", BitOffset: 103, BitWidth: 1},
	{Proto: ProtoTCP, Name: "cwr", BitOffset: 104, BitWidth: 1},
	{Proto: ProtoTCP, Name: "ece", BitOffset: 105, BitWidth: 1},
	{Proto: ProtoTCP, Name: "urg", BitOffset: 106, BitWidth: 1},
	{Proto: ProtoTCP, Name: "ackf", BitOffset: 107, BitWidth: 1},
	{Proto: ProtoTCP, Name: "psh", BitOffset: 108, BitWidth: 1},
	{Proto: ProtoTCP, Name: "rst", BitOffset: 109, BitWidth: 1},
	{Proto: ProtoTCP, Name: "syn", BitOffset: 110, BitWidth: 1},
	{Proto: ProtoTCP, Name: "fin", BitOffset: 111, BitWidth: 1},
	{Proto: ProtoTCP, Name: "wsize", BitOffset: 112, BitWidth: 16},
	{Proto: ProtoTCP, Name: "cksum", BitOffset: 128, BitWidth: 16},
	{Proto: ProtoTCP, Name: "urp", BitOffset: 144, BitWidth: 16},
	{Proto: ProtoTCP, Name: "opt", BitOffset: 160, BitWidth: TCPOptionsBits, Variable: true},
}

var udpFields = []FieldDesc{
	{Proto: ProtoUDP, Name: "sport", BitOffset: 0, BitWidth: 16},
	{Proto: ProtoUDP, Name: "dport", BitOffset: 16, BitWidth: 16},
	{Proto: ProtoUDP, Name: "len", BitOffset: 32, BitWidth: 16},
	{Proto: ProtoUDP, Name: "cksum", BitOffset: 48, BitWidth: 16},
}
