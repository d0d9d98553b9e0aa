package file

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"

	"nprint.dev/nprint/internal/core"
)

// makeEthernetUDPFrame builds Ethernet + IPv4 + UDP.
func makeEthernetUDPFrame() []byte {
	frame := make([]byte, 42)

	// Ethernet header (14 bytes)
	copy(frame[0:6], []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	copy(frame[6:12], []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})
	frame[12], frame[13] = 0x08, 0x00 // EtherType: IPv4

	// IPv4 header (20 bytes)
	frame[14] = 0x45
	frame[16], frame[17] = 0x00, 0x1C // Total Length: 28
	frame[22] = 64                    // TTL
	frame[23] = 17                    // Protocol: UDP
	copy(frame[26:30], []byte{192, 168, 1, 1})
	copy(frame[30:34], []byte{192, 168, 1, 2})

	// UDP header (8 bytes)
	frame[34], frame[35] = 0x13, 0x88 // Src Port: 5000
	frame[36], frame[37] = 0x13, 0x89 // Dst Port: 5001
	frame[38], frame[39] = 0x00, 0x08 // Length: 8

	return frame
}

func writePcap(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pcap")
	f, err := os.Create(path)
	assert.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	assert.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(int64(1700000000+i), 0),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		assert.NoError(t, w.WritePacket(ci, frame))
	}
	return path
}

func TestSourceReadsNetworkLayerPackets(t *testing.T) {
	path := writePcap(t, makeEthernetUDPFrame(), makeEthernetUDPFrame())

	src, err := Open(path, Options{})
	assert.NoError(t, err)
	defer src.Close()

	assert.Equal(t, layers.LinkTypeEthernet, src.LinkType())

	pkt, err := src.Next()
	assert.NoError(t, err)
	// Ethernet header stripped: data starts at the IPv4 version byte.
	assert.Equal(t, byte(0x45), pkt.Data[0])
	assert.Equal(t, uint32(42), pkt.OrigLen)

	_, err = src.Next()
	assert.NoError(t, err)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSourceAppliesFilter(t *testing.T) {
	path := writePcap(t, makeEthernetUDPFrame())

	// Single reject-all instruction: ret #0
	src, err := Open(path, Options{Filter: "6 0 0 0"})
	assert.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSourceAcceptAllFilter(t *testing.T) {
	path := writePcap(t, makeEthernetUDPFrame())

	// ret #65535
	src, err := Open(path, Options{Filter: "6 0 0 65535"})
	assert.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	assert.NoError(t, err)
}

func TestOpenRejectsBadFilter(t *testing.T) {
	path := writePcap(t, makeEthernetUDPFrame())

	_, err := Open(path, Options{Filter: "not a program"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/does/not/exist.pcap", Options{})
	assert.Error(t, err)
}

func TestCompileFilterCountLine(t *testing.T) {
	// tcpdump -ddd output starts with the instruction count.
	f, err := CompileFilter("1\n6 0 0 65535")
	assert.NoError(t, err)
	assert.True(t, f.Match([]byte{0x00}))
}

func TestCompileFilterEmpty(t *testing.T) {
	_, err := CompileFilter("\n")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNetworkOffsetEthernet(t *testing.T) {
	off, err := networkOffset(makeEthernetUDPFrame(), layers.LinkTypeEthernet)
	assert.NoError(t, err)
	assert.Equal(t, 14, off)
}

func TestNetworkOffsetVLAN(t *testing.T) {
	frame := makeEthernetUDPFrame()
	// Insert one 802.1Q tag after the MACs.
	tagged := append([]byte{}, frame[:12]...)
	tagged = append(tagged, 0x81, 0x00, 0x00, 0x64) // TPID + VID 100
	tagged = append(tagged, frame[12:]...)

	off, err := networkOffset(tagged, layers.LinkTypeEthernet)
	assert.NoError(t, err)
	assert.Equal(t, 18, off)
	assert.Equal(t, byte(0x45), tagged[off])
}

func TestNetworkOffsetRaw(t *testing.T) {
	off, err := networkOffset([]byte{0x45, 0x00}, layers.LinkTypeRaw)
	assert.NoError(t, err)
	assert.Equal(t, 0, off)
}

func TestNetworkOffsetLinuxSLL(t *testing.T) {
	off, err := networkOffset(make([]byte, 40), layers.LinkTypeLinuxSLL)
	assert.NoError(t, err)
	assert.Equal(t, 16, off)
}

func TestNetworkOffsetUnsupportedLink(t *testing.T) {
	_, err := networkOffset(make([]byte, 40), layers.LinkTypePPP)
	assert.True(t, errors.Is(err, core.ErrUnsupportedProto))
}

func TestNetworkOffsetTruncatedFrame(t *testing.T) {
	_, err := networkOffset([]byte{0x00, 0x11}, layers.LinkTypeEthernet)
	assert.True(t, errors.Is(err, core.ErrPacketTooShort))
}
