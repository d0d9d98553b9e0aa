package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/encoder"
	"nprint.dev/nprint/internal/core/schema"
	"nprint.dev/nprint/internal/sink/csv"
)

// sliceSource replays a fixed packet list.
type sliceSource struct {
	pkts []core.RawPacket
	next int
}

func (s *sliceSource) Next() (core.RawPacket, error) {
	if s.next >= len(s.pkts) {
		return core.RawPacket{}, io.EOF
	}
	pkt := s.pkts[s.next]
	s.next++
	return pkt, nil
}

// makeTCPPacket builds IPv4+TCP between fixed hosts with the given ports.
func makeTCPPacket(sport, dport uint16) core.RawPacket {
	data := make([]byte, 40)
	data[0] = 0x45
	data[2], data[3] = 0x00, 40
	data[8] = 64
	data[9] = 6
	copy(data[12:16], []byte{10, 0, 0, 1})
	copy(data[16:20], []byte{10, 0, 0, 2})
	data[20] = byte(sport >> 8)
	data[21] = byte(sport)
	data[22] = byte(dport >> 8)
	data[23] = byte(dport)
	data[32] = 0x50
	data[33] = 0x10
	return core.RawPacket{Data: data}
}

func newTestPipeline(t *testing.T, src Source, k int, strict bool, buf *bytes.Buffer) *Pipeline {
	t.Helper()
	protos := []schema.ProtocolID{schema.ProtoIPv4, schema.ProtoTCP, schema.ProtoUDP}
	s, err := schema.Build(protos...)
	assert.NoError(t, err)
	enc, err := encoder.New(s, protos)
	assert.NoError(t, err)
	agg, err := encoder.NewAggregator(enc, k, strict)
	assert.NoError(t, err)
	sink, err := csv.New(buf, s, csv.Options{IncludeKey: true, NAValue: -1})
	assert.NoError(t, err)

	p, err := New(Config{Source: src, Aggregator: agg, Sink: sink, Workers: 3})
	assert.NoError(t, err)
	return p
}

func TestPipelineEndToEnd(t *testing.T) {
	src := &sliceSource{pkts: []core.RawPacket{
		makeTCPPacket(1000, 80),
		makeTCPPacket(2000, 80),
		makeTCPPacket(80, 1000), // reply on the first connection
		makeTCPPacket(3000, 80),
	}}

	var buf bytes.Buffer
	p := newTestPipeline(t, src, 2, false, &buf)
	assert.NoError(t, p.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Header + 3 connections x k=2 rows.
	assert.Len(t, lines, 1+3*2)

	// Output follows first-seen connection order, first packet orientation.
	assert.True(t, strings.HasPrefix(lines[1], "10.0.0.1,10.0.0.2,1000,80,6,"))
	assert.True(t, strings.HasPrefix(lines[3], "10.0.0.1,10.0.0.2,2000,80,6,"))
	assert.True(t, strings.HasPrefix(lines[5], "10.0.0.1,10.0.0.2,3000,80,6,"))

	// The first connection saw 2 packets, so neither row is padding; the
	// others saw 1 packet and get one all-NA padding row.
	padding := strings.Repeat(",-1", 704)
	assert.False(t, strings.HasSuffix(lines[1], padding))
	assert.False(t, strings.HasSuffix(lines[2], padding))
	assert.True(t, strings.HasSuffix(lines[4], padding))
	assert.True(t, strings.HasSuffix(lines[6], padding))
}

func TestPipelineDeterministicOutput(t *testing.T) {
	run := func() string {
		src := &sliceSource{pkts: []core.RawPacket{
			makeTCPPacket(1000, 80),
			makeTCPPacket(2000, 80),
			makeTCPPacket(3000, 80),
			makeTCPPacket(4000, 80),
			makeTCPPacket(5000, 80),
		}}
		var buf bytes.Buffer
		p := newTestPipeline(t, src, 3, false, &buf)
		assert.NoError(t, p.Run(context.Background()))
		return buf.String()
	}

	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}

func TestPipelineStrictModeFailsRun(t *testing.T) {
	bad := makeTCPPacket(1000, 80)
	bad.Data[32] = 0x40 // TCP data offset 4 < 5

	src := &sliceSource{pkts: []core.RawPacket{bad}}
	var buf bytes.Buffer
	p := newTestPipeline(t, src, 2, true, &buf)

	err := p.Run(context.Background())
	assert.True(t, errors.Is(err, core.ErrMalformedHeader))
}

func TestPipelineCancelled(t *testing.T) {
	src := &sliceSource{pkts: []core.RawPacket{makeTCPPacket(1000, 80)}}
	var buf bytes.Buffer
	p := newTestPipeline(t, src, 2, false, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewValidatesWiring(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = New(Config{Source: &sliceSource{}, Workers: 0})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
