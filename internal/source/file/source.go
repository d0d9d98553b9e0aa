// Package file reads packets from capture files (pcap and pcapng).
//
// The source is the core's input collaborator: it performs all I/O, applies
// the optional BPF pre-filter, strips link-layer framing, and hands
// network-layer core.RawPackets to the caller.
package file

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/log"
	"nprint.dev/nprint/internal/metrics"
)

// pcapng section header block type, little or big endian it reads the same.
const ngMagic = 0x0A0D0D0A

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Options configures a Source.
type Options struct {
	// Filter is a classic-BPF program in tcpdump -ddd form; empty means no
	// filtering. The program runs against the raw frame, before the L2
	// strip.
	Filter string
}

// Source reads one capture file sequentially. Not safe for concurrent use.
type Source struct {
	f      *os.File
	reader packetReader
	filter *Filter
}

// Open opens a capture file, sniffing the pcapng section header to pick the
// right reader.
func Open(path string, opts Options) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture file header: %w", err)
	}

	var reader packetReader
	if binary.LittleEndian.Uint32(magic) == ngMagic {
		r, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to parse pcapng file %s: %w", path, err)
		}
		reader = r
	} else {
		r, err := pcapgo.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to parse pcap file %s: %w", path, err)
		}
		reader = r
	}

	var filter *Filter
	if opts.Filter != "" {
		filter, err = CompileFilter(opts.Filter)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"path": path,
		"link": reader.LinkType(),
	}).Debug("capture file opened")

	return &Source{f: f, reader: reader, filter: filter}, nil
}

// Next returns the next network-layer packet. Frames rejected by the filter
// or without a network layer at a known offset are skipped, not errors.
// io.EOF signals the end of the file.
func (s *Source) Next() (core.RawPacket, error) {
	for {
		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			if err == io.EOF {
				return core.RawPacket{}, io.EOF
			}
			return core.RawPacket{}, fmt.Errorf("failed to read packet: %w", err)
		}

		if s.filter != nil && !s.filter.Match(data) {
			metrics.PacketsFilteredTotal.Inc()
			continue
		}

		offset, err := networkOffset(data, s.reader.LinkType())
		if err != nil {
			log.GetLogger().WithError(err).Debug("skipping frame without network layer")
			continue
		}

		return core.RawPacket{
			Data:       data[offset:],
			Timestamp:  ci.Timestamp,
			CaptureLen: uint32(ci.CaptureLength),
			OrigLen:    uint32(ci.Length),
		}, nil
	}
}

// LinkType reports the capture's link layer.
func (s *Source) LinkType() layers.LinkType {
	return s.reader.LinkType()
}

// Close closes the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}
