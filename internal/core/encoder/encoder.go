// Package encoder turns raw packets into fixed-width tri-state bit rows.
package encoder

import (
	"errors"
	"fmt"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/decoder"
	"nprint.dev/nprint/internal/core/schema"
)

// Encoder maps one raw packet to one BitRow of the global schema width.
// It holds only the immutable schema and the decoder dispatch table, so a
// single Encoder is safe for concurrent use by any number of goroutines.
type Encoder struct {
	schema    *schema.Schema
	table     *decoder.Table
	anonymize bool
	scrub     []schema.Range
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithAnonymizedAddresses blanks the IPv4 source and destination address
// columns of every encoded row, for captures that must not leak endpoints.
// Blanked columns read as observed zeros, keeping the row shape intact.
func WithAnonymizedAddresses() Option {
	return func(e *Encoder) {
		e.anonymize = true
	}
}

// New builds an encoder for the given schema and enabled protocol set. The
// protocol set must be non-empty and every enabled protocol must own schema
// columns; both are configuration errors surfaced before any packet work.
func New(s *schema.Schema, enabled []schema.ProtocolID, opts ...Option) (*Encoder, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", core.ErrConfigInvalid)
	}
	table, err := decoder.NewTable(enabled)
	if err != nil {
		return nil, err
	}
	for _, p := range enabled {
		if _, ok := s.Columns(p); !ok {
			return nil, fmt.Errorf("%w: protocol %s enabled but not in schema", core.ErrConfigInvalid, p)
		}
	}

	e := &Encoder{schema: s, table: table}
	for _, opt := range opts {
		opt(e)
	}
	if e.anonymize {
		for _, name := range []string{"src", "dst"} {
			r, ok := s.FieldColumns(schema.ProtoIPv4, name)
			if !ok {
				return nil, fmt.Errorf("%w: anonymization needs ipv4 %s columns in the schema", core.ErrConfigInvalid, name)
			}
			e.scrub = append(e.scrub, r)
		}
	}
	return e, nil
}

// Schema returns the schema the encoder writes against.
func (e *Encoder) Schema() *schema.Schema {
	return e.schema
}

// Encode maps one packet to a BitRow. Every column starts NA; each protocol
// the decode chain recognizes and fully decodes overwrites its own column
// range with 0/1 bits, most significant bit first, matching on-wire order.
// A layer that is absent, or whose protocol number has no registered
// decoder, leaves its columns NA. A recognized but self-inconsistent header
// fails the whole call with core.ErrMalformedHeader.
func (e *Encoder) Encode(pkt core.RawPacket) (core.BitRow, error) {
	row := core.NewBitRow(e.schema.TotalWidth())

	network := e.table.Network()
	if network == nil || !network.CanParse(pkt.Data) {
		// No network layer recognized; the whole row stays NA.
		return row, nil
	}

	netHdr, consumed, err := network.Decode(pkt.Data)
	if err != nil {
		return nil, err
	}
	e.writeHeader(row, netHdr)
	// Anonymization runs only on headers actually observed; an absent layer
	// stays NA rather than reading as a forged all-zero address.
	for _, r := range e.scrub {
		row.Blank(r.Start, r.End())
	}

	transport, ok := e.table.Transport(uint8(netHdr.Fields["proto"]))
	if !ok {
		// Unknown transport protocol number: transport columns stay NA.
		return row, nil
	}

	transHdr, _, err := transport.Decode(pkt.Data[consumed:])
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedProto) {
			// Registered placeholder without an implementation; same as
			// having no decoder at all.
			return row, nil
		}
		return nil, err
	}
	e.writeHeader(row, transHdr)

	return row, nil
}

// writeHeader fills one protocol's column range from the decoded header
// bytes. Bits past the end of Raw (an options block the real header did not
// fill) keep their NA value.
func (e *Encoder) writeHeader(row core.BitRow, hdr decoder.Header) {
	r, ok := e.schema.Columns(hdr.Proto)
	if !ok {
		return
	}
	for _, d := range e.schema.Fields(hdr.Proto) {
		for i := 0; i < d.BitWidth; i++ {
			bitPos := d.BitOffset + i
			byteIdx := bitPos / 8
			if byteIdx >= len(hdr.Raw) {
				break
			}
			if hdr.Raw[byteIdx]&(1<<(7-bitPos%8)) != 0 {
				row[r.Start+bitPos] = core.One
			} else {
				row[r.Start+bitPos] = core.Zero
			}
		}
	}
}
