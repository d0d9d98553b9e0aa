// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawPacket is one captured packet handed to the encoder. Data starts at the
// network layer; link-layer framing is stripped by the source. The buffer is
// owned by the caller for the duration of one encode call and is never
// retained by the core.
type RawPacket struct {
	Data       []byte    // Network-layer bytes, zero-copy slice
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Actual captured length
	OrigLen    uint32    // Original frame length on the wire
}

// Bit is one tri-state cell of an nPrint row. The zero value is NA so a
// freshly allocated row is "nothing observed" by construction.
type Bit uint8

const (
	NA Bit = iota // Owning protocol absent from the packet
	Zero
	One
)

// Int converts to the numeric output convention: NA is -1.
func (b Bit) Int() int {
	switch b {
	case Zero:
		return 0
	case One:
		return 1
	default:
		return -1
	}
}

func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "-1"
	}
}

// BitRow is the encoding of one packet: one Bit per global schema column.
// Immutable after the encoder returns it.
type BitRow []Bit

// NewBitRow returns a row of the given width with every column NA.
func NewBitRow(width int) BitRow {
	return make(BitRow, width)
}

// Blank overwrites the half-open column range [start, end) with Zero,
// clamped to the row. Used to anonymize sensitive fields without changing
// the row shape.
func (r BitRow) Blank(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	for i := start; i < end; i++ {
		r[i] = Zero
	}
}

// Matrix is the nPrint representation of one connection: exactly K rows of
// identical width, trailing rows all-NA when fewer packets were observed.
type Matrix struct {
	Rows []BitRow
}

// K returns the row count the matrix was built with.
func (m Matrix) K() int {
	return len(m.Rows)
}

// Width returns the column count, 0 for an empty matrix.
func (m Matrix) Width() int {
	if len(m.Rows) == 0 {
		return 0
	}
	return len(m.Rows[0])
}
