// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers match with errors.Is; wrapping sites add context
// with fmt.Errorf("%w: ...").
var (
	// Schema construction errors
	ErrSchemaInvalid = errors.New("nprint: invalid schema")

	// Packet decoding errors
	ErrMalformedHeader  = errors.New("nprint: malformed header")
	ErrPacketTooShort   = errors.New("nprint: packet too short")
	ErrUnsupportedProto = errors.New("nprint: unsupported protocol")

	// Configuration errors
	ErrConfigInvalid = errors.New("nprint: invalid configuration")
)
