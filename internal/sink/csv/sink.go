// Package csv writes nPrint matrices as CSV.
//
// This is the output boundary: the only place tri-state bits become numeric
// sentinels. One line per row, one column per schema bit, with optional
// connection-key columns in front.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/schema"
	"nprint.dev/nprint/internal/flow"
)

var keyColumns = []string{"src_ip", "dst_ip", "src_port", "dst_port", "proto"}

// Options configures the sink. Decoded from the output.options config map.
type Options struct {
	// IncludeKey prefixes each line with the connection 5-tuple.
	IncludeKey bool `mapstructure:"include_key"`
	// NAValue is the numeric sentinel for NA bits. Default -1.
	NAValue int `mapstructure:"na_value"`
}

// ParseOptions decodes an untyped options map.
func ParseOptions(raw map[string]interface{}) (Options, error) {
	opts := Options{NAValue: -1}
	if raw == nil {
		return opts, nil
	}
	// Decode leaves absent keys untouched, so the -1 default survives.
	if err := mapstructure.Decode(raw, &opts); err != nil {
		return Options{}, fmt.Errorf("%w: bad csv options: %v", core.ErrConfigInvalid, err)
	}
	return opts, nil
}

// Sink streams matrices to one writer. Not safe for concurrent WriteMatrix;
// the pipeline serializes writes.
type Sink struct {
	w    *csv.Writer
	s    *schema.Schema
	opts Options
	na   string
}

// New creates a sink and immediately writes the header line.
func New(w io.Writer, s *schema.Schema, opts Options) (*Sink, error) {
	sink := &Sink{
		w:    csv.NewWriter(w),
		s:    s,
		opts: opts,
		na:   strconv.Itoa(opts.NAValue),
	}

	header := make([]string, 0, len(keyColumns)+s.TotalWidth())
	if opts.IncludeKey {
		header = append(header, keyColumns...)
	}
	header = append(header, s.ColumnNames()...)
	if err := sink.w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return sink, nil
}

// WriteMatrix writes one connection's rows. key may be nil when IncludeKey
// is off.
func (s *Sink) WriteMatrix(key *flow.Key, m core.Matrix) error {
	record := make([]string, 0, len(keyColumns)+s.s.TotalWidth())
	for _, row := range m.Rows {
		record = record[:0]
		if s.opts.IncludeKey {
			record = append(record, s.keyFields(key)...)
		}
		for _, b := range row {
			switch b {
			case core.Zero:
				record = append(record, "0")
			case core.One:
				record = append(record, "1")
			default:
				record = append(record, s.na)
			}
		}
		if err := s.w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	return nil
}

func (s *Sink) keyFields(key *flow.Key) []string {
	if key == nil {
		return []string{"", "", "", "", ""}
	}
	return []string{
		key.SrcIP.String(),
		key.DstIP.String(),
		strconv.Itoa(int(key.SrcPort)),
		strconv.Itoa(int(key.DstPort)),
		strconv.Itoa(int(key.Protocol)),
	}
}

// Flush drains buffered output. Call once after the last matrix.
func (s *Sink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}
