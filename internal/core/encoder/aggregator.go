package encoder

import (
	"fmt"

	"nprint.dev/nprint/internal/core"
)

// Aggregator stacks the first K per-packet rows of one connection into a
// fixed-shape Matrix. Aggregations of different connections are independent;
// one Aggregator may serve concurrent goroutines since it holds no mutable
// state.
type Aggregator struct {
	enc     *Encoder
	k       int
	strict  bool
	onError func(error)
}

// AggregatorOption customizes an Aggregator.
type AggregatorOption func(*Aggregator)

// WithPacketErrorHook registers a callback invoked for every per-packet
// encode failure the aggregator downgrades. Used by callers that count or
// log malformed packets.
func WithPacketErrorHook(fn func(error)) AggregatorOption {
	return func(a *Aggregator) {
		a.onError = fn
	}
}

// NewAggregator validates K up front so a bad configuration surfaces before
// any packet is touched. Strict makes per-packet encode failures abort the
// aggregation; by default they degrade to an all-NA row so one corrupt
// packet cannot erase a whole connection's signal.
func NewAggregator(enc *Encoder, k int, strict bool, opts ...AggregatorOption) (*Aggregator, error) {
	if enc == nil {
		return nil, fmt.Errorf("%w: nil encoder", core.ErrConfigInvalid)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", core.ErrConfigInvalid, k)
	}
	a := &Aggregator{enc: enc, k: k, strict: strict}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// K returns the configured rows-per-connection count.
func (a *Aggregator) K() int {
	return a.k
}

// Aggregate encodes up to the first K packets in arrival order and pads with
// all-NA rows until exactly K rows exist. Packets beyond K are ignored.
func (a *Aggregator) Aggregate(pkts []core.RawPacket) (core.Matrix, error) {
	width := a.enc.Schema().TotalWidth()
	rows := make([]core.BitRow, 0, a.k)

	n := len(pkts)
	if n > a.k {
		n = a.k
	}
	for _, pkt := range pkts[:n] {
		row, err := a.enc.Encode(pkt)
		if err != nil {
			if a.strict {
				return core.Matrix{}, err
			}
			if a.onError != nil {
				a.onError(err)
			}
			// Malformed packet counts as "not observed".
			row = core.NewBitRow(width)
		}
		rows = append(rows, row)
	}
	for len(rows) < a.k {
		rows = append(rows, core.NewBitRow(width))
	}

	return core.Matrix{Rows: rows}, nil
}
