package encoder

import (
	"errors"
	"testing"

	"nprint.dev/nprint/internal/core"
)

func rowIsAllNA(row core.BitRow) bool {
	for _, b := range row {
		if b != core.NA {
			return false
		}
	}
	return true
}

func TestAggregatePadsToK(t *testing.T) {
	e := newTestEncoder(t)
	agg, err := NewAggregator(e, 5, false)
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}

	pkts := []core.RawPacket{
		{Data: makeIPv4TCPPacket()},
		{Data: makeIPv4TCPPacket()},
	}
	m, err := agg.Aggregate(pkts)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if m.K() != 5 {
		t.Fatalf("Expected 5 rows, got %d", m.K())
	}
	for i, row := range m.Rows {
		if len(row) != e.Schema().TotalWidth() {
			t.Fatalf("Row %d: expected width %d, got %d", i, e.Schema().TotalWidth(), len(row))
		}
	}
	if rowIsAllNA(m.Rows[0]) || rowIsAllNA(m.Rows[1]) {
		t.Error("Observed packets must not encode as all-NA rows")
	}
	for i := 2; i < 5; i++ {
		if !rowIsAllNA(m.Rows[i]) {
			t.Errorf("Padding row %d must be all-NA", i)
		}
	}
}

func TestAggregateIgnoresPacketsBeyondK(t *testing.T) {
	e := newTestEncoder(t)
	agg, err := NewAggregator(e, 2, false)
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}

	pkts := make([]core.RawPacket, 6)
	for i := range pkts {
		pkts[i] = core.RawPacket{Data: makeIPv4TCPPacket()}
	}
	m, err := agg.Aggregate(pkts)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if m.K() != 2 {
		t.Errorf("Expected 2 rows, got %d", m.K())
	}
}

// A malformed packet becomes an all-NA row without disturbing its neighbors.
func TestAggregateMalformedPacketIsolation(t *testing.T) {
	e := newTestEncoder(t)
	agg, err := NewAggregator(e, 3, false)
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}

	good := makeIPv4TCPPacket()
	pkts := []core.RawPacket{
		{Data: good},
		{Data: good[:12]}, // truncated IPv4 header
		{Data: good},
	}
	m, err := agg.Aggregate(pkts)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if rowIsAllNA(m.Rows[0]) {
		t.Error("Row 0 should carry the valid packet's bits")
	}
	if !rowIsAllNA(m.Rows[1]) {
		t.Error("Row 1 should be all-NA for the malformed packet")
	}
	if rowIsAllNA(m.Rows[2]) {
		t.Error("Row 2 should carry the valid packet's bits")
	}

	// Valid rows are identical to a direct encode of the same bytes.
	want, err := e.Encode(core.RawPacket{Data: good})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for c := range want {
		if m.Rows[0][c] != want[c] || m.Rows[2][c] != want[c] {
			t.Fatalf("Valid rows diverge from direct encode at column %d", c)
		}
	}
}

func TestAggregatePacketErrorHook(t *testing.T) {
	e := newTestEncoder(t)

	var seen []error
	agg, err := NewAggregator(e, 3, false, WithPacketErrorHook(func(err error) {
		seen = append(seen, err)
	}))
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}

	pkts := []core.RawPacket{
		{Data: makeIPv4TCPPacket()},
		{Data: makeIPv4TCPPacket()[:12]},
	}
	if _, err := agg.Aggregate(pkts); err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("Expected 1 hook invocation, got %d", len(seen))
	}
	if !errors.Is(seen[0], core.ErrMalformedHeader) {
		t.Errorf("Expected ErrMalformedHeader in hook, got %v", seen[0])
	}
}

func TestAggregateStrictModePropagates(t *testing.T) {
	e := newTestEncoder(t)
	agg, err := NewAggregator(e, 3, true)
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}

	pkts := []core.RawPacket{
		{Data: makeIPv4TCPPacket()},
		{Data: makeIPv4TCPPacket()[:12]},
	}
	_, err = agg.Aggregate(pkts)
	if !errors.Is(err, core.ErrMalformedHeader) {
		t.Errorf("Expected ErrMalformedHeader in strict mode, got %v", err)
	}
}

func TestAggregateEmptyConnection(t *testing.T) {
	e := newTestEncoder(t)
	agg, err := NewAggregator(e, 4, false)
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}

	m, err := agg.Aggregate(nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if m.K() != 4 {
		t.Fatalf("Expected 4 rows, got %d", m.K())
	}
	for i, row := range m.Rows {
		if !rowIsAllNA(row) {
			t.Errorf("Row %d must be all-NA for an empty connection", i)
		}
	}
}

func TestNewAggregatorRejectsInvalidK(t *testing.T) {
	e := newTestEncoder(t)

	for _, k := range []int{0, -1} {
		_, err := NewAggregator(e, k, false)
		if !errors.Is(err, core.ErrConfigInvalid) {
			t.Errorf("k=%d: expected ErrConfigInvalid, got %v", k, err)
		}
	}
}

func TestNewAggregatorRejectsNilEncoder(t *testing.T) {
	_, err := NewAggregator(nil, 1, false)
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid, got %v", err)
	}
}
