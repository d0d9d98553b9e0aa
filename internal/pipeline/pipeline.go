// Package pipeline implements the capture-to-CSV processing engine.
//
// One run has three phases: collect packets into the flow table, aggregate
// flows into matrices on a worker pool, and write matrices in first-seen
// flow order. Per-packet encoding is stateless, so aggregation fans out
// freely; only the final write is serialized.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/encoder"
	"nprint.dev/nprint/internal/flow"
	"nprint.dev/nprint/internal/log"
	"nprint.dev/nprint/internal/metrics"
	"nprint.dev/nprint/internal/sink/csv"
)

// Source yields network-layer packets until io.EOF.
type Source interface {
	Next() (core.RawPacket, error)
}

// Config contains pipeline configuration.
type Config struct {
	Source     Source
	Aggregator *encoder.Aggregator
	Sink       *csv.Sink
	Workers    int
}

// Pipeline drives one conversion run.
type Pipeline struct {
	source  Source
	agg     *encoder.Aggregator
	sink    *csv.Sink
	workers int
}

// New validates the wiring before any packet work starts.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil || cfg.Aggregator == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source, aggregator and sink", core.ErrConfigInvalid)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", core.ErrConfigInvalid, cfg.Workers)
	}
	return &Pipeline{
		source:  cfg.Source,
		agg:     cfg.Aggregator,
		sink:    cfg.Sink,
		workers: cfg.Workers,
	}, nil
}

// Run executes the conversion. It returns the first error encountered;
// ctx cancellation stops the run between packets and between flows.
func (p *Pipeline) Run(ctx context.Context) error {
	table, err := p.collect(ctx)
	if err != nil {
		return err
	}

	flows := table.Flows()
	log.GetLogger().WithFields(map[string]interface{}{
		"flows":   len(flows),
		"workers": p.workers,
	}).Info("aggregating connections")

	matrices, err := p.aggregate(ctx, flows)
	if err != nil {
		return err
	}

	return p.write(flows, matrices)
}

// collect drains the source into a fresh flow table.
func (p *Pipeline) collect(ctx context.Context) (*flow.Table, error) {
	table, err := flow.NewTable(p.agg.K())
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pkt, err := p.source.Next()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, err
		}

		metrics.PacketsReadTotal.Inc()
		if !table.Add(pkt) {
			metrics.PacketsUnkeyedTotal.Inc()
		}
	}
}

// aggregate fans flows out to the worker pool. Results land at their flow's
// index so output order stays deterministic regardless of scheduling.
func (p *Pipeline) aggregate(ctx context.Context, flows []*flow.Flow) ([]core.Matrix, error) {
	matrices := make([]core.Matrix, len(flows))
	jobs := make(chan int)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				start := time.Now()
				m, err := p.agg.Aggregate(flows[idx].Packets)
				if err != nil {
					fail(fmt.Errorf("flow %s: %w", flows[idx].Key, err))
					return
				}
				metrics.AggregateLatencySeconds.Observe(time.Since(start).Seconds())
				metrics.FlowsAggregatedTotal.Inc()
				matrices[idx] = m
			}
		}()
	}

feed:
	for idx := range flows {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matrices, nil
}

// write streams matrices to the sink in flow order.
func (p *Pipeline) write(flows []*flow.Flow, matrices []core.Matrix) error {
	for idx, f := range flows {
		if err := p.sink.WriteMatrix(&f.Key, matrices[idx]); err != nil {
			return err
		}
		metrics.RowsEncodedTotal.Add(float64(matrices[idx].K()))
	}
	return p.sink.Flush()
}
