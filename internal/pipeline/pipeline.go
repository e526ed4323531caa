package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/observe-l/rlcdecode/fec"
)

// Options configures a Pipeline.
type Options struct {
	Workers    int // decode goroutines, must be positive
	Logger     *logrus.Logger
	Registerer prometheus.Registerer // nil disables registration
}

// Result is the outcome of one block. Symbols is nil when Err is set.
type Result struct {
	Index   int
	Symbols [][]byte
	Stats   fec.DecodeStats
	Err     error
}

// Pipeline decodes independent blocks on a bounded pool of goroutines.
type Pipeline struct {
	workers int
	log     *logrus.Logger
	metrics *metrics
}

// New returns a Pipeline. It fails if opts.Workers is not positive or the
// metrics cannot be registered.
func New(opts Options) (*Pipeline, error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("pipeline: worker count must be positive, got %d", opts.Workers)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	m := newMetrics()
	if opts.Registerer != nil {
		if err := m.register(opts.Registerer); err != nil {
			return nil, fmt.Errorf("pipeline: register metrics: %w", err)
		}
	}
	return &Pipeline{workers: opts.Workers, log: opts.Logger, metrics: m}, nil
}

// Workers returns the configured pool size.
func (p *Pipeline) Workers() int { return p.workers }

// Run decodes every block and returns one Result per block, in input order.
// A failing block does not stop the others. Blocks not started before ctx is
// done get ctx.Err() as their error.
func (p *Pipeline) Run(ctx context.Context, blocks []*fec.Block) []Result {
	results := make([]Result, len(blocks))
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Index: i, Err: err}
			continue
		}
		g.Go(func() error {
			// each slot is written by exactly one goroutine
			results[i] = p.decode(ctx, i, b)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) decode(ctx context.Context, i int, b *fec.Block) Result {
	if err := ctx.Err(); err != nil {
		return Result{Index: i, Err: err}
	}
	t0 := time.Now()
	out, stats, err := fec.DecodeWithStats(b)
	p.metrics.duration.Observe(time.Since(t0).Seconds())
	fields := logrus.Fields{
		"block":       i,
		"received":    stats.Received,
		"lost":        stats.Lost,
		"repair_used": stats.RepairUsed,
		"elapsed":     stats.Elapsed,
	}
	if err != nil {
		p.metrics.failed.WithLabelValues(failureReason(err)).Inc()
		p.log.WithFields(fields).WithError(err).Debug("block decode failed")
		return Result{Index: i, Stats: stats, Err: err}
	}
	p.metrics.decoded.Inc()
	p.metrics.recovered.Add(float64(stats.Lost))
	p.log.WithFields(fields).Debug("block decoded")
	return Result{Index: i, Symbols: out, Stats: stats}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, fec.ErrSingular):
		return "singular"
	case errors.Is(err, fec.ErrMalformed):
		return "malformed"
	default:
		return "other"
	}
}
