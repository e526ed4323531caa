package app

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/observe-l/rlcdecode/fec"
	"github.com/observe-l/rlcdecode/internal/instance"
	"github.com/observe-l/rlcdecode/internal/output"
	"github.com/observe-l/rlcdecode/internal/pipeline"
)

// Summary reports what a run did.
type Summary struct {
	Instances int
	Decoded   int
	Failed    []string // names of instances that could not be read or decoded
}

// OK reports whether every instance was decoded.
func (s Summary) OK() bool { return len(s.Failed) == 0 }

// Decoder runs the whole decode of an input directory.
type Decoder struct {
	Threads  int
	Compress bool
	Log      *logrus.Logger
	Registry prometheus.Registerer
}

// Run decodes every instance of inputDir and writes the messages to w in
// discovery order. Failed instances are logged and skipped; the returned
// error is reserved for problems that stop the whole run.
func (d *Decoder) Run(ctx context.Context, inputDir string, w io.Writer) (Summary, error) {
	var sum Summary
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	p, err := pipeline.New(pipeline.Options{Workers: d.Threads, Logger: log, Registerer: d.Registry})
	if err != nil {
		return sum, err
	}
	paths, err := instance.Discover(inputDir)
	if err != nil {
		return sum, err
	}
	sum.Instances = len(paths)

	// parsing happens before any block reaches a worker
	var (
		insts  []*instance.Instance
		blocks []*fec.Block
		first  []int // index in blocks of each instance's first block
	)
	for _, path := range paths {
		inst, err := instance.Read(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("cannot read instance")
			sum.Failed = append(sum.Failed, path)
			continue
		}
		log.WithFields(logrus.Fields{
			"instance": inst.Name,
			"seed":     inst.Header.Seed,
			"blocks":   len(inst.Blocks),
			"size":     humanize.Bytes(inst.Header.MessageSize),
		}).Debug("instance loaded")
		insts = append(insts, inst)
		first = append(first, len(blocks))
		blocks = append(blocks, inst.Blocks...)
	}

	results := p.Run(ctx, blocks)
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	ow, err := output.NewWriter(w, d.Compress)
	if err != nil {
		return sum, err
	}
	for i, inst := range insts {
		msg, err := assemble(inst, results[first[i]:first[i]+len(inst.Blocks)])
		if err != nil {
			log.WithError(err).WithField("instance", inst.Name).Warn("cannot decode instance")
			sum.Failed = append(sum.Failed, inst.Name)
			continue
		}
		if err := ow.WriteRecord(inst.Name, msg); err != nil {
			return sum, fmt.Errorf("write %s: %w", inst.Name, err)
		}
		sum.Decoded++
		log.WithFields(logrus.Fields{"instance": inst.Name, "size": humanize.Bytes(uint64(len(msg)))}).Debug("instance written")
	}
	if err := ow.Close(); err != nil {
		return sum, fmt.Errorf("flush output: %w", err)
	}
	return sum, nil
}

func assemble(inst *instance.Instance, results []pipeline.Result) ([]byte, error) {
	decoded := make([][][]byte, len(results))
	for j, r := range results {
		if r.Err != nil {
			return nil, fmt.Errorf("block %d: %w", j, r.Err)
		}
		decoded[j] = r.Symbols
	}
	return inst.Assemble(decoded)
}
