package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/observe-l/rlcdecode/internal/app"
	"github.com/observe-l/rlcdecode/internal/config"
)

var errFailedInstances = errors.New("some instances could not be decoded")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rlcdecode [flags] input_dir",
		Short: "Decode RLC-encoded instance files over GF(256).",
		Long: `rlcdecode reads every instance file of input_dir, rebuilds the lost
source symbols of each block from the repair symbols, and writes the decoded
messages to a single output stream in file name order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr(), cmd.OutOrStdout())
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !verbose, FullTimestamp: verbose})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func run(ctx context.Context, cfg *config.Config, stderr, stdout io.Writer) error {
	log := newLogger(stderr, cfg.Verbose)
	log.WithFields(logrus.Fields{"threads": cfg.Threads, "input": cfg.InputDir}).Debug("starting decode")

	out := stdout
	var file *outputFile
	if cfg.Output != "" {
		file = &outputFile{path: cfg.Output}
		out = file
	}

	reg := prometheus.NewRegistry()
	d := &app.Decoder{Threads: cfg.Threads, Compress: cfg.Zstd, Log: log, Registry: reg}
	sum, err := d.Run(ctx, cfg.InputDir, out)
	if file != nil {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}
	if err != nil {
		return err
	}
	if cfg.Verbose {
		logMetrics(log, reg)
	}
	log.WithFields(logrus.Fields{"instances": sum.Instances, "decoded": sum.Decoded}).Debug("done")
	if !sum.OK() {
		return fmt.Errorf("%w: %v", errFailedInstances, sum.Failed)
	}
	return nil
}

// outputFile creates its file on the first write, so a run that writes
// nothing leaves an existing file untouched.
type outputFile struct {
	path string
	f    *os.File
}

func (o *outputFile) Write(p []byte) (int, error) {
	if o.f == nil {
		f, err := os.Create(o.path)
		if err != nil {
			return 0, fmt.Errorf("open output file: %w", err)
		}
		o.f = f
	}
	return o.f.Write(p)
}

func (o *outputFile) Close() error {
	if o.f == nil {
		return nil
	}
	return o.f.Close()
}

// logMetrics dumps the pipeline counters at debug level.
func logMetrics(log *logrus.Logger, g prometheus.Gatherer) {
	mfs, err := g.Gather()
	if err != nil {
		log.WithError(err).Debug("gather metrics")
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			entry := log.WithField("metric", mf.GetName())
			for _, lp := range m.GetLabel() {
				entry = entry.WithField(lp.GetName(), lp.GetValue())
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				entry.WithField("value", m.GetCounter().GetValue()).Debug("metric")
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				entry.WithFields(logrus.Fields{"count": h.GetSampleCount(), "sum_seconds": h.GetSampleSum()}).Debug("metric")
			}
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "rlcdecode:", err)
		stop()
		os.Exit(1)
	}
}
