// Command bsscan measures a byte-sliced compound predicate scan.
//
// It builds or loads a column, scans it with one pinned worker per
// partition, reports timing and kernel counters, verifies the bitmap against
// a scalar evaluation, and optionally saves the column.
//
// Usage:
//
//	bsscan [-config bsscan.toml] [-tuples N] [-width B] [-workers W] ...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	byteslice "github.com/Akron/byteslice-go"
	"github.com/Akron/byteslice-go/internal/affinity"
	"github.com/Akron/byteslice-go/internal/dataset"
	"github.com/Akron/byteslice-go/internal/mem"
	"github.com/Akron/byteslice-go/internal/monitor"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "bsscan:", err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bsscan:", err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scan failed", zap.Error(err))
		os.Exit(1)
	}
}

// parseFlags loads the config file named by -config and applies the flags
// that were set explicitly on top of it.
func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	var (
		configPath = fs.String("config", "", "TOML configuration file")
		input      = fs.String("input", "", "column or text file to scan instead of generated codes")
		output     = fs.String("output", "", "save the scanned column to this file")
		encoding   = fs.String("encoding", "", "column encoding for -output: packed or streamvbyte")
		tuples     = fs.Int("tuples", 0, "number of generated tuples")
		width      = fs.Int("width", 0, "code bit width (1-32)")
		seed       = fs.Int64("seed", 0, "seed for generated codes")
		huge       = fs.Bool("huge", false, "back generated planes with huge pages")
		workers    = fs.Int("workers", 0, "number of scan workers")
		prefetch   = fs.Int("prefetch", 0, "prefetch distance in bytes (0 disables)")
		writer     = fs.String("writer", "", "bitmap writer: plain or stream")
		noEarly    = fs.Bool("no-early-stop", false, "evaluate every byte slice")
		noBind     = fs.Bool("no-bind", false, "do not pin workers to CPUs")
		repeat     = fs.Int("repeat", 0, "number of measured scans")
		noVerify   = fs.Bool("no-verify", false, "skip scalar verification")
		logLevel   = fs.String("log-level", "", "log level")
		logFormat  = fs.String("log-format", "", "log format: console or json")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			return cfg, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Data.Input = *input
		case "output":
			cfg.Data.Output = *output
		case "encoding":
			cfg.Data.Encoding = *encoding
		case "tuples":
			cfg.Data.Tuples = *tuples
		case "width":
			cfg.Data.BitWidth = *width
		case "seed":
			cfg.Data.Seed = *seed
		case "huge":
			cfg.Data.HugePages = *huge
		case "workers":
			cfg.Scan.Workers = *workers
		case "prefetch":
			cfg.Scan.PrefetchDistance = *prefetch
		case "writer":
			cfg.Scan.Writer = *writer
		case "no-early-stop":
			cfg.Scan.EarlyStop = !*noEarly
		case "no-bind":
			cfg.Scan.Bind = !*noBind
		case "repeat":
			cfg.Scan.Repeat = *repeat
		case "no-verify":
			cfg.Scan.Verify = !*noVerify
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		}
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// run executes the phases in order. Each errgroup Wait is the barrier
// between two phases.
func run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	preds, err := cfg.predicates()
	if err != nil {
		return err
	}
	op, err := byteslice.ParseCombinator(cfg.Scan.Combinator)
	if err != nil {
		return err
	}
	var stats byteslice.Stats
	opts, err := cfg.options(&stats)
	if err != nil {
		return err
	}

	col, release, err := buildColumn(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			logger.Warn("release planes", zap.Error(err))
		}
	}()

	n := col.Len()
	parts := byteslice.Partitions(n, cfg.Scan.Workers)
	logger.Info("column ready",
		zap.Int("tuples", n),
		zap.Int("bitWidth", col.BitWidth()),
		zap.Int("planes", col.Layout().ByteCount),
		zap.Int("partitions", len(parts)),
		zap.String("predicate", describe(preds, op)),
		zap.Bool("streamStores", byteslice.IsStreamAvailable()))

	// touching every word up front keeps page faults out of the measurement
	bitmap := make([]uint64, byteslice.BitmapWords(n))
	for i := range bitmap {
		bitmap[i] = 0
	}

	for r := range cfg.Scan.Repeat {
		stats.Reset()
		report, err := measure(ctx, cfg, logger, col, bitmap, parts, preds, op, opts)
		if err != nil {
			return err
		}
		for _, w := range report.Workers {
			logger.Debug("worker",
				zap.Int("run", r),
				zap.Int("worker", w.Worker),
				zap.Stringer("partition", parts[w.Worker]),
				zap.Duration("wall", w.Wall),
				zap.Duration("cpu", w.CPU))
		}
		logger.Info("scan",
			zap.Int("run", r),
			zap.Duration("maxWall", report.MaxWall),
			zap.Duration("meanWall", report.MeanWall),
			zap.Duration("cpu", report.TotalCPU),
			zap.Float64("codesPerNs", report.CodesPerNs(n)),
			zap.Int64("batches", stats.Batches.Load()),
			zap.Int64("refinements", stats.Refinements.Load()),
			zap.Int64("earlyStops", stats.EarlyStops.Load()),
			zap.Int64("words", stats.Words.Load()))
	}

	selected := byteslice.Count(bitmap, n)
	rb := byteslice.ToRoaring(bitmap, n)
	logger.Info("result",
		zap.Int("selected", selected),
		zap.Float64("selectivity", ratio(selected, n)),
		zap.Uint64("roaringCardinality", rb.GetCardinality()),
		zap.Uint64("roaringBytes", rb.GetSizeInBytes()))

	if cfg.Scan.Verify {
		if err := verify(ctx, col, bitmap, parts, preds, op); err != nil {
			return err
		}
		logger.Info("verified", zap.Int("tuples", n))
	}

	if cfg.Data.Output != "" {
		enc, err := byteslice.ParseEncoding(cfg.Data.Encoding)
		if err != nil {
			return err
		}
		if err := dataset.Save(cfg.Data.Output, col, enc); err != nil {
			return err
		}
		logger.Info("saved column", zap.String("path", cfg.Data.Output), zap.Stringer("encoding", enc))
	}
	return nil
}

// buildColumn loads the input file, or allocates planes and fills them with
// generated codes in parallel.
func buildColumn(ctx context.Context, cfg Config, logger *zap.Logger) (*byteslice.Column, func() error, error) {
	noop := func() error { return nil }
	if cfg.Data.Input != "" {
		col, err := dataset.Load(cfg.Data.Input, cfg.Data.BitWidth)
		if err != nil {
			return nil, nil, err
		}
		return col, noop, nil
	}

	layout, err := byteslice.NewLayout(cfg.Data.BitWidth, cfg.Data.Tuples)
	if err != nil {
		return nil, nil, err
	}
	planes, err := mem.AllocPlanes(layout.ByteCount, layout.Stride, cfg.Data.HugePages)
	if err != nil && cfg.Data.HugePages {
		logger.Warn("huge pages unavailable, using regular pages", zap.Error(err))
		planes, err = mem.AllocPlanes(layout.ByteCount, layout.Stride, false)
	}
	if err != nil {
		return nil, nil, err
	}
	col, err := byteslice.NewColumnFromPlanes(planes.Planes, cfg.Data.Tuples, cfg.Data.BitWidth)
	if err != nil {
		_ = planes.Close()
		return nil, nil, err
	}

	g, _ := errgroup.WithContext(ctx)
	for w, p := range byteslice.Partitions(col.Len(), cfg.Scan.Workers) {
		g.Go(func() error {
			if cfg.Scan.Bind {
				defer pinWorker(logger, w)()
			}
			dataset.Fill(col, p.Start, p.End, cfg.Data.Seed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = planes.Close()
		return nil, nil, err
	}
	logger.Debug("planes filled", zap.Bool("hugePages", planes.Huge))
	return col, planes.Close, nil
}

var bindWorker = affinity.Bind

// pinWorker pins the calling goroutine's thread for worker w and returns the
// matching unbind. A failed pin is logged and the worker runs unpinned.
func pinWorker(logger *zap.Logger, w int) func() {
	if err := bindWorker(w); err != nil {
		logger.Debug("worker not pinned", zap.Int("worker", w), zap.Error(err))
	}
	return affinity.Unbind
}

// measure runs one scan with every partition bracketed by the monitor.
func measure(ctx context.Context, cfg Config, logger *zap.Logger, col *byteslice.Column, bitmap []uint64, parts []byteslice.Partition,
	preds []byteslice.Predicate, op byteslice.Combinator, opts []byteslice.Option) (monitor.Report, error) {
	if len(parts) == 0 {
		return monitor.Report{}, nil
	}
	mon := monitor.New(len(parts))
	defer mon.Close()

	g, gctx := errgroup.WithContext(ctx)
	for w, p := range parts {
		g.Go(func() error {
			if cfg.Scan.Bind {
				defer pinWorker(logger, w)()
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := mon.Start(w); err != nil {
				return err
			}
			if err := byteslice.ScanRange(bitmap, col, preds, op, p.Start, p.End, opts...); err != nil {
				return err
			}
			return mon.Stop(w)
		})
	}
	if err := g.Wait(); err != nil {
		return monitor.Report{}, err
	}
	return mon.Report()
}

// verify compares every bitmap bit with a scalar evaluation of the codes.
func verify(ctx context.Context, col *byteslice.Column, bitmap []uint64, parts []byteslice.Partition,
	preds []byteslice.Predicate, op byteslice.Combinator) error {
	g, _ := errgroup.WithContext(ctx)
	for _, p := range parts {
		g.Go(func() error {
			for i := p.Start; i < p.End; i++ {
				want := evalScalar(col.Code(i), preds, op)
				if got := byteslice.Bit(bitmap, i); got != want {
					return fmt.Errorf("tuple %d (code %d): bitmap %t, expected %t", i, col.Code(i), got, want)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func evalScalar(code uint32, preds []byteslice.Predicate, op byteslice.Combinator) bool {
	r := preds[0].Cmp.Eval(code, preds[0].Value)
	for _, p := range preds[1:] {
		r = op.Apply(r, p.Cmp.Eval(code, p.Value))
	}
	return r
}

// describe renders preds joined by op, e.g. "> 2233 AND < 2326".
func describe(preds []byteslice.Predicate, op byteslice.Combinator) string {
	s := preds[0].String()
	for _, p := range preds[1:] {
		s += " " + op.String() + " " + p.String()
	}
	return s
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
