package main

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	byteslice "github.com/Akron/byteslice-go"
)

var errConfig = errors.New("invalid config")

// Config is the bsscan configuration file.
type Config struct {
	Data DataConfig `toml:"data"`
	Scan ScanConfig `toml:"scan"`
	Log  LogConfig  `toml:"log"`
}

// DataConfig selects the scanned column.
type DataConfig struct {
	// Input is a column or text file; empty generates Tuples random codes.
	Input    string `toml:"input"`
	Output   string `toml:"output"`
	Encoding string `toml:"encoding"`
	Tuples   int    `toml:"tuples"`
	BitWidth int    `toml:"bit_width"`
	Seed     int64  `toml:"seed"`
	// HugePages backs generated planes with transparent huge pages.
	HugePages bool `toml:"huge_pages"`
}

// ScanConfig describes the predicate and how it is executed.
type ScanConfig struct {
	Combinator       string            `toml:"combinator"`
	Predicates       []PredicateConfig `toml:"predicates"`
	Workers          int               `toml:"workers"`
	PrefetchDistance int               `toml:"prefetch_distance"`
	Writer           string            `toml:"writer"`
	EarlyStop        bool              `toml:"early_stop"`
	Bind             bool              `toml:"bind"`
	Repeat           int               `toml:"repeat"`
	Verify           bool              `toml:"verify"`
}

// PredicateConfig is one comparison, e.g. {cmp = ">", value = 2233}.
type PredicateConfig struct {
	Cmp   string `toml:"cmp"`
	Value uint32 `toml:"value"`
}

// DefaultConfig returns the l_shipdate range query configuration:
// 12-bit codes, value > 2233 AND value < 2326.
func DefaultConfig() Config {
	return Config{
		Data: DataConfig{
			Encoding: "packed",
			Tuples:   60490115,
			BitWidth: 12,
			Seed:     42,
		},
		Scan: ScanConfig{
			Combinator: "and",
			Predicates: []PredicateConfig{
				{Cmp: ">", Value: 2233},
				{Cmp: "<", Value: 2326},
			},
			Workers:          runtime.NumCPU(),
			PrefetchDistance: byteslice.DefaultPrefetchDistance,
			Writer:           "stream",
			EarlyStop:        true,
			Bind:             true,
			Repeat:           1,
			Verify:           true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    512,
			MaxBackups: 0,
		},
	}
}

// LoadConfig decodes path over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%w: %s: unknown keys %s", errConfig, path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks the configuration without touching any data.
func (c *Config) Validate() error {
	if c.Data.Input == "" {
		if c.Data.Tuples < 0 {
			return fmt.Errorf("%w: negative tuple count %d", errConfig, c.Data.Tuples)
		}
		if _, err := byteslice.NewLayout(c.Data.BitWidth, c.Data.Tuples); err != nil {
			return err
		}
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", errConfig, c.Scan.Workers)
	}
	if c.Scan.Repeat < 1 {
		return fmt.Errorf("%w: repeat must be positive, got %d", errConfig, c.Scan.Repeat)
	}
	if _, err := c.writer(); err != nil {
		return err
	}
	if _, err := byteslice.ParseEncoding(c.Data.Encoding); err != nil {
		return err
	}
	if _, err := byteslice.ParseCombinator(c.Scan.Combinator); err != nil {
		return err
	}
	if _, err := c.predicates(); err != nil {
		return err
	}
	return nil
}

func (c *Config) predicates() ([]byteslice.Predicate, error) {
	if len(c.Scan.Predicates) == 0 {
		return nil, fmt.Errorf("%w: no predicates", byteslice.ErrInvalidPredicate)
	}
	preds := make([]byteslice.Predicate, len(c.Scan.Predicates))
	for i, p := range c.Scan.Predicates {
		cmp, err := byteslice.ParseComparator(p.Cmp)
		if err != nil {
			return nil, fmt.Errorf("predicate %d: %w", i, err)
		}
		preds[i] = byteslice.Predicate{Cmp: cmp, Value: p.Value}
	}
	return preds, nil
}

func (c *Config) writer() (byteslice.Writer, error) {
	switch strings.ToLower(c.Scan.Writer) {
	case "", "plain":
		return byteslice.PlainWriter, nil
	case "stream":
		return byteslice.StreamWriter, nil
	}
	return nil, fmt.Errorf("%w: unknown writer %q", errConfig, c.Scan.Writer)
}

// options returns the scan options; stats receives the kernel counters.
func (c *Config) options(stats *byteslice.Stats) ([]byteslice.Option, error) {
	w, err := c.writer()
	if err != nil {
		return nil, err
	}
	opts := []byteslice.Option{
		byteslice.WithWriter(w),
		byteslice.WithPrefetchDistance(c.Scan.PrefetchDistance),
		byteslice.WithStats(stats),
	}
	if !c.Scan.EarlyStop {
		opts = append(opts, byteslice.WithoutEarlyStop())
	}
	return opts, nil
}
