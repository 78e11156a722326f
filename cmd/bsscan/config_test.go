package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	byteslice "github.com/Akron/byteslice-go"
)

const testConfig = `
[data]
tuples = 1000
bit_width = 17
seed = 7
encoding = "streamvbyte"

[scan]
combinator = "or"
workers = 3
prefetch_distance = 0
writer = "plain"
early_stop = false
bind = false
repeat = 2

[[scan.predicates]]
cmp = "<="
value = 100

[[scan.predicates]]
cmp = "ge"
value = 120000

[log]
level = "debug"
format = "json"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bsscan.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	assert := assert.New(t)

	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(1000, cfg.Data.Tuples)
	assert.Equal(17, cfg.Data.BitWidth)
	assert.Equal(int64(7), cfg.Data.Seed)
	assert.Equal(3, cfg.Scan.Workers)
	assert.Equal(0, cfg.Scan.PrefetchDistance)
	assert.False(cfg.Scan.EarlyStop)
	assert.False(cfg.Scan.Bind)
	assert.True(cfg.Scan.Verify, "unset keys keep their defaults")
	assert.Equal("json", cfg.Log.Format)

	preds, err := cfg.predicates()
	require.NoError(t, err)
	assert.Equal([]byteslice.Predicate{
		{Cmp: byteslice.LessEqual, Value: 100},
		{Cmp: byteslice.GreaterEqual, Value: 120000},
	}, preds)

	w, err := cfg.writer()
	require.NoError(t, err)
	assert.Equal(byteslice.PlainWriter, w)
}

func TestLoadConfigUnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "[scan]\nthreads = 4\n"))
	assert.ErrorIs(t, err, errConfig)
	assert.Contains(t, err.Error(), "scan.threads")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	preds, err := cfg.predicates()
	require.NoError(t, err)
	assert.Equal(t, "> 2233 AND < 2326", describe(preds, byteslice.And))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"width", func(c *Config) { c.Data.BitWidth = 33 }, byteslice.ErrInvalidWidth},
		{"tuples", func(c *Config) { c.Data.Tuples = -1 }, errConfig},
		{"workers", func(c *Config) { c.Scan.Workers = 0 }, errConfig},
		{"repeat", func(c *Config) { c.Scan.Repeat = 0 }, errConfig},
		{"writer", func(c *Config) { c.Scan.Writer = "mmap" }, errConfig},
		{"encoding", func(c *Config) { c.Data.Encoding = "gzip" }, byteslice.ErrInvalidBuffer},
		{"combinator", func(c *Config) { c.Scan.Combinator = "xor" }, byteslice.ErrInvalidCombinator},
		{"comparator", func(c *Config) { c.Scan.Predicates[0].Cmp = "~" }, byteslice.ErrInvalidPredicate},
		{"no predicates", func(c *Config) { c.Scan.Predicates = nil }, byteslice.ErrInvalidPredicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestParseFlags(t *testing.T) {
	path := writeConfig(t, testConfig)
	fs := flag.NewFlagSet("bsscan", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-config", path,
		"-tuples", "4096",
		"-workers", "2",
		"-no-verify",
		"-writer", "stream",
	})
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.Data.Tuples)
	assert.Equal(t, 17, cfg.Data.BitWidth, "config value kept when flag unset")
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.False(t, cfg.Scan.Verify)
	assert.Equal(t, "stream", cfg.Scan.Writer)
	assert.Equal(t, 2, cfg.Scan.Repeat)
}

func TestParseFlagsInvalid(t *testing.T) {
	fs := flag.NewFlagSet("bsscan", flag.ContinueOnError)
	_, err := parseFlags(fs, []string{"-width", "0"})
	assert.ErrorIs(t, err, byteslice.ErrInvalidWidth)
}
