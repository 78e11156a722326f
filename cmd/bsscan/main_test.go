package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	byteslice "github.com/Akron/byteslice-go"
	"github.com/Akron/byteslice-go/internal/affinity"
	"github.com/Akron/byteslice-go/internal/dataset"
)

func smallConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Data.Tuples = 10_000
	cfg.Scan.Workers = 3
	cfg.Scan.Repeat = 2
	cfg.Data.Output = filepath.Join(t.TempDir(), "col.bsc.zst")
	return cfg
}

func TestRun(t *testing.T) {
	for _, writer := range []string{"plain", "stream"} {
		t.Run(writer, func(t *testing.T) {
			cfg := smallConfig(t)
			cfg.Scan.Writer = writer
			require.NoError(t, cfg.Validate())
			require.NoError(t, run(context.Background(), cfg, zap.NewNop()))

			col, err := dataset.Load(cfg.Data.Output, 12)
			require.NoError(t, err)
			assert.Equal(t, 10_000, col.Len())
		})
	}
}

func TestRunInput(t *testing.T) {
	cfg := smallConfig(t)
	codes := []uint32{1996, 2000, 2300, 2325, 2326, 3000}
	col, err := byteslice.NewColumn(codes, 12)
	require.NoError(t, err)
	cfg.Data.Input = filepath.Join(t.TempDir(), "shipdate.txt")
	require.NoError(t, dataset.Save(cfg.Data.Input, col, byteslice.EncodingPacked))

	require.NoError(t, run(context.Background(), cfg, zap.NewNop()))
}

func TestRunEmpty(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Data.Tuples = 0
	cfg.Data.Output = ""
	require.NoError(t, run(context.Background(), cfg, zap.NewNop()))
}

func TestRunLogsFailedPinning(t *testing.T) {
	failBind := errors.New("no such cpu")
	defer func(orig func(int) error) { bindWorker = orig }(bindWorker)
	bindWorker = func(w int) error {
		_ = affinity.Bind(w)
		return failBind
	}

	core, logs := observer.New(zap.DebugLevel)
	cfg := smallConfig(t)
	cfg.Scan.Bind = true
	cfg.Scan.Repeat = 1
	cfg.Data.Output = ""
	require.NoError(t, run(context.Background(), cfg, zap.New(core)))

	pinned := logs.FilterMessage("worker not pinned").All()
	// once per partition while filling, once per partition while scanning
	assert.Len(t, pinned, 2*len(byteslice.Partitions(cfg.Data.Tuples, cfg.Scan.Workers)))
	for _, e := range pinned {
		assert.Equal(t, failBind.Error(), e.ContextMap()["error"])
	}
}

func TestEvalScalar(t *testing.T) {
	preds := []byteslice.Predicate{
		{Cmp: byteslice.Greater, Value: 2233},
		{Cmp: byteslice.Less, Value: 2326},
	}
	want := []bool{false, false, true, true, false, false}
	for i, code := range []uint32{1996, 2000, 2300, 2325, 2326, 3000} {
		assert.Equal(t, want[i], evalScalar(code, preds, byteslice.And), "code %d", code)
	}
	assert.True(t, evalScalar(3000, preds, byteslice.Or))
}
