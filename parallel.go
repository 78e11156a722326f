package byteslice

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Partition is a contiguous tuple range [Start, End) whose Start is a
// multiple of WordBits, so partitions never share a bitmap word.
type Partition struct {
	Start int
	End   int
}

// Len returns the number of tuples in p.
func (p Partition) Len() int {
	return p.End - p.Start
}

func (p Partition) String() string {
	return fmt.Sprintf("[%d,%d)", p.Start, p.End)
}

// Partitions splits [0, n) into at most workers contiguous, word-aligned
// ranges of near-equal size. Empty ranges are omitted, so fewer partitions
// than workers are returned for small n.
func Partitions(n, workers int) []Partition {
	if workers < 1 {
		workers = 1
	}
	words := BitmapWords(n)
	if workers > words {
		workers = words
	}
	parts := make([]Partition, 0, workers)
	per, extra := 0, 0
	if workers > 0 {
		per, extra = words/workers, words%workers
	}
	word := 0
	for w := range workers {
		k := per
		if w < extra {
			k++
		}
		start := word * WordBits
		word += k
		end := min(word*WordBits, n)
		parts = append(parts, Partition{Start: start, End: end})
	}
	return parts
}

// ScanParallel runs Scan over Partitions(col.Len(), workers), one goroutine
// per partition, and returns once every partition is done. Arguments are
// validated once before any goroutine starts; ctx is only consulted before a
// partition begins, a running partition scan is never interrupted.
func ScanParallel(ctx context.Context, bitmap []uint64, col *Column, preds []Predicate, op Combinator, workers int, opts ...Option) error {
	if col == nil {
		return fmt.Errorf("%w: column is nil", ErrNilBuffer)
	}
	if err := validateScan(bitmap, col, preds, op, 0, col.Len()); err != nil {
		return err
	}
	parts := Partitions(col.Len(), workers)
	if len(parts) <= 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return Scan(bitmap, col, preds, op, opts...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return ScanRange(bitmap, col, preds, op, p.Start, p.End, opts...)
		})
	}
	return g.Wait()
}
