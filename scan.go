package byteslice

import "fmt"

// Predicate compares every code of a column with Value.
type Predicate struct {
	Cmp   Comparator
	Value uint32
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %d", p.Cmp, p.Value)
}

// Scan evaluates preds, joined by op, over all tuples of col and writes the
// result into bitmap: bit i%64 of word i/64 is set when tuple i matches.
// bitmap must hold at least BitmapWords(col.Len()) words. Bits past the last
// tuple in the final word are unspecified.
//
// All arguments are validated before anything is written; on error bitmap
// is left untouched.
func Scan(bitmap []uint64, col *Column, preds []Predicate, op Combinator, opts ...Option) error {
	if col == nil {
		return fmt.Errorf("%w: column is nil", ErrNilBuffer)
	}
	return ScanRange(bitmap, col, preds, op, 0, col.Len(), opts...)
}

// ScanRange is Scan restricted to tuples [start, end). start must be a
// multiple of WordBits so that the range owns whole bitmap words; only words
// start/64 through (end-1)/64 are written. Disjoint ranges may be scanned
// concurrently into the same bitmap.
func ScanRange(bitmap []uint64, col *Column, preds []Predicate, op Combinator, start, end int, opts ...Option) error {
	s, err := newScanner(bitmap, col, preds, op, start, end, newOptions(opts))
	if err != nil {
		return err
	}
	s.run(start, end)
	return nil
}

// maxPredicates bounds the predicate list so that scanner state stays on a
// fixed-size array.
const maxPredicates = 16

// scanner holds the validated, decomposed inputs of one scan call.
type scanner struct {
	bitmap    []uint64
	planes    [][]byte
	byteCount int
	op        Combinator
	preds     []Predicate
	lits      []Literal
	states    []triState
	opts      options

	litStore   [maxPredicates]Literal
	stateStore [maxPredicates]triState

	batches     int64
	refinements int64
	earlyStops  int64
}

func newScanner(bitmap []uint64, col *Column, preds []Predicate, op Combinator, start, end int, opts options) (*scanner, error) {
	if err := validateScan(bitmap, col, preds, op, start, end); err != nil {
		return nil, err
	}
	s := &scanner{
		bitmap:    bitmap,
		planes:    col.planes,
		byteCount: col.layout.ByteCount,
		op:        op,
		preds:     preds,
		opts:      opts,
	}
	for i, p := range preds {
		lit, err := NewLiteral(p.Value, col.layout.BitWidth)
		if err != nil {
			return nil, fmt.Errorf("predicate %d (%s): %w", i, p, err)
		}
		s.litStore[i] = lit
	}
	s.lits = s.litStore[:len(preds)]
	s.states = s.stateStore[:len(preds)]
	return s, nil
}

// validateScan performs every check a scan needs before touching bitmap.
func validateScan(bitmap []uint64, col *Column, preds []Predicate, op Combinator, start, end int) error {
	if col == nil {
		return fmt.Errorf("%w: column is nil", ErrNilBuffer)
	}
	if err := col.validate(); err != nil {
		return err
	}
	if len(preds) == 0 {
		return fmt.Errorf("%w: no predicates", ErrInvalidPredicate)
	}
	if len(preds) > maxPredicates {
		return fmt.Errorf("%w: %d predicates (max %d)", ErrInvalidPredicate, len(preds), maxPredicates)
	}
	for i, p := range preds {
		if !p.Cmp.valid() {
			return fmt.Errorf("%w: predicate %d has %s", ErrInvalidPredicate, i, p.Cmp)
		}
		if !col.layout.fits(p.Value) {
			return fmt.Errorf("%w: predicate %d literal %d exceeds bit width %d",
				ErrInvalidPredicate, i, p.Value, col.layout.BitWidth)
		}
	}
	if !op.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidCombinator, op)
	}
	if start < 0 || end > col.n || start > end {
		return fmt.Errorf("%w: range [%d,%d) outside column of %d tuples", ErrLayoutMismatch, start, end, col.n)
	}
	if start%WordBits != 0 {
		return fmt.Errorf("%w: range start %d is not a multiple of %d", ErrLayoutMismatch, start, WordBits)
	}
	if start == end {
		return nil
	}
	if bitmap == nil {
		return fmt.Errorf("%w: bitmap is nil", ErrNilBuffer)
	}
	if need := BitmapWords(end); len(bitmap) < need {
		return fmt.Errorf("%w: bitmap has %d words, need %d", ErrLayoutMismatch, len(bitmap), need)
	}
	return nil
}

// run scans [start, end) word by word. Each word collects batchesPerWord
// batches and is written exactly once, in increasing order.
func (s *scanner) run(start, end int) {
	if start == end {
		return
	}
	w := s.opts.writer
	prefetch := s.opts.prefetchDistance
	plane0 := s.planes[0]
	words := int64(0)
	for off := start; off < end; off += WordBits {
		var word uint64
		for k := 0; k < WordBits && off+k < end; k += Lanes {
			pos := off + k
			if prefetch > 0 {
				prefetchPlane(plane0, pos+prefetch)
			}
			word |= uint64(s.batch(pos)) << k
		}
		w.Write(s.bitmap, off/WordBits, word)
		words++
	}
	w.Flush()

	if st := s.opts.stats; st != nil {
		st.Batches.Add(s.batches)
		st.Refinements.Add(s.refinements)
		st.EarlyStops.Add(s.earlyStops)
		st.Words.Add(words)
	}
}

// batch evaluates Lanes tuples starting at pos and returns one bit per lane.
func (s *scanner) batch(pos int) uint32 {
	s.batches++
	data := loadVec(s.planes[0], pos)
	for i := range s.states {
		s.states[i].first(data, s.lits[i].slices[0], s.preds[i].Cmp)
	}
	for b := 1; b < s.byteCount; b++ {
		if s.opts.earlyStop && s.pending().isZero() {
			s.earlyStops++
			break
		}
		data = loadVec(s.planes[b], pos)
		for i := range s.states {
			s.states[i].refine(data, s.lits[i].slices[b], s.preds[i].Cmp)
		}
		s.refinements++
	}
	result := s.states[0].resolve(s.preds[0].Cmp)
	for i := 1; i < len(s.states); i++ {
		result = combine(s.op, result, s.states[i].resolve(s.preds[i].Cmp))
	}
	return result.bits()
}

// pending returns the lanes whose combined outcome could still change.
func (s *scanner) pending() mask {
	agg := s.states[0].agg()
	for i := 1; i < len(s.states); i++ {
		agg = aggregate(s.op, agg, s.states[i].agg())
	}
	return agg.equal
}
