// Package byteslice evaluates compound comparison predicates over columns of
// fixed-width unsigned codes stored in a byte-sliced layout.
//
// A column of b-bit codes (1 <= b <= 32) is split into ceil(b/8) byte planes.
// Plane 0 holds the most significant byte of every code, left-aligned in its
// byte container, and every byte is stored with its top bit flipped so that a
// signed byte comparison orders bytes like their unsigned originals. A scan
// compares 32 tuples at a time (one lane per tuple), plane by plane, and stops
// loading further planes as soon as every lane's combined outcome is settled.
// Results are written as an LSB-ordered bitmap of 64-bit words.
//
// The scan kernel is single-threaded, allocation-free per batch and keeps no
// state between calls; disjoint word ranges of the same column may be scanned
// concurrently. The package maintains no global mutable state besides the
// CPU feature selection performed at init.
package byteslice

import (
	"encoding/binary"
	"errors"
)

// Kernel geometry.
const (
	// Lanes is the number of tuples compared per batch (one byte lane each).
	Lanes = 32
	// WordBits is the number of tuples covered by one bitmap word.
	WordBits = 64
	// MaxBitWidth is the widest supported code.
	MaxBitWidth = 32

	// maxByteCount is the number of planes of a MaxBitWidth column.
	maxByteCount = MaxBitWidth / 8
	// batchesPerWord is the number of lane batches packed into a bitmap word.
	batchesPerWord = WordBits / Lanes
	// vecWords is the number of SWAR words backing one lane vector.
	vecWords = Lanes / 8

	// DefaultPrefetchDistance is the default look-ahead, in bytes of plane 0,
	// for prefetch hints issued by the scan driver.
	DefaultPrefetchDistance = 1024

	// flipBit is XORed into every stored byte (bias-flip).
	flipBit = 0x80
)

// SWAR constants for eight byte lanes per uint64.
const (
	signBits    = 0x8080808080808080
	lowBits     = 0x7f7f7f7f7f7f7f7f
	laneOnes    = 0x0101010101010101
	gatherMagic = 0x0102040810204080
)

var (
	// ErrInvalidWidth is returned when a bit width is outside 1..32.
	ErrInvalidWidth = errors.New("byteslice: invalid bit width")

	// ErrInvalidCode is returned when a code does not fit the declared bit width.
	ErrInvalidCode = errors.New("byteslice: code exceeds bit width")

	// ErrLayoutMismatch is returned when planes, bitmap or scan range are
	// inconsistent with the column layout.
	ErrLayoutMismatch = errors.New("byteslice: layout mismatch")

	// ErrNilBuffer is returned when a required column, plane or bitmap is missing.
	ErrNilBuffer = errors.New("byteslice: nil or unallocated buffer")

	// ErrInvalidPredicate is returned for an empty predicate list, an unknown
	// comparator or a literal wider than the column.
	ErrInvalidPredicate = errors.New("byteslice: invalid predicate")

	// ErrInvalidCombinator is returned for an unknown combinator.
	ErrInvalidCombinator = errors.New("byteslice: invalid combinator")

	// ErrInvalidBuffer is returned when an encoded column is too small or malformed.
	ErrInvalidBuffer = errors.New("byteslice: invalid buffer")
)

var bo = binary.LittleEndian

// streamAvailable reports whether StreamWriter issues non-temporal stores.
var streamAvailable bool

func init() {
	initSIMDSelection()
}

// IsStreamAvailable reports whether non-temporal stores and prefetch hints
// are backed by machine instructions on this CPU.
func IsStreamAvailable() bool {
	return streamAvailable
}

// BitmapWords returns the number of bitmap words needed for n tuples.
func BitmapWords(n int) int {
	return (n + WordBits - 1) / WordBits
}

// roundUp rounds n up to the next multiple of m (m > 0).
func roundUp(n, m int) int {
	return (n + m - 1) / m * m
}
