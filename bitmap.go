package byteslice

import (
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bit reports whether tuple i is set in bitmap.
func Bit(bitmap []uint64, i int) bool {
	return bitmap[i/WordBits]&(1<<(uint(i)%WordBits)) != 0
}

// Count returns the number of set bits among the first n tuples. Bits past n
// in the final word are ignored.
func Count(bitmap []uint64, n int) int {
	full := n / WordBits
	c := 0
	for _, w := range bitmap[:full] {
		c += bits.OnesCount64(w)
	}
	if rem := n % WordBits; rem != 0 {
		c += bits.OnesCount64(bitmap[full] & (1<<uint(rem) - 1))
	}
	return c
}

// AppendSelected appends the indices of all set tuples below n to dst in
// increasing order.
func AppendSelected(dst []uint32, bitmap []uint64, n int) []uint32 {
	words := BitmapWords(n)
	for wi := 0; wi < words; wi++ {
		w := bitmap[wi]
		if wi == words-1 {
			if rem := n % WordBits; rem != 0 {
				w &= 1<<uint(rem) - 1
			}
		}
		base := uint32(wi * WordBits)
		for w != 0 {
			dst = append(dst, base+uint32(bits.TrailingZeros64(w)))
			w &= w - 1
		}
	}
	return dst
}

// ToRoaring converts the first n tuples of bitmap into a roaring bitmap.
func ToRoaring(bitmap []uint64, n int) *roaring.Bitmap {
	rb := roaring.New()
	var buf [WordBits]uint32
	words := BitmapWords(n)
	for wi := 0; wi < words; wi++ {
		w := bitmap[wi]
		if wi == words-1 {
			if rem := n % WordBits; rem != 0 {
				w &= 1<<uint(rem) - 1
			}
		}
		if w == 0 {
			continue
		}
		base := uint32(wi * WordBits)
		if w == ^uint64(0) {
			rb.AddRange(uint64(base), uint64(base)+WordBits)
			continue
		}
		k := 0
		for w != 0 {
			buf[k] = base + uint32(bits.TrailingZeros64(w))
			k++
			w &= w - 1
		}
		rb.AddMany(buf[:k])
	}
	rb.RunOptimize()
	return rb
}
