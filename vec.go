package byteslice

// vec holds one byte per lane for Lanes lanes. Lane 8*w+i is byte i
// (little endian) of word w, so a vector loads straight from a plane.
type vec [vecWords]uint64

// mask holds one boolean per lane in the lane's top bit (0x80); all other
// bits are zero. This is the bit a MOVEMASK instruction gathers.
type mask [vecWords]uint64

// loadVec reads Lanes consecutive bytes of plane starting at off.
func loadVec(plane []byte, off int) vec {
	p := plane[off : off+Lanes]
	return vec{
		bo.Uint64(p[0:]),
		bo.Uint64(p[8:]),
		bo.Uint64(p[16:]),
		bo.Uint64(p[24:]),
	}
}

// broadcast repeats b in every lane.
func broadcast(b byte) vec {
	w := uint64(b) * laneOnes
	return vec{w, w, w, w}
}

// cmpeqWord sets the top bit of every byte lane where a == b.
func cmpeqWord(a, b uint64) uint64 {
	x := a ^ b
	return ^(((x & lowBits) + lowBits) | x | lowBits)
}

// ltuWord sets the top bit of every byte lane where a < b as unsigned bytes.
// The per-lane difference is computed without borrows crossing lanes and the
// lane's borrow-out is recovered from its top bits.
func ltuWord(a, b uint64) uint64 {
	d := ((a | signBits) - (b &^ signBits)) ^ ((a ^ ^b) & signBits)
	return ((^a & b) | (^(a ^ b) & d)) & signBits
}

// cmpgtWord sets the top bit of every byte lane where a > b as signed bytes,
// matching PCMPGTB.
func cmpgtWord(a, b uint64) uint64 {
	return ltuWord(b^signBits, a^signBits)
}

func (m mask) and(o mask) mask {
	return mask{m[0] & o[0], m[1] & o[1], m[2] & o[2], m[3] & o[3]}
}

func (m mask) or(o mask) mask {
	return mask{m[0] | o[0], m[1] | o[1], m[2] | o[2], m[3] | o[3]}
}

// andNot returns ^m & o.
func (m mask) andNot(o mask) mask {
	return mask{o[0] &^ m[0], o[1] &^ m[1], o[2] &^ m[2], o[3] &^ m[3]}
}

func (m mask) not() mask {
	return mask{m[0] ^ signBits, m[1] ^ signBits, m[2] ^ signBits, m[3] ^ signBits}
}

func (m mask) isZero() bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}

// bits packs the lane booleans into a uint32, lane i at bit i.
func (m mask) bits() uint32 {
	var r uint32
	for w := range vecWords {
		r |= uint32(((m[w]>>7)*gatherMagic)>>56) << (8 * w)
	}
	return r
}
