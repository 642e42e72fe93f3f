package reach

import "math/bits"

// bitset is a growable set of small non-negative integers.
type bitset []uint64

func (b *bitset) grow(n int) {
	words := (n + 63) / 64
	if len(*b) < words {
		nb := make(bitset, words)
		copy(nb, *b)
		*b = nb
	}
}

func (b *bitset) set(i int) {
	b.grow(i + 1)
	(*b)[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) has(i int) bool {
	w := i / 64
	return w < len(b) && b[w]&(1<<(uint(i)%64)) != 0
}

// or merges o into b and reports whether b changed.
func (b *bitset) or(o bitset) bool {
	b.grow(len(o) * 64)
	changed := false
	for i, w := range o {
		if (*b)[i]|w != (*b)[i] {
			(*b)[i] |= w
			changed = true
		}
	}
	return changed
}

func (b bitset) clear() {
	for i := range b {
		b[i] = 0
	}
}

func (b bitset) count() int {
	c := 0
	for _, w := range b {
		c += bits.OnesCount64(w)
	}
	return c
}

// each calls fn for every member in ascending order.
func (b bitset) each(fn func(int)) {
	for i, w := range b {
		for w != 0 {
			t := bits.TrailingZeros64(w)
			fn(i*64 + t)
			w &^= 1 << uint(t)
		}
	}
}
