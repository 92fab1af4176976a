package cache

// blockAlignBits is the instruction-alignment shift (all instructions are
// 4-byte aligned, so the low 2 bits never vary the index).
const blockAlignBits = 2

// BbCache is a direct-mapped cache of block-start-VA to decoded Bb, indexed
// by bits [align+log2N-1:align] of the program counter.
type BbCache struct {
	entries []Bb
}

// NewBbCache returns a block cache with 2^sizeLog2 entries, all
// invalidated.
func NewBbCache(sizeLog2 uint) *BbCache {
	c := &BbCache{entries: make([]Bb, 1<<sizeLog2)}
	c.Invalidate()
	return c
}

// Slot returns the entry that would hold va, without checking whether it
// actually does — callers compare the returned entry's VA against va
// themselves to detect a miss.
func (c *BbCache) Slot(va uint64) *Bb {
	n := uint64(len(c.entries))
	idx := va >> blockAlignBits & (n - 1)
	return &c.entries[idx]
}

// Invalidate resets every block in the cache.
func (c *BbCache) Invalidate() {
	for i := range c.entries {
		c.entries[i].Invalidate()
	}
}
