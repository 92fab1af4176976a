// Package cache implements the hart's software TLBs, basic-block records,
// and the direct-mapped block cache that lets the simulator loop skip
// re-fetching and re-decoding unchanged code.
package cache

import "rv64sim/internal/memory"

// PoisonVA is the sentinel virtual-page tag that marks a TLB or block-cache
// entry invalid. Bit 56 lies outside any VA a supported SV mode can
// translate, so it can never collide with a legitimate tag.
const PoisonVA uint64 = 1 << 56

const pageOffsetMask = memory.PageSize - 1

// TLB is a fixed-capacity direct-mapped cache from virtual-page base to the
// host pointer backing that page, used to skip a page-table walk when the
// mapping hasn't changed since the last access. One instance exists per
// access kind (fetch, read, write) on a hart.
type TLB struct {
	entries []tlbEntry
}

type tlbEntry struct {
	tag  uint64 // virtual-page base, or PoisonVA when invalid
	host memory.HostPage
}

// NewTLB returns a TLB with 2^sizeLog2 entries, all invalidated.
func NewTLB(sizeLog2 uint) *TLB {
	t := &TLB{entries: make([]tlbEntry, 1<<sizeLog2)}
	t.Invalidate()
	return t
}

func (t *TLB) index(va uint64) uint64 {
	n := uint64(len(t.entries))
	return va >> memory.PageShift & (n - 1)
}

// Invalidate resets every entry's tag to the sentinel.
func (t *TLB) Invalidate() {
	for i := range t.entries {
		t.entries[i].tag = PoisonVA
	}
}

// Find looks up the page containing va. On a hit it returns the cached
// host frame and true; the caller combines it with va&0xFFF itself.
func (t *TLB) Find(va uint64) (memory.HostPage, bool) {
	e := &t.entries[t.index(va)]
	tag := va &^ pageOffsetMask
	if tag != e.tag {
		return nil, false
	}
	return e.host, true
}

// Update installs host as the frame backing the page containing va,
// replacing whatever entry previously occupied that index unconditionally.
func (t *TLB) Update(va uint64, host memory.HostPage) {
	e := &t.entries[t.index(va)]
	e.tag = va &^ pageOffsetMask
	e.host = host
}
