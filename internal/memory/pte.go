package memory

// PTE is a 64-bit page-table entry.
type PTE uint64

// PTE flag bits, per the SV39/48/57 layout.
const (
	PteV = 1 << 0
	PteR = 1 << 1
	PteW = 1 << 2
	PteX = 1 << 3
	PteU = 1 << 4
	PteG = 1 << 5
	PteA = 1 << 6
	PteD = 1 << 7

	pteFlagsAll = 0xFF
)

// reservedMask covers the reserved PTE bits (9:8 and 63:54) that must read
// as zero; Svnapot/Svpbmt-style extensions are not supported here.
const reservedMask PTE = (0x3FF << 54) | (3 << 8)

const (
	ppnLo = 10
	ppnHi = 53
)

func (p PTE) flags() uint8 { return uint8(p) & pteFlagsAll }

func (p PTE) V() bool { return p.flags()&PteV != 0 }
func (p PTE) R() bool { return p.flags()&PteR != 0 }
func (p PTE) W() bool { return p.flags()&PteW != 0 }
func (p PTE) X() bool { return p.flags()&PteX != 0 }
func (p PTE) U() bool { return p.flags()&PteU != 0 }
func (p PTE) G() bool { return p.flags()&PteG != 0 }
func (p PTE) A() bool { return p.flags()&PteA != 0 }
func (p PTE) D() bool { return p.flags()&PteD != 0 }

// PPN returns the page-table-entry's physical page number field.
func (p PTE) PPN() uint64 {
	return uint64(p) >> ppnLo & (1<<44 - 1)
}

// reserved reports whether any reserved bit of p is set.
func (p PTE) reserved() bool {
	return PTE(p)&reservedMask != 0
}

// invalid reports whether p fails the basic validity check every walker
// (translation and mapping alike) applies before treating it as a leaf or
// non-leaf: V must be set, a writable-but-not-readable page is malformed,
// and no reserved bit may be set.
func (p PTE) invalid() bool {
	return !p.V() || (!p.R() && p.W()) || p.reserved()
}

// isLeaf reports whether p terminates the walk (carries a translation)
// rather than pointing at the next-level table.
func (p PTE) isLeaf() bool {
	return p.R() || p.X()
}

// makePTE packs a PPN and an 8-bit flag byte into a PTE.
func makePTE(ppn uint64, flags uint8) PTE {
	return PTE(ppn<<ppnLo) | PTE(flags&pteFlagsAll)
}
