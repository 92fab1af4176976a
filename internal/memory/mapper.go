package memory

import "rv64sim/internal/status"

// Mapper builds page tables and installs leaf translations into a
// PhysMemory. It is the only component that is allowed to construct PTEs
// that skip the MMU's runtime permission checks while the table itself is
// being assembled.
//
// It owns a half-open physical page range [tableBegin, tableEnd) reserved
// for table frames — the root table is always the range's first page — and
// allocates leaf (data) frames from a second cursor starting at tableEnd,
// so a table page and a data page can never collide.
type Mapper struct {
	phys    *PhysMemory
	levels  int
	tableBegin, tableEnd uint64
	nextTablePPN         uint64
	nextFramePPN         uint64
	rootPPN              uint64
	rootAllocated        bool
}

// NewMapper returns a mapper that allocates table frames from
// [firstFreePPN, firstFreePPN+levels*64) and leaf frames from the end of
// that range upward, walking tables of the given depth (see
// csr.Mode.Levels). In BARE mode (levels == 0) the table region is empty,
// since there is no table to allocate.
func NewMapper(phys *PhysMemory, levels int, firstFreePPN uint64) *Mapper {
	return NewBoundedMapper(phys, levels, firstFreePPN, tableRegionPagesFor(levels))
}

// NewBoundedMapper is NewMapper with an explicit table-region size in
// pages, for callers that want to size the region precisely (or exercise
// MapperTableRegionEnd with a small one).
func NewBoundedMapper(phys *PhysMemory, levels int, firstFreePPN, tablePages uint64) *Mapper {
	begin := firstFreePPN
	end := firstFreePPN + tablePages
	return &Mapper{
		phys:         phys,
		levels:       levels,
		tableBegin:   begin,
		tableEnd:     end,
		nextTablePPN: begin,
		nextFramePPN: end,
	}
}

// tableRegionPagesFor sizes the default table region generously enough for
// one root table plus a handful of intermediate tables per mode depth —
// ample for the small guest images this simulator runs.
func tableRegionPagesFor(levels int) uint64 {
	if levels == 0 {
		return 0
	}
	return uint64(levels) * 64
}

// allocTablePage carves out a fresh page from the table region, installs it
// as RAM, and returns its page number. It fails with MapperTableRegionEnd
// once the region is exhausted.
func (m *Mapper) allocTablePage() (uint64, status.Status) {
	if m.nextTablePPN >= m.tableEnd {
		return 0, status.MapperTableRegionEnd
	}
	ppn := m.nextTablePPN
	m.nextTablePPN++
	m.phys.AddRAMPage(ppn * PageSize)
	return ppn, status.OK
}

// allocFramePage carves out a fresh page past the table region, installs it
// as RAM, and returns its page number.
func (m *Mapper) allocFramePage() uint64 {
	ppn := m.nextFramePPN
	m.nextFramePPN++
	m.phys.AddRAMPage(ppn * PageSize)
	return ppn
}

// inTableRegion reports whether ppn falls within the mapper's reserved
// table-frame range.
func (m *Mapper) inTableRegion(ppn uint64) bool {
	return m.levels > 0 && ppn >= m.tableBegin && ppn < m.tableEnd
}

// PhysMemory returns the physical memory the mapper allocates frames from,
// for callers (the ELF loader) that need to write segment contents into
// pages the mapper just installed.
func (m *Mapper) PhysMemory() *PhysMemory { return m.phys }

// RootPPN returns the page number of the mapper's root table, allocating one
// on first use.
func (m *Mapper) RootPPN() uint64 {
	if !m.rootAllocated {
		ppn, _ := m.allocTablePage()
		m.rootPPN = ppn
		m.rootAllocated = true
	}
	return m.rootPPN
}

// Map installs a single-page leaf translation from va to the physical page
// ppn with the given flag byte (R/W/X/U — V/A/D are forced on by Map
// itself, matching the mapper's "always preset A/D" contract that the MMU's
// translate() relies on). It allocates any missing intermediate tables
// along the way.
//
// Map reports MapperTableRegionPageMapped if ppn falls within the mapper's
// reserved table region, MapperTableRegionEnd if a new intermediate table
// is needed and the region is exhausted, and MapperAlreadyMapped if va's
// leaf slot is already a valid leaf PTE.
func (m *Mapper) Map(va uint64, ppn uint64, flags uint8) status.Status {
	if m.levels == 0 {
		// BARE mode: translation is identity, so there is no table to walk
		// or leaf PTE to write — just ensure the guest physical page the
		// va identifies (ppn, supplied by the caller as va's own page
		// number in this mode) is backed by RAM.
		if !m.phys.AddRAMPage(ppn * PageSize) {
			return status.MapperAlreadyMapped
		}
		return status.OK
	}

	if m.inTableRegion(ppn) {
		return status.MapperTableRegionPageMapped
	}

	tablePPN := m.RootPPN()

	for i := m.levels - 1; i > 0; i-- {
		idx := getVPN(va, i)
		ptePA := tablePPN*PageSize + idx*8

		raw, _, st := m.phys.Read64(ptePA)
		if !st.IsOK() {
			return st
		}
		pte := PTE(raw)

		if pte == 0 {
			childPPN, st := m.allocTablePage()
			if !st.IsOK() {
				return st
			}
			if _, st := m.phys.Write64(ptePA, uint64(makePTE(childPPN, PteV))); !st.IsOK() {
				return st
			}
			tablePPN = childPPN
			continue
		}

		if pte.isLeaf() {
			return status.MapperTableRegionPageMapped
		}
		tablePPN = pte.PPN()
	}

	idx := getVPN(va, 0)
	ptePA := tablePPN*PageSize + idx*8

	raw, _, st := m.phys.Read64(ptePA)
	if !st.IsOK() {
		return st
	}
	if PTE(raw).V() {
		return status.MapperAlreadyMapped
	}

	leafFlags := flags | PteV | PteA | PteD
	_, st = m.phys.Write64(ptePA, uint64(makePTE(ppn, leafFlags)))
	return st
}

// MapPage allocates a fresh RAM frame and installs a leaf mapping from va
// to it, returning the frame's page number so the caller can write into it
// directly without a second translation (the ELF loader's use case).
func (m *Mapper) MapPage(va uint64, flags uint8) (uint64, status.Status) {
	if m.levels == 0 {
		ppn := va / PageSize
		st := m.Map(va, ppn, flags)
		return ppn, st
	}
	ppn := m.allocFramePage()
	st := m.Map(va, ppn, flags)
	return ppn, st
}

// MapRange installs leaf mappings for count consecutive
// pages starting at va, backing each with a freshly allocated RAM frame,
// and returns the first frame's page number (so callers — e.g. a stack
// mapper — can report where the range landed in physical memory).
func (m *Mapper) MapRange(va uint64, count int, flags uint8) (uint64, status.Status) {
	firstPPN := uint64(0)
	for p := 0; p < count; p++ {
		pageVA := va + uint64(p)*PageSize
		ppn, st := m.MapPage(pageVA, flags)
		if p == 0 {
			firstPPN = ppn
		}
		if !st.IsOK() {
			return 0, st
		}
	}
	return firstPPN, status.OK
}
