// Package memory implements guest physical memory, the PTE layout, the
// page-table translator (MMU), and the memory mapper used to build initial
// page tables.
package memory

import (
	"encoding/binary"

	"rv64sim/internal/status"
)

const (
	// PageShift is log2(PageSize).
	PageShift = 12
	// PageSize is the guest page size in bytes.
	PageSize = 1 << PageShift
	// pageOffsetMask masks the low PageShift bits of an address.
	pageOffsetMask = PageSize - 1
)

// PhysAddr is a guest physical address.
type PhysAddr = uint64

// HostPage is the host-side storage backing one guest physical page. It is
// allocated once by AddRAMPage and never reallocated or moved for the
// lifetime of the PhysMemory that owns it — that invariant is what lets
// callers (the TLB) cache a pointer into it across accesses.
type HostPage = *[PageSize]byte

// PhysMemory maps 4 KiB-aligned guest physical page numbers to host page
// frames, allocated on demand. There is no eviction: once mapped, a page's
// identity (its host storage) is stable for the object's lifetime.
type PhysMemory struct {
	pages map[PhysAddr]HostPage
}

// NewPhysMemory returns an empty physical memory store.
func NewPhysMemory() *PhysMemory {
	return &PhysMemory{pages: make(map[PhysAddr]HostPage)}
}

// AddRAMPage installs a fresh, zeroed frame at pagePA if one is not already
// present. It reports whether a new frame was installed. pagePA must be
// page-aligned; violating that is a simulator bug, not a guest fault, so it
// panics rather than returning a status.
func (m *PhysMemory) AddRAMPage(pagePA PhysAddr) bool {
	if pagePA&pageOffsetMask != 0 {
		panic("memory: AddRAMPage called with unaligned page address")
	}
	if _, ok := m.pages[pagePA]; ok {
		return false
	}
	m.pages[pagePA] = new([PageSize]byte)
	return true
}

// hostPage returns the frame containing pa, or nil if unmapped.
func (m *PhysMemory) hostPage(pa PhysAddr) HostPage {
	return m.pages[pa&^pageOffsetMask]
}

// checkAccess validates that an access of width bytes at pa does not cross
// a page boundary.
func checkAccess(pa PhysAddr, width int) (pageOffset PhysAddr, ok bool) {
	pageOffset = pa & pageOffsetMask
	return pageOffset, pageOffset+PhysAddr(width) <= PageSize
}

// Read8/16/32/64 read a little-endian unsigned value of the given width at
// pa, returning the resulting status and, on success, the host pointer to
// the containing page (so callers — the TLB — may cache it).

func (m *PhysMemory) Read8(pa PhysAddr) (uint8, HostPage, status.Status) {
	off, ok := checkAccess(pa, 1)
	if !ok {
		return 0, nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return 0, nil, status.PhysMemAccessFault
	}
	return page[off], page, status.OK
}

func (m *PhysMemory) Read16(pa PhysAddr) (uint16, HostPage, status.Status) {
	off, ok := checkAccess(pa, 2)
	if !ok {
		return 0, nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return 0, nil, status.PhysMemAccessFault
	}
	return binary.LittleEndian.Uint16(page[off : off+2]), page, status.OK
}

func (m *PhysMemory) Read32(pa PhysAddr) (uint32, HostPage, status.Status) {
	off, ok := checkAccess(pa, 4)
	if !ok {
		return 0, nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return 0, nil, status.PhysMemAccessFault
	}
	return binary.LittleEndian.Uint32(page[off : off+4]), page, status.OK
}

func (m *PhysMemory) Read64(pa PhysAddr) (uint64, HostPage, status.Status) {
	off, ok := checkAccess(pa, 8)
	if !ok {
		return 0, nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return 0, nil, status.PhysMemAccessFault
	}
	return binary.LittleEndian.Uint64(page[off : off+8]), page, status.OK
}

func (m *PhysMemory) Write8(pa PhysAddr, value uint8) (HostPage, status.Status) {
	off, ok := checkAccess(pa, 1)
	if !ok {
		return nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return nil, status.PhysMemAccessFault
	}
	page[off] = value
	return page, status.OK
}

func (m *PhysMemory) Write16(pa PhysAddr, value uint16) (HostPage, status.Status) {
	off, ok := checkAccess(pa, 2)
	if !ok {
		return nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return nil, status.PhysMemAccessFault
	}
	binary.LittleEndian.PutUint16(page[off:off+2], value)
	return page, status.OK
}

func (m *PhysMemory) Write32(pa PhysAddr, value uint32) (HostPage, status.Status) {
	off, ok := checkAccess(pa, 4)
	if !ok {
		return nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return nil, status.PhysMemAccessFault
	}
	binary.LittleEndian.PutUint32(page[off:off+4], value)
	return page, status.OK
}

func (m *PhysMemory) Write64(pa PhysAddr, value uint64) (HostPage, status.Status) {
	off, ok := checkAccess(pa, 8)
	if !ok {
		return nil, status.PhysMemPageAlignError
	}
	page := m.hostPage(pa)
	if page == nil {
		return nil, status.PhysMemAccessFault
	}
	binary.LittleEndian.PutUint64(page[off:off+8], value)
	return page, status.OK
}
