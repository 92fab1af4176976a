package rv64

import (
	"encoding/binary"

	"rv64sim/internal/cache"
	"rv64sim/internal/memory"
	"rv64sim/internal/status"
)

// fetchWord fetches the 32-bit instruction word at va through the fetch
// TLB, falling back to a full translation on a miss. It is the Fetch
// callback the block builder drives.
func (h *Hart) fetchWord(va uint64) (uint32, status.Status) {
	if va&0x3 != 0 {
		return 0, status.SimPCAlignError
	}
	page, off, st := h.resolve(h.fetchTLB, memory.AccessFetch, va)
	if !st.IsOK() {
		return 0, st
	}
	return binary.LittleEndian.Uint32(page[off : off+4]), status.OK
}

// resolve implements the TLB-then-MMU lookup shared by fetch, load, and
// store (spec §4.8): a TLB hit returns the cached frame directly; a miss
// walks the page table, installs the resulting frame into the TLB, and
// returns it. The in-page byte offset is returned alongside so callers can
// slice the width they need out of the frame.
func (h *Hart) resolve(tlb *cache.TLB, kind memory.AccessKind, va uint64) (memory.HostPage, uint64, status.Status) {
	off := va & (memory.PageSize - 1)

	if page, ok := tlb.Find(va); ok {
		return page, off, status.OK
	}

	pa, st := h.mmu.Translate(h.priv, kind, va)
	if !st.IsOK() {
		return nil, 0, st
	}

	_, page, st := h.phys.Read8(pa)
	if !st.IsOK() {
		return nil, 0, st
	}
	tlb.Update(va, page)
	return page, off, status.OK
}

// loadValue performs the guest load pipeline for width bytes at va: an
// alignment check, then resolve through the read TLB/MMU, then a typed
// little-endian read out of the resulting frame.
func (h *Hart) loadValue(va uint64, width int) (uint64, status.Status) {
	if va&uint64(width-1) != 0 {
		return 0, status.SimUnalignedLoad
	}
	page, off, st := h.resolve(h.readTLB, memory.AccessRead, va)
	if !st.IsOK() {
		return 0, st
	}
	if off+uint64(width) > memory.PageSize {
		return 0, status.PhysMemPageAlignError
	}
	switch width {
	case 1:
		return uint64(page[off]), status.OK
	case 2:
		return uint64(binary.LittleEndian.Uint16(page[off : off+2])), status.OK
	case 4:
		return uint64(binary.LittleEndian.Uint32(page[off : off+4])), status.OK
	case 8:
		return binary.LittleEndian.Uint64(page[off : off+8]), status.OK
	default:
		panic("rv64: unsupported load width")
	}
}

// storeValue performs the guest store pipeline for width bytes at va.
func (h *Hart) storeValue(va uint64, width int, value uint64) status.Status {
	if va&uint64(width-1) != 0 {
		return status.SimUnalignedStore
	}
	page, off, st := h.resolve(h.writeTLB, memory.AccessWrite, va)
	if !st.IsOK() {
		return st
	}
	if off+uint64(width) > memory.PageSize {
		return status.PhysMemPageAlignError
	}
	switch width {
	case 1:
		page[off] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(page[off:off+2], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(page[off:off+4], uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(page[off:off+8], value)
	default:
		panic("rv64: unsupported store width")
	}
	return status.OK
}
