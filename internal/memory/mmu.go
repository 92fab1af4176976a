package memory

import (
	"rv64sim/internal/bitutil"
	"rv64sim/internal/csr"
	"rv64sim/internal/status"
)

// PrivLevel is the privilege level an access is performed at. The core
// never switches privilege levels itself (spec Non-goals); the driver
// decides what level to translate at.
type PrivLevel uint8

const (
	PrivUser PrivLevel = iota
	PrivSupervisor
)

// AccessKind selects which permission bits a translation checks and which
// TLB a cache lookup should use.
type AccessKind uint8

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessFetch
)

const vpnBitStep = 9

// MMU translates guest virtual addresses to physical addresses by walking
// the SV39/SV48/SV57 page table rooted at the CSR file's SATP register.
type MMU struct {
	phys *PhysMemory
	csr  *csr.File
}

// NewMMU builds an MMU bound to phys for page-table reads and csrFile for
// SATP/MSTATUS.
func NewMMU(phys *PhysMemory, csrFile *csr.File) *MMU {
	return &MMU{phys: phys, csr: csrFile}
}

// getVPN extracts VPN[i] (9 bits) of a virtual address.
func getVPN(va uint64, i int) uint64 {
	lo := uint(PageShift + i*vpnBitStep)
	return va >> lo & (1<<vpnBitStep - 1)
}

// Translate walks the page table rooted at SATP to resolve va for the given
// privilege level and access kind. See spec.md §4.2 for the algorithm this
// mirrors step for step.
func (m *MMU) Translate(priv PrivLevel, access AccessKind, va uint64) (uint64, status.Status) {
	satp := m.csr.Satp()

	if satp.Mode == csr.Bare {
		return va, status.OK
	}

	levels := satp.Mode.Levels()
	i := levels - 1

	var pte PTE
	tablePPN := satp.PPN

	for {
		ptePA := tablePPN*PageSize + getVPN(va, i)*8

		raw, _, st := m.phys.Read64(ptePA)
		if !st.IsOK() {
			return 0, st
		}
		pte = PTE(raw)

		if pte.invalid() {
			return 0, status.MMUPageFault
		}

		if pte.isLeaf() {
			break
		}

		if i == 0 {
			return 0, status.MMUPageFault
		}
		tablePPN = pte.PPN()
		i--
	}

	if !checkPermission(access, priv, pte, m.csr.Mstatus()) {
		return 0, status.MMUPageFault
	}

	if i > 0 {
		// Superpage: the low i*9 bits of the PTE's PPN field must be zero,
		// i.e. the PPN must be aligned to the superpage size.
		lo, hi := uint(ppnLo), uint(ppnLo+vpnBitStep*i-1)
		if bitutil.GetBitField64(hi, lo, uint64(pte)) != 0 {
			return 0, status.MMUPageFault
		}
	}

	// The mapper always presets A and D; a walker that reaches here without
	// them set indicates a bug in how the table was built, not a guest
	// fault.
	if !pte.A() || !pte.D() {
		panic("memory: MMU reached a leaf PTE without A/D set")
	}

	return composePA(pte, va, i), status.OK
}

// checkPermission implements spec.md §4.2 step 3's access-permission check.
func checkPermission(access AccessKind, priv PrivLevel, pte PTE, mstatus csr.Mstatus) bool {
	isUser := priv == PrivUser
	userOK := pte.U() && isUser
	superRWOK := !isUser && (!pte.U() || mstatus.SUM)
	superXOK := !isUser && !pte.U()

	switch access {
	case AccessRead:
		readable := pte.R() || (pte.X() && mstatus.MXR)
		return readable && (userOK || superRWOK)
	case AccessWrite:
		return pte.W() && (userOK || superRWOK)
	case AccessFetch:
		return pte.X() && (userOK || superXOK)
	default:
		return false
	}
}

// composePA builds the physical address from a leaf PTE found at level i:
// the low (12+9i) bits come from va, the rest from the PTE's PPN field.
func composePA(pte PTE, va uint64, i int) uint64 {
	superpageBits := uint(i * vpnBitStep)
	ppnLoUsed := uint(ppnLo) + superpageBits
	offsetBits := uint(PageShift) + superpageBits

	offset := bitutil.GetBitField64(offsetBits-1, 0, va)
	ppn := bitutil.GetBitField64(ppnHi, ppnLoUsed, uint64(pte))

	return offset + ppn<<offsetBits
}
