// Package csr implements the control-status register surface the
// simulator consumes: SATP (address translation mode and root page table)
// and the MXR/SUM bits of MSTATUS. The decoder has no CSRRW/CSRRS/CSRRC
// opcodes, so nothing in this core ever addresses a CSR by index; the
// store only exposes the direct Satp/Mstatus getters and setters the MMU
// and Hart.WriteSatp actually call.
package csr

// Mode is the SATP translation mode.
type Mode uint8

const (
	Bare Mode = iota
	Sv39
	Sv48
	Sv57
)

// Levels returns the number of page-table levels the mode walks, or 0 for
// Bare (which never walks a table).
func (m Mode) Levels() int {
	switch m {
	case Sv39:
		return 3
	case Sv48:
		return 4
	case Sv57:
		return 5
	default:
		return 0
	}
}

// Satp holds the fields of the SATP register the MMU consumes.
type Satp struct {
	Mode Mode
	PPN  uint64 // root page-table physical page number, 44 bits
}

// Mstatus holds the MSTATUS fields the MMU consumes.
type Mstatus struct {
	MXR bool // make-executable-readable
	SUM bool // supervisor-user-memory access
}

// File is the hart's CSR store. The zero value is a valid reset state:
// Bare translation, MXR and SUM clear.
type File struct {
	satp    Satp
	mstatus Mstatus
}

// Satp returns the current SATP value.
func (f *File) Satp() Satp { return f.satp }

// Mstatus returns the current MSTATUS fields.
func (f *File) Mstatus() Mstatus { return f.mstatus }

// SetSatp installs a new SATP value directly. Callers that change
// translation state this way are responsible for invalidating TLBs and the
// block cache themselves (see pkg/rv64.Hart.WriteSatp, which is the path
// the cmd/rv64sim driver uses).
func (f *File) SetSatp(satp Satp) { f.satp = satp }

// SetMstatus installs new MSTATUS fields directly.
func (f *File) SetMstatus(mstatus Mstatus) { f.mstatus = mstatus }
