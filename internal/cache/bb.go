package cache

import (
	"rv64sim/internal/instr"
	"rv64sim/internal/status"
)

// MaxBlockSize is the maximum number of instructions a basic block holds.
const MaxBlockSize = 16

// Bb is a basic block: an ordered run of decoded instructions starting at
// VA and ending at a branch/jump, a synthesized SIM_STATUS_INSTR, or the
// fixed-length boundary.
type Bb struct {
	VA     uint64
	Instrs [MaxBlockSize]instr.Instr
}

// Fetch produces the next 32-bit instruction word for block construction,
// or a non-OK status on fetch failure (typically a translation fault).
type Fetch func() (uint32, status.Status)

// Update (re)fills the block starting at va by repeatedly calling fetch
// until the block terminates, per the basic-block construction rules: a
// failed fetch or an undefined decode ends the block with a
// SIM_STATUS_INSTR; a branch/jump ends it after being stored; reaching the
// last slot forces a SIM_STATUS_INSTR(OK) so the loop re-resolves the next
// block.
func (b *Bb) Update(va uint64, fetch Fetch) {
	b.VA = va

	for i := 0; i < MaxBlockSize-1; i++ {
		code, st := fetch()
		if !st.IsOK() {
			b.Instrs[i] = instr.StatusInstrOf(st)
			return
		}

		in := instr.Decode(code)
		b.Instrs[i] = in

		if in.ID == instr.UNDEF {
			b.Instrs[i] = instr.StatusInstrOf(status.SimNotImplementedInstr)
			return
		}

		if in.ID.IsBranchOrJump() {
			return
		}
	}

	b.Instrs[MaxBlockSize-1] = instr.StatusInstrOf(status.OK)
}

// Invalidate marks the block as not present: it sets VA to the sentinel
// and plants a terminal SIM_STATUS_INSTR at slot 0, so a cache hit under
// mis-indexing cannot silently execute stale instructions.
func (b *Bb) Invalidate() {
	b.VA = PoisonVA
	b.Instrs[0] = instr.StatusInstrOf(status.SimNotImplementedInstr)
}
