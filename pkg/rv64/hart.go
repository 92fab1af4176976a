// Package rv64 implements the RV64I hart: the register file, CSR store,
// MMU, TLBs, block cache, dispatcher, and the simulator loop that drives
// them to execute a guest program against a model of physical memory.
package rv64

import (
	"rv64sim/internal/cache"
	"rv64sim/internal/csr"
	"rv64sim/internal/gpr"
	"rv64sim/internal/instr"
	"rv64sim/internal/memory"
	"rv64sim/internal/status"
)

// tlbSizeLog2 and bbCacheSizeLog2 size the hart's direct-mapped caches.
const (
	tlbSizeLog2     = 7
	bbCacheSizeLog2 = 7
)

// Hart groups the program counter, register file, CSR store, MMU, and a
// reference to physical memory — everything one simulated hardware thread
// needs to execute a guest instruction stream. It also owns the software
// TLBs and block cache that make the hot path fast.
type Hart struct {
	PC     uint64
	Icount uint64

	gprFile *gpr.File
	csrFile *csr.File
	mmu     *memory.MMU
	phys    *memory.PhysMemory
	priv    memory.PrivLevel

	fetchTLB *cache.TLB
	readTLB  *cache.TLB
	writeTLB *cache.TLB
	blocks   *cache.BbCache

	logger    Logger
	blockHook BlockHook
}

// Logger is the minimal interface the hart needs for opt-in trace output.
// *log.Logger satisfies it; the package never imports log itself so a
// driver can wire in whatever logger it likes, or none.
type Logger interface {
	Printf(format string, v ...interface{})
}

// SetLogger installs l as the hart's trace logger. A nil logger (the
// default) disables tracing with no overhead beyond a nil check.
func (h *Hart) SetLogger(l Logger) { h.logger = l }

// BlockHook is called once per completed block, after its instructions have
// retired and before the next block is resolved. It lets a driver poll an
// external device (a console, a timer) between blocks without the engine
// importing any device package itself — the hart calls the hook, it never
// knows what the hook does.
type BlockHook func()

// SetBlockHook installs fn as the hart's block hook. A nil hook (the
// default) disables polling with no overhead beyond a nil check.
func (h *Hart) SetBlockHook(fn BlockHook) { h.blockHook = fn }

// NewHart builds a hart bound to phys, with a fresh CSR store, register
// file, and empty (invalidated) caches. priv is the privilege level every
// translation in this hart's lifetime is checked against — the core does
// not model privilege-mode switching (see Non-goals).
func NewHart(phys *memory.PhysMemory, priv memory.PrivLevel) *Hart {
	csrFile := &csr.File{}
	return &Hart{
		gprFile:  &gpr.File{},
		csrFile:  csrFile,
		mmu:      memory.NewMMU(phys, csrFile),
		phys:     phys,
		priv:     priv,
		fetchTLB: cache.NewTLB(tlbSizeLog2),
		readTLB:  cache.NewTLB(tlbSizeLog2),
		writeTLB: cache.NewTLB(tlbSizeLog2),
		blocks:   cache.NewBbCache(bbCacheSizeLog2),
	}
}

// GPRFile returns the hart's register file, for the driver to seed the
// stack pointer before entry and to read results after the loop returns.
func (h *Hart) GPRFile() *gpr.File { return h.gprFile }

// CSRFile returns the hart's CSR store.
func (h *Hart) CSRFile() *csr.File { return h.csrFile }

// PhysMemory returns the physical memory this hart's MMU translates into.
func (h *Hart) PhysMemory() *memory.PhysMemory { return h.phys }

// WriteSatp installs a new SATP value and invalidates every TLB and the
// block cache. Both caches key entries on a virtual address whose meaning
// is entirely a function of the active translation regime, so any SATP
// change must flush them — the core does not do this automatically at the
// CSR layer (see csr.File.SetSatp), so the cmd/rv64sim driver calls this
// instead of writing SATP directly. No handler writes SATP.
func (h *Hart) WriteSatp(satp csr.Satp) {
	h.csrFile.SetSatp(satp)
	h.fetchTLB.Invalidate()
	h.readTLB.Invalidate()
	h.writeTLB.Invalidate()
	h.blocks.Invalidate()
}

// Simulate runs the hart starting at startPC until the guest issues ECALL
// (returned as OK) or a fault terminates the loop. It mirrors the reference
// simulate() loop: resolve a block from the cache (refilling it on a miss),
// run it to its terminal instruction, and either stop or re-resolve the
// next block.
func (h *Hart) Simulate(startPC uint64) status.Status {
	h.PC = startPC

	for {
		block := h.blocks.Slot(h.PC)
		if block.VA != h.PC {
			nextVA := h.PC
			block.Update(h.PC, func() (uint32, status.Status) {
				code, st := h.fetchWord(nextVA)
				nextVA += 4
				return code, st
			})
		}

		st := h.run(block)

		if h.blockHook != nil {
			h.blockHook()
		}

		if st == status.SimExit {
			return status.OK
		}
		if !st.IsOK() {
			return st
		}
	}
}

// run executes a block's instructions in sequence, starting at slot 0,
// until its terminal instruction ends it: a branch/jump (which has already
// updated PC to its target), a synthesized SIM_STATUS_INSTR (fault or the
// max-size boundary sentinel), or ECALL. The reference design tail-calls
// handler to handler; Go has no guaranteed tail-call optimization, so this
// loop plays that role instead. A block's non-terminal slots always return
// OK and fall through to the next slot; its terminal slot, by construction
// (see cache.Bb.Update), is always either a branch/jump or a StatusInstr —
// both end the loop regardless of the status their handler returns.
func (h *Hart) run(b *cache.Bb) status.Status {
	idx := 0
	for {
		in := &b.Instrs[idx]
		if h.logger != nil && in.ID != instr.StatusInstr {
			h.logger.Printf("rv64: pc=%#x %s", b.VA+uint64(idx)*4, disassemble(*in))
		}
		st := dispatch[in.ID](h, in)
		if in.ID.IsBranchOrJump() || in.ID == instr.StatusInstr {
			return st
		}
		if !st.IsOK() {
			return st
		}
		idx++
	}
}
