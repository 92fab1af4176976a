package rv64

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rv64sim/internal/csr"
	"rv64sim/internal/gpr"
	"rv64sim/internal/memory"
	"rv64sim/internal/status"
)

// The helpers below assemble raw RV64I instruction words so each scenario
// can be built without a literal byte dump, following hejops-gone's
// cpu_test.go style of constructing a tiny program and asserting register
// state after it runs to completion.

const (
	opOpImm  = 0b0010011
	opOp32   = 0b0111011
	opOpImm32 = 0b0011011
	opLoad   = 0b0000011
	opStore  = 0b0100011
	opBranch = 0b1100011
)

func encI(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encR(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm) & 0xfff
	return (u>>5)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (u&0x1f)<<7 | opcode
}

func encB(rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	bit12 := (u >> 12) & 1
	bit11 := (u >> 11) & 1
	bits10_5 := (u >> 5) & 0x3f
	bits4_1 := (u >> 1) & 0xf
	return bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | 0b001<<12 | bits4_1<<8 | bit11<<7 | opBranch
}

func addi(rd, rs1 uint32, imm int32) uint32 { return encI(opOpImm, 0b000, rd, rs1, imm) }
func addw(rd, rs1, rs2 uint32) uint32       { return encR(opOp32, 0b000, 0, rd, rs1, rs2) }
func subw(rd, rs1, rs2 uint32) uint32       { return encR(opOp32, 0b000, 0b0100000, rd, rs1, rs2) }
func add(rd, rs1, rs2 uint32) uint32        { return encR(0b0110011, 0b000, 0, rd, rs1, rs2) }
func slli(rd, rs1 uint32, shamt uint32) uint32 {
	return (shamt&0x3f)<<20 | rs1<<15 | 0b001<<12 | rd<<7 | opOpImm
}
func bne(rs1, rs2 uint32, imm int32) uint32 { return encB(rs1, rs2, imm) }
func sd(base, src uint32, imm int32) uint32 { return encS(opStore, 0b011, base, src, imm) }
func ld(rd, base uint32, imm int32) uint32  { return encI(opLoad, 0b011, rd, base, imm) }
func lw(rd, base uint32, imm int32) uint32  { return encI(opLoad, 0b010, rd, base, imm) }
const ecallWord = uint32(0x00000073)

// writeWords installs words as consecutive 4-byte instructions starting at
// va in phys, allocating whatever pages are needed.
func writeWords(t *testing.T, phys *memory.PhysMemory, va uint64, words []uint32) {
	t.Helper()
	for i, w := range words {
		pa := va + uint64(i)*4
		phys.AddRAMPage(pa &^ (memory.PageSize - 1))
		_, st := phys.Write32(pa, w)
		require.True(t, st.IsOK())
	}
}

func TestSimulator_ECALLExit(t *testing.T) {
	phys := memory.NewPhysMemory()
	h := NewHart(phys, memory.PrivUser)

	const startVA = uint64(0x5000000000)
	writeWords(t, phys, startVA, []uint32{0x05d0089b, 0x00000073})

	st := h.Simulate(startVA)
	require.True(t, st.IsOK())
	assert.Equal(t, uint64(2), h.Icount)
	assert.Equal(t, uint64(93), h.GPRFile().Read64(gpr.A7))
}

func TestSimulator_AddSubWord(t *testing.T) {
	phys := memory.NewPhysMemory()
	h := NewHart(phys, memory.PrivUser)

	const startVA = uint64(0x5000000000)
	writeWords(t, phys, startVA, []uint32{
		0x00a0059b, 0x0140051b, 0x00b5053b, 0x40a5853b, 0x05d0089b, 0x00000073,
	})

	st := h.Simulate(startVA)
	require.True(t, st.IsOK())
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFEC), h.GPRFile().Read64(gpr.A0))
	assert.Equal(t, uint64(10), h.GPRFile().Read64(gpr.A1))
	assert.Equal(t, uint64(6), h.Icount)
}

// TestSimulator_ForLoopSummation sums t0 from 0 up to (but not including) 5
// into a0, matching spec.md's for-loop summation scenario: a0 == 10,
// t0 == t1 == 5, icount == 26.
func TestSimulator_ForLoopSummation(t *testing.T) {
	phys := memory.NewPhysMemory()
	h := NewHart(phys, memory.PrivUser)

	const startVA = uint64(0x5000000000)
	const loopVA = startVA + 4*4 // after the 4-instruction setup

	words := []uint32{
		addi(gpr.T0, gpr.Zero, 0), // t0 = 0
		addi(gpr.T1, gpr.Zero, 0), // t1 = 0
		addi(gpr.A0, gpr.Zero, 0), // a0 = 0
		addi(gpr.T2, gpr.Zero, 5), // t2 = 5 (loop bound)
		// loop:
		add(gpr.A0, gpr.A0, gpr.T0),           // a0 += t0
		addi(gpr.T0, gpr.T0, 1),               // t0++
		addi(gpr.T1, gpr.T1, 1),               // t1++
		bne(gpr.T0, gpr.T2, int32(loopVA-(startVA+7*4))), // branch back while t0 != t2
		addi(gpr.A7, gpr.Zero, 93),
		ecallWord,
	}
	writeWords(t, phys, startVA, words)

	st := h.Simulate(startVA)
	require.True(t, st.IsOK())
	assert.Equal(t, uint64(10), h.GPRFile().Read64(gpr.A0))
	assert.Equal(t, uint64(5), h.GPRFile().Read64(gpr.T0))
	assert.Equal(t, uint64(5), h.GPRFile().Read64(gpr.T1))
	assert.Equal(t, uint64(26), h.Icount)
}

// TestSimulator_LoadStoreViaBaseRegister mirrors spec.md's base-register
// scenario: build a 64-bit address via slli, store through one base+offset
// pair, reload through another, and check the final register state.
func TestSimulator_LoadStoreViaBaseRegister(t *testing.T) {
	phys := memory.NewPhysMemory()
	h := NewHart(phys, memory.PrivUser)
	phys.AddRAMPage(0x6000000000)

	const startVA = uint64(0x5000000000)
	words := []uint32{
		addi(gpr.A1, gpr.Zero, 6),
		slli(gpr.A1, gpr.A1, 36), // a1 = 0x6000000000
		addi(gpr.A1, gpr.A1, 3),  // a1 = 0x6000000000 + 3
		addi(gpr.A3, gpr.Zero, 0x1BF),
		sd(gpr.A1, gpr.A3, 5),   // store at a1+5 = base+8 (aligned)
		addi(gpr.A1, gpr.A1, 8), // a1 = 0x6000000000 + 11
		ld(gpr.A2, gpr.A1, -3),  // reload from a1-3 = base+8
		addi(gpr.A7, gpr.Zero, 93),
		ecallWord,
	}
	writeWords(t, phys, startVA, words)

	st := h.Simulate(startVA)
	require.True(t, st.IsOK())
	assert.Equal(t, uint64(0x1BF), h.GPRFile().Read64(gpr.A2))
	assert.Equal(t, uint64(0x600000000B), h.GPRFile().Read64(gpr.A1))
}

func TestSimulator_UnalignedLoadFault(t *testing.T) {
	phys := memory.NewPhysMemory()
	h := NewHart(phys, memory.PrivUser)

	const startVA = uint64(0x5000000000)
	const faultVA = uint64(0x5000000001)
	words := []uint32{
		addi(gpr.A1, gpr.Zero, 5),
		slli(gpr.A1, gpr.A1, 36),
		addi(gpr.A1, gpr.A1, 1), // a1 = 0x5000000001
		lw(gpr.A2, gpr.A1, 0),   // misaligned LW
	}
	writeWords(t, phys, startVA, words)

	st := h.Simulate(startVA)
	assert.Equal(t, status.SimUnalignedLoad, st)
	assert.Equal(t, startVA+3*4, h.PC, "pc must remain at the faulting instruction")
	_ = faultVA
}

// TestSimulator_Sv39PageFault maps the code page but leaves VA 0x1000
// unmapped, matching spec.md's SV39 page-fault scenario.
func TestSimulator_Sv39PageFault(t *testing.T) {
	phys := memory.NewPhysMemory()
	h := NewHart(phys, memory.PrivUser)

	const codeVA = uint64(0x2000)
	mapper := memory.NewMapper(phys, csr.Sv39.Levels(), 1)
	ppn, st := mapper.MapPage(codeVA, memory.PteR|memory.PteX|memory.PteU)
	require.True(t, st.IsOK())

	words := []uint32{
		addi(gpr.A1, gpr.Zero, 1),
		slli(gpr.A1, gpr.A1, 12), // a1 = 0x1000
		lw(gpr.A2, gpr.A1, 0),    // never mapped
	}
	for i, w := range words {
		_, wst := phys.Write32(ppn*memory.PageSize+uint64(i)*4, w)
		require.True(t, wst.IsOK())
	}

	h.CSRFile().SetSatp(csr.Satp{Mode: csr.Sv39, PPN: mapper.RootPPN()})

	simSt := h.Simulate(codeVA)
	assert.Equal(t, status.MMUPageFault, simSt)
}

func TestSimulator_ZeroRegisterWritesAreDiscarded(t *testing.T) {
	phys := memory.NewPhysMemory()
	h := NewHart(phys, memory.PrivUser)

	const startVA = uint64(0x5000000000)
	words := []uint32{
		addi(gpr.Zero, gpr.Zero, 7),
		addi(gpr.A7, gpr.Zero, 93),
		ecallWord,
	}
	writeWords(t, phys, startVA, words)

	st := h.Simulate(startVA)
	require.True(t, st.IsOK())
	assert.Equal(t, uint64(0), h.GPRFile().Read64(gpr.Zero))
}
