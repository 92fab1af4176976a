package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rv64sim/internal/instr"
	"rv64sim/internal/status"
)

// addiX1X1Imm1 encodes "addi x1, x1, 1".
const addiX1X1Imm1 = uint32(1<<20 | 1<<15 | 1<<7 | 0b0010011)

// jalX0Imm0 encodes "jal x0, 0".
const jalX0Imm0 = uint32(0b1101111)

func TestBb_UpdateStopsAtBranchOrJump(t *testing.T) {
	var b Bb
	words := []uint32{addiX1X1Imm1, addiX1X1Imm1, jalX0Imm0, addiX1X1Imm1}
	i := 0
	b.Update(0x1000, func() (uint32, status.Status) {
		w := words[i]
		i++
		return w, status.OK
	})

	assert.Equal(t, uint64(0x1000), b.VA)
	assert.Equal(t, instr.ADDI, b.Instrs[0].ID)
	assert.Equal(t, instr.ADDI, b.Instrs[1].ID)
	assert.Equal(t, instr.JAL, b.Instrs[2].ID)
	assert.Equal(t, 3, i, "must not fetch past the terminating jump")
}

func TestBb_UpdateStopsOnFetchFailure(t *testing.T) {
	var b Bb
	b.Update(0x2000, func() (uint32, status.Status) {
		return 0, status.MMUPageFault
	})

	require.Equal(t, instr.StatusInstr, b.Instrs[0].ID)
	assert.Equal(t, status.MMUPageFault, b.Instrs[0].Status())
}

func TestBb_UpdateStopsOnUndefinedDecode(t *testing.T) {
	var b Bb
	b.Update(0x3000, func() (uint32, status.Status) {
		return 0, status.OK // all-zero word decodes to UNDEF
	})

	require.Equal(t, instr.StatusInstr, b.Instrs[0].ID)
	assert.Equal(t, status.SimNotImplementedInstr, b.Instrs[0].Status())
}

func TestBb_UpdateHitsMaxSizeBoundary(t *testing.T) {
	var b Bb
	b.Update(0x4000, func() (uint32, status.Status) {
		return addiX1X1Imm1, status.OK
	})

	for i := 0; i < MaxBlockSize-1; i++ {
		assert.Equal(t, instr.ADDI, b.Instrs[i].ID)
	}
	require.Equal(t, instr.StatusInstr, b.Instrs[MaxBlockSize-1].ID)
	assert.Equal(t, status.OK, b.Instrs[MaxBlockSize-1].Status())
}

func TestBb_Invalidate(t *testing.T) {
	var b Bb
	b.Update(0x5000, func() (uint32, status.Status) { return jalX0Imm0, status.OK })

	b.Invalidate()

	assert.Equal(t, PoisonVA, b.VA)
	assert.Equal(t, instr.StatusInstr, b.Instrs[0].ID)
}
