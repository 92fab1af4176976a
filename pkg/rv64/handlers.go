package rv64

import (
	"rv64sim/internal/bitutil"
	"rv64sim/internal/instr"
	"rv64sim/internal/status"
)

// handler implements the per-opcode semantic effect of one decoded
// instruction. A handler that does not terminate its block returns OK,
// after which Hart.run advances to the next slot; a handler that does
// terminate (branches, jumps, faults, ECALL, SIM_STATUS_INSTR) returns a
// status that bounces control back to the outer simulator loop.
type handler func(h *Hart, in *instr.Instr) status.Status

// dispatch is the static opcode-id → handler table the loop indexes into,
// the threaded-dispatch mechanism's Go expression (see Hart.run on
// tail-call emulation).
var dispatch [256]handler

func init() {
	dispatch[instr.LUI] = execLUI
	dispatch[instr.AUIPC] = execAUIPC

	dispatch[instr.ADDI] = execOpImm
	dispatch[instr.SLTI] = execOpImm
	dispatch[instr.SLTIU] = execOpImm
	dispatch[instr.ANDI] = execOpImm
	dispatch[instr.ORI] = execOpImm
	dispatch[instr.XORI] = execOpImm
	dispatch[instr.ADDIW] = execOpImm32
	dispatch[instr.SLLI] = execOpImm
	dispatch[instr.SRLI] = execOpImm
	dispatch[instr.SRAI] = execOpImm
	dispatch[instr.SLLIW] = execOpImm32
	dispatch[instr.SRLIW] = execOpImm32
	dispatch[instr.SRAIW] = execOpImm32

	dispatch[instr.ADD] = execOp
	dispatch[instr.SUB] = execOp
	dispatch[instr.AND] = execOp
	dispatch[instr.OR] = execOp
	dispatch[instr.XOR] = execOp
	dispatch[instr.SLT] = execOp
	dispatch[instr.SLTU] = execOp
	dispatch[instr.SLL] = execOp
	dispatch[instr.SRL] = execOp
	dispatch[instr.SRA] = execOp
	dispatch[instr.ADDW] = execOp32
	dispatch[instr.SUBW] = execOp32
	dispatch[instr.SLLW] = execOp32
	dispatch[instr.SRLW] = execOp32
	dispatch[instr.SRAW] = execOp32

	dispatch[instr.LB] = execLoad
	dispatch[instr.LH] = execLoad
	dispatch[instr.LW] = execLoad
	dispatch[instr.LD] = execLoad
	dispatch[instr.LBU] = execLoad
	dispatch[instr.LHU] = execLoad
	dispatch[instr.LWU] = execLoad

	dispatch[instr.SB] = execStore
	dispatch[instr.SH] = execStore
	dispatch[instr.SW] = execStore
	dispatch[instr.SD] = execStore

	dispatch[instr.JAL] = execJAL
	dispatch[instr.JALR] = execJALR
	dispatch[instr.BEQ] = execBranch
	dispatch[instr.BNE] = execBranch
	dispatch[instr.BLT] = execBranch
	dispatch[instr.BLTU] = execBranch
	dispatch[instr.BGE] = execBranch
	dispatch[instr.BGEU] = execBranch

	dispatch[instr.ECALL] = execECALL
	dispatch[instr.StatusInstr] = execStatusInstr
}

// nonTerminal is the common tail every non-branch, non-fault handler
// shares: bump icount, advance pc by 4, and let the loop move to the next
// decoded slot.
func (h *Hart) nonTerminal() status.Status {
	h.Icount++
	h.PC += 4
	return status.OK
}

func execLUI(h *Hart, in *instr.Instr) status.Status {
	h.gprFile.Write(uint32(in.RD), bitutil.SignExtend32To64(in.Imm))
	return h.nonTerminal()
}

func execAUIPC(h *Hart, in *instr.Instr) status.Status {
	h.gprFile.Write(uint32(in.RD), h.PC+bitutil.SignExtend32To64(in.Imm))
	return h.nonTerminal()
}

// execOpImm handles the 64-bit-result register-immediate ALU opcodes:
// ADDI/SLTI/SLTIU/ANDI/ORI/XORI/SLLI/SRLI/SRAI.
func execOpImm(h *Hart, in *instr.Instr) status.Status {
	r1 := h.gprFile.Read64(uint32(in.RS1))
	var val uint64

	switch in.ID {
	case instr.ADDI:
		val = uint64(int64(r1) + int64(bitutil.SignExtend32To64(in.Imm)))
	case instr.SLTI:
		if int64(r1) < int64(bitutil.SignExtend32To64(in.Imm)) {
			val = 1
		}
	case instr.SLTIU:
		if r1 < bitutil.SignExtend32To64(in.Imm) {
			val = 1
		}
	case instr.ANDI:
		val = r1 & bitutil.SignExtend32To64(in.Imm)
	case instr.ORI:
		val = r1 | bitutil.SignExtend32To64(in.Imm)
	case instr.XORI:
		val = r1 ^ bitutil.SignExtend32To64(in.Imm)
	case instr.SLLI:
		val = r1 << (uint64(in.Imm) & 0x3f)
	case instr.SRLI:
		val = r1 >> (uint64(in.Imm) & 0x3f)
	case instr.SRAI:
		val = uint64(int64(r1) >> (uint64(in.Imm) & 0x3f))
	}

	h.gprFile.Write(uint32(in.RD), val)
	return h.nonTerminal()
}

// execOpImm32 handles ADDIW/SLLIW/SRLIW/SRAIW: operate on the low 32 bits
// of rs1, sign-extending the 32-bit result to 64.
func execOpImm32(h *Hart, in *instr.Instr) status.Status {
	r1 := h.gprFile.Read32(uint32(in.RS1))
	var val int32

	switch in.ID {
	case instr.ADDIW:
		val = int32(r1) + int32(in.Imm)
	case instr.SLLIW:
		val = int32(r1 << (in.Imm & 0x1f))
	case instr.SRLIW:
		val = int32(r1 >> (in.Imm & 0x1f))
	case instr.SRAIW:
		val = int32(r1) >> (in.Imm & 0x1f)
	}

	h.gprFile.Write(uint32(in.RD), uint64(int64(val)))
	return h.nonTerminal()
}

// execOp handles the register-register ALU opcodes whose result is the
// full 64-bit width: ADD/SUB/AND/OR/XOR/SLT/SLTU/SLL/SRL/SRA.
func execOp(h *Hart, in *instr.Instr) status.Status {
	r1 := h.gprFile.Read64(uint32(in.RS1))
	r2 := h.gprFile.Read64(uint32(in.RS2))
	var val uint64

	switch in.ID {
	case instr.ADD:
		val = uint64(int64(r1) + int64(r2))
	case instr.SUB:
		val = uint64(int64(r1) - int64(r2))
	case instr.AND:
		val = r1 & r2
	case instr.OR:
		val = r1 | r2
	case instr.XOR:
		val = r1 ^ r2
	case instr.SLT:
		if int64(r1) < int64(r2) {
			val = 1
		}
	case instr.SLTU:
		if r1 < r2 {
			val = 1
		}
	case instr.SLL:
		val = r1 << (r2 & 0x3f)
	case instr.SRL:
		val = r1 >> (r2 & 0x3f)
	case instr.SRA:
		val = uint64(int64(r1) >> (r2 & 0x3f))
	}

	h.gprFile.Write(uint32(in.RD), val)
	return h.nonTerminal()
}

// execOp32 handles ADDW/SUBW/SLLW/SRLW/SRAW: 32-bit register-register
// result, sign-extended to 64; shift counts use the low 5 bits of rs2.
func execOp32(h *Hart, in *instr.Instr) status.Status {
	r1 := h.gprFile.Read32(uint32(in.RS1))
	r2 := h.gprFile.Read32(uint32(in.RS2))
	var val int32

	switch in.ID {
	case instr.ADDW:
		val = int32(r1) + int32(r2)
	case instr.SUBW:
		val = int32(r1) - int32(r2)
	case instr.SLLW:
		val = int32(r1 << (r2 & 0x1f))
	case instr.SRLW:
		val = int32(r1 >> (r2 & 0x1f))
	case instr.SRAW:
		val = int32(r1) >> (r2 & 0x1f)
	}

	h.gprFile.Write(uint32(in.RD), uint64(int64(val)))
	return h.nonTerminal()
}

func loadWidth(id instr.ID) int {
	switch id {
	case instr.LB, instr.LBU:
		return 1
	case instr.LH, instr.LHU:
		return 2
	case instr.LW, instr.LWU:
		return 4
	case instr.LD:
		return 8
	default:
		panic("rv64: not a load opcode")
	}
}

func signedLoad(id instr.ID) bool {
	switch id {
	case instr.LB, instr.LH, instr.LW:
		return true
	default:
		return false
	}
}

func execLoad(h *Hart, in *instr.Instr) status.Status {
	base := h.gprFile.Read64(uint32(in.RS1))
	va := uint64(int64(base) + int64(bitutil.SignExtend32To64(in.Imm)))

	width := loadWidth(in.ID)
	raw, st := h.loadValue(va, width)
	if !st.IsOK() {
		return st
	}

	var val uint64
	if signedLoad(in.ID) {
		val = signExtendWidth(raw, width)
	} else {
		val = raw
	}

	h.gprFile.Write(uint32(in.RD), val)
	return h.nonTerminal()
}

func storeWidth(id instr.ID) int {
	switch id {
	case instr.SB:
		return 1
	case instr.SH:
		return 2
	case instr.SW:
		return 4
	case instr.SD:
		return 8
	default:
		panic("rv64: not a store opcode")
	}
}

func execStore(h *Hart, in *instr.Instr) status.Status {
	base := h.gprFile.Read64(uint32(in.RS1))
	va := uint64(int64(base) + int64(bitutil.SignExtend32To64(in.Imm)))
	val := h.gprFile.Read64(uint32(in.RS2))

	width := storeWidth(in.ID)
	if st := h.storeValue(va, width, val); !st.IsOK() {
		return st
	}
	return h.nonTerminal()
}

func signExtendWidth(raw uint64, width int) uint64 {
	switch width {
	case 1:
		return uint64(int64(int8(raw)))
	case 2:
		return uint64(int64(int16(raw)))
	case 4:
		return uint64(int64(int32(raw)))
	default:
		return raw
	}
}

func execJAL(h *Hart, in *instr.Instr) status.Status {
	link := h.PC + 4
	target := uint64(int64(h.PC) + int64(bitutil.SignExtend32To64(in.Imm)))
	if target&0x3 != 0 {
		return status.SimPCAlignError
	}
	h.gprFile.Write(uint32(in.RD), link)
	h.PC = target
	h.Icount++
	return status.OK
}

func execJALR(h *Hart, in *instr.Instr) status.Status {
	r1 := h.gprFile.Read64(uint32(in.RS1))
	link := h.PC + 4
	target := (uint64(int64(r1) + int64(bitutil.SignExtend32To64(in.Imm)))) &^ uint64(1)
	if target&0x3 != 0 {
		return status.SimPCAlignError
	}
	h.gprFile.Write(uint32(in.RD), link)
	h.PC = target
	h.Icount++
	return status.OK
}

func execBranch(h *Hart, in *instr.Instr) status.Status {
	r1 := h.gprFile.Read64(uint32(in.RS1))
	r2 := h.gprFile.Read64(uint32(in.RS2))

	var taken bool
	switch in.ID {
	case instr.BEQ:
		taken = r1 == r2
	case instr.BNE:
		taken = r1 != r2
	case instr.BLT:
		taken = int64(r1) < int64(r2)
	case instr.BGE:
		taken = int64(r1) >= int64(r2)
	case instr.BLTU:
		taken = r1 < r2
	case instr.BGEU:
		taken = r1 >= r2
	}

	if taken {
		target := uint64(int64(h.PC) + int64(bitutil.SignExtend32To64(in.Imm)))
		if target&0x3 != 0 {
			return status.SimPCAlignError
		}
		h.PC = target
	} else {
		h.PC += 4
	}
	h.Icount++
	return status.OK
}

func execECALL(h *Hart, in *instr.Instr) status.Status {
	h.PC += 4
	h.Icount++
	return status.SimExit
}

func execStatusInstr(h *Hart, in *instr.Instr) status.Status {
	return in.Status()
}
