package rv64

import (
	"fmt"

	"rv64sim/internal/instr"
)

// Disassemble decodes code and renders it as assembly mnemonics, following
// the teacher's Disassemble in shape: decode once, then switch on the
// opcode id to format its operands.
func Disassemble(code uint32) string {
	return disassemble(instr.Decode(code))
}

// disassemble renders an already-decoded instruction as a mnemonic line.
// Hart.run calls this directly on a block's decoded slots for its
// per-instruction trace, so it doesn't have to re-decode a raw word it
// already has the decoded form of.
func disassemble(in instr.Instr) string {
	switch in.ID {
	case instr.LUI:
		return fmt.Sprintf("lui x%d, %d", in.RD, int32(in.Imm))
	case instr.AUIPC:
		return fmt.Sprintf("auipc x%d, %d", in.RD, int32(in.Imm))

	case instr.ADDI:
		return fmt.Sprintf("addi x%d, x%d, %d", in.RD, in.RS1, int32(in.Imm))
	case instr.SLTI:
		return fmt.Sprintf("slti x%d, x%d, %d", in.RD, in.RS1, int32(in.Imm))
	case instr.SLTIU:
		return fmt.Sprintf("sltiu x%d, x%d, %d", in.RD, in.RS1, int32(in.Imm))
	case instr.ANDI:
		return fmt.Sprintf("andi x%d, x%d, %d", in.RD, in.RS1, int32(in.Imm))
	case instr.ORI:
		return fmt.Sprintf("ori x%d, x%d, %d", in.RD, in.RS1, int32(in.Imm))
	case instr.XORI:
		return fmt.Sprintf("xori x%d, x%d, %d", in.RD, in.RS1, int32(in.Imm))
	case instr.ADDIW:
		return fmt.Sprintf("addiw x%d, x%d, %d", in.RD, in.RS1, int32(in.Imm))
	case instr.SLLI:
		return fmt.Sprintf("slli x%d, x%d, %d", in.RD, in.RS1, in.Imm)
	case instr.SRLI:
		return fmt.Sprintf("srli x%d, x%d, %d", in.RD, in.RS1, in.Imm)
	case instr.SRAI:
		return fmt.Sprintf("srai x%d, x%d, %d", in.RD, in.RS1, in.Imm)
	case instr.SLLIW:
		return fmt.Sprintf("slliw x%d, x%d, %d", in.RD, in.RS1, in.Imm)
	case instr.SRLIW:
		return fmt.Sprintf("srliw x%d, x%d, %d", in.RD, in.RS1, in.Imm)
	case instr.SRAIW:
		return fmt.Sprintf("sraiw x%d, x%d, %d", in.RD, in.RS1, in.Imm)

	case instr.ADD:
		return fmt.Sprintf("add x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SUB:
		return fmt.Sprintf("sub x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.AND:
		return fmt.Sprintf("and x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.OR:
		return fmt.Sprintf("or x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.XOR:
		return fmt.Sprintf("xor x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SLT:
		return fmt.Sprintf("slt x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SLTU:
		return fmt.Sprintf("sltu x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SLL:
		return fmt.Sprintf("sll x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SRL:
		return fmt.Sprintf("srl x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SRA:
		return fmt.Sprintf("sra x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.ADDW:
		return fmt.Sprintf("addw x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SUBW:
		return fmt.Sprintf("subw x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SLLW:
		return fmt.Sprintf("sllw x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SRLW:
		return fmt.Sprintf("srlw x%d, x%d, x%d", in.RD, in.RS1, in.RS2)
	case instr.SRAW:
		return fmt.Sprintf("sraw x%d, x%d, x%d", in.RD, in.RS1, in.RS2)

	case instr.LB:
		return fmt.Sprintf("lb x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)
	case instr.LH:
		return fmt.Sprintf("lh x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)
	case instr.LW:
		return fmt.Sprintf("lw x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)
	case instr.LD:
		return fmt.Sprintf("ld x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)
	case instr.LBU:
		return fmt.Sprintf("lbu x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)
	case instr.LHU:
		return fmt.Sprintf("lhu x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)
	case instr.LWU:
		return fmt.Sprintf("lwu x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)

	case instr.SB:
		return fmt.Sprintf("sb x%d, %d(x%d)", in.RS2, int32(in.Imm), in.RS1)
	case instr.SH:
		return fmt.Sprintf("sh x%d, %d(x%d)", in.RS2, int32(in.Imm), in.RS1)
	case instr.SW:
		return fmt.Sprintf("sw x%d, %d(x%d)", in.RS2, int32(in.Imm), in.RS1)
	case instr.SD:
		return fmt.Sprintf("sd x%d, %d(x%d)", in.RS2, int32(in.Imm), in.RS1)

	case instr.JAL:
		return fmt.Sprintf("jal x%d, %d", in.RD, int32(in.Imm))
	case instr.JALR:
		return fmt.Sprintf("jalr x%d, %d(x%d)", in.RD, int32(in.Imm), in.RS1)
	case instr.BEQ:
		return fmt.Sprintf("beq x%d, x%d, %d", in.RS1, in.RS2, int32(in.Imm))
	case instr.BNE:
		return fmt.Sprintf("bne x%d, x%d, %d", in.RS1, in.RS2, int32(in.Imm))
	case instr.BLT:
		return fmt.Sprintf("blt x%d, x%d, %d", in.RS1, in.RS2, int32(in.Imm))
	case instr.BLTU:
		return fmt.Sprintf("bltu x%d, x%d, %d", in.RS1, in.RS2, int32(in.Imm))
	case instr.BGE:
		return fmt.Sprintf("bge x%d, x%d, %d", in.RS1, in.RS2, int32(in.Imm))
	case instr.BGEU:
		return fmt.Sprintf("bgeu x%d, x%d, %d", in.RS1, in.RS2, int32(in.Imm))

	case instr.ECALL:
		return "ecall"

	default:
		return fmt.Sprintf("<unknown instruction: id=%d>", in.ID)
	}
}
