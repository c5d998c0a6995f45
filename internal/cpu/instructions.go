package cpu

// illegalOpcode handles one of the DMG's undefined opcodes (0xD3, 0xDB,
// 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD): per spec.md §7
// this is a no-op that stamps "???" into the last-instruction string
// rather than trapping. Costs a single M-cycle, same as NOP.
func (c *CPU) illegalOpcode() int {
	c.State.LastInstruction = "???"
	return 4
}

// register index 6 addresses (HL) rather than a register in r[z]/r[y]
// tables; every other index maps straight onto B,C,D,E,H,L,_,A.
const regHLIndirect = 6

func (c *CPU) reg8(idx uint8) uint8 {
	switch idx {
	case 0:
		return c.State.B
	case 1:
		return c.State.C
	case 2:
		return c.State.D
	case 3:
		return c.State.E
	case 4:
		return c.State.H
	case 5:
		return c.State.L
	case regHLIndirect:
		return c.Mem.Read8(c.hl())
	default:
		return c.State.A
	}
}

func (c *CPU) setReg8(idx uint8, value uint8) {
	switch idx {
	case 0:
		c.State.B = value
	case 1:
		c.State.C = value
	case 2:
		c.State.D = value
	case 3:
		c.State.E = value
	case 4:
		c.State.H = value
	case 5:
		c.State.L = value
	case regHLIndirect:
		c.Mem.Write8(c.hl(), value)
	default:
		c.State.A = value
	}
}

func (c *CPU) rp(p uint8) uint16 {
	switch p {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.State.SP
	}
}

func (c *CPU) setRP(p uint8, v uint16) {
	switch p {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.State.SP = v
	}
}

func (c *CPU) rp2(p uint8) uint16 {
	switch p {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.af()
	}
}

func (c *CPU) setRP2(p uint8, v uint16) {
	switch p {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.setAF(v)
	}
}

func (c *CPU) condition(idx uint8) bool {
	switch idx {
	case 0:
		return !c.flag(FlagZ)
	case 1:
		return c.flag(FlagZ)
	case 2:
		return !c.flag(FlagC)
	default:
		return c.flag(FlagC)
	}
}

// execute decodes and runs one non-prefixed opcode, returning its T-cycle
// cost. Decomposition follows the standard x/y/z/p/q opcode field layout:
// x=opcode>>6, y=(opcode>>3)&7, z=opcode&7, p=y>>1, q=y&1.
func (c *CPU) execute(opcode uint8) (int, error) {
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		return c.executeX0(y, z)
	case 1:
		if z == regHLIndirect && y == regHLIndirect {
			c.State.Halted = true
			return 4, nil
		}
		c.setReg8(y, c.reg8(z))
		if y == regHLIndirect || z == regHLIndirect {
			return 8, nil
		}
		return 4, nil
	case 2:
		cycles := 4
		if z == regHLIndirect {
			cycles = 8
		}
		c.alu(y, c.reg8(z))
		return cycles, nil
	default:
		return c.executeX3(y, z, p, q)
	}
}

func (c *CPU) executeX0(y, z uint8) (int, error) {
	p := y >> 1
	q := y & 1

	switch z {
	case 0:
		switch {
		case y == 0:
			return 4, nil // NOP
		case y == 1:
			addr := c.fetch16()
			c.Mem.Write8(addr, uint8(c.State.SP))
			c.Mem.Write8(addr+1, uint8(c.State.SP>>8))
			return 20, nil
		case y == 2:
			c.fetch8() // STOP's (ignored) second byte
			c.State.Stopped = true
			return 4, nil
		case y == 3:
			offset := int8(c.fetch8())
			c.State.PC = uint16(int32(c.State.PC) + int32(offset))
			return 12, nil
		default:
			offset := int8(c.fetch8())
			if c.condition(y - 4) {
				c.State.PC = uint16(int32(c.State.PC) + int32(offset))
				return 12, nil
			}
			return 8, nil
		}
	case 1:
		if q == 0 {
			c.setRP(p, c.fetch16())
			return 12, nil
		}
		c.addHL(c.rp(p))
		return 8, nil
	case 2:
		var addr uint16
		switch p {
		case 0:
			addr = c.bc()
		case 1:
			addr = c.de()
		case 2:
			addr = c.hl()
			c.setHL(addr + 1)
		case 3:
			addr = c.hl()
			c.setHL(addr - 1)
		}
		if q == 0 {
			c.Mem.Write8(addr, c.State.A)
		} else {
			c.State.A = c.Mem.Read8(addr)
		}
		return 8, nil
	case 3:
		if q == 0 {
			c.setRP(p, c.rp(p)+1)
		} else {
			c.setRP(p, c.rp(p)-1)
		}
		return 8, nil
	case 4:
		c.setReg8(y, c.inc8(c.reg8(y)))
		if y == regHLIndirect {
			return 12, nil
		}
		return 4, nil
	case 5:
		c.setReg8(y, c.dec8(c.reg8(y)))
		if y == regHLIndirect {
			return 12, nil
		}
		return 4, nil
	case 6:
		c.setReg8(y, c.fetch8())
		if y == regHLIndirect {
			return 12, nil
		}
		return 8, nil
	default: // z == 7
		c.executeAccumulatorOp(y)
		return 4, nil
	}
}

func (c *CPU) executeX3(y, z, p, q uint8) (int, error) {
	switch z {
	case 0:
		switch {
		case y <= 3:
			if c.condition(y) {
				c.State.PC = c.pop16()
				return 20, nil
			}
			return 8, nil
		case y == 4:
			c.Mem.Write8(0xFF00+uint16(c.fetch8()), c.State.A)
			return 12, nil
		case y == 5:
			c.addSPSigned(int8(c.fetch8()))
			return 16, nil
		case y == 6:
			c.State.A = c.Mem.Read8(0xFF00 + uint16(c.fetch8()))
			return 12, nil
		default:
			c.ldHLSPSigned(int8(c.fetch8()))
			return 12, nil
		}
	case 1:
		if q == 0 {
			c.setRP2(p, c.pop16())
			return 12, nil
		}
		switch p {
		case 0:
			c.State.PC = c.pop16()
			return 16, nil
		case 1:
			c.State.PC = c.pop16()
			c.State.IME = true
			return 16, nil
		case 2:
			c.State.PC = c.hl()
			return 4, nil
		default:
			c.State.SP = c.hl()
			return 8, nil
		}
	case 2:
		switch {
		case y <= 3:
			addr := c.fetch16()
			if c.condition(y) {
				c.State.PC = addr
				return 16, nil
			}
			return 12, nil
		case y == 4:
			c.Mem.Write8(0xFF00+uint16(c.State.C), c.State.A)
			return 8, nil
		case y == 5:
			addr := c.fetch16()
			c.Mem.Write8(addr, c.State.A)
			return 16, nil
		case y == 6:
			c.State.A = c.Mem.Read8(0xFF00 + uint16(c.State.C))
			return 8, nil
		default:
			addr := c.fetch16()
			c.State.A = c.Mem.Read8(addr)
			return 16, nil
		}
	case 3:
		switch y {
		case 0:
			c.State.PC = c.fetch16()
			return 16, nil
		case 1:
			return c.executeCB()
		case 6:
			c.State.IME = false
			c.State.eiPending = false
			return 4, nil
		case 7:
			c.State.eiPending = true
			return 4, nil
		default:
			return c.illegalOpcode(), nil
		}
	case 4:
		if y > 3 {
			// 0xE4/0xEC/0xF4/0xFC: undefined opcodes in CALL cc,nn's slot.
			return c.illegalOpcode(), nil
		}
		addr := c.fetch16()
		if c.condition(y) {
			c.push16(c.State.PC)
			c.State.PC = addr
			return 24, nil
		}
		return 12, nil
	case 5:
		if q == 0 {
			c.push16(c.rp2(p))
			return 16, nil
		}
		if p != 0 {
			// 0xDD/0xED/0xFD: undefined opcodes that alias CALL's bit
			// pattern without being CALL nn (only p==0/y==1, 0xCD, is).
			return c.illegalOpcode(), nil
		}
		addr := c.fetch16()
		c.push16(c.State.PC)
		c.State.PC = addr
		return 24, nil
	case 6:
		c.alu(y, c.fetch8())
		return 8, nil
	default: // z == 7, RST
		c.push16(c.State.PC)
		c.State.PC = uint16(y) * 8
		return 16, nil
	}
}

// executeCB decodes a CB-prefixed opcode: rotates/shifts (x=0), BIT
// (x=1), RES (x=2), SET (x=3), each over r[z].
func (c *CPU) executeCB() (int, error) {
	opcode := c.fetch8()
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7
	indirect := z == regHLIndirect

	switch x {
	case 0:
		c.setReg8(z, c.rotOrShift(y, c.reg8(z)))
		if indirect {
			return 16, nil
		}
		return 8, nil
	case 1:
		c.setFlag(FlagZ, c.reg8(z)&(1<<y) == 0)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, true)
		if indirect {
			return 12, nil
		}
		return 8, nil
	case 2:
		c.setReg8(z, c.reg8(z)&^(1<<y))
		if indirect {
			return 16, nil
		}
		return 8, nil
	default:
		c.setReg8(z, c.reg8(z)|(1<<y))
		if indirect {
			return 16, nil
		}
		return 8, nil
	}
}

// rotOrShift implements CB's eight rotate/shift operations (RLC, RRC, RL,
// RR, SLA, SRA, SWAP, SRL). Unlike the bare-A accumulator forms in the
// x=0/z=7 row, these set Z from the actual result.
func (c *CPU) rotOrShift(op uint8, v uint8) uint8 {
	var result uint8
	var carryOut bool

	switch op {
	case 0: // RLC
		carryOut = v&0x80 != 0
		result = v<<1 | v>>7
	case 1: // RRC
		carryOut = v&0x01 != 0
		result = v>>1 | v<<7
	case 2: // RL
		carryOut = v&0x80 != 0
		result = v << 1
		if c.flag(FlagC) {
			result |= 0x01
		}
	case 3: // RR
		carryOut = v&0x01 != 0
		result = v >> 1
		if c.flag(FlagC) {
			result |= 0x80
		}
	case 4: // SLA
		carryOut = v&0x80 != 0
		result = v << 1
	case 5: // SRA
		carryOut = v&0x01 != 0
		result = v>>1 | v&0x80
	case 6: // SWAP
		result = v<<4 | v>>4
	default: // SRL
		carryOut = v&0x01 != 0
		result = v >> 1
	}

	c.setFlag(FlagZ, result == 0)
	c.setFlag(FlagN, false)
	c.setFlag(FlagH, false)
	if op == 6 {
		c.setFlag(FlagC, false)
	} else {
		c.setFlag(FlagC, carryOut)
	}
	return result
}

// executeAccumulatorOp implements the eight z=7 opcodes of the x=0 row:
// RLCA, RRCA, RLA, RRA, DAA, CPL, SCF, CCF. RLCA/RRCA/RLA/RRA always
// clear Z (unlike their CB-prefixed RLC/RRC/RL/RR counterparts, which set
// it from the result).
func (c *CPU) executeAccumulatorOp(y uint8) {
	switch y {
	case 0: // RLCA
		carry := c.State.A&0x80 != 0
		c.State.A = c.State.A<<1 | c.State.A>>7
		c.setFlag(FlagZ, false)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, carry)
	case 1: // RRCA
		carry := c.State.A&0x01 != 0
		c.State.A = c.State.A>>1 | c.State.A<<7
		c.setFlag(FlagZ, false)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, carry)
	case 2: // RLA
		carry := c.State.A&0x80 != 0
		result := c.State.A << 1
		if c.flag(FlagC) {
			result |= 0x01
		}
		c.State.A = result
		c.setFlag(FlagZ, false)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, carry)
	case 3: // RRA
		carry := c.State.A&0x01 != 0
		result := c.State.A >> 1
		if c.flag(FlagC) {
			result |= 0x80
		}
		c.State.A = result
		c.setFlag(FlagZ, false)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, carry)
	case 4: // DAA
		c.daa()
	case 5: // CPL
		c.State.A = ^c.State.A
		c.setFlag(FlagN, true)
		c.setFlag(FlagH, true)
	case 6: // SCF
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, true)
	default: // CCF
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, !c.flag(FlagC))
	}
}

// daa packs A back into valid BCD after an ADD/ADC/SUB/SBC, following the
// correction-nibble logic confirmed against original_source's DAA.
func (c *CPU) daa() {
	var correction uint8
	carry := false

	if c.flag(FlagH) || (!c.flag(FlagN) && c.State.A&0x0F > 0x09) {
		correction |= 0x06
	}
	if c.flag(FlagC) || (!c.flag(FlagN) && c.State.A > 0x99) {
		correction |= 0x60
		carry = true
	}

	if c.flag(FlagN) {
		c.State.A -= correction
	} else {
		c.State.A += correction
	}

	c.setFlag(FlagZ, c.State.A == 0)
	c.setFlag(FlagC, carry)
	c.setFlag(FlagH, false)
}

func (c *CPU) inc8(v uint8) uint8 {
	result := v + 1
	c.setFlag(FlagZ, result == 0)
	c.setFlag(FlagN, false)
	c.setFlag(FlagH, v&0x0F == 0x0F)
	return result
}

func (c *CPU) dec8(v uint8) uint8 {
	result := v - 1
	c.setFlag(FlagZ, result == 0)
	c.setFlag(FlagN, true)
	c.setFlag(FlagH, v&0x0F == 0)
	return result
}

func (c *CPU) addHL(operand uint16) {
	hl := c.hl()
	result := uint32(hl) + uint32(operand)
	c.setFlag(FlagN, false)
	c.setFlag(FlagH, (hl&0x0FFF)+(operand&0x0FFF) > 0x0FFF)
	c.setFlag(FlagC, result > 0xFFFF)
	c.setHL(uint16(result))
}

func (c *CPU) addSPSigned(offset int8) {
	c.State.SP = c.spPlusSigned(offset)
}

func (c *CPU) ldHLSPSigned(offset int8) {
	c.setHL(c.spPlusSigned(offset))
}

// spPlusSigned implements SP+e8 for both ADD SP,e8 and LD HL,SP+e8: the
// result is a true signed addition, but H/C are computed as an unsigned
// addition on the low byte, matching original_source's SP-relative path.
func (c *CPU) spPlusSigned(offset int8) uint16 {
	sp := c.State.SP
	unsignedOperand := uint16(uint8(offset))

	c.setFlag(FlagZ, false)
	c.setFlag(FlagN, false)
	c.setFlag(FlagH, (sp&0x0F)+(unsignedOperand&0x0F) > 0x0F)
	c.setFlag(FlagC, (sp&0xFF)+(unsignedOperand&0xFF) > 0xFF)

	return uint16(int32(sp) + int32(offset))
}

// alu implements the eight x=2 ALU ops (and x=3/z=6's immediate forms):
// ADD, ADC, SUB, SBC, AND, XOR, OR, CP, all against A.
func (c *CPU) alu(op uint8, operand uint8) {
	a := c.State.A
	switch op {
	case 0: // ADD
		result := uint16(a) + uint16(operand)
		c.setFlag(FlagZ, uint8(result) == 0)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, (a&0x0F)+(operand&0x0F) > 0x0F)
		c.setFlag(FlagC, result > 0xFF)
		c.State.A = uint8(result)
	case 1: // ADC
		carryIn := uint8(0)
		if c.flag(FlagC) {
			carryIn = 1
		}
		result := uint16(a) + uint16(operand) + uint16(carryIn)
		c.setFlag(FlagZ, uint8(result) == 0)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, (a&0x0F)+(operand&0x0F)+carryIn > 0x0F)
		c.setFlag(FlagC, result > 0xFF)
		c.State.A = uint8(result)
	case 2: // SUB
		c.State.A = c.sub(a, operand, 0)
	case 3: // SBC
		carryIn := uint8(0)
		if c.flag(FlagC) {
			carryIn = 1
		}
		c.State.A = c.sub(a, operand, carryIn)
	case 4: // AND
		c.State.A = a & operand
		c.setFlag(FlagZ, c.State.A == 0)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, true)
		c.setFlag(FlagC, false)
	case 5: // XOR
		c.State.A = a ^ operand
		c.setFlag(FlagZ, c.State.A == 0)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, false)
	case 6: // OR
		c.State.A = a | operand
		c.setFlag(FlagZ, c.State.A == 0)
		c.setFlag(FlagN, false)
		c.setFlag(FlagH, false)
		c.setFlag(FlagC, false)
	default: // CP
		c.sub(a, operand, 0)
	}
}

// sub computes a-operand-carryIn and sets flags, returning the result for
// SUB/SBC to store; CP discards it.
func (c *CPU) sub(a, operand, carryIn uint8) uint8 {
	result := uint16(a) - uint16(operand) - uint16(carryIn)
	c.setFlag(FlagZ, uint8(result) == 0)
	c.setFlag(FlagN, true)
	c.setFlag(FlagH, (a&0x0F) < (operand&0x0F)+carryIn)
	c.setFlag(FlagC, uint16(a) < uint16(operand)+uint16(carryIn))
	return uint8(result)
}
