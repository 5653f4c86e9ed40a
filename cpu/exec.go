/*
 * m68kemu - Per-family operation handlers
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package cpu

import (
	"math/bits"

	"github.com/rcornwell/m68kemu/ea"
	"github.com/rcornwell/m68kemu/opcode"
)

// decodeOp resolves one operand descriptor, remembering enough state to
// undo a post-increment/pre-decrement register step and any PC advance
// consumed by extension words, so an address error mid-decode can rewind
// the register and PC and have the exception frame report the address
// of the faulting extension word.
func (c *CPU) decodeOp(desc ea.Descriptor, size ea.Size) (ea.Operand, func(), error) {
	preA := c.st.A
	prePC := c.st.PC
	op, err := ea.Decode(desc, size, c, c.mem)
	undo := func() { c.st.A = preA; c.st.PC = prePC }
	if err != nil {
		return op, undo, err
	}
	return op, undo, nil
}

func asAddrError(err error) (*ea.AddressError, bool) {
	ae, ok := err.(*ea.AddressError)
	return ae, ok
}

// privilegeViolation is returned by a handler that touched a supervisor-only
// resource (SR, USP) from user mode. Move/Andi/Ori/Eori share their Family
// with unprivileged variants, so the check happens inside the handler
// rather than in Step's family-wide isPrivileged gate.
type privilegeViolation struct{}

func (privilegeViolation) Error() string { return "privilege violation" }

// eaCycles is the per-mode, per-size effective-address cost from the
// published 68000 EA timing table, layered on top of each family's fixed
// base cost.
func eaCycles(d ea.Descriptor, size ea.Size) uint8 {
	long := size == ea.SizeLong
	switch d.Mode() {
	case ea.ModeDn, ea.ModeAn:
		return 0
	case ea.ModeAInd, ea.ModeAIndPost:
		if long {
			return 8
		}
		return 4
	case ea.ModeAIndPre:
		if long {
			return 10
		}
		return 6
	case ea.ModeAIndDisp16:
		if long {
			return 12
		}
		return 8
	case ea.ModeAIndIndex:
		if long {
			return 14
		}
		return 10
	case ea.ModeOther:
		switch d.Reg() {
		case ea.OtherAbsW:
			if long {
				return 12
			}
			return 8
		case ea.OtherAbsL:
			if long {
				return 16
			}
			return 12
		case ea.OtherPCDisp:
			if long {
				return 12
			}
			return 8
		case ea.OtherPCIndex:
			if long {
				return 14
			}
			return 10
		case ea.OtherImm:
			if long {
				return 8
			}
			return 4
		}
	}
	return 0
}

// execute dispatches one decoded instruction record to its family handler.
// IPL is polled exactly once per step, at the top of Step in cpu.go before
// the opcode word is fetched, not inside each handler.
func (c *CPU) execute(r opcode.Record, word uint16) error {
	switch r.Family {
	case opcode.Nop:
		c.addCycles(4)
		return nil
	case opcode.Move, opcode.Movea:
		return c.execMove(r)
	case opcode.Moveq:
		return c.execMoveq(r)
	case opcode.Movem:
		return c.execMovem(r)
	case opcode.Lea:
		return c.execLea(r)
	case opcode.Pea:
		return c.execPea(r)
	case opcode.Exg:
		return c.execExg(r)
	case opcode.Swap:
		return c.execSwap(r)
	case opcode.Ext:
		return c.execExt(r)
	case opcode.Clr:
		return c.execClr(r)
	case opcode.Tst:
		return c.execTst(r)
	case opcode.Not:
		return c.execUnaryLogic(r, func(v uint32) uint32 { return ^v })
	case opcode.Neg:
		return c.execNeg(r, false)
	case opcode.Negx:
		return c.execNeg(r, true)
	case opcode.Tas:
		return c.execTas(r)
	case opcode.Nbcd:
		return c.execNbcd(r)

	case opcode.Add, opcode.Sub, opcode.And, opcode.Or, opcode.Eor:
		return c.execDyadic(r)
	case opcode.Addi, opcode.Subi, opcode.Andi, opcode.Ori, opcode.Eori:
		return c.execImmediateDyadic(r)
	case opcode.Addq, opcode.Subq:
		return c.execQuick(r)
	case opcode.Addx, opcode.Subx:
		return c.execExtended(r)
	case opcode.Adda, opcode.Suba:
		return c.execAddrArith(r)
	case opcode.Cmp, opcode.Cmpa, opcode.Cmpi, opcode.Cmpm:
		return c.execCompare(r)

	case opcode.Abcd:
		return c.execBcd(r, true)
	case opcode.Sbcd:
		return c.execBcd(r, false)

	case opcode.Mulu, opcode.Muls:
		return c.execMul(r)
	case opcode.Divu, opcode.Divs:
		return c.execDiv(r)

	case opcode.Btst, opcode.Bchg, opcode.Bclr, opcode.Bset:
		return c.execBitop(r)

	case opcode.Asl, opcode.Asr, opcode.Lsl, opcode.Lsr, opcode.Rol, opcode.Ror, opcode.Roxl, opcode.Roxr:
		return c.execShift(r)

	case opcode.Bra, opcode.Bsr, opcode.Bcc:
		return c.execBranch(r)
	case opcode.Dbcc:
		return c.execDbcc(r)
	case opcode.Scc:
		return c.execScc(r)
	case opcode.Jmp:
		return c.execJmp(r)
	case opcode.Jsr:
		return c.execJsr(r)
	case opcode.Rts:
		return c.execRts()
	case opcode.Rtr:
		return c.execRtr()
	case opcode.Rte:
		return c.execRte()
	case opcode.Trap:
		return c.takeException(vecTrap(r.Data), nil)
	case opcode.Trapv:
		if c.st.V() {
			return c.takeException(VecTrapV, nil)
		}
		c.addCycles(4)
		return nil
	case opcode.Chk:
		return c.execChk(r)

	case opcode.Link:
		return c.execLink(r)
	case opcode.Unlk:
		return c.execUnlk(r)
	case opcode.Stop:
		return c.execStop(r)
	case opcode.Reset:
		c.addCycles(132)
		return nil // guest RESET pulses external devices; modeled as a no-op bus signal
	}
	return nil
}

func (c *CPU) load(desc ea.Descriptor, size ea.Size) (uint32, *ea.Operand, error) {
	op, undo, err := c.decodeOp(desc, size)
	if err != nil {
		return 0, nil, err
	}
	v, err := op.Load(c, c.mem, size)
	if err != nil {
		if _, ok := asAddrError(err); ok {
			undo()
		}
		return 0, nil, err
	}
	c.memAccess(busWords(size))
	return v, &op, nil
}

func (c *CPU) store(op *ea.Operand, size ea.Size, v uint32) error {
	if err := op.Store(c, c.mem, size, v); err != nil {
		return err
	}
	c.memAccess(busWords(size))
	return nil
}

// ---- data movement ----

// privilegedDescriptor reports whether reading or writing d requires
// supervisor mode: SR (full word) and USP, but not CCR (byte-wide SR
// access stays unprivileged on the 68000).
func privilegedDescriptor(d ea.Descriptor) bool {
	return d == ea.DescSR || d == ea.DescUSP
}

func (c *CPU) execMove(r opcode.Record) error {
	if (privilegedDescriptor(r.Operand[0]) || privilegedDescriptor(r.Operand[1])) && !c.st.supervisor() {
		return privilegeViolation{}
	}

	var v uint32
	switch r.Operand[0] {
	case ea.DescSR:
		v = uint32(c.st.SR)
	case ea.DescUSP:
		v = c.st.USP
	default:
		src, _, err := c.decodeOp(r.Operand[0], r.Size)
		if err != nil {
			return err
		}
		v, err = src.Load(c, c.mem, r.Size)
		if err != nil {
			return err
		}
	}

	switch r.Operand[1] {
	case ea.DescCCR:
		c.st.SR = (c.st.SR &^ 0xff) | uint16(v&0xff)
	case ea.DescSR:
		c.st.SR = uint16(v)
	case ea.DescUSP:
		c.st.USP = v
	default:
		dst, dstUndo, err := c.decodeOp(r.Operand[1], r.Size)
		if err != nil {
			return err
		}
		if r.Family == opcode.Move {
			c.logicFlags(v, r.Size)
		}
		if err := c.store(&dst, r.Size, v); err != nil {
			if _, ok := asAddrError(err); ok {
				dstUndo()
			}
			return err
		}
	}
	c.addCycles(4 + eaCycles(r.Operand[0], r.Size))
	return nil
}

func (c *CPU) execMoveq(r opcode.Record) error {
	v := uint32(int32(int8(r.Data)))
	c.SetD(uint(r.Operand[1].Reg()), v)
	c.logicFlags(v, ea.SizeLong)
	c.addCycles(4)
	return nil
}

func (c *CPU) execMovem(r opcode.Record) error {
	toMem := r.Operand[0] == ea.DescRegList
	listDesc, otherDesc := r.Operand[0], r.Operand[1]
	if !toMem {
		listDesc, otherDesc = r.Operand[1], r.Operand[0]
	}
	listOp, _, err := c.decodeOp(listDesc, r.Size)
	if err != nil {
		return err
	}
	list := uint16(listOp.Imm)
	n := bits.OnesCount16(list)

	if otherDesc.Mode() == ea.ModeAIndPre {
		reg := otherDesc.Reg()
		addr := c.A(uint(reg))
		for i := 15; i >= 0; i-- {
			if list&(1<<uint(i)) == 0 {
				continue
			}
			// predecrement list order: bit0=A7..bit15=D0
			regIdx := 15 - i
			var v uint32
			if regIdx < 8 {
				v = c.A(uint(regIdx))
			} else {
				v = c.D(uint(regIdx - 8))
			}
			if r.Size == ea.SizeWord {
				addr -= 2
				if err := c.mem.WriteWord(addr, uint16(v)); err != nil {
					return err
				}
			} else {
				addr -= 4
				if err := c.mem.WriteLong(addr, v); err != nil {
					return err
				}
			}
			c.memAccess(busWords(r.Size))
		}
		c.SetA(uint(reg), addr)
	} else {
		op, undo, err := c.decodeOp(otherDesc, r.Size)
		if err != nil {
			return err
		}
		addr := op.Addr
		for i := 0; i < 16; i++ {
			if list&(1<<uint(i)) == 0 {
				continue
			}
			if toMem {
				var v uint32
				if i < 8 {
					v = c.D(uint(i))
				} else {
					v = c.A(uint(i - 8))
				}
				if r.Size == ea.SizeWord {
					if err := c.mem.WriteWord(addr, uint16(v)); err != nil {
						undo()
						return err
					}
					addr += 2
				} else {
					if err := c.mem.WriteLong(addr, v); err != nil {
						undo()
						return err
					}
					addr += 4
				}
			} else {
				var v uint32
				if r.Size == ea.SizeWord {
					w, err := c.mem.ReadWord(addr)
					if err != nil {
						undo()
						return err
					}
					v = ea.SignExtend(uint32(w), ea.SizeWord)
					addr += 2
				} else {
					l, err := c.mem.ReadLong(addr)
					if err != nil {
						undo()
						return err
					}
					v = l
					addr += 4
				}
				if i < 8 {
					c.SetD(uint(i), v)
				} else {
					c.SetA(uint(i-8), v)
				}
			}
			c.memAccess(busWords(r.Size))
		}
		if otherDesc.Mode() == ea.ModeAIndPost {
			c.SetA(uint(otherDesc.Reg()), addr)
		}
	}
	c.addCycles(uint8(8 + 4*n))
	return nil
}

func (c *CPU) execLea(r opcode.Record) error {
	op, _, err := c.decodeOp(r.Operand[0], ea.SizeLong)
	if err != nil {
		return err
	}
	c.SetA(uint(r.Operand[1].Reg()), op.Addr)
	c.addCycles(4 + eaCycles(r.Operand[0], ea.SizeLong))
	return nil
}

func (c *CPU) execPea(r opcode.Record) error {
	op, _, err := c.decodeOp(r.Operand[0], ea.SizeLong)
	if err != nil {
		return err
	}
	sp := c.A(7) - 4
	c.SetA(7, sp)
	if err := c.mem.WriteLong(sp, op.Addr); err != nil {
		return err
	}
	c.memAccess(1)
	c.addCycles(4 + eaCycles(r.Operand[0], ea.SizeLong))
	return nil
}

func (c *CPU) execExg(r opcode.Record) error {
	get := func(d ea.Descriptor) uint32 {
		if d.Mode() == ea.ModeAn {
			return c.A(uint(d.Reg()))
		}
		return c.D(uint(d.Reg()))
	}
	set := func(d ea.Descriptor, v uint32) {
		if d.Mode() == ea.ModeAn {
			c.SetA(uint(d.Reg()), v)
		} else {
			c.SetD(uint(d.Reg()), v)
		}
	}
	a, b := get(r.Operand[0]), get(r.Operand[1])
	set(r.Operand[0], b)
	set(r.Operand[1], a)
	c.addCycles(6)
	return nil
}

func (c *CPU) execSwap(r opcode.Record) error {
	reg := uint(r.Operand[0].Reg())
	v := c.D(reg)
	v = v<<16 | v>>16
	c.SetD(reg, v)
	c.logicFlags(v, ea.SizeLong)
	c.addCycles(4)
	return nil
}

func (c *CPU) execExt(r opcode.Record) error {
	reg := uint(r.Operand[0].Reg())
	v := c.D(reg)
	var nv uint32
	if r.Size == ea.SizeWord {
		nv = (v &^ 0xffff) | ea.SignExtend(v&0xff, ea.SizeByte)&0xffff
	} else {
		nv = ea.SignExtend(v, ea.SizeWord)
	}
	c.SetD(reg, nv)
	c.logicFlags(nv, r.Size)
	c.addCycles(4)
	return nil
}

func (c *CPU) execClr(r opcode.Record) error {
	op, undo, err := c.decodeOp(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	if err := c.store(&op, r.Size, 0); err != nil {
		if _, ok := asAddrError(err); ok {
			undo()
		}
		return err
	}
	c.logicFlags(0, r.Size)
	c.addCycles(4 + eaCycles(r.Operand[0], r.Size))
	return nil
}

func (c *CPU) execTst(r opcode.Record) error {
	v, _, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	c.logicFlags(v, r.Size)
	c.addCycles(4 + eaCycles(r.Operand[0], r.Size))
	return nil
}

func (c *CPU) execUnaryLogic(r opcode.Record, f func(uint32) uint32) error {
	v, op, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	res := f(v)
	if err := c.store(op, r.Size, res); err != nil {
		return err
	}
	c.logicFlags(res, r.Size)
	c.addCycles(4 + eaCycles(r.Operand[0], r.Size))
	return nil
}

func (c *CPU) execNeg(r opcode.Record, extend bool) error {
	v, op, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	res := uint32(0) - v
	if extend {
		if c.st.X() {
			res--
		}
		c.subFlagsX(res, 0, v, r.Size)
	} else {
		c.subFlags(res, 0, v, r.Size)
	}
	if err := c.store(op, r.Size, res); err != nil {
		return err
	}
	c.addCycles(4 + eaCycles(r.Operand[0], r.Size))
	return nil
}

func (c *CPU) execTas(r opcode.Record) error {
	v, op, err := c.load(r.Operand[0], ea.SizeByte)
	if err != nil {
		return err
	}
	c.logicFlags(v, ea.SizeByte)
	if err := c.store(op, ea.SizeByte, v|0x80); err != nil {
		return err
	}
	c.addCycles(4 + eaCycles(r.Operand[0], ea.SizeByte))
	return nil
}

func (c *CPU) execNbcd(r opcode.Record) error {
	v, op, err := c.load(r.Operand[0], ea.SizeByte)
	if err != nil {
		return err
	}
	res, borrow := bcdSub(0, v, c.st.X())
	c.st.setFlag(srC, borrow)
	c.st.setFlag(srX, borrow)
	if res != 0 {
		c.st.setFlag(srZ, false)
	}
	c.st.setFlag(srN, res&0x80 != 0)
	if err := c.store(op, ea.SizeByte, uint32(res)); err != nil {
		return err
	}
	c.addCycles(6 + eaCycles(r.Operand[0], ea.SizeByte))
	return nil
}

// ---- dyadic arithmetic/logic ----

func (c *CPU) execDyadic(r opcode.Record) error {
	a, _, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	b, dstOp, err := c.decodeOp(r.Operand[1], r.Size)
	if err != nil {
		return err
	}
	bv, err := b.Load(c, c.mem, r.Size)
	if err != nil {
		return err
	}
	var res uint32
	switch r.Family {
	case opcode.Add:
		res = bv + a
		c.addFlags(res, bv, a, r.Size)
	case opcode.Sub:
		res = bv - a
		c.subFlags(res, bv, a, r.Size)
	case opcode.And:
		res = bv & a
		c.logicFlags(res, r.Size)
	case opcode.Or:
		res = bv | a
		c.logicFlags(res, r.Size)
	case opcode.Eor:
		res = bv ^ a
		c.logicFlags(res, r.Size)
	}
	if err := c.store(&b, r.Size, res); err != nil {
		return err
	}
	_ = dstOp
	c.addCycles(4 + eaCycles(r.Operand[0], r.Size) + eaCycles(r.Operand[1], r.Size))
	return nil
}

func (c *CPU) execImmediateDyadic(r opcode.Record) error {
	imm, _, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	switch r.Operand[1] {
	case ea.DescCCR:
		c.applyImmToSR(r.Family, imm, true)
		c.addCycles(20)
		return nil
	case ea.DescSR:
		if !c.st.supervisor() {
			return privilegeViolation{}
		}
		c.applyImmToSR(r.Family, imm, false)
		c.addCycles(20)
		return nil
	}
	dst, dstOp, err := c.decodeOp(r.Operand[1], r.Size)
	if err != nil {
		return err
	}
	v, err := dst.Load(c, c.mem, r.Size)
	if err != nil {
		return err
	}
	c.memAccess(busWords(r.Size))
	var res uint32
	switch r.Family {
	case opcode.Addi:
		res = v + imm
		c.addFlags(res, v, imm, r.Size)
	case opcode.Subi:
		res = v - imm
		c.subFlags(res, v, imm, r.Size)
	case opcode.Andi:
		res = v & imm
		c.logicFlags(res, r.Size)
	case opcode.Ori:
		res = v | imm
		c.logicFlags(res, r.Size)
	case opcode.Eori:
		res = v ^ imm
		c.logicFlags(res, r.Size)
	}
	if err := c.store(&dst, r.Size, res); err != nil {
		return err
	}
	_ = dstOp
	c.addCycles(immediateDyadicBase(r.Operand[1], r.Size) + eaCycles(r.Operand[1], r.Size))
	return nil
}

// immediateDyadicBase is the ADDI/SUBI/ANDI/ORI/EORI base cost: the EA-cost
// table in eaCycles only prices addressing the operand, not the extra bus
// cycles the read-modify-write itself costs, which differ for a register
// destination (no bus traffic) versus a memory destination (two extra
// word-wide transfers for the read and the write).
func immediateDyadicBase(dst ea.Descriptor, size ea.Size) uint8 {
	toReg := dst.Mode() == ea.ModeDn
	switch {
	case toReg && size != ea.SizeLong:
		return 8
	case toReg:
		return 16
	case size != ea.SizeLong:
		return 12
	default:
		return 20
	}
}

func (c *CPU) applyImmToSR(fam opcode.Family, imm uint32, ccrOnly bool) {
	mask := uint16(imm)
	if ccrOnly {
		mask &= 0xff
	}
	switch fam {
	case opcode.Andi:
		c.st.SR &= mask | (^uint16(0xff) & c.st.SR)
		if ccrOnly {
			c.st.SR = (c.st.SR &^ 0xff) | (c.st.SR & mask & 0xff)
		} else {
			c.st.SR &= mask
		}
	case opcode.Ori:
		if ccrOnly {
			c.st.SR |= mask & 0xff
		} else {
			c.st.SR |= mask
		}
	case opcode.Eori:
		if ccrOnly {
			c.st.SR ^= mask & 0xff
		} else {
			c.st.SR ^= mask
		}
	}
}

func (c *CPU) execQuick(r opcode.Record) error {
	data := uint32(r.Data)
	if data == 0 {
		data = 8
	}
	dst := r.Operand[1]
	if dst.Mode() == ea.ModeAn {
		// ADDQ/SUBQ to An: full 32-bit, no flags -- mirrors ADDA/SUBA.
		v := c.A(uint(dst.Reg()))
		if r.Family == opcode.Addq {
			c.SetA(uint(dst.Reg()), v+data)
		} else {
			c.SetA(uint(dst.Reg()), v-data)
		}
		c.addCycles(8)
		return nil
	}
	op, undo, err := c.decodeOp(dst, r.Size)
	if err != nil {
		return err
	}
	v, err := op.Load(c, c.mem, r.Size)
	if err != nil {
		if _, ok := asAddrError(err); ok {
			undo()
		}
		return err
	}
	var res uint32
	if r.Family == opcode.Addq {
		res = v + data
		c.addFlags(res, v, data, r.Size)
	} else {
		res = v - data
		c.subFlags(res, v, data, r.Size)
	}
	if err := c.store(&op, r.Size, res); err != nil {
		return err
	}
	c.addCycles(4 + eaCycles(dst, r.Size))
	return nil
}

func (c *CPU) execExtended(r opcode.Record) error {
	a, _, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	b, dstOp, err := c.decodeOp(r.Operand[1], r.Size)
	if err != nil {
		return err
	}
	bv, err := b.Load(c, c.mem, r.Size)
	if err != nil {
		return err
	}
	x := uint32(0)
	if c.st.X() {
		x = 1
	}
	var res uint32
	if r.Family == opcode.Addx {
		res = bv + a + x
		c.addFlagsX(res, bv, a, r.Size)
	} else {
		res = bv - a - x
		c.subFlagsX(res, bv, a, r.Size)
	}
	if err := c.store(&b, r.Size, res); err != nil {
		return err
	}
	_ = dstOp
	base := uint8(4)
	if r.Operand[0].Mode() == ea.ModeAIndPre {
		base = 18
	}
	c.addCycles(base)
	return nil
}

func (c *CPU) execAddrArith(r opcode.Record) error {
	v, _, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	v = ea.SignExtend(v, r.Size)
	reg := uint(r.Operand[1].Reg())
	cur := c.A(reg)
	if r.Family == opcode.Adda {
		c.SetA(reg, cur+v)
	} else {
		c.SetA(reg, cur-v)
	}
	c.addCycles(8 + eaCycles(r.Operand[0], r.Size))
	return nil
}

func (c *CPU) execCompare(r opcode.Record) error {
	a, _, err := c.load(r.Operand[0], r.Size)
	if err != nil {
		return err
	}
	var bv uint32
	var size ea.Size = r.Size
	if r.Family == opcode.Cmpa {
		bv = c.A(uint(r.Operand[1].Reg()))
		a = ea.SignExtend(a, r.Size)
		size = ea.SizeLong
	} else {
		b, _, err := c.decodeOp(r.Operand[1], r.Size)
		if err != nil {
			return err
		}
		bv, err = b.Load(c, c.mem, r.Size)
		if err != nil {
			return err
		}
	}
	res := bv - a
	c.subFlags(res, bv, a, size)
	c.addCycles(4 + eaCycles(r.Operand[0], r.Size))
	return nil
}

// ---- BCD ----

// bcdAdd/bcdSub implement one BCD digit-pair add/sub with carry-in,
// grounded on the standard decimal-adjust identity used throughout the
// 68000's ABCD/SBCD/NBCD family.
func bcdAdd(a, b uint32, carryIn bool) (uint8, bool) {
	x, y := uint16(a&0xff), uint16(b&0xff)
	cin := uint16(0)
	if carryIn {
		cin = 1
	}
	lo := (x & 0xf) + (y & 0xf) + cin
	var carryLo uint16
	if lo > 9 {
		lo += 6
		carryLo = 1
	}
	hi := (x >> 4) + (y >> 4) + carryLo
	carryHi := false
	if hi > 9 {
		hi += 6
		carryHi = true
	}
	return uint8(((hi & 0xf) << 4) | (lo & 0xf)), carryHi
}

func bcdSub(a, b uint32, borrowIn bool) (uint8, bool) {
	x, y := int16(a&0xff), int16(b&0xff)
	bin := int16(0)
	if borrowIn {
		bin = 1
	}
	lo := (x & 0xf) - (y & 0xf) - bin
	var borrowLo int16
	if lo < 0 {
		lo -= 6
		borrowLo = 1
	}
	hi := (x >> 4) - (y >> 4) - borrowLo
	borrowHi := false
	if hi < 0 {
		hi -= 6
		borrowHi = true
	}
	return uint8(((hi & 0xf) << 4) | (lo & 0xf)), borrowHi
}

func (c *CPU) execBcd(r opcode.Record, add bool) error {
	a, _, err := c.load(r.Operand[0], ea.SizeByte)
	if err != nil {
		return err
	}
	b, dstOp, err := c.decodeOp(r.Operand[1], ea.SizeByte)
	if err != nil {
		return err
	}
	bv, err := b.Load(c, c.mem, ea.SizeByte)
	if err != nil {
		return err
	}
	var res uint8
	var carry bool
	if add {
		res, carry = bcdAdd(bv, a, c.st.X())
	} else {
		res, carry = bcdSub(bv, a, c.st.X())
	}
	c.st.setFlag(srC, carry)
	c.st.setFlag(srX, carry)
	if res != 0 {
		c.st.setFlag(srZ, false)
	}
	c.st.setFlag(srN, res&0x80 != 0)
	if err := c.store(&b, ea.SizeByte, uint32(res)); err != nil {
		return err
	}
	_ = dstOp
	base := uint8(6)
	if r.Operand[0].Mode() == ea.ModeAIndPre {
		base = 18
	}
	c.addCycles(base)
	return nil
}

// ---- multiply/divide ----

func (c *CPU) execMul(r opcode.Record) error {
	src, _, err := c.load(r.Operand[0], ea.SizeWord)
	if err != nil {
		return err
	}
	reg := uint(r.Operand[1].Reg())
	dv := c.D(reg)
	var res uint32
	var transitions int
	if r.Family == opcode.Mulu {
		res = (src & 0xffff) * (dv & 0xffff)
		transitions = bits.OnesCount16(uint16(src))
	} else {
		res = uint32(int32(int16(src)) * int32(int16(dv)))
		// number of 1-bit transitions in the signed multiplier.
		s := uint16(src)
		transitions = bits.OnesCount16(s ^ (s << 1))
	}
	c.SetD(reg, res)
	c.logicFlags(res, ea.SizeLong)
	c.addCycles(uint8(38 + 2*transitions) + eaCycles(r.Operand[0], ea.SizeWord))
	return nil
}

func (c *CPU) execDiv(r opcode.Record) error {
	src, _, err := c.load(r.Operand[0], ea.SizeWord)
	if err != nil {
		return err
	}
	reg := uint(r.Operand[1].Reg())
	dv := c.D(reg)
	if src&0xffff == 0 {
		c.addCycles(8 + eaCycles(r.Operand[0], ea.SizeWord))
		return c.takeException(VecDivZero, nil)
	}
	if r.Family == opcode.Divu {
		quot := dv / (src & 0xffff)
		rem := dv % (src & 0xffff)
		if quot > 0xffff {
			c.st.setFlag(srV, true)
			c.addCycles(10)
			return nil
		}
		c.SetD(reg, (rem<<16)|(quot&0xffff))
		c.st.setFlag(srC, false)
		c.logicFlags(quot, ea.SizeWord)
		c.addCycles(uint8(140) + eaCycles(r.Operand[0], ea.SizeWord))
		return nil
	}
	sdv, ssrc := int32(dv), int32(int16(src))
	q64 := sdv / ssrc
	rem := sdv % ssrc
	if q64 > 0x7fff || q64 < -0x8000 {
		c.st.setFlag(srV, true)
		c.addCycles(10)
		return nil
	}
	c.SetD(reg, (uint32(rem)<<16)|(uint32(q64)&0xffff))
	c.st.setFlag(srC, false)
	c.logicFlags(uint32(q64), ea.SizeWord)
	c.addCycles(uint8(158) + eaCycles(r.Operand[0], ea.SizeWord))
	return nil
}

// ---- bit operations ----

func (c *CPU) execBitop(r opcode.Record) error {
	numDesc := r.Operand[0]
	var bitNum uint32
	if numDesc == ea.DescBitNum {
		op, _, err := c.decodeOp(numDesc, ea.SizeNone)
		if err != nil {
			return err
		}
		bitNum = op.Imm
	} else {
		bitNum = c.D(uint(numDesc.Reg()))
	}
	dst := r.Operand[1]
	size := ea.SizeLong
	if dst.Mode() != ea.ModeDn {
		size = ea.SizeByte
	}
	if size == ea.SizeByte {
		bitNum &= 7
	} else {
		bitNum &= 31
	}
	v, op, err := c.load(dst, size)
	if err != nil {
		return err
	}
	mask := uint32(1) << bitNum
	c.st.setFlag(srZ, v&mask == 0)
	var res uint32 = v
	switch r.Family {
	case opcode.Bchg:
		res ^= mask
	case opcode.Bclr:
		res &^= mask
	case opcode.Bset:
		res |= mask
	}
	if r.Family != opcode.Btst {
		if err := c.store(op, size, res); err != nil {
			return err
		}
	}
	c.addCycles(4 + eaCycles(dst, size))
	return nil
}

// ---- shift/rotate ----

func (c *CPU) execShift(r opcode.Record) error {
	var count uint8
	if r.Operand[0] == ea.DescData3 {
		count = r.Data
		if count == 0 {
			count = 8
		}
	} else if r.Operand[0].Mode() == ea.ModeDn {
		count = uint8(c.D(uint(r.Operand[0].Reg())) & 0x3f)
	} else {
		count = 1 // memory-form shift is always a single bit
	}

	dst := r.Operand[1]
	size := r.Size
	if r.NOperands == 1 {
		dst = r.Operand[0]
	}
	v, op, err := c.load(dst, size)
	if err != nil {
		return err
	}
	res, lastOut, overflow := shiftOnce(r.Family, v, count, size, c.st.X())
	if err := c.store(op, size, res); err != nil {
		return err
	}
	c.shiftFlags(res, size, lastOut, count, overflow)
	c.addCycles(6 + 2*count + eaCycles(dst, size))
	return nil
}

func shiftOnce(fam opcode.Family, v uint32, count uint8, size ea.Size, x bool) (uint32, bool, bool) {
	bitsN := uint(size.Bytes() * 8)
	sign := signBit(v, size)
	lastOut := false
	overflow := false
	switch fam {
	case opcode.Asl, opcode.Lsl:
		for i := uint8(0); i < count; i++ {
			lastOut = v&(1<<(bitsN-1)) != 0
			v <<= 1
			if fam == opcode.Asl && signBit(v, size) != sign {
				overflow = true
			}
		}
	case opcode.Lsr:
		for i := uint8(0); i < count; i++ {
			lastOut = v&1 != 0
			v >>= 1
		}
	case opcode.Asr:
		for i := uint8(0); i < count; i++ {
			lastOut = v&1 != 0
			v = (v >> 1) | (boolBit(sign) << (bitsN - 1))
		}
	case opcode.Rol:
		for i := uint8(0); i < count; i++ {
			lastOut = v&(1<<(bitsN-1)) != 0
			v = (v << 1) | boolBit(lastOut)
		}
	case opcode.Ror:
		for i := uint8(0); i < count; i++ {
			lastOut = v&1 != 0
			v = (v >> 1) | (boolBit(lastOut) << (bitsN - 1))
		}
	case opcode.Roxl:
		carry := x
		for i := uint8(0); i < count; i++ {
			newCarry := v&(1<<(bitsN-1)) != 0
			v = (v << 1) | boolBit(carry)
			carry = newCarry
			lastOut = carry
		}
	case opcode.Roxr:
		carry := x
		for i := uint8(0); i < count; i++ {
			newCarry := v&1 != 0
			v = (v >> 1) | (boolBit(carry) << (bitsN - 1))
			carry = newCarry
			lastOut = carry
		}
	}
	return maskToSizeLocal(v, size), lastOut, overflow
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func maskToSizeLocal(v uint32, size ea.Size) uint32 {
	switch size {
	case ea.SizeByte:
		return v & 0xff
	case ea.SizeWord:
		return v & 0xffff
	default:
		return v
	}
}

// ---- control flow ----

func (c *CPU) execBranch(r opcode.Record) error {
	base := c.st.PC - 2 // instruction word address
	var disp int32
	if r.Extra.HasDisp() {
		op, _, err := c.decodeOp(ea.DescDisp, ea.SizeNone)
		if err != nil {
			return err
		}
		disp = int32(int16(op.Imm))
	} else {
		disp = int32(int8(r.Data))
	}
	target := uint32(int32(base) + 2 + disp)

	take := true
	if r.Family == opcode.Bcc {
		take = c.condTrue(r.Extra.Cond())
	}
	if r.Family == opcode.Bsr {
		sp := c.A(7) - 4
		c.SetA(7, sp)
		if err := c.mem.WriteLong(sp, c.st.PC); err != nil {
			return err
		}
	}
	if take {
		c.st.PC = target
		c.hasPrefetch = false
	}
	c.addCycles(10)
	return nil
}

func (c *CPU) execDbcc(r opcode.Record) error {
	op, _, err := c.decodeOp(ea.DescDisp, ea.SizeNone)
	if err != nil {
		return err
	}
	disp := int32(int16(op.Imm))
	base := c.st.PC - 4

	if c.condTrue(r.Extra.Cond()) {
		c.addCycles(12)
		return nil
	}
	reg := uint(r.Operand[0].Reg())
	v := int16(c.D(reg)) - 1
	c.SetD(reg, (c.D(reg)&0xffff0000)|uint32(uint16(v)))
	if v != -1 {
		c.st.PC = uint32(int32(base) + disp)
		c.hasPrefetch = false
		c.addCycles(10)
	} else {
		c.addCycles(14)
	}
	return nil
}

func (c *CPU) execScc(r opcode.Record) error {
	dst := r.Operand[0]
	var v uint32
	if c.condTrue(r.Extra.Cond()) {
		v = 0xff
	}
	op, undo, err := c.decodeOp(dst, ea.SizeByte)
	if err != nil {
		return err
	}
	if err := c.store(&op, ea.SizeByte, v); err != nil {
		if _, ok := asAddrError(err); ok {
			undo()
		}
		return err
	}
	c.addCycles(4 + eaCycles(dst, ea.SizeByte))
	return nil
}

func (c *CPU) execJmp(r opcode.Record) error {
	op, _, err := c.decodeOp(r.Operand[0], ea.SizeNone)
	if err != nil {
		return err
	}
	c.st.PC = op.Addr
	c.hasPrefetch = false
	c.addCycles(8 + eaCycles(r.Operand[0], ea.SizeNone))
	return nil
}

func (c *CPU) execJsr(r opcode.Record) error {
	op, _, err := c.decodeOp(r.Operand[0], ea.SizeNone)
	if err != nil {
		return err
	}
	sp := c.A(7) - 4
	c.SetA(7, sp)
	if err := c.mem.WriteLong(sp, c.st.PC); err != nil {
		return err
	}
	c.st.PC = op.Addr
	c.hasPrefetch = false
	c.addCycles(8 + eaCycles(r.Operand[0], ea.SizeNone))
	return nil
}

func (c *CPU) execRts() error {
	pc, err := c.mem.ReadLong(c.A(7))
	if err != nil {
		return err
	}
	c.SetA(7, c.A(7)+4)
	c.st.PC = pc
	c.hasPrefetch = false
	c.addCycles(16)
	return nil
}

func (c *CPU) execRtr() error {
	ccr, err := c.mem.ReadWord(c.A(7))
	if err != nil {
		return err
	}
	c.SetA(7, c.A(7)+2)
	pc, err := c.mem.ReadLong(c.A(7))
	if err != nil {
		return err
	}
	c.SetA(7, c.A(7)+4)
	c.st.SR = (c.st.SR &^ 0xff) | (ccr & 0xff)
	c.st.PC = pc
	c.hasPrefetch = false
	c.addCycles(20)
	return nil
}

func (c *CPU) execRte() error {
	// Mirrors takeException's frame order: PC at the stacked SSP, SR
	// immediately above it.
	pc, err := c.mem.ReadLong(c.A(7))
	if err != nil {
		return err
	}
	c.SetA(7, c.A(7)+4)
	sr, err := c.mem.ReadWord(c.A(7))
	if err != nil {
		return err
	}
	c.SetA(7, c.A(7)+2)
	c.st.SR = sr
	c.st.PC = pc
	c.hasPrefetch = false
	c.addCycles(20)
	return nil
}

func (c *CPU) execChk(r opcode.Record) error {
	bound, _, err := c.load(r.Operand[0], ea.SizeWord)
	if err != nil {
		return err
	}
	dv := int16(c.D(uint(r.Operand[1].Reg())))
	c.addCycles(10)
	if dv < 0 {
		c.st.setFlag(srN, true)
		return c.takeException(VecCHK, nil)
	}
	if uint32(dv) > bound {
		c.st.setFlag(srN, false)
		return c.takeException(VecCHK, nil)
	}
	return nil
}

func (c *CPU) execLink(r opcode.Record) error {
	reg := uint(r.Operand[0].Reg())
	op, _, err := c.decodeOp(ea.DescDisp, ea.SizeNone)
	if err != nil {
		return err
	}
	disp := int32(int16(op.Imm))
	sp := c.A(7) - 4
	c.SetA(7, sp)
	if err := c.mem.WriteLong(sp, c.A(reg)); err != nil {
		return err
	}
	c.SetA(reg, sp)
	c.SetA(7, uint32(int32(sp)+disp))
	c.addCycles(16)
	return nil
}

func (c *CPU) execUnlk(r opcode.Record) error {
	reg := uint(r.Operand[0].Reg())
	sp := c.A(reg)
	v, err := c.mem.ReadLong(sp)
	if err != nil {
		return err
	}
	c.SetA(7, sp+4)
	c.SetA(reg, v)
	c.addCycles(12)
	return nil
}

func (c *CPU) execStop(r opcode.Record) error {
	op, _, err := c.decodeOp(r.Operand[0], ea.SizeWord)
	if err != nil {
		return err
	}
	c.st.SR = uint16(op.Imm)
	c.stopped = true
	c.addCycles(4)
	return nil
}
