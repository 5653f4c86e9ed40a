/*
 * m68kemu - Opcode schema table
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

package opcode

import "github.com/rcornwell/m68kemu/ea"

// schema is one entry of the bit-pattern table the builder enumerates
// against every opcode word, modeled on mktab.cpp's inst_desc: a fixed
// mask/match pair identifies the instruction family, decode fills in the
// variable fields, and valid rejects encodings the family doesn't permit
// (e.g. An as a destination for a logical instruction).
type schema struct {
	mask, match uint16
	decode      func(w uint16) Record
	valid       func(w uint16) bool
}

func always(uint16) bool { return true }

func eaField(w uint16) ea.Descriptor { return ea.NewNormal(uint8((w>>3)&7), uint8(w&7)) }

func sizeArith(w uint16, shift uint) ea.Size {
	switch (w >> shift) & 3 {
	case 0:
		return ea.SizeByte
	case 1:
		return ea.SizeWord
	default:
		return ea.SizeLong
	}
}

func sizeArithValid(w uint16, shift uint) bool { return (w>>shift)&3 != 3 }

// isDataAlterable excludes An-direct, PC-relative and immediate -- the
// "data alterable" addressing class used by ORI/ANDI/.../CLR/NEG/TST/Scc.
func isDataAlterable(d ea.Descriptor) bool {
	if d.Mode() == ea.ModeAn {
		return false
	}
	if d.Mode() == ea.ModeOther && d.Reg() >= ea.OtherPCDisp {
		return false
	}
	return true
}

// isMemoryAlterable additionally excludes Dn -- used as the destination
// class for AND/OR/EOR/SUB/ADD's "Dn,<ea>" forms.
func isMemoryAlterable(d ea.Descriptor) bool {
	return d.Mode() != ea.ModeDn && isDataAlterable(d)
}

// isControl excludes register-direct, post-increment and pre-decrement --
// the class used by JMP/JSR/PEA/LEA and MOVEM's source/destination.
func isControl(d ea.Descriptor) bool {
	switch d.Mode() {
	case ea.ModeDn, ea.ModeAn, ea.ModeAIndPost, ea.ModeAIndPre:
		return false
	case ea.ModeOther:
		return d.Reg() != ea.OtherImm
	}
	return true
}

func rec(fam Family, size ea.Size, word uint16, ops ...ea.Descriptor) Record {
	r := Record{Family: fam, Name: fam.String(), Size: size, Word: word, NOperands: uint8(len(ops))}
	copy(r.Operand[:], ops)
	r.computeLength()
	return r
}

// schemas is consulted in order; the first matching, valid entry wins.
// More specific bit patterns (narrower masks) are listed before the
// general patterns they carve a hole out of, mirroring how the 68000's
// own decode PLA resolves overlapping fields (e.g. MOVEA within MOVE's
// encoding space, or EXT within MOVEM's).
var schemas = buildSchemas()

func buildSchemas() []schema { //nolint:funlen
	var s []schema
	add := func(mask, match uint16, decode func(uint16) Record) {
		s = append(s, schema{mask: mask, match: match, decode: decode, valid: always})
	}
	addIf := func(mask, match uint16, valid func(uint16) bool, decode func(uint16) Record) {
		s = append(s, schema{mask: mask, match: match, decode: decode, valid: valid})
	}

	// ---- immediate group: ORI/ANDI/SUBI/ADDI/EORI/CMPI + CCR/SR variants.
	immGroup := []struct {
		fam        Family
		base       uint16
		hasCCRSR   bool
	}{
		{Ori, 0x0000, true}, {Andi, 0x0200, true}, {Subi, 0x0400, false},
		{Addi, 0x0600, false}, {Eori, 0x0A00, true}, {Cmpi, 0x0C00, false},
	}
	for _, g := range immGroup {
		g := g
		if g.hasCCRSR {
			add(0xFFFF, g.base|0x003C, func(w uint16) Record {
				return rec(g.fam, ea.SizeByte, w, ea.NewNormal(ea.ModeOther, ea.OtherImm), ea.DescCCR)
			})
			add(0xFFFF, g.base|0x007C, func(w uint16) Record {
				return rec(g.fam, ea.SizeWord, w, ea.NewNormal(ea.ModeOther, ea.OtherImm), ea.DescSR)
			})
		}
		addIf(0xFF00, g.base, func(w uint16) bool {
			return sizeArithValid(w, 6) && isDataAlterable(eaField(w))
		}, func(w uint16) Record {
			return rec(g.fam, sizeArith(w, 6), w, ea.NewNormal(ea.ModeOther, ea.OtherImm), eaField(w))
		})
	}

	// ---- static bit-number BTST/BCHG/BCLR/BSET.
	bitOpsImm := []struct {
		fam  Family
		base uint16
	}{{Btst, 0x0800}, {Bchg, 0x0840}, {Bclr, 0x0880}, {Bset, 0x08C0}}
	for _, b := range bitOpsImm {
		b := b
		addIf(0xFFC0, b.base, func(w uint16) bool { return eaField(w).Mode() != ea.ModeAn }, func(w uint16) Record {
			return rec(b.fam, ea.SizeNone, w, ea.DescBitNum, eaField(w))
		})
	}
	bitOpsReg := []struct {
		fam  Family
		base uint16
	}{{Btst, 0x0100}, {Bchg, 0x0140}, {Bclr, 0x0180}, {Bset, 0x01C0}}
	for _, b := range bitOpsReg {
		b := b
		addIf(0xF1C0, b.base, func(w uint16) bool { return eaField(w).Mode() != ea.ModeAn }, func(w uint16) Record {
			return rec(b.fam, ea.SizeNone, w, ea.NewNormal(ea.ModeDn, uint8((w>>9)&7)), eaField(w))
		})
	}

	// ---- MOVEA/MOVE and its SR/CCR/USP special destinations.
	addIf(0xC1C0, 0x0040, func(w uint16) bool { sy := (w >> 12) & 3; return sy == 2 || sy == 3 }, func(w uint16) Record {
		size := ea.SizeWord
		if (w>>12)&3 == 2 {
			size = ea.SizeLong
		}
		return rec(Movea, size, w, eaField(w), ea.NewNormal(ea.ModeAn, uint8((w>>9)&7)))
	})
	add(0xFFC0, 0x44C0, func(w uint16) Record { return rec(Move, ea.SizeByte, w, eaField(w), ea.DescCCR) })
	add(0xFFC0, 0x46C0, func(w uint16) Record { return rec(Move, ea.SizeWord, w, eaField(w), ea.DescSR) })
	add(0xFFC0, 0x40C0, func(w uint16) Record { return rec(Move, ea.SizeWord, w, ea.DescSR, eaField(w)) })
	add(0xFFF0, 0x4E60, func(w uint16) Record {
		reg := uint8(w & 7)
		if w&8 != 0 {
			return rec(Move, ea.SizeLong, w, ea.DescUSP, ea.NewNormal(ea.ModeAn, reg))
		}
		return rec(Move, ea.SizeLong, w, ea.NewNormal(ea.ModeAn, reg), ea.DescUSP)
	})
	addIf(0xC000, 0x0000, func(w uint16) bool { return (w>>12)&3 != 0 }, func(w uint16) Record {
		sy := (w >> 12) & 3
		size := ea.SizeWord
		switch sy {
		case 1:
			size = ea.SizeByte
		case 2:
			size = ea.SizeLong
		}
		src := ea.NewNormal(uint8((w>>3)&7), uint8(w&7))
		dst := ea.NewNormal(uint8((w>>6)&7), uint8((w>>9)&7))
		return rec(Move, size, w, src, dst)
	})

	add(0xF100, 0x7000, func(w uint16) Record {
		r := rec(Moveq, ea.SizeLong, w, ea.DescData8, ea.NewNormal(ea.ModeDn, uint8((w>>9)&7)))
		r.Data = uint8(w)
		return r
	})

	// ---- ADDQ/SUBQ. An is a valid destination for word/long (it bypasses
	// flag updates entirely, like ADDA/SUBA -- handled in the interpreter).
	quickValid := func(w uint16) bool {
		if !sizeArithValid(w, 6) {
			return false
		}
		d := eaField(w)
		if d.Mode() == ea.ModeAn {
			return sizeArith(w, 6) != ea.SizeByte
		}
		return isDataAlterable(d)
	}
	addIf(0xF100, 0x5000, quickValid, func(w uint16) Record {
		r := rec(Addq, sizeArith(w, 6), w, ea.DescData3, eaField(w))
		r.Data = uint8((w >> 9) & 7)
		return r
	})
	addIf(0xF100, 0x5100, quickValid, func(w uint16) Record {
		r := rec(Subq, sizeArith(w, 6), w, ea.DescData3, eaField(w))
		r.Data = uint8((w >> 9) & 7)
		return r
	})

	// ---- DBcc then Scc (DBcc carves the An-direct slice out of Scc's space).
	add(0xF0F8, 0x50C8, func(w uint16) Record {
		r := rec(Dbcc, ea.SizeWord, w, ea.NewNormal(ea.ModeDn, uint8(w&7)), ea.DescDisp)
		r.Extra = ea.NewExtra(uint8((w>>8)&0xf), true, true)
		return r
	})
	addIf(0xF0C0, 0x50C0, func(w uint16) bool { return isDataAlterable(eaField(w)) }, func(w uint16) Record {
		r := rec(Scc, ea.SizeByte, w, eaField(w))
		r.Extra = ea.NewExtra(uint8((w>>8)&0xf), true, false)
		return r
	})

	// ---- BRA/BSR then Bcc.
	add(0xFF00, 0x6000, func(w uint16) Record { return branchRecord(Bra, 0, w) })
	add(0xFF00, 0x6100, func(w uint16) Record { return branchRecord(Bsr, 1, w) })
	add(0xF000, 0x6000, func(w uint16) Record { return branchRecord(Bcc, uint8((w>>8)&0xf), w) })

	// ---- the $4Exx single-word control group.
	add(0xFFFF, 0x4AFC, func(w uint16) Record { return rec(Illegal, ea.SizeNone, w) })
	add(0xFFF0, 0x4E40, func(w uint16) Record { r := rec(Trap, ea.SizeNone, w, ea.DescData4); r.Data = uint8(w & 0xf); return r })
	add(0xFFF8, 0x4E50, func(w uint16) Record {
		r := rec(Link, ea.SizeWord, w, ea.NewNormal(ea.ModeAn, uint8(w&7)), ea.DescDisp)
		r.Extra = ea.NewExtra(0, false, true)
		return r
	})
	add(0xFFF8, 0x4E58, func(w uint16) Record { return rec(Unlk, ea.SizeNone, w, ea.NewNormal(ea.ModeAn, uint8(w&7))) })
	add(0xFFFF, 0x4E70, func(w uint16) Record { return rec(Reset, ea.SizeNone, w) })
	add(0xFFFF, 0x4E71, func(w uint16) Record { return rec(Nop, ea.SizeNone, w) })
	add(0xFFFF, 0x4E72, func(w uint16) Record { return rec(Stop, ea.SizeWord, w, ea.NewNormal(ea.ModeOther, ea.OtherImm)) })
	add(0xFFFF, 0x4E73, func(w uint16) Record { return rec(Rte, ea.SizeNone, w) })
	add(0xFFFF, 0x4E75, func(w uint16) Record { return rec(Rts, ea.SizeNone, w) })
	add(0xFFFF, 0x4E76, func(w uint16) Record { return rec(Trapv, ea.SizeNone, w) })
	add(0xFFFF, 0x4E77, func(w uint16) Record { return rec(Rtr, ea.SizeNone, w) })
	addIf(0xFFC0, 0x4E80, func(w uint16) bool { return isControl(eaField(w)) }, func(w uint16) Record {
		return rec(Jsr, ea.SizeNone, w, eaField(w))
	})
	addIf(0xFFC0, 0x4EC0, func(w uint16) bool { return isControl(eaField(w)) }, func(w uint16) Record {
		return rec(Jmp, ea.SizeNone, w, eaField(w))
	})

	// ---- single-operand $40xx-$4Axx group: NEGX/CLR/NEG/NOT/NBCD/SWAP/PEA/TAS/TST.
	singleOp := []struct {
		fam  Family
		base uint16
	}{{Negx, 0x4000}, {Clr, 0x4200}, {Neg, 0x4400}, {Not, 0x4600}}
	for _, o := range singleOp {
		o := o
		addIf(0xFF00, o.base, func(w uint16) bool { return sizeArithValid(w, 6) && isDataAlterable(eaField(w)) }, func(w uint16) Record {
			return rec(o.fam, sizeArith(w, 6), w, eaField(w))
		})
	}
	addIf(0xF1C0, 0x4180, func(w uint16) bool { return eaField(w).Mode() != ea.ModeAn }, func(w uint16) Record {
		return rec(Chk, ea.SizeWord, w, eaField(w), ea.NewNormal(ea.ModeDn, uint8((w>>9)&7)))
	})
	addIf(0xF1C0, 0x41C0, func(w uint16) bool { return isControl(eaField(w)) }, func(w uint16) Record {
		return rec(Lea, ea.SizeLong, w, eaField(w), ea.NewNormal(ea.ModeAn, uint8((w>>9)&7)))
	})
	add(0xFFF8, 0x4840, func(w uint16) Record { return rec(Swap, ea.SizeLong, w, ea.NewNormal(ea.ModeDn, uint8(w&7))) })
	add(0xFFB8, 0x4880, func(w uint16) Record {
		size := ea.SizeWord
		if w&0x40 != 0 {
			size = ea.SizeLong
		}
		return rec(Ext, size, w, ea.NewNormal(ea.ModeDn, uint8(w&7)))
	})
	addIf(0xFFC0, 0x4800, func(w uint16) bool { return isDataAlterable(eaField(w)) }, func(w uint16) Record {
		return rec(Nbcd, ea.SizeByte, w, eaField(w))
	})
	addIf(0xFFC0, 0x4840, func(w uint16) bool { return isControl(eaField(w)) }, func(w uint16) Record {
		return rec(Pea, ea.SizeLong, w, eaField(w))
	})
	addIf(0xFFC0, 0x4AC0, func(w uint16) bool { return isDataAlterable(eaField(w)) }, func(w uint16) Record {
		return rec(Tas, ea.SizeByte, w, eaField(w))
	})
	addIf(0xFF00, 0x4A00, sizeArithValidGeneric(6), func(w uint16) Record {
		return rec(Tst, sizeArith(w, 6), w, eaField(w))
	})

	// ---- MOVEM (EXT already carved the Dn-mode slice out above).
	movem := []struct {
		d, s  uint16
		valid func(ea.Descriptor) bool
	}{
		{0x0000, 0x0000, func(d ea.Descriptor) bool { return d.Mode() == ea.ModeAIndPre || isControl(d) }},
		{0x0000, 0x0040, func(d ea.Descriptor) bool { return d.Mode() == ea.ModeAIndPre || isControl(d) }},
		{0x0400, 0x0000, func(d ea.Descriptor) bool { return d.Mode() == ea.ModeAIndPost || isControl(d) }},
		{0x0400, 0x0040, func(d ea.Descriptor) bool { return d.Mode() == ea.ModeAIndPost || isControl(d) }},
	}
	for _, m := range movem {
		m := m
		size := ea.SizeWord
		if m.s != 0 {
			size = ea.SizeLong
		}
		toMem := m.d == 0
		addIf(0xFFC0, 0x4880|m.d|m.s, func(w uint16) bool { return m.valid(eaField(w)) }, func(w uint16) Record {
			if toMem {
				return rec(Movem, size, w, ea.DescRegList, eaField(w))
			}
			return rec(Movem, size, w, eaField(w), ea.DescRegList)
		})
	}

	// ---- MULU/MULS/DIVU/DIVS.
	add(0xF1C0, 0xC0C0, func(w uint16) Record { return rec(Mulu, ea.SizeWord, w, eaField(w), ea.NewNormal(ea.ModeDn, uint8((w>>9)&7))) })
	add(0xF1C0, 0xC1C0, func(w uint16) Record { return rec(Muls, ea.SizeWord, w, eaField(w), ea.NewNormal(ea.ModeDn, uint8((w>>9)&7))) })
	add(0xF1C0, 0x80C0, func(w uint16) Record { return rec(Divu, ea.SizeWord, w, eaField(w), ea.NewNormal(ea.ModeDn, uint8((w>>9)&7))) })
	add(0xF1C0, 0x81C0, func(w uint16) Record { return rec(Divs, ea.SizeWord, w, eaField(w), ea.NewNormal(ea.ModeDn, uint8((w>>9)&7))) })

	// ---- ABCD/SBCD, EXG.
	addXYBcd := func(fam Family, base uint16) {
		add(0xF1F0, base, func(w uint16) Record {
			x, y := uint8((w>>9)&7), uint8(w&7)
			if w&8 != 0 {
				return rec(fam, ea.SizeByte, w, ea.NewNormal(ea.ModeAIndPre, y), ea.NewNormal(ea.ModeAIndPre, x))
			}
			return rec(fam, ea.SizeByte, w, ea.NewNormal(ea.ModeDn, y), ea.NewNormal(ea.ModeDn, x))
		})
	}
	addXYBcd(Abcd, 0xC100)
	addXYBcd(Sbcd, 0x8100)
	add(0xF1F8, 0xC140, func(w uint16) Record {
		return rec(Exg, ea.SizeLong, w, ea.NewNormal(ea.ModeDn, uint8((w>>9)&7)), ea.NewNormal(ea.ModeDn, uint8(w&7)))
	})
	add(0xF1F8, 0xC148, func(w uint16) Record {
		return rec(Exg, ea.SizeLong, w, ea.NewNormal(ea.ModeAn, uint8((w>>9)&7)), ea.NewNormal(ea.ModeAn, uint8(w&7)))
	})
	add(0xF1F8, 0xC188, func(w uint16) Record {
		return rec(Exg, ea.SizeLong, w, ea.NewNormal(ea.ModeDn, uint8((w>>9)&7)), ea.NewNormal(ea.ModeAn, uint8(w&7)))
	})

	// ---- ADDX/SUBX/CMPM.
	add(0xF138, 0xB108, func(w uint16) Record {
		return rec(Cmpm, sizeArith(w, 6), w, ea.NewNormal(ea.ModeAIndPost, uint8(w&7)), ea.NewNormal(ea.ModeAIndPost, uint8((w>>9)&7)))
	})
	addXX := func(fam Family, base uint16) {
		add(0xF130, base, func(w uint16) Record {
			x, y := uint8((w>>9)&7), uint8(w&7)
			if w&8 != 0 {
				return rec(fam, sizeArith(w, 6), w, ea.NewNormal(ea.ModeAIndPre, y), ea.NewNormal(ea.ModeAIndPre, x))
			}
			return rec(fam, sizeArith(w, 6), w, ea.NewNormal(ea.ModeDn, y), ea.NewNormal(ea.ModeDn, x))
		})
	}
	addXX(Addx, 0xD100)
	addXX(Subx, 0x9100)

	// ---- CMPA/SUBA/ADDA before CMP/SUB/ADD; AND/OR after MUL/DIV/ABCD/EXG.
	addAxGroup := func(fam Family, base uint16) {
		addIf(0xF0C0, base, func(w uint16) bool { return true }, func(w uint16) Record {
			size := ea.SizeWord
			if w&0x0100 != 0 {
				size = ea.SizeLong
			}
			return rec(fam, size, w, eaField(w), ea.NewNormal(ea.ModeAn, uint8((w>>9)&7)))
		})
	}
	addAxGroup(Cmpa, 0xB0C0)
	addAxGroup(Suba, 0x90C0)
	addAxGroup(Adda, 0xD0C0)

	addLogical := func(fam Family, base uint16, blockAnAlways bool) {
		addIf(0xF000, base, func(w uint16) bool {
			if !sizeArithValid(w, 6) {
				return false
			}
			d := eaField(w)
			if blockAnAlways && d.Mode() == ea.ModeAn {
				return false
			}
			if w&0x0100 != 0 {
				return isMemoryAlterable(d)
			}
			return true
		}, func(w uint16) Record {
			size := sizeArith(w, 6)
			d := eaField(w)
			reg := ea.NewNormal(ea.ModeDn, uint8((w>>9)&7))
			if w&0x0100 != 0 {
				return rec(fam, size, w, reg, d)
			}
			return rec(fam, size, w, d, reg)
		})
	}
	addLogical(Or, 0x8000, true)
	addLogical(And, 0xC000, true)
	addLogical(Sub, 0x9000, false)
	addLogical(Add, 0xD000, false)

	add(0xF100, 0xB100, func(w uint16) Record {
		return rec(Eor, sizeArith(w, 6), w, ea.NewNormal(ea.ModeDn, uint8((w>>9)&7)), eaField(w))
	})
	addIf(0xF100, 0xB000, sizeArithValidGeneric(6), func(w uint16) Record {
		return rec(Cmp, sizeArith(w, 6), w, eaField(w), ea.NewNormal(ea.ModeDn, uint8((w>>9)&7)))
	})

	// ---- shift/rotate: memory form (1-bit, word, EA) before register form.
	shiftType := []Family{Asl, Lsl, Roxl, Rol} // index by 2-bit type field; "l" placeholder, direction bit flips to R below
	for t := uint16(0); t < 4; t++ {
		t := t
		fam := shiftType[t]
		famR := [4]Family{Asr, Lsr, Roxr, Ror}[t]
		addIf(0xFEC0, 0xE0C0|(t<<9), func(w uint16) bool { return isMemoryAlterable(eaField(w)) }, func(w uint16) Record {
			if w&0x0100 != 0 {
				return rec(fam, ea.SizeWord, w, eaField(w))
			}
			return rec(famR, ea.SizeWord, w, eaField(w))
		})
	}
	for t := uint16(0); t < 4; t++ {
		t := t
		fam := shiftType[t]
		famR := [4]Family{Asr, Lsr, Roxr, Ror}[t]
		addIf(0xF018|0x0018, 0xE000|(t<<3), func(w uint16) bool { return sizeArithValid(w, 6) }, func(w uint16) Record {
			dst := ea.NewNormal(ea.ModeDn, uint8(w&7))
			var src ea.Descriptor
			if w&0x20 != 0 {
				src = ea.NewNormal(ea.ModeDn, uint8((w>>9)&7))
			} else {
				src = ea.DescData3
			}
			size := sizeArith(w, 6)
			if w&0x0100 != 0 {
				r := rec(fam, size, w, src, dst)
				r.Data = uint8((w >> 9) & 7)
				return r
			}
			r := rec(famR, size, w, src, dst)
			r.Data = uint8((w >> 9) & 7)
			return r
		})
	}

	return s
}

func sizeArithValidGeneric(shift uint) func(uint16) bool {
	return func(w uint16) bool { return sizeArithValid(w, shift) }
}

func branchRecord(fam Family, cond uint8, w uint16) Record {
	r := rec(fam, ea.SizeByte, w, ea.DescDisp)
	disp := uint8(w)
	r.Data = disp
	r.Extra = ea.NewExtra(cond, true, disp == 0)
	if disp == 0 {
		r.Size = ea.SizeWord
	}
	return r
}
