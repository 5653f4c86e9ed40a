/*
 * m68kemu - Assembler
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

package assemble

import (
	"fmt"
	"strings"

	"github.com/rcornwell/m68kemu/ea"
)

type encoderFunc func(a *Assembler, rest string, size ea.Size) error

var encoders map[string]encoderFunc

var directives map[string]func(a *Assembler, rest string, size ea.Size) error

// condCodes mirrors the 4-bit condition field shared by Bcc/DBcc/Scc.
var condCodes = map[string]uint16{
	"T": 0x0, "F": 0x1, "HI": 0x2, "LS": 0x3, "CC": 0x4, "HS": 0x4,
	"CS": 0x5, "LO": 0x5, "NE": 0x6, "EQ": 0x7, "VC": 0x8, "VS": 0x9,
	"PL": 0xA, "MI": 0xB, "GE": 0xC, "LT": 0xD, "GT": 0xE, "LE": 0xF,
}

func sizeArithBits(s ea.Size) uint16 {
	switch s {
	case ea.SizeByte:
		return 0
	case ea.SizeWord:
		return 1
	default:
		return 2
	}
}

func moveSizeBits(s ea.Size) uint16 {
	switch s {
	case ea.SizeByte:
		return 1
	case ea.SizeLong:
		return 2
	default:
		return 3
	}
}

// eaBits packs a descriptor the way most instruction words do: mode in the
// upper three bits, register in the lower three.
func eaBits(d ea.Descriptor) uint16 { return uint16(d.Mode())<<3 | uint16(d.Reg()) }

// dstField packs MOVE's destination field, which reverses that order:
// register in the upper three bits, mode in the lower three.
func dstField(d ea.Descriptor) uint16 { return uint16(d.Reg())<<3 | uint16(d.Mode()) }

func init() {
	directives = map[string]func(a *Assembler, rest string, size ea.Size) error{
		"ORG": dirOrg,
		"EQU": dirEquErr,
		"DC":  dirDC,
		"DS":  dirDS,
	}

	encoders = map[string]encoderFunc{
		"MOVE":  encMove,
		"MOVEA": encMove,
		"MOVEQ": encMoveq,
		"MOVEM": encMovem,
		"LEA":   encLea,
		"PEA":   encPea,
		"EXG":   encExg,
		"SWAP":  encSwap,
		"EXT":   encExt,
		"CLR":   encSingleOp(0x4200),
		"NEG":   encSingleOp(0x4400),
		"NEGX":  encSingleOp(0x4000),
		"NOT":   encSingleOp(0x4600),
		"TST":   encSingleOp(0x4A00),
		"NBCD":  encNbcd,
		"TAS":   encTas,
		"CHK":   encChk,
		"ADD":   encAddSubCmp(0xD000, 0xD0C0, true),
		"SUB":   encAddSubCmp(0x9000, 0x90C0, true),
		"CMP":   encAddSubCmp(0xB000, 0xB0C0, false),
		"ADDA":  encAxGroup(0xD0C0),
		"SUBA":  encAxGroup(0x90C0),
		"CMPA":  encAxGroup(0xB0C0),
		"AND":   encAndOr(0xC000),
		"OR":    encAndOr(0x8000),
		"EOR":   encEor,
		"ADDI":  encImmGroup(0x0600, false),
		"SUBI":  encImmGroup(0x0400, false),
		"CMPI":  encImmGroup(0x0C00, false),
		"ANDI":  encImmGroup(0x0200, true),
		"ORI":   encImmGroup(0x0000, true),
		"EORI":  encImmGroup(0x0A00, true),
		"ADDQ":  encQuick(0x5000),
		"SUBQ":  encQuick(0x5100),
		"ADDX":  encAddSubX(0xD100),
		"SUBX":  encAddSubX(0x9100),
		"ABCD":  encBcd(0xC100),
		"SBCD":  encBcd(0x8100),
		"CMPM":  encCmpm,
		"MULU":  encMulDiv(0xC0C0),
		"MULS":  encMulDiv(0xC1C0),
		"DIVU":  encMulDiv(0x80C0),
		"DIVS":  encMulDiv(0x81C0),
		"BTST":  encBitop(0x0800, 0x0100),
		"BCHG":  encBitop(0x0840, 0x0140),
		"BCLR":  encBitop(0x0880, 0x0180),
		"BSET":  encBitop(0x08C0, 0x01C0),
		"ASL":   encShift(0, true),
		"ASR":   encShift(0, false),
		"LSL":   encShift(1, true),
		"LSR":   encShift(1, false),
		"ROXL":  encShift(2, true),
		"ROXR":  encShift(2, false),
		"ROL":   encShift(3, true),
		"ROR":   encShift(3, false),
		"BRA":   encBra,
		"BSR":   encBsr,
		"JMP":   encJmp,
		"JSR":   encJsr,
		"RTS":   fixedWord(0x4E75),
		"RTR":   fixedWord(0x4E77),
		"RTE":   fixedWord(0x4E73),
		"RESET": fixedWord(0x4E70),
		"NOP":   fixedWord(0x4E71),
		"TRAPV": fixedWord(0x4E76),
		"ILLEGAL": fixedWord(0x4AFC),
		"TRAP":  encTrap,
		"STOP":  encStop,
		"LINK":  encLink,
		"UNLK":  encUnlk,
	}

	for name, code := range condCodes {
		if name == "T" || name == "F" || name == "HS" || name == "LO" {
			continue // BRA/BSR own cond 0/1; HS/LO are CC/CS aliases, registered once below
		}
		code := code
		encoders["B"+name] = func(a *Assembler, rest string, size ea.Size) error {
			return a.emitBranch(0x6000|(code<<8), size, rest)
		}
		encoders["DB"+name] = encDbcc(code)
		encoders["S"+name] = encScc(code)
	}
	encoders["DBT"] = encDbcc(condCodes["T"])
	encoders["DBF"] = encDbcc(condCodes["F"])
	encoders["ST"] = encScc(condCodes["T"])
	encoders["SF"] = encScc(condCodes["F"])
	encoders["BHS"] = encoders["BCC"]
	encoders["BLO"] = encoders["BCS"]
}

func dirEquErr(_ *Assembler, _ string, _ ea.Size) error {
	return fmt.Errorf("EQU requires a preceding label")
}

func dirOrg(a *Assembler, rest string, _ ea.Size) error {
	v, err := parseNumber(rest)
	if err != nil {
		return err
	}
	a.pc = uint32(v)
	return nil
}

func dirDC(a *Assembler, rest string, size ea.Size) error {
	fields := splitOperands(rest)
	if size == ea.SizeByte {
		var bytes []uint8
		for _, f := range fields {
			v, err := parseNumber(f)
			if err != nil {
				return err
			}
			bytes = append(bytes, uint8(v))
		}
		for i := 0; i < len(bytes); i += 2 {
			hi := bytes[i]
			var lo uint8
			if i+1 < len(bytes) {
				lo = bytes[i+1]
			}
			a.emit(uint16(hi)<<8 | uint16(lo))
		}
		return nil
	}
	for _, f := range fields {
		v, err := parseNumber(f)
		if err != nil {
			return err
		}
		if size == ea.SizeLong {
			a.emit(uint16(uint32(v) >> 16))
			a.emit(uint16(v))
		} else {
			a.emit(uint16(v))
		}
	}
	return nil
}

func dirDS(a *Assembler, rest string, size ea.Size) error {
	n, err := parseNumber(rest)
	if err != nil {
		return err
	}
	words := uint32(n)
	if size == ea.SizeLong {
		words *= 2
	}
	if size == ea.SizeByte {
		words = (words + 1) / 2
	}
	for i := uint32(0); i < words; i++ {
		a.emit(0)
	}
	return nil
}

func (a *Assembler) parsePair(rest string, size ea.Size) (ea.Parsed, ea.Parsed, error) {
	ops := splitOperands(rest)
	if len(ops) != 2 {
		return ea.Parsed{}, ea.Parsed{}, fmt.Errorf("expected 2 operands, got %d", len(ops))
	}
	p0, err := a.parseOp(ops[0], size)
	if err != nil {
		return ea.Parsed{}, ea.Parsed{}, err
	}
	p1, err := a.parseOp(ops[1], size)
	if err != nil {
		return ea.Parsed{}, ea.Parsed{}, err
	}
	return p0, p1, nil
}

func (a *Assembler) resolveValue(text string) (uint32, bool) {
	text = strings.TrimSpace(text)
	if v, err := parseNumber(text); err == nil {
		return uint32(v), true
	}
	return a.Lookup(text)
}

// emitBranch handles BRA/BSR/Bcc's three encodings: an explicit short form
// (size == SizeByte, from a ".S" suffix), an explicit word form (SizeWord,
// from ".W"), or automatic shortest-fit when the target is already known.
// A forward reference always takes the word form, with or without a size
// suffix: ".S" on a label that is not yet defined still emits a word
// displacement, since only word-sized branch fixups are recorded.
func (a *Assembler) emitBranch(base uint16, size ea.Size, target string) error {
	instrPC := a.pc
	val, ok := a.resolveValue(target)
	if size == ea.SizeWord || !ok {
		a.emit(base)
		extAddr := a.pc
		if !ok {
			a.emit(0)
			a.fixups = append(a.fixups, fixup{addr: extAddr, pc: extAddr, kind: ea.FixupPCWord, symbol: target})
			return nil
		}
		disp := int32(val) - int32(instrPC+2)
		a.emit(uint16(int16(disp)))
		return nil
	}
	disp := int32(val) - int32(instrPC+2)
	if size == ea.SizeByte {
		if disp == 0 || disp < -128 || disp > 127 {
			return fmt.Errorf("branch target out of short range")
		}
		a.emit(base | uint16(uint8(int8(disp))))
		return nil
	}
	if disp != 0 && disp >= -128 && disp <= 127 {
		a.emit(base | uint16(uint8(int8(disp))))
		return nil
	}
	a.emit(base)
	a.emit(uint16(int16(disp)))
	return nil
}

func encMove(a *Assembler, rest string, size ea.Size) error {
	if size == ea.SizeNone {
		size = ea.SizeWord
	}
	src, dst, err := a.parsePair(rest, size)
	if err != nil {
		return err
	}

	switch dst.Desc {
	case ea.DescCCR:
		a.emit(0x44C0 | eaBits(src.Desc))
		a.emitExt(src)
		return nil
	case ea.DescSR:
		a.emit(0x46C0 | eaBits(src.Desc))
		a.emitExt(src)
		return nil
	case ea.DescUSP:
		if src.Desc.Mode() != ea.ModeAn {
			return fmt.Errorf("MOVE An,USP requires an address register source")
		}
		a.emit(0x4E60 | uint16(src.Desc.Reg()))
		return nil
	}
	switch src.Desc {
	case ea.DescSR:
		a.emit(0x40C0 | eaBits(dst.Desc))
		a.emitExt(dst)
		return nil
	case ea.DescUSP:
		if dst.Desc.Mode() != ea.ModeAn {
			return fmt.Errorf("MOVE USP,An requires an address register destination")
		}
		a.emit(0x4E68 | uint16(dst.Desc.Reg()))
		return nil
	}

	sBits := moveSizeBits(size)
	word := sBits<<12 | dstField(dst.Desc)<<6 | eaBits(src.Desc)
	a.emit(word)
	a.emitExt(src)
	a.emitExt(dst)
	return nil
}

func encMoveq(a *Assembler, rest string, _ ea.Size) error {
	ops := splitOperands(rest)
	if len(ops) != 2 {
		return fmt.Errorf("expected 2 operands")
	}
	n, err := parseNumber(ops[0])
	if err != nil {
		return err
	}
	if n < -128 || n > 127 {
		return fmt.Errorf("MOVEQ immediate out of range")
	}
	dst, err := a.parseOp(ops[1], ea.SizeLong)
	if err != nil {
		return err
	}
	if dst.Desc.Mode() != ea.ModeDn {
		return fmt.Errorf("MOVEQ destination must be a data register")
	}
	a.emit(0x7000 | uint16(dst.Desc.Reg())<<9 | uint16(uint8(int8(n))))
	return nil
}

func regListIndex(tok string) (uint, bool) {
	u := strings.ToUpper(strings.TrimSpace(tok))
	if len(u) == 2 && u[0] == 'D' && u[1] >= '0' && u[1] <= '7' {
		return uint(u[1] - '0'), true
	}
	if len(u) == 2 && u[0] == 'A' && u[1] >= '0' && u[1] <= '7' {
		return uint(8 + (u[1] - '0')), true
	}
	return 0, false
}

func parseRegList(s string) (uint16, error) {
	var mask uint16
	for _, part := range strings.Split(s, "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.Index(part, "-"); i > 0 {
			lo, ok1 := regListIndex(part[:i])
			hi, ok2 := regListIndex(part[i+1:])
			if !ok1 || !ok2 || hi < lo {
				return 0, fmt.Errorf("bad register range %q", part)
			}
			for r := lo; r <= hi; r++ {
				mask |= 1 << r
			}
			continue
		}
		r, ok := regListIndex(part)
		if !ok {
			return 0, fmt.Errorf("bad register %q", part)
		}
		mask |= 1 << r
	}
	return mask, nil
}

func reverseRegMask(m uint16) uint16 {
	var r uint16
	for i := 0; i < 16; i++ {
		if m&(1<<i) != 0 {
			r |= 1 << (15 - i)
		}
	}
	return r
}

// encMovem tries the registers-to-memory reading first (list,<ea>); if the
// first operand isn't a register-list expression it falls back to the
// memory-to-registers reading (<ea>,list). Direction is determined by
// operand order, as every assembler in practice requires.
func encMovem(a *Assembler, rest string, size ea.Size) error {
	if size == ea.SizeNone {
		size = ea.SizeWord
	}
	ops := splitOperands(rest)
	if len(ops) != 2 {
		return fmt.Errorf("expected 2 operands")
	}
	sizeBit := uint16(0)
	if size == ea.SizeLong {
		sizeBit = 0x0040
	}

	if mask, err := parseRegList(ops[0]); err == nil {
		dst, derr := a.parseOp(ops[1], size)
		if derr != nil {
			return derr
		}
		m := mask
		if dst.Desc.Mode() == ea.ModeAIndPre {
			m = reverseRegMask(mask)
		}
		a.emit(0x4880 | sizeBit | eaBits(dst.Desc))
		a.emit(m)
		a.emitExt(dst)
		return nil
	}

	src, err := a.parseOp(ops[0], size)
	if err != nil {
		return fmt.Errorf("bad MOVEM operands: %w", err)
	}
	mask, err := parseRegList(ops[1])
	if err != nil {
		return err
	}
	a.emit(0x4C80 | sizeBit | eaBits(src.Desc))
	a.emit(mask)
	a.emitExt(src)
	return nil
}

func encLea(a *Assembler, rest string, _ ea.Size) error {
	p0, p1, err := a.parsePair(rest, ea.SizeLong)
	if err != nil {
		return err
	}
	if p1.Desc.Mode() != ea.ModeAn {
		return fmt.Errorf("LEA destination must be an address register")
	}
	a.emit(0x41C0 | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc))
	a.emitExt(p0)
	return nil
}

func encPea(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeLong)
	if err != nil {
		return err
	}
	a.emit(0x4840 | eaBits(p.Desc))
	a.emitExt(p)
	return nil
}

func encExg(a *Assembler, rest string, _ ea.Size) error {
	p0, p1, err := a.parsePair(rest, ea.SizeLong)
	if err != nil {
		return err
	}
	switch {
	case p0.Desc.Mode() == ea.ModeDn && p1.Desc.Mode() == ea.ModeDn:
		a.emit(0xC140 | uint16(p0.Desc.Reg())<<9 | uint16(p1.Desc.Reg()))
	case p0.Desc.Mode() == ea.ModeAn && p1.Desc.Mode() == ea.ModeAn:
		a.emit(0xC148 | uint16(p0.Desc.Reg())<<9 | uint16(p1.Desc.Reg()))
	case p0.Desc.Mode() == ea.ModeDn && p1.Desc.Mode() == ea.ModeAn:
		a.emit(0xC188 | uint16(p0.Desc.Reg())<<9 | uint16(p1.Desc.Reg()))
	case p0.Desc.Mode() == ea.ModeAn && p1.Desc.Mode() == ea.ModeDn:
		a.emit(0xC188 | uint16(p1.Desc.Reg())<<9 | uint16(p0.Desc.Reg()))
	default:
		return fmt.Errorf("bad EXG operands")
	}
	return nil
}

func encSwap(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeLong)
	if err != nil {
		return err
	}
	if p.Desc.Mode() != ea.ModeDn {
		return fmt.Errorf("SWAP requires a data register")
	}
	a.emit(0x4840 | uint16(p.Desc.Reg()))
	return nil
}

func encExt(a *Assembler, rest string, size ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeLong)
	if err != nil {
		return err
	}
	if p.Desc.Mode() != ea.ModeDn {
		return fmt.Errorf("EXT requires a data register")
	}
	word := uint16(0x4880) | uint16(p.Desc.Reg())
	if size == ea.SizeLong {
		word |= 0x40
	}
	a.emit(word)
	return nil
}

func encSingleOp(base uint16) encoderFunc {
	return func(a *Assembler, rest string, size ea.Size) error {
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		p, err := a.parseOp(rest, size)
		if err != nil {
			return err
		}
		a.emit(base | sizeArithBits(size)<<6 | eaBits(p.Desc))
		a.emitExt(p)
		return nil
	}
}

func encNbcd(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeByte)
	if err != nil {
		return err
	}
	a.emit(0x4800 | eaBits(p.Desc))
	a.emitExt(p)
	return nil
}

func encTas(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeByte)
	if err != nil {
		return err
	}
	a.emit(0x4AC0 | eaBits(p.Desc))
	a.emitExt(p)
	return nil
}

func encChk(a *Assembler, rest string, _ ea.Size) error {
	p0, p1, err := a.parsePair(rest, ea.SizeWord)
	if err != nil {
		return err
	}
	if p1.Desc.Mode() != ea.ModeDn {
		return fmt.Errorf("CHK destination must be a data register")
	}
	a.emit(0x4180 | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc))
	a.emitExt(p0)
	return nil
}

func encAddSubCmp(base, baseA uint16, hasDirection bool) encoderFunc {
	return func(a *Assembler, rest string, size ea.Size) error {
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		p0, p1, err := a.parsePair(rest, size)
		if err != nil {
			return err
		}
		if p1.Desc.Mode() == ea.ModeAn {
			word := baseA | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc)
			if size == ea.SizeLong {
				word |= 0x0100
			}
			a.emit(word)
			a.emitExt(p0)
			return nil
		}
		if !hasDirection {
			if p1.Desc.Mode() != ea.ModeDn {
				return fmt.Errorf("destination must be a data register")
			}
			a.emit(base | sizeArithBits(size)<<6 | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc))
			a.emitExt(p0)
			return nil
		}
		if p1.Desc.Mode() == ea.ModeDn {
			a.emit(base | sizeArithBits(size)<<6 | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc))
			a.emitExt(p0)
			return nil
		}
		if p0.Desc.Mode() == ea.ModeDn {
			a.emit(base | sizeArithBits(size)<<6 | 0x0100 | uint16(p0.Desc.Reg())<<9 | eaBits(p1.Desc))
			a.emitExt(p1)
			return nil
		}
		return fmt.Errorf("one operand must be a data register")
	}
}

func encAxGroup(base uint16) encoderFunc {
	return func(a *Assembler, rest string, size ea.Size) error {
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		p0, p1, err := a.parsePair(rest, size)
		if err != nil {
			return err
		}
		if p1.Desc.Mode() != ea.ModeAn {
			return fmt.Errorf("destination must be an address register")
		}
		word := base | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc)
		if size == ea.SizeLong {
			word |= 0x0100
		}
		a.emit(word)
		a.emitExt(p0)
		return nil
	}
}

func encAndOr(base uint16) encoderFunc {
	return func(a *Assembler, rest string, size ea.Size) error {
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		p0, p1, err := a.parsePair(rest, size)
		if err != nil {
			return err
		}
		if p1.Desc.Mode() == ea.ModeDn {
			a.emit(base | sizeArithBits(size)<<6 | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc))
			a.emitExt(p0)
			return nil
		}
		if p0.Desc.Mode() == ea.ModeDn {
			a.emit(base | sizeArithBits(size)<<6 | 0x0100 | uint16(p0.Desc.Reg())<<9 | eaBits(p1.Desc))
			a.emitExt(p1)
			return nil
		}
		return fmt.Errorf("one operand must be a data register")
	}
}

func encEor(a *Assembler, rest string, size ea.Size) error {
	if size == ea.SizeNone {
		size = ea.SizeWord
	}
	p0, p1, err := a.parsePair(rest, size)
	if err != nil {
		return err
	}
	if p0.Desc.Mode() != ea.ModeDn {
		return fmt.Errorf("EOR source must be a data register")
	}
	a.emit(0xB100 | sizeArithBits(size)<<6 | uint16(p0.Desc.Reg())<<9 | eaBits(p1.Desc))
	a.emitExt(p1)
	return nil
}

func encImmGroup(base uint16, hasCCRSR bool) encoderFunc {
	return func(a *Assembler, rest string, size ea.Size) error {
		ops := splitOperands(rest)
		if len(ops) != 2 {
			return fmt.Errorf("expected 2 operands")
		}
		dstText := strings.ToUpper(strings.TrimSpace(ops[1]))
		if hasCCRSR && dstText == "CCR" {
			imm, err := a.parseOp(ops[0], ea.SizeByte)
			if err != nil {
				return err
			}
			a.emit(base | 0x003C)
			a.emitExt(imm)
			return nil
		}
		if hasCCRSR && dstText == "SR" {
			imm, err := a.parseOp(ops[0], ea.SizeWord)
			if err != nil {
				return err
			}
			a.emit(base | 0x007C)
			a.emitExt(imm)
			return nil
		}
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		imm, err := a.parseOp(ops[0], size)
		if err != nil {
			return err
		}
		dst, err := a.parseOp(ops[1], size)
		if err != nil {
			return err
		}
		a.emit(base | sizeArithBits(size)<<6 | eaBits(dst.Desc))
		a.emitExt(imm)
		a.emitExt(dst)
		return nil
	}
}

func encQuick(base uint16) encoderFunc {
	return func(a *Assembler, rest string, size ea.Size) error {
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		ops := splitOperands(rest)
		if len(ops) != 2 {
			return fmt.Errorf("expected 2 operands")
		}
		n, err := parseNumber(ops[0])
		if err != nil {
			return err
		}
		switch {
		case n == 8:
			n = 0
		case n < 1 || n > 8:
			return fmt.Errorf("quick count out of range")
		}
		dst, err := a.parseOp(ops[1], size)
		if err != nil {
			return err
		}
		a.emit(base | sizeArithBits(size)<<6 | uint16(n)<<9 | eaBits(dst.Desc))
		a.emitExt(dst)
		return nil
	}
}

func encAddSubX(base uint16) encoderFunc {
	return func(a *Assembler, rest string, size ea.Size) error {
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		p0, p1, err := a.parsePair(rest, size)
		if err != nil {
			return err
		}
		switch {
		case p0.Desc.Mode() == ea.ModeDn && p1.Desc.Mode() == ea.ModeDn:
			a.emit(base | sizeArithBits(size)<<6 | uint16(p1.Desc.Reg())<<9 | uint16(p0.Desc.Reg()))
		case p0.Desc.Mode() == ea.ModeAIndPre && p1.Desc.Mode() == ea.ModeAIndPre:
			a.emit(base | sizeArithBits(size)<<6 | 0x8 | uint16(p1.Desc.Reg())<<9 | uint16(p0.Desc.Reg()))
		default:
			return fmt.Errorf("operands must both be Dn or both be -(An)")
		}
		return nil
	}
}

func encBcd(base uint16) encoderFunc {
	return func(a *Assembler, rest string, _ ea.Size) error {
		p0, p1, err := a.parsePair(rest, ea.SizeByte)
		if err != nil {
			return err
		}
		switch {
		case p0.Desc.Mode() == ea.ModeDn && p1.Desc.Mode() == ea.ModeDn:
			a.emit(base | uint16(p1.Desc.Reg())<<9 | uint16(p0.Desc.Reg()))
		case p0.Desc.Mode() == ea.ModeAIndPre && p1.Desc.Mode() == ea.ModeAIndPre:
			a.emit(base | 0x8 | uint16(p1.Desc.Reg())<<9 | uint16(p0.Desc.Reg()))
		default:
			return fmt.Errorf("operands must both be Dn or both be -(An)")
		}
		return nil
	}
}

func encCmpm(a *Assembler, rest string, size ea.Size) error {
	if size == ea.SizeNone {
		size = ea.SizeWord
	}
	p0, p1, err := a.parsePair(rest, size)
	if err != nil {
		return err
	}
	if p0.Desc.Mode() != ea.ModeAIndPost || p1.Desc.Mode() != ea.ModeAIndPost {
		return fmt.Errorf("CMPM operands must be (An)+")
	}
	a.emit(0xB108 | sizeArithBits(size)<<6 | uint16(p1.Desc.Reg())<<9 | uint16(p0.Desc.Reg()))
	return nil
}

func encMulDiv(base uint16) encoderFunc {
	return func(a *Assembler, rest string, _ ea.Size) error {
		p0, p1, err := a.parsePair(rest, ea.SizeWord)
		if err != nil {
			return err
		}
		if p1.Desc.Mode() != ea.ModeDn {
			return fmt.Errorf("destination must be a data register")
		}
		a.emit(base | uint16(p1.Desc.Reg())<<9 | eaBits(p0.Desc))
		a.emitExt(p0)
		return nil
	}
}

func encBitop(staticBase, dynBase uint16) encoderFunc {
	return func(a *Assembler, rest string, _ ea.Size) error {
		ops := splitOperands(rest)
		if len(ops) != 2 {
			return fmt.Errorf("expected 2 operands")
		}
		dst, err := a.parseOp(ops[1], ea.SizeByte)
		if err != nil {
			return err
		}
		if strings.HasPrefix(strings.TrimSpace(ops[0]), "#") {
			n, nerr := parseNumber(ops[0])
			if nerr != nil {
				return nerr
			}
			a.emit(staticBase | eaBits(dst.Desc))
			a.emit(uint16(n) & 0x1f)
			a.emitExt(dst)
			return nil
		}
		src, err := a.parseOp(ops[0], ea.SizeLong)
		if err != nil {
			return err
		}
		if src.Desc.Mode() != ea.ModeDn {
			return fmt.Errorf("bit number register must be a data register")
		}
		a.emit(dynBase | uint16(src.Desc.Reg())<<9 | eaBits(dst.Desc))
		a.emitExt(dst)
		return nil
	}
}

func encShift(t uint16, left bool) encoderFunc {
	dirBit := uint16(0)
	if left {
		dirBit = 0x0100
	}
	return func(a *Assembler, rest string, size ea.Size) error {
		ops := splitOperands(rest)
		if len(ops) == 1 {
			dst, err := a.parseOp(ops[0], ea.SizeWord)
			if err != nil {
				return err
			}
			a.emit(0xE0C0 | (t << 9) | dirBit | eaBits(dst.Desc))
			a.emitExt(dst)
			return nil
		}
		if len(ops) != 2 {
			return fmt.Errorf("expected 1 or 2 operands")
		}
		if size == ea.SizeNone {
			size = ea.SizeWord
		}
		dst, err := a.parseOp(ops[1], size)
		if err != nil {
			return err
		}
		if dst.Desc.Mode() != ea.ModeDn {
			return fmt.Errorf("shift destination must be a data register")
		}
		src, err := a.parseOp(ops[0], ea.SizeByte)
		if err != nil {
			return err
		}
		switch {
		case src.Desc.Mode() == ea.ModeDn:
			a.emit(0xE020 | (t << 3) | dirBit | sizeArithBits(size)<<6 | uint16(src.Desc.Reg())<<9 | uint16(dst.Desc.Reg()))
			return nil
		case src.Desc == ea.NewNormal(ea.ModeOther, ea.OtherImm):
			n, nerr := parseNumber(ops[0])
			if nerr != nil {
				return nerr
			}
			switch {
			case n == 8:
				n = 0
			case n < 1 || n > 8:
				return fmt.Errorf("shift count out of range")
			}
			a.emit(0xE000 | (t << 3) | dirBit | sizeArithBits(size)<<6 | uint16(n)<<9 | uint16(dst.Desc.Reg()))
			return nil
		default:
			return fmt.Errorf("bad shift count operand")
		}
	}
}

func encBra(a *Assembler, rest string, size ea.Size) error { return a.emitBranch(0x6000, size, rest) }
func encBsr(a *Assembler, rest string, size ea.Size) error { return a.emitBranch(0x6100, size, rest) }

func encDbcc(cond uint16) encoderFunc {
	return func(a *Assembler, rest string, _ ea.Size) error {
		ops := splitOperands(rest)
		if len(ops) != 2 {
			return fmt.Errorf("expected 2 operands")
		}
		dst, err := a.parseOp(ops[0], ea.SizeWord)
		if err != nil {
			return err
		}
		if dst.Desc.Mode() != ea.ModeDn {
			return fmt.Errorf("DBcc requires a data register")
		}
		instrPC := a.pc
		a.emit(0x50C8 | (cond << 8) | uint16(dst.Desc.Reg()))
		extAddr := a.pc
		if val, ok := a.resolveValue(ops[1]); ok {
			a.emit(uint16(int16(int32(val) - int32(instrPC))))
			return nil
		}
		a.emit(0)
		a.fixups = append(a.fixups, fixup{addr: extAddr, pc: instrPC, kind: ea.FixupPCWord, symbol: ops[1]})
		return nil
	}
}

func encScc(cond uint16) encoderFunc {
	return func(a *Assembler, rest string, _ ea.Size) error {
		dst, err := a.parseOp(rest, ea.SizeByte)
		if err != nil {
			return err
		}
		a.emit(0x50C0 | (cond << 8) | eaBits(dst.Desc))
		a.emitExt(dst)
		return nil
	}
}

func encJmp(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeNone)
	if err != nil {
		return err
	}
	a.emit(0x4EC0 | eaBits(p.Desc))
	a.emitExt(p)
	return nil
}

func encJsr(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeNone)
	if err != nil {
		return err
	}
	a.emit(0x4E80 | eaBits(p.Desc))
	a.emitExt(p)
	return nil
}

func fixedWord(w uint16) encoderFunc {
	return func(a *Assembler, _ string, _ ea.Size) error {
		a.emit(w)
		return nil
	}
}

func encTrap(a *Assembler, rest string, _ ea.Size) error {
	n, err := parseNumber(rest)
	if err != nil {
		return err
	}
	if n < 0 || n > 15 {
		return fmt.Errorf("TRAP vector out of range")
	}
	a.emit(0x4E40 | uint16(n))
	return nil
}

func encStop(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeWord)
	if err != nil {
		return err
	}
	a.emit(0x4E72)
	a.emitExt(p)
	return nil
}

func encLink(a *Assembler, rest string, _ ea.Size) error {
	ops := splitOperands(rest)
	if len(ops) != 2 {
		return fmt.Errorf("expected 2 operands")
	}
	an, err := a.parseOp(ops[0], ea.SizeLong)
	if err != nil {
		return err
	}
	if an.Desc.Mode() != ea.ModeAn {
		return fmt.Errorf("LINK requires an address register")
	}
	n, err := parseNumber(ops[1])
	if err != nil {
		return err
	}
	a.emit(0x4E50 | uint16(an.Desc.Reg()))
	a.emit(uint16(int16(n)))
	return nil
}

func encUnlk(a *Assembler, rest string, _ ea.Size) error {
	p, err := a.parseOp(rest, ea.SizeLong)
	if err != nil {
		return err
	}
	if p.Desc.Mode() != ea.ModeAn {
		return fmt.Errorf("UNLK requires an address register")
	}
	a.emit(0x4E58 | uint16(p.Desc.Reg()))
	return nil
}
