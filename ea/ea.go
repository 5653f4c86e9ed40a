/*
 * m68kemu - Shared effective-address grammar
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

// Package ea implements the 68000 effective-address grammar shared by the
// CPU interpreter, the disassembler and the assembler. A single byte-sized
// Descriptor packs a 3-bit mode and a 3-bit register/sub-mode field, with
// synthetic codes above the 6-bit space for operands that are not a normal
// mode/register pair (SR, CCR, USP, register lists, branch displacements,
// small inline constants, bit-number immediates).
package ea

import "fmt"

// Size is the operation size carried by an instruction record.
type Size uint8

const (
	SizeNone Size = iota
	SizeByte
	SizeWord
	SizeLong
)

// Bytes returns the storage width of s, treating SizeNone as a long (used
// for address-register operands, which are always 32-bit internally).
func (s Size) Bytes() uint32 {
	switch s {
	case SizeByte:
		return 1
	case SizeWord:
		return 2
	case SizeLong, SizeNone:
		return 4
	}
	return 4
}

// Suffix is the assembly-syntax size suffix, or "" for SizeNone.
func (s Size) Suffix() string {
	switch s {
	case SizeByte:
		return ".B"
	case SizeWord:
		return ".W"
	case SizeLong:
		return ".L"
	}
	return ""
}

// Descriptor is one packed operand descriptor byte.
type Descriptor uint8

// Normal addressing modes, packed as (mode<<3)|reg.
const (
	ModeDn         uint8 = 0 // Data register direct
	ModeAn         uint8 = 1 // Address register direct
	ModeAInd       uint8 = 2 // (An)
	ModeAIndPost   uint8 = 3 // (An)+
	ModeAIndPre    uint8 = 4 // -(An)
	ModeAIndDisp16 uint8 = 5 // (d16,An)
	ModeAIndIndex  uint8 = 6 // (d8,An,Xn)
	ModeOther      uint8 = 7 // subdivided by register field below

	modeShift     = 3
	regMask uint8 = 0x7
)

// Register-field values when mode == ModeOther.
const (
	OtherAbsW    uint8 = 0 // absolute word
	OtherAbsL    uint8 = 1 // absolute long
	OtherPCDisp  uint8 = 2 // (d16,PC)
	OtherPCIndex uint8 = 3 // (d8,PC,Xn)
	OtherImm     uint8 = 4 // #imm
)

// NewNormal packs a mode/register pair into a Descriptor.
func NewNormal(mode, reg uint8) Descriptor {
	return Descriptor((mode << modeShift) | (reg & regMask))
}

func (d Descriptor) Mode() uint8 { return uint8(d) >> modeShift }
func (d Descriptor) Reg() uint8  { return uint8(d) & regMask }

// Synthetic descriptor codes living outside the 6-bit mode/reg space
// (0x00-0x3f is fully used by the seven modes above).
const (
	DescSR      Descriptor = 0x40 // status register
	DescCCR     Descriptor = 0x41 // condition code register
	DescUSP     Descriptor = 0x42 // user stack pointer
	DescDisp    Descriptor = 0x43 // branch displacement (Bcc/BSR/DBcc)
	DescRegList Descriptor = 0x44 // MOVEM register list (extension word follows)
	DescData3   Descriptor = 0x45 // 3-bit inline constant (shift/rotate count)
	DescData4   Descriptor = 0x46 // 4-bit inline constant (TRAP vector)
	DescData8   Descriptor = 0x47 // 8-bit inline constant (MOVEQ, quick immediate)
	DescBitNum  Descriptor = 0x48 // static bit number (extension word follows)
)

func (d Descriptor) IsSynthetic() bool { return d >= 0x40 }

// Extra packs condition-code and displacement-follows metadata for one
// decoded instruction.
type Extra uint8

const (
	ExtraCondFlag Extra = 1 << 0 // condition code field is valid
	ExtraDispFlag Extra = 1 << 1 // a PC-relative word displacement follows
)

func NewExtra(cond uint8, hasCond, hasDisp bool) Extra {
	e := Extra(cond) << 4
	if hasCond {
		e |= ExtraCondFlag
	}
	if hasDisp {
		e |= ExtraDispFlag
	}
	return e
}

func (e Extra) Cond() uint8   { return uint8(e) >> 4 }
func (e Extra) HasCond() bool { return e&ExtraCondFlag != 0 }
func (e Extra) HasDisp() bool { return e&ExtraDispFlag != 0 }

// AddressError is raised whenever a word or long access targets an odd
// address: an odd target address in any word/long memory access raises
// address-error before side effects that cannot be undone.
type AddressError struct {
	Addr  uint32
	Write bool
}

func (e *AddressError) Error() string {
	dir := "read"
	if e.Write {
		dir = "write"
	}
	return fmt.Sprintf("address error: %s at $%08x", dir, e.Addr)
}

// Regs is the minimal register-file surface Decode needs. Effective-A7
// selection (SSP vs USP) is the caller's responsibility, matching the
// invariant that "the effective A7 read/write always selects SSP when
// supervisor-bit is set, USP otherwise" -- Decode only ever refers to
// An/PC through this interface so callers implement that indirection once.
type Regs interface {
	D(n uint) uint32
	SetD(n uint, v uint32)
	A(n uint) uint32
	SetA(n uint, v uint32)
	PC() uint32
	SetPC(v uint32)
}

// Mem is the minimal bus surface Decode needs.
type Mem interface {
	ReadByte(addr uint32) (uint8, error)
	ReadWord(addr uint32) (uint16, error)
	ReadLong(addr uint32) (uint32, error)
	WriteByte(addr uint32, v uint8) error
	WriteWord(addr uint32, v uint16) error
	WriteLong(addr uint32, v uint32) error
}

// Operand is a decoded operand: either a register (data or address) or a
// resolved memory address, or -- for immediates/quick constants/SR/CCR/USP
// -- an inline value with no backing storage other than the register file.
type Operand struct {
	Reg       uint8
	IsAddrReg bool
	IsMem     bool
	Addr      uint32
	Imm       uint32
	HasImm    bool
	Desc      Descriptor
}

// stepSize returns the post-increment/pre-decrement step for register an,
// honoring the A7-byte-operations-step-by-2 exception.
func stepSize(reg uint8, size Size) uint32 {
	n := size.Bytes()
	if reg == 7 && size == SizeByte {
		return 2
	}
	return n
}

func fetchWord(regs Regs, mem Mem) (uint16, error) {
	addr := regs.PC()
	w, err := mem.ReadWord(addr)
	if err != nil {
		return 0, err
	}
	regs.SetPC(addr + 2)
	return w, nil
}

func fetchLong(regs Regs, mem Mem) (uint32, error) {
	hi, err := fetchWord(regs, mem)
	if err != nil {
		return 0, err
	}
	lo, err := fetchWord(regs, mem)
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// IndexExtWord decodes a 68000 brief-format index extension word: a
// sign-extended 8-bit displacement, a 3-bit index register selector, the
// data/address selector bit and the word/long size bit. The full-format
// bit and scale bits are ignored -- plain 68000 behavior.
type IndexExtWord struct {
	IsAddrReg bool
	Reg       uint8
	LongIndex bool
	Disp8     int8
}

func DecodeIndexExtWord(w uint16) IndexExtWord {
	return IndexExtWord{
		IsAddrReg: w&0x8000 != 0,
		Reg:       uint8((w >> 12) & 0x7),
		LongIndex: w&0x0800 != 0,
		Disp8:     int8(w & 0xff),
	}
}

func (x IndexExtWord) indexValue(regs Regs) int32 {
	var v uint32
	if x.IsAddrReg {
		v = regs.A(uint(x.Reg))
	} else {
		v = regs.D(uint(x.Reg))
	}
	if !x.LongIndex {
		// "data register is sign-extended from the low 16 bits when the
		// word bit is 0" -- always honored regardless of register kind.
		return int32(int16(uint16(v)))
	}
	return int32(v)
}

// baseIndexed resolves the (d8,Rn,Xn) addressing family shared by the
// An-indexed and PC-indexed modes.
func baseIndexed(base uint32, regs Regs, mem Mem) (uint32, error) {
	w, err := fetchWord(regs, mem)
	if err != nil {
		return 0, err
	}
	x := DecodeIndexExtWord(w)
	return base + uint32(int32(x.Disp8)) + uint32(x.indexValue(regs)), nil
}

// Decode resolves one operand descriptor (plus any extension words read
// from mem at regs.PC(), which is advanced in place) into an Operand.
func Decode(desc Descriptor, size Size, regs Regs, mem Mem) (Operand, error) {
	if desc.IsSynthetic() {
		return decodeSynthetic(desc, size, regs, mem)
	}

	mode, reg := desc.Mode(), desc.Reg()
	switch mode {
	case ModeDn:
		return Operand{Reg: reg, Desc: desc}, nil
	case ModeAn:
		return Operand{Reg: reg, IsAddrReg: true, Desc: desc}, nil
	case ModeAInd:
		return Operand{IsMem: true, Addr: regs.A(uint(reg)), Desc: desc}, nil
	case ModeAIndPost:
		addr := regs.A(uint(reg))
		regs.SetA(uint(reg), addr+stepSize(reg, size))
		return Operand{IsMem: true, Addr: addr, Desc: desc}, nil
	case ModeAIndPre:
		addr := regs.A(uint(reg)) - stepSize(reg, size)
		regs.SetA(uint(reg), addr)
		return Operand{IsMem: true, Addr: addr, Desc: desc}, nil
	case ModeAIndDisp16:
		disp, err := fetchWord(regs, mem)
		if err != nil {
			return Operand{}, err
		}
		addr := regs.A(uint(reg)) + uint32(int32(int16(disp)))
		return Operand{IsMem: true, Addr: addr, Desc: desc}, nil
	case ModeAIndIndex:
		addr, err := baseIndexed(regs.A(uint(reg)), regs, mem)
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsMem: true, Addr: addr, Desc: desc}, nil
	case ModeOther:
		return decodeOther(reg, size, regs, mem)
	}
	return Operand{}, fmt.Errorf("ea: bad mode %d", mode)
}

func decodeOther(reg uint8, size Size, regs Regs, mem Mem) (Operand, error) {
	switch reg {
	case OtherAbsW:
		w, err := fetchWord(regs, mem)
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsMem: true, Addr: uint32(int32(int16(w))), Desc: NewNormal(ModeOther, reg)}, nil
	case OtherAbsL:
		l, err := fetchLong(regs, mem)
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsMem: true, Addr: l, Desc: NewNormal(ModeOther, reg)}, nil
	case OtherPCDisp:
		// PC-relative extension uses the address of the extension word,
		// not the instruction start.
		extAddr := regs.PC()
		disp, err := fetchWord(regs, mem)
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsMem: true, Addr: extAddr + uint32(int32(int16(disp))), Desc: NewNormal(ModeOther, reg)}, nil
	case OtherPCIndex:
		extAddr := regs.PC()
		addr, err := baseIndexed(extAddr, regs, mem)
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsMem: true, Addr: addr, Desc: NewNormal(ModeOther, reg)}, nil
	case OtherImm:
		switch size {
		case SizeByte:
			w, err := fetchWord(regs, mem)
			if err != nil {
				return Operand{}, err
			}
			return Operand{HasImm: true, Imm: uint32(w & 0xff), Desc: NewNormal(ModeOther, reg)}, nil
		case SizeWord, SizeNone:
			w, err := fetchWord(regs, mem)
			if err != nil {
				return Operand{}, err
			}
			return Operand{HasImm: true, Imm: uint32(w), Desc: NewNormal(ModeOther, reg)}, nil
		case SizeLong:
			l, err := fetchLong(regs, mem)
			if err != nil {
				return Operand{}, err
			}
			return Operand{HasImm: true, Imm: l, Desc: NewNormal(ModeOther, reg)}, nil
		}
	}
	return Operand{}, fmt.Errorf("ea: bad Other register field %d", reg)
}

func decodeSynthetic(desc Descriptor, size Size, regs Regs, mem Mem) (Operand, error) {
	switch desc {
	case DescSR, DescCCR, DescUSP:
		return Operand{Desc: desc}, nil
	case DescDisp, DescRegList, DescBitNum:
		w, err := fetchWord(regs, mem)
		if err != nil {
			return Operand{}, err
		}
		return Operand{HasImm: true, Imm: uint32(w), Desc: desc}, nil
	case DescData3, DescData4, DescData8:
		// Small inline constants are carried in the instruction word
		// itself; the caller fills Imm directly from the decoded record's
		// Data field rather than through Decode.
		return Operand{Desc: desc}, nil
	}
	return Operand{}, fmt.Errorf("ea: bad synthetic descriptor %#x", desc)
}

// Load reads size bytes from the operand. regs lets the caller supply
// the live register file (needed because Decode already consumed the
// descriptor and may not retain a Regs reference for register-direct
// operands resolved earlier in a two-operand instruction).
func (o Operand) Load(regs Regs, mem Mem, size Size) (uint32, error) {
	switch {
	case o.HasImm:
		return o.Imm, nil
	case o.IsAddrReg:
		return regs.A(uint(o.Reg)), nil
	case o.IsMem:
		return loadMem(mem, o.Addr, size)
	default:
		return maskToSize(regs.D(uint(o.Reg)), size), nil
	}
}

func loadMem(mem Mem, addr uint32, size Size) (uint32, error) {
	switch size {
	case SizeByte:
		v, err := mem.ReadByte(addr)
		return uint32(v), err
	case SizeWord, SizeNone:
		if addr&1 != 0 {
			return 0, &AddressError{Addr: addr}
		}
		v, err := mem.ReadWord(addr)
		return uint32(v), err
	case SizeLong:
		if addr&1 != 0 {
			return 0, &AddressError{Addr: addr}
		}
		return mem.ReadLong(addr)
	}
	return 0, fmt.Errorf("ea: bad size %d", size)
}

// Store writes val (size bytes) to the operand. For a data-register
// destination only the low size bytes are replaced; the rest of the
// register is preserved.
func (o Operand) Store(regs Regs, mem Mem, size Size, val uint32) error {
	switch {
	case o.IsAddrReg:
		regs.SetA(uint(o.Reg), val)
		return nil
	case o.IsMem:
		return storeMem(mem, o.Addr, size, val)
	default:
		cur := regs.D(uint(o.Reg))
		regs.SetD(uint(o.Reg), mergeToSize(cur, val, size))
		return nil
	}
}

func storeMem(mem Mem, addr uint32, size Size, val uint32) error {
	switch size {
	case SizeByte:
		return mem.WriteByte(addr, uint8(val))
	case SizeWord, SizeNone:
		if addr&1 != 0 {
			return &AddressError{Addr: addr, Write: true}
		}
		return mem.WriteWord(addr, uint16(val))
	case SizeLong:
		if addr&1 != 0 {
			return &AddressError{Addr: addr, Write: true}
		}
		return mem.WriteLong(addr, val)
	}
	return fmt.Errorf("ea: bad size %d", size)
}

func maskToSize(v uint32, size Size) uint32 {
	switch size {
	case SizeByte:
		return v & 0xff
	case SizeWord:
		return v & 0xffff
	default:
		return v
	}
}

func mergeToSize(cur, val uint32, size Size) uint32 {
	switch size {
	case SizeByte:
		return (cur &^ 0xff) | (val & 0xff)
	case SizeWord:
		return (cur &^ 0xffff) | (val & 0xffff)
	default:
		return val
	}
}

// SignExtend sign-extends val from size to a full 32-bit value.
func SignExtend(val uint32, size Size) uint32 {
	switch size {
	case SizeByte:
		return uint32(int32(int8(val)))
	case SizeWord:
		return uint32(int32(int16(val)))
	default:
		return val
	}
}
