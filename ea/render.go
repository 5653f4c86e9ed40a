/*
 * m68kemu - Effective-address text rendering
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

package ea

import "fmt"

// RenderCtx supplies the extension words and addresses Render needs to
// turn a bare descriptor back into assembly-syntax text; the disassembler
// fills this in from the words following an opcode.
type RenderCtx struct {
	// NextWord is called once per extension word the descriptor consumes,
	// in order; it must not be called more times than ExtWordsFor(desc)
	// reports.
	NextWord func() uint16
	// Addr is the address of the operand's first extension word -- the base
	// the 68000 adds a PC-relative displacement to -- used to display
	// PC-relative targets as absolute addresses (disassemblers show the
	// resolved target, not the raw displacement).
	Addr uint32
}

var regNames = [8]string{"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7"}
var aregNames = [8]string{"A0", "A1", "A2", "A3", "A4", "A5", "A6", "A7"}

// Render turns one operand descriptor into its assembly-syntax text.
func Render(d Descriptor, size Size, ctx *RenderCtx) string {
	if d.IsSynthetic() {
		return renderSynthetic(d, ctx)
	}
	mode, reg := d.Mode(), d.Reg()
	switch mode {
	case ModeDn:
		return regNames[reg]
	case ModeAn:
		return aregNames[reg]
	case ModeAInd:
		return fmt.Sprintf("(%s)", aregNames[reg])
	case ModeAIndPost:
		return fmt.Sprintf("(%s)+", aregNames[reg])
	case ModeAIndPre:
		return fmt.Sprintf("-(%s)", aregNames[reg])
	case ModeAIndDisp16:
		disp := int16(ctx.NextWord())
		return fmt.Sprintf("(%d,%s)", disp, aregNames[reg])
	case ModeAIndIndex:
		return renderIndexed(aregNames[reg], ctx)
	case ModeOther:
		return renderOther(reg, size, ctx)
	}
	return "???"
}

func renderIndexed(base string, ctx *RenderCtx) string {
	x := DecodeIndexExtWord(ctx.NextWord())
	idx := regNames[x.Reg]
	if x.IsAddrReg {
		idx = aregNames[x.Reg]
	}
	suffix := ".W"
	if x.LongIndex {
		suffix = ".L"
	}
	return fmt.Sprintf("(%d,%s,%s%s)", x.Disp8, base, idx, suffix)
}

func renderOther(reg uint8, size Size, ctx *RenderCtx) string {
	switch reg {
	case OtherAbsW:
		return fmt.Sprintf("$%04x.W", ctx.NextWord())
	case OtherAbsL:
		hi := uint32(ctx.NextWord())
		lo := uint32(ctx.NextWord())
		return fmt.Sprintf("$%08x.L", hi<<16|lo)
	case OtherPCDisp:
		extAddr := ctx.Addr
		disp := int16(ctx.NextWord())
		return fmt.Sprintf("$%06x(PC)", extAddr+uint32(int32(disp)))
	case OtherPCIndex:
		return renderIndexed("PC", ctx)
	case OtherImm:
		switch size {
		case SizeLong:
			hi := uint32(ctx.NextWord())
			lo := uint32(ctx.NextWord())
			return fmt.Sprintf("#$%08x", hi<<16|lo)
		default:
			return fmt.Sprintf("#$%04x", ctx.NextWord())
		}
	}
	return "???"
}

func renderSynthetic(d Descriptor, ctx *RenderCtx) string {
	switch d {
	case DescSR:
		return "SR"
	case DescCCR:
		return "CCR"
	case DescUSP:
		return "USP"
	case DescDisp:
		return fmt.Sprintf("$%06x", ctx.Addr)
	case DescRegList:
		return renderRegList(ctx.NextWord(), false)
	case DescBitNum, DescData3, DescData4, DescData8:
		return fmt.Sprintf("#%d", ctx.NextWord())
	}
	return "???"
}

// renderRegList renders a MOVEM register-list extension word. reverse
// selects the bit-order used for predecrement destinations (bit0=A7)
// instead of every other mode's bit0=D0 order.
func renderRegList(word uint16, reverse bool) string {
	var names [16]string
	for i := 0; i < 8; i++ {
		names[i] = regNames[i]
		names[8+i] = aregNames[i]
	}
	if reverse {
		for i, j := 0, 15; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}
	return formatBitRanges(word, names)
}

func formatBitRanges(word uint16, names [16]string) string {
	out := ""
	i := 0
	for i < 16 {
		if word&(1<<uint(i)) == 0 {
			i++
			continue
		}
		start := i
		for i < 16 && word&(1<<uint(i)) != 0 {
			i++
		}
		end := i - 1
		if out != "" {
			out += "/"
		}
		if end == start {
			out += names[start]
		} else {
			out += names[start] + "-" + names[end]
		}
	}
	if out == "" {
		return "#0"
	}
	return out
}

// RenderRegList is the disassembler-facing entry point for a MOVEM
// register list, since whether it reads reverse or forward depends on
// which side of the instruction (source vs destination) is predecrement,
// a fact only the caller (holding the whole Record) knows.
func RenderRegList(word uint16, predecrement bool) string {
	return renderRegList(word, predecrement)
}

// ExtWordsFor reports how many extension words Render (or Decode) will
// consume for descriptor d at the given size. The opcode table builder
// calls this to memoize instruction length; the disassembler calls it to
// know how many words to slice off for RenderCtx.
func ExtWordsFor(d Descriptor, size Size) uint8 {
	if d.IsSynthetic() {
		switch d {
		case DescRegList, DescBitNum:
			return 1
		default:
			return 0
		}
	}
	switch d.Mode() {
	case ModeAIndDisp16, ModeAIndIndex:
		return 1
	case ModeOther:
		switch d.Reg() {
		case OtherAbsW, OtherPCDisp, OtherPCIndex:
			return 1
		case OtherAbsL:
			return 2
		case OtherImm:
			if size == SizeLong {
				return 2
			}
			return 1
		}
	}
	return 0
}
