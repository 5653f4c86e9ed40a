/*
 * m68kemu - Disassembler
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

// Package disassemble renders one decoded instruction, plus its extension
// words, back to assembly-syntax text.
package disassemble

import (
	"fmt"
	"strings"

	"github.com/rcornwell/m68kemu/ea"
	"github.com/rcornwell/m68kemu/opcode"
)

// WordReader reads one 16-bit word from the guest bus.
type WordReader func(addr uint32) (uint16, error)

// Line is one disassembled instruction: its address, the raw words that
// make it up, and the rendered mnemonic/operand text.
type Line struct {
	Addr   uint32
	Words  []uint16
	Text   string
	Length uint8 // words consumed, including the opcode word
}

// One renders the instruction at addr. read supplies opcode and extension
// words on demand.
func One(addr uint32, read WordReader) (Line, error) {
	word, err := read(addr)
	if err != nil {
		return Line{}, err
	}
	rec := opcode.Lookup(word)
	words := []uint16{word}
	cursor := addr + 2

	next := func() uint16 {
		w, err := read(cursor)
		if err != nil {
			w = 0
		}
		words = append(words, w)
		cursor += 2
		return w
	}

	mnemonic := rec.Name
	if size := rec.Size.Suffix(); size != "" {
		mnemonic += size
	}

	var ops []string
	for i := uint8(0); i < rec.NOperands; i++ {
		ops = append(ops, renderOperand(rec, i, addr, cursor, next))
	}

	text := mnemonic
	if rec.Word == opcode.IllegalWord {
		text = fmt.Sprintf("%s $%04x  ; ILLEGAL", mnemonic, rec.Word)
	} else if rec.Family == opcode.Illegal {
		text = fmt.Sprintf("%s $%04x", mnemonic, rec.Word)
	} else if len(ops) > 0 {
		text = mnemonic + "\t" + strings.Join(ops, ",")
	}

	return Line{Addr: addr, Words: words, Text: text, Length: rec.Length()}, nil
}

// renderOperand special-cases the two places where DescDisp's generic
// "render as resolved absolute target" rule doesn't apply: DBcc computes
// its target relative to the instruction's own address rather than
// address+2, and LINK's second operand is a plain signed offset, not a
// branch target.
func renderOperand(rec opcode.Record, idx uint8, instrAddr, extAddr uint32, next func() uint16) string {
	desc := rec.Operand[idx]

	if desc == ea.DescDisp {
		switch rec.Family {
		case opcode.Link:
			return fmt.Sprintf("#%d", int16(next()))
		case opcode.Dbcc:
			disp := int16(next())
			return fmt.Sprintf("$%06x", uint32(int32(instrAddr)+int32(disp)))
		default: // Bra, Bsr, Bcc
			var disp int32
			if rec.Extra.HasDisp() {
				disp = int32(int16(next()))
			} else {
				disp = int32(int8(rec.Data))
			}
			return fmt.Sprintf("$%06x", uint32(int32(instrAddr)+2+disp))
		}
	}

	if desc == ea.DescRegList {
		w := next()
		return ea.RenderRegList(w, isPredecrementTarget(rec))
	}

	switch desc {
	case ea.DescData3:
		n := rec.Data
		if n == 0 {
			n = 8
		}
		return fmt.Sprintf("#%d", n)
	case ea.DescData4:
		return fmt.Sprintf("#%d", rec.Data)
	case ea.DescData8:
		return fmt.Sprintf("#%d", int8(rec.Data))
	}

	ctx := &ea.RenderCtx{NextWord: next, Addr: extAddr}
	return ea.Render(desc, rec.Size, ctx)
}

// isPredecrementTarget reports whether a MOVEM record's non-list operand
// is a predecrement memory reference, which reverses the register-list
// bit order (bit0=A7 rather than bit0=D0).
func isPredecrementTarget(rec opcode.Record) bool {
	for _, d := range rec.Operand {
		if d != ea.DescRegList && d.Mode() == ea.ModeAIndPre {
			return true
		}
	}
	return false
}

// Format matches the style of the teacher's instruction dump: a hex
// address, the instruction's raw words, then the mnemonic and operands.
func Format(l Line) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%06x  ", l.Addr)
	for _, w := range l.Words {
		fmt.Fprintf(&b, "%04x ", w)
	}
	for i := len(l.Words); i < 5; i++ {
		b.WriteString("     ")
	}
	b.WriteString(" ")
	b.WriteString(l.Text)
	return b.String()
}
