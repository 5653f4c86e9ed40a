/*
 * m68kemu - Decoded instruction record
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

// Record is one decoded instruction: mnemonic family, display name,
// operation size, operand descriptors, an inline immediate/displacement
// payload and the condition/PC-relative-displacement "extra" byte. One
// Record sits at every index of the 65536-entry Table, array-indexed by
// opcode word.
type Record struct {
	Family    Family
	Name      string
	Size      ea.Size
	NOperands uint8
	Operand   [2]ea.Descriptor
	Data      uint8
	Extra     ea.Extra
	Word      uint16 // original opcode word, kept so ILLEGAL can disassemble as DC.W
	ExtWords  uint8  // memoized instruction length in extension words
}

// computeLength memoizes the record's total extension-word count, derived
// from the operand descriptors and the size field.
func (r *Record) computeLength() {
	var n uint8
	for i := uint8(0); i < r.NOperands; i++ {
		n += ea.ExtWordsFor(r.Operand[i], r.Size)
	}
	if r.Extra.HasDisp() {
		n++
	}
	r.ExtWords = n
}

// Length returns the total instruction length in 16-bit words, including
// the opcode word itself.
func (r *Record) Length() uint8 { return 1 + r.ExtWords }
