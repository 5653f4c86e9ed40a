/*
 * m68kemu - Opcode table builder
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

// Table is the flat 65536-entry decoded-instruction table, one Record per
// possible opcode word, built once at package init from schemas -- the Go
// equivalent of mktab.cpp enumerating the whole instruction space ahead of
// time rather than decoding bit-by-bit on every fetch.
var Table [65536]Record

// IllegalWord is the one fixed ILLEGAL encoding the 68000 reserves outright
// (as opposed to the many encodings that merely aren't assigned to
// anything and decode as DC.W).
const IllegalWord uint16 = 0x4AFC

// ResetWord is the supervisor-only RESET instruction's opcode.
const ResetWord uint16 = 0x4E70

// Line1010 and Line1111 are the two unassigned top-nibble blocks the 68000
// traps as distinct exception vectors rather than folding into the generic
// illegal-instruction trap.
const (
	Line1010Base uint16 = 0xA000
	Line1111Base uint16 = 0xF000
)

func init() {
	buildTable()
}

func buildTable() {
	for w := 0; w < len(Table); w++ {
		word := uint16(w)
		Table[w] = classify(word)
	}
}

func classify(word uint16) Record {
	if word&0xF000 == Line1010Base {
		return rec(LineA, ea.SizeNone, word)
	}
	if word&0xF000 == Line1111Base {
		return rec(LineF, ea.SizeNone, word)
	}
	for _, sch := range schemas {
		if word&sch.mask != sch.match {
			continue
		}
		if !sch.valid(word) {
			continue
		}
		return sch.decode(word)
	}
	return rec(Illegal, ea.SizeNone, word)
}

// Lookup returns the decoded Record for a fetched opcode word.
func Lookup(word uint16) Record { return Table[word] }
