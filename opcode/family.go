/*
 * m68kemu - Instruction family enumeration
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

// Package opcode builds the flat, 65536-entry decoded-instruction table by
// enumerating the whole 16-bit opcode space at init time from a list of
// instruction schemata, mirroring mktab.cpp's bit-pattern table.
package opcode

// Family tags one mnemonic group. Several addressing-mode variants of the
// same mnemonic (MOVE to/from SR/CCR/USP) share one family and are told
// apart at runtime by their operand descriptors -- exactly as the reference
// decoder does, so the interpreter dispatches on Family alone.
type Family int

const (
	Illegal Family = iota
	Abcd
	Add
	Adda
	Addi
	Addq
	Addx
	And
	Andi
	Asl
	Asr
	Bchg
	Bclr
	Bra
	Bset
	Bsr
	Btst
	Bcc
	Chk
	Clr
	Cmp
	Cmpa
	Cmpi
	Cmpm
	Dbcc
	Divs
	Divu
	Eor
	Eori
	Exg
	Ext
	Jmp
	Jsr
	Lea
	Link
	Lsl
	Lsr
	Move
	Movea
	Moveq
	Movem
	Muls
	Mulu
	Nbcd
	Neg
	Negx
	Nop
	Not
	Or
	Ori
	Pea
	Reset
	Rol
	Ror
	Roxl
	Roxr
	Rte
	Rtr
	Rts
	Sbcd
	Stop
	Sub
	Suba
	Subi
	Subq
	Subx
	Swap
	Scc
	Tas
	Trap
	Trapv
	Tst
	Unlk
	LineA // unassigned $A000-$AFFF block, trapped as line-1010
	LineF // unassigned $F000-$FFFF block, trapped as line-1111
)

var names = map[Family]string{
	Illegal: "DC.W", Abcd: "ABCD", Add: "ADD", Adda: "ADDA", Addi: "ADDI",
	Addq: "ADDQ", Addx: "ADDX", And: "AND", Andi: "ANDI", Asl: "ASL", Asr: "ASR",
	Bchg: "BCHG", Bclr: "BCLR", Bra: "BRA", Bset: "BSET", Bsr: "BSR", Btst: "BTST",
	Bcc: "Bcc", Chk: "CHK", Clr: "CLR", Cmp: "CMP", Cmpa: "CMPA", Cmpi: "CMPI",
	Cmpm: "CMPM", Dbcc: "DBcc", Divs: "DIVS", Divu: "DIVU", Eor: "EOR", Eori: "EORI",
	Exg: "EXG", Ext: "EXT", Jmp: "JMP", Jsr: "JSR", Lea: "LEA", Link: "LINK",
	Lsl: "LSL", Lsr: "LSR", Move: "MOVE", Movea: "MOVEA", Moveq: "MOVEQ",
	Movem: "MOVEM", Muls: "MULS", Mulu: "MULU", Nbcd: "NBCD", Neg: "NEG",
	Negx: "NEGX", Nop: "NOP", Not: "NOT", Or: "OR", Ori: "ORI", Pea: "PEA",
	Reset: "RESET", Rol: "ROL", Ror: "ROR", Roxl: "ROXL", Roxr: "ROXR", Rte: "RTE",
	Rtr: "RTR", Rts: "RTS", Sbcd: "SBCD", Stop: "STOP", Sub: "SUB", Suba: "SUBA",
	Subi: "SUBI", Subq: "SUBQ", Subx: "SUBX", Swap: "SWAP", Scc: "Scc", Tas: "TAS",
	Trap: "TRAP", Trapv: "TRAPV", Tst: "TST", Unlk: "UNLK", LineA: "DC.W", LineF: "DC.W",
}

func (f Family) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return "???"
}

// Condition is the 4-bit condition-code field shared by Bcc/DBcc/Scc.
type Condition uint8

const (
	CondT  Condition = 0x0
	CondF  Condition = 0x1
	CondHI Condition = 0x2
	CondLS Condition = 0x3
	CondCC Condition = 0x4
	CondCS Condition = 0x5
	CondNE Condition = 0x6
	CondEQ Condition = 0x7
	CondVC Condition = 0x8
	CondVS Condition = 0x9
	CondPL Condition = 0xA
	CondMI Condition = 0xB
	CondGE Condition = 0xC
	CondLT Condition = 0xD
	CondGT Condition = 0xE
	CondLE Condition = 0xF
)

var condNames = [16]string{
	"T", "F", "HI", "LS", "CC", "CS", "NE", "EQ",
	"VC", "VS", "PL", "MI", "GE", "LT", "GT", "LE",
}

func (c Condition) String() string {
	return condNames[c&0xf]
}
