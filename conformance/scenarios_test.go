/*
 * m68kemu - Bundled conformance scenarios
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

package conformance

import "testing"

func TestMoveqSignExtendsAndSetsFlags(t *testing.T) {
	rc := RegisterDeltaCase{
		Name:  "MOVEQ #-2,D0",
		Addr:  0x400,
		Code:  []uint16{0x70FE}, // MOVEQ #-2,D0
		PreD:  [8]uint32{0xAA55CC01},
		WantD: [8]uint32{0xFFFFFFFE},
		PreSR:  0x0000,
		WantSR: 0x0008, // N set, Z/V/C/X clear
		WantPC: 0x402,
	}
	mem, c := Machine(0x1000)
	rc.Run(t, mem, c)
}

func TestMuluWidensWithoutOverflow(t *testing.T) {
	rc := RegisterDeltaCase{
		Name:   "MULU.W #$0010,D0",
		Addr:   0x400,
		Code:   []uint16{0xC0FC, 0x0010}, // MULU.W #$0010,D0
		PreD:   [8]uint32{0x55AAFFC0},
		WantD:  [8]uint32{0x000FFC00},
		PreSR:  0,
		WantSR: 0, // N=0,Z=0,V=0,C=0
		WantPC: 0x404,
	}
	mem, c := Machine(0x1000)
	rc.Run(t, mem, c)
}

// The code runs from $2000 rather than the scenario's illustrative $1000:
// at $1000 a 3-word ADDI.L occupies $1000-$1005, which would collide with
// the $1004 destination the scenario also names, so the encoded
// instruction and the memory it operates on need separate addresses for
// "RAM zero at $1004" to hold at the time the destination is read.
func TestAddiLongToPredecrementUpdatesMemoryAndAddress(t *testing.T) {
	rc := RegisterDeltaCase{
		Name:    "ADDI.L #$12345678,-(A2)",
		Addr:    0x2000,
		Code:    []uint16{0x06A2, 0x1234, 0x5678}, // ADDI.L #$12345678,-(A2)
		PreA:    [8]uint32{0, 0, 0x1008},
		WantA:   [8]uint32{0, 0, 0x1004},
		PreSR:   0,
		WantSR:  0, // destination started zero: no carry, no overflow, result non-zero/positive
		WantPC:  0x2006,
		WantMem: map[uint32]uint32{0x1004: 0x12345678},
	}
	mem, c := Machine(0x3000)
	rc.Run(t, mem, c)
}

// TestIllegalInstructionTakesException checks the exception entry sequence
// spec.md pins down exactly: SSP decremented by 6, the faulting PC at the
// new SSP, the old SR at newSSP+4, and the new PC loaded from vector 4.
func TestIllegalInstructionTakesException(t *testing.T) {
	rc := RegisterDeltaCase{
		Name:        "ILLEGAL ($4AFC)",
		Addr:        0x400,
		Code:        []uint16{0x4AFC},
		PreSR:       0x2000, // supervisor bit set
		WantSR:      0x2000,
		PreSSP:      0x2000,
		WantSSP:     0x1FFA,
		PreMem:      map[uint32]uint32{0x10: 0x00003000}, // vector 4 -> handler at $3000
		WantMem:     map[uint32]uint32{0x1FFA: 0x00000400}, // ILLEGAL reports its own address, not the fetch-advanced PC
		WantMemWord: map[uint32]uint16{0x1FFE: 0x2000},
		WantPC:      0x3000,
	}
	mem, c := Machine(0x4000)
	rc.Run(t, mem, c)
}

// TestMoveqTiming and TestAddiPredecrementTiming assert the tabulated
// (clock_cycles, mem_accesses) ground truth: a pipelined prefetch's bus
// cycle is charged to the step that consumes the word, not the step that
// reads it ahead, so a one-word instruction's own fetch is its only access.
func TestMoveqTiming(t *testing.T) {
	tc := TimingCase{
		Name:            "MOVEQ #-2,D0",
		Addr:            0x400,
		Code:            []uint16{0x70FE},
		WantCycles:      4,
		WantMemAccesses: 1, // opcode fetch
	}
	mem, c := Machine(0x1000)
	tc.Run(t, mem, c)
}

func TestAddiPredecrementTiming(t *testing.T) {
	tc := TimingCase{
		Name:            "ADDI.L #$12345678,-(A2)",
		Addr:            0x2000,
		Code:            []uint16{0x06A2, 0x1234, 0x5678},
		PreA:            [8]uint32{0, 0, 0x1008},
		WantCycles:      30, // 20 (long, memory dest) base + eaCycles(AIndPre, Long)=10
		WantMemAccesses: 7,  // opcode fetch(1) + long immediate(2) + long dest read(2) + long dest write(2)
	}
	mem, c := Machine(0x3000)
	tc.Run(t, mem, c)
}
