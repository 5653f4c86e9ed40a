/*
 * m68kemu - Instruction conformance harness
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

// Package conformance runs whole instructions through a real cpu.CPU over a
// real memory.Bus and checks the result against a known-good pre/post
// register state, rather than unit-testing decode or execute in isolation.
//
// A register-delta case seeds registers and code, steps the CPU exactly
// once, and compares the resulting registers, flags and PC. A timing case
// does the same and additionally checks the reported cycle and memory-access
// counts. Cases are plain Go literals rather than a parsed vector stream:
// no binary or text vector files travel with this port, only the reader
// code that would have consumed them, so there is nothing external to
// parse against.
package conformance

import (
	"testing"

	"github.com/rcornwell/m68kemu/cpu"
	"github.com/rcornwell/m68kemu/memory"
)

// defaultSRMask covers every CCR bit plus T and S; callers that care about
// the interrupt mask bits pass their own mask.
const defaultSRMask = 0xA01F

// Machine builds a bus and CPU pair sized for one conformance case.
func Machine(ramSize uint32) (*memory.Bus, *cpu.CPU) {
	mem := memory.New(ramSize)
	return mem, cpu.New(mem)
}

// RegisterDeltaCase is one register-delta vector: the instruction (plus any
// extension words) loaded at Addr, a pre-state, and the post-state exactly
// one cpu.Step must produce.
type RegisterDeltaCase struct {
	Name string
	Addr uint32
	Code []uint16

	PreD, WantD   [8]uint32
	PreA, WantA   [8]uint32
	PreSSP        uint32
	PreUSP        uint32
	WantSSP       uint32
	WantUSP       uint32
	PreSR, WantSR uint16
	SRMask        uint16 // 0 means defaultSRMask

	// PreMem seeds longwords at fixed addresses before the step (an
	// exception vector, a destination operand's starting contents).
	// WantMem checks longwords after the step (a pushed exception frame,
	// a memory-destination operand's result).
	PreMem  map[uint32]uint32
	WantMem map[uint32]uint32
	// WantMemWord checks words after the step -- the SR half of a pushed
	// exception frame, which is 16 bits wide even though PreMem/WantMem
	// above deal in longwords.
	WantMemWord map[uint32]uint16

	WantPC uint32
}

// Run seeds c with the case's code and pre-state, executes one Step, and
// reports every mismatch against t. It returns the StepResult so a caller
// that also cares about timing (see TimingCase) can inspect it.
func (rc RegisterDeltaCase) Run(t *testing.T, mem *memory.Bus, c *cpu.CPU) cpu.StepResult {
	t.Helper()
	for addr, v := range rc.PreMem {
		if err := mem.WriteLong(addr, v); err != nil {
			t.Fatalf("%s: seeding memory at %#x: %v", rc.Name, addr, err)
		}
	}
	for i, w := range rc.Code {
		if err := mem.WriteWord(rc.Addr+uint32(i)*2, w); err != nil {
			t.Fatalf("%s: seeding code word %d: %v", rc.Name, i, err)
		}
	}

	st := c.State()
	st.D, st.A = rc.PreD, rc.PreA
	st.SSP, st.USP = rc.PreSSP, rc.PreUSP
	st.PC, st.SR = rc.Addr, rc.PreSR

	res := c.Step()

	mask := rc.SRMask
	if mask == 0 {
		mask = defaultSRMask
	}
	if st.D != rc.WantD {
		t.Errorf("%s: D = %08x, want %08x", rc.Name, st.D, rc.WantD)
	}
	if st.A != rc.WantA {
		t.Errorf("%s: A = %08x, want %08x", rc.Name, st.A, rc.WantA)
	}
	if st.SSP != rc.WantSSP {
		t.Errorf("%s: SSP = %#x, want %#x", rc.Name, st.SSP, rc.WantSSP)
	}
	if st.USP != rc.WantUSP {
		t.Errorf("%s: USP = %#x, want %#x", rc.Name, st.USP, rc.WantUSP)
	}
	if st.SR&mask != rc.WantSR&mask {
		t.Errorf("%s: SR&%#04x = %#04x, want %#04x", rc.Name, mask, st.SR&mask, rc.WantSR&mask)
	}
	if st.PC != rc.WantPC {
		t.Errorf("%s: PC = %#x, want %#x", rc.Name, st.PC, rc.WantPC)
	}
	for addr, want := range rc.WantMem {
		got, err := mem.ReadLong(addr)
		if err != nil {
			t.Errorf("%s: reading memory at %#x: %v", rc.Name, addr, err)
			continue
		}
		if got != want {
			t.Errorf("%s: long@%#x = %#x, want %#x", rc.Name, addr, got, want)
		}
	}
	for addr, want := range rc.WantMemWord {
		got, err := mem.ReadWord(addr)
		if err != nil {
			t.Errorf("%s: reading word at %#x: %v", rc.Name, addr, err)
			continue
		}
		if got != want {
			t.Errorf("%s: word@%#x = %#x, want %#x", rc.Name, addr, got, want)
		}
	}
	return res
}

// TimingCase checks a single Step's reported cycle and memory-access counts
// against the tabulated (clock_cycles, mem_accesses) pair for that
// instruction.
type TimingCase struct {
	Name            string
	Addr            uint32
	Code            []uint16
	PreD            [8]uint32
	PreA            [8]uint32
	WantCycles      uint32
	WantMemAccesses uint32
}

func (tc TimingCase) Run(t *testing.T, mem *memory.Bus, c *cpu.CPU) cpu.StepResult {
	t.Helper()
	for i, w := range tc.Code {
		if err := mem.WriteWord(tc.Addr+uint32(i)*2, w); err != nil {
			t.Fatalf("%s: seeding code word %d: %v", tc.Name, i, err)
		}
	}
	st := c.State()
	st.D, st.A, st.PC = tc.PreD, tc.PreA, tc.Addr

	res := c.Step()
	if res.ClockCycles != tc.WantCycles {
		t.Errorf("%s: ClockCycles = %d, want %d", tc.Name, res.ClockCycles, tc.WantCycles)
	}
	if res.MemAccesses != tc.WantMemAccesses {
		t.Errorf("%s: MemAccesses = %d, want %d", tc.Name, res.MemAccesses, tc.WantMemAccesses)
	}
	return res
}
