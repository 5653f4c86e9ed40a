/*
 * m68kemu - CPU interpreter
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

// Package cpu is the 68000 instruction interpreter: the step loop, trap
// entry, and the per-family operation handlers dispatched from the opcode
// table built by package opcode.
package cpu

import (
	"fmt"
	"io"

	"github.com/rcornwell/m68kemu/ea"
	"github.com/rcornwell/m68kemu/opcode"
	"github.com/rcornwell/m68kemu/snapshot"
)

// Mem is the bus surface the interpreter needs: ea.Mem for operand access,
// plus Reset for the host-level power-on reset (clears RAM and every
// registered device) -- package memory's Bus satisfies this directly.
type Mem interface {
	ea.Mem
	Reset()
}

// StepResult reports what one Step call did.
type StepResult struct {
	StartPC          uint32
	CurrentPC        uint32
	InstructionWord  uint16
	Stopped          bool
	ClockCycles      uint32
	MemAccesses      uint32
}

// CPU is the 68000 interpreter. Create one with New, prime it with Reset,
// then call Step repeatedly.
type CPU struct {
	st State

	mem         Mem
	hasPrefetch bool
	prefetch    uint16
	stopped     bool

	cycleHandler func(uint8)
	readIPL      func() uint8
	trace        io.Writer

	cycles      uint32
	memAccesses uint32
}

// New creates a CPU over mem. Call Reset before stepping.
func New(mem Mem) *CPU {
	return &CPU{mem: mem}
}

// State returns the live register file.
func (c *CPU) State() *State { return &c.st }

// SetCycleHandler installs the per-instruction variable-timing hook
// hook every operation handler feeds variable timing through.
func (c *CPU) SetCycleHandler(fn func(uint8)) { c.cycleHandler = fn }

// SetReadIPL installs the callback Step polls for the current interrupt
// priority level.
func (c *CPU) SetReadIPL(fn func() uint8) { c.readIPL = fn }

// Trace installs (or, with nil, removes) a writer that receives one line
// per instruction Step fetches and dispatches: its address, opcode word and
// mnemonic family.
func (c *CPU) Trace(w io.Writer) { c.trace = w }

func (c *CPU) addCycles(n uint8) {
	c.cycles += uint32(n)
	if c.cycleHandler != nil {
		c.cycleHandler(n)
	}
}

func (c *CPU) memAccess(n uint32) { c.memAccesses += n }

// busWords is the number of 16-bit bus cycles a bus transfer of size
// costs: one for byte/word, two for long.
func busWords(size ea.Size) uint32 {
	if size == ea.SizeLong {
		return 2
	}
	return 1
}

// Reset is the host-level power-on reset: clears registers and the whole
// memory bus, loads PC from the long at address 4 and SSP from the long at
// address 0, sets SR=$2700, and clears the prefetch, so the first Step
// reads its opcode word from the bus.
func (c *CPU) Reset() {
	c.mem.Reset()
	c.st = State{}
	c.st.SR = 0x2700
	ssp, err := c.mem.ReadLong(0)
	if err == nil {
		c.st.SSP = ssp
	}
	pc, err := c.mem.ReadLong(4)
	if err == nil {
		c.st.PC = pc
	}
	c.hasPrefetch = false
	c.stopped = false
}

// fetchOpcodeWord returns the instruction word the current step executes.
// The bus cycle that fetched it is always charged to THIS step, even when
// the word was actually read ahead by the previous step's prefetchNext --
// the pipeline hides the read, but the bus cycle belongs to the consumer.
func (c *CPU) fetchOpcodeWord() (uint16, error) {
	if c.hasPrefetch {
		c.hasPrefetch = false
		c.st.PC += 2
		c.memAccess(1)
		return c.prefetch, nil
	}
	w, err := c.mem.ReadWord(c.st.PC)
	if err != nil {
		return 0, err
	}
	c.st.PC += 2
	c.memAccess(1)
	return w, nil
}

// prefetchNext reads ahead the next instruction word. Its bus cycle is not
// charged here; fetchOpcodeWord charges it to the step that consumes it.
func (c *CPU) prefetchNext() {
	w, err := c.mem.ReadWord(c.st.PC)
	if err != nil {
		// A faulting prefetch is reported on the *next* step's fetch;
		// leave hasPrefetch false so that happens naturally.
		return
	}
	c.prefetch = w
	c.hasPrefetch = true
}

// Step executes exactly one instruction (or interrupt/trace-trap entry, or
// a no-op poll while stopped).
func (c *CPU) Step() StepResult {
	c.cycles, c.memAccesses = 0, 0
	startPC := c.st.PC
	wasTracing := c.st.SR&srT != 0

	ipl := uint8(0)
	if c.readIPL != nil {
		ipl = c.readIPL()
	}

	if c.stopped {
		if ipl <= c.st.IPLMask() {
			return StepResult{StartPC: startPC, CurrentPC: c.st.PC, Stopped: true}
		}
		c.stopped = false
	}

	if ipl > c.st.IPLMask() {
		if err := c.autovectorInterrupt(ipl); err != nil {
			panic(err) // double fault: a second fault while pushing an exception frame is unrecoverable
		}
		c.prefetchNext()
		return StepResult{StartPC: startPC, CurrentPC: c.st.PC, ClockCycles: c.cycles, MemAccesses: c.memAccesses}
	}

	if c.st.PC&1 != 0 {
		frame := addressErrorFrame(c.st.PC, false, 0)
		if err := c.takeException(VecAddress, frame); err != nil {
			panic(err)
		}
		c.prefetchNext()
		return StepResult{StartPC: startPC, CurrentPC: c.st.PC, ClockCycles: c.cycles, MemAccesses: c.memAccesses}
	}

	word, err := c.fetchOpcodeWord()
	if err != nil {
		if aerr, ok := err.(*ea.AddressError); ok {
			frame := addressErrorFrame(aerr.Addr, aerr.Write, 0)
			if e := c.takeException(VecAddress, frame); e != nil {
				panic(e)
			}
			c.prefetchNext()
			return StepResult{StartPC: startPC, CurrentPC: c.st.PC, ClockCycles: c.cycles, MemAccesses: c.memAccesses}
		}
		if e := c.takeException(VecBus, addressErrorFrame(c.st.PC, false, 0)); e != nil {
			panic(e)
		}
		c.prefetchNext()
		return StepResult{StartPC: startPC, CurrentPC: c.st.PC, ClockCycles: c.cycles, MemAccesses: c.memAccesses}
	}

	rec := opcode.Lookup(word)

	if isPrivileged(rec.Family) && !c.st.supervisor() {
		if rec.Family == opcode.Reset {
			// RESET executed from user mode is neutered to ILLEGAL rather
			// than privilege-violation -- a deliberate deviation from real
			// 68000s, which raise a privilege violation here.
			rec = opcode.Lookup(opcode.IllegalWord)
		} else {
			if e := c.takeException(VecPrivilege, nil); e != nil {
				panic(e)
			}
			c.prefetchNext()
			return StepResult{StartPC: startPC, CurrentPC: c.st.PC, InstructionWord: word, ClockCycles: c.cycles, MemAccesses: c.memAccesses}
		}
	}

	switch rec.Family {
	case opcode.Illegal:
		// Unlike every other trap, ILLEGAL/line-A/line-F report the
		// faulting instruction's own address, not the fetch-advanced PC:
		// rewind before pushing the frame.
		c.st.PC = startPC
		if e := c.takeException(VecIllegal, nil); e != nil {
			panic(e)
		}
	case opcode.LineA:
		c.st.PC = startPC
		if e := c.takeException(VecLineA, nil); e != nil {
			panic(e)
		}
	case opcode.LineF:
		c.st.PC = startPC
		if e := c.takeException(VecLineF, nil); e != nil {
			panic(e)
		}
	default:
		if e := c.execute(rec, word); e != nil {
			switch v := e.(type) {
			case *ea.AddressError:
				frame := addressErrorFrame(v.Addr, v.Write, word)
				if te := c.takeException(VecAddress, frame); te != nil {
					panic(te)
				}
			case privilegeViolation:
				if te := c.takeException(VecPrivilege, nil); te != nil {
					panic(te)
				}
			default:
				panic(fmt.Errorf("cpu: executing %s: %w", rec.Name, e))
			}
		}
	}

	c.prefetchNext()
	if wasTracing {
		if te := c.takeException(VecTrace, nil); te != nil {
			panic(te)
		}
		c.prefetchNext()
	}
	res := StepResult{
		StartPC: startPC, CurrentPC: c.st.PC, InstructionWord: word,
		Stopped: c.stopped, ClockCycles: c.cycles, MemAccesses: c.memAccesses,
	}
	if c.trace != nil {
		fmt.Fprintf(c.trace, "%06x  %04x  %s\n", startPC, word, rec.Name)
	}
	logStep(res)
	return res
}

func isPrivileged(f opcode.Family) bool {
	switch f {
	case opcode.Reset, opcode.Stop, opcode.Rte:
		return true
	}
	return false
}

// Save/Load implement snapshot.Handler over the CPU's full register file.
func (c *CPU) Save(w *snapshot.Writer) {
	w.OpenScope("cpu.state", 1)
	for i := 0; i < 8; i++ {
		w.U32(c.st.D[i])
	}
	for i := 0; i < 8; i++ {
		w.U32(c.st.A[i])
	}
	w.U32(c.st.USP)
	w.U32(c.st.SSP)
	w.U32(c.st.PC)
	w.U16(c.st.SR)
	w.Bool(c.stopped)
	w.Bool(c.hasPrefetch)
	w.U16(c.prefetch)
	w.CloseScope()
}

func (c *CPU) Load(r *snapshot.Reader) error {
	if err := r.OpenScope("cpu.state", 1); err != nil {
		return err
	}
	for i := 0; i < 8; i++ {
		v, err := r.U32()
		if err != nil {
			return err
		}
		c.st.D[i] = v
	}
	for i := 0; i < 8; i++ {
		v, err := r.U32()
		if err != nil {
			return err
		}
		c.st.A[i] = v
	}
	var err error
	if c.st.USP, err = r.U32(); err != nil {
		return err
	}
	if c.st.SSP, err = r.U32(); err != nil {
		return err
	}
	if c.st.PC, err = r.U32(); err != nil {
		return err
	}
	if c.st.SR, err = r.U16(); err != nil {
		return err
	}
	if c.stopped, err = r.Bool(); err != nil {
		return err
	}
	if c.hasPrefetch, err = r.Bool(); err != nil {
		return err
	}
	if c.prefetch, err = r.U16(); err != nil {
		return err
	}
	return r.CloseScope()
}
