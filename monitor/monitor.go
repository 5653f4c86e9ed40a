/*
 * m68kemu - Monitor/debugger core
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

// Package monitor is what the REPL in command/reader and command/parser
// drives: a CPU/memory pair plus the breakpoint set and run state a
// debugger needs on top of them. Unlike the teacher's emu/core, which
// runs the CPU on its own goroutine and serializes control through a
// channel of master.Packet, stepping a 68000 has nothing else to
// coordinate with -- autoconfig and expansion board I/O are synchronous
// memory accesses on the same call stack -- so Continue just loops
// CPU.Step on the REPL's own goroutine until a breakpoint or stop.
package monitor

import (
	"io"

	"github.com/rcornwell/m68kemu/cpu"
	"github.com/rcornwell/m68kemu/memory"
)

// Machine is the debuggable unit the monitor commands act on.
type Machine struct {
	CPU *cpu.CPU
	Mem *memory.Bus

	breakpoints map[uint32]bool
}

// New wraps an already-Reset CPU/memory pair for the monitor.
func New(c *cpu.CPU, mem *memory.Bus) *Machine {
	return &Machine{CPU: c, Mem: mem, breakpoints: map[uint32]bool{}}
}

// SetTrace installs (or, with nil, removes) the instruction trace writer.
func (m *Machine) SetTrace(w io.Writer) { m.CPU.Trace(w) }

// SetBreak arms a breakpoint at addr.
func (m *Machine) SetBreak(addr uint32) { m.breakpoints[addr] = true }

// ClearBreak disarms a breakpoint at addr.
func (m *Machine) ClearBreak(addr uint32) { delete(m.breakpoints, addr) }

// Breaks lists every armed breakpoint address.
func (m *Machine) Breaks() []uint32 {
	addrs := make([]uint32, 0, len(m.breakpoints))
	for a := range m.breakpoints {
		addrs = append(addrs, a)
	}
	return addrs
}

// Step executes exactly n instructions (or fewer, if the CPU halts) and
// returns every StepResult in order.
func (m *Machine) Step(n int) []cpu.StepResult {
	results := make([]cpu.StepResult, 0, n)
	for range n {
		res := m.CPU.Step()
		results = append(results, res)
		if res.Stopped {
			break
		}
	}
	return results
}

// Continue steps until a breakpoint is hit, the CPU halts (STOP with
// interrupts masked), or limit instructions have run -- limit guards
// against a runaway loop with no breakpoint ever blocking the REPL
// forever; 0 means unlimited.
func (m *Machine) Continue(limit int) cpu.StepResult {
	var res cpu.StepResult
	for i := 0; limit == 0 || i < limit; i++ {
		res = m.CPU.Step()
		if res.Stopped {
			break
		}
		if m.breakpoints[res.CurrentPC] {
			break
		}
	}
	return res
}

// Reset reinitializes the CPU and memory to power-on state.
func (m *Machine) Reset() { m.CPU.Reset() }
