/*
 * m68kemu - CPU register file
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

package cpu

// Status register bit layout.
const (
	srT  uint16 = 1 << 15 // trace
	srS  uint16 = 1 << 13 // supervisor
	srIM uint16 = 7 << 8  // interrupt priority mask
	srX  uint16 = 1 << 4
	srN  uint16 = 1 << 3
	srZ  uint16 = 1 << 2
	srV  uint16 = 1 << 1
	srC  uint16 = 1 << 0
)

// State is the CPU register file, exported for conformance vectors and the
// monitor REPL's register-dump command. It is deliberately a plain data
// struct -- the ea.Regs methods live on *CPU (regs.go's other half), since
// Go forbids a method and field from sharing a name on the same type.
type State struct {
	D   [8]uint32
	A   [8]uint32 // A[7] is stale outside snapshots; live access goes through USP/SSP
	USP uint32
	SSP uint32
	PC  uint32
	SR  uint16
}

func (s *State) supervisor() bool { return s.SR&srS != 0 }

func (s *State) N() bool { return s.SR&srN != 0 }
func (s *State) Z() bool { return s.SR&srZ != 0 }
func (s *State) V() bool { return s.SR&srV != 0 }
func (s *State) C() bool { return s.SR&srC != 0 }
func (s *State) X() bool { return s.SR&srX != 0 }

func (s *State) setFlag(bit uint16, v bool) {
	if v {
		s.SR |= bit
	} else {
		s.SR &^= bit
	}
}

// IPLMask returns the current interrupt-priority mask (SR bits 10-8).
func (s *State) IPLMask() uint8 { return uint8((s.SR & srIM) >> 8) }

func (s *State) setIPLMask(m uint8) { s.SR = (s.SR &^ srIM) | (uint16(m&7) << 8) }

// D/SetD/A/SetA/PC/SetPC satisfy ea.Regs. A(7) always resolves to the
// currently active stack pointer: effective A7 always selects SSP when
// the supervisor bit is set, USP otherwise.
func (c *CPU) D(n uint) uint32      { return c.st.D[n] }
func (c *CPU) SetD(n uint, v uint32) { c.st.D[n] = v }

func (c *CPU) A(n uint) uint32 {
	if n == 7 {
		if c.st.supervisor() {
			return c.st.SSP
		}
		return c.st.USP
	}
	return c.st.A[n]
}

func (c *CPU) SetA(n uint, v uint32) {
	if n == 7 {
		if c.st.supervisor() {
			c.st.SSP = v
		} else {
			c.st.USP = v
		}
		return
	}
	c.st.A[n] = v
}

func (c *CPU) PC() uint32     { return c.st.PC }
func (c *CPU) SetPC(v uint32) { c.st.PC = v }
