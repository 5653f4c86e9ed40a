/*
 * m68kemu - Exception vector numbering and trap entry
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

// Exception vector numbers, fixed by the 68000 exception architecture.
const (
	VecResetSSP  = 0
	VecResetPC   = 1
	VecBus       = 2
	VecAddress   = 3
	VecIllegal   = 4
	VecDivZero   = 5
	VecCHK       = 6
	VecTrapV     = 7
	VecPrivilege = 8
	VecTrace     = 9
	VecLineA     = 10
	VecLineF     = 11
)

func vecAutovector(level uint8) uint32 { return 24 + uint32(level) }
func vecTrap(n uint8) uint32           { return 32 + uint32(n) }

// doubleFault is fatal: a second fault while pushing an exception frame.
type doubleFault struct{ inner error }

func (d *doubleFault) Error() string { return "double fault: " + d.inner.Error() }

// takeException pushes PC and SR (and, for bus/address errors, the extended
// three-word frame), switches to supervisor mode, clears trace, and loads
// the new PC from the vector table. extra carries the bus/address-error
// frame words (access-info, fault address split hi/lo, instruction word);
// it is nil for every other exception.
func (c *CPU) takeException(vecNum uint32, extra *faultFrame) error {
	wasSuper := c.st.supervisor()
	oldSR := c.st.SR
	c.st.SR |= srS
	c.st.SR &^= srT

	push := func(v uint32) error {
		sp := c.A(7) - 4
		c.SetA(7, sp)
		return c.mem.WriteLong(sp, v)
	}
	pushW := func(v uint16) error {
		sp := c.A(7) - 2
		c.SetA(7, sp)
		return c.mem.WriteWord(sp, v)
	}

	if extra != nil {
		if err := pushW(extra.instrWord); err != nil {
			return &doubleFault{inner: err}
		}
		if err := push(extra.faultAddr); err != nil {
			return &doubleFault{inner: err}
		}
		if err := pushW(extra.accessInfo); err != nil {
			return &doubleFault{inner: err}
		}
	}
	// SR is pushed before PC so PC, pushed last, lands at the lowest
	// address -- the new SSP itself -- with SR sitting just above it.
	if err := pushW(oldSR); err != nil {
		return &doubleFault{inner: err}
	}
	if err := push(c.st.PC); err != nil {
		return &doubleFault{inner: err}
	}

	vecAddr := vecNum * 4
	newPC, err := c.mem.ReadLong(vecAddr)
	if err != nil {
		return &doubleFault{inner: err}
	}
	logTrap(vecNum, c.st.PC)
	c.st.PC = newPC
	_ = wasSuper
	c.hasPrefetch = false
	return nil
}

// faultFrame carries the extended three-word exception frame for bus and
// address errors: access-info (function code + R/W + instruction/not in
// the low byte), the 32-bit fault address, and the instruction word in
// progress when the fault happened.
type faultFrame struct {
	accessInfo uint16
	faultAddr  uint32
	instrWord  uint16
}

func addressErrorFrame(addr uint32, write bool, instrWord uint16) *faultFrame {
	info := uint16(0x0005) // function code 101 (supervisor program), RW/IN bits below
	if !write {
		info |= 0x0010
	}
	return &faultFrame{accessInfo: info, faultAddr: addr, instrWord: instrWord}
}

// autovectorInterrupt takes an auto-vectored interrupt at the level given
// by the IPL provider.
func (c *CPU) autovectorInterrupt(level uint8) error {
	c.st.setIPLMask(level)
	c.st.setFlag(srT, false)
	return c.takeException(vecAutovector(level), nil)
}
