/*
 * m68kemu - Monitor REPL commands
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

package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rcornwell/m68kemu/cpu"
	"github.com/rcornwell/m68kemu/disassemble"
	"github.com/rcornwell/m68kemu/monitor"
	hexfmt "github.com/rcornwell/m68kemu/util/hex"
)

func printStep(res cpu.StepResult) {
	fmt.Printf("PC=%06x word=%04x cycles=%d mem=%d\n",
		res.CurrentPC, res.InstructionWord, res.ClockCycles, res.MemAccesses)
	if res.Stopped {
		fmt.Println("stopped")
	}
}

// Execute a given number of instructions, one by default.
func step(line *cmdLine, m *monitor.Machine) (bool, error) {
	n, err := line.getDecimal(1)
	if err != nil {
		return false, err
	}
	for _, res := range m.Step(n) {
		printStep(res)
	}
	return false, nil
}

// Run free until a breakpoint or a halt.
func cont(_ *cmdLine, m *monitor.Machine) (bool, error) {
	printStep(m.Continue(0))
	return false, nil
}

func reset(_ *cmdLine, m *monitor.Machine) (bool, error) {
	m.Reset()
	fmt.Println("reset")
	return false, nil
}

func trace(line *cmdLine, m *monitor.Machine) (bool, error) {
	switch line.getWord(false) {
	case "on":
		m.SetTrace(os.Stdout)
	case "off", "":
		m.SetTrace(nil)
	default:
		return false, errors.New("trace expects on or off")
	}
	return false, nil
}

// Dump <n> bytes of memory starting at <addr>, 16 per line.
func dump(line *cmdLine, m *monitor.Machine) (bool, error) {
	addr, err := line.getHex()
	if err != nil {
		return false, err
	}
	n, err := line.getDecimal(16)
	if err != nil {
		return false, err
	}
	for i := 0; i < n; i += 16 {
		row := make([]uint8, 0, 16)
		for j := 0; j < 16 && i+j < n; j++ {
			v, err := m.Mem.ReadByte(addr + uint32(i+j))
			if err != nil {
				return false, err
			}
			row = append(row, v)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%06x: ", addr+uint32(i))
		hexfmt.FormatBytes(&sb, true, row)
		fmt.Println(sb.String())
	}
	return false, nil
}

// Disassemble <n> instructions starting at <addr>, one by default.
func disas(line *cmdLine, m *monitor.Machine) (bool, error) {
	addr, err := line.getHex()
	if err != nil {
		return false, err
	}
	n, err := line.getDecimal(1)
	if err != nil {
		return false, err
	}
	for i := 0; i < n; i++ {
		l, err := disassemble.One(addr, m.Mem.ReadWord)
		if err != nil {
			return false, err
		}
		fmt.Println(disassemble.Format(l))
		addr += uint32(l.Length) * 2
	}
	return false, nil
}

// break set <addr> / break clear <addr> / break list.
func brk(line *cmdLine, m *monitor.Machine) (bool, error) {
	switch line.getWord(false) {
	case "set":
		addr, err := line.getHex()
		if err != nil {
			return false, err
		}
		m.SetBreak(addr)
	case "clear":
		addr, err := line.getHex()
		if err != nil {
			return false, err
		}
		m.ClearBreak(addr)
	case "list", "":
		for _, a := range m.Breaks() {
			fmt.Printf("%06x\n", a)
		}
	default:
		return false, errors.New("break expects set, clear or list")
	}
	return false, nil
}

// Display the register file.
func show(_ *cmdLine, m *monitor.Machine) (bool, error) {
	st := m.CPU.State()

	var sb strings.Builder
	sb.WriteString("D0-D7: ")
	hexfmt.FormatWord(&sb, st.D[:])
	fmt.Println(sb.String())

	var regsA strings.Builder
	regsA.WriteString("A0-A7: ")
	a7 := st.A
	a7[7] = m.CPU.A(7)
	hexfmt.FormatWord(&regsA, a7[:])
	fmt.Println(regsA.String())

	fmt.Printf("PC=%06x SR=%04x USP=%08x SSP=%08x\n", st.PC, st.SR, st.USP, st.SSP)
	return false, nil
}

func quit(_ *cmdLine, _ *monitor.Machine) (bool, error) {
	return true, nil
}
