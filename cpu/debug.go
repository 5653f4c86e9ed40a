/*
 * m68kemu - CPU debug option switches
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

import (
	"errors"
	"log/slog"
)

// Debug category bits, enabled independently via Debug.
const (
	debugStep = 1 << iota // log StartPC/InstructionWord for every Step
	debugTrap             // log vector number for every exception taken
)

var debugOption = map[string]int{
	"STEP": debugStep,
	"TRAP": debugTrap,
}

var debugMsk int

// Debug enables a named debug category (STEP, TRAP). Output goes through
// slog.Default() at debug level.
func Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("cpu debug option invalid: " + opt)
	}
	debugMsk |= flag
	return nil
}

func logStep(res StepResult) {
	if debugMsk&debugStep == 0 {
		return
	}
	slog.Default().Debug("cpu step", "pc", res.StartPC, "word", res.InstructionWord, "cycles", res.ClockCycles)
}

func logTrap(vecNum uint32, pc uint32) {
	if debugMsk&debugTrap == 0 {
		return
	}
	slog.Default().Debug("cpu exception", "vector", vecNum, "pc", pc)
}
