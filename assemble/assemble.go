/*
 * m68kemu - Assembler
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

// Package assemble turns 68000 assembly-syntax source text into opcode
// and extension words, mirroring the schema the opcode table decodes
// against -- one encoder per mnemonic group, inverse of package opcode's
// decoders.
package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/m68kemu/ea"
)

// Mem is the bus surface the assembler writes encoded words into.
type Mem interface {
	WriteWord(addr uint32, v uint16) error
}

type fixup struct {
	addr   uint32
	pc     uint32
	kind   ea.FixupKind
	symbol string
}

// Assembler holds the symbol table and pending-fixup list across the
// single pass over source text; labels become resolvable the instant
// their line is reached, and forward references are patched once the
// whole file has been scanned.
type Assembler struct {
	mem     Mem
	pc      uint32
	symbols map[string]uint32
	fixups  []fixup
}

// New creates an Assembler that starts emitting at origin.
func New(mem Mem, origin uint32) *Assembler {
	return &Assembler{mem: mem, pc: origin, symbols: map[string]uint32{}}
}

// Lookup implements ea.Resolver against the assembler's own symbol table.
func (a *Assembler) Lookup(name string) (uint32, bool) {
	v, ok := a.symbols[strings.ToUpper(name)]
	return v, ok
}

// Symbols returns the final symbol table after Assemble completes.
func (a *Assembler) Symbols() map[string]uint32 { return a.symbols }

// Assemble processes src line by line, writing encoded instructions
// through mem starting at the Assembler's origin. A label undefined at
// end of file is reported as an error naming every such symbol.
func (a *Assembler) Assemble(src string) error {
	for lineNo, raw := range strings.Split(src, "\n") {
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := a.assembleLine(line); err != nil {
			return fmt.Errorf("assemble: line %d: %w", lineNo+1, err)
		}
	}
	return a.resolveFixups()
}

func stripComment(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[:i]
	}
	if i := strings.IndexByte(s, '*'); i == 0 {
		return ""
	}
	return s
}

func (a *Assembler) assembleLine(line string) error {
	if i := strings.IndexByte(line, ':'); i > 0 && !strings.ContainsAny(line[:i], " \t") {
		label := strings.ToUpper(line[:i])
		a.symbols[label] = a.pc
		line = strings.TrimSpace(line[i+1:])
		if line == "" {
			return nil
		}
	}

	fields := strings.SplitN(line, " ", 2)
	mnemonicField := fields[0]
	rest := ""
	if len(fields) > 1 {
		rest = strings.TrimSpace(fields[1])
	}

	mnemonic, size := splitSize(mnemonicField)
	mnemonic = strings.ToUpper(mnemonic)

	if mnemonic == "EQU" {
		return fmt.Errorf("EQU requires a preceding label")
	}
	if handler, ok := directives[mnemonic]; ok {
		return handler(a, rest, size)
	}
	enc, ok := encoders[mnemonic]
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	return enc(a, rest, size)
}

func splitSize(tok string) (string, ea.Size) {
	i := strings.LastIndexByte(tok, '.')
	if i < 0 {
		return tok, ea.SizeNone
	}
	switch strings.ToUpper(tok[i+1:]) {
	case "B":
		return tok[:i], ea.SizeByte
	case "W":
		return tok[:i], ea.SizeWord
	case "L":
		return tok[:i], ea.SizeLong
	case "S":
		return tok[:i], ea.SizeByte // Bcc.S / short-branch marker
	}
	return tok, ea.SizeNone
}

// splitOperands splits a comma-separated operand list, respecting
// parenthesis nesting so "(d8,An,Xn)" isn't split on its internal commas.
func splitOperands(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// parseOp parses one operand against the current PC. A label that is not
// yet defined comes back in the result's Fixup and Symbol fields; parseOp
// itself records no fixup.
func (a *Assembler) parseOp(text string, size ea.Size) (ea.Parsed, error) {
	p, err := ea.Parse(text, size, a.pc, a)
	if err != nil {
		return ea.Parsed{}, err
	}
	return p, nil
}

func (a *Assembler) emit(word uint16) uint32 {
	addr := a.pc
	_ = a.mem.WriteWord(addr, word)
	a.pc += 2
	return addr
}

// emitExt writes an operand's extension words. A resolved operand carries
// them ready-made in p.ExtWords; an operand that referenced an undefined
// label instead carries a pending p.Fixup and no words at all, so the
// right number of zero placeholders has to be synthesized here -- one for
// FixupWord/FixupPCWord, two for FixupLong's high/low halves.
func (a *Assembler) emitExt(p ea.Parsed) {
	if p.Fixup != ea.FixupNone {
		addr := a.emit(0)
		a.fixups = append(a.fixups, fixup{addr: addr, pc: addr, kind: p.Fixup, symbol: p.Symbol})
		if p.Fixup == ea.FixupLong {
			a.emit(0)
		}
		return
	}
	for _, w := range p.ExtWords {
		a.emit(w)
	}
}

func (a *Assembler) resolveFixups() error {
	var undefined []string
	for _, f := range a.fixups {
		v, ok := a.symbols[strings.ToUpper(f.symbol)]
		if !ok {
			undefined = append(undefined, f.symbol)
			continue
		}
		switch f.kind {
		case ea.FixupWord:
			_ = a.mem.WriteWord(f.addr, uint16(v))
		case ea.FixupLong:
			_ = a.mem.WriteWord(f.addr, uint16(v>>16))
			_ = a.mem.WriteWord(f.addr+2, uint16(v))
		case ea.FixupPCWord:
			disp := int32(v) - int32(f.pc)
			_ = a.mem.WriteWord(f.addr, uint16(int16(disp)))
		}
	}
	if len(undefined) > 0 {
		return fmt.Errorf("undefined symbols: %s", strings.Join(undefined, ", "))
	}
	return nil
}

func parseNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "$"):
		var u uint64
		u, err = strconv.ParseUint(s[1:], 16, 64)
		v = int64(u)
	case strings.HasPrefix(s, "#$"):
		var u uint64
		u, err = strconv.ParseUint(s[2:], 16, 64)
		v = int64(u)
	default:
		v, err = strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}
