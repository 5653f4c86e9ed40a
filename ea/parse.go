/*
 * m68kemu - Effective-address text parsing
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

package ea

import (
	"fmt"
	"strconv"
	"strings"
)

// FixupKind tells the assembler's symbol table what width and encoding a
// patched value needs once a forward-referenced label is defined.
type FixupKind int

const (
	FixupNone  FixupKind = iota
	FixupWord            // absolute/displacement word, patched verbatim
	FixupLong            // absolute long, patched verbatim
	FixupPCWord          // word displacement relative to the extension word's own address
)

// Parsed is one parsed operand: a descriptor plus whatever extension-word
// payload it carries (already resolved, or pending a label fixup).
type Parsed struct {
	Desc       Descriptor
	ExtWords   []uint16 // resolved words, if Fixup == FixupNone
	Fixup      FixupKind
	Symbol     string // name to resolve later, if Fixup != FixupNone
}

// Resolver looks up a label's value; Parse calls it once per symbol
// reference and treats "not found" as a forward reference to be fixed up
// later by the assembler.
type Resolver interface {
	Lookup(name string) (uint32, bool)
}

// Parse parses one assembly-syntax operand (already isolated from its
// comma-separated neighbors by the caller's tokenizer) into a Descriptor
// plus its extension-word payload.
func Parse(text string, size Size, pc uint32, res Resolver) (Parsed, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Parsed{}, fmt.Errorf("ea: empty operand")
	}
	upper := strings.ToUpper(s)

	switch upper {
	case "SR":
		return Parsed{Desc: DescSR}, nil
	case "CCR":
		return Parsed{Desc: DescCCR}, nil
	case "USP":
		return Parsed{Desc: DescUSP}, nil
	}

	if reg, ok := parseDataReg(upper); ok {
		return Parsed{Desc: NewNormal(ModeDn, reg)}, nil
	}
	if reg, ok := parseAddrReg(upper); ok {
		return Parsed{Desc: NewNormal(ModeAn, reg)}, nil
	}

	if strings.HasPrefix(s, "#") {
		return parseImmediate(s[1:], size, pc, res)
	}
	if strings.HasPrefix(s, "-(") && strings.HasSuffix(s, ")") {
		reg, ok := parseAddrReg(strings.ToUpper(s[2 : len(s)-1]))
		if !ok {
			return Parsed{}, fmt.Errorf("ea: bad predecrement operand %q", s)
		}
		return Parsed{Desc: NewNormal(ModeAIndPre, reg)}, nil
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")+") {
		inner := strings.ToUpper(s[1 : len(s)-2])
		reg, ok := parseAddrReg(inner)
		if !ok {
			return Parsed{}, fmt.Errorf("ea: bad postincrement operand %q", s)
		}
		return Parsed{Desc: NewNormal(ModeAIndPost, reg)}, nil
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return parseParenGroup(s[1:len(s)-1], pc, res)
	}

	// Bare absolute address or label reference.
	return parseAbsolute(s, pc, res)
}

func parseDataReg(upper string) (uint8, bool) {
	if len(upper) == 2 && upper[0] == 'D' && upper[1] >= '0' && upper[1] <= '7' {
		return upper[1] - '0', true
	}
	return 0, false
}

func parseAddrReg(upper string) (uint8, bool) {
	if len(upper) == 2 && upper[0] == 'A' && upper[1] >= '0' && upper[1] <= '7' {
		return upper[1] - '0', true
	}
	if upper == "SP" {
		return 7, true
	}
	return 0, false
}

// parseParenGroup handles every "(...)" form: (An), (d16,An), (d8,An,Xn),
// (d16,PC), (d8,PC,Xn).
func parseParenGroup(inner string, pc uint32, res Resolver) (Parsed, error) {
	parts := splitTopComma(inner)
	switch len(parts) {
	case 1:
		upper := strings.ToUpper(strings.TrimSpace(parts[0]))
		if reg, ok := parseAddrReg(upper); ok {
			return Parsed{Desc: NewNormal(ModeAInd, reg)}, nil
		}
		return Parsed{}, fmt.Errorf("ea: bad indirect operand (%s)", inner)
	case 2:
		dispText, baseText := parts[0], strings.ToUpper(strings.TrimSpace(parts[1]))
		disp, sym, err := parseSignedValue(dispText, pc, res)
		if err != nil {
			return Parsed{}, err
		}
		if baseText == "PC" {
			if sym != "" {
				return Parsed{Desc: NewNormal(ModeOther, OtherPCDisp), Fixup: FixupPCWord, Symbol: sym}, nil
			}
			return Parsed{Desc: NewNormal(ModeOther, OtherPCDisp), ExtWords: []uint16{uint16(disp)}}, nil
		}
		if reg, ok := parseAddrReg(baseText); ok {
			if sym != "" {
				return Parsed{Desc: NewNormal(ModeAIndDisp16, reg), Fixup: FixupWord, Symbol: sym}, nil
			}
			return Parsed{Desc: NewNormal(ModeAIndDisp16, reg), ExtWords: []uint16{uint16(disp)}}, nil
		}
		return Parsed{}, fmt.Errorf("ea: bad displacement operand (%s)", inner)
	case 3:
		dispText := parts[0]
		baseText := strings.ToUpper(strings.TrimSpace(parts[1]))
		idxText := strings.ToUpper(strings.TrimSpace(parts[2]))
		disp, sym, err := parseSignedValue(dispText, pc, res)
		if err != nil {
			return Parsed{}, err
		}
		if sym != "" {
			return Parsed{}, fmt.Errorf("ea: forward reference not supported in indexed displacement (%s)", inner)
		}
		word, err := encodeIndexExt(idxText, int8(disp))
		if err != nil {
			return Parsed{}, err
		}
		if baseText == "PC" {
			return Parsed{Desc: NewNormal(ModeOther, OtherPCIndex), ExtWords: []uint16{word}}, nil
		}
		if reg, ok := parseAddrReg(baseText); ok {
			return Parsed{Desc: NewNormal(ModeAIndIndex, reg), ExtWords: []uint16{word}}, nil
		}
		return Parsed{}, fmt.Errorf("ea: bad indexed operand (%s)", inner)
	}
	return Parsed{}, fmt.Errorf("ea: bad operand group (%s)", inner)
}

func encodeIndexExt(idxText string, disp int8) (uint16, error) {
	longIndex := strings.HasSuffix(idxText, ".L")
	wordIndex := strings.HasSuffix(idxText, ".W")
	name := idxText
	if longIndex || wordIndex {
		name = idxText[:len(idxText)-2]
	}
	var reg uint8
	var isAddr bool
	if r, ok := parseDataReg(name); ok {
		reg = r
	} else if r, ok := parseAddrReg(name); ok {
		reg, isAddr = r, true
	} else {
		return 0, fmt.Errorf("ea: bad index register %q", idxText)
	}
	var w uint16
	if isAddr {
		w |= 0x8000
	}
	w |= uint16(reg) << 12
	if longIndex {
		w |= 0x0800
	}
	w |= uint16(uint8(disp))
	return w, nil
}

func parseImmediate(text string, size Size, pc uint32, res Resolver) (Parsed, error) {
	v, sym, err := parseSignedValue(text, pc, res)
	if err != nil {
		return Parsed{}, err
	}
	desc := NewNormal(ModeOther, OtherImm)
	if sym != "" {
		fk := FixupWord
		if size == SizeLong {
			fk = FixupLong
		}
		return Parsed{Desc: desc, Fixup: fk, Symbol: sym}, nil
	}
	if size == SizeLong {
		return Parsed{Desc: desc, ExtWords: []uint16{uint16(uint32(v) >> 16), uint16(v)}}, nil
	}
	return Parsed{Desc: desc, ExtWords: []uint16{uint16(v)}}, nil
}

func parseAbsolute(s string, pc uint32, res Resolver) (Parsed, error) {
	long := strings.HasSuffix(strings.ToUpper(s), ".L")
	short := strings.HasSuffix(strings.ToUpper(s), ".W")
	body := s
	if long || short {
		body = s[:len(s)-2]
	}
	v, sym, err := parseSignedValue(body, pc, res)
	if err != nil {
		return Parsed{}, err
	}
	if sym != "" {
		fk := FixupWord
		reg := OtherAbsW
		if long {
			fk, reg = FixupLong, OtherAbsL
		}
		return Parsed{Desc: NewNormal(ModeOther, reg), Fixup: fk, Symbol: sym}, nil
	}
	if long || uint32(v) > 0xFFFF {
		return Parsed{Desc: NewNormal(ModeOther, OtherAbsL), ExtWords: []uint16{uint16(uint32(v) >> 16), uint16(v)}}, nil
	}
	return Parsed{Desc: NewNormal(ModeOther, OtherAbsW), ExtWords: []uint16{uint16(v)}}, nil
}

// parseSignedValue parses a literal number ($hex or decimal) or, failing
// that, treats text as a label reference: resolved immediately through
// res if known, else returned as a pending symbol name (value 0).
func parseSignedValue(text string, pc uint32, res Resolver) (int64, string, error) {
	t := strings.TrimSpace(text)
	neg := false
	if strings.HasPrefix(t, "-") {
		neg = true
		t = t[1:]
	}
	var v int64
	var err error
	switch {
	case strings.HasPrefix(t, "$"):
		v, err = strconv.ParseInt(t[1:], 16, 64)
	case t != "" && (t[0] >= '0' && t[0] <= '9'):
		v, err = strconv.ParseInt(t, 10, 64)
	default:
		if t == "" {
			return 0, "", fmt.Errorf("ea: empty numeric/label operand")
		}
		if res != nil {
			if val, ok := res.Lookup(t); ok {
				if neg {
					return -int64(val), "", nil
				}
				return int64(val), "", nil
			}
		}
		return 0, t, nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("ea: bad number %q: %w", text, err)
	}
	if neg {
		v = -v
	}
	return v, "", nil
}

// splitTopComma splits s on commas that are not nested inside parens.
func splitTopComma(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
