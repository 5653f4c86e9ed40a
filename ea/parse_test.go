/*
 * m68kemu - Effective-address text parsing tests
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

import "testing"

type fakeResolver map[string]uint32

func (f fakeResolver) Lookup(name string) (uint32, bool) {
	v, ok := f[name]
	return v, ok
}

func TestParseRegisters(t *testing.T) {
	p, err := Parse("D3", SizeWord, 0, nil)
	if err != nil || p.Desc != NewNormal(ModeDn, 3) {
		t.Fatalf("D3: got %+v, err %v", p, err)
	}
	p, err = Parse("a5", SizeWord, 0, nil)
	if err != nil || p.Desc != NewNormal(ModeAn, 5) {
		t.Fatalf("a5: got %+v, err %v", p, err)
	}
	p, err = Parse("SP", SizeWord, 0, nil)
	if err != nil || p.Desc != NewNormal(ModeAn, 7) {
		t.Fatalf("SP: got %+v, err %v", p, err)
	}
}

func TestParseIndirectForms(t *testing.T) {
	cases := []struct {
		text string
		mode uint8
		reg  uint8
	}{
		{"(A0)", ModeAInd, 0},
		{"(A1)+", ModeAIndPost, 1},
		{"-(A7)", ModeAIndPre, 7},
	}
	for _, c := range cases {
		p, err := Parse(c.text, SizeWord, 0, nil)
		if err != nil {
			t.Fatalf("%s: %v", c.text, err)
		}
		if p.Desc != NewNormal(c.mode, c.reg) {
			t.Fatalf("%s: got %+v", c.text, p.Desc)
		}
	}
}

func TestParseDisplacementResolved(t *testing.T) {
	p, err := Parse("(4,A2)", SizeWord, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Desc != NewNormal(ModeAIndDisp16, 2) || p.Fixup != FixupNone {
		t.Fatalf("got %+v", p)
	}
	if len(p.ExtWords) != 1 || p.ExtWords[0] != 4 {
		t.Fatalf("ext words: %v", p.ExtWords)
	}
}

func TestParseDisplacementForwardLabel(t *testing.T) {
	p, err := Parse("(LOOP,A3)", SizeWord, 0, fakeResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Fixup != FixupWord || p.Symbol != "LOOP" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseImmediateByteAndLong(t *testing.T) {
	p, err := Parse("#$12", SizeByte, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Desc != NewNormal(ModeOther, OtherImm) || len(p.ExtWords) != 1 || p.ExtWords[0] != 0x12 {
		t.Fatalf("got %+v", p)
	}
	p, err = Parse("#$12345678", SizeLong, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.ExtWords) != 2 || p.ExtWords[0] != 0x1234 || p.ExtWords[1] != 0x5678 {
		t.Fatalf("got %+v", p)
	}
}

func TestParseImmediateForwardLabel(t *testing.T) {
	p, err := Parse("#TABLE", SizeLong, 0, fakeResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Fixup != FixupLong || p.Symbol != "TABLE" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseAbsoluteResolvedAndForward(t *testing.T) {
	res := fakeResolver{"START": 0x1000}
	p, err := Parse("START", SizeWord, 0, res)
	if err != nil {
		t.Fatal(err)
	}
	if p.Desc != NewNormal(ModeOther, OtherAbsW) || p.ExtWords[0] != 0x1000 {
		t.Fatalf("got %+v", p)
	}

	p, err = Parse("UNDEF", SizeWord, 0, fakeResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Fixup != FixupWord || p.Symbol != "UNDEF" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseAbsoluteLongLiteral(t *testing.T) {
	p, err := Parse("$00123456.L", SizeWord, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Desc != NewNormal(ModeOther, OtherAbsL) {
		t.Fatalf("got %+v", p)
	}
	if p.ExtWords[0] != 0x0012 || p.ExtWords[1] != 0x3456 {
		t.Fatalf("ext words: %v", p.ExtWords)
	}
}

func TestParseIndexedForm(t *testing.T) {
	p, err := Parse("(2,A4,D1.W)", SizeWord, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Desc != NewNormal(ModeAIndIndex, 4) {
		t.Fatalf("got %+v", p)
	}
	x := DecodeIndexExtWord(p.ExtWords[0])
	if x.IsAddrReg || x.Reg != 1 || x.LongIndex || x.Disp8 != 2 {
		t.Fatalf("index word: %+v", x)
	}
}

func TestParsePCRelative(t *testing.T) {
	p, err := Parse("(8,PC)", SizeWord, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Desc != NewNormal(ModeOther, OtherPCDisp) || p.ExtWords[0] != 8 {
		t.Fatalf("got %+v", p)
	}
}

func TestParseSRCCRUSP(t *testing.T) {
	for _, c := range []struct {
		text string
		want Descriptor
	}{{"SR", DescSR}, {"ccr", DescCCR}, {"USP", DescUSP}} {
		p, err := Parse(c.text, SizeWord, 0, nil)
		if err != nil || p.Desc != c.want {
			t.Fatalf("%s: got %+v, err %v", c.text, p, err)
		}
	}
}

func TestParseBadOperandErrors(t *testing.T) {
	if _, err := Parse("", SizeWord, 0, nil); err == nil {
		t.Fatal("expected error on empty operand")
	}
	if _, err := Parse("(A9)", SizeWord, 0, nil); err == nil {
		t.Fatal("expected error on bad register")
	}
}
