/*
 * m68kemu - Effective-address text rendering tests
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

func wordFeed(words ...uint16) func() uint16 {
	i := 0
	return func() uint16 {
		w := words[i]
		i++
		return w
	}
}

func TestRenderRegisterDirect(t *testing.T) {
	if got := Render(NewNormal(ModeDn, 4), SizeLong, &RenderCtx{}); got != "D4" {
		t.Fatalf("got %q", got)
	}
	if got := Render(NewNormal(ModeAn, 7), SizeLong, &RenderCtx{}); got != "A7" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderIndirectForms(t *testing.T) {
	ctx := &RenderCtx{}
	if got := Render(NewNormal(ModeAInd, 2), SizeWord, ctx); got != "(A2)" {
		t.Fatalf("got %q", got)
	}
	if got := Render(NewNormal(ModeAIndPost, 3), SizeWord, ctx); got != "(A3)+" {
		t.Fatalf("got %q", got)
	}
	if got := Render(NewNormal(ModeAIndPre, 5), SizeWord, ctx); got != "-(A5)" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderDisplacementConsumesExtWord(t *testing.T) {
	ctx := &RenderCtx{NextWord: wordFeed(0xFFFC)} // -4
	got := Render(NewNormal(ModeAIndDisp16, 1), SizeWord, ctx)
	if got != "(-4,A1)" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderImmediateWordAndLong(t *testing.T) {
	ctx := &RenderCtx{NextWord: wordFeed(0x1234)}
	if got := Render(NewNormal(ModeOther, OtherImm), SizeWord, ctx); got != "#$1234" {
		t.Fatalf("got %q", got)
	}
	ctx = &RenderCtx{NextWord: wordFeed(0x0012, 0x3456)}
	if got := Render(NewNormal(ModeOther, OtherImm), SizeLong, ctx); got != "#$00123456" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderAbsoluteWordAndLong(t *testing.T) {
	ctx := &RenderCtx{NextWord: wordFeed(0xABCD)}
	if got := Render(NewNormal(ModeOther, OtherAbsW), SizeWord, ctx); got != "$abcd.W" {
		t.Fatalf("got %q", got)
	}
	ctx = &RenderCtx{NextWord: wordFeed(0x0001, 0x0002)}
	if got := Render(NewNormal(ModeOther, OtherAbsL), SizeLong, ctx); got != "$00010002.L" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderPCRelativeUsesExtWordAddress(t *testing.T) {
	ctx := &RenderCtx{NextWord: wordFeed(uint16(int16(10))), Addr: 0x1000}
	got := Render(NewNormal(ModeOther, OtherPCDisp), SizeWord, ctx)
	if got != "$00100a(PC)" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderSyntheticSRCCRUSP(t *testing.T) {
	ctx := &RenderCtx{}
	if got := Render(DescSR, SizeNone, ctx); got != "SR" {
		t.Fatalf("got %q", got)
	}
	if got := Render(DescCCR, SizeNone, ctx); got != "CCR" {
		t.Fatalf("got %q", got)
	}
	if got := Render(DescUSP, SizeNone, ctx); got != "USP" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderRegListPredecrementReversesBits(t *testing.T) {
	// forward order: bit0=D0 -> "D0"; predecrement order: bit0=A7 -> "A7"
	forward := renderRegList(0x0001, false)
	if forward != "D0" {
		t.Fatalf("forward: got %q", forward)
	}
	reversed := renderRegList(0x0001, true)
	if reversed != "A7" {
		t.Fatalf("reversed: got %q", reversed)
	}
}

func TestFormatBitRangesCollapsesRuns(t *testing.T) {
	var names [16]string
	for i := 0; i < 8; i++ {
		names[i] = regNames[i]
		names[8+i] = aregNames[i]
	}
	// D0-D3, D5, A0-A2
	word := uint16(0x000F | 0x0020 | 0x0700)
	got := formatBitRanges(word, names)
	want := "D0-D3/D5/A0-A2"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtWordsForTable(t *testing.T) {
	cases := []struct {
		d    Descriptor
		size Size
		want uint8
	}{
		{NewNormal(ModeDn, 0), SizeLong, 0},
		{NewNormal(ModeAIndDisp16, 0), SizeWord, 1},
		{NewNormal(ModeAIndIndex, 0), SizeWord, 1},
		{NewNormal(ModeOther, OtherAbsW), SizeWord, 1},
		{NewNormal(ModeOther, OtherAbsL), SizeLong, 2},
		{NewNormal(ModeOther, OtherImm), SizeByte, 1},
		{NewNormal(ModeOther, OtherImm), SizeLong, 2},
		{DescRegList, SizeNone, 1},
		{DescSR, SizeNone, 0},
	}
	for _, c := range cases {
		if got := ExtWordsFor(c.d, c.size); got != c.want {
			t.Fatalf("%+v size %v: got %d want %d", c.d, c.size, got, c.want)
		}
	}
}
