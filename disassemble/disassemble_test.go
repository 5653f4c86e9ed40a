package disassemble

import (
	"strings"
	"testing"
)

// wordMem serves words as memory starting at base.
func wordMem(base uint32, words ...uint16) WordReader {
	return func(addr uint32) (uint16, error) {
		idx := (addr - base) / 2
		if addr < base || int(idx) >= len(words) {
			return 0, nil
		}
		return words[idx], nil
	}
}

func TestMoveq(t *testing.T) {
	l, err := One(0x1000, wordMem(0x1000, 0x70FE)) // MOVEQ #-2,D0
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(l.Text, "MOVEQ") || !strings.Contains(l.Text, "#-2") {
		t.Fatalf("got %q", l.Text)
	}
	if l.Length != 1 {
		t.Fatalf("length = %d, want 1", l.Length)
	}
}

func TestIllegalSentinel(t *testing.T) {
	l, err := One(0x2000, wordMem(0x2000, 0x4AFC))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(l.Text, "ILLEGAL") {
		t.Fatalf("got %q", l.Text)
	}
}

func TestBranchTarget(t *testing.T) {
	// BRA.S +4 at address 0x1000 -> target 0x1006 (instr+2+disp).
	l, err := One(0x1000, wordMem(0x1000, 0x6004))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(l.Text, "$001006") {
		t.Fatalf("got %q", l.Text)
	}
}

func TestAbsoluteLong(t *testing.T) {
	// MOVE.L $12345678,D0 -> $2039 $1234 $5678
	l, err := One(0x3000, wordMem(0x3000, 0x2039, 0x1234, 0x5678))
	if err != nil {
		t.Fatal(err)
	}
	if l.Length != 3 {
		t.Fatalf("length = %d, want 3", l.Length)
	}
	if !strings.Contains(l.Text, "$12345678") {
		t.Fatalf("got %q", l.Text)
	}
}

func TestFormat(t *testing.T) {
	l, _ := One(0x400, wordMem(0x400, 0x4E71)) // NOP
	s := Format(l)
	if !strings.HasPrefix(s, "000400") {
		t.Fatalf("got %q", s)
	}
	if !strings.Contains(s, "NOP") {
		t.Fatalf("got %q", s)
	}
}
