package assemble

import (
	"strings"
	"testing"

	"github.com/rcornwell/m68kemu/disassemble"
	"github.com/rcornwell/m68kemu/memory"
)

func TestMoveq(t *testing.T) {
	bus := memory.New(0x1000)
	a := New(bus, 0x400)
	if err := a.Assemble("MOVEQ #-2,D0"); err != nil {
		t.Fatal(err)
	}
	w, _ := bus.ReadWord(0x400)
	if w != 0x70FE {
		t.Fatalf("word = %#04x, want 0x70fe", w)
	}
}

func TestAddiLongToPredecrement(t *testing.T) {
	bus := memory.New(0x1000)
	a := New(bus, 0x400)
	if err := a.Assemble("ADDI.L #$12345678,-(A2)"); err != nil {
		t.Fatal(err)
	}
	w0, _ := bus.ReadWord(0x400)
	w1, _ := bus.ReadWord(0x402)
	w2, _ := bus.ReadWord(0x404)
	if w0 != 0x06A2 || w1 != 0x1234 || w2 != 0x5678 {
		t.Fatalf("words = %#04x %#04x %#04x", w0, w1, w2)
	}
}

// TestBranchShortForm checks that a backward reference -- already resolved
// by the time the branch is encoded -- picks the one-word short form when
// the displacement fits, rather than always falling back to the long form.
func TestBranchShortForm(t *testing.T) {
	bus := memory.New(0x2000)
	a := New(bus, 0x1000)
	if err := a.Assemble("START:\tNOP\n\tBRA START"); err != nil {
		t.Fatal(err)
	}
	w, _ := bus.ReadWord(0x1002)
	if w != 0x60FC {
		t.Fatalf("word = %#04x, want 0x60fc", w)
	}
}

func TestForwardReferenceFixup(t *testing.T) {
	bus := memory.New(0x2000)
	a := New(bus, 0x1000)
	src := "START:\tBRA.W FAR\n\tDS.W 200\nFAR:\tNOP"
	if err := a.Assemble(src); err != nil {
		t.Fatal(err)
	}
	w0, _ := bus.ReadWord(0x1000)
	w1, _ := bus.ReadWord(0x1002)
	if w0 != 0x6000 {
		t.Fatalf("opcode word = %#04x, want 0x6000", w0)
	}
	wantDisp := int16(0x1002 + 2 + 400 - 0x1002)
	if int16(w1) != wantDisp {
		t.Fatalf("displacement = %d, want %d", int16(w1), wantDisp)
	}
}

func TestUndefinedSymbolFails(t *testing.T) {
	bus := memory.New(0x1000)
	a := New(bus, 0x400)
	err := a.Assemble("BRA NOWHERE")
	if err == nil {
		t.Fatal("expected an error for an undefined symbol")
	}
	if !strings.Contains(err.Error(), "NOWHERE") {
		t.Fatalf("error %q does not name the undefined symbol", err)
	}
}

// TestRoundTrip assembles a short program, disassembles it back to text,
// then reassembles that text and checks the two encodings agree -- proving
// the encoder and decoder tables stay mirror images of each other.
func TestRoundTrip(t *testing.T) {
	programs := []string{
		"MOVE.L #$12345678,D0",
		"MOVEQ #-2,D0",
		"ADDI.L #$12345678,-(A2)",
		"CLR.W D3",
		"LEA $1000,A0",
	}
	for _, src := range programs {
		first := memory.New(0x1000)
		if err := New(first, 0x400).Assemble(src); err != nil {
			t.Fatalf("assemble %q: %v", src, err)
		}

		line, err := disassemble.One(0x400, first.ReadWord)
		if err != nil {
			t.Fatalf("disassemble %q: %v", src, err)
		}

		second := memory.New(0x1000)
		text := strings.Replace(line.Text, "\t", " ", 1)
		if err := New(second, 0x400).Assemble(text); err != nil {
			t.Fatalf("reassemble %q (from %q): %v", text, src, err)
		}

		for i := uint32(0); i < uint32(len(line.Words))*2; i += 2 {
			w1, _ := first.ReadWord(0x400 + i)
			w2, _ := second.ReadWord(0x400 + i)
			if w1 != w2 {
				t.Fatalf("round trip mismatch for %q -> %q: word at +%d = %#04x, want %#04x", src, text, i, w2, w1)
			}
		}
	}
}
