package autoconfig

import (
	"testing"

	"github.com/rcornwell/m68kemu/memory"
	"github.com/rcornwell/m68kemu/snapshot"
)

// fakeHandler satisfies memory.Handler with no real storage behind it --
// these tests only check that autoconfig registers it at the right base.
type fakeHandler struct{}

func (fakeHandler) Reset()                                  {}
func (fakeHandler) ReadByte(offset uint32) (uint8, error)   { return 0, nil }
func (fakeHandler) ReadWord(offset uint32) (uint16, error)  { return 0, nil }
func (fakeHandler) WriteByte(offset uint32, v uint8) error  { return nil }
func (fakeHandler) WriteWord(offset uint32, v uint16) error { return nil }
func (fakeHandler) Save(w *snapshot.Writer)                 {}
func (fakeHandler) Load(r *snapshot.Reader) error            { return nil }

func newTestDevice(t *testing.T, name string, size uint32) *Device {
	t.Helper()
	dev, err := NewDevice(name, Config{
		Type:            0,
		Size:            size,
		ProductNumber:   0x37,
		HWManufacturer:  0x07DB,
		SerialNo:        1,
		ROMVectorOffset: 0,
	}, fakeHandler{}, nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	return dev
}

func TestBoardSize(t *testing.T) {
	got, err := boardSize(64 << 10)
	if err != nil || got != 0b001 {
		t.Fatalf("boardSize(64K) = %v, %v", got, err)
	}
	got, err = boardSize(8 << 20)
	if err != nil || got != 0b000 {
		t.Fatalf("boardSize(8M) = %v, %v, want 0", got, err)
	}
	if _, err := boardSize(3 << 10); err == nil {
		t.Fatal("expected error for unsupported size")
	}
}

func TestConfigTypeByteUninverted(t *testing.T) {
	mem := memory.New(0x1000)
	bus, err := New(mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	dev := newTestDevice(t, "board", 64<<10)
	bus.Add(dev)

	// The type byte is served as two nibbles, high at $00 and low at $02,
	// neither of them inverted.
	hi, _ := bus.ReadByte(0x00)
	lo, _ := bus.ReadByte(0x02)
	v := hi | lo>>4
	want := uint8(ertZorroII | 0 | 0b001)
	if v != want {
		t.Fatalf("type byte = %#02x, want %#02x", v, want)
	}
}

func TestConfigBytesInverted(t *testing.T) {
	mem := memory.New(0x1000)
	bus, err := New(mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	dev := newTestDevice(t, "board", 64<<10)
	bus.Add(dev)

	// product number lives in config[1], read through offset $04/$06
	raw := dev.config[1] & 0xF0
	got, _ := bus.ReadByte(0x04)
	if got != ^raw {
		t.Fatalf("product hi nibble = %#02x, want %#02x", got, ^raw)
	}
}

func TestActivateAssignsPageAndPopsQueue(t *testing.T) {
	mem := memory.New(0x1000)
	bus, err := New(mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	dev := newTestDevice(t, "first", 64<<10)
	bus.Add(dev)

	if err := bus.WriteByte(0x4A, 0x30); err != nil { // low nibble = 3
		t.Fatal(err)
	}
	if err := bus.WriteByte(0x48, 0xC0); err != nil { // high nibble = C, trigger
		t.Fatal(err)
	}

	if len(bus.queue) != 0 {
		t.Fatalf("queue length after activate = %d, want 0", len(bus.queue))
	}

	wantBase := uint32(0xC3) << 16
	got, err := mem.ReadByte(wantBase)
	if err != nil {
		t.Fatalf("device not registered at %#06x: %v", wantBase, err)
	}
	_ = got
}

func TestShutupRemovesWithoutActivating(t *testing.T) {
	mem := memory.New(0x1000)
	bus, err := New(mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	bus.Add(newTestDevice(t, "only", 64<<10))

	if err := bus.WriteByte(0x4C, 0x00); err != nil {
		t.Fatal(err)
	}
	if len(bus.queue) != 0 {
		t.Fatalf("queue length after shutup = %d, want 0", len(bus.queue))
	}
}

func TestEmptyQueueReadsAllOnes(t *testing.T) {
	mem := memory.New(0x1000)
	bus, err := New(mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := bus.ReadByte(0x00)
	if v != 0xFF {
		t.Fatalf("empty-queue type byte = %#02x, want 0xff", v)
	}
}

func TestInterruptPendingStubReadsZeroUninverted(t *testing.T) {
	mem := memory.New(0x1000)
	bus, err := New(mem, nil)
	if err != nil {
		t.Fatal(err)
	}
	bus.Add(newTestDevice(t, "dev", 64<<10))
	v, _ := bus.ReadByte(0x40)
	if v != 0 {
		t.Fatalf("interrupt-pending byte = %#02x, want 0", v)
	}
}
