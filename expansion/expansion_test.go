package expansion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/m68kemu/memory"
)

func newTestBoard(t *testing.T, diskPaths ...string) (*Board, *memory.Bus, uint32) {
	t.Helper()
	mem := memory.New(1 << 20)
	board, dev, err := New(mem, nil, diskPaths, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base := uint32(0x200000)
	if err := mem.RegisterHandler(board, base, boardSize); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}
	_ = dev
	return board, mem, base
}

func TestROMReadsRTSStub(t *testing.T) {
	_, mem, base := newTestBoard(t)
	v, err := mem.ReadWord(base + romOffset)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if v != 0x4E75 {
		t.Fatalf("rom word = $%04x, want $4e75", v)
	}
}

func TestPtrHoldStagingAndDispatch(t *testing.T) {
	board, mem, base := newTestBoard(t)
	special := base + board.specialOffset

	if err := mem.WriteWord(special, 0x0012); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteWord(special+2, 0x3400); err != nil {
		t.Fatal(err)
	}
	if board.ptrHold != 0x00123400 {
		t.Fatalf("ptrHold after staging = $%x, want $123400", board.ptrHold)
	}

	if err := mem.WriteWord(special+4, 0xDEAD); err != nil {
		t.Fatal(err)
	}
	if board.ptrHold != 0 {
		t.Fatalf("ptrHold should be cleared after an unknown command dispatch, got $%x", board.ptrHold)
	}
}

func TestRegisterWordReads(t *testing.T) {
	board, mem, base := newTestBoard(t)
	special := base + board.specialOffset

	v, _ := mem.ReadWord(special)
	if v != uint16(len(board.partitions)) {
		t.Fatalf("partition count = %d, want %d", v, len(board.partitions))
	}
	v, _ = mem.ReadWord(special + 4)
	if v != 0 {
		t.Fatalf("autoboot-disable flag = %d, want 0", v)
	}
}

func TestHeapAllocAndReadBack(t *testing.T) {
	h := newHeap(0x1000, boardSize)
	a := h.alloc(16)
	if a == 0 {
		t.Fatal("alloc failed")
	}
	b := h.alloc(32)
	if b == 0 || b == a {
		t.Fatalf("second alloc returned %#x, first was %#x", b, a)
	}
	h.writeByte(a, 0xAB)
	if got := h.readByte(a); got != 0xAB {
		t.Fatalf("readByte = %#x, want 0xab", got)
	}
}

func TestHeapAllocPString(t *testing.T) {
	h := newHeap(0x1000, boardSize)
	addr := h.allocPString("DH0")
	if addr == 0 {
		t.Fatal("allocPString failed")
	}
	if h.readByte(addr) != 3 {
		t.Fatalf("length byte = %d, want 3", h.readByte(addr))
	}
	if h.readByte(addr+1) != 'D' {
		t.Fatalf("first char = %c, want D", h.readByte(addr+1))
	}
}

// makePlainHDF builds a disk image with no Rigid Disk Block, so openDisk
// falls back to a single synthetic partition covering the whole file.
func makePlainHDF(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.hdf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func TestDiskReadWriteRoundTrip(t *testing.T) {
	path := makePlainHDF(t, 2*1024*1024)
	board, mem, base := newTestBoard(t, path)

	if len(board.partitions) != 1 {
		t.Fatalf("partitions = %d, want 1", len(board.partitions))
	}

	const (
		ioPacket  = 0x1000
		unitBlock = 0x1100
		dataBlock = 0x2000
	)
	writeU32Mem(mem, unitBlock+devunitUnitNum, 0)
	writeU32Mem(mem, ioPacket+ioUnit, unitBlock)
	mem.WriteWord(ioPacket+ioCommand, cmdWrite)
	writeU32Mem(mem, ioPacket+ioLength, sectorSize)
	writeU32Mem(mem, ioPacket+ioData, dataBlock)
	writeU32Mem(mem, ioPacket+ioOffset, 0)

	pattern := []byte("the quick brown fox jumps over the lazy dog....")
	for i, c := range pattern {
		mem.WriteByte(dataBlock+uint32(i), c)
	}

	special := base + board.specialOffset
	mem.WriteWord(special, uint16(ioPacket>>16))
	mem.WriteWord(special+2, uint16(ioPacket))
	mem.WriteWord(special+4, cmdDoIO)

	errByte, _ := mem.ReadByte(ioPacket + ioError)
	if errByte != 0 {
		t.Fatalf("write IORequest error = %d", errByte)
	}

	mem.WriteWord(ioPacket+ioCommand, cmdRead)
	writeU32Mem(mem, ioPacket+ioData, dataBlock+sectorSize)
	mem.WriteWord(special, uint16(ioPacket>>16))
	mem.WriteWord(special+2, uint16(ioPacket))
	mem.WriteWord(special+4, cmdDoIO)

	errByte, _ = mem.ReadByte(ioPacket + ioError)
	if errByte != 0 {
		t.Fatalf("read IORequest error = %d", errByte)
	}
	for i := range pattern {
		got, _ := mem.ReadByte(dataBlock + sectorSize + uint32(i))
		if got != pattern[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got, pattern[i])
		}
	}
}

func writeU32Mem(mem *memory.Bus, addr uint32, v uint32) {
	mem.WriteWord(addr, uint16(v>>16))
	mem.WriteWord(addr+2, uint16(v))
}
