package expansion

import "github.com/rcornwell/m68kemu/snapshot"

// heap is a first-fit free-list allocator over the board's scratch RAM,
// the region above the command registers. Free blocks are a singly
// linked list of {next, size} headers threaded directly through the
// backing bytes, exactly like the board's own local-RAM allocator.
type heap struct {
	base uint32 // guest offset the backing slice starts at
	mem  []byte
	free uint32 // offset, relative to base, of the first free block; listEnd if empty
}

const listEnd = 0xFFFFFFFF
const heapAlignment = 8

func newHeap(base, boardSize uint32) *heap {
	h := &heap{base: base, mem: make([]byte, boardSize-base)}
	h.reset()
	return h
}

func (h *heap) reset() {
	for i := range h.mem {
		h.mem[i] = 0
	}
	h.free = 0
	putU32(h.mem, 0, listEnd)
	putU32(h.mem, 4, uint32(len(h.mem)))
}

func putU32(b []byte, off, v uint32) {
	b[off] = byte(v >> 24)
	b[off+1] = byte(v >> 16)
	b[off+2] = byte(v >> 8)
	b[off+3] = byte(v)
}

func getU32(b []byte, off uint32) uint32 {
	return uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])
}

// alloc returns a guest offset (relative to the board base) for size
// zeroed bytes, or 0 if the heap has no block large enough.
func (h *heap) alloc(size uint32) uint32 {
	size = (size + heapAlignment - 1) &^ (heapAlignment - 1)

	p := h.free
	for p < uint32(len(h.mem)) {
		next := getU32(h.mem, p)
		blockSize := getU32(h.mem, p+4)
		if blockSize < size {
			p = next
			continue
		}
		rem := blockSize - size
		if rem > 0 {
			putU32(h.mem, p+size, next)
			putU32(h.mem, p+size+4, rem)
			if p == h.free {
				h.free = p + size
			}
		} else if p == h.free {
			h.free = next
		}
		for i := uint32(0); i < size; i++ {
			h.mem[p+i] = 0
		}
		return h.base + p
	}
	return 0
}

func (h *heap) readByte(offset uint32) uint8 {
	off := offset - h.base
	if off >= uint32(len(h.mem)) {
		return 0
	}
	return h.mem[off]
}

func (h *heap) writeByte(offset uint32, v uint8) {
	off := offset - h.base
	if off < uint32(len(h.mem)) {
		h.mem[off] = v
	}
}

func (h *heap) writeString(offset uint32, s string) {
	for i := 0; i < len(s); i++ {
		h.writeByte(offset+uint32(i), s[i])
	}
	h.writeByte(offset+uint32(len(s)), 0)
}

// allocPString allocates a BCPL-style length-prefixed string (length
// byte then bytes, no terminator) and returns its guest offset.
func (h *heap) allocPString(s string) uint32 {
	if len(s) > 255 {
		s = s[:255]
	}
	addr := h.alloc(uint32(len(s)) + 1)
	if addr == 0 {
		return 0
	}
	h.writeByte(addr, uint8(len(s)))
	for i := 0; i < len(s); i++ {
		h.writeByte(addr+1+uint32(i), s[i])
	}
	return addr
}

func (h *heap) save(w *snapshot.Writer) {
	w.U32(h.free)
	w.VecU8(h.mem)
}

func (h *heap) load(r *snapshot.Reader) error {
	free, err := r.U32()
	if err != nil {
		return err
	}
	mem, err := r.VecU8()
	if err != nil {
		return err
	}
	h.free = free
	h.mem = mem
	return nil
}
