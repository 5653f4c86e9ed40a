/*
 * m68kemu - Memory bus
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

// Package memory is the 24-bit flat address space the CPU, autoconfig bus
// and expansion board all read and write through. The 68000 bus is byte
// addressed and must route ranges to independently owned handlers -- RAM
// is just the handler of last resort.
package memory

import (
	"fmt"

	"github.com/rcornwell/m68kemu/ea"
	"github.com/rcornwell/m68kemu/snapshot"
)

const (
	// AddrMask restricts every address to the 68000/Zorro-II 24-bit bus.
	AddrMask = 0x00FFFFFF
	pageBits = 16
	pageSize = 1 << pageBits
	numPages = (AddrMask + 1) / pageSize
)

// Handler is implemented by any device registered over an address range.
// Addresses passed in are relative to the handler's own base, per
// devices see addresses relative to their own base, not the bus's.
type Handler interface {
	Reset()
	ReadByte(offset uint32) (uint8, error)
	ReadWord(offset uint32) (uint16, error)
	WriteByte(offset uint32, v uint8) error
	WriteWord(offset uint32, v uint16) error
	snapshot.Handler
}

// BusError is raised when an access falls outside RAM and outside every
// registered handler's range.
type BusError struct{ Addr uint32 }

func (e *BusError) Error() string { return fmt.Sprintf("bus error at $%06x", e.Addr) }

type pageEntry struct {
	h    Handler
	base uint32
}

// Bus is the flat address space. It satisfies ea.Mem so it can be handed
// directly to the CPU interpreter and to ea.Decode.
type Bus struct {
	ram      []byte
	ramSize  uint32
	pages    [numPages]*pageEntry
}

// New creates a Bus with ramSize bytes of default RAM below the
// configured ceiling (default RAM below a configured ceiling).
func New(ramSize uint32) *Bus {
	if ramSize > AddrMask+1 {
		ramSize = AddrMask + 1
	}
	return &Bus{ram: make([]byte, ramSize), ramSize: ramSize}
}

// RegisterHandler maps [base, base+size) to h. Registration works at 64KB
// page granularity, matching the Zorro-II autoconfig board-size grain;
// overlap with an existing registration is rejected.
func (b *Bus) RegisterHandler(h Handler, base, size uint32) error {
	if size == 0 {
		return fmt.Errorf("memory: zero-size registration at $%06x", base)
	}
	first := (base & AddrMask) >> pageBits
	last := ((base + size - 1) & AddrMask) >> pageBits
	for p := first; p <= last; p++ {
		if b.pages[p] != nil {
			return fmt.Errorf("memory: page %d ($%06x) already owned, cannot register handler at $%06x", p, p*pageSize, base)
		}
	}
	entry := &pageEntry{h: h, base: base}
	for p := first; p <= last; p++ {
		b.pages[p] = entry
	}
	return nil
}

func (b *Bus) lookup(addr uint32) (*pageEntry, uint32) {
	addr &= AddrMask
	p := b.pages[addr>>pageBits]
	if p == nil {
		return nil, addr
	}
	return p, addr - p.base
}

func (b *Bus) ReadByte(addr uint32) (uint8, error) {
	addr &= AddrMask
	if p, off := b.lookup(addr); p != nil {
		return p.h.ReadByte(off)
	}
	if addr < b.ramSize {
		return b.ram[addr], nil
	}
	return 0, &BusError{Addr: addr}
}

func (b *Bus) WriteByte(addr uint32, v uint8) error {
	addr &= AddrMask
	if p, off := b.lookup(addr); p != nil {
		return p.h.WriteByte(off, v)
	}
	if addr < b.ramSize {
		b.ram[addr] = v
		return nil
	}
	return &BusError{Addr: addr}
}

func (b *Bus) ReadWord(addr uint32) (uint16, error) {
	if addr&1 != 0 {
		return 0, &ea.AddressError{Addr: addr}
	}
	a := addr & AddrMask
	if p, off := b.lookup(a); p != nil {
		return p.h.ReadWord(off)
	}
	if a+1 < b.ramSize {
		return uint16(b.ram[a])<<8 | uint16(b.ram[a+1]), nil
	}
	return 0, &BusError{Addr: a}
}

func (b *Bus) WriteWord(addr uint32, v uint16) error {
	if addr&1 != 0 {
		return &ea.AddressError{Addr: addr, Write: true}
	}
	a := addr & AddrMask
	if p, off := b.lookup(a); p != nil {
		return p.h.WriteWord(off, v)
	}
	if a+1 < b.ramSize {
		b.ram[a] = uint8(v >> 8)
		b.ram[a+1] = uint8(v)
		return nil
	}
	return &BusError{Addr: a}
}

// ReadLong/WriteLong are composed from two word accesses -- handlers only
// need to implement byte/word, and
// the 68000 bus itself never does a native 32-bit transfer in one cycle.
func (b *Bus) ReadLong(addr uint32) (uint32, error) {
	hi, err := b.ReadWord(addr)
	if err != nil {
		return 0, err
	}
	lo, err := b.ReadWord(addr + 2)
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

func (b *Bus) WriteLong(addr uint32, v uint32) error {
	if err := b.WriteWord(addr, uint16(v>>16)); err != nil {
		return err
	}
	return b.WriteWord(addr+2, uint16(v))
}

// Reset clears RAM and resets every registered handler.
func (b *Bus) Reset() {
	for i := range b.ram {
		b.ram[i] = 0
	}
	seen := map[Handler]bool{}
	for _, p := range b.pages {
		if p != nil && !seen[p.h] {
			seen[p.h] = true
			p.h.Reset()
		}
	}
}

// RAM exposes the backing array for bulk loads (hunk loader, disk-image
// bootstrap) and for the conformance harness, which builds a CPU over "a
// small RAM."
func (b *Bus) RAM() []byte { return b.ram }

func (b *Bus) Save(w *snapshot.Writer) {
	w.OpenScope("memory.bus", 1)
	w.Blob(b.ram)
	seen := map[Handler]bool{}
	var handlers []Handler
	for _, p := range b.pages {
		if p != nil && !seen[p.h] {
			seen[p.h] = true
			handlers = append(handlers, p.h)
		}
	}
	w.U32(uint32(len(handlers)))
	for _, h := range handlers {
		h.Save(w)
	}
	w.CloseScope()
}

func (b *Bus) Load(r *snapshot.Reader) error {
	if err := r.OpenScope("memory.bus", 1); err != nil {
		return err
	}
	blob, err := r.Blob()
	if err != nil {
		return err
	}
	copy(b.ram, blob)
	n, err := r.U32()
	if err != nil {
		return err
	}
	seen := map[Handler]bool{}
	var handlers []Handler
	for _, p := range b.pages {
		if p != nil && !seen[p.h] {
			seen[p.h] = true
			handlers = append(handlers, p.h)
		}
	}
	if int(n) != len(handlers) {
		return fmt.Errorf("memory: snapshot has %d handlers, bus has %d registered", n, len(handlers))
	}
	for _, h := range handlers {
		if err := h.Load(r); err != nil {
			return err
		}
	}
	return r.CloseScope()
}
