/*
 * m68kemu - Autoconfig bus
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

// Package autoconfig is the Zorro-II enumeration port at $E80000: a
// serialized queue of boards waiting for the guest to assign them a base
// address, one at a time, in last-added-first-served order.
package autoconfig

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/m68kemu/memory"
	"github.com/rcornwell/m68kemu/snapshot"
)

const (
	windowBase = 0xE80000
	windowSize = 0x10000

	ertZorroII        = 0xC0
	ErtfMemList       = 1 << 5
	ErtfDiagValid     = 1 << 4
	ErtfChainedConfig = 1 << 3
)

// Config is the board identity a Device presents during enumeration. It
// is encoded into the 12-byte Zorro-II autoconfig record the guest reads
// one nibble at a time.
type Config struct {
	Type            uint8
	Size            uint32
	ProductNumber   uint8
	HWManufacturer  uint16
	SerialNo        uint32
	ROMVectorOffset uint16
}

// boardSize maps a board's byte size to the 3-bit Zorro-II size field;
// 8MB encodes as 0 rather than continuing the binary sequence, a
// Zorro-II oddity carried through unchanged.
func boardSize(size uint32) (uint8, error) {
	switch size {
	case 64 << 10:
		return 0b001, nil
	case 128 << 10:
		return 0b010, nil
	case 256 << 10:
		return 0b011, nil
	case 512 << 10:
		return 0b100, nil
	case 1 << 20:
		return 0b101, nil
	case 2 << 20:
		return 0b110, nil
	case 4 << 20:
		return 0b111, nil
	case 8 << 20:
		return 0b000, nil
	default:
		return 0, fmt.Errorf("autoconfig: unsupported board size $%x", size)
	}
}

func encodeConfig(c Config) ([12]byte, error) {
	var d [12]byte
	sz, err := boardSize(c.Size)
	if err != nil {
		return d, err
	}
	d[0] = ertZorroII | c.Type | sz
	d[1] = c.ProductNumber
	d[4] = uint8(c.HWManufacturer >> 8)
	d[5] = uint8(c.HWManufacturer)
	d[6] = uint8(c.SerialNo >> 24)
	d[7] = uint8(c.SerialNo >> 16)
	d[8] = uint8(c.SerialNo >> 8)
	d[9] = uint8(c.SerialNo)
	d[10] = uint8(c.ROMVectorOffset >> 8)
	d[11] = uint8(c.ROMVectorOffset)
	return d, nil
}

// Device is one board awaiting, or holding, a Zorro-II bus assignment.
type Device struct {
	Name       string
	config     [12]byte
	size       uint32
	handler    memory.Handler
	onActivate func(base uint32)
}

// NewDevice builds a Device from its board identity and the handler it
// registers with the memory bus once activated. onActivate may be nil;
// when set, it is called with the board's assigned base address right
// after registration succeeds -- real Zorro-II hardware latches this
// same page value into its own address comparator so it recognizes bus
// cycles meant for it, and a board whose command protocol hands the
// guest pointers into its own window (not just offsets relative to
// itself) needs that base to build them.
func NewDevice(name string, cfg Config, handler memory.Handler, onActivate func(base uint32)) (*Device, error) {
	d, err := encodeConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Device{Name: name, config: d, size: cfg.Size, handler: handler, onActivate: onActivate}, nil
}

// Bus implements the enumeration window itself: a byte/word-addressable
// memory.Handler occupying $E80000..$E90000. Only the top of the queue is
// ever visible to the guest; activating or shutting it up pops it and
// exposes whatever device (if any) is queued beneath it.
type Bus struct {
	mem         *memory.Bus
	queue       []*Device
	lowAddrHold uint8
	hasLowAddr  bool
	log         *slog.Logger
}

// New registers the autoconfig window on mem and returns the Bus devices
// are added to.
func New(mem *memory.Bus, log *slog.Logger) (*Bus, error) {
	b := &Bus{mem: mem, log: log}
	if err := mem.RegisterHandler(b, windowBase, windowSize); err != nil {
		return nil, err
	}
	return b, nil
}

// Add queues dev for configuration. The queue is a stack by construction:
// the most recently added device is the one the guest's enumeration loop
// sees first, matching the real Zorro-II chained-config walk.
func (b *Bus) Add(dev *Device) {
	b.queue = append(b.queue, dev)
}

func (b *Bus) top() *Device {
	if len(b.queue) == 0 {
		return nil
	}
	return b.queue[len(b.queue)-1]
}

func (b *Bus) pop() {
	b.queue = b.queue[:len(b.queue)-1]
	b.hasLowAddr = false
}

func (b *Bus) Reset() {}

// ReadByte serves one nibble of the top device's config block. Every
// config byte except the very first (the Zorro-II type byte at offset
// $00/$02) reads back inverted, the convention real Zorro-II boards use
// so an empty socket (all ones on the bus) decodes as a harmless zero
// byte rather than a plausible-looking value.
func (b *Bus) ReadByte(offset uint32) (uint8, error) {
	if offset&1 != 0 {
		return 0xFF, nil
	}
	switch {
	case offset < 0x30:
		dev := b.top()
		if dev == nil {
			return 0xFF, nil
		}
		v := dev.config[offset>>2]
		if offset&2 != 0 {
			v <<= 4
		} else {
			v &= 0xF0
		}
		if offset < 4 {
			return v, nil
		}
		return ^v, nil
	case offset < 0x40:
		return 0xFF, nil
	case offset == 0x40 || offset == 0x42:
		return 0, nil // interrupt-pending stub, never inverted
	}
	return 0xFF, nil
}

func (b *Bus) ReadWord(offset uint32) (uint16, error) {
	hi, _ := b.ReadByte(offset)
	lo, _ := b.ReadByte(offset + 1)
	return uint16(hi)<<8 | uint16(lo), nil
}

// WriteByte handles the three registers that drive the activation
// protocol; every other offset is a no-op. $4A's low nibble arrives
// before $48's, per the protocol's own ordering.
func (b *Bus) WriteByte(offset uint32, val uint8) error {
	dev := b.top()
	if dev == nil {
		return nil
	}
	switch offset {
	case 0x48:
		page := (val & 0xF0) | b.lowAddrHold
		b.pop()
		return b.activate(dev, page)
	case 0x4A:
		b.hasLowAddr = true
		b.lowAddrHold = val >> 4
		return nil
	case 0x4C:
		if b.log != nil {
			b.log.Info("autoconfig: device shutting up", "name", dev.Name)
		}
		b.pop()
		return nil
	}
	return nil
}

// WriteWord is a no-op: the guest's ROM configures devices with byte
// writes, one register at a time, never a word write to this window.
func (b *Bus) WriteWord(offset uint32, val uint16) error { return nil }

func (b *Bus) activate(dev *Device, page uint8) error {
	base := uint32(page) << 16
	if b.log != nil {
		b.log.Info("autoconfig: activating device", "name", dev.Name, "base", fmt.Sprintf("$%06x", base))
	}
	if err := b.mem.RegisterHandler(dev.handler, base, dev.size); err != nil {
		return err
	}
	if dev.onActivate != nil {
		dev.onActivate(base)
	}
	return nil
}

func (b *Bus) Save(w *snapshot.Writer) {
	w.OpenScope("autoconfig.bus", 1)
	w.U8(b.lowAddrHold)
	w.Bool(b.hasLowAddr)
	w.U32(uint32(len(b.queue)))
	for _, d := range b.queue {
		w.String(d.Name)
	}
	w.CloseScope()
}

// Load restores queue depth and the staged address-hold state. Devices
// themselves are re-added by the caller during boot before Load runs, so
// this only needs to trim the queue back to its saved length -- the
// names are recorded purely for a mismatch diagnostic.
func (b *Bus) Load(r *snapshot.Reader) error {
	if err := r.OpenScope("autoconfig.bus", 1); err != nil {
		return err
	}
	hold, err := r.U8()
	if err != nil {
		return err
	}
	has, err := r.Bool()
	if err != nil {
		return err
	}
	n, err := r.U32()
	if err != nil {
		return err
	}
	names := make([]string, n)
	for i := range names {
		names[i], err = r.String()
		if err != nil {
			return err
		}
	}
	if err := r.CloseScope(); err != nil {
		return err
	}
	if int(n) > len(b.queue) {
		return fmt.Errorf("autoconfig: snapshot queue depth %d exceeds %d registered devices", n, len(b.queue))
	}
	b.queue = b.queue[:n]
	for i, name := range names {
		if b.queue[i].Name != name {
			return fmt.Errorf("autoconfig: snapshot queue[%d] = %q, registered device is %q", i, name, b.queue[i].Name)
		}
	}
	b.lowAddrHold = hold
	b.hasLowAddr = has
	return nil
}
