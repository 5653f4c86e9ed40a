/*
 * m68kemu - Memory bus tests
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

package memory

import (
	"testing"

	"github.com/rcornwell/m68kemu/snapshot"
)

func TestByteWordLongRoundTrip(t *testing.T) {
	b := New(64 * 1024)
	if err := b.WriteLong(0x100, 0x12345678); err != nil {
		t.Fatal(err)
	}
	v, err := b.ReadLong(0x100)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x12345678 {
		t.Fatalf("got %#x", v)
	}
	if lo, _ := b.ReadByte(0x103); lo != 0x78 {
		t.Fatalf("got %#x", lo)
	}
}

func TestOddWordAccessIsAddressError(t *testing.T) {
	b := New(64 * 1024)
	if _, err := b.ReadWord(0x101); err == nil {
		t.Fatal("expected address error")
	}
	if err := b.WriteWord(0x101, 0); err == nil {
		t.Fatal("expected address error")
	}
}

type registeredStub struct {
	data [16]byte
}

func (s *registeredStub) Reset() { s.data = [16]byte{} }
func (s *registeredStub) ReadByte(off uint32) (uint8, error) { return s.data[off], nil }
func (s *registeredStub) ReadWord(off uint32) (uint16, error) {
	return uint16(s.data[off])<<8 | uint16(s.data[off+1]), nil
}
func (s *registeredStub) WriteByte(off uint32, v uint8) error { s.data[off] = v; return nil }
func (s *registeredStub) WriteWord(off uint32, v uint16) error {
	s.data[off] = uint8(v >> 8)
	s.data[off+1] = uint8(v)
	return nil
}
func (s *registeredStub) Save(w *snapshot.Writer)        { w.Blob(s.data[:]) }
func (s *registeredStub) Load(r *snapshot.Reader) error {
	b, err := r.Blob()
	if err != nil {
		return err
	}
	copy(s.data[:], b)
	return nil
}

func TestRegisterHandlerRoutesAccess(t *testing.T) {
	b := New(64 * 1024)
	h := &registeredStub{}
	if err := b.RegisterHandler(h, 0xE80000, 0x10000); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteByte(0xE80004, 0x55); err != nil {
		t.Fatal(err)
	}
	if h.data[4] != 0x55 {
		t.Fatalf("handler did not see write: %+v", h.data)
	}
}

func TestOverlappingRegistrationRejected(t *testing.T) {
	b := New(64 * 1024)
	h1, h2 := &registeredStub{}, &registeredStub{}
	if err := b.RegisterHandler(h1, 0xE80000, 0x10000); err != nil {
		t.Fatal(err)
	}
	if err := b.RegisterHandler(h2, 0xE80000, 0x10000); err == nil {
		t.Fatal("expected overlap rejection")
	}
}

func TestUnmappedAboveRAMIsBusError(t *testing.T) {
	b := New(64 * 1024)
	if _, err := b.ReadByte(0x200000); err == nil {
		t.Fatal("expected bus error")
	}
}
