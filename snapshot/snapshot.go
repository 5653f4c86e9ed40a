/*
 * m68kemu - State snapshot
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

// Package snapshot implements a tagged, versioned, scoped save/load stream,
// modeled on original_source/state_file.cpp's marker format: every scope
// and every primitive value is preceded by a marker byte, so a corrupt or
// mismatched stream is detected immediately on load rather than silently
// misread.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Marker tags precede every value written to the stream, mirroring
// state_file.h's scope_start/scope_end/u8/.../vec_string constants. The
// original uses distinct numeric ranges per category (100s for scalars,
// 200/300/400/500 for blob/string/vector payloads); here every marker fits
// in one byte since the set is small and fixed.
const (
	mScopeStart byte = 0
	mScopeEnd   byte = 1
	mU8         byte = 10
	mU16        byte = 11
	mU32        byte = 12
	mBool       byte = 13
	mBlob       byte = 20
	mString     byte = 30
	mVecU8      byte = 40
	mVecString  byte = 50
)

// Writer accumulates a scoped, self-describing save stream.
type Writer struct {
	buf        bytes.Buffer
	sizePatch  []int // offsets of the 4-byte placeholder for each open scope
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) OpenScope(name string, version uint32) {
	w.buf.WriteByte(mScopeStart)
	writeString(&w.buf, name)
	_ = binary.Write(&w.buf, binary.LittleEndian, version)
	w.sizePatch = append(w.sizePatch, w.buf.Len())
	_ = binary.Write(&w.buf, binary.LittleEndian, uint32(0)) // placeholder
}

func (w *Writer) CloseScope() {
	n := len(w.sizePatch)
	off := w.sizePatch[n-1]
	w.sizePatch = w.sizePatch[:n-1]
	w.buf.WriteByte(mScopeEnd)
	size := uint32(w.buf.Len() - off - 4)
	b := w.buf.Bytes()
	binary.LittleEndian.PutUint32(b[off:off+4], size)
}

func (w *Writer) U8(v uint8)   { w.buf.WriteByte(mU8); w.buf.WriteByte(v) }
func (w *Writer) Bool(v bool) {
	w.buf.WriteByte(mBool)
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) U16(v uint16) {
	w.buf.WriteByte(mU16)
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *Writer) U32(v uint32) {
	w.buf.WriteByte(mU32)
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *Writer) Blob(v []byte) {
	w.buf.WriteByte(mBlob)
	_ = binary.Write(&w.buf, binary.LittleEndian, uint32(len(v)))
	w.buf.Write(v)
}

func (w *Writer) String(v string) {
	w.buf.WriteByte(mString)
	writeString(&w.buf, v)
}

func (w *Writer) VecU8(v []uint8) {
	w.buf.WriteByte(mVecU8)
	_ = binary.Write(&w.buf, binary.LittleEndian, uint32(len(v)))
	w.buf.Write(v)
}

func (w *Writer) VecString(v []string) {
	w.buf.WriteByte(mVecString)
	_ = binary.Write(&w.buf, binary.LittleEndian, uint32(len(v)))
	for _, s := range v {
		writeString(&w.buf, s)
	}
}

// Bytes returns the accumulated stream. All scopes must be closed first.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func writeString(buf *bytes.Buffer, s string) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

// Reader walks a stream produced by Writer, failing loudly the instant a
// marker or scope name/version doesn't match what the caller expects.
type Reader struct {
	b   []byte
	pos int
}

func NewReader(b []byte) *Reader { return &Reader{b: b} }

func (r *Reader) readByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("snapshot: truncated stream at offset %d", r.pos)
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) expect(want byte) error {
	got, err := r.readByte()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("snapshot: marker mismatch at offset %d: want %d got %d", r.pos-1, want, got)
	}
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, fmt.Errorf("snapshot: truncated stream at offset %d (need %d bytes)", r.pos, n)
	}
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *Reader) readString() (string, error) {
	lb, err := r.take(4)
	if err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(lb)
	sb, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(sb), nil
}

// OpenScope reads a scope header and checks it names and versions exactly
// what the caller expects; a mismatch is a fatal error naming the scope.
func (r *Reader) OpenScope(name string, version uint32) error {
	if err := r.expect(mScopeStart); err != nil {
		return err
	}
	gotName, err := r.readString()
	if err != nil {
		return err
	}
	if gotName != name {
		return fmt.Errorf("snapshot: scope name mismatch: want %q got %q", name, gotName)
	}
	vb, err := r.take(4)
	if err != nil {
		return err
	}
	gotVer := binary.LittleEndian.Uint32(vb)
	if gotVer != version {
		return fmt.Errorf("snapshot: scope %q version mismatch: want %d got %d", name, version, gotVer)
	}
	if _, err := r.take(4); err != nil { // size placeholder, unused on read
		return err
	}
	return nil
}

func (r *Reader) CloseScope() error { return r.expect(mScopeEnd) }

func (r *Reader) U8() (uint8, error) {
	if err := r.expect(mU8); err != nil {
		return 0, err
	}
	return r.readByte()
}

func (r *Reader) Bool() (bool, error) {
	if err := r.expect(mBool); err != nil {
		return false, err
	}
	v, err := r.readByte()
	return v != 0, err
}

func (r *Reader) U16() (uint16, error) {
	if err := r.expect(mU16); err != nil {
		return 0, err
	}
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) U32() (uint32, error) {
	if err := r.expect(mU32); err != nil {
		return 0, err
	}
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Blob() ([]byte, error) {
	if err := r.expect(mBlob); err != nil {
		return nil, err
	}
	lb, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lb)
	return r.take(int(n))
}

func (r *Reader) String() (string, error) {
	if err := r.expect(mString); err != nil {
		return "", err
	}
	return r.readString()
}

func (r *Reader) VecU8() ([]uint8, error) {
	if err := r.expect(mVecU8); err != nil {
		return nil, err
	}
	lb, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lb)
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]uint8, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) VecString() ([]string, error) {
	if err := r.expect(mVecString); err != nil {
		return nil, err
	}
	lb, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lb)
	out := make([]string, n)
	for i := range out {
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Handler is implemented by anything with snapshot-able state: CPU
// registers, memory handlers, expansion devices.
type Handler interface {
	Save(w *Writer)
	Load(r *Reader) error
}
