package expansion

import (
	"encoding/binary"
	"fmt"
)

// Amiga hunk-file block types this loader understands. Anything else
// (HUNK_OVERLAY, HUNK_LIB, HUNK_UNIT/HUNK_NAME metadata blocks) is
// rejected rather than silently skipped, since getting their length
// wrong would desynchronize the rest of the stream.
const (
	hunkUnit    = 0x3E7
	hunkName    = 0x3E8
	hunkCode    = 0x3E9
	hunkData    = 0x3EA
	hunkBSS     = 0x3EB
	hunkReloc32 = 0x3EC
	hunkExt     = 0x3EF
	hunkSymbol  = 0x3F0
	hunkDebug   = 0x3F1
	hunkEnd     = 0x3F2
	hunkHeader  = 0x3F3
)

// reloc is one HUNK_RELOC32 fixup: add the base address of hunk `to` to
// the longword at `offset` bytes into this hunk's data.
type reloc struct {
	offset uint32
	to     uint32
}

// hunk is one loadable segment of a parsed executable: either code/data
// bytes to copy verbatim, or a BSS hunk that's just a zeroed size, plus
// whatever relocations its data needs once every hunk has a load address.
type hunk struct {
	flags   uint32 // memory-type bits from the load-size longword
	kind    int    // hunkCode, hunkData, or hunkBSS
	data    []byte
	relocs  []reloc
}

type hunkReader struct {
	b   []byte
	pos int
}

func (r *hunkReader) u32() (uint32, error) {
	if r.pos+4 > len(r.b) {
		return 0, fmt.Errorf("expansion: truncated hunk file at byte %d", r.pos)
	}
	v := binary.BigEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *hunkReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, fmt.Errorf("expansion: truncated hunk file at byte %d", r.pos)
	}
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *hunkReader) skipString() error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	_, err = r.bytes(int(n) * 4)
	return err
}

// parseHunkFile loads an AmigaDOS executable's hunk list: a header naming
// the hunk sizes, then one code/data/bss block (optionally followed by a
// relocation table) per hunk, terminated by HUNK_END.
func parseHunkFile(code []byte) ([]hunk, error) {
	r := &hunkReader{b: code}

	typ, err := r.u32()
	if err != nil {
		return nil, err
	}
	if typ != hunkHeader {
		return nil, fmt.Errorf("expansion: hunk file does not start with HUNK_HEADER")
	}
	// resident-library name table: a sequence of length-prefixed name
	// strings terminated by a zero length longword.
	for {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		if _, err := r.bytes(int(n) * 4); err != nil {
			return nil, err
		}
	}
	tableSize, err := r.u32()
	if err != nil {
		return nil, err
	}
	firstHunk, err := r.u32()
	if err != nil {
		return nil, err
	}
	lastHunk, err := r.u32()
	if err != nil {
		return nil, err
	}
	if lastHunk < firstHunk || lastHunk-firstHunk+1 != tableSize {
		return nil, fmt.Errorf("expansion: inconsistent hunk count in HUNK_HEADER")
	}

	sizes := make([]uint32, tableSize)
	for i := range sizes {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		sizes[i] = v
	}

	hunks := make([]hunk, tableSize)
	for i := range hunks {
		hunks[i].flags = sizes[i] &^ 0x3FFFFFFF
		longs := sizes[i] & 0x3FFFFFFF

		typ, err := r.u32()
		if err != nil {
			return nil, err
		}
		switch typ {
		case hunkCode, hunkData:
			n, err := r.u32()
			if err != nil {
				return nil, err
			}
			data, err := r.bytes(int(n) * 4)
			if err != nil {
				return nil, err
			}
			hunks[i].kind = int(typ)
			hunks[i].data = append([]byte(nil), data...)
		case hunkBSS:
			hunks[i].kind = hunkBSS
			hunks[i].data = make([]byte, longs*4)
		default:
			return nil, fmt.Errorf("expansion: hunk %d has unsupported block type $%x", i, typ)
		}

		if err := consumeOptionalBlocks(r, &hunks[i]); err != nil {
			return nil, err
		}
	}
	return hunks, nil
}

// consumeOptionalBlocks reads HUNK_RELOC32/EXT/SYMBOL/DEBUG blocks (in
// whatever order the linker emitted them) up to the HUNK_END that closes
// this hunk.
func consumeOptionalBlocks(r *hunkReader, h *hunk) error {
	for {
		typ, err := r.u32()
		if err != nil {
			return err
		}
		switch typ {
		case hunkEnd:
			return nil
		case hunkReloc32:
			for {
				count, err := r.u32()
				if err != nil {
					return err
				}
				if count == 0 {
					break
				}
				to, err := r.u32()
				if err != nil {
					return err
				}
				for i := uint32(0); i < count; i++ {
					off, err := r.u32()
					if err != nil {
						return err
					}
					h.relocs = append(h.relocs, reloc{offset: off, to: to})
				}
			}
		case hunkExt, hunkSymbol:
			// Fully linked filesystem binaries only carry EXT_DEF-style
			// entries (a name plus one value) for debug symbols; an
			// EXT block with unresolved external references would mean
			// this hunk file was never linked, which this loader
			// doesn't support.
			for {
				n, err := r.u32()
				if err != nil {
					return err
				}
				if n == 0 {
					break
				}
				nameLongs := n & 0xFFFFFF
				if _, err := r.bytes(int(nameLongs) * 4); err != nil {
					return err
				}
				if _, err := r.u32(); err != nil {
					return err
				}
			}
		case hunkDebug:
			n, err := r.u32()
			if err != nil {
				return err
			}
			if _, err := r.bytes(int(n) * 4); err != nil {
				return err
			}
		default:
			return fmt.Errorf("expansion: unexpected block type $%x while scanning hunk trailer", typ)
		}
	}
}
