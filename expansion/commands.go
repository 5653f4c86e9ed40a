package expansion

// Register layout for the $FEE0-$FEE4 filesystem-bootstrap commands, kept
// in step with the expansion ROM's own stub assembler.
const (
	fsrFileSysEntries = 0x12
	fsrDosType        = 0x0E
	fsrVersion        = 0x12

	fsinfoNum      = 0x00
	fsinfoDosType  = 0x02
	fsinfoVersion  = 0x06
	fsinfoNumHunks = 0x0A
	fsinfoHunk     = 0x0E

	fsinitsegHunk = 0
	fsinitsegNum  = 12

	maxHunks = 3 // keep in step with the expansion ROM's fixed hunk table
)

// handleScanFS walks the guest's FileSysResource entry list and drops any
// filesystem this board was going to supply that the entry list already
// provides at an equal or newer version, so the board never shadows a
// filesystem AmigaOS already knows about.
func (b *Board) handleScanFS() {
	node := b.readU32(b.ptrHold + fsrFileSysEntries)
	for {
		succ := b.readU32(node)
		if succ == 0 {
			break
		}
		dosType := b.readU32(node + fsrDosType)
		version := b.readU32(node + fsrVersion)

		kept := b.filesystems[:0]
		for _, fs := range b.filesystems {
			if fs.dosType == dosType && fs.version <= version {
				continue
			}
			kept = append(kept, fs)
		}
		b.filesystems = kept
		node = succ
	}
}

// handleDescribeFS reports one filesystem's identity and per-hunk memory
// flags, so the ROM can size and allocate the blocks handleLoadFS will
// then fill in.
func (b *Board) handleDescribeFS() {
	num := b.readU16(b.ptrHold + fsinfoNum)
	if int(num) >= len(b.filesystems) {
		if b.log != nil {
			b.log.Error("expansion: DescribeFS for invalid filesystem", "num", num)
		}
		return
	}
	fs := b.filesystems[num]
	b.writeU32(b.ptrHold+fsinfoDosType, fs.dosType)
	b.writeU32(b.ptrHold+fsinfoVersion, fs.version)
	b.writeU32(b.ptrHold+fsinfoNumHunks, uint32(len(fs.hunks)))
	for i, h := range fs.hunks {
		b.writeU32(b.ptrHold+fsinfoHunk+uint32(i)*4, h.flags)
	}
}

// handleLoadFS copies a filesystem's hunks into memory blocks the guest
// already allocated (one pointer per hunk staged at ptr_hold), links them
// into a standard AmigaDOS seg list, applies HUNK_RELOC32 fixups now that
// every hunk has a load address, and publishes the resulting BPTR.
func (b *Board) handleLoadFS() {
	num := b.readU32(b.ptrHold + fsinitsegNum)
	if int(num) >= len(b.filesystems) {
		if b.log != nil {
			b.log.Error("expansion: LoadFS for invalid filesystem", "num", num)
		}
		return
	}
	fs := &b.filesystems[num]

	var segptr [maxHunks]uint32
	for i := range fs.hunks {
		segptr[i] = b.readU32(b.ptrHold + fsinitsegHunk + uint32(i)*4)
		if segptr[i] == 0 {
			if b.log != nil {
				b.log.Error("expansion: LoadFS hunk allocation missing", "fs", num, "hunk", i)
			}
			return
		}
	}

	for i, h := range fs.hunks {
		b.writeU32(segptr[i], uint32(len(h.data)))
		if i == len(fs.hunks)-1 {
			b.writeU32(segptr[i]+4, 0)
		} else {
			b.writeU32(segptr[i]+4, (segptr[i+1]+4)>>2)
		}
		start := segptr[i] + 8
		for j := 0; j+4 <= len(h.data); j += 4 {
			v := uint32(h.data[j])<<24 | uint32(h.data[j+1])<<16 | uint32(h.data[j+2])<<8 | uint32(h.data[j+3])
			b.writeU32(start+uint32(j), v)
		}
		for _, r := range h.relocs {
			dstStart := segptr[r.to] + 8
			b.writeU32(start+r.offset, b.readU32(start+r.offset)+dstStart)
		}
	}

	fs.segList = (segptr[0] + 4) >> 2
}

// handleVolumeName hands the expansion ROM the display name of the next
// unbound shared folder, as a heap-allocated BCPL string, and records
// which folder index this particular FileSysStartupMsg now refers to.
func (b *Board) handleVolumeName() {
	if b.foldersStarted >= uint32(len(b.sharedFolders)) {
		if b.log != nil {
			b.log.Error("expansion: VolumeName with no shared folders left to start")
		}
		return
	}
	folder := &b.sharedFolders[b.foldersStarted]
	name := folder.name
	if len(name) > 255 {
		name = name[:255]
	}
	addr := b.heap.alloc(uint32(len(name)) + 2)
	if addr == 0 {
		if b.log != nil {
			b.log.Error("expansion: out of board heap allocating volume name")
		}
		return
	}
	b.heap.writeByte(addr, uint8(len(name)))
	for i := 0; i < len(name); i++ {
		b.heap.writeByte(addr+1+uint32(i), name[i])
	}
	b.heap.writeByte(addr+1+uint32(len(name)), 0)

	b.writeU32(b.ptrHold+handlerID, b.foldersStarted)
	b.writeU32(b.ptrHold+handlerDevName, b.guestAddr(addr)>>2)
	b.foldersStarted++
}

// handleBindFolder records the message port and DOS list address AmigaDOS
// assigned the shared folder's handler process, and creates that folder's
// root filesystem node. Arriving after the matching handleVolumeName call,
// selected by the same id field that call returned.
func (b *Board) handleBindFolder() {
	id := b.readU32(b.ptrHold + handlerID)
	if id >= uint32(len(b.sharedFolders)) || id >= b.foldersStarted {
		if b.log != nil {
			b.log.Error("expansion: BindFolder for unstarted shared folder", "id", id)
		}
		return
	}
	folder := &b.sharedFolders[id]
	folder.msgPort = b.readU32(b.ptrHold + handlerMsgPort)
	folder.dosList = b.readU32(b.ptrHold + handlerDosList)
	folder.rootKey = b.addNode(0, folder.root, stRoot)
}
