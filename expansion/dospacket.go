package expansion

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// A shared folder exposes one host directory tree as an AmigaDOS volume,
// handled entirely on the host side: every lock, file handle, and path in
// its node table maps straight back to a file under root.
type sharedFolder struct {
	root    string
	name    string
	rootKey uint32
	msgPort uint32
	dosList uint32
}

func newSharedFolder(path string) sharedFolder {
	return sharedFolder{root: path, name: filepath.Base(path)}
}

// fsNode is one entry in the board-wide table of resolved AmigaDOS
// objects; a FileLock's fl_Key is simply this node's 1-based index,
// mirroring the original's node_from_key lookup.
type fsNode struct {
	parent uint32
	path   string
	kind   int32
}

const (
	stRoot     = 1
	stUserDir  = 2
	stFile     = -3
	sharedLock = -2
	exclLock   = -1
)

func (b *Board) addNode(parent uint32, path string, kind int32) uint32 {
	b.fsNodes = append(b.fsNodes, fsNode{parent: parent, path: path, kind: kind})
	return uint32(len(b.fsNodes))
}

func (b *Board) nodeFor(key uint32) *fsNode {
	if key == 0 || key > uint32(len(b.fsNodes)) {
		return nil
	}
	return &b.fsNodes[key-1]
}

// nodeFromLock dereferences a FileLock BPTR the guest passed back in a
// dp_Arg slot, recovering the node key makeLock stashed in its fl_Key
// field -- the lock itself is a heap pointer, never a node key, so
// callers must never treat dp_Arg1/dp_Arg2 as a key directly. A zero
// lock means "no lock", left for the caller to resolve against the
// volume root.
func (b *Board) nodeFromLock(lock uint32) (uint32, *fsNode) {
	if lock == 0 {
		return 0, nil
	}
	key := b.readU32((lock << 2) + flKey)
	return key, b.nodeFor(key)
}

// findChild resolves one path component under dir, classifying it as a
// directory or a file by asking the host filesystem, and interns it as a
// new node (or returns the existing one if already resolved).
func (b *Board) findChild(parentKey uint32, dir *fsNode, name string) *fsNode {
	childPath := filepath.Join(dir.path, name)
	for i := range b.fsNodes {
		if b.fsNodes[i].parent == parentKey && filepath.Base(b.fsNodes[i].path) == name {
			return &b.fsNodes[i]
		}
	}
	st, err := os.Stat(childPath)
	if err != nil {
		return nil
	}
	kind := int32(stFile)
	if st.IsDir() {
		kind = stUserDir
	}
	key := b.addNode(parentKey, childPath, kind)
	return b.nodeFor(key)
}

// register offsets for AmigaDOS structures this handler reads and writes
// directly in guest memory.
const (
	dpType = 8
	dpRes1 = 12
	dpRes2 = 16
	dpArg1 = 20
	dpArg2 = 24
	dpArg3 = 28
	dpArg4 = 32

	flKey    = 4
	flAccess = 8
	flTask   = 12
	flVolume = 16
	flSizeof = 20

	fhBuf   = 12
	fhPos   = 16
	fhArg1  = 36
	fhArg2  = 40
	fhSizeof = 44

	fibDirEntryType = 4
	fibFileName     = 8
	fibProtection   = 116
	fibEntryType    = 120
	fibSize         = 124
	fibNumBlocks    = 128
	fibDate         = 132
	fibComment      = 144
	fibDiskKey      = 0

	handlerMsgPort  = 0x08
	handlerDosList  = 0x0C
	handlerID       = 0x10
	handlerDevName  = 0x14

	dosFalse = 0
	dosTrue  = 1

	errObjectNotFound  = 205
	errObjectExists    = 203
	errDirNotFound     = 204
	errInvalidLock     = 211
	errObjectWrongType = 212
	errNoMoreEntries   = 232
	errDeleteProtected = 222
	errActionNotKnown  = 209
	errDeviceNotMounted = 218

	actionLocateObject = 8
	actionFreeLock     = 15
	actionDeleteObject = 16
	actionRenameObject = 17
	actionCopyDir      = 19
	actionSetProtect   = 21
	actionCreateDir    = 22
	actionExamineObject = 23
	actionExamineNext   = 24
	actionDiskInfo      = 25
	actionInfo          = 26
	actionFlush         = 27
	actionParent        = 29
	actionSameLock      = 40
	actionRead          = 'R'
	actionWrite         = 'W'
	actionFindUpdate    = 1004
	actionFindInput     = 1005
	actionFindOutput    = 1006
	actionEnd           = 1007
	actionSeek          = 1008
	actionIsFileSystem  = 1027

	ticksPerMin  = 60 * 50
	minsPerDay   = 24 * 60
	amigaEpoch   = "1978-01-01T00:00:00Z"
)

// openFile is the host-side handle a FileHandle's fh_Arg1 slot indexes
// into, since the guest can only hold a small integer, not a Go pointer.
type openFile struct {
	f    *os.File
	node uint32
}

func (b *Board) reply(dp uint32, res1, res2 uint32) {
	b.writeU32(dp+dpRes1, res1)
	b.writeU32(dp+dpRes2, res2)
}

// handleDosPacket dispatches one AmigaDOS packet against the shared
// folder named by dp_Res1 (overloaded as an input volume-id field ahead
// of dispatch, same as the register this board uses it for).
func (b *Board) handleDosPacket() {
	dp := b.ptrHold
	id := b.readU32(dp + dpRes1)
	if id >= uint32(len(b.sharedFolders)) || id >= b.foldersStarted {
		if b.log != nil {
			b.log.Error("expansion: DosPacket for unmounted shared folder", "id", id)
		}
		b.reply(dp, dosFalse, errDeviceNotMounted)
		return
	}
	folder := &b.sharedFolders[id]
	typ := b.readU32(dp + dpType)

	switch typ {
	case actionIsFileSystem:
		b.reply(dp, dosTrue, 0)
	case actionLocateObject:
		b.actionLocateObject(dp, folder)
	case actionFreeLock:
		b.reply(dp, dosTrue, 0)
	case actionSameLock:
		l1, l2 := b.readU32(dp+dpArg1), b.readU32(dp+dpArg2)
		_, n1 := b.nodeFromLock(l1)
		_, n2 := b.nodeFromLock(l2)
		if n1 != nil && n2 != nil && n1.path == n2.path {
			b.reply(dp, dosTrue, 0)
		} else {
			b.reply(dp, dosFalse, 0)
		}
	case actionExamineObject:
		b.actionExamineObject(dp)
	case actionExamineNext:
		b.actionExamineNext(dp)
	case actionParent:
		b.actionParent(dp, folder)
	case actionCreateDir:
		b.actionCreateDir(dp, folder)
	case actionDeleteObject:
		b.actionDeleteObject(dp, folder)
	case actionRenameObject:
		b.actionRenameObject(dp, folder)
	case actionCopyDir:
		b.actionLocateObject(dp, folder) // a copied lock is just another lock on the same node
	case actionSetProtect:
		b.reply(dp, dosTrue, 0) // host filesystem permissions aren't modeled
	case actionDiskInfo, actionInfo:
		b.actionDiskInfo(dp, folder)
	case actionFlush:
		b.reply(dp, dosTrue, 0)
	case actionFindInput, actionFindOutput, actionFindUpdate:
		b.actionOpen(dp, folder, typ)
	case actionRead:
		b.actionRead(dp)
	case actionWrite:
		b.actionWrite(dp)
	case actionSeek:
		b.actionSeek(dp)
	case actionEnd:
		b.actionEndFile(dp)
	default:
		if b.log != nil {
			b.log.Warn("expansion: unhandled DOS packet action", "type", typ)
		}
		b.reply(dp, dosFalse, errActionNotKnown)
	}
}

// resolveNode walks name (optionally "volume:path/to/thing") starting
// from base, creating no nodes beyond what findChild interns for objects
// that actually exist on the host.
func (b *Board) resolveNode(base *fsNode, baseKey uint32, name string) (uint32, *fsNode) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	key, node := baseKey, base
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			if node.parent == 0 {
				continue
			}
			key = node.parent
			node = b.nodeFor(key)
			continue
		}
		next := b.findChild(key, node, part)
		if next == nil {
			return 0, nil
		}
		key = uint32(len(b.fsNodes))
		for i := range b.fsNodes {
			if &b.fsNodes[i] == next {
				key = uint32(i) + 1
				break
			}
		}
		node = next
	}
	return key, node
}

func readBString(b *Board, addr uint32) string {
	n := b.readU8(addr)
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b.readU8(addr + 1 + uint32(i))
	}
	return string(buf)
}

func (b *Board) makeLock(folder *sharedFolder, node *fsNode, nodeKey uint32, access int32) uint32 {
	fl := b.heap.alloc(flSizeof)
	if fl == 0 {
		return 0
	}
	addr := b.guestAddr(fl)
	b.writeU32(addr+flKey, nodeKey)
	b.writeU32(addr+flAccess, uint32(access))
	b.writeU32(addr+flTask, folder.msgPort)
	b.writeU32(addr+flVolume, folder.dosList>>2)
	return addr >> 2
}

func (b *Board) actionLocateObject(dp uint32, folder *sharedFolder) {
	lockArg := b.readU32(dp + dpArg1)
	namePtr := b.readU32(dp + dpArg2)
	access := int32(b.readU32(dp + dpArg3))
	name := readBString(b, namePtr<<2)

	base := b.nodeFor(folder.rootKey)
	baseKey := folder.rootKey
	if lockArg != 0 {
		if k, n := b.nodeFromLock(lockArg); n != nil {
			base, baseKey = n, k
		}
	}
	key, node := b.resolveNode(base, baseKey, name)
	if node == nil {
		b.reply(dp, 0, errObjectNotFound)
		return
	}
	lock := b.makeLock(folder, node, key, access)
	if lock == 0 {
		b.reply(dp, 0, errObjectNotFound)
		return
	}
	b.reply(dp, lock, 0)
}

func (b *Board) actionParent(dp uint32, folder *sharedFolder) {
	lockArg := b.readU32(dp + dpArg1)
	_, node := b.nodeFromLock(lockArg)
	if node == nil {
		b.reply(dp, 0, errInvalidLock)
		return
	}
	if node.parent == 0 {
		b.reply(dp, 0, 0)
		return
	}
	parent := b.nodeFor(node.parent)
	lock := b.makeLock(folder, parent, node.parent, sharedLock)
	b.reply(dp, lock, 0)
}

func (b *Board) actionCreateDir(dp uint32, folder *sharedFolder) {
	lockArg := b.readU32(dp + dpArg1)
	namePtr := b.readU32(dp + dpArg2)
	name := readBString(b, namePtr<<2)

	dir := b.nodeFor(folder.rootKey)
	dirKey := folder.rootKey
	if lockArg != 0 {
		if k, n := b.nodeFromLock(lockArg); n != nil {
			dir, dirKey = n, k
		}
	}
	path := filepath.Join(dir.path, name)
	if _, err := os.Stat(path); err == nil {
		b.reply(dp, 0, errObjectExists)
		return
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		b.reply(dp, 0, errObjectExists)
		return
	}
	key := b.addNode(dirKey, path, stUserDir)
	lock := b.makeLock(folder, b.nodeFor(key), key, exclLock)
	b.reply(dp, lock, 0)
}

func (b *Board) actionDeleteObject(dp uint32, folder *sharedFolder) {
	lockArg := b.readU32(dp + dpArg1)
	namePtr := b.readU32(dp + dpArg2)
	name := readBString(b, namePtr<<2)

	dir := b.nodeFor(folder.rootKey)
	dirKey := folder.rootKey
	if lockArg != 0 {
		if k, n := b.nodeFromLock(lockArg); n != nil {
			dir, dirKey = n, k
		}
	}
	_, node := b.resolveNode(dir, dirKey, name)
	if node == nil {
		b.reply(dp, 0, errObjectNotFound)
		return
	}
	if err := os.Remove(node.path); err != nil {
		b.reply(dp, 0, errDeleteProtected)
		return
	}
	b.reply(dp, dosTrue, 0)
}

func (b *Board) actionRenameObject(dp uint32, folder *sharedFolder) {
	lockArg := b.readU32(dp + dpArg1)
	namePtr := b.readU32(dp + dpArg2)
	newNamePtr := b.readU32(dp + dpArg4)
	name := readBString(b, namePtr<<2)
	newName := readBString(b, newNamePtr<<2)

	dir := b.nodeFor(folder.rootKey)
	dirKey := folder.rootKey
	if lockArg != 0 {
		if k, n := b.nodeFromLock(lockArg); n != nil {
			dir, dirKey = n, k
		}
	}
	_, node := b.resolveNode(dir, dirKey, name)
	if node == nil {
		b.reply(dp, 0, errObjectNotFound)
		return
	}
	newPath := filepath.Join(dir.path, newName)
	if err := os.Rename(node.path, newPath); err != nil {
		b.reply(dp, 0, errObjectExists)
		return
	}
	node.path = newPath
	b.reply(dp, dosTrue, 0)
}

func amigaTicks(t time.Time) (days, mins, ticks uint32) {
	epoch, _ := time.Parse(time.RFC3339, amigaEpoch)
	d := t.Sub(epoch)
	totalTicks := uint32(d.Seconds() * 50)
	days = totalTicks / (ticksPerMin * minsPerDay)
	rem := totalTicks % (ticksPerMin * minsPerDay)
	mins = rem / ticksPerMin
	ticks = rem % ticksPerMin
	return
}

func (b *Board) fillFileInfo(node *fsNode, fib uint32) {
	b.writeU32(fib+fibDirEntryType, uint32(node.kind))
	b.writeU32(fib+fibEntryType, uint32(node.kind))
	b.writeU32(fib+fibProtection, 0)

	var size uint32
	var modTime time.Time
	if st, err := os.Stat(node.path); err == nil {
		modTime = st.ModTime()
		if node.kind == stFile {
			size = uint32(st.Size())
		}
	}
	b.writeU32(fib+fibSize, size)
	b.writeU32(fib+fibNumBlocks, (size+sectorSize-1)/sectorSize)
	days, mins, ticks := amigaTicks(modTime)
	b.writeU32(fib+fibDate, days)
	b.writeU32(fib+fibDate+4, mins)
	b.writeU32(fib+fibDate+8, ticks)
	b.writeU8(fib+fibComment, 0)

	name := filepath.Base(node.path)
	if len(name) > 106 {
		name = name[:106]
	}
	b.writeU8(fib+fibFileName, uint8(len(name)))
	for i := 0; i < len(name); i++ {
		b.writeU8(fib+fibFileName+1+uint32(i), name[i])
	}
	b.writeU8(fib+fibFileName+1+uint32(len(name)), 0)
}

func (b *Board) actionExamineObject(dp uint32) {
	lockArg := b.readU32(dp + dpArg1)
	fib := b.readU32(dp + dpArg2)
	_, node := b.nodeFromLock(lockArg)
	if node == nil {
		b.reply(dp, 0, errInvalidLock)
		return
	}
	b.writeU32(fib+fibDiskKey, 0)
	b.fillFileInfo(node, fib)
	b.reply(dp, dosTrue, 0)
}

// actionExamineNext re-reads the host directory fresh every call and
// returns the sorted listing's entry at index fib_DiskKey (0 = the first
// entry), storing index+1 back for the next call; nothing needs caching
// between calls as long as the listing is sorted.
func (b *Board) actionExamineNext(dp uint32) {
	lockArg := b.readU32(dp + dpArg1)
	fib := b.readU32(dp + dpArg2)
	_, node := b.nodeFromLock(lockArg)
	if node == nil || node.kind == stFile {
		b.reply(dp, 0, errObjectWrongType)
		return
	}
	entries, err := os.ReadDir(node.path)
	if err != nil {
		b.reply(dp, 0, errDirNotFound)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	idx := b.readU32(fib + fibDiskKey)
	if int(idx) >= len(entries) {
		b.reply(dp, 0, errNoMoreEntries)
		return
	}
	entry := entries[idx]
	childPath := filepath.Join(node.path, entry.Name())
	kind := int32(stFile)
	if entry.IsDir() {
		kind = stUserDir
	}
	child := fsNode{parent: 0, path: childPath, kind: kind}
	b.writeU32(fib+fibDiskKey, idx+1)
	b.fillFileInfo(&child, fib)
	b.reply(dp, dosTrue, 0)
}

func (b *Board) actionDiskInfo(dp uint32, folder *sharedFolder) {
	id := dp + dpArg1
	b.writeU32(id+0x00, 0)           // id_NumSoftErrors
	b.writeU32(id+0x04, 0)           // id_UnitNumber
	b.writeU32(id+0x08, 82)          // id_DiskState: ID_VALIDATED
	b.writeU32(id+0x0C, 1)           // id_NumBlocks
	b.writeU32(id+0x10, 1)           // id_NumBlocksUsed
	b.writeU32(id+0x14, sectorSize)  // id_BytesPerBlock
	b.writeU32(id+0x18, 0x444F5300)  // id_DiskType: 'DOS\0'
	b.writeU32(id+0x1C, folder.dosList>>2)
	b.writeU32(id+0x20, 0) // id_InUse
	b.reply(dp, dosTrue, 0)
}

func (b *Board) allocOpenFile(f *os.File, node uint32) uint32 {
	b.openFiles = append(b.openFiles, openFile{f: f, node: node})
	return uint32(len(b.openFiles))
}

func (b *Board) actionOpen(dp uint32, folder *sharedFolder, typ uint32) {
	lockArg := b.readU32(dp + dpArg2)
	namePtr := b.readU32(dp + dpArg3)
	name := readBString(b, namePtr<<2)

	dir := b.nodeFor(folder.rootKey)
	dirKey := folder.rootKey
	if lockArg != 0 {
		if k, n := b.nodeFromLock(lockArg); n != nil {
			dir, dirKey = n, k
		}
	}
	key, node := b.resolveNode(dir, dirKey, name)
	var flag int
	switch typ {
	case actionFindInput:
		flag = os.O_RDONLY
	case actionFindOutput:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case actionFindUpdate:
		flag = os.O_RDWR
	}
	var path string
	if node != nil {
		path = node.path
	} else {
		if typ == actionFindInput || typ == actionFindUpdate {
			b.reply(dp, 0, errObjectNotFound)
			return
		}
		path = filepath.Join(dir.path, name)
		key = b.addNode(dirKey, path, stFile)
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		b.reply(dp, 0, errObjectNotFound)
		return
	}
	fh := b.readU32(dp + dpArg1)
	id := b.allocOpenFile(f, key)
	b.writeU32(fh+fhArg1, id)
	b.reply(dp, dosTrue, 0)
}

func (b *Board) openFileFor(fh uint32) *openFile {
	id := b.readU32(fh + fhArg1)
	if id == 0 || id > uint32(len(b.openFiles)) {
		return nil
	}
	return &b.openFiles[id-1]
}

func (b *Board) actionRead(dp uint32) {
	fh := b.readU32(dp + dpArg1)
	buf := b.readU32(dp + dpArg2)
	length := b.readU32(dp + dpArg3)
	of := b.openFileFor(fh)
	if of == nil {
		b.reply(dp, 0xFFFFFFFF, errInvalidLock)
		return
	}
	data := make([]byte, length)
	n, err := of.f.Read(data)
	if err != nil && n == 0 {
		b.reply(dp, 0, 0)
		return
	}
	for i := 0; i < n; i++ {
		b.writeU8(buf+uint32(i), data[i])
	}
	b.reply(dp, uint32(n), 0)
}

func (b *Board) actionWrite(dp uint32) {
	fh := b.readU32(dp + dpArg1)
	buf := b.readU32(dp + dpArg2)
	length := b.readU32(dp + dpArg3)
	of := b.openFileFor(fh)
	if of == nil {
		b.reply(dp, 0xFFFFFFFF, errInvalidLock)
		return
	}
	data := make([]byte, length)
	for i := range data {
		data[i] = b.readU8(buf + uint32(i))
	}
	n, err := of.f.Write(data)
	if err != nil {
		b.reply(dp, 0xFFFFFFFF, errDeleteProtected)
		return
	}
	b.reply(dp, uint32(n), 0)
}

func (b *Board) actionSeek(dp uint32) {
	fh := b.readU32(dp + dpArg1)
	offset := int32(b.readU32(dp + dpArg2))
	mode := int32(b.readU32(dp + dpArg3))
	of := b.openFileFor(fh)
	if of == nil {
		b.reply(dp, 0xFFFFFFFF, errInvalidLock)
		return
	}
	old, _ := of.f.Seek(0, io.SeekCurrent)
	var whence int
	switch mode {
	case -1:
		whence = io.SeekStart
	case 1:
		whence = io.SeekEnd
	default:
		whence = io.SeekCurrent
	}
	if _, err := of.f.Seek(int64(offset), whence); err != nil {
		b.reply(dp, 0xFFFFFFFF, errInvalidLock)
		return
	}
	b.reply(dp, uint32(old), 0)
}

func (b *Board) actionEndFile(dp uint32) {
	fh := b.readU32(dp + dpArg1)
	if of := b.openFileFor(fh); of != nil {
		of.f.Close()
	}
	b.reply(dp, dosTrue, 0)
}
