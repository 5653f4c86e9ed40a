package expansion

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	idRigidDisk      = 0x5244534B // 'RDSK'
	idPartition      = 0x50415254 // 'PART'
	idFilesysHeader  = 0x46534844 // 'FSHD'
	idLoadSeg        = 0x4C534547 // 'LSEG'
	endOfList        = 0xFFFFFFFF
	maxFSCodeBytes   = 1 << 20
	dosTypeDefault   = 0x444F5300 // 'DOS\0'
	plainHDFCylLimit = 504 * 1024 * 1024
)

// diskImage is a single host file backing a virtual hard disk, plus the
// C/H/S geometry read from its Rigid Disk Block (or synthesized for a
// bare, RDB-less HDF image).
type diskImage struct {
	path           string
	file           *os.File
	size           int64
	cylinders      uint32
	heads          uint8
	sectorsPerTrac uint16
}

func (d *diskImage) readSector(offset uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := d.file.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("expansion: reading %s at %d: %w", d.path, offset, err)
	}
	return buf, nil
}

func checkStructure(sector []byte, id uint32) bool {
	return len(sector) >= 4 && binary.BigEndian.Uint32(sector) == id
}

type partitionInfo struct {
	disk             *diskImage
	name             string
	flags            uint32
	blockSizeBytes   uint32
	numHeads         uint32
	sectorsPerTrack  uint32
	reservedBlocks   uint32
	interleave       uint32
	lowerCylinder    uint32
	upperCylinder    uint32
	numBuffers       uint32
	memBufferType    uint32
	maxTransfer      uint32
	mask             uint32
	bootPriority     uint32
	dosType          uint32
	bootFlags        uint32
}

type filesystemInfo struct {
	dosType    uint32
	version    uint32
	patchFlags uint32
	hunks      []hunk
	segList    uint32
}

// openDisk reads sector 0 of path and either parses a Rigid Disk Block
// partition/filesystem chain, or (if sector 0 isn't an RDSK block) mounts
// the whole file as a single synthetic 32-sectors/1-head partition, the
// same fallback a plain non-partitioned HDF image gets.
func (b *Board) openDisk(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("expansion: opening %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		return err
	}
	size := st.Size()
	if size < 100*1024 {
		return fmt.Errorf("expansion: %s is too small (%d bytes) to be a disk image", path, size)
	}

	d := &diskImage{path: path, file: f, size: size}
	b.disks = append(b.disks, d)

	sector, err := d.readSector(0, sectorSize)
	if err != nil {
		return err
	}

	if checkStructure(sector, idRigidDisk) {
		return b.scanRDB(d, sector)
	}
	return b.mountPlainHDF(d)
}

func (b *Board) scanRDB(d *diskImage, sector []byte) error {
	if binary.BigEndian.Uint32(sector[16:]) != sectorSize {
		return fmt.Errorf("expansion: %s has an unsupported block size", d.path)
	}
	d.cylinders = binary.BigEndian.Uint32(sector[64:])
	d.sectorsPerTrac = uint16(binary.BigEndian.Uint32(sector[68:]))
	d.heads = uint8(binary.BigEndian.Uint32(sector[72:]))

	partList := binary.BigEndian.Uint32(sector[28:])
	fshdrList := binary.BigEndian.Uint32(sector[32:])

	names := map[string]bool{}
	for cnt := 0; partList != endOfList; cnt++ {
		if cnt >= partCount {
			return fmt.Errorf("expansion: %s has too many partitions", d.path)
		}
		sec, err := d.readSector(uint64(partList)*sectorSize, sectorSize)
		if err != nil {
			return err
		}
		if !checkStructure(sec, idPartition) {
			return fmt.Errorf("expansion: %s has an invalid partition list", d.path)
		}

		nameLen := int(sec[36])
		if nameLen >= 31 {
			return fmt.Errorf("expansion: %s has an invalid partition name length", d.path)
		}
		name := string(sec[37 : 37+nameLen])

		pi := partitionInfo{
			disk:            d,
			name:            name,
			flags:           binary.BigEndian.Uint32(sec[32:]),
			blockSizeBytes:  4 * binary.BigEndian.Uint32(sec[132:]),
			numHeads:        binary.BigEndian.Uint32(sec[140:]),
			sectorsPerTrack: binary.BigEndian.Uint32(sec[148:]),
			reservedBlocks:  binary.BigEndian.Uint32(sec[152:]),
			interleave:      binary.BigEndian.Uint32(sec[160:]),
			lowerCylinder:   binary.BigEndian.Uint32(sec[164:]),
			upperCylinder:   binary.BigEndian.Uint32(sec[168:]),
			numBuffers:      binary.BigEndian.Uint32(sec[172:]),
			memBufferType:   binary.BigEndian.Uint32(sec[176:]),
			maxTransfer:     binary.BigEndian.Uint32(sec[180:]),
			mask:            binary.BigEndian.Uint32(sec[184:]),
			bootPriority:    binary.BigEndian.Uint32(sec[188:]),
			dosType:         binary.BigEndian.Uint32(sec[192:]),
			bootFlags:       binary.BigEndian.Uint32(sec[20:]),
		}
		partList = binary.BigEndian.Uint32(sec[16:])

		if pi.bootFlags&2 != 0 {
			if b.log != nil {
				b.log.Info("expansion: skipping no-automount partition", "name", pi.name)
			}
			continue
		}
		if names[pi.name] {
			return fmt.Errorf("expansion: %s has more than one partition named %q", d.path, pi.name)
		}
		names[pi.name] = true
		b.partitions = append(b.partitions, pi)
	}

	for cnt := 0; fshdrList != endOfList; cnt++ {
		if cnt > partCount {
			return fmt.Errorf("expansion: %s has an invalid filesystem header list", d.path)
		}
		sec, err := d.readSector(uint64(fshdrList)*sectorSize, sectorSize)
		if err != nil {
			return err
		}
		if !checkStructure(sec, idFilesysHeader) {
			return fmt.Errorf("expansion: %s has an invalid filesystem header list", d.path)
		}
		fshdrList = binary.BigEndian.Uint32(sec[16:])

		dosType := binary.BigEndian.Uint32(sec[32:])
		version := binary.BigEndian.Uint32(sec[36:])
		patchFlags := binary.BigEndian.Uint32(sec[40:])
		segList := binary.BigEndian.Uint32(sec[72:])
		if segList == endOfList {
			continue
		}

		needed := true
		for _, fs := range b.filesystems {
			if fs.dosType == dosType && fs.version >= version {
				needed = false
				break
			}
		}
		if !needed {
			continue
		}
		needed = false
		for _, pi := range b.partitions {
			if pi.dosType == dosType {
				needed = true
				break
			}
		}
		if !needed {
			continue
		}

		code, err := readHunkChain(d, segList)
		if err != nil {
			return err
		}
		hunks, err := parseHunkFile(code)
		if err != nil {
			return err
		}
		b.filesystems = append(b.filesystems, filesystemInfo{
			dosType:    dosType,
			version:    version,
			patchFlags: patchFlags,
			hunks:      hunks,
		})
	}
	return nil
}

// readHunkChain reassembles a filesystem binary stored as a chain of
// 'LSEG' sectors (a per-sector checksum-validated linked list), the RDB
// convention for embedding a loadable filesystem inside the partition
// table area.
func readHunkChain(d *diskImage, segList uint32) ([]byte, error) {
	var code []byte
	for segList != endOfList {
		if len(code) > maxFSCodeBytes {
			return nil, fmt.Errorf("expansion: %s has an implausibly large filesystem segment list", d.path)
		}
		sec, err := d.readSector(uint64(segList)*sectorSize, sectorSize)
		if err != nil {
			return nil, err
		}
		sizeBytes := binary.BigEndian.Uint32(sec[4:]) * 4
		if sizeBytes < 24 || sizeBytes > sectorSize {
			return nil, fmt.Errorf("expansion: %s has an invalid segment list", d.path)
		}
		if !checkStructure(sec, idLoadSeg) {
			return nil, fmt.Errorf("expansion: %s has an invalid segment list", d.path)
		}
		var sum uint32
		for i := uint32(0); i < sizeBytes; i += 4 {
			sum += binary.BigEndian.Uint32(sec[i:])
		}
		if sum != 0 {
			return nil, fmt.Errorf("expansion: %s has a segment list block with a bad checksum", d.path)
		}
		next := binary.BigEndian.Uint32(sec[8:])
		code = append(code, sec[16:sizeBytes]...)
		segList = next
	}
	return code, nil
}

func (b *Board) mountPlainHDF(d *diskImage) error {
	const heads, sectorsPerTrack = 1, 32
	cylSize := uint64(heads) * sectorsPerTrack * sectorSize
	if d.size > plainHDFCylLimit {
		return fmt.Errorf("expansion: %s is too large for a plain HDF mount (%d bytes)", d.path, d.size)
	}
	numCyl := uint32(uint64(d.size) / cylSize)
	d.cylinders = numCyl
	d.heads = heads
	d.sectorsPerTrac = sectorsPerTrack

	name := ""
	for n := 0; ; n++ {
		candidate := fmt.Sprintf("DH%d", n)
		taken := false
		for _, p := range b.partitions {
			if p.name == candidate {
				taken = true
				break
			}
		}
		if !taken {
			name = candidate
			break
		}
	}

	b.partitions = append(b.partitions, partitionInfo{
		disk:            d,
		name:            name,
		blockSizeBytes:  sectorSize,
		numHeads:        heads,
		sectorsPerTrack: sectorsPerTrack,
		reservedBlocks:  2,
		upperCylinder:   numCyl - 1,
		numBuffers:      1,
		maxTransfer:     0x7FFE,
		mask:            0xFFFFFFFE,
		dosType:         dosTypeDefault,
		bootFlags:       1,
	})
	return nil
}
