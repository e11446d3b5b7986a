package bsp

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// Magic identifies a compiled level container.
	Magic = "VBSP"

	// NumLumps is the fixed size of the lump directory.
	NumLumps = 64

	lumpDescriptorSize = 16
	headerPrefixSize   = 8 // magic + version

	// alternateVersion is the version number shared by both layouts; the
	// alternate layout is told apart by a zero word following it.
	alternateVersion = 21
)

// Lump indices interpreted by this package.
const (
	LumpEntities          = 0
	LumpGame              = 35
	LumpTexDataStringData = 43
)

// Lump is one directory entry.
type Lump struct {
	Offset int32
	Length int32
}

// End returns the offset one past the lump's last byte.
func (l Lump) End() int64 { return int64(l.Offset) + int64(l.Length) }

// LumpTable is the decoded lump directory.
type LumpTable struct {
	Version   int32
	Alternate bool
	Lumps     [NumLumps]Lump
}

// Lump returns the entry at index i.
func (t *LumpTable) Lump(i int) Lump { return t.Lumps[i] }

// ReadLumpTable reads the directory at the head of the container. r must be
// positioned at offset 0; size is the container's byte length.
func ReadLumpTable(r io.ReadSeeker, size int64) (*LumpTable, error) {
	if size < headerPrefixSize+NumLumps*lumpDescriptorSize {
		return nil, structuralf(-1, 0, "container is %d bytes, need at least %d for the lump directory",
			size, headerPrefixSize+NumLumps*lumpDescriptorSize)
	}

	var head [12]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, structuralf(-1, 0, "read header: %v", err)
	}
	if string(head[0:4]) != Magic {
		return nil, structuralf(-1, 0, "bad magic %q", head[0:4])
	}

	table := &LumpTable{
		Version: int32(binary.LittleEndian.Uint32(head[4:8])),
	}
	// The alternate layout moves the per-lump version ahead of the offset,
	// so the word after the header version is zero.
	if table.Version == alternateVersion && binary.LittleEndian.Uint32(head[8:12]) == 0 {
		table.Alternate = true
	}
	if _, err := r.Seek(-4, io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("rewind lump directory: %w", err)
	}

	dir := make([]byte, NumLumps*lumpDescriptorSize)
	if _, err := io.ReadFull(r, dir); err != nil {
		return nil, structuralf(-1, headerPrefixSize, "read lump directory: %v", err)
	}

	for i := 0; i < NumLumps; i++ {
		d := dir[i*lumpDescriptorSize : (i+1)*lumpDescriptorSize]
		var lump Lump
		if table.Alternate {
			lump.Offset = int32(binary.LittleEndian.Uint32(d[4:8]))
			lump.Length = int32(binary.LittleEndian.Uint32(d[8:12]))
		} else {
			lump.Offset = int32(binary.LittleEndian.Uint32(d[0:4]))
			lump.Length = int32(binary.LittleEndian.Uint32(d[4:8]))
		}
		if lump.Offset < 0 || lump.Length < 0 || lump.End() > size {
			return nil, structuralf(i, int64(lump.Offset), "length %d exceeds container size %d", lump.Length, size)
		}
		table.Lumps[i] = lump
	}

	return table, nil
}

// readLump reads lump i in full.
func readLump(r io.ReadSeeker, table *LumpTable, i int) ([]byte, error) {
	lump := table.Lump(i)
	if _, err := r.Seek(int64(lump.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek lump %d: %w", i, err)
	}
	data := make([]byte, lump.Length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, structuralf(i, int64(lump.Offset), "read %d bytes: %v", lump.Length, err)
	}
	return data, nil
}
