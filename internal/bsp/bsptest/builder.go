// Package bsptest builds synthetic containers for tests.
package bsptest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
)

// Prop is one static prop record to emit.
type Prop struct {
	Model uint16
	Skin  int32
}

// Builder assembles a container in memory. The zero value produces a valid
// container with no entities, textures or props.
type Builder struct {
	// Version is the header version (default 20).
	Version int32
	// Alternate selects the alternate directory layout; Version is forced to 21.
	Alternate bool
	// Entities is the raw entity lump text.
	Entities string
	// Textures is the texture name table.
	Textures []string
	// Models is the static prop model name table.
	Models []string
	Leaves int
	Props  []Prop
	// Stride is the prop record size (default 60).
	Stride int
	// NoStaticProps omits the sprp game lump.
	NoStaticProps bool
}

// Bytes renders the container.
func (b *Builder) Bytes() []byte {
	const dirEnd = 8 + bsp.NumLumps*16

	var lumps [bsp.NumLumps]bsp.Lump
	var body bytes.Buffer

	place := func(idx int, data []byte) {
		lumps[idx] = bsp.Lump{Offset: int32(dirEnd + body.Len()), Length: int32(len(data))}
		body.Write(data)
	}

	place(bsp.LumpEntities, []byte(b.Entities))

	var tex bytes.Buffer
	for _, t := range b.Textures {
		tex.WriteString(t)
		tex.WriteByte(0)
	}
	place(bsp.LumpTexDataStringData, tex.Bytes())

	if !b.NoStaticProps {
		sprp := b.staticPropLump()
		// The game lump directory is one entry long and the sprp data follows it.
		subOffset := dirEnd + body.Len() + 4 + 16
		var dir bytes.Buffer
		le(&dir, int32(1))
		le(&dir, uint32(0x73707270))
		le(&dir, uint16(0))
		le(&dir, uint16(10))
		le(&dir, int32(subOffset))
		le(&dir, int32(len(sprp)))
		place(bsp.LumpGame, dir.Bytes())
		body.Write(sprp)
	}

	version := b.Version
	if version == 0 {
		version = 20
	}
	if b.Alternate {
		version = 21
	}

	var out bytes.Buffer
	out.WriteString(bsp.Magic)
	le(&out, version)
	for _, l := range lumps {
		if b.Alternate {
			le(&out, int32(0))
			le(&out, l.Offset)
			le(&out, l.Length)
			le(&out, int32(0))
		} else {
			le(&out, l.Offset)
			le(&out, l.Length)
			le(&out, int32(0))
			le(&out, int32(0))
		}
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

func (b *Builder) staticPropLump() []byte {
	stride := b.Stride
	if stride == 0 {
		stride = 60
	}

	var buf bytes.Buffer
	le(&buf, int32(len(b.Models)))
	for _, m := range b.Models {
		name := make([]byte, 128)
		copy(name, m)
		buf.Write(name)
	}
	le(&buf, int32(b.Leaves))
	buf.Write(make([]byte, b.Leaves*2))
	le(&buf, int32(len(b.Props)))
	for _, p := range b.Props {
		rec := make([]byte, stride)
		binary.LittleEndian.PutUint16(rec[24:], p.Model)
		binary.LittleEndian.PutUint32(rec[32:], uint32(p.Skin))
		buf.Write(rec)
	}
	return buf.Bytes()
}

// WriteFile writes the container to dir/name and returns its path.
func (b *Builder) WriteFile(tb testing.TB, dir, name string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("create container dir: %v", err)
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		tb.Fatalf("write container: %v", err)
	}
	return path
}

func le(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}
