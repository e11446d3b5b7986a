package bsp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/alpaka-gaming/source-compiler/internal/textutil"
)

const (
	// staticPropTag is the game lump id "sprp".
	staticPropTag = 0x73707270

	modelNameSize = 128
)

type gameLumpEntry struct {
	ID      uint32
	Flags   uint16
	Version uint16
	Offset  int32
	Length  int32
}

// StaticProp is one placed prop.
type StaticProp struct {
	ModelIndex uint16
	Skin       int32
}

// StaticProps is the decoded static prop game lump.
type StaticProps struct {
	// Version is the sprp game lump version.
	Version uint16
	// Models is the model name table. Empty names keep their slot so that
	// prop model indices stay valid.
	Models []string
	// Skins holds the distinct skin ids used per model index.
	Skins [][]int32
	// Props holds every decoded prop record.
	Props []StaticProp
}

// ModelNames returns the non-empty model names.
func (s *StaticProps) ModelNames() []string {
	out := make([]string, 0, len(s.Models))
	for _, m := range s.Models {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// StaticPropOption configures DecodeStaticProps.
type StaticPropOption func(*staticPropConfig)

type staticPropConfig struct {
	layout RecordLayout
}

// WithRecordLayout overrides the record layout (default: DerivedLayout).
func WithRecordLayout(l RecordLayout) StaticPropOption {
	return func(c *staticPropConfig) {
		c.layout = l
	}
}

// DecodeStaticProps reads the static prop game lump and records which skins
// each model uses. size is the container's byte length.
func DecodeStaticProps(r io.ReadSeeker, size int64, table *LumpTable, opts ...StaticPropOption) (*StaticProps, error) {
	cfg := staticPropConfig{layout: DerivedLayout{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	sub, found, err := findStaticPropLump(r, size, table)
	if err != nil {
		return nil, err
	}
	result := &StaticProps{}
	if !found || sub.Length == 0 {
		return result, nil
	}
	result.Version = sub.Version

	end := int64(sub.Offset) + int64(sub.Length)
	if _, err := r.Seek(int64(sub.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek static prop lump: %w", err)
	}

	modelCount, err := readCount(r, LumpGame, int64(sub.Offset), modelNameSize, end)
	if err != nil {
		return nil, fmt.Errorf("model count: %w", err)
	}
	names := make([]byte, int64(modelCount)*modelNameSize)
	if _, err := io.ReadFull(r, names); err != nil {
		return nil, structuralf(LumpGame, int64(sub.Offset), "read model names: %v", err)
	}
	result.Models = make([]string, modelCount)
	for i := range result.Models {
		raw := names[i*modelNameSize : (i+1)*modelNameSize]
		result.Models[i] = textutil.CString(raw)
	}
	result.Skins = make([][]int32, modelCount)

	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("leaf list position: %w", err)
	}
	leafCount, err := readCount(r, LumpGame, pos, 2, end)
	if err != nil {
		return nil, fmt.Errorf("leaf count: %w", err)
	}
	if _, err := r.Seek(int64(leafCount)*2, io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("skip leaf list: %w", err)
	}

	var propCount int32
	if err := binary.Read(r, binary.LittleEndian, &propCount); err != nil {
		return nil, structuralf(LumpGame, pos, "read prop count: %v", err)
	}
	if propCount <= 0 {
		return result, nil
	}

	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("prop records position: %w", err)
	}
	stride := cfg.layout.Stride(end-start, propCount)
	if stride < minStride(cfg.layout) {
		return nil, decodef(LumpGame, start, "prop stride %d (%d props in %d bytes) is smaller than a record",
			stride, propCount, end-start)
	}

	result.Props = make([]StaticProp, 0, propCount)
	var field [4]byte
	for i := int64(0); i < int64(propCount); i++ {
		rec := start + i*stride
		if _, err := r.Seek(rec+cfg.layout.ModelIndexOffset(), io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek prop %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, field[:2]); err != nil {
			return nil, structuralf(LumpGame, rec, "read prop %d model index: %v", i, err)
		}
		model := binary.LittleEndian.Uint16(field[:2])

		if _, err := r.Seek(rec+cfg.layout.SkinOffset(), io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek prop %d skin: %w", i, err)
		}
		if _, err := io.ReadFull(r, field[:4]); err != nil {
			return nil, structuralf(LumpGame, rec, "read prop %d skin: %v", i, err)
		}
		skin := int32(binary.LittleEndian.Uint32(field[:4]))

		if int(model) >= len(result.Models) {
			return nil, decodef(LumpGame, rec, "prop %d references model %d of %d (stride %d)",
				i, model, len(result.Models), stride)
		}

		result.Props = append(result.Props, StaticProp{ModelIndex: model, Skin: skin})
		result.Skins[model] = appendUnique(result.Skins[model], skin)
	}

	return result, nil
}

// findStaticPropLump walks the game lump directory for the sprp entry.
func findStaticPropLump(r io.ReadSeeker, size int64, table *LumpTable) (gameLumpEntry, bool, error) {
	dir := table.Lump(LumpGame)
	if dir.Length == 0 {
		return gameLumpEntry{}, false, nil
	}
	if _, err := r.Seek(int64(dir.Offset), io.SeekStart); err != nil {
		return gameLumpEntry{}, false, fmt.Errorf("seek game lump directory: %w", err)
	}

	const entrySize = 16
	count, err := readCount(r, LumpGame, int64(dir.Offset), entrySize, dir.End())
	if err != nil {
		return gameLumpEntry{}, false, fmt.Errorf("game lump count: %w", err)
	}

	entries := make([]gameLumpEntry, count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return gameLumpEntry{}, false, structuralf(LumpGame, int64(dir.Offset), "read game lump directory: %v", err)
	}

	for _, e := range entries {
		if e.ID != staticPropTag {
			continue
		}
		if e.Offset < 0 || e.Length < 0 || int64(e.Offset)+int64(e.Length) > size {
			return gameLumpEntry{}, false, structuralf(LumpGame, int64(e.Offset),
				"static prop lump length %d exceeds container size %d", e.Length, size)
		}
		return e, true, nil
	}
	return gameLumpEntry{}, false, nil
}

// readCount reads an int32 element count and checks that count elements of
// elemSize bytes fit before limit.
func readCount(r io.ReadSeeker, lump int, offset int64, elemSize, limit int64) (int32, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, structuralf(lump, offset, "read count: %v", err)
	}
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if n < 0 || pos+int64(n)*elemSize > limit {
		return 0, structuralf(lump, offset, "count %d overruns lump end %d", n, limit)
	}
	return n, nil
}

func appendUnique(s []int32, v int32) []int32 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
