package bsp

// RecordLayout locates the fields read from each static prop record. The
// record schema changes between container revisions, so everything that
// depends on it lives behind this interface.
type RecordLayout interface {
	// Stride returns the byte size of one record given the number of bytes
	// left in the sub-lump and the record count.
	Stride(span int64, count int32) int64
	// ModelIndexOffset is the offset of the uint16 model index within a record.
	ModelIndexOffset() int64
	// SkinOffset is the offset of the int32 skin id within a record.
	SkinOffset() int64
}

// DerivedLayout infers the stride from the sub-lump size. Position and
// angles (24 bytes) precede the model index; the skin follows six bytes
// after it.
type DerivedLayout struct{}

func (DerivedLayout) Stride(span int64, count int32) int64 {
	if count <= 0 {
		return 0
	}
	return span / int64(count)
}

func (DerivedLayout) ModelIndexOffset() int64 { return 24 }

func (DerivedLayout) SkinOffset() int64 { return 24 + 2 + 6 }

// FixedLayout is a layout with a known stride, for revisions whose record
// size is documented.
type FixedLayout struct {
	Size int64
}

func (l FixedLayout) Stride(int64, int32) int64 { return l.Size }

func (FixedLayout) ModelIndexOffset() int64 { return 24 }

func (FixedLayout) SkinOffset() int64 { return 24 + 2 + 6 }

// minStride is the smallest stride that still contains the skin field.
func minStride(l RecordLayout) int64 {
	return l.SkinOffset() + 4
}
