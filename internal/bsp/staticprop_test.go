package bsp_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
	"github.com/alpaka-gaming/source-compiler/internal/bsp/bsptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeProps(t *testing.T, b *bsptest.Builder, opts ...bsp.StaticPropOption) (*bsp.StaticProps, error) {
	t.Helper()
	data := b.Bytes()
	r := bytes.NewReader(data)
	table, err := bsp.ReadLumpTable(r, int64(len(data)))
	require.NoError(t, err)
	return bsp.DecodeStaticProps(r, int64(len(data)), table, opts...)
}

func TestDecodeStaticProps(t *testing.T) {
	b := &bsptest.Builder{
		Models: []string{"models/props/crate.mdl", "models/props/barrel.mdl"},
		Leaves: 3,
		Props: []bsptest.Prop{
			{Model: 0, Skin: 0},
			{Model: 1, Skin: 2},
			{Model: 0, Skin: 1},
			{Model: 0, Skin: 0},
		},
	}

	props, err := decodeProps(t, b)
	require.NoError(t, err)

	assert.Equal(t, uint16(10), props.Version)
	assert.Equal(t, b.Models, props.Models)
	assert.Len(t, props.Props, 4)
	assert.ElementsMatch(t, []int32{0, 1}, props.Skins[0])
	assert.ElementsMatch(t, []int32{2}, props.Skins[1])
}

func TestDecodeStaticPropsStrides(t *testing.T) {
	for _, stride := range []int{36, 52, 60, 76, 80} {
		b := &bsptest.Builder{
			Models: []string{"models/a.mdl"},
			Props:  []bsptest.Prop{{Model: 0, Skin: 3}, {Model: 0, Skin: 4}},
			Stride: stride,
		}
		props, err := decodeProps(t, b)
		require.NoError(t, err, "stride %d", stride)
		assert.ElementsMatch(t, []int32{3, 4}, props.Skins[0], "stride %d", stride)
	}
}

func TestDecodeStaticPropsZeroProps(t *testing.T) {
	b := &bsptest.Builder{Models: []string{"models/a.mdl"}}

	props, err := decodeProps(t, b)
	require.NoError(t, err)
	assert.Empty(t, props.Props)
	require.Len(t, props.Skins, 1)
	assert.Empty(t, props.Skins[0])
}

func TestDecodeStaticPropsMissingLump(t *testing.T) {
	props, err := decodeProps(t, &bsptest.Builder{NoStaticProps: true})
	require.NoError(t, err)
	assert.Empty(t, props.Models)
	assert.Empty(t, props.Props)
}

func TestDecodeStaticPropsModelIndexOutOfRange(t *testing.T) {
	b := &bsptest.Builder{
		Models: []string{"models/a.mdl"},
		Props:  []bsptest.Prop{{Model: 7, Skin: 0}},
	}
	_, err := decodeProps(t, b)
	require.ErrorIs(t, err, bsp.ErrDecode)
}

func TestDecodeStaticPropsWrongFixedLayout(t *testing.T) {
	// A stride too short to hold the skin field is rejected.
	b := &bsptest.Builder{
		Models: []string{"models/a.mdl"},
		Props:  []bsptest.Prop{{Model: 0, Skin: 0}, {Model: 0, Skin: 0}},
	}
	props, err := decodeProps(t, b, bsp.WithRecordLayout(bsp.FixedLayout{Size: 60}))
	require.NoError(t, err)
	assert.Len(t, props.Props, 2)

	_, err = decodeProps(t, b, bsp.WithRecordLayout(bsp.FixedLayout{Size: 20}))
	require.ErrorIs(t, err, bsp.ErrDecode)
}

func TestStaticPropsModelNames(t *testing.T) {
	p := &bsp.StaticProps{Models: []string{"models/a.mdl", "", "models/b.mdl"}}
	assert.Equal(t, []string{"models/a.mdl", "models/b.mdl"}, p.ModelNames())
}

// failingSeeker fails the n-th relative seek.
type failingSeeker struct {
	io.ReadSeeker
	n, calls int
}

var errSeek = errors.New("seek failed")

func (f *failingSeeker) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		f.calls++
		if f.calls == f.n {
			return 0, errSeek
		}
	}
	return f.ReadSeeker.Seek(offset, whence)
}

func TestDecodeStaticPropsSeekError(t *testing.T) {
	b := &bsptest.Builder{
		Models: []string{"models/a.mdl"},
		Props:  []bsptest.Prop{{Model: 0, Skin: 1}},
	}
	data := b.Bytes()
	table, err := bsp.ReadLumpTable(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	// Relative seeks: game lump count, model count, leaf list position.
	for n := 1; n <= 3; n++ {
		r := &failingSeeker{ReadSeeker: bytes.NewReader(data), n: n}
		props, err := bsp.DecodeStaticProps(r, int64(len(data)), table)
		assert.ErrorIs(t, err, errSeek, "seek %d", n)
		assert.Nil(t, props)
	}
}
