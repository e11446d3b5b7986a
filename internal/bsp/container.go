package bsp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Level is the decoded content of one container. It is not modified after
// Decode returns.
type Level struct {
	// Name is the container's base file name without extension.
	Name     string
	Path     string
	Size     int64
	Lumps    *LumpTable
	Entities []Entity
	// TextureNames is the raw texture name table.
	TextureNames []string
	Textures     []string
	StaticProps  *StaticProps
	// Warnings lists entity records that were skipped.
	Warnings []error
}

// Worldspawn returns the worldspawn entity.
func (l *Level) Worldspawn() (Entity, bool) {
	return FindEntity(l.Entities, "worldspawn")
}

// File is an open container. It is not safe for concurrent use.
type File struct {
	f    *os.File
	size int64
	name string
	path string
}

// Open opens the container at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat container: %w", err)
	}
	return &File{
		f:    f,
		size: info.Size(),
		name: LevelName(path),
		path: path,
	}, nil
}

// Close releases the file handle. It is safe to call more than once.
func (c *File) Close() error {
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}

// Decode decodes every lump this package understands.
func (c *File) Decode(ctx context.Context, opts ...StaticPropOption) (*Level, error) {
	if c.f == nil {
		return nil, fmt.Errorf("decode %s: %w", c.path, os.ErrClosed)
	}
	lvl, err := DecodeReader(ctx, c.f, c.size, c.name, opts...)
	if err != nil {
		return nil, err
	}
	lvl.Path = c.path
	return lvl, nil
}

// Decode opens, decodes and closes the container at path.
func Decode(ctx context.Context, path string, opts ...StaticPropOption) (*Level, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Decode(ctx, opts...)
}

// DecodeReader decodes a container from r. name is the level name used for
// implied per-level materials. The context is checked between lumps.
func DecodeReader(ctx context.Context, r io.ReadSeeker, size int64, name string, opts ...StaticPropOption) (*Level, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek container start: %w", err)
	}

	table, err := ReadLumpTable(r, size)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	entData, err := readLump(r, table, LumpEntities)
	if err != nil {
		return nil, err
	}
	entities, warnings, err := DecodeEntities(entData)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	texData, err := readLump(r, table, LumpTexDataStringData)
	if err != nil {
		return nil, err
	}
	names := TextureNames(texData)
	textures := LevelTextures(entities, names, name)
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	props, err := DecodeStaticProps(r, size, table, opts...)
	if err != nil {
		return nil, err
	}

	return &Level{
		Name:         name,
		Size:         size,
		Lumps:        table,
		Entities:     entities,
		TextureNames: names,
		Textures:     textures,
		StaticProps:  props,
		Warnings:     warnings,
	}, nil
}

// LevelName returns the base name of path without its extension.
func LevelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
