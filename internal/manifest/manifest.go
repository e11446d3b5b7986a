// Package manifest holds the asset manifest produced for one level: the
// textures, models, sounds and particle effects it references plus the
// side-car files found next to it.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// File maps a path inside the packed level to the file on disk.
type File struct {
	Kind     string `json:"kind"`
	Internal string `json:"internal"`
	External string `json:"external"`
}

// Manifest is immutable once built. Accessors return copies.
type Manifest struct {
	level     string
	textures  []string
	models    []string
	sounds    []string
	particles []string
	files     []File
}

func (m *Manifest) Level() string       { return m.level }
func (m *Manifest) Textures() []string  { return clone(m.textures) }
func (m *Manifest) Models() []string    { return clone(m.models) }
func (m *Manifest) Sounds() []string    { return clone(m.sounds) }
func (m *Manifest) Particles() []string { return clone(m.particles) }
func (m *Manifest) Files() []File       { return append([]File(nil), m.files...) }

// Len returns the total number of references and files.
func (m *Manifest) Len() int {
	return len(m.textures) + len(m.models) + len(m.sounds) + len(m.particles) + len(m.files)
}

// External returns the on-disk path recorded for an internal path.
func (m *Manifest) External(internal string) (string, bool) {
	for _, f := range m.files {
		if f.Internal == internal {
			return f.External, true
		}
	}
	return "", false
}

type document struct {
	Level     string   `json:"level"`
	Textures  []string `json:"textures"`
	Models    []string `json:"models"`
	Sounds    []string `json:"sounds"`
	Particles []string `json:"particles"`
	Files     []File   `json:"files"`
}

func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{
		Level:     m.level,
		Textures:  nonNil(m.textures),
		Models:    nonNil(m.models),
		Sounds:    nonNil(m.sounds),
		Particles: nonNil(m.particles),
		Files:     append([]File{}, m.files...),
	})
}

// UnmarshalJSON rebuilds a manifest through a Builder, so a decoded
// manifest holds the same deduplicated sets as one built directly.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}
	b := NewBuilder(doc.Level)
	b.AddTextures(doc.Textures...)
	b.AddModels(doc.Models...)
	b.AddSounds(doc.Sounds...)
	b.AddParticles(doc.Particles...)
	for _, f := range doc.Files {
		b.AddFile(f.Kind, f.Internal, f.External)
	}
	*m = *b.Build()
	return nil
}

// Builder accumulates references for one level. Each set keeps the first
// spelling of a path and ignores later ones that differ only by case or
// slash direction.
type Builder struct {
	level     string
	textures  orderedSet
	models    orderedSet
	sounds    orderedSet
	particles orderedSet
	files     []File
	internal  map[string]struct{}
}

func NewBuilder(level string) *Builder {
	return &Builder{level: level, internal: make(map[string]struct{})}
}

func (b *Builder) AddTextures(paths ...string)  { b.textures.add(paths...) }
func (b *Builder) AddModels(paths ...string)    { b.models.add(paths...) }
func (b *Builder) AddSounds(paths ...string)    { b.sounds.add(paths...) }
func (b *Builder) AddParticles(names ...string) { b.particles.add(names...) }

// AddFile records a side-car file. The first file for an internal path wins.
func (b *Builder) AddFile(kind, internal, external string) {
	if internal == "" || external == "" {
		return
	}
	if _, ok := b.internal[internal]; ok {
		return
	}
	b.internal[internal] = struct{}{}
	b.files = append(b.files, File{Kind: kind, Internal: internal, External: external})
}

// Build returns the manifest. The builder may keep being used; later
// additions do not affect manifests already built.
func (b *Builder) Build() *Manifest {
	return &Manifest{
		level:     b.level,
		textures:  clone(b.textures.items),
		models:    clone(b.models.items),
		sounds:    clone(b.sounds.items),
		particles: clone(b.particles.items),
		files:     append([]File(nil), b.files...),
	}
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (s *orderedSet) add(paths ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, p := range paths {
		p = Canonical(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.items = append(s.items, p)
	}
}

// Canonical trims a reference and normalizes its slashes.
func Canonical(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
