package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDeduplicates(t *testing.T) {
	b := NewBuilder("m")
	b.AddTextures("materials/a.vmt", `materials\A.vmt`, "materials//b.vmt", "", "materials/b.vmt")
	b.AddSounds("sound/x.wav", "sound/x.wav")
	b.AddFile("nav", "maps/m.nav", "/a/maps/m.nav")
	b.AddFile("nav", "maps/m.nav", "/b/maps/m.nav")

	m := b.Build()
	assert.Equal(t, []string{"materials/a.vmt", "materials/b.vmt"}, m.Textures())
	assert.Equal(t, []string{"sound/x.wav"}, m.Sounds())
	assert.Equal(t, []File{{Kind: "nav", Internal: "maps/m.nav", External: "/a/maps/m.nav"}}, m.Files())
	assert.Equal(t, 4, m.Len())

	ext, ok := m.External("maps/m.nav")
	assert.True(t, ok)
	assert.Equal(t, "/a/maps/m.nav", ext)
}

func TestManifestImmutable(t *testing.T) {
	b := NewBuilder("m")
	b.AddModels("models/a.mdl")
	m := b.Build()

	models := m.Models()
	models[0] = "changed"
	b.AddModels("models/b.mdl")

	assert.Equal(t, []string{"models/a.mdl"}, m.Models())
}

func TestManifestJSON(t *testing.T) {
	b := NewBuilder("cp_test")
	b.AddTextures("materials/a.vmt")
	b.AddParticles("fire")
	b.AddFile("nav", "maps/embed.nav", "/game/maps/cp_test.nav")
	m := b.Build()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, m))
	assert.Contains(t, buf.String(), `"level": "cp_test"`)
	assert.Contains(t, buf.String(), `"models": []`)

	var got Manifest
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, m, &got)
}

func TestWriteAddList(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	for root, rel := range map[string]string{a: "materials/a.vmt", b: "models/m.mdl"} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	bld := NewBuilder("m")
	bld.AddFile("nav", "maps/m.nav", "/x/maps/m.nav")
	bld.AddTextures("materials/a.vmt", "materials/missing.vmt")
	bld.AddModels("models/m.mdl")
	bld.AddParticles("fire")

	var buf bytes.Buffer
	n, err := WriteAddList(&buf, bld.Build(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"maps/m.nav", "/x/maps/m.nav",
		"materials/a.vmt", filepath.Join(a, "materials", "a.vmt"),
		"models/m.mdl", filepath.Join(b, "models", "m.mdl"),
	}, lines)
}
