package graph

import (
	"testing"

	"github.com/alpaka-gaming/source-compiler/internal/manifest"

	"github.com/stretchr/testify/assert"
)

func TestAssetRows(t *testing.T) {
	b := manifest.NewBuilder("cp_test")
	b.AddTextures("materials/a.vmt")
	b.AddSounds("sound/x.wav")
	b.AddParticles("fire")
	b.AddFile("nav", "maps/embed.nav", "/game/maps/cp_test.nav")

	assert.Equal(t, []map[string]any{
		{"path": "materials/a.vmt", "kind": KindTexture},
		{"path": "sound/x.wav", "kind": KindSound},
		{"path": "fire", "kind": KindParticle},
		{"path": "maps/embed.nav", "kind": "nav"},
	}, assetRows(b.Build()))
}
