package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("GAME_DIR", "/game/tf")
	t.Setenv("CONTENT_ROOTS", " /custom , ,/game/tf,/extra")
	t.Setenv("RENAME_NAV", "true")
	t.Setenv("WORKER_COUNT", "not a number")
	t.Setenv("SOUND_KEYS", "message,sound")
	t.Setenv("NEO4J_URI", "")

	cfg := Load()
	assert.Equal(t, "/game/tf", cfg.GameDir)
	assert.Equal(t, []string{"/custom", "/game/tf", "/extra"}, cfg.ContentRoots)
	assert.True(t, cfg.RenameNav)
	assert.False(t, cfg.GenParticleManifest)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, []string{"message", "sound"}, cfg.SoundKeys)
	assert.Empty(t, cfg.ModelKeys)
	assert.Empty(t, cfg.Neo4jURI)
	assert.Equal(t, []string{"/game/tf", "/custom", "/extra"}, cfg.Roots())
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG", "yes")
	assert.True(t, getEnvBool("FLAG", true))
	t.Setenv("FLAG", "0")
	assert.False(t, getEnvBool("FLAG", true))
}
