package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	GameDir             string
	ContentRoots        []string
	RenameNav           bool
	GenParticleManifest bool
	WorkerCount         int
	ProbeWorkers        int

	// Keyword tables marking entity properties as asset references.
	SoundKeys           []string
	ModelKeys           []string
	MaterialKeys        []string
	VMTMaterialKeywords []string

	// Optional backends; empty disables them.
	DatabaseURL   string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	MetricsFile   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		GameDir:             getEnv("GAME_DIR", ""),
		ContentRoots:        getEnvList("CONTENT_ROOTS", nil),
		RenameNav:           getEnvBool("RENAME_NAV", false),
		GenParticleManifest: getEnvBool("GEN_PARTICLE_MANIFEST", false),
		WorkerCount:         getEnvInt("WORKER_COUNT", 4),
		ProbeWorkers:        getEnvInt("PROBE_WORKERS", 8),
		SoundKeys:           getEnvList("SOUND_KEYS", nil),
		ModelKeys:           getEnvList("MODEL_KEYS", nil),
		MaterialKeys:        getEnvList("MATERIAL_KEYS", nil),
		VMTMaterialKeywords: getEnvList("VMT_MATERIAL_KEYWORDS", nil),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		Neo4jURI:            getEnv("NEO4J_URI", ""),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", ""),
		MetricsFile:         getEnv("METRICS_FILE", ""),
	}
}

// Roots returns the content roots in precedence order: the game directory
// first, then CONTENT_ROOTS, without duplicates.
func (c *Config) Roots() []string {
	seen := make(map[string]struct{})
	var roots []string
	for _, r := range append([]string{c.GameDir}, c.ContentRoots...) {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		roots = append(roots, r)
	}
	return roots
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
