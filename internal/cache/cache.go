package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS decoded_levels (
	digest     TEXT PRIMARY KEY,
	level      TEXT NOT NULL,
	payload    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	selectRecord = `SELECT payload FROM decoded_levels WHERE digest = $1`
	upsertRecord = `
INSERT INTO decoded_levels (digest, level, payload)
VALUES ($1, $2, $3)
ON CONFLICT (digest) DO UPDATE SET level = EXCLUDED.level, payload = EXCLUDED.payload, created_at = now()`
)

// DB is the subset of *pgxpool.Pool the cache uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Record is the part of a decoded level that depends only on the container's
// bytes. Anything derived from content roots or keyword tables is recomputed
// on every resolution.
type Record struct {
	Entities     [][]bsp.Property `json:"entities"`
	TextureNames []string         `json:"texture_names,omitempty"`
	Models       []string         `json:"models,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// NewRecord captures the container-derived fields of level.
func NewRecord(level *bsp.Level) *Record {
	rec := &Record{
		Entities:     make([][]bsp.Property, len(level.Entities)),
		TextureNames: level.TextureNames,
	}
	for i, e := range level.Entities {
		rec.Entities[i] = e.Properties
	}
	if level.StaticProps != nil {
		rec.Models = level.StaticProps.Models
	}
	for _, w := range level.Warnings {
		rec.Warnings = append(rec.Warnings, w.Error())
	}
	return rec
}

// Level rebuilds a level from the record. name is the level name of the file
// being resolved, which may differ from the one the record was stored under.
func (r *Record) Level(name, path string) *bsp.Level {
	entities := make([]bsp.Entity, len(r.Entities))
	for i, props := range r.Entities {
		entities[i] = bsp.NewEntity(props...)
	}
	warnings := make([]error, len(r.Warnings))
	for i, w := range r.Warnings {
		warnings[i] = errors.New(w)
	}
	return &bsp.Level{
		Name:         name,
		Path:         path,
		Entities:     entities,
		TextureNames: r.TextureNames,
		Textures:     bsp.LevelTextures(entities, r.TextureNames, name),
		StaticProps:  &bsp.StaticProps{Models: r.Models},
		Warnings:     warnings,
	}
}

// LevelCache provides in-memory + PostgreSQL-backed caching of decoded
// levels, keyed by the digest of the container's bytes.
type LevelCache struct {
	db     DB
	mu     sync.RWMutex
	memory map[digest.Digest]*Record

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewLevelCache creates a cache. A nil db keeps records in memory only.
func NewLevelCache(db DB) (*LevelCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &LevelCache{
		db:     db,
		memory: make(map[digest.Digest]*Record),
		enc:    enc,
		dec:    dec,
	}, nil
}

// EnsureSchema creates the decoded_levels table.
func (c *LevelCache) EnsureSchema(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	if _, err := c.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create decoded_levels: %w", err)
	}
	return nil
}

// DigestFile returns the sha256 digest of the file at path.
func DigestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open container: %w", err)
	}
	defer f.Close()

	return DigestReader(f)
}

// DigestReader returns the sha256 digest of r's remaining bytes.
func DigestReader(r io.Reader) (digest.Digest, error) {
	d, err := digest.Canonical.FromReader(r)
	if err != nil {
		return "", fmt.Errorf("digest container: %w", err)
	}
	return d, nil
}

// Get retrieves a cached record.
func (c *LevelCache) Get(ctx context.Context, d digest.Digest) (*Record, bool) {
	// Check in-memory cache first.
	c.mu.RLock()
	if rec, ok := c.memory[d]; ok {
		c.mu.RUnlock()
		return rec, true
	}
	c.mu.RUnlock()

	if c.db == nil {
		return nil, false
	}

	var payload []byte
	if err := c.db.QueryRow(ctx, selectRecord, d.String()).Scan(&payload); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Str("digest", d.String()).Msg("Level cache lookup failed")
		}
		return nil, false
	}

	rec, err := c.decode(payload)
	if err != nil {
		log.Warn().Err(err).Str("digest", d.String()).Msg("Discarding unreadable cached level")
		return nil, false
	}

	// Populate in-memory cache.
	c.mu.Lock()
	c.memory[d] = rec
	c.mu.Unlock()

	return rec, true
}

// Set stores a record in memory and, when configured, in PostgreSQL. level
// is informational only.
func (c *LevelCache) Set(ctx context.Context, d digest.Digest, level string, rec *Record) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	c.mu.Lock()
	c.memory[d] = rec
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	payload, err := c.encode(rec)
	if err != nil {
		return err
	}
	if _, err := c.db.Exec(ctx, upsertRecord, d.String(), level, payload); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Len returns the number of records held in memory.
func (c *LevelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

// Close releases the codec resources.
func (c *LevelCache) Close() {
	c.enc.Close()
	c.dec.Close()
}

func (c *LevelCache) encode(rec *Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode level record: %w", err)
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *LevelCache) decode(payload []byte) (*Record, error) {
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress level record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode level record: %w", err)
	}
	return &rec, nil
}
