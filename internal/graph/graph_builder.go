package graph

import (
	"context"
	"fmt"

	"github.com/alpaka-gaming/source-compiler/internal/manifest"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Asset kinds stored on (:Asset) nodes.
const (
	KindTexture  = "texture"
	KindModel    = "model"
	KindSound    = "sound"
	KindParticle = "particle"
)

// GraphBuilder writes level dependencies to Neo4j as
// (:Level {name})-[:REQUIRES]->(:Asset {path, kind}).
type GraphBuilder struct {
	driver neo4j.DriverWithContext
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(driver neo4j.DriverWithContext) *GraphBuilder {
	return &GraphBuilder{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (l:Level) REQUIRE l.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (a:Asset) REQUIRE a.path IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

// UpsertManifest replaces the level's REQUIRES edges with the manifest's
// references and side-car files.
func (gb *GraphBuilder) UpsertManifest(ctx context.Context, m *manifest.Manifest) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (l:Level {name: $level})
			WITH l
			OPTIONAL MATCH (l)-[r:REQUIRES]->(:Asset)
			DELETE r
		`, map[string]any{"level": m.Level()}); err != nil {
			return nil, fmt.Errorf("reset level %s: %w", m.Level(), err)
		}

		_, err := tx.Run(ctx, `
			MATCH (l:Level {name: $level})
			UNWIND $assets AS asset
			MERGE (a:Asset {path: asset.path})
			SET a.kind = asset.kind
			MERGE (l)-[:REQUIRES]->(a)
		`, map[string]any{
			"level":  m.Level(),
			"assets": assetRows(m),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert assets for %s: %w", m.Level(), err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	log.Debug().Str("level", m.Level()).Int("assets", m.Len()).Msg("Level graph updated")
	return nil
}

// assetRows flattens a manifest into {path, kind} parameter maps. Side-car
// files are keyed by their internal path.
func assetRows(m *manifest.Manifest) []map[string]any {
	rows := make([]map[string]any, 0, m.Len())
	add := func(kind string, paths []string) {
		for _, p := range paths {
			rows = append(rows, map[string]any{"path": p, "kind": kind})
		}
	}
	add(KindTexture, m.Textures())
	add(KindModel, m.Models())
	add(KindSound, m.Sounds())
	add(KindParticle, m.Particles())
	for _, f := range m.Files() {
		rows = append(rows, map[string]any{"path": f.Internal, "kind": f.Kind})
	}
	return rows
}
