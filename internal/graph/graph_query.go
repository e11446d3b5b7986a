package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Dependent is a level that requires a given asset.
type Dependent struct {
	Level string
	Kind  string
}

// GraphQuerier answers dependency questions from the level graph.
type GraphQuerier struct {
	driver neo4j.DriverWithContext
}

// NewGraphQuerier creates a new graph querier.
func NewGraphQuerier(driver neo4j.DriverWithContext) *GraphQuerier {
	return &GraphQuerier{driver: driver}
}

// LevelsRequiring lists the levels that require the asset at path.
func (gq *GraphQuerier) LevelsRequiring(ctx context.Context, path string) ([]Dependent, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (l:Level)-[:REQUIRES]->(a:Asset {path: $path})
		RETURN l.name AS level, a.kind AS kind
		ORDER BY l.name
	`, map[string]any{"path": path})
	if err != nil {
		return nil, fmt.Errorf("query dependents: %w", err)
	}

	out, err := readDependents(ctx, result)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("asset", path).Int("levels", len(out)).Msg("Graph query complete")
	return out, nil
}

// SharedAsset is an asset required by several levels.
type SharedAsset struct {
	Path   string
	Levels int
}

// SharedAssets returns the assets required by more than one level, most
// shared first, at most limit of them.
func (gq *GraphQuerier) SharedAssets(ctx context.Context, limit int) ([]SharedAsset, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (l:Level)-[:REQUIRES]->(a:Asset)
		WITH a.path AS path, count(l) AS levels
		WHERE levels > 1
		RETURN path, levels
		ORDER BY levels DESC, path
		LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("query shared assets: %w", err)
	}

	return readShared(ctx, result)
}

// recordStream is the part of neo4j.ResultWithContext the readers use.
type recordStream interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

func readDependents(ctx context.Context, rs recordStream) ([]Dependent, error) {
	var out []Dependent
	for rs.Next(ctx) {
		record := rs.Record()
		level, _ := record.Get("level")
		kind, _ := record.Get("kind")

		out = append(out, Dependent{
			Level: fmt.Sprintf("%v", level),
			Kind:  fmt.Sprintf("%v", kind),
		})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read dependents: %w", err)
	}
	return out, nil
}

func readShared(ctx context.Context, rs recordStream) ([]SharedAsset, error) {
	var out []SharedAsset
	for rs.Next(ctx) {
		record := rs.Record()
		path, _ := record.Get("path")
		levels, _ := record.Get("levels")
		n, _ := levels.(int64)

		out = append(out, SharedAsset{Path: fmt.Sprintf("%v", path), Levels: int(n)})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read shared assets: %w", err)
	}
	return out, nil
}
