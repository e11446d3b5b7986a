// Package resolver turns compiled level files into asset manifests: it
// decodes each container, extracts entity references, finds side-car files
// and assembles the result.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/alpaka-gaming/source-compiler/internal/auxfiles"
	"github.com/alpaka-gaming/source-compiler/internal/bsp"
	"github.com/alpaka-gaming/source-compiler/internal/cache"
	"github.com/alpaka-gaming/source-compiler/internal/manifest"
	"github.com/alpaka-gaming/source-compiler/internal/metrics"
	"github.com/alpaka-gaming/source-compiler/internal/refs"
	"github.com/alpaka-gaming/source-compiler/internal/worker"

	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog/log"
)

// Options configures a Resolver.
type Options struct {
	// Roots are the content roots searched for side-car files, in
	// precedence order.
	Roots []string
	// GameDir is the game content directory listed for slideshow materials.
	GameDir             string
	RenameNav           bool
	GenParticleManifest bool
	Keywords            refs.Keywords
	MaterialKeywords    []string
	// Workers bounds how many levels resolve at once.
	Workers int
	// ProbeWorkers bounds concurrent side-car probes per level.
	ProbeWorkers int
	// Layout overrides the static prop record layout.
	Layout bsp.RecordLayout
}

// Resolver produces manifests. Cache and Metrics are optional.
type Resolver struct {
	opts      Options
	extractor *refs.Extractor
	aux       *auxfiles.Resolver

	Cache   *cache.LevelCache
	Metrics *metrics.Metrics
}

// New creates a resolver.
func New(opts Options) *Resolver {
	return &Resolver{
		opts:      opts,
		extractor: refs.NewExtractor(opts.Keywords, opts.GameDir),
		aux: &auxfiles.Resolver{
			Roots:               opts.Roots,
			RenameNav:           opts.RenameNav,
			GenParticleManifest: opts.GenParticleManifest,
			MaterialKeywords:    opts.MaterialKeywords,
			Workers:             opts.ProbeWorkers,
		},
	}
}

// Outcome is the result for one container in a batch.
type Outcome struct {
	Path     string
	Manifest *manifest.Manifest
	Err      error
}

// ResolveAll resolves every path through a worker pool. A failure is
// recorded in that path's Outcome and does not affect the others.
func (r *Resolver) ResolveAll(ctx context.Context, paths []string) []Outcome {
	pool := worker.NewPool(r.opts.Workers, r.ResolveLevel)
	tasks := pool.Execute(ctx, paths)

	out := make([]Outcome, len(tasks))
	for i, t := range tasks {
		out[i] = Outcome{Path: t.Input, Manifest: t.Result, Err: t.Err}
		if t.Err != nil && r.Metrics != nil {
			r.Metrics.ObserveFailure(t.Err)
		}
	}
	return out
}

// ResolveLevel produces the manifest for the container at path. With a
// cache, a container seen before is not decoded again; references and
// side-car files are always resolved against the current options.
func (r *Resolver) ResolveLevel(ctx context.Context, path string) (*manifest.Manifest, error) {
	start := time.Now()

	level, err := r.decode(ctx, path)
	if err != nil {
		return nil, err
	}

	m, err := r.assemble(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	if r.Metrics != nil {
		r.Metrics.ObserveManifest(m, len(level.Warnings))
		r.Metrics.DecodeSeconds.Observe(time.Since(start).Seconds())
	}

	log.Info().
		Str("level", level.Name).
		Int("entities", len(level.Entities)).
		Int("textures", len(m.Textures())).
		Int("models", len(m.Models())).
		Int("sounds", len(m.Sounds())).
		Int("files", len(m.Files())).
		Msg("Level resolved")
	return m, nil
}

// decode returns the decoded level, from the cache when the container's
// digest is known.
func (r *Resolver) decode(ctx context.Context, path string) (*bsp.Level, error) {
	var key digest.Digest
	if r.Cache != nil {
		d, err := cache.DigestFile(path)
		if err != nil {
			return nil, err
		}
		if rec, ok := r.Cache.Get(ctx, d); ok {
			log.Debug().Str("path", path).Str("digest", d.String()).Msg("Level cache hit")
			return rec.Level(bsp.LevelName(path), path), nil
		}
		key = d
	}

	var opts []bsp.StaticPropOption
	if r.opts.Layout != nil {
		opts = append(opts, bsp.WithRecordLayout(r.opts.Layout))
	}
	level, err := bsp.Decode(ctx, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, w := range level.Warnings {
		log.Warn().Err(w).Str("level", level.Name).Msg("Skipped entity record")
	}

	if r.Cache != nil {
		if err := r.Cache.Set(ctx, key, level.Name, cache.NewRecord(level)); err != nil {
			log.Warn().Err(err).Str("level", level.Name).Msg("Failed to cache level")
		}
	}
	return level, nil
}

// assemble combines the decoded level with extracted references and
// side-car files.
func (r *Resolver) assemble(ctx context.Context, level *bsp.Level) (*manifest.Manifest, error) {
	found := r.extractor.Extract(level.Entities)

	aux, err := r.aux.Resolve(ctx, level.Entities, level.Name)
	if err != nil {
		return nil, err
	}

	b := manifest.NewBuilder(level.Name)
	b.AddTextures(level.Textures...)
	b.AddTextures(found.Textures...)
	b.AddTextures(aux.Textures...)
	if level.StaticProps != nil {
		b.AddModels(level.StaticProps.ModelNames()...)
	}
	b.AddModels(found.Models...)
	b.AddSounds(found.Sounds...)
	b.AddParticles(found.Particles...)
	for _, f := range aux.Files {
		b.AddFile(string(f.Kind), f.Internal, f.External)
	}
	return b.Build(), nil
}
