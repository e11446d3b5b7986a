// Package auxfiles finds the per-level side-car files (soundscapes, nav
// meshes, radar overviews, loading screens, scripts) that live next to a
// compiled level in the game's content roots.
package auxfiles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Kind classifies a side-car file.
type Kind string

const (
	KindSoundscape         Kind = "soundscape"
	KindSoundscript        Kind = "soundscript"
	KindNav                Kind = "nav"
	KindDetail             Kind = "detail"
	KindVehicleScript      Kind = "vehiclescript"
	KindEffectScript       Kind = "scriptfile"
	KindRes                Kind = "res"
	KindRadar              Kind = "radar"
	KindRadarImage         Kind = "radar_image"
	KindLoadingScreenKV    Kind = "loadingscreen_kv"
	KindLoadingScreenText  Kind = "loadingscreen_text"
	KindLoadingScreenImage Kind = "loadingscreen_image"
	KindMapIcon            Kind = "map_icon"
	KindParticleManifest   Kind = "particle_manifest"
	KindLocalization       Kind = "localization"
	KindVScript            Kind = "vscript"
)

// File pairs the path a file takes inside the packed level with the path it
// was found at.
type File struct {
	Kind     Kind
	Internal string
	External string
}

// Result is the outcome of one resolution pass.
type Result struct {
	// Files lists found side-car files in catalogue order.
	Files []File
	// Textures lists materials referenced by the radar overview.
	Textures []string
}

// Resolver probes content roots for side-car files. Roots are searched in
// order and the first root holding a file wins.
type Resolver struct {
	Roots []string
	// RenameNav stores the nav mesh as maps/embed.nav.
	RenameNav bool
	// GenParticleManifest skips the level's own particle manifest because
	// one will be generated.
	GenParticleManifest bool
	// MaterialKeywords are the keys whose values name materials inside
	// descriptor files.
	MaterialKeywords []string
	// Workers bounds concurrent probes (default 8).
	Workers int
}

// candidate is one relative path that satisfies a catalogue entry.
type candidate struct {
	internal string
	rel      string
}

// entry is one catalogue item. Candidates are tried in order within each root.
type entry struct {
	kind       Kind
	candidates []candidate
}

func single(kind Kind, rel string) entry {
	return entry{kind: kind, candidates: []candidate{{internal: rel, rel: rel}}}
}

// Resolve runs the full catalogue for a level. Missing files are left out of
// the result. A cancelled context yields bsp.ErrCancelled and no result.
func (r *Resolver) Resolve(ctx context.Context, entities []bsp.Entity, mapName string) (*Result, error) {
	res := &Result{}

	found, err := r.probe(ctx, r.catalogue(entities, mapName))
	if err != nil {
		return nil, err
	}
	res.Files = append(res.Files, found...)

	// The radar overview names its images, so they can only be probed once
	// the overview itself has been found.
	for _, f := range found {
		if f.Kind != KindRadar {
			continue
		}
		images, textures, err := r.radarEntries(f.External)
		if err != nil {
			log.Warn().Err(err).Str("file", f.External).Msg("Unreadable radar overview")
			continue
		}
		res.Textures = append(res.Textures, textures...)
		imgs, err := r.probe(ctx, images)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, imgs...)
	}

	levelTexts, err := r.levelTextFiles(ctx, mapName)
	if err != nil {
		return nil, err
	}
	res.Files = append(res.Files, levelTexts...)

	scripts, err := r.probe(ctx, vscriptEntries(entities))
	if err != nil {
		return nil, err
	}
	res.Files = append(res.Files, scripts...)

	res.Files = dedupe(res.Files)
	log.Debug().Str("level", mapName).Int("files", len(res.Files)).Msg("Resolved auxiliary files")
	return res, nil
}

// catalogue lists the entries that do not depend on another file's content.
func (r *Resolver) catalogue(entities []bsp.Entity, mapName string) []entry {
	entries := []entry{
		{kind: KindSoundscape, candidates: []candidate{
			{internal: "scripts/soundscapes_" + mapName + ".txt", rel: "scripts/soundscapes_" + mapName + ".txt"},
			{internal: "scripts/soundscapes_" + mapName + ".vsc", rel: "scripts/soundscapes_" + mapName + ".vsc"},
		}},
		single(KindSoundscript, "maps/"+mapName+"_level_sounds.txt"),
	}

	nav := single(KindNav, "maps/"+mapName+".nav")
	if r.RenameNav {
		nav.candidates[0].internal = "maps/embed.nav"
	}
	entries = append(entries, nav)

	if ws, ok := bsp.FindEntity(entities, "worldspawn"); ok {
		if detail, ok := entityPath(ws.Value("detailvbsp")); ok {
			entries = append(entries, single(KindDetail, detail))
		}
	}

	entries = append(entries, entityFileEntries(entities, "vehiclescript", KindVehicleScript)...)
	entries = append(entries, entityFileEntries(entities, "scriptfile", KindEffectScript)...)

	if pd, ok := bsp.FindEntity(entities, "tf_logic_player_destruction"); ok {
		if res, ok := entityPath(pd.Value("res_file")); ok {
			entries = append(entries, single(KindRes, res))
		}
	}

	entries = append(entries,
		single(KindRadar, "resource/overviews/"+mapName+".txt"),
		single(KindLoadingScreenKV, "maps/"+mapName+".kv"),
		single(KindLoadingScreenText, "maps/"+mapName+".txt"),
		entry{kind: KindLoadingScreenImage, candidates: []candidate{
			{internal: "maps/" + mapName + ".jpg", rel: "maps/" + mapName + ".jpg"},
			{internal: "maps/" + mapName + ".jpg", rel: "maps/" + mapName + ".jpeg"},
		}},
	)

	for _, res := range []string{"360p", "1080p"} {
		entries = append(entries, single(KindMapIcon,
			"materials/panorama/images/map_icons/screenshots/"+res+"/"+mapName+".png"))
	}

	return entries
}

// entityFileEntries returns one entry per distinct value of key.
func entityFileEntries(entities []bsp.Entity, key string, kind Kind) []entry {
	seen := make(map[string]struct{})
	var out []entry
	for _, e := range entities {
		v, ok := entityPath(e.Value(key))
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, single(kind, v))
	}
	return out
}

// entityPath returns an entity-supplied file name as a slash-separated path
// relative to a content root. Empty names and names that would leave the
// root are rejected.
func entityPath(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	rel := strings.ReplaceAll(v, `\`, "/")
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		log.Debug().Str("path", v).Msg("Ignoring entity path outside the content roots")
		return "", false
	}
	return rel, true
}

// probe checks every (entry, root) pair concurrently, then picks for each
// entry the hit from the earliest root. Results are in entry order.
func (r *Resolver) probe(ctx context.Context, entries []entry) ([]File, error) {
	if len(entries) == 0 || len(r.Roots) == 0 {
		return nil, checkCancelled(ctx)
	}

	// hits[e][root] is the index of the matching candidate, or -1.
	hits := make([][]int, len(entries))
	for i := range hits {
		hits[i] = make([]int, len(r.Roots))
	}

	workers := r.Workers
	if workers < 1 {
		workers = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for ei := range entries {
		if err := checkCancelled(ctx); err != nil {
			break
		}
		for ri := range r.Roots {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				hits[ei][ri] = firstExisting(r.Roots[ri], entries[ei].candidates)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, checkCancelled(ctx)
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	var out []File
	for ei, e := range entries {
		for ri, root := range r.Roots {
			ci := hits[ei][ri]
			if ci < 0 {
				continue
			}
			c := e.candidates[ci]
			out = append(out, File{Kind: e.kind, Internal: c.internal, External: joinRoot(root, c.rel)})
			log.Debug().Str("kind", string(e.kind)).Str("internal", c.internal).Str("root", root).Msg("Found auxiliary file")
			break
		}
	}
	return out, nil
}

func firstExisting(root string, candidates []candidate) int {
	for i, c := range candidates {
		if isFile(joinRoot(root, c.rel)) {
			return i
		}
	}
	return -1
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func joinRoot(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// dedupe keeps the first file for each internal path.
func dedupe(files []File) []File {
	seen := make(map[string]struct{}, len(files))
	out := files[:0]
	for _, f := range files {
		if _, ok := seen[f.Internal]; ok {
			continue
		}
		seen[f.Internal] = struct{}{}
		out = append(out, f)
	}
	return out
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", bsp.ErrCancelled, err)
	}
	return nil
}
