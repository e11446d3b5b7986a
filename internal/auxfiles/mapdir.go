package auxfiles

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// classifyLevelText maps a maps/<map>*.txt file name to its kind. The second
// return is false for files that should be left out.
func (r *Resolver) classifyLevelText(mapName, fileName string) (Kind, bool) {
	switch {
	case strings.HasPrefix(fileName, mapName+"_particles"), strings.HasPrefix(fileName, mapName+"_manifest"):
		return KindParticleManifest, !r.GenParticleManifest
	case strings.HasPrefix(fileName, mapName+"_level_sounds"):
		return KindSoundscript, true
	default:
		return KindLocalization, true
	}
}

// levelTextFiles lists maps/<map>*.txt in every root. A file name found in
// more than one root is taken from the earliest.
func (r *Resolver) levelTextFiles(ctx context.Context, mapName string) ([]File, error) {
	seen := make(map[string]struct{})
	var out []File

	for _, root := range r.Roots {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		dir := joinRoot(root, "maps")
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", dir).Msg("Error listing level directory")
			}
			continue
		}

		for _, e := range entries {
			name := e.Name()
			if !e.Type().IsRegular() || !strings.HasPrefix(name, mapName) || !strings.HasSuffix(name, ".txt") {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}

			kind, keep := r.classifyLevelText(mapName, name)
			if !keep {
				continue
			}
			out = append(out, File{Kind: kind, Internal: "maps/" + name, External: filepath.Join(dir, name)})
		}
	}
	return out, nil
}
