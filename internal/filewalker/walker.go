package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// LevelExtension is the file type of compiled levels.
const LevelExtension = ".bsp"

// FindLevels expands args into compiled level paths. A file argument is
// kept as given, whatever its extension; a directory is walked for .bsp
// files. The result keeps argument order and has no duplicates.
func FindLevels(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var levels []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		levels = append(levels, p)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the decoder for that level.
			add(arg)
			continue
		}

		found, err := walk(arg)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}
	return levels, nil
}

// walk discovers all level files under the given root directory.
func walk(root string) ([]string, error) {
	var levels []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), LevelExtension) {
			levels = append(levels, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(levels)).Str("root", root).Msg("Discovered levels")
	return levels, nil
}
