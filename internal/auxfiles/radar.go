package auxfiles

import (
	"fmt"
	"os"

	"github.com/alpaka-gaming/source-compiler/internal/keyvalues"
)

// radarEntries reads a radar overview and returns catalogue entries for the
// radar images it names, plus the materials referenced by keyword.
//
// Each top-level block with a "material" value contributes
// resource/<material>_radar.dds, and one more image per child of its
// "verticalsections" block.
func (r *Resolver) radarEntries(path string) ([]entry, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read radar overview: %w", err)
	}
	root, err := keyvalues.ParseString(string(raw), "")
	if err != nil {
		return nil, nil, fmt.Errorf("parse radar overview: %w", err)
	}

	var entries []entry
	for _, overview := range root.Blocks {
		material := NormalizeMaterial(overview.Value("material", ""))
		if material == "" {
			continue
		}
		entries = append(entries, single(KindRadarImage, "resource/"+material+"_radar.dds"))

		sections := overview.Child("verticalsections")
		if sections == nil {
			continue
		}
		for _, s := range sections.Blocks {
			entries = append(entries, single(KindRadarImage, "resource/"+material+"_"+s.Name+"_radar.dds"))
		}
	}

	return entries, materialKeywordRefs(string(raw), r.MaterialKeywords), nil
}
