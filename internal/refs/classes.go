package refs

import (
	"path/filepath"
	"strings"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"

	"github.com/rs/zerolog/log"
)

// classRule adds materials implied by an entity class. Rules match on a
// substring of the classname and are applied independently of each other.
type classRule struct {
	pattern   string
	materials func(x *Extractor, e bsp.Entity) []string
}

var classRules = []classRule{
	{pattern: "sprite", materials: spriteMaterials},
	{pattern: "item_teamflag", materials: teamFlagMaterials},
	{pattern: "env_funnel", materials: fixed("sprites/flare6.vmt")},
	{pattern: "env_embers", materials: fixed("particle/fire.vmt")},
	{pattern: "vgui_slideshow_display", materials: (*Extractor).slideshowMaterials},
}

func fixed(material string) func(*Extractor, bsp.Entity) []string {
	return func(*Extractor, bsp.Entity) []string { return []string{material} }
}

func spriteMaterials(_ *Extractor, e bsp.Entity) []string {
	if model, ok := e.Get("model"); ok {
		return []string{model}
	}
	return nil
}

func teamFlagMaterials(_ *Extractor, e bsp.Entity) []string {
	var out []string
	if trail, ok := e.Get("flag_trail"); ok {
		out = append(out, "effects/"+trail, "effects/"+trail+"_red", "effects/"+trail+"_blu")
	}
	if icon, ok := e.Get("flag_icon"); ok {
		out = append(out, "vgui/"+icon, "vgui/"+icon+"_red", "vgui/"+icon+"_blu")
	}
	return out
}

// slideshowMaterials lists every material in the slideshow's directory
// (subdirectories excluded).
func (x *Extractor) slideshowMaterials(e bsp.Entity) []string {
	dir, ok := e.Get("directory")
	if !ok || x.GameDir == "" || x.Lister == nil {
		return nil
	}

	full := filepath.Join(x.GameDir, "materials", "vgui", dir)
	names, err := x.Lister.ListFiles(full)
	if err != nil {
		log.Debug().Err(err).Str("dir", full).Msg("Slideshow directory not readable")
		return nil
	}

	var out []string
	for _, name := range names {
		if strings.HasSuffix(name, ".vmt") {
			out = append(out, "vgui/"+dir+"/"+name)
		}
	}
	return out
}
