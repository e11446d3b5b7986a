// Package refs derives asset references from decoded level entities.
package refs

import (
	"os"
	"regexp"
	"strings"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
)

// soundTrim is stripped from both ends of sound paths. These are the
// engine's sound-channel and mixing prefix characters.
const soundTrim = "*#@><^()}$!? "

var screenOverlayPattern = regexp.MustCompile(`r_screenoverlay ([^,]+),`)

// References holds the asset paths referenced by entities. Lists may contain
// duplicates; the manifest deduplicates them.
type References struct {
	Textures  []string
	Models    []string
	Sounds    []string
	Particles []string
}

// DirLister lists the regular files in a directory.
type DirLister interface {
	ListFiles(dir string) ([]string, error)
}

// OSLister lists files on the local filesystem.
type OSLister struct{}

func (OSLister) ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Extractor derives references from entities. Apart from the slideshow
// class, which lists a directory through Lister, extraction only reads its
// arguments.
type Extractor struct {
	Keys Keywords
	// GameDir is the game content root searched for slideshow materials.
	GameDir string
	Lister  DirLister
}

// NewExtractor returns an extractor that lists slideshow directories on disk.
func NewExtractor(keys Keywords, gameDir string) *Extractor {
	return &Extractor{Keys: keys, GameDir: gameDir, Lister: OSLister{}}
}

// Extract walks every entity and property. Nothing here fails: a property
// that matches no rule is skipped.
func (x *Extractor) Extract(entities []bsp.Entity) References {
	var refs References
	refs.Textures = x.textures(entities)
	refs.Models = x.models(entities)
	refs.Sounds = x.sounds(entities)
	refs.Particles = particles(entities)
	return refs
}

func (x *Extractor) textures(entities []bsp.Entity) []string {
	materialKeys := newKeySet(x.Keys.Material)

	var out []string
	for _, ent := range entities {
		var materials []string
		for _, p := range ent.Unique() {
			if !materialKeys.has(p.Key) {
				continue
			}
			materials = append(materials, p.Value)
			if strings.HasPrefix(strings.ToLower(p.Key), "team_icon") {
				materials = append(materials, p.Value+"_locked")
			}
		}

		class := ent.ClassName()
		for _, rule := range classRules {
			if strings.Contains(class, rule.pattern) {
				materials = append(materials, rule.materials(x, ent)...)
			}
		}

		for _, m := range materials {
			out = append(out, entityMaterialPath(m))
		}
	}

	// Screen overlays set through outputs, deduplicated over the whole level.
	seen := make(map[string]struct{})
	for _, ent := range entities {
		for _, p := range ent.Properties {
			match := screenOverlayPattern.FindStringSubmatch(p.Value)
			if match == nil {
				continue
			}
			mat := strings.ReplaceAll(match[1], ".vmt", "")
			if _, ok := seen[mat]; ok {
				continue
			}
			seen[mat] = struct{}{}
			out = append(out, "materials/"+mat+".vmt")
		}
	}

	return out
}

func entityMaterialPath(m string) string {
	if !strings.HasSuffix(m, ".vmt") && !strings.HasSuffix(m, ".spr") {
		m += ".vmt"
	}
	return "materials/" + m
}

func (x *Extractor) models(entities []bsp.Entity) []string {
	modelKeys := newKeySet(x.Keys.Model)

	var out []string
	for _, ent := range entities {
		class := ent.ClassName()
		switch {
		case strings.HasPrefix(class, "func_"):
			// Brush entities only reference models through their gibs.
			if gib, ok := ent.Get("gibmodel"); ok {
				out = append(out, gib)
			}
		case strings.HasPrefix(class, "trigger_"), strings.Contains(class, "sprite"):
			// Their model key names a brush or a material, not a model.
		default:
			for _, p := range ent.Unique() {
				switch {
				case modelKeys.has(p.Key):
					out = append(out, p.Value)
				case p.Value == "item_sodacan" || p.Value == "env_beverage":
					out = append(out, "models/can.mdl")
				case p.Value == "tf_projectile_throwable":
					out = append(out, "models/props_gameplay/small_loaf.mdl")
				}
			}
		}
	}
	return out
}

func (x *Extractor) sounds(entities []bsp.Entity) []string {
	soundKeys := newKeySet(x.Keys.Sound)

	var out []string
	for _, ent := range entities {
		for _, p := range ent.Properties {
			if soundKeys.has(p.Key) {
				out = append(out, soundPath(p.Value))
				continue
			}
			out = append(out, outputSounds(p.Value)...)
		}
	}
	return out
}

// outputSounds extracts sounds played by an entity output. Outputs are
// comma separated (target,input,parameter,delay,times). A sound follows
// either an input field such as PlayVO, or a "play" console command inside
// the parameter field.
func outputSounds(value string) []string {
	if !strings.Contains(value, "PlayVO") && !strings.Contains(value, "play") {
		return nil
	}

	var out []string
	fields := strings.Split(value, ",")
	for i, f := range fields {
		switch {
		case f == "PlayVO" || f == "playgamesound":
			if i+1 < len(fields) && strings.TrimSpace(fields[i+1]) != "" {
				out = append(out, soundPath(fields[i+1]))
			}
		case strings.HasPrefix(f, "play ") || strings.HasPrefix(f, "playgamesound "):
			if words := strings.Fields(f); len(words) > 1 {
				out = append(out, soundPath(words[1]))
			}
		}
	}
	return out
}

func soundPath(v string) string {
	return "sound/" + strings.Trim(v, soundTrim)
}

func particles(entities []bsp.Entity) []string {
	var out []string
	for _, ent := range entities {
		for _, p := range ent.Unique() {
			if strings.EqualFold(p.Key, "effect_name") {
				out = append(out, p.Value)
			}
		}
	}
	return out
}
