package bsp

import (
	"bytes"
	"strings"
)

// skyboxFaces are the cube face suffixes of a skybox material set.
var skyboxFaces = []string{"bk", "dn", "ft", "lf", "rt", "up"}

// DecodeTextures converts the texture name table into material paths and
// appends the materials implied by worldspawn and the level name.
func DecodeTextures(entities []Entity, data []byte, mapName string) []string {
	return LevelTextures(entities, TextureNames(data), mapName)
}

// TextureNames splits the NUL-separated texture name table. Empty names are
// dropped.
func TextureNames(data []byte) []string {
	var names []string
	for _, raw := range bytes.Split(data, []byte{0}) {
		if len(raw) == 0 {
			continue
		}
		names = append(names, string(raw))
	}
	return names
}

// LevelTextures maps texture table names to material paths and appends the
// skybox, detail and menu photo materials.
func LevelTextures(entities []Entity, names []string, mapName string) []string {
	textures := make([]string, 0, len(names)+len(skyboxFaces)*2+2)
	for _, name := range names {
		textures = append(textures, MaterialPath(name))
	}

	if worldspawn, ok := FindEntity(entities, "worldspawn"); ok {
		if sky, ok := worldspawn.Get("skyname"); ok {
			textures = append(textures, SkyboxMaterials(sky)...)
		}
		if detail, ok := worldspawn.Get("detailmaterial"); ok {
			textures = append(textures, "materials/"+detail+".vmt")
		}
	}

	return append(textures, "materials/vgui/maps/menu_photos_"+mapName+".vmt")
}

// MaterialPath maps a texture table name to its .vmt path. Names with a
// leading slash live at the root of the materials directory.
func MaterialPath(name string) string {
	if strings.HasPrefix(name, "/") {
		return "materials" + name + ".vmt"
	}
	return "materials/" + name + ".vmt"
}

// SkyboxMaterials returns the twelve face materials (LDR and HDR) of a sky.
func SkyboxMaterials(sky string) []string {
	out := make([]string, 0, len(skyboxFaces)*2)
	for _, face := range skyboxFaces {
		out = append(out,
			"materials/skybox/"+sky+face+".vmt",
			"materials/skybox/"+sky+"_hdr"+face+".vmt",
		)
	}
	return out
}
