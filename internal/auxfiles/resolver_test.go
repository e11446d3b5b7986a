package auxfiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func ent(kv ...string) bsp.Entity {
	props := make([]bsp.Property, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		props = append(props, bsp.Property{Key: kv[i], Value: kv[i+1]})
	}
	return bsp.NewEntity(props...)
}

func internals(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Internal
	}
	return out
}

func TestResolveRootPrecedence(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	touch(t, b, "maps/m.nav", "b")
	wantA := touch(t, a, "maps/m.nav", "a")

	res, err := (&Resolver{Roots: []string{a, b}}).Resolve(context.Background(), nil, "m")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, File{Kind: KindNav, Internal: "maps/m.nav", External: wantA}, res.Files[0])

	res, err = (&Resolver{Roots: []string{b, a}, Workers: 1}).Resolve(context.Background(), nil, "m")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(b, "maps", "m.nav"), res.Files[0].External)
}

func TestResolveRenameNav(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "maps/m.nav", "")

	res, err := (&Resolver{Roots: []string{root}, RenameNav: true}).Resolve(context.Background(), nil, "m")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "maps/embed.nav", res.Files[0].Internal)
	assert.Equal(t, filepath.Join(root, "maps", "m.nav"), res.Files[0].External)
}

func TestResolveCatalogueOrder(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"materials/panorama/images/map_icons/screenshots/1080p/m.png",
		"materials/panorama/images/map_icons/screenshots/360p/m.png",
		"maps/m.jpeg",
		"maps/m.kv",
		"resource/ui/pd.res",
		"scripts/vehicles/jeep.txt",
		"detail/d.vbsp",
		"maps/m.nav",
		"scripts/soundscapes_m.vsc",
	} {
		touch(t, root, rel, "")
	}
	entities := []bsp.Entity{
		ent("classname", "worldspawn", "detailvbsp", "detail/d.vbsp"),
		ent("classname", "prop_vehicle_jeep", "vehiclescript", "scripts/vehicles/jeep.txt"),
		ent("classname", "prop_vehicle_jeep", "vehiclescript", "scripts/vehicles/jeep.txt"),
		ent("classname", "tf_logic_player_destruction", "res_file", "resource/ui/pd.res"),
	}

	res, err := (&Resolver{Roots: []string{root}}).Resolve(context.Background(), entities, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"scripts/soundscapes_m.vsc",
		"maps/m.nav",
		"detail/d.vbsp",
		"scripts/vehicles/jeep.txt",
		"resource/ui/pd.res",
		"maps/m.kv",
		"maps/m.jpg",
		"materials/panorama/images/map_icons/screenshots/360p/m.png",
		"materials/panorama/images/map_icons/screenshots/1080p/m.png",
	}, internals(res.Files))
	assert.Equal(t, filepath.Join(root, "maps", "m.jpeg"), res.Files[6].External)
}

func TestResolveSoundscapePrefersTxt(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "scripts/soundscapes_m.vsc", "")
	touch(t, root, "scripts/soundscapes_m.txt", "")

	res, err := (&Resolver{Roots: []string{root}}).Resolve(context.Background(), nil, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"scripts/soundscapes_m.txt"}, internals(res.Files))
}

func TestResolveRadar(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "resource/overviews/de_x.txt", `"de_x"
{
	"material"	"overviews/de_x"
	"pos_x"		"-2000"
	"verticalsections"
	{
		"default" { "AltitudeMax" "10000" }
		"lower"
		{
			"AltitudeMin"	"-10000"
		}
	}
}
`)
	touch(t, root, "resource/overviews/de_x_radar.dds", "")
	touch(t, root, "resource/overviews/de_x_lower_radar.dds", "")

	r := &Resolver{Roots: []string{root}, MaterialKeywords: []string{"material"}}
	res, err := r.Resolve(context.Background(), nil, "de_x")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"resource/overviews/de_x.txt",
		"resource/overviews/de_x_radar.dds",
		"resource/overviews/de_x_lower_radar.dds",
	}, internals(res.Files))
	assert.Equal(t, []string{"materials/overviews/de_x.vmt"}, res.Textures)
}

func TestResolveRadarMixedCaseKeys(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "resource/overviews/de_y.txt", `"de_y"
{
	"Material"	"overviews/de_y"
	"VerticalSections"
	{
		"upper" { "AltitudeMin" "100" }
	}
}
`)
	touch(t, root, "resource/overviews/de_y_radar.dds", "")
	touch(t, root, "resource/overviews/de_y_upper_radar.dds", "")

	r := &Resolver{Roots: []string{root}}
	res, err := r.Resolve(context.Background(), nil, "de_y")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"resource/overviews/de_y.txt",
		"resource/overviews/de_y_radar.dds",
		"resource/overviews/de_y_upper_radar.dds",
	}, internals(res.Files))
}

func TestResolveLevelTextFiles(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	touch(t, a, "maps/m_particles.txt", "")
	touch(t, a, "maps/m_english.txt", "a")
	touch(t, b, "maps/m_english.txt", "b")
	touch(t, b, "maps/m_french.txt", "")
	touch(t, b, "maps/other_english.txt", "")

	res, err := (&Resolver{Roots: []string{a, b}}).Resolve(context.Background(), nil, "m")
	require.NoError(t, err)
	assert.Equal(t, []File{
		{Kind: KindLocalization, Internal: "maps/m_english.txt", External: filepath.Join(a, "maps", "m_english.txt")},
		{Kind: KindParticleManifest, Internal: "maps/m_particles.txt", External: filepath.Join(a, "maps", "m_particles.txt")},
		{Kind: KindLocalization, Internal: "maps/m_french.txt", External: filepath.Join(b, "maps", "m_french.txt")},
	}, res.Files)

	res, err = (&Resolver{Roots: []string{a, b}, GenParticleManifest: true}).Resolve(context.Background(), nil, "m")
	require.NoError(t, err)
	assert.NotContains(t, internals(res.Files), "maps/m_particles.txt")
}

func TestResolveVScripts(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "scripts/vscripts/a.nut", "")
	touch(t, root, "scripts/vscripts/lib/b.nut", "")

	entities := []bsp.Entity{ent("classname", "logic_script", "vscripts", "a lib/b.nut missing")}
	res, err := (&Resolver{Roots: []string{root}}).Resolve(context.Background(), entities, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"scripts/vscripts/a.nut", "scripts/vscripts/lib/b.nut"}, internals(res.Files))
}

func TestResolveIgnoresPathsOutsideRoots(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "game")
	touch(t, parent, "secret.txt", "")
	touch(t, root, "scripts/vscripts/secret.nut", "")
	touch(t, root, "scripts/vehicles/jeep.txt", "")

	entities := []bsp.Entity{
		ent("classname", "worldspawn", "detailvbsp", "../secret.txt"),
		ent("classname", "prop_vehicle_jeep", "vehiclescript", `..\secret.txt`),
		ent("classname", "prop_vehicle_jeep", "vehiclescript", "scripts/vehicles/jeep.txt"),
		ent("classname", "env_effectscript", "scriptfile", "scripts/../../secret.txt"),
		ent("classname", "tf_logic_player_destruction", "res_file", "/scripts/vehicles/jeep.txt"),
		ent("classname", "logic_script", "vscripts", "../../../secret.txt ../vscripts/secret.nut"),
	}

	res, err := (&Resolver{Roots: []string{root}}).Resolve(context.Background(), entities, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"scripts/vehicles/jeep.txt"}, internals(res.Files))
}

func TestResolveMissingFilesOmitted(t *testing.T) {
	res, err := (&Resolver{Roots: []string{t.TempDir()}}).Resolve(context.Background(), []bsp.Entity{
		ent("classname", "worldspawn", "detailvbsp", "detail/none.vbsp"),
	}, "m")
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Textures)
}

func TestResolveCancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "maps/m.nav", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := (&Resolver{Roots: []string{root}}).Resolve(ctx, nil, "m")
	require.ErrorIs(t, err, bsp.ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestMaterialFromLine(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`"material" "overviews/de_x"`, "overviews/de_x"},
		{`	$basetexture	"materials\\brick\\wall01.vtf"`, "brick/wall01"},
		{`$bumpmap brick/wall01_normal // comment`, "brick/wall01_normal"},
		{`"$detail" "/materials//detail/noise.vmt/"`, "detail/noise"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, materialFromLine(tt.line))
		})
	}
}

func TestNormalizeMaterial(t *testing.T) {
	assert.Equal(t, "overviews/de_x", NormalizeMaterial("materials/overviews/de_x.vmt"))
	assert.Equal(t, "a/b", NormalizeMaterial(`\a\b\\trailing`))
	assert.Equal(t, "a", NormalizeMaterial("a// note"))
}
