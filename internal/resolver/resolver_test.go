package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
	"github.com/alpaka-gaming/source-compiler/internal/bsp/bsptest"
	"github.com/alpaka-gaming/source-compiler/internal/cache"
	"github.com/alpaka-gaming/source-compiler/internal/manifest"
	"github.com/alpaka-gaming/source-compiler/internal/metrics"
	"github.com/alpaka-gaming/source-compiler/internal/refs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entities = "{\n\"classname\" \"worldspawn\"\n\"skyname\" \"sky1\"\n}\n" +
	"{\n\"classname\" \"env_funnel\"\n}\n" +
	"{\n\"classname\" \"ambient_generic\"\n\"message\" \"ambient/wind.wav\"\n}\n" +
	"{\n\"classname\" \"info_particle_system\"\n\"effect_name\" \"fire\"\n}\n"

func writeLevel(t *testing.T, dir, name string) string {
	t.Helper()
	b := bsptest.Builder{
		Entities: entities,
		Textures: []string{"brick/wall01"},
		Models:   []string{"models/props/crate.mdl"},
		Props:    []bsptest.Prop{{Model: 0, Skin: 1}},
	}
	return b.WriteFile(t, dir, name)
}

func TestResolveLevel(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()
	path := writeLevel(t, dir, "cp_test.bsp")
	nav := filepath.Join(root, "maps", "cp_test.nav")
	require.NoError(t, os.MkdirAll(filepath.Dir(nav), 0o755))
	require.NoError(t, os.WriteFile(nav, nil, 0o644))

	r := New(Options{
		Roots:     []string{root},
		RenameNav: true,
		Keywords:  refs.Keywords{Sound: []string{"message"}},
	})
	m, err := r.ResolveLevel(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "cp_test", m.Level())
	assert.Contains(t, m.Textures(), "materials/brick/wall01.vmt")
	assert.Contains(t, m.Textures(), "materials/skybox/sky1_hdrup.vmt")
	assert.Contains(t, m.Textures(), "materials/sprites/flare6.vmt")
	assert.Equal(t, []string{"models/props/crate.mdl"}, m.Models())
	assert.Equal(t, []string{"sound/ambient/wind.wav"}, m.Sounds())
	assert.Equal(t, []string{"fire"}, m.Particles())
	assert.Equal(t, []manifest.File{{Kind: "nav", Internal: "maps/embed.nav", External: nav}}, m.Files())
}

func TestResolveAllIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeLevel(t, dir, "good.bsp")
	bad := filepath.Join(dir, "bad.bsp")
	require.NoError(t, os.WriteFile(bad, []byte("IBSP"), 0o644))
	missing := filepath.Join(dir, "missing.bsp")

	reg := prometheus.NewRegistry()
	r := New(Options{Workers: 2})
	r.Metrics = metrics.NewMetrics(reg)

	out := r.ResolveAll(context.Background(), []string{good, bad, missing})
	require.Len(t, out, 3)

	require.NoError(t, out[0].Err)
	assert.Equal(t, "good", out[0].Manifest.Level())
	assert.ErrorIs(t, out[1].Err, bsp.ErrStructural)
	assert.Nil(t, out[1].Manifest)
	assert.ErrorIs(t, out[2].Err, os.ErrNotExist)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.LevelsResolved))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.Failures.WithLabelValues("structural")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.Failures.WithLabelValues("io")))
}

func TestResolveLevelCachedFollowsOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeLevel(t, dir, "cp_test.bsp")
	root := t.TempDir()

	c, err := cache.NewLevelCache(nil)
	require.NoError(t, err)
	defer c.Close()

	reg := prometheus.NewRegistry()
	met := metrics.NewMetrics(reg)

	first := New(Options{Roots: []string{root}})
	first.Cache = c
	first.Metrics = met
	m1, err := first.ResolveLevel(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, m1.Files())
	assert.Equal(t, 1, c.Len())

	// A side-car file added after the first run and a changed option must
	// both show up although the container is served from the cache.
	nav := filepath.Join(root, "maps", "cp_test.nav")
	require.NoError(t, os.MkdirAll(filepath.Dir(nav), 0o755))
	require.NoError(t, os.WriteFile(nav, nil, 0o644))

	second := New(Options{Roots: []string{root}, RenameNav: true})
	second.Cache = c
	second.Metrics = met
	m2, err := second.ResolveLevel(context.Background(), path)
	require.NoError(t, err)

	ext, ok := m2.External("maps/embed.nav")
	require.True(t, ok)
	assert.Equal(t, nav, ext)
	assert.Equal(t, m1.Textures(), m2.Textures())
	assert.Equal(t, m1.Models(), m2.Models())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(met.LevelsResolved))
}

func TestResolveLevelCachedUnderOtherName(t *testing.T) {
	dir := t.TempDir()
	path := writeLevel(t, dir, "cp_test.bsp")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copyPath := filepath.Join(dir, "cp_copy.bsp")
	require.NoError(t, os.WriteFile(copyPath, data, 0o644))

	c, err := cache.NewLevelCache(nil)
	require.NoError(t, err)
	defer c.Close()

	r := New(Options{})
	r.Cache = c
	_, err = r.ResolveLevel(context.Background(), path)
	require.NoError(t, err)

	m, err := r.ResolveLevel(context.Background(), copyPath)
	require.NoError(t, err)
	assert.Equal(t, "cp_copy", m.Level())
	assert.Contains(t, m.Textures(), "materials/vgui/maps/menu_photos_cp_copy.vmt")
	assert.NotContains(t, m.Textures(), "materials/vgui/maps/menu_photos_cp_test.vmt")
}

func TestResolveLevelCancelled(t *testing.T) {
	path := writeLevel(t, t.TempDir(), "m.bsp")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := New(Options{}).ResolveLevel(ctx, path)
	require.ErrorIs(t, err, bsp.ErrCancelled)
	assert.Nil(t, m)
}
