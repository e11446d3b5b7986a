package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
	"github.com/alpaka-gaming/source-compiler/internal/config"
	"github.com/alpaka-gaming/source-compiler/internal/filewalker"
	"github.com/alpaka-gaming/source-compiler/internal/manifest"
	"github.com/alpaka-gaming/source-compiler/internal/refs"
	"github.com/alpaka-gaming/source-compiler/internal/resolver"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	formatAddList = "addlist"
	formatJSON    = "json"
)

type resolveFlags struct {
	gameDir             string
	roots               []string
	format              string
	output              string
	renameNav           bool
	genParticleManifest bool
}

func resolveCmd() *cobra.Command {
	var f resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve <bsp|dir>...",
		Short: "Write the asset manifest of one or more compiled levels",
		Long: `Decodes each level and writes its manifest. Directories are searched
for .bsp files. The add-list format pairs each file's path inside the
level with its path on disk, one line each. With several levels and
--output, the output is a directory holding one manifest per level.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("game") {
				cfg.GameDir = f.gameDir
			}
			if len(f.roots) > 0 {
				cfg.ContentRoots = f.roots
			}
			if cmd.Flags().Changed("rename-nav") {
				cfg.RenameNav = f.renameNav
			}
			if cmd.Flags().Changed("gen-particle-manifest") {
				cfg.GenParticleManifest = f.genParticleManifest
			}
			return runResolve(cmd.OutOrStdout(), cfg, args, f.format, f.output)
		},
	}

	cmd.Flags().StringVar(&f.gameDir, "game", "", "Game content directory (overrides GAME_DIR)")
	cmd.Flags().StringArrayVar(&f.roots, "root", nil, "Additional content root, searched in order (repeatable)")
	cmd.Flags().StringVar(&f.format, "format", formatAddList, "Output format: addlist or json")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file, or directory for several levels (default stdout)")
	cmd.Flags().BoolVar(&f.renameNav, "rename-nav", false, "Pack the nav mesh as maps/embed.nav")
	cmd.Flags().BoolVar(&f.genParticleManifest, "gen-particle-manifest", false, "Leave out the level's own particle manifest")

	return cmd
}

// runResolve handles the `resolve` command.
func runResolve(stdout io.Writer, cfg *config.Config, args []string, format, output string) error {
	if format != formatAddList && format != formatJSON {
		return fmt.Errorf("unknown format %q", format)
	}

	paths, err := filewalker.FindLevels(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found", filewalker.LevelExtension)
	}

	ctx, cancel := setupContext()
	defer cancel()

	deps, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.close(ctx)

	r := resolver.New(resolver.Options{
		Roots:               cfg.Roots(),
		GameDir:             cfg.GameDir,
		RenameNav:           cfg.RenameNav,
		GenParticleManifest: cfg.GenParticleManifest,
		Keywords: refs.Keywords{
			Sound:    cfg.SoundKeys,
			Model:    cfg.ModelKeys,
			Material: cfg.MaterialKeys,
		},
		MaterialKeywords: cfg.VMTMaterialKeywords,
		Workers:          cfg.WorkerCount,
		ProbeWorkers:     cfg.ProbeWorkers,
	})
	r.Cache = deps.cache
	r.Metrics = deps.metrics

	// files[i] is where paths[i]'s manifest goes; empty means stdout.
	files := make([]string, len(paths))
	if output != "" {
		if len(paths) == 1 {
			files[0] = output
		} else {
			if err := os.MkdirAll(output, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			files = outputFiles(output, paths, format)
		}
	}

	outcomes := r.ResolveAll(ctx, paths)
	defer deps.writeMetrics(cfg)

	failed := 0
	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			log.Error().Err(o.Err).Str("path", o.Path).Msg("Level failed")
			continue
		}

		if err := writeManifest(stdout, o.Manifest, cfg.Roots(), format, files[i]); err != nil {
			return err
		}

		if deps.graph != nil {
			if err := deps.graph.UpsertManifest(ctx, o.Manifest); err != nil {
				log.Warn().Err(err).Str("level", o.Manifest.Level()).Msg("Failed to update asset graph")
			}
		}
	}

	log.Info().
		Int("levels", len(paths)).
		Int("failed", failed).
		Msg("Resolution complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d levels failed", failed, len(paths))
	}
	return nil
}

// writeManifest writes m to path, or to stdout when path is empty.
func writeManifest(stdout io.Writer, m *manifest.Manifest, roots []string, format, path string) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create manifest file: %w", err)
		}
		defer f.Close()
		w = f
		log.Info().Str("level", m.Level()).Str("path", path).Msg("Writing manifest")
	}

	if format == formatJSON {
		return manifest.WriteJSON(w, m)
	}
	n, err := manifest.WriteAddList(w, m, roots)
	if err != nil {
		return err
	}
	log.Debug().Str("level", m.Level()).Int("entries", n).Msg("Add-list written")
	return nil
}

// outputFiles names one manifest file per level inside dir. Levels whose
// names collide, ignoring case, get a numeric suffix in input order.
func outputFiles(dir string, paths []string, format string) []string {
	taken := make(map[string]struct{}, len(paths))
	files := make([]string, len(paths))
	for i, p := range paths {
		level := bsp.LevelName(p)
		name := level
		for n := 2; ; n++ {
			if _, ok := taken[strings.ToLower(name)]; !ok {
				break
			}
			name = fmt.Sprintf("%s_%d", level, n)
		}
		taken[strings.ToLower(name)] = struct{}{}
		if name != level {
			log.Warn().Str("path", p).Str("file", name+manifestExt(format)).Msg("Level name already used, writing manifest under another name")
		}
		files[i] = filepath.Join(dir, name+manifestExt(format))
	}
	return files
}

func manifestExt(format string) string {
	if format == formatJSON {
		return ".json"
	}
	return ".txt"
}

// resolveOne is used by inspect to show a single level's manifest summary.
func resolveOne(ctx context.Context, cfg *config.Config, path string) (*manifest.Manifest, error) {
	r := resolver.New(resolver.Options{
		Roots:            cfg.Roots(),
		GameDir:          cfg.GameDir,
		Keywords:         refs.Keywords{Sound: cfg.SoundKeys, Model: cfg.ModelKeys, Material: cfg.MaterialKeys},
		MaterialKeywords: cfg.VMTMaterialKeywords,
		ProbeWorkers:     cfg.ProbeWorkers,
	})
	return r.ResolveLevel(ctx, path)
}
