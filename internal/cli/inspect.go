package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/alpaka-gaming/source-compiler/internal/bsp"
	"github.com/alpaka-gaming/source-compiler/internal/config"
	"github.com/alpaka-gaming/source-compiler/internal/graph"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <bsp>",
		Short: "Print a level's lump table, entity classes and reference counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runInspect(ctx, cmd.OutOrStdout(), config.Load(), args[0])
		},
	}
}

// runInspect handles the `inspect` command.
func runInspect(ctx context.Context, w io.Writer, cfg *config.Config, path string) error {
	level, err := bsp.Decode(ctx, path)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	layout := "default"
	if level.Lumps.Alternate {
		layout = "alternate"
	}
	fmt.Fprintf(w, "level:    %s\n", level.Name)
	fmt.Fprintf(w, "version:  %d (%s layout)\n", level.Lumps.Version, layout)
	fmt.Fprintf(w, "size:     %d bytes\n", level.Size)

	fmt.Fprintln(w, "lumps:")
	for i, l := range level.Lumps.Lumps {
		if l.Length == 0 {
			continue
		}
		fmt.Fprintf(w, "  %2d  offset %10d  length %10d\n", i, l.Offset, l.Length)
	}

	classes := make(map[string]int)
	for _, e := range level.Entities {
		classes[e.ClassName()]++
	}
	names := make([]string, 0, len(classes))
	for n := range classes {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "entities: %d (%d skipped)\n", len(level.Entities), len(level.Warnings))
	for _, n := range names {
		fmt.Fprintf(w, "  %-40s %d\n", n, classes[n])
	}

	if level.StaticProps != nil {
		fmt.Fprintf(w, "static props: %d instances of %d models\n", len(level.StaticProps.Props), len(level.StaticProps.ModelNames()))
	}

	m, err := resolveOne(ctx, cfg, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "textures: %d\nmodels:   %d\nsounds:   %d\nparticles: %d\nfiles:    %d\n",
		len(m.Textures()), len(m.Models()), len(m.Sounds()), len(m.Particles()), len(m.Files()))
	return nil
}

func dependentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dependents <asset-path>",
		Short: "List levels in the asset graph that require an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runDependents(ctx, cmd.OutOrStdout(), config.Load(), args[0])
		},
	}
}

// runDependents handles the `dependents` command.
func runDependents(ctx context.Context, w io.Writer, cfg *config.Config, asset string) error {
	querier, closeDriver, err := openQuerier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDriver()

	deps, err := querier.LevelsRequiring(ctx, asset)
	if err != nil {
		return err
	}
	for _, d := range deps {
		fmt.Fprintf(w, "%s\t%s\n", d.Level, d.Kind)
	}
	return nil
}

func sharedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "shared",
		Short: "List assets in the asset graph that several levels require",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()
			return runShared(ctx, cmd.OutOrStdout(), config.Load(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of assets to list")
	return cmd
}

// runShared handles the `shared` command.
func runShared(ctx context.Context, w io.Writer, cfg *config.Config, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	querier, closeDriver, err := openQuerier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDriver()

	assets, err := querier.SharedAssets(ctx, limit)
	if err != nil {
		return err
	}
	for _, a := range assets {
		fmt.Fprintf(w, "%d\t%s\n", a.Levels, a.Path)
	}
	return nil
}

// openQuerier connects to the configured Neo4j instance.
func openQuerier(ctx context.Context, cfg *config.Config) (*graph.GraphQuerier, func(), error) {
	if cfg.Neo4jURI == "" {
		return nil, nil, errors.New("NEO4J_URI is not set")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("connect Neo4j: %w", err)
	}
	return graph.NewGraphQuerier(driver), func() { driver.Close(ctx) }, nil
}
