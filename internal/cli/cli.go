package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alpaka-gaming/source-compiler/internal/cache"
	"github.com/alpaka-gaming/source-compiler/internal/config"
	"github.com/alpaka-gaming/source-compiler/internal/graph"
	"github.com/alpaka-gaming/source-compiler/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "source-compiler",
		Short: "Asset dependency resolver for compiled Source engine levels",
		Long: `Decodes compiled .bsp levels and lists every texture, model, sound,
particle effect and side-car file a level needs to run standalone.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	verbose := rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}

	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(dependentsCmd())
	rootCmd.AddCommand(sharedCmd())

	return rootCmd
}

// setupContext returns a context cancelled on SIGINT or SIGTERM.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// dependencies holds the optional backends. Nil fields are disabled.
type dependencies struct {
	pgPool      *pgxpool.Pool
	neo4jDriver neo4j.DriverWithContext
	cache       *cache.LevelCache
	graph       *graph.GraphBuilder
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
}

// initDependencies connects the backends named in cfg.
func initDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{registry: prometheus.NewRegistry()}
	deps.metrics = metrics.NewMetrics(deps.registry)

	var db cache.DB
	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect PostgreSQL: %w", err)
		}
		if err := pgPool.Ping(ctx); err != nil {
			pgPool.Close()
			return nil, fmt.Errorf("ping PostgreSQL: %w", err)
		}
		log.Info().Msg("Connected to PostgreSQL")
		deps.pgPool = pgPool
		db = pgPool
	}

	levelCache, err := cache.NewLevelCache(db)
	if err != nil {
		deps.close(ctx)
		return nil, err
	}
	deps.cache = levelCache
	if err := levelCache.EnsureSchema(ctx); err != nil {
		deps.close(ctx)
		return nil, err
	}

	if cfg.Neo4jURI != "" {
		neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
		if err != nil {
			deps.close(ctx)
			return nil, fmt.Errorf("connect Neo4j: %w", err)
		}
		deps.neo4jDriver = neo4jDriver
		if err := neo4jDriver.VerifyConnectivity(ctx); err != nil {
			deps.close(ctx)
			return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
		}
		log.Info().Msg("Connected to Neo4j")

		deps.graph = graph.NewGraphBuilder(neo4jDriver)
		if err := deps.graph.EnsureSchema(ctx); err != nil {
			deps.close(ctx)
			return nil, err
		}
	}

	return deps, nil
}

func (d *dependencies) close(ctx context.Context) {
	if d.cache != nil {
		d.cache.Close()
	}
	if d.pgPool != nil {
		d.pgPool.Close()
	}
	if d.neo4jDriver != nil {
		d.neo4jDriver.Close(ctx)
	}
}

// writeMetrics writes the metrics textfile when one is configured.
func (d *dependencies) writeMetrics(cfg *config.Config) {
	if cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile, d.registry); err != nil {
		log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("Failed to write metrics")
		return
	}
	log.Debug().Str("path", cfg.MetricsFile).Msg("Metrics written")
}
