package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/adapters/file"
	loamAdapter "github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/config"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb/geojson"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the introspection HTTP server",
	Long: `Builds a map tree in the in-memory engine (one layer and one vector source,
optionally seeded from a GeoJSON file) and serves its nodes, features, lifecycle events
and metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		app, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		if isTerminal(cmd.ErrOrStderr()) {
			tui.PrintBanner(cmd.ErrOrStderr(), arbor.Version)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := mountTrees(ctx, cmd, app, logger); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           app.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("serving", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			_ = srv.Close()
		}
		return app.Close(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr)")
	addTreeFlags(serveCmd)
}

func addTreeFlags(cmd *cobra.Command) {
	cmd.Flags().String("features", "", "GeoJSON FeatureCollection loaded into the default source")
	cmd.Flags().String("tree", "", "Tree description (YAML or JSON) replacing the default tree")
	cmd.Flags().String("trees", "", "Directory of tree descriptions (JSON, YAML or Markdown frontmatter)")
	cmd.Flags().Bool("watch", false, "Remount the trees of --trees when their files change")
}

// newApp builds an application over the configured snapshot store.
func newApp(cfg config.Config, logger *slog.Logger) (*arbor.App, error) {
	store, locker, err := snapshotStore(cfg)
	if err != nil {
		return nil, err
	}
	opts := []arbor.Option{
		arbor.WithConfig(cfg),
		arbor.WithLogger(logger),
		arbor.WithStore(store),
	}
	if locker != nil {
		opts = append(opts, arbor.WithLocker(locker))
	}
	return arbor.New(opts...)
}

// mountTrees mounts the trees selected by the tree flags of cmd. Watching keeps
// running until ctx is done.
func mountTrees(ctx context.Context, cmd *cobra.Command, app *arbor.App, logger *slog.Logger) error {
	seed, _ := cmd.Flags().GetString("features")
	treeFile, _ := cmd.Flags().GetString("tree")
	treesDir, _ := cmd.Flags().GetString("trees")
	watch, _ := cmd.Flags().GetBool("watch")

	if treesDir == "" {
		return buildTree(ctx, app, cmd.InOrStdin(), treeFile, seed)
	}
	loader, roots, err := mountDir(ctx, app, treesDir)
	if err != nil {
		return err
	}
	if watch {
		go watchTrees(ctx, app, loader, roots, logger)
	}
	return nil
}

// snapshotStore builds the configured store: redis when an address is set, files
// when a directory is, memory otherwise, wrapped with masking and encryption. The
// locker is nil without redis.
func snapshotStore(cfg config.Config) (ports.SnapshotStore, ports.DistributedLocker, error) {
	var (
		store  ports.SnapshotStore = memory.NewStore()
		locker ports.DistributedLocker
	)
	if cfg.Redis.Addr != "" {
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		client := backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		locker = redis.NewLocker(client, prefix)
		store = redis.NewFromClient(client,
			redis.WithPrefix(prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
	} else if cfg.Snapshots.Dir != "" {
		store = file.New(cfg.Snapshots.Dir)
	}

	var mws []middleware.Middleware
	if len(cfg.Snapshots.MaskKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Snapshots.MaskKeys))
	}
	active, fallback, err := cfg.Snapshots.Keys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return middleware.Chain(store, mws...), locker, nil
}

// buildTree mounts the trees described in treeFile, or map "map" > layer
// "default" > source "default-source" seeded from the features file.
func buildTree(ctx context.Context, app *arbor.App, stdin io.Reader, treeFile, seed string) error {
	if treeFile != "" {
		roots, err := parseTree(treeFile, stdin)
		if err != nil {
			return err
		}
		_, err = app.Mount(ctx, roots...)
		return err
	}

	b := dsl.New()
	source := b.Map("map").Layer("default").Source("default-source")
	if seed != "" {
		data, err := os.ReadFile(seed)
		if err != nil {
			return err
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return fmt.Errorf("read %s: %w", seed, err)
		}
		source.Prop("features", fc)
	}
	_, err := app.Mount(ctx, b.Build()...)
	return err
}

// mountDir mounts every tree stored in dir.
func mountDir(ctx context.Context, app *arbor.App, dir string) (*loamAdapter.Loader, []*lifecycle.Node, error) {
	loader, err := loamAdapter.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	trees, err := loader.Trees(ctx)
	if err != nil {
		return nil, nil, err
	}
	roots, err := app.Mount(ctx, trees...)
	return loader, roots, err
}

// watchTrees remounts every tree after each change until ctx is done. A tree set
// that fails to load leaves the app empty until the next change.
func watchTrees(ctx context.Context, app *arbor.App, loader *loamAdapter.Loader, roots []*lifecycle.Node, logger *slog.Logger) {
	changes, err := loader.Watch(ctx)
	if err != nil {
		logger.Error("watch failed", "err", err)
		return
	}
	for id := range changes {
		logger.Info("tree changed, remounting", "doc", id)
		if err := app.Unmount(ctx, roots...); err != nil {
			logger.Warn("unmount failed", "err", err)
		}
		roots = nil

		trees, err := loader.Trees(ctx)
		if err != nil {
			logger.Error("reload failed", "err", err)
			continue
		}
		if roots, err = app.Mount(ctx, trees...); err != nil {
			logger.Error("remount failed", "err", err)
		}
	}
}
