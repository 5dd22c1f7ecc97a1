package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/constellation-resilience/core"
	"github.com/signalsfoundry/constellation-resilience/internal/config"
	"github.com/signalsfoundry/constellation-resilience/internal/logging"
	"github.com/signalsfoundry/constellation-resilience/internal/matrixstore"
	"github.com/signalsfoundry/constellation-resilience/internal/observability"
	"github.com/signalsfoundry/constellation-resilience/kb"
	"github.com/signalsfoundry/constellation-resilience/model"
)

// app carries what every subcommand needs once the config is loaded.
type app struct {
	cfg       config.Config
	log       logging.Logger
	collector *observability.EngineCollector

	metricsSrv *http.Server
	shutdown   func(context.Context) error
	store      *matrixstore.Store
}

// run executes the CLI with args and releases every resource afterwards,
// including when a subcommand fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.close(ctx)
	return root.ExecuteContext(ctx)
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{log: logging.Noop()}
	var configPath string

	root := &cobra.Command{
		Use:          "resilience",
		Short:        "Resilient routing analysis for satellite constellations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "engine.yaml", "path to the engine configuration")

	root.AddCommand(
		newIngestCmd(a),
		newSlotsCmd(a),
		newPruneCmd(a),
		newFailureCmd(a),
		newStabilityCmd(a),
		newPoliciesCmd(a),
		newFeaturesCmd(a),
	)
	return root, a
}

func (a *app) init(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.LoggingConfig())

	a.collector, err = observability.NewEngineCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		a.metricsSrv = serveMetrics(cfg.Metrics.Addr, a.collector, a.log)
	}

	info := observability.RunInfo{
		Command:    cmd.Name(),
		ConfigPath: configPath,
		Spans:      cmd.ErrOrStderr(),
	}
	if f := cmd.Flags().Lookup("shell"); f != nil {
		info.Shell = f.Value.String()
	}
	a.shutdown, err = observability.InitTracing(ctx, cfg.Tracing, info, a.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn(ctx, "closing matrix store failed", logging.Err(err))
		}
		a.store = nil
	}
	observability.FlushTracing(context.WithoutCancel(ctx), a.shutdown, a.log)
	if a.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(shutdownCtx)
	}
}

// openStore opens the configured matrix store once per process.
func (a *app) openStore() (*matrixstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := matrixstore.Open(a.cfg.StoreOptions(a.log.With(logging.String("component", "badger"))))
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// loadCatalog reads the constellation catalogue and returns it with an
// access resolver over it.
func (a *app) loadCatalog(ctx context.Context) (*kb.KnowledgeBase, *core.AccessResolver, error) {
	tl, err := a.cfg.NewTimeline()
	if err != nil {
		return nil, nil, err
	}
	catalog := kb.NewKnowledgeBase()
	unsubscribe := catalog.Subscribe(func(e kb.Event) {
		if e.Type != kb.EventSatelliteAdded {
			return
		}
		a.log.Debug(ctx, "satellite added",
			logging.String("shell", e.Shell),
			logging.Int("id", int(e.Satellite.ID)),
			logging.Int("plane", e.Satellite.PlaneID),
		)
	})
	defer unsubscribe()

	if err := kb.LoadCatalogFile(catalog, a.cfg.Catalog, tl); err != nil {
		return nil, nil, err
	}
	for _, shell := range catalog.Shells() {
		a.log.Info(ctx, "loaded constellation shell",
			logging.String("catalog", a.cfg.Catalog),
			logging.String("shell", shell),
			logging.Int("satellites", len(catalog.Satellites(shell))),
		)
	}
	return catalog, core.NewAccessResolver(catalog), nil
}

func (a *app) users(source, target string) (model.GroundUser, model.GroundUser, error) {
	src, ok := a.cfg.User(source)
	if !ok {
		return model.GroundUser{}, model.GroundUser{}, fmt.Errorf("unknown user %q", source)
	}
	dst, ok := a.cfg.User(target)
	if !ok {
		return model.GroundUser{}, model.GroundUser{}, fmt.Errorf("unknown user %q", target)
	}
	return src, dst, nil
}

func serveMetrics(addr string, collector *observability.EngineCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
