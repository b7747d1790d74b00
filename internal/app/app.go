// Package app wires the remediation agent's components together and
// runs its long-lived servers. cmd/remediation-agent's main is
// deliberately thin; everything construction-related lives here so it
// can be exercised without a process boundary.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/mmsuerkan/kubernetes-thesis/internal/config"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/api"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/k8s"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/learner"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/llm"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/metrics"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/notify"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/observer"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/orchestrator"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/performance"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/reflector"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/safeexec"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/strategy"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/synth"
)

// Services bundles the constructed core so Run's HTTP surfaces, and any
// in-process caller that drives process()/feedback() directly (spec.md's
// HTTP façade around those two stays a non-goal), share one wiring path.
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Notifier     *notify.Notifier
	Router       http.Handler
	Log          *logrus.Logger
}

// newLogger builds the domain logrus.Logger from LoggingConfig.
func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// newClusterLogr builds the logr.Logger the controller-runtime-adjacent
// pod-ownership client uses, backed by zap rather than logrus -- the one
// seam where the rest of the ecosystem expects logr (spec.md Design
// Notes §9).
func newClusterLogr(cfg config.LoggingConfig) logr.Logger {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "text" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zl, err := zcfg.Build()
	if err != nil {
		zl = zap.NewNop()
	}
	return zapr.NewLogger(zl)
}

// podTypeDetector builds the Orchestrator's PodTypeDetector from a live
// clientset when a kubeconfig is reachable, falling back to nil (the
// string heuristic of k8s.DetectPodTypeHeuristic) otherwise -- a missing
// cluster connection degrades pod-type classification, it does not halt
// startup.
func podTypeDetector(cfg config.ClusterConfig, log *logrus.Logger, zlog logr.Logger) orchestrator.PodTypeDetector {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.KubeconfigPath != "" {
		rules.ExplicitPath = cfg.KubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{}
	if cfg.Context != "" {
		overrides.CurrentContext = cfg.Context
	}
	restCfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		log.WithError(err).Warn("no reachable kubeconfig, pod-type detection falls back to the string heuristic")
		return nil
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		log.WithError(err).Warn("building kubernetes clientset failed, pod-type detection falls back to the string heuristic")
		return nil
	}
	return k8s.NewOwnerRefResolver(clientset, zlog)
}

// openStrategyStore opens the Postgres-backed Strategy Store, optionally
// wrapped in a Redis read-through cache, falling back to an in-memory
// store if Postgres is unreachable -- consistent with the degraded-mode
// philosophy the rest of the core follows for StoreUnavailable paths.
func openStrategyStore(ctx context.Context, cfg config.StoreConfig, log *logrus.Logger) (strategy.Store, func()) {
	pg, err := strategy.OpenPostgresStore(ctx, cfg.StrategyStoreDSN)
	if err != nil {
		log.WithError(err).Warn("strategy store: postgres unreachable, falling back to in-memory store")
		return strategy.NewMemoryStore(), func() {}
	}

	var store strategy.Store = pg
	closeFn := func() { _ = pg.Close() }

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("strategy store: redis cache unreachable, serving uncached")
			_ = rdb.Close()
		} else {
			store = strategy.NewCachedStore(pg, rdb, 30*time.Second, log)
			prev := closeFn
			closeFn = func() { prev(); _ = rdb.Close() }
		}
	}
	return store, closeFn
}

// openEpisodicMemory opens the Postgres-backed Episodic Memory, falling
// back to an in-memory store on connection failure.
func openEpisodicMemory(ctx context.Context, dsn string, log *logrus.Logger) (memory.Store, func()) {
	pg, err := memory.OpenPostgresStore(ctx, dsn)
	if err != nil {
		log.WithError(err).Warn("episodic memory: postgres unreachable, falling back to in-memory store")
		return memory.NewInMemoryStore(), func() {}
	}
	return pg, func() { _ = pg.Close() }
}

// openPerformanceTracker opens the Postgres-backed Performance Tracker,
// falling back to an in-memory tracker on connection failure.
func openPerformanceTracker(ctx context.Context, dsn string, log *logrus.Logger) (performance.Tracker, func()) {
	pg, err := performance.OpenPostgresStore(ctx, dsn)
	if err != nil {
		log.WithError(err).Warn("performance tracker: postgres unreachable, falling back to in-memory tracker")
		return performance.NewInMemoryTracker(), func() {}
	}
	return pg, func() { _ = pg.Close() }
}

// Build constructs every component of the remediation core without
// starting any server, so Run and tests share one wiring path. Returned
// closers must be invoked (in order) once the caller is done with the
// Services, regardless of the error return.
func Build(ctx context.Context, cfg *config.Config) (*Services, []func(), error) {
	log := newLogger(cfg.Logging)
	zlog := newClusterLogr(cfg.Logging)

	var closers []func()
	strategies, closeStrategies := openStrategyStore(ctx, cfg.Store, log)
	closers = append(closers, closeStrategies)
	episodic, closeEpisodic := openEpisodicMemory(ctx, cfg.Store.EpisodicMemoryDSN, log)
	closers = append(closers, closeEpisodic)
	perf, closePerf := openPerformanceTracker(ctx, cfg.Store.PerformanceTrackerDSN, log)
	closers = append(closers, closePerf)

	llmClient, err := llm.NewClient(cfg.LLM, llm.NoopTracer{})
	if err != nil {
		return nil, closers, fmt.Errorf("building llm client: %w", err)
	}

	synthesizer, err := synth.NewWithPolicy(ctx, llmClient, episodic, cfg.Mode, log)
	if err != nil {
		return nil, closers, fmt.Errorf("building plan synthesiser: %w", err)
	}

	driver := k8s.NewKubectlDriver(cfg.Cluster.CLIPath, cfg.Cluster.Context, log)
	executor := safeexec.New(driver, cfg.Actions.MaxRetries, time.Duration(cfg.Actions.CommandTimeoutSeconds)*time.Second, cfg.Actions.DryRun, log)

	obs := observer.New(episodic)
	refl := reflector.New(llmClient)
	learn := learner.New(strategies, episodic)
	podTypes := podTypeDetector(cfg.Cluster, log, zlog)

	orch := orchestrator.New(strategies, episodic, perf, synthesizer, executor, obs, refl, learn, podTypes, cfg.Orchestrator, log)
	notifier := notify.NewNotifier(cfg.Notify.SlackToken(), cfg.Notify.SlackChannel, log)

	apiHandler := api.NewHandler(strategies, episodic, perf, learn, log)
	router := api.NewRouter(apiHandler, cfg.Server.AllowedOrigins)

	return &Services{Orchestrator: orch, Notifier: notifier, Router: router, Log: log}, closers, nil
}

// Run builds the core, starts the metrics and inspection-API servers,
// and blocks until ctx is cancelled, shutting both down gracefully.
// process()/feedback() are not exposed over HTTP (spec.md's explicit
// façade non-goal); Run hosts only the inspection/reset surface and
// metrics, ready for an external ingester (out of scope here) to call
// Services.Orchestrator directly in-process alongside them.
func Run(ctx context.Context, cfg *config.Config) error {
	svc, closers, err := Build(ctx, cfg)
	for _, c := range closers {
		defer c()
	}
	if err != nil {
		return err
	}
	return runServers(ctx, cfg, svc)
}

func runServers(ctx context.Context, cfg *config.Config, svc *Services) error {
	log := svc.Log

	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddr)
	metricsErrCh := metricsSrv.Start()
	log.WithField("addr", cfg.Server.MetricsAddr).Info("metrics server listening")

	apiSrv := &http.Server{
		Addr:              cfg.Server.APIAddr,
		Handler:           svc.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	apiErrCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.APIAddr).Info("inspection API listening")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			apiErrCh <- err
		}
		close(apiErrCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-apiErrCh:
		return fmt.Errorf("inspection api server: %w", err)
	case err := <-metricsErrCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}
