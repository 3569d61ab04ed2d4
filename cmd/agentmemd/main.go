// Command agentmemd is the AgentMem Memory Core process entrypoint: it loads
// configuration from the environment, wires C1-C9 together, and serves
// health/metrics endpoints until it receives a shutdown signal.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kagent-dev/agentmem/internal/blocks"
	"github.com/kagent-dev/agentmem/internal/decision"
	"github.com/kagent-dev/agentmem/internal/extractor"
	"github.com/kagent-dev/agentmem/internal/fulltextindex"
	"github.com/kagent-dev/agentmem/internal/fulltextindex/memfts"
	"github.com/kagent-dev/agentmem/internal/hybrid"
	"github.com/kagent-dev/agentmem/internal/processor"
	"github.com/kagent-dev/agentmem/internal/sandbox"
	"github.com/kagent-dev/agentmem/internal/storage"
	"github.com/kagent-dev/agentmem/internal/vectorindex"
	"github.com/kagent-dev/agentmem/internal/vectorindex/memvector"
	"github.com/kagent-dev/agentmem/internal/vectorindex/pgvectoridx"
	"github.com/kagent-dev/agentmem/pkg/embedder"
	"github.com/kagent-dev/agentmem/pkg/env"
	"github.com/kagent-dev/agentmem/pkg/llm"
	"github.com/kagent-dev/agentmem/pkg/metrics"
)

func setupLogger(logLevel string) (logr.Logger, *zap.Logger) {
	var zapLevel zapcore.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := zapConfig.Build()
	if err != nil {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = zap.NewAtomicLevelAt(zapLevel)
		zapLogger, _ = devConfig.Build()
	}
	logger := zapr.NewLogger(zapLogger)
	logger.Info("logger initialized", "level", logLevel)
	return logger, zapLogger
}

// components bundles every wired dependency so main can pass a single value
// around instead of a long, repeated parameter list.
type components struct {
	storageManager *storage.Manager
	searcher       *hybrid.Searcher
	processor      *processor.Processor
	blockManager   *blocks.Manager
	compiler       *blocks.Compiler
	sandboxExec    *sandbox.Executor
	metrics        *metrics.Registry
}

func main() {
	logLevelFlag := flag.String("log-level", "", "Logging level (debug, info, warn, error); overrides AGENTMEM_LOG_LEVEL")
	httpAddrFlag := flag.String("http-addr", "", "Bind address for the health/metrics server; overrides AGENTMEM_HTTP_ADDR")
	flag.Parse()

	logLevel := *logLevelFlag
	if logLevel == "" {
		logLevel = env.LogLevel.Get()
	}
	logger, zapLogger := setupLogger(logLevel)
	defer func() {
		_ = zapLogger.Sync()
	}()

	c, err := buildComponents(context.Background(), logger)
	if err != nil {
		logger.Error(err, "failed to wire memory core components")
		os.Exit(1)
	}
	defer func() {
		if cerr := c.storageManager.Close(); cerr != nil {
			logger.Error(cerr, "failed to close storage manager cleanly")
		}
	}()

	httpAddr := *httpAddrFlag
	if httpAddr == "" {
		httpAddr = env.HTTPAddr.Get()
	}
	srv := newHTTPServer(httpAddr, c)

	runUntilSignal(srv, logger)
}

// buildComponents constructs C1-C9 from environment configuration in
// dependency order: storage first, then the indexes it backs, then the
// capability clients, then the components that depend on all of the above.
func buildComponents(ctx context.Context, logger logr.Logger) (*components, error) {
	storageCfg := storage.Config{
		Log:  logger,
		Pool: storage.PresetByName(env.PoolPreset.Get()),
	}
	if dbURL := env.DatabaseURL.Get(); dbURL != "" {
		storageCfg.Backend = storage.BackendPostgres
		storageCfg.DatabaseURL = dbURL
		storageCfg.VectorEnabled = true
	} else {
		storageCfg.Backend = storage.BackendSQLite
	}

	storageManager, err := storage.NewManager(storageCfg)
	if err != nil {
		return nil, err
	}

	if storageCfg.Backend == storage.BackendPostgres {
		runner, err := storage.NewMigrationRunner(storageManager)
		if err != nil {
			return nil, err
		}
		if err := runner.Up(); err != nil {
			return nil, err
		}
		logger.Info("applied postgres migrations")
	} else {
		if err := storageManager.Initialize(); err != nil {
			return nil, err
		}
		logger.Info("initialized sqlite schema via automigrate")
	}

	memoryRepo := storage.NewMemoryRepository(storageManager)
	blockRepo := storage.NewBlockRepository(storageManager)
	txManager := storage.NewTransactionManager(storageManager)

	var vectorIndex vectorindex.Index
	if storageCfg.Backend == storage.BackendPostgres {
		vectorIndex = pgvectoridx.New(storageManager.DB(), env.VectorDimension.Get())
	} else {
		vectorIndex = memvector.New(env.VectorDimension.Get())
	}

	fullTextIndex := memfts.New(memfts.NewTokenizer(env.FullTextLanguage.Get()))

	metricsReg := metrics.New(prometheus.DefaultRegisterer)

	searcherOpts := []hybrid.Option{hybrid.WithMetrics(metricsReg)}
	if env.HybridCacheEnabled.Get() {
		searcherOpts = append(searcherOpts, hybrid.WithCache(1024, env.HybridCacheTTL.Get()))
	}
	searcher := hybrid.NewSearcher(vectorIndex, fullTextIndex, searcherOpts...)

	llmClient, err := llm.NewClient(ctx, llm.ProviderKind(env.LLMProvider.Get()), llm.Config{
		APIKey:  env.LLMAPIKey.Get(),
		Model:   env.LLMModel.Get(),
		BaseURL: env.LLMBaseURL.Get(),
		Region:  env.LLMRegion.Get(),
	}, logger)
	if err != nil {
		return nil, err
	}

	embedderClient, err := embedder.NewClient(ctx, embedder.ProviderKind(env.EmbedderProvider.Get()), embedder.Config{
		APIKey:    env.EmbedderAPIKey.Get(),
		Model:     env.EmbedderModel.Get(),
		Dimension: env.VectorDimension.Get(),
	}, logger)
	if err != nil {
		return nil, err
	}

	ex := extractor.New(llmClient, extractor.Config{
		MinConfidence: env.ProcessorMinConfidence.Get(),
		MaxRetries:    env.ProcessorMaxRetries.Get(),
	}, logger)

	dec := decision.New(llmClient, decision.Config{
		MaxRetries: env.ProcessorMaxRetries.Get(),
	}, logger)

	proc := processor.New(ex, embedderClient, vectorIndex, fulltextIndexAsInterface(fullTextIndex), memoryRepo, txManager, dec, processor.Config{
		Workers:             env.ProcessorWorkers.Get(),
		TopK:                env.ProcessorTopK.Get(),
		SimilarityThreshold: env.ProcessorSimilarityThreshold.Get(),
	}, logger, metricsReg)

	rewriter := blocks.NewRewriter(llmClient, blocks.RewriteConfig{
		RewriteThreshold: env.BlockRewriteThreshold.Get(),
		TargetRetention:  env.BlockTargetRetention.Get(),
		MinQuality:       env.BlockMinQuality.Get(),
		MaxRetries:       env.BlockRewriteMaxRetries.Get(),
	}, logger)
	blockManager := blocks.NewManager(blockRepo, rewriter, blocks.RewriteConfig{
		RewriteThreshold: env.BlockRewriteThreshold.Get(),
		TargetRetention:  env.BlockTargetRetention.Get(),
		MinQuality:       env.BlockMinQuality.Get(),
		MaxRetries:       env.BlockRewriteMaxRetries.Get(),
	}, logger)
	compiler := blocks.NewCompiler(blockRepo)

	sandboxExec, err := sandbox.New(sandbox.Config{
		MaxOutputBytes: int64(env.SandboxMaxStdout.Get()),
		AllowNetwork:   env.SandboxEnableNetwork.Get(),
		DefaultTimeout: env.SandboxDefaultTimeout.Get(),
	}, logger, metricsReg)
	if err != nil {
		return nil, err
	}

	return &components{
		storageManager: storageManager,
		searcher:       searcher,
		processor:      proc,
		blockManager:   blockManager,
		compiler:       compiler,
		sandboxExec:    sandboxExec,
		metrics:        metricsReg,
	}, nil
}

// fulltextIndexAsInterface narrows memfts.Index to the fulltextindex.Index
// interface the processor depends on; memfts.New already returns a type
// satisfying it, this just documents the seam at the wiring boundary.
func fulltextIndexAsInterface(idx *memfts.Index) fulltextindex.Index { return idx }

func newHTTPServer(addr string, c *components) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := c.storageManager.SQLDB()
		if err != nil || sqlDB.Ping() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// runUntilSignal starts srv and blocks until SIGINT/SIGTERM, then drains
// in-flight requests within a bounded shutdown window.
func runUntilSignal(srv *http.Server, logger logr.Logger) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("agentmemd listening", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "http server error")
			os.Exit(1)
		}
	case sig := <-signalChan:
		logger.Info("received shutdown signal", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error(err, "graceful shutdown failed")
			os.Exit(1)
		}
		logger.Info("agentmemd shut down cleanly")
	}
}
