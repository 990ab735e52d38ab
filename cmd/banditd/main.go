package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ragops/banditd/pkg/api"
	"github.com/ragops/banditd/pkg/auth"
	"github.com/ragops/banditd/pkg/bandit"
	"github.com/ragops/banditd/pkg/cleanup"
	"github.com/ragops/banditd/pkg/logging"
	"github.com/ragops/banditd/pkg/metrics"
	"github.com/ragops/banditd/pkg/ratelimit"
	"github.com/ragops/banditd/pkg/shutdown"
	"github.com/ragops/banditd/pkg/store"
	tlsutil "github.com/ragops/banditd/pkg/tls"
	"github.com/ragops/banditd/pkg/tracing"
	"github.com/ragops/banditd/pkg/trainer"
)

const version = "0.3.0"

func main() {
	port := flag.String("port", "8080", "API server port")
	dbType := flag.String("db-type", "sqlite", "Store backend: sqlite, postgres or memory")
	dbPath := flag.String("db", "banditd.db", "SQLite database path")
	dsn := flag.String("dsn", "", "Postgres DSN (also read from DATABASE_DSN env var)")
	stateFile := flag.String("state-file", bandit.StateFileName, "Bandit weights state file")
	enabled := flag.Bool("enabled", true, "Start with bandit routing enabled")
	unitDuration := flag.Duration("unit-duration", time.Second, "Simulated duration of one training unit")
	retentionDays := flag.Int("retention-days", 30, "Days to keep finished runs (0 disables pruning)")
	cleanupInterval := flag.Duration("cleanup-interval", 24*time.Hour, "How often to prune finished runs")
	apiKeyFlag := flag.String("api-key", "", "API key for authentication (or BANDIT_API_KEY env var; empty disables auth)")
	rps := flag.Float64("rate-limit", 20, "Requests per second allowed per client IP (0 disables)")
	burst := flag.Int("rate-burst", 40, "Rate limit burst per client IP")
	useTLS := flag.Bool("tls", false, "Enable TLS on the API server")
	certFile := flag.String("cert", "certs/banditd.crt", "TLS certificate file")
	keyFile := flag.String("key", "certs/banditd.key", "TLS key file")
	generateCert := flag.Bool("generate-cert", false, "Generate a self-signed certificate and exit")
	certHosts := flag.String("cert-hosts", "", "Comma-separated extra SANs for the generated certificate")
	enableMetrics := flag.Bool("metrics", true, "Enable Prometheus metrics endpoint")
	metricsPort := flag.String("metrics-port", "9090", "Prometheus metrics port")
	otlpEndpoint := flag.String("otlp-endpoint", "", "OTLP HTTP endpoint for traces (empty disables tracing)")
	environment := flag.String("environment", "production", "Deployment environment reported in traces")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "Emit logs as JSON")
	logFile := flag.Bool("log-file", false, "Also write logs to /var/log/banditd (falls back to ./logs)")
	flag.Parse()

	var logger *logging.Logger
	if *logFile {
		fileLogger, logErr := logging.NewFileLogger("banditd", logging.ParseLevel(*logLevel), *logJSON)
		if logErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", logErr)
			os.Exit(1)
		}
		logger = fileLogger
	} else {
		logger = logging.NewLogger(logging.ParseLevel(*logLevel), *logJSON)
	}

	if *generateCert {
		var sans []string
		for _, h := range strings.Split(*certHosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				sans = append(sans, h)
			}
		}
		if err := os.MkdirAll("certs", 0755); err != nil {
			logger.Fatal("failed to create certs directory", map[string]interface{}{"error": err.Error()})
		}
		if err := tlsutil.GenerateSelfSignedCert(*certFile, *keyFile, "banditd", sans...); err != nil {
			logger.Fatal("failed to generate certificate", map[string]interface{}{"error": err.Error()})
		}
		logger.Info("certificate generated", map[string]interface{}{"cert": *certFile, "key": *keyFile})
		return
	}

	apiKey := *apiKeyFlag
	if apiKey == "" {
		apiKey = os.Getenv("BANDIT_API_KEY")
	}

	logger.Info("starting banditd", map[string]interface{}{
		"version": version,
		"port":    *port,
		"store":   *dbType,
	})

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    "banditd",
		ServiceVersion: version,
		Environment:    *environment,
		OTLPEndpoint:   *otlpEndpoint,
		Enabled:        *otlpEndpoint != "",
	})
	if err != nil {
		logger.Fatal("failed to initialize tracing", map[string]interface{}{"error": err.Error()})
	}

	storeDSN := *dsn
	if storeDSN == "" {
		storeDSN = os.Getenv("DATABASE_DSN")
	}
	dataStore, err := store.NewStore(store.Config{
		Type: *dbType,
		Path: *dbPath,
		DSN:  storeDSN,
	})
	if err != nil {
		logger.Fatal("failed to open store", map[string]interface{}{"error": err.Error()})
	}

	tracker := bandit.NewTracker()
	tracker.SetEnabled(*enabled)

	state, err := bandit.LoadState(*stateFile)
	if err != nil {
		logger.Fatal("failed to load state file", map[string]interface{}{
			"path":  *stateFile,
			"error": err.Error(),
		})
	}
	tracker.SetColdStart(state.ColdStart())
	logger.Info("state loaded", map[string]interface{}{
		"path":       *stateFile,
		"strategies": len(state.Weights),
		"cold_start": state.ColdStart(),
	})

	// Placeholder unit of work. The actual weight updates live in the
	// RAG backend; banditd only tracks cycle progress.
	unitFn := func(ctx context.Context, unit int) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(*unitDuration):
			return nil
		}
	}

	runner := trainer.New(tracker, dataStore, logger, unitFn)

	cleanupCfg := cleanup.DefaultConfig()
	cleanupCfg.Enabled = *retentionDays > 0
	cleanupCfg.RetentionDays = *retentionDays
	cleanupCfg.Interval = *cleanupInterval
	pruner := cleanup.NewManager(cleanupCfg, dataStore, logger)
	pruner.Start()

	exporter := metrics.NewExporter(tracker, dataStore)
	exporter.SetRetentionSource(pruner.GetStats)
	runner.SetMetricsRecorder(exporter)

	router := mux.NewRouter()
	router.Use(tracing.HTTPMiddleware(tp))
	var tokens *auth.TokenManager
	if apiKey != "" {
		tokens = auth.NewTokenManager()
		router.Use(auth.APIKeyMiddleware(apiKey, tokens))
		logger.Info("API authentication enabled")
	} else {
		logger.Warn("no API key configured, authentication disabled")
	}
	if *rps > 0 {
		limiter := ratelimit.NewLimiter(*rps, *burst)
		router.Use(limiter.Middleware(ratelimit.IPKeyFunc))
	}

	handler := api.NewHandler(tracker, dataStore, runner, logger)
	if tokens != nil {
		handler.SetTokenManager(tokens)
	}
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if *useTLS {
		if _, statErr := os.Stat(*certFile); os.IsNotExist(statErr) {
			logger.Info("certificate not found, generating self-signed certificate")
			if mkErr := os.MkdirAll("certs", 0755); mkErr != nil {
				logger.Fatal("failed to create certs directory", map[string]interface{}{"error": mkErr.Error()})
			}
			if genErr := tlsutil.GenerateSelfSignedCert(*certFile, *keyFile, "banditd"); genErr != nil {
				logger.Fatal("failed to generate certificate", map[string]interface{}{"error": genErr.Error()})
			}
		}
		tlsConfig, tlsErr := tlsutil.LoadTLSConfig(*certFile, *keyFile)
		if tlsErr != nil {
			logger.Fatal("failed to load TLS config", map[string]interface{}{"error": tlsErr.Error()})
		}
		srv.TLSConfig = tlsConfig
	}

	var metricsSrv *http.Server
	if *enableMetrics {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle("/metrics", exporter).Methods("GET")
		metricsRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		}).Methods("GET")

		metricsSrv = &http.Server{
			Addr:         ":" + *metricsPort,
			Handler:      metricsRouter,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", map[string]interface{}{"port": *metricsPort})
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	mgr := shutdown.New(30 * time.Second)
	mgr.Register(shutdown.CloseResource(logger, "log file"))
	mgr.Register(shutdown.CloseResource(dataStore, "store"))
	mgr.Register(func(ctx context.Context) error {
		pruner.Stop()
		return nil
	})
	mgr.Register(func(ctx context.Context) error {
		if cancelErr := runner.Cancel(); cancelErr != nil && cancelErr != trainer.ErrNoCycle {
			return cancelErr
		}
		runner.Wait()
		return nil
	})
	if metricsSrv != nil {
		mgr.Register(shutdown.StopHTTPServer(metricsSrv, "metrics server"))
	}
	mgr.Register(shutdown.StopHTTPServer(srv, "api server"))
	mgr.Register(tp.Shutdown)

	go func() {
		logger.Info("api server listening", map[string]interface{}{"port": *port, "tls": *useTLS})
		var srvErr error
		if *useTLS {
			srvErr = srv.ListenAndServeTLS("", "")
		} else {
			srvErr = srv.ListenAndServe()
		}
		if srvErr != nil && srvErr != http.ErrServerClosed {
			logger.Fatal("api server error", map[string]interface{}{"error": srvErr.Error()})
		}
	}()

	mgr.Wait()
	mgr.Shutdown()
	logger.Info("banditd stopped")
}
